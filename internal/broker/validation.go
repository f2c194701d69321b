package broker

import (
	"fmt"
	"log/slog"
	"math"

	"barsim/internal/marketdata"
)

// tickEpsilon absorbs float rounding in the tick-alignment check.
const tickEpsilon = 1e-9

// Validator checks order input shape: positive tick-aligned prices, positive
// amounts, and for amend/cancel that the target order exists and is still
// pending.
type Validator struct {
	book *OrderBook
	data *marketdata.Service
	log  *slog.Logger
}

// NewValidator creates a Validator over the given order log and market data.
func NewValidator(book *OrderBook, data *marketdata.Service) *Validator {
	return &Validator{
		book: book,
		data: data,
		log:  slog.Default().With("component", "order-validation"),
	}
}

// ValidateNew checks a prospective order's price and amount.
func (v *Validator) ValidateNew(price float64, amount int64) error {
	if err := v.validatePrice(price); err != nil {
		return err
	}
	return v.validateAmount(amount)
}

// ValidateUpdate checks an amend request. Nil fields are not validated.
func (v *Validator) ValidateUpdate(id int64, newPrice *float64, newAmount *int64) error {
	if err := v.validatePending(id); err != nil {
		return err
	}
	if newPrice != nil {
		if err := v.validatePrice(*newPrice); err != nil {
			return err
		}
	}
	if newAmount != nil {
		if err := v.validateAmount(*newAmount); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCancel checks that the order exists and is still pending.
func (v *Validator) ValidateCancel(id int64) error {
	return v.validatePending(id)
}

func (v *Validator) validatePrice(price float64) error {
	if price <= 0 {
		v.log.Error("price not positive", slog.Float64("price", price))
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	tick := v.data.Symbol().MinimumTickSize
	rem := math.Mod(price, tick)
	if rem > tickEpsilon && math.Abs(rem-tick) > tickEpsilon {
		v.log.Error("price not aligned to tick size",
			slog.Float64("price", price),
			slog.Float64("tick", tick))
		return fmt.Errorf("%w: %v not aligned to tick %v", ErrInvalidPrice, price, tick)
	}
	return nil
}

func (v *Validator) validateAmount(amount int64) error {
	if amount <= 0 {
		v.log.Error("amount not positive", slog.Int64("amount", amount))
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return nil
}

func (v *Validator) validatePending(id int64) error {
	o, ok := v.book.ByID(id)
	if !ok {
		return fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if !o.IsPending() {
		v.log.Error("order not pending", slog.Int64("id", id), slog.String("status", string(o.Status)))
		return fmt.Errorf("order %d: %w", id, ErrOrderNotPending)
	}
	return nil
}
