package broker

import (
	"fmt"

	"barsim/internal/domain"
)

// RiskChecker is the margin gate the broker consults before admitting order
// mutations. Implemented by the engine's risk engine.
type RiskChecker interface {
	// CheckNewOrder reports whether a prospective order fits within the
	// available margin.
	CheckNewOrder(price float64, amount int64, direction domain.OrderDirection) bool

	// CheckUpdateOrder reports whether an amend fits, substituting the new
	// margin for the order's current contribution. The error distinguishes a
	// missing order from a margin refusal.
	CheckUpdateOrder(id int64, newPrice *float64, newAmount *int64) (bool, error)
}

// Broker is the handle handed to strategies. Every mutating call is
// validation- and risk-gated; strategies cannot bypass the gates.
type Broker interface {
	CreateOrder(price float64, amount int64, direction domain.OrderDirection, orderType domain.OrderType) (*domain.Order, error)
	UpdateOrder(id int64, newPrice *float64, newAmount *int64) error
	CancelOrder(id int64) error
	GetOrder(id int64) (*domain.Order, error)
	OrdersByStatus(status domain.OrderStatus) []*domain.Order
}

// Compile-time interface check.
var _ Broker = (*Gate)(nil)

// Gate implements Broker by chaining the validator, the risk checker, and
// the order service.
type Gate struct {
	validator *Validator
	risk      RiskChecker
	orders    *OrderService
	book      *OrderBook
	symbolID  string
}

// NewGate wires the gated broker handle for one run.
func NewGate(validator *Validator, risk RiskChecker, orders *OrderService, book *OrderBook, symbolID string) *Gate {
	return &Gate{
		validator: validator,
		risk:      risk,
		orders:    orders,
		book:      book,
		symbolID:  symbolID,
	}
}

// CreateOrder validates and risk-checks the request, then creates a PENDING
// order.
func (g *Gate) CreateOrder(price float64, amount int64, direction domain.OrderDirection,
	orderType domain.OrderType) (*domain.Order, error) {

	if err := g.validator.ValidateNew(price, amount); err != nil {
		return nil, err
	}
	if !g.risk.CheckNewOrder(price, amount, direction) {
		return nil, fmt.Errorf("creating order: %w", ErrRiskRejected)
	}
	return g.orders.Create(g.symbolID, price, amount, direction, orderType)
}

// UpdateOrder validates and risk-checks the amend, then applies it.
func (g *Gate) UpdateOrder(id int64, newPrice *float64, newAmount *int64) error {
	if err := g.validator.ValidateUpdate(id, newPrice, newAmount); err != nil {
		return err
	}
	ok, err := g.risk.CheckUpdateOrder(id, newPrice, newAmount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("updating order %d: %w", id, ErrRiskRejected)
	}
	return g.orders.Update(id, newPrice, newAmount)
}

// CancelOrder validates the cancel, then applies it.
func (g *Gate) CancelOrder(id int64) error {
	if err := g.validator.ValidateCancel(id); err != nil {
		return err
	}
	return g.orders.Cancel(id)
}

// GetOrder returns the order with the given ID.
func (g *Gate) GetOrder(id int64) (*domain.Order, error) {
	o, ok := g.book.ByID(id)
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	return o, nil
}

// OrdersByStatus returns all orders in the given status.
func (g *Gate) OrdersByStatus(status domain.OrderStatus) []*domain.Order {
	return g.book.ByStatus(status)
}
