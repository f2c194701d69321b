package broker

import (
	"fmt"
	"log/slog"

	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// OrderService performs the raw order lifecycle operations against the order
// log. It does not validate or risk-check; that is the Gate's job. The
// engine uses it directly when synthesizing forced-liquidation orders.
type OrderService struct {
	book *OrderBook
	data *marketdata.Service
	log  *slog.Logger
}

// NewOrderService creates an OrderService writing to book and reading bar
// timestamps from data.
func NewOrderService(book *OrderBook, data *marketdata.Service) *OrderService {
	return &OrderService{
		book: book,
		data: data,
		log:  slog.Default().With("component", "orders"),
	}
}

// Create builds a PENDING order timestamped with the current base bar and
// appends it to the log.
func (s *OrderService) Create(symbolID string, price float64, amount int64,
	direction domain.OrderDirection, orderType domain.OrderType) (*domain.Order, error) {

	now, err := s.data.CurrentTime(marketdata.TimeframeBase)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	o := &domain.Order{
		SymbolID:  symbolID,
		Price:     price,
		Amount:    amount,
		Direction: direction,
		Type:      orderType,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.book.Save(o)
	s.log.Info("order created",
		slog.Int64("id", o.ID),
		slog.String("direction", string(direction)),
		slog.String("type", string(orderType)),
		slog.Float64("price", price),
		slog.Int64("amount", amount))
	return o, nil
}

// Update rewrites the price and/or amount of an existing order. Nil means
// keep the current value.
func (s *OrderService) Update(id int64, newPrice *float64, newAmount *int64) error {
	o, ok := s.book.ByID(id)
	if !ok {
		return fmt.Errorf("updating order %d: %w", id, ErrOrderNotFound)
	}
	if newPrice != nil {
		o.Price = *newPrice
	}
	if newAmount != nil {
		o.Amount = *newAmount
	}
	s.log.Info("order updated",
		slog.Int64("id", id),
		slog.Float64("price", o.Price),
		slog.Int64("amount", o.Amount))
	return nil
}

// Cancel transitions an order to CANCELLED.
func (s *OrderService) Cancel(id int64) error {
	o, ok := s.book.ByID(id)
	if !ok {
		return fmt.Errorf("cancelling order %d: %w", id, ErrOrderNotFound)
	}
	o.Status = domain.OrderStatusCancelled
	s.log.Info("order cancelled", slog.Int64("id", id))
	return nil
}
