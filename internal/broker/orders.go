// Package broker owns the order log and the strategy-facing order API. Every
// order mutation a strategy can request passes input validation and the risk
// gate before it reaches the order log; the engine mutates orders directly.
package broker

import (
	"errors"

	"barsim/internal/domain"
)

// Sentinel errors for order operations. Callers distinguish "not found" from
// "found but in the wrong state".
var (
	ErrOrderNotFound   = errors.New("broker: order not found")
	ErrOrderNotPending = errors.New("broker: order is not pending")
	ErrInvalidPrice    = errors.New("broker: invalid price")
	ErrInvalidAmount   = errors.New("broker: invalid amount")
	ErrRiskRejected    = errors.New("broker: rejected by risk check")
)

// OrderBook is the append-only order log. Orders are assigned sequential IDs
// on save and are never removed; terminal orders stay for history.
type OrderBook struct {
	orders []*domain.Order
}

// NewOrderBook creates an empty order log.
func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Save assigns the next sequential ID and appends the order.
func (b *OrderBook) Save(o *domain.Order) int64 {
	o.ID = int64(len(b.orders))
	b.orders = append(b.orders, o)
	return o.ID
}

// ByID returns the order with the given ID.
func (b *OrderBook) ByID(id int64) (*domain.Order, bool) {
	if id < 0 || id >= int64(len(b.orders)) {
		return nil, false
	}
	return b.orders[id], true
}

// ByStatus returns all orders in the given status, in creation order.
func (b *OrderBook) ByStatus(status domain.OrderStatus) []*domain.Order {
	var out []*domain.Order
	for _, o := range b.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// All returns every order ever created, in creation order.
func (b *OrderBook) All() []*domain.Order {
	return b.orders
}
