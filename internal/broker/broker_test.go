package broker

import (
	"errors"
	"testing"
	"time"

	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

func newTestData(t *testing.T) *marketdata.Service {
	t.Helper()
	sym := domain.Symbol{ID: "TEST", MinimumTickSize: 0.5, Multiplier: 1}
	repo := marketdata.NewRepository(sym, domain.SimConfig{SymbolID: "TEST"})
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := []domain.Bar{
		{SymbolID: "TEST", Timestamp: start, Open: 10, High: 10.5, Low: 9.5, Close: 10, Volume: 1000},
		{SymbolID: "TEST", Timestamp: start.Add(time.Minute), Open: 10, High: 10.5, Low: 9.5, Close: 10, Volume: 1000},
	}
	if err := repo.SaveBars(marketdata.TimeframeBase, bars); err != nil {
		t.Fatalf("SaveBars() returned error: %v", err)
	}
	return marketdata.NewService(repo)
}

// allowAll is a RiskChecker that admits everything.
type allowAll struct{}

func (allowAll) CheckNewOrder(float64, int64, domain.OrderDirection) bool { return true }
func (allowAll) CheckUpdateOrder(int64, *float64, *int64) (bool, error)   { return true, nil }

// denyAll is a RiskChecker that refuses everything.
type denyAll struct{}

func (denyAll) CheckNewOrder(float64, int64, domain.OrderDirection) bool { return false }
func (denyAll) CheckUpdateOrder(int64, *float64, *int64) (bool, error)   { return false, nil }

func newTestGate(t *testing.T, risk RiskChecker) (*Gate, *OrderBook) {
	t.Helper()
	data := newTestData(t)
	book := NewOrderBook()
	gate := NewGate(NewValidator(book, data), risk, NewOrderService(book, data), book, "TEST")
	return gate, book
}

func TestOrderBookSequentialIDs(t *testing.T) {
	book := NewOrderBook()
	for want := int64(0); want < 3; want++ {
		o := &domain.Order{Status: domain.OrderStatusPending}
		if got := book.Save(o); got != want {
			t.Errorf("Save() assigned ID %d, want %d", got, want)
		}
	}
	if _, ok := book.ByID(1); !ok {
		t.Error("ByID(1) not found after save")
	}
	if _, ok := book.ByID(99); ok {
		t.Error("ByID(99) found a nonexistent order")
	}
	if got := len(book.ByStatus(domain.OrderStatusPending)); got != 3 {
		t.Errorf("ByStatus(PENDING) returned %d orders, want 3", got)
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	gate, book := newTestGate(t, allowAll{})

	order, err := gate.CreateOrder(10.0, 5, domain.DirectionBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("CreateOrder() returned error: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("Status = %s, want PENDING", order.Status)
	}
	if order.SymbolID != "TEST" {
		t.Errorf("SymbolID = %q, want TEST", order.SymbolID)
	}
	if order.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
	if got, _ := book.ByID(order.ID); got != order {
		t.Error("order not in the book under its ID")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	gate, _ := newTestGate(t, allowAll{})

	tests := []struct {
		name    string
		price   float64
		amount  int64
		wantErr error
	}{
		{"zero price", 0, 5, ErrInvalidPrice},
		{"negative price", -10, 5, ErrInvalidPrice},
		{"off-tick price", 10.3, 5, ErrInvalidPrice}, // tick is 0.5
		{"zero amount", 10, 0, ErrInvalidAmount},
		{"negative amount", 10, -5, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.CreateOrder(tt.price, tt.amount, domain.DirectionBuy, domain.OrderTypeLimit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateOrder(%v, %d) error = %v, want %v", tt.price, tt.amount, err, tt.wantErr)
			}
		})
	}

	// Tick-aligned prices pass.
	if _, err := gate.CreateOrder(10.5, 5, domain.DirectionBuy, domain.OrderTypeLimit); err != nil {
		t.Errorf("CreateOrder(10.5, 5) returned error: %v", err)
	}
}

func TestCreateOrderRiskRejected(t *testing.T) {
	gate, book := newTestGate(t, denyAll{})

	_, err := gate.CreateOrder(10.0, 5, domain.DirectionBuy, domain.OrderTypeLimit)
	if !errors.Is(err, ErrRiskRejected) {
		t.Errorf("CreateOrder() error = %v, want ErrRiskRejected", err)
	}
	if len(book.All()) != 0 {
		t.Error("rejected order reached the book")
	}
}

func TestUpdateOrder(t *testing.T) {
	gate, _ := newTestGate(t, allowAll{})

	order, err := gate.CreateOrder(10.0, 5, domain.DirectionBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("CreateOrder() returned error: %v", err)
	}

	newPrice := 9.5
	if err := gate.UpdateOrder(order.ID, &newPrice, nil); err != nil {
		t.Fatalf("UpdateOrder() returned error: %v", err)
	}
	if order.Price != 9.5 {
		t.Errorf("Price = %f, want 9.5", order.Price)
	}
	if order.Amount != 5 {
		t.Errorf("Amount = %d, want 5 (nil keeps current)", order.Amount)
	}

	if err := gate.UpdateOrder(99, &newPrice, nil); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("UpdateOrder(99) error = %v, want ErrOrderNotFound", err)
	}
}

func TestCancelOrderTerminal(t *testing.T) {
	gate, _ := newTestGate(t, allowAll{})

	order, err := gate.CreateOrder(10.0, 5, domain.DirectionBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("CreateOrder() returned error: %v", err)
	}
	if err := gate.CancelOrder(order.ID); err != nil {
		t.Fatalf("CancelOrder() returned error: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", order.Status)
	}

	// Terminal orders cannot be cancelled or amended again.
	if err := gate.CancelOrder(order.ID); !errors.Is(err, ErrOrderNotPending) {
		t.Errorf("second CancelOrder() error = %v, want ErrOrderNotPending", err)
	}
	newPrice := 9.5
	if err := gate.UpdateOrder(order.ID, &newPrice, nil); !errors.Is(err, ErrOrderNotPending) {
		t.Errorf("UpdateOrder() on cancelled order error = %v, want ErrOrderNotPending", err)
	}
}
