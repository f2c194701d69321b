package domain

import "testing"

func TestDirectionOpposite(t *testing.T) {
	if DirectionBuy.Opposite() != DirectionSell {
		t.Errorf("DirectionBuy.Opposite() = %s, want %s", DirectionBuy.Opposite(), DirectionSell)
	}
	if DirectionSell.Opposite() != DirectionBuy {
		t.Errorf("DirectionSell.Opposite() = %s, want %s", DirectionSell.Opposite(), DirectionBuy)
	}
}

func TestOrderIsPending(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusPending, true},
		{OrderStatusFilled, false},
		{OrderStatusCancelled, false},
	}
	for _, tt := range tests {
		o := &Order{Status: tt.status}
		if got := o.IsPending(); got != tt.want {
			t.Errorf("IsPending() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNewAccount(t *testing.T) {
	a := NewAccount(100000)
	if a.Balance != 100000 {
		t.Errorf("Balance = %f, want 100000", a.Balance)
	}
	if a.Equity != 100000 {
		t.Errorf("Equity = %f, want 100000", a.Equity)
	}
	if a.Position != nil {
		t.Error("new account should be flat")
	}
}

func TestUnrealizedPnL(t *testing.T) {
	tests := []struct {
		name       string
		direction  OrderDirection
		avgPrice   float64
		amount     int64
		price      float64
		multiplier int64
		want       float64
	}{
		{"long gains when price rises", DirectionBuy, 10, 5, 12, 10, 100},
		{"long loses when price falls", DirectionBuy, 10, 5, 9, 10, -50},
		{"short gains when price falls", DirectionSell, 10, 5, 8, 10, 100},
		{"short loses when price rises", DirectionSell, 10, 5, 11, 10, -50},
		{"flat mark is zero", DirectionBuy, 10, 5, 10, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Direction: tt.direction, AveragePrice: tt.avgPrice, Amount: tt.amount}
			if got := p.UnrealizedPnL(tt.price, tt.multiplier); got != tt.want {
				t.Errorf("UnrealizedPnL(%f, %d) = %f, want %f", tt.price, tt.multiplier, got, tt.want)
			}
		})
	}
}
