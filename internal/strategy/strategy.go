// Package strategy defines the Strategy interface invoked by the backtest
// loop and provides a Registry for looking strategies up by name.
package strategy

import (
	"sort"

	"barsim/internal/broker"
	"barsim/internal/marketdata"
)

// Strategy is user trading logic driven by the backtest loop. Init runs once
// before the loop and is where the strategy subscribes its data handlers;
// OnBar runs on every strategy-timeframe boundary with the gated broker
// handle. Strategies never see the engine directly.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init performs one-time setup: subscribing bar windows and indicators
	// on the market-data service.
	Init(data *marketdata.Service) error

	// OnBar is called once per strategy-timeframe bar. Order operations go
	// through the broker handle and may be refused by validation or risk.
	OnBar(b broker.Broker) error
}

// Registry holds a named collection of strategies.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns the sorted names of all registered strategies.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
