package marketdata

import (
	"time"

	"barsim/internal/domain"
)

// Service is the market-data access point handed to the engine and to
// strategies. It wraps the repository with handler registration and the
// per-bar advance step.
type Service struct {
	repo     *Repository
	handlers []Handler
}

// NewService wraps a loaded repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Current returns the value of field at the current bar of the given
// timeframe.
func (s *Service) Current(field Field, timeframe string) (float64, error) {
	return s.repo.Current(field, timeframe)
}

// CurrentTime returns the current bar timestamp in the given timeframe.
func (s *Service) CurrentTime(timeframe string) (time.Time, error) {
	return s.repo.CurrentTime(timeframe)
}

// History returns the full series for field in the given timeframe.
func (s *Service) History(field Field, timeframe string) ([]float64, error) {
	return s.repo.History(field, timeframe)
}

// Times returns the timestamp series for the given timeframe.
func (s *Service) Times(timeframe string) ([]time.Time, error) {
	return s.repo.Times(timeframe)
}

// Symbol returns the run's symbol definition.
func (s *Service) Symbol() domain.Symbol { return s.repo.Symbol() }

// Config returns the run's simulation parameters.
func (s *Service) Config() domain.SimConfig { return s.repo.Config() }

// BarCount returns the base-bar cursor position.
func (s *Service) BarCount() int { return s.repo.BarCount() }

// BarWindow registers a rolling window over one bar field. Call before the
// run starts; the window fills as AdvanceBar is invoked.
func (s *Service) BarWindow(field Field, timeframe string, size int) (*Window, error) {
	h, err := newBarFieldHandler(s.repo, field, timeframe, size)
	if err != nil {
		return nil, err
	}
	s.handlers = append(s.handlers, h)
	return h.Window(), nil
}

// MACD registers a rolling MACD indicator over the close series of the
// given timeframe and returns the MACD and signal line windows.
func (s *Service) MACD(timeframe string, size int, params MACDParams) (macd, signal *Window, err error) {
	h, err := newMACDHandler(s.repo, timeframe, size, params)
	if err != nil {
		return nil, nil, err
	}
	s.handlers = append(s.handlers, h)
	return h.MACD(), h.Signal(), nil
}

// AdvanceBar feeds the current base bar's timestamp to every registered
// handler, then moves the cursor to the next base bar.
func (s *Service) AdvanceBar() error {
	now, err := s.repo.CurrentTime(TimeframeBase)
	if err != nil {
		return err
	}
	for _, h := range s.handlers {
		h.Advance(now)
	}
	s.repo.setBarCount(s.repo.BarCount() + 1)
	return nil
}
