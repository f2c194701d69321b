package marketdata

import (
	"fmt"
	"time"
)

// Window is a fixed-capacity FIFO over float64 values. Appending beyond the
// capacity evicts the oldest value.
type Window struct {
	values []float64
	cap    int
}

// NewWindow creates a window holding at most size values.
func NewWindow(size int) *Window {
	return &Window{values: make([]float64, 0, size), cap: size}
}

// Push appends v, evicting the oldest value when full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.cap {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.cap-1]
	}
	w.values = append(w.values, v)
}

// Values returns the window contents, oldest first. The returned slice
// aliases internal storage and must not be retained across pushes.
func (w *Window) Values() []float64 { return w.values }

// Len returns the number of values currently held.
func (w *Window) Len() int { return len(w.values) }

// Last returns the most recent value. ok is false while the window is empty.
func (w *Window) Last() (v float64, ok bool) {
	if len(w.values) == 0 {
		return 0, false
	}
	return w.values[len(w.values)-1], true
}

// Handler is a rolling view over a series that is advanced once per base
// bar. Implementations release the next pending value into their window
// when the simulation clock reaches that value's bar timestamp.
type Handler interface {
	Advance(now time.Time)
}

// barFieldHandler exposes a rolling window over one bar field of one
// timeframe.
type barFieldHandler struct {
	pending []float64
	times   []time.Time
	next    int
	window  *Window
}

// newBarFieldHandler snapshots the full series for (field, timeframe) and
// returns a handler whose window fills as the clock advances.
func newBarFieldHandler(repo *Repository, field Field, timeframe string, size int) (*barFieldHandler, error) {
	values, err := repo.History(field, timeframe)
	if err != nil {
		return nil, err
	}
	times, err := repo.Times(timeframe)
	if err != nil {
		return nil, err
	}
	if len(values) != len(times) {
		return nil, fmt.Errorf("marketdata: %s/%s series and datetimes differ in length", field, timeframe)
	}
	return &barFieldHandler{pending: values, times: times, window: NewWindow(size)}, nil
}

// Advance releases the next value once its bar timestamp has been reached.
func (h *barFieldHandler) Advance(now time.Time) {
	if h.next >= len(h.pending) {
		return
	}
	if !now.Before(h.times[h.next]) {
		h.window.Push(h.pending[h.next])
		h.next++
	}
}

// Window returns the rolling view.
func (h *barFieldHandler) Window() *Window { return h.window }
