package orderflow

import (
	"sync"

	"bazaar/internal/model"
)

// InFlight tracks orders with an outstanding status change so a second request
// for the same order is rejected instead of racing the first.
type InFlight struct {
	mu       sync.Mutex
	updating map[int64]struct{}
}

// NewInFlight creates an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{updating: make(map[int64]struct{})}
}

// Begin marks orderID as updating. The returned release func must be called once
// the result is known; it is safe to call more than once.
func (f *InFlight) Begin(orderID int64) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.updating[orderID]; busy {
		return nil, model.ErrTransitionInFlight
	}
	f.updating[orderID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.updating, orderID)
			f.mu.Unlock()
		})
	}, nil
}

// Updating reports whether a status change for orderID is outstanding.
func (f *InFlight) Updating(orderID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.updating[orderID]
	return busy
}
