// Package pricestore holds the authoritative stock list and fans every new
// snapshot out to its observers.
package pricestore

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

// Observer receives every snapshot published after it subscribed, starting
// with the one current at subscription time. It must not call Publish or
// Subscribe on the same store.
type Observer = func(models.Snapshot)

type Store struct {
	current atomic.Pointer[models.Snapshot]

	// notifyMu serializes publishes and initial deliveries so each observer
	// sees strictly increasing SeqIDs.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	observers map[uint64]Observer
	nextID    uint64

	now func() time.Time
}

// New seeds a store with the given list. The list is copied.
func New(initial []models.Stock) (*Store, error) {
	if err := models.ValidateStocks(initial); err != nil {
		return nil, fmt.Errorf("invalid seed list: %w", err)
	}

	s := &Store{
		observers: make(map[uint64]Observer),
		now:       time.Now,
	}
	s.current.Store(&models.Snapshot{
		SeqID:     0,
		Timestamp: s.now().UnixMicro(),
		Stocks:    slices.Clone(initial),
	})
	return s, nil
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() models.Snapshot {
	return clone(s.current.Load())
}

// Subscribe registers fn and immediately calls it with the current snapshot.
// The returned function removes the observer; it is safe to call more than
// once and from inside fn.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	fn(clone(s.current.Load()))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Publish replaces the current list wholesale and notifies every observer
// before returning.
func (s *Store) Publish(stocks []models.Stock) error {
	if err := models.ValidateStocks(stocks); err != nil {
		return fmt.Errorf("rejected snapshot: %w", err)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	next := &models.Snapshot{
		SeqID:     s.current.Load().SeqID + 1,
		Timestamp: s.now().UnixMicro(),
		Stocks:    slices.Clone(stocks),
	}
	s.current.Store(next)

	s.mu.RLock()
	targets := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		targets = append(targets, fn)
	}
	s.mu.RUnlock()

	for _, fn := range targets {
		fn(clone(next))
	}
	return nil
}

// ObserverCount reports how many observers are registered.
func (s *Store) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

func clone(snap *models.Snapshot) models.Snapshot {
	c := *snap
	c.Stocks = slices.Clone(snap.Stocks)
	return c
}
