// Package simulation drives the once-per-second random walk over the stock list.
package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Interval is the fixed tick period.
const Interval = time.Second

var (
	ErrNilStore = errors.New("simulation requires a price store")
	ErrNilRand  = errors.New("simulation requires a random source")
)

type Simulator struct {
	store  Store
	rand   Rand
	clock  Clock
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store Store, rnd Rand, clock Clock, logger *zap.Logger) (*Simulator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if rnd == nil {
		return nil, ErrNilRand
	}
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		store:  store,
		rand:   rnd,
		clock:  clock,
		logger: logger,
	}, nil
}

// Start launches the tick loop unless one is already running. The loop also
// ends when ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	s.logger.Info("Simulation Started", zap.Duration("interval", Interval))
	go s.run(loopCtx, done)
}

// Stop cancels the loop and waits for it to exit. No snapshot is published
// after Stop returns. It must not be called from a store observer.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	s.logger.Info("Simulation Stopped")
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Simulator) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		// parent context ended the loop
		return false
	default:
		return true
	}
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(Interval):
		}
		if ctx.Err() != nil {
			return
		}
		s.tick()
	}
}

func (s *Simulator) tick() {
	snap := s.store.Snapshot()
	next := Step(snap.Stocks, s.rand)

	if err := s.store.Publish(next); err != nil {
		s.logger.Error("Publish Error", zap.Error(err))
		return
	}
	s.logger.Debug("Tick", zap.Int64("prev_seq_id", snap.SeqID), zap.Int("stocks", len(next)))
}
