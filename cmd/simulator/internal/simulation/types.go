package simulation

import (
	"math/rand"
	"time"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

// for deterministic testing
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// for deterministic values
type Rand interface {
	Float64() float64
}

// Store is the part of the price store the simulation reads and writes.
type Store interface {
	Snapshot() models.Snapshot
	Publish(stocks []models.Stock) error
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealRand is only ever used from the simulation goroutine, so the
// unsynchronized *rand.Rand is fine.
type RealRand struct{ *rand.Rand }

func NewRealRand(seed int64) RealRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return RealRand{rand.New(rand.NewSource(seed))}
}

func (r RealRand) Float64() float64 { return r.Rand.Float64() }
