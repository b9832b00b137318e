package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

const (
	KeyPrefix     = "stock:"
	ChannelPrefix = "prices."
)

// RedisSink keeps stock:<SYM> at the latest update and publishes each update
// on prices.<SYM>. Observe only hands the snapshot to the sink's worker, so a
// slow or hung Redis never holds up the publisher.
type RedisSink struct {
	logger *zap.Logger
	rdb    RedisClient
	ttl    time.Duration

	// pending holds at most the newest snapshot not yet written.
	pending chan models.Snapshot
	quit    chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once

	// owned by the worker
	lastSeq int64
}

func NewRedisSink(logger *zap.Logger, rdb RedisClient, ttl time.Duration) *RedisSink {
	return &RedisSink{
		logger:  logger,
		rdb:     rdb,
		ttl:     ttl,
		pending: make(chan models.Snapshot, 1),
		quit:    make(chan struct{}),
		lastSeq: -1,
	}
}

// Start launches the worker that writes snapshots to Redis. Calling it more
// than once has no effect.
func (r *RedisSink) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.worker()
	})
}

// Observe queues snap for the worker, replacing any snapshot still waiting.
// It never blocks.
func (r *RedisSink) Observe(snap models.Snapshot) {
	for {
		select {
		case r.pending <- snap:
			return
		default:
		}

		select {
		case old := <-r.pending:
			r.logger.Debug("Dropping unwritten snapshot", zap.Int64("seq_id", old.SeqID), zap.Int64("newer", snap.SeqID))
		default:
		}
	}
}

func (r *RedisSink) worker() {
	defer r.wg.Done()
	r.logger.Info("Redis feed worker started")

	for {
		select {
		case snap := <-r.pending:
			r.write(snap)
		case <-r.quit:
			// flush what was handed over before Close
			select {
			case snap := <-r.pending:
				r.write(snap)
			default:
			}
			return
		}
	}
}

func (r *RedisSink) write(snap models.Snapshot) {
	if snap.SeqID <= r.lastSeq {
		r.logger.Debug("Skipping stale snapshot", zap.Int64("seq_id", snap.SeqID), zap.Int64("last_seq", r.lastSeq))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	// SET + PUBLISH for every symbol in a single pipeline
	pipe := r.rdb.Pipeline()
	for _, u := range snap.Updates() {
		payload, err := json.Marshal(u)
		if err != nil {
			r.logger.Error("JSON Marshal Error", zap.Error(err))
			continue
		}
		pipe.Set(ctx, KeyPrefix+u.Symbol, payload, r.ttl)
		pipe.Publish(ctx, ChannelPrefix+u.Symbol, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Redis Pipeline Error", zap.Error(err), zap.Int64("seq_id", snap.SeqID))
		return
	}
	r.lastSeq = snap.SeqID
	r.logger.Debug("Processed", zap.Int64("seq_id", snap.SeqID))
}

// Close stops the worker after it writes the last queued snapshot, then
// closes the client.
func (r *RedisSink) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.quit)
		r.wg.Wait()
		err = r.rdb.Close()
	})
	return err
}
