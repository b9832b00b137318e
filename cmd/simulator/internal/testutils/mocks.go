package testutils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/feed"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/protocol"
)

// MockRand returns ValFloat, or walks Values in order when set.
type MockRand struct {
	ValFloat float64
	Values   []float64

	mu  sync.Mutex
	idx int
}

func (m *MockRand) Float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Values) == 0 {
		return m.ValFloat
	}
	v := m.Values[m.idx%len(m.Values)]
	m.idx++
	return v
}

// MockClock only fires when the test calls Advance, so every tick is
// driven explicitly.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	ticks       chan time.Time
	afterCalls  atomic.Int64
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{CurrentTime: start, ticks: make(chan time.Time)}
}

func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.afterCalls.Add(1)
	return m.ticks
}

// AfterCalls counts how many waits have been started.
func (m *MockClock) AfterCalls() int64 { return m.afterCalls.Load() }

// Advance moves time forward and releases one waiting loop. It reports false
// if nobody was waiting within timeout.
func (m *MockClock) Advance(d time.Duration, timeout time.Duration) bool {
	m.mu.Lock()
	m.CurrentTime = m.CurrentTime.Add(d)
	now := m.CurrentTime
	m.mu.Unlock()

	select {
	case m.ticks <- now:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MockLifecycle counts Start/Stop calls.
type MockLifecycle struct {
	Mu     sync.Mutex
	Starts int
	Stops  int
}

func (m *MockLifecycle) Start(ctx context.Context) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Starts++
}

func (m *MockLifecycle) Stop() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Stops++
}

func (m *MockLifecycle) Counts() (starts, stops int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Starts, m.Stops
}

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores decoded JSON messages
	RawBytes []string              // Stores raw bytes
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsg() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

func (m *MockClient) Raw() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.RawBytes...)
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

type MockKafkaConn struct {
	CreatedTopics []string
	NotReady      bool
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.NotReady {
		return nil, nil
	}
	return []kafka.Partition{{ID: 0}}, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Fail    bool
	Dials   []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (feed.KafkaConn, error) {
	m.Dials = append(m.Dials, address)
	if m.Fail {
		return nil, errors.New("connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// MockSleeper records requested sleeps without sleeping.
type MockSleeper struct {
	Slept []time.Duration
}

func (m *MockSleeper) Sleep(d time.Duration) { m.Slept = append(m.Slept, d) }

type MockPipeline struct {
	redis.Pipeliner // Embed interface to satisfy missing methods like ACLCat, etc.

	ExecCount    int
	Attempts     int
	RecordedCmds []string
	ShouldFail   bool
	// Block, when set, holds every Exec until it is closed or ctx ends.
	Block chan struct{}
	Mu    sync.Mutex
}

// Counts returns Exec calls started and Exec calls that succeeded.
func (m *MockPipeline) Counts() (attempts, execs int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Attempts, m.ExecCount
}

func (m *MockPipeline) SetFail(fail bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ShouldFail = fail
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "SET "+key)
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "PUBLISH "+channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	m.Attempts++
	block := m.Block
	m.Mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("redis down")
	}
	m.ExecCount++
	return nil, nil
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

func (m *MockRedisClient) Close() error { return nil }
