package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket" // Using Gorilla for the test CLIENT
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/feed"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/gateway"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/hub"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/pricestore"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/simulation"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/testutils"
	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

type env struct {
	server *httptest.Server
	mr     *miniredis.Miniredis
	sim    *simulation.Simulator
	clock  *testutils.MockClock
	store  *pricestore.Store
}

// startServer wires the same components as main, with a manual clock and a
// random source fixed at 0.0 (every tick moves prices up 5%).
func startServer(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zap.NewNop()

	store, err := pricestore.New(models.DefaultStocks())
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	redisSink := feed.NewRedisSink(logger, rdb, time.Hour)
	redisSink.Start()
	unsubscribe := store.Subscribe(redisSink.Observe)

	clock := testutils.NewMockClock(time.Unix(0, 0))
	sim, err := simulation.New(store, &testutils.MockRand{ValFloat: 0.0}, clock, logger)
	require.NoError(t, err)

	wsHub := hub.NewHub(context.Background(), store, sim, logger)
	server := httptest.NewServer(gateway.NewMux(wsHub, logger))

	t.Cleanup(func() {
		server.Close()
		sim.Stop()
		wsHub.Close()
		unsubscribe()
		redisSink.Close()
	})

	return &env{server: server, mr: mr, sim: sim, clock: clock, store: store}
}

func connectWS(t *testing.T, serverURL string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	return wsConn
}

func readTicker(t *testing.T, conn *websocket.Conn) models.StockUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp struct {
		Type string             `json:"type"`
		Data models.StockUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &resp))
	require.Equal(t, "ticker", resp.Type, "got %s", msg)
	return resp.Data
}

func TestEndToEnd_ViewerDrivesSimulation(t *testing.T) {
	e := startServer(t)

	assert.False(t, e.sim.Running(), "simulation must wait for a viewer")

	wsConn := connectWS(t, e.server.URL)
	require.Eventually(t, e.sim.Running, time.Second, time.Millisecond)

	subMsg := `{"action": "subscribe", "payload": {"symbols": ["aapl"]}, "id": "t1"}`
	require.NoError(t, wsConn.WriteMessage(websocket.TextMessage, []byte(subMsg)))

	_, msg, err := wsConn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "success")

	initial := readTicker(t, wsConn)
	assert.Equal(t, "AAPL", initial.Symbol)
	assert.Equal(t, 150.0, initial.Price)

	require.True(t, e.clock.Advance(simulation.Interval, time.Second))

	tick := readTicker(t, wsConn)
	assert.Equal(t, 157.5, tick.Price)
	assert.Equal(t, 7.5, tick.Change)
	assert.Equal(t, int64(1), tick.SeqID)

	require.NoError(t, wsConn.Close())
	require.Eventually(t, func() bool { return !e.sim.Running() }, 2*time.Second, 5*time.Millisecond,
		"last viewer leaving should stop the simulation")

	assert.False(t, e.clock.Advance(simulation.Interval, 50*time.Millisecond))
	assert.Equal(t, int64(1), e.store.Snapshot().SeqID)
}

func TestEndToEnd_RedisReceivesSnapshots(t *testing.T) {
	e := startServer(t)

	// seed snapshot is exported on subscribe
	require.Eventually(t, func() bool {
		v, err := e.mr.Get("stock:AAPL")
		return err == nil && strings.Contains(v, `"price":150`)
	}, time.Second, 5*time.Millisecond)

	wsConn := connectWS(t, e.server.URL)
	defer wsConn.Close()
	require.Eventually(t, e.sim.Running, time.Second, time.Millisecond)

	require.True(t, e.clock.Advance(simulation.Interval, time.Second))

	require.Eventually(t, func() bool {
		v, err := e.mr.Get("stock:Dow Jones")
		return err == nil && strings.Contains(v, `"price":63`)
	}, time.Second, 5*time.Millisecond)

	var update models.StockUpdate
	v, err := e.mr.Get("stock:AAPL")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(v), &update))
	assert.Equal(t, 157.5, update.Price)
	assert.True(t, e.mr.TTL("stock:AAPL") > 0, "keys should expire")
}

func TestEndToEnd_SnapshotAction(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	defer wsConn.Close()

	require.NoError(t, wsConn.WriteMessage(websocket.TextMessage, []byte(`{"action":"snapshot","id":"s1"}`)))

	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := wsConn.ReadMessage()
	require.NoError(t, err)

	var resp struct {
		Type string          `json:"type"`
		ID   string          `json:"id"`
		Data models.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &resp))
	assert.Equal(t, "snapshot", resp.Type)
	assert.Equal(t, "s1", resp.ID)
	assert.Len(t, resp.Data.Stocks, 7)
}

func TestEndToEnd_InvalidJSON(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	defer wsConn.Close()

	wsConn.WriteMessage(websocket.TextMessage, []byte(`{ "action": "subsc`))

	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, _ := wsConn.ReadMessage()
	if !strings.Contains(string(msg), "Invalid JSON") {
		t.Errorf("Expected error message for bad JSON, got: %s", msg)
	}
}

func TestEndToEnd_MaxMessageSize(t *testing.T) {
	e := startServer(t)
	wsConn := connectWS(t, e.server.URL)
	defer wsConn.Close()

	hugePayload := strings.Repeat("a", 513*1024)
	hugeMsg := fmt.Sprintf(`{"action":"subscribe", "payload": {"symbols": ["%s"]}}`, hugePayload)

	err := wsConn.WriteMessage(websocket.TextMessage, []byte(hugeMsg))
	// Depending on timing, write might succeed, but Read should fail (Disconnect)
	if err == nil {
		wsConn.SetReadDeadline(time.Now().Add(1 * time.Second))
		_, _, err := wsConn.ReadMessage()
		if err == nil {
			t.Error("Server should have closed connection for huge message, but it stayed open")
		}
	}
}

func TestHealthz(t *testing.T) {
	e := startServer(t)

	resp, err := http.Get(e.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}
