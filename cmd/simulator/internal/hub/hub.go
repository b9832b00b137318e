// Package hub tracks connected viewers and their symbol subscriptions, and
// owns the simulation lifecycle: the first viewer starts it, the last one to
// leave stops it.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/protocol"
	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Lifecycle is started when viewers appear and stopped when they are all gone.
type Lifecycle interface {
	Start(ctx context.Context)
	Stop()
}

// PriceSource is the read side of the price store.
type PriceSource interface {
	Snapshot() models.Snapshot
	Subscribe(fn func(models.Snapshot)) (unsubscribe func())
}

type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool
	viewers     map[ClientInterface]bool

	source      PriceSource
	lifecycle   Lifecycle
	ctx         context.Context
	logger      *zap.Logger
	unsubscribe func()

	mu sync.RWMutex

	// lifeMu orders Start/Stop calls; Broadcast never takes it, so Stop can
	// wait for an in-flight tick without deadlocking.
	lifeMu sync.Mutex
}

// NewHub subscribes to source. lifecycle may be nil when the simulation runs
// independently of viewers.
func NewHub(ctx context.Context, source PriceSource, lifecycle Lifecycle, logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		viewers:     make(map[ClientInterface]bool),
		source:      source,
		lifecycle:   lifecycle,
		ctx:         ctx,
		logger:      logger,
	}

	h.unsubscribe = source.Subscribe(h.Broadcast)

	return h
}

// Register marks client as a viewer.
func (h *Hub) Register(client ClientInterface) {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	h.mu.Lock()
	if h.viewers[client] {
		h.mu.Unlock()
		return
	}
	h.viewers[client] = true
	first := len(h.viewers) == 1
	h.mu.Unlock()

	h.logger.Info("Viewer connected", zap.String("client", client.ID()))
	if first && h.lifecycle != nil {
		h.lifecycle.Start(h.ctx)
	}
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	case protocol.ActionSnapshot:
		h.handleSnapshot(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest) {
	snap := h.source.Snapshot()
	known := make(map[string]models.Stock, len(snap.Stocks))
	for _, s := range snap.Stocks {
		known[strings.ToUpper(s.Symbol)] = s
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var valid []string
	for _, s := range req.Payload.Symbols {
		stock, ok := known[strings.ToUpper(s)]
		if !ok {
			continue
		}
		// Idempotency: Ignore if already subscribed
		if h.clientSubs[client] != nil && h.clientSubs[client][stock.Symbol] {
			continue
		}
		valid = append(valid, stock.Symbol)
	}

	if len(valid) == 0 {
		h.sendError(client, req.ID, "No valid/new symbols provided")
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	for _, sym := range valid {
		h.clientSubs[client][sym] = true
		if h.subscribers[sym] == nil {
			h.subscribers[sym] = make(map[ClientInterface]bool)
		}
		h.subscribers[sym][client] = true
	}

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %v", valid))

	// current values, so the viewer does not wait a full tick
	subscribed := make(map[string]bool, len(valid))
	for _, sym := range valid {
		subscribed[sym] = true
	}
	for _, u := range snap.Updates() {
		if !subscribed[u.Symbol] {
			continue
		}
		if msg, err := tickerMessage(u); err == nil {
			client.SendBytes(msg)
		}
	}
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		for _, s := range req.Payload.Symbols {
			for sym := range subs {
				if strings.EqualFold(sym, s) {
					delete(subs, sym)
					h.removeSubscriber(sym, client)
					removed = append(removed, sym)
				}
			}
		}
	}

	if len(removed) > 0 {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Symbols))
	}
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.removeSubscriber(sym, client)
		}
		// Clear the map but keep the client registered
		h.clientSubs[client] = make(map[string]bool)
	}
	h.sendAck(client, req.ID, "success", "Unsubscribed from all symbols")
}

func (h *Hub) handleSnapshot(client ClientInterface, req protocol.WSRequest) {
	client.SendJSON(protocol.WSResponse{
		Type:   protocol.TypeSnapshot,
		ID:     req.ID,
		Status: "success",
		Data:   h.source.Snapshot(),
	})
}

// Unregister drops the client's subscriptions and closes it. When it was the
// last viewer the lifecycle is stopped.
func (h *Hub) Unregister(client ClientInterface) {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	h.mu.Lock()
	if !h.viewers[client] {
		h.mu.Unlock()
		return
	}
	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.removeSubscriber(sym, client)
		}
		delete(h.clientSubs, client)
	}
	delete(h.viewers, client)
	last := len(h.viewers) == 0
	client.Close()
	h.mu.Unlock()

	h.logger.Info("Viewer disconnected", zap.String("client", client.ID()))
	if last && h.lifecycle != nil {
		h.lifecycle.Stop()
	}
}

// Broadcast sends every subscribed viewer a ticker message for each of its symbols.
func (h *Hub) Broadcast(snap models.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, u := range snap.Updates() {
		clients, ok := h.subscribers[u.Symbol]
		if !ok || len(clients) == 0 {
			continue
		}
		msg, err := tickerMessage(u)
		if err != nil {
			h.logger.Error("JSON Marshal Error", zap.Error(err))
			continue
		}
		for client := range clients {
			client.SendBytes(msg)
		}
	}
}

// ViewerCount reports how many clients are registered.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Close detaches the hub from the price source.
func (h *Hub) Close() {
	h.unsubscribe()
}

func (h *Hub) removeSubscriber(symbol string, client ClientInterface) {
	delete(h.subscribers[symbol], client)
	if len(h.subscribers[symbol]) == 0 {
		delete(h.subscribers, symbol)
	}
}

func tickerMessage(u models.StockUpdate) ([]byte, error) {
	return json.Marshal(protocol.WSResponse{Type: protocol.TypeTicker, Data: u})
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}
