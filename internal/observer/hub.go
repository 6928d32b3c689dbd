// Package observer streams world frames to websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	loggingobserver "github.com/Yuliya3k/spacegame-sub000/logging/observer"
)

const defaultWriteWait = 10 * time.Second

type Config struct {
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Logger    telemetry.Logger
	WriteWait time.Duration
	// Commands receives control commands sent by clients. Nil makes the
	// hub read-only.
	Commands func(sim.Command) error
}

// Hub owns the websocket subscribers and the latest encoded frame.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	last        []byte
	lastTick    uint64
	nextID      atomic.Uint64

	upgrader  websocket.Upgrader
	pub       logging.Publisher
	metrics   telemetry.Metrics
	logger    telemetry.Logger
	writeWait time.Duration
	commands  func(sim.Command) error
}

type subscriber struct {
	conn   *websocket.Conn
	remote string
	mu     sync.Mutex
}

func (s *subscriber) write(data []byte, wait time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

type clientMessage struct {
	Type    string      `json:"type"`
	Command sim.Command `json:"command"`
}

type commandReply struct {
	Type    string          `json:"type"`
	Command sim.CommandType `json:"command"`
	Target  string          `json:"target,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

type stateMessage struct {
	Type       string    `json:"type"`
	Frame      sim.Frame `json:"frame"`
	ServerTime int64     `json:"serverTime"`
}

func NewHub(cfg Config) *Hub {
	h := &Hub{
		subscribers: make(map[string]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		pub:       cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		writeWait: cfg.WriteWait,
		commands:  cfg.Commands,
	}
	if h.pub == nil {
		h.pub = logging.NopPublisher()
	}
	if h.metrics == nil {
		h.metrics = telemetry.NopMetrics()
	}
	if h.logger == nil {
		h.logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if h.writeWait <= 0 {
		h.writeWait = defaultWriteWait
	}
	return h
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// the client goes away. The latest frame is sent straight after the upgrade.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[observer] upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	id, sub, last := h.subscribe(r.Context(), conn, r.RemoteAddr)
	if last != nil {
		if err := sub.write(last, h.writeWait); err != nil {
			h.disconnect(r.Context(), id, "initial write failed")
			return
		}
	}
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.disconnect(r.Context(), id, "closed")
			return
		}
		h.handleMessage(id, sub, payload)
	}
}

func (h *Hub) handleMessage(id string, sub *subscriber, payload []byte) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Printf("[observer] discarding malformed message from %s: %v", id, err)
		return
	}
	if msg.Type != "command" {
		return
	}
	reply := commandReply{Type: "commandAck", Command: msg.Command.Type, Target: msg.Command.Target}
	switch {
	case h.commands == nil:
		reply.Type, reply.Reason = "commandReject", "read-only observer"
	default:
		if err := h.commands(msg.Command); err != nil {
			reply.Type, reply.Reason = "commandReject", err.Error()
		}
	}
	data, err := json.Marshal(reply)
	if err != nil {
		h.logger.Printf("[observer] failed to marshal command reply: %v", err)
		return
	}
	if err := sub.write(data, h.writeWait); err != nil {
		h.logger.Printf("[observer] failed to reply to %s: %v", id, err)
	}
}

func (h *Hub) subscribe(ctx context.Context, conn *websocket.Conn, remote string) (string, *subscriber, []byte) {
	id := fmt.Sprintf("observer-%d", h.nextID.Add(1))
	sub := &subscriber{conn: conn, remote: remote}

	h.mu.Lock()
	h.subscribers[id] = sub
	clients := len(h.subscribers)
	last := h.last
	tick := h.lastTick
	h.mu.Unlock()

	h.metrics.Store(telemetry.MetricObservers, uint64(clients))
	loggingobserver.ClientConnected(ctx, h.pub, tick, observerRef(id), loggingobserver.ClientPayload{
		Remote:  remote,
		Clients: clients,
	}, nil)
	return id, sub, last
}

func (h *Hub) disconnect(ctx context.Context, id, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	clients := len(h.subscribers)
	tick := h.lastTick
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.conn.Close()

	h.metrics.Store(telemetry.MetricObservers, uint64(clients))
	loggingobserver.ClientDisconnected(ctx, h.pub, tick, observerRef(id), loggingobserver.ClientPayload{
		Remote:  sub.remote,
		Reason:  reason,
		Clients: clients,
	}, nil)
}

// Broadcast sends frame to every subscriber. Subscribers that fail the
// write are dropped.
func (h *Hub) Broadcast(frame sim.Frame) {
	data, err := json.Marshal(stateMessage{Type: "state", Frame: frame, ServerTime: time.Now().UnixMilli()})
	if err != nil {
		h.logger.Printf("[observer] failed to marshal state message: %v", err)
		return
	}

	h.mu.Lock()
	h.last = data
	h.lastTick = frame.Tick
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(data, h.writeWait); err != nil {
			h.logger.Printf("[observer] failed to send update to %s: %v", id, err)
			h.disconnect(context.Background(), id, "write failed")
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.disconnect(context.Background(), id, "shutdown")
	}
}

func observerRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindObserver}
}
