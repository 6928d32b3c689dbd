package observer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	loggingobserver "github.com/Yuliya3k/spacegame-sub000/logging/observer"
	"github.com/Yuliya3k/spacegame-sub000/logging/sinks"
)

func startServer(t *testing.T, hub *Hub, frame func() sim.Frame) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(hub, MuxConfig{Frame: frame}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) stateMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg stateMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	metrics := telemetry.NewCounters()
	hub := NewHub(Config{Metrics: metrics})
	srv := startServer(t, hub, nil)

	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, uint64(2), metrics.Get(telemetry.MetricObservers))

	hub.Broadcast(sim.Frame{Tick: 7, NPCs: []sim.NPCFrame{{ID: "ada", Task: "nap"}}})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readState(t, conn)
		require.Equal(t, "state", msg.Type)
		require.Equal(t, uint64(7), msg.Frame.Tick)
		require.Equal(t, "nap", msg.Frame.NPCs[0].Task)
	}
}

func TestNewSubscriberGetsLatestFrame(t *testing.T) {
	hub := NewHub(Config{})
	srv := startServer(t, hub, nil)
	hub.Broadcast(sim.Frame{Tick: 3})

	conn := dial(t, srv)
	msg := readState(t, conn)
	require.Equal(t, uint64(3), msg.Frame.Tick)
}

func TestDisconnectIsPublished(t *testing.T) {
	sink := sinks.NewMemorySink()
	hub := NewHub(Config{Publisher: sink})
	srv := startServer(t, hub, nil)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, sink.OfType(loggingobserver.EventClientConnected), 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(sink.OfType(loggingobserver.EventClientDisconnected)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCloseDropsSubscribers(t *testing.T) {
	hub := NewHub(Config{})
	srv := startServer(t, hub, nil)
	dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	require.Zero(t, hub.Clients())
}

func TestStateAndHealthEndpoints(t *testing.T) {
	hub := NewHub(Config{})
	srv := startServer(t, hub, func() sim.Frame {
		return sim.Frame{Tick: 11, Doors: []sim.DoorFrame{{ID: "hatch", Open: true}}}
	})

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var frame sim.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	require.Equal(t, uint64(11), frame.Tick)
	require.Equal(t, []sim.DoorFrame{{ID: "hatch", Open: true}}, frame.Doors)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	body, err := io.ReadAll(health.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestStateWithoutWorld(t *testing.T) {
	srv := startServer(t, NewHub(Config{}), nil)
	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDiagnosticsReportsCounters(t *testing.T) {
	metrics := telemetry.NewCounters()
	metrics.Add(telemetry.MetricTicks, 42)
	hub := NewHub(Config{})
	srv := httptest.NewServer(NewMux(hub, MuxConfig{Metrics: metrics.Snapshot, TickRate: 10}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/diagnostics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status    string            `json:"status"`
		TickRate  int               `json:"tickRate"`
		Observers int               `json:"observers"`
		Telemetry map[string]uint64 `json:"telemetry"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "ok", payload.Status)
	require.Equal(t, 10, payload.TickRate)
	require.Zero(t, payload.Observers)
	require.Equal(t, uint64(42), payload.Telemetry[telemetry.MetricTicks])
}

func readReply(t *testing.T, conn *websocket.Conn) commandReply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var reply commandReply
	require.NoError(t, json.Unmarshal(payload, &reply))
	return reply
}

func TestClientCommandsAreForwarded(t *testing.T) {
	got := make(chan sim.Command, 1)
	hub := NewHub(Config{Commands: func(cmd sim.Command) error {
		got <- cmd
		return nil
	}})
	conn := dial(t, startServer(t, hub, nil))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "command",
		"command": map[string]any{"type": "Freeze", "target": "ada"},
	}))
	reply := readReply(t, conn)
	require.Equal(t, "commandAck", reply.Type)
	require.Equal(t, sim.CommandFreeze, reply.Command)

	select {
	case cmd := <-got:
		require.Equal(t, sim.Command{Type: sim.CommandFreeze, Target: "ada"}, cmd)
	case <-time.After(time.Second):
		t.Fatal("command was not forwarded")
	}
}

func TestReadOnlyHubRejectsCommands(t *testing.T) {
	conn := dial(t, startServer(t, NewHub(Config{}), nil))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "command",
		"command": map[string]any{"type": "Pause"},
	}))
	reply := readReply(t, conn)
	require.Equal(t, "commandReject", reply.Type)
	require.Equal(t, "read-only observer", reply.Reason)
}
