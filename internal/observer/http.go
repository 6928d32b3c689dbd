package observer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Yuliya3k/spacegame-sub000/internal/observability"
	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
)

type MuxConfig struct {
	// Frame returns the current world frame. /state answers 503 when nil.
	Frame func() sim.Frame
	// Metrics feeds /diagnostics.
	Metrics       func() map[string]uint64
	TickRate      int
	Observability observability.Config
}

// NewMux routes /ws to the hub, /state to a JSON snapshot of the world,
// /diagnostics to counters and /health to a plain liveness probe.
func NewMux(hub *Hub, cfg MuxConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Frame == nil {
			http.Error(w, "no world", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, hub, cfg.Frame())
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			TickRate   int               `json:"tickRate"`
			Observers  int               `json:"observers"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Observers:  hub.Clients(),
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics()
		}
		writeJSON(w, hub, payload)
	})
	observability.Register(mux, cfg.Observability)
	return mux
}

func writeJSON(w http.ResponseWriter, hub *Hub, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		hub.logger.Printf("[observer] failed to encode response: %v", err)
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
