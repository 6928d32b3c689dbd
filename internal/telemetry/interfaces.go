// Package telemetry holds the narrow logging and metrics surfaces the
// simulation depends on.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
)

// Logger exposes the logging capabilities required by simulation components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a structured logger to the Logger interface. Messages are
// logged at info level.
func WrapLogger(logger *slog.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *slog.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Metrics exposes the counters and gauges the simulation updates.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Metric keys.
const (
	MetricTasksCompleted   = "ai.tasks_completed"
	MetricTasksFailed      = "ai.tasks_failed"
	MetricTasksSkipped     = "ai.tasks_skipped"
	MetricTicks            = "sim.ticks"
	MetricTickOverruns     = "sim.tick_budget_overruns"
	MetricPlannersActive   = "sim.planners_active"
	MetricObservers        = "observer.clients"
	MetricCommandOccupancy = "sim.command_buffer_occupancy"
	MetricCommandOverflow  = "sim.command_buffer_overflow_total"
	MetricCommandsApplied  = "sim.commands_applied"
	MetricCommandsRejected = "sim.commands_rejected"
)

// Counters is an in-memory Metrics implementation.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Get returns the current value for key.
func (c *Counters) Get(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// Snapshot copies every value.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.values)
}

// LogTo writes every value through logger in key order.
func (c *Counters) LogTo(logger Logger) {
	if logger == nil {
		return
	}
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Printf("%s=%d", k, snapshot[k])
	}
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards every update.
func NopMetrics() Metrics {
	return nopMetrics{}
}
