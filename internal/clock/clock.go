// Package clock provides the accelerated, pausable in-world time source shared
// by every planner in the process.
package clock

import (
	"errors"
	"math"
	"sync"
	"time"
)

const (
	// MaxScale bounds the user-facing time scale slider.
	MaxScale = 10.0
	// DefaultMultiplier maps one real second to twenty in-world seconds.
	DefaultMultiplier = 20.0
)

// ErrClockStalled reports that multiplier*scale is zero, so no real duration
// can ever cover a virtual one.
var ErrClockStalled = errors.New("clock: virtual time is stalled")

// DefaultEpoch is the in-world start time used when none is configured.
var DefaultEpoch = time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC)

// State is the persisted form of the clock.
type State struct {
	Now        time.Time `json:"now"`
	Multiplier float64   `json:"multiplier"`
	Scale      float64   `json:"scale"`
	Paused     bool      `json:"paused"`
}

// VirtualClock tracks in-world time decoupled from the wall clock. It is safe
// for concurrent use: one writer advances it per frame while planners read it.
type VirtualClock struct {
	mu         sync.RWMutex
	now        time.Time
	multiplier float64
	scale      float64
	paused     bool
}

// New constructs a running clock starting at start.
func New(start time.Time, multiplier, scale float64) *VirtualClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	c := &VirtualClock{now: start}
	c.multiplier = clampMultiplier(multiplier)
	c.scale = clampScale(scale)
	return c
}

// Advance moves in-world time forward by dt real seconds.
func (c *VirtualClock) Advance(realDeltaSeconds float64) {
	if c == nil || realDeltaSeconds <= 0 || math.IsNaN(realDeltaSeconds) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	virtual := realDeltaSeconds * c.multiplier * c.scale
	if virtual <= 0 {
		return
	}
	c.now = c.now.Add(time.Duration(virtual * float64(time.Second)))
}

// Now returns the current in-world timestamp.
func (c *VirtualClock) Now() time.Time {
	if c == nil {
		return DefaultEpoch
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Hour returns the in-world hour of day.
func (c *VirtualClock) Hour() int {
	return c.Now().Hour()
}

// SetMultiplier updates the acceleration factor. Negative values clamp to 0.
func (c *VirtualClock) SetMultiplier(v float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.multiplier = clampMultiplier(v)
	c.mu.Unlock()
}

// Multiplier reports the acceleration factor.
func (c *VirtualClock) Multiplier() float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multiplier
}

// SetScale updates the time scale, clamped to [0, MaxScale].
func (c *VirtualClock) SetScale(v float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scale = clampScale(v)
	c.mu.Unlock()
}

// Scale reports the current time scale.
func (c *VirtualClock) Scale() float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scale
}

// Pause makes Advance a no-op until Resume.
func (c *VirtualClock) Pause() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume lets Advance move the clock again.
func (c *VirtualClock) Resume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether Advance is currently ignored.
func (c *VirtualClock) Paused() bool {
	if c == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// SetNow replaces the in-world timestamp. Only used when loading a save.
func (c *VirtualClock) SetNow(t time.Time) {
	if c == nil || t.IsZero() {
		return
	}
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// RealDurationFor converts virtual minutes to the real seconds needed to
// cover them at the current rate.
func (c *VirtualClock) RealDurationFor(virtualMinutes float64) (float64, error) {
	return c.realSeconds(virtualMinutes * 60)
}

// RealDurationForHours converts virtual hours to real seconds.
func (c *VirtualClock) RealDurationForHours(virtualHours float64) (float64, error) {
	return c.realSeconds(virtualHours * 3600)
}

func (c *VirtualClock) realSeconds(virtualSeconds float64) (float64, error) {
	if c == nil {
		return 0, ErrClockStalled
	}
	c.mu.RLock()
	rate := c.multiplier * c.scale
	c.mu.RUnlock()
	if rate <= 0 {
		return 0, ErrClockStalled
	}
	return virtualSeconds / rate, nil
}

// State captures the clock for persistence.
func (c *VirtualClock) State() State {
	if c == nil {
		return State{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{Now: c.now, Multiplier: c.multiplier, Scale: c.scale, Paused: c.paused}
}

// Restore re-initialises the clock from a persisted state.
func (c *VirtualClock) Restore(s State) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !s.Now.IsZero() {
		c.now = s.Now
	}
	c.multiplier = clampMultiplier(s.Multiplier)
	c.scale = clampScale(s.Scale)
	c.paused = s.Paused
}

func clampMultiplier(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clampScale(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > MaxScale {
		return MaxScale
	}
	return v
}
