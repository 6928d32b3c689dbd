package nav

import (
	"math"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

// StuckConfig tunes StuckRecovery.
type StuckConfig struct {
	// Epsilon is the per-observation displacement below which the actor
	// counts as not moving.
	Epsilon float64 `json:"epsilon"`
	// StallTicks is the number of consecutive stalled observations that
	// triggers a side-step.
	StallTicks int `json:"stallTicks"`
	// SideStep is the base lateral offset of a corrective waypoint.
	SideStep float64 `json:"sideStep"`
	// MaxAttempts bounds the side-steps per destination. Zero means no limit.
	MaxAttempts int `json:"maxAttempts"`
}

// DefaultStuckConfig returns the tuning used by routines that enable
// recovery without overriding it.
func DefaultStuckConfig() StuckConfig {
	return StuckConfig{
		Epsilon:     0.02,
		StallTicks:  10,
		SideStep:    1.5,
		MaxAttempts: 6,
	}
}

// StuckRecovery watches actor displacement and proposes corrective waypoints
// when movement stalls. Side-steps alternate left and right of the heading
// and grow every second attempt.
type StuckRecovery struct {
	cfg      StuckConfig
	last     actor.Vec3
	hasLast  bool
	stalled  int
	attempts int
}

func NewStuckRecovery(cfg StuckConfig) *StuckRecovery {
	defaults := DefaultStuckConfig()
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = defaults.Epsilon
	}
	if cfg.StallTicks <= 0 {
		cfg.StallTicks = defaults.StallTicks
	}
	if cfg.SideStep <= 0 {
		cfg.SideStep = defaults.SideStep
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	return &StuckRecovery{cfg: cfg}
}

// Config returns the effective tuning.
func (r *StuckRecovery) Config() StuckConfig {
	return r.cfg
}

// Reset forgets the observation history and the attempt count.
func (r *StuckRecovery) Reset() {
	r.hasLast = false
	r.stalled = 0
	r.attempts = 0
}

// Attempts reports how many side-steps were issued since the last Reset.
func (r *StuckRecovery) Attempts() int {
	return r.attempts
}

// SetAttempts restores the attempt count from a snapshot.
func (r *StuckRecovery) SetAttempts(n int) {
	r.attempts = max(n, 0)
}

// Exhausted reports whether MaxAttempts side-steps have been used.
func (r *StuckRecovery) Exhausted() bool {
	return r.cfg.MaxAttempts > 0 && r.attempts >= r.cfg.MaxAttempts
}

// Stalled reports whether the actor has not moved for StallTicks
// observations without a side-step being issued.
func (r *StuckRecovery) Stalled() bool {
	return r.stalled >= r.cfg.StallTicks
}

// Observe records the actor position for this tick. When the actor has not
// moved more than Epsilon for StallTicks observations it returns a side-step
// waypoint perpendicular to the heading towards dest.
func (r *StuckRecovery) Observe(pos, dest actor.Vec3) (actor.Vec3, bool) {
	if !r.hasLast {
		r.last = pos
		r.hasLast = true
		return actor.Vec3{}, false
	}
	moved := pos.PlanarDist(r.last)
	r.last = pos
	if moved > r.cfg.Epsilon {
		r.stalled = 0
		return actor.Vec3{}, false
	}
	r.stalled++
	if r.stalled < r.cfg.StallTicks || r.Exhausted() {
		return actor.Vec3{}, false
	}
	r.stalled = 0
	r.attempts++
	return r.sideStep(pos, dest), true
}

func (r *StuckRecovery) sideStep(pos, dest actor.Vec3) actor.Vec3 {
	dx := dest.X - pos.X
	dz := dest.Z - pos.Z
	length := math.Hypot(dx, dz)
	if length < 1e-9 {
		dx, dz, length = 1, 0, 1
	}
	// Perpendicular to the heading on the ground plane.
	px, pz := -dz/length, dx/length
	side := 1.0
	if r.attempts%2 == 0 {
		side = -1
	}
	offset := r.cfg.SideStep * float64((r.attempts+1)/2)
	return actor.Vec3{
		X: pos.X + px*side*offset,
		Y: pos.Y,
		Z: pos.Z + pz*side*offset,
	}
}
