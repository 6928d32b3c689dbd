// Package actor defines the capabilities a planner needs from the entity it
// drives, plus a reference NPC implementation used by the simulation.
package actor

import "math"

// Vec3 is a world-space position. Navigation runs on the X/Z ground plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Len returns the Euclidean length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the distance between two positions.
func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Len()
}

// PlanarDist ignores height.
func (v Vec3) PlanarDist(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// IsZero reports whether v is the uninitialised origin.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Actor is the entity a planner drives.
type Actor interface {
	ID() string
	// GetStat resolves a named stat. ok is false for unknown names.
	GetStat(name string) (value float64, ok bool)
	Position() Vec3
	// IsFrozen is polled by the planner at task boundaries.
	IsFrozen() bool
}

// StatWriter is implemented by actors whose stats tasks may change.
type StatWriter interface {
	AddStat(name string, delta float64) bool
}

// Pantry is implemented by actors that carry food.
type Pantry interface {
	// TakeFood removes one item and returns its nourishment; false when empty.
	TakeFood() (float64, bool)
}

// Body is the movable part of an actor, driven by a navigator.
type Body interface {
	Position() Vec3
	SetPosition(Vec3)
	Speed() float64
}
