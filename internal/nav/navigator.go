package nav

import (
	"sync"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

const (
	// NodeReachedEpsilon is how close the body must get to an intermediate
	// path node before moving on to the next one.
	NodeReachedEpsilon = 0.05
	// PathStallThresholdTicks is the number of advances without progress
	// towards the current node before the path is recalculated.
	PathStallThresholdTicks = 6
	// PathRecalcCooldownTicks delays the next attempt after a failed plan.
	PathRecalcCooldownTicks = 8
	// SurfaceTolerance is how many cells away the nearest walkable cell may be
	// for the body to still count as on the navigable surface.
	SurfaceTolerance = 1

	stallProgressEpsilon = 1e-3
)

// GridNavigator moves one body along A* paths planned on a shared Grid. It
// satisfies the planner's Navigator capability.
type GridNavigator struct {
	mu       sync.Mutex
	grid     *Grid
	body     actor.Body
	blockers func() []actor.Vec3

	path         []actor.Vec3
	index        int
	goal         actor.Vec3
	target       actor.Vec3
	hasTarget    bool
	lastDistance float64
	stallTicks   int
	ticks        uint64
	recalcAt     uint64
}

// NavigatorOption customises a GridNavigator.
type NavigatorOption func(*GridNavigator)

// WithBlockers supplies positions whose cells are treated as blocked when
// planning, such as closed doors.
func WithBlockers(fn func() []actor.Vec3) NavigatorOption {
	return func(n *GridNavigator) {
		n.blockers = fn
	}
}

func NewGridNavigator(grid *Grid, body actor.Body, opts ...NavigatorOption) *GridNavigator {
	n := &GridNavigator{grid: grid, body: body}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetDestination plans a path to pos and reports whether one exists.
func (n *GridNavigator) SetDestination(pos actor.Vec3) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = pos
	n.hasTarget = true
	return n.plan()
}

func (n *GridNavigator) plan() bool {
	if n.grid == nil || n.body == nil {
		return false
	}
	var blockers []actor.Vec3
	if n.blockers != nil {
		blockers = n.blockers()
	}
	path, goal, ok := n.grid.FindPath(n.body.Position(), n.target, blockers)
	n.index = 0
	n.lastDistance = 0
	n.stallTicks = 0
	if !ok {
		n.path = nil
		n.goal = actor.Vec3{}
		n.recalcAt = n.ticks + PathRecalcCooldownTicks
		return false
	}
	n.path = path
	n.goal = goal
	n.recalcAt = n.ticks + 1
	return true
}

// Stop clears the active path and destination.
func (n *GridNavigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clear()
	n.hasTarget = false
}

func (n *GridNavigator) clear() {
	n.path = nil
	n.index = 0
	n.lastDistance = 0
	n.stallTicks = 0
}

// Remaining returns the travel distance left along the active path.
func (n *GridNavigator) Remaining() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.remaining()
}

func (n *GridNavigator) remaining() float64 {
	if n.body == nil || n.index >= len(n.path) {
		return 0
	}
	return PathTravelCost(n.body.Position(), n.path[n.index:])
}

// HasArrived reports whether the remaining path is within stop.
func (n *GridNavigator) HasArrived(stop float64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.remaining() <= stop
}

// IsOnNavigableSurface reports whether the body stands on, or right next to,
// a walkable cell.
func (n *GridNavigator) IsOnNavigableSurface() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.grid == nil || n.body == nil {
		return false
	}
	return n.grid.NearSurface(n.body.Position(), SurfaceTolerance)
}

// Goal returns the goal of the active plan, which differs from the requested
// destination when an alternative cell had to be used.
func (n *GridNavigator) Goal() actor.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goal
}

// Path returns a copy of the nodes still to visit.
func (n *GridNavigator) Path() []actor.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.index >= len(n.path) {
		return nil
	}
	return append([]actor.Vec3(nil), n.path[n.index:]...)
}

// Advance moves the body along the path by speed*dt, consuming nodes as they
// are reached. Progress is tracked per node; a body that stops closing in on
// its node for PathStallThresholdTicks advances triggers a re-plan.
func (n *GridNavigator) Advance(dt float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ticks++
	if n.body == nil || dt <= 0 {
		return
	}
	if len(n.path) == 0 {
		if n.hasTarget && n.ticks >= n.recalcAt && n.body.Position().PlanarDist(n.target) > NodeReachedEpsilon {
			n.plan()
		}
		return
	}

	budget := n.body.Speed() * dt
	pos := n.body.Position()
	for n.index < len(n.path) {
		node := n.path[n.index]
		dist := pos.PlanarDist(node)
		if dist <= NodeReachedEpsilon {
			pos = node
			n.index++
			n.lastDistance = 0
			n.stallTicks = 0
			continue
		}
		if budget <= 0 {
			break
		}
		if dist <= budget {
			pos = node
			budget -= dist
			n.index++
			n.lastDistance = 0
			n.stallTicks = 0
			continue
		}
		step := budget / dist
		pos = actor.Vec3{
			X: pos.X + (node.X-pos.X)*step,
			Y: pos.Y,
			Z: pos.Z + (node.Z-pos.Z)*step,
		}
		budget = 0
	}
	n.body.SetPosition(pos)

	if n.index >= len(n.path) {
		n.clear()
		n.hasTarget = false
		return
	}
	n.trackStall(pos.PlanarDist(n.path[n.index]))
}

func (n *GridNavigator) trackStall(dist float64) {
	if n.lastDistance == 0 || dist+stallProgressEpsilon < n.lastDistance {
		n.lastDistance = dist
		n.stallTicks = 0
		return
	}
	n.stallTicks++
	if n.stallTicks >= PathStallThresholdTicks && n.ticks >= n.recalcAt {
		n.plan()
	}
}
