package nav

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

// wallGrid is 10x10 with a wall along x=4..5 leaving a gap at z>=8 unless
// sealed.
func wallGrid(sealed bool) *Grid {
	maxZ := 8.0
	if sealed {
		maxZ = 10
	}
	return NewGrid(GridConfig{
		Width:       10,
		Depth:       10,
		CellSize:    1,
		AgentRadius: 0.35,
		Obstacles:   []Obstacle{{MinX: 4, MinZ: 0, MaxX: 5, MaxZ: maxZ}},
	})
}

func TestFindPathRoutesAroundWall(t *testing.T) {
	grid := wallGrid(false)
	start := actor.Vec3{X: 1.5, Z: 1.5}
	target := actor.Vec3{X: 8.5, Y: 4, Z: 1.5}

	path, goal, ok := grid.FindPath(start, target, nil)
	require.True(t, ok)
	require.NotEmpty(t, path)
	require.Equal(t, 8.5, goal.X)

	last := path[len(path)-1]
	require.InDelta(t, 8.5, last.X, 1e-9)
	require.InDelta(t, 1.5, last.Z, 1e-9)
	require.Equal(t, start.Y, last.Y, "paths stay at the start height")

	crossedGap := false
	for _, node := range path {
		require.True(t, grid.Walkable(node), "node %+v must be walkable", node)
		if node.X > 4 && node.X < 5 {
			require.Greater(t, node.Z, 8.0)
			crossedGap = true
		}
	}
	require.True(t, crossedGap)
	require.Greater(t, PathTravelCost(start, path), 7.0)
}

func TestFindPathFailsWhenSealed(t *testing.T) {
	grid := wallGrid(true)
	_, _, ok := grid.FindPath(actor.Vec3{X: 1.5, Z: 1.5}, actor.Vec3{X: 8.5, Z: 1.5}, nil)
	require.False(t, ok)
}

func TestFindPathUsesAlternativeGoalWhenTargetBlocked(t *testing.T) {
	grid := wallGrid(false)
	target := actor.Vec3{X: 4.5, Z: 3.5}
	require.False(t, grid.Walkable(target))

	path, goal, ok := grid.FindPath(actor.Vec3{X: 1.5, Z: 3.5}, target, nil)
	require.True(t, ok)
	require.NotEmpty(t, path)
	require.True(t, grid.Walkable(goal))
	require.InDelta(t, 1.0, goal.PlanarDist(target), 1e-9)
}

func TestFindPathTreatsBlockersAsWalls(t *testing.T) {
	grid := wallGrid(false)
	// Plug the gap with blockers: the far side becomes unreachable.
	blockers := []actor.Vec3{{X: 4.5, Z: 8.5}, {X: 4.5, Z: 9.5}}
	_, _, ok := grid.FindPath(actor.Vec3{X: 1.5, Z: 1.5}, actor.Vec3{X: 8.5, Z: 1.5}, blockers)
	require.False(t, ok)
}

func TestNavigatorDrivesBodyToTarget(t *testing.T) {
	grid := wallGrid(false)
	body := actor.NewNPC(actor.NPCConfig{ID: "ada", Position: actor.Vec3{X: 1.5, Z: 1.5}, Speed: 3})
	navigator := NewGridNavigator(grid, body)
	target := actor.Vec3{X: 8.5, Z: 1.5}

	require.True(t, navigator.IsOnNavigableSurface())
	require.True(t, navigator.SetDestination(target))
	require.Greater(t, navigator.Remaining(), 7.0)
	require.False(t, navigator.HasArrived(0.5))

	for i := 0; i < 500 && !navigator.HasArrived(0); i++ {
		navigator.Advance(0.1)
	}
	require.True(t, navigator.HasArrived(0))
	require.InDelta(t, 0, body.Position().PlanarDist(target), 1e-6)
	require.Empty(t, navigator.Path())
}

func TestNavigatorRejectsUnreachableDestination(t *testing.T) {
	grid := wallGrid(true)
	body := actor.NewNPC(actor.NPCConfig{ID: "ada", Position: actor.Vec3{X: 1.5, Z: 1.5}})
	navigator := NewGridNavigator(grid, body)

	require.False(t, navigator.SetDestination(actor.Vec3{X: 8.5, Z: 1.5}))
	require.Zero(t, navigator.Remaining())
}

func TestNavigatorSurfaceCheck(t *testing.T) {
	grid := NewGrid(GridConfig{
		Width: 10, Depth: 10, CellSize: 1, AgentRadius: 0.35,
		Obstacles: []Obstacle{{MinX: 0, MinZ: 0, MaxX: 6, MaxZ: 6}},
	})

	buried := NewGridNavigator(grid, actor.NewNPC(actor.NPCConfig{Position: actor.Vec3{X: 2.5, Z: 2.5}}))
	require.False(t, buried.IsOnNavigableSurface())

	outside := NewGridNavigator(grid, actor.NewNPC(actor.NPCConfig{Position: actor.Vec3{X: -3, Z: 2}}))
	require.False(t, outside.IsOnNavigableSurface())

	edge := NewGridNavigator(grid, actor.NewNPC(actor.NPCConfig{Position: actor.Vec3{X: 5.5, Z: 2.5}}))
	require.True(t, edge.IsOnNavigableSurface())
}

func TestNavigatorStopClearsPath(t *testing.T) {
	grid := wallGrid(false)
	body := actor.NewNPC(actor.NPCConfig{Position: actor.Vec3{X: 1.5, Z: 1.5}})
	navigator := NewGridNavigator(grid, body)
	require.True(t, navigator.SetDestination(actor.Vec3{X: 2.5, Z: 5.5}))
	navigator.Stop()
	navigator.Advance(1)
	require.Equal(t, actor.Vec3{X: 1.5, Z: 1.5}, body.Position())
}

func TestStuckRecoveryAlternatesSideSteps(t *testing.T) {
	r := NewStuckRecovery(StuckConfig{Epsilon: 0.01, StallTicks: 3, SideStep: 1.5, MaxAttempts: 3})
	pos := actor.Vec3{}
	dest := actor.Vec3{X: 10}

	observeUntilStuck := func() actor.Vec3 {
		t.Helper()
		for i := 0; i < 10; i++ {
			if wp, stuck := r.Observe(pos, dest); stuck {
				return wp
			}
		}
		t.Fatalf("expected a side-step")
		return actor.Vec3{}
	}

	first := observeUntilStuck()
	require.InDelta(t, 1.5, first.Z, 1e-9)
	require.InDelta(t, 0, first.X, 1e-9)

	second := observeUntilStuck()
	require.InDelta(t, -1.5, second.Z, 1e-9)

	third := observeUntilStuck()
	require.InDelta(t, 3.0, third.Z, 1e-9)
	require.Equal(t, 3, r.Attempts())
	require.True(t, r.Exhausted())

	for i := 0; i < 10; i++ {
		_, stuck := r.Observe(pos, dest)
		require.False(t, stuck)
	}
	// Out of side-steps, the stall is reported instead.
	require.True(t, r.Stalled())
}

func TestStuckRecoveryResetsOnProgress(t *testing.T) {
	r := NewStuckRecovery(StuckConfig{Epsilon: 0.01, StallTicks: 3})
	dest := actor.Vec3{X: 10}
	r.Observe(actor.Vec3{}, dest)
	r.Observe(actor.Vec3{}, dest)
	r.Observe(actor.Vec3{}, dest)
	// Moving clears the stall counter.
	_, stuck := r.Observe(actor.Vec3{X: 1}, dest)
	require.False(t, stuck)
	_, stuck = r.Observe(actor.Vec3{X: 1}, dest)
	require.False(t, stuck)
	require.False(t, r.Stalled())
	require.Zero(t, r.Attempts())

	r.SetAttempts(2)
	r.Reset()
	require.Zero(t, r.Attempts())
}
