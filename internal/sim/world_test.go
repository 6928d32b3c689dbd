package sim

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging/lifecycle"
	"github.com/Yuliya3k/spacegame-sub000/logging/simulation"
	"github.com/Yuliya3k/spacegame-sub000/logging/sinks"
	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

const testRoutines = `
routine "stroll" {
  task "wait" "pause" {
    minutes = 1
  }
  task "move_to" "cross" {
    target            = [8.5, 0, 2.5]
    stopping_distance = 0.5
  }
}

routine "doorman" {
  task "door" "open_gate" {
    door = "gate"
  }
}

routine "cook" {
  task "interact" "use_stove" {
    station = "stove"
  }
}
`

const tickDt = 0.1

type testWorld struct {
	*World
	sink    *sinks.MemorySink
	metrics *telemetry.Counters
}

func newTestWorld(t *testing.T) testWorld {
	t.Helper()
	lib := ai.NewLibrary()
	require.NoError(t, lib.Parse([]byte(testRoutines), "test.hcl"))
	sink := sinks.NewMemorySink()
	metrics := telemetry.NewCounters()
	w := New(Config{
		TickRate: 10,
		Workers:  2,
		Grid:     nav.GridConfig{Width: 10, Depth: 5},
	}, Deps{
		Clock:     clock.New(clock.DefaultEpoch, clock.DefaultMultiplier, 1),
		Library:   lib,
		Publisher: sink,
		Metrics:   metrics,
	})
	return testWorld{World: w, sink: sink, metrics: metrics}
}

func tickN(t *testing.T, w *World, n int) {
	t.Helper()
	for range n {
		require.NoError(t, w.Tick(context.Background(), tickDt))
	}
}

func tickUntilIdle(t *testing.T, w *World, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		require.NoError(t, w.Tick(context.Background(), tickDt))
		if w.ActivePlanners() == 0 {
			return i
		}
	}
	t.Fatalf("planners still active after %d ticks", limit)
	return limit
}

func TestSpawnNPCAttachesRoutine(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Position: actor.Vec3{X: 1.5, Z: 2.5}})
	require.NoError(t, err)

	planner, ok := w.Planner("ada")
	require.True(t, ok)
	require.Equal(t, "stroll", planner.Routine())
	require.Equal(t, 2, planner.Len())

	spawned := w.sink.OfType(lifecycle.EventNPCSpawned)
	require.Len(t, spawned, 1)
	require.Equal(t, "ada", spawned[0].Actor.ID)
}

func TestSpawnNPCUnknownRoutineIdles(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "juggling"})
	require.NoError(t, err)

	planner, _ := w.Planner("ada")
	require.Equal(t, ai.IdleRoutine, planner.Routine())
	require.True(t, planner.Loop())
}

func TestSpawnNPCRejectsDuplicateAndGeneratesIDs(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	_, err := w.SpawnNPC(ctx, NPCSpec{ID: "ada", Routine: "stroll"})
	require.NoError(t, err)
	_, err = w.SpawnNPC(ctx, NPCSpec{ID: "ada", Routine: "stroll"})
	require.ErrorIs(t, err, ErrDuplicateID)

	npc, err := w.SpawnNPC(ctx, NPCSpec{Routine: "stroll"})
	require.NoError(t, err)
	require.Len(t, npc.ID(), 36)
	require.Equal(t, []string{"ada", npc.ID()}, w.NPCIDs())
}

func TestTickAdvancesClockOncePerTick(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll"})
	require.NoError(t, err)
	_, err = w.SpawnNPC(context.Background(), NPCSpec{ID: "bo", Routine: "stroll"})
	require.NoError(t, err)

	start := w.Clock().Now()
	tickN(t, w.World, 5)

	require.Equal(t, 10*time.Second, w.Clock().Now().Sub(start))
	require.Equal(t, uint64(5), w.CurrentTick())
	require.Equal(t, uint64(5), w.metrics.Get(telemetry.MetricTicks))
	require.Equal(t, uint64(2), w.metrics.Get(telemetry.MetricPlannersActive))
}

func TestStrollRunsToCompletion(t *testing.T) {
	w := newTestWorld(t)
	npc, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Position: actor.Vec3{X: 1.5, Z: 2.5}})
	require.NoError(t, err)

	tickN(t, w.World, 29)
	planner, _ := w.Planner("ada")
	require.Equal(t, 0, planner.CurrentIndex())

	tickUntilIdle(t, w.World, 200)
	require.Equal(t, planner.Len(), planner.CurrentIndex())
	require.InDelta(t, 8.5, npc.Position().X, 0.5)
	require.Len(t, w.sink.OfType(simulation.EventPlannerFinished), 1)
	require.Equal(t, uint64(2), w.metrics.Get(telemetry.MetricTasksCompleted))
	require.Equal(t, uint64(0), w.metrics.Get(telemetry.MetricPlannersActive))
}

func TestDoorToggleOpensDoorAndUnblocksNavigation(t *testing.T) {
	w := newTestWorld(t)
	door, err := w.AddDoor(DoorSpec{ID: "gate", Position: actor.Vec3{X: 5.5, Z: 2.5}, OpenSeconds: 0.5})
	require.NoError(t, err)
	require.Equal(t, []actor.Vec3{door.Position()}, w.closedDoors())

	_, err = w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "doorman"})
	require.NoError(t, err)
	tickUntilIdle(t, w.World, 20)

	require.True(t, door.IsOpen())
	require.Equal(t, uint64(1), door.Toggles())
	require.Empty(t, w.closedDoors())
	require.Equal(t, []DoorFrame{{ID: "gate", Open: true}}, w.Frame().Doors)
}

func TestDoorAutoCloses(t *testing.T) {
	w := newTestWorld(t)
	door, err := w.AddDoor(DoorSpec{ID: "gate", AutoCloseSeconds: 1})
	require.NoError(t, err)

	door.Toggle()
	tickN(t, w.World, 5)
	require.True(t, door.IsOpen())

	tickN(t, w.World, 7)
	require.False(t, door.IsOpen())
}

func TestAddObjectsRejectDuplicates(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.AddDoor(DoorSpec{ID: "gate"})
	require.NoError(t, err)
	_, err = w.AddDoor(DoorSpec{ID: "gate"})
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = w.AddStation(StationSpec{ID: "stove"})
	require.NoError(t, err)
	_, err = w.AddStation(StationSpec{ID: "stove"})
	require.ErrorIs(t, err, ErrDuplicateID)

	_, ok := w.Door("missing")
	require.False(t, ok)
	_, ok = w.Interaction("missing")
	require.False(t, ok)
}

func TestStationInteractionAppliesEffects(t *testing.T) {
	w := newTestWorld(t)
	station, err := w.AddStation(StationSpec{
		ID:       "stove",
		Position: actor.Vec3{X: 2.5, Z: 2.5},
		Minutes:  1,
		Effects:  map[string]float64{"mood": 10},
	})
	require.NoError(t, err)
	npc, err := w.SpawnNPC(context.Background(), NPCSpec{
		ID:       "ada",
		Routine:  "cook",
		Position: actor.Vec3{X: 3.5, Z: 2.5},
		Stats:    map[string]float64{"mood": 50},
	})
	require.NoError(t, err)

	tickN(t, w.World, 10)
	require.Equal(t, 1, station.Busy())

	tickUntilIdle(t, w.World, 100)
	mood, _ := npc.GetStat("mood")
	require.Equal(t, 60.0, mood)
	require.Equal(t, uint64(1), station.Completed())
	require.Empty(t, w.sink.OfType(tasks.EventTaskFailed))
}

func TestRestoreMidInteractionAppliesEffectsOnce(t *testing.T) {
	w := newTestWorld(t)
	station, err := w.AddStation(StationSpec{
		ID:       "stove",
		Position: actor.Vec3{X: 2.5, Z: 2.5},
		Minutes:  1,
		Effects:  map[string]float64{"mood": 10},
	})
	require.NoError(t, err)
	npc, err := w.SpawnNPC(context.Background(), NPCSpec{
		ID:       "ada",
		Routine:  "cook",
		Position: actor.Vec3{X: 3.5, Z: 2.5},
		Stats:    map[string]float64{"mood": 50},
	})
	require.NoError(t, err)

	tickN(t, w.World, 10)
	require.Equal(t, 1, station.Busy())

	require.NoError(t, w.Restore(context.Background(), w.Save()))
	require.Zero(t, station.Busy())

	tickUntilIdle(t, w.World, 100)
	mood, _ := npc.GetStat("mood")
	require.Equal(t, 60.0, mood)
	require.Equal(t, uint64(1), station.Completed())
	require.Empty(t, w.sink.OfType(tasks.EventTaskFailed))
}

func TestStationCancelDropsActorJobs(t *testing.T) {
	station := newStation(StationSpec{ID: "stove", Minutes: 1, Effects: map[string]float64{"mood": 10}})
	ada := actor.NewNPC(actor.NPCConfig{ID: "ada", Stats: actor.StatSet{actor.StatMood: 50}})
	bob := actor.NewNPC(actor.NPCConfig{ID: "bob"})
	done := station.ExecuteInteraction(context.Background(), ada)
	station.ExecuteInteraction(context.Background(), bob)

	require.Equal(t, 1, station.cancel("ada"))
	require.Error(t, <-done)
	require.Equal(t, 1, station.Busy())

	station.advance(60)
	mood, _ := ada.GetStat("mood")
	require.Equal(t, 50.0, mood)
	require.Equal(t, uint64(1), station.Completed())
}

func TestStationOutOfReachFailsTask(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.AddStation(StationSpec{ID: "stove", Position: actor.Vec3{X: 9.5, Z: 4.5}})
	require.NoError(t, err)
	_, err = w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "cook", Position: actor.Vec3{X: 0.5, Z: 0.5}})
	require.NoError(t, err)

	tickUntilIdle(t, w.World, 10)
	require.Len(t, w.sink.OfType(tasks.EventTaskFailed), 1)
	require.Equal(t, uint64(1), w.metrics.Get(telemetry.MetricTasksFailed))
}

func TestStationCancelledContextFailsJob(t *testing.T) {
	station := newStation(StationSpec{ID: "stove", Minutes: 5})
	ctx, cancel := context.WithCancel(context.Background())
	done := station.ExecuteInteraction(ctx, actor.NewNPC(actor.NPCConfig{ID: "ada"}))
	cancel()
	station.advance(1)

	err := <-done
	require.True(t, errors.Is(err, context.Canceled))
	require.Zero(t, station.Busy())
}

func TestDecayFollowsVirtualTime(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.DecayPerHour[actor.StatFullness] = 36
	npc, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Stats: map[string]float64{"fullness": 50}})
	require.NoError(t, err)

	// 10 ticks of 0.1s at x20 is 20 virtual seconds: 36/h * 20/3600 = 0.2.
	tickN(t, w.World, 10)
	fullness, _ := npc.GetStat("fullness")
	require.InDelta(t, 49.8, fullness, 1e-9)
}

func TestSaveRestoreResumesIdentically(t *testing.T) {
	original := newTestWorld(t)
	_, err := original.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Position: actor.Vec3{X: 1.5, Z: 2.5}})
	require.NoError(t, err)
	tickN(t, original.World, 15)

	data, err := json.Marshal(original.Save())
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(data, &state))

	restored := newTestWorld(t)
	require.NoError(t, restored.Restore(context.Background(), state))
	require.Equal(t, original.Clock().Now(), restored.Clock().Now())
	require.Equal(t, original.Frame(), restored.Frame())

	for range 20 {
		tickN(t, original.World, 1)
		tickN(t, restored.World, 1)
		require.Equal(t, original.Frame(), restored.Frame())
	}
	planner, _ := restored.Planner("ada")
	require.Equal(t, 1, planner.CurrentIndex())
}

func TestRestoreAppliesStatsFoodAndRoutine(t *testing.T) {
	w := newTestWorld(t)
	door, err := w.AddDoor(DoorSpec{ID: "gate"})
	require.NoError(t, err)
	npc, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Position: actor.Vec3{X: 1.5, Z: 1.5}})
	require.NoError(t, err)

	err = w.Restore(context.Background(), State{
		Tick:  42,
		Clock: clock.State{Now: clock.DefaultEpoch.Add(time.Hour), Multiplier: 30, Scale: 1},
		NPCs: []NPCState{{
			ID:       "ada",
			Routine:  "doorman",
			Position: actor.Vec3{X: 3.5, Z: 1.5},
			Stats:    map[string]float64{"energy": 12},
			Food:     []float64{5},
			Frozen:   true,
			Planner:  ai.Snapshot{TaskStates: []ai.TaskState{{Kind: ai.KindDoorToggle}}},
		}},
		Doors: []DoorState{{ID: "gate", Open: true}},
	})
	require.NoError(t, err)

	planner, _ := w.Planner("ada")
	require.Equal(t, "doorman", planner.Routine())
	energy, _ := npc.GetStat("energy")
	require.Equal(t, 12.0, energy)
	require.Equal(t, []float64{5}, npc.Food())
	require.True(t, npc.IsFrozen())
	require.Equal(t, actor.Vec3{X: 3.5, Z: 1.5}, npc.Position())
	require.True(t, door.IsOpen())
	require.Equal(t, uint64(42), w.CurrentTick())
	require.Equal(t, 30.0, w.Clock().Multiplier())
}

func TestRestoreRejectsNPCWithoutID(t *testing.T) {
	w := newTestWorld(t)
	err := w.Restore(context.Background(), State{NPCs: []NPCState{{Routine: "stroll"}}})
	require.ErrorIs(t, err, ErrUnknownNPC)
}

func TestRunTicksUntilContextDone(t *testing.T) {
	var frames atomic.Int64
	lib := ai.NewLibrary()
	require.NoError(t, lib.Parse([]byte(testRoutines), "test.hcl"))
	w := New(Config{TickRate: 100, Grid: nav.GridConfig{Width: 10, Depth: 5}}, Deps{
		Library:   lib,
		AfterTick: func(Frame) { frames.Add(1) },
	})
	_, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))
	require.Positive(t, frames.Load())
	require.GreaterOrEqual(t, w.CurrentTick(), uint64(frames.Load()))
}

func TestTickBudgetOverrunIsPublished(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	w.checkBudget(ctx, 30*time.Millisecond, 10*time.Millisecond)
	w.checkBudget(ctx, 30*time.Millisecond, 10*time.Millisecond)
	w.checkBudget(ctx, 5*time.Millisecond, 10*time.Millisecond)

	events := w.sink.OfType(simulation.EventTickBudgetOverrun)
	require.Len(t, events, 2)
	payload, ok := events[1].Payload.(simulation.TickBudgetOverrunPayload)
	require.True(t, ok)
	require.Equal(t, uint64(2), payload.Streak)
	require.Equal(t, 3.0, payload.Ratio)
	require.Equal(t, uint64(2), w.metrics.Get(telemetry.MetricTickOverruns))
}

func TestTickStopsOnCancelledContext(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Tick(ctx, tickDt), context.Canceled)
	require.Zero(t, w.CurrentTick())
}
