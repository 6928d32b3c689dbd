package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging/simulation"
)

func TestCommandsApplyAtNextTick(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.SpawnNPC(context.Background(), NPCSpec{ID: "ada", Routine: "stroll", Position: actor.Vec3{X: 1.5, Z: 2.5}})
	require.NoError(t, err)
	gate, err := w.AddDoor(DoorSpec{ID: "gate", Position: actor.Vec3{X: 5.5, Z: 2.5}})
	require.NoError(t, err)

	require.NoError(t, w.Enqueue(Command{Type: CommandFreeze, Target: "ada"}))
	require.NoError(t, w.Enqueue(Command{Type: CommandToggleDoor, Target: "gate"}))

	npc, _ := w.NPC("ada")
	require.False(t, npc.IsFrozen())
	require.False(t, gate.IsOpen())

	tickN(t, w.World, 1)
	require.True(t, npc.IsFrozen())
	require.True(t, gate.IsOpen())
	require.True(t, w.Frame().NPCs[0].Frozen)
	require.Equal(t, uint64(2), w.metrics.Get(telemetry.MetricCommandsApplied))

	require.NoError(t, w.Enqueue(Command{Type: CommandUnfreeze, Target: "ada"}))
	tickN(t, w.World, 1)
	require.False(t, npc.IsFrozen())
}

func TestClockCommandsTakeEffectBeforeAdvance(t *testing.T) {
	w := newTestWorld(t)
	start := w.Clock().Now()

	require.NoError(t, w.Enqueue(Command{Type: CommandPause}))
	tickN(t, w.World, 3)
	require.Equal(t, start, w.Clock().Now())

	require.NoError(t, w.Enqueue(Command{Type: CommandResume}))
	require.NoError(t, w.Enqueue(Command{Type: CommandSetMultiplier, Value: 60}))
	tickN(t, w.World, 1)
	require.Equal(t, start.Add(6*time.Second), w.Clock().Now())

	require.NoError(t, w.Enqueue(Command{Type: CommandSetScale, Value: 2}))
	tickN(t, w.World, 1)
	require.Equal(t, start.Add(18*time.Second), w.Clock().Now())
}

func TestRejectedCommandsArePublished(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.Enqueue(Command{Type: CommandFreeze, Target: "ghost"}))
	require.NoError(t, w.Enqueue(Command{Type: CommandToggleDoor, Target: "nowhere"}))
	require.NoError(t, w.Enqueue(Command{Type: CommandSetMultiplier, Value: -1}))
	require.NoError(t, w.Enqueue(Command{Type: "Dance"}))
	tickN(t, w.World, 1)

	rejected := w.sink.OfType(simulation.EventCommandRejected)
	require.Len(t, rejected, 4)
	payload, ok := rejected[0].Payload.(simulation.CommandRejectedPayload)
	require.True(t, ok)
	require.Equal(t, "unknown npc", payload.Reason)
	require.Equal(t, uint64(4), w.metrics.Get(telemetry.MetricCommandsRejected))
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	w := New(Config{CommandCapacity: 1}, Deps{})
	require.NoError(t, w.Enqueue(Command{Type: CommandPause}))
	require.ErrorIs(t, w.Enqueue(Command{Type: CommandResume}), ErrCommandQueueFull)
}
