package lifecycle

import (
	"context"

	"github.com/Yuliya3k/spacegame-sub000/logging"
)

const (
	// EventNPCSpawned is emitted when an NPC and its planner join the world.
	EventNPCSpawned logging.EventType = "lifecycle.npc_spawned"
	// EventWorldSaved is emitted after a world snapshot is captured.
	EventWorldSaved logging.EventType = "lifecycle.world_saved"
	// EventWorldRestored is emitted after a snapshot has been applied.
	EventWorldRestored logging.EventType = "lifecycle.world_restored"
)

// NPCSpawnedPayload captures spawn metadata for a new NPC.
type NPCSpawnedPayload struct {
	Routine string     `json:"routine"`
	Tasks   int        `json:"tasks"`
	Spawn   [3]float64 `json:"spawn"`
}

// WorldSnapshotPayload summarises a save or load.
type WorldSnapshotPayload struct {
	SaveID string `json:"saveId,omitempty"`
	NPCs   int    `json:"npcs"`
	Clock  string `json:"clock"`
}

// NPCSpawned publishes an NPC spawn event.
func NPCSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload NPCSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventNPCSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// WorldSaved publishes after a save.
func WorldSaved(ctx context.Context, pub logging.Publisher, tick uint64, payload WorldSnapshotPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWorldSaved,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// WorldRestored publishes after a load.
func WorldRestored(ctx context.Context, pub logging.Publisher, tick uint64, payload WorldSnapshotPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWorldRestored,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
