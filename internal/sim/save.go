package sim

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
)

// State is everything needed to resume the world: the clock timestamp and
// rate, plus each NPC's planner snapshot, position, stats and pantry.
type State struct {
	Tick  uint64      `json:"tick"`
	Clock clock.State `json:"clock"`
	NPCs  []NPCState  `json:"npcs"`
	Doors []DoorState `json:"doors,omitempty"`
}

type NPCState struct {
	ID       string             `json:"id"`
	Routine  string             `json:"routine"`
	Position actor.Vec3         `json:"position"`
	Speed    float64            `json:"speed,omitempty"`
	Stats    map[string]float64 `json:"stats"`
	Food     []float64          `json:"food,omitempty"`
	Frozen   bool               `json:"frozen,omitempty"`
	Planner  ai.Snapshot        `json:"planner"`
}

type DoorState struct {
	ID   string `json:"id"`
	Open bool   `json:"open"`
}

// Save captures the world between ticks.
func (w *World) Save() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	state := State{
		Tick:  w.tick,
		Clock: w.clock.State(),
		NPCs:  make([]NPCState, 0, len(w.agents)),
	}
	for _, a := range w.agents {
		state.NPCs = append(state.NPCs, NPCState{
			ID:       a.npc.ID(),
			Routine:  a.planner.Routine(),
			Position: a.npc.Position(),
			Speed:    a.npc.Speed(),
			Stats:    a.npc.Stats().Map(),
			Food:     a.npc.Food(),
			Frozen:   a.npc.IsFrozen(),
			Planner:  a.planner.GetState(),
		})
	}
	w.objMu.RLock()
	for _, id := range w.doorIDs {
		state.Doors = append(state.Doors, DoorState{ID: id, Open: w.doors[id].IsOpen()})
	}
	w.objMu.RUnlock()
	return state
}

// Restore applies a saved state. NPCs missing from the world are spawned
// with their saved routine; NPCs whose routine changed get a fresh planner
// before the snapshot is applied. Each NPC is placed at its last task
// position and its navigator is stopped so movement tasks re-issue their
// destinations. Station jobs still held for a restored NPC are cancelled.
func (w *World) Restore(ctx context.Context, s State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, saved := range s.NPCs {
		if saved.ID == "" {
			return goerr.Wrap(ErrUnknownNPC, "npc without id in save", goerr.V("index", i))
		}
	}

	w.clock.Restore(s.Clock)
	w.tick = s.Tick

	w.objMu.RLock()
	for _, saved := range s.Doors {
		if door, ok := w.doors[saved.ID]; ok {
			door.setOpen(saved.Open)
		}
	}
	// Restored interactions start over, so jobs left from before are dropped.
	for _, saved := range s.NPCs {
		for _, station := range w.stations {
			station.cancel(saved.ID)
		}
	}
	w.objMu.RUnlock()

	for _, saved := range s.NPCs {
		a, ok := w.byID[saved.ID]
		if !ok {
			npc := actor.NewNPC(actor.NPCConfig{ID: saved.ID, Position: saved.Position, Speed: saved.Speed})
			a = w.attach(npc, saved.Routine)
			w.agents = append(w.agents, a)
			w.byID[saved.ID] = a
		} else if a.planner.Routine() != saved.Routine {
			a.nav.Stop()
			replaced := w.attach(a.npc, saved.Routine)
			a.nav, a.planner = replaced.nav, replaced.planner
		}

		for name, v := range saved.Stats {
			if stat, ok := actor.ParseStat(name); ok {
				a.npc.SetStat(stat, v)
			}
		}
		a.npc.SetFood(saved.Food)
		a.npc.SetFrozen(saved.Frozen)
		a.npc.SetPosition(saved.Planner.ResumePosition(saved.Position))
		a.nav.Stop()
		a.planner.SetState(ctx, saved.Planner)
		a.done = a.planner.Finished()
	}
	return nil
}
