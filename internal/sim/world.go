// Package sim hosts the world the planners run in: the shared clock, NPCs
// with their navigators and planners, doors and interaction stations.
package sim

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	"github.com/Yuliya3k/spacegame-sub000/logging/lifecycle"
)

const (
	DefaultTickRate        = 10
	DefaultCatchupMaxTicks = 3
)

var (
	ErrDuplicateID = errors.New("sim: duplicate id")
	ErrUnknownNPC  = errors.New("sim: unknown npc")
)

// Config tunes the world.
type Config struct {
	TickRate        int
	CatchupMaxTicks int
	// Workers bounds how many planners tick in parallel. Zero uses GOMAXPROCS.
	Workers int
	Grid    nav.GridConfig
	// DecayPerHour lowers each stat by this much per in-world hour.
	DecayPerHour actor.StatSet
	// CommandCapacity bounds the commands staged between ticks.
	CommandCapacity int
}

// Deps carries shared infrastructure dependencies required by the world.
type Deps struct {
	Clock     *clock.VirtualClock
	Library   *ai.Library
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Logger    telemetry.Logger
	// AfterTick receives a frame after every tick, outside the world lock.
	AfterTick func(Frame)
}

// NPCSpec seeds an NPC.
type NPCSpec struct {
	// ID defaults to a random UUID.
	ID       string
	Routine  string
	Position actor.Vec3
	Speed    float64
	Stats    map[string]float64
	Food     []float64
}

type agent struct {
	npc     *actor.NPC
	nav     *nav.GridNavigator
	planner *ai.Planner
	done    bool
}

// World owns every simulated object. Tick is safe to call from one goroutine
// at a time; readers may call Frame or Save concurrently.
type World struct {
	cfg       Config
	clock     *clock.VirtualClock
	grid      *nav.Grid
	library   *ai.Library
	pub       logging.Publisher
	metrics   telemetry.Metrics
	logger    telemetry.Logger
	afterTick func(Frame)
	commands  *CommandBuffer

	objMu    sync.RWMutex
	doors    map[string]*Door
	doorIDs  []string
	stations map[string]*Station

	mu      sync.RWMutex
	agents  []*agent
	byID    map[string]*agent
	tick    uint64
	overrun uint64
}

// New builds an empty world on cfg.Grid.
func New(cfg Config, deps Deps) *World {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = DefaultCatchupMaxTicks
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultCommandCapacity
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	w := &World{
		cfg:       cfg,
		clock:     deps.Clock,
		grid:      nav.NewGrid(cfg.Grid),
		library:   deps.Library,
		pub:       deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		afterTick: deps.AfterTick,
		doors:     make(map[string]*Door),
		stations:  make(map[string]*Station),
		byID:      make(map[string]*agent),
	}
	if w.clock == nil {
		w.clock = clock.New(time.Time{}, clock.DefaultMultiplier, 1)
	}
	if w.pub == nil {
		w.pub = logging.NopPublisher()
	}
	if w.metrics == nil {
		w.metrics = telemetry.NopMetrics()
	}
	if w.logger == nil {
		w.logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	w.commands = NewCommandBuffer(cfg.CommandCapacity, w.metrics)
	return w
}

func (w *World) Clock() *clock.VirtualClock { return w.clock }

func (w *World) Grid() *nav.Grid { return w.grid }

func (w *World) Config() Config { return w.cfg }

// CurrentTick returns the number of ticks run so far.
func (w *World) CurrentTick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// AddDoor registers a door. Doors must be added before the NPCs whose
// routines refer to them.
func (w *World) AddDoor(spec DoorSpec) (*Door, error) {
	if spec.ID == "" {
		return nil, goerr.New("door id is required")
	}
	w.objMu.Lock()
	defer w.objMu.Unlock()
	if _, exists := w.doors[spec.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateID, "add door", goerr.V("door", spec.ID))
	}
	door := newDoor(spec)
	w.doors[spec.ID] = door
	w.doorIDs = append(w.doorIDs, spec.ID)
	return door, nil
}

// AddStation registers an interaction station.
func (w *World) AddStation(spec StationSpec) (*Station, error) {
	if spec.ID == "" {
		return nil, goerr.New("station id is required")
	}
	w.objMu.Lock()
	defer w.objMu.Unlock()
	if _, exists := w.stations[spec.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateID, "add station", goerr.V("station", spec.ID))
	}
	station := newStation(spec)
	w.stations[spec.ID] = station
	return station, nil
}

// Door implements ai.Resolver.
func (w *World) Door(id string) (ai.Door, bool) {
	w.objMu.RLock()
	defer w.objMu.RUnlock()
	door, ok := w.doors[id]
	if !ok {
		return nil, false
	}
	return door, true
}

// Interaction implements ai.Resolver.
func (w *World) Interaction(id string) (ai.InteractionTarget, bool) {
	w.objMu.RLock()
	defer w.objMu.RUnlock()
	station, ok := w.stations[id]
	if !ok {
		return nil, false
	}
	return station, true
}

// Station returns the station registered under id.
func (w *World) Station(id string) (*Station, bool) {
	w.objMu.RLock()
	defer w.objMu.RUnlock()
	station, ok := w.stations[id]
	return station, ok
}

// closedDoors lists the positions navigators must treat as blocked.
func (w *World) closedDoors() []actor.Vec3 {
	w.objMu.RLock()
	defer w.objMu.RUnlock()
	var blocked []actor.Vec3
	for _, id := range w.doorIDs {
		door := w.doors[id]
		if !door.IsOpen() {
			blocked = append(blocked, door.Position())
		}
	}
	return blocked
}

// SpawnNPC adds an NPC and attaches its routine from the library. An unknown
// routine falls back to the idle routine and is logged.
func (w *World) SpawnNPC(ctx context.Context, spec NPCSpec) (*actor.NPC, error) {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.byID[spec.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateID, "spawn npc", goerr.V("npc", spec.ID))
	}
	npc := actor.NewNPC(actor.NPCConfig{
		ID:       spec.ID,
		Position: spec.Position,
		Speed:    spec.Speed,
		Stats:    actor.StatSetFromMap(spec.Stats),
		Food:     spec.Food,
	})
	a := w.attach(npc, spec.Routine)
	w.agents = append(w.agents, a)
	w.byID[spec.ID] = a

	lifecycle.NPCSpawned(ctx, w.pub, w.tick, a.planner.Ref(), lifecycle.NPCSpawnedPayload{
		Routine: a.planner.Routine(),
		Tasks:   a.planner.Len(),
		Spawn:   [3]float64{spec.Position.X, spec.Position.Y, spec.Position.Z},
	}, nil)
	return npc, nil
}

func (w *World) attach(npc *actor.NPC, routine string) *agent {
	navigator := nav.NewGridNavigator(w.grid, npc, nav.WithBlockers(w.closedDoors))
	planner, found := ai.BootstrapPlanner(ai.SpawnBootstrapConfig{
		Library: w.library,
		Routine: routine,
		Planner: ai.PlannerConfig{
			Actor:     npc,
			Navigator: navigator,
			Clock:     w.clock,
			Publisher: w.pub,
			Metrics:   w.metrics,
			Resolver:  w,
		},
	})
	if !found {
		w.logger.Printf("[spawn] npc=%s routine=%q not found, idling", npc.ID(), routine)
	}
	return &agent{npc: npc, nav: navigator, planner: planner}
}

// NPC returns the NPC registered under id.
func (w *World) NPC(id string) (*actor.NPC, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return a.npc, true
}

// Planner returns the planner driving the NPC registered under id.
func (w *World) Planner(id string) (*ai.Planner, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return a.planner, true
}

// NPCIDs lists NPCs in spawn order.
func (w *World) NPCIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.agents))
	for _, a := range w.agents {
		ids = append(ids, a.npc.ID())
	}
	return ids
}

// ActivePlanners counts planners that have not finished.
func (w *World) ActivePlanners() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeLocked()
}

func (w *World) activeLocked() int {
	active := 0
	for _, a := range w.agents {
		if !a.done {
			active++
		}
	}
	return active
}
