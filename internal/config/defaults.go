package config

import (
	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/logging"
)

// DefaultConfig describes the bundled crew deck: a 40x30 area split by a
// bulkhead at x 18..19 with the engine door at z 14..15 and an open passage
// at the far end. Coordinates line up with the bundled routines.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			Start:      clock.DefaultEpoch,
			Multiplier: clock.DefaultMultiplier,
			Scale:      1,
		},
		Simulation: SimulationConfig{
			TickRate:        sim.DefaultTickRate,
			CatchupMaxTicks: sim.DefaultCatchupMaxTicks,
			Width:           40,
			Depth:           30,
			CellSize:        1,
			AgentRadius:     0.35,
			DecayPerHour: map[string]float64{
				"fullness":  6,
				"energy":    4,
				"hydration": 5,
				"mood":      1,
			},
			SavePath: "npcsim-save.json",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Sinks:       []string{logging.SinkConsole},
			BufferSize:  512,
			ShowPayload: false,
		},
		Observer: ObserverConfig{Addr: defaultObserverAddr},
		Obstacles: []ObstacleConfig{
			{Name: "bulkhead_south", MinX: 18, MinZ: 0, MaxX: 19, MaxZ: 14},
			{Name: "bulkhead_north", MinX: 18, MinZ: 15, MaxX: 19, MaxZ: 26},
			{Name: "galley_table", MinX: 30, MinZ: 7, MaxX: 33, MaxZ: 9},
			{Name: "bunks", MinX: 2, MinZ: 26, MaxX: 9, MaxZ: 28},
			{Name: "engine_block", MinX: 35, MinZ: 26, MaxX: 38, MaxZ: 29},
		},
		Doors: []DoorConfig{
			{ID: "engine_door", Position: actor.Vec3{X: 18.5, Z: 14.5}, OpenSeconds: 1.5, AutoCloseSeconds: 20},
		},
		Stations: []StationConfig{
			{
				ID:       "galley_counter",
				Position: actor.Vec3{X: 31.5, Z: 6.5},
				Minutes:  20,
				Effects:  map[string]float64{"fullness": 10, "mood": 5},
			},
			{
				ID:       "engine_console",
				Position: actor.Vec3{X: 35.5, Z: 25.5},
				Minutes:  45,
				Effects:  map[string]float64{"energy": -10, "mood": -2},
			},
		},
		NPCs: []NPCConfig{
			{
				ID:       "mira",
				Routine:  "crew_day",
				Position: actor.Vec3{X: 10.5, Z: 10.5},
				Stats:    map[string]float64{"fullness": 55, "energy": 70, "hydration": 80, "mood": 60, "health": 100},
				Food:     []float64{20, 20, 20, 20},
			},
			{
				ID:       "tomas",
				Routine:  "engineer_shift",
				Position: actor.Vec3{X: 12.5, Z: 5.5},
				Stats:    map[string]float64{"fullness": 70, "energy": 40, "hydration": 70, "mood": 50, "health": 100},
			},
			{
				ID:       "iko",
				Routine:  "mealtimes",
				Position: actor.Vec3{X: 25.5, Z: 15.5},
				Stats:    map[string]float64{"fullness": 30, "energy": 90, "hydration": 60, "mood": 70, "health": 100},
				Food:     []float64{25, 25, 25, 25, 25, 25},
			},
		},
	}
}
