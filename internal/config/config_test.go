package config

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "world.hcl"))
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC), cfg.Clock.Start)
	require.Equal(t, 60.0, cfg.Clock.Multiplier)
	require.Equal(t, 1.0, cfg.Clock.Scale)

	require.Equal(t, 20, cfg.Simulation.TickRate)
	require.Equal(t, 20.0, cfg.Simulation.Width)
	require.Equal(t, DefaultConfig().Simulation.CatchupMaxTicks, cfg.Simulation.CatchupMaxTicks)
	require.Equal(t, map[string]float64{"fullness": 10}, cfg.Simulation.DecayPerHour)
	require.Equal(t, []string{"./routines"}, cfg.Simulation.Routines)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, []string{"console", "json"}, cfg.Logging.Sinks)
	require.Equal(t, "events.jsonl", cfg.Logging.JSONPath)
	require.Equal(t, 512, cfg.Logging.BufferSize)

	require.True(t, cfg.Observer.Enabled)
	require.Equal(t, "127.0.0.1:9090", cfg.Observer.Addr)
	require.True(t, cfg.Observer.Pprof)

	require.Equal(t, []ObstacleConfig{{Name: "crate", MinX: 4, MinZ: 4, MaxX: 6, MaxZ: 6}}, cfg.Obstacles)
	require.Equal(t, []DoorConfig{{ID: "hatch", Position: actor.Vec3{X: 10.5, Z: 6.5}, OpenSeconds: 2}}, cfg.Doors)
	require.Len(t, cfg.Stations, 1)
	require.Equal(t, actor.Vec3{X: 2.5, Z: 2.5}, cfg.Stations[0].Position)
	require.Equal(t, map[string]float64{"hydration": 30}, cfg.Stations[0].Effects)
	require.Len(t, cfg.NPCs, 1)
	require.Equal(t, "crew_day", cfg.NPCs[0].Routine)
	require.Equal(t, []float64{15, 15}, cfg.NPCs[0].Food)
}

func TestParseKeepsDefaultListsWhenAbsent(t *testing.T) {
	cfg, err := Parse([]byte(`clock { scale = 2 }`), "partial.hcl")
	require.NoError(t, err)
	require.Equal(t, 2.0, cfg.Clock.Scale)
	require.Equal(t, DefaultConfig().NPCs, cfg.NPCs)
	require.Equal(t, DefaultConfig().Doors, cfg.Doors)
}

func TestParseRejectsInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"negative multiplier": `clock { multiplier = -1 }`,
		"scale too large":     `clock { scale = 11 }`,
		"bad start":           `clock { start = "tomorrow" }`,
		"zero tick rate":      `simulation { tick_rate = 0 }`,
		"unknown decay stat":  `simulation { decay_per_hour = { charisma = 1 } }`,
		"unknown level":       `logging { level = "loud" }`,
		"unknown sink":        `logging { sinks = ["pager"] }`,
		"flat obstacle": `
obstacle "x" {
  min_x = 1
  min_z = 1
  max_x = 1
  max_z = 2
}`,
		"bad position": `door "d" { position = [1] }`,
		"door outside": `door "d" { position = [100, 1] }`,
		"duplicate id": `
station "a" { position = [1, 1] }
npc "a" {
  routine  = "crew_day"
  position = [2, 2]
}`,
		"missing routine": `
npc "a" {
  routine  = ""
  position = [1, 1]
}`,
		"unknown npc stat": `
npc "a" {
  routine  = "x"
  position = [1, 1]
  stats    = { charisma = 3 }
}`,
		"unknown effect stat": `
station "s" {
  position = [1, 1]
  effects  = { luck = 1 }
}`,
		"missing npc position": `npc "a" { routine = "x" }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "bad.hcl")
			require.Error(t, err)
		})
	}
}

func TestParseRejectsSyntaxErrors(t *testing.T) {
	_, err := Parse([]byte(`clock {`), "broken.hcl")
	require.Error(t, err)
}

func TestValidationErrorsMatchSentinel(t *testing.T) {
	_, err := Parse([]byte(`simulation { tick_rate = -3 }`), "bad.hcl")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvTickRate:        "30",
		EnvClockMultiplier: "45.5",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}, nil)
	require.Equal(t, 30, cfg.Simulation.TickRate)
	require.Equal(t, 45.5, cfg.Clock.Multiplier)
}

func TestApplyEnvIgnoresMalformedValues(t *testing.T) {
	var logged []string
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(key string) (string, bool) {
		return "fast", true
	}, loggerFunc(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	require.Equal(t, DefaultConfig().Simulation.TickRate, cfg.Simulation.TickRate)
	require.Equal(t, DefaultConfig().Clock.Multiplier, cfg.Clock.Multiplier)
	require.Len(t, logged, 2)
}

type loggerFunc func(format string, args ...any)

func (f loggerFunc) Printf(format string, args ...any) { f(format, args...) }

// The default layout has to stay in step with the bundled routines: every
// door and station they mention must exist and every move target must be
// reachable from where its NPC starts.
func TestDefaultLayoutServesBundledRoutines(t *testing.T) {
	cfg := DefaultConfig()
	w := sim.New(cfg.World(), sim.Deps{Clock: cfg.NewClock(), Library: ai.GlobalLibrary})
	for _, d := range cfg.Doors {
		_, err := w.AddDoor(d.Spec())
		require.NoError(t, err)
	}
	for _, s := range cfg.Stations {
		_, err := w.AddStation(s.Spec())
		require.NoError(t, err)
	}
	for _, n := range cfg.NPCs {
		_, err := w.SpawnNPC(context.Background(), n.Spec())
		require.NoError(t, err)

		planner, ok := w.Planner(n.ID)
		require.True(t, ok)
		require.Equal(t, n.Routine, planner.Routine())
		for i, task := range planner.Tasks() {
			require.NotNil(t, task, "npc %s slot %d", n.ID, i)
		}
	}

	grid := w.Grid()
	for _, target := range []actor.Vec3{
		{X: 30.5, Z: 5.5},
		{X: 5.5, Z: 24.5},
		{X: 17.5, Z: 14.5},
		{X: 34.5, Z: 24.5},
	} {
		require.True(t, grid.Walkable(target), "target %v", target)
		_, _, ok := grid.FindPath(actor.Vec3{X: 10.5, Z: 10.5}, target, []actor.Vec3{{X: 18.5, Z: 14.5}})
		require.True(t, ok, "target %v", target)
	}
}
