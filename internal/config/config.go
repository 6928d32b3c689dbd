// Package config loads the npcsim world description: clock and simulation
// tuning, logging, and the layout of obstacles, doors, stations and NPCs.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging"
)

// Environment overrides.
const (
	EnvTickRate         = "NPCSIM_TICK_RATE"
	EnvClockMultiplier  = "NPCSIM_CLOCK_MULTIPLIER"
	defaultObserverAddr = ":8080"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Clock      ClockConfig
	Simulation SimulationConfig
	Logging    LoggingConfig
	Observer   ObserverConfig
	Obstacles  []ObstacleConfig
	Doors      []DoorConfig
	Stations   []StationConfig
	NPCs       []NPCConfig
}

type ClockConfig struct {
	Start      time.Time
	Multiplier float64
	Scale      float64
	Paused     bool
}

type SimulationConfig struct {
	TickRate        int
	CatchupMaxTicks int
	Workers         int
	Width           float64
	Depth           float64
	CellSize        float64
	AgentRadius     float64
	DecayPerHour    map[string]float64
	// Routines lists extra routine files or directories layered over the
	// bundled library.
	Routines []string
	SavePath string
}

type LoggingConfig struct {
	Level       string
	Sinks       []string
	JSONPath    string
	BufferSize  int
	ShowPayload bool
}

type ObserverConfig struct {
	Enabled bool
	Addr    string
	// Pprof mounts the runtime profiler under /debug/pprof.
	Pprof bool
}

type ObstacleConfig struct {
	Name string
	MinX float64
	MinZ float64
	MaxX float64
	MaxZ float64
}

type DoorConfig struct {
	ID               string
	Position         actor.Vec3
	OpenSeconds      float64
	AutoCloseSeconds float64
	Open             bool
}

type StationConfig struct {
	ID       string
	Position actor.Vec3
	Minutes  float64
	Reach    float64
	Effects  map[string]float64
}

type NPCConfig struct {
	ID       string
	Routine  string
	Position actor.Vec3
	Speed    float64
	Stats    map[string]float64
	Food     []float64
}

// Load returns DefaultConfig when path is empty, otherwise the file at path
// decoded over the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, goerr.Wrap(err, "read config", goerr.V("path", path))
	}
	return Parse(src, path)
}

// Parse decodes an HCL world file over DefaultConfig. Sections that are
// absent keep their defaults; a list kind (obstacle, door, station, npc)
// declared at least once replaces the default list.
func Parse(src []byte, filename string) (Config, error) {
	cfg := DefaultConfig()
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, goerr.Wrap(diags, "parse config", goerr.V("file", filename))
	}
	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return Config{}, goerr.Wrap(diags, "decode config", goerr.V("file", filename))
	}
	if err := fc.apply(&cfg); err != nil {
		return Config{}, goerr.Wrap(err, "apply config", goerr.V("file", filename))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. Malformed values are
// logged and ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool), logger telemetry.Logger) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if raw, ok := lookup(EnvTickRate); ok && raw != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && value > 0 {
			c.Simulation.TickRate = value
		} else if logger != nil {
			logger.Printf("invalid %s=%q: want a positive integer", EnvTickRate, raw)
		}
	}
	if raw, ok := lookup(EnvClockMultiplier); ok && raw != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && value >= 0 {
			c.Clock.Multiplier = value
		} else if logger != nil {
			logger.Printf("invalid %s=%q: want a non-negative number", EnvClockMultiplier, raw)
		}
	}
}

// Validate checks ranges and id uniqueness.
func (c Config) Validate() error {
	invalid := func(msg string, opts ...goerr.Option) error {
		return goerr.Wrap(ErrInvalidConfig, msg, opts...)
	}
	if c.Clock.Multiplier < 0 {
		return invalid("clock multiplier must not be negative", goerr.V("multiplier", c.Clock.Multiplier))
	}
	if c.Clock.Scale < 0 || c.Clock.Scale > clock.MaxScale {
		return invalid("clock scale out of range", goerr.V("scale", c.Clock.Scale), goerr.V("max", clock.MaxScale))
	}
	world := c.Simulation
	if world.TickRate <= 0 {
		return invalid("tick_rate must be positive", goerr.V("tick_rate", world.TickRate))
	}
	if world.Width <= 0 || world.Depth <= 0 {
		return invalid("world area must be positive", goerr.V("width", world.Width), goerr.V("depth", world.Depth))
	}
	for name := range world.DecayPerHour {
		if _, ok := actor.ParseStat(name); !ok {
			return invalid("unknown stat in decay_per_hour", goerr.V("stat", name))
		}
	}
	if _, ok := logging.ParseSeverity(c.Logging.Level); !ok {
		return invalid("unknown logging level", goerr.V("level", c.Logging.Level))
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case logging.SinkConsole, logging.SinkJSON, logging.SinkSlog:
		default:
			return invalid("unknown logging sink", goerr.V("sink", sink))
		}
	}
	for _, o := range c.Obstacles {
		if o.MaxX <= o.MinX || o.MaxZ <= o.MinZ {
			return invalid("obstacle has no area", goerr.V("obstacle", o.Name))
		}
	}

	inside := func(p actor.Vec3) bool {
		return p.X >= 0 && p.Z >= 0 && p.X <= world.Width && p.Z <= world.Depth
	}
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if id == "" {
			return invalid(kind + " id is required")
		}
		if other, ok := seen[id]; ok {
			return invalid("duplicate id", goerr.V("id", id), goerr.V("kind", kind), goerr.V("other", other))
		}
		seen[id] = kind
		return nil
	}
	for _, d := range c.Doors {
		if err := claim("door", d.ID); err != nil {
			return err
		}
		if !inside(d.Position) {
			return invalid("door outside the world", goerr.V("door", d.ID))
		}
	}
	for _, s := range c.Stations {
		if err := claim("station", s.ID); err != nil {
			return err
		}
		if !inside(s.Position) {
			return invalid("station outside the world", goerr.V("station", s.ID))
		}
		for name := range s.Effects {
			if _, ok := actor.ParseStat(name); !ok {
				return invalid("unknown stat in station effects", goerr.V("station", s.ID), goerr.V("stat", name))
			}
		}
	}
	for _, n := range c.NPCs {
		if err := claim("npc", n.ID); err != nil {
			return err
		}
		if strings.TrimSpace(n.Routine) == "" {
			return invalid("npc routine is required", goerr.V("npc", n.ID))
		}
		if !inside(n.Position) {
			return invalid("npc outside the world", goerr.V("npc", n.ID))
		}
		for name := range n.Stats {
			if _, ok := actor.ParseStat(name); !ok {
				return invalid("unknown stat", goerr.V("npc", n.ID), goerr.V("stat", name))
			}
		}
	}
	return nil
}

// World converts the simulation section into sim.Config.
func (c Config) World() sim.Config {
	cfg := sim.Config{
		TickRate:        c.Simulation.TickRate,
		CatchupMaxTicks: c.Simulation.CatchupMaxTicks,
		Workers:         c.Simulation.Workers,
		Grid: nav.GridConfig{
			Width:       c.Simulation.Width,
			Depth:       c.Simulation.Depth,
			CellSize:    c.Simulation.CellSize,
			AgentRadius: c.Simulation.AgentRadius,
		},
		DecayPerHour: actor.StatSetFromMap(c.Simulation.DecayPerHour),
	}
	for _, o := range c.Obstacles {
		cfg.Grid.Obstacles = append(cfg.Grid.Obstacles, nav.Obstacle{MinX: o.MinX, MinZ: o.MinZ, MaxX: o.MaxX, MaxZ: o.MaxZ})
	}
	return cfg
}

// NewClock builds the virtual clock described by the clock section.
func (c Config) NewClock() *clock.VirtualClock {
	clk := clock.New(c.Clock.Start, c.Clock.Multiplier, c.Clock.Scale)
	if c.Clock.Paused {
		clk.Pause()
	}
	return clk
}

func (d DoorConfig) Spec() sim.DoorSpec {
	return sim.DoorSpec{
		ID:               d.ID,
		Position:         d.Position,
		OpenSeconds:      d.OpenSeconds,
		AutoCloseSeconds: d.AutoCloseSeconds,
		Open:             d.Open,
	}
}

func (s StationConfig) Spec() sim.StationSpec {
	return sim.StationSpec{
		ID:       s.ID,
		Position: s.Position,
		Minutes:  s.Minutes,
		Reach:    s.Reach,
		Effects:  s.Effects,
	}
}

func (n NPCConfig) Spec() sim.NPCSpec {
	return sim.NPCSpec{
		ID:       n.ID,
		Routine:  n.Routine,
		Position: n.Position,
		Speed:    n.Speed,
		Stats:    n.Stats,
		Food:     append([]float64(nil), n.Food...),
	}
}

// Severity resolves the configured minimum level.
func (l LoggingConfig) Severity() logging.Severity {
	severity, _ := logging.ParseSeverity(l.Level)
	return severity
}
