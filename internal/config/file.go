package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

type fileConfig struct {
	Clock      *clockBlock      `hcl:"clock,block"`
	Simulation *simulationBlock `hcl:"simulation,block"`
	Logging    *loggingBlock    `hcl:"logging,block"`
	Observer   *observerBlock   `hcl:"observer,block"`
	Obstacles  []obstacleBlock  `hcl:"obstacle,block"`
	Doors      []doorBlock      `hcl:"door,block"`
	Stations   []stationBlock   `hcl:"station,block"`
	NPCs       []npcBlock       `hcl:"npc,block"`
}

type clockBlock struct {
	Start      *string  `hcl:"start,optional"`
	Multiplier *float64 `hcl:"multiplier,optional"`
	Scale      *float64 `hcl:"scale,optional"`
	Paused     *bool    `hcl:"paused,optional"`
}

type simulationBlock struct {
	TickRate        *int               `hcl:"tick_rate,optional"`
	CatchupMaxTicks *int               `hcl:"catchup_max_ticks,optional"`
	Workers         *int               `hcl:"workers,optional"`
	Width           *float64           `hcl:"width,optional"`
	Depth           *float64           `hcl:"depth,optional"`
	CellSize        *float64           `hcl:"cell_size,optional"`
	AgentRadius     *float64           `hcl:"agent_radius,optional"`
	DecayPerHour    map[string]float64 `hcl:"decay_per_hour,optional"`
	Routines        []string           `hcl:"routines,optional"`
	SavePath        *string            `hcl:"save_path,optional"`
}

type loggingBlock struct {
	Level       *string  `hcl:"level,optional"`
	Sinks       []string `hcl:"sinks,optional"`
	JSONPath    *string  `hcl:"json_path,optional"`
	BufferSize  *int     `hcl:"buffer_size,optional"`
	ShowPayload *bool    `hcl:"show_payload,optional"`
}

type observerBlock struct {
	Enabled *bool   `hcl:"enabled,optional"`
	Addr    *string `hcl:"addr,optional"`
	Pprof   *bool   `hcl:"pprof,optional"`
}

type obstacleBlock struct {
	Name string  `hcl:"name,label"`
	MinX float64 `hcl:"min_x"`
	MinZ float64 `hcl:"min_z"`
	MaxX float64 `hcl:"max_x"`
	MaxZ float64 `hcl:"max_z"`
}

type doorBlock struct {
	ID               string    `hcl:"id,label"`
	Position         []float64 `hcl:"position"`
	OpenSeconds      float64   `hcl:"open_seconds,optional"`
	AutoCloseSeconds float64   `hcl:"auto_close_seconds,optional"`
	Open             bool      `hcl:"open,optional"`
}

type stationBlock struct {
	ID       string             `hcl:"id,label"`
	Position []float64          `hcl:"position"`
	Minutes  float64            `hcl:"minutes,optional"`
	Reach    float64            `hcl:"reach,optional"`
	Effects  map[string]float64 `hcl:"effects,optional"`
}

type npcBlock struct {
	ID       string             `hcl:"id,label"`
	Routine  string             `hcl:"routine"`
	Position []float64          `hcl:"position"`
	Speed    float64            `hcl:"speed,optional"`
	Stats    map[string]float64 `hcl:"stats,optional"`
	Food     []float64          `hcl:"food,optional"`
}

func (fc fileConfig) apply(cfg *Config) error {
	if b := fc.Clock; b != nil {
		if b.Start != nil {
			start, err := time.Parse(time.RFC3339, *b.Start)
			if err != nil {
				return goerr.Wrap(ErrInvalidConfig, "clock start must be RFC 3339", goerr.V("start", *b.Start))
			}
			cfg.Clock.Start = start
		}
		setIf(&cfg.Clock.Multiplier, b.Multiplier)
		setIf(&cfg.Clock.Scale, b.Scale)
		setIf(&cfg.Clock.Paused, b.Paused)
	}
	if b := fc.Simulation; b != nil {
		setIf(&cfg.Simulation.TickRate, b.TickRate)
		setIf(&cfg.Simulation.CatchupMaxTicks, b.CatchupMaxTicks)
		setIf(&cfg.Simulation.Workers, b.Workers)
		setIf(&cfg.Simulation.Width, b.Width)
		setIf(&cfg.Simulation.Depth, b.Depth)
		setIf(&cfg.Simulation.CellSize, b.CellSize)
		setIf(&cfg.Simulation.AgentRadius, b.AgentRadius)
		setIf(&cfg.Simulation.SavePath, b.SavePath)
		if b.DecayPerHour != nil {
			cfg.Simulation.DecayPerHour = b.DecayPerHour
		}
		if b.Routines != nil {
			cfg.Simulation.Routines = b.Routines
		}
	}
	if b := fc.Logging; b != nil {
		setIf(&cfg.Logging.Level, b.Level)
		setIf(&cfg.Logging.JSONPath, b.JSONPath)
		setIf(&cfg.Logging.BufferSize, b.BufferSize)
		setIf(&cfg.Logging.ShowPayload, b.ShowPayload)
		if b.Sinks != nil {
			cfg.Logging.Sinks = b.Sinks
		}
	}
	if b := fc.Observer; b != nil {
		setIf(&cfg.Observer.Enabled, b.Enabled)
		setIf(&cfg.Observer.Addr, b.Addr)
		setIf(&cfg.Observer.Pprof, b.Pprof)
	}

	if len(fc.Obstacles) > 0 {
		cfg.Obstacles = cfg.Obstacles[:0:0]
		for _, b := range fc.Obstacles {
			cfg.Obstacles = append(cfg.Obstacles, ObstacleConfig{Name: b.Name, MinX: b.MinX, MinZ: b.MinZ, MaxX: b.MaxX, MaxZ: b.MaxZ})
		}
	}
	if len(fc.Doors) > 0 {
		cfg.Doors = nil
		for _, b := range fc.Doors {
			pos, err := position("door", b.ID, b.Position)
			if err != nil {
				return err
			}
			cfg.Doors = append(cfg.Doors, DoorConfig{
				ID:               b.ID,
				Position:         pos,
				OpenSeconds:      b.OpenSeconds,
				AutoCloseSeconds: b.AutoCloseSeconds,
				Open:             b.Open,
			})
		}
	}
	if len(fc.Stations) > 0 {
		cfg.Stations = nil
		for _, b := range fc.Stations {
			pos, err := position("station", b.ID, b.Position)
			if err != nil {
				return err
			}
			cfg.Stations = append(cfg.Stations, StationConfig{
				ID:       b.ID,
				Position: pos,
				Minutes:  b.Minutes,
				Reach:    b.Reach,
				Effects:  b.Effects,
			})
		}
	}
	if len(fc.NPCs) > 0 {
		cfg.NPCs = nil
		for _, b := range fc.NPCs {
			pos, err := position("npc", b.ID, b.Position)
			if err != nil {
				return err
			}
			cfg.NPCs = append(cfg.NPCs, NPCConfig{
				ID:       b.ID,
				Routine:  b.Routine,
				Position: pos,
				Speed:    b.Speed,
				Stats:    b.Stats,
				Food:     b.Food,
			})
		}
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// position accepts [x, z] or [x, y, z].
func position(kind, id string, values []float64) (actor.Vec3, error) {
	switch len(values) {
	case 2:
		return actor.Vec3{X: values[0], Z: values[1]}, nil
	case 3:
		return actor.Vec3{X: values[0], Y: values[1], Z: values[2]}, nil
	default:
		return actor.Vec3{}, goerr.Wrap(ErrInvalidConfig, "position needs 2 or 3 numbers", goerr.V(kind, id), goerr.V("got", len(values)))
	}
}
