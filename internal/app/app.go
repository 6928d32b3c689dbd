// Package app wires configuration, logging, the world and the observer into
// a running npcsim process.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/ai"
	"github.com/Yuliya3k/spacegame-sub000/internal/config"
	"github.com/Yuliya3k/spacegame-sub000/internal/observability"
	"github.com/Yuliya3k/spacegame-sub000/internal/observer"
	"github.com/Yuliya3k/spacegame-sub000/internal/savegame"
	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	loggingSinks "github.com/Yuliya3k/spacegame-sub000/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	ConfigPath string
	// LoadPath resumes from a save file before the loop starts.
	LoadPath string
	// SavePath overrides the configured save location.
	SavePath string
	NoSave   bool
	// Observe forces the observer on. ObserverAddr overrides its address.
	Observe      bool
	ObserverAddr string
	// Duration stops the loop after the given wall time. Zero runs until ctx
	// is cancelled.
	Duration time.Duration

	Logger *slog.Logger
	// Stdout receives the console sink. Defaults to os.Stdout.
	Stdout io.Writer
	// Lookup resolves environment overrides. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Run loads the configuration, builds the world and ticks it until ctx is
// done or opts.Duration elapses. The world is saved on the way out unless
// opts.NoSave is set.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	telemetryLogger := telemetry.WrapLogger(logger)

	cfg, err := LoadConfig(opts.ConfigPath, opts.Lookup, telemetryLogger)
	if err != nil {
		return err
	}
	if opts.Observe {
		cfg.Observer.Enabled = true
	}
	if opts.ObserverAddr != "" {
		cfg.Observer.Addr = opts.ObserverAddr
	}
	savePath := cfg.Simulation.SavePath
	if opts.SavePath != "" {
		savePath = opts.SavePath
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	namedSinks, err := BuildSinks(cfg.Logging, stdout, logger)
	if err != nil {
		return err
	}
	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.Logging.Sinks
	logConfig.BufferSize = cfg.Logging.BufferSize
	logConfig.MinimumSeverity = cfg.Logging.Severity()
	logConfig.JSON.FilePath = cfg.Logging.JSONPath
	logConfig.Console.ShowPayload = cfg.Logging.ShowPayload

	router, err := logging.NewRouter(nil, logConfig, namedSinks, logging.WithFallbackLogger(logger))
	if err != nil {
		return goerr.Wrap(err, "failed to construct logging router")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	session := uuid.NewString()
	pub := logging.WithSession(router, session)
	logger = logger.With("session", session)
	telemetryLogger = telemetry.WrapLogger(logger)

	library, err := LoadLibrary(cfg.Simulation.Routines)
	if err != nil {
		return err
	}

	metrics := telemetry.NewCounters()
	var hub *observer.Hub
	deps := sim.Deps{
		Clock:     cfg.NewClock(),
		Library:   library,
		Publisher: pub,
		Metrics:   metrics,
		Logger:    telemetryLogger,
	}
	var world *sim.World
	if cfg.Observer.Enabled {
		hub = observer.NewHub(observer.Config{
			Publisher: pub,
			Metrics:   metrics,
			Logger:    telemetryLogger,
			Commands:  func(cmd sim.Command) error { return world.Enqueue(cmd) },
		})
		deps.AfterTick = hub.Broadcast
	}

	world, err = BuildWorld(ctx, cfg, deps)
	if err != nil {
		return err
	}
	if opts.LoadPath != "" {
		f, err := savegame.Load(ctx, world, opts.LoadPath, pub)
		if err != nil {
			return err
		}
		logger.Info("resumed world", "save_id", f.SaveID, "tick", f.World.Tick, "clock", f.World.Clock.Now)
	}

	if hub != nil {
		srv := &http.Server{
			Addr: cfg.Observer.Addr,
			Handler: observer.NewMux(hub, observer.MuxConfig{
				Frame:         world.Frame,
				Metrics:       metrics.Snapshot,
				TickRate:      cfg.Simulation.TickRate,
				Observability: observability.Config{EnablePprof: cfg.Observer.Pprof},
			}),
		}
		go func() {
			logger.Info("observer listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observer failed", "error", err)
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
	}

	runCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	logger.Info("simulation started",
		"npcs", len(world.NPCIDs()),
		"tick_rate", cfg.Simulation.TickRate,
		"clock", world.Clock().Now(),
	)
	runErr := world.Run(runCtx)
	logger.Info("simulation stopped", "tick", world.CurrentTick(), "clock", world.Clock().Now())
	metrics.LogTo(telemetryLogger)

	if !opts.NoSave && savePath != "" {
		f, err := savegame.Save(context.WithoutCancel(ctx), world, savePath, session, pub)
		if err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("world saved", "path", savePath, "save_id", f.SaveID)
	}
	return runErr
}

// LoadConfig reads path over the defaults and applies environment overrides.
func LoadConfig(path string, lookup func(string) (string, bool), logger telemetry.Logger) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.ApplyEnv(lookup, logger)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// LoadLibrary returns the bundled routines, layered with paths when any are
// given.
func LoadLibrary(paths []string) (*ai.Library, error) {
	if len(paths) == 0 {
		return ai.GlobalLibrary, nil
	}
	library, err := ai.LoadLibrary()
	if err != nil {
		return nil, err
	}
	if err := library.LoadPaths(paths...); err != nil {
		return nil, err
	}
	return library, nil
}

// BuildWorld constructs a world from cfg and populates its doors, stations
// and NPCs.
func BuildWorld(ctx context.Context, cfg config.Config, deps sim.Deps) (*sim.World, error) {
	world := sim.New(cfg.World(), deps)
	for _, d := range cfg.Doors {
		if _, err := world.AddDoor(d.Spec()); err != nil {
			return nil, goerr.Wrap(err, "add door", goerr.V("door", d.ID))
		}
	}
	for _, s := range cfg.Stations {
		if _, err := world.AddStation(s.Spec()); err != nil {
			return nil, goerr.Wrap(err, "add station", goerr.V("station", s.ID))
		}
	}
	for _, n := range cfg.NPCs {
		if _, err := world.SpawnNPC(ctx, n.Spec()); err != nil {
			return nil, goerr.Wrap(err, "spawn npc", goerr.V("npc", n.ID))
		}
	}
	return world, nil
}

// BuildSinks opens the sinks named by cfg.
func BuildSinks(cfg config.LoggingConfig, stdout io.Writer, logger *slog.Logger) ([]logging.NamedSink, error) {
	named := make([]logging.NamedSink, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		switch name {
		case logging.SinkConsole:
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewConsoleSink(stdout, logging.ConsoleConfig{ShowPayload: cfg.ShowPayload}),
			})
		case logging.SinkJSON:
			if cfg.JSONPath == "" {
				return nil, goerr.New("json sink needs a file path")
			}
			fh, err := os.OpenFile(cfg.JSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, goerr.Wrap(err, "open json event log", goerr.V("path", cfg.JSONPath))
			}
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewJSON(fh, logging.DefaultConfig().JSON.FlushInterval),
			})
		case logging.SinkSlog:
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewSlogSink(logger)})
		default:
			return nil, goerr.New("unknown sink", goerr.V("sink", name))
		}
	}
	return named, nil
}

// Check reports the first problem that would stop Run from building a world
// out of the configuration at path.
func Check(ctx context.Context, path string, lookup func(string) (string, bool)) (config.Config, error) {
	cfg, err := LoadConfig(path, lookup, nil)
	if err != nil {
		return config.Config{}, err
	}
	library, err := LoadLibrary(cfg.Simulation.Routines)
	if err != nil {
		return config.Config{}, err
	}
	for _, n := range cfg.NPCs {
		if _, ok := library.Routine(n.Routine); !ok {
			return config.Config{}, goerr.New("unknown routine", goerr.V("npc", n.ID), goerr.V("routine", n.Routine))
		}
	}
	if _, err := BuildWorld(ctx, cfg, sim.Deps{Clock: cfg.NewClock(), Library: library}); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
