package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Yuliya3k/spacegame-sub000/internal/config"
	"github.com/Yuliya3k/spacegame-sub000/internal/savegame"
	"github.com/Yuliya3k/spacegame-sub000/logging"
)

func noEnv(string) (string, bool) { return "", false }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSavesWorldOnExit(t *testing.T) {
	dir := t.TempDir()
	savePath := filepath.Join(dir, "save.json")
	var console bytes.Buffer

	err := Run(context.Background(), Options{
		SavePath: savePath,
		Duration: 300 * time.Millisecond,
		Logger:   quietLogger(),
		Stdout:   &console,
		Lookup:   noEnv,
	})
	require.NoError(t, err)

	f, err := savegame.Read(savePath)
	require.NoError(t, err)
	require.NotEmpty(t, f.Session)
	require.Len(t, f.World.NPCs, len(config.DefaultConfig().NPCs))
	require.Positive(t, f.World.Tick)
	require.Contains(t, console.String(), "npc_spawned")
}

func TestRunResumesFromSave(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	opts := Options{
		SavePath: first,
		Duration: 300 * time.Millisecond,
		Logger:   quietLogger(),
		Stdout:   io.Discard,
		Lookup:   noEnv,
	}
	require.NoError(t, Run(context.Background(), opts))
	before, err := savegame.Read(first)
	require.NoError(t, err)

	opts.LoadPath = first
	opts.SavePath = second
	require.NoError(t, Run(context.Background(), opts))
	after, err := savegame.Read(second)
	require.NoError(t, err)

	require.Greater(t, after.World.Tick, before.World.Tick)
	require.True(t, after.World.Clock.Now.After(before.World.Clock.Now))
	require.NotEqual(t, before.Session, after.Session)
}

func TestRunWithoutSave(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "world.hcl")
	savePath := filepath.Join(dir, "never.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`simulation { save_path = "`+filepath.ToSlash(savePath)+`" }`), 0o644))

	err := Run(context.Background(), Options{
		ConfigPath: cfgPath,
		NoSave:     true,
		Duration:   50 * time.Millisecond,
		Logger:     quietLogger(),
		Stdout:     io.Discard,
		Lookup:     noEnv,
	})
	require.NoError(t, err)
	require.NoFileExists(t, savePath)
}

func TestRunRejectsMissingSave(t *testing.T) {
	err := Run(context.Background(), Options{
		LoadPath: filepath.Join(t.TempDir(), "missing.json"),
		NoSave:   true,
		Logger:   quietLogger(),
		Stdout:   io.Discard,
		Lookup:   noEnv,
	})
	require.Error(t, err)
}

func TestLoadConfigAppliesEnv(t *testing.T) {
	cfg, err := LoadConfig("", func(key string) (string, bool) {
		if key == config.EnvTickRate {
			return "25", true
		}
		return "", false
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Simulation.TickRate)
}

func TestBuildSinks(t *testing.T) {
	dir := t.TempDir()
	named, err := BuildSinks(config.LoggingConfig{
		Sinks:    []string{logging.SinkConsole, logging.SinkJSON, logging.SinkSlog},
		JSONPath: filepath.Join(dir, "events.jsonl"),
	}, io.Discard, quietLogger())
	require.NoError(t, err)
	require.Len(t, named, 3)
	for _, n := range named {
		require.NoError(t, n.Sink.Close(context.Background()))
	}
	require.FileExists(t, filepath.Join(dir, "events.jsonl"))

	_, err = BuildSinks(config.LoggingConfig{Sinks: []string{logging.SinkJSON}}, io.Discard, nil)
	require.Error(t, err)
}

func TestCheckDefaultConfig(t *testing.T) {
	cfg, err := Check(context.Background(), "", noEnv)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().NPCs, cfg.NPCs)
}

func TestCheckRejectsUnknownRoutine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
npc "zed" {
  routine  = "no_such_routine"
  position = [5.5, 5.5]
}
`), 0o644))
	_, err := Check(context.Background(), path, noEnv)
	require.Error(t, err)
}
