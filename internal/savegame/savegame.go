// Package savegame reads and writes world saves as JSON files.
package savegame

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/sim"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	"github.com/Yuliya3k/spacegame-sub000/logging/lifecycle"
)

// Version is the save format written by Encode.
const Version = 1

var (
	ErrUnsupportedVersion = errors.New("savegame: unsupported version")
	ErrEmptySave          = errors.New("savegame: empty save")
)

// File is the on-disk save.
type File struct {
	Version int       `json:"version"`
	SaveID  string    `json:"saveId"`
	Session string    `json:"session,omitempty"`
	SavedAt time.Time `json:"savedAt"`
	World   sim.State `json:"world"`
}

// New wraps a world state in a file with a fresh save id.
func New(state sim.State, session string, now time.Time) File {
	return File{
		Version: Version,
		SaveID:  uuid.NewString(),
		Session: session,
		SavedAt: now.UTC(),
		World:   state,
	}
}

// Encode writes f as indented JSON.
func Encode(w io.Writer, f File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return goerr.Wrap(err, "encode save", goerr.V("save_id", f.SaveID))
	}
	return nil
}

// Decode reads a save and checks its version.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, ErrEmptySave
		}
		return File{}, goerr.Wrap(err, "decode save")
	}
	if f.Version != Version {
		return File{}, goerr.Wrap(ErrUnsupportedVersion, "decode save", goerr.V("version", f.Version), goerr.V("supported", Version))
	}
	return f, nil
}

// Write stores f at path through a temporary file so a crash never leaves a
// truncated save behind.
func Write(path string, f File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "create save directory", goerr.V("dir", dir))
	}
	tmp, err := os.CreateTemp(dir, ".save-*.json")
	if err != nil {
		return goerr.Wrap(err, "create temporary save", goerr.V("dir", dir))
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, f); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "close temporary save", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "replace save", goerr.V("path", path))
	}
	return nil
}

// Read loads the save at path.
func Read(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, goerr.Wrap(err, "open save", goerr.V("path", path))
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return File{}, goerr.Wrap(err, "read save", goerr.V("path", path))
	}
	return f, nil
}

// Save captures w and writes it to path.
func Save(ctx context.Context, w *sim.World, path, session string, pub logging.Publisher) (File, error) {
	state := w.Save()
	f := New(state, session, time.Now())
	if err := Write(path, f); err != nil {
		return File{}, err
	}
	lifecycle.WorldSaved(ctx, pub, state.Tick, lifecycle.WorldSnapshotPayload{
		SaveID: f.SaveID,
		NPCs:   len(state.NPCs),
		Clock:  state.Clock.Now.Format(time.RFC3339),
	}, map[string]any{"path": path})
	return f, nil
}

// Load reads the save at path and applies it to w.
func Load(ctx context.Context, w *sim.World, path string, pub logging.Publisher) (File, error) {
	f, err := Read(path)
	if err != nil {
		return File{}, err
	}
	if err := w.Restore(ctx, f.World); err != nil {
		return File{}, goerr.Wrap(err, "restore world", goerr.V("save_id", f.SaveID))
	}
	lifecycle.WorldRestored(ctx, pub, f.World.Tick, lifecycle.WorldSnapshotPayload{
		SaveID: f.SaveID,
		NPCs:   len(f.World.NPCs),
		Clock:  f.World.Clock.Now.Format(time.RFC3339),
	}, map[string]any{"path": path})
	return f, nil
}

// Summary is a short description of a save for inspection.
type Summary struct {
	SaveID  string
	SavedAt time.Time
	Clock   time.Time
	Tick    uint64
	NPCs    []NPCSummary
}

type NPCSummary struct {
	ID        string
	Routine   string
	TaskIndex int
	Tasks     int
	Frozen    bool
}

// Summarize describes f.
func Summarize(f File) Summary {
	s := Summary{
		SaveID:  f.SaveID,
		SavedAt: f.SavedAt,
		Clock:   f.World.Clock.Now,
		Tick:    f.World.Tick,
	}
	for _, npc := range f.World.NPCs {
		s.NPCs = append(s.NPCs, NPCSummary{
			ID:        npc.ID,
			Routine:   npc.Routine,
			TaskIndex: npc.Planner.CurrentTaskIndex,
			Tasks:     len(npc.Planner.TaskStates),
			Frozen:    npc.Frozen,
		})
	}
	return s
}
