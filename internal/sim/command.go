package sim

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging/simulation"
)

// CommandType enumerates the world controls accepted between ticks.
type CommandType string

const (
	CommandFreeze        CommandType = "Freeze"
	CommandUnfreeze      CommandType = "Unfreeze"
	CommandToggleDoor    CommandType = "ToggleDoor"
	CommandSetMultiplier CommandType = "SetMultiplier"
	CommandSetScale      CommandType = "SetScale"
	CommandPause         CommandType = "Pause"
	CommandResume        CommandType = "Resume"
)

// Command represents an intent captured for processing on the next tick.
// Target names the NPC or door; Value carries the clock setting.
type Command struct {
	Type     CommandType `json:"type"`
	Target   string      `json:"target,omitempty"`
	Value    float64     `json:"value,omitempty"`
	IssuedAt time.Time   `json:"issuedAt,omitempty"`
}

const DefaultCommandCapacity = 64

var ErrCommandQueueFull = errors.New("sim: command queue full")

// Enqueue stages cmd for the start of the next tick.
func (w *World) Enqueue(cmd Command) error {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	if !w.commands.Push(cmd) {
		return goerr.Wrap(ErrCommandQueueFull, "enqueue command", goerr.V("type", cmd.Type), goerr.V("target", cmd.Target))
	}
	return nil
}

// applyCommandsLocked runs staged commands before the clock moves. Callers
// hold w.mu.
func (w *World) applyCommandsLocked(ctx context.Context) {
	for _, cmd := range w.commands.Drain() {
		if reason := w.applyLocked(cmd); reason != "" {
			w.metrics.Add(telemetry.MetricCommandsRejected, 1)
			simulation.CommandRejected(ctx, w.pub, w.tick, simulation.CommandRejectedPayload{
				Command: string(cmd.Type),
				Target:  cmd.Target,
				Reason:  reason,
			}, nil)
			continue
		}
		w.metrics.Add(telemetry.MetricCommandsApplied, 1)
	}
}

func (w *World) applyLocked(cmd Command) string {
	switch cmd.Type {
	case CommandFreeze, CommandUnfreeze:
		a, ok := w.byID[cmd.Target]
		if !ok {
			return "unknown npc"
		}
		a.npc.SetFrozen(cmd.Type == CommandFreeze)
	case CommandToggleDoor:
		w.objMu.RLock()
		door, ok := w.doors[cmd.Target]
		w.objMu.RUnlock()
		if !ok {
			return "unknown door"
		}
		door.Toggle()
	case CommandSetMultiplier:
		if cmd.Value < 0 {
			return "negative multiplier"
		}
		w.clock.SetMultiplier(cmd.Value)
	case CommandSetScale:
		if cmd.Value < 0 {
			return "negative scale"
		}
		w.clock.SetScale(cmd.Value)
	case CommandPause:
		w.clock.Pause()
	case CommandResume:
		w.clock.Resume()
	default:
		return "unknown command"
	}
	return ""
}
