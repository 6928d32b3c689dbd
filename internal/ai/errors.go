package ai

import (
	"errors"

	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
)

// Failure conditions reported by tasks and the planner. Callers match them
// with errors.Is; context is attached with goerr.
var (
	// ErrTaskSkipped marks a nil or unresolvable task slot.
	ErrTaskSkipped = errors.New("task skipped")
	// ErrNavigationUnreachable is returned when no path exists or the actor
	// is off the navigable surface.
	ErrNavigationUnreachable = errors.New("navigation unreachable")
	// ErrUnknownStat is returned when a condition names a stat the actor
	// does not expose.
	ErrUnknownStat = errors.New("unknown stat")
	// ErrRestoreShapeMismatch is reported when a snapshot does not match the
	// planner's task list.
	ErrRestoreShapeMismatch = errors.New("restore shape mismatch")
	// ErrResourceUnavailable is returned when a task needs a resource the
	// actor does not have, such as food.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrMissingCapability is returned when the actor or environment lacks a
	// capability a task needs.
	ErrMissingCapability = errors.New("missing capability")
	// ErrUnknownKind is returned for task kinds the library does not know.
	ErrUnknownKind = errors.New("unknown task kind")
	// ErrInvalidDefinition is returned for malformed task definitions.
	ErrInvalidDefinition = errors.New("invalid task definition")
	// ErrTaskPanicked wraps a recovered panic from a task step.
	ErrTaskPanicked = errors.New("task panicked")
)

// ErrClockStalled is re-exported so callers of this package need not import
// the clock for matching.
var ErrClockStalled = clock.ErrClockStalled
