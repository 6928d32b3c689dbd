package ai

import (
	"context"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/logging"
)

// Kind identifies a task variant. The values double as the routine file
// block labels.
type Kind string

const (
	KindWait                Kind = "wait"
	KindMoveTo              Kind = "move_to"
	KindDoorToggle          Kind = "door"
	KindInteract            Kind = "interact"
	KindConditional         Kind = "conditional"
	KindConditionalSequence Kind = "conditional_sequence"
	KindScheduledWindow     Kind = "scheduled_window"
	KindEat                 Kind = "eat"
)

// Task is one resumable unit of work owned by a single planner.
//
// Execute performs one cooperative step and must not block. It returns
// bt.Running while work remains, bt.Success once complete, and bt.Failure
// (usually with an error) when the task completed in a failed state. Calling
// Execute on a complete task is a no-op returning bt.Success.
type Task interface {
	Kind() Kind
	Name() string
	Execute(env *Env) (bt.Status, error)
	// ResetTask clears progress, recursively.
	ResetTask()
	GetState() TaskState
	SetState(TaskState)
}

// Navigator is the movement capability MoveTo drives.
type Navigator interface {
	SetDestination(pos actor.Vec3) bool
	HasArrived(stoppingDistance float64) bool
	Remaining() float64
	IsOnNavigableSurface() bool
}

// Door is toggled by DoorToggle. OpenDuration is in real seconds.
type Door interface {
	Toggle()
	IsOpen() bool
	OpenDuration() float64
}

// InteractionTarget runs an external interaction. The returned channel
// receives the result, or is closed, when the interaction ends.
type InteractionTarget interface {
	ExecuteInteraction(ctx context.Context, a actor.Actor) <-chan error
}

// Resolver looks up the world objects task definitions refer to by id.
type Resolver interface {
	Door(id string) (Door, bool)
	Interaction(id string) (InteractionTarget, bool)
}

// Env is the per-tick execution context handed to tasks.
type Env struct {
	Ctx       context.Context
	Actor     actor.Actor
	Nav       Navigator
	Clock     *clock.VirtualClock
	Delta     float64
	Tick      uint64
	Publisher logging.Publisher
	Ref       logging.EntityRef
}

func (e *Env) context() context.Context {
	if e == nil || e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) publisher() logging.Publisher {
	if e == nil || e.Publisher == nil {
		return logging.NopPublisher()
	}
	return e.Publisher
}

// progress holds the fields every task persists. Composite tasks embed it and
// add their children.
type progress struct {
	name     string
	elapsed  float64
	waypoint int
	phase    int
	complete bool
}

func (p *progress) Name() string { return p.name }

func (p *progress) resetProgress() {
	p.elapsed = 0
	p.waypoint = 0
	p.phase = 0
	p.complete = false
}

func (p *progress) captureState(kind Kind) TaskState {
	return TaskState{
		Name:          p.name,
		Kind:          kind,
		Elapsed:       p.elapsed,
		WaypointIndex: p.waypoint,
		Phase:         p.phase,
		Complete:      p.complete,
	}
}

func (p *progress) applyState(s TaskState) {
	p.elapsed = s.Elapsed
	p.waypoint = s.WaypointIndex
	p.phase = s.Phase
	p.complete = s.Complete
}

// finish marks the task complete and maps err onto a terminal status.
func (p *progress) finish(err error) (bt.Status, error) {
	p.complete = true
	if err != nil {
		return bt.Failure, err
	}
	return bt.Success, nil
}

// timeEpsilon absorbs float drift when summing many tick deltas.
const timeEpsilon = 1e-9
