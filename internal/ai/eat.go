package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
)

// Eat consumes one food item per tick until stat reaches threshold.
// WaypointIndex counts the items eaten during this activation.
type Eat struct {
	progress
	stat      string
	threshold float64
}

func NewEat(name, stat string, threshold float64) *Eat {
	return &Eat{progress: progress{name: name}, stat: stat, threshold: threshold}
}

func (e *Eat) Kind() Kind { return KindEat }

// Resource names what Eat consumes.
func (e *Eat) Resource() string { return "food" }

func (e *Eat) Stat() string { return e.stat }

func (e *Eat) Threshold() float64 { return e.threshold }

func (e *Eat) Execute(env *Env) (bt.Status, error) {
	if e.complete {
		return bt.Success, nil
	}
	if env == nil || env.Actor == nil {
		return e.finish(goerr.Wrap(ErrMissingCapability, "eat requires an actor"))
	}
	value, ok := env.Actor.GetStat(e.stat)
	if !ok {
		return e.finish(goerr.Wrap(ErrUnknownStat, "eat stat", goerr.V("stat", e.stat)))
	}
	if value >= e.threshold {
		return e.finish(nil)
	}
	pantry, ok := env.Actor.(actor.Pantry)
	if !ok {
		return e.finish(goerr.Wrap(ErrMissingCapability, "actor has no pantry", goerr.V("actor", env.Actor.ID())))
	}
	writer, ok := env.Actor.(actor.StatWriter)
	if !ok {
		return e.finish(goerr.Wrap(ErrMissingCapability, "actor stats are read-only", goerr.V("actor", env.Actor.ID())))
	}
	food, ok := pantry.TakeFood()
	if !ok {
		return e.finish(goerr.Wrap(ErrResourceUnavailable, "pantry is empty",
			goerr.V("resource", "food"), goerr.V("stat", e.stat), goerr.V("value", value), goerr.V("threshold", e.threshold)))
	}
	writer.AddStat(e.stat, food)
	e.waypoint++
	if value, _ = env.Actor.GetStat(e.stat); value >= e.threshold {
		return e.finish(nil)
	}
	return bt.Running, nil
}

func (e *Eat) ResetTask() { e.resetProgress() }

func (e *Eat) GetState() TaskState { return e.captureState(KindEat) }

func (e *Eat) SetState(s TaskState) { e.applyState(s) }
