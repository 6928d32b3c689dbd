package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"
)

// Interact hands the step to an external interaction target and polls its
// completion channel once per tick. External interactions are not
// resumable: a restored, unfinished Interact starts the interaction again.
// WaypointIndex counts how many times the interaction was started.
type Interact struct {
	progress
	targetID string
	target   InteractionTarget

	done <-chan error
}

func NewInteract(name, targetID string, target InteractionTarget) *Interact {
	return &Interact{progress: progress{name: name}, targetID: targetID, target: target}
}

func (i *Interact) Kind() Kind { return KindInteract }

func (i *Interact) TargetID() string { return i.targetID }

func (i *Interact) Execute(env *Env) (bt.Status, error) {
	if i.complete {
		return bt.Success, nil
	}
	if i.target == nil || env == nil || env.Actor == nil {
		return i.finish(goerr.Wrap(ErrMissingCapability, "interaction target is not bound", goerr.V("target", i.targetID)))
	}
	if i.done == nil {
		i.done = i.target.ExecuteInteraction(env.context(), env.Actor)
		i.waypoint++
		if i.done == nil {
			return i.finish(nil)
		}
	}
	if env.Delta > 0 {
		i.elapsed += env.Delta
	}
	select {
	case err, ok := <-i.done:
		i.done = nil
		if ok && err != nil {
			return i.finish(goerr.Wrap(err, "interaction failed", goerr.V("target", i.targetID)))
		}
		return i.finish(nil)
	default:
		return bt.Running, nil
	}
}

func (i *Interact) ResetTask() {
	i.resetProgress()
	i.done = nil
}

func (i *Interact) GetState() TaskState { return i.captureState(KindInteract) }

func (i *Interact) SetState(s TaskState) {
	i.applyState(s)
	i.done = nil
}
