package ai

import (
	"errors"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

// realDuration converts virtual minutes into real seconds for a timed task.
// ok is false while the clock is stalled or paused; the stall is published
// once until the clock recovers.
func realDuration(env *Env, task string, minutes float64, stallReported *bool) (float64, bool, error) {
	duration, err := env.Clock.RealDurationFor(minutes)
	if err != nil {
		if !errors.Is(err, clock.ErrClockStalled) {
			return 0, false, goerr.Wrap(err, "convert duration", goerr.V("task", task))
		}
		if !*stallReported {
			*stallReported = true
			tasks.ClockStalled(env.context(), env.publisher(), env.Tick, env.Ref, tasks.ClockStalledPayload{
				Task:       task,
				Multiplier: env.Clock.Multiplier(),
				Scale:      env.Clock.Scale(),
			}, nil)
		}
		return 0, false, nil
	}
	*stallReported = false
	if env.Clock.Paused() {
		return 0, false, nil
	}
	return duration, true, nil
}

// resourceUser is implemented by tasks that consume a named resource.
type resourceUser interface {
	Resource() string
}

// reportFailure publishes a task that completed in a failed state. Running
// out of a resource is reported as blocked rather than failed.
func reportFailure(env *Env, index int, task Task, err error) {
	if task == nil {
		return
	}
	if err == nil {
		err = goerr.New("task failed", goerr.V("task", task.Name()))
	}
	ctx, pub := env.context(), env.publisher()
	if errors.Is(err, ErrResourceUnavailable) {
		resource := "unknown"
		if user, ok := task.(resourceUser); ok {
			resource = user.Resource()
		}
		tasks.TaskBlocked(ctx, pub, env.Tick, env.Ref, tasks.TaskBlockedPayload{
			Kind:     string(task.Kind()),
			Name:     task.Name(),
			Resource: resource,
		}, map[string]any{"index": index, "error": err.Error()})
		return
	}
	tasks.TaskFailed(ctx, pub, env.Tick, env.Ref, tasks.TaskFailedPayload{
		TaskPayload: tasks.TaskPayload{Index: index, Kind: string(task.Kind()), Name: task.Name()},
		Error:       err.Error(),
	}, nil)
}

// evaluateGate runs a composite task's condition. An unknown stat is
// published and treated as false.
func evaluateGate(env *Env, task string, cond Condition) (bool, error) {
	pass, err := cond.Evaluate(env)
	if err == nil {
		return pass, nil
	}
	if errors.Is(err, ErrUnknownStat) {
		tasks.UnknownStat(env.context(), env.publisher(), env.Tick, env.Ref, tasks.UnknownStatPayload{
			Task: task,
			Stat: cond.Stat,
		}, map[string]any{"error": err.Error()})
		return false, nil
	}
	return false, err
}

// childResult turns a finished child step into the error its parent reports.
func childResult(status bt.Status, err error, child Task) error {
	if status == bt.Failure && err == nil {
		return goerr.New("child task failed", goerr.V("task", child.Name()))
	}
	return err
}
