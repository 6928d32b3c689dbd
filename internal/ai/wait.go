package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"
)

// Wait idles for a number of in-world minutes. Elapsed time is tracked in
// real seconds and only accumulates while the clock runs.
type Wait struct {
	progress
	minutes float64

	stallReported bool
}

func NewWait(name string, minutes float64) *Wait {
	return &Wait{progress: progress{name: name}, minutes: minutes}
}

func (w *Wait) Kind() Kind { return KindWait }

// Minutes is the configured in-world duration.
func (w *Wait) Minutes() float64 { return w.minutes }

func (w *Wait) Execute(env *Env) (bt.Status, error) {
	if w.complete {
		return bt.Success, nil
	}
	if env == nil || env.Clock == nil {
		return w.finish(goerr.Wrap(ErrMissingCapability, "wait requires a clock", goerr.V("task", w.name)))
	}
	duration, ok, err := realDuration(env, w.name, w.minutes, &w.stallReported)
	if err != nil {
		return w.finish(err)
	}
	if !ok {
		return bt.Running, nil
	}
	if env.Delta > 0 {
		w.elapsed += env.Delta
	}
	if w.elapsed+timeEpsilon >= duration {
		return w.finish(nil)
	}
	return bt.Running, nil
}

func (w *Wait) ResetTask() {
	w.resetProgress()
	w.stallReported = false
}

func (w *Wait) GetState() TaskState { return w.captureState(KindWait) }

func (w *Wait) SetState(s TaskState) {
	w.applyState(s)
	w.stallReported = false
}
