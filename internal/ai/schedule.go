package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"
)

// Window is an in-world hour range [Start, End). Windows crossing midnight
// are not supported.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (w Window) validate() error {
	if w.Start < 0 || w.Start > 23 || w.End < 1 || w.End > 24 || w.End <= w.Start {
		return goerr.Wrap(ErrInvalidDefinition, "window hours out of range", goerr.V("start", w.Start), goerr.V("end", w.End))
	}
	return nil
}

// ScheduledWindow stages, persisted in TaskState.Phase.
const (
	windowAwaitStart = iota
	windowInitialFill
	windowAwaitRecheck
	windowPeriodicFill
	windowFinalFill
)

// ScheduledWindow runs a fill task at the start of each window, every
// recheck interval while the window is open, and once more when it closes.
// WaypointIndex is the window cursor, Elapsed the recheck timer in real
// seconds and SubStates[0] the fill task.
type ScheduledWindow struct {
	progress
	windows []Window
	recheck float64
	fill    Task

	stallReported bool
}

func NewScheduledWindow(name string, windows []Window, recheckMinutes float64, fill Task) *ScheduledWindow {
	return &ScheduledWindow{
		progress: progress{name: name},
		windows:  append([]Window(nil), windows...),
		recheck:  recheckMinutes,
		fill:     fill,
	}
}

func (s *ScheduledWindow) Kind() Kind { return KindScheduledWindow }

func (s *ScheduledWindow) Windows() []Window { return append([]Window(nil), s.windows...) }

func (s *ScheduledWindow) RecheckMinutes() float64 { return s.recheck }

func (s *ScheduledWindow) Children() []Task {
	if s.fill == nil {
		return nil
	}
	return []Task{s.fill}
}

func (s *ScheduledWindow) Execute(env *Env) (bt.Status, error) {
	if s.complete {
		return bt.Success, nil
	}
	if env == nil || env.Clock == nil {
		return s.finish(goerr.Wrap(ErrMissingCapability, "scheduled window requires a clock", goerr.V("task", s.name)))
	}
	if s.waypoint >= len(s.windows) {
		return s.finish(nil)
	}
	window := s.windows[s.waypoint]

	switch s.phase {
	case windowAwaitStart:
		if env.Clock.Hour() < window.Start {
			return bt.Running, nil
		}
		s.startFill(windowInitialFill)
	case windowAwaitRecheck:
		if env.Clock.Hour() >= window.End {
			s.startFill(windowFinalFill)
			break
		}
		duration, ok, err := realDuration(env, s.name, s.recheck, &s.stallReported)
		if err != nil {
			return s.finish(err)
		}
		if !ok {
			return bt.Running, nil
		}
		if env.Delta > 0 {
			s.elapsed += env.Delta
		}
		if s.elapsed+timeEpsilon < duration {
			return bt.Running, nil
		}
		s.startFill(windowPeriodicFill)
	}

	if !s.runFill(env) {
		return bt.Running, nil
	}
	if s.phase != windowFinalFill {
		s.phase = windowAwaitRecheck
		s.elapsed = 0
		return bt.Running, nil
	}
	s.waypoint++
	s.phase = windowAwaitStart
	s.elapsed = 0
	if s.waypoint >= len(s.windows) {
		return s.finish(nil)
	}
	return bt.Running, nil
}

func (s *ScheduledWindow) startFill(phase int) {
	s.phase = phase
	s.elapsed = 0
	if s.fill != nil {
		s.fill.ResetTask()
	}
}

// runFill steps the fill task and reports whether this round is over. A
// failed fill, including one blocked on resources, still ends the round.
func (s *ScheduledWindow) runFill(env *Env) bool {
	if s.fill == nil {
		return true
	}
	status, err := s.fill.Execute(env)
	if status == bt.Running && err == nil {
		return false
	}
	if status == bt.Failure || err != nil {
		reportFailure(env, s.waypoint, s.fill, childResult(status, err, s.fill))
	}
	return true
}

func (s *ScheduledWindow) ResetTask() {
	s.resetProgress()
	s.stallReported = false
	if s.fill != nil {
		s.fill.ResetTask()
	}
}

func (s *ScheduledWindow) GetState() TaskState {
	st := s.captureState(KindScheduledWindow)
	st.SubStates = captureChildren(s.Children())
	return st
}

func (s *ScheduledWindow) SetState(st TaskState) {
	s.applyState(st)
	s.stallReported = false
	applyChildren(s.Children(), st.SubStates)
}
