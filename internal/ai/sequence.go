package ai

import (
	bt "github.com/joeycumines/go-behaviortree"

	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

// ConditionalSequence gates an ordered list of children on a condition and
// runs them one after another. WaypointIndex is the child cursor. A child
// that fails is reported and the sequence moves on.
type ConditionalSequence struct {
	progress
	cond     Condition
	children []Task
	// childErrs explains why a child slot is empty.
	childErrs []error
}

func NewConditionalSequence(name string, cond Condition, children []Task) *ConditionalSequence {
	return &ConditionalSequence{progress: progress{name: name}, cond: cond, children: children}
}

func (s *ConditionalSequence) Kind() Kind { return KindConditionalSequence }

func (s *ConditionalSequence) Condition() Condition { return s.cond }

func (s *ConditionalSequence) Children() []Task { return s.children }

func (s *ConditionalSequence) Execute(env *Env) (bt.Status, error) {
	if s.complete {
		return bt.Success, nil
	}
	if s.phase == gatePending {
		pass, err := evaluateGate(env, s.name, s.cond)
		if err != nil {
			return s.finish(err)
		}
		if !pass {
			s.phase = gateRejected
			return s.finish(nil)
		}
		s.phase = gatePassed
		s.enter(s.waypoint)
	}
	if s.phase != gatePassed {
		return s.finish(nil)
	}
	// Empty slots are passed over within the same step.
	for s.waypoint < len(s.children) && s.children[s.waypoint] == nil {
		tasks.TaskSkipped(env.context(), env.publisher(), env.Tick, env.Ref, tasks.TaskSkippedPayload{
			Index:  s.waypoint,
			Reason: s.skipReason(s.waypoint),
		}, nil)
		s.advance()
	}
	if s.waypoint >= len(s.children) {
		return s.finish(nil)
	}

	child := s.children[s.waypoint]
	status, err := child.Execute(env)
	if status == bt.Running && err == nil {
		return bt.Running, nil
	}
	if status == bt.Failure || err != nil {
		reportFailure(env, s.waypoint, child, childResult(status, err, child))
	}
	s.advance()
	if s.waypoint >= len(s.children) {
		return s.finish(nil)
	}
	return bt.Running, nil
}

func (s *ConditionalSequence) skipReason(i int) string {
	reason := "empty child slot in " + s.name
	if i < len(s.childErrs) && s.childErrs[i] != nil {
		reason += ": " + s.childErrs[i].Error()
	}
	return reason
}

// advance moves the cursor and resets the child it lands on, so a snapshot
// taken between children never carries a stale completed state.
func (s *ConditionalSequence) advance() {
	s.waypoint++
	s.enter(s.waypoint)
}

func (s *ConditionalSequence) enter(i int) {
	if i >= 0 && i < len(s.children) && s.children[i] != nil {
		s.children[i].ResetTask()
	}
}

func (s *ConditionalSequence) ResetTask() {
	s.resetProgress()
	for _, child := range s.children {
		if child != nil {
			child.ResetTask()
		}
	}
}

func (s *ConditionalSequence) GetState() TaskState {
	st := s.captureState(KindConditionalSequence)
	st.SubStates = captureChildren(s.children)
	return st
}

// SetState restores the cursor and every child. The child at the cursor
// resumes where it was saved.
func (s *ConditionalSequence) SetState(st TaskState) {
	s.applyState(st)
	applyChildren(s.children, st.SubStates)
}
