package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/nav"
	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

// detourArriveDistance is how close a side-step waypoint must be reached
// before the real destination is re-issued.
const detourArriveDistance = 0.25

// MoveTo walks the actor to a target through the Navigator. WaypointIndex
// persists the number of stuck-recovery side-steps used so far.
type MoveTo struct {
	progress
	target   actor.Vec3
	stop     float64
	recovery *nav.StuckRecovery

	issued bool
	detour bool
}

// NewMoveTo builds a MoveTo. recovery may be nil.
func NewMoveTo(name string, target actor.Vec3, stoppingDistance float64, recovery *nav.StuckRecovery) *MoveTo {
	return &MoveTo{
		progress: progress{name: name},
		target:   target,
		stop:     stoppingDistance,
		recovery: recovery,
	}
}

func (m *MoveTo) Kind() Kind { return KindMoveTo }

func (m *MoveTo) Target() actor.Vec3 { return m.target }

func (m *MoveTo) StoppingDistance() float64 { return m.stop }

func (m *MoveTo) Execute(env *Env) (bt.Status, error) {
	if m.complete {
		return bt.Success, nil
	}
	if env == nil || env.Actor == nil || env.Nav == nil {
		return m.finish(goerr.Wrap(ErrMissingCapability, "move_to requires an actor and a navigator", goerr.V("task", m.name)))
	}
	pos := env.Actor.Position()
	if pos.PlanarDist(m.target) <= m.stop {
		return m.finish(nil)
	}
	if !env.Nav.IsOnNavigableSurface() {
		return m.unreachable(env, "actor is off the navigable surface")
	}
	if !m.issued {
		if !env.Nav.SetDestination(m.target) {
			return m.unreachable(env, "no path to target")
		}
		m.issued = true
		m.detour = false
		if m.recovery != nil {
			m.recovery.Reset()
			m.recovery.SetAttempts(m.waypoint)
		}
		return bt.Running, nil
	}

	if m.detour {
		if env.Nav.HasArrived(detourArriveDistance) {
			m.detour = false
			if !env.Nav.SetDestination(m.target) {
				return m.unreachable(env, "no path to target after side-step")
			}
		}
	} else if env.Nav.HasArrived(0) {
		// The navigator ran out of path short of the target, so the plan
		// ended on an alternative goal.
		return m.unreachable(env, "path ends outside stopping distance")
	}

	if m.recovery != nil {
		if waypoint, stuck := m.recovery.Observe(pos, m.target); stuck {
			m.waypoint = m.recovery.Attempts()
			tasks.StuckRecovery(env.context(), env.publisher(), env.Tick, env.Ref, tasks.StuckRecoveryPayload{
				Task:     m.name,
				Attempt:  m.waypoint,
				Waypoint: [3]float64{waypoint.X, waypoint.Y, waypoint.Z},
			}, nil)
			if env.Nav.SetDestination(waypoint) {
				m.detour = true
			} else if !env.Nav.SetDestination(m.target) {
				return m.unreachable(env, "no path to target after failed side-step")
			}
		} else if m.recovery.Exhausted() && m.recovery.Stalled() {
			return m.unreachable(env, "stuck recovery exhausted")
		}
	}
	return bt.Running, nil
}

func (m *MoveTo) unreachable(env *Env, reason string) (bt.Status, error) {
	tasks.NavigationUnreachable(env.context(), env.publisher(), env.Tick, env.Ref, tasks.UnreachablePayload{
		Task:   m.name,
		Target: [3]float64{m.target.X, m.target.Y, m.target.Z},
		Reason: reason,
	}, nil)
	return m.finish(goerr.Wrap(ErrNavigationUnreachable, reason, goerr.V("task", m.name), goerr.V("target", m.target)))
}

func (m *MoveTo) ResetTask() {
	m.resetProgress()
	m.issued = false
	m.detour = false
	if m.recovery != nil {
		m.recovery.Reset()
	}
}

func (m *MoveTo) GetState() TaskState { return m.captureState(KindMoveTo) }

// SetState restores progress. The destination is re-issued on the next step
// because navigator paths are not persisted.
func (m *MoveTo) SetState(s TaskState) {
	m.applyState(s)
	m.issued = false
	m.detour = false
}
