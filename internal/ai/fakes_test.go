package ai

import (
	"context"
	"testing"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	"github.com/Yuliya3k/spacegame-sub000/logging/sinks"
)

type fakeNav struct {
	onSurface bool
	reachable bool
	remaining float64
	issued    []actor.Vec3
}

func newFakeNav() *fakeNav {
	return &fakeNav{onSurface: true, reachable: true, remaining: 10}
}

func (f *fakeNav) SetDestination(pos actor.Vec3) bool {
	f.issued = append(f.issued, pos)
	return f.reachable
}

func (f *fakeNav) HasArrived(stop float64) bool { return f.remaining <= stop }

func (f *fakeNav) Remaining() float64 { return f.remaining }

func (f *fakeNav) IsOnNavigableSurface() bool { return f.onSurface }

type fakeDoor struct {
	open     bool
	toggles  int
	duration float64
}

func (d *fakeDoor) Toggle() {
	d.open = !d.open
	d.toggles++
}

func (d *fakeDoor) IsOpen() bool { return d.open }

func (d *fakeDoor) OpenDuration() float64 { return d.duration }

type fakeStation struct {
	calls int
	done  chan error
}

func newFakeStation() *fakeStation {
	return &fakeStation{done: make(chan error, 1)}
}

func (s *fakeStation) ExecuteInteraction(context.Context, actor.Actor) <-chan error {
	s.calls++
	return s.done
}

type fakeResolver struct {
	doors    map[string]*fakeDoor
	stations map[string]*fakeStation
}

func (r fakeResolver) Door(id string) (Door, bool) {
	d, ok := r.doors[id]
	if !ok {
		return nil, false
	}
	return d, true
}

func (r fakeResolver) Interaction(id string) (InteractionTarget, bool) {
	s, ok := r.stations[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// scriptTask completes after a fixed number of steps and records each step
// in a shared trace.
type scriptTask struct {
	progress
	steps    int
	err      error
	panicMsg string
	trace    *[]string
}

func newScript(name string, steps int, trace *[]string) *scriptTask {
	return &scriptTask{progress: progress{name: name}, steps: steps, trace: trace}
}

func (s *scriptTask) Kind() Kind { return Kind("script") }

func (s *scriptTask) Execute(*Env) (bt.Status, error) {
	if s.complete {
		return bt.Success, nil
	}
	if s.trace != nil {
		*s.trace = append(*s.trace, s.name)
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.waypoint++
	if s.waypoint < s.steps {
		return bt.Running, nil
	}
	return s.finish(s.err)
}

func (s *scriptTask) ResetTask() { s.resetProgress() }

func (s *scriptTask) GetState() TaskState { return s.captureState(s.Kind()) }

func (s *scriptTask) SetState(st TaskState) { s.applyState(st) }

// scriptDef lets planner tests inject prepared task instances.
type scriptDef struct {
	task Task
}

func (d scriptDef) Kind() Kind                         { return d.task.Kind() }
func (d scriptDef) Label() string                      { return d.task.Name() }
func (d scriptDef) instantiate(Resolver) (Task, error) { return d.task, nil }

func testClock() *clock.VirtualClock {
	return clock.New(clock.DefaultEpoch, clock.DefaultMultiplier, 1)
}

func testEnv(t *testing.T, a actor.Actor, dt float64) (*Env, *sinks.MemorySink) {
	t.Helper()
	sink := sinks.NewMemorySink()
	return &Env{
		Ctx:       context.Background(),
		Actor:     a,
		Nav:       newFakeNav(),
		Clock:     testClock(),
		Delta:     dt,
		Publisher: sink,
		Ref:       logging.NPCRef(a.ID()),
	}, sink
}

func runUntilDone(t *testing.T, task Task, env *Env, limit int) (int, bt.Status, error) {
	t.Helper()
	for i := 1; i <= limit; i++ {
		status, err := task.Execute(env)
		if status != bt.Running || err != nil {
			return i, status, err
		}
	}
	t.Fatalf("task %q still running after %d steps", task.Name(), limit)
	return 0, bt.Running, nil
}
