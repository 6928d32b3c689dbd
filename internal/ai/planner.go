package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/clock"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging"
	"github.com/Yuliya3k/spacegame-sub000/logging/simulation"
	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

// PlannerConfig wires a planner to one actor and its collaborators.
type PlannerConfig struct {
	// Ref identifies the actor in events. Defaults to an NPC reference
	// built from Actor.ID().
	Ref       logging.EntityRef
	Actor     actor.Actor
	Navigator Navigator
	Clock     *clock.VirtualClock
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Resolver  Resolver

	Routine string
	Loop    bool
	Tasks   []Definition

	OnTaskStart    func(index int, task Task)
	OnTaskComplete func(index int, task Task, err error)
}

// Planner drives an actor through an ordered list of tasks, one cooperative
// step per Tick. It owns its task graph; nothing is shared with other
// planners except the clock.
type Planner struct {
	mu sync.Mutex

	ref      logging.EntityRef
	actor    actor.Actor
	nav      Navigator
	clock    *clock.VirtualClock
	pub      logging.Publisher
	metrics  telemetry.Metrics
	routine  string
	loop     bool
	onStart  func(int, Task)
	onFinish func(int, Task, error)

	tasks    []Task
	slotErrs []error

	idx      int
	entered  bool
	exiting  bool
	resume   bool
	finished bool
	// idle is set once a looping pass found no runnable slot.
	idle    bool
	lastPos actor.Vec3
	ticks   uint64
}

// NewPlanner instantiates cfg.Tasks for this planner. Definitions that
// cannot be built leave empty slots which are skipped at run time.
func NewPlanner(cfg PlannerConfig) *Planner {
	p := &Planner{
		ref:      cfg.Ref,
		actor:    cfg.Actor,
		nav:      cfg.Navigator,
		clock:    cfg.Clock,
		pub:      cfg.Publisher,
		metrics:  cfg.Metrics,
		routine:  cfg.Routine,
		loop:     cfg.Loop,
		onStart:  cfg.OnTaskStart,
		onFinish: cfg.OnTaskComplete,
	}
	if p.pub == nil {
		p.pub = logging.NopPublisher()
	}
	if p.metrics == nil {
		p.metrics = telemetry.NopMetrics()
	}
	if p.ref.ID == "" && cfg.Actor != nil {
		p.ref = logging.NPCRef(cfg.Actor.ID())
	}
	if cfg.Actor != nil {
		p.lastPos = cfg.Actor.Position()
	}
	p.tasks, p.slotErrs = instantiateSlots(cfg.Tasks, cfg.Resolver)
	for _, task := range p.tasks {
		if task != nil {
			task.ResetTask()
		}
	}
	return p
}

// Tick runs one cooperative step with dt real seconds since the previous
// tick. It returns true once a non-looping planner has finished.
func (p *Planner) Tick(ctx context.Context, dt float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ticks++
	if p.actor != nil {
		p.lastPos = p.actor.Position()
	}
	if p.finished {
		return true
	}
	if p.idle {
		return false
	}
	if len(p.tasks) == 0 {
		if !p.loop {
			p.finish(ctx)
		}
		return p.finished
	}

	if p.exiting {
		if p.frozen() {
			return false
		}
		p.advance(ctx)
		if p.finished {
			return true
		}
	}

	env := p.env(ctx, dt)
	if !p.entered {
		if p.frozen() {
			return false
		}
		for skipped := 0; p.tasks[p.idx] == nil; skipped++ {
			if skipped >= len(p.tasks) {
				p.idle = true
				return false
			}
			p.skip(env)
			p.advance(ctx)
			if p.finished {
				return true
			}
		}
		p.enter(env)
	}

	task := p.tasks[p.idx]
	status, err := p.step(task, env)
	if status == bt.Running && err == nil {
		return false
	}
	p.complete(env, task, status, err)
	if !p.frozen() {
		p.advance(ctx)
	}
	return p.finished
}

func (p *Planner) env(ctx context.Context, dt float64) *Env {
	return &Env{
		Ctx:       ctx,
		Actor:     p.actor,
		Nav:       p.nav,
		Clock:     p.clock,
		Delta:     dt,
		Tick:      p.ticks,
		Publisher: p.pub,
		Ref:       p.ref,
	}
}

func (p *Planner) frozen() bool {
	return p.actor != nil && p.actor.IsFrozen()
}

func (p *Planner) skip(env *Env) {
	reason := "empty task slot"
	if p.idx < len(p.slotErrs) && p.slotErrs[p.idx] != nil {
		reason = p.slotErrs[p.idx].Error()
	}
	tasks.TaskSkipped(env.context(), p.pub, env.Tick, p.ref, tasks.TaskSkippedPayload{Index: p.idx, Reason: reason}, nil)
	p.metrics.Add(telemetry.MetricTasksSkipped, 1)
	p.resume = false
}

func (p *Planner) enter(env *Env) {
	task := p.tasks[p.idx]
	resumed := p.resume
	if !resumed {
		task.ResetTask()
	}
	p.resume = false
	p.entered = true
	tasks.TaskStarted(env.context(), p.pub, env.Tick, p.ref, tasks.TaskPayload{
		Index:   p.idx,
		Kind:    string(task.Kind()),
		Name:    task.Name(),
		Resumed: resumed,
	}, nil)
	if p.onStart != nil {
		p.onStart(p.idx, task)
	}
}

// step executes the task, turning a panic into a failure so one broken task
// cannot take down the tick loop.
func (p *Planner) step(task Task, env *Env) (status bt.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = bt.Failure
			err = goerr.Wrap(ErrTaskPanicked, fmt.Sprint(r), goerr.V("index", p.idx), goerr.V("kind", task.Kind()))
		}
	}()
	return task.Execute(env)
}

func (p *Planner) complete(env *Env, task Task, status bt.Status, err error) {
	if state := task.GetState(); !state.Complete {
		state.Complete = true
		task.SetState(state)
	}
	p.exiting = true

	if status == bt.Failure || err != nil {
		err = childResult(status, err, task)
		reportFailure(env, p.idx, task, err)
		p.metrics.Add(telemetry.MetricTasksFailed, 1)
	} else {
		tasks.TaskCompleted(env.context(), p.pub, env.Tick, p.ref, tasks.TaskPayload{
			Index: p.idx,
			Kind:  string(task.Kind()),
			Name:  task.Name(),
		}, nil)
		p.metrics.Add(telemetry.MetricTasksCompleted, 1)
	}
	if p.onFinish != nil {
		p.onFinish(p.idx, task, err)
	}
}

// advance moves past the current slot. The next task is reset right away so
// a snapshot taken between tasks never records stale completion.
func (p *Planner) advance(ctx context.Context) {
	p.entered = false
	p.exiting = false
	p.idx++
	if p.idx >= len(p.tasks) {
		if !p.loop {
			p.finish(ctx)
			return
		}
		p.idx = 0
	}
	if task := p.tasks[p.idx]; task != nil {
		task.ResetTask()
	}
}

func (p *Planner) finish(ctx context.Context) {
	p.idx = len(p.tasks)
	p.finished = true
	simulation.PlannerFinished(ctx, p.pub, p.ticks, p.ref, simulation.PlannerFinishedPayload{
		Routine: p.routine,
		Tasks:   len(p.tasks),
	}, nil)
}

// Run ticks the planner with every delta received until it finishes, the
// channel closes or ctx is cancelled.
func (p *Planner) Run(ctx context.Context, deltas <-chan float64) error {
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case dt, ok := <-deltas:
			if !ok {
				return nil
			}
			if p.Tick(ctx, dt) {
				return nil
			}
		}
	}
}

// CurrentIndex returns the index of the task being run, or len(tasks) once
// a non-looping planner is done.
func (p *Planner) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Current returns the task at the current index, if any.
func (p *Planner) Current() Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx < 0 || p.idx >= len(p.tasks) {
		return nil
	}
	return p.tasks[p.idx]
}

func (p *Planner) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

func (p *Planner) Len() int { return len(p.tasks) }

func (p *Planner) Loop() bool { return p.loop }

func (p *Planner) Routine() string { return p.routine }

func (p *Planner) Ref() logging.EntityRef { return p.ref }

// Tasks returns the planner's task slots. Slots may be nil.
func (p *Planner) Tasks() []Task {
	return append([]Task(nil), p.tasks...)
}

// Node exposes the planner as a behaviour-tree leaf that reports Running
// until the planner finishes. dt supplies the delta for each tick.
func (p *Planner) Node(ctx context.Context, dt func() float64) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if p.Tick(ctx, dt()) {
			return bt.Success, nil
		}
		return bt.Running, nil
	})
}
