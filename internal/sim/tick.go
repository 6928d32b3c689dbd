package sim

import (
	"context"
	"errors"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"golang.org/x/sync/errgroup"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/internal/telemetry"
	"github.com/Yuliya3k/spacegame-sub000/logging/simulation"
)

// Frame is the per-tick view of the world handed to observers.
type Frame struct {
	Tick  uint64      `json:"tick"`
	Clock time.Time   `json:"clock"`
	NPCs  []NPCFrame  `json:"npcs"`
	Doors []DoorFrame `json:"doors"`
}

type NPCFrame struct {
	ID        string             `json:"id"`
	Routine   string             `json:"routine"`
	TaskIndex int                `json:"taskIndex"`
	Task      string             `json:"task,omitempty"`
	Kind      string             `json:"kind,omitempty"`
	Position  actor.Vec3         `json:"position"`
	Stats     map[string]float64 `json:"stats"`
	Frozen    bool               `json:"frozen,omitempty"`
	Finished  bool               `json:"finished,omitempty"`
}

type DoorFrame struct {
	ID   string `json:"id"`
	Open bool   `json:"open"`
}

// Tick advances the world by dt real seconds: the clock moves once, doors
// and stations progress, then every planner steps in parallel followed by
// its navigator.
func (w *World) Tick(ctx context.Context, dt float64) error {
	frame, err := w.step(ctx, dt)
	if err != nil {
		return err
	}
	if w.afterTick != nil {
		w.afterTick(frame)
	}
	return nil
}

func (w *World) step(ctx context.Context, dt float64) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	w.applyCommandsLocked(ctx)
	before := w.clock.Now()
	w.clock.Advance(dt)
	virtual := w.clock.Now().Sub(before).Seconds()

	w.objMu.RLock()
	for _, door := range w.doors {
		door.advance(dt)
	}
	for _, station := range w.stations {
		station.advance(virtual)
	}
	w.objMu.RUnlock()

	decayHours := virtual / 3600
	var g errgroup.Group
	g.SetLimit(w.cfg.Workers)
	for _, a := range w.agents {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !a.done {
				a.done = a.planner.Tick(ctx, dt)
			}
			a.nav.Advance(dt)
			a.npc.Decay(w.cfg.DecayPerHour, decayHours)
			return nil
		})
	}
	err := g.Wait()

	w.metrics.Add(telemetry.MetricTicks, 1)
	w.metrics.Store(telemetry.MetricPlannersActive, uint64(w.activeLocked()))
	if err != nil {
		return Frame{}, err
	}
	return w.frameLocked(), nil
}

// Frame captures the current world view.
func (w *World) Frame() Frame {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frameLocked()
}

func (w *World) frameLocked() Frame {
	frame := Frame{
		Tick:  w.tick,
		Clock: w.clock.Now(),
		NPCs:  make([]NPCFrame, 0, len(w.agents)),
	}
	for _, a := range w.agents {
		nf := NPCFrame{
			ID:        a.npc.ID(),
			Routine:   a.planner.Routine(),
			TaskIndex: a.planner.CurrentIndex(),
			Position:  a.npc.Position(),
			Stats:     a.npc.Stats().Map(),
			Frozen:    a.npc.IsFrozen(),
			Finished:  a.done,
		}
		if task := a.planner.Current(); task != nil {
			nf.Task = task.Name()
			nf.Kind = string(task.Kind())
		}
		frame.NPCs = append(frame.NPCs, nf)
	}
	w.objMu.RLock()
	for _, id := range w.doorIDs {
		frame.Doors = append(frame.Doors, DoorFrame{ID: id, Open: w.doors[id].IsOpen()})
	}
	w.objMu.RUnlock()
	return frame
}

// Run drives the fixed-rate tick loop until ctx is done. Ticks that take
// longer than their budget are published as simulation.tick_budget_overrun.
func (w *World) Run(ctx context.Context) error {
	budget := time.Second / time.Duration(w.cfg.TickRate)
	budgetSeconds := budget.Seconds()
	maxDt := budgetSeconds * float64(w.cfg.CatchupMaxTicks)

	last := time.Now()
	node := bt.New(func([]bt.Node) (bt.Status, error) {
		now := time.Now()
		dt := now.Sub(last).Seconds()
		if dt <= 0 {
			dt = budgetSeconds
		} else if dt > maxDt {
			dt = maxDt
		}
		last = now

		start := time.Now()
		if err := w.Tick(ctx, dt); err != nil {
			return bt.Failure, err
		}
		w.checkBudget(ctx, time.Since(start), budget)
		return bt.Running, nil
	})

	ticker := bt.NewTicker(ctx, budget, node)
	<-ticker.Done()
	err := ticker.Err()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *World) checkBudget(ctx context.Context, took, budget time.Duration) {
	w.mu.Lock()
	if took <= budget {
		w.overrun = 0
		w.mu.Unlock()
		return
	}
	w.overrun++
	streak := w.overrun
	tick := w.tick
	planners := len(w.agents)
	w.mu.Unlock()

	w.metrics.Add(telemetry.MetricTickOverruns, 1)
	simulation.TickBudgetOverrun(ctx, w.pub, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: took.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          float64(took) / float64(budget),
		Streak:         streak,
		Planners:       planners,
	}, nil)
}
