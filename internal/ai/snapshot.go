package ai

import (
	"context"
	"fmt"

	"github.com/Yuliya3k/spacegame-sub000/internal/actor"
	"github.com/Yuliya3k/spacegame-sub000/logging/tasks"
)

// Snapshot is a planner's resumable progress. TaskStates lines up with the
// planner's task slots; empty slots are recorded as zero states.
type Snapshot struct {
	CurrentTaskIndex int         `json:"currentTaskIndex"`
	LastTaskPosition actor.Vec3  `json:"lastTaskPosition"`
	TaskStates       []TaskState `json:"taskStates"`
}

// ResumePosition is where the actor should be placed on load. An unset
// saved position falls back to current instead of the origin.
func (s Snapshot) ResumePosition(current actor.Vec3) actor.Vec3 {
	if s.LastTaskPosition.IsZero() {
		return current
	}
	return s.LastTaskPosition
}

// GetState captures the planner.
func (p *Planner) GetState() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		CurrentTaskIndex: p.idx,
		LastTaskPosition: p.lastPos,
		TaskStates:       captureChildren(p.tasks),
	}
}

// SetState restores a snapshot. States are applied positionally up to the
// shorter of the two lists; any difference in shape is published as
// restore.shape_mismatch. The task at the restored index resumes on the
// next tick instead of being reset.
func (p *Planner) SetState(ctx context.Context, s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var mismatches []shapeMismatch
	if len(s.TaskStates) != len(p.tasks) {
		mismatches = append(mismatches, shapeMismatch{saved: len(s.TaskStates), expected: len(p.tasks)})
	}
	for i := 0; i < len(p.tasks) && i < len(s.TaskStates); i++ {
		if p.tasks[i] == nil {
			continue
		}
		mismatches = append(mismatches, findShapeMismatches(p.tasks[i], s.TaskStates[i], fmt.Sprintf("%d", i))...)
		p.tasks[i].SetState(s.TaskStates[i])
	}
	for _, m := range mismatches {
		tasks.RestoreShapeMismatch(ctx, p.pub, p.ticks, p.ref, tasks.ShapeMismatchPayload{
			Path:     m.path,
			Saved:    m.saved,
			Expected: m.expected,
		}, map[string]any{"error": ErrRestoreShapeMismatch.Error()})
	}

	idx := min(max(s.CurrentTaskIndex, 0), len(p.tasks))
	p.idx = idx
	p.entered = false
	p.exiting = false
	p.lastPos = s.LastTaskPosition
	p.finished = false
	p.resume = idx < len(p.tasks)
	if idx == len(p.tasks) {
		if p.loop {
			p.idx = 0
			p.resume = false
		} else {
			p.finished = true
		}
		return
	}
	// Saved while held at a boundary after the task finished: wait to move on
	// instead of running it again.
	if p.tasks[idx] != nil && idx < len(s.TaskStates) && s.TaskStates[idx].Complete {
		p.entered = true
		p.exiting = true
		p.resume = false
	}
}
