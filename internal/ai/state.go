package ai

import (
	"fmt"
	"slices"
)

// TaskState is the serialisable mirror of a task's progress. SubStates line
// up positionally with the task's children.
type TaskState struct {
	Name          string      `json:"taskName"`
	Kind          Kind        `json:"kind"`
	Elapsed       float64     `json:"elapsedTime"`
	WaypointIndex int         `json:"waypointIndex"`
	Phase         int         `json:"phase,omitempty"`
	Complete      bool        `json:"isComplete"`
	SubStates     []TaskState `json:"subStates,omitempty"`
}

// Equal compares two states recursively. A nil and an empty SubStates slice
// are equal.
func (s TaskState) Equal(o TaskState) bool {
	if s.Name != o.Name || s.Kind != o.Kind || s.Elapsed != o.Elapsed ||
		s.WaypointIndex != o.WaypointIndex || s.Phase != o.Phase || s.Complete != o.Complete {
		return false
	}
	return slices.EqualFunc(s.SubStates, o.SubStates, TaskState.Equal)
}

// applyChildren restores children positionally up to the shorter length.
func applyChildren(children []Task, states []TaskState) {
	for i := 0; i < len(children) && i < len(states); i++ {
		if children[i] != nil {
			children[i].SetState(states[i])
		}
	}
}

func captureChildren(children []Task) []TaskState {
	if len(children) == 0 {
		return nil
	}
	out := make([]TaskState, len(children))
	for i, child := range children {
		if child != nil {
			out[i] = child.GetState()
		}
	}
	return out
}

// shapeMismatch records one level of a state tree whose child count differs
// from the live task graph.
type shapeMismatch struct {
	path     string
	saved    int
	expected int
}

// findShapeMismatches walks the live task and saved state in parallel.
func findShapeMismatches(task Task, saved TaskState, path string) []shapeMismatch {
	if task == nil {
		return nil
	}
	live := task.GetState()
	var out []shapeMismatch
	if len(live.SubStates) != len(saved.SubStates) {
		out = append(out, shapeMismatch{path: path, saved: len(saved.SubStates), expected: len(live.SubStates)})
	}
	children := childrenOf(task)
	for i := 0; i < len(children) && i < len(saved.SubStates); i++ {
		out = append(out, findShapeMismatches(children[i], saved.SubStates[i], fmt.Sprintf("%s/%d", path, i))...)
	}
	return out
}

// parent is implemented by composite tasks.
type parent interface {
	Children() []Task
}

func childrenOf(task Task) []Task {
	if p, ok := task.(parent); ok {
		return p.Children()
	}
	return nil
}
