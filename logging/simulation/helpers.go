package simulation

import (
	"context"

	"github.com/Yuliya3k/spacegame-sub000/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a world tick takes longer than its real-time budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventPlannerFinished is emitted once when a non-looping planner runs out of tasks.
	EventPlannerFinished logging.EventType = "simulation.planner_finished"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Planners       int     `json:"planners"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds the configured budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// PlannerFinishedPayload records where a routine ended.
type PlannerFinishedPayload struct {
	Routine string `json:"routine,omitempty"`
	Tasks   int    `json:"tasks"`
}

// PlannerFinished publishes when an NPC's routine is exhausted.
func PlannerFinished(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlannerFinishedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlannerFinished,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// EventCommandRejected is emitted when a queued world command cannot be applied.
const EventCommandRejected logging.EventType = "simulation.command_rejected"

// CommandRejectedPayload names the command and why it was dropped.
type CommandRejectedPayload struct {
	Command string `json:"command"`
	Target  string `json:"target,omitempty"`
	Reason  string `json:"reason"`
}

// CommandRejected publishes when a world command is dropped at tick start.
func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, payload CommandRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandRejected,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}
