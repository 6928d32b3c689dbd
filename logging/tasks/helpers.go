// Package tasks publishes the planner and task lifecycle events.
package tasks

import (
	"context"

	"github.com/Yuliya3k/spacegame-sub000/logging"
)

const (
	EventTaskStarted           logging.EventType = "task.started"
	EventTaskCompleted         logging.EventType = "task.completed"
	EventTaskFailed            logging.EventType = "task.failed"
	EventTaskSkipped           logging.EventType = "task.skipped"
	EventTaskBlocked           logging.EventType = "task.blocked"
	EventClockStalled          logging.EventType = "clock.stalled"
	EventUnknownStat           logging.EventType = "condition.unknown_stat"
	EventNavigationUnreachable logging.EventType = "navigation.unreachable"
	EventStuckRecovery         logging.EventType = "navigation.stuck_recovery"
	EventRestoreShapeMismatch  logging.EventType = "restore.shape_mismatch"
)

// TaskPayload identifies a task inside a planner.
type TaskPayload struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Resumed bool   `json:"resumed,omitempty"`
}

// TaskFailedPayload adds the failure cause.
type TaskFailedPayload struct {
	TaskPayload
	Error string `json:"error"`
}

// TaskSkippedPayload explains why a slot had no runnable task.
type TaskSkippedPayload struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// TaskBlockedPayload names the resource a task is waiting on.
type TaskBlockedPayload struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Resource string `json:"resource"`
}

// ClockStalledPayload is emitted when a duration cannot be converted.
type ClockStalledPayload struct {
	Task       string  `json:"task,omitempty"`
	Multiplier float64 `json:"multiplier"`
	Scale      float64 `json:"scale"`
}

// UnknownStatPayload names the stat a condition could not resolve.
type UnknownStatPayload struct {
	Task string `json:"task,omitempty"`
	Stat string `json:"stat"`
}

// UnreachablePayload carries the destination that could not be planned.
type UnreachablePayload struct {
	Task   string     `json:"task,omitempty"`
	Target [3]float64 `json:"target"`
	Reason string     `json:"reason"`
}

// StuckRecoveryPayload describes a corrective side-step.
type StuckRecoveryPayload struct {
	Task     string     `json:"task,omitempty"`
	Attempt  int        `json:"attempt"`
	Waypoint [3]float64 `json:"waypoint"`
}

// ShapeMismatchPayload reports a snapshot that does not fit the task list.
type ShapeMismatchPayload struct {
	Path     string `json:"path,omitempty"`
	Saved    int    `json:"saved"`
	Expected int    `json:"expected"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, category string, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: category,
		Payload:  payload,
		Extra:    extra,
	})
}

// TaskStarted publishes a debug event when a planner enters a task.
func TaskStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskPayload, extra map[string]any) {
	publish(ctx, pub, EventTaskStarted, logging.SeverityDebug, logging.CategoryAI, tick, actor, payload, extra)
}

// TaskCompleted publishes when a task finishes successfully.
func TaskCompleted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskPayload, extra map[string]any) {
	publish(ctx, pub, EventTaskCompleted, logging.SeverityInfo, logging.CategoryAI, tick, actor, payload, extra)
}

// TaskFailed publishes a warning; the planner moves on regardless.
func TaskFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventTaskFailed, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}

func TaskSkipped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskSkippedPayload, extra map[string]any) {
	publish(ctx, pub, EventTaskSkipped, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}

func TaskBlocked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TaskBlockedPayload, extra map[string]any) {
	publish(ctx, pub, EventTaskBlocked, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}

func ClockStalled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ClockStalledPayload, extra map[string]any) {
	publish(ctx, pub, EventClockStalled, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}

func UnknownStat(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload UnknownStatPayload, extra map[string]any) {
	publish(ctx, pub, EventUnknownStat, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}

func NavigationUnreachable(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload UnreachablePayload, extra map[string]any) {
	publish(ctx, pub, EventNavigationUnreachable, logging.SeverityWarn, logging.CategoryNavigation, tick, actor, payload, extra)
}

func StuckRecovery(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StuckRecoveryPayload, extra map[string]any) {
	publish(ctx, pub, EventStuckRecovery, logging.SeverityInfo, logging.CategoryNavigation, tick, actor, payload, extra)
}

// RestoreShapeMismatch publishes when a snapshot and the live task list
// disagree in length; the overlapping prefix is still applied.
func RestoreShapeMismatch(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShapeMismatchPayload, extra map[string]any) {
	publish(ctx, pub, EventRestoreShapeMismatch, logging.SeverityWarn, logging.CategoryAI, tick, actor, payload, extra)
}
