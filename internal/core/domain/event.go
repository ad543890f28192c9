package domain

import "time"

// PlanEventKind names the plan transition an event describes.
type PlanEventKind string

const (
	EventPlanHeld       PlanEventKind = "plan.held"
	EventPlanCommitted  PlanEventKind = "plan.committed"
	EventPlanRolledBack PlanEventKind = "plan.rolledback"
)

// PlanEvent is published after a plan mutation is durably committed.
type PlanEvent struct {
	EventID    string        `json:"eventID"`
	PlanID     string        `json:"planID"`
	Kind       PlanEventKind `json:"kind"`
	BatchID    *int64        `json:"batchID,omitempty"` // Set for plan.held only
	Clock      Clock         `json:"clock"`
	OccurredAt time.Time     `json:"occurredAt"`
}
