// Copyright 2020-2022, Square, Inc.

// Package proto provides API message structures and constants shared by the
// scheduler core, the persistence layer, and the status API.
package proto

const (
	STATE_UNKNOWN byte = iota

	// Normal states, in order
	STATE_WAITING   // prerequisites not yet satisfied
	STATE_READY     // satisfied, queued for dispatch
	STATE_RUNNING   // dispatched and running
	STATE_SUCCEEDED // finished successfully

	// Error states, no order
	STATE_FAILED  // finished with an error
	STATE_EXPIRED // passed over without running
)

var StateName = map[byte]string{
	STATE_UNKNOWN:   "UNKNOWN",
	STATE_WAITING:   "WAITING",
	STATE_READY:     "READY",
	STATE_RUNNING:   "RUNNING",
	STATE_SUCCEEDED: "SUCCEEDED",
	STATE_FAILED:    "FAILED",
	STATE_EXPIRED:   "EXPIRED",
}

var StateValue = map[string]byte{
	"UNKNOWN":   STATE_UNKNOWN,
	"WAITING":   STATE_WAITING,
	"READY":     STATE_READY,
	"RUNNING":   STATE_RUNNING,
	"SUCCEEDED": STATE_SUCCEEDED,
	"FAILED":    STATE_FAILED,
	"EXPIRED":   STATE_EXPIRED,
}

// Task run modes. Skip mode marks a task's outputs complete without
// running its work.
const (
	RUN_MODE_LIVE = "live"
	RUN_MODE_SKIP = "skip"
)

// HeldTask is one administratively held (task name, cycle point) pair.
// Held tasks may or may not be instantiated yet.
type HeldTask struct {
	Name  string `json:"name"`
	Point string `json:"point"`
}

// SatisfiedOutput is one persisted satisfied-prerequisite entry: the
// upstream (point, task, output) triple, keyed by the owning task
// instance's id. On restart these are replayed through the normal
// prerequisite entry points with provenance "satisfied from database".
type SatisfiedOutput struct {
	Owner  string `json:"owner"` // owning task instance id, "point/name"
	Point  string `json:"point"`
	Task   string `json:"task"`
	Output string `json:"output"`
}

// PrereqStatus is the display form of one prerequisite: the conditional
// expression with short aliases substituted for each condition, the
// per-condition states, overall satisfaction, and the distinct upstream
// points referenced.
type PrereqStatus struct {
	Expression string      `json:"expression"`
	Conditions []Condition `json:"conditions"`
	Satisfied  bool        `json:"satisfied"`
	Points     []string    `json:"points"`
}

// Condition is one atom of a PrereqStatus.
type Condition struct {
	Alias     string `json:"exprAlias"` // zero-padded alias used in Expression
	Message   string `json:"message"`   // "point/task output"
	Satisfied bool   `json:"satisfied"`
	State     string `json:"state"` // provenance, or "unsatisfied"
}

// TaskSummary is the API view of one task instance (or one held
// not-yet-spawned task from the hold store's pseudo-pool).
type TaskSummary struct {
	Name          string         `json:"name"`
	Point         string         `json:"point"`
	State         string         `json:"state"` // StateName value
	Held          bool           `json:"held"`
	Runahead      bool           `json:"runahead"`
	Prerequisites []PrereqStatus `json:"prerequisites,omitempty"`
}
