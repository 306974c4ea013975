// Package plan builds immutable, ordered cleanup plans from a scan
// snapshot and defines the per-item execution outcome types.
package plan

import (
	"time"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// Action is what execution should do with an item.
type Action string

const (
	ActionRecycle Action = "recycle"
	ActionDelete  Action = "delete"
)

// Status tracks a plan through its lifecycle. A plan is immutable once
// it leaves Draft; only its status and outcome set advance.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusExecuting       Status = "executing"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
)

// Item is one selected entry of a plan. Identity carries the scanned
// device and inode so execution can detect a file swapped in at the
// same path after the scan.
type Item struct {
	Path     string          `json:"path"`
	Category fsitem.Category `json:"category"`
	Risk     fsitem.RiskTier `json:"risk"`
	Action   Action          `json:"action"`
	Size     int64           `json:"size"`
	Identity fsitem.Identity `json:"identity"`
}

// Plan is an ordered, immutable selection of items awaiting execution.
type Plan struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	CreatedAt  time.Time `json:"created_at"`
	Status     Status    `json:"status"`
	Action     Action    `json:"action"`
	Items      []Item    `json:"items"`
}

// TotalSize sums the selected item sizes.
func (p *Plan) TotalSize() int64 {
	var total int64
	for _, it := range p.Items {
		total += it.Size
	}
	return total
}

// ResultKind is the outcome of executing one plan item.
type ResultKind string

const (
	ResultRecycled         ResultKind = "recycled"
	ResultDeleted          ResultKind = "deleted"
	ResultSkippedProtected ResultKind = "skipped_protected"
	ResultFailed           ResultKind = "failed"
	ResultNotFound         ResultKind = "not_found"
)

// FailReason categorizes a removal failure.
type FailReason string

const (
	ReasonNone             FailReason = ""
	ReasonPermissionDenied FailReason = "permission_denied"
	ReasonInUse            FailReason = "in_use"
	ReasonNotFound         FailReason = "not_found"
	ReasonIOError          FailReason = "io_error"
	ReasonUnknown          FailReason = "unknown"
)

// Outcome records what happened to one plan item. Outcomes are
// write-once: the store appends them and never rewrites.
type Outcome struct {
	PlanID     string     `json:"plan_id"`
	Path       string     `json:"path"`
	Result     ResultKind `json:"result"`
	Reason     FailReason `json:"reason,omitempty"`
	Message    string     `json:"message,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Failed reports whether the outcome counts against plan completion.
// NOT_FOUND does not: an item deleted externally is a success for the
// purpose the plan served.
func (o Outcome) Failed() bool {
	return o.Result == ResultFailed || o.Result == ResultSkippedProtected
}
