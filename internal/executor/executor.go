// Package executor carries out cleanup plans: reversible removal first,
// permanent deletion only as an explicitly confirmed fallback, one
// write-once outcome per item.
package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
	"github.com/VN1SH/reclaim/internal/policy"
	"github.com/VN1SH/reclaim/internal/store"
	"github.com/VN1SH/reclaim/internal/trash"
)

// Options controls execution behavior.
type Options struct {
	// ConfirmDelete permits the permanent-deletion fallback after a
	// failed recycle, and only when the item's action is delete.
	ConfirmDelete bool
	// DryRun walks the plan read-only: nothing is moved, deleted, or
	// persisted.
	DryRun bool
	// MinAge skips items modified more recently than this, re-checked
	// at execution time against the live file.
	MinAge time.Duration
}

// retryDelays paces the IN_USE retry ladder.
var retryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

// Executor runs plans. Plans are immutable inputs; the executor owns
// only their outcomes.
type Executor struct {
	pol   *policy.Policy
	trash *trash.Trash
	st    *store.Store
	opts  Options
	log   *zap.Logger
}

// New creates an Executor. st may be nil only for dry runs.
func New(pol *policy.Policy, t *trash.Trash, st *store.Store, opts Options, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{pol: pol, trash: t, st: st, opts: opts, log: log}
}

// Report summarizes one execution.
type Report struct {
	PlanID    string
	Status    plan.Status
	Outcomes  []plan.Outcome
	Reclaimed int64
	DryRun    bool
}

// Execute processes every item of p in plan order and returns the
// per-item outcomes. Individual failures never halt the plan;
// cancellation stops before the next untouched item. The returned
// error reports setup problems only (persistence failures, invalid
// plan state), never item-level ones.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan) (*Report, error) {
	if p.Status != plan.StatusDraft {
		return nil, fmt.Errorf("plan %s is %s; only draft plans can be executed", p.ID, p.Status)
	}

	report := &Report{PlanID: p.ID, DryRun: e.opts.DryRun}

	if !e.opts.DryRun {
		if e.st == nil {
			return nil, fmt.Errorf("no result store configured")
		}
		// Plan IDs are deterministic: the same snapshot and selection
		// rebuild an in-memory draft whose ID may already be terminal in
		// the store. A finished plan's audit trail is never re-driven.
		if status, ok, err := e.st.PlanStatus(p.ID); err != nil {
			return nil, err
		} else if ok && status != plan.StatusDraft {
			return nil, fmt.Errorf("plan %s was already executed (%s); run scan and plan again", p.ID, status)
		}
		if err := e.st.SavePlan(p); err != nil {
			return nil, err
		}
		if err := e.st.UpdatePlanStatus(p.ID, plan.StatusExecuting); err != nil {
			return nil, err
		}
	}

	cancelled := false
	for _, item := range p.Items {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		outcome := e.executeItem(item, p.ID)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Result == plan.ResultRecycled || outcome.Result == plan.ResultDeleted {
			report.Reclaimed += item.Size
		}
		if !e.opts.DryRun {
			if err := e.st.AppendOutcome(outcome); err != nil && err != store.ErrOutcomeExists {
				e.log.Error("failed to persist outcome", zap.String("path", item.Path), zap.Error(err))
			}
		}
	}

	report.Status = finalStatus(report.Outcomes, len(p.Items), cancelled)
	if !e.opts.DryRun {
		if err := e.st.UpdatePlanStatus(p.ID, report.Status); err != nil {
			return report, err
		}
	}
	return report, nil
}

// executeItem runs the per-item ladder: policy re-check, existence and
// identity verification, reversible removal, then the confirmed
// permanent-delete fallback.
func (e *Executor) executeItem(item plan.Item, planID string) plan.Outcome {
	outcome := plan.Outcome{PlanID: planID, Path: item.Path, RecordedAt: time.Now()}

	// Policy is re-evaluated before every destructive action: a stale
	// plan built against an outdated snapshot or rule set must never
	// reach past this check, and a policy block never escalates to the
	// delete fallback.
	if e.pol.Evaluate(item.Path) == policy.Blocked {
		outcome.Result = plan.ResultSkippedProtected
		e.log.Warn("skipping protected path", zap.String("path", item.Path))
		return outcome
	}

	info, err := os.Lstat(item.Path)
	if err != nil {
		if os.IsNotExist(err) {
			outcome.Result = plan.ResultNotFound
			return outcome
		}
		outcome.Result = plan.ResultFailed
		outcome.Reason = categorizeError(err).Reason
		outcome.Message = err.Error()
		return outcome
	}

	// Verify the path still names what was planned. A swap to a symlink,
	// a planned file turned directory, or a different inode at the same
	// path means something replaced it between scan and execution.
	if info.Mode()&os.ModeSymlink != 0 || (info.IsDir() && item.Size > 0) {
		outcome.Result = plan.ResultFailed
		outcome.Reason = plan.ReasonUnknown
		outcome.Message = "path changed since plan creation"
		return outcome
	}
	if !item.Identity.Zero() {
		if live := fsitem.IdentityOf(info); !live.Zero() && live != item.Identity {
			outcome.Result = plan.ResultFailed
			outcome.Reason = plan.ReasonUnknown
			outcome.Message = "path changed since plan creation"
			return outcome
		}
	}
	if e.opts.MinAge > 0 && time.Since(info.ModTime()) < e.opts.MinAge {
		outcome.Result = plan.ResultFailed
		outcome.Reason = plan.ReasonUnknown
		outcome.Message = "modified too recently"
		return outcome
	}

	if e.opts.DryRun {
		outcome.Result = plan.ResultRecycled
		outcome.Message = "dry run"
		return outcome
	}

	// Step 3: reversible removal, retrying transient in-use failures.
	recycleErr := e.recycleWithRetry(item.Path, planID)
	if recycleErr == nil {
		outcome.Result = plan.ResultRecycled
		return outcome
	}
	cat := categorizeError(recycleErr)
	if cat.Reason == plan.ReasonNotFound {
		outcome.Result = plan.ResultNotFound
		return outcome
	}

	// Step 4: permanent deletion, only after a failed recycle and only
	// with both the per-item action and the explicit confirmation flag.
	if item.Action == plan.ActionDelete && e.opts.ConfirmDelete {
		deleteErr := removePath(item.Path, info.IsDir())
		if deleteErr == nil {
			outcome.Result = plan.ResultDeleted
			e.log.Info("permanently deleted after failed recycle", zap.String("path", item.Path))
			return outcome
		}
		cat = categorizeError(deleteErr)
		outcome.Result = plan.ResultFailed
		outcome.Reason = cat.Reason
		outcome.Message = deleteErr.Error()
		return outcome
	}

	outcome.Result = plan.ResultFailed
	outcome.Reason = cat.Reason
	outcome.Message = recycleErr.Error()
	return outcome
}

func (e *Executor) recycleWithRetry(path, planID string) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		_, err := e.trash.Recycle(path, planID)
		if err == nil {
			return nil
		}
		lastErr = err
		if !categorizeError(err).Retryable || attempt >= len(retryDelays) {
			return lastErr
		}
		time.Sleep(retryDelays[attempt])
	}
}

func removePath(path string, isDir bool) error {
	if isDir {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// finalStatus derives the terminal plan state. Completed requires every
// item processed with no failed or protected-skip outcomes; NOT_FOUND
// counts as success.
func finalStatus(outcomes []plan.Outcome, planned int, cancelled bool) plan.Status {
	if cancelled && len(outcomes) < planned {
		return plan.StatusPartiallyFailed
	}
	for _, o := range outcomes {
		if o.Failed() {
			return plan.StatusPartiallyFailed
		}
	}
	return plan.StatusCompleted
}
