// Package store persists cleanup plans and their execution outcomes in
// a sqlite database: the system's recovery and audit trail. Outcome
// rows are write-once per (plan, item); the store only ever appends.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
)

const plansTableDDL = `
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    action TEXT NOT NULL,
    item_count INTEGER NOT NULL,
    total_size INTEGER NOT NULL
);
`

const planItemsTableDDL = `
CREATE TABLE IF NOT EXISTS plan_items (
    plan_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    path TEXT NOT NULL,
    category TEXT NOT NULL,
    risk TEXT NOT NULL,
    action TEXT NOT NULL,
    size INTEGER NOT NULL,
    dev INTEGER NOT NULL DEFAULT 0,
    inode INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (plan_id, seq)
);
`

const outcomesTableDDL = `
CREATE TABLE IF NOT EXISTS outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plan_id TEXT NOT NULL,
    path TEXT NOT NULL,
    result TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    recorded_at INTEGER NOT NULL,
    UNIQUE (plan_id, path)
);
`

const outcomesPlanIndexDDL = `CREATE INDEX IF NOT EXISTS idx_outcomes_plan ON outcomes(plan_id);`

// ErrOutcomeExists signals an attempt to rewrite a write-once outcome.
var ErrOutcomeExists = errors.New("outcome already recorded for this item")

// Store wraps the sqlite database. Writes are serialized through a
// single mutex so the append-only audit property holds under
// concurrent or repeated runs.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the store at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	ddls := []string{
		plansTableDDL,
		planItemsTableDDL,
		outcomesTableDDL,
		outcomesPlanIndexDDL,
	}
	for _, ddl := range ddls {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SavePlan persists a plan and its items. Saving the same plan ID again
// is a no-op: plan IDs are deterministic and plans immutable.
func (s *Store) SavePlan(p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT OR IGNORE INTO plans (id, snapshot_id, created_at, status, action, item_count, total_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SnapshotID, p.CreatedAt.Unix(), string(p.Status), string(p.Action), len(p.Items), p.TotalSize(),
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit() // already stored
	}

	stmt, err := tx.Prepare(
		`INSERT INTO plan_items (plan_id, seq, path, category, risk, action, size, dev, inode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, it := range p.Items {
		if _, err := stmt.Exec(p.ID, i, it.Path, string(it.Category), it.Risk.String(), string(it.Action),
			it.Size, int64(it.Identity.Dev), int64(it.Identity.Inode)); err != nil {
			return fmt.Errorf("save plan item %s: %w", it.Path, err)
		}
	}
	return tx.Commit()
}

// PlanStatus returns the stored lifecycle state of a plan. ok is false
// when no plan with that ID was ever saved.
func (s *Store) PlanStatus(planID string) (plan.Status, bool, error) {
	row := s.db.QueryRow(`SELECT status FROM plans WHERE id = ?`, planID)
	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return plan.Status(status), true, nil
}

// UpdatePlanStatus advances a plan's lifecycle state.
func (s *Store) UpdatePlanStatus(planID string, status plan.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE plans SET status = ? WHERE id = ?`, string(status), planID)
	return err
}

// AppendOutcome records one execution outcome. Returns ErrOutcomeExists
// if an outcome for the item was already written; outcomes are never
// rewritten.
func (s *Store) AppendOutcome(o plan.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO outcomes (plan_id, path, result, reason, message, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.PlanID, o.Path, string(o.Result), string(o.Reason), o.Message, o.RecordedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrOutcomeExists
		}
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// Outcomes returns all outcomes for a plan in recording order.
func (s *Store) Outcomes(planID string) ([]plan.Outcome, error) {
	rows, err := s.db.Query(
		`SELECT path, result, reason, message, recorded_at FROM outcomes WHERE plan_id = ? ORDER BY id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []plan.Outcome
	for rows.Next() {
		var o plan.Outcome
		var result, reason string
		var recorded int64
		if err := rows.Scan(&o.Path, &result, &reason, &o.Message, &recorded); err != nil {
			return nil, err
		}
		o.PlanID = planID
		o.Result = plan.ResultKind(result)
		o.Reason = plan.FailReason(reason)
		o.RecordedAt = time.Unix(recorded, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetPlan loads a plan with its items in stored order.
func (s *Store) GetPlan(planID string) (*plan.Plan, error) {
	row := s.db.QueryRow(`SELECT id, snapshot_id, created_at, status, action FROM plans WHERE id = ?`, planID)
	var p plan.Plan
	var created int64
	var status, action string
	if err := row.Scan(&p.ID, &p.SnapshotID, &created, &status, &action); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %s not found", planID)
		}
		return nil, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.Status = plan.Status(status)
	p.Action = plan.Action(action)

	rows, err := s.db.Query(
		`SELECT path, category, risk, action, size, dev, inode FROM plan_items WHERE plan_id = ? ORDER BY seq`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it plan.Item
		var category, risk, itemAction string
		var dev, inode int64
		if err := rows.Scan(&it.Path, &category, &risk, &itemAction, &it.Size, &dev, &inode); err != nil {
			return nil, err
		}
		it.Category = fsitem.Category(category)
		it.Risk, _ = fsitem.ParseRiskTier(risk)
		it.Action = plan.Action(itemAction)
		it.Identity = fsitem.Identity{Dev: uint64(dev), Inode: uint64(inode)}
		p.Items = append(p.Items, it)
	}
	return &p, rows.Err()
}

// PlanSummary is one row of the plan history listing.
type PlanSummary struct {
	ID         string
	SnapshotID string
	CreatedAt  time.Time
	Status     plan.Status
	Action     plan.Action
	ItemCount  int
	TotalSize  int64
	Recycled   int
	Deleted    int
	Failed     int
	Skipped    int
	NotFound   int
}

// Plans lists stored plans newest first with outcome tallies.
func (s *Store) Plans() ([]PlanSummary, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.snapshot_id, p.created_at, p.status, p.action, p.item_count, p.total_size,
		       COALESCE(SUM(CASE o.result WHEN 'recycled' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE o.result WHEN 'deleted' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE o.result WHEN 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE o.result WHEN 'skipped_protected' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE o.result WHEN 'not_found' THEN 1 ELSE 0 END), 0)
		FROM plans p LEFT JOIN outcomes o ON o.plan_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanSummary
	for rows.Next() {
		var ps PlanSummary
		var created int64
		var status, action string
		if err := rows.Scan(&ps.ID, &ps.SnapshotID, &created, &status, &action, &ps.ItemCount, &ps.TotalSize,
			&ps.Recycled, &ps.Deleted, &ps.Failed, &ps.Skipped, &ps.NotFound); err != nil {
			return nil, err
		}
		ps.CreatedAt = time.Unix(created, 0)
		ps.Status = plan.Status(status)
		ps.Action = plan.Action(action)
		out = append(out, ps)
	}
	return out, rows.Err()
}
