package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePlan(id string) *plan.Plan {
	return &plan.Plan{
		ID:         id,
		SnapshotID: "snap-1",
		CreatedAt:  time.Now(),
		Status:     plan.StatusDraft,
		Action:     plan.ActionRecycle,
		Items: []plan.Item{
			{Path: "/d/tmp/a.tmp", Category: fsitem.CategoryTemp, Risk: fsitem.RiskSafe, Action: plan.ActionRecycle,
				Size: 100, Identity: fsitem.Identity{Dev: 64769, Inode: 1048641}},
			{Path: "/d/logs/app.log", Category: fsitem.CategoryLog, Risk: fsitem.RiskLow, Action: plan.ActionRecycle, Size: 50},
		},
	}
}

func TestSaveAndGetPlan(t *testing.T) {
	s := openTestStore(t)
	p := samplePlan("plan-a")
	require.NoError(t, s.SavePlan(p))

	got, err := s.GetPlan("plan-a")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.SnapshotID, got.SnapshotID)
	assert.Equal(t, plan.StatusDraft, got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, p.Items[0].Path, got.Items[0].Path)
	assert.Equal(t, p.Items[0].Risk, got.Items[0].Risk)
	assert.Equal(t, p.Items[0].Identity, got.Items[0].Identity, "scanned identity lost across the store")
	assert.Equal(t, p.Items[1].Category, got.Items[1].Category)
}

func TestPlanStatus(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.PlanStatus("never-saved")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SavePlan(samplePlan("plan-g")))
	require.NoError(t, s.UpdatePlanStatus("plan-g", plan.StatusCompleted))

	status, ok, err := s.PlanStatus("plan-g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, plan.StatusCompleted, status)
}

func TestSavePlanIdempotent(t *testing.T) {
	s := openTestStore(t)
	p := samplePlan("plan-b")
	require.NoError(t, s.SavePlan(p))
	require.NoError(t, s.SavePlan(p))

	got, err := s.GetPlan("plan-b")
	require.NoError(t, err)
	assert.Len(t, got.Items, 2, "re-saving duplicated plan items")
}

func TestGetPlanMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPlan("nope")
	assert.Error(t, err)
}

func TestUpdatePlanStatus(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SavePlan(samplePlan("plan-c")))
	require.NoError(t, s.UpdatePlanStatus("plan-c", plan.StatusExecuting))

	got, err := s.GetPlan("plan-c")
	require.NoError(t, err)
	assert.Equal(t, plan.StatusExecuting, got.Status)
}

func TestAppendOutcomeWriteOnce(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SavePlan(samplePlan("plan-d")))

	o := plan.Outcome{
		PlanID:     "plan-d",
		Path:       "/d/tmp/a.tmp",
		Result:     plan.ResultRecycled,
		RecordedAt: time.Now(),
	}
	require.NoError(t, s.AppendOutcome(o))

	// A second write for the same item must be rejected, even with a
	// different result.
	o.Result = plan.ResultDeleted
	err := s.AppendOutcome(o)
	assert.ErrorIs(t, err, ErrOutcomeExists)

	stored, err := s.Outcomes("plan-d")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, plan.ResultRecycled, stored[0].Result, "write-once outcome was overwritten")
}

func TestOutcomesPreserveOrderAndFields(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SavePlan(samplePlan("plan-e")))

	outs := []plan.Outcome{
		{PlanID: "plan-e", Path: "/d/tmp/a.tmp", Result: plan.ResultRecycled, RecordedAt: time.Now()},
		{PlanID: "plan-e", Path: "/d/logs/app.log", Result: plan.ResultFailed,
			Reason: plan.ReasonInUse, Message: "text file busy", RecordedAt: time.Now()},
	}
	for _, o := range outs {
		require.NoError(t, s.AppendOutcome(o))
	}

	stored, err := s.Outcomes("plan-e")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "/d/tmp/a.tmp", stored[0].Path)
	assert.Equal(t, plan.ReasonInUse, stored[1].Reason)
	assert.Equal(t, "text file busy", stored[1].Message)
}

func TestPlansListsWithTallies(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SavePlan(samplePlan("plan-f")))
	require.NoError(t, s.AppendOutcome(plan.Outcome{
		PlanID: "plan-f", Path: "/d/tmp/a.tmp", Result: plan.ResultRecycled, RecordedAt: time.Now()}))
	require.NoError(t, s.AppendOutcome(plan.Outcome{
		PlanID: "plan-f", Path: "/d/logs/app.log", Result: plan.ResultSkippedProtected, RecordedAt: time.Now()}))

	plans, err := s.Plans()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	ps := plans[0]
	assert.Equal(t, "plan-f", ps.ID)
	assert.Equal(t, 2, ps.ItemCount)
	assert.Equal(t, int64(150), ps.TotalSize)
	assert.Equal(t, 1, ps.Recycled)
	assert.Equal(t, 1, ps.Skipped)
	assert.Equal(t, 0, ps.Failed)
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "results.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
