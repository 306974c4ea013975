package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
	"github.com/VN1SH/reclaim/internal/policy"
	"github.com/VN1SH/reclaim/internal/store"
	"github.com/VN1SH/reclaim/internal/testutil"
	"github.com/VN1SH/reclaim/internal/trash"
)

type fixture struct {
	tree  *testutil.Tree
	trash *trash.Trash
	store *store.Store
	pol   *policy.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tree := testutil.NewTree(t)

	tr, err := trash.New(filepath.Join(t.TempDir(), "trash"))
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return &fixture{tree: tree, trash: tr, store: st, pol: policy.New(nil, nil)}
}

func draftPlan(id string, action plan.Action, paths ...string) *plan.Plan {
	p := &plan.Plan{
		ID:         id,
		SnapshotID: "snap-test",
		CreatedAt:  time.Now(),
		Status:     plan.StatusDraft,
		Action:     action,
	}
	for _, path := range paths {
		var size int64 = 1
		var identity fsitem.Identity
		if info, err := os.Lstat(path); err == nil {
			size = info.Size()
			identity = fsitem.IdentityOf(info)
		}
		p.Items = append(p.Items, plan.Item{
			Path:     path,
			Category: fsitem.CategoryTemp,
			Risk:     fsitem.RiskSafe,
			Action:   action,
			Size:     size,
			Identity: identity,
		})
	}
	return p
}

func TestExecuteRecyclesItems(t *testing.T) {
	f := newFixture(t)
	a := f.tree.FileWithAge("tmp/a.tmp", 10, 48*time.Hour)
	b := f.tree.FileWithAge("tmp/b.tmp", 20, 48*time.Hour)

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p1", plan.ActionRecycle, a, b))
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, rep.Status)
	assert.Equal(t, int64(30), rep.Reclaimed)
	require.Len(t, rep.Outcomes, 2)
	for _, o := range rep.Outcomes {
		assert.Equal(t, plan.ResultRecycled, o.Result)
	}
	for _, path := range []string{a, b} {
		_, err := os.Lstat(path)
		assert.True(t, os.IsNotExist(err), "%s still present after recycle", path)
	}

	entries, err := f.trash.EntriesForPlan("p1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestExecuteMissingItemCountsAsSuccess(t *testing.T) {
	f := newFixture(t)
	present := f.tree.FileWithAge("have.tmp", 5, 48*time.Hour)
	missing := filepath.Join(f.tree.Root, "gone.tmp")

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p2", plan.ActionRecycle, present, missing))
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, rep.Status)
	var kinds []plan.ResultKind
	for _, o := range rep.Outcomes {
		kinds = append(kinds, o.Result)
	}
	assert.Contains(t, kinds, plan.ResultNotFound)
	assert.Contains(t, kinds, plan.ResultRecycled)
}

func TestExecuteSkipsProtectedAndNeverDeletes(t *testing.T) {
	f := newFixture(t)
	guarded := f.tree.FileWithAge("keep/secret.tmp", 5, 48*time.Hour)

	pol := policy.New([]string{filepath.Join(f.tree.Root, "keep")}, nil)
	// Even with delete fully confirmed, a protected item stays put.
	exec := New(pol, f.trash, f.store, Options{ConfirmDelete: true}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p3", plan.ActionDelete, guarded))
	require.NoError(t, err)

	assert.Equal(t, plan.StatusPartiallyFailed, rep.Status)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, plan.ResultSkippedProtected, rep.Outcomes[0].Result)

	_, statErr := os.Lstat(guarded)
	assert.NoError(t, statErr, "protected file was removed")
}

func TestExecuteDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	file := f.tree.FileWithAge("x.tmp", 5, 48*time.Hour)

	// Dry runs need no store at all.
	exec := New(f.pol, f.trash, nil, Options{DryRun: true}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p4", plan.ActionRecycle, file))
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Equal(t, plan.StatusCompleted, rep.Status)
	_, statErr := os.Lstat(file)
	assert.NoError(t, statErr, "dry run moved a file")

	entries, err := f.trash.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run wrote to the trash ledger")
}

func TestExecuteMinAgeGuard(t *testing.T) {
	f := newFixture(t)
	fresh := f.tree.File("fresh.tmp", 5)

	exec := New(f.pol, f.trash, f.store, Options{MinAge: time.Hour}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p5", plan.ActionRecycle, fresh))
	require.NoError(t, err)

	assert.Equal(t, plan.StatusPartiallyFailed, rep.Status)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, plan.ResultFailed, rep.Outcomes[0].Result)
	_, statErr := os.Lstat(fresh)
	assert.NoError(t, statErr, "recently modified file was removed")
}

func TestExecuteSymlinkSwapFails(t *testing.T) {
	f := newFixture(t)
	target := f.tree.FileWithAge("target.txt", 5, 48*time.Hour)
	link := f.tree.Symlink(target, "planned.tmp")

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p6", plan.ActionRecycle, link))
	require.NoError(t, err)

	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, plan.ResultFailed, rep.Outcomes[0].Result)
	_, statErr := os.Lstat(target)
	assert.NoError(t, statErr, "symlink target disturbed")
}

func TestExecuteReplacedFileNotRemoved(t *testing.T) {
	f := newFixture(t)
	planned := f.tree.FileWithAge("swap/doc.tmp", 10, 48*time.Hour)
	p := draftPlan("p13", plan.ActionRecycle, planned)

	// Swap a different regular file in at the planned path. Renaming an
	// existing file guarantees a distinct inode even if the original's
	// number gets reused.
	replacement := f.tree.FileWithAge("swap/other.tmp", 10, 48*time.Hour)
	require.NoError(t, os.Remove(planned))
	require.NoError(t, os.Rename(replacement, planned))

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusPartiallyFailed, rep.Status)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, plan.ResultFailed, rep.Outcomes[0].Result)

	_, statErr := os.Lstat(planned)
	assert.NoError(t, statErr, "replacement file was removed")
	entries, err := f.trash.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "replacement file was recycled")
}

func TestExecuteRefusesFinishedPlanID(t *testing.T) {
	f := newFixture(t)
	file := f.tree.FileWithAge("again.tmp", 4, 48*time.Hour)

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p14", plan.ActionRecycle, file))
	require.NoError(t, err)
	require.Equal(t, plan.StatusCompleted, rep.Status)

	// Deterministic IDs let a rebuilt draft collide with a plan the
	// store already finished; the terminal status must survive.
	_, err = exec.Execute(context.Background(), draftPlan("p14", plan.ActionRecycle, file))
	require.Error(t, err)

	status, ok, err := f.store.PlanStatus("p14")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, plan.StatusCompleted, status)
}

func TestExecuteDeleteFallbackRequiresConfirmation(t *testing.T) {
	testutil.SkipIfRoot(t)

	f := newFixture(t)
	file := f.tree.FileWithAge("stuck.tmp", 5, 48*time.Hour)

	// Make every recycle fail by locking the holding area.
	require.NoError(t, os.Chmod(f.trash.Dir(), 0o500))
	t.Cleanup(func() { _ = os.Chmod(f.trash.Dir(), 0o700) })

	// Without confirmation the item fails and survives.
	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p7", plan.ActionDelete, file))
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPartiallyFailed, rep.Status)
	assert.Equal(t, plan.ResultFailed, rep.Outcomes[0].Result)
	_, statErr := os.Lstat(file)
	require.NoError(t, statErr, "unconfirmed delete removed the file")

	// With confirmation the fallback deletes permanently.
	exec = New(f.pol, f.trash, f.store, Options{ConfirmDelete: true}, nil)
	rep, err = exec.Execute(context.Background(), draftPlan("p8", plan.ActionDelete, file))
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, rep.Status)
	assert.Equal(t, plan.ResultDeleted, rep.Outcomes[0].Result)
	_, statErr = os.Lstat(file)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteRecycleActionNeverDeletes(t *testing.T) {
	testutil.SkipIfRoot(t)

	f := newFixture(t)
	file := f.tree.FileWithAge("precious.tmp", 5, 48*time.Hour)
	require.NoError(t, os.Chmod(f.trash.Dir(), 0o500))
	t.Cleanup(func() { _ = os.Chmod(f.trash.Dir(), 0o700) })

	// ConfirmDelete is on, but the item's action is recycle: the
	// fallback must not trigger.
	exec := New(f.pol, f.trash, f.store, Options{ConfirmDelete: true}, nil)
	rep, err := exec.Execute(context.Background(), draftPlan("p9", plan.ActionRecycle, file))
	require.NoError(t, err)

	assert.Equal(t, plan.ResultFailed, rep.Outcomes[0].Result)
	_, statErr := os.Lstat(file)
	assert.NoError(t, statErr, "recycle-action item was permanently deleted")
}

func TestExecuteRejectsNonDraftPlans(t *testing.T) {
	f := newFixture(t)
	p := draftPlan("p10", plan.ActionRecycle)
	p.Status = plan.StatusCompleted

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	_, err := exec.Execute(context.Background(), p)
	assert.Error(t, err)
}

func TestExecutePersistsOutcomes(t *testing.T) {
	f := newFixture(t)
	file := f.tree.FileWithAge("persist.tmp", 7, 48*time.Hour)

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	p := draftPlan("p11", plan.ActionRecycle, file)
	_, err := exec.Execute(context.Background(), p)
	require.NoError(t, err)

	stored, err := f.store.Outcomes("p11")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, plan.ResultRecycled, stored[0].Result)

	got, err := f.store.GetPlan("p11")
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, got.Status)
}

func TestExecuteCancelledContext(t *testing.T) {
	f := newFixture(t)
	a := f.tree.FileWithAge("a.tmp", 1, 48*time.Hour)
	b := f.tree.FileWithAge("b.tmp", 1, 48*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := New(f.pol, f.trash, f.store, Options{}, nil)
	rep, err := exec.Execute(ctx, draftPlan("p12", plan.ActionRecycle, a, b))
	require.NoError(t, err)

	assert.Equal(t, plan.StatusPartiallyFailed, rep.Status)
	assert.Empty(t, rep.Outcomes)
	for _, path := range []string{a, b} {
		_, statErr := os.Lstat(path)
		assert.NoError(t, statErr, "cancelled run still removed %s", path)
	}
}
