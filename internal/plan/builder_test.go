package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/snapshot"
)

func classified(path string, size int64, cat fsitem.Category, risk fsitem.RiskTier) fsitem.ClassifiedItem {
	return fsitem.ClassifiedItem{
		FileRecord: fsitem.FileRecord{Path: path, Size: size},
		Category:   cat,
		Risk:       risk,
	}
}

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID: "snap0001",
		Items: []fsitem.ClassifiedItem{
			classified("/d/tmp/small.tmp", 10, fsitem.CategoryTemp, fsitem.RiskSafe),
			classified("/d/tmp/big.tmp", 1000, fsitem.CategoryTemp, fsitem.RiskSafe),
			classified("/d/logs/app.log", 500, fsitem.CategoryLog, fsitem.RiskLow),
			classified("/d/cache/blob", 200, fsitem.CategoryCache, fsitem.RiskSafe),
			classified("/d/dl/image.iso", 5000, fsitem.CategoryLargeFile, fsitem.RiskMedium),
			classified("/d/odd/unknown.bin", 50, fsitem.CategoryUnclassified, fsitem.RiskHigh),
			classified("/d/bin/tool.exe", 300, fsitem.CategoryTemp, fsitem.RiskHigh),
		},
	}
}

func TestBuildSelectsByRiskCeiling(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{MaxRisk: fsitem.RiskLow})
	require.NoError(t, err)

	var got []string
	for _, it := range p.Items {
		got = append(got, it.Path)
	}
	assert.ElementsMatch(t, []string{
		"/d/tmp/small.tmp", "/d/tmp/big.tmp", "/d/logs/app.log", "/d/cache/blob",
	}, got)
}

func TestBuildCarriesScannedIdentity(t *testing.T) {
	snap := testSnapshot()
	snap.Items[0].Identity = fsitem.Identity{Dev: 2049, Inode: 4242}

	p, err := Build(snap, Selection{MaxRisk: fsitem.RiskSafe})
	require.NoError(t, err)
	for _, it := range p.Items {
		if it.Path == "/d/tmp/small.tmp" {
			assert.Equal(t, fsitem.Identity{Dev: 2049, Inode: 4242}, it.Identity)
			return
		}
	}
	t.Fatal("expected item missing from plan")
}

func TestBuildCategoryFilter(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{
		Categories: []fsitem.Category{fsitem.CategoryLog},
		MaxRisk:    fsitem.RiskMedium,
	})
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "/d/logs/app.log", p.Items[0].Path)
}

func TestBuildHighRiskNeverSelectedByFilter(t *testing.T) {
	// Even a HIGH ceiling does not admit HIGH items.
	p, err := Build(testSnapshot(), Selection{MaxRisk: fsitem.RiskHigh})
	require.NoError(t, err)
	for _, it := range p.Items {
		assert.NotEqual(t, fsitem.RiskHigh, it.Risk, "HIGH item %s selected by filter", it.Path)
	}
}

func TestBuildIncludeOverridesRisk(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{
		MaxRisk:      fsitem.RiskSafe,
		IncludePaths: []string{"/d/bin/tool.exe"},
	})
	require.NoError(t, err)

	found := false
	for _, it := range p.Items {
		if it.Path == "/d/bin/tool.exe" {
			found = true
		}
	}
	assert.True(t, found, "explicit include did not override the risk ceiling")
}

func TestBuildExclude(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{
		MaxRisk:      fsitem.RiskLow,
		ExcludePaths: []string{"/d/tmp/big.tmp"},
	})
	require.NoError(t, err)
	for _, it := range p.Items {
		assert.NotEqual(t, "/d/tmp/big.tmp", it.Path)
	}
}

func TestBuildSkipsRecentAndUnreadable(t *testing.T) {
	snap := testSnapshot()

	recent := classified("/d/tmp/fresh.tmp", 10, fsitem.CategoryTemp, fsitem.RiskSafe)
	recent.Recent = true
	broken := classified("/d/tmp/locked.tmp", 10, fsitem.CategoryTemp, fsitem.RiskSafe)
	broken.ReadError = "permission denied"
	dir := classified("/d/tmp/sub", 0, fsitem.CategoryTemp, fsitem.RiskSafe)
	dir.IsDir = true
	snap.Items = append(snap.Items, recent, broken, dir)

	p, err := Build(snap, Selection{MaxRisk: fsitem.RiskLow})
	require.NoError(t, err)
	for _, it := range p.Items {
		assert.NotContains(t, []string{"/d/tmp/fresh.tmp", "/d/tmp/locked.tmp", "/d/tmp/sub"}, it.Path)
	}
}

func TestBuildDeterministicIDAndOrder(t *testing.T) {
	sel := Selection{
		Categories:   []fsitem.Category{fsitem.CategoryTemp, fsitem.CategoryLog},
		MaxRisk:      fsitem.RiskLow,
		ExcludePaths: []string{"/d/tmp/small.tmp"},
	}
	first, err := Build(testSnapshot(), sel)
	require.NoError(t, err)

	// Same inputs with reordered slices must produce the identical plan.
	sel2 := Selection{
		Categories:   []fsitem.Category{fsitem.CategoryLog, fsitem.CategoryTemp},
		MaxRisk:      fsitem.RiskLow,
		ExcludePaths: []string{"/d/tmp/small.tmp"},
	}
	second, err := Build(testSnapshot(), sel2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i], second.Items[i])
	}
}

func TestBuildOrdering(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{MaxRisk: fsitem.RiskMedium})
	require.NoError(t, err)

	for i := 1; i < len(p.Items); i++ {
		prev, cur := p.Items[i-1], p.Items[i]
		if prev.Category == cur.Category {
			assert.GreaterOrEqual(t, prev.Size, cur.Size,
				"within category %s, sizes must descend", cur.Category)
		} else {
			assert.Less(t, string(prev.Category), string(cur.Category))
		}
	}
}

func TestBuildDefaultsToRecycle(t *testing.T) {
	p, err := Build(testSnapshot(), Selection{MaxRisk: fsitem.RiskSafe})
	require.NoError(t, err)
	assert.Equal(t, ActionRecycle, p.Action)
	for _, it := range p.Items {
		assert.Equal(t, ActionRecycle, it.Action)
	}
}

func TestBuildNilSnapshot(t *testing.T) {
	_, err := Build(nil, Selection{})
	assert.Error(t, err)
}

func TestOutcomeFailed(t *testing.T) {
	tests := []struct {
		result ResultKind
		failed bool
	}{
		{ResultRecycled, false},
		{ResultDeleted, false},
		{ResultNotFound, false},
		{ResultSkippedProtected, true},
		{ResultFailed, true},
	}
	for _, tt := range tests {
		o := Outcome{Result: tt.result}
		if o.Failed() != tt.failed {
			t.Errorf("Outcome{%s}.Failed() = %v, want %v", tt.result, o.Failed(), tt.failed)
		}
	}
}
