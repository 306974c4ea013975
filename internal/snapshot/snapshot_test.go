package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VN1SH/reclaim/internal/classify"
	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/policy"
	"github.com/VN1SH/reclaim/internal/testutil"
	"github.com/VN1SH/reclaim/internal/walker"
)

func testClassifier() *classify.Classifier {
	set := classify.RuleSet{
		Rules: []classify.Rule{
			{Name: "temps", Category: fsitem.CategoryTemp, Extensions: []string{".tmp"}},
			{Name: "logs", Category: fsitem.CategoryLog, Extensions: []string{".log"}},
		},
		RiskByCategory: map[fsitem.Category]fsitem.RiskTier{
			fsitem.CategoryTemp:         fsitem.RiskSafe,
			fsitem.CategoryLog:          fsitem.RiskLow,
			fsitem.CategoryUnclassified: fsitem.RiskHigh,
		},
	}
	return classify.New(set, policy.New(nil, nil), time.Now())
}

func TestCaptureClassifiesAndAggregates(t *testing.T) {
	tree := testutil.NewTree(t)
	tree.File("work/a.tmp", 100)
	tree.File("work/b.log", 50)
	tree.File("work/c.dat", 10)

	pol := policy.New(nil, nil)
	snap, err := Capture(context.Background(), CaptureOptions{
		Walker:     walker.New(pol, walker.Options{Concurrency: 2}, nil),
		Classifier: testClassifier(),
		Roots:      []string{tree.Root},
		TopK:       10,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.Partial)
	assert.Equal(t, 3, snap.Stats.TotalFiles)
	assert.Equal(t, int64(160), snap.Stats.TotalSize)
	assert.Equal(t, 1, snap.Stats.ByCategory[fsitem.CategoryTemp].Count)
	assert.Equal(t, 1, snap.Stats.ByCategory[fsitem.CategoryLog].Count)

	var cats []fsitem.Category
	for _, it := range snap.Items {
		if !it.IsDir {
			cats = append(cats, it.Category)
		}
	}
	assert.Contains(t, cats, fsitem.CategoryUnclassified)
}

func TestCaptureNoRoots(t *testing.T) {
	_, err := Capture(context.Background(), CaptureOptions{
		Walker:     walker.New(policy.New(nil, nil), walker.Options{Concurrency: 1}, nil),
		Classifier: testClassifier(),
	})
	assert.Error(t, err)
}

func TestCaptureAllRootsMissingIsSetupFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := Capture(context.Background(), CaptureOptions{
		Walker:     walker.New(policy.New(nil, nil), walker.Options{Concurrency: 1}, nil),
		Classifier: testClassifier(),
		Roots:      []string{missing},
	})
	assert.Error(t, err)
}

func TestCapturePartialWhenOneRootFails(t *testing.T) {
	tree := testutil.NewTree(t)
	tree.File("ok.tmp", 5)
	missing := filepath.Join(t.TempDir(), "gone")

	snap, err := Capture(context.Background(), CaptureOptions{
		Walker:     walker.New(policy.New(nil, nil), walker.Options{Concurrency: 2}, nil),
		Classifier: testClassifier(),
		Roots:      []string{tree.Root, missing},
	})
	require.NoError(t, err)

	assert.True(t, snap.ErrorFor(missing))
	assert.NotEmpty(t, snap.Items)
}

func TestCacheRoundtrip(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	snap := &Snapshot{
		ID:        "abc123",
		Roots:     []string{"/data"},
		StartedAt: time.Now().Truncate(time.Second),
		Items: []fsitem.ClassifiedItem{
			{
				FileRecord: fsitem.FileRecord{
					Path:     "/data/a.tmp",
					Size:     10,
					Identity: fsitem.Identity{Dev: 2049, Inode: 777},
				},
				Category: fsitem.CategoryTemp,
				Risk:     fsitem.RiskSafe,
			},
		},
	}
	require.NoError(t, c.Save(snap))

	got, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc123", got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, fsitem.CategoryTemp, got.Items[0].Category)
	assert.Equal(t, fsitem.RiskSafe, got.Items[0].Risk)
	assert.Equal(t, fsitem.Identity{Dev: 2049, Inode: 777}, got.Items[0].Identity,
		"scanned identity lost across the cache")
}

func TestCacheMissingReadsAsNoScan(t *testing.T) {
	c := NewCache(t.TempDir())
	got, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheMalformedReadsAsNoScan(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)
	require.NoError(t, os.WriteFile(c.Path(), []byte("{{{{"), 0o644))

	got, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheOverwrites(t *testing.T) {
	c := NewCache(t.TempDir())
	require.NoError(t, c.Save(&Snapshot{ID: "first"}))
	require.NoError(t, c.Save(&Snapshot{ID: "second"}))

	got, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.ID)
}

func TestSnapshotIDsDifferAcrossScans(t *testing.T) {
	a := computeID([]string{"/data"}, time.Now())
	b := computeID([]string{"/data"}, time.Now().Add(time.Nanosecond))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 16)
}
