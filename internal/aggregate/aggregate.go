// Package aggregate rolls classified items up into descriptive
// statistics: totals per category, extension and top-level directory,
// plus a bounded set of the largest files and directories. Aggregation
// is read-only reporting; it never influences classification or plan
// selection.
package aggregate

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// DefaultTopK bounds the largest-files and largest-directories lists
// when the configuration does not override it.
const DefaultTopK = 50

// Bucket is a count+size pair.
type Bucket struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// DirBucket is a rolled-up directory total.
type DirBucket struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
	Size  int64  `json:"size"`
}

// Stats is the aggregation output persisted with each snapshot.
type Stats struct {
	TotalFiles  int                          `json:"total_files"`
	TotalSize   int64                        `json:"total_size"`
	ByCategory  map[fsitem.Category]Bucket   `json:"by_category"`
	ByExtension map[string]Bucket            `json:"by_extension"`
	ByDirectory map[string]Bucket            `json:"by_directory"`
	TopFiles    []fsitem.ClassifiedItem      `json:"top_files"`
	TopDirs     []DirBucket                  `json:"top_dirs"`
	Volumes     []VolumeUsage                `json:"volumes,omitempty"`
}

// Aggregator accumulates items in a single pass. It is used from one
// goroutine (the traversal consumer); memory for the top-K lists stays
// O(K) regardless of scan size.
type Aggregator struct {
	k       int
	roots   []string
	stats   Stats
	top     *itemHeap
	parents map[string]Bucket
}

// New creates an aggregator keeping the k largest files. roots anchor
// the top-level-directory breakdown.
func New(k int, roots []string) *Aggregator {
	if k <= 0 {
		k = DefaultTopK
	}
	keys := make([]string, 0, len(roots))
	for _, r := range roots {
		keys = append(keys, fsitem.PathKey(r))
	}
	return &Aggregator{
		k:     k,
		roots: keys,
		stats: Stats{
			ByCategory:  make(map[fsitem.Category]Bucket),
			ByExtension: make(map[string]Bucket),
			ByDirectory: make(map[string]Bucket),
		},
		top:     newItemHeap(k),
		parents: make(map[string]Bucket),
	}
}

// Add folds one classified item into the statistics.
func (a *Aggregator) Add(item fsitem.ClassifiedItem) {
	if item.IsDir || item.ReadError != "" {
		return
	}
	a.stats.TotalFiles++
	a.stats.TotalSize += item.Size

	cb := a.stats.ByCategory[item.Category]
	cb.Count++
	cb.Size += item.Size
	a.stats.ByCategory[item.Category] = cb

	ext := item.Extension
	if ext == "" {
		ext = "<none>"
	}
	eb := a.stats.ByExtension[ext]
	eb.Count++
	eb.Size += item.Size
	a.stats.ByExtension[ext] = eb

	if top := a.topLevelDir(item.Path); top != "" {
		db := a.stats.ByDirectory[top]
		db.Count++
		db.Size += item.Size
		a.stats.ByDirectory[top] = db
	}

	parent := fsitem.PathKey(filepath.Dir(item.Path))
	pb := a.parents[parent]
	pb.Count++
	pb.Size += item.Size
	a.parents[parent] = pb

	a.top.push(item)
}

// Finalize returns the completed statistics. The aggregator must not be
// reused afterwards.
func (a *Aggregator) Finalize() Stats {
	a.stats.TopFiles = a.top.sortedDesc()

	dirs := make([]DirBucket, 0, len(a.parents))
	for path, b := range a.parents {
		dirs = append(dirs, DirBucket{Path: path, Count: b.Count, Size: b.Size})
	}
	sort.Slice(dirs, func(i, j int) bool {
		if dirs[i].Size != dirs[j].Size {
			return dirs[i].Size > dirs[j].Size
		}
		return dirs[i].Path < dirs[j].Path
	})
	if len(dirs) > a.k {
		dirs = dirs[:a.k]
	}
	a.stats.TopDirs = dirs
	return a.stats
}

// topLevelDir maps a path to its first segment beneath a scan root.
func (a *Aggregator) topLevelDir(path string) string {
	key := fsitem.PathKey(path)
	for _, root := range a.roots {
		prefix := root
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return root + "/" + rest[:i]
		}
		return root
	}
	return fsitem.PathKey(filepath.Dir(path))
}
