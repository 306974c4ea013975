package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/snapshot"
)

// Selection configures which snapshot items a plan may contain.
type Selection struct {
	// Categories to include. Empty means every category except
	// unclassified.
	Categories []fsitem.Category
	// MaxRisk is the inclusive risk ceiling. Items above it are
	// excluded; HIGH items are excluded even below a HIGH ceiling
	// unless explicitly included by path.
	MaxRisk fsitem.RiskTier
	// IncludePaths force-include specific paths, overriding the risk
	// ceiling and the HIGH exclusion for exactly those items.
	IncludePaths []string
	// ExcludePaths remove specific paths from the selection.
	ExcludePaths []string
	// Action all items will carry.
	Action Action
}

// Build selects items from snap into an ordered plan. Deterministic:
// the same snapshot and selection always produce the same plan ID and
// item order.
func Build(snap *snapshot.Snapshot, sel Selection) (*Plan, error) {
	if snap == nil {
		return nil, fmt.Errorf("no snapshot to plan from")
	}
	if sel.Action == "" {
		sel.Action = ActionRecycle
	}

	include := pathSet(sel.IncludePaths)
	exclude := pathSet(sel.ExcludePaths)
	categories := map[fsitem.Category]struct{}{}
	for _, c := range sel.Categories {
		categories[c] = struct{}{}
	}

	var items []Item
	for _, it := range snap.Items {
		key := fsitem.PathKey(it.Path)
		if _, out := exclude[key]; out {
			continue
		}
		_, forced := include[key]
		if !forced && !selectable(it, categories, sel.MaxRisk) {
			continue
		}
		items = append(items, Item{
			Path:     it.Path,
			Category: it.Category,
			Risk:     it.Risk,
			Action:   sel.Action,
			Size:     it.Size,
			Identity: it.Identity,
		})
	}

	// Category then descending size: largest-impact items surface first
	// and execution order is reproducible.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		if items[i].Size != items[j].Size {
			return items[i].Size > items[j].Size
		}
		return items[i].Path < items[j].Path
	})

	return &Plan{
		ID:         planID(snap.ID, sel),
		SnapshotID: snap.ID,
		CreatedAt:  time.Now(),
		Status:     StatusDraft,
		Action:     sel.Action,
		Items:      items,
	}, nil
}

// selectable applies the default selection rules: actionable category,
// risk at or below the ceiling, never HIGH, never recent, never a
// directory or unreadable record.
func selectable(it fsitem.ClassifiedItem, categories map[fsitem.Category]struct{}, maxRisk fsitem.RiskTier) bool {
	if it.IsDir || it.ReadError != "" || it.Recent {
		return false
	}
	if it.Category == fsitem.CategoryUnclassified {
		return false
	}
	if len(categories) > 0 {
		if _, ok := categories[it.Category]; !ok {
			return false
		}
	}
	if it.Risk == fsitem.RiskHigh {
		return false
	}
	return it.Risk <= maxRisk
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[fsitem.PathKey(p)] = struct{}{}
	}
	return set
}

// planID hashes the snapshot identity and the canonical selection so
// identical inputs yield identical identifiers.
func planID(snapshotID string, sel Selection) string {
	cats := make([]string, 0, len(sel.Categories))
	for _, c := range sel.Categories {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	inc := normalizedSorted(sel.IncludePaths)
	exc := normalizedSorted(sel.ExcludePaths)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s",
		snapshotID,
		strings.Join(cats, ","),
		sel.MaxRisk.String(),
		strings.Join(inc, ","),
		strings.Join(exc, ","),
		sel.Action,
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func normalizedSorted(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, fsitem.PathKey(p))
	}
	sort.Strings(out)
	return out
}
