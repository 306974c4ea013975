// Package classify maps file records to cleanup categories and risk
// tiers. Classification is a pure function of the record and an
// immutable rule set: no I/O, no hidden state, so identical records
// always classify identically.
package classify

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/policy"
)

// Rule matches records into one category. A record matches when it lies
// under one of Prefixes (if any are set) AND matches at least one of
// Segments, Extensions or Patterns (when any of those are set). A rule
// with only Prefixes matches everything beneath them.
type Rule struct {
	Name       string
	Category   fsitem.Category
	Prefixes   []string // absolute path prefixes
	Segments   []string // path substrings, e.g. "/cache/"
	Extensions []string // lowercased, with dot
	Patterns   []string // base-name globs, e.g. "* (1).*"
}

// RuleSet is the full classification table: ordered specific rules,
// the generic large-file heuristic, and the category→risk mapping.
// Thresholds and extension lists are policy data supplied by
// configuration, not constants of this package.
type RuleSet struct {
	Rules []Rule

	// Generic fallback: files at least LargeFileMinSize bytes that have
	// not been modified for LargeFileMinAge become LARGE_FILE candidates.
	LargeFileMinSize int64
	LargeFileMinAge  time.Duration

	// RecentWindow marks items modified within the window as recent;
	// recent items are excluded from default plan selection.
	RecentWindow time.Duration

	// RiskByCategory maps each category to its default tier. Categories
	// missing from the map rate RiskHigh.
	RiskByCategory map[fsitem.Category]fsitem.RiskTier

	// EscalateExtensions raise the tier to at least RiskHigh
	// (executables, libraries, anything the product judges dangerous).
	EscalateExtensions []string
}

type compiledRule struct {
	name       string
	category   fsitem.Category
	prefixes   []string
	segments   []string
	extensions map[string]struct{}
	patterns   []string
}

// Classifier applies a RuleSet. The reference time is fixed at
// construction so one scan classifies against a single instant.
type Classifier struct {
	rules    []compiledRule
	set      RuleSet
	escalate map[string]struct{}
	pol      *policy.Policy
	now      time.Time
}

// New compiles the rule set. pol supplies the CAUTION floor: an item on
// a caution path never rates below RiskMedium. now anchors all age
// computations for this classifier's lifetime.
func New(set RuleSet, pol *policy.Policy, now time.Time) *Classifier {
	c := &Classifier{set: set, pol: pol, now: now, escalate: map[string]struct{}{}}
	for _, r := range set.Rules {
		cr := compiledRule{
			name:       r.Name,
			category:   r.Category,
			extensions: map[string]struct{}{},
			patterns:   r.Patterns,
		}
		for _, p := range r.Prefixes {
			cr.prefixes = append(cr.prefixes, fsitem.PathKey(p))
		}
		for _, s := range r.Segments {
			cr.segments = append(cr.segments, strings.ToLower(s))
		}
		for _, e := range r.Extensions {
			cr.extensions[strings.ToLower(e)] = struct{}{}
		}
		c.rules = append(c.rules, cr)
	}
	for _, e := range set.EscalateExtensions {
		c.escalate[strings.ToLower(e)] = struct{}{}
	}
	return c
}

// Classify assigns exactly one category and a risk tier to rec. The
// record itself is never altered.
func (c *Classifier) Classify(rec fsitem.FileRecord) fsitem.ClassifiedItem {
	item := fsitem.ClassifiedItem{
		FileRecord: rec,
		Category:   fsitem.CategoryUnclassified,
		Risk:       fsitem.RiskHigh,
	}
	if c.set.RecentWindow > 0 && !rec.ModTime.IsZero() {
		item.Recent = c.now.Sub(rec.ModTime) < c.set.RecentWindow
	}

	if rec.IsDir {
		// Directories are reported for statistics but only files are
		// classified into actionable categories.
		return item
	}

	key := fsitem.PathKey(rec.Path)
	base := strings.ToLower(filepath.Base(rec.Path))
	ext := rec.Extension
	if ext == "" {
		ext = fsitem.ExtensionOf(rec.Path)
	}

	for _, r := range c.rules {
		if r.match(key, base, ext) {
			item.Category = r.category
			item.Rule = r.name
			break
		}
	}

	if item.Category == fsitem.CategoryUnclassified && c.set.LargeFileMinSize > 0 {
		age := c.now.Sub(rec.ModTime)
		if rec.Size >= c.set.LargeFileMinSize && age >= c.set.LargeFileMinAge {
			item.Category = fsitem.CategoryLargeFile
			item.Rule = "large-old-file"
		}
	}

	item.Risk = c.riskFor(item.Category, key, ext)
	return item
}

func (c *Classifier) riskFor(cat fsitem.Category, key, ext string) fsitem.RiskTier {
	risk, ok := c.set.RiskByCategory[cat]
	if !ok {
		risk = fsitem.RiskHigh
	}
	if _, bad := c.escalate[ext]; bad {
		risk = fsitem.MaxRisk(risk, fsitem.RiskHigh)
	}
	if c.pol != nil && c.pol.Evaluate(key) == policy.Caution {
		// A caution path can never carry a safe/low tier.
		risk = fsitem.MaxRisk(risk, fsitem.RiskMedium)
	}
	return risk
}

func (r *compiledRule) match(key, base, ext string) bool {
	if len(r.prefixes) > 0 {
		under := false
		for _, p := range r.prefixes {
			if key == p || strings.HasPrefix(key, p+"/") {
				under = true
				break
			}
		}
		if !under {
			return false
		}
		// Prefix-only rule: everything beneath matches.
		if len(r.segments) == 0 && len(r.extensions) == 0 && len(r.patterns) == 0 {
			return true
		}
	}
	for _, s := range r.segments {
		if strings.Contains(key, s) {
			return true
		}
	}
	if _, ok := r.extensions[ext]; ok {
		return true
	}
	for _, p := range r.patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
