// Package policy decides which filesystem paths are hard-protected,
// handled with caution, or eligible for cleanup. A Policy is an
// immutable rule table constructed once at startup; evaluation is a
// pure function of the path.
package policy

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// Disposition is the policy verdict for a path.
type Disposition int

const (
	Allowed Disposition = iota
	Caution
	Blocked
)

func (d Disposition) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Caution:
		return "caution"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParseDisposition parses a disposition name; unknown names parse to
// Blocked so a typo in configuration fails closed.
func ParseDisposition(s string) Disposition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowed":
		return Allowed
	case "caution":
		return Caution
	}
	return Blocked
}

// Rule maps a path prefix or glob pattern to a disposition.
type Rule struct {
	// Prefix is an absolute path prefix. Matched against the normalized
	// path, longest prefix wins.
	Prefix string
	// Pattern optionally restricts the rule to entries whose base name
	// matches this glob. An empty pattern matches everything under Prefix.
	Pattern     string
	Disposition Disposition
}

// systemCriticalPrefixes are hard-blocked regardless of any configured
// rule. They cover the OS installation root, the side-by-side component
// store and the default program-install roots on Windows, and their
// closest Unix analogues.
var systemCriticalPrefixes = []string{
	`C:\Windows`,
	`C:\Program Files`,
	`C:\Program Files (x86)`,
	`C:\System Volume Information`,
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/lib64",
	"/proc",
	"/sbin",
	"/sys",
	"/usr",
	"/System",
	"/Library/System",
}

type rule struct {
	prefix      string // normalized
	pattern     string // lowercased glob on base name, may be empty
	disposition Disposition
}

// Policy is the static path rule table plus configured extra protected
// paths. Immutable after New.
type Policy struct {
	hard []string
	soft []rule
}

// New builds a Policy. extraProtected entries become BLOCKED prefixes;
// rules add CAUTION/ALLOWED (or additional BLOCKED) entries. Built-in
// system-critical prefixes cannot be overridden by either.
func New(extraProtected []string, rules []Rule) *Policy {
	p := &Policy{}
	for _, prefix := range systemCriticalPrefixes {
		p.hard = append(p.hard, fsitem.PathKey(prefix))
	}
	// Configured protected paths are as final as the built-ins: a
	// protected path is never enumerated or deleted under any rule set.
	for _, path := range extraProtected {
		if path == "" {
			continue
		}
		p.hard = append(p.hard, fsitem.PathKey(path))
	}
	for _, r := range rules {
		if r.Prefix == "" {
			continue
		}
		p.soft = append(p.soft, rule{
			prefix:      fsitem.PathKey(r.Prefix),
			pattern:     strings.ToLower(r.Pattern),
			disposition: r.Disposition,
		})
	}
	// Longest prefix first so evaluation can stop at the first match
	// length; equal lengths keep the most restrictive verdict.
	sort.SliceStable(p.soft, func(i, j int) bool {
		if len(p.soft[i].prefix) != len(p.soft[j].prefix) {
			return len(p.soft[i].prefix) > len(p.soft[j].prefix)
		}
		return p.soft[i].disposition > p.soft[j].disposition
	})
	return p
}

// Evaluate returns the disposition for path. Deterministic and free of
// I/O: the verdict depends only on the rule table.
func (p *Policy) Evaluate(path string) Disposition {
	key := fsitem.PathKey(path)

	if isFilesystemRoot(key) {
		return Blocked
	}
	for _, prefix := range p.hard {
		if hasPathPrefix(key, prefix) {
			return Blocked
		}
	}

	best := Allowed
	bestLen := -1
	base := baseOf(key)
	for _, r := range p.soft {
		if len(r.prefix) < bestLen {
			break
		}
		if !hasPathPrefix(key, r.prefix) {
			continue
		}
		if r.pattern != "" {
			if ok, _ := filepath.Match(r.pattern, base); !ok {
				continue
			}
		}
		if len(r.prefix) > bestLen || r.disposition > best {
			best = r.disposition
			bestLen = len(r.prefix)
		}
		if best == Blocked {
			return Blocked
		}
	}
	return best
}

// hasPathPrefix reports whether key equals prefix or lies under it.
// Plain strings.HasPrefix would let "/usr" claim "/usrlocal".
func hasPathPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	if len(key) == len(prefix) {
		return true
	}
	return key[len(prefix)] == '/'
}

// isFilesystemRoot reports whether key names a volume root ("/", "c:",
// "c:/"). Roots are never eligible no matter what rules say.
func isFilesystemRoot(key string) bool {
	if key == "/" || key == "." {
		return true
	}
	trimmed := strings.TrimSuffix(key, "/")
	return len(trimmed) == 2 && trimmed[1] == ':'
}

func baseOf(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
