// Package fsitem holds the data model shared by the scan, classification
// and execution stages: file metadata records, cleanup categories and
// risk tiers.
package fsitem

import (
	"path/filepath"
	"strings"
	"time"
)

// Category is the cleanup category assigned to a scanned item.
type Category string

const (
	CategoryTemp               Category = "temp"
	CategoryCache              Category = "cache"
	CategoryLog                Category = "log"
	CategoryBrowserCache       Category = "browser_cache"
	CategoryRecycleBinLeftover Category = "recycle_bin_leftover"
	CategoryLargeFile          Category = "large_file"
	CategoryDuplicateCandidate Category = "duplicate_candidate"
	CategoryOther              Category = "other"
	CategoryUnclassified       Category = "unclassified"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryTemp,
		CategoryCache,
		CategoryLog,
		CategoryBrowserCache,
		CategoryRecycleBinLeftover,
		CategoryLargeFile,
		CategoryDuplicateCandidate,
		CategoryOther,
		CategoryUnclassified,
	}
}

// ParseCategory returns the category matching s, or false when unknown.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// RiskTier rates how safe automated deletion of an item is judged to be.
// Tiers are ordered: Safe < Low < Medium < High.
type RiskTier int

const (
	RiskSafe RiskTier = iota
	RiskLow
	RiskMedium
	RiskHigh
)

func (r RiskTier) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseRiskTier parses a tier name as produced by String.
func ParseRiskTier(s string) (RiskTier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return RiskSafe, true
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	}
	return RiskHigh, false
}

// MarshalText encodes the tier by name so snapshots and plans stay
// readable in JSON and YAML.
func (r RiskTier) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a tier name; unknown names decode to RiskHigh
// so a corrupt or future snapshot never loosens risk.
func (r *RiskTier) UnmarshalText(b []byte) error {
	tier, _ := ParseRiskTier(string(b))
	*r = tier
	return nil
}

// MaxRisk returns the more severe of two tiers.
func MaxRisk(a, b RiskTier) RiskTier {
	if a > b {
		return a
	}
	return b
}

// FileRecord is the metadata captured for one filesystem entry. Records
// are created by the walker and immutable once emitted.
type FileRecord struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	CreatedTime time.Time `json:"created_time"`
	Extension   string    `json:"extension"`
	IsDir       bool      `json:"is_dir"`
	IsSymlink   bool      `json:"is_symlink,omitempty"`
	ReadError   string    `json:"read_error,omitempty"`

	Identity Identity `json:"identity"`
}

// ExtensionOf returns the lowercased extension of path, empty when
// none. A bare dotfile like ".bashrc" has no extension.
func ExtensionOf(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return strings.ToLower(ext)
}

// ClassifiedItem is a FileRecord plus the category and risk tier the
// classifier assigned. Never mutated after creation.
type ClassifiedItem struct {
	FileRecord
	Category Category `json:"category"`
	Risk     RiskTier `json:"risk"`
	Rule     string   `json:"rule,omitempty"`
	Recent   bool     `json:"recent,omitempty"`
}

// ScanError records a subtree or entry the walker could not read.
type ScanError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ScanError) Error() string {
	return e.Path + ": " + e.Message
}
