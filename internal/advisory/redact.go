package advisory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

const redactedSegments = 3

// Redact truncates a path for external consumers: the last three
// segments are kept for context and a short hash of the full path is
// appended so redacted payloads remain correlatable without exposing
// the full location.
func Redact(path string) string {
	key := fsitem.PathKey(path)
	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) > redactedSegments {
		parts = parts[len(parts)-redactedSegments:]
	}
	sum := sha256.Sum256([]byte(key))
	return "***/" + strings.Join(parts, "/") + "#" + hex.EncodeToString(sum[:])[:10]
}

// ExportItem is the shape of one item as exposed to advisory consumers.
type ExportItem struct {
	Path     string          `json:"path"`
	Name     string          `json:"name"`
	Ext      string          `json:"ext"`
	Size     int64           `json:"size_bytes"`
	Modified int64           `json:"modified_time"`
	Category fsitem.Category `json:"category"`
	Risk     fsitem.RiskTier `json:"risk"`
	Recent   bool            `json:"recent"`
}

// Export converts items for an advisory consumer, applying redaction
// when the privacy toggle is on. A non-nil annotation set raises the
// exported risk tiers; it never lowers them. ann may be nil.
func Export(items []fsitem.ClassifiedItem, ann *Set, redact bool) []ExportItem {
	out := make([]ExportItem, 0, len(items))
	for _, it := range items {
		path := it.Path
		if redact {
			path = Redact(it.Path)
		}
		risk := it.Risk
		if ann != nil {
			risk = ann.DisplayRisk(it)
		}
		out = append(out, ExportItem{
			Path:     path,
			Name:     baseName(it.Path),
			Ext:      it.Extension,
			Size:     it.Size,
			Modified: it.ModTime.Unix(),
			Category: it.Category,
			Risk:     risk,
			Recent:   it.Recent,
		})
	}
	return out
}

func baseName(path string) string {
	key := fsitem.PathKey(path)
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
