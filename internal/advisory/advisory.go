// Package advisory attaches external advice labels to classified items
// and prepares item payloads for advisory consumers. Annotations are
// opaque to the core: they may raise a displayed risk tier, never lower
// it, and never feed back into automated selection.
package advisory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VN1SH/reclaim/internal/fsitem"
)

// Annotation is one external label keyed by (path, category).
type Annotation struct {
	Path       string          `json:"path"`
	Category   fsitem.Category `json:"category"`
	Level      fsitem.RiskTier `json:"level"`
	Advice     string          `json:"advice,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}

type key struct {
	path     string
	category fsitem.Category
}

// Set is an immutable lookup of annotations.
type Set struct {
	byKey map[key]Annotation
}

// NewSet indexes annotations. Later duplicates of the same
// (path, category) key win.
func NewSet(annotations []Annotation) *Set {
	s := &Set{byKey: make(map[key]Annotation, len(annotations))}
	for _, a := range annotations {
		s.byKey[key{path: fsitem.PathKey(a.Path), category: a.Category}] = a
	}
	return s
}

// Lookup returns the annotation for an item, if any.
func (s *Set) Lookup(path string, category fsitem.Category) (Annotation, bool) {
	a, ok := s.byKey[key{path: fsitem.PathKey(path), category: category}]
	return a, ok
}

// DisplayRisk returns the tier to show for an item: the classifier's
// tier, raised (never lowered) by any matching annotation.
func (s *Set) DisplayRisk(item fsitem.ClassifiedItem) fsitem.RiskTier {
	if a, ok := s.Lookup(item.Path, item.Category); ok {
		return fsitem.MaxRisk(item.Risk, a.Level)
	}
	return item.Risk
}

// LoadFile reads an annotation file, a JSON array of annotations kept
// under the data directory. A missing file yields an empty set.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSet(nil), nil
		}
		return nil, err
	}
	var annotations []Annotation
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("parse annotations %s: %w", path, err)
	}
	return NewSet(annotations), nil
}
