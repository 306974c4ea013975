// Package snapshot captures the complete result of one
// traversal+classification pass and persists it as the scan cache.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VN1SH/reclaim/internal/aggregate"
	"github.com/VN1SH/reclaim/internal/classify"
	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/walker"
)

// Snapshot is one completed scan. Each scan supersedes the previous
// cache rather than merging into it.
type Snapshot struct {
	ID         string                  `json:"id"`
	Roots      []string                `json:"roots"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Partial    bool                    `json:"partial"`
	Items      []fsitem.ClassifiedItem `json:"items"`
	Stats      aggregate.Stats         `json:"stats"`
	Errors     []fsitem.ScanError      `json:"errors"`
}

// CaptureOptions wires the pipeline stages together.
type CaptureOptions struct {
	Walker     *walker.Walker
	Classifier *classify.Classifier
	Roots      []string
	TopK       int
	Log        *zap.Logger
}

// Capture runs a full scan: the walker's worker pool feeds a single
// consumer which classifies and aggregates in stream order. Returns an
// error only on setup failure (no roots survive validation); subtree
// failures are recorded in the snapshot instead.
func Capture(ctx context.Context, opts CaptureOptions) (*Snapshot, error) {
	if len(opts.Roots) == 0 {
		return nil, fmt.Errorf("no scan roots configured")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	started := time.Now()
	snap := &Snapshot{
		Roots:     append([]string(nil), opts.Roots...),
		StartedAt: started,
	}
	snap.ID = computeID(opts.Roots, started)

	agg := aggregate.New(opts.TopK, opts.Roots)
	res := opts.Walker.Walk(ctx, opts.Roots)

	records, errs := res.Records, res.Errors
	for records != nil || errs != nil {
		select {
		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if rec.ReadError != "" {
				snap.Errors = append(snap.Errors, fsitem.ScanError{Path: rec.Path, Message: rec.ReadError})
				continue
			}
			item := opts.Classifier.Classify(rec)
			snap.Items = append(snap.Items, item)
			agg.Add(item)
		case scanErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			snap.Errors = append(snap.Errors, scanErr)
		}
	}

	snap.Stats = agg.Finalize()
	snap.Stats.Volumes = aggregate.Volumes(opts.Roots)
	snap.FinishedAt = time.Now()
	snap.Partial = ctx.Err() != nil

	// A scan that found nothing at all and errored on every root never
	// actually started; that is a setup failure, not a partial result.
	if len(snap.Items) == 0 && len(snap.Errors) >= len(opts.Roots) && allRootErrors(snap.Errors, opts.Roots) {
		return nil, fmt.Errorf("no accessible scan roots: %s", snap.Errors[0].Message)
	}

	log.Info("scan completed",
		zap.Int("items", len(snap.Items)),
		zap.Int("errors", len(snap.Errors)),
		zap.Bool("partial", snap.Partial),
		zap.Duration("elapsed", snap.FinishedAt.Sub(snap.StartedAt)),
	)
	return snap, nil
}

// ErrorFor reports whether the snapshot recorded a scan error for path.
func (s *Snapshot) ErrorFor(path string) bool {
	key := fsitem.PathKey(path)
	for _, e := range s.Errors {
		if fsitem.PathKey(e.Path) == key {
			return true
		}
	}
	return false
}

func allRootErrors(errs []fsitem.ScanError, roots []string) bool {
	failed := map[string]struct{}{}
	for _, e := range errs {
		failed[fsitem.PathKey(e.Path)] = struct{}{}
	}
	for _, r := range roots {
		if _, ok := failed[fsitem.PathKey(r)]; !ok {
			return false
		}
	}
	return true
}

// computeID derives a stable snapshot identity from the root set and
// the scan start instant.
func computeID(roots []string, started time.Time) string {
	keys := make([]string, 0, len(roots))
	for _, r := range roots {
		keys = append(keys, fsitem.PathKey(r))
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d", strings.Join(keys, "\x00"), started.UnixNano())
	return hex.EncodeToString(h.Sum(nil))[:16]
}
