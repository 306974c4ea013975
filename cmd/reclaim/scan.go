package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VN1SH/reclaim/internal/classify"
	"github.com/VN1SH/reclaim/internal/policy"
	"github.com/VN1SH/reclaim/internal/snapshot"
	"github.com/VN1SH/reclaim/internal/walker"
)

var (
	scanConcurrency int
	scanTopK        int
)

var scanCmd = &cobra.Command{
	Use:   "scan [roots...]",
	Short: "Scan volumes for reclaimable files",
	Long: `Walks the configured roots (or the roots given as arguments), classifies
every file into a removal category with a risk tier, and caches the
result for plan and clean. The scan is strictly read-only.

Interrupting a scan keeps the items found so far and marks the result
partial.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "traversal worker count (default from config)")
	scanCmd.Flags().IntVar(&scanTopK, "top", 0, "size of the largest-files and largest-directories lists")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Roots = args
	}
	if scanConcurrency > 0 {
		cfg.Concurrency = scanConcurrency
	}
	if scanTopK > 0 {
		cfg.TopK = scanTopK
	}

	log := createLogger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pol := policy.New(cfg.ProtectedPaths, cfg.PolicyRulesCompiled())
	w := walker.New(pol, walker.Options{
		Concurrency: cfg.Concurrency,
		IOTimeout:   cfg.IOTimeout(),
	}, log)
	cl := classify.New(cfg.RuleSet(), pol, time.Now())

	snap, err := snapshot.Capture(ctx, snapshot.CaptureOptions{
		Walker:     w,
		Classifier: cl,
		Roots:      cfg.Roots,
		TopK:       cfg.TopK,
		Log:        log,
	})
	if err != nil {
		return err
	}

	cache := snapshot.NewCache(cfg.DataDir)
	if err := cache.Save(snap); err != nil {
		log.Warn("scan cache not saved", zap.Error(err))
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return err
	}
	return rep.Snapshot(snap)
}
