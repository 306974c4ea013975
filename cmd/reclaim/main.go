// Package main is the CLI entry point for reclaim.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/VN1SH/reclaim/internal/advisory"
	"github.com/VN1SH/reclaim/internal/config"
	"github.com/VN1SH/reclaim/internal/report"
	"github.com/VN1SH/reclaim/internal/store"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Find and safely remove reclaimable disk space",
	Long: `reclaim scans local volumes for removable files (temp files, caches,
logs, browser caches, recycle-bin leftovers, large stale files),
classifies each candidate by risk, builds an auditable cleanup plan,
and executes it trash-first so every removal can be undone.

Nothing is ever deleted during a scan. Removal happens only through an
explicit plan, and permanent deletion requires --confirm-delete.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/reclaim/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "output", "o", "summary", "output format: summary, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable styled output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reclaim %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	},
}

// createLogger builds the process logger. Logs go to stderr so machine
// output on stdout stays parseable.
func createLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if flagVerbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	return config.Load(path)
}

func newReporter(cfg *config.Config) (*report.Reporter, error) {
	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}
	ann, err := advisory.LoadFile(filepath.Join(cfg.DataDir, "advisories.json"))
	if err != nil {
		return nil, fmt.Errorf("load advisories: %w", err)
	}
	styled := !flagNoColor && isatty.IsTerminal(os.Stdout.Fd()) && format == report.FormatSummary
	return report.New(os.Stdout, format, styled, cfg.RedactPaths).WithAnnotations(ann), nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(filepath.Join(cfg.DataDir, "results.db"))
}
