package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VN1SH/reclaim/internal/executor"
	"github.com/VN1SH/reclaim/internal/plan"
	"github.com/VN1SH/reclaim/internal/policy"
	"github.com/VN1SH/reclaim/internal/snapshot"
	"github.com/VN1SH/reclaim/internal/trash"
)

var (
	cleanPlanID        string
	cleanDryRun        bool
	cleanConfirmDelete bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Execute a cleanup plan",
	Long: `Executes a stored draft plan, or builds one from the last scan with the
plan flags when --plan is not given. Items are moved to the recoverable
trash first; permanent deletion is only attempted as a fallback for
items planned with action delete, and only with --confirm-delete.

Every item's outcome is recorded exactly once. Individual failures
never stop the run; interrupting stops before the next untouched item
and marks the plan partially failed.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanPlanID, "plan", "", "execute this stored plan instead of building one")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "report what would happen without touching anything")
	cleanCmd.Flags().BoolVar(&cleanConfirmDelete, "confirm-delete", false, "permit permanent deletion when a recycle fails")

	cleanCmd.Flags().StringSliceVar(&planCategories, "category", nil, "categories to include (default: all except unclassified)")
	cleanCmd.Flags().StringVar(&planMaxRisk, "max-risk", "", "risk ceiling: safe, low, medium or high (default from config)")
	cleanCmd.Flags().StringSliceVar(&planInclude, "include", nil, "force-include these paths, overriding the risk ceiling")
	cleanCmd.Flags().StringSliceVar(&planExclude, "exclude", nil, "exclude these paths")
	cleanCmd.Flags().StringVar(&planAction, "action", "", "recycle or delete (default from config)")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := createLogger()
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var p *plan.Plan
	if cleanPlanID != "" {
		p, err = st.GetPlan(cleanPlanID)
		if err != nil {
			return err
		}
	} else {
		snap, err := snapshot.NewCache(cfg.DataDir).Load()
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no scan found; run 'reclaim scan' first")
		}
		sel, err := buildSelection(cfg.MaxRisk, cfg.Action)
		if err != nil {
			return err
		}
		p, err = plan.Build(snap, sel)
		if err != nil {
			return err
		}
	}

	tr, err := trash.New(cfg.TrashDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pol := policy.New(cfg.ProtectedPaths, cfg.PolicyRulesCompiled())
	exec := executor.New(pol, tr, st, executor.Options{
		ConfirmDelete: cleanConfirmDelete || cfg.ConfirmDelete,
		DryRun:        cleanDryRun,
		MinAge:        cfg.MinFileAge(),
	}, log)

	result, err := exec.Execute(ctx, p)
	if err != nil {
		return err
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return err
	}
	return rep.Execution(result)
}
