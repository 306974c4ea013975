package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
	"github.com/VN1SH/reclaim/internal/snapshot"
)

var (
	planCategories []string
	planMaxRisk    string
	planInclude    []string
	planExclude    []string
	planAction     string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a cleanup plan from the last scan",
	Long: `Selects items from the cached scan by category and risk ceiling and
freezes them into an ordered, immutable plan. The plan is stored as a
draft; nothing is removed until 'reclaim clean' executes it.

HIGH-risk items are never selected by a category or risk filter. The
only way to plan a HIGH-risk item is to name its path with --include.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringSliceVar(&planCategories, "category", nil, "categories to include (default: all except unclassified)")
	planCmd.Flags().StringVar(&planMaxRisk, "max-risk", "", "risk ceiling: safe, low, medium or high (default from config)")
	planCmd.Flags().StringSliceVar(&planInclude, "include", nil, "force-include these paths, overriding the risk ceiling")
	planCmd.Flags().StringSliceVar(&planExclude, "exclude", nil, "exclude these paths")
	planCmd.Flags().StringVar(&planAction, "action", "", "recycle or delete (default from config)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

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

	p, err := plan.Build(snap, sel)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SavePlan(p); err != nil {
		return err
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return err
	}
	return rep.Plan(p)
}

// buildSelection merges plan flags over config defaults.
func buildSelection(defaultRisk, defaultAction string) (plan.Selection, error) {
	var sel plan.Selection

	for _, c := range planCategories {
		cat, ok := fsitem.ParseCategory(c)
		if !ok {
			return sel, fmt.Errorf("unknown category: %s", c)
		}
		sel.Categories = append(sel.Categories, cat)
	}

	riskName := planMaxRisk
	if riskName == "" {
		riskName = defaultRisk
	}
	risk, ok := fsitem.ParseRiskTier(riskName)
	if !ok {
		return sel, fmt.Errorf("unknown risk tier: %s", riskName)
	}
	sel.MaxRisk = risk

	actionName := planAction
	if actionName == "" {
		actionName = defaultAction
	}
	switch plan.Action(actionName) {
	case plan.ActionRecycle, plan.ActionDelete:
		sel.Action = plan.Action(actionName)
	default:
		return sel, fmt.Errorf("action must be recycle or delete, got %s", actionName)
	}

	sel.IncludePaths = planInclude
	sel.ExcludePaths = planExclude
	return sel, nil
}
