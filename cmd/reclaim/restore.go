package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/trash"
)

var restorePlanID string

var restoreCmd = &cobra.Command{
	Use:   "restore [paths...]",
	Short: "Move recycled items back to their original location",
	Long: `Restores items from the recoverable trash. With --plan, restores every
item recycled by that plan; path arguments narrow the restore to the
named original locations. Restore fails for an item whose original
path is occupied again.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restorePlanID, "plan", "", "restore the items recycled by this plan")
}

func runRestore(cmd *cobra.Command, args []string) error {
	if restorePlanID == "" && len(args) == 0 {
		return fmt.Errorf("nothing to restore; give --plan or original paths")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := createLogger()
	defer func() { _ = log.Sync() }()

	tr, err := trash.New(cfg.TrashDir)
	if err != nil {
		return err
	}

	var entries []trash.Entry
	if restorePlanID != "" {
		entries, err = tr.EntriesForPlan(restorePlanID)
	} else {
		entries, err = tr.Entries()
	}
	if err != nil {
		return err
	}

	wanted := map[string]bool{}
	for _, a := range args {
		wanted[fsitem.PathKey(a)] = true
	}

	var restored, failed int
	for _, e := range entries {
		if e.Restored {
			continue
		}
		if len(wanted) > 0 && !wanted[fsitem.PathKey(e.From)] {
			continue
		}
		if err := tr.Restore(e); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "restore %s: %v\n", e.From, err)
			log.Warn("restore failed", zap.String("path", e.From), zap.Error(err))
			continue
		}
		restored++
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", e.From)
	}

	if restored == 0 && failed == 0 {
		return fmt.Errorf("no matching trash entries")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items could not be restored", failed, restored+failed)
	}
	return nil
}
