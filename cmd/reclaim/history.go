package main

import (
	"github.com/spf13/cobra"

	"github.com/VN1SH/reclaim/internal/trash"
)

var historyTrash bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past plans and their outcomes",
	Long: `Lists every stored plan with its status and outcome tallies. With
--trash, lists the recoverable trash ledger instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyTrash, "trash", false, "list trash entries instead of plans")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return err
	}

	if historyTrash {
		tr, err := trash.New(cfg.TrashDir)
		if err != nil {
			return err
		}
		entries, err := tr.Entries()
		if err != nil {
			return err
		}
		return rep.TrashEntries(entries)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	plans, err := st.Plans()
	if err != nil {
		return err
	}
	return rep.History(plans)
}
