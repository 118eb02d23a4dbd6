package commands

import (
	"fmt"
	"time"

	"GTAASentinel/internal/host"
	"GTAASentinel/internal/notifier"
	"GTAASentinel/internal/state"

	"github.com/spf13/cobra"
)

var evaluateDryRun bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Warm up and run a single evaluation",
	Long: `Fetches history for every instrument and runs one evaluation for the current
month. Without --dry-run the persisted month guard applies and the result is saved.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evaluateDryRun, "dry-run", false, "ignore and keep the persisted state")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	statePath := a.cfg.StateFile
	if evaluateDryRun {
		statePath = ""
	}
	st, err := state.NewManager(statePath)
	if err != nil {
		return err
	}

	h := host.New(settingsFrom(a.cfg, a.loc), a.collector(), st, nil, nil, a.log)
	h.Start(cmd.Context())
	defer h.Close()

	eval, err := h.DayStep(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if eval == nil {
		fmt.Fprintln(out, "This month was already evaluated.")
		latest, targets := h.Latest()
		if latest != nil {
			fmt.Fprint(out, notifier.FormatAllocationReport(latest, targets))
		}
		return nil
	}
	_, targets := h.Latest()
	fmt.Fprint(out, notifier.FormatAllocationReport(eval, targets))
	fmt.Fprintln(out)
	fmt.Fprint(out, notifier.FormatTrackerStatus(h.Snapshots()))
	return nil
}
