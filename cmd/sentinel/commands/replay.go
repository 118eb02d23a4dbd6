package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"GTAASentinel/internal/host"
	"GTAASentinel/internal/model"

	"github.com/spf13/cobra"
)

var (
	replayFrom string
	replayBars int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the strategy over historical bars",
	Long: `Downloads daily history for every instrument and steps through it day by day
from a cold start, printing each monthly allocation from --from onwards.

Example:
  sentinel replay --from 2022-01-01 --bars 1000`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "first evaluation date (YYYY-MM-DD, required)")
	replayCmd.Flags().IntVar(&replayBars, "bars", 1000, "daily bars to download per instrument")
	_ = replayCmd.MarkFlagRequired("from")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	from, err := time.ParseInLocation("2006-01-02", replayFrom, a.loc)
	if err != nil {
		return fmt.Errorf("parse --from: %w", err)
	}

	settings := settingsFrom(a.cfg, a.loc)
	col := a.collector()
	bars := make(map[string][]model.OHLCV)
	for _, symbol := range a.cfg.Symbols() {
		series, err := col.History(cmd.Context(), symbol, replayBars)
		if err != nil {
			a.log.Warn().Err(err).Str("symbol", symbol).Msg("history unavailable, instrument replays cold")
			continue
		}
		bars[symbol] = series
	}

	steps := host.Replay(settings, bars, from, a.log)
	out := cmd.OutOrStdout()
	for _, s := range steps {
		fmt.Fprintf(out, "%s  %s\n", s.Evaluation.Time.Format("2006-01-02"), formatTargets(s.Targets))
	}
	fmt.Fprintf(out, "%d evaluations\n", len(steps))
	return nil
}

func formatTargets(targets []model.TargetWeight) string {
	held := make([]model.TargetWeight, 0, len(targets))
	for _, tw := range targets {
		if tw.Weight > 0 {
			held = append(held, tw)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].Weight > held[j].Weight })
	parts := make([]string, len(held))
	for i, tw := range held {
		parts[i] = fmt.Sprintf("%s=%.1f%%", tw.Symbol, tw.Weight*100)
	}
	return strings.Join(parts, " ")
}
