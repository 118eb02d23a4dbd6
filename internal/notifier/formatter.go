package notifier

import (
	"fmt"
	"strings"

	"GTAASentinel/internal/model"
)

// FormatAllocationReport formats a monthly evaluation and its targets into a Telegram message.
func FormatAllocationReport(eval *model.Evaluation, targets []model.TargetWeight) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>GTAA allocation</b> | %s (%s)\n\n", eval.Time.Format("2006-01"), eval.Mode))

	b.WriteString("📈 <b>Signals:</b>\n")
	for _, in := range eval.Insights {
		mark := "🟢"
		if in.Direction != model.DirectionUp {
			mark = "⚪"
		}
		stale := ""
		if in.Stale {
			stale = " (stale)"
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %.1f%%%s\n", mark, in.Symbol, in.Direction, in.Weight*100, stale))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Total: %.1f%%\n", eval.TotalWeight()*100))

	if len(targets) > 0 {
		b.WriteString("\n💰 <b>Targets:</b>\n")
		for _, tw := range targets {
			if tw.Weight == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s %.2f%%\n", tw.Symbol, tw.Weight*100))
		}
	}

	if len(eval.Skipped) > 0 {
		b.WriteString(fmt.Sprintf("\n⏳ Not ready: %s\n", strings.Join(eval.Skipped, ", ")))
	}
	if len(eval.Stale) > 0 {
		b.WriteString(fmt.Sprintf("⚠️ No current price: %s\n", strings.Join(eval.Stale, ", ")))
	}
	return b.String()
}

// FormatTrackerStatus formats the indicator state of every tracked instrument.
func FormatTrackerStatus(snaps []model.TrackerSnapshot) string {
	var b strings.Builder
	b.WriteString("📦 <b>Tracker status</b>\n\n")
	for _, s := range snaps {
		if !s.Ready {
			b.WriteString(fmt.Sprintf("%s: warming up (%d bars)\n", s.Symbol, s.Samples))
			continue
		}
		trend := "below"
		if s.LastClose > s.SMA {
			trend = "above"
		}
		b.WriteString(fmt.Sprintf("%s: close %.2f %s SMA %.2f | mom %+.3f\n", s.Symbol, s.LastClose, trend, s.SMA, s.Score))
	}
	return b.String()
}
