package host

import (
	"context"
	"sort"
	"time"

	"GTAASentinel/internal/feed"
	"GTAASentinel/internal/model"
	"GTAASentinel/internal/portfolio"
	"GTAASentinel/internal/strategy"

	"github.com/rs/zerolog"
)

// ReplayStep is one evaluation produced by Replay.
type ReplayStep struct {
	Evaluation model.Evaluation
	Targets    []model.TargetWeight
}

// Replay runs the strategy over historical daily bars from a cold start. Each trading day
// is evaluated before its own bars are delivered, as in live operation. Evaluations dated
// before from are not run.
func Replay(settings Settings, bars map[string][]model.OHLCV, from time.Time, log zerolog.Logger) []ReplayStep {
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}

	hub := feed.NewHub()
	clock := portfolio.NewRebalanceClock(settings.Cadence)
	genCfg := settings.Generator
	genCfg.DefensiveWeight = settings.Weights[genCfg.DefensiveAsset]
	genCfg.Expiry = clock.Next
	gen := strategy.NewSignalGenerator(genCfg, log)
	alpha := strategy.NewAlpha(settings.Weights, settings.SMALength, gen, nil, hub, log)
	alpha.OnSecuritiesChanged(context.Background(), universe(settings), nil)
	constructor := portfolio.NewConstructor(settings.CashBuffer, log)

	byDay := make(map[time.Time]map[string][]model.OHLCV)
	for symbol, series := range bars {
		for _, b := range series {
			day := model.TradingDay(b.Time, loc)
			if byDay[day] == nil {
				byDay[day] = make(map[string][]model.OHLCV)
			}
			byDay[day][symbol] = append(byDay[day][symbol], b)
		}
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var steps []ReplayStep
	for _, day := range days {
		if !day.Before(from) {
			eval := alpha.Update(day, hub)
			if !eval.Time.IsZero() {
				steps = append(steps, ReplayStep{
					Evaluation: eval,
					Targets:    constructor.Targets(eval.Insights),
				})
			}
		}
		for symbol, dayBars := range byDay[day] {
			hub.Publish(symbol, dayBars)
		}
	}
	return steps
}
