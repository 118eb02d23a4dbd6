package strategy

import (
	"errors"
	"testing"
	"time"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceMap map[string]float64

func (p priceMap) Price(symbol string) float64 { return p[symbol] }

var (
	jan = time.Date(2020, 1, 31, 16, 0, 0, 0, time.UTC)
	feb = time.Date(2020, 2, 3, 16, 0, 0, 0, time.UTC)
)

func history(start, step float64, n int) []model.OHLCV {
	out := make([]model.OHLCV, n)
	for i := range out {
		out[i] = model.OHLCV{Time: jan.AddDate(0, 0, i-n), Close: start + step*float64(i)}
	}
	return out
}

// flatTracker is ready with a trend value of exactly 100.
func flatTracker(t *testing.T, symbol string, weight float64) *tracker.Tracker {
	t.Helper()
	tr := tracker.New(model.Instrument{Symbol: symbol, Weight: weight}, 200)
	require.NoError(t, tr.Initialize(history(100, 0, 253)))
	require.True(t, tr.IsReady())
	return tr
}

func risingTracker(t *testing.T, symbol string, step float64) (*tracker.Tracker, float64) {
	t.Helper()
	h := history(100, step, 253)
	tr := tracker.New(model.Instrument{Symbol: symbol, Weight: 0.1}, 200)
	require.NoError(t, tr.Initialize(h))
	return tr, h[len(h)-1].Close
}

func newGenerator(cfg GeneratorConfig) *SignalGenerator {
	if cfg.DefensiveAsset == "" {
		cfg.DefensiveAsset = "IEF"
	}
	return NewSignalGenerator(cfg, zerolog.Nop())
}

func bySymbol(insights []model.Insight) map[string]model.Insight {
	out := make(map[string]model.Insight, len(insights))
	for _, in := range insights {
		out[in.Symbol] = in
	}
	return out
}

func TestEvaluate_OneAboveTwoBelow(t *testing.T) {
	g := newGenerator(GeneratorConfig{})
	trs := []*tracker.Tracker{
		flatTracker(t, "A", 0.3),
		flatTracker(t, "B", 0.3),
		flatTracker(t, "C", 0.4),
	}
	eval, err := g.Evaluate(jan, trs, priceMap{"A": 110, "B": 90, "C": 95})
	require.NoError(t, err)
	require.Len(t, eval.Insights, 4)

	got := bySymbol(eval.Insights)
	assert.Equal(t, model.DirectionUp, got["A"].Direction)
	assert.InDelta(t, 0.3, got["A"].Weight, 1e-12)
	assert.Equal(t, model.DirectionFlat, got["B"].Direction)
	assert.Zero(t, got["B"].Weight)
	assert.Equal(t, model.DirectionFlat, got["C"].Direction)
	assert.Zero(t, got["C"].Weight)
	assert.Equal(t, model.DirectionUp, got["IEF"].Direction)
	assert.InDelta(t, 0.7, got["IEF"].Weight, 1e-12)
	assert.InDelta(t, 1.0, eval.TotalWeight(), 1e-12)

	for _, in := range eval.Insights {
		assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), in.Expiry)
	}
}

func TestEvaluate_AllAboveAllBelow(t *testing.T) {
	trs := func() []*tracker.Tracker {
		return []*tracker.Tracker{flatTracker(t, "A", 0.5), flatTracker(t, "B", 0.5)}
	}

	eval, err := newGenerator(GeneratorConfig{}).Evaluate(jan, trs(), priceMap{"A": 101, "B": 102})
	require.NoError(t, err)
	got := bySymbol(eval.Insights)
	assert.Zero(t, got["IEF"].Weight)
	assert.Equal(t, 0.5, got["A"].Weight)
	assert.Equal(t, 0.5, got["B"].Weight)

	eval, err = newGenerator(GeneratorConfig{}).Evaluate(jan, trs(), priceMap{"A": 99, "B": 98})
	require.NoError(t, err)
	got = bySymbol(eval.Insights)
	assert.InDelta(t, 1.0, got["IEF"].Weight, 1e-12)
}

func TestEvaluate_EqualToTrendIsFlat(t *testing.T) {
	eval, err := newGenerator(GeneratorConfig{}).Evaluate(jan, []*tracker.Tracker{flatTracker(t, "A", 1)}, priceMap{"A": 100})
	require.NoError(t, err)
	got := bySymbol(eval.Insights)
	assert.Equal(t, model.DirectionFlat, got["A"].Direction)
	assert.InDelta(t, 1.0, got["IEF"].Weight, 1e-12)
}

func TestEvaluate_DefensiveWeightSeedsRiskOff(t *testing.T) {
	g := newGenerator(GeneratorConfig{DefensiveWeight: 0.05})
	trs := []*tracker.Tracker{
		flatTracker(t, "VNQ", 0.2),
		flatTracker(t, "GLD", 0.1),
		flatTracker(t, "DBC", 0.1),
		flatTracker(t, "EFA", 0.55),
		flatTracker(t, "IEF", 0.05),
	}
	eval, err := g.Evaluate(jan, trs, priceMap{"VNQ": 120, "GLD": 80, "DBC": 101, "EFA": 99, "IEF": 100})
	require.NoError(t, err)
	got := bySymbol(eval.Insights)
	require.Len(t, eval.Insights, 5, "the defensive tracker is not evaluated on its own")
	assert.InDelta(t, 0.05+0.1+0.55, got["IEF"].Weight, 1e-12)
	assert.InDelta(t, 1.0, eval.TotalWeight(), 1e-12)
}

func TestEvaluate_OncePerMonth(t *testing.T) {
	g := newGenerator(GeneratorConfig{})
	trs := []*tracker.Tracker{flatTracker(t, "A", 1)}
	prices := priceMap{"A": 120}

	first, err := g.Evaluate(jan, trs, prices)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Insights)

	second, err := g.Evaluate(jan.Add(time.Hour), trs, prices)
	assert.True(t, errors.Is(err, ErrDuplicateEvaluation))
	assert.Empty(t, second.Insights)

	third, err := g.Evaluate(feb, trs, prices)
	require.NoError(t, err)
	assert.NotEmpty(t, third.Insights)

	// same month number, different year
	g.Restore(MonthKey(jan), nil)
	_, err = g.Evaluate(jan.AddDate(1, 0, 0), trs, prices)
	assert.NoError(t, err)
}

func TestEvaluate_SkipsNotReady(t *testing.T) {
	cold := tracker.New(model.Instrument{Symbol: "B", Weight: 0.5}, 200)
	eval, err := newGenerator(GeneratorConfig{}).Evaluate(jan, []*tracker.Tracker{flatTracker(t, "A", 0.5), cold}, priceMap{"A": 101, "B": 101})
	require.NoError(t, err)
	got := bySymbol(eval.Insights)
	assert.NotContains(t, got, "B")
	assert.Equal(t, []string{"B"}, eval.Skipped)
	assert.Zero(t, got["IEF"].Weight)
}

func TestEvaluate_StalePrice(t *testing.T) {
	t.Run("carry", func(t *testing.T) {
		g := newGenerator(GeneratorConfig{StalePolicy: StaleCarry})
		trs := []*tracker.Tracker{flatTracker(t, "A", 0.6), flatTracker(t, "B", 0.4)}

		_, err := g.Evaluate(jan, trs, priceMap{"A": 110, "B": 90})
		require.NoError(t, err)

		eval, err := g.Evaluate(feb, trs, priceMap{})
		require.NoError(t, err)
		got := bySymbol(eval.Insights)
		assert.True(t, got["A"].Stale)
		assert.Equal(t, model.DirectionUp, got["A"].Direction)
		assert.Equal(t, 0.6, got["A"].Weight)
		assert.True(t, got["B"].Stale)
		assert.Equal(t, model.DirectionFlat, got["B"].Direction)
		assert.InDelta(t, 0.4, got["IEF"].Weight, 1e-12)
		assert.ElementsMatch(t, []string{"A", "B"}, eval.Stale)
		assert.InDelta(t, 1.0, eval.TotalWeight(), 1e-12)
	})

	t.Run("skip", func(t *testing.T) {
		g := newGenerator(GeneratorConfig{StalePolicy: StaleSkip})
		trs := []*tracker.Tracker{flatTracker(t, "A", 0.6), flatTracker(t, "B", 0.4)}
		_, err := g.Evaluate(jan, trs, priceMap{"A": 110, "B": 110})
		require.NoError(t, err)

		eval, err := g.Evaluate(feb, trs, priceMap{"B": 110})
		require.NoError(t, err)
		got := bySymbol(eval.Insights)
		assert.NotContains(t, got, "A")
		assert.Equal(t, []string{"A"}, eval.Stale)
		assert.Zero(t, got["IEF"].Weight)
	})

	t.Run("carry without history", func(t *testing.T) {
		g := newGenerator(GeneratorConfig{StalePolicy: StaleCarry})
		eval, err := g.Evaluate(jan, []*tracker.Tracker{flatTracker(t, "A", 1)}, priceMap{})
		require.NoError(t, err)
		assert.NotContains(t, bySymbol(eval.Insights), "A")
	})
}

func TestEvaluate_Ranked(t *testing.T) {
	g := newGenerator(GeneratorConfig{Mode: ModeRanked, TopN: 3})
	prices := priceMap{}
	var trs []*tracker.Tracker
	for i, symbol := range []string{"S1", "S2", "S3", "S4", "S5"} {
		tr, last := risingTracker(t, symbol, float64(5-i)*0.1)
		trs = append(trs, tr)
		prices[symbol] = last
	}
	// S2 ranks second but trades below its trend
	prices["S2"] = 50

	eval, err := g.Evaluate(jan, trs, prices)
	require.NoError(t, err)
	got := bySymbol(eval.Insights)

	slot := 1.0 / 3
	assert.Equal(t, model.DirectionUp, got["S1"].Direction)
	assert.InDelta(t, slot, got["S1"].Weight, 1e-12)
	assert.Equal(t, model.DirectionFlat, got["S2"].Direction)
	assert.Equal(t, model.DirectionUp, got["S3"].Direction)
	assert.Equal(t, model.DirectionFlat, got["S4"].Direction)
	assert.Equal(t, model.DirectionFlat, got["S5"].Direction)
	assert.InDelta(t, slot, got["IEF"].Weight, 1e-12)
	assert.InDelta(t, 1.0, eval.TotalWeight(), 1e-12)
}

func TestEvaluate_RankedUnfilledSlots(t *testing.T) {
	g := newGenerator(GeneratorConfig{Mode: ModeRanked, TopN: 4})
	tr, last := risingTracker(t, "S1", 0.2)
	eval, err := g.Evaluate(jan, []*tracker.Tracker{tr}, priceMap{"S1": last})
	require.NoError(t, err)
	got := bySymbol(eval.Insights)
	assert.InDelta(t, 0.25, got["S1"].Weight, 1e-12)
	assert.InDelta(t, 0.75, got["IEF"].Weight, 1e-12)
}

func TestExpiry(t *testing.T) {
	ts := time.Date(2021, 12, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2021, 12, 16, 0, 0, 0, 0, time.UTC), EndOfDay(ts))
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), EndOfMonth(ts))
	assert.NotEqual(t, MonthKey(ts), MonthKey(ts.AddDate(-1, 0, 0)))
	assert.Equal(t, MonthKey(ts), MonthKey(time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)))
}
