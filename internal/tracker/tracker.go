// Package tracker maintains per-instrument trend and momentum state from daily bars.
package tracker

import (
	"errors"
	"fmt"
	"sort"

	"GTAASentinel/internal/calculator"
	"GTAASentinel/internal/model"
)

// DefaultSMALength is the trend window in trading days.
const DefaultSMALength = 200

// ErrInsufficientHistory is returned when warm-up history is shorter than the trend window.
var ErrInsufficientHistory = errors.New("insufficient history")

// BarHandler receives one completed daily bar.
type BarHandler func(bar model.OHLCV)

// Subscriber delivers daily bars for a symbol until the returned func is called.
type Subscriber interface {
	Subscribe(symbol string, handler BarHandler) (unsubscribe func())
}

// Tracker holds the trend and momentum indicators of one instrument.
// It is not safe for concurrent use; the host serializes bar delivery and reads.
type Tracker struct {
	Instrument model.Instrument

	sma      *calculator.SimpleMovingAverage
	momentum []*calculator.MomentumPercent
	score    float64
	samples  int
	lastBar  model.OHLCV

	unsubscribe func()
}

// New creates an empty tracker for inst with a moving average of smaLength days.
func New(inst model.Instrument, smaLength int) *Tracker {
	if smaLength <= 0 {
		smaLength = DefaultSMALength
	}
	t := &Tracker{
		Instrument: inst,
		sma:        calculator.NewSimpleMovingAverage(smaLength),
		momentum:   make([]*calculator.MomentumPercent, len(calculator.MomentumPeriods)),
	}
	for i, period := range calculator.MomentumPeriods {
		t.momentum[i] = calculator.NewMomentumPercent(period)
	}
	return t
}

// WarmupBars is the number of observations after which the tracker is ready.
func (t *Tracker) WarmupBars() int {
	n := t.sma.Period
	if lookback := calculator.MomentumLookback() - 1; lookback > n {
		n = lookback
	}
	return n + 1
}

// Initialize replays history through the daily update path in chronological order.
// All bars are absorbed even when the result is ErrInsufficientHistory, so live bars
// can complete the warm-up later.
func (t *Tracker) Initialize(history []model.OHLCV) error {
	bars := make([]model.OHLCV, len(history))
	copy(bars, history)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	for _, b := range bars {
		t.OnDailyBar(b)
	}
	if len(bars) < t.sma.Period {
		return fmt.Errorf("%s: %d bars, need %d: %w", t.Instrument.Symbol, len(bars), t.sma.Period, ErrInsufficientHistory)
	}
	return nil
}

// Attach subscribes the tracker to daily bars for its symbol.
func (t *Tracker) Attach(sub Subscriber) {
	t.Dispose()
	t.unsubscribe = sub.Subscribe(t.Instrument.Symbol, t.OnDailyBar)
}

// OnDailyBar absorbs one completed daily bar. Callers guarantee single delivery per day.
func (t *Tracker) OnDailyBar(bar model.OHLCV) {
	t.sma.Update(bar.Close)
	returns := make([]float64, len(t.momentum))
	for i, m := range t.momentum {
		m.Update(bar.Close)
		returns[i] = m.Value()
	}
	t.score = calculator.BlendMomentum(returns)
	t.samples++
	t.lastBar = bar
}

// TrendReady reports whether the moving average has a full window.
func (t *Tracker) TrendReady() bool { return t.sma.IsReady() }

// MomentumReady reports whether every momentum window is full.
func (t *Tracker) MomentumReady() bool {
	for _, m := range t.momentum {
		if !m.IsReady() {
			return false
		}
	}
	return true
}

// IsReady is true once both trend and momentum have absorbed WarmupBars observations.
func (t *Tracker) IsReady() bool {
	return t.samples >= t.WarmupBars() && t.TrendReady() && t.MomentumReady()
}

// CurrentScore returns the latest momentum score; ok is false until the tracker is ready.
func (t *Tracker) CurrentScore() (score float64, ok bool) {
	if !t.IsReady() {
		return 0, false
	}
	return t.score, true
}

// SMALength returns the trend window in days.
func (t *Tracker) SMALength() int { return t.sma.Period }

// Trend returns the current moving-average value.
func (t *Tracker) Trend() float64 { return t.sma.Value() }

// PriceAboveTrend compares price with the moving average.
// Before the average is ready the price is reported as below trend.
func (t *Tracker) PriceAboveTrend(price float64) model.TrendPosition {
	if !t.sma.IsReady() {
		return model.TrendBelow
	}
	v := t.sma.Value()
	switch {
	case price > v:
		return model.TrendAbove
	case price == v:
		return model.TrendEqual
	default:
		return model.TrendBelow
	}
}

// LastBar returns the most recently absorbed bar.
func (t *Tracker) LastBar() model.OHLCV { return t.lastBar }

// Samples returns the number of absorbed bars.
func (t *Tracker) Samples() int { return t.samples }

// Snapshot returns a copy of the tracker state for reporting.
func (t *Tracker) Snapshot() model.TrackerSnapshot {
	return model.TrackerSnapshot{
		Symbol:      t.Instrument.Symbol,
		Weight:      t.Instrument.Weight,
		Samples:     t.samples,
		TrendReady:  t.TrendReady(),
		Ready:       t.IsReady(),
		SMA:         t.sma.Value(),
		Score:       t.score,
		LastClose:   t.lastBar.Close,
		LastBarTime: t.lastBar.Time,
	}
}

// Dispose releases the daily-bar subscription. It is safe to call more than once.
func (t *Tracker) Dispose() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}
