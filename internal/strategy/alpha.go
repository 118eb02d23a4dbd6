package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"GTAASentinel/internal/calculator"
	"GTAASentinel/internal/model"
	"GTAASentinel/internal/tracker"

	"github.com/rs/zerolog"
)

// HistoryProvider returns the trailing daily bars of a symbol, oldest first.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, bars int) ([]model.OHLCV, error)
}

// Alpha owns one tracker per instrument in the universe and runs the monthly generator
// over them. It is not safe for concurrent use; the host serializes calls.
type Alpha struct {
	weights   map[string]float64
	smaLength int
	history   HistoryProvider
	feed      tracker.Subscriber
	generator *SignalGenerator
	trackers  map[string]*tracker.Tracker
	log       zerolog.Logger
}

// NewAlpha creates an alpha model. weights maps ticker to static target weight.
func NewAlpha(weights map[string]float64, smaLength int, gen *SignalGenerator, history HistoryProvider, feed tracker.Subscriber, log zerolog.Logger) *Alpha {
	return &Alpha{
		weights:   weights,
		smaLength: smaLength,
		history:   history,
		feed:      feed,
		generator: gen,
		trackers:  make(map[string]*tracker.Tracker),
		log:       log.With().Str("component", "alpha").Logger(),
	}
}

// Generator returns the underlying signal generator.
func (a *Alpha) Generator() *SignalGenerator { return a.generator }

// OnSecuritiesChanged creates warmed-up trackers for added symbols and disposes removed ones.
func (a *Alpha) OnSecuritiesChanged(ctx context.Context, added, removed []string) {
	for _, symbol := range added {
		if _, ok := a.trackers[symbol]; ok {
			continue
		}
		weight, ok := a.weights[symbol]
		if !ok {
			a.log.Warn().Str("symbol", symbol).Msg("no static weight configured, using 0")
		}
		tr := tracker.New(model.Instrument{Symbol: symbol, Weight: weight}, a.smaLength)
		a.warmUp(ctx, tr)
		if a.feed != nil {
			tr.Attach(a.feed)
		}
		a.trackers[symbol] = tr
	}
	for _, symbol := range removed {
		tr, ok := a.trackers[symbol]
		if !ok {
			continue
		}
		tr.Dispose()
		delete(a.trackers, symbol)
		a.log.Info().Str("symbol", symbol).Msg("tracker removed")
	}
}

func (a *Alpha) warmUp(ctx context.Context, tr *tracker.Tracker) {
	symbol := tr.Instrument.Symbol
	if a.history == nil {
		return
	}
	bars, err := a.history.History(ctx, symbol, tr.WarmupBars())
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("history unavailable, tracker starts cold")
		return
	}
	if err := tr.Initialize(bars); err != nil {
		if errors.Is(err, tracker.ErrInsufficientHistory) {
			a.log.Warn().Err(err).Str("symbol", symbol).Msg("tracker not ready after warm-up")
			return
		}
		a.log.Error().Err(err).Str("symbol", symbol).Msg("warm-up failed")
		return
	}
	if err := crossCheck(tr, bars); err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("streaming and batch indicators disagree")
	}
	a.log.Info().Str("symbol", symbol).Int("bars", len(bars)).Bool("ready", tr.IsReady()).Msg("tracker warmed up")
}

const crossCheckTolerance = 1e-9

// crossCheck recomputes the trend and momentum score of a freshly initialized tracker from
// its warm-up bars and reports any difference.
func crossCheck(tr *tracker.Tracker, bars []model.OHLCV) error {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	closes := model.ExtractCloses(sorted)

	if tr.TrendReady() {
		sma, err := calculator.CalculateSMA(closes, tr.SMALength())
		if err != nil {
			return fmt.Errorf("batch SMA: %w", err)
		}
		if !approxEqual(sma, tr.Trend()) {
			return fmt.Errorf("SMA streaming %.8f, batch %.8f", tr.Trend(), sma)
		}
	}
	if score, ok := tr.CurrentScore(); ok {
		batch, err := calculator.MomentumScore(closes)
		if err != nil {
			return fmt.Errorf("batch momentum: %w", err)
		}
		if !approxEqual(batch, score) {
			return fmt.Errorf("momentum streaming %.8f, batch %.8f", score, batch)
		}
	}
	return nil
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= crossCheckTolerance*math.Max(1, math.Abs(b))
}

// Update runs the monthly evaluation. Within an already evaluated month it returns an
// empty evaluation.
func (a *Alpha) Update(now time.Time, prices PriceSource) model.Evaluation {
	eval, err := a.generator.Evaluate(now, a.Trackers(), prices)
	if err != nil {
		a.log.Debug().Err(err).Msg("evaluation skipped")
		return model.Evaluation{}
	}
	return eval
}

// Trackers returns the trackers ordered by symbol.
func (a *Alpha) Trackers() []*tracker.Tracker {
	out := make([]*tracker.Tracker, 0, len(a.trackers))
	for _, tr := range a.trackers {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument.Symbol < out[j].Instrument.Symbol })
	return out
}

// Tracker returns the tracker of symbol, if any.
func (a *Alpha) Tracker(symbol string) (*tracker.Tracker, bool) {
	tr, ok := a.trackers[symbol]
	return tr, ok
}

// Snapshots returns the indicator state of every tracker.
func (a *Alpha) Snapshots() []model.TrackerSnapshot {
	trs := a.Trackers()
	out := make([]model.TrackerSnapshot, len(trs))
	for i, tr := range trs {
		out[i] = tr.Snapshot()
	}
	return out
}
