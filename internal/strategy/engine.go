package strategy

import (
	"fmt"
	"sort"
	"time"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/tracker"

	"github.com/rs/zerolog"
)

// Mode selects how trackers are turned into weights.
type Mode string

const (
	// ModeTrend holds every instrument above its trend at its static weight.
	ModeTrend Mode = "trend"
	// ModeRanked holds the top N instruments by momentum, equally weighted, if above trend.
	ModeRanked Mode = "ranked"
)

// StalePolicy decides what happens to an instrument without a current price.
type StalePolicy string

const (
	// StaleCarry re-emits the previous direction flagged as stale.
	StaleCarry StalePolicy = "carry"
	// StaleSkip emits nothing for the instrument.
	StaleSkip StalePolicy = "skip"
)

const noMonth = -1

// PriceSource returns the latest known price of a symbol, or 0 if unavailable.
type PriceSource interface {
	Price(symbol string) float64
}

// GeneratorConfig configures a SignalGenerator.
type GeneratorConfig struct {
	DefensiveAsset  string
	DefensiveWeight float64
	Mode            Mode
	TopN            int
	StalePolicy     StalePolicy
	Expiry          ExpiryFunc
}

// SignalGenerator converts tracker state into monthly insights. It acts at most once per
// calendar month.
type SignalGenerator struct {
	cfg            GeneratorConfig
	log            zerolog.Logger
	lastMonth      int
	lastDirections map[string]model.Direction
}

// NewSignalGenerator creates a generator that has not evaluated any month yet.
func NewSignalGenerator(cfg GeneratorConfig, log zerolog.Logger) *SignalGenerator {
	if cfg.Mode == "" {
		cfg.Mode = ModeTrend
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 6
	}
	if cfg.StalePolicy == "" {
		cfg.StalePolicy = StaleCarry
	}
	if cfg.Expiry == nil {
		cfg.Expiry = EndOfMonth
	}
	return &SignalGenerator{
		cfg:            cfg,
		log:            log.With().Str("component", "signal").Logger(),
		lastMonth:      noMonth,
		lastDirections: make(map[string]model.Direction),
	}
}

// Mode returns the configured selection mode.
func (g *SignalGenerator) Mode() Mode { return g.cfg.Mode }

// LastMonth returns the month key of the last evaluation, or -1.
func (g *SignalGenerator) LastMonth() int { return g.lastMonth }

// Directions returns a copy of the last emitted direction per symbol.
func (g *SignalGenerator) Directions() map[string]model.Direction {
	out := make(map[string]model.Direction, len(g.lastDirections))
	for k, v := range g.lastDirections {
		out[k] = v
	}
	return out
}

// Restore seeds the month guard and previous directions, e.g. after a restart.
func (g *SignalGenerator) Restore(lastMonth int, directions map[string]model.Direction) {
	g.lastMonth = lastMonth
	g.lastDirections = make(map[string]model.Direction, len(directions))
	for k, v := range directions {
		g.lastDirections[k] = v
	}
}

// Evaluate produces the insights for now's month. A second call within the same month
// returns an empty evaluation and ErrDuplicateEvaluation.
func (g *SignalGenerator) Evaluate(now time.Time, trackers []*tracker.Tracker, prices PriceSource) (model.Evaluation, error) {
	month := MonthKey(now)
	if g.lastMonth == month {
		return model.Evaluation{}, fmt.Errorf("%s: %w", now.Format("2006-01"), ErrDuplicateEvaluation)
	}
	g.lastMonth = month

	sorted := make([]*tracker.Tracker, len(trackers))
	copy(sorted, trackers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Instrument.Symbol < sorted[j].Instrument.Symbol
	})

	c := &cycle{
		g:      g,
		eval:   model.Evaluation{Time: now, Mode: string(g.cfg.Mode)},
		expiry: g.cfg.Expiry(now),
		prices: prices,
	}
	switch g.cfg.Mode {
	case ModeRanked:
		c.ranked(sorted)
	default:
		c.trend(sorted)
	}
	c.emit(g.cfg.DefensiveAsset, model.DirectionUp, c.riskOff, false)

	g.log.Info().
		Str("month", now.Format("2006-01")).
		Int("insights", len(c.eval.Insights)).
		Float64("risk_off", c.riskOff).
		Strs("skipped", c.eval.Skipped).
		Strs("stale", c.eval.Stale).
		Msg("monthly evaluation")
	return c.eval, nil
}

// cycle accumulates the insights of one evaluation.
type cycle struct {
	g       *SignalGenerator
	eval    model.Evaluation
	expiry  time.Time
	prices  PriceSource
	riskOff float64
}

func (c *cycle) emit(symbol string, dir model.Direction, weight float64, stale bool) {
	c.eval.Insights = append(c.eval.Insights, model.Insight{
		Symbol:    symbol,
		Direction: dir,
		Weight:    weight,
		Expiry:    c.expiry,
		Stale:     stale,
	})
	c.g.lastDirections[symbol] = dir
}

// hold emits Up at weight when above trend, otherwise Flat and pools weight into risk-off.
func (c *cycle) hold(symbol string, above bool, weight float64, stale bool) {
	if above {
		c.emit(symbol, model.DirectionUp, weight, stale)
		return
	}
	c.emit(symbol, model.DirectionFlat, 0, stale)
	c.riskOff += weight
}

// price returns the current price, or ok=false after applying the stale policy.
func (c *cycle) price(tr *tracker.Tracker) (float64, bool) {
	symbol := tr.Instrument.Symbol
	p := c.prices.Price(symbol)
	if p > 0 {
		return p, true
	}
	c.eval.Stale = append(c.eval.Stale, symbol)
	c.g.log.Warn().Err(ErrStalePrice).Str("symbol", symbol).Str("policy", string(c.g.cfg.StalePolicy)).Msg("no current price")
	return 0, false
}

// carry re-emits the previous direction of a stale instrument under StaleCarry.
func (c *cycle) carry(symbol string, weight float64) {
	if c.g.cfg.StalePolicy != StaleCarry {
		return
	}
	prev, ok := c.g.lastDirections[symbol]
	if !ok {
		return
	}
	c.hold(symbol, prev == model.DirectionUp, weight, true)
}

func (c *cycle) eligible(tr *tracker.Tracker) bool {
	if tr.Instrument.Symbol == c.g.cfg.DefensiveAsset {
		return false
	}
	if !tr.IsReady() {
		c.eval.Skipped = append(c.eval.Skipped, tr.Instrument.Symbol)
		c.g.log.Debug().Str("symbol", tr.Instrument.Symbol).Int("samples", tr.Samples()).Msg("tracker not ready")
		return false
	}
	return true
}

func (c *cycle) trend(trackers []*tracker.Tracker) {
	c.riskOff = c.g.cfg.DefensiveWeight
	for _, tr := range trackers {
		if !c.eligible(tr) {
			continue
		}
		symbol, weight := tr.Instrument.Symbol, tr.Instrument.Weight
		price, ok := c.price(tr)
		if !ok {
			c.carry(symbol, weight)
			continue
		}
		c.hold(symbol, tr.PriceAboveTrend(price) == model.TrendAbove, weight, false)
	}
}
