// Package host drives the strategy: it feeds completed daily bars to the trackers, runs the
// monthly evaluation and publishes its outcome.
package host

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"GTAASentinel/internal/feed"
	"GTAASentinel/internal/model"
	"GTAASentinel/internal/notifier"
	"GTAASentinel/internal/portfolio"
	"GTAASentinel/internal/recorder"
	"GTAASentinel/internal/state"
	"GTAASentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultRecentDays = 10
	notifyRetries     = 3
)

// ErrNoMarketData is returned by DayStep when the host was built without a data source.
var ErrNoMarketData = errors.New("no market data source")

// MarketData supplies completed daily bars and live quotes.
type MarketData interface {
	strategy.HistoryProvider
	RecentBars(ctx context.Context, symbol string, days int, asOf time.Time) ([]model.OHLCV, error)
	// Quote returns the current price, or 0 if unavailable.
	Quote(ctx context.Context, symbol string) float64
}

// Settings configures a Host.
type Settings struct {
	Weights    map[string]float64
	SMALength  int
	Generator  strategy.GeneratorConfig
	CashBuffer float64
	Cadence    strategy.ExpiryFunc
	Location   *time.Location
	// RecentDays is how many daily bars each step requests.
	RecentDays int
}

// Host owns the alpha model and its feed. All methods are safe for concurrent use.
type Host struct {
	mu sync.Mutex

	settings    Settings
	data        MarketData
	hub         *feed.Hub
	alpha       *strategy.Alpha
	constructor *portfolio.Constructor
	state       *state.Manager
	recorder    recorder.Recorder
	notifier    notifier.Notifier
	log         zerolog.Logger

	latest  *model.Evaluation
	targets []model.TargetWeight
}

// New builds a host. The month guard and previous directions are restored from st.
func New(settings Settings, data MarketData, st *state.Manager, rec recorder.Recorder, n notifier.Notifier, log zerolog.Logger) *Host {
	if settings.RecentDays <= 0 {
		settings.RecentDays = defaultRecentDays
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}

	h := &Host{
		settings: settings,
		data:     data,
		hub:      feed.NewHub(),
		state:    st,
		recorder: rec,
		notifier: n,
		log:      log.With().Str("component", "host").Logger(),
	}

	clock := portfolio.NewRebalanceClock(settings.Cadence)
	genCfg := settings.Generator
	genCfg.DefensiveWeight = settings.Weights[genCfg.DefensiveAsset]
	genCfg.Expiry = clock.Next
	gen := strategy.NewSignalGenerator(genCfg, log)

	if st != nil {
		saved := st.GetState()
		if saved.LastMonth >= 0 {
			gen.Restore(saved.LastMonth, saved.Directions)
			h.log.Info().Int("last_month", saved.LastMonth).Str("evaluation_id", saved.LastEvaluationID).Msg("restored strategy state")
		}
	}

	h.alpha = strategy.NewAlpha(settings.Weights, settings.SMALength, gen, warmupSource{data: data, hub: h.hub}, h.hub, log)
	h.constructor = portfolio.NewConstructor(settings.CashBuffer, log)
	return h
}

// warmupSource marks history bars as delivered so the feed never replays them.
type warmupSource struct {
	data MarketData
	hub  *feed.Hub
}

func (w warmupSource) History(ctx context.Context, symbol string, bars int) ([]model.OHLCV, error) {
	if w.data == nil {
		return nil, nil
	}
	out, err := w.data.History(ctx, symbol, bars)
	if err != nil {
		return nil, err
	}
	for _, b := range out {
		w.hub.MarkDelivered(symbol, b.Time, b.Close)
	}
	return out, nil
}

// Start creates trackers for every configured symbol and the defensive asset.
func (h *Host) Start(ctx context.Context) {
	h.SetUniverse(ctx, universe(h.settings))
}

func universe(settings Settings) []string {
	symbols := make([]string, 0, len(settings.Weights)+1)
	for s := range settings.Weights {
		symbols = append(symbols, s)
	}
	if d := settings.Generator.DefensiveAsset; d != "" {
		if _, ok := settings.Weights[d]; !ok {
			symbols = append(symbols, d)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// SetUniverse adds trackers for new symbols and disposes those no longer listed.
func (h *Host) SetUniverse(ctx context.Context, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	want := make(map[string]bool, len(symbols))
	var added []string
	for _, s := range symbols {
		want[s] = true
		if _, ok := h.alpha.Tracker(s); !ok {
			added = append(added, s)
		}
	}
	var removed []string
	for _, tr := range h.alpha.Trackers() {
		if !want[tr.Instrument.Symbol] {
			removed = append(removed, tr.Instrument.Symbol)
		}
	}
	h.alpha.OnSecuritiesChanged(ctx, added, removed)
	h.log.Info().Strs("added", added).Strs("removed", removed).Msg("universe changed")
}

// DayStep delivers the bars completed before now and runs the monthly evaluation.
// It returns nil when the month was already evaluated.
func (h *Host) DayStep(ctx context.Context, now time.Time) (*model.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.data == nil {
		return nil, ErrNoMarketData
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, tr := range h.alpha.Trackers() {
		symbol := tr.Instrument.Symbol
		last := h.hub.LastDelivered(symbol)
		bars, err := h.data.RecentBars(ctx, symbol, h.barsToRequest(tr.WarmupBars(), last, now), now)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("daily bars unavailable, price marked stale")
			h.hub.Invalidate(symbol)
			continue
		}
		if len(bars) > 0 && !last.IsZero() && oldest(bars).After(last) {
			h.log.Warn().
				Str("symbol", symbol).
				Time("last_delivered", last).
				Time("oldest_fetched", oldest(bars)).
				Msg("bar gap not covered by the data source, indicators skip the missing days")
		}
		if n := h.hub.Publish(symbol, bars); n > 0 {
			h.log.Debug().Str("symbol", symbol).Int("bars", n).Msg("bars delivered")
		}
	}

	day := model.TradingDay(now, h.settings.Location)
	if err := h.recorder.RecordSnapshots(day, h.alpha.Snapshots()); err != nil {
		h.log.Error().Err(err).Msg("record tracker snapshots")
	}

	eval := h.alpha.Update(now, priceBook{ctx: ctx, hub: h.hub, data: h.data, log: h.log})
	if eval.Time.IsZero() {
		return nil, nil
	}
	eval.ID = uuid.NewString()
	targets := h.constructor.Targets(eval.Insights)
	h.publish(ctx, &eval, targets)
	return &eval, nil
}

// barsToRequest sizes the daily-bar request so it reaches back to the last delivered bar.
// Calendar days bound trading days from above. A symbol with nothing delivered yet asks for
// a full warm-up window.
func (h *Host) barsToRequest(warmup int, last, now time.Time) int {
	if last.IsZero() {
		return warmup
	}
	days := int(now.Sub(last).Hours()/24) + 2
	if days < h.settings.RecentDays {
		return h.settings.RecentDays
	}
	return days
}

func oldest(bars []model.OHLCV) time.Time {
	t := bars[0].Time
	for _, b := range bars[1:] {
		if b.Time.Before(t) {
			t = b.Time
		}
	}
	return t
}

// priceBook serves the close of the last delivered bar and falls back to a live quote
// for symbols without one.
type priceBook struct {
	ctx  context.Context
	hub  *feed.Hub
	data MarketData
	log  zerolog.Logger
}

func (p priceBook) Price(symbol string) float64 {
	if px := p.hub.Price(symbol); px > 0 {
		return px
	}
	px := p.data.Quote(p.ctx, symbol)
	if px > 0 {
		p.log.Info().Str("symbol", symbol).Float64("price", px).Msg("no delivered close, using live quote")
	}
	return px
}

func (h *Host) publish(ctx context.Context, eval *model.Evaluation, targets []model.TargetWeight) {
	h.latest = eval
	h.targets = targets

	gen := h.alpha.Generator()
	if h.state != nil {
		if err := h.state.RecordEvaluation(gen.LastMonth(), gen.Directions(), eval, targets); err != nil {
			h.log.Error().Err(err).Msg("save strategy state")
		}
	}
	if err := h.recorder.RecordEvaluation(eval, targets); err != nil {
		h.log.Error().Err(err).Msg("record evaluation")
	}
	if err := h.notifier.SendWithRetry(ctx, notifier.FormatAllocationReport(eval, targets), notifyRetries); err != nil {
		h.log.Error().Err(err).Msg("send allocation report")
	}
	h.log.Info().
		Str("evaluation_id", eval.ID).
		Float64("invested", eval.TotalWeight()).
		Int("targets", len(targets)).
		Msg("allocation published")
}

// Latest returns the newest evaluation and its targets, falling back to the recorder
// after a restart. It returns nil if none exists.
func (h *Host) Latest() (*model.Evaluation, []model.TargetWeight) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		return h.latest, h.targets
	}
	eval, targets, err := h.recorder.LatestEvaluation()
	if err != nil {
		h.log.Warn().Err(err).Msg("load latest evaluation")
		return nil, nil
	}
	return eval, targets
}

// Snapshots returns the indicator state of every tracker, ordered by symbol.
func (h *Host) Snapshots() []model.TrackerSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alpha.Snapshots()
}

// Close disposes every tracker.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	var all []string
	for _, tr := range h.alpha.Trackers() {
		all = append(all, tr.Instrument.Symbol)
	}
	h.alpha.OnSecuritiesChanged(context.Background(), nil, all)
}
