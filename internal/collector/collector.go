package collector

import (
	"context"
	"fmt"
	"time"

	"GTAASentinel/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Collector wraps a Fetcher with an outbound rate limit and completed-bar filtering.
type Collector struct {
	Fetcher  Fetcher
	Location *time.Location
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewCollector creates a collector allowing perSecond outbound requests.
// perSecond <= 0 disables the limit.
func NewCollector(fetcher Fetcher, loc *time.Location, perSecond float64, log zerolog.Logger) *Collector {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Collector{
		Fetcher:  fetcher,
		Location: loc,
		limiter:  limiter,
		log:      log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// History returns up to bars completed daily bars of symbol, oldest first.
func (c *Collector) History(ctx context.Context, symbol string, bars int) ([]model.OHLCV, error) {
	// one extra bar covers today's partial bar, which is dropped
	raw, err := c.fetchDaily(ctx, symbol, bars+1)
	if err != nil {
		return nil, err
	}
	completed := CompletedBars(raw, time.Now(), c.Location)
	if len(completed) > bars {
		completed = completed[len(completed)-bars:]
	}
	return completed, nil
}

// RecentBars returns completed daily bars of symbol up to asOf.
func (c *Collector) RecentBars(ctx context.Context, symbol string, days int, asOf time.Time) ([]model.OHLCV, error) {
	raw, err := c.fetchDaily(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	return CompletedBars(raw, asOf, c.Location), nil
}

// Quote returns the current price of symbol, or 0 if it cannot be fetched.
func (c *Collector) Quote(ctx context.Context, symbol string) float64 {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0
	}
	p, err := c.Fetcher.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("quote unavailable")
		return 0
	}
	return p
}

func (c *Collector) fetchDaily(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars %s: %w", symbol, err)
	}
	c.log.Debug().Str("symbol", symbol).Int("requested", days).Int("received", len(bars)).Msg("daily bars fetched")
	return bars, nil
}

// CompletedBars keeps the bars whose trading day ended before asOf's trading day in loc.
// Intraday and partial bars are never returned.
func CompletedBars(bars []model.OHLCV, asOf time.Time, loc *time.Location) []model.OHLCV {
	today := model.TradingDay(asOf, loc)
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if model.TradingDay(b.Time, loc).Before(today) {
			out = append(out, b)
		}
	}
	return out
}
