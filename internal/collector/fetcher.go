package collector

import (
	"context"

	"GTAASentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}
