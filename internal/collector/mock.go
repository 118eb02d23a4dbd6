package collector

import (
	"context"
	"fmt"
	"time"

	"GTAASentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData map[string][]model.OHLCV
	Prices    map[string]float64
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		bars, ok := m.DailyData[symbol]
		if !ok {
			return nil, fmt.Errorf("mock: no data for %s", symbol)
		}
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		return bars, nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, symbol string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if p, ok := m.Prices[symbol]; ok {
		return p, nil
	}
	return m.Price, nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	today := model.TradingDay(time.Now(), time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   today.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
