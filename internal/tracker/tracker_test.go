package tracker

import (
	"errors"
	"testing"
	"time"

	"GTAASentinel/internal/calculator"
	"GTAASentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func bars(closes ...float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Close: c}
	}
	return out
}

func series(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestIsReady_AfterWarmupBars(t *testing.T) {
	for _, smaLength := range []int{50, 200, 300} {
		tr := New(model.Instrument{Symbol: "SPY", Weight: 1}, smaLength)
		want := smaLength
		if want < 252 {
			want = 252
		}
		want++
		require.Equal(t, want, tr.WarmupBars())

		for i, b := range bars(series(100, 0.1, want+5)...) {
			tr.OnDailyBar(b)
			assert.Equal(t, i+1 >= want, tr.IsReady(), "sma=%d sample=%d", smaLength, i+1)
		}
	}
}

func TestInitialize_InsufficientHistory(t *testing.T) {
	tr := New(model.Instrument{Symbol: "VNQ", Weight: 0.2}, 200)
	err := tr.Initialize(bars(series(10, 1, 150)...))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.Equal(t, 150, tr.Samples(), "history is still absorbed")
	assert.False(t, tr.IsReady())
}

func TestInitialize_ExactlySMALength(t *testing.T) {
	tr := New(model.Instrument{Symbol: "GLD", Weight: 0.1}, 200)
	require.NoError(t, tr.Initialize(bars(series(10, 1, 200)...)))
	assert.True(t, tr.TrendReady())
	assert.False(t, tr.MomentumReady())
	assert.False(t, tr.IsReady())
	_, ok := tr.CurrentScore()
	assert.False(t, ok)
}

func TestInitialize_SortsHistory(t *testing.T) {
	h := bars(series(100, 1, 253)...)
	reversed := make([]model.OHLCV, len(h))
	for i := range h {
		reversed[len(h)-1-i] = h[i]
	}
	tr := New(model.Instrument{Symbol: "EFA", Weight: 0.1}, 200)
	require.NoError(t, tr.Initialize(reversed))
	assert.Equal(t, 352.0, tr.LastBar().Close)

	want, err := calculator.MomentumScore(model.ExtractCloses(h))
	require.NoError(t, err)
	got, ok := tr.CurrentScore()
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-9)
}

func TestCurrentScore(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		check  func(t *testing.T, score float64)
	}{
		{"constant price", series(50, 0, 260), func(t *testing.T, s float64) { assert.Equal(t, 0.0, s) }},
		{"rising", series(50, 0.25, 260), func(t *testing.T, s float64) { assert.Greater(t, s, 0.0) }},
		{"falling", series(200, -0.25, 260), func(t *testing.T, s float64) { assert.Less(t, s, 0.0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(model.Instrument{Symbol: "X", Weight: 1}, 200)
			require.NoError(t, tr.Initialize(bars(tt.closes...)))
			score, ok := tr.CurrentScore()
			require.True(t, ok)
			tt.check(t, score)
		})
	}
}

func TestPriceAboveTrend(t *testing.T) {
	tr := New(model.Instrument{Symbol: "TLT", Weight: 0.05}, 10)
	assert.Equal(t, model.TrendBelow, tr.PriceAboveTrend(1000), "not ready yet")

	require.NoError(t, tr.Initialize(bars(series(100, 0, 10)...)))
	assert.Equal(t, model.TrendAbove, tr.PriceAboveTrend(100.01))
	assert.Equal(t, model.TrendEqual, tr.PriceAboveTrend(100))
	assert.Equal(t, model.TrendBelow, tr.PriceAboveTrend(99.99))
}

type fakeSubscriber struct {
	handlers map[string]BarHandler
}

func (f *fakeSubscriber) Subscribe(symbol string, h BarHandler) func() {
	f.handlers[symbol] = h
	return func() { delete(f.handlers, symbol) }
}

func TestAttachAndDispose(t *testing.T) {
	sub := &fakeSubscriber{handlers: map[string]BarHandler{}}
	tr := New(model.Instrument{Symbol: "DBC", Weight: 0.1}, 5)
	tr.Attach(sub)
	require.Contains(t, sub.handlers, "DBC")

	sub.handlers["DBC"](model.OHLCV{Time: day0, Close: 12})
	assert.Equal(t, 1, tr.Samples())

	tr.Dispose()
	assert.NotContains(t, sub.handlers, "DBC")
	tr.Dispose()
}
