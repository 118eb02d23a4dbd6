package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	prices := linear(1, 1, 10) // 1..10
	sma, err := CalculateSMA(prices, 4)
	require.NoError(t, err)
	assert.InDelta(t, 8.5, sma, 1e-9)

	_, err = CalculateSMA(prices, 11)
	assert.Error(t, err)
	_, err = CalculateSMA(prices, 0)
	assert.Error(t, err)
}

func TestSimpleMovingAverage_MatchesBatch(t *testing.T) {
	prices := linear(50, 0.7, 260)
	sma := NewSimpleMovingAverage(200)
	for i, p := range prices {
		sma.Update(p)
		assert.Equal(t, i+1 >= 200, sma.IsReady(), "sample %d", i+1)
	}
	batch, err := CalculateSMA(prices, 200)
	require.NoError(t, err)
	assert.InDelta(t, batch, sma.Value(), 1e-9)
	assert.Equal(t, 260, sma.Samples())

	sma.Reset()
	assert.False(t, sma.IsReady())
	assert.Zero(t, sma.Value())
}

func TestMomentumPercent(t *testing.T) {
	m := NewMomentumPercent(3)
	for _, p := range []float64{100, 110, 120} {
		m.Update(p)
		assert.False(t, m.IsReady())
		assert.Zero(t, m.Value())
	}
	m.Update(125)
	require.True(t, m.IsReady())
	assert.InDelta(t, 0.25, m.Value(), 1e-12)

	m.Update(132)
	assert.InDelta(t, 0.2, m.Value(), 1e-12)
}

func TestMomentumScore(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		check  func(t *testing.T, score float64)
	}{
		{"constant", linear(100, 0, 300), func(t *testing.T, s float64) { assert.Zero(t, s) }},
		{"rising", linear(100, 0.5, 300), func(t *testing.T, s float64) { assert.Greater(t, s, 0.0) }},
		{"falling", linear(300, -0.5, 300), func(t *testing.T, s float64) { assert.Less(t, s, 0.0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := MomentumScore(tt.closes)
			require.NoError(t, err)
			tt.check(t, score)
		})
	}

	_, err := MomentumScore(linear(1, 1, 252))
	assert.Error(t, err)
}

func TestMomentumScore_MatchesStreaming(t *testing.T) {
	closes := make([]float64, 280)
	p := 100.0
	for i := range closes {
		if i%5 == 0 {
			p *= 0.98
		} else {
			p *= 1.01
		}
		closes[i] = p
	}

	indicators := make([]*MomentumPercent, len(MomentumPeriods))
	for i, period := range MomentumPeriods {
		indicators[i] = NewMomentumPercent(period)
	}
	for _, c := range closes {
		for _, ind := range indicators {
			ind.Update(c)
		}
	}
	returns := make([]float64, len(indicators))
	for i, ind := range indicators {
		require.True(t, ind.IsReady())
		returns[i] = ind.Value()
	}

	batch, err := MomentumScore(closes)
	require.NoError(t, err)
	assert.InDelta(t, batch, BlendMomentum(returns), 1e-9)
}
