// Package portfolio turns insights into target weights.
package portfolio

import (
	"fmt"
	"math"
	"sort"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/strategy"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

const weightTolerance = 1e-9

// CheckWeights returns the sum of the static weights and ErrWeightMismatch when it is not 1.0.
func CheckWeights(weights map[string]float64) (float64, error) {
	vals := make([]float64, 0, len(weights))
	for _, w := range weights {
		vals = append(vals, w)
	}
	sum := floats.Sum(vals)
	if math.Abs(sum-1) > weightTolerance {
		return sum, fmt.Errorf("sum %.4f: %w", sum, strategy.ErrWeightMismatch)
	}
	return sum, nil
}

// Constructor weights holdings by insight weight, long only. Weights summing above 1 are
// scaled down, then CashBuffer of the portfolio is held back.
type Constructor struct {
	CashBuffer float64
	log        zerolog.Logger
}

// NewConstructor creates a constructor keeping cashBuffer (0..1) of the portfolio uninvested.
func NewConstructor(cashBuffer float64, log zerolog.Logger) *Constructor {
	if cashBuffer < 0 || cashBuffer >= 1 {
		cashBuffer = 0
	}
	return &Constructor{CashBuffer: cashBuffer, log: log.With().Str("component", "portfolio").Logger()}
}

// Targets returns one target weight per symbol, ordered by symbol.
func (c *Constructor) Targets(insights []model.Insight) []model.TargetWeight {
	bySymbol := make(map[string]float64)
	for _, in := range insights {
		w := 0.0
		if in.Direction == model.DirectionUp && in.Weight > 0 {
			w = in.Weight
		}
		bySymbol[in.Symbol] += w
	}

	symbols := make([]string, 0, len(bySymbol))
	vals := make([]float64, 0, len(bySymbol))
	for s, w := range bySymbol {
		symbols = append(symbols, s)
		vals = append(vals, w)
	}
	if sum := floats.Sum(vals); sum > 1+weightTolerance {
		c.log.Warn().Float64("sum", sum).Msg("insight weights exceed 1.0, scaling down")
		for s := range bySymbol {
			bySymbol[s] /= sum
		}
	}

	sort.Strings(symbols)
	out := make([]model.TargetWeight, len(symbols))
	for i, s := range symbols {
		out[i] = model.TargetWeight{Symbol: s, Weight: bySymbol[s] * (1 - c.CashBuffer)}
	}
	return out
}
