package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
)

// Trailing windows, in trading days, of the 1/3/6/12-month momentum returns.
var MomentumPeriods = []int{21, 63, 126, 252}

// MomentumWeights favour recent performance: 12·r21 + 4·r63 + 2·r126 + r252.
var MomentumWeights = []float64{12, 4, 2, 1}

// MomentumLookback is the number of closes needed to compute every momentum window.
func MomentumLookback() int {
	return MomentumPeriods[len(MomentumPeriods)-1] + 1
}

// BlendMomentum combines the trailing returns (ordered like MomentumPeriods) into one score.
func BlendMomentum(returns []float64) float64 {
	return floats.Dot(MomentumWeights, returns)
}

// MomentumScore computes the weighted 1/3/6/12-month momentum score from closes, oldest first.
// The trailing return over n days equals the compounded product of the last n daily changes.
func MomentumScore(closes []float64) (float64, error) {
	if len(closes) < MomentumLookback() {
		return 0, errors.New("not enough data for momentum score")
	}
	returns := make([]float64, len(MomentumPeriods))
	for i, period := range MomentumPeriods {
		rocp := talib.Rocp(closes, period)
		returns[i] = rocp[len(rocp)-1]
	}
	return BlendMomentum(returns), nil
}
