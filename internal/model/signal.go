package model

import "time"

// Direction is the predicted direction of an insight.
type Direction string

const (
	// DirectionUp holds the instrument at the insight weight.
	DirectionUp Direction = "UP"
	// DirectionFlat holds nothing.
	DirectionFlat Direction = "FLAT"
	// DirectionDown is never emitted by the trend rule; long-only construction treats it as flat.
	DirectionDown Direction = "DOWN"
)

// TrendPosition compares a price against its trend indicator.
type TrendPosition int

const (
	TrendBelow TrendPosition = iota - 1
	TrendEqual
	TrendAbove
)

func (p TrendPosition) String() string {
	switch p {
	case TrendAbove:
		return "above"
	case TrendEqual:
		return "equal"
	default:
		return "below"
	}
}

// Instrument is a tradable security with its static target weight.
type Instrument struct {
	Symbol string
	Weight float64
}

// Insight is a single signal handed to portfolio construction.
type Insight struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Weight    float64   `json:"weight"`
	Expiry    time.Time `json:"expiry"`
	// Stale marks an insight carried forward because no current price was available.
	Stale     bool      `json:"stale,omitempty"`
}

// Evaluation is the output of one monthly evaluation cycle.
type Evaluation struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Mode     string    `json:"mode"`
	Insights []Insight `json:"insights"`
	Skipped  []string  `json:"skipped,omitempty"`
	Stale    []string  `json:"stale,omitempty"`
}

// TotalWeight sums the weight of all Up insights.
func (e *Evaluation) TotalWeight() float64 {
	var sum float64
	for _, in := range e.Insights {
		if in.Direction == DirectionUp {
			sum += in.Weight
		}
	}
	return sum
}

// TrackerSnapshot is a read-only view of one instrument's indicator state.
type TrackerSnapshot struct {
	Symbol      string    `json:"symbol"`
	Weight      float64   `json:"weight"`
	Samples     int       `json:"samples"`
	TrendReady  bool      `json:"trend_ready"`
	Ready       bool      `json:"ready"`
	SMA         float64   `json:"sma"`
	Score       float64   `json:"score"`
	LastClose   float64   `json:"last_close"`
	LastBarTime time.Time `json:"last_bar_time"`
}

// TargetWeight is a portfolio target produced from insights.
type TargetWeight struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}
