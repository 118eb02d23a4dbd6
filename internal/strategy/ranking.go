package strategy

import (
	"sort"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/tracker"
)

type candidate struct {
	tr    *tracker.Tracker
	score float64
}

// ranked holds the top N trackers by momentum score, each at 1/N, when above trend.
// Slots that are not held, including unfilled ones, go to the defensive asset.
func (c *cycle) ranked(trackers []*tracker.Tracker) {
	n := c.g.cfg.TopN
	slot := 1 / float64(n)

	var candidates []candidate
	for _, tr := range trackers {
		if !c.eligible(tr) {
			continue
		}
		score, _ := tr.CurrentScore()
		candidates = append(candidates, candidate{tr: tr, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	filled := 0
	for i, cand := range candidates {
		symbol := cand.tr.Instrument.Symbol
		if i >= n {
			c.emit(symbol, model.DirectionFlat, 0, false)
			continue
		}
		filled++
		price, ok := c.price(cand.tr)
		if !ok {
			if c.g.cfg.StalePolicy == StaleCarry {
				if _, seen := c.g.lastDirections[symbol]; seen {
					c.carry(symbol, slot)
					continue
				}
			}
			// no carried direction: the slot goes to risk-off
			c.riskOff += slot
			continue
		}
		c.hold(symbol, cand.tr.PriceAboveTrend(price) == model.TrendAbove, slot, false)
	}
	if filled < n {
		c.riskOff += float64(n-filled) * slot
	}
}
