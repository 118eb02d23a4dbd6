// Package feed delivers completed daily bars to subscribers and keeps the last known price.
package feed

import (
	"sort"
	"sync"
	"time"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/tracker"
)

type subscription struct {
	id      int
	handler tracker.BarHandler
}

// Hub fans daily bars out to per-symbol subscribers. Each bar is delivered at most once:
// bars at or before the last delivered time for a symbol are dropped.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	subs      map[string][]subscription
	delivered map[string]time.Time
	prices    map[string]float64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[string][]subscription),
		delivered: make(map[string]time.Time),
		prices:    make(map[string]float64),
	}
}

// Subscribe registers handler for symbol and returns its unsubscribe func.
func (h *Hub) Subscribe(symbol string, handler tracker.BarHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs[symbol] = append(h.subs[symbol], subscription{id: id, handler: handler})
	return func() { h.unsubscribe(symbol, id) }
}

func (h *Hub) unsubscribe(symbol string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[symbol]
	for i, s := range subs {
		if s.id == id {
			h.subs[symbol] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subs[symbol]) == 0 {
		delete(h.subs, symbol)
	}
}

// MarkDelivered records that bars up to t were already absorbed elsewhere, e.g. by warm-up.
func (h *Hub) MarkDelivered(symbol string, t time.Time, close float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.After(h.delivered[symbol]) {
		h.delivered[symbol] = t
		h.prices[symbol] = close
	}
}

// Publish delivers new bars for symbol in chronological order and returns how many were
// delivered. Handlers run synchronously on the caller's goroutine.
func (h *Hub) Publish(symbol string, bars []model.OHLCV) int {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	h.mu.Lock()
	last := h.delivered[symbol]
	var fresh []model.OHLCV
	for _, b := range sorted {
		if b.Time.After(last) {
			fresh = append(fresh, b)
			last = b.Time
		}
	}
	if len(fresh) > 0 {
		h.delivered[symbol] = last
		h.prices[symbol] = fresh[len(fresh)-1].Close
	}
	handlers := make([]tracker.BarHandler, len(h.subs[symbol]))
	for i, s := range h.subs[symbol] {
		handlers[i] = s.handler
	}
	h.mu.Unlock()

	for _, b := range fresh {
		for _, handle := range handlers {
			handle(b)
		}
	}
	return len(fresh)
}

// LastDelivered returns the time of the newest bar delivered for symbol.
func (h *Hub) LastDelivered(symbol string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.delivered[symbol]
}

// Price returns the close of the newest delivered bar, or 0 if none.
func (h *Hub) Price(symbol string) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prices[symbol]
}

// Invalidate clears the last price of symbol so evaluations treat it as stale.
func (h *Hub) Invalidate(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.prices, symbol)
}

// Subscribers returns the number of handlers registered for symbol.
func (h *Hub) Subscribers(symbol string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[symbol])
}
