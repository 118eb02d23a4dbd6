package calculator

// Indicator is a streaming numeric indicator fed one observation at a time.
type Indicator interface {
	Update(value float64)
	Value() float64
	IsReady() bool
	Samples() int
	Reset()
}

// window is a fixed-capacity ring of the most recent observations.
type window struct {
	buf   []float64
	head  int // index of the oldest element
	count int
}

func newWindow(size int) window {
	return window{buf: make([]float64, size)}
}

// push appends v and returns the evicted value, if any.
func (w *window) push(v float64) (evicted float64, evictedOne bool) {
	if w.count < len(w.buf) {
		w.buf[(w.head+w.count)%len(w.buf)] = v
		w.count++
		return 0, false
	}
	evicted = w.buf[w.head]
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	return evicted, true
}

func (w *window) oldest() float64 { return w.buf[w.head] }

func (w *window) newest() float64 {
	return w.buf[(w.head+w.count-1)%len(w.buf)]
}

func (w *window) full() bool { return w.count == len(w.buf) }

func (w *window) reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.head, w.count = 0, 0
}

// SimpleMovingAverage is the arithmetic mean of the last Period observations.
type SimpleMovingAverage struct {
	Period  int
	win     window
	sum     float64
	samples int
}

// NewSimpleMovingAverage creates an SMA over period observations. Period must be positive.
func NewSimpleMovingAverage(period int) *SimpleMovingAverage {
	if period <= 0 {
		period = 1
	}
	return &SimpleMovingAverage{Period: period, win: newWindow(period)}
}

func (s *SimpleMovingAverage) Update(value float64) {
	if evicted, ok := s.win.push(value); ok {
		s.sum -= evicted
	}
	s.sum += value
	s.samples++
}

// Value returns the current average, or the average of what has been seen so far before ready.
func (s *SimpleMovingAverage) Value() float64 {
	if s.win.count == 0 {
		return 0
	}
	return s.sum / float64(s.win.count)
}

func (s *SimpleMovingAverage) IsReady() bool { return s.win.full() }

func (s *SimpleMovingAverage) Samples() int { return s.samples }

func (s *SimpleMovingAverage) Reset() {
	s.win.reset()
	s.sum = 0
	s.samples = 0
}

// MomentumPercent is the fractional change between the newest observation and the one
// Period observations earlier: close_t / close_{t-Period} - 1.
type MomentumPercent struct {
	Period  int
	win     window
	samples int
}

// NewMomentumPercent creates a momentum indicator; it needs Period+1 observations to be ready.
func NewMomentumPercent(period int) *MomentumPercent {
	if period <= 0 {
		period = 1
	}
	return &MomentumPercent{Period: period, win: newWindow(period + 1)}
}

func (m *MomentumPercent) Update(value float64) {
	m.win.push(value)
	m.samples++
}

func (m *MomentumPercent) Value() float64 {
	if !m.win.full() {
		return 0
	}
	base := m.win.oldest()
	if base == 0 {
		return 0
	}
	return m.win.newest()/base - 1
}

func (m *MomentumPercent) IsReady() bool { return m.win.full() }

func (m *MomentumPercent) Samples() int { return m.samples }

func (m *MomentumPercent) Reset() {
	m.win.reset()
	m.samples = 0
}
