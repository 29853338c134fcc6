package processor

import (
	"sync"
	"time"
)

const fpsSampleWindow = 2 * time.Second

var timeNow = func() time.Time {
	return time.Now()
}

type fpsMeter struct {
	mu          sync.Mutex
	frames      int
	windowStart time.Time
	estimate    float64
}

func newFPSMeter(start time.Time) *fpsMeter {
	return &fpsMeter{windowStart: start}
}

func (m *fpsMeter) frame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

// tick closes the current sample window at now and reports whether the
// estimate was recalculated.
func (m *fpsMeter) tick(now time.Time) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := now.Sub(m.windowStart)
	if elapsed <= 0 {
		return m.estimate, false
	}
	m.estimate = float64(m.frames) / elapsed.Seconds()
	m.frames = 0
	m.windowStart = now
	return m.estimate, true
}

func (m *fpsMeter) value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estimate
}
