package processor

import "time"

const FPSSampleWindow = fpsSampleWindow

func OverloadTimeNow(overload func() time.Time) func() {
	timeNowRef := timeNow
	timeNow = overload
	return func() { timeNow = timeNowRef }
}

func (p *Processor) SampleFPSAt(now time.Time) {
	p.sampleFPSAt(now)
}

func (p *Processor) BufferAllocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.comp.Allocations()
}
