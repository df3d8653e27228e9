package freq

// Source provides consistent readings of a free-running 16-bit edge counter.
type Source interface {
	Snapshot() uint16
}

// DefaultTicksPerSecond matches a 40 ms foreground tick.
const DefaultTicksPerSecond = 25

// Estimator keeps the per-tick edge deltas of the trailing second.
// Their sum is the number of edges counted over that second, i.e. Hz.
//
// The window starts zero-filled, so the reported frequency ramps up during
// the first second after startup.
type Estimator struct {
	src    Source
	counts []uint16 // per-tick deltas, ring buffer
	cursor int      // next slot to write
	prev   uint16   // previous extended counter value
}

// New creates an estimator with one slot per tick of a one second window.
func New(src Source, ticksPerSecond int) *Estimator {
	if ticksPerSecond <= 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	return &Estimator{
		src:    src,
		counts: make([]uint16, ticksPerSecond),
	}
}

// Update samples the counter once. Call it exactly once per tick.
func (e *Estimator) Update() {
	curr := e.src.Snapshot()
	// Wrapping subtraction handles the 16-bit rollover.
	e.push(curr - e.prev)
	e.prev = curr
}

func (e *Estimator) push(delta uint16) {
	e.counts[e.cursor] = delta
	e.cursor++
	if e.cursor >= len(e.counts) {
		e.cursor = 0
	}
}

// Frequency returns the edge count over the trailing window.
func (e *Estimator) Frequency() uint32 {
	var sum uint32
	for _, c := range e.counts {
		sum += uint32(c)
	}
	return sum
}

// Capacity returns the number of ticks in the window.
func (e *Estimator) Capacity() int {
	return len(e.counts)
}
