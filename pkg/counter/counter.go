package counter

// Hardware is an 8-bit edge-counting timer. The low byte wraps every 256
// input edges; the wrap raises the overflow interrupt whose handler must call
// Counter.Overflow.
type Hardware interface {
	// Low returns the live counter register.
	Low() uint8
	// MaskOverflow disables the timer's overflow interrupt source.
	MaskOverflow()
	// UnmaskOverflow re-enables the overflow interrupt source. A wrap that
	// happened while masked is delivered right after this call.
	UnmaskOverflow()
}

// PendingReporter is implemented by hardware that exposes the overflow flag.
// When available, Snapshot uses it to account for a wrap that happened while
// the overflow interrupt was masked.
type PendingReporter interface {
	OverflowPending() bool
}

// Counter extends Hardware to 16 bits.
type Counter struct {
	hw  Hardware
	ext Extension
}

// New creates a counter over hw. The extension byte starts at zero.
func New(hw Hardware) *Counter {
	return &Counter{hw: hw}
}

// Overflow is the body of the overflow interrupt handler.
func (c *Counter) Overflow() {
	c.ext.bump(ISR{held: true})
}

// Snapshot returns a consistent 16-bit reading. The overflow interrupt is
// masked while the low byte and the extension byte are read, and the pair is
// re-read until the low byte is stable across the read.
func (c *Counter) Snapshot() uint16 {
	var low, ext uint8

	c.critical(func(s Section) {
		for {
			low = c.hw.Low()
			ext = c.ext.Load(s)
			if c.hw.Low() == low {
				break
			}
		}

		// The wrap already happened in hardware but the handler has not run yet.
		if p, ok := c.hw.(PendingReporter); ok && p.OverflowPending() && low < 0x80 {
			ext++
		}
	})

	return uint16(ext)<<8 | uint16(low)
}

// critical runs fn with the overflow interrupt source masked.
func (c *Counter) critical(fn func(Section)) {
	c.hw.MaskOverflow()
	defer c.hw.UnmaskOverflow()
	fn(Section{held: true})
}
