package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer models the edge counter. Every Low() read returns the current
// count and then advances it by the next scripted step, so edges can be
// injected between the two reads of a snapshot.
type fakeTimer struct {
	c       *Counter
	count   uint16
	steps   []uint16
	reads   int
	masked  bool
	pending bool

	maskCalls   int
	unmaskCalls int
}

func (f *fakeTimer) Low() uint8 {
	v := uint8(f.count)
	if f.reads < len(f.steps) {
		f.advance(f.steps[f.reads])
	}
	f.reads++
	return v
}

func (f *fakeTimer) advance(n uint16) {
	for i := uint16(0); i < n; i++ {
		f.count++
		if uint8(f.count) == 0 {
			if f.masked {
				f.pending = true
			} else {
				f.c.Overflow()
			}
		}
	}
}

func (f *fakeTimer) MaskOverflow() {
	f.masked = true
	f.maskCalls++
}

func (f *fakeTimer) UnmaskOverflow() {
	f.masked = false
	f.unmaskCalls++
	if f.pending {
		f.pending = false
		f.c.Overflow()
	}
}

func (f *fakeTimer) OverflowPending() bool {
	return f.pending
}

// noFlag hides OverflowPending from the counter.
type noFlag struct{ *fakeTimer }

func (n noFlag) OverflowPending() {}

func newFake(start uint16, steps ...uint16) (*Counter, *fakeTimer) {
	f := &fakeTimer{steps: steps}
	c := New(f)
	f.c = c
	// Bring the extension byte in line with the starting count.
	f.advance(start)
	f.reads = 0
	return c, f
}

func TestSnapshot_Stable(t *testing.T) {
	c, f := newFake(0x1234)

	assert.Equal(t, uint16(0x1234), c.Snapshot())
	assert.Equal(t, 2, f.reads, "stable counter needs exactly one read pair")
	assert.Equal(t, 1, f.maskCalls)
	assert.Equal(t, 1, f.unmaskCalls)
	assert.False(t, f.masked, "overflow interrupt must be re-enabled")
}

func TestSnapshot_RetriesOnLowByteChange(t *testing.T) {
	// One edge arrives between the first pair of reads.
	c, f := newFake(0x0510, 1)

	got := c.Snapshot()
	assert.Equal(t, uint16(0x0511), got)
	assert.Equal(t, 4, f.reads, "a changed low byte must trigger exactly one retry")
}

func TestSnapshot_WrapWhileMasked(t *testing.T) {
	// The low byte wraps between the two reads; the overflow handler cannot
	// run because the interrupt source is masked.
	c, f := newFake(0x12FF, 1)

	got := c.Snapshot()
	assert.Equal(t, uint16(0x1300), got, "wrap must not produce a torn 0x1200 reading")
	assert.False(t, f.pending, "pending overflow is delivered on unmask")

	// The handler has now run; the next reading agrees.
	assert.Equal(t, uint16(0x1300), c.Snapshot())
}

func TestSnapshot_NeverTorn(t *testing.T) {
	for start := uint16(0x00F0); start < 0x0310; start++ {
		for step := uint16(0); step < 3; step++ {
			c, _ := newFake(start, step)
			got := c.Snapshot()
			assert.Equal(t, start+step, got, "start=%#x step=%d", start, step)
		}
	}
}

func TestSnapshot_WithoutPendingFlag(t *testing.T) {
	f := &fakeTimer{}
	c := New(noFlag{f})
	f.c = c
	f.advance(0x0042)
	f.reads = 0

	assert.Equal(t, uint16(0x0042), c.Snapshot())
}

func TestOverflow_Extends(t *testing.T) {
	c, _ := newFake(0)
	for i := 0; i < 3; i++ {
		c.Overflow()
	}
	assert.Equal(t, uint16(0x0300), c.Snapshot())
}

func TestExtension_RequiresTokens(t *testing.T) {
	var e Extension

	require.Panics(t, func() { e.Load(Section{}) })
	require.Panics(t, func() { e.bump(ISR{}) })

	e.bump(ISR{held: true})
	assert.Equal(t, uint8(1), e.Load(Section{held: true}))
}
