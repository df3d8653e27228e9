package freq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// scriptedSource returns a running total that advances by the next delta on
// every Snapshot call.
type scriptedSource struct {
	deltas []uint16
	total  uint16
	n      int
}

func (s *scriptedSource) Snapshot() uint16 {
	if s.n < len(s.deltas) {
		s.total += s.deltas[s.n]
	}
	s.n++
	return s.total
}

func sumLast(deltas []uint16, n int) uint32 {
	if n > len(deltas) {
		n = len(deltas)
	}
	var sum uint32
	for _, d := range deltas[len(deltas)-n:] {
		sum += uint32(d)
	}
	return sum
}

func TestEstimator_RingSemantics(t *testing.T) {
	const capacity = 25

	tests := []struct {
		name   string
		deltas []uint16
	}{
		{name: "empty", deltas: nil},
		{name: "partial window", deltas: []uint16{100, 200, 300}},
		{name: "exactly full", deltas: repeat(2240, capacity)},
		{name: "wrapped twice", deltas: ramp(60)},
		{name: "large deltas", deltas: repeat(4000, 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptedSource{deltas: tt.deltas}
			e := New(src, capacity)
			for range tt.deltas {
				e.Update()
			}
			assert.Equal(t, sumLast(tt.deltas, capacity), e.Frequency())
		})
	}
}

func TestEstimator_EveryPrefix(t *testing.T) {
	deltas := ramp(80)
	src := &scriptedSource{deltas: deltas}
	e := New(src, 10)

	for n := 1; n <= len(deltas); n++ {
		e.Update()
		assert.Equal(t, sumLast(deltas[:n], 10), e.Frequency(), "after %d ticks", n)
	}
}

func TestEstimator_CounterRollover(t *testing.T) {
	// Start the running counter just below the 16-bit limit.
	src := &scriptedSource{total: 0xFF00, deltas: []uint16{0x80, 0x100, 0x40}}
	e := New(src, 25)
	e.prev = 0xFF00

	e.Update()
	e.Update()
	e.Update()

	assert.Equal(t, uint32(0x80+0x100+0x40), e.Frequency())
}

func TestEstimator_DefaultCapacity(t *testing.T) {
	e := New(&scriptedSource{}, 0)
	assert.Equal(t, DefaultTicksPerSecond, e.Capacity())
}

func TestEstimator_WarmUp(t *testing.T) {
	// 56 kHz counted signal, 25 ticks per second: 2240 edges per tick.
	src := &scriptedSource{deltas: repeat(2240, 50)}
	e := New(src, 25)

	e.Update()
	assert.Equal(t, uint32(2240), e.Frequency(), "zero-filled window reads low")

	for i := 0; i < 24; i++ {
		e.Update()
	}
	assert.Equal(t, uint32(56000), e.Frequency())
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(i*37 + 5)
	}
	return out
}
