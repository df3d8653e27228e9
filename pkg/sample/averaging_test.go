package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(in []Sample, windowSize int) []Sample {
	ch := make(chan Sample, len(in))
	for _, s := range in {
		ch <- s
	}
	close(ch)

	var out []Sample
	for s := range NewAveragingConverter(windowSize, len(in))(ch) {
		out = append(out, s)
	}
	return out
}

func TestNewAveragingConverter_MovingAverage(t *testing.T) {
	now := time.Now()
	var in []Sample
	for i := 0; i < 5; i++ {
		in = append(in, Sample{
			Timestamp: now.Add(time.Duration(i) * 200 * time.Millisecond),
			Frequency: 28000 + float64(i)*30,
			Current:   float64(i),
			Power:     12 * float64(i),
			Duty:      10,
			On:        i%2 == 0,
		})
	}

	out := collect(in, 3)
	require.Len(t, out, 5, "one output per input")

	wantFreq := []float64{28000, 28015, 28030, 28060, 28090}
	wantCur := []float64{0, 0.5, 1, 2, 3}
	for i, s := range out {
		assert.InDelta(t, wantFreq[i], s.Frequency, 1e-9, "sample %d", i)
		assert.InDelta(t, wantCur[i], s.Current, 1e-9, "sample %d", i)
		assert.InDelta(t, 12*wantCur[i], s.Power, 1e-9, "sample %d", i)
		assert.InDelta(t, 10, s.Duty, 1e-9, "sample %d", i)
		assert.Equal(t, in[i].Timestamp, s.Timestamp, "newest timestamp")
		assert.Equal(t, in[i].On, s.On, "newest output state")
	}
}

func TestNewAveragingConverter_InvalidWindowPassesThrough(t *testing.T) {
	in := []Sample{{Frequency: 1}, {Frequency: 2}, {Frequency: 7}}
	for _, window := range []int{0, -3, 1} {
		out := collect(in, window)
		require.Len(t, out, len(in))
		for i := range in {
			assert.Equal(t, in[i], out[i], "window %d", window)
		}
	}
}

func TestNewAveragingConverter_GracefulShutdown(t *testing.T) {
	in := make(chan Sample)
	out := NewAveragingConverter(4, 0)(in)
	close(in)

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}
}
