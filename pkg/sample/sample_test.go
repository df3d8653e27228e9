package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gosone/pkg/stage"
	"github.com/itohio/gosone/pkg/wire"
)

func TestFromStatus(t *testing.T) {
	now := time.Now()
	s := FromStatus(now, stage.Current{
		Frequency: 28123,
		Current:   53,
		Power:     636,
		PWM:       147,
		On:        true,
	})

	assert.Equal(t, now, s.Timestamp)
	assert.InDelta(t, 28123, s.Frequency, 1e-9)
	assert.InDelta(t, 5.3, s.Current, 1e-9)
	assert.InDelta(t, 63.6, s.Power, 1e-9)
	assert.InDelta(t, 14.7, s.Duty, 1e-9)
	assert.True(t, s.On)
}

func TestConverter_KeepsStatusOnly(t *testing.T) {
	in := make(chan wire.Event, 10)
	out := NewConverter(10)(in)

	before := time.Now()
	in <- wire.Event{Kind: wire.Message, Text: "Transducer ON"}
	in <- wire.Event{Kind: wire.Status, Status: stage.Current{Frequency: 28000, On: true}}
	in <- wire.Event{Kind: wire.Calibration, Upper: 28000, Lower: 27700, Diff: 300}
	in <- wire.Event{Kind: wire.Redraw}
	in <- wire.Event{Kind: wire.Status, Status: stage.Current{Frequency: 28010}}
	close(in)

	var got []Sample
	for s := range out {
		got = append(got, s)
	}

	require.Len(t, got, 2)
	assert.InDelta(t, 28000, got[0].Frequency, 1e-9)
	assert.True(t, got[0].On)
	assert.InDelta(t, 28010, got[1].Frequency, 1e-9)
	assert.False(t, got[1].On)
	assert.False(t, got[0].Timestamp.Before(before))
	assert.False(t, got[1].Timestamp.Before(got[0].Timestamp))
}

// TestConverter_GracefulShutdown tests that converter closes output channel
// when input channel is closed.
func TestConverter_GracefulShutdown(t *testing.T) {
	in := make(chan wire.Event)
	out := NewConverter(0)(in)

	go func() {
		for i := 0; i < 3; i++ {
			in <- wire.Event{Kind: wire.Status}
		}
		close(in)
	}()

	received := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				assert.Equal(t, 3, received)
				return
			}
			received++
		case <-timeout:
			t.Fatal("Output channel did not close within timeout")
		}
	}
}
