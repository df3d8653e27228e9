// Package trend keeps the recent history of status samples for display and
// accumulates run time and energy.
package trend

import (
	"sync"
	"time"

	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/sample"
)

var _ Recorder = (*Trend)(nil)

// Stats summarises the trend.
type Stats struct {
	// Over the window, zero when it is empty.
	MinFrequency  float64 // Hz
	MaxFrequency  float64 // Hz
	MeanFrequency float64 // Hz
	PeakCurrent   float64 // A

	// Since the last Reset.
	OnTime time.Duration
	Energy float64 // Wh
}

// Recorder consumes samples and keeps a time window of them.
type Recorder interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample // ordered oldest first
	Stats() Stats
	OnUpdate(func(samples []sample.Sample, stats Stats))
}

// Trend implements Recorder.
type Trend struct {
	window time.Duration

	mu      sync.RWMutex
	samples []sample.Sample // FIFO, removed by timestamp
	onTime  time.Duration
	energy  float64

	callbacks []func(samples []sample.Sample, stats Stats)
	cbMu      sync.RWMutex

	// Set when the input channel closes, prevents further callbacks.
	shutdown bool
}

// New creates a trend over cfg.Trend.Window.
func New(cfg *config.Config) *Trend {
	return &Trend{window: cfg.Trend.Window}
}

// SetWindow changes the window length. Older samples drop out with the next
// sample.
func (t *Trend) SetWindow(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.window = d
}

// ProcessSamples consumes input until it is closed, then stops notifying.
func (t *Trend) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		t.processSample(s)
	}
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
}

func (t *Trend) processSample(s sample.Sample) {
	t.mu.Lock()

	if n := len(t.samples); n > 0 {
		prev := t.samples[n-1]
		if dt := s.Timestamp.Sub(prev.Timestamp); dt > 0 && prev.On {
			t.onTime += dt
			t.energy += prev.Power * dt.Hours()
		}
	}

	t.samples = append(t.samples, s)

	cutoff := s.Timestamp.Add(-t.window)
	i := 0
	for i < len(t.samples)-1 && !t.samples[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		t.samples = append(t.samples[:0], t.samples[i:]...)
	}

	notify := !t.shutdown
	t.mu.Unlock()

	if notify {
		t.notifyCallbacks()
	}
}

// Samples returns a copy of the current window.
func (t *Trend) Samples() []sample.Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]sample.Sample, len(t.samples))
	copy(result, t.samples)
	return result
}

// Stats returns the current summary.
func (t *Trend) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats()
}

// stats computes the summary. t.mu must be held.
func (t *Trend) stats() Stats {
	st := Stats{OnTime: t.onTime, Energy: t.energy}
	if len(t.samples) == 0 {
		return st
	}

	st.MinFrequency = t.samples[0].Frequency
	st.MaxFrequency = t.samples[0].Frequency
	var sum float64
	for _, s := range t.samples {
		st.MinFrequency = min(st.MinFrequency, s.Frequency)
		st.MaxFrequency = max(st.MaxFrequency, s.Frequency)
		st.PeakCurrent = max(st.PeakCurrent, s.Current)
		sum += s.Frequency
	}
	st.MeanFrequency = sum / float64(len(t.samples))
	return st
}

// OnUpdate registers a callback invoked after every sample.
// The callback should copy data quickly and return as fast as possible.
func (t *Trend) OnUpdate(callback func(samples []sample.Sample, stats Stats)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// Reset clears the window and the accumulated totals.
func (t *Trend) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = t.samples[:0]
	t.onTime = 0
	t.energy = 0
}

// ResetShutdown allows callbacks again.
// This should be called before starting a new chain.
func (t *Trend) ResetShutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdown = false
}

// notifyCallbacks copies the data under the read lock, then calls the
// callbacks without any lock held.
func (t *Trend) notifyCallbacks() {
	t.mu.RLock()
	samples := make([]sample.Sample, len(t.samples))
	copy(samples, t.samples)
	stats := t.stats()
	t.mu.RUnlock()

	t.cbMu.RLock()
	callbacks := make([]func([]sample.Sample, Stats), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samples, stats)
		}
	}
}
