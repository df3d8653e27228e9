package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/sample"
)

func newScope() *ScopeWidget {
	cfg := config.Default()
	cfg.Trend.Window = 10 * time.Second
	return &ScopeWidget{cfg: cfg, maxDisplayPoints: 100}
}

func TestAutoScale_Empty(t *testing.T) {
	s := newScope()
	s.updateAutoScale()
	assert.Equal(t, float64(27000), s.fMin)
	assert.Equal(t, float64(29000), s.fMax)
	assert.Equal(t, 10*time.Second, s.xMax.Sub(s.xMin))

	s.target = 31000
	s.updateAutoScale()
	assert.Equal(t, float64(30000), s.fMin)
	assert.Equal(t, float64(32000), s.fMax)
}

func TestAutoScale_Samples(t *testing.T) {
	s := newScope()
	now := time.Now()
	s.displaySamples = []sample.Sample{
		{Timestamp: now, Frequency: 28000, Current: 1},
		{Timestamp: now.Add(time.Second), Frequency: 29000, Current: 4},
	}
	s.target = 28500
	s.updateAutoScale()

	assert.InDelta(t, 27900, s.fMin, 1e-9)
	assert.InDelta(t, 29100, s.fMax, 1e-9)
	assert.InDelta(t, 4.4, s.iMax, 1e-9)
	assert.Equal(t, now.Add(time.Second), s.xMax)
	assert.Equal(t, now.Add(-9*time.Second), s.xMin)
}

func TestAutoScale_FlatTraceGetsMinimumSpan(t *testing.T) {
	s := newScope()
	s.displaySamples = []sample.Sample{{Timestamp: time.Now(), Frequency: 28000}}
	s.updateAutoScale()

	assert.Equal(t, float64(27950), s.fMin)
	assert.Equal(t, float64(28050), s.fMax)
	assert.InDelta(t, 1.1, s.iMax, 1e-9)
}

func TestPlotMapping(t *testing.T) {
	now := time.Now()
	p := plot{
		x: 10, y: 20, w: 100, h: 50,
		fMin: 28000, fMax: 29000,
		iMax: 2,
		xMin: now, xMax: now.Add(10 * time.Second),
	}

	assert.Equal(t, float32(10), p.px(now))
	assert.Equal(t, float32(60), p.px(now.Add(5*time.Second)))
	assert.Equal(t, float32(70), p.pyFrequency(28000))
	assert.Equal(t, float32(20), p.pyFrequency(29000))
	assert.Equal(t, float32(45), p.pyCurrent(1))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "now", formatAge(0))
	assert.Equal(t, "-30s", formatAge(30*time.Second))
	assert.Contains(t, formatFrequency(28000), "Hz")
	assert.Contains(t, formatCurrent(0.5), "A")
}
