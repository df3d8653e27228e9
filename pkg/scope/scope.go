// Package scope draws the frequency and current trend of the power stage.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/sample"
	"github.com/itohio/gosone/pkg/trend"
)

// ScopeWidget is a custom Fyne widget that plots the status trend.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu     sync.RWMutex
	target float64 // Hz, drawn as a reference line
	stats  trend.Stats

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	// Auto-scaling
	fMin, fMax float64 // frequency axis, Hz
	iMax       float64 // current axis, A
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	points := cfg.Trend.Points
	if points <= 0 {
		points = 600
	}
	s := &ScopeWidget{
		cfg:              cfg,
		displaySamples:   make([]sample.Sample, 0, points),
		maxDisplayPoints: points,
	}
	s.ExtendBaseWidget(s)
	s.updateAutoScale()
	return s
}

// UpdateData updates the widget with a new trend window.
// This should be called on the main thread, e.g. from fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, stats trend.Stats) {
	s.mu.Lock()
	s.displaySamples = sample.Downsample(s.displaySamples, samples, s.maxDisplayPoints)
	s.stats = stats
	s.updateAutoScale()
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes it again.
	s.Refresh()
}

// SetTarget sets the target frequency reference line.
func (s *ScopeWidget) SetTarget(hz float64) {
	s.mu.Lock()
	s.target = hz
	s.updateAutoScale()
	s.mu.Unlock()
	s.Refresh()
}

// Clear drops the displayed trace.
func (s *ScopeWidget) Clear() {
	s.UpdateData(nil, trend.Stats{})
}

// updateAutoScale calculates the axis ranges. s.mu must be held.
func (s *ScopeWidget) updateAutoScale() {
	window := s.cfg.Trend.Window
	if window <= 0 {
		window = time.Minute
	}

	if len(s.displaySamples) == 0 {
		s.fMin, s.fMax = 27000, 29000
		if s.target > 0 {
			s.fMin, s.fMax = s.target-1000, s.target+1000
		}
		s.iMax = 1
		s.xMax = time.Now()
		s.xMin = s.xMax.Add(-window)
		return
	}

	s.fMin = s.displaySamples[0].Frequency
	s.fMax = s.fMin
	s.iMax = 0
	for _, smp := range s.displaySamples {
		s.fMin = min(s.fMin, smp.Frequency)
		s.fMax = max(s.fMax, smp.Frequency)
		s.iMax = max(s.iMax, smp.Current)
	}
	if s.target > 0 {
		s.fMin = min(s.fMin, s.target)
		s.fMax = max(s.fMax, s.target)
	}

	// Add 10% margin, at least 50 Hz.
	margin := max((s.fMax-s.fMin)*0.1, 50)
	s.fMin -= margin
	s.fMax += margin
	if s.iMax <= 0 {
		s.iMax = 1
	}
	s.iMax *= 1.1

	// The trace scrolls from the right edge.
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	s.xMin = s.xMax.Add(-window)
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
