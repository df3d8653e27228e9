package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"periph.io/x/conn/v3/physic"

	"github.com/itohio/gosone/pkg/sample"
	"github.com/itohio/gosone/pkg/trend"
)

var (
	gridColor      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	frequencyColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	currentColor   = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	targetColor    = color.RGBA{R: 80, G: 180, B: 80, A: 255}
	edgeColor      = color.RGBA{R: 0, G: 100, B: 200, A: 255} // Dark blue
	statsColor     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plot is the drawing area and the axis ranges.
type plot struct {
	x, y, w, h float32
	fMin, fMax float64
	iMax       float64
	xMin, xMax time.Time
}

func (p plot) px(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x + p.w
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plot) pyFrequency(hz float64) float32 {
	return p.y + p.h - float32((hz-p.fMin)/(p.fMax-p.fMin))*p.h
}

func (p plot) pyCurrent(a float64) float32 {
	return p.y + p.h - float32(a/p.iMax)*p.h
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	stats := r.scope.stats
	target := r.scope.target
	p := plot{
		fMin: r.scope.fMin,
		fMax: r.scope.fMax,
		iMax: r.scope.iMax,
		xMin: r.scope.xMin,
		xMax: r.scope.xMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 70
		marginRight  = 60
		marginTop    = 20
		marginBottom = 40
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.drawGrid(p)
	if target > 0 && target >= p.fMin && target <= p.fMax {
		y := p.pyFrequency(target)
		r.line(targetColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))
	}
	r.drawEdges(p, samples)
	r.drawTrace(p, samples, currentColor, 1.5, func(s sample.Sample) float32 { return p.pyCurrent(s.Current) })
	r.drawTrace(p, samples, frequencyColor, 2, func(s sample.Sample) float32 { return p.pyFrequency(s.Frequency) })
	r.drawStats(p, stats)
}

// drawGrid draws the grid with frequency labels on the left, current labels
// on the right and the age of the data below.
func (r *scopeRenderer) drawGrid(p plot) {
	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		hz := p.fMax - float64(i)*(p.fMax-p.fMin)/numHLines
		r.text(formatFrequency(hz), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))

		amps := p.iMax - float64(i)*p.iMax/numHLines
		r.text(formatCurrent(amps), currentColor, 10, fyne.TextAlignLeading, fyne.NewPos(p.x+p.w+5, y-6))
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		age := span - time.Duration(i)*span/numVLines
		r.text(formatAge(age), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}
}

// drawTrace draws connected segments for the samples inside the window.
func (r *scopeRenderer) drawTrace(p plot, samples []sample.Sample, c color.Color, width float32, y func(sample.Sample) float32) {
	var prev fyne.Position
	havePrev := false
	for _, s := range samples {
		if s.Timestamp.Before(p.xMin) {
			continue
		}
		pos := fyne.NewPos(p.px(s.Timestamp), y(s))
		if havePrev {
			r.line(c, width, prev, pos)
		}
		prev, havePrev = pos, true
	}
}

// drawEdges marks every output switch with a vertical line.
func (r *scopeRenderer) drawEdges(p plot, samples []sample.Sample) {
	for i := 1; i < len(samples); i++ {
		if samples[i].On == samples[i-1].On || samples[i].Timestamp.Before(p.xMin) {
			continue
		}
		x := p.px(samples[i].Timestamp)
		r.line(edgeColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))
	}
}

func (r *scopeRenderer) drawStats(p plot, st trend.Stats) {
	txt := fmt.Sprintf("%s .. %s  peak %s  on %s  %.2f Wh",
		formatFrequency(st.MinFrequency), formatFrequency(st.MaxFrequency),
		formatCurrent(st.PeakCurrent), st.OnTime.Truncate(time.Second), st.Energy)
	r.text(txt, statsColor, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+10))
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatFrequency(hz float64) string {
	return (physic.Frequency(hz) * physic.Hertz).String()
}

func formatCurrent(a float64) string {
	return (physic.ElectricCurrent(a*1000) * physic.MilliAmpere).String()
}

func formatAge(d time.Duration) string {
	if d == 0 {
		return "now"
	}
	return "-" + d.Round(time.Second).String()
}
