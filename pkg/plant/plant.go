// Package plant simulates the SG3525 power stage closely enough to run the
// control core on a desktop: an RC oscillator timed by the coarse and fine
// pots, a duty cycle set by the PWM pot, a transducer with a resonance peak
// and the 8-bit edge counter that watches the oscillator output.
package plant

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/counter"
	"github.com/itohio/gosone/pkg/pot"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

var (
	_ counter.Hardware        = (*Plant)(nil)
	_ counter.PendingReporter = (*Plant)(nil)
	_ stage.Sensors           = (*Plant)(nil)
	_ run.Output              = (*outputPin)(nil)
	_ pot.Pin                 = (*selectPin)(nil)
)

// substep is the integration step of Advance.
const substep = time.Millisecond

// Plant is the simulated power stage. It is not safe for concurrent use.
type Plant struct {
	cfg  config.MockConfig
	pots [3]pot.Config

	wipers   [3]uint16
	selected int // pot index with chip-select low, -1 when none
	frame    []byte
	busErr   error

	on   bool
	freq float32 // oscillator frequency, Hz
	t    float32 // simulated time, s

	low      uint8
	edgeAcc  float32
	masked   bool
	pending  bool
	overflow func()
}

// New creates a plant. The wipers start at zero like a freshly powered pot.
func New(cfg config.MockConfig, pots config.PotsConfig) *Plant {
	p := &Plant{
		cfg:      cfg,
		pots:     [3]pot.Config{stage.PWMPot: pots.PWM, stage.CoarsePot: pots.Coarse, stage.FinePot: pots.Fine},
		selected: -1,
	}
	p.freq = p.targetFrequency()
	return p
}

// OnOverflow sets the counter overflow interrupt handler.
func (p *Plant) OnOverflow(fn func()) {
	p.overflow = fn
}

// Hardware returns the stage wiring backed by this plant.
func (p *Plant) Hardware(display stage.Display) stage.Hardware {
	return stage.Hardware{
		Counter:      p,
		Bus:          p,
		PWMSelect:    &selectPin{p: p, pot: stage.PWMPot},
		CoarseSelect: &selectPin{p: p, pot: stage.CoarsePot},
		FineSelect:   &selectPin{p: p, pot: stage.FinePot},
		Output:       &outputPin{p: p},
		Sensors:      p,
		Display:      display,
	}
}

// Advance runs the simulation for dt.
func (p *Plant) Advance(dt time.Duration) {
	for dt > 0 {
		step := min(dt, substep)
		p.integrate(float32(step.Seconds()))
		dt -= step
	}
}

func (p *Plant) integrate(dt float32) {
	target := p.targetFrequency()
	tau := float32(p.cfg.SettleTime.Seconds())
	if tau > 0 {
		p.freq += (target - p.freq) * (1 - math32.Exp(-dt/tau))
	} else {
		p.freq = target
	}
	p.t += dt

	// The counter sees both edges of the oscillator.
	p.edgeAcc += 2 * p.Frequency() * dt
	n := math32.Floor(p.edgeAcc)
	p.edgeAcc -= n
	p.edges(int(n))
}

func (p *Plant) edges(n int) {
	for n > 0 {
		room := 256 - int(p.low)
		if n < room {
			p.low += uint8(n)
			return
		}
		n -= room
		p.low = 0
		if p.masked {
			p.pending = true
		} else if p.overflow != nil {
			p.overflow()
		}
	}
}

// timing returns the effective resistance of pot i. The wiper moves towards
// the low end of the ladder as its value grows.
func (p *Plant) timing(i stage.Pot) float32 {
	cfg := p.pots[i]
	return float32(cfg.MaxResistance) - float32(pot.W2R(cfg, p.wipers[i]))
}

func (p *Plant) targetFrequency() float32 {
	r := p.cfg.SeriesResistance + p.timing(stage.CoarsePot) + p.timing(stage.FinePot)
	if r <= 0 {
		return 0
	}
	return p.cfg.OscillatorGain / r
}

// Frequency returns the oscillator output frequency including noise.
func (p *Plant) Frequency() float32 {
	return p.freq + p.cfg.Noise*math32.Sin(2*math32.Pi*0.7*p.t)
}

// Duty returns the PWM duty cycle in percent.
func (p *Plant) Duty() float32 {
	cfg := p.pots[stage.PWMPot]
	return p.cfg.MaxDuty * float32(p.wipers[stage.PWMPot]) / float32(cfg.MaxWiper())
}

// Amps returns the transducer supply current.
func (p *Plant) Amps() float32 {
	if !p.on || p.cfg.MaxDuty <= 0 {
		return 0
	}
	detune := (p.Frequency() - p.cfg.Resonance) / p.cfg.Bandwidth
	return p.cfg.PeakCurrent * p.Duty() / p.cfg.MaxDuty / (1 + detune*detune)
}

// On reports whether the output stage is enabled.
func (p *Plant) On() bool { return p.on }

// Wiper returns the wiper latched by pot i.
func (p *Plant) Wiper(i stage.Pot) uint16 { return p.wipers[i] }

// SetBusError makes subsequent SPI transfers fail with err.
func (p *Plant) SetBusError(err error) { p.busErr = err }

// Sensors

func (p *Plant) PWMFrequency() (uint32, bool) {
	if !p.on {
		return 0, false
	}
	return uint32(math32.Round(p.Frequency())), true
}

func (p *Plant) PWMDuty() uint16 {
	if !p.on {
		return 0
	}
	return uint16(math32.Round(p.Duty() * 10))
}

func (p *Plant) Current() uint16 {
	return uint16(math32.Round(p.Amps() * 10))
}

// Edge counter

func (p *Plant) Low() uint8            { return p.low }
func (p *Plant) MaskOverflow()         { p.masked = true }
func (p *Plant) OverflowPending() bool { return p.pending }

func (p *Plant) UnmaskOverflow() {
	p.masked = false
	if p.pending {
		p.pending = false
		if p.overflow != nil {
			p.overflow()
		}
	}
}
