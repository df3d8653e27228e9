// Package stage runs the SG3525 ultrasonic power stage: it measures the
// oscillator, keeps it on frequency, calibrates the coarse pot and switches
// the output, all from one foreground tick plus the counter overflow
// interrupt.
package stage

import (
	"fmt"
	"io"

	"tinygo.org/x/drivers"

	"github.com/itohio/gosone/pkg/calib"
	"github.com/itohio/gosone/pkg/counter"
	"github.com/itohio/gosone/pkg/freq"
	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/pot"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/tuner"
)

// Sensors provides the analog and PWM measurements.
type Sensors interface {
	// PWMFrequency returns the output frequency measured from the PWM
	// signal. ok is false when no measurement is available.
	PWMFrequency() (hz uint32, ok bool)
	// PWMDuty returns the duty cycle in tenths of a percent.
	PWMDuty() uint16
	// Current returns the supply current in tenths of an amp.
	Current() uint16
}

// Display shows calibration results to the operator.
type Display interface {
	ReportCalibrationSample(upper, lower uint32)
	RedrawMainScreen()
}

// Hardware collects the peripherals of the power stage.
type Hardware struct {
	Counter counter.Hardware // 8-bit edge counter on the oscillator output
	Bus     drivers.SPI      // shared by the three pots

	PWMSelect    pot.Pin
	CoarseSelect pot.Pin
	FineSelect   pot.Pin

	Output  run.Output // SG3525 shutdown line
	Sensors Sensors
	Display Display
}

// Options tune the stage for a board.
type Options struct {
	TicksPerSecond  int
	OutputActiveLow bool
	PWM             pot.Config
	Coarse          pot.Config
	Fine            pot.Config
	Trace           io.Writer // tuning trace, nil disables it
	Messages        io.Writer // input print messages, may be nil
}

// DefaultOptions returns the options of the reference board.
func DefaultOptions() Options {
	return Options{
		TicksPerSecond:  freq.DefaultTicksPerSecond,
		OutputActiveLow: true,
		PWM:             pot.PWM(),
		Coarse:          pot.Coarse(),
		Fine:            pot.Fine(),
	}
}

// Stage owns all control state. It is not safe for concurrent use: every
// method except Overflow must be called from the foreground loop.
type Stage struct {
	sensors Sensors
	display Display

	counter *counter.Counter
	freq    *freq.Estimator
	pwm     *pot.Channel
	coarse  *pot.Channel
	fine    *pot.Channel
	tuner   *tuner.Tuner
	calib   *calib.Controller
	run     *run.Controller
	inputs  *input.Mapper

	set SetPoint
	cur Current

	lastErr error
}

// New wires the stage components. The pots are not written until
// Initialize.
func New(hw Hardware, opts Options) (*Stage, error) {
	if hw.Counter == nil || hw.Bus == nil || hw.Output == nil || hw.Sensors == nil {
		return nil, fmt.Errorf("stage: incomplete hardware")
	}

	if err := tuner.CheckFine(opts.Fine); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	s := &Stage{
		sensors: hw.Sensors,
		display: hw.Display,
		set:     DefaultSetPoint(),
	}

	var err error
	if s.pwm, err = pot.New(hw.Bus, hw.PWMSelect, opts.PWM); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	if s.coarse, err = pot.New(hw.Bus, hw.CoarseSelect, opts.Coarse); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	if s.fine, err = pot.New(hw.Bus, hw.FineSelect, opts.Fine); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	s.counter = counter.New(hw.Counter)
	s.freq = freq.New(s.counter, opts.TicksPerSecond)
	s.tuner = tuner.New(s.fine, s.coarse)
	s.tuner.SetTrace(opts.Trace)
	s.calib = calib.NewController(calibActions{s})
	s.run = run.New(hw.Output, opts.OutputActiveLow)
	s.inputs = input.NewMapper(outputSwitch{s}, opts.Messages)

	return s, nil
}

// Initialize loads the default set point, turns the output off and writes
// the start-up wiper positions. The returned error reports bus failures.
func (s *Stage) Initialize() error {
	s.run.Disable()
	s.calib.Reset()
	s.set = DefaultSetPoint()
	for i := range s.set.Inputs {
		s.inputs.Configure(i+1, s.set.Inputs[i])
	}
	s.cur = Current{}
	s.lastErr = nil

	coarse := s.coarse.Config().MaxWiper()/2 + 3
	if top := s.coarse.Config().MaxWiper(); coarse > top {
		coarse = top
	}

	s.note(s.pwm.SetWiper(min(calib.StartPWMWiper, s.pwm.Config().MaxWiper())))
	s.note(s.coarse.SetWiper(coarse))
	s.note(s.fine.SetWiper(s.tuner.FineMid()))
	return s.lastErr
}

// Overflow is the counter overflow interrupt handler.
func (s *Stage) Overflow() {
	s.counter.Overflow()
}

// Update runs one tick: refresh measurements, count down a timed run and
// perform the control step of the active power mode.
func (s *Stage) Update() {
	s.freq.Update()
	s.measure()

	s.run.Tick()

	switch s.set.PowerMode {
	case ConstFrequency:
		s.tune()
	case Calibrate:
		s.RunCalibration()
	case ConstWiper:
	}
}

func (s *Stage) measure() {
	// The counted signal runs at twice the output frequency.
	f := s.freq.Frequency() / 2
	if s.run.Enabled() {
		if hz, ok := s.sensors.PWMFrequency(); ok {
			f = hz
		}
	}
	s.cur.Frequency = f
	s.cur.PWM = s.sensors.PWMDuty()
	s.cur.Current = s.sensors.Current()
	s.cur.Power = uint32(s.cur.Current) * SupplyVolts
}

func (s *Stage) tune() {
	if !s.run.Enabled() {
		return
	}
	_, err := s.tuner.Step(s.cur.Frequency, s.set.Frequency)
	s.note(err)
}

// RunCalibration drives the calibration state machine by one step.
func (s *Stage) RunCalibration() {
	s.calib.Run(s.run.Enabled(), s.cur.Frequency)
}

// SetOutput enables or disables the power stage output.
func (s *Stage) SetOutput(on bool) {
	s.run.Set(on, s.set.RunMode, s.set.RunTimer)
}

// Enabled reports whether the output is on.
func (s *Stage) Enabled() bool {
	return s.run.Enabled()
}

// HandleInput processes one debounced sample of input n (1-based).
func (s *Stage) HandleInput(n int, pressed, changed bool) {
	s.inputs.Apply(n, pressed, changed)
}

// Status returns the measured state together with the mirrored wiper
// positions.
func (s *Stage) Status() Current {
	c := s.cur
	c.PWMWiper = s.pwm.Wiper()
	c.CoarseWiper = s.coarse.Wiper()
	c.FineWiper = s.fine.Wiper()
	c.RunTimer = s.run.Remaining()
	c.On = s.run.Enabled()
	return c
}

// Frequency returns the measured output frequency in Hz.
func (s *Stage) Frequency() uint32 { return s.cur.Frequency }

// Current returns the measured supply current in tenths of an amp.
func (s *Stage) Current() uint16 { return s.cur.Current }

// Power returns the computed power in tenths of a watt.
func (s *Stage) Power() uint32 { return s.cur.Power }

// PWMDuty returns the measured duty cycle in tenths of a percent.
func (s *Stage) PWMDuty() uint16 { return s.cur.PWM }

// Wiper returns the last written position of p.
func (s *Stage) Wiper(p Pot) uint16 {
	if ch := s.channel(p); ch != nil {
		return ch.Wiper()
	}
	return 0
}

// MaxWiper returns the highest position of p.
func (s *Stage) MaxWiper(p Pot) uint16 {
	if ch := s.channel(p); ch != nil {
		return ch.Config().MaxWiper()
	}
	return 0
}

// Calibration returns the calibration session.
func (s *Stage) Calibration() calib.Session {
	return s.calib.Session()
}

// LastError returns the most recent bus error, if any.
func (s *Stage) LastError() error {
	return s.lastErr
}

func (s *Stage) note(err error) {
	if err != nil {
		s.lastErr = err
	}
}

func (s *Stage) channel(p Pot) *pot.Channel {
	switch p {
	case PWMPot:
		return s.pwm
	case CoarsePot:
		return s.coarse
	case FinePot:
		return s.fine
	}
	return nil
}
