package stage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/run"
)

// ErrOutOfRange is returned by setters for values outside their bounds.
var ErrOutOfRange = errors.New("out of range")

// Setpoint bounds.
const (
	MinFrequency     = 20000 // Hz
	DefaultFrequency = 28000 // Hz
	MaxFrequency     = 35000 // Hz
	MinPower         = 0     // tenths of a watt
	MaxPower         = 1000  // tenths of a watt
)

// SupplyVolts converts measured current to power.
const SupplyVolts = 12

// PowerMode selects the per-tick control action.
type PowerMode uint8

const (
	ConstFrequency PowerMode = iota // track the target frequency
	Calibrate                       // run the coarse pot calibration
	ConstWiper                      // no control, wipers are set by hand
)

var powerModeNames = [...]string{
	ConstFrequency: "frequency",
	Calibrate:      "calibrate",
	ConstWiper:     "wiper",
}

var powerModeLetters = [...]string{
	ConstFrequency: "F",
	Calibrate:      "C",
	ConstWiper:     "W",
}

func (m PowerMode) String() string {
	if int(m) < len(powerModeNames) {
		return powerModeNames[m]
	}
	return fmt.Sprintf("PowerMode(%d)", uint8(m))
}

// Letter returns the command letter of m.
func (m PowerMode) Letter() string {
	if int(m) < len(powerModeLetters) {
		return powerModeLetters[m]
	}
	return "?"
}

func (m PowerMode) MarshalText() ([]byte, error) {
	if int(m) >= len(powerModeNames) {
		return nil, fmt.Errorf("invalid power mode %d", uint8(m))
	}
	return []byte(powerModeNames[m]), nil
}

func (m *PowerMode) UnmarshalText(text []byte) error {
	s := string(text)
	for i := range powerModeNames {
		if strings.EqualFold(s, powerModeNames[i]) || strings.EqualFold(s, powerModeLetters[i]) {
			*m = PowerMode(i)
			return nil
		}
	}
	return fmt.Errorf("invalid power mode %q", s)
}

// Pot identifies one of the three potentiometers.
type Pot uint8

const (
	PWMPot Pot = iota
	CoarsePot
	FinePot
)

func (p Pot) String() string {
	switch p {
	case PWMPot:
		return "pwm"
	case CoarsePot:
		return "coarse"
	case FinePot:
		return "fine"
	}
	return fmt.Sprintf("Pot(%d)", uint8(p))
}

// SetPoint is the operator controlled configuration.
type SetPoint struct {
	Frequency uint32 // Hz
	Power     uint16 // tenths of a watt
	RunMode   run.Mode
	RunTimer  uint16 // ticks
	PowerMode PowerMode
	Inputs    [input.Count]input.Config
}

// Validate checks every bounded field.
func (s SetPoint) Validate() error {
	if s.Frequency < MinFrequency || s.Frequency > MaxFrequency {
		return fmt.Errorf("%w: frequency %d, must be %d to %d", ErrOutOfRange, s.Frequency, MinFrequency, MaxFrequency)
	}
	if s.Power > MaxPower {
		return fmt.Errorf("%w: power %d, must be %d to %d", ErrOutOfRange, s.Power, MinPower, MaxPower)
	}
	if s.RunMode > run.Timed {
		return fmt.Errorf("%w: run mode %d", ErrOutOfRange, s.RunMode)
	}
	if int(s.PowerMode) >= len(powerModeNames) {
		return fmt.Errorf("%w: power mode %d", ErrOutOfRange, s.PowerMode)
	}
	for i, in := range s.Inputs {
		if in.Action > input.EmergencyStop {
			return fmt.Errorf("%w: input %d action %d", ErrOutOfRange, i+1, in.Action)
		}
	}
	return nil
}

// DefaultSetPoint returns the power-on set point.
func DefaultSetPoint() SetPoint {
	return SetPoint{
		Frequency: DefaultFrequency,
		Power:     MinPower,
		RunMode:   run.Continuous,
		PowerMode: ConstFrequency,
	}
}

// Current is the measured and mirrored state of the power stage.
type Current struct {
	Frequency   uint32 // Hz
	Current     uint16 // tenths of an amp
	Power       uint32 // tenths of a watt
	PWM         uint16 // duty cycle, tenths of a percent
	PWMWiper    uint16
	CoarseWiper uint16
	FineWiper   uint16
	RunTimer    uint16 // ticks left in a timed run
	On          bool
}
