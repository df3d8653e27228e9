package stage

import (
	"fmt"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/run"
)

// Setters validate their argument and leave the set point unchanged when it
// is out of range.

func (s *Stage) SetFrequency(hz uint32) error {
	if hz < MinFrequency || hz > MaxFrequency {
		return fmt.Errorf("%w: frequency %d, must be %d to %d", ErrOutOfRange, hz, MinFrequency, MaxFrequency)
	}
	s.set.Frequency = hz
	return nil
}

func (s *Stage) SetPower(tenthsW uint16) error {
	if tenthsW > MaxPower {
		return fmt.Errorf("%w: power %d, must be %d to %d", ErrOutOfRange, tenthsW, MinPower, MaxPower)
	}
	s.set.Power = tenthsW
	return nil
}

// SetRunMode takes effect on the next enable.
func (s *Stage) SetRunMode(m run.Mode) error {
	if m > run.Timed {
		return fmt.Errorf("%w: run mode %d", ErrOutOfRange, m)
	}
	s.set.RunMode = m
	return nil
}

// SetRunTimer sets the timed run duration in ticks. It takes effect on the
// next enable.
func (s *Stage) SetRunTimer(ticks uint16) {
	s.set.RunTimer = ticks
}

// SetPowerMode switches the control action. Leaving Calibrate abandons a
// running calibration.
func (s *Stage) SetPowerMode(m PowerMode) error {
	if int(m) >= len(powerModeNames) {
		return fmt.Errorf("%w: power mode %d", ErrOutOfRange, m)
	}
	if m != Calibrate {
		s.calib.Reset()
	}
	s.set.PowerMode = m
	return nil
}

// SetInput configures input n (1-based).
func (s *Stage) SetInput(n int, cfg input.Config) error {
	if cfg.Action > input.EmergencyStop {
		return fmt.Errorf("%w: input action %d", ErrOutOfRange, cfg.Action)
	}
	if err := s.inputs.Configure(n, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	s.set.Inputs[n-1] = cfg
	return nil
}

// SetWiper writes a wiper position directly. Intended for ConstWiper mode.
func (s *Stage) SetWiper(p Pot, w uint16) error {
	ch := s.channel(p)
	if ch == nil {
		return fmt.Errorf("%w: pot %d", ErrOutOfRange, p)
	}
	if top := ch.Config().MaxWiper(); w > top {
		return fmt.Errorf("%w: wiper %d, must be 0 to %d", ErrOutOfRange, w, top)
	}
	err := ch.SetWiper(w)
	s.note(err)
	return err
}

// StepWiper moves a wiper by delta, clamped to its range.
func (s *Stage) StepWiper(p Pot, delta int) error {
	ch := s.channel(p)
	if ch == nil {
		return fmt.Errorf("%w: pot %d", ErrOutOfRange, p)
	}
	_, err := ch.Step(delta)
	s.note(err)
	return err
}

// Settings returns the persisted part of the set point.
func (s *Stage) Settings() SetPoint {
	return s.set
}

// ApplySettings replaces the set point after validating all of it.
func (s *Stage) ApplySettings(sp SetPoint) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	if sp.PowerMode != Calibrate {
		s.calib.Reset()
	}
	for i := range sp.Inputs {
		s.inputs.Configure(i+1, sp.Inputs[i])
	}
	s.set = sp
	return nil
}
