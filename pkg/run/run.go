package run

import (
	"fmt"
	"strings"
)

// Output is the power stage enable line. machine.Pin satisfies it.
type Output interface {
	Set(high bool)
}

// Mode selects how long the output stays on once enabled.
type Mode uint8

const (
	Continuous Mode = iota
	Timed
)

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Timed:
		return "timed"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	if m > Timed {
		return nil, fmt.Errorf("invalid run mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "continuous", "c":
		*m = Continuous
	case "timed", "t":
		*m = Timed
	default:
		return fmt.Errorf("invalid run mode %q", text)
	}
	return nil
}

// State is the controller state.
type State uint8

const (
	Off State = iota
	OnContinuous
	OnTimed
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case OnContinuous:
		return "on"
	case OnTimed:
		return "on-timed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Controller switches the power stage output and counts down timed runs.
type Controller struct {
	out       Output
	activeLow bool
	state     State
	remaining uint16
}

// New creates a controller and drives the output to its off level.
func New(out Output, activeLow bool) *Controller {
	c := &Controller{out: out, activeLow: activeLow}
	c.drive(false)
	return c
}

// Enable asserts the output. In Timed mode the countdown is loaded with
// duration ticks.
func (c *Controller) Enable(mode Mode, duration uint16) {
	if mode == Timed {
		c.state = OnTimed
		c.remaining = duration
	} else {
		c.state = OnContinuous
		c.remaining = 0
	}
	c.drive(true)
}

// Disable deasserts the output and clears the countdown.
func (c *Controller) Disable() {
	c.state = Off
	c.remaining = 0
	c.drive(false)
}

// Set enables or disables the output.
func (c *Controller) Set(on bool, mode Mode, duration uint16) {
	if on {
		c.Enable(mode, duration)
	} else {
		c.Disable()
	}
}

// Tick advances a timed run by one tick. It returns true when the countdown
// expired and the output was disabled.
func (c *Controller) Tick() bool {
	if c.state != OnTimed {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.Disable()
		return true
	}
	return false
}

func (c *Controller) Enabled() bool     { return c.state != Off }
func (c *Controller) State() State      { return c.state }
func (c *Controller) Remaining() uint16 { return c.remaining }

func (c *Controller) drive(on bool) {
	c.out.Set(on != c.activeLow)
}
