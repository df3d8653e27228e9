package input

import (
	"fmt"
	"io"
	"strings"
)

// Count is the number of digital inputs.
const Count = 2

// Action selects what an input does to the power stage output.
type Action uint8

const (
	Unused        Action = iota // ignored
	DirectControl               // output follows the pressed state
	ToggleOnPress               // each press toggles the output
	EmergencyStop               // a press forces the output off
)

var actionNames = [...]string{
	Unused:        "unused",
	DirectControl: "direct",
	ToggleOnPress: "toggle",
	EmergencyStop: "estop",
}

// actionLetters are the single letter command forms.
var actionLetters = [...]string{
	Unused:        "U",
	DirectControl: "X",
	ToggleOnPress: "P",
	EmergencyStop: "E",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// Letter returns the command letter of a.
func (a Action) Letter() string {
	if int(a) < len(actionLetters) {
		return actionLetters[a]
	}
	return "?"
}

func (a Action) MarshalText() ([]byte, error) {
	if int(a) >= len(actionNames) {
		return nil, fmt.Errorf("invalid input action %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	s := string(text)
	for i := range actionNames {
		if strings.EqualFold(s, actionNames[i]) || strings.EqualFold(s, actionLetters[i]) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("invalid input action %q", s)
}

// Config is the per-input configuration.
type Config struct {
	Action Action `yaml:"action"`
	Print  bool   `yaml:"print"`
}

// Switch is the output being controlled.
type Switch interface {
	SetOutput(on bool)
	Enabled() bool
}

// Mapper translates debounced input events into output transitions.
type Mapper struct {
	sw     Switch
	out    io.Writer
	inputs [Count]Config
}

// NewMapper creates a mapper. Print messages go to out, which may be nil.
func NewMapper(sw Switch, out io.Writer) *Mapper {
	return &Mapper{sw: sw, out: out}
}

// Configure replaces the configuration of input n (1-based).
func (m *Mapper) Configure(n int, cfg Config) error {
	if n < 1 || n > Count {
		return fmt.Errorf("input %d not in [1,%d]", n, Count)
	}
	m.inputs[n-1] = cfg
	return nil
}

// Config returns the configuration of input n (1-based).
func (m *Mapper) Config(n int) Config {
	if n < 1 || n > Count {
		return Config{}
	}
	return m.inputs[n-1]
}

// Apply handles one sample of input n. pressed is the debounced level and
// changed reports that it differs from the previous sample.
func (m *Mapper) Apply(n int, pressed, changed bool) {
	if n < 1 || n > Count || !changed {
		return
	}
	cfg := m.inputs[n-1]

	if cfg.Print && m.out != nil {
		state := "OFF"
		if pressed {
			state = "ON"
		}
		fmt.Fprintf(m.out, "Input%d %s\r\n", n, state)
	}

	switch cfg.Action {
	case DirectControl:
		m.sw.SetOutput(pressed)
	case ToggleOnPress:
		if pressed {
			m.sw.SetOutput(!m.sw.Enabled())
		}
	case EmergencyStop:
		if pressed {
			m.sw.SetOutput(false)
		}
	}
}
