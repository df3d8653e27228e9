// Package command interprets operator commands typed on the serial console.
package command

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

// Esc is the escape key, an alias of OF.
const Esc = "\x1b"

// Stage is the power stage being commanded. *stage.Stage satisfies it.
type Stage interface {
	SetOutput(on bool)
	Enabled() bool
	SetFrequency(hz uint32) error
	SetPower(tenthsW uint16) error
	SetRunMode(m run.Mode) error
	SetRunTimer(ticks uint16)
	SetPowerMode(m stage.PowerMode) error
	SetInput(n int, cfg input.Config) error
	SetWiper(p stage.Pot, w uint16) error
	StepWiper(p stage.Pot, delta int) error
	MaxWiper(p stage.Pot) uint16
	Status() stage.Current
	Settings() stage.SetPoint
}

var _ Stage = (*stage.Stage)(nil)

type handler func(p *Processor, args []string) error

// Processor executes one command line at a time. Operator feedback is written
// to out.
type Processor struct {
	stage    Stage
	out      io.Writer
	commands map[string]handler
}

// New creates a processor that controls s and writes replies to out.
func New(s Stage, out io.Writer) *Processor {
	p := &Processor{stage: s, out: out}
	p.commands = map[string]handler{
		"ON":  (*Processor).on,
		"OF":  (*Processor).off,
		Esc:   (*Processor).off,
		"FR":  (*Processor).frequency,
		"PO":  (*Processor).power,
		"RM":  (*Processor).runMode,
		"RT":  (*Processor).runTimer,
		"PM":  (*Processor).powerMode,
		"IN":  (*Processor).input,
		"U":   stepper(stage.CoarsePot, 1),
		"D":   stepper(stage.CoarsePot, -1),
		"W":   stepper(stage.PWMPot, 1),
		"N":   stepper(stage.PWMPot, -1),
		"+":   stepper(stage.FinePot, 1),
		"-":   stepper(stage.FinePot, -1),
		"FCW": wiper(stage.CoarsePot),
		"FFW": wiper(stage.FinePot),
		"PW":  wiper(stage.PWMPot),
		"ST":  (*Processor).status,
		"?":   (*Processor).help,
	}
	return p
}

// Execute runs one command line. Errors are also reported to the operator.
func (p *Processor) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		p.printf("Unable to parse command: %v\r\n", err)
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	if len(args) == 0 {
		return nil
	}

	name := strings.ToUpper(args[0])
	h, ok := p.commands[name]
	if !ok {
		p.printf("Unknown command (%s)\r\nType '?' for help\r\n", args[0])
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return h(p, args[1:])
}

func (p *Processor) printf(format string, a ...any) {
	if p.out != nil {
		fmt.Fprintf(p.out, format, a...)
	}
}

// reject reports a bad or out of range argument.
func (p *Processor) reject(what, text string, lo, hi int, cause error) error {
	p.printf("Bad or out of range %s (%s), must be %d to %d\r\nType '?' for help\r\n", what, text, lo, hi)
	if cause == nil {
		cause = ErrBadArgument
	}
	return fmt.Errorf("%s %q: %w", what, text, cause)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (p *Processor) on(args []string) error {
	p.stage.SetOutput(true)
	p.printf("Transducer ON\r\n")
	return nil
}

func (p *Processor) off(args []string) error {
	p.stage.SetOutput(false)
	p.printf("Transducer OFF\r\n")
	return nil
}

func (p *Processor) frequency(args []string) error {
	text := arg(args, 0)
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return p.reject("frequency", text, stage.MinFrequency, stage.MaxFrequency, ErrBadArgument)
	}
	if err := p.stage.SetFrequency(uint32(v)); err != nil {
		return p.reject("frequency", text, stage.MinFrequency, stage.MaxFrequency, err)
	}
	return nil
}

func (p *Processor) power(args []string) error {
	text := arg(args, 0)
	v, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return p.reject("power", text, stage.MinPower, stage.MaxPower, ErrBadArgument)
	}
	if err := p.stage.SetPower(uint16(v)); err != nil {
		return p.reject("power", text, stage.MinPower, stage.MaxPower, err)
	}
	return nil
}

func (p *Processor) runMode(args []string) error {
	text := arg(args, 0)
	var m run.Mode
	if err := m.UnmarshalText([]byte(text)); err != nil {
		p.printf("Bad run mode (%s), must be C or T\r\nType '?' for help\r\n", text)
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	return p.stage.SetRunMode(m)
}

func (p *Processor) runTimer(args []string) error {
	text := arg(args, 0)
	v, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return p.reject("run timer", text, 0, 65535, ErrBadArgument)
	}
	p.stage.SetRunTimer(uint16(v))
	return nil
}

func (p *Processor) powerMode(args []string) error {
	text := arg(args, 0)
	var m stage.PowerMode
	if err := m.UnmarshalText([]byte(text)); err != nil {
		p.printf("Bad power mode (%s), must be F, C or W\r\nType '?' for help\r\n", text)
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	return p.stage.SetPowerMode(m)
}

func (p *Processor) input(args []string) error {
	text := arg(args, 0)
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > input.Count {
		return p.reject("input", text, 1, input.Count, ErrBadArgument)
	}
	var cfg input.Config
	if err := cfg.Action.UnmarshalText([]byte(arg(args, 1))); err != nil {
		p.printf("Bad input action (%s), must be U, X, P or E\r\nType '?' for help\r\n", arg(args, 1))
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	cfg.Print = strings.EqualFold(arg(args, 2), "P")
	return p.stage.SetInput(n, cfg)
}

func stepper(pot stage.Pot, delta int) handler {
	return func(p *Processor, args []string) error {
		return p.stage.StepWiper(pot, delta)
	}
}

func wiper(pot stage.Pot) handler {
	return func(p *Processor, args []string) error {
		text := arg(args, 0)
		top := int(p.stage.MaxWiper(pot))
		v, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return p.reject("wiper", text, 0, top, ErrBadArgument)
		}
		if int(v) > top {
			return p.reject("wiper", text, 0, top, stage.ErrOutOfRange)
		}
		return p.stage.SetWiper(pot, uint16(v))
	}
}

func (p *Processor) help(args []string) error {
	p.printf("%s", helpText)
	return nil
}

const helpText = "" +
	"ON          Transducer on\r\n" +
	"OF, ESC     Transducer off\r\n" +
	"FR <hz>     Target frequency (20000 to 35000)\r\n" +
	"PO <p>      Target power, tenths of a watt (0 to 1000)\r\n" +
	"RM C|T      Run continuous or timed\r\n" +
	"RT <ticks>  Timed run duration\r\n" +
	"PM F|C|W    Power mode: frequency, calibrate, wiper\r\n" +
	"IN n a [P]  Input n action U, X, P or E, optionally print\r\n" +
	"U, D        Coarse wiper up/down\r\n" +
	"+, -        Fine wiper up/down\r\n" +
	"W, N        PWM wider/narrower\r\n" +
	"FCW n       Set coarse wiper\r\n" +
	"FFW n       Set fine wiper\r\n" +
	"PW n        Set PWM wiper\r\n" +
	"ST          Status\r\n"
