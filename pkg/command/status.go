package command

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

func (p *Processor) status(args []string) error {
	p.printf("%s\r\n", FormatStatus(p.stage.Status(), p.stage.Settings()))
	return nil
}

// FormatStatus renders a one line human readable summary.
func FormatStatus(c stage.Current, sp stage.SetPoint) string {
	var b strings.Builder

	state := "OFF"
	if c.On {
		state = "ON"
	}
	fmt.Fprintf(&b, "%s  %s/%s  %s  %s  PWM %d.%d%%  W %d/%d/%d  %s",
		state,
		Frequency(c.Frequency), Frequency(sp.Frequency),
		Current(c.Current), Power(c.Power),
		c.PWM/10, c.PWM%10,
		c.PWMWiper, c.CoarseWiper, c.FineWiper,
		sp.PowerMode,
	)
	if c.On && sp.RunMode == run.Timed {
		fmt.Fprintf(&b, "  T %d", c.RunTimer)
	}
	return b.String()
}

// Frequency converts hertz to a physic quantity.
func Frequency(hz uint32) physic.Frequency {
	return physic.Frequency(hz) * physic.Hertz
}

// Current converts tenths of an amp to a physic quantity.
func Current(tenthsA uint16) physic.ElectricCurrent {
	return physic.ElectricCurrent(tenthsA) * 100 * physic.MilliAmpere
}

// Power converts tenths of a watt to a physic quantity.
func Power(tenthsW uint32) physic.Power {
	return physic.Power(tenthsW) * 100 * physic.MilliWatt
}
