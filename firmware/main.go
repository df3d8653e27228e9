//go:build tinygo

//go:generate tinygo flash -target=arduino-mega2560

package main

import (
	"machine"
	"time"

	"github.com/itohio/gosone/pkg/command"
	"github.com/itohio/gosone/pkg/counter"
	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/stage"
	"github.com/itohio/gosone/pkg/wire"
)

var (
	uart       = machine.UART0
	adcCurrent machine.ADC

	sg *stage.Stage

	inputs  = [input.Count]machine.Pin{PIN_INPUT1, PIN_INPUT2}
	bounce  [input.Count]input.Debouncer
	proc    *command.Processor
	lineBuf [LINE_MAX]byte
	linePos int
	outBuf  []byte
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	// Output off before anything else touches the stage
	PIN_OUTPUT.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_OUTPUT.High()

	for _, cs := range []machine.Pin{PIN_PWM_CS, PIN_COARSE_CS, PIN_FINE_CS} {
		cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
		cs.High()
	}
	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: SPI_FREQUENCY,
		Mode:      0,
	})

	for i, pin := range inputs {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		bounce[i].Stable = DEBOUNCE_SAMPLES
	}

	machine.InitADC()
	PIN_CURRENT_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	adcCurrent = machine.ADC{Pin: PIN_CURRENT_ADC}
	adcCurrent.Configure(machine.ADCConfig{})

	PIN_FREQ.Configure(machine.PinConfig{Mode: machine.PinInput})
	var t5 timer5

	opts := stage.DefaultOptions()
	opts.Messages = uart

	var err error
	sg, err = stage.New(stage.Hardware{
		Counter:      counter.FlagAtTop(t5),
		Bus:          machine.SPI0,
		PWMSelect:    PIN_PWM_CS,
		CoarseSelect: PIN_COARSE_CS,
		FineSelect:   PIN_FINE_CS,
		Output:       PIN_OUTPUT,
		Sensors:      sensors{},
		Display:      screen{},
	}, opts)
	if err != nil {
		println("stage:", err.Error())
		for {
			time.Sleep(time.Second)
		}
	}

	t5.configure(sg.Overflow)
	if err := sg.Initialize(); err != nil {
		println("pots:", err.Error())
	}
	proc = command.New(sg, uart)

	println("Ultrasonic generator ready, type '?' for help")

	period := TICK_PERIOD_MS * time.Millisecond
	next := time.Now()
	ticks := 0
	for {
		processSerial()

		now := time.Now()
		if now.Before(next) {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		next = next.Add(period)

		readInputs()
		sg.Update()

		ticks++
		if ticks >= STATUS_EVERY {
			ticks = 0
			writeLine(wire.AppendStatus(outBuf[:0], sg.Status(), sg.Settings().PowerMode))
		}
	}
}

func writeLine(line []byte) {
	outBuf = append(line, '\r', '\n')
	uart.Write(outBuf)
}

func readInputs() {
	for i, pin := range inputs {
		pressed, changed := bounce[i].Sample(!pin.Get())
		sg.HandleInput(i+1, pressed, changed)
	}
}

// processSerial collects command lines. Either CR or LF ends a line and ESC
// switches the output off at once.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch {
		case data == 0x1b:
			linePos = 0
			proc.Execute(command.Esc)
		case data == '\n' || data == '\r':
			if linePos > 0 {
				proc.Execute(string(lineBuf[:linePos]))
			}
			linePos = 0
		case linePos < LINE_MAX:
			lineBuf[linePos] = data
			linePos++
		default:
			// Overlong line, drop it
			linePos = 0
		}
	}
}

// sensors reads the current shunt. The SG3525 output is only seen through
// the counter, and the duty cycle follows from the PWM wiper.
type sensors struct{}

func (sensors) PWMFrequency() (uint32, bool) { return 0, false }

func (sensors) PWMDuty() uint16 {
	top := uint32(sg.MaxWiper(stage.PWMPot))
	if top == 0 {
		return 0
	}
	return uint16(uint32(sg.Wiper(stage.PWMPot)) * 490 / top)
}

func (sensors) Current() uint16 {
	return uint16(uint32(adcCurrent.Get()) * CURRENT_FULL_SCALE >> 16)
}

// screen prints calibration results for the host.
type screen struct{}

func (screen) ReportCalibrationSample(upper, lower uint32) {
	writeLine(wire.AppendCalibration(outBuf[:0], upper, lower))
}

func (screen) RedrawMainScreen() {
	writeLine(wire.AppendRedraw(outBuf[:0]))
}
