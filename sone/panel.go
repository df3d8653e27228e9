package main

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosone/pkg/command"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

// maxLogLines bounds the calibration and message logs.
const maxLogLines = 200

// panel is the front panel next to the trend: live readout, set point
// controls, calibration results and device messages.
type panel struct {
	state *appState

	frequency *widget.Label
	current   *widget.Label
	power     *widget.Label
	pwm       *widget.Label
	wipers    *widget.Label
	mode      *widget.Label
	timer     *widget.Label

	target *widget.Entry

	calibration *widget.Entry
	calLines    []string
	messages    *widget.Entry
	msgLines    []string
}

func createPanel(state *appState) fyne.CanvasObject {
	p := &panel{
		state:     state,
		frequency: widget.NewLabel("-"),
		current:   widget.NewLabel("-"),
		power:     widget.NewLabel("-"),
		pwm:       widget.NewLabel("-"),
		wipers:    widget.NewLabel("-"),
		mode:      widget.NewLabel("-"),
		timer:     widget.NewLabel("-"),
	}
	state.panel = p

	readout := widget.NewForm(
		widget.NewFormItem("Frequency", p.frequency),
		widget.NewFormItem("Current", p.current),
		widget.NewFormItem("Power", p.power),
		widget.NewFormItem("PWM", p.pwm),
		widget.NewFormItem("Wipers", p.wipers),
		widget.NewFormItem("Mode", p.mode),
		widget.NewFormItem("Timer", p.timer),
	)

	p.target = widget.NewEntry()
	p.target.SetText(strconv.FormatUint(uint64(state.cfg.SetPoint.Frequency), 10))
	setTarget := widget.NewButtonWithIcon("", theme.ConfirmIcon(), func() {
		p.applyTarget()
	})
	p.target.OnSubmitted = func(string) { p.applyTarget() }

	modes := []string{stage.ConstFrequency.String(), stage.ConstWiper.String()}
	modeSelect := widget.NewSelect(modes, func(selected string) {
		var m stage.PowerMode
		if err := m.UnmarshalText([]byte(selected)); err == nil {
			sendCommand(state, "PM "+m.Letter())
		}
	})
	modeSelect.SetSelected(state.cfg.SetPoint.PowerMode.String())

	wiperRow := func(name string, up, down string) fyne.CanvasObject {
		return container.NewHBox(
			widget.NewLabel(name),
			widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() { sendCommand(state, down) }),
			widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { sendCommand(state, up) }),
		)
	}

	controls := container.NewVBox(
		widget.NewLabelWithStyle("Set point", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, widget.NewLabel("Target Hz"), setTarget, p.target),
		container.NewBorder(nil, nil, widget.NewLabel("Control"), nil, modeSelect),
		wiperRow("Coarse", "U", "D"),
		wiperRow("Fine", "+", "-"),
		wiperRow("PWM", "W", "N"),
	)

	p.calibration = widget.NewMultiLineEntry()
	p.calibration.Disable()
	p.calibration.SetMinRowsVisible(8)

	p.messages = widget.NewMultiLineEntry()
	p.messages.Disable()
	p.messages.SetMinRowsVisible(6)

	return container.NewVScroll(container.NewVBox(
		readout,
		widget.NewSeparator(),
		controls,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Calibration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.calibration,
		widget.NewLabelWithStyle("Messages", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.messages,
	))
}

func (p *panel) applyTarget() {
	hz, err := strconv.ParseUint(strings.TrimSpace(p.target.Text), 10, 32)
	if err != nil || hz < stage.MinFrequency || hz > stage.MaxFrequency {
		dialog.ShowError(fmt.Errorf("target must be %d to %d Hz", stage.MinFrequency, stage.MaxFrequency), p.state.window)
		return
	}
	if sendCommand(p.state, fmt.Sprintf("FR %d", hz)) {
		p.state.cfg.SetPoint.Frequency = uint32(hz)
		p.state.scopeWidget.SetTarget(float64(hz))
	}
}

// showStatus updates the readout. Must run on the main thread.
func (p *panel) showStatus(c stage.Current, mode stage.PowerMode) {
	p.frequency.SetText(command.Frequency(c.Frequency).String())
	p.current.SetText(command.Current(c.Current).String())
	p.power.SetText(command.Power(c.Power).String())
	p.pwm.SetText(fmt.Sprintf("%d.%d%%", c.PWM/10, c.PWM%10))
	p.wipers.SetText(fmt.Sprintf("%d / %d / %d", c.PWMWiper, c.CoarseWiper, c.FineWiper))
	p.mode.SetText(mode.String())
	if c.On && p.state.cfg.SetPoint.RunMode == run.Timed {
		p.timer.SetText(strconv.Itoa(int(c.RunTimer)))
	} else {
		p.timer.SetText("-")
	}
}

// addCalibrationSample appends one coarse step measurement.
func (p *panel) addCalibrationSample(upper, lower uint32, diff int64) {
	if len(p.calLines) == 0 {
		p.calLines = append(p.calLines, "upper    lower    diff")
	}
	p.calLines = appendBounded(p.calLines, fmt.Sprintf("%-8d %-8d %d", upper, lower, diff))
	p.calibration.SetText(strings.Join(p.calLines, "\n"))
}

// redraw ends a calibration run; the next sample starts a new table.
func (p *panel) redraw() {
	if len(p.calLines) > 0 {
		p.calLines = appendBounded(p.calLines, "done")
		p.calibration.SetText(strings.Join(p.calLines, "\n"))
		p.calLines = nil
	}
	p.state.scopeWidget.Refresh()
}

func (p *panel) addMessage(text string) {
	p.msgLines = appendBounded(p.msgLines, text)
	p.messages.SetText(strings.Join(p.msgLines, "\n"))
}

func appendBounded(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

// sendCommand sends one command line and reports failures. It returns
// whether the command was sent.
func sendCommand(state *appState, cmd string) bool {
	if state.device == nil || !state.device.IsConnected() {
		return false
	}
	if err := state.device.Send(cmd); err != nil {
		dialog.ShowError(fmt.Errorf("failed to send %q: %w", cmd, err), state.window)
		return false
	}
	return true
}

// handleOutputToggle switches the output. The button follows the status
// lines, so a command lost on the way is visible.
func handleOutputToggle(state *appState) {
	if state.on {
		sendCommand(state, "OF")
	} else {
		sendCommand(state, "ON")
	}
}

// handleCalibrate starts a coarse pot calibration run.
func handleCalibrate(state *appState) {
	dialog.ShowConfirm("Calibrate",
		"The output is switched on and the coarse pot is stepped down 22 times. Continue?",
		func(ok bool) {
			if !ok {
				return
			}
			state.panel.calLines = nil
			if sendCommand(state, "PM C") {
				sendCommand(state, "ON")
			}
		}, state.window)
}

// updateOutputButton updates the ON/OFF button from the output state.
func updateOutputButton(state *appState) {
	if state.on {
		state.onBtn.SetText("OFF")
		state.onBtn.SetIcon(theme.MediaStopIcon())
		state.onBtn.Importance = widget.DangerImportance
	} else {
		state.onBtn.SetText("ON")
		state.onBtn.SetIcon(theme.MediaPlayIcon())
		state.onBtn.Importance = widget.HighImportance
	}
	state.onBtn.Refresh()
}
