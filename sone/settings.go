package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/link"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createSetPointTab(state),
		createInputsTab(state),
		createTrendTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // display name to port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			selectedPort := portMap[portSelect.Selected]
			if selectedPort == "" {
				selectedPort = portSelect.Selected
			}
			baud := state.cfg.Serial.Baud
			if b, err := strconv.Atoi(baudEntry.Text); err == nil && b > 0 {
				baud = b
			}

			changed := state.cfg.Serial.Port != selectedPort || state.cfg.Serial.Baud != baud
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			state.cfg.Serial.Baud = baud
			if !saveConfig(state) {
				return
			}

			// Reconnect on the new port
			if changed && wasConnected && !state.useMock {
				handleConnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createSetPointTab edits the persisted set point. When connected the new
// values are also sent to the device.
func createSetPointTab(state *appState) *container.TabItem {
	sp := &state.cfg.SetPoint

	frequencyEntry := widget.NewEntry()
	frequencyEntry.SetText(strconv.FormatUint(uint64(sp.Frequency), 10))

	powerEntry := widget.NewEntry()
	powerEntry.SetText(fmt.Sprintf("%.1f", float64(sp.Power)/10))

	runModeSelect := widget.NewSelect([]string{run.Continuous.String(), run.Timed.String()}, nil)
	runModeSelect.SetSelected(sp.RunMode.String())

	runTimerEntry := widget.NewEntry()
	runTimerEntry.SetText((time.Duration(sp.RunTimer) * state.cfg.Tick.Period).String())

	powerModeSelect := widget.NewSelect([]string{stage.ConstFrequency.String(), stage.ConstWiper.String()}, nil)
	powerModeSelect.SetSelected(sp.PowerMode.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Frequency (Hz)", Widget: frequencyEntry},
			{Text: "Power (W)", Widget: powerEntry},
			{Text: "Run Mode", Widget: runModeSelect},
			{Text: "Run Timer", Widget: runTimerEntry},
			{Text: "Control", Widget: powerModeSelect},
		},
		OnSubmit: func() {
			next := *sp
			if f, err := strconv.ParseUint(frequencyEntry.Text, 10, 32); err == nil {
				next.Frequency = uint32(f)
			}
			if p, err := strconv.ParseFloat(powerEntry.Text, 64); err == nil && p >= 0 {
				next.Power = uint16(p*10 + 0.5)
			}
			if err := next.RunMode.UnmarshalText([]byte(runModeSelect.Selected)); err != nil {
				next.RunMode = sp.RunMode
			}
			if d, err := time.ParseDuration(runTimerEntry.Text); err == nil && d >= 0 {
				next.RunTimer = uint16(d / state.cfg.Tick.Period)
			}
			if err := next.PowerMode.UnmarshalText([]byte(powerModeSelect.Selected)); err != nil {
				next.PowerMode = sp.PowerMode
			}

			prev := *sp
			*sp = next
			if err := state.cfg.Validate(); err != nil {
				*sp = prev
				dialog.ShowError(err, state.window)
				return
			}
			if !saveConfig(state) {
				return
			}

			state.scopeWidget.SetTarget(float64(next.Frequency))
			sendCommand(state, fmt.Sprintf("FR %d", next.Frequency))
			sendCommand(state, fmt.Sprintf("PO %d", next.Power))
			sendCommand(state, "RM "+strings.ToUpper(next.RunMode.String()[:1]))
			sendCommand(state, fmt.Sprintf("RT %d", next.RunTimer))
			sendCommand(state, "PM "+next.PowerMode.Letter())
		},
	}

	return container.NewTabItem("Set Point", form)
}

// createInputsTab configures the digital inputs.
func createInputsTab(state *appState) *container.TabItem {
	actions := []string{
		input.Unused.String(),
		input.DirectControl.String(),
		input.ToggleOnPress.String(),
		input.EmergencyStop.String(),
	}

	selects := make([]*widget.Select, input.Count)
	prints := make([]*widget.Check, input.Count)
	items := make([]*widget.FormItem, 0, input.Count)
	for i := range selects {
		selects[i] = widget.NewSelect(actions, nil)
		selects[i].SetSelected(state.cfg.Inputs[i].Action.String())
		prints[i] = widget.NewCheck("Print", nil)
		prints[i].SetChecked(state.cfg.Inputs[i].Print)
		items = append(items, widget.NewFormItem(
			fmt.Sprintf("Input %d", i+1),
			container.NewBorder(nil, nil, nil, prints[i], selects[i]),
		))
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			for i := range selects {
				var a input.Action
				if err := a.UnmarshalText([]byte(selects[i].Selected)); err == nil {
					state.cfg.Inputs[i].Action = a
				}
				state.cfg.Inputs[i].Print = prints[i].Checked
			}
			if !saveConfig(state) {
				return
			}
			for i, in := range state.cfg.Inputs {
				cmd := fmt.Sprintf("IN %d %s", i+1, in.Action.Letter())
				if in.Print {
					cmd += " P"
				}
				sendCommand(state, cmd)
			}
		},
	}

	return container.NewTabItem("Inputs", form)
}

// createTrendTab creates the Trend configuration tab.
func createTrendTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(state.cfg.Trend.Window.String())

	pointsEntry := widget.NewEntry()
	pointsEntry.SetText(strconv.Itoa(state.cfg.Trend.Points))

	averageEntry := widget.NewEntry()
	averageEntry.SetText(strconv.Itoa(state.cfg.Trend.Average))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window", Widget: windowEntry},
			{Text: "Max Points", Widget: pointsEntry},
			{Text: "Average (0=disabled)", Widget: averageEntry},
		},
		OnSubmit: func() {
			if w, err := time.ParseDuration(windowEntry.Text); err == nil && w > 0 {
				state.cfg.Trend.Window = w
			}
			if p, err := strconv.Atoi(pointsEntry.Text); err == nil && p > 1 {
				state.cfg.Trend.Points = p
			}
			if avg, err := strconv.Atoi(averageEntry.Text); err == nil && avg >= 0 {
				state.cfg.Trend.Average = avg
			}
			saveConfig(state)
			// Window and averaging apply on the next connect
		},
	}

	return container.NewTabItem("Trend", form)
}

// createMockTab creates the simulated power stage configuration tab.
func createMockTab(state *appState) *container.TabItem {
	m := &state.cfg.Mock

	resonanceEntry := widget.NewEntry()
	resonanceEntry.SetText(fmt.Sprintf("%.0f", m.Resonance))

	bandwidthEntry := widget.NewEntry()
	bandwidthEntry.SetText(fmt.Sprintf("%.0f", m.Bandwidth))

	peakEntry := widget.NewEntry()
	peakEntry.SetText(fmt.Sprintf("%.2f", m.PeakCurrent))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.1f", m.Noise))

	settleEntry := widget.NewEntry()
	settleEntry.SetText(m.SettleTime.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Resonance (Hz)", Widget: resonanceEntry},
			{Text: "Bandwidth (Hz)", Widget: bandwidthEntry},
			{Text: "Peak Current (A)", Widget: peakEntry},
			{Text: "Noise (Hz)", Widget: noiseEntry},
			{Text: "Settle Time", Widget: settleEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(resonanceEntry.Text, 32); err == nil && v > 0 {
				m.Resonance = float32(v)
			}
			if v, err := strconv.ParseFloat(bandwidthEntry.Text, 32); err == nil && v > 0 {
				m.Bandwidth = float32(v)
			}
			if v, err := strconv.ParseFloat(peakEntry.Text, 32); err == nil && v > 0 {
				m.PeakCurrent = float32(v)
			}
			if v, err := strconv.ParseFloat(noiseEntry.Text, 32); err == nil && v >= 0 {
				m.Noise = float32(v)
			}
			if d, err := time.ParseDuration(settleEntry.Text); err == nil && d > 0 {
				m.SettleTime = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
