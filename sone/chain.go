package main

import (
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/itohio/gosone/pkg/link"
	"github.com/itohio/gosone/pkg/sample"
	"github.com/itohio/gosone/pkg/trend"
	"github.com/itohio/gosone/pkg/wire"
)

// chain tracks the goroutines fed by a device for graceful shutdown.
type chain struct {
	device       link.Device
	dispatchDone chan struct{} // closed when the event dispatcher exits
	trendDone    chan struct{} // closed when the trend goroutine exits
}

// closeChain closes the device and waits for the pipeline to drain.
func closeChain(c *chain) {
	if c == nil {
		return
	}

	// Closing the device closes its events channel, which ends the
	// dispatcher, which closes the status stream feeding the trend.
	if c.device != nil {
		c.device.Close()
	}
	if c.dispatchDone != nil {
		<-c.dispatchDone
	}
	if c.trendDone != nil {
		<-c.trendDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeChain(state.chain)
		state.chain = nil
		state.device = nil
		state.on = false
		state.onBtn.Disable()
		state.calBtn.Disable()
		updateOutputButton(state)
		log.Printf("Disconnected")
		return
	}

	var device link.Device
	if state.useMock {
		mock, err := link.NewMock(state.cfg)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to create simulated device: %w", err), state.window)
			return
		}
		device = mock
		log.Printf("Using simulated device")
	} else {
		device = link.New(state.cfg.Serial.Port, state.cfg.Serial.Baud, link.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		return
	}
	state.device = device
	if !state.useMock {
		log.Printf("Connected to serial port: %s", state.cfg.Serial.Port)
	}

	state.onBtn.Enable()
	state.calBtn.Enable()

	state.trend.SetWindow(state.cfg.Trend.Window)
	state.trend.ResetShutdown()

	statuses := make(chan wire.Event, link.DefaultBufferSize)
	dispatchDone := make(chan struct{})
	trendDone := make(chan struct{})

	go func() {
		defer close(dispatchDone)
		defer close(statuses)
		for ev := range device.Events() {
			dispatch(state, ev)
			if ev.Kind == wire.Status {
				select {
				case statuses <- ev:
				default:
					log.Printf("Status stream full, dropping line")
				}
			}
		}
	}()

	samples := sample.NewConverter(500)(statuses)
	if state.cfg.Trend.Average > 0 {
		samples = sample.NewAveragingConverter(state.cfg.Trend.Average, 500)(samples)
	}

	go func() {
		defer close(trendDone)
		state.trend.ProcessSamples(samples)
	}()

	state.chain = &chain{
		device:       device,
		dispatchDone: dispatchDone,
		trendDone:    trendDone,
	}
}

// registerScopeUpdates forwards trend updates to the scope, throttled to
// about 60 FPS.
func registerScopeUpdates(state *appState) {
	const updateInterval = 16 * time.Millisecond
	state.trend.OnUpdate(func(samples []sample.Sample, stats trend.Stats) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, stats)
		})
	})
}

// dispatch routes one device event to the front panel.
func dispatch(state *appState, ev wire.Event) {
	switch ev.Kind {
	case wire.Status:
		fyne.Do(func() {
			state.on = ev.Status.On
			updateOutputButton(state)
			state.panel.showStatus(ev.Status, ev.Mode)
		})
	case wire.Calibration:
		fyne.Do(func() {
			state.panel.addCalibrationSample(ev.Upper, ev.Lower, ev.Diff)
		})
	case wire.Redraw:
		fyne.Do(func() {
			state.panel.redraw()
		})
	case wire.Message:
		fyne.Do(func() {
			state.panel.addMessage(ev.Text)
		})
	}
}
