package main

import (
	"flag"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/link"
	"github.com/itohio/gosone/pkg/scope"
	"github.com/itohio/gosone/pkg/trend"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use the simulated power stage instead of serial port")
		averageFlag = flag.Int("average", -1, "Status lines to average in the trend (0 = disabled, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageFlag >= 0 {
		cfg.Trend.Average = *averageFlag
	}

	application := app.NewWithID("com.itohio.gosone")

	window := application.NewWindow("Ultrasonic Generator")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		trend:      trend.New(cfg),
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)
	state.scopeWidget = scope.New(cfg)
	state.scopeWidget.SetTarget(float64(cfg.SetPoint.Frequency))
	registerScopeUpdates(state)
	panel := createPanel(state)

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		panel,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeChain(state.chain)
	})
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      link.Device
	trend       *trend.Trend
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	useMock     bool
	chain       *chain // nil if not connected

	connectBtn *widget.Button
	onBtn      *widget.Button
	calBtn     *widget.Button
	panel      *panel

	on bool // output state from the last status line

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect, Settings, Calibrate and
// ON/OFF buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	clearBtn := widget.NewButtonWithIcon("", theme.ContentClearIcon(), func() {
		state.trend.Reset()
		state.scopeWidget.Clear()
	})

	calBtn := widget.NewButtonWithIcon("Calibrate", theme.ViewRefreshIcon(), func() {
		handleCalibrate(state)
	})
	calBtn.Disable()
	state.calBtn = calBtn

	onBtn := widget.NewButtonWithIcon("ON", theme.MediaPlayIcon(), func() {
		handleOutputToggle(state)
	})
	onBtn.Disable()
	state.onBtn = onBtn

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn, clearBtn), // left
		container.NewHBox(calBtn, onBtn),                     // right
		nil, // center (spacer)
	)
}
