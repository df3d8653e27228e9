package link

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/gosone/pkg/command"
	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/plant"
	"github.com/itohio/gosone/pkg/stage"
	"github.com/itohio/gosone/pkg/wire"
)

// Mock runs the control core against the simulated power stage. It prints
// the same lines as the firmware and they reach Events through the wire
// parser.
type Mock struct {
	cfg *config.Config

	events    chan wire.Event
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	plant *plant.Plant
	stage *stage.Stage
	proc  *command.Processor
	lines lineWriter
	ticks int
}

// NewMock creates a simulated device. A nil cfg uses the defaults.
func NewMock(cfg *config.Config) (*Mock, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Mock{
		cfg:    cfg,
		events: make(chan wire.Event, DefaultBufferSize),
		ctx:    ctx,
		cancel: cancel,
		plant:  plant.New(cfg.Mock, cfg.Pots),
	}
	m.lines.emit = m.emit

	opts := cfg.StageOptions()
	opts.Messages = &m.lines

	var err error
	if m.stage, err = stage.New(m.plant.Hardware(display{m}), opts); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	m.plant.OnOverflow(m.stage.Overflow)
	if err := m.stage.Initialize(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize stage: %w", err)
	}
	if err := m.stage.ApplySettings(cfg.StageSetPoint()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to apply settings: %w", err)
	}
	m.proc = command.New(m.stage, &m.lines)

	return m, nil
}

// Connect starts the simulation.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("closed")
	}

	m.connected = true
	go m.run()

	return nil
}

// Close stops the simulation. The events channel is closed once the
// simulation loop has exited.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	return nil
}

// Events returns the channel of parsed device lines.
func (m *Mock) Events() <-chan wire.Event {
	return m.events
}

// Send executes a command line on the simulated board.
func (m *Mock) Send(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	if err := m.proc.Execute(cmd); err != nil {
		log.Printf("Mock command %q: %v", cmd, err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) run() {
	defer close(m.events)

	ticker := time.NewTicker(m.cfg.Tick.Period)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			m.tick()
			m.mu.Unlock()
		}
	}
}

// tick advances the plant by one period and runs the foreground loop once.
// m.mu must be held.
func (m *Mock) tick() {
	m.plant.Advance(m.cfg.Tick.Period)
	m.stage.Update()

	m.ticks++
	if m.ticks >= m.cfg.Tick.StatusEvery {
		m.ticks = 0
		m.emit(wire.AppendStatus(nil, m.stage.Status(), m.stage.Settings().PowerMode))
	}
}

func (m *Mock) emit(line []byte) {
	ev, err := wire.Parse(string(line))
	if err != nil {
		log.Printf("Mock printed a malformed line '%s': %v", line, err)
		return
	}

	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	default:
		// Channel full, skip
	}
}

// display prints calibration results as the firmware does.
type display struct{ m *Mock }

func (d display) ReportCalibrationSample(upper, lower uint32) {
	d.m.emit(wire.AppendCalibration(nil, upper, lower))
}

func (d display) RedrawMainScreen() {
	d.m.emit(wire.AppendRedraw(nil))
}

// lineWriter splits operator text into lines.
type lineWriter struct {
	buf  []byte
	emit func([]byte)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := bytes.TrimRight(w.buf[:i], "\r")
		if len(line) > 0 {
			w.emit(line)
		}
		w.buf = w.buf[i+1:]
	}
}
