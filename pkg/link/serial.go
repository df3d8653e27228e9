package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/gosone/pkg/wire"
)

const (
	// DefaultBaudRate is the console baud rate of the firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the events channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to the power stage console.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      io.ReadWriteCloser
	events    chan wire.Event
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		events:   make(chan wire.Event, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports. USB ports are described by
// their product name or VID:PID.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, p := range details {
		result = append(result, Port{Name: p.Name, Description: describe(p)})
	}
	return result, nil
}

func describe(p *enumerator.PortDetails) string {
	switch {
	case !p.IsUSB:
		return p.Name
	case p.Product != "":
		return p.Product
	default:
		return p.VID + ":" + p.PID
	}
}

// Connect opens the serial port and starts reading events.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("closed")
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach starts reading from conn. d.mu must be held.
func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.connected = true
	go d.readEvents(conn)
}

// Close closes the connection. The events channel is closed once the reader
// has stopped.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	return nil
}

// Events returns the channel of parsed device lines.
func (d *Serial) Events() <-chan wire.Event {
	return d.events
}

// Send writes one command line to the device.
func (d *Serial) Send(cmd string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := io.WriteString(d.conn, strings.TrimSpace(cmd)+"\r\n"); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readEvents parses lines from r until it fails or the connection is closed.
func (d *Serial) readEvents(r io.Reader) {
	defer close(d.events)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readEvents: %v", r)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if d.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ev, err := wire.Parse(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		select {
		case d.events <- ev:
		case <-d.ctx.Done():
			return
		default:
			// Channel full, log and skip
			log.Printf("Events channel full, dropping line")
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil && !errors.Is(err, io.EOF) {
		log.Printf("Error reading from serial port: %v", err)
	}
}
