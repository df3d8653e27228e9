package pot

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

var (
	// ErrWiperRange is returned when a wiper position is outside [0, steps-1].
	ErrWiperRange = errors.New("wiper out of range")
	// ErrInvalidConfig is returned by New for unusable channel settings.
	ErrInvalidConfig = errors.New("invalid potentiometer config")
)

// commandWrite selects the volatile wiper register. MCP41x1 and AD8400 both
// accept it as the first byte of a two byte write frame.
const commandWrite = 0x00

// maxSteps is the largest ladder that still fits a one byte wiper value.
const maxSteps = 256

// Pin is a chip-select line. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// Config identifies one physical potentiometer.
type Config struct {
	Name          string `yaml:"name"`
	Steps         uint16 `yaml:"steps"`          // number of wiper positions
	MaxResistance uint32 `yaml:"max_resistance"` // end-to-end resistance, ohms
}

// Validate checks that the configuration describes a usable device.
func (c Config) Validate() error {
	if c.Steps < 2 || c.Steps > maxSteps {
		return fmt.Errorf("%w: %s: steps %d not in [2,%d]", ErrInvalidConfig, c.Name, c.Steps, maxSteps)
	}
	if c.MaxResistance == 0 {
		return fmt.Errorf("%w: %s: max resistance must be positive", ErrInvalidConfig, c.Name)
	}
	return nil
}

// MaxWiper returns the highest valid wiper position.
func (c Config) MaxWiper() uint16 {
	return c.Steps - 1
}

// Channel drives a write-only SPI digital potentiometer. The device cannot be
// read back, so Channel mirrors the last wiper value it wrote.
type Channel struct {
	cfg   Config
	bus   drivers.SPI
	cs    Pin
	wiper uint16
	frame [2]byte
}

// New creates a channel and deasserts its chip-select line. No wiper value is
// written until SetWiper is called.
func New(bus drivers.SPI, cs Pin, cfg Config) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bus == nil || cs == nil {
		return nil, fmt.Errorf("%w: %s: bus and chip-select are required", ErrInvalidConfig, cfg.Name)
	}
	cs.Set(true)
	return &Channel{cfg: cfg, bus: bus, cs: cs}, nil
}

// SetWiper writes w to the device.
func (c *Channel) SetWiper(w uint16) error {
	if w > c.cfg.MaxWiper() {
		return fmt.Errorf("%w: %s: %d not in [0,%d]", ErrWiperRange, c.cfg.Name, w, c.cfg.MaxWiper())
	}
	c.wiper = w

	c.frame[0] = commandWrite
	c.frame[1] = uint8(w)

	c.cs.Set(false)
	err := c.bus.Tx(c.frame[:], nil)
	c.cs.Set(true)
	if err != nil {
		return fmt.Errorf("%s: write wiper: %w", c.cfg.Name, err)
	}
	return nil
}

// Step moves the wiper by delta positions, clamped to the device range, and
// writes the result. The clamped position is returned.
func (c *Channel) Step(delta int) (uint16, error) {
	w := int(c.wiper) + delta
	if w < 0 {
		w = 0
	}
	if top := int(c.cfg.MaxWiper()); w > top {
		w = top
	}
	return uint16(w), c.SetWiper(uint16(w))
}

// SetResistance converts r to the nearest wiper position and writes it.
func (c *Channel) SetResistance(r uint32) error {
	return c.SetWiper(R2W(c.cfg, r))
}

// Wiper returns the last written wiper position.
func (c *Channel) Wiper() uint16 { return c.wiper }

// Resistance returns the resistance of the last written wiper position.
func (c *Channel) Resistance() uint32 { return W2R(c.cfg, c.wiper) }

// Config returns the channel configuration.
func (c *Channel) Config() Config { return c.cfg }

// scale returns x*num/den rounded to the nearest integer.
func scale(x, num, den uint64) uint64 {
	return (x*num + den/2) / den
}

// R2W converts a resistance to a wiper position, clamped to the device range.
func R2W(cfg Config, r uint32) uint16 {
	w := scale(uint64(r), uint64(cfg.Steps), uint64(cfg.MaxResistance))
	if top := uint64(cfg.MaxWiper()); w > top {
		w = top
	}
	return uint16(w)
}

// W2R converts a wiper position to a resistance.
func W2R(cfg Config, w uint16) uint32 {
	return uint32(scale(uint64(w), uint64(cfg.MaxResistance), uint64(cfg.Steps)))
}
