package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/pot"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
	"github.com/itohio/gosone/pkg/tuner"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	SetPoint SetPointConfig `yaml:"setpoint"`
	Inputs   []input.Config `yaml:"inputs"`
	Tick     TickConfig     `yaml:"tick"`
	Pots     PotsConfig     `yaml:"pots"`
	Trend    TrendConfig    `yaml:"trend"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SetPointConfig is the persisted operator set point.
type SetPointConfig struct {
	Frequency uint32          `yaml:"frequency"` // Hz
	Power     uint16          `yaml:"power"`     // tenths of a watt
	RunMode   run.Mode        `yaml:"run_mode"`
	RunTimer  uint16          `yaml:"run_timer"` // ticks
	PowerMode stage.PowerMode `yaml:"power_mode"`
}

// TickConfig contains the foreground loop timing.
type TickConfig struct {
	Period         time.Duration `yaml:"period"`
	TicksPerSecond int           `yaml:"ticks_per_second"`
	StatusEvery    int           `yaml:"status_every"` // ticks between status lines
}

// PotsConfig describes the three digital potentiometers.
type PotsConfig struct {
	PWM    pot.Config `yaml:"pwm"`
	Coarse pot.Config `yaml:"coarse"`
	Fine   pot.Config `yaml:"fine"`
}

// TrendConfig contains host trend display parameters.
type TrendConfig struct {
	Window  time.Duration `yaml:"window"`
	Points  int           `yaml:"points"`  // max points drawn, older ones are downsampled
	Average int           `yaml:"average"` // moving average length in status lines, 0 disables it
}

// MockConfig contains the simulated power stage parameters.
type MockConfig struct {
	SeriesResistance float32       `yaml:"series_resistance"` // fixed timing resistance (ohms)
	OscillatorGain   float32       `yaml:"oscillator_gain"`   // f = gain / R (Hz*ohm)
	SettleTime       time.Duration `yaml:"settle_time"`       // oscillator time constant
	Noise            float32       `yaml:"noise"`             // frequency noise amplitude (Hz)
	Resonance        float32       `yaml:"resonance"`         // transducer resonance (Hz)
	Bandwidth        float32       `yaml:"bandwidth"`         // resonance half width (Hz)
	PeakCurrent      float32       `yaml:"peak_current"`      // current at resonance and full duty (A)
	MaxDuty          float32       `yaml:"max_duty"`          // duty cycle at full PWM wiper (%)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	sp := stage.DefaultSetPoint()
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud: 115200,
		},
		SetPoint: SetPointConfig{
			Frequency: sp.Frequency,
			Power:     sp.Power,
			RunMode:   sp.RunMode,
			RunTimer:  sp.RunTimer,
			PowerMode: sp.PowerMode,
		},
		Inputs: make([]input.Config, input.Count),
		Tick: TickConfig{
			Period:         40 * time.Millisecond,
			TicksPerSecond: 25,
			StatusEvery:    5,
		},
		Pots: PotsConfig{
			PWM:    pot.PWM(),
			Coarse: pot.Coarse(),
			Fine:   pot.Fine(),
		},
		Trend: TrendConfig{
			Window: 60 * time.Second,
			Points: 600,
		},
		Mock: MockConfig{
			SeriesResistance: 10000,
			OscillatorGain:   967e6, // 28 kHz at the start-up wipers
			SettleTime:       5 * time.Millisecond,
			Noise:            2,
			Resonance:        28400,
			Bandwidth:        900,
			PeakCurrent:      6,
			MaxDuty:          49,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the persisted set point and the pot descriptions.
func (c *Config) Validate() error {
	if len(c.Inputs) != input.Count {
		return fmt.Errorf("invalid config: want %d inputs, got %d", input.Count, len(c.Inputs))
	}
	if err := c.StageSetPoint().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := errors.Join(c.Pots.PWM.Validate(), c.Pots.Coarse.Validate(), c.Pots.Fine.Validate()); err != nil {
		return err
	}
	if err := tuner.CheckFine(c.Pots.Fine); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StageSetPoint converts the persisted set point for the stage.
func (c *Config) StageSetPoint() stage.SetPoint {
	sp := stage.SetPoint{
		Frequency: c.SetPoint.Frequency,
		Power:     c.SetPoint.Power,
		RunMode:   c.SetPoint.RunMode,
		RunTimer:  c.SetPoint.RunTimer,
		PowerMode: c.SetPoint.PowerMode,
	}
	copy(sp.Inputs[:], c.Inputs)
	return sp
}

// SetStageSetPoint stores a stage set point for persistence. Calibrate is a
// transient mode and is stored as ConstFrequency.
func (c *Config) SetStageSetPoint(sp stage.SetPoint) {
	c.SetPoint = SetPointConfig{
		Frequency: sp.Frequency,
		Power:     sp.Power,
		RunMode:   sp.RunMode,
		RunTimer:  sp.RunTimer,
		PowerMode: sp.PowerMode,
	}
	if sp.PowerMode == stage.Calibrate {
		c.SetPoint.PowerMode = stage.ConstFrequency
	}
	c.Inputs = append(c.Inputs[:0], sp.Inputs[:]...)
}

// StageOptions returns stage options for the configured board.
func (c *Config) StageOptions() stage.Options {
	opts := stage.DefaultOptions()
	opts.TicksPerSecond = c.Tick.TicksPerSecond
	opts.PWM = c.Pots.PWM
	opts.Coarse = c.Pots.Coarse
	opts.Fine = c.Pots.Fine
	return opts
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.SetPoint.Frequency == 0 {
		c.SetPoint.Frequency = def.SetPoint.Frequency
	}
	if len(c.Inputs) < input.Count {
		c.Inputs = append(c.Inputs, make([]input.Config, input.Count-len(c.Inputs))...)
	}

	if c.Tick.Period == 0 {
		c.Tick.Period = def.Tick.Period
	}
	if c.Tick.TicksPerSecond == 0 {
		c.Tick.TicksPerSecond = def.Tick.TicksPerSecond
	}
	if c.Tick.StatusEvery == 0 {
		c.Tick.StatusEvery = def.Tick.StatusEvery
	}

	ensurePot(&c.Pots.PWM, def.Pots.PWM)
	ensurePot(&c.Pots.Coarse, def.Pots.Coarse)
	ensurePot(&c.Pots.Fine, def.Pots.Fine)

	if c.Trend.Window == 0 {
		c.Trend.Window = def.Trend.Window
	}
	if c.Trend.Points == 0 {
		c.Trend.Points = def.Trend.Points
	}

	if c.Mock.SeriesResistance == 0 {
		c.Mock.SeriesResistance = def.Mock.SeriesResistance
	}
	if c.Mock.OscillatorGain == 0 {
		c.Mock.OscillatorGain = def.Mock.OscillatorGain
	}
	if c.Mock.SettleTime == 0 {
		c.Mock.SettleTime = def.Mock.SettleTime
	}
	if c.Mock.Resonance == 0 {
		c.Mock.Resonance = def.Mock.Resonance
	}
	if c.Mock.Bandwidth == 0 {
		c.Mock.Bandwidth = def.Mock.Bandwidth
	}
	if c.Mock.PeakCurrent == 0 {
		c.Mock.PeakCurrent = def.Mock.PeakCurrent
	}
	if c.Mock.MaxDuty == 0 {
		c.Mock.MaxDuty = def.Mock.MaxDuty
	}
}

func ensurePot(p *pot.Config, def pot.Config) {
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Steps == 0 {
		p.Steps = def.Steps
	}
	if p.MaxResistance == 0 {
		p.MaxResistance = def.MaxResistance
	}
}
