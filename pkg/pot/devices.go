package pot

// Ladder sizes of the supported parts.
const (
	MCP4131Steps = 129
	MCP4161Steps = 256
	AD8400Steps  = 256
)

// PWM returns the duty-cycle pot of the SG3525 stage (MCP4161, 10k).
func PWM() Config {
	return Config{Name: "pwm", Steps: MCP4161Steps, MaxResistance: 10000}
}

// Coarse returns the coarse frequency pot (MCP4131, 50k).
func Coarse() Config {
	return Config{Name: "coarse", Steps: MCP4131Steps, MaxResistance: 50000}
}

// Fine returns the fine frequency pot (AD8400, 1k).
func Fine() Config {
	return Config{Name: "fine", Steps: AD8400Steps, MaxResistance: 1000}
}
