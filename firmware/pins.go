//go:build tinygo

package main

import "machine"

const (
	// Foreground loop
	TICK_PERIOD_MS   = 40 // one control step, 25 per second
	STATUS_EVERY     = 5  // ticks between status lines
	DEBOUNCE_SAMPLES = 2  // ticks an input must hold a new level

	// Current sense: ADC full scale in tenths of an amp
	CURRENT_FULL_SCALE = 200

	// Power stage
	PIN_OUTPUT = machine.D7 // SG3525 shutdown, low enables the output

	// Pot chip-selects on the shared SPI0 bus
	PIN_PWM_CS    = machine.D2
	PIN_COARSE_CS = machine.D3
	PIN_FINE_CS   = machine.D6

	// Oscillator output into the Timer5 external clock (T5, D47)
	PIN_FREQ = machine.PL2

	// Digital inputs, active low with pull-ups
	PIN_INPUT1 = machine.D4
	PIN_INPUT2 = machine.D5

	PIN_CURRENT_ADC = machine.ADC0

	SPI_FREQUENCY = 1000000

	// Status lines are about 40 bytes, 5 per second
	UART_BAUD_RATE = 115200
	LINE_MAX       = 32
)
