//go:build tinygo

package main

import (
	"device/avr"
	"runtime/interrupt"
)

// timer5 counts oscillator edges on T5. It runs in 8-bit fast PWM mode so
// the overflow flag is raised every 256 edges, at TOP rather than on the wrap.
// Wrap it with counter.FlagAtTop.
type timer5 struct{}

// overflow is called from the TIMER5_OVF vector.
var overflow func()

func (timer5) configure(handler func()) {
	overflow = handler

	avr.TCCR5A.Set(avr.TCCR5A_WGM50)
	// WGM52 completes mode 5, CS5[2:0]=111 clocks from T5 on the rising edge
	avr.TCCR5B.Set(avr.TCCR5B_WGM52 | avr.TCCR5B_CS52 | avr.TCCR5B_CS51 | avr.TCCR5B_CS50)
	avr.TCNT5H.Set(0)
	avr.TCNT5L.Set(0)
	avr.TIFR5.Set(avr.TIFR5_TOV5)

	interrupt.New(avr.IRQ_TIMER5_OVF, func(interrupt.Interrupt) {
		if overflow != nil {
			overflow()
		}
	}).Enable()

	avr.TIMSK5.SetBits(avr.TIMSK5_TOIE5)
}

func (timer5) Low() uint8 {
	return avr.TCNT5L.Get()
}

func (timer5) MaskOverflow() {
	avr.TIMSK5.ClearBits(avr.TIMSK5_TOIE5)
}

func (timer5) UnmaskOverflow() {
	avr.TIMSK5.SetBits(avr.TIMSK5_TOIE5)
}

func (timer5) OverflowPending() bool {
	return avr.TIFR5.HasBits(avr.TIFR5_TOV5)
}
