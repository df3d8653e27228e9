package counter

// FlagAtTop adapts a timer that raises its overflow flag when the count
// reaches TOP (0xFF) instead of on the wrap to zero. AVR 16-bit timers do
// this in 8-bit fast PWM mode. The presented count runs one edge ahead, so it
// wraps on the same edge that raises the flag.
func FlagAtTop(hw Hardware) Hardware {
	return atTop{hw}
}

type atTop struct {
	Hardware
}

func (a atTop) Low() uint8 {
	return a.Hardware.Low() + 1
}

func (a atTop) OverflowPending() bool {
	if p, ok := a.Hardware.(PendingReporter); ok {
		return p.OverflowPending()
	}
	return false
}
