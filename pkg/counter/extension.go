package counter

// Section is proof that the overflow interrupt is masked. Only Counter hands
// out a held Section, and only for the duration of its critical callback.
type Section struct{ held bool }

// ISR is proof that the caller runs inside the overflow interrupt handler.
type ISR struct{ held bool }

// Extension is the high byte of the extended counter. It is the only state
// shared between the overflow interrupt and the foreground loop, so every
// access requires a token for the context it is made from.
type Extension struct {
	v uint8
}

// Load reads the extension byte from the foreground.
func (e *Extension) Load(s Section) uint8 {
	if !s.held {
		panic("counter: extension read outside critical section")
	}
	return e.v
}

// bump increments the extension byte from the interrupt handler.
func (e *Extension) bump(isr ISR) {
	if !isr.held {
		panic("counter: extension written outside interrupt context")
	}
	e.v++
}
