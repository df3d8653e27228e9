package input

// Debouncer accepts a new level only after it has been sampled Stable times
// in a row.
type Debouncer struct {
	Stable int

	level bool
	count int
}

// Sample feeds one raw reading and returns the debounced level and whether it
// changed on this sample.
func (d *Debouncer) Sample(raw bool) (level, changed bool) {
	if raw == d.level {
		d.count = 0
		return d.level, false
	}
	d.count++
	if d.count >= max(d.Stable, 1) {
		d.level = raw
		d.count = 0
		return d.level, true
	}
	return d.level, false
}

// Level returns the debounced level.
func (d *Debouncer) Level() bool { return d.level }
