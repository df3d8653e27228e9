// Package tuner keeps the oscillator on its target frequency by nudging the
// fine potentiometer one step per tick and carrying into the coarse
// potentiometer when the fine wiper drifts towards either end of its range.
package tuner

import (
	"errors"
	"fmt"
	"io"

	"github.com/itohio/gosone/pkg/pot"
)

// Guard thresholds on the fine wiper. Crossing one recentres the fine pot
// and moves the coarse pot one step in the same direction.
const (
	LowGuard  = 28
	HighGuard = 228
)

// ErrFineRange is returned by CheckFine for a fine pot too short for the
// guards.
var ErrFineRange = errors.New("fine pot range does not span the carry guards")

// CheckFine reports whether cfg can serve as the fine pot. Its highest wiper
// must lie above HighGuard, otherwise the upward carry never fires.
func CheckFine(cfg pot.Config) error {
	if top := cfg.MaxWiper(); top <= HighGuard {
		return fmt.Errorf("%w: %s: max wiper %d, must exceed %d", ErrFineRange, cfg.Name, top, HighGuard)
	}
	return nil
}

// Trace characters, one per adjustment.
const (
	TraceDown      = '-'
	TraceUp        = '+'
	TraceCarryDown = 'v'
	TraceCarryUp   = '^'
)

// Wiper is a write-only potentiometer whose last written value is mirrored.
// *pot.Channel satisfies it.
type Wiper interface {
	Wiper() uint16
	SetWiper(uint16) error
	Step(delta int) (uint16, error)
	Config() pot.Config
}

// Adjustment describes what one Step did. Fine is the relay step applied to
// the fine wiper and Coarse the carry applied to the coarse wiper; both are
// -1, 0 or +1.
type Adjustment struct {
	Fine   int
	Coarse int
}

// Changed reports whether any wiper was written.
func (a Adjustment) Changed() bool { return a.Fine != 0 || a.Coarse != 0 }

// Tuner is a relay controller over a fine/coarse potentiometer pair.
type Tuner struct {
	fine   Wiper
	coarse Wiper
	trace  io.Writer
}

// New creates a tuner over a fine and a coarse pot. The fine pot should pass
// CheckFine.
func New(fine, coarse Wiper) *Tuner {
	return &Tuner{fine: fine, coarse: coarse}
}

// SetTrace enables the adjustment trace. Pass nil to disable it.
func (t *Tuner) SetTrace(w io.Writer) {
	t.trace = w
}

// FineMid returns the recentre position of the fine wiper.
func (t *Tuner) FineMid() uint16 {
	return t.fine.Config().MaxWiper() / 2
}

// Step runs one control step. Bus and trace errors do not interrupt the
// step; all of them are returned joined.
func (t *Tuner) Step(measured, target uint32) (Adjustment, error) {
	var adj Adjustment
	var errs []error

	switch {
	case measured > target:
		adj.Fine = -1
		errs = append(errs, t.emit(TraceDown))
	case measured < target:
		adj.Fine = 1
		errs = append(errs, t.emit(TraceUp))
	default:
		return adj, nil
	}

	w, err := t.fine.Step(adj.Fine)
	errs = append(errs, err)

	switch {
	case w < LowGuard:
		adj.Coarse = -1
	case w > HighGuard:
		adj.Coarse = 1
	}
	if adj.Coarse != 0 {
		errs = append(errs, t.fine.SetWiper(t.FineMid()))
		_, err = t.coarse.Step(adj.Coarse)
		errs = append(errs, err)
		if adj.Coarse < 0 {
			errs = append(errs, t.emit(TraceCarryDown))
		} else {
			errs = append(errs, t.emit(TraceCarryUp))
		}
	}

	return adj, errors.Join(errs...)
}

func (t *Tuner) emit(c byte) error {
	if t.trace == nil {
		return nil
	}
	if _, err := t.trace.Write([]byte{c}); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	return nil
}
