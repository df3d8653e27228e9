// Package calib measures the frequency gain of the coarse potentiometer with
// the power stage running.
//
// The session is a small state machine. Next computes one transition and the
// side effects it requires without touching hardware; Controller executes the
// effects through an Actions implementation once per tick.
package calib

import "fmt"

// Calibration constants.
const (
	Target        = 28000 // Hz
	Tolerance     = 10    // Hz, accepted distance from Target before sampling
	Samples       = 10    // initial sample down-counter; Samples+1 pairs are taken
	StartPWMWiper = 30
)

// State of a calibration session.
type State uint8

const (
	WaitStart State = iota
	Wait28k
	UpperFreq
	LowerFreq
	EndCal
)

var stateNames = [...]string{
	WaitStart: "wait-start",
	Wait28k:   "wait-28k",
	UpperFreq: "upper-freq",
	LowerFreq: "lower-freq",
	EndCal:    "end-cal",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Session is the calibration progress carried between ticks.
type Session struct {
	State     State
	Remaining uint8  // samples left after the current pair
	Upper     uint32 // last upper sample
	Lower     uint32 // last lower sample
}

// EffectKind enumerates the side effects a transition can request.
type EffectKind uint8

const (
	SetPWMWiper EffectKind = iota + 1
	SetTarget
	Tune
	StepCoarse
	Report
	Disable
	RestoreMode
	Redraw
)

// Effect is one requested side effect. Value carries the wiper position,
// target frequency or coarse step depending on Kind; Upper and Lower are set
// for Report.
type Effect struct {
	Kind         EffectKind
	Value        int
	Upper, Lower uint32
}

// Next performs one transition. enabled is the output state and measured the
// frequency measured this tick. more reports that the following state must be
// processed within the same tick.
func Next(s Session, enabled bool, measured uint32) (next Session, effects []Effect, more bool) {
	if !enabled {
		return Session{State: WaitStart}, nil, false
	}

	switch s.State {
	case WaitStart:
		s.State = Wait28k
		return s, []Effect{
			{Kind: SetPWMWiper, Value: StartPWMWiper},
			{Kind: SetTarget, Value: Target},
			{Kind: Tune},
		}, false

	case Wait28k:
		if measured < Target-Tolerance || measured > Target+Tolerance {
			return s, []Effect{{Kind: Tune}}, false
		}
		s.State = UpperFreq
		s.Remaining = Samples
		return s, nil, true

	case UpperFreq:
		// The lower sample is taken on the next tick, after the coarse step
		// has reached the oscillator.
		s.Upper = measured
		s.State = LowerFreq
		return s, []Effect{{Kind: StepCoarse, Value: -1}}, false

	case LowerFreq:
		s.Lower = measured
		effects = []Effect{
			{Kind: StepCoarse, Value: -1},
			{Kind: Report, Upper: s.Upper, Lower: s.Lower},
		}
		if s.Remaining > 0 {
			s.Remaining--
			s.State = UpperFreq
			return s, effects, false
		}
		s.State = EndCal
		return s, effects, true

	case EndCal:
		return Session{State: WaitStart}, []Effect{
			{Kind: Disable},
			{Kind: RestoreMode},
			{Kind: Redraw},
		}, false
	}

	return Session{State: WaitStart}, nil, false
}

// Advance runs Next until the session settles for this tick and returns the
// accumulated effects in order.
func Advance(s Session, enabled bool, measured uint32) (Session, []Effect) {
	var all []Effect
	for {
		var effects []Effect
		var more bool
		s, effects, more = Next(s, enabled, measured)
		all = append(all, effects...)
		if !more {
			return s, all
		}
	}
}
