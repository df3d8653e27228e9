// Package wire defines the line protocol the firmware prints and the host
// parses. Each line is comma separated and starts with a one letter tag:
//
//	S,<freq>,<current>,<power>,<pwm>,<pwmWiper>,<coarse>,<fine>,<on>,<timer>,<mode>
//	C,<upper>,<lower>,<diff>
//	R
//
// Any other line is operator text and is passed through as a message.
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/gosone/pkg/stage"
)

var ErrMalformed = errors.New("malformed line")

const (
	TagStatus      = 'S'
	TagCalibration = 'C'
	TagRedraw      = 'R'
)

const statusFields = 11

// Kind of a parsed line.
type Kind uint8

const (
	Message Kind = iota
	Status
	Calibration
	Redraw
)

// Event is one parsed line.
type Event struct {
	Kind   Kind
	Status stage.Current
	Mode   stage.PowerMode
	Upper  uint32
	Lower  uint32
	Diff   int64
	Text   string
}

// AppendStatus appends a status line without the line terminator.
func AppendStatus(dst []byte, c stage.Current, mode stage.PowerMode) []byte {
	dst = append(dst, TagStatus)
	for _, v := range [...]uint64{
		uint64(c.Frequency),
		uint64(c.Current),
		uint64(c.Power),
		uint64(c.PWM),
		uint64(c.PWMWiper),
		uint64(c.CoarseWiper),
		uint64(c.FineWiper),
		boolDigit(c.On),
		uint64(c.RunTimer),
	} {
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, v, 10)
	}
	dst = append(dst, ',')
	return append(dst, mode.Letter()...)
}

// AppendCalibration appends a calibration sample line.
func AppendCalibration(dst []byte, upper, lower uint32) []byte {
	dst = append(dst, TagCalibration, ',')
	dst = strconv.AppendUint(dst, uint64(upper), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(lower), 10)
	dst = append(dst, ',')
	return strconv.AppendInt(dst, int64(upper)-int64(lower), 10)
}

// AppendRedraw appends a redraw line.
func AppendRedraw(dst []byte) []byte {
	return append(dst, TagRedraw)
}

func boolDigit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Parse decodes one line. Lines that do not start with a known tag followed
// by a comma (or the bare redraw tag) become Message events.
func Parse(line string) (Event, error) {
	line = strings.TrimRight(line, "\r\n")

	if line == string(TagRedraw) {
		return Event{Kind: Redraw}, nil
	}
	if len(line) < 2 || line[1] != ',' {
		return Event{Kind: Message, Text: line}, nil
	}

	fields := strings.Split(line[2:], ",")
	switch line[0] {
	case TagStatus:
		return parseStatus(fields)
	case TagCalibration:
		return parseCalibration(fields)
	}
	return Event{Kind: Message, Text: line}, nil
}

func parseStatus(f []string) (Event, error) {
	if len(f) != statusFields-1 {
		return Event{}, fmt.Errorf("%w: status has %d fields, want %d", ErrMalformed, len(f), statusFields-1)
	}
	var v [9]uint64
	bits := [9]int{32, 16, 32, 16, 16, 16, 16, 1, 16}
	for i := range v {
		n, err := strconv.ParseUint(f[i], 10, bits[i])
		if err != nil {
			return Event{}, fmt.Errorf("%w: status field %d: %v", ErrMalformed, i+1, err)
		}
		v[i] = n
	}
	var mode stage.PowerMode
	if err := mode.UnmarshalText([]byte(f[9])); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Event{
		Kind: Status,
		Status: stage.Current{
			Frequency:   uint32(v[0]),
			Current:     uint16(v[1]),
			Power:       uint32(v[2]),
			PWM:         uint16(v[3]),
			PWMWiper:    uint16(v[4]),
			CoarseWiper: uint16(v[5]),
			FineWiper:   uint16(v[6]),
			On:          v[7] == 1,
			RunTimer:    uint16(v[8]),
		},
		Mode: mode,
	}, nil
}

func parseCalibration(f []string) (Event, error) {
	if len(f) != 3 {
		return Event{}, fmt.Errorf("%w: calibration has %d fields, want 3", ErrMalformed, len(f))
	}
	upper, err := strconv.ParseUint(f[0], 10, 32)
	if err != nil {
		return Event{}, fmt.Errorf("%w: upper: %v", ErrMalformed, err)
	}
	lower, err := strconv.ParseUint(f[1], 10, 32)
	if err != nil {
		return Event{}, fmt.Errorf("%w: lower: %v", ErrMalformed, err)
	}
	diff, err := strconv.ParseInt(f[2], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: diff: %v", ErrMalformed, err)
	}
	return Event{Kind: Calibration, Upper: uint32(upper), Lower: uint32(lower), Diff: diff}, nil
}
