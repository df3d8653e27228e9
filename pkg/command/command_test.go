package command

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gosone/pkg/input"
	"github.com/itohio/gosone/pkg/run"
	"github.com/itohio/gosone/pkg/stage"
)

type wiperCall struct {
	pot   stage.Pot
	value int
	step  bool
}

// fakeStage enforces the same bounds as stage.Stage.
type fakeStage struct {
	on     bool
	set    stage.SetPoint
	wipers []wiperCall
}

func newFake() *fakeStage { return &fakeStage{set: stage.DefaultSetPoint()} }

func (f *fakeStage) SetOutput(on bool) { f.on = on }
func (f *fakeStage) Enabled() bool     { return f.on }

func (f *fakeStage) SetFrequency(hz uint32) error {
	if hz < stage.MinFrequency || hz > stage.MaxFrequency {
		return stage.ErrOutOfRange
	}
	f.set.Frequency = hz
	return nil
}

func (f *fakeStage) SetPower(p uint16) error {
	if p > stage.MaxPower {
		return stage.ErrOutOfRange
	}
	f.set.Power = p
	return nil
}

func (f *fakeStage) SetRunMode(m run.Mode) error { f.set.RunMode = m; return nil }
func (f *fakeStage) SetRunTimer(t uint16)        { f.set.RunTimer = t }
func (f *fakeStage) SetPowerMode(m stage.PowerMode) error {
	f.set.PowerMode = m
	return nil
}

func (f *fakeStage) SetInput(n int, cfg input.Config) error {
	f.set.Inputs[n-1] = cfg
	return nil
}

func (f *fakeStage) SetWiper(p stage.Pot, w uint16) error {
	f.wipers = append(f.wipers, wiperCall{pot: p, value: int(w)})
	return nil
}

func (f *fakeStage) StepWiper(p stage.Pot, delta int) error {
	f.wipers = append(f.wipers, wiperCall{pot: p, value: delta, step: true})
	return nil
}

func (f *fakeStage) MaxWiper(p stage.Pot) uint16 {
	if p == stage.CoarsePot {
		return 128
	}
	return 255
}

func (f *fakeStage) Status() stage.Current {
	return stage.Current{Frequency: 28012, Current: 35, Power: 420, PWM: 455, PWMWiper: 30, CoarseWiper: 67, FineWiper: 127, On: f.on}
}
func (f *fakeStage) Settings() stage.SetPoint { return f.set }

func TestExecute_OnOff(t *testing.T) {
	f := newFake()
	var out bytes.Buffer
	p := New(f, &out)

	require.NoError(t, p.Execute("ON\r\n"))
	assert.True(t, f.on)
	require.NoError(t, p.Execute("of"))
	assert.False(t, f.on)

	f.on = true
	require.NoError(t, p.Execute(Esc))
	assert.False(t, f.on)
	assert.Equal(t, "Transducer ON\r\nTransducer OFF\r\nTransducer OFF\r\n", out.String())
}

func TestExecute_SetPoints(t *testing.T) {
	f := newFake()
	p := New(f, nil)

	require.NoError(t, p.Execute("FR 31000"))
	require.NoError(t, p.Execute("PO 250"))
	require.NoError(t, p.Execute("RM T"))
	require.NoError(t, p.Execute("RT 750"))
	require.NoError(t, p.Execute("PM C"))
	require.NoError(t, p.Execute("IN 2 E P"))
	require.NoError(t, p.Execute("in 1 x"))

	assert.Equal(t, uint32(31000), f.set.Frequency)
	assert.Equal(t, uint16(250), f.set.Power)
	assert.Equal(t, run.Timed, f.set.RunMode)
	assert.Equal(t, uint16(750), f.set.RunTimer)
	assert.Equal(t, stage.Calibrate, f.set.PowerMode)
	assert.Equal(t, input.Config{Action: input.EmergencyStop, Print: true}, f.set.Inputs[1])
	assert.Equal(t, input.Config{Action: input.DirectControl}, f.set.Inputs[0])
}

func TestExecute_RejectsAndKeepsState(t *testing.T) {
	tests := []struct {
		line string
		msg  string
	}{
		{line: "FR 19999", msg: "Bad or out of range frequency (19999), must be 20000 to 35000\r\n"},
		{line: "FR 35001", msg: "Bad or out of range frequency (35001), must be 20000 to 35000\r\n"},
		{line: "FR abc", msg: "Bad or out of range frequency (abc), must be 20000 to 35000\r\n"},
		{line: "FR", msg: "Bad or out of range frequency (), must be 20000 to 35000\r\n"},
		{line: "PO 1001", msg: "Bad or out of range power (1001), must be 0 to 1000\r\n"},
		{line: "PO -1", msg: "Bad or out of range power (-1), must be 0 to 1000\r\n"},
		{line: "FCW 129", msg: "Bad or out of range wiper (129), must be 0 to 128\r\n"},
		{line: "FFW 256", msg: "Bad or out of range wiper (256), must be 0 to 255\r\n"},
		{line: "RT 70000", msg: "Bad or out of range run timer (70000), must be 0 to 65535\r\n"},
		{line: "IN 3 U", msg: "Bad or out of range input (3), must be 1 to 2\r\n"},
		{line: "IN 1 Z", msg: "Bad input action (Z), must be U, X, P or E\r\n"},
		{line: "RM Q", msg: "Bad run mode (Q), must be C or T\r\n"},
		{line: "PM Q", msg: "Bad power mode (Q), must be F, C or W\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := newFake()
			var out bytes.Buffer
			p := New(f, &out)

			err := p.Execute(tt.line)
			require.Error(t, err)
			assert.Equal(t, tt.msg+"Type '?' for help\r\n", out.String())
			assert.Equal(t, stage.DefaultSetPoint(), f.set)
			assert.Empty(t, f.wipers)
		})
	}
}

func TestExecute_OutOfRangeWrapsStageError(t *testing.T) {
	p := New(newFake(), nil)
	assert.ErrorIs(t, p.Execute("FR 40000"), stage.ErrOutOfRange)
	assert.ErrorIs(t, p.Execute("FR x"), ErrBadArgument)
}

func TestExecute_Wipers(t *testing.T) {
	f := newFake()
	p := New(f, nil)

	for _, line := range []string{"U", "D", "W", "N", "+", "-", "FCW 70", "FFW 200", "PW 40"} {
		require.NoError(t, p.Execute(line), line)
	}
	assert.Equal(t, []wiperCall{
		{pot: stage.CoarsePot, value: 1, step: true},
		{pot: stage.CoarsePot, value: -1, step: true},
		{pot: stage.PWMPot, value: 1, step: true},
		{pot: stage.PWMPot, value: -1, step: true},
		{pot: stage.FinePot, value: 1, step: true},
		{pot: stage.FinePot, value: -1, step: true},
		{pot: stage.CoarsePot, value: 70},
		{pot: stage.FinePot, value: 200},
		{pot: stage.PWMPot, value: 40},
	}, f.wipers)
}

func TestExecute_Unknown(t *testing.T) {
	var out bytes.Buffer
	p := New(newFake(), &out)

	assert.ErrorIs(t, p.Execute("XYZ 1"), ErrUnknownCommand)
	assert.Contains(t, out.String(), "Unknown command (XYZ)")
	assert.NoError(t, p.Execute("   "))
}

func TestExecute_HelpAndStatus(t *testing.T) {
	f := newFake()
	var out bytes.Buffer
	p := New(f, &out)

	require.NoError(t, p.Execute("?"))
	assert.Contains(t, out.String(), "FFW n")

	out.Reset()
	f.on = true
	require.NoError(t, p.Execute("st"))
	s := out.String()
	assert.Contains(t, s, "ON")
	assert.Contains(t, s, "kHz")
	assert.Contains(t, s, "PWM 45.5%")
	assert.Contains(t, s, "W 30/67/127")
	assert.Contains(t, s, "frequency")
}
