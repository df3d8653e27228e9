package input

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwitch struct {
	on    bool
	calls []bool
}

func (s *fakeSwitch) SetOutput(on bool) { s.on = on; s.calls = append(s.calls, on) }
func (s *fakeSwitch) Enabled() bool     { return s.on }

type sample struct{ pressed, changed bool }

// press and release sequence with a repeated sample in between.
var pressRelease = []sample{{true, true}, {true, false}, {false, true}, {false, false}}

func TestMapper_Actions(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		startOn bool
		calls   []bool
		endOn   bool
	}{
		{name: "unused", action: Unused, calls: nil},
		{name: "direct", action: DirectControl, calls: []bool{true, false}},
		{name: "toggle from off", action: ToggleOnPress, calls: []bool{true}, endOn: true},
		{name: "toggle from on", action: ToggleOnPress, startOn: true, calls: []bool{false}},
		{name: "estop when on", action: EmergencyStop, startOn: true, calls: []bool{false}},
		{name: "estop never enables", action: EmergencyStop, calls: []bool{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &fakeSwitch{on: tt.startOn}
			m := NewMapper(sw, nil)
			require.NoError(t, m.Configure(1, Config{Action: tt.action}))

			for _, s := range pressRelease {
				m.Apply(1, s.pressed, s.changed)
			}
			assert.Equal(t, tt.calls, sw.calls)
			assert.Equal(t, tt.endOn, sw.on)
		})
	}
}

func TestMapper_InputsAreIndependent(t *testing.T) {
	sw := &fakeSwitch{}
	var out bytes.Buffer
	m := NewMapper(sw, &out)
	require.NoError(t, m.Configure(1, Config{Action: ToggleOnPress}))
	require.NoError(t, m.Configure(2, Config{Action: EmergencyStop, Print: true}))

	m.Apply(1, true, true)
	assert.True(t, sw.on)
	assert.Empty(t, out.String(), "input 1 does not print")

	m.Apply(2, true, true)
	assert.False(t, sw.on)
	assert.Equal(t, "Input2 ON\r\n", out.String())

	m.Apply(2, false, true)
	assert.Equal(t, "Input2 ON\r\nInput2 OFF\r\n", out.String())
}

func TestMapper_ConfigureRange(t *testing.T) {
	m := NewMapper(&fakeSwitch{}, nil)
	assert.Error(t, m.Configure(0, Config{}))
	assert.Error(t, m.Configure(3, Config{}))
	assert.Equal(t, Config{}, m.Config(5))

	m.Apply(3, true, true) // ignored
}

func TestAction_Text(t *testing.T) {
	for _, tt := range []struct {
		text string
		want Action
	}{
		{"u", Unused}, {"X", DirectControl}, {"toggle", ToggleOnPress}, {"E", EmergencyStop}, {"ESTOP", EmergencyStop},
	} {
		var a Action
		require.NoError(t, a.UnmarshalText([]byte(tt.text)), tt.text)
		assert.Equal(t, tt.want, a, tt.text)
	}

	var a Action
	assert.Error(t, a.UnmarshalText([]byte("Z")))

	b, err := ToggleOnPress.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "toggle", string(b))
	assert.Equal(t, "P", ToggleOnPress.Letter())
}

func TestDebouncer(t *testing.T) {
	d := Debouncer{Stable: 3}

	raw := []bool{true, false, true, true, true, true, false, false, false}
	var changes []int
	for i, r := range raw {
		_, changed := d.Sample(r)
		if changed {
			changes = append(changes, i)
		}
	}
	assert.Equal(t, []int{4, 8}, changes)
	assert.False(t, d.Level())
}
