package plant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gosone/pkg/calib"
	"github.com/itohio/gosone/pkg/config"
	"github.com/itohio/gosone/pkg/pot"
	"github.com/itohio/gosone/pkg/stage"
)

const tick = 40 * time.Millisecond

type display struct {
	samples [][2]uint32
	redraws int
}

func (d *display) ReportCalibrationSample(upper, lower uint32) {
	d.samples = append(d.samples, [2]uint32{upper, lower})
}
func (d *display) RedrawMainScreen() { d.redraws++ }

func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.Mock.Noise = 0
	return cfg
}

func newStage(t *testing.T, cfg *config.Config) (*stage.Stage, *Plant, *display) {
	t.Helper()
	p := New(cfg.Mock, cfg.Pots)
	d := &display{}
	s, err := stage.New(p.Hardware(d), cfg.StageOptions())
	require.NoError(t, err)
	p.OnOverflow(s.Overflow)
	require.NoError(t, s.Initialize())
	return s, p, d
}

func step(s *stage.Stage, p *Plant, n int) {
	for i := 0; i < n; i++ {
		p.Advance(tick)
		s.Update()
	}
}

func TestPlant_InitialFrequency(t *testing.T) {
	s, p, _ := newStage(t, quietConfig())

	assert.Equal(t, uint16(30), p.Wiper(stage.PWMPot))
	assert.Equal(t, uint16(67), p.Wiper(stage.CoarsePot))
	assert.Equal(t, uint16(127), p.Wiper(stage.FinePot))
	assert.False(t, p.On())

	step(s, p, 30)
	assert.InDelta(t, 28000, float64(s.Frequency()), 3, "counter estimate with output off")
}

func TestPlant_ClosedLoopTracksTarget(t *testing.T) {
	for _, target := range []uint32{26500, 28000, 29700} {
		s, p, _ := newStage(t, quietConfig())
		require.NoError(t, s.SetFrequency(target))
		s.SetOutput(true)
		require.True(t, p.On())

		step(s, p, 1500)

		st := s.Status()
		assert.InDelta(t, float64(target), float64(st.Frequency), 5, "target %d", target)
		assert.GreaterOrEqual(t, st.FineWiper, uint16(28), "target %d", target)
		assert.LessOrEqual(t, st.FineWiper, uint16(228), "target %d", target)
		assert.Equal(t, st.CoarseWiper, p.Wiper(stage.CoarsePot), "mirror matches device")
		assert.Equal(t, st.FineWiper, p.Wiper(stage.FinePot), "mirror matches device")
	}
}

func TestPlant_CalibrationMeasuresCoarseGain(t *testing.T) {
	s, p, d := newStage(t, quietConfig())
	require.NoError(t, s.SetPowerMode(stage.Calibrate))
	s.SetOutput(true)

	for i := 0; i < 200 && s.Enabled(); i++ {
		step(s, p, 1)
	}

	require.False(t, s.Enabled())
	require.Len(t, d.samples, calib.Samples+1)
	for i, smp := range d.samples {
		diff := int(smp[0]) - int(smp[1])
		assert.Greater(t, diff, 150, "pair %d", i)
		assert.Less(t, diff, 600, "pair %d", i)
	}
	assert.Equal(t, 1, d.redraws)
	assert.Equal(t, stage.ConstFrequency, s.Settings().PowerMode)
}

func TestPlant_CurrentPeaksAtResonance(t *testing.T) {
	cfg := quietConfig()
	var amps []uint16
	for _, target := range []uint32{26000, 28400, 31000} {
		s, p, _ := newStage(t, cfg)
		require.NoError(t, s.SetFrequency(target))
		s.SetOutput(true)
		step(s, p, 1500)
		amps = append(amps, s.Current())
		assert.Equal(t, uint32(s.Current())*stage.SupplyVolts, s.Power())
	}
	assert.Greater(t, amps[1], amps[0])
	assert.Greater(t, amps[1], amps[2])
}

func TestPlant_OverflowWhileMasked(t *testing.T) {
	p := New(quietConfig().Mock, quietConfig().Pots)
	calls := 0
	p.OnOverflow(func() { calls++ })

	p.MaskOverflow()
	p.Advance(10 * time.Millisecond) // wipers at zero: about 320 edges
	assert.True(t, p.OverflowPending())
	assert.Zero(t, calls)

	p.UnmaskOverflow()
	assert.Equal(t, 1, calls, "one pending flag, one delivery")
	assert.False(t, p.OverflowPending())

	p.Advance(20 * time.Millisecond)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestPlant_BusLatchesOnChipSelect(t *testing.T) {
	cfg := quietConfig()
	p := New(cfg.Mock, cfg.Pots)
	hw := p.Hardware(nil)

	ch, err := pot.New(hw.Bus, hw.FineSelect, cfg.Pots.Fine)
	require.NoError(t, err)
	require.NoError(t, ch.SetWiper(200))
	assert.Equal(t, uint16(200), p.Wiper(stage.FinePot))
	assert.Zero(t, p.Wiper(stage.CoarsePot))

	// Bytes clocked without a chip-select are ignored.
	require.NoError(t, hw.Bus.Tx([]byte{0x00, 0x10}, nil))
	assert.Equal(t, uint16(200), p.Wiper(stage.FinePot))

	p.SetBusError(errors.New("stuck clock"))
	assert.Error(t, ch.SetWiper(5))
	assert.Equal(t, uint16(200), p.Wiper(stage.FinePot))
}

func TestPlant_CoarseLatchClamps(t *testing.T) {
	cfg := quietConfig()
	p := New(cfg.Mock, cfg.Pots)
	hw := p.Hardware(nil)

	hw.CoarseSelect.Set(false)
	_, err := hw.Bus.Transfer(0x00)
	require.NoError(t, err)
	_, err = hw.Bus.Transfer(0xFF)
	require.NoError(t, err)
	hw.CoarseSelect.Set(true)

	assert.Equal(t, uint16(128), p.Wiper(stage.CoarsePot))
}
