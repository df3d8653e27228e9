package plant

import (
	"tinygo.org/x/drivers"

	"github.com/itohio/gosone/pkg/stage"
)

var _ drivers.SPI = (*Plant)(nil)

// Tx implements drivers.SPI. Bytes clocked while a pot is selected are
// latched when its chip-select goes high.
func (p *Plant) Tx(w, r []byte) error {
	if p.busErr != nil {
		return p.busErr
	}
	if p.selected >= 0 {
		p.frame = append(p.frame, w...)
	}
	for i := range r {
		r[i] = 0xFF
	}
	return nil
}

// Transfer implements drivers.SPI.
func (p *Plant) Transfer(b byte) (byte, error) {
	if err := p.Tx([]byte{b}, nil); err != nil {
		return 0, err
	}
	return 0xFF, nil
}

func (p *Plant) latch(i stage.Pot) {
	if len(p.frame) >= 2 && p.frame[0] == 0x00 {
		w := uint16(p.frame[1])
		if top := p.pots[i].MaxWiper(); w > top {
			w = top
		}
		p.wipers[i] = w
	}
	p.frame = p.frame[:0]
}

type selectPin struct {
	p   *Plant
	pot stage.Pot
}

func (s *selectPin) Set(high bool) {
	if !high {
		s.p.selected = int(s.pot)
		s.p.frame = s.p.frame[:0]
		return
	}
	if s.p.selected == int(s.pot) {
		s.p.latch(s.pot)
		s.p.selected = -1
	}
}

// outputPin drives the SG3525 shutdown input, which is active low.
type outputPin struct{ p *Plant }

func (o *outputPin) Set(high bool) { o.p.on = !high }
