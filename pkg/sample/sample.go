// Package sample turns device status lines into a time series for the trend
// display.
package sample

import (
	"log"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/itohio/gosone/pkg/command"
	"github.com/itohio/gosone/pkg/stage"
	"github.com/itohio/gosone/pkg/wire"
)

// Sample represents one status report in physical units.
type Sample struct {
	Timestamp time.Time
	Frequency float64 // Hz
	Current   float64 // A
	Power     float64 // W
	Duty      float64 // %
	On        bool
}

// Converter is a function type that converts an event channel to a Sample channel.
type Converter func(in <-chan wire.Event) <-chan Sample

// NewConverter creates a converter that keeps status events and timestamps
// them on arrival. Other events are dropped.
func NewConverter(bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan wire.Event) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for ev := range in {
				if ev.Kind != wire.Status {
					continue
				}

				select {
				case out <- FromStatus(time.Now(), ev.Status):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// FromStatus converts a status report taken at ts.
func FromStatus(ts time.Time, c stage.Current) Sample {
	return Sample{
		Timestamp: ts,
		Frequency: float64(command.Frequency(c.Frequency)) / float64(physic.Hertz),
		Current:   float64(command.Current(c.Current)) / float64(physic.Ampere),
		Power:     float64(command.Power(c.Power)) / float64(physic.Watt),
		Duty:      float64(c.PWM) / 10,
		On:        c.On,
	}
}
