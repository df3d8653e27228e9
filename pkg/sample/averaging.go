package sample

// NewAveragingConverter creates a converter that replaces each sample with
// the mean of the last windowSize samples. Timestamp and On come from the
// newest sample.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize)
			for s := range in {
				if len(buffer) == windowSize {
					copy(buffer, buffer[1:])
					buffer = buffer[:windowSize-1]
				}
				buffer = append(buffer, s)
				out <- average(buffer)
			}
		}()

		return out
	}
}

// average averages a non-empty slice of samples.
func average(samples []Sample) Sample {
	var sum Sample
	for _, s := range samples {
		sum.Frequency += s.Frequency
		sum.Current += s.Current
		sum.Power += s.Power
		sum.Duty += s.Duty
	}

	last := samples[len(samples)-1]
	n := float64(len(samples))
	return Sample{
		Timestamp: last.Timestamp,
		Frequency: sum.Frequency / n,
		Current:   sum.Current / n,
		Power:     sum.Power / n,
		Duty:      sum.Duty / n,
		On:        last.On,
	}
}
