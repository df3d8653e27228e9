package sample

// Downsample reduces samples to at most maxPoints by decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// The last sample is always kept so the trace ends at the latest report.
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if len(samples) <= maxPoints || maxPoints < 2 {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	step := float64(len(samples)-1) / float64(maxPoints-1)
	for i := range maxPoints {
		dst = append(dst, samples[int(float64(i)*step+0.5)])
	}

	return dst
}
