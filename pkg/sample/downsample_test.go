package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int) []Sample {
	now := time.Now()
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: now.Add(time.Duration(i) * 200 * time.Millisecond),
			Frequency: 28000 + float64(i),
		}
	}
	return samples
}

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := series(3)

	// Test with nil dst
	result := Downsample(nil, samples, 10)
	assert.Equal(t, samples, result)

	// Test with sufficient capacity dst
	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	assert.Equal(t, samples, result)
	// Should reuse dst
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_WithDownsampling(t *testing.T) {
	samples := series(100)

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)
	require.Len(t, result, 10)

	assert.Equal(t, samples[0], result[0])
	assert.Equal(t, samples[99], result[9], "the newest sample is kept")
	for i := 1; i < len(result); i++ {
		assert.True(t, result[i].Timestamp.After(result[i-1].Timestamp), "point %d", i)
	}
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_DestinationReuse(t *testing.T) {
	dst := make([]Sample, 0, 10)

	first := Downsample(dst, series(2), 10)
	require.Len(t, first, 2)

	second := Downsample(first, series(3), 10)
	require.Len(t, second, 3)
	assert.Equal(t, cap(dst), cap(second))
}

func TestDownsample_SmallDestination(t *testing.T) {
	dst := make([]Sample, 0, 2)
	result := Downsample(dst, series(50), 5)
	require.Len(t, result, 5)
	assert.GreaterOrEqual(t, cap(result), 5)
}

func TestDownsample_Empty(t *testing.T) {
	assert.Empty(t, Downsample(nil, nil, 10))
}
