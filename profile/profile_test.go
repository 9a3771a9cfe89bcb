package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/peaktrack/camera"
)

func frameOf(width int, rows ...[]float64) camera.Frame {
	f := camera.NewFrame(width, len(rows))
	for i, r := range rows {
		copy(f.Row(i), r)
	}
	return f
}

func TestExtractColumnMeans(t *testing.T) {
	f := frameOf(3, []float64{1, 2, 3}, []float64{3, 4, 5})
	p, err := Extract(f, Options{})
	require.NoError(t, err)
	assert.Equal(t, Profile{2, 3, 4}, p)
}

func TestExtractRowMeans(t *testing.T) {
	f := frameOf(2, []float64{1, 3}, []float64{5, 7})
	p, err := Extract(f, Options{Axis: Rows})
	require.NoError(t, err)
	assert.Equal(t, Profile{2, 6}, p)
}

func TestExtractBackgroundAndClamp(t *testing.T) {
	f := frameOf(4, []float64{0, 0, 8, 0})
	p, err := Extract(f, Options{SubtractBackground: true})
	require.NoError(t, err)
	// mean is 2, giving -2 -2 6 -2, then shifted up by 2
	assert.Equal(t, Profile{0, 0, 8, 0}, p)
	assert.GreaterOrEqual(t, p[0], 0.)
}

func TestExtractNormalize(t *testing.T) {
	f := frameOf(3, []float64{1, 4, 2})
	p, err := Extract(f, Options{Normalize: true})
	require.NoError(t, err)
	assert.Equal(t, Profile{0.25, 1, 0.5}, p)
}

func TestExtractAllZeroIsSoft(t *testing.T) {
	f := camera.NewFrame(5, 3)
	p, err := Extract(f, Options{Normalize: true, SubtractBackground: true})
	assert.True(t, errors.Is(err, ErrEmptyProfile))
	require.Len(t, p, 5)
	for _, v := range p {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.Equal(t, 0., v)
	}
}

func TestExtractIdempotent(t *testing.T) {
	f := frameOf(4, []float64{1, 9, 3, 2}, []float64{2, 7, 1, 0})
	opts := Options{SubtractBackground: true, Normalize: true}
	a, err := Extract(f, opts)
	require.NoError(t, err)
	b, err := Extract(f, opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractBadFrame(t *testing.T) {
	_, err := Extract(camera.Frame{Width: 3, Height: 1}, Options{})
	assert.Equal(t, ErrEmptyFrame, err)
}

func TestExtractSmoothKeepsPeak(t *testing.T) {
	row := make([]float64, 41)
	row[20] = 1000
	f := frameOf(41, row, row, row)
	p, err := Extract(f, Options{Smooth: 2})
	require.NoError(t, err)
	imax := 0
	for i := range p {
		if p[i] > p[imax] {
			imax = i
		}
	}
	assert.Equal(t, 20, imax)
	assert.Less(t, p[20], 1000.)
	assert.Greater(t, p[19], 0.)
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("Rows")
	require.NoError(t, err)
	assert.Equal(t, Rows, a)
	_, err = ParseAxis("diagonal")
	assert.Error(t, err)
}
