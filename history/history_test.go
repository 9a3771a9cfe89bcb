package history

import (
	"bytes"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, n int) *Buffer {
	t.Helper()
	b, err := New(n)
	require.NoError(t, err)
	return b
}

func ExampleWriteText() {
	WriteText(os.Stdout, [][]float64{{1, 2, 3}, {0.5, 4}})
	// Output:
	// 2.000000000000000000e+00 3.000000000000000000e+00
	// 5.000000000000000000e-01 4.000000000000000000e+00
}

func TestNewRejectsZero(t *testing.T) {
	_, err := New(0)
	assert.True(t, errors.Is(err, ErrInvalidCapacity))
}

func TestEvictionLaw(t *testing.T) {
	// after k appends to a buffer of capacity c, it holds the last min(k, c)
	for _, c := range []int{1, 3, 7} {
		for k := 0; k < 20; k++ {
			b := mustNew(t, c)
			for i := 0; i < k; i++ {
				b.Append(float64(i))
			}
			n := k
			if n > c {
				n = c
			}
			want := make([]float64, n)
			for i := range want {
				want[i] = float64(k - n + i)
			}
			if diff := cmp.Diff(want, b.Values()); diff != "" {
				t.Errorf("cap %d after %d appends (-want +got):\n%s", c, k, diff)
			}
			require.NoError(t, b.Check())
		}
	}
}

func TestShrinkEvictsImmediately(t *testing.T) {
	b := mustNew(t, 5)
	for i := 1; i <= 5; i++ {
		b.Append(float64(i))
	}
	require.NoError(t, b.SetCapacity(2))
	assert.Equal(t, []float64{4, 5}, b.Values())
	assert.Equal(t, 2, b.Len())
	b.Append(6)
	assert.Equal(t, []float64{5, 6}, b.Values())
}

func TestGrowKeepsValues(t *testing.T) {
	b := mustNew(t, 2)
	b.Append(1)
	b.Append(2)
	b.Append(3)
	require.NoError(t, b.SetCapacity(4))
	b.Append(4)
	assert.Equal(t, []float64{2, 3, 4}, b.Values())
	assert.Equal(t, 4, b.Cap())
	assert.True(t, errors.Is(b.SetCapacity(0), ErrInvalidCapacity))
}

func TestLastAndReset(t *testing.T) {
	b := mustNew(t, 2)
	_, ok := b.Last()
	assert.False(t, ok)
	b.Append(1)
	b.Append(2)
	b.Append(3)
	v, ok := b.Last()
	assert.True(t, ok)
	assert.Equal(t, 3., v)
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 2, b.Cap())
}

func TestReducers(t *testing.T) {
	s := []float64{1, 4, 2}
	r, err := ParseReducer("")
	require.NoError(t, err)
	assert.Equal(t, 4., r(s))
	r, err = ParseReducer("SUM")
	require.NoError(t, err)
	assert.Equal(t, 7., r(s))
	assert.Equal(t, 0., Max(nil))
	_, err = ParseReducer("median")
	assert.Error(t, err)
}

func TestTruncateKeepsMostRecent(t *testing.T) {
	in := [][]float64{{1, 2, 3, 4}, {9, 8}}
	got := Truncate(in)
	assert.Equal(t, [][]float64{{3, 4}, {9, 8}}, got)
	assert.Equal(t, []float64{1, 2, 3, 4}, in[0])
}

func TestTextRoundTrip(t *testing.T) {
	in := [][]float64{{1.0 / 3, -2e-300, 12345.678}, {math.Pi, 0, 1e300}}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteText(buf, in))
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
	out, err := ReadText(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTextNaN(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteText(buf, [][]float64{{math.NaN(), math.Inf(1)}}))
	assert.Equal(t, "nan inf\n", buf.String())
	out, err := ReadText(buf)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[0][0]))
	assert.True(t, math.IsInf(out[0][1], 1))
}

func TestAppendAmplitudes(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, AppendAmplitudes(buf, " ", []float64{1, 0.25}))
	require.NoError(t, AppendAmplitudes(buf, " ", nil))
	assert.Equal(t, "\n 1.0 0.25\n", buf.String())

	buf.Reset()
	require.NoError(t, AppendAmplitudes(buf, ",", []float64{123456789, 1e-5, 2e16, -3, math.NaN()}))
	assert.Equal(t, "\n,123456789.0,1e-05,2e+16,-3.0,nan", buf.String())
}
