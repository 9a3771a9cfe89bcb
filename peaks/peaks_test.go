package peaks

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func ExampleSegment() {
	p := []float64{0, 0, 0.5, 1, 0.5, 0, 0, 0.8, 0}
	for _, pk := range Segment(p, 0.4) {
		fmt.Println(pk.Center, pk.Amplitude, pk.InvHalfWidth)
	}
	// Output:
	// 3 1 1
	// 7 0.8 1
}

func TestRuns(t *testing.T) {
	tests := []struct {
		name string
		p    []float64
		t    float64
		want []Run
	}{
		{"none", []float64{0, 0.1, 0.2}, 0.5, nil},
		{"all", []float64{1, 1, 1}, 0.5, []Run{{0, 2}}},
		{"edges", []float64{1, 0, 0, 1}, 0.5, []Run{{0, 0}, {3, 3}}},
		{"equal counts", []float64{0.5, 0.4, 0.5}, 0.5, []Run{{0, 0}, {2, 2}}},
		{"empty", nil, 0.5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Runs(tt.p, tt.t)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Runs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTwoBumps(t *testing.T) {
	p := make([]float64, 100)
	for j := range p {
		p[j] = math.Exp(-0.02*sq(float64(j)-30)) + 0.6*math.Exp(-0.02*sq(float64(j)-70))
	}
	ps := Segment(p, 0.3)
	assert.Len(t, ps, 2)
	assert.InDelta(t, 30, ps[0].Center, 0.5)
	assert.InDelta(t, 70, ps[1].Center, 0.5)
	assert.InDelta(t, 1, ps[0].Amplitude, 1e-3)
	assert.InDelta(t, 0.6, ps[1].Amplitude, 1e-3)
	assert.Greater(t, ps[0].InvHalfWidth, 0.)
}

func TestSingleSampleRun(t *testing.T) {
	ps := Segment([]float64{0, 0, 2, 0}, 1)
	assert.Equal(t, []Peak{{Center: 2, Amplitude: 2, InvHalfWidth: FallbackInvHalfWidth}}, ps)
}

func TestRelativeHeights(t *testing.T) {
	m := RelativeHeights([]Peak{{Amplitude: 2}, {Amplitude: 1}, {Amplitude: 0}})
	assert.Equal(t, 1., m[0][0])
	assert.Equal(t, 2., m[0][1])
	assert.Equal(t, 0.5, m[1][0])
	assert.Equal(t, 0., m[2][0])
	for i := range m {
		assert.True(t, math.IsNaN(m[i][2]))
	}
}

func sq(x float64) float64 { return x * x }
