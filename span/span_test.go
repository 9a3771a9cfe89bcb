package span

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReg(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DomainLo, DomainHi, 4)
	require.NoError(t, err)
	return r
}

func TestAddClampsAndOrders(t *testing.T) {
	r := newReg(t)
	a, err := r.Add("a", -10, 30, true)
	require.NoError(t, err)
	b, err := r.Add("b", 2500, 1990, true)
	require.NoError(t, err)

	lo, hi, err := r.Region(a)
	require.NoError(t, err)
	assert.Equal(t, 0., lo)
	assert.Equal(t, 30., hi)
	lo, hi, _ = r.Region(b)
	assert.Equal(t, 1990., lo)
	assert.Equal(t, 2000., hi)
	assert.Equal(t, []ID{a, b}, r.List())
}

func TestAddRejects(t *testing.T) {
	r := newReg(t)
	tests := []struct {
		name   string
		lo, hi float64
	}{
		{"empty", 5, 5},
		{"left of domain", -50, -10},
		{"right of domain", 2100, 2200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Add(tt.name, tt.lo, tt.hi, true)
			assert.True(t, errors.Is(err, ErrInvalidSpanInterval))
		})
	}
	assert.Equal(t, 0, r.Len())
}

func TestDuplicateName(t *testing.T) {
	r := newReg(t)
	_, err := r.Add("a", 0, 10, true)
	require.NoError(t, err)
	_, err = r.Add("a", 20, 30, true)
	assert.True(t, errors.Is(err, ErrDuplicateName))
}

func TestMoveKeepsPriorOnError(t *testing.T) {
	r := newReg(t)
	id, err := r.Add("a", 10, 20, true)
	require.NoError(t, err)
	require.NoError(t, r.Move(id, 100, 3000))
	lo, hi, _ := r.Region(id)
	assert.Equal(t, 100., lo)
	assert.Equal(t, 2000., hi)

	err = r.Move(id, 3000, 4000)
	assert.True(t, errors.Is(err, ErrInvalidSpanInterval))
	lo, hi, _ = r.Region(id)
	assert.Equal(t, 100., lo)
	assert.Equal(t, 2000., hi)

	fixed, err := r.Add("fixed", 0, 5, false)
	require.NoError(t, err)
	assert.True(t, errors.Is(r.Move(fixed, 1, 2), ErrImmovable))
}

func TestRemoveTearsDownHistory(t *testing.T) {
	r := newReg(t)
	id, err := r.Add("ch0", 0, 10, true)
	require.NoError(t, err)
	h, err := r.History(id)
	require.NoError(t, err)
	h.Append(1)
	h.Append(2)

	require.NoError(t, r.Remove(id))
	_, err = r.History(id)
	assert.True(t, errors.Is(err, ErrUnknownSpan))
	assert.True(t, errors.Is(r.Remove(id), ErrUnknownSpan))

	again, err := r.Add("ch0", 0, 10, true)
	require.NoError(t, err)
	assert.NotEqual(t, id, again)
	h, err = r.History(again)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())
}

func TestSetCapacity(t *testing.T) {
	r := newReg(t)
	id, _ := r.Add("a", 0, 10, true)
	h, _ := r.History(id)
	for i := 0; i < 4; i++ {
		h.Append(float64(i))
	}
	require.NoError(t, r.SetCapacity(2))
	assert.Equal(t, []float64{2, 3}, h.Values())
	id2, _ := r.Add("b", 0, 10, true)
	h2, _ := r.History(id2)
	assert.Equal(t, 2, h2.Cap())
}

func TestAddEvenlySpaced(t *testing.T) {
	r := newReg(t)
	_, err := r.Add("stale", 0, 10, true)
	require.NoError(t, err)
	ids, err := r.AddEvenlySpaced(3, DefaultWidth, DefaultPitch)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	spans := r.Spans()
	assert.Equal(t, "span_0", spans[0].Name)
	assert.Equal(t, 1., spans[0].Lo)
	assert.Equal(t, 41., spans[0].Hi)
	assert.Equal(t, 101., spans[2].Lo)
	_, ok := r.Lookup("stale")
	assert.False(t, ok)
}

func TestAddEvenlySpacedOverrun(t *testing.T) {
	r := newReg(t)
	ids, err := r.AddEvenlySpaced(40, DefaultWidth, DefaultPitch)
	require.NoError(t, err)
	require.Len(t, ids, 40)
	assert.Equal(t, 1951., r.Spans()[39].Lo)
	assert.Equal(t, 1991., r.Spans()[39].Hi)

	before := r.Spans()
	for _, n := range []int{41, 100, 1e9} {
		ids, err = r.AddEvenlySpaced(n, DefaultWidth, DefaultPitch)
		assert.True(t, errors.Is(err, ErrInvalidSpanInterval), "n=%d", n)
		assert.Empty(t, ids)
		assert.Equal(t, before, r.Spans(), "n=%d", n)
	}

	_, err = r.AddEvenlySpaced(1e9, DefaultWidth, 0)
	assert.True(t, errors.Is(err, ErrInvalidSpanInterval))

	shifted, err := NewRegistry(500, 1000, 4)
	require.NoError(t, err)
	_, err = shifted.AddEvenlySpaced(2, DefaultWidth, DefaultPitch)
	assert.True(t, errors.Is(err, ErrInvalidSpanInterval))
	assert.Zero(t, shifted.Len())
}

func TestParseID(t *testing.T) {
	id, err := ParseID("12")
	require.NoError(t, err)
	assert.Equal(t, ID(12), id)
	_, err = ParseID("x")
	assert.Error(t, err)
}
