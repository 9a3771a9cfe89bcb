/*Package span provides a registry of named, movable intervals over a profile.

Each span owns a history buffer that receives one value per tracking tick.
Removing a span tears its buffer down with it, and span IDs are never reused,
so a span added later under the same name always starts with an empty history.

*/
package span

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/nasa-jpl/peaktrack/history"
	"github.com/nasa-jpl/peaktrack/mathx"
)

var (
	// ErrInvalidSpanInterval is generated for intervals that are empty,
	// non-finite, or lie entirely outside the domain
	ErrInvalidSpanInterval = errors.New("invalid span interval")

	// ErrUnknownSpan is generated when an ID does not name a span in the registry
	ErrUnknownSpan = errors.New("no such span")

	// ErrDuplicateName is generated when adding a span with a name already in use
	ErrDuplicateName = errors.New("span name already in use")

	// ErrImmovable is generated when moving a span that was added immovable
	ErrImmovable = errors.New("span is not movable")
)

const (
	// DomainLo and DomainHi are the default bounds spans are clamped to
	DomainLo = 0
	DomainHi = 2000

	// DefaultWidth and DefaultPitch lay out automatically created spans
	DefaultWidth = 40
	DefaultPitch = 50
)

// ID identifies a span for the life of a registry
type ID uint64

// String implements fmt.Stringer
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID is the inverse of ID.String
func ParseID(s string) (ID, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("span id %q: %w", s, err)
	}
	return ID(u), nil
}

// Span is a named interval [Lo, Hi) of a profile
type Span struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
	Movable bool    `json:"movable"`
}

type entry struct {
	Span
	hist *history.Buffer
}

// Registry holds spans in insertion order.  It is not thread safe.
type Registry struct {
	lo, hi   float64
	capacity int
	next     ID
	order    []ID
	spans    map[ID]*entry
	names    map[string]ID
}

// NewRegistry returns an empty registry whose spans are clamped to [lo, hi]
// and whose history buffers hold capacity values
func NewRegistry(lo, hi float64, capacity int) (*Registry, error) {
	if !(hi > lo) || !mathx.AllFinite([]float64{lo, hi}) {
		return nil, fmt.Errorf("domain [%g, %g]: %w", lo, hi, ErrInvalidSpanInterval)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w, got %d", history.ErrInvalidCapacity, capacity)
	}
	return &Registry{
		lo:       lo,
		hi:       hi,
		capacity: capacity,
		next:     1,
		spans:    map[ID]*entry{},
		names:    map[string]ID{},
	}, nil
}

// Domain returns the bounds spans are clamped to
func (r *Registry) Domain() (lo, hi float64) {
	return r.lo, r.hi
}

// clamp orders and clamps an interval to the domain
func (r *Registry) clamp(lo, hi float64) (float64, float64, error) {
	if !mathx.AllFinite([]float64{lo, hi}) {
		return 0, 0, fmt.Errorf("[%g, %g]: %w", lo, hi, ErrInvalidSpanInterval)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	clo, chi := mathx.Clamp(lo, r.lo, r.hi), mathx.Clamp(hi, r.lo, r.hi)
	if !(chi > clo) {
		return 0, 0, fmt.Errorf("[%g, %g] within domain [%g, %g]: %w", lo, hi, r.lo, r.hi, ErrInvalidSpanInterval)
	}
	return clo, chi, nil
}

// Add inserts a span.  The interval is clamped to the domain.  An empty name
// is replaced by "span_<id>"
func (r *Registry) Add(name string, lo, hi float64, movable bool) (ID, error) {
	lo, hi, err := r.clamp(lo, hi)
	if err != nil {
		return 0, err
	}
	id := r.next
	if name == "" {
		name = "span_" + id.String()
	}
	if _, exists := r.names[name]; exists {
		return 0, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	buf, err := history.New(r.capacity)
	if err != nil {
		return 0, err
	}
	r.next++
	r.spans[id] = &entry{Span: Span{ID: id, Name: name, Lo: lo, Hi: hi, Movable: movable}, hist: buf}
	r.names[name] = id
	r.order = append(r.order, id)
	return id, nil
}

// Remove deletes a span and its history
func (r *Registry) Remove(id ID) error {
	e, ok := r.spans[id]
	if !ok {
		return fmt.Errorf("%d: %w", id, ErrUnknownSpan)
	}
	delete(r.spans, id)
	delete(r.names, e.Name)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Move sets a new interval for a span, clamped to the domain.  On error the
// span keeps its previous interval
func (r *Registry) Move(id ID, lo, hi float64) error {
	e, ok := r.spans[id]
	if !ok {
		return fmt.Errorf("%d: %w", id, ErrUnknownSpan)
	}
	if !e.Movable {
		return fmt.Errorf("%q: %w", e.Name, ErrImmovable)
	}
	lo, hi, err := r.clamp(lo, hi)
	if err != nil {
		return err
	}
	e.Lo, e.Hi = lo, hi
	return nil
}

// Region returns the interval of a span
func (r *Registry) Region(id ID) (lo, hi float64, err error) {
	e, ok := r.spans[id]
	if !ok {
		return math.NaN(), math.NaN(), fmt.Errorf("%d: %w", id, ErrUnknownSpan)
	}
	return e.Lo, e.Hi, nil
}

// Get returns a copy of a span
func (r *Registry) Get(id ID) (Span, error) {
	e, ok := r.spans[id]
	if !ok {
		return Span{}, fmt.Errorf("%d: %w", id, ErrUnknownSpan)
	}
	return e.Span, nil
}

// Lookup finds a span by name
func (r *Registry) Lookup(name string) (ID, bool) {
	id, ok := r.names[name]
	return id, ok
}

// List returns the IDs in insertion order
func (r *Registry) List() []ID {
	return append([]ID(nil), r.order...)
}

// Spans returns copies of every span in insertion order
func (r *Registry) Spans() []Span {
	out := make([]Span, len(r.order))
	for i, id := range r.order {
		out[i] = r.spans[id].Span
	}
	return out
}

// Len returns the number of spans
func (r *Registry) Len() int {
	return len(r.order)
}

// History returns the buffer owned by a span.  The buffer is only valid until
// the span is removed
func (r *Registry) History(id ID) (*history.Buffer, error) {
	e, ok := r.spans[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, ErrUnknownSpan)
	}
	return e.hist, nil
}

// Capacity returns the capacity given to history buffers
func (r *Registry) Capacity() int {
	return r.capacity
}

// SetCapacity resizes every history buffer, evicting immediately if shrinking
func (r *Registry) SetCapacity(n int) error {
	if n < 1 {
		return fmt.Errorf("%w, got %d", history.ErrInvalidCapacity, n)
	}
	for _, id := range r.order {
		if err := r.spans[id].hist.SetCapacity(n); err != nil {
			return err
		}
	}
	r.capacity = n
	return nil
}

// Clear removes every span
func (r *Registry) Clear() {
	r.order = nil
	r.spans = map[ID]*entry{}
	r.names = map[string]ID{}
}

// AddEvenlySpaced clears the registry and adds n movable spans named span_i,
// the i-th covering [i*pitch+1, i*pitch+1+width].  Every span must overlap the
// domain; if one would not, the registry is left as it was
func (r *Registry) AddEvenlySpaced(n int, width, pitch float64) ([]ID, error) {
	if n < 0 || !(width > 0) || pitch < 0 || n > 1 && !(pitch > 0) {
		return nil, fmt.Errorf("%d spans of width %g at pitch %g: %w", n, width, pitch, ErrInvalidSpanInterval)
	}
	if n > 0 {
		first, last := 1.0, float64(n-1)*pitch+1
		if !(first+width > r.lo) || !(last < r.hi) {
			return nil, fmt.Errorf("%d spans at pitch %g overrun domain [%g, %g]: %w", n, pitch, r.lo, r.hi, ErrInvalidSpanInterval)
		}
	}
	r.Clear()
	ids := make([]ID, 0, n)
	for i := 0; i < n; i++ {
		lo := float64(i)*pitch + 1
		id, err := r.Add(fmt.Sprintf("span_%d", i), lo, lo+width, true)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
