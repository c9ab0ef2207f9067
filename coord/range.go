// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package coord provides immutable integer ranges and the coordinate
// systems used to describe positions in sequences and files.
//
// A Range is always held in zero-based, inclusive coordinates. Other
// coordinate systems are transforms applied when a Range is constructed
// or when its bounds are read.
package coord

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNegativeLength = errors.New("coord: negative range length")
	ErrOverflow       = errors.New("coord: range length overflows")
)

// System is a coordinate system.
type System int

const (
	// ZeroBased coordinates start at 0 and have an inclusive end.
	ZeroBased System = iota
	// ResidueBased coordinates start at 1 and have an inclusive end.
	ResidueBased
	// SpaceBased coordinates count the boundaries between elements,
	// starting at 0, so the end is exclusive.
	SpaceBased
)

// beginShift and endShift are the additive offsets from zero-based
// coordinates to the local coordinates of each System.
var (
	beginShift = [...]int64{ZeroBased: 0, ResidueBased: 1, SpaceBased: 0}
	endShift   = [...]int64{ZeroBased: 0, ResidueBased: 1, SpaceBased: 1}
	systemAbbr = [...]string{ZeroBased: "0B", ResidueBased: "RB", SpaceBased: "SB"}
)

// String returns the abbreviated name of the coordinate system.
func (s System) String() string {
	if s < ZeroBased || s > SpaceBased {
		return fmt.Sprintf("System(%d)", int(s))
	}
	return systemAbbr[s]
}

// Range is an immutable interval of integer coordinates.
// The zero Range is the single coordinate 0.
type Range struct {
	begin, end int64
}

// New returns the zero-based range [begin, end]. New panics if the
// range is not valid. Use a Builder to check validity without panicking.
func New(begin, end int64) Range {
	r, err := Builder{begin: begin, end: end}.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// NewIn returns the range [begin, end] given in the coordinate system cs.
// NewIn panics if the range is not valid.
func NewIn(cs System, begin, end int64) Range {
	b, e := toZero(cs, begin, end)
	return New(b, e)
}

// OfLength returns the zero-based range starting at begin with length n.
func OfLength(begin, n int64) Range {
	if n < 0 {
		panic(ErrNegativeLength)
	}
	if n == 0 {
		return Empty(begin)
	}
	return New(begin, begin+n-1)
}

// Empty returns the empty range anchored at the coordinate at.
func Empty(at int64) Range {
	if at == math.MinInt64 {
		panic(ErrOverflow)
	}
	return Range{begin: at, end: at - 1}
}

func toZero(cs System, begin, end int64) (int64, int64) {
	return begin - beginShift[cs], end - endShift[cs]
}

// Begin returns the zero-based start of the range.
func (r Range) Begin() int64 { return r.begin }

// End returns the zero-based inclusive end of the range.
func (r Range) End() int64 { return r.end }

// BeginIn returns the start of the range in the coordinate system cs.
func (r Range) BeginIn(cs System) int64 { return r.begin + beginShift[cs] }

// EndIn returns the end of the range in the coordinate system cs.
func (r Range) EndIn(cs System) int64 { return r.end + endShift[cs] }

// Len returns the number of coordinates in the range.
func (r Range) Len() int64 { return r.end - r.begin + 1 }

// IsEmpty returns whether the range has zero length.
func (r Range) IsEmpty() bool { return r.end < r.begin }

// Contains returns whether the coordinate x is within r.
func (r Range) Contains(x int64) bool { return r.begin <= x && x <= r.end }

// IsSubRangeOf returns whether r is entirely within o. An empty range is
// a sub range of o if its anchor lies within o or immediately after it.
func (r Range) IsSubRangeOf(o Range) bool {
	if r.IsEmpty() {
		return o.begin <= r.begin && r.begin <= o.end+1
	}
	return o.begin <= r.begin && r.end <= o.end
}

// Intersects returns whether r and o share at least one coordinate.
// Empty ranges intersect nothing, including themselves.
func (r Range) Intersects(o Range) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.begin <= o.end && o.begin <= r.end
}

// Intersection returns the coordinates shared by r and o. If the ranges
// do not intersect an empty range is returned.
func (r Range) Intersection(o Range) Range {
	if r.IsEmpty() {
		return r
	}
	if o.IsEmpty() {
		return o
	}
	if !r.Intersects(o) {
		return Empty(r.begin)
	}
	return Range{begin: max64(r.begin, o.begin), end: min64(r.end, o.end)}
}

// Complement returns the parts of r that are not covered by o, in
// ascending order.
func (r Range) Complement(o Range) []Range {
	if r.IsEmpty() {
		return nil
	}
	if !r.Intersects(o) {
		return []Range{r}
	}
	var c []Range
	// o.begin > r.begin >= MinInt64, so o.begin-1 cannot overflow.
	if o.begin > r.begin {
		c = append(c, Range{begin: r.begin, end: o.begin - 1})
	}
	// o.end < r.end <= MaxInt64, so o.end+1 cannot overflow.
	if o.end < r.end {
		c = append(c, Range{begin: o.end + 1, end: r.end})
	}
	return c
}

// ComplementAll treats ranges as a set of covered regions and returns the
// uncovered regions within r, in ascending order.
func (r Range) ComplementAll(ranges []Range) []Range {
	if r.IsEmpty() {
		return nil
	}
	var within []Range
	for _, o := range ranges {
		if r.Intersects(o) {
			within = append(within, r.Intersection(o))
		}
	}
	within = Merge(within)
	if len(within) == 0 {
		return []Range{r}
	}
	var c []Range
	cur := r.begin
	for _, o := range within {
		if o.begin > cur {
			c = append(c, Range{begin: cur, end: o.begin - 1})
		}
		if o.end == math.MaxInt64 {
			return c
		}
		cur = o.end + 1
	}
	if cur <= r.end {
		c = append(c, Range{begin: cur, end: r.end})
	}
	return c
}

// Union returns the smallest range covering both r and o. Empty ranges
// do not contribute to the union.
func (r Range) Union(o Range) Range {
	switch {
	case r.IsEmpty():
		return o
	case o.IsEmpty():
		return r
	}
	return Range{begin: min64(r.begin, o.begin), end: max64(r.end, o.end)}
}

// Shift returns r moved by n coordinates.
func (r Range) Shift(n int64) Range {
	return Range{begin: r.begin + n, end: r.end + n}
}

// Split divides r into consecutive ranges no longer than n.
func (r Range) Split(n int64) []Range {
	if n <= 0 {
		panic("coord: non-positive split length")
	}
	if r.IsEmpty() {
		return []Range{r}
	}
	var s []Range
	for b := r.begin; ; b += n {
		e := b + n - 1
		if e >= r.end || e < b {
			s = append(s, Range{begin: b, end: r.end})
			return s
		}
		s = append(s, Range{begin: b, end: e})
	}
}

// String returns a representation of r in zero-based coordinates.
func (r Range) String() string { return r.StringIn(ZeroBased) }

// StringIn returns a representation of r in the coordinate system cs.
func (r Range) StringIn(cs System) string {
	return fmt.Sprintf("[ %d .. %d ]/%v", r.BeginIn(cs), r.EndIn(cs), cs)
}

// Merge returns the union of overlapping and adjacent ranges in rs, sorted
// by arrival. Empty ranges are dropped. The input slice is not modified.
func Merge(rs []Range) []Range {
	s := make([]Range, 0, len(rs))
	for _, r := range rs {
		if !r.IsEmpty() {
			s = append(s, r)
		}
	}
	if len(s) == 0 {
		return nil
	}
	sort.Slice(s, func(i, j int) bool { return ByArrival(s[i], s[j]) < 0 })
	m := s[:1]
	for _, r := range s[1:] {
		last := &m[len(m)-1]
		if last.end == math.MaxInt64 || r.begin <= last.end+1 {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		m = append(m, r)
	}
	return m
}

// ByArrival orders ranges by begin then by end.
func ByArrival(a, b Range) int {
	if c := cmp64(a.begin, b.begin); c != 0 {
		return c
	}
	return cmp64(a.end, b.end)
}

// ByDeparture orders ranges by end then by begin.
func ByDeparture(a, b Range) int {
	if c := cmp64(a.end, b.end); c != 0 {
		return c
	}
	return cmp64(a.begin, b.begin)
}

// ByLength orders ranges by ascending length, then by arrival.
func ByLength(a, b Range) int {
	if c := cmp64(a.Len(), b.Len()); c != 0 {
		return c
	}
	return ByArrival(a, b)
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
