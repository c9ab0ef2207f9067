// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coord

import "math"

// Builder holds a mutable begin and end pair that can be adjusted
// before being validated and frozen into a Range.
//
// The zero Builder builds the single coordinate 0.
type Builder struct {
	begin, end int64
}

// NewBuilder returns a Builder initialised from r.
func NewBuilder(r Range) *Builder {
	return &Builder{begin: r.begin, end: r.end}
}

// NewBuilderIn returns a Builder for [begin, end] given in the coordinate
// system cs.
func NewBuilderIn(cs System, begin, end int64) *Builder {
	b, e := toZero(cs, begin, end)
	return &Builder{begin: b, end: e}
}

// SetBegin sets the zero-based begin coordinate.
func (b *Builder) SetBegin(x int64) *Builder { b.begin = x; return b }

// SetEnd sets the zero-based end coordinate.
func (b *Builder) SetEnd(x int64) *Builder { b.end = x; return b }

// Shift moves both bounds by n.
func (b *Builder) Shift(n int64) *Builder {
	b.begin += n
	b.end += n
	return b
}

// ExpandBegin moves the begin n coordinates to the left.
func (b *Builder) ExpandBegin(n int64) *Builder { b.begin -= n; return b }

// ExpandEnd moves the end n coordinates to the right.
func (b *Builder) ExpandEnd(n int64) *Builder { b.end += n; return b }

// Expand grows the range by left coordinates on the left and right
// coordinates on the right.
func (b *Builder) Expand(left, right int64) *Builder {
	return b.ExpandBegin(left).ExpandEnd(right)
}

// ContractBegin moves the begin n coordinates to the right.
func (b *Builder) ContractBegin(n int64) *Builder { b.begin += n; return b }

// ContractEnd moves the end n coordinates to the left.
func (b *Builder) ContractEnd(n int64) *Builder { b.end -= n; return b }

// Contract shrinks the range by left coordinates on the left and right
// coordinates on the right.
func (b *Builder) Contract(left, right int64) *Builder {
	return b.ContractBegin(left).ContractEnd(right)
}

// Len returns the length of the range being built.
func (b *Builder) Len() int64 { return b.end - b.begin + 1 }

// Build returns the Range described by the builder. It returns an error
// if the range would have a negative length or a length that cannot be
// represented.
func (b Builder) Build() (Range, error) {
	if b.end < b.begin {
		if b.begin == math.MinInt64 || b.end != b.begin-1 {
			return Range{}, ErrNegativeLength
		}
		return Range{begin: b.begin, end: b.end}, nil
	}
	if uint64(b.end)-uint64(b.begin) >= math.MaxInt64 {
		return Range{}, ErrOverflow
	}
	return Range{begin: b.begin, end: b.end}, nil
}
