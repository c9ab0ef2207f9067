// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"github.com/pkg/errors"

	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

// ReadBuilder is a mutable read used during contig construction.
type ReadBuilder struct {
	ID string

	// Bases is the gapped valid sequence of
	// the read in contig orientation, with
	// gaps represented by nuc.Gap.
	Bases []byte

	// Start is the gapped consensus offset
	// of the first base.
	Start int64

	Dir                Direction
	ValidRange         coord.Range
	Phd                PhdInfo
	UngappedFullLength int64
}

// NewReadBuilder returns a ReadBuilder initialised from r.
func NewReadBuilder(r *Read) *ReadBuilder {
	return &ReadBuilder{
		ID:                 r.ID,
		Bases:              r.Seq.Bytes(),
		Start:              r.Start,
		Dir:                r.Dir,
		ValidRange:         r.ValidRange,
		Phd:                r.Phd,
		UngappedFullLength: r.UngappedFullLength,
	}
}

// End returns the gapped consensus offset of the last base of the read.
func (rb *ReadBuilder) End() int64 { return rb.Start + int64(len(rb.Bases)) - 1 }

// Range returns the gapped consensus range covered by the read.
func (rb *ReadBuilder) Range() coord.Range { return coord.OfLength(rb.Start, int64(len(rb.Bases))) }

// Build returns the Read described by the builder.
func (rb *ReadBuilder) Build() *Read {
	return &Read{
		ID:                 rb.ID,
		Seq:                nuc.NewSeq(rb.Bases),
		Start:              rb.Start,
		Dir:                rb.Dir,
		ValidRange:         rb.ValidRange,
		Phd:                rb.Phd,
		UngappedFullLength: rb.UngappedFullLength,
	}
}

// overlaps returns whether any ungapped base of the read lies within the
// gapped consensus range [left, right].
func (rb *ReadBuilder) overlaps(left, right int64) bool {
	if right < left {
		return false
	}
	r := rb.Range().Intersection(coord.New(left, right))
	if r.IsEmpty() {
		return false
	}
	return ungappedLen(rb.Bases[r.Begin()-rb.Start:r.End()-rb.Start+1]) != 0
}

// clip removes bases lying outside the gapped consensus range [left, right]
// and adjusts the valid range to match. It returns false if no bases
// remain.
func (rb *ReadBuilder) clip(left, right int64) bool {
	if rb.Start < left {
		k := left - rb.Start
		if k >= int64(len(rb.Bases)) {
			rb.Bases = rb.Bases[:0]
			return false
		}
		du := int64(ungappedLen(rb.Bases[:k]))
		rb.Bases = rb.Bases[k:]
		rb.Start = left
		rb.trimValid(du, 0)
	}
	if end := rb.End(); end > right {
		k := end - right
		if k >= int64(len(rb.Bases)) {
			rb.Bases = rb.Bases[:0]
			return false
		}
		n := int64(len(rb.Bases)) - k
		du := int64(ungappedLen(rb.Bases[n:]))
		rb.Bases = rb.Bases[:n]
		rb.trimValid(0, du)
	}
	return ungappedLen(rb.Bases) != 0
}

// trimValid removes left and right ungapped bases, given in contig
// orientation, from the valid range.
func (rb *ReadBuilder) trimValid(left, right int64) {
	if rb.Dir == Reverse {
		left, right = right, left
	}
	b := coord.NewBuilder(rb.ValidRange).Contract(left, right)
	r, err := b.Build()
	if err != nil {
		r = coord.Empty(rb.ValidRange.Begin() + left)
	}
	rb.ValidRange = r
}

// placeRead reconciles the QA clip points of rd with its alignment and
// returns the placed read. If the read cannot be placed, placeRead returns
// a nil ReadBuilder and the reason.
func placeRead(af *AssembledFrom, rd *ReadRecord, phds PhdStore) (*ReadBuilder, SkipReason, error) {
	if rd.QualBegin == -1 && rd.QualEnd == -1 {
		return nil, AllLowQuality, nil
	}
	if rd.QualEnd < rd.QualBegin || rd.AlignEnd < rd.AlignBegin {
		return nil, NegativeValidRange, nil
	}
	qual, err := coord.NewBuilderIn(coord.ResidueBased, rd.QualBegin, rd.QualEnd).Build()
	if err != nil {
		return nil, NegativeValidRange, nil
	}
	align, err := coord.NewBuilderIn(coord.ResidueBased, rd.AlignBegin, rd.AlignEnd).Build()
	if err != nil {
		return nil, NegativeValidRange, nil
	}
	n := int64(len(rd.Bases))
	valid := qual.Intersection(align)
	if !valid.IsEmpty() && n != 0 {
		valid = valid.Intersection(coord.New(0, n-1))
	}
	if valid.IsEmpty() || n == 0 {
		return nil, NoHighQualityAlignmentIntersection, nil
	}
	bases := append([]byte(nil), rd.Bases[valid.Begin():valid.End()+1]...)
	ul := int64(ungappedLen(bases))
	if ul == 0 {
		return nil, NoHighQualityAlignmentIntersection, nil
	}
	for i, b := range bases {
		if 'a' <= b && b <= 'z' {
			bases[i] = b - ('a' - 'A')
		}
	}

	full := int64(ungappedLen(rd.Bases))
	if phds != nil {
		phd, err := phds.Phd(rd.ID)
		switch {
		case err == nil:
			full = int64(len(phd.Bases))
		case errors.Cause(err) != ErrNotFound:
			return nil, 0, errors.Wrapf(err, "ace: failed to get phd for %s", rd.ID)
		}
	}
	ub := int64(ungappedLen(rd.Bases[:valid.Begin()]))
	if ub+ul > full {
		return nil, 0, errors.Errorf("ace: valid range of read %s extends beyond its %d bases", rd.ID, full)
	}
	vr := coord.OfLength(ub, ul)
	if af.Dir == Reverse {
		vr = coord.New(full-1-vr.End(), full-1-vr.Begin())
	}
	return &ReadBuilder{
		ID:                 rd.ID,
		Bases:              bases,
		Start:              af.Offset + valid.BeginIn(coord.ResidueBased) - 2,
		Dir:                af.Dir,
		ValidRange:         vr,
		Phd:                rd.Phd,
		UngappedFullLength: full,
	}, 0, nil
}
