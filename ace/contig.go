// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/nuc"
)

// ContigBuilder accumulates the reads of a contig. A ContigBuilder may
// only be built once.
type ContigBuilder struct {
	ID string

	// Consensus is the gapped consensus with
	// gaps represented by nuc.Gap.
	Consensus []byte

	Complemented bool

	// Quals holds the ungapped consensus
	// qualities. It may be nil.
	Quals []byte

	reads map[string]*ReadBuilder

	caller    consensus.Caller
	qualities QualityStore

	skipped []Skip

	built bool
}

// NewContigBuilder returns a ContigBuilder with the given ID and gapped
// consensus. The consensus is copied and '*' is converted to nuc.Gap.
func NewContigBuilder(id string, cons []byte) *ContigBuilder {
	c := make([]byte, len(cons))
	for i, b := range cons {
		switch {
		case b == '*':
			b = nuc.Gap
		case 'a' <= b && b <= 'z':
			b -= 'a' - 'A'
		}
		c[i] = b
	}
	return &ContigBuilder{ID: id, Consensus: c, reads: make(map[string]*ReadBuilder)}
}

// NewContigBuilderFrom returns a ContigBuilder initialised from c.
func NewContigBuilderFrom(c *Contig) *ContigBuilder {
	b := NewContigBuilder(c.ID, c.Consensus.Bytes())
	b.Complemented = c.Complemented
	if c.Quals != nil {
		b.Quals = append([]byte(nil), c.Quals...)
	}
	for _, r := range c.Reads {
		b.reads[r.ID] = NewReadBuilder(r)
	}
	return b
}

// AddRead adds rb to the contig. It is an error to add two reads with
// the same ID.
func (b *ContigBuilder) AddRead(rb *ReadBuilder) error {
	if _, dup := b.reads[rb.ID]; dup {
		return errors.Errorf("ace: duplicate read %s in contig %s", rb.ID, b.ID)
	}
	b.reads[rb.ID] = rb
	return nil
}

// Read returns the ReadBuilder for the given read ID.
func (b *ContigBuilder) Read(id string) (*ReadBuilder, bool) {
	rb, ok := b.reads[id]
	return rb, ok
}

// RemoveRead removes the read with the given ID.
func (b *ContigBuilder) RemoveRead(id string) { delete(b.reads, id) }

// NumReads returns the number of reads in the contig.
func (b *ContigBuilder) NumReads() int { return len(b.reads) }

// Reads returns the contig's reads ordered by start offset and then by ID.
func (b *ContigBuilder) Reads() []*ReadBuilder {
	reads := make([]*ReadBuilder, 0, len(b.reads))
	for _, rb := range b.reads {
		reads = append(reads, rb)
	}
	sort.Slice(reads, func(i, j int) bool {
		return readLess(reads[i].Start, reads[i].ID, reads[j].Start, reads[j].ID)
	})
	return reads
}

// Recall requests that the consensus be recalled from the reads using c
// when the contig is built. Read qualities are obtained from q.
func (b *ContigBuilder) Recall(c consensus.Caller, q QualityStore) {
	b.caller = c
	b.qualities = q
}

// Skipped returns the reads dropped by Build.
func (b *ContigBuilder) Skipped() []Skip { return b.skipped }

// Build returns the contig. The consensus is trimmed to the extent of the
// reads and the reads are placed relative to the trimmed consensus. Read
// bases lying outside the consensus are clipped and reads with no bases
// under the consensus are dropped and reported by Skipped.
func (b *ContigBuilder) Build() (*Contig, error) {
	if b.built {
		return nil, ErrBuilt
	}
	b.built = true

	n := int64(len(b.Consensus))
	for _, rb := range b.Reads() {
		if !rb.overlaps(0, n-1) {
			b.skipped = append(b.skipped, Skip{Contig: b.ID, Read: rb.ID, Reason: OutsideConsensus})
			delete(b.reads, rb.ID)
		}
	}
	left, right := int64(0), n-1
	if len(b.reads) != 0 {
		left, right = math.MaxInt64, math.MinInt64
		for _, rb := range b.reads {
			if rb.Start < left {
				left = rb.Start
			}
			if end := rb.End(); end > right {
				right = end
			}
		}
		if left < 0 {
			left = 0
		}
		if right > n-1 {
			right = n - 1
		}
	}
	if right < left {
		return nil, errors.Errorf("ace: contig %s has no consensus under its reads", b.ID)
	}

	cons := b.Consensus[left : right+1]
	var quals []byte
	if len(b.Quals) == ungappedLen(b.Consensus) {
		ul := ungappedLen(b.Consensus[:left])
		quals = append([]byte(nil), b.Quals[ul:ul+ungappedLen(cons)]...)
	}

	reads := make([]*Read, 0, len(b.reads))
	for _, rb := range b.reads {
		if !rb.clip(left, right) {
			return nil, errors.Errorf("ace: read %s lies outside contig %s consensus", rb.ID, b.ID)
		}
		rb.Start -= left
		reads = append(reads, rb.Build())
	}

	if b.caller != nil {
		var err error
		cons, quals, err = recall(cons, reads, b.caller, b.qualities)
		if err != nil {
			return nil, errors.Wrapf(err, "ace: failed to recall consensus of %s", b.ID)
		}
	}

	return newContig(b.ID, nuc.NewSeq(cons), b.Complemented, quals, reads), nil
}

// recall returns a new gapped consensus and its ungapped qualities called
// from the reads. Columns without coverage retain their original base.
func recall(cons []byte, reads []*Read, c consensus.Caller, qs QualityStore) ([]byte, []byte, error) {
	slices, err := buildSlices(len(cons), reads, qs)
	if err != nil {
		return nil, nil, err
	}
	called := make([]byte, len(cons))
	quals := make([]byte, 0, len(cons))
	for i, s := range slices {
		if len(s) == 0 {
			called[i] = cons[i]
			if cons[i] != nuc.Gap {
				quals = append(quals, 0)
			}
			continue
		}
		res := c.Call(s)
		called[i] = res.Base
		if res.Base != nuc.Gap {
			quals = append(quals, res.Qual)
		}
	}
	return called, quals, nil
}

// buildSlices returns the consensus slices for n gapped consensus columns.
// If qs is nil every base is given quality 1.
func buildSlices(n int, reads []*Read, qs QualityStore) ([]consensus.Slice, error) {
	slices := make([]consensus.Slice, n)
	for _, r := range reads {
		b := r.Seq.Bytes()
		q, err := qualitiesFor(r, qs)
		if err != nil {
			return nil, err
		}
		for i, base := range b {
			col := r.Start + int64(i)
			if col < 0 || col >= int64(n) {
				continue
			}
			slices[col] = append(slices[col], consensus.Element{ID: r.ID, Base: base, Qual: q[i], Dir: r.Dir})
		}
	}
	return slices, nil
}

// qualitiesFor returns the gapped qualities of r from qs, or uniform unit
// qualities if qs is nil.
func qualitiesFor(r *Read, qs QualityStore) ([]byte, error) {
	if qs == nil {
		q := make([]byte, r.Seq.Len())
		for i := range q {
			q[i] = 1
		}
		return q, nil
	}
	full, err := qs.Qualities(r.ID)
	if err != nil {
		return nil, err
	}
	return readQualities(r, full)
}
