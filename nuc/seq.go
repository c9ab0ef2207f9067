// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nuc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/biogo/asm/coord"
)

// Seq is an immutable encoded nucleotide sequence. The zero Seq is
// the empty sequence.
type Seq struct {
	codec Codec
	data  []byte

	// gaps caches the gap offsets of the sequence.
	gaps []int
}

// NewSeq returns a Seq holding the letters in s. Lower case letters are
// folded to upper case and '*' is treated as a gap. NewSeq panics if s
// holds a symbol that is not an IUPAC nucleotide or gap.
func NewSeq(s []byte) Seq {
	u := make([]byte, len(s))
	for i, b := range s {
		switch {
		case b == '*':
			b = Gap
		case 'a' <= b && b <= 'z':
			b -= 'a' - 'A'
		}
		u[i] = b
	}
	c := Codec(Nibble)
	if TwoBit.CanEncode(u) {
		c = TwoBit
	}
	return Seq{codec: c, data: c.Encode(u), gaps: gapOffsets(u)}
}

// NewSeqString is a convenience wrapper for NewSeq.
func NewSeqString(s string) Seq { return NewSeq([]byte(s)) }

// Decode returns a Seq from an encoding produced by c.
func Decode(c Codec, b []byte) (Seq, error) {
	s, err := c.Decode(b)
	if err != nil {
		return Seq{}, err
	}
	return Seq{codec: c, data: b, gaps: gapOffsets(s)}, nil
}

func gapOffsets(s []byte) []int {
	var g []int
	for i, b := range s {
		if b == Gap {
			g = append(g, i)
		}
	}
	return g
}

// Codec returns the codec used to hold the sequence.
func (s Seq) Codec() Codec { return s.codec }

// Encoded returns the encoded form of the sequence. The returned
// slice must not be altered.
func (s Seq) Encoded() []byte { return s.data }

// Len returns the gapped length of the sequence.
func (s Seq) Len() int {
	if s.codec == nil {
		return 0
	}
	n, err := s.codec.Len(s.data)
	if err != nil {
		panic(err)
	}
	return n
}

// At returns the base at gapped position i.
func (s Seq) At(i int) byte {
	if s.codec == nil {
		panic("nuc: index out of range")
	}
	b, err := s.codec.At(s.data, i)
	if err != nil {
		panic(err)
	}
	return b
}

// Bytes returns a newly allocated slice holding the gapped sequence.
func (s Seq) Bytes() []byte {
	if s.codec == nil {
		return nil
	}
	b, err := s.codec.Decode(s.data)
	if err != nil {
		panic(err)
	}
	return b
}

// String returns the gapped sequence.
func (s Seq) String() string { return string(s.Bytes()) }

// Format implements fmt.Formatter.
func (s Seq) Format(fs fmt.State, c rune) {
	switch c {
	case 'v', 's':
		fmt.Fprint(fs, s.String())
	case 'q':
		fmt.Fprintf(fs, "%q", s.String())
	default:
		fmt.Fprintf(fs, "%%!%c(nuc.Seq=%s)", c, s.String())
	}
}

// Equal returns whether s and o hold the same gapped sequence.
func (s Seq) Equal(o Seq) bool { return bytes.Equal(s.Bytes(), o.Bytes()) }

// Slice returns the gapped sub-sequence described by r.
func (s Seq) Slice(r coord.Range) Seq {
	if r.IsEmpty() {
		return NewSeq(nil)
	}
	b := s.Bytes()
	if r.Begin() < 0 || int64(len(b)) <= r.End() {
		panic(fmt.Sprintf("nuc: slice %v out of range [0,%d)", r, len(b)))
	}
	return NewSeq(b[r.Begin() : r.End()+1])
}

// NumGaps returns the number of gaps in the sequence.
func (s Seq) NumGaps() int { return len(s.gaps) }

// GapOffsets returns the gapped positions of every gap in the sequence.
func (s Seq) GapOffsets() []int { return append([]int(nil), s.gaps...) }

// IsGap returns whether the gapped position i is a gap.
func (s Seq) IsGap(i int) bool {
	j := sort.SearchInts(s.gaps, i)
	return j < len(s.gaps) && s.gaps[j] == i
}

// UngappedLen returns the number of non-gap bases in the sequence.
func (s Seq) UngappedLen() int { return s.Len() - len(s.gaps) }

// Ungapped returns the sequence with gaps removed.
func (s Seq) Ungapped() []byte {
	b := s.Bytes()
	u := b[:0]
	for _, c := range b {
		if c != Gap {
			u = append(u, c)
		}
	}
	return u
}

// UngappedOffset returns the ungapped position corresponding to the
// gapped position i. If i is a gap, the ungapped position of the next
// base to the left is returned.
func (s Seq) UngappedOffset(i int) int {
	return i - sort.SearchInts(s.gaps, i+1)
}

// GappedOffset returns the gapped position of the ungapped position i.
func (s Seq) GappedOffset(i int) int {
	g := i
	for _, o := range s.gaps {
		if o > g {
			break
		}
		g++
	}
	return g
}

// ReverseComplement returns the reverse complement of s.
func (s Seq) ReverseComplement() Seq {
	return NewSeq(ReverseComplement(s.Bytes()))
}
