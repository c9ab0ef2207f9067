// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"sort"

	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/nuc"
)

const (
	// windowFlank is the number of non-gap consensus
	// bases either side of a base that a read must
	// match for its quality to count.
	windowFlank = 2

	// strandBonus is added when either strand has
	// qualifying reads with more than one start.
	strandBonus = 5
)

// ConsensusQualities returns the consed compatible quality of each gapped
// consensus position of c.
//
// A read qualifies at a base when it covers the window of the base and the
// two nearest non-gap bases either side of it, and agrees with the
// consensus at every column of the window. The quality of the base is the
// sum of the highest qualifying read quality on each strand, plus 5 if
// either strand has qualifying reads with more than one distinct start,
// up to a maximum of 90. Bases with no qualifying reads have quality zero.
// Gap positions are given the lower of the qualities of their flanking
// bases.
//
// Read qualities are obtained from qs. If qs is nil, every read base is
// given quality 1.
func ConsensusQualities(c *Contig, qs QualityStore) ([]byte, error) {
	cons := c.Consensus.Bytes()
	quals := make([]byte, len(cons))

	// Ungapped consensus positions.
	var pos []int
	for i, b := range cons {
		if b != nuc.Gap {
			pos = append(pos, i)
		}
	}

	reads := append([]*Read(nil), c.Reads...)
	sort.Slice(reads, func(i, j int) bool { return reads[i].Start < reads[j].Start })

	type covering struct {
		r     *Read
		bases []byte
		quals []byte
	}
	var (
		active []covering
		next   int
	)
	for u, i := range pos {
		lo := pos[maxInt(u-windowFlank, 0)]
		hi := pos[minInt(u+windowFlank, len(pos)-1)]

		// Sweep reads starting at or before the window
		// into the active set and drop reads that can no
		// longer cover a window.
		for next < len(reads) && reads[next].Start <= int64(lo) {
			r := reads[next]
			next++
			q, err := qualitiesFor(r, qs)
			if err != nil {
				return nil, err
			}
			active = append(active, covering{r: r, bases: r.Seq.Bytes(), quals: q})
		}
		kept := active[:0]
		for _, a := range active {
			if a.r.End() >= int64(lo) {
				kept = append(kept, a)
			}
		}
		active = kept

		var (
			best   [2]int
			starts [2]map[int64]bool
		)
		for _, a := range active {
			if a.r.End() < int64(hi) {
				continue
			}
			if !agrees(cons[lo:hi+1], a.bases[int64(lo)-a.r.Start:int64(hi)-a.r.Start+1]) {
				continue
			}
			d := 0
			if a.r.Dir == Reverse {
				d = 1
			}
			if q := int(a.quals[int64(i)-a.r.Start]); q > best[d] {
				best[d] = q
			}
			if starts[d] == nil {
				starts[d] = make(map[int64]bool)
			}
			starts[d][a.r.Start] = true
		}
		q := best[0] + best[1]
		if len(starts[0]) > 1 || len(starts[1]) > 1 {
			q += strandBonus
		}
		if q > consensus.MaxQuality {
			q = consensus.MaxQuality
		}
		quals[i] = byte(q)
	}

	fillGapQualities(cons, quals)
	return quals, nil
}

func agrees(cons, read []byte) bool {
	for i, b := range cons {
		if read[i] != b {
			return false
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
