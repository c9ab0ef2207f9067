// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"gopkg.in/check.v1"

	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

// placed returns a ReadBuilder whose valid range covers all of seq.
func placed(id string, start int64, dir Direction, seq string) *ReadBuilder {
	b := []byte(seq)
	n := int64(ungappedLen(b))
	return &ReadBuilder{
		ID:                 id,
		Bases:              b,
		Start:              start,
		Dir:                dir,
		ValidRange:         coord.New(0, n-1),
		UngappedFullLength: n,
	}
}

func (s *S) TestContigBuilderTrim(c *check.C) {
	b := NewContigBuilder("c", []byte("nnAC*GTnn"))
	c.Check(string(b.Consensus), check.Equals, "NNAC-GTNN")
	b.Quals = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	c.Assert(b.AddRead(placed("r", 2, Forward, "AC-GT")), check.Equals, nil)
	c.Check(b.AddRead(placed("r", 2, Forward, "AC-GT")), check.NotNil)
	c.Check(b.NumReads(), check.Equals, 1)

	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "AC-GT")
	c.Check(ctg.Quals, check.DeepEquals, []byte{3, 4, 5, 6})
	c.Check(ctg.Reads[0].Start, check.Equals, int64(0))

	_, err = b.Build()
	c.Check(err, check.Equals, ErrBuilt)
}

func (s *S) TestContigBuilderClip(c *check.C) {
	b := NewContigBuilder("c", []byte("ACGTAC"))
	c.Assert(b.AddRead(placed("f", -2, Forward, "GGACGT")), check.Equals, nil)
	c.Assert(b.AddRead(placed("r", 3, Reverse, "TACTT")), check.Equals, nil)
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGTAC")

	f, ok := ctg.Read("f")
	c.Assert(ok, check.Equals, true)
	c.Check(f.Start, check.Equals, int64(0))
	c.Check(f.Seq.String(), check.Equals, "ACGT")
	c.Check(f.ValidRange, check.Equals, coord.New(2, 5))

	r, ok := ctg.Read("r")
	c.Assert(ok, check.Equals, true)
	c.Check(r.Start, check.Equals, int64(3))
	c.Check(r.Seq.String(), check.Equals, "TAC")
	c.Check(r.ValidRange, check.Equals, coord.New(2, 4))
}

func (s *S) TestContigBuilderDropsOutside(c *check.C) {
	b := NewContigBuilder("c", []byte("ACGTAC"))
	for _, r := range []*ReadBuilder{
		placed("in", 0, Forward, "ACGT"),
		placed("after", 8, Forward, "GG"),
		placed("before", -3, Reverse, "TT"),
	} {
		c.Assert(b.AddRead(r), check.Equals, nil)
	}
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGT")
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"in"})
	c.Check(b.Skipped(), check.DeepEquals, []Skip{
		{Contig: "c", Read: "before", Reason: OutsideConsensus},
		{Contig: "c", Read: "after", Reason: OutsideConsensus},
	})
}

func (s *S) TestContigBuilderRecall(c *check.C) {
	b := NewContigBuilder("c", []byte("ACGT"))
	for _, r := range []*ReadBuilder{
		placed("a", 0, Forward, "ACGA"),
		placed("b", 0, Reverse, "ACGA"),
		placed("c", 1, Forward, "CGT"),
	} {
		c.Assert(b.AddRead(r), check.Equals, nil)
	}
	b.Recall(consensus.MostFrequent, nil)
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGA")
	c.Check(ctg.Quals, check.DeepEquals, []byte{2, 3, 3, 1})
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"a", "b", "c"})

	rebuilt, err := NewContigBuilderFrom(ctg).Build()
	c.Assert(err, check.Equals, nil)
	c.Check(rebuilt, check.DeepEquals, ctg)
}

func qualContig(c *check.C, cons string, reads ...*ReadBuilder) *Contig {
	b := NewContigBuilder("c", []byte(cons))
	for _, r := range reads {
		c.Assert(b.AddRead(r), check.Equals, nil)
	}
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	return ctg
}

func (s *S) TestConsensusQualities(c *check.C) {
	for _, test := range []struct {
		name  string
		cons  string
		reads []*ReadBuilder
		quals QualityStore
		want  []byte
	}{
		{
			name: "strands and starts",
			cons: "ACGTACGTAC",
			reads: []*ReadBuilder{
				placed("f1", 0, Forward, "ACGTACGTAC"),
				placed("f2", 2, Forward, "GTACGTAC"),
				placed("r1", 0, Reverse, "ACGTTCGTAC"),
			},
			quals: QualityMap{
				"f1": repeatQual(30, 10),
				"f2": repeatQual(40, 8),
				"r1": repeatQual(20, 10),
			},
			want: []byte{50, 50, 30, 30, 45, 45, 45, 65, 65, 65},
		},
		{
			name:  "gapped",
			cons:  "ACG*TAC",
			reads: []*ReadBuilder{placed("f", 0, Forward, "ACG-TAC")},
			quals: QualityMap{"f": {10, 20, 30, 40, 50, 60}},
			want:  []byte{10, 20, 30, 30, 40, 50, 60},
		},
		{
			name: "capped",
			cons: "ACGT",
			reads: []*ReadBuilder{
				placed("f", 0, Forward, "ACGT"),
				placed("r", 0, Reverse, "ACGT"),
			},
			quals: QualityMap{"f": repeatQual(60, 4), "r": repeatQual(60, 4)},
			want:  []byte{90, 90, 90, 90},
		},
		{
			name: "duplicates",
			cons: "ACGT",
			reads: []*ReadBuilder{
				placed("d1", 0, Forward, "ACGT"),
				placed("d2", 0, Forward, "ACGT"),
			},
			quals: QualityMap{"d1": repeatQual(30, 4), "d2": repeatQual(35, 4)},
			want:  []byte{35, 35, 35, 35},
		},
		{
			name:  "mismatch",
			cons:  "ACGT",
			reads: []*ReadBuilder{placed("m", 0, Forward, "AGGT")},
			quals: QualityMap{"m": repeatQual(40, 4)},
			want:  []byte{0, 0, 0, 0},
		},
		{
			name:  "unit qualities",
			cons:  "ACGT",
			reads: []*ReadBuilder{placed("u", 0, Forward, "ACGT")},
			want:  []byte{1, 1, 1, 1},
		},
	} {
		ctg := qualContig(c, test.cons, test.reads...)
		got, err := ConsensusQualities(ctg, test.quals)
		c.Assert(err, check.Equals, nil, check.Commentf(test.name))
		c.Check(got, check.DeepEquals, test.want, check.Commentf(test.name))
	}

	ctg := qualContig(c, "ACGT", placed("x", 0, Forward, "ACGT"))
	_, err := ConsensusQualities(ctg, QualityMap{})
	c.Check(err, check.NotNil)
}

func (s *S) TestReadQualities(c *check.C) {
	r := &Read{
		ID:         "r",
		Seq:        nuc.NewSeqString("AC--GT"),
		Dir:        Reverse,
		ValidRange: coord.New(1, 4),
	}
	q, err := readQualities(r, []byte{9, 10, 20, 30, 40, 9})
	c.Assert(err, check.Equals, nil)
	c.Check(q, check.DeepEquals, []byte{40, 30, 20, 20, 20, 10})

	r.Dir = Forward
	q, err = readQualities(r, []byte{9, 10, 20, 30, 40, 9})
	c.Assert(err, check.Equals, nil)
	c.Check(q, check.DeepEquals, []byte{10, 20, 20, 20, 30, 40})

	r.ValidRange = coord.New(3, 6)
	_, err = readQualities(r, []byte{9, 10, 20, 30, 40, 9})
	c.Check(err, check.NotNil)
}
