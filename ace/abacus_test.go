// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"context"
	"errors"
	"os/exec"

	"gopkg.in/check.v1"

	"github.com/biogo/asm/coord"
)

// alignerFunc adapts a function to the Aligner interface.
type alignerFunc func([]Sequence) ([]Sequence, error)

func (f alignerFunc) Align(_ context.Context, seqs []Sequence) ([]Sequence, error) {
	return f(seqs)
}

// identity returns its input, already padded to equal lengths.
var identity = alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
	out := make([]Sequence, len(seqs))
	for i, s := range seqs {
		out[len(seqs)-1-i] = Sequence{ID: s.ID, Seq: append([]byte(nil), s.Seq...)}
	}
	return out, nil
})

func abacusBuilder(c *check.C) *ContigBuilder {
	b := NewContigBuilder("c", []byte("CCAG*TCC"))
	b.Quals = []byte{20, 20, 20, 20, 20, 20, 20}
	for _, r := range []*ReadBuilder{
		placed("r1", 0, Forward, "CCAG-TCC"),
		placed("r2", 0, Reverse, "CCA-GTCC"),
		placed("r3", 0, Forward, "CCAG-TCC"),
		placed("r4", 6, Forward, "CC"),
		placed("r5", 3, Forward, "G-TCC"),
	} {
		c.Assert(b.AddRead(r), check.Equals, nil)
	}
	return b
}

func (s *S) TestFixAbacusErrors(c *check.C) {
	b := abacusBuilder(c)
	var calls [][]Sequence
	al := alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
		calls = append(calls, seqs)
		return identity(seqs)
	})
	err := FixAbacusErrors(context.Background(), b, []coord.Range{coord.New(3, 3)}, 1, al, nil, nil)
	c.Assert(err, check.Equals, nil)

	c.Assert(calls, check.HasLen, 1)
	got := make(map[string]string)
	for _, s := range calls[0] {
		got[s.ID] = string(s.Seq)
	}
	c.Check(got, check.DeepEquals, map[string]string{"r1": "AG", "r2": "AG", "r3": "AG", "r5": "-G"})

	c.Check(string(b.Consensus), check.Equals, "CCAGTCC")
	c.Check(b.Quals, check.IsNil)

	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "CCAGTCC")
	for _, want := range []struct {
		id    string
		start int64
		seq   string
	}{
		{"r1", 0, "CCAGTCC"},
		{"r2", 0, "CCAGTCC"},
		{"r3", 0, "CCAGTCC"},
		{"r5", 3, "GTCC"},
		{"r4", 5, "CC"},
	} {
		r, ok := ctg.Read(want.id)
		c.Assert(ok, check.Equals, true, check.Commentf(want.id))
		c.Check(r.Start, check.Equals, want.start, check.Commentf(want.id))
		c.Check(r.Seq.String(), check.Equals, want.seq, check.Commentf(want.id))
	}
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"r1", "r2", "r3", "r5", "r4"})
	c.Check(FindAbacusErrors(ctg, 1), check.HasLen, 0)

	err = FixAbacusErrors(context.Background(), b, []coord.Range{coord.New(3, 3)}, 1, identity, nil, nil)
	c.Check(err, check.Equals, ErrBuilt)
}

func (s *S) TestFixAbacusErrorsAligner(c *check.C) {
	errAligner := errors.New("aligner failed")
	for _, test := range []struct {
		name string
		al   Aligner
	}{
		{
			name: "error",
			al: alignerFunc(func([]Sequence) ([]Sequence, error) {
				return nil, errAligner
			}),
		},
		{
			name: "altered bases",
			al: alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
				out, _ := identity(seqs)
				out[0].Seq = []byte("TT")
				return out, nil
			}),
		},
		{
			name: "missing sequence",
			al: alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
				out, _ := identity(seqs)
				return out[1:], nil
			}),
		},
		{
			name: "ragged",
			al: alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
				out, _ := identity(seqs)
				out[0].Seq = append(out[0].Seq, '-')
				return out, nil
			}),
		},
	} {
		b := abacusBuilder(c)
		err := FixAbacusErrors(context.Background(), b, []coord.Range{coord.New(3, 3)}, 1, test.al, nil, nil)
		c.Check(err, check.NotNil, check.Commentf(test.name))
		c.Check(string(b.Consensus), check.Equals, "CCAG-TCC", check.Commentf(test.name))
	}
}

func (s *S) TestFixAbacusErrorsGapColumns(c *check.C) {
	// The aligner introduces a column that no
	// read has a base in.
	b := abacusBuilder(c)
	al := alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
		out, _ := identity(seqs)
		for i := range out {
			out[i].Seq = append([]byte{'-'}, out[i].Seq...)
		}
		return out, nil
	})
	err := FixAbacusErrors(context.Background(), b, []coord.Range{coord.New(3, 3)}, 1, al, nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(string(b.Consensus), check.Equals, "CCAGTCC")
}

func (s *S) TestFixAbacusErrorsRangeEdges(c *check.C) {
	// Both reads span the whole realigned range, so
	// gap runs introduced at their ends are removed.
	b := NewContigBuilder("c", []byte("ACGTACGT"))
	for _, r := range []*ReadBuilder{
		placed("r1", 0, Forward, "ACGTACGT"),
		placed("r2", 0, Reverse, "ACGTACGT"),
	} {
		c.Assert(b.AddRead(r), check.Equals, nil)
	}
	rows := map[string]string{"r1": "-ACGTACGT", "r2": "ACGTACGT-"}
	al := alignerFunc(func(seqs []Sequence) ([]Sequence, error) {
		out := make([]Sequence, len(seqs))
		for i, s := range seqs {
			out[i] = Sequence{ID: s.ID, Seq: []byte(rows[s.ID])}
		}
		return out, nil
	})
	err := FixAbacusErrors(context.Background(), b, []coord.Range{coord.New(0, 7)}, 0, al, nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(b.Consensus, check.HasLen, 9)

	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	for _, want := range []struct {
		id    string
		start int64
	}{
		{"r1", 1},
		{"r2", 0},
	} {
		r, ok := ctg.Read(want.id)
		c.Assert(ok, check.Equals, true, check.Commentf(want.id))
		c.Check(r.Start, check.Equals, want.start, check.Commentf(want.id))
		c.Check(r.Seq.String(), check.Equals, "ACGTACGT", check.Commentf(want.id))
	}
}

func (s *S) TestFindAbacusErrors(c *check.C) {
	b := NewContigBuilder("c", []byte("CCAG*TCC"))
	c.Assert(b.AddRead(placed("r1", 0, Forward, "CCAG-TCC")), check.Equals, nil)
	c.Assert(b.AddRead(placed("r2", 0, Forward, "CCA-GTCC")), check.Equals, nil)
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)

	c.Check(FindAbacusErrors(ctg, 2), check.DeepEquals, []coord.Range{coord.New(3, 3)})
	c.Check(FindAbacusErrors(ctg, 3), check.HasLen, 0)
}

func (s *S) TestExecAligner(c *check.C) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		c.Skip("no cat executable")
	}
	in := []Sequence{{ID: "a", Seq: []byte("AC-G")}, {ID: "b", Seq: []byte("ACTG")}}
	out, err := ExecAligner{Path: cat, Args: []string{}}.Align(context.Background(), in)
	c.Assert(err, check.Equals, nil)
	c.Check(out, check.DeepEquals, in)

	fail, err := exec.LookPath("false")
	if err != nil {
		c.Skip("no false executable")
	}
	_, err = ExecAligner{Path: fail, Args: []string{}}.Align(context.Background(), in)
	c.Check(err, check.NotNil)
}
