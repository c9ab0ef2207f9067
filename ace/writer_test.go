// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bytes"
	"os"
	"strings"

	"gopkg.in/check.v1"

	"github.com/biogo/asm/coord"
)

func repeatQual(q byte, n int) []byte {
	return bytes.Repeat([]byte{q}, n)
}

// flankedContig returns a contig with a forward and a reverse read whose
// basecalls extend beyond their valid ranges, and the basecalls.
func flankedContig(c *check.C) (*Contig, PhdMap) {
	q1 := repeatQual(30, 14)
	q1[0] = 10
	q1[2] = 10
	phds := PhdMap{
		"r1": {Bases: []byte("GGACGTACGTACTT"), Quals: q1, Time: dsTime},
		// Reverse complement of CTACGTACAA.
		"r2": {Bases: []byte("TTGTACGTAG"), Quals: repeatQual(30, 10), Time: dsTime},
	}

	b := NewContigBuilder("c1", []byte("ACGTACGTAC"))
	c.Assert(b.AddRead(&ReadBuilder{
		ID:                 "r1",
		Bases:              []byte("ACGTACGTAC"),
		Start:              0,
		Dir:                Forward,
		ValidRange:         coord.New(2, 11),
		UngappedFullLength: 14,
	}), check.Equals, nil)
	c.Assert(b.AddRead(&ReadBuilder{
		ID:                 "r2",
		Bases:              []byte("TACGTAC"),
		Start:              3,
		Dir:                Reverse,
		ValidRange:         coord.New(2, 8),
		UngappedFullLength: 10,
	}), check.Equals, nil)
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)
	return ctg, phds
}

func (s *S) TestWriteFlanks(c *check.C) {
	ctg, phds := flankedContig(c)
	dir := c.MkDir()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{Phds: phds, TempDir: dir})
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Write(ctg), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
	c.Check(w.Write(ctg), check.Equals, ErrClosed)
	c.Check(w.Close(), check.Equals, ErrClosed)

	entries, err := os.ReadDir(dir)
	c.Assert(err, check.Equals, nil)
	c.Check(entries, check.HasLen, 0)

	c.Check(buf.String(), check.Equals, `AS 1 2

CO c1 10 2 0 U
ACGTACGTAC

BQ
 99 99 99 99 99 99 99 99 99 99

AF r1 U -1
AF r2 C 3

RD r1 14 0 0
gGaCGTACGTACTT

QA 3 12 3 12
DS CHROMAT_FILE: r1 PHD_FILE: r1.phd.1 TIME: Mon Jan 2 15:04:05 2006

RD r2 10 0 0
CTACGTACAA

QA 2 8 2 8
DS CHROMAT_FILE: r2 PHD_FILE: r2.phd.1 TIME: Mon Jan 2 15:04:05 2006

`)

	ms, err := NewMemStore(&buf, &Options{Phds: phds})
	c.Assert(err, check.Equals, nil)
	got, err := ms.Get("c1")
	c.Assert(err, check.Equals, nil)
	c.Check(got.Consensus.String(), check.Equals, ctg.Consensus.String())
	c.Check(got.Quals, check.DeepEquals, repeatQual(99, 10))
	c.Assert(got.Reads, check.HasLen, 2)
	for i, r := range got.Reads {
		want := ctg.Reads[i]
		c.Check(r.ID, check.Equals, want.ID)
		c.Check(r.Start, check.Equals, want.Start)
		c.Check(r.Dir, check.Equals, want.Dir)
		c.Check(r.Seq.String(), check.Equals, want.Seq.String())
		c.Check(r.ValidRange, check.Equals, want.ValidRange)
		c.Check(r.UngappedFullLength, check.Equals, want.UngappedFullLength)
		c.Check(r.Phd.TraceName, check.Equals, want.ID)
		c.Check(r.Phd.Time.Equal(dsTime), check.Equals, true)
	}
}

func (s *S) TestWriteWithoutPhds(c *check.C) {
	ctg, _ := flankedContig(c)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{TempDir: c.MkDir()})
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Write(ctg), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
	c.Check(strings.Contains(buf.String(), "RD r1 14 0 0\nNNACGTACGTACNN\n"), check.Equals, true)
	c.Check(strings.Contains(buf.String(), "RD r2 10 0 0\nNTACGTACNN\n"), check.Equals, true)
}

func (s *S) TestWriteRoundTrip(c *check.C) {
	want, err := NewMemStore(strings.NewReader(twoContigs), nil)
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{TempDir: c.MkDir()})
	c.Assert(err, check.Equals, nil)
	ids, err := want.IDs()
	c.Assert(err, check.Equals, nil)
	for _, id := range ids {
		ctg, err := want.Get(id)
		c.Assert(err, check.Equals, nil)
		c.Assert(w.Write(ctg), check.Equals, nil)
	}
	c.Assert(w.WriteTags(want.Tags()), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	got, err := NewMemStore(&buf, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(got.Header().NumContigs, check.Equals, 2)
	c.Check(got.Header().NumReads, check.Equals, 3)
	for _, id := range ids {
		g, err := got.Get(id)
		c.Assert(err, check.Equals, nil)
		wc, err := want.Get(id)
		c.Assert(err, check.Equals, nil)
		c.Check(g, check.DeepEquals, wc)
	}

	gt, wt := got.Tags(), want.Tags()
	c.Assert(gt.Consensus, check.HasLen, 1)
	c.Check(gt.Consensus[0].Range, check.Equals, wt.Consensus[0].Range)
	c.Check(gt.Consensus[0].Comments, check.DeepEquals, wt.Consensus[0].Comments)
	c.Assert(gt.Read, check.HasLen, 1)
	c.Check(gt.Read[0].Range, check.Equals, wt.Read[0].Range)
	c.Check(gt.Read[0].Time.Equal(wt.Read[0].Time), check.Equals, true)
	c.Assert(gt.WholeAssembly, check.HasLen, 1)
	c.Check(gt.WholeAssembly[0].Data, check.DeepEquals, wt.WholeAssembly[0].Data)
}

func (s *S) TestWriteLowQualityConsensus(c *check.C) {
	b := NewContigBuilder("c", []byte("AC*GT"))
	b.Quals = []byte{10, 40, 20, 50}
	c.Assert(b.AddRead(&ReadBuilder{
		ID:                 "r",
		Bases:              []byte("AC-GT"),
		ValidRange:         coord.New(0, 3),
		UngappedFullLength: 4,
	}), check.Equals, nil)
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{TempDir: c.MkDir()})
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Write(ctg), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
	c.Check(strings.Contains(buf.String(), "CO c 5 1 0 U\naC*gT\n\nBQ\n 10 40 20 50\n"), check.Equals, true,
		check.Commentf("%s", buf.String()))
}

func (s *S) TestWriteWrapping(c *check.C) {
	cons := strings.Repeat("ACGT", 30)
	b := NewContigBuilder("long", []byte(cons))
	ctg, err := b.Build()
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{TempDir: c.MkDir()})
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Write(ctg), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	lines := strings.Split(buf.String(), "\n")
	c.Check(lines[2], check.Equals, "CO long 120 0 0 U")
	c.Check(lines[3], check.Equals, cons[:50])
	c.Check(lines[4], check.Equals, cons[50:100])
	c.Check(lines[5], check.Equals, cons[100:])
	c.Check(lines[8], check.Equals, strings.Repeat(" 99", 50))
	c.Check(lines[10], check.Equals, strings.Repeat(" 99", 20))

	got, err := NewReader(&buf, nil).Read()
	c.Assert(err, check.Equals, nil)
	c.Check(got.Consensus.String(), check.Equals, cons)
}
