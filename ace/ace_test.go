// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kortschak/utter"
	"gopkg.in/check.v1"

	"github.com/biogo/asm/coord"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

const twoContigs = `AS 2 4

CO Contig1 12 2 1 U
ACGT*ACGTACG

BQ
 30 30 30 30 30 30 30 30 30 30 30

AF read1 U 1
AF read2 C 3
BS 1 12 read1

RD read1 12 0 0
ACGT*ACGTACG

QA 1 12 1 12
DS CHROMAT_FILE: read1 PHD_FILE: read1.phd.1 TIME: Mon Jan 2 15:04:05 2006

RD read2 10 0 0
GT*ACGTACG

QA 1 10 1 10
DS CHROMAT_FILE: read2 PHD_FILE: read2.phd.1 TIME: Mon Jan 2 15:04:05 2006

CO Contig2 8 2 0 U
AAAACCCC

BQ
 20 20 20 20 20 20 20 20

AF read3 U 1
AF read4 U 1

RD read3 8 0 0
AAAACCCC

QA 1 8 1 8
DS CHROMAT_FILE: read3 PHD_FILE: read3.phd.1 TIME: Mon Jan 2 15:04:05 2006

RD read4 8 0 0
AAAACCCC

QA -1 -1 1 8
DS CHROMAT_FILE: read4 PHD_FILE: read4.phd.1 TIME: Mon Jan 2 15:04:05 2006

CT{
Contig1 comment consed 2 5 060102:150405
COMMENT{
a note
C}
}

RT{
read1 polymorphism consed 3 4 060102:150405
}

WA{
phrap_params phrap 060102:150405
phrap standard.fasta
}
`

var dsTime = time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)

func eventKinds(c *check.C, data string) []string {
	p := NewParser(strings.NewReader(data))
	var kinds []string
	for {
		e, err := p.Next()
		if err == io.EOF {
			break
		}
		c.Assert(err, check.Equals, nil)
		switch e := e.(type) {
		case *Header:
			kinds = append(kinds, "AS")
		case *ContigStart:
			kinds = append(kinds, "CO "+e.ID)
		case *AssembledFrom:
			kinds = append(kinds, "AF "+e.ID)
		case *ReadRecord:
			kinds = append(kinds, "RD "+e.ID)
		case *ContigEnd:
			kinds = append(kinds, "END "+e.ID)
		case *ConsensusTag:
			kinds = append(kinds, "CT")
		case *ReadTag:
			kinds = append(kinds, "RT")
		case *WholeAssemblyTag:
			kinds = append(kinds, "WA")
		default:
			c.Fatalf("unexpected event type %T", e)
		}
	}
	return kinds
}

func (s *S) TestParserEvents(c *check.C) {
	c.Check(eventKinds(c, twoContigs), check.DeepEquals, []string{
		"AS",
		"CO Contig1", "AF read1", "AF read2", "RD read1", "RD read2", "END Contig1",
		"CO Contig2", "AF read3", "AF read4", "RD read3", "RD read4", "END Contig2",
		"CT", "RT", "WA",
	})
}

func (s *S) TestParserRecords(c *check.C) {
	p := NewParser(strings.NewReader(twoContigs))
	e, err := p.Next()
	c.Assert(err, check.Equals, nil)
	c.Check(e, check.DeepEquals, &Header{Span: Span{Begin: 0, End: 7}, NumContigs: 2, NumReads: 4})

	e, err = p.Next()
	c.Assert(err, check.Equals, nil)
	cs := e.(*ContigStart)
	c.Check(cs.Begin, check.Equals, int64(8))
	c.Check(cs.End, check.Equals, int64(strings.Index(twoContigs, "AF read1")))
	c.Check(string(cs.Consensus), check.Equals, "ACGT-ACGTACG")
	c.Check(cs.NumReads, check.Equals, 2)
	c.Check(cs.NumSegments, check.Equals, 1)
	c.Check(cs.Complemented, check.Equals, false)
	c.Check(len(cs.Quals), check.Equals, 11)

	e, err = p.Next()
	c.Assert(err, check.Equals, nil)
	c.Check(e.(*AssembledFrom).Offset, check.Equals, int64(1))
	e, err = p.Next()
	c.Assert(err, check.Equals, nil)
	af := e.(*AssembledFrom)
	c.Check(af.Dir, check.Equals, Reverse)
	c.Check(af.Offset, check.Equals, int64(3))

	e, err = p.Next()
	c.Assert(err, check.Equals, nil)
	rd := e.(*ReadRecord)
	c.Check(rd.Begin, check.Equals, int64(strings.Index(twoContigs, "RD read1")))
	c.Check(twoContigs[rd.Begin:rd.End], check.Equals, `RD read1 12 0 0
ACGT*ACGTACG

QA 1 12 1 12
DS CHROMAT_FILE: read1 PHD_FILE: read1.phd.1 TIME: Mon Jan 2 15:04:05 2006
`)
	c.Check(string(rd.Bases), check.Equals, "ACGT-ACGTACG")
	c.Check(rd.HasDS, check.Equals, true)
	c.Check(rd.Phd.TraceName, check.Equals, "read1")
	c.Check(rd.Phd.PhdName, check.Equals, "read1.phd.1")
	c.Check(rd.Phd.Time.Equal(dsTime), check.Equals, true)
}

func (s *S) TestParserTags(c *check.C) {
	r := NewReader(strings.NewReader(twoContigs), nil)
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		c.Assert(err, check.Equals, nil)
	}
	tags := r.Tags()
	c.Assert(len(tags.Consensus), check.Equals, 1)
	ct := tags.Consensus[0]
	c.Check(ct.Contig, check.Equals, "Contig1")
	c.Check(ct.Type, check.Equals, "comment")
	c.Check(ct.Program, check.Equals, "consed")
	c.Check(ct.Range, check.Equals, coord.New(1, 4))
	c.Check(ct.Time.Equal(dsTime), check.Equals, true)
	c.Check(ct.Comments, check.DeepEquals, []string{"a note"})
	c.Check(ct.Data, check.HasLen, 0)

	c.Assert(len(tags.Read), check.Equals, 1)
	c.Check(tags.Read[0].Read, check.Equals, "read1")
	c.Check(tags.Read[0].Range, check.Equals, coord.New(2, 3))

	c.Assert(len(tags.WholeAssembly), check.Equals, 1)
	c.Check(tags.WholeAssembly[0].Type, check.Equals, "phrap_params")
	c.Check(tags.WholeAssembly[0].Data, check.DeepEquals, []string{"phrap standard.fasta"})
}

func (s *S) TestParserEmptyContig(c *check.C) {
	const data = `AS 1 0

CO Contig3 4 0 0 C
ACGT

BQ
 10 10 10 10
`
	c.Check(eventKinds(c, data), check.DeepEquals, []string{"AS", "CO Contig3", "END Contig3"})

	r := NewReader(strings.NewReader(data), nil)
	ctg, err := r.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGT")
	c.Check(ctg.Complemented, check.Equals, true)
	c.Check(ctg.Quals, check.DeepEquals, []byte{10, 10, 10, 10})
	c.Check(ctg.Reads, check.HasLen, 0)
	_, err = r.Read()
	c.Check(err, check.Equals, io.EOF)
}

func (s *S) TestParserErrors(c *check.C) {
	for _, test := range []struct {
		name string
		data string
	}{
		{name: "no header", data: "CO c 4 0 0 U\nACGT\n"},
		{name: "short consensus", data: "AS 1 0\n\nCO c 5 0 0 U\nACGT\n\n"},
		{name: "bad direction", data: "AS 1 1\n\nCO c 4 1 0 U\nACGT\n\nAF r X 1\n"},
		{name: "missing QA", data: "AS 1 1\n\nCO c 4 1 0 U\nACGT\n\nAF r U 1\n\nRD r 4 0 0\nACGT\n\nAF s U 1\n"},
		{name: "unterminated tag", data: "AS 0 0\n\nWA{\nx y 060102:150405\n"},
		{name: "invalid base", data: "AS 1 0\n\nCO c 4 0 0 U\nAC1T\n\n"},
	} {
		p := NewParser(strings.NewReader(test.data))
		var err error
		for err == nil {
			_, err = p.Next()
		}
		_, ok := err.(*FormatError)
		c.Check(ok, check.Equals, true, check.Commentf("%s: %v", test.name, err))
	}

	_, err := NewParser(strings.NewReader("")).Next()
	c.Check(err, check.Equals, ErrNoHeader)

	r := NewReader(strings.NewReader("AS 1 1\n\nCO c 4 1 0 U\nACGT\n\nRD r 4 0 0\nACGT\n\nQA 1 4 1 4\n"), nil)
	_, err = r.Read()
	_, ok := err.(*FormatError)
	c.Check(ok, check.Equals, true, check.Commentf("RD without AF: %v", err))
}

func (s *S) TestPlaceRead(c *check.C) {
	for _, test := range []struct {
		name   string
		af     AssembledFrom
		rd     ReadRecord
		reason SkipReason
		start  int64
		valid  coord.Range
	}{
		{
			name:   "all low quality",
			af:     AssembledFrom{ID: "r", Offset: 1},
			rd:     ReadRecord{ID: "r", Bases: []byte("ACGT"), QualBegin: -1, QualEnd: -1, AlignBegin: 1, AlignEnd: 4},
			reason: AllLowQuality,
		},
		{
			name:   "negative",
			af:     AssembledFrom{ID: "r", Offset: 1},
			rd:     ReadRecord{ID: "r", Bases: []byte("ACGT"), QualBegin: 3, QualEnd: 2, AlignBegin: 1, AlignEnd: 4},
			reason: NegativeValidRange,
		},
		{
			name:   "disjoint",
			af:     AssembledFrom{ID: "r", Offset: 1},
			rd:     ReadRecord{ID: "r", Bases: []byte("ACGTACGT"), QualBegin: 1, QualEnd: 3, AlignBegin: 5, AlignEnd: 8},
			reason: NoHighQualityAlignmentIntersection,
		},
		{
			name:   "only gaps",
			af:     AssembledFrom{ID: "r", Offset: 1},
			rd:     ReadRecord{ID: "r", Bases: []byte("AC--GT"), QualBegin: 3, QualEnd: 4, AlignBegin: 1, AlignEnd: 6},
			reason: NoHighQualityAlignmentIntersection,
		},
		{
			name:  "intersection",
			af:    AssembledFrom{ID: "r", Offset: 5},
			rd:    ReadRecord{ID: "r", Bases: []byte("acgtacgt"), QualBegin: 2, QualEnd: 7, AlignBegin: 3, AlignEnd: 8},
			start: 6,
			valid: coord.New(2, 6),
		},
		{
			name:  "reverse",
			af:    AssembledFrom{ID: "r", Dir: Reverse, Offset: 1},
			rd:    ReadRecord{ID: "r", Bases: []byte("ACGTACGT"), QualBegin: 2, QualEnd: 4, AlignBegin: 1, AlignEnd: 8},
			start: 1,
			valid: coord.New(4, 6),
		},
	} {
		rb, reason, err := placeRead(&test.af, &test.rd, nil)
		c.Assert(err, check.Equals, nil, check.Commentf(test.name))
		c.Check(reason, check.Equals, test.reason, check.Commentf(test.name))
		if test.reason != 0 {
			c.Check(rb, check.IsNil, check.Commentf(test.name))
			continue
		}
		c.Assert(rb, check.NotNil, check.Commentf(test.name))
		c.Check(rb.Start, check.Equals, test.start, check.Commentf(test.name))
		c.Check(rb.ValidRange, check.Equals, test.valid, check.Commentf("%s: %s", test.name, utter.Sdump(rb)))
		c.Check(bytes.ToUpper(rb.Bases), check.DeepEquals, rb.Bases, check.Commentf(test.name))
	}
}
