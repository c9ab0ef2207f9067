// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/check.v1"

	"github.com/biogo/asm/coord"
)

func readIDs(reads []*Read) []string {
	ids := make([]string, len(reads))
	for i, r := range reads {
		ids[i] = r.ID
	}
	return ids
}

func (s *S) TestReader(c *check.C) {
	var buf bytes.Buffer
	r := NewReader(strings.NewReader(twoContigs), &Options{Logger: log.New(&buf, "", 0)})

	ctg, err := r.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(r.Header(), check.DeepEquals, &Header{Span: Span{Begin: 0, End: 7}, NumContigs: 2, NumReads: 4})
	c.Check(ctg.ID, check.Equals, "Contig1")
	c.Check(ctg.Consensus.String(), check.Equals, "ACGT-ACGTACG")
	c.Check(ctg.Quals, check.HasLen, 11)
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"read1", "read2"})

	r1, ok := ctg.Read("read1")
	c.Assert(ok, check.Equals, true)
	c.Check(r1.Start, check.Equals, int64(0))
	c.Check(r1.Dir, check.Equals, Forward)
	c.Check(r1.Seq.String(), check.Equals, "ACGT-ACGTACG")
	c.Check(r1.ValidRange, check.Equals, coord.New(0, 10))
	c.Check(r1.UngappedFullLength, check.Equals, int64(11))

	r2, ok := ctg.Read("read2")
	c.Assert(ok, check.Equals, true)
	c.Check(r2.Start, check.Equals, int64(2))
	c.Check(r2.End(), check.Equals, int64(11))
	c.Check(r2.Dir, check.Equals, Reverse)
	c.Check(r2.Seq.String(), check.Equals, "GT-ACGTACG")
	c.Check(r2.ValidRange, check.Equals, coord.New(0, 8))
	c.Check(r2.UngappedFullLength, check.Equals, int64(9))
	c.Check(r2.Phd.PhdName, check.Equals, "read2.phd.1")

	c.Check(readIDs(ctg.ReadsIn(coord.New(0, 1))), check.DeepEquals, []string{"read1"})
	c.Check(readIDs(ctg.ReadsIn(coord.New(1, 2))), check.DeepEquals, []string{"read1", "read2"})

	ctg, err = r.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.ID, check.Equals, "Contig2")
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"read3"})
	c.Check(r.Skipped(), check.DeepEquals, []Skip{{Contig: "Contig2", Read: "read4", Reason: AllLowQuality}})
	c.Check(buf.String(), check.Equals, "skipping read read4 in contig Contig2: entire read is low quality\n")
}

func (s *S) TestMemStoreFilters(c *check.C) {
	for _, test := range []struct {
		filter Filter
		want   []string
	}{
		{filter: nil, want: []string{"Contig1", "Contig2"}},
		{filter: Include("Contig2"), want: []string{"Contig2"}},
		{filter: Exclude("Contig2"), want: []string{"Contig1"}},
	} {
		ms, err := NewMemStore(strings.NewReader(twoContigs), &Options{Filter: test.filter})
		c.Assert(err, check.Equals, nil)
		ids, err := ms.IDs()
		c.Check(err, check.Equals, nil)
		c.Check(ids, check.DeepEquals, test.want)
		n, err := ms.Len()
		c.Check(err, check.Equals, nil)
		c.Check(n, check.Equals, len(test.want))
		c.Check(ms.Tags().Consensus, check.HasLen, 1)
	}

	ms, err := NewMemStore(strings.NewReader(twoContigs), &Options{Filter: Exclude("Contig1")})
	c.Assert(err, check.Equals, nil)
	ok, err := ms.Contains("Contig1")
	c.Check(err, check.Equals, nil)
	c.Check(ok, check.Equals, false)
	_, err = ms.Get("Contig1")
	c.Check(errors.Cause(err), check.Equals, ErrNotFound)
	ctg, err := ms.Get("Contig2")
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "AAAACCCC")

	c.Check(ms.Close(), check.Equals, nil)
	_, err = ms.Get("Contig2")
	c.Check(err, check.Equals, ErrClosed)
	_, err = ms.Contains("Contig2")
	c.Check(err, check.Equals, ErrClosed)
}

func (s *S) TestMemStoreDuplicate(c *check.C) {
	const dup = "AS 2 0\n\nCO c 4 0 0 U\nACGT\n\nCO c 4 0 0 U\nACGT\n\n"
	_, err := NewMemStore(strings.NewReader(dup), nil)
	c.Check(err, check.NotNil)
}

func openIndexed(c *check.C, data string) *IndexedStore {
	path := filepath.Join(c.MkDir(), "test.ace")
	c.Assert(os.WriteFile(path, []byte(data), 0o644), check.Equals, nil)
	is, err := OpenIndexed(path, nil)
	c.Assert(err, check.Equals, nil)
	return is
}

func (s *S) TestIndexedStore(c *check.C) {
	ms, err := NewMemStore(strings.NewReader(twoContigs), nil)
	c.Assert(err, check.Equals, nil)
	is := openIndexed(c, twoContigs)
	defer is.Close()

	ids, err := is.IDs()
	c.Assert(err, check.Equals, nil)
	c.Check(ids, check.DeepEquals, []string{"Contig1", "Contig2"})
	c.Check(is.Skipped(), check.DeepEquals, []Skip{{Contig: "Contig2", Read: "read4", Reason: AllLowQuality}})
	c.Check(is.Tags().WholeAssembly, check.HasLen, 1)

	for _, id := range ids {
		want, err := ms.Get(id)
		c.Assert(err, check.Equals, nil)
		got, err := is.Get(id)
		c.Assert(err, check.Equals, nil)
		c.Check(got, check.DeepEquals, want)

		rids, err := is.ReadIDs(id)
		c.Assert(err, check.Equals, nil)
		c.Check(rids, check.DeepEquals, readIDs(want.Reads))
		for _, r := range want.Reads {
			got, err := is.Read(id, r.ID)
			c.Assert(err, check.Equals, nil)
			c.Check(got, check.DeepEquals, r)
		}
	}

	_, err = is.Read("Contig2", "read4")
	c.Check(errors.Cause(err), check.Equals, ErrNotFound)
	_, err = is.Get("Contig9")
	c.Check(errors.Cause(err), check.Equals, ErrNotFound)

	it, err := is.ReadIterator("Contig1")
	c.Assert(err, check.Equals, nil)
	var got []string
	for it.Next() {
		got = append(got, it.Read().ID)
	}
	c.Check(it.Error(), check.Equals, nil)
	c.Check(got, check.DeepEquals, []string{"read1", "read2"})
	c.Check(it.Close(), check.Equals, nil)
}

func (s *S) TestIndexedStoreTrimmed(c *check.C) {
	// The consensus extends beyond the single read
	// and is trimmed to the read's extent.
	const data = `AS 1 1

CO c 10 1 0 U
NNACGTACNN

BQ
 5 5 30 30 30 30 30 30 5 5

AF r U 3

RD r 6 0 0
ACGTAC

QA 1 6 1 6
DS CHROMAT_FILE: r PHD_FILE: r.phd.1 TIME: Mon Jan 2 15:04:05 2006
`
	is := openIndexed(c, data)
	defer is.Close()
	ctg, err := is.Get("c")
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGTAC")
	c.Check(ctg.Quals, check.DeepEquals, []byte{30, 30, 30, 30, 30, 30})
	r, err := is.Read("c", "r")
	c.Assert(err, check.Equals, nil)
	c.Check(r.Start, check.Equals, int64(0))
	c.Check(r, check.DeepEquals, ctg.Reads[0])
}

func (s *S) TestIndexedStoreClosed(c *check.C) {
	is := openIndexed(c, twoContigs)

	exhausted, err := is.ReadIterator("Contig1")
	c.Assert(err, check.Equals, nil)
	for exhausted.Next() {
	}
	c.Check(exhausted.Error(), check.Equals, nil)

	pending, err := is.ReadIterator("Contig1")
	c.Assert(err, check.Equals, nil)
	c.Assert(pending.Next(), check.Equals, true)
	c.Check(pending.Read().ID, check.Equals, "read1")

	unstarted, err := is.ReadIterator("Contig1")
	c.Assert(err, check.Equals, nil)

	c.Assert(is.Close(), check.Equals, nil)

	c.Check(exhausted.Next(), check.Equals, false)
	c.Check(exhausted.Error(), check.Equals, nil)

	for _, it := range []*ReadIterator{pending, unstarted} {
		c.Check(it.Next(), check.Equals, false)
		c.Check(it.Error(), check.Equals, ErrClosed)
		c.Check(it.Next(), check.Equals, false)
		c.Check(it.Error(), check.Equals, ErrClosed)
		c.Check(it.Close(), check.Equals, nil)
	}

	_, err = is.ReadIterator("Contig1")
	c.Check(err, check.Equals, ErrClosed)
	_, err = is.Get("Contig1")
	c.Check(err, check.Equals, ErrClosed)
	_, err = is.Read("Contig1", "read1")
	c.Check(err, check.Equals, ErrClosed)
	_, err = is.Len()
	c.Check(err, check.Equals, ErrClosed)
	c.Check(is.Close(), check.Equals, nil)
}

// unordered has AF records in a different order to its RD records and a
// read placed beyond the end of the consensus.
const unordered = `AS 1 3

CO c 6 3 0 U
ACGTAC

BQ
 30 30 30 30 30 30

AF b U 2
AF x U 10
AF a U 1

RD a 6 0 0
ACGTAC

QA 1 6 1 6
DS CHROMAT_FILE: a PHD_FILE: a.phd.1 TIME: Mon Jan 2 15:04:05 2006

RD b 4 0 0
CGTA

QA 1 4 1 4
DS CHROMAT_FILE: b PHD_FILE: b.phd.1 TIME: Mon Jan 2 15:04:05 2006

RD x 2 0 0
GG

QA 1 2 1 2
DS CHROMAT_FILE: x PHD_FILE: x.phd.1 TIME: Mon Jan 2 15:04:05 2006
`

func (s *S) TestReadOutsideConsensus(c *check.C) {
	want := []Skip{{Contig: "c", Read: "x", Reason: OutsideConsensus}}

	var buf bytes.Buffer
	ms, err := NewMemStore(strings.NewReader(unordered), &Options{Logger: log.New(&buf, "", 0)})
	c.Assert(err, check.Equals, nil)
	ctg, err := ms.Get("c")
	c.Assert(err, check.Equals, nil)
	c.Check(ctg.Consensus.String(), check.Equals, "ACGTAC")
	c.Check(readIDs(ctg.Reads), check.DeepEquals, []string{"a", "b"})
	c.Check(ms.Skipped(), check.DeepEquals, want)
	c.Check(buf.String(), check.Equals, "skipping read x in contig c: read lies outside the consensus\n")

	is := openIndexed(c, unordered)
	defer is.Close()
	c.Check(is.Skipped(), check.DeepEquals, want)
	got, err := is.Get("c")
	c.Assert(err, check.Equals, nil)
	c.Check(got, check.DeepEquals, ctg)
	_, err = is.Read("c", "x")
	c.Check(errors.Cause(err), check.Equals, ErrNotFound)
}

func (s *S) TestIndexedStoreReadOrder(c *check.C) {
	is := openIndexed(c, unordered)
	defer is.Close()

	ids, err := is.ReadIDs("c")
	c.Assert(err, check.Equals, nil)
	c.Check(ids, check.DeepEquals, []string{"b", "a"})

	it, err := is.ReadIterator("c")
	c.Assert(err, check.Equals, nil)
	var got []string
	for it.Next() {
		got = append(got, it.Read().ID)
	}
	c.Check(it.Error(), check.Equals, nil)
	c.Check(it.Close(), check.Equals, nil)
	c.Check(got, check.DeepEquals, []string{"b", "a"})
}
