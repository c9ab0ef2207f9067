// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

// Sequence is a named sequence passed to and returned by an Aligner.
// Gaps are represented by nuc.Gap.
type Sequence struct {
	ID  string
	Seq []byte
}

// Aligner performs multiple sequence alignment.
type Aligner interface {
	// Align returns the gapped alignment of seqs. The
	// returned sequences must include every input ID,
	// in any order, and have equal lengths.
	Align(ctx context.Context, seqs []Sequence) ([]Sequence, error)
}

// ExecAligner is an Aligner that runs an external program. The sequences
// are written to the program's standard input as FASTA and the alignment
// is read from its standard output as FASTA. The default arguments are
// suitable for muscle.
type ExecAligner struct {
	Path string
	Args []string
}

// Align implements the Aligner interface.
func (a ExecAligner) Align(ctx context.Context, seqs []Sequence) ([]Sequence, error) {
	args := a.Args
	if args == nil {
		args = []string{"-quiet"}
	}
	var in, out, stderr bytes.Buffer
	writeFASTA(&in, seqs)
	cmd := exec.CommandContext(ctx, a.Path, args...)
	cmd.Stdin = &in
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return nil, errors.Wrapf(err, "ace: aligner %s failed: %s", a.Path, bytes.TrimSpace(stderr.Bytes()))
	}
	aligned, err := readFASTA(&out)
	if err != nil {
		return nil, errors.Wrapf(err, "ace: failed to read %s output", a.Path)
	}
	return aligned, nil
}

func writeFASTA(w io.Writer, seqs []Sequence) {
	for _, s := range seqs {
		fmt.Fprintf(w, ">%s\n%s\n", s.ID, s.Seq)
	}
}

func readFASTA(r io.Reader) ([]Sequence, error) {
	var seqs []Sequence
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 1<<24)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			f := strings.Fields(string(line[1:]))
			if len(f) == 0 {
				return nil, errors.New("missing sequence name")
			}
			seqs = append(seqs, Sequence{ID: f[0]})
			continue
		}
		if len(seqs) == 0 {
			return nil, errors.New("sequence data before name")
		}
		s := &seqs[len(seqs)-1]
		for _, b := range line {
			if nuc.IsGap(b) || b == '.' {
				b = nuc.Gap
			}
			s.Seq = append(s.Seq, b)
		}
	}
	return seqs, sc.Err()
}

// abacusRead is a read taking part in the realignment of a range.
type abacusRead struct {
	rb *ReadBuilder

	// fragment is the ungapped part of the read
	// within the range.
	fragment []byte

	// startsIn and endsIn report whether the read
	// starts and ends within the range, including
	// at its edges. Gap runs at those read ends are
	// trimmed after realignment.
	startsIn, endsIn bool

	// padLeft reports whether the fragment is short
	// of the left edge of the range and so is padded
	// on the left for alignment.
	padLeft bool

	// begin and end delimit the part of the
	// realigned range held by the read.
	begin, end int
}

// FixAbacusErrors realigns the reads of the contig being built by b within
// each of the flagged ranges and recalls the consensus of the realigned
// ranges. The ranges are given in ungapped consensus coordinates and are
// extended by flank gapped positions either side. Read qualities for the
// consensus call are taken from qs, which may be nil. If caller is nil,
// consensus.MostFrequent is used.
//
// The consensus qualities of b are discarded when any range is realigned.
func FixAbacusErrors(ctx context.Context, b *ContigBuilder, errs []coord.Range, flank int64, al Aligner, caller consensus.Caller, qs QualityStore) error {
	if b.built {
		return ErrBuilt
	}
	if caller == nil {
		caller = consensus.MostFrequent
	}
	n := int64(len(b.Consensus))
	if n == 0 {
		return nil
	}
	cons := nuc.NewSeq(b.Consensus)
	ul := int64(cons.UngappedLen())
	var gapped []coord.Range
	for _, r := range errs {
		if r.IsEmpty() || r.End() < 0 || r.Begin() >= ul {
			continue
		}
		begin := int64(cons.GappedOffset(int(max64(r.Begin(), 0))))
		end := int64(cons.GappedOffset(int(min64(r.End(), ul-1))))
		gapped = append(gapped, coord.New(max64(begin-flank, 0), min64(end+flank, n-1)))
	}
	merged := coord.Merge(gapped)
	for i := len(merged) - 1; i >= 0; i-- {
		err := fixRange(ctx, b, merged[i], al, caller, qs)
		if err != nil {
			return errors.Wrapf(err, "ace: failed to fix abacus error at %v in contig %s", merged[i], b.ID)
		}
	}
	return nil
}

// fixRange realigns the reads of b within the gapped range r.
func fixRange(ctx context.Context, b *ContigBuilder, r coord.Range, al Aligner, caller consensus.Caller, qs QualityStore) error {
	var (
		reads   []*abacusRead
		longest int
	)
	for _, rb := range b.Reads() {
		if !rb.Range().Intersects(r) {
			continue
		}
		within := rb.Range().Intersection(r)
		sub := rb.Bases[within.Begin()-rb.Start : within.End()-rb.Start+1]
		ar := &abacusRead{
			rb:       rb,
			startsIn: rb.Start >= r.Begin(),
			endsIn:   rb.End() <= r.End(),
			padLeft:  rb.Start > r.Begin(),
		}
		for _, c := range sub {
			if c != nuc.Gap {
				ar.fragment = append(ar.fragment, c)
			}
		}
		if len(ar.fragment) > longest {
			longest = len(ar.fragment)
		}
		reads = append(reads, ar)
	}
	if longest == 0 {
		return nil
	}

	var seqs []Sequence
	for _, ar := range reads {
		if len(ar.fragment) == 0 {
			continue
		}
		pad := bytes.Repeat([]byte{nuc.Gap}, longest-len(ar.fragment))
		var s []byte
		if ar.padLeft {
			s = append(pad, ar.fragment...)
		} else {
			s = append(append(s, ar.fragment...), pad...)
		}
		seqs = append(seqs, Sequence{ID: ar.rb.ID, Seq: s})
	}
	aligned, err := al.Align(ctx, seqs)
	if err != nil {
		return err
	}
	rows, width, err := alignedRows(seqs, aligned)
	if err != nil {
		return err
	}

	// Splice the realigned fragments into the reads.
	for _, ar := range reads {
		row, ok := rows[ar.rb.ID]
		if !ok {
			row = bytes.Repeat([]byte{nuc.Gap}, width)
		}
		ar.begin, ar.end = 0, width
		if ar.startsIn {
			for ar.begin < ar.end && row[ar.begin] == nuc.Gap {
				ar.begin++
			}
		}
		if ar.endsIn {
			for ar.end > ar.begin && row[ar.end-1] == nuc.Gap {
				ar.end--
			}
		}
		rb := ar.rb
		var bases []byte
		if !ar.startsIn {
			bases = append(bases, rb.Bases[:r.Begin()-rb.Start]...)
		}
		bases = append(bases, row[ar.begin:ar.end]...)
		if !ar.endsIn {
			bases = append(bases, rb.Bases[r.End()-rb.Start+1:]...)
		}
		if ar.startsIn {
			rb.Start = r.Begin() + int64(ar.begin)
		}
		rb.Bases = bases
	}

	// Call the consensus of the realigned range.
	slices := make([]consensus.Slice, width)
	for _, ar := range reads {
		q, err := qualitiesFor(ar.rb.Build(), qs)
		if err != nil {
			return err
		}
		for col := ar.begin; col < ar.end; col++ {
			i := r.Begin() + int64(col) - ar.rb.Start
			slices[col] = append(slices[col], consensus.Element{ID: ar.rb.ID, Base: ar.rb.Bases[i], Qual: q[i], Dir: ar.rb.Dir})
		}
	}
	called := make([]byte, width)
	for col, s := range slices {
		if len(s) == 0 {
			called[col] = nuc.Gap
			continue
		}
		called[col] = caller.Call(s).Base
	}

	realigned := make(map[string]bool, len(reads))
	for _, ar := range reads {
		realigned[ar.rb.ID] = true
	}
	delta := int64(width) - r.Len()
	for id, rb := range b.reads {
		if !realigned[id] && rb.Start > r.End() {
			rb.Start += delta
		}
	}
	cons := make([]byte, 0, int64(len(b.Consensus))+delta)
	cons = append(cons, b.Consensus[:r.Begin()]...)
	cons = append(cons, called...)
	cons = append(cons, b.Consensus[r.End()+1:]...)
	b.Consensus = cons
	b.Quals = nil
	return nil
}

// alignedRows validates the aligner output against its input, returning
// the aligned rows by ID with all-gap columns removed and the width of
// the alignment.
func alignedRows(in, out []Sequence) (map[string][]byte, int, error) {
	if len(out) != len(in) {
		return nil, 0, errors.Errorf("aligner returned %d sequences for %d inputs", len(out), len(in))
	}
	want := make(map[string][]byte, len(in))
	for _, s := range in {
		want[s.ID] = s.Seq
	}
	rows := make(map[string][]byte, len(out))
	width := -1
	for _, s := range out {
		if _, ok := want[s.ID]; !ok {
			return nil, 0, errors.Errorf("aligner returned unknown sequence %s", s.ID)
		}
		if _, dup := rows[s.ID]; dup {
			return nil, 0, errors.Errorf("aligner returned duplicate sequence %s", s.ID)
		}
		if width >= 0 && len(s.Seq) != width {
			return nil, 0, errors.Errorf("aligner returned ragged alignment for %s", s.ID)
		}
		width = len(s.Seq)
		row := make([]byte, len(s.Seq))
		for i, c := range s.Seq {
			if nuc.IsGap(c) {
				c = nuc.Gap
			} else if 'a' <= c && c <= 'z' {
				c -= 'a' - 'A'
			}
			row[i] = c
		}
		rows[s.ID] = row
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var keep []int
	for col := 0; col < width; col++ {
		for _, id := range ids {
			if rows[id][col] != nuc.Gap {
				keep = append(keep, col)
				break
			}
		}
	}
	for _, id := range ids {
		row := rows[id]
		packed := make([]byte, len(keep))
		for i, col := range keep {
			packed[i] = row[col]
		}
		if !bytes.Equal(ungapped(packed), ungapped(want[id])) {
			return nil, 0, errors.Errorf("aligner altered the bases of %s", id)
		}
		rows[id] = packed
	}
	return rows, len(keep), nil
}

func ungapped(b []byte) []byte {
	u := make([]byte, 0, len(b))
	for _, c := range b {
		if c != nuc.Gap {
			if 'a' <= c && c <= 'z' {
				c -= 'a' - 'A'
			}
			u = append(u, c)
		}
	}
	return u
}

// FindAbacusErrors returns the ungapped consensus ranges of c that look
// like abacus errors: runs of at least minLen columns in which reads
// covering the column disagree on whether it is a gap. Only columns
// covered by at least two reads are considered.
func FindAbacusErrors(c *Contig, minLen int) []coord.Range {
	n := c.Len()
	if n == 0 {
		return nil
	}
	gaps := make([]int, n)
	cover := make([]int, n)
	for _, r := range c.Reads {
		for i, b := range r.Seq.Bytes() {
			col := r.Start + int64(i)
			if col < 0 || col >= int64(n) {
				continue
			}
			cover[col]++
			if b == nuc.Gap {
				gaps[col]++
			}
		}
	}
	mixed := func(i int) bool {
		return cover[i] >= 2 && gaps[i] > 0 && gaps[i] < cover[i]
	}

	cons := c.Consensus
	ul := int64(cons.UngappedLen())
	var found []coord.Range
	for i := 0; i < n; {
		if !mixed(i) {
			i++
			continue
		}
		j := i
		for j < n && mixed(j) {
			j++
		}
		if j-i >= minLen && ul != 0 {
			begin := int64(cons.UngappedOffset(i))
			if cons.IsGap(i) {
				begin++
			}
			end := int64(cons.UngappedOffset(j - 1))
			if begin >= ul {
				begin = ul - 1
			}
			if end < begin {
				end = begin
			}
			if end >= ul {
				end = ul - 1
			}
			found = append(found, coord.New(begin, end))
		}
		i = j
	}
	return coord.Merge(found)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
