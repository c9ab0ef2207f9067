// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

const (
	// lineWidth is the number of bases or
	// qualities written per line.
	lineWidth = 50

	// placeholderQuality is written for each
	// BQ value when no consensus qualities
	// are known.
	placeholderQuality = 99
)

// WriterOptions configures an Ace Writer. The zero WriterOptions is valid.
type WriterOptions struct {
	// Phds provides the full basecalls of reads.
	// When a read's basecalls are available,
	// its clipped flanks are written with the
	// called bases and base case reflects
	// quality. Otherwise flanks are written
	// as N.
	Phds PhdStore

	// Qualities is used to compute consensus
	// qualities when ComputeQualities is true
	// and a contig has no qualities.
	Qualities        QualityStore
	ComputeQualities bool

	// TempDir is the directory used to hold
	// contig data until the writer is closed.
	// If empty, os.TempDir is used.
	TempDir string
}

// Writer writes Ace files. Contigs are written to a temporary file until
// the Writer is closed, when the AS header, the contigs and then any tags
// are written to the destination.
type Writer struct {
	w   io.Writer
	opt WriterOptions
	now time.Time

	tmp  *os.File
	body *bufio.Writer
	tags bytes.Buffer

	contigs int
	reads   int

	closed bool
}

// NewWriter returns a new Writer writing to w. The opt parameter may be
// nil.
func NewWriter(w io.Writer, opt *WriterOptions) (*Writer, error) {
	aw := &Writer{w: w, now: time.Now()}
	if opt != nil {
		aw.opt = *opt
	}
	f, err := os.CreateTemp(aw.opt.TempDir, "ace-*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "ace: failed to create temporary contig file")
	}
	aw.tmp = f
	aw.body = bufio.NewWriter(f)
	return aw, nil
}

// Write writes the contig c.
func (w *Writer) Write(c *Contig) error {
	if w.closed {
		return ErrClosed
	}
	quals, err := w.consensusQualities(c)
	if err != nil {
		return err
	}

	bw := w.body
	comp := "U"
	if c.Complemented {
		comp = "C"
	}
	fmt.Fprintf(bw, "CO %s %d %d 0 %s\n", c.ID, c.Len(), len(c.Reads), comp)

	cons := c.Consensus.Bytes()
	text := make([]byte, len(cons))
	u := 0
	for i, b := range cons {
		if b == nuc.Gap {
			text[i] = '*'
			continue
		}
		if quals != nil && quals[u] < LowQuality {
			b = toLower(b)
		}
		text[i] = b
		u++
	}
	writeWrapped(bw, text)
	bw.WriteString("\nBQ\n")
	ul := c.Consensus.UngappedLen()
	for i := 0; i < ul; i++ {
		q := placeholderQuality
		if quals != nil {
			q = int(quals[i])
		}
		bw.WriteByte(' ')
		bw.WriteString(strconv.Itoa(q))
		if (i+1)%lineWidth == 0 || i == ul-1 {
			bw.WriteByte('\n')
		}
	}
	bw.WriteByte('\n')

	blocks := make([]readBlock, len(c.Reads))
	for i, r := range c.Reads {
		blocks[i], err = w.readBlock(r)
		if err != nil {
			return errors.Wrapf(err, "ace: failed to write read %s of contig %s", r.ID, c.ID)
		}
	}
	for i, r := range c.Reads {
		dir := "U"
		if r.Dir == Reverse {
			dir = "C"
		}
		fmt.Fprintf(bw, "AF %s %s %d\n", r.ID, dir, r.Start-int64(blocks[i].left)+1)
	}
	bw.WriteByte('\n')
	for i, r := range c.Reads {
		b := &blocks[i]
		fmt.Fprintf(bw, "RD %s %d 0 0\n", r.ID, len(b.bases))
		writeWrapped(bw, b.bases)
		begin := b.left + 1
		end := b.left + r.Seq.Len()
		fmt.Fprintf(bw, "\nQA %d %d %d %d\n", begin, end, begin, end)
		fmt.Fprintf(bw, "DS CHROMAT_FILE: %s PHD_FILE: %s TIME: %s\n\n", b.trace, b.phd, b.time.Format(DSTime))
	}

	w.contigs++
	w.reads += len(c.Reads)
	return nil
}

// consensusQualities returns the ungapped consensus qualities to write
// for c, or nil if they are not known.
func (w *Writer) consensusQualities(c *Contig) ([]byte, error) {
	if c.Quals != nil && len(c.Quals) == c.Consensus.UngappedLen() {
		return c.Quals, nil
	}
	if !w.opt.ComputeQualities {
		return nil, nil
	}
	gapped, err := ConsensusQualities(c, w.opt.Qualities)
	if err != nil {
		return nil, errors.Wrapf(err, "ace: failed to compute consensus qualities of %s", c.ID)
	}
	quals := make([]byte, 0, c.Consensus.UngappedLen())
	for i, q := range gapped {
		if !c.Consensus.IsGap(i) {
			quals = append(quals, q)
		}
	}
	return quals, nil
}

// readBlock is the RD record data of a read.
type readBlock struct {
	// left is the number of clipped
	// bases to the left of the valid
	// range in contig orientation.
	left int

	// bases is the full gapped read in
	// contig orientation.
	bases []byte

	trace, phd string
	time       time.Time
}

func (w *Writer) readBlock(r *Read) (readBlock, error) {
	var phd *Phd
	if w.opt.Phds != nil {
		var err error
		phd, err = w.opt.Phds.Phd(r.ID)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return readBlock{}, err
		}
	}

	full := r.UngappedFullLength
	if phd != nil {
		full = int64(len(phd.Bases))
	}
	vr := r.ValidRange
	if vr.Begin() < 0 || vr.End() >= full {
		return readBlock{}, errors.Errorf("valid range %v outside read of length %d", vr, full)
	}
	left, right := vr.Begin(), full-1-vr.End()
	if r.Dir == Reverse {
		left, right = right, left
	}

	// Full calls and qualities in contig orientation.
	var calls, quals []byte
	if phd != nil {
		calls = phd.Bases
		quals = phd.Quals
		if r.Dir == Reverse {
			calls = nuc.ReverseComplement(calls)
			quals = reversed(quals)
		}
		if quals != nil && int64(len(quals)) != full {
			quals = nil
		}
	}

	b := readBlock{
		left:  int(left),
		bases: make([]byte, 0, left+int64(r.Seq.Len())+right),
		trace: r.Phd.TraceName,
		phd:   r.Phd.PhdName,
		time:  r.Phd.Time,
	}
	flank := func(from, to int64) {
		for i := from; i < to; i++ {
			if calls == nil {
				b.bases = append(b.bases, 'N')
				continue
			}
			c := calls[i]
			if quals != nil && quals[i] < LowQuality {
				c = toLower(c)
			}
			b.bases = append(b.bases, c)
		}
	}

	flank(0, left)
	var vq []byte
	if phd != nil && phd.Quals != nil {
		var err error
		vq, err = readQualities(r, phd.Quals)
		if err != nil {
			return readBlock{}, err
		}
	}
	for i, c := range r.Seq.Bytes() {
		switch {
		case c == nuc.Gap:
			c = '*'
		case vq != nil && vq[i] < LowQuality:
			c = toLower(c)
		}
		b.bases = append(b.bases, c)
	}
	flank(full-right, full)

	if b.trace == "" {
		b.trace = r.ID
	}
	if b.phd == "" {
		b.phd = r.ID + ".phd.1"
	}
	if b.time.IsZero() {
		if phd != nil && !phd.Time.IsZero() {
			b.time = phd.Time
		} else {
			b.time = w.now
		}
	}
	return b, nil
}

// WriteConsensusTag writes a CT tag. Tags are written after all contigs.
func (w *Writer) WriteConsensusTag(t *ConsensusTag) error {
	if w.closed {
		return ErrClosed
	}
	fmt.Fprintf(&w.tags, "CT{\n%s %s %s %d %d %s", t.Contig, t.Type, t.Program,
		t.Range.BeginIn(coord.ResidueBased), t.Range.EndIn(coord.ResidueBased), t.Time.Format(TagTime))
	if t.NoTrans {
		w.tags.WriteString(" NoTrans")
	}
	w.tags.WriteByte('\n')
	for _, d := range t.Data {
		w.tags.WriteString(d)
		w.tags.WriteByte('\n')
	}
	if len(t.Comments) != 0 {
		w.tags.WriteString("COMMENT{\n")
		for _, c := range t.Comments {
			w.tags.WriteString(c)
			w.tags.WriteByte('\n')
		}
		w.tags.WriteString("C}\n")
	}
	w.tags.WriteString("}\n\n")
	return nil
}

// WriteReadTag writes an RT tag. Tags are written after all contigs.
func (w *Writer) WriteReadTag(t *ReadTag) error {
	if w.closed {
		return ErrClosed
	}
	fmt.Fprintf(&w.tags, "RT{\n%s %s %s %d %d %s\n}\n\n", t.Read, t.Type, t.Program,
		t.Range.BeginIn(coord.ResidueBased), t.Range.EndIn(coord.ResidueBased), t.Time.Format(TagTime))
	return nil
}

// WriteWholeAssemblyTag writes a WA tag. Tags are written after all contigs.
func (w *Writer) WriteWholeAssemblyTag(t *WholeAssemblyTag) error {
	if w.closed {
		return ErrClosed
	}
	fmt.Fprintf(&w.tags, "WA{\n%s %s %s\n", t.Type, t.Program, t.Time.Format(TagTime))
	for _, d := range t.Data {
		w.tags.WriteString(d)
		w.tags.WriteByte('\n')
	}
	w.tags.WriteString("}\n\n")
	return nil
}

// WriteTags writes all the tags in t.
func (w *Writer) WriteTags(t *Tags) error {
	for _, ct := range t.Consensus {
		if err := w.WriteConsensusTag(ct); err != nil {
			return err
		}
	}
	for _, rt := range t.Read {
		if err := w.WriteReadTag(rt); err != nil {
			return err
		}
	}
	for _, wa := range t.WholeAssembly {
		if err := w.WriteWholeAssemblyTag(wa); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the Ace data to the underlying writer and removes the
// temporary contig file. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	defer os.Remove(w.tmp.Name())
	defer w.tmp.Close()

	err := w.body.Flush()
	if err != nil {
		return errors.Wrap(err, "ace: failed to flush contig data")
	}
	_, err = fmt.Fprintf(w.w, "AS %d %d\n\n", w.contigs, w.reads)
	if err != nil {
		return err
	}
	_, err = w.tmp.Seek(0, io.SeekStart)
	if err != nil {
		return errors.Wrap(err, "ace: failed to rewind contig data")
	}
	_, err = io.Copy(w.w, w.tmp)
	if err != nil {
		return errors.Wrap(err, "ace: failed to copy contig data")
	}
	_, err = w.tags.WriteTo(w.w)
	return err
}

func writeWrapped(w *bufio.Writer, b []byte) {
	for len(b) > lineWidth {
		w.Write(b[:lineWidth])
		w.WriteByte('\n')
		b = b[lineWidth:]
	}
	w.Write(b)
	w.WriteByte('\n')
}

func toLower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

func reversed(b []byte) []byte {
	if b == nil {
		return nil
	}
	r := make([]byte, len(b))
	for i, v := range b {
		r[len(b)-1-i] = v
	}
	return r
}
