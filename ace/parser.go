// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

// Span is the half-open byte extent of an event in the parsed data.
type Span struct {
	Begin, End int64
}

// Extent returns the span.
func (s Span) Extent() Span { return s }

// Event is a parse event returned by Parser.Next. The concrete types
// are *Header, *ContigStart, *AssembledFrom, *ReadRecord, *ContigEnd,
// *ConsensusTag, *ReadTag and *WholeAssemblyTag.
type Event interface {
	Extent() Span
}

// Header is the AS record.
type Header struct {
	Span
	NumContigs int
	NumReads   int
}

// ContigStart is a contig's CO record, its consensus and its base
// qualities. It is not emitted until the first AF record of the contig
// or, for contigs without reads, the end of the contig has been reached.
type ContigStart struct {
	Span
	ID           string
	NumBases     int
	NumReads     int
	NumSegments  int
	Complemented bool

	// Consensus is the gapped consensus.
	Consensus []byte

	// Quals holds the BQ qualities, one per
	// ungapped base. It is nil if the contig
	// has no BQ record.
	Quals []byte
}

// AssembledFrom is an AF record.
type AssembledFrom struct {
	Span
	ID  string
	Dir Direction

	// Offset is the one-based gapped consensus position
	// of the first base of the full read.
	Offset int64
}

// ReadRecord is an RD record with its sequence, QA and DS records.
type ReadRecord struct {
	Span
	ID string

	// Bases is the gapped full read sequence
	// in contig orientation.
	Bases []byte

	// QualBegin, QualEnd, AlignBegin and AlignEnd are the
	// one-based gapped QA clip points.
	QualBegin, QualEnd   int64
	AlignBegin, AlignEnd int64

	// Phd is the DS information. HasDS reports
	// whether the read had a DS record.
	Phd   PhdInfo
	HasDS bool
}

// ContigEnd marks the end of a contig.
type ContigEnd struct {
	Span
	ID string
}

// ConsensusTag is a CT record.
type ConsensusTag struct {
	Span
	Contig  string
	Type    string
	Program string

	// Range is the gapped consensus range of the tag.
	Range coord.Range

	Time    time.Time
	NoTrans bool

	Data     []string
	Comments []string
}

// ReadTag is an RT record.
type ReadTag struct {
	Span
	Read    string
	Type    string
	Program string

	// Range is the gapped read range of the tag.
	Range coord.Range

	Time time.Time
}

// WholeAssemblyTag is a WA record.
type WholeAssemblyTag struct {
	Span
	Type    string
	Program string
	Time    time.Time
	Data    []string
}

type line struct {
	text       []byte
	begin, end int64
	num        int
}

func (l *line) blank() bool { return len(bytes.TrimSpace(l.text)) == 0 }

func (l *line) fields() []string { return strings.Fields(string(l.text)) }

// Parser is a streaming Ace parser. Events are returned in file order.
type Parser struct {
	r   *bufio.Reader
	off int64
	num int

	peeked *line

	sawHeader bool

	// contig is the contig being parsed and
	// started reports whether its start has
	// been emitted.
	contig  *ContigStart
	started bool

	pending []Event
	err     error
}

// NewParser returns a Parser reading Ace data from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReader(r)}
}

// resumeParser returns a Parser reading from r, which holds data starting
// at byte offset off of an Ace file. The returned parser does not
// require an AS header.
func resumeParser(r io.Reader, off int64) *Parser {
	return &Parser{r: bufio.NewReader(r), off: off, sawHeader: true}
}

// resumeRead returns a parser for a single read record of the named contig
// starting at byte offset off.
func resumeRead(r io.Reader, off int64, contig string) *Parser {
	p := resumeParser(r, off)
	p.contig = &ContigStart{ID: contig}
	p.started = true
	return p
}

// Next returns the next parse event. At the end of the data Next returns
// io.EOF. Any other error is sticky.
func (p *Parser) Next() (Event, error) {
	for len(p.pending) == 0 {
		if p.err != nil {
			return nil, p.err
		}
		p.err = p.step()
	}
	e := p.pending[0]
	p.pending[0] = nil
	p.pending = p.pending[1:]
	return e, nil
}

func (p *Parser) errorf(l *line, format string, args ...interface{}) error {
	return &FormatError{Line: l.num, Offset: l.begin, Err: fmt.Errorf(format, args...)}
}

// rawLine returns the next line of input without skipping blank lines.
func (p *Parser) rawLine() (*line, error) {
	if p.peeked != nil {
		l := p.peeked
		p.peeked = nil
		return l, nil
	}
	b, err := p.r.ReadBytes('\n')
	if len(b) == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	p.num++
	l := &line{begin: p.off, end: p.off + int64(len(b)), num: p.num}
	p.off = l.end
	l.text = bytes.TrimRight(b, "\r\n")
	return l, nil
}

// nextLine returns the next non-blank line of input.
func (p *Parser) nextLine() (*line, error) {
	for {
		l, err := p.rawLine()
		if err != nil {
			return nil, err
		}
		if !l.blank() {
			return l, nil
		}
	}
}

func (p *Parser) unread(l *line) { p.peeked = l }

// pos returns the offset of the next unconsumed byte.
func (p *Parser) pos() int64 {
	if p.peeked != nil {
		return p.peeked.begin
	}
	return p.off
}

func keyword(l *line) string {
	t := l.text
	if i := bytes.IndexAny(t, " \t"); i >= 0 {
		t = t[:i]
	}
	return string(t)
}

func (p *Parser) step() error {
	l, err := p.nextLine()
	if err == io.EOF {
		if p.contig != nil {
			p.endContig(p.pos())
			return nil
		}
		if !p.sawHeader {
			return ErrNoHeader
		}
		return io.EOF
	}
	if err != nil {
		return err
	}
	kw := keyword(l)
	if !p.sawHeader && kw != "AS" {
		return &FormatError{Line: l.num, Offset: l.begin, Err: ErrNoHeader}
	}
	switch kw {
	case "AS":
		if p.sawHeader {
			return p.errorf(l, "duplicate AS record")
		}
		return p.header(l)
	case "CO":
		if p.contig != nil {
			p.endContig(l.begin)
		}
		return p.contigStart(l)
	case "BQ":
		if p.contig == nil || p.started {
			return p.errorf(l, "unexpected BQ record")
		}
		return p.baseQualities()
	case "AF":
		if p.contig == nil {
			return p.errorf(l, "AF record outside contig")
		}
		p.startContig(l.begin)
		return p.assembledFrom(l)
	case "BS":
		if p.contig == nil {
			return p.errorf(l, "BS record outside contig")
		}
		p.startContig(l.begin)
		return nil
	case "RD":
		if p.contig == nil {
			return p.errorf(l, "RD record outside contig")
		}
		p.startContig(l.begin)
		return p.readRecord(l)
	case "CT{", "RT{", "WA{":
		if p.contig != nil {
			p.endContig(l.begin)
		}
		return p.tag(l, kw[:2])
	}
	return p.errorf(l, "unexpected record %q", kw)
}

func (p *Parser) header(l *line) error {
	f := l.fields()
	if len(f) != 3 {
		return p.errorf(l, "malformed AS record")
	}
	var h Header
	var err error
	h.NumContigs, err = strconv.Atoi(f[1])
	if err != nil {
		return p.errorf(l, "invalid contig count: %v", err)
	}
	h.NumReads, err = strconv.Atoi(f[2])
	if err != nil {
		return p.errorf(l, "invalid read count: %v", err)
	}
	h.Span = Span{Begin: l.begin, End: l.end}
	p.sawHeader = true
	p.pending = append(p.pending, &h)
	return nil
}

func (p *Parser) contigStart(l *line) error {
	f := l.fields()
	if len(f) != 6 {
		return p.errorf(l, "malformed CO record")
	}
	c := &ContigStart{ID: f[1]}
	var err error
	for i, dst := range []*int{&c.NumBases, &c.NumReads, &c.NumSegments} {
		*dst, err = strconv.Atoi(f[i+2])
		if err != nil || *dst < 0 {
			return p.errorf(l, "invalid CO field %d: %q", i+2, f[i+2])
		}
	}
	switch f[5] {
	case "U":
	case "C":
		c.Complemented = true
	default:
		return p.errorf(l, "invalid complementation %q", f[5])
	}

	c.Consensus = make([]byte, 0, c.NumBases)
	for len(c.Consensus) < c.NumBases {
		cl, err := p.rawLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if cl.blank() {
			if len(c.Consensus) == 0 {
				continue
			}
			break
		}
		c.Consensus, err = appendBases(c.Consensus, cl.text)
		if err != nil {
			return p.errorf(cl, "%v", err)
		}
	}
	if len(c.Consensus) != c.NumBases {
		return p.errorf(l, "contig %s has %d consensus bases, expected %d", c.ID, len(c.Consensus), c.NumBases)
	}
	c.Span = Span{Begin: l.begin, End: p.pos()}
	p.contig = c
	p.started = false
	return nil
}

// appendBases appends the bases in text to dst, converting '*' to nuc.Gap.
func appendBases(dst, text []byte) ([]byte, error) {
	for _, b := range bytes.TrimSpace(text) {
		switch {
		case b == '*':
			b = nuc.Gap
		case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', b == nuc.Gap:
		default:
			return dst, fmt.Errorf("invalid base %q", b)
		}
		dst = append(dst, b)
	}
	return dst, nil
}

func ungappedLen(b []byte) int {
	n := 0
	for _, c := range b {
		if c != nuc.Gap {
			n++
		}
	}
	return n
}

func (p *Parser) baseQualities() error {
	want := ungappedLen(p.contig.Consensus)
	q := make([]byte, 0, want)
	for len(q) < want {
		l, err := p.rawLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if l.blank() {
			if len(q) == 0 {
				continue
			}
			break
		}
		for _, f := range l.fields() {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 || v > 255 {
				return p.errorf(l, "invalid base quality %q", f)
			}
			q = append(q, byte(v))
		}
	}
	if len(q) != want {
		return p.errorf(&line{num: p.num, begin: p.pos()}, "contig %s has %d base qualities, expected %d", p.contig.ID, len(q), want)
	}
	p.contig.Quals = q
	p.contig.End = p.pos()
	return nil
}

// startContig emits the pending contig start if it has not already been
// emitted. The contig start extends to off.
func (p *Parser) startContig(off int64) {
	if p.started {
		return
	}
	p.contig.End = off
	p.pending = append(p.pending, p.contig)
	p.started = true
}

func (p *Parser) endContig(off int64) {
	p.startContig(off)
	p.pending = append(p.pending, &ContigEnd{Span: Span{Begin: off, End: off}, ID: p.contig.ID})
	p.contig = nil
	p.started = false
}

func (p *Parser) assembledFrom(l *line) error {
	f := l.fields()
	if len(f) != 4 {
		return p.errorf(l, "malformed AF record")
	}
	af := &AssembledFrom{Span: Span{Begin: l.begin, End: l.end}, ID: f[1]}
	switch f[2] {
	case "U":
		af.Dir = Forward
	case "C":
		af.Dir = Reverse
	default:
		return p.errorf(l, "invalid AF direction %q", f[2])
	}
	var err error
	af.Offset, err = strconv.ParseInt(f[3], 10, 64)
	if err != nil {
		return p.errorf(l, "invalid AF offset: %v", err)
	}
	p.pending = append(p.pending, af)
	return nil
}

func (p *Parser) readRecord(l *line) error {
	f := l.fields()
	if len(f) != 5 {
		return p.errorf(l, "malformed RD record")
	}
	n, err := strconv.Atoi(f[2])
	if err != nil || n < 0 {
		return p.errorf(l, "invalid read length %q", f[2])
	}
	rd := &ReadRecord{ID: f[1], Bases: make([]byte, 0, n)}
	for len(rd.Bases) < n {
		sl, err := p.rawLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if sl.blank() {
			if len(rd.Bases) == 0 {
				continue
			}
			break
		}
		rd.Bases, err = appendBases(rd.Bases, sl.text)
		if err != nil {
			return p.errorf(sl, "%v", err)
		}
	}
	if len(rd.Bases) != n {
		return p.errorf(l, "read %s has %d bases, expected %d", rd.ID, len(rd.Bases), n)
	}

	ql, err := p.nextLine()
	if err != nil {
		if err == io.EOF {
			return p.errorf(l, "read %s missing QA record", rd.ID)
		}
		return err
	}
	qf := ql.fields()
	if qf[0] != "QA" || len(qf) != 5 {
		return p.errorf(ql, "expected QA record for read %s", rd.ID)
	}
	for i, dst := range []*int64{&rd.QualBegin, &rd.QualEnd, &rd.AlignBegin, &rd.AlignEnd} {
		*dst, err = strconv.ParseInt(qf[i+1], 10, 64)
		if err != nil {
			return p.errorf(ql, "invalid QA field: %v", err)
		}
	}
	end := ql.end

	dl, err := p.nextLine()
	switch {
	case err == io.EOF:
	case err != nil:
		return err
	case keyword(dl) == "DS":
		rd.Phd, err = parseDS(dl.text)
		if err != nil {
			return p.errorf(dl, "%v", err)
		}
		rd.HasDS = true
		end = dl.end
	default:
		p.unread(dl)
	}
	rd.Span = Span{Begin: l.begin, End: end}
	p.pending = append(p.pending, rd)
	return nil
}

// parseDS parses the key value pairs of a DS record.
func parseDS(text []byte) (PhdInfo, error) {
	var (
		info PhdInfo
		key  string
		val  []string
	)
	flush := func() error {
		v := strings.Join(val, " ")
		switch key {
		case "CHROMAT_FILE:":
			info.TraceName = v
		case "PHD_FILE:":
			info.PhdName = v
		case "TIME:":
			t, err := time.Parse(DSTime, v)
			if err != nil {
				return fmt.Errorf("invalid DS time %q: %v", v, err)
			}
			info.Time = t
		}
		val = val[:0]
		return nil
	}
	for _, f := range strings.Fields(string(text))[1:] {
		if strings.HasSuffix(f, ":") {
			if err := flush(); err != nil {
				return info, err
			}
			key = f
			continue
		}
		val = append(val, f)
	}
	return info, flush()
}

func (p *Parser) tag(open *line, kind string) error {
	hl, err := p.nextLine()
	if err != nil {
		if err == io.EOF {
			return p.errorf(open, "unterminated %s tag", kind)
		}
		return err
	}
	var data, comments []string
	inComment := false
	var end int64
	for {
		l, err := p.rawLine()
		if err != nil {
			if err == io.EOF {
				return p.errorf(open, "unterminated %s tag", kind)
			}
			return err
		}
		t := string(bytes.TrimRight(l.text, " \t"))
		switch {
		case t == "}" && !inComment:
			end = l.end
		case t == "COMMENT{" && kind == "CT":
			inComment = true
			continue
		case t == "C}" && inComment:
			inComment = false
			continue
		case inComment:
			comments = append(comments, t)
			continue
		default:
			data = append(data, t)
			continue
		}
		break
	}
	span := Span{Begin: open.begin, End: end}

	f := hl.fields()
	switch kind {
	case "CT":
		if len(f) < 6 {
			return p.errorf(hl, "malformed CT header")
		}
		r, err := tagRange(f[3], f[4])
		if err != nil {
			return p.errorf(hl, "%v", err)
		}
		t, err := time.Parse(TagTime, f[5])
		if err != nil {
			return p.errorf(hl, "invalid tag time: %v", err)
		}
		p.pending = append(p.pending, &ConsensusTag{
			Span:     span,
			Contig:   f[0],
			Type:     f[1],
			Program:  f[2],
			Range:    r,
			Time:     t,
			NoTrans:  len(f) > 6 && f[6] == "NoTrans",
			Data:     data,
			Comments: comments,
		})
	case "RT":
		if len(f) < 6 {
			return p.errorf(hl, "malformed RT header")
		}
		r, err := tagRange(f[3], f[4])
		if err != nil {
			return p.errorf(hl, "%v", err)
		}
		t, err := time.Parse(TagTime, f[5])
		if err != nil {
			return p.errorf(hl, "invalid tag time: %v", err)
		}
		p.pending = append(p.pending, &ReadTag{
			Span:    span,
			Read:    f[0],
			Type:    f[1],
			Program: f[2],
			Range:   r,
			Time:    t,
		})
	case "WA":
		if len(f) < 3 {
			return p.errorf(hl, "malformed WA header")
		}
		t, err := time.Parse(TagTime, f[2])
		if err != nil {
			return p.errorf(hl, "invalid tag time: %v", err)
		}
		p.pending = append(p.pending, &WholeAssemblyTag{
			Span:    span,
			Type:    f[0],
			Program: f[1],
			Time:    t,
			Data:    data,
		})
	}
	return nil
}

// tagRange returns the zero-based range for the one-based tag positions.
func tagRange(b, e string) (coord.Range, error) {
	begin, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return coord.Range{}, err
	}
	end, err := strconv.ParseInt(e, 10, 64)
	if err != nil {
		return coord.Range{}, err
	}
	r, err := coord.NewBuilderIn(coord.ResidueBased, begin, end).Build()
	if err != nil {
		return coord.Range{}, errors.New("invalid tag range")
	}
	return r, nil
}
