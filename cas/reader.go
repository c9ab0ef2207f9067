// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cas

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// numberParser reads the count fields whose width depends on the
// file version.
type numberParser struct {
	width int
}

func (p numberParser) read(r *errorReader) uint64 {
	var buf [8]byte
	if r.readFull(buf[:p.width]) != nil {
		return 0
	}
	if p.width == 4 {
		return uint64(binary.LittleEndian.Uint32(buf[:4]))
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (p numberParser) put(b []byte, v uint64) []byte {
	var buf [8]byte
	if p.width == 4 {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
	} else {
		binary.LittleEndian.PutUint64(buf[:], v)
	}
	return append(b, buf[:p.width]...)
}

// numberParsers is the version dispatch table.
var numberParsers = map[Version]numberParser{
	RefAssemble: {width: 4},
	Mapper:      {width: 8},
}

// errorReader is a sticky error reader for the CAS primitive types.
type errorReader struct {
	r   io.Reader
	n   int64
	err error
}

func (r *errorReader) readFull(b []byte) error {
	if r.err != nil {
		return r.err
	}
	var n int
	n, r.err = io.ReadFull(r.r, b)
	r.n += int64(n)
	if r.err == io.EOF {
		r.err = io.ErrUnexpectedEOF
	}
	return r.err
}

func (r *errorReader) byte() byte {
	var buf [1]byte
	r.readFull(buf[:])
	return buf[0]
}

func (r *errorReader) bool() bool { return r.byte() != 0 }

func (r *errorReader) uint64() uint64 {
	var buf [8]byte
	r.readFull(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (r *errorReader) int32() int32 {
	var buf [4]byte
	r.readFull(buf[:])
	return int32(binary.LittleEndian.Uint32(buf[:]))
}

// uintN reads an n byte little-endian unsigned integer.
func (r *errorReader) uintN(n int) uint64 {
	var buf [8]byte
	r.readFull(buf[:n])
	return binary.LittleEndian.Uint64(buf[:])
}

// count reads a variable width count: values below 254 are held in one
// byte, 254 introduces a uint16 and 255 a uint32.
func (r *errorReader) count() uint64 {
	switch b := r.byte(); b {
	case 254:
		var buf [2]byte
		r.readFull(buf[:])
		return uint64(binary.LittleEndian.Uint16(buf[:]))
	case 255:
		var buf [4]byte
		r.readFull(buf[:])
		return uint64(binary.LittleEndian.Uint32(buf[:]))
	default:
		return uint64(b)
	}
}

func (r *errorReader) string() string {
	n := r.count()
	if r.err != nil {
		return ""
	}
	b := make([]byte, n)
	r.readFull(b)
	return string(b)
}

// Reader reads match records from a CAS file.
type Reader struct {
	h *Header

	r *errorReader

	// end is the offset of the header, which
	// is the end of the match records.
	end int64

	contigWidth   int
	positionWidth int

	read uint64
}

// NewReader returns a Reader for the CAS data in r. The header is read
// from the end of the data before r is positioned at the first match.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	var buf [matchStart]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return nil, errors.Wrap(err, "cas: failed to read magic")
	}
	if !bytes.Equal(buf[:7], magicPrefix[:]) {
		return nil, ErrNotCAS
	}
	v := Version(buf[7])
	np, ok := numberParsers[v]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	end := int64(binary.LittleEndian.Uint64(buf[8:]))
	if end < matchStart {
		return nil, fmt.Errorf("cas: invalid header offset %d", end)
	}

	_, err = r.Seek(end, io.SeekStart)
	if err != nil {
		return nil, errors.Wrapf(err, "cas: failed to seek to header at %d", end)
	}
	h, err := readHeader(bufio.NewReader(r), v, np)
	if err != nil {
		return nil, errors.Wrapf(err, "cas: failed to read header at %d", end)
	}

	_, err = r.Seek(matchStart, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "cas: failed to seek to matches")
	}
	return &Reader{
		h:             h,
		r:             &errorReader{r: bufio.NewReader(io.LimitReader(r, end-matchStart)), n: matchStart},
		end:           end,
		contigWidth:   bytesFor(h.NumContigs),
		positionWidth: bytesFor(h.maxContigLength()),
	}, nil
}

func readHeader(br io.Reader, v Version, np numberParser) (*Header, error) {
	r := &errorReader{r: br}
	h := &Header{Version: v}
	h.NumContigs = np.read(r)
	h.NumReads = np.read(r)
	h.Program.Name = r.string()
	h.Program.Version = r.string()
	h.Program.Args = r.string()
	h.ContigFiles = readFileInfos(r, np)
	h.ReadFiles = readFileInfos(r, np)
	if r.err != nil {
		return nil, r.err
	}
	if !r.bool() {
		if r.err == io.ErrUnexpectedEOF {
			// Scoring information is optional.
			return h, nil
		}
		return h, r.err
	}
	h.Scoring = &ScoringScheme{
		Score:           ScoreType(r.byte()),
		Alignment:       AlignmentType(r.byte()),
		Match:           r.int32(),
		Mismatch:        r.int32(),
		InsertionOpen:   r.int32(),
		InsertionExtend: r.int32(),
		DeletionOpen:    r.int32(),
		DeletionExtend:  r.int32(),
		N:               r.int32(),
		ColorSpaceError: r.int32(),
	}
	if r.err != nil {
		return nil, r.err
	}
	h.Contigs = make([]ContigInfo, 0, h.NumContigs)
	for i := uint64(0); i < h.NumContigs; i++ {
		h.Contigs = append(h.Contigs, ContigInfo{
			Length:   np.read(r),
			Circular: r.bool(),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	return h, nil
}

func readFileInfos(r *errorReader, np numberParser) []FileInfo {
	n := r.count()
	if r.err != nil {
		return nil
	}
	var fi []FileInfo
	for i := uint64(0); i < n; i++ {
		two := r.bool()
		f := FileInfo{
			NumSequences: np.read(r),
			NumResidues:  r.uint64(),
		}
		f.Names = append(f.Names, r.string())
		if two {
			f.Names = append(f.Names, r.string())
		}
		if r.err != nil {
			return nil
		}
		fi = append(fi, f)
	}
	return fi
}

// maxContigLength returns the longest reference length, or the total
// reference residue count if lengths are not available.
func (h *Header) maxContigLength() uint64 {
	var max uint64
	if len(h.Contigs) != 0 {
		for _, c := range h.Contigs {
			if c.Length > max {
				max = c.Length
			}
		}
		return max
	}
	for _, f := range h.ContigFiles {
		max += f.NumResidues
	}
	return max
}

// Header returns the CAS header.
func (r *Reader) Header() *Header { return r.h }

// Match flag bits of the match info byte.
const (
	hasMatchFlag          = 1 << 0
	multipleMatchesFlag   = 1 << 1
	multipleAlignmentFlag = 1 << 2
	partOfPairFlag        = 1 << 3
)

// Read returns the next match record. It returns io.EOF once all the
// records described by the header have been read.
func (r *Reader) Read() (*Match, error) {
	if r.read == r.h.NumReads {
		return nil, io.EOF
	}
	off := r.r.n
	m, err := r.readMatch()
	if err != nil {
		return nil, errors.Wrapf(err, "cas: failed to read match %d at offset %d", r.read, off)
	}
	r.read++
	return m, nil
}

func (r *Reader) readMatch() (*Match, error) {
	info := r.r.byte()
	m := &Match{
		HasMatch:   info&hasMatchFlag != 0,
		PartOfPair: info&partOfPairFlag != 0,
	}
	if m.HasMatch {
		m.NumMatches = 1
		m.NumReportedAlignments = 1
	}
	if info&multipleMatchesFlag != 0 {
		m.NumMatches = r.r.count() + 2
	}
	if info&multipleAlignmentFlag != 0 {
		m.NumReportedAlignments = r.r.count() + 2
	}
	if m.HasMatch {
		n := r.r.count()
		a := &Alignment{
			ContigID: r.r.uintN(r.contigWidth),
			Start:    r.r.uintN(r.positionWidth),
			Reverse:  r.r.bool(),
		}
		if r.r.err != nil {
			return nil, r.r.err
		}
		if a.ContigID >= r.h.NumContigs {
			return nil, fmt.Errorf("cas: contig id %d out of range", a.ContigID)
		}
		body := make([]byte, n)
		if err := r.r.readFull(body); err != nil {
			return nil, err
		}
		var err error
		a.Regions, err = DecodeRegions(body)
		if err != nil {
			return nil, err
		}
		m.Alignment = a
		m.Score = r.r.count()
	}
	return m, r.r.err
}

// Visitor receives the contents of a CAS file from Parse.
type Visitor interface {
	// VisitHeader is called once before any matches.
	VisitHeader(*Header, *Control)

	// VisitMatch is called for each match record, in file order.
	VisitMatch(*Match, *Control)

	// VisitEnd is called after the last match if the
	// parse was not halted.
	VisitEnd()

	// Halted is called instead of VisitEnd if the
	// Visitor halted the parse.
	Halted()
}

// Control allows a Visitor to stop a parse.
type Control struct {
	halted bool
}

// Halt requests that no further records are visited. Halting takes effect
// between records.
func (c *Control) Halt() { c.halted = true }

// IsHalted returns whether Halt has been called.
func (c *Control) IsHalted() bool { return c.halted }

// Parse reads the CAS data in r, passing the header and each match to v.
func Parse(r io.ReadSeeker, v Visitor) error {
	cr, err := NewReader(r)
	if err != nil {
		return err
	}
	var c Control
	v.VisitHeader(cr.Header(), &c)
	for !c.halted {
		m, err := cr.Read()
		if err == io.EOF {
			v.VisitEnd()
			return nil
		}
		if err != nil {
			return err
		}
		v.VisitMatch(m, &c)
	}
	v.Halted()
	return nil
}
