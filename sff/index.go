// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// ErrNoManifest is returned by ReadManifest when the file does not hold a
// recognised read index.
var ErrNoManifest = errors.New("sff: no recognised manifest")

// IndexFormat describes how a read index was obtained.
type IndexFormat int

const (
	// NoIndex indicates an index built by parsing
	// every record in the file.
	NoIndex IndexFormat = iota

	// Sorted is a bare sorted name to offset table.
	Sorted

	// Manifest is an XML manifest followed
	// by a sorted name to offset table.
	Manifest
)

func (f IndexFormat) String() string {
	switch f {
	case NoIndex:
		return "parsed"
	case Sorted:
		return ".srt"
	case Manifest:
		return ".mft"
	}
	return fmt.Sprintf("IndexFormat(%d)", int(f))
}

var (
	srtMagic     = [4]byte{'.', 's', 'r', 't'}
	mftMagic     = [4]byte{'.', 'm', 'f', 't'}
	indexVersion = [4]byte{'1', '.', '0', '0'}
)

// Index is a mapping from read name to the file offset of the read record.
type Index struct {
	Format IndexFormat

	// XML is the manifest text of a
	// Manifest formatted index.
	XML string

	offsets map[string]int64
	names   []string
}

func newIndex(f IndexFormat, n int) *Index {
	return &Index{Format: f, offsets: make(map[string]int64, n), names: make([]string, 0, n)}
}

func (idx *Index) add(name string, off int64) error {
	if _, dup := idx.offsets[name]; dup {
		return fmt.Errorf("sff: duplicate read name %q", name)
	}
	idx.offsets[name] = off
	idx.names = append(idx.names, name)
	return nil
}

// Offset returns the file offset of the named read's record.
func (idx *Index) Offset(name string) (off int64, ok bool) {
	off, ok = idx.offsets[name]
	return off, ok
}

// Len returns the number of indexed reads.
func (idx *Index) Len() int { return len(idx.offsets) }

// Names returns the indexed read names in index order.
func (idx *Index) Names() []string { return idx.names }

// ReadManifest reads the read index described by h from the size bytes of
// SFF data in r. If h does not describe an index within the data or the
// index is not in a recognised format, ReadManifest returns ErrNoManifest.
func ReadManifest(r io.ReaderAt, size int64, h *Header) (*Index, error) {
	if h.IndexOffset == 0 || h.IndexLength < 8 {
		return nil, ErrNoManifest
	}
	if size < 0 || h.IndexOffset > uint64(size) || uint64(size)-h.IndexOffset < uint64(h.IndexLength) {
		return nil, ErrNoManifest
	}
	b := make([]byte, h.IndexLength)
	n, err := r.ReadAt(b, int64(h.IndexOffset))
	if err != nil && !(err == io.EOF && n == len(b)) {
		return nil, ErrNoManifest
	}
	if [4]byte{b[4], b[5], b[6], b[7]} != indexVersion {
		return nil, ErrNoManifest
	}
	var idx *Index
	switch [4]byte{b[0], b[1], b[2], b[3]} {
	case srtMagic:
		idx = newIndex(Sorted, int(h.NumReads))
		b = b[8:]
	case mftMagic:
		if len(b) < 16 {
			return nil, ErrNoManifest
		}
		xmlLen := binary.BigEndian.Uint32(b[8:])
		dataLen := binary.BigEndian.Uint32(b[12:])
		b = b[16:]
		if uint64(xmlLen)+uint64(dataLen) > uint64(len(b)) {
			return nil, ErrNoManifest
		}
		idx = newIndex(Manifest, int(h.NumReads))
		idx.XML = string(b[:xmlLen])
		b = b[xmlLen : xmlLen+dataLen]
	default:
		return nil, ErrNoManifest
	}
	for i := uint32(0); i < h.NumReads; i++ {
		var (
			name string
			off  int64
			ok   bool
		)
		name, off, b, ok = decodeEntry(b)
		if !ok {
			return nil, ErrNoManifest
		}
		if err := idx.add(name, off); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// decodeEntry decodes a single index entry from the start of b, returning
// the read name and offset and the remaining bytes.
func decodeEntry(b []byte) (name string, off int64, rest []byte, ok bool) {
	i := bytes.IndexByte(b, 0)
	if i < 1 || len(b) < i+6 {
		return "", 0, b, false
	}
	name = string(b[:i])
	off = int64(binary.LittleEndian.Uint32(b[i+1:]))
	if b[i+5] != 0 {
		return "", 0, b, false
	}
	return name, off, b[i+6:], true
}

// appendEntry appends the index encoding of a single entry to b.
func appendEntry(b []byte, name string, off uint32) []byte {
	b = append(b, name...)
	b = append(b, 0)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], off)
	b = append(b, buf[:]...)
	return append(b, 0)
}

// encodeIndex returns the encoded form of the given index, padded to an
// eight byte boundary. The entries are written in name order.
func encodeIndex(f IndexFormat, xml string, offsets map[string]int64) ([]byte, error) {
	names := make([]string, 0, len(offsets))
	for n := range offsets {
		names = append(names, n)
	}
	sort.Strings(names)
	var data []byte
	for _, n := range names {
		off := offsets[n]
		if off > math.MaxUint32 {
			return nil, fmt.Errorf("sff: offset %d of %q cannot be indexed", off, n)
		}
		data = appendEntry(data, n, uint32(off))
	}

	var b []byte
	switch f {
	case Sorted:
		b = append(b, srtMagic[:]...)
		b = append(b, indexVersion[:]...)
	case Manifest:
		b = append(b, mftMagic[:]...)
		b = append(b, indexVersion[:]...)
		var buf [8]byte
		binary.BigEndian.PutUint32(buf[:4], uint32(len(xml)))
		binary.BigEndian.PutUint32(buf[4:], uint32(len(data)))
		b = append(b, buf[:]...)
		b = append(b, xml...)
	default:
		panic(fmt.Sprintf("sff: invalid index format %d", f))
	}
	b = append(b, data...)
	return append(b, make([]byte, padded(len(b))-len(b))...), nil
}

// BuildIndex builds an index by parsing every record in the SFF data read
// from r. The byte length of each record is obtained by re-encoding it and
// records not in canonical encoding are rejected.
func BuildIndex(r io.Reader) (*Index, error) {
	sr, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	if sr.h.NumReads > math.MaxInt32 {
		return nil, ErrTooManyReads
	}
	flows := sr.h.NumFlows()
	idx := newIndex(NoIndex, int(sr.h.NumReads))
	off := sr.Offset()
	for {
		start := sr.Offset()
		rec, err := sr.ReadRecord()
		if err == io.EOF {
			return idx, nil
		}
		if err != nil {
			return nil, err
		}
		n, err := encodedLen(rec, flows)
		if err != nil {
			return nil, err
		}
		if int64(n) != sr.Offset()-start {
			return nil, fmt.Errorf("sff: record %q at offset %d is not canonically encoded", rec.Name, start)
		}
		err = idx.add(rec.Name, off)
		if err != nil {
			return nil, err
		}
		off += int64(n)
	}
}

// encodedLen returns the length of the encoded record.
func encodedLen(rec *Record, flows int) (int, error) {
	if len(rec.ReadData.Flowgram) != flows {
		return 0, fmt.Errorf("sff: record %q has %d flows, header declares %d", rec.Name, len(rec.ReadData.Flowgram), flows)
	}
	hb, err := rec.ReadHeader.MarshalBinary()
	if err != nil {
		return 0, err
	}
	db, err := rec.ReadData.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return len(hb) + len(db), nil
}
