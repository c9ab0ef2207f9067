// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sff implements reading, writing and indexing of Standard
// Flowgram Format files.
//
// All SFF multi-byte values are big-endian and each section of the
// file is padded to an eight byte boundary.
package sff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

var (
	ErrNotSFF             = errors.New("sff: not an sff file")
	ErrUnsupportedVersion = errors.New("sff: unsupported version")
	ErrUnsupportedFormat  = errors.New("sff: unsupported flowgram format")
	ErrTooManyReads       = errors.New("sff: too many reads to index")
	ErrNotFound           = errors.New("sff: no such read")
	ErrClosed             = errors.New("sff: datastore closed")
)

const (
	magic = 0x2e736666 // ".sff"

	// flowgramFormat is the only defined
	// flowgram format code.
	flowgramFormat = 1

	// fixedHeaderLen is the length of the common
	// header before the flow chars and key.
	fixedHeaderLen = 31

	// fixedReadHeaderLen is the length of a read
	// header before the read name.
	fixedReadHeaderLen = 16
)

var version = [4]byte{0, 0, 0, 1}

// Header is the SFF common header.
type Header struct {
	// IndexOffset and IndexLength locate the optional
	// read index. They are zero if there is no index.
	IndexOffset uint64
	IndexLength uint32

	NumReads uint32

	// FlowChars is the nucleotide flowed for each flow
	// and so its length is the number of flows per read.
	FlowChars string
	Key       string
}

// NumFlows returns the number of flows per read.
func (h *Header) NumFlows() int { return len(h.FlowChars) }

// Len returns the encoded length of the header including padding.
func (h *Header) Len() int {
	return padded(fixedHeaderLen + len(h.FlowChars) + len(h.Key))
}

// MarshalBinary returns the encoded header.
func (h *Header) MarshalBinary() ([]byte, error) {
	if len(h.FlowChars) > 0xffff || len(h.Key) > 0xffff {
		return nil, errors.New("sff: header field too long")
	}
	b := make([]byte, h.Len())
	binary.BigEndian.PutUint32(b[0:], magic)
	copy(b[4:], version[:])
	binary.BigEndian.PutUint64(b[8:], h.IndexOffset)
	binary.BigEndian.PutUint32(b[16:], h.IndexLength)
	binary.BigEndian.PutUint32(b[20:], h.NumReads)
	binary.BigEndian.PutUint16(b[24:], uint16(len(b)))
	binary.BigEndian.PutUint16(b[26:], uint16(len(h.Key)))
	binary.BigEndian.PutUint16(b[28:], uint16(len(h.FlowChars)))
	b[30] = flowgramFormat
	n := copy(b[fixedHeaderLen:], h.FlowChars)
	copy(b[fixedHeaderLen+n:], h.Key)
	return b, nil
}

// decodeHeaderPrefix decodes the fixed portion of the header, returning the
// total header length, the key length and the number of flows.
func decodeHeaderPrefix(b []byte, h *Header) (hLen, keyLen, flows int, err error) {
	if len(b) < fixedHeaderLen {
		return 0, 0, 0, fmt.Errorf("sff: short header: %d bytes", len(b))
	}
	if binary.BigEndian.Uint32(b) != magic {
		return 0, 0, 0, ErrNotSFF
	}
	if [4]byte{b[4], b[5], b[6], b[7]} != version {
		return 0, 0, 0, ErrUnsupportedVersion
	}
	h.IndexOffset = binary.BigEndian.Uint64(b[8:])
	h.IndexLength = binary.BigEndian.Uint32(b[16:])
	h.NumReads = binary.BigEndian.Uint32(b[20:])
	hLen = int(binary.BigEndian.Uint16(b[24:]))
	keyLen = int(binary.BigEndian.Uint16(b[26:]))
	flows = int(binary.BigEndian.Uint16(b[28:]))
	if b[30] != flowgramFormat {
		return 0, 0, 0, ErrUnsupportedFormat
	}
	if hLen < fixedHeaderLen+flows+keyLen {
		return 0, 0, 0, fmt.Errorf("sff: header length %d too short for %d flows and %d key bases", hLen, flows, keyLen)
	}
	return hLen, keyLen, flows, nil
}

// ReadHeader is the header of a single read.
type ReadHeader struct {
	Name     string
	NumBases uint32

	// Clip points are one-based and inclusive. A zero
	// value indicates that no clip was set.
	ClipQualLeft     uint16
	ClipQualRight    uint16
	ClipAdapterLeft  uint16
	ClipAdapterRight uint16
}

// Len returns the encoded length of the read header including padding.
func (rh *ReadHeader) Len() int {
	return padded(fixedReadHeaderLen + len(rh.Name))
}

// MarshalBinary returns the encoded read header.
func (rh *ReadHeader) MarshalBinary() ([]byte, error) {
	if len(rh.Name) > 0xffff {
		return nil, errors.New("sff: read name too long")
	}
	b := make([]byte, rh.Len())
	binary.BigEndian.PutUint16(b[0:], uint16(len(b)))
	binary.BigEndian.PutUint16(b[2:], uint16(len(rh.Name)))
	binary.BigEndian.PutUint32(b[4:], rh.NumBases)
	binary.BigEndian.PutUint16(b[8:], rh.ClipQualLeft)
	binary.BigEndian.PutUint16(b[10:], rh.ClipQualRight)
	binary.BigEndian.PutUint16(b[12:], rh.ClipAdapterLeft)
	binary.BigEndian.PutUint16(b[14:], rh.ClipAdapterRight)
	copy(b[fixedReadHeaderLen:], rh.Name)
	return b, nil
}

// ReadData is the flowgram data of a single read.
type ReadData struct {
	// Flowgram holds the flow values in
	// hundredths of a base.
	Flowgram  []uint16
	FlowIndex []uint8
	Bases     []byte
	Quals     []byte
}

// dataLen returns the encoded length of read data for a read with
// the given number of flows and bases.
func dataLen(flows, bases int) int {
	return padded(2*flows + 3*bases)
}

// Len returns the encoded length of the read data including padding.
func (rd *ReadData) Len() int { return dataLen(len(rd.Flowgram), len(rd.Bases)) }

// MarshalBinary returns the encoded read data.
func (rd *ReadData) MarshalBinary() ([]byte, error) {
	n := len(rd.Bases)
	if len(rd.FlowIndex) != n || len(rd.Quals) != n {
		return nil, fmt.Errorf("sff: inconsistent read data lengths: bases=%d flow index=%d quals=%d", n, len(rd.FlowIndex), len(rd.Quals))
	}
	b := make([]byte, rd.Len())
	off := 0
	for _, v := range rd.Flowgram {
		binary.BigEndian.PutUint16(b[off:], v)
		off += 2
	}
	off += copy(b[off:], rd.FlowIndex)
	off += copy(b[off:], rd.Bases)
	copy(b[off:], rd.Quals)
	return b, nil
}

// Record is a complete read record.
type Record struct {
	ReadHeader
	ReadData
}

// Len returns the encoded length of the record.
func (r *Record) Len() int { return r.ReadHeader.Len() + r.ReadData.Len() }

// Flowgram is a decoded SFF read.
type Flowgram struct {
	ID    string
	Bases nuc.Seq
	Quals []byte

	// Values holds the flow signals in bases.
	Values    []float64
	FlowIndex []uint8

	QualClip    coord.Range
	AdapterClip coord.Range
}

// Flowgram returns the decoded flowgram for the record.
func (r *Record) Flowgram() *Flowgram {
	v := make([]float64, len(r.ReadData.Flowgram))
	for i, f := range r.ReadData.Flowgram {
		v[i] = float64(f) / 100
	}
	n := int64(r.NumBases)
	return &Flowgram{
		ID:          r.Name,
		Bases:       nuc.NewSeq(r.Bases),
		Quals:       append([]byte(nil), r.Quals...),
		Values:      v,
		FlowIndex:   append([]uint8(nil), r.FlowIndex...),
		QualClip:    clipRange(r.ClipQualLeft, r.ClipQualRight, n),
		AdapterClip: clipRange(r.ClipAdapterLeft, r.ClipAdapterRight, n),
	}
}

// clipRange returns the range described by one-based clip points, where
// zero values indicate an absent clip.
func clipRange(left, right uint16, n int64) coord.Range {
	l := int64(left)
	if l == 0 {
		l = 1
	}
	r := int64(right)
	if r == 0 || r > n {
		r = n
	}
	if r < l-1 {
		return coord.Empty(l - 1)
	}
	return coord.NewIn(coord.ResidueBased, l, r)
}

// TrimRange returns the range of bases that pass both quality and adapter
// clipping.
func (f *Flowgram) TrimRange() coord.Range {
	return f.QualClip.Intersection(f.AdapterClip)
}

func padded(n int) int { return (n + 7) &^ 7 }
