// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nuc

import (
	"encoding/binary"
	"fmt"
)

// Width tags prefix each variable width field of a TwoBit encoding.
const (
	tagNone  = 0
	tagByte  = 1
	tagShort = 2
	tagInt   = 4
)

// TwoBit is the two bits per base codec for sequences over {A,C,G,T}
// with gaps. Gap positions are recorded as an explicit list of
// offsets so they do not need a code point of their own.
//
// The encoded layout is
//
//	[valueWidthTag:1][length:1|2|4][sentinelWidthTag:1][sentinelCount:0|1|2|4]
//	[sentinelOffsets:count×width][packedBases:ceil(length/4)]
//
// with all multi-byte fields big-endian. Bases are packed most
// significant bits first, so base 0 is held in the top two bits of
// the first packed byte.
var TwoBit twoBit

type twoBit struct{}

var _ Codec = TwoBit

var twoBitCode = [256]int8{
	'A': 0, 'C': 1, 'G': 2, 'T': 3,
	'-': -1,
}

func init() {
	for i := range twoBitCode {
		switch i {
		case 'A', 'C', 'G', 'T', '-':
		default:
			twoBitCode[i] = -2
		}
	}
}

const twoBitLetters = "ACGT"

// CanEncode returns whether every symbol in s can be held by TwoBit.
func (twoBit) CanEncode(s []byte) bool {
	for _, b := range s {
		if twoBitCode[b] == -2 {
			return false
		}
	}
	return true
}

// Encode returns the TwoBit encoding of s. Encode panics if s holds a
// symbol other than A, C, G, T or the gap.
func (twoBit) Encode(s []byte) []byte {
	var gaps []uint32
	for i, b := range s {
		switch twoBitCode[b] {
		case -1:
			gaps = append(gaps, uint32(i))
		case -2:
			panic(fmt.Sprintf("nuc: symbol %q cannot be two-bit encoded", b))
		}
	}
	if uint64(len(s)) > 1<<32-1 {
		panic("nuc: sequence too long for two-bit encoding")
	}

	lw := widthFor(uint32(len(s)))
	var sw int
	if len(gaps) != 0 {
		sw = widthFor(uint32(len(gaps)))
		if w := widthFor(gaps[len(gaps)-1]); w > sw {
			sw = w
		}
	}
	size := 1 + lw + 1 + packedLen(len(s))
	if sw != 0 {
		size += sw * (1 + len(gaps))
	}
	buf := make([]byte, size)
	off := 0
	buf[off] = byte(lw)
	off++
	off += putUint(buf[off:], lw, uint32(len(s)))
	buf[off] = byte(sw)
	off++
	if sw != 0 {
		off += putUint(buf[off:], sw, uint32(len(gaps)))
		for _, g := range gaps {
			off += putUint(buf[off:], sw, g)
		}
	}
	packed := buf[off:]
	for i, b := range s {
		c := twoBitCode[b]
		if c < 0 {
			continue
		}
		packed[i>>2] |= byte(c) << (6 - 2*uint(i&3))
	}
	return buf
}

// twoBitHeader is the decoded prefix of a TwoBit encoding.
type twoBitHeader struct {
	length int
	gaps   []byte // Raw sentinel offset table.
	width  int    // Width of each sentinel offset.
	packed []byte
}

func (h *twoBitHeader) gap(i int) uint32 {
	return getUint(h.gaps[i*h.width:], h.width)
}

func (h *twoBitHeader) numGaps() int {
	if h.width == 0 {
		return 0
	}
	return len(h.gaps) / h.width
}

func readTwoBitHeader(b []byte) (twoBitHeader, error) {
	var h twoBitHeader
	off := 0
	lw, err := readTag(b, off)
	if err != nil {
		return h, err
	}
	if lw == tagNone {
		return h, &DecodeError{Offset: off, Msg: "missing length width"}
	}
	off++
	if len(b) < off+lw {
		return h, &DecodeError{Offset: off, Msg: "short length field"}
	}
	h.length = int(getUint(b[off:], lw))
	off += lw
	sw, err := readTag(b, off)
	if err != nil {
		return h, err
	}
	off++
	h.width = sw
	if sw != tagNone {
		if len(b) < off+sw {
			return h, &DecodeError{Offset: off, Msg: "short sentinel count"}
		}
		n := int(getUint(b[off:], sw))
		off += sw
		if len(b) < off+n*sw {
			return h, &DecodeError{Offset: off, Msg: "short sentinel table"}
		}
		h.gaps = b[off : off+n*sw]
		off += n * sw
		last := -1
		for i := 0; i < n; i++ {
			g := int(h.gap(i))
			if g <= last || g >= h.length {
				return h, &DecodeError{Offset: off - (n-i)*sw, Msg: fmt.Sprintf("invalid sentinel offset %d", g)}
			}
			last = g
		}
	}
	if len(b) < off+packedLen(h.length) {
		return h, &DecodeError{Offset: off, Msg: "short packed bases"}
	}
	h.packed = b[off : off+packedLen(h.length)]
	return h, nil
}

// Decode returns the sequence held in b.
func (twoBit) Decode(b []byte) ([]byte, error) {
	h, err := readTwoBitHeader(b)
	if err != nil {
		return nil, err
	}
	s := make([]byte, h.length)
	for i := range s {
		s[i] = twoBitLetters[(h.packed[i>>2]>>(6-2*uint(i&3)))&0x3]
	}
	for i := 0; i < h.numGaps(); i++ {
		s[h.gap(i)] = Gap
	}
	return s, nil
}

// At returns the base at position i of the sequence held in b without
// decoding the complete sequence.
func (twoBit) At(b []byte, i int) (byte, error) {
	h, err := readTwoBitHeader(b)
	if err != nil {
		return 0, err
	}
	if i < 0 || h.length <= i {
		return 0, &DecodeError{Offset: -1, Msg: fmt.Sprintf("index %d out of range [0,%d)", i, h.length)}
	}
	// The sentinel table is sorted so it can be binary searched.
	lo, hi := 0, h.numGaps()
	for lo < hi {
		m := int(uint(lo+hi) >> 1)
		g := int(h.gap(m))
		switch {
		case g == i:
			return Gap, nil
		case g < i:
			lo = m + 1
		default:
			hi = m
		}
	}
	return twoBitLetters[(h.packed[i/4]>>(6-2*uint(i%4)))&0x3], nil
}

// Len returns the decoded length of the sequence held in b.
func (twoBit) Len(b []byte) (int, error) {
	lw, err := readTag(b, 0)
	if err != nil {
		return 0, err
	}
	if lw == tagNone || len(b) < 1+lw {
		return 0, &DecodeError{Offset: 1, Msg: "short length field"}
	}
	return int(getUint(b[1:], lw)), nil
}

// GapOffsets returns the gap positions of the sequence held in b.
func (twoBit) GapOffsets(b []byte) ([]int, error) {
	h, err := readTwoBitHeader(b)
	if err != nil {
		return nil, err
	}
	g := make([]int, h.numGaps())
	for i := range g {
		g[i] = int(h.gap(i))
	}
	return g, nil
}

func packedLen(n int) int { return (n + 3) / 4 }

func widthFor(v uint32) int {
	switch {
	case v <= 0xff:
		return tagByte
	case v <= 0xffff:
		return tagShort
	default:
		return tagInt
	}
}

func readTag(b []byte, off int) (int, error) {
	if len(b) <= off {
		return 0, &DecodeError{Offset: off, Msg: "missing width tag"}
	}
	switch t := b[off]; t {
	case tagNone, tagByte, tagShort, tagInt:
		return int(t), nil
	default:
		return 0, &DecodeError{Offset: off, Msg: fmt.Sprintf("invalid width tag %d", t)}
	}
}

func putUint(b []byte, w int, v uint32) int {
	switch w {
	case tagByte:
		b[0] = byte(v)
	case tagShort:
		binary.BigEndian.PutUint16(b, uint16(v))
	case tagInt:
		binary.BigEndian.PutUint32(b, v)
	}
	return w
}

func getUint(b []byte, w int) uint32 {
	switch w {
	case tagByte:
		return uint32(b[0])
	case tagShort:
		return uint32(binary.BigEndian.Uint16(b))
	case tagInt:
		return binary.BigEndian.Uint32(b)
	}
	panic("nuc: invalid width")
}
