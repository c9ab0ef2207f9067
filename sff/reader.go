// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sff

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/biogo/asm/internal/pool"
)

// Reader implements sequential SFF reading.
type Reader struct {
	r io.Reader
	h Header

	// off is the byte offset of the next
	// read record relative to the start
	// of the file.
	off  int64
	read uint32
}

// NewReader returns a new Reader reading from r after decoding the SFF
// common header.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	h, n, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, h: h, off: int64(n)}, nil
}

// readHeader reads the common header from r, returning the header and the
// number of bytes consumed.
func readHeader(r io.Reader) (Header, int, error) {
	var h Header
	var buf [fixedHeaderLen]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return h, 0, errors.Wrap(err, "sff: failed to read header")
	}
	hLen, keyLen, flows, err := decodeHeaderPrefix(buf[:], &h)
	if err != nil {
		return h, 0, err
	}
	rest := make([]byte, hLen-fixedHeaderLen)
	_, err = io.ReadFull(r, rest)
	if err != nil {
		return h, 0, errors.Wrap(err, "sff: failed to read flow chars and key")
	}
	h.FlowChars = string(rest[:flows])
	h.Key = string(rest[flows : flows+keyLen])
	return h, hLen, nil
}

// Header returns the SFF common header.
func (r *Reader) Header() *Header { return &r.h }

// Offset returns the file offset of the next record to be read.
func (r *Reader) Offset() int64 { return r.off }

// Read returns the next flowgram. It returns io.EOF once the number of
// reads declared in the header has been read.
func (r *Reader) Read() (*Flowgram, error) {
	rec, err := r.ReadRecord()
	if err != nil {
		return nil, err
	}
	return rec.Flowgram(), nil
}

// ReadRecord returns the next raw read record.
func (r *Reader) ReadRecord() (*Record, error) {
	if r.read == r.h.NumReads {
		return nil, io.EOF
	}
	rec, n, err := readRecord(r.r, r.h.NumFlows())
	if err != nil {
		return nil, errors.Wrapf(err, "sff: failed to read record %d at offset %d", r.read, r.off)
	}
	r.off += int64(n)
	r.read++
	return rec, nil
}

// readRecord reads a single read header and read data pair from r,
// returning the record and the number of bytes consumed.
func readRecord(r io.Reader, flows int) (*Record, int, error) {
	var buf [fixedReadHeaderLen]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}
	hLen := int(binary.BigEndian.Uint16(buf[0:]))
	nameLen := int(binary.BigEndian.Uint16(buf[2:]))
	if hLen < fixedReadHeaderLen+nameLen {
		return nil, 0, fmt.Errorf("sff: read header length %d too short for name length %d", hLen, nameLen)
	}
	rec := &Record{ReadHeader: ReadHeader{
		NumBases:         binary.BigEndian.Uint32(buf[4:]),
		ClipQualLeft:     binary.BigEndian.Uint16(buf[8:]),
		ClipQualRight:    binary.BigEndian.Uint16(buf[10:]),
		ClipAdapterLeft:  binary.BigEndian.Uint16(buf[12:]),
		ClipAdapterRight: binary.BigEndian.Uint16(buf[14:]),
	}}

	name := make([]byte, hLen-fixedReadHeaderLen)
	_, err = io.ReadFull(r, name)
	if err != nil {
		return nil, 0, err
	}
	rec.Name = string(name[:nameLen])

	bases := int(rec.NumBases)
	dLen := dataLen(flows, bases)
	data := pool.Get(dLen)
	defer pool.Put(data)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, 0, err
	}
	rec.ReadData.Flowgram = make([]uint16, flows)
	off := 0
	for i := range rec.ReadData.Flowgram {
		rec.ReadData.Flowgram[i] = binary.BigEndian.Uint16(data[off:])
		off += 2
	}
	rec.FlowIndex = append([]uint8(nil), data[off:off+bases]...)
	off += bases
	rec.Bases = append([]byte(nil), data[off:off+bases]...)
	off += bases
	rec.Quals = append([]byte(nil), data[off:off+bases]...)

	return rec, hLen + dLen, nil
}
