// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sff

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Writer implements SFF encoding of read records.
type Writer struct {
	w   io.Writer
	h   Header
	off int64
	n   uint32

	// index is the record offsets for
	// a trailing read index.
	index  map[string]int64
	format IndexFormat
	xml    string
}

// NewWriter returns a Writer that writes records to w after writing the
// common header h. The NumReads field of h must hold the number of
// records that will be written. Any index fields of h are ignored.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	h.IndexOffset = 0
	h.IndexLength = 0
	b, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	_, err = w.Write(b)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, h: h, off: int64(len(b))}, nil
}

// WithIndex requests that the Writer append a read index of the given
// format when it is closed. The xml text is only used for Manifest
// formatted indexes. Writing an index requires that the destination
// of the Writer is an io.WriteSeeker so that the common header can be
// updated.
func (w *Writer) WithIndex(f IndexFormat, xml string) error {
	if _, ok := w.w.(io.WriteSeeker); !ok {
		return errors.New("sff: index requires seekable destination")
	}
	switch f {
	case NoIndex:
		w.index = nil
	case Sorted, Manifest:
		w.index = make(map[string]int64, w.h.NumReads)
	default:
		return fmt.Errorf("sff: invalid index format %d", f)
	}
	w.format = f
	w.xml = xml
	return nil
}

// Write writes rec to the underlying writer.
func (w *Writer) Write(rec *Record) error {
	if w.n == w.h.NumReads {
		return fmt.Errorf("sff: attempt to write more than %d records", w.h.NumReads)
	}
	if len(rec.ReadData.Flowgram) != w.h.NumFlows() {
		return fmt.Errorf("sff: record %q has %d flows, header declares %d", rec.Name, len(rec.ReadData.Flowgram), w.h.NumFlows())
	}
	if int(rec.NumBases) != len(rec.Bases) {
		return fmt.Errorf("sff: record %q declares %d bases but holds %d", rec.Name, rec.NumBases, len(rec.Bases))
	}
	hb, err := rec.ReadHeader.MarshalBinary()
	if err != nil {
		return err
	}
	db, err := rec.ReadData.MarshalBinary()
	if err != nil {
		return err
	}
	if w.index != nil {
		if _, dup := w.index[rec.Name]; dup {
			return fmt.Errorf("sff: duplicate read name %q", rec.Name)
		}
		w.index[rec.Name] = w.off
	}
	_, err = w.w.Write(hb)
	if err != nil {
		return err
	}
	_, err = w.w.Write(db)
	if err != nil {
		return err
	}
	w.off += int64(len(hb) + len(db))
	w.n++
	return nil
}

// Close finishes the SFF stream, writing the read index if one was
// requested. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.n != w.h.NumReads {
		return fmt.Errorf("sff: wrote %d records, header declares %d", w.n, w.h.NumReads)
	}
	if w.index == nil {
		return nil
	}
	b, err := encodeIndex(w.format, w.xml, w.index)
	if err != nil {
		return err
	}
	if len(b) > math.MaxUint32 {
		return errors.New("sff: index too large")
	}
	_, err = w.w.Write(b)
	if err != nil {
		return err
	}

	h := w.h
	h.IndexOffset = uint64(w.off)
	h.IndexLength = uint32(len(b))
	hb, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	ws := w.w.(io.WriteSeeker)
	_, err = ws.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	_, err = ws.Write(hb)
	if err != nil {
		return err
	}
	_, err = ws.Seek(0, io.SeekEnd)
	return err
}
