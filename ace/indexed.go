// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// IndexedStore is a contig datastore that holds only the byte offsets of
// contigs and reads. Contigs and reads are parsed from the backing data on
// each access. Access is implemented via mmapped file memory when the
// store is opened with OpenIndexed.
//
// The backing data must not change during the lifetime of the store.
type IndexedStore struct {
	// mu protects the backing data from being
	// released by Close during a read.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	r      io.ReaderAt
	size   int64
	closer io.Closer

	opt *Options

	h       *Header
	contigs map[string]*contigIndex
	ids     []string
	tags    Tags
	skipped []Skip
}

// contigIndex is the location of a contig and its reads.
type contigIndex struct {
	id   string
	span Span

	// left and right are the bounds of the trimmed
	// consensus in the untrimmed consensus.
	left, right int64

	reads map[string]*readIndex

	// order holds the placed reads in
	// the order of their AF records.
	order []string
}

// readIndex is the location of a read and its AF information.
type readIndex struct {
	span Span
	af   AssembledFrom
}

// OpenIndexed opens and indexes the Ace file at path. The opt parameter
// may be nil.
func OpenIndexed(path string, opt *Options) (*IndexedStore, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ace: failed to open %s", path)
	}
	s, err := NewIndexedStore(f, int64(f.Len()), opt)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "ace: failed to index %s", path)
	}
	s.closer = f
	return s, nil
}

// NewIndexedStore returns an IndexedStore for the size bytes of Ace data
// held in r. The opt parameter may be nil.
func NewIndexedStore(r io.ReaderAt, size int64, opt *Options) (*IndexedStore, error) {
	s := &IndexedStore{
		done:    make(chan struct{}),
		r:       r,
		size:    size,
		opt:     opt,
		contigs: make(map[string]*contigIndex),
	}
	err := s.index()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *IndexedStore) index() error {
	p := NewParser(io.NewSectionReader(s.r, 0, s.size))
	a := assembler{opt: s.opt}
	var (
		ci      *contigIndex
		consLen int64
		lo, hi  int64
	)
	for {
		e, err := p.Next()
		if err == io.EOF {
			s.skipped = a.skipped
			return nil
		}
		if err != nil {
			return err
		}
		if s.tags.add(e) {
			continue
		}
		switch e := e.(type) {
		case *Header:
			s.h = e
		case *ContigStart:
			if !s.opt.accept(e.ID) {
				ci = nil
				continue
			}
			if _, dup := s.contigs[e.ID]; dup {
				return errors.Errorf("ace: duplicate contig %s", e.ID)
			}
			ci = &contigIndex{
				id:    e.ID,
				span:  Span{Begin: e.Begin},
				reads: make(map[string]*readIndex, e.NumReads),
			}
			consLen = int64(len(e.Consensus))
			lo, hi = math.MaxInt64, math.MinInt64
		case *AssembledFrom:
			if ci == nil {
				continue
			}
			if _, dup := ci.reads[e.ID]; dup {
				return &FormatError{Offset: e.Begin, Err: errors.Errorf("duplicate AF record for read %s", e.ID)}
			}
			ci.reads[e.ID] = &readIndex{af: *e}
			ci.order = append(ci.order, e.ID)
		case *ReadRecord:
			if ci == nil {
				continue
			}
			ri, ok := ci.reads[e.ID]
			if !ok || ri.span != (Span{}) {
				return &FormatError{Offset: e.Begin, Err: errors.Errorf("read %s has no unique AF record", e.ID)}
			}
			rb, err := a.place(ci.id, &ri.af, e)
			if err != nil {
				return err
			}
			if rb == nil {
				delete(ci.reads, e.ID)
				continue
			}
			if !rb.overlaps(0, consLen-1) {
				a.record(Skip{Contig: ci.id, Read: e.ID, Reason: OutsideConsensus})
				delete(ci.reads, e.ID)
				continue
			}
			ri.span = e.Span
			if rb.Start < lo {
				lo = rb.Start
			}
			if end := rb.End(); end > hi {
				hi = end
			}
		case *ContigEnd:
			if ci == nil {
				continue
			}
			ci.span.End = e.End
			placed := ci.order[:0]
			for _, id := range ci.order {
				ri, ok := ci.reads[id]
				if !ok {
					continue
				}
				if ri.span == (Span{}) {
					// AF without a read record.
					delete(ci.reads, id)
					continue
				}
				placed = append(placed, id)
			}
			ci.order = placed
			if len(ci.order) == 0 {
				ci.left, ci.right = 0, consLen-1
			} else {
				ci.left, ci.right = lo, hi
				if ci.left < 0 {
					ci.left = 0
				}
				if ci.right > consLen-1 {
					ci.right = consLen - 1
				}
			}
			s.contigs[ci.id] = ci
			s.ids = append(s.ids, ci.id)
			ci = nil
		}
	}
}

// lockedReaderAt is an io.ReaderAt that fails with ErrClosed after the
// store has been closed.
type lockedReaderAt struct {
	s *IndexedStore
}

func (l lockedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	if l.s.closed {
		return 0, ErrClosed
	}
	return l.s.r.ReadAt(p, off)
}

func (s *IndexedStore) section(sp Span) io.Reader {
	return io.NewSectionReader(lockedReaderAt{s}, sp.Begin, sp.End-sp.Begin)
}

func (s *IndexedStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *IndexedStore) contig(id string) (*contigIndex, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	ci, ok := s.contigs[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no contig %s", id)
	}
	return ci, nil
}

// Header returns the AS header of the backing data.
func (s *IndexedStore) Header() *Header { return s.h }

// Tags returns the tags of the backing data.
func (s *IndexedStore) Tags() *Tags { return &s.tags }

// Skipped returns the reads that could not be placed in their contigs.
func (s *IndexedStore) Skipped() []Skip { return s.skipped }

// Get returns the contig with the given ID, parsing it from the backing
// data.
func (s *IndexedStore) Get(id string) (*Contig, error) {
	ci, err := s.contig(id)
	if err != nil {
		return nil, err
	}
	var opt Options
	if s.opt != nil {
		opt = *s.opt
		opt.Filter = nil
		opt.Logger = nil
	}
	p := resumeParser(s.section(ci.span), ci.span.Begin)
	a := assembler{opt: &opt}
	for {
		e, err := p.Next()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrapf(err, "ace: failed to read contig %s at offset %d", id, ci.span.Begin)
		}
		c, err := a.handle(e)
		if err != nil {
			return nil, errors.Wrapf(err, "ace: failed to build contig %s", id)
		}
		if c != nil {
			return c, nil
		}
	}
}

// Contains returns whether the store holds the contig.
func (s *IndexedStore) Contains(id string) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	_, ok := s.contigs[id]
	return ok, nil
}

// Len returns the number of contigs in the store.
func (s *IndexedStore) Len() (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	return len(s.ids), nil
}

// IDs returns the contig IDs in file order.
func (s *IndexedStore) IDs() ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return append([]string(nil), s.ids...), nil
}

// ReadIDs returns the IDs of the placed reads of a contig in the order of
// their AF records.
func (s *IndexedStore) ReadIDs(contig string) ([]string, error) {
	ci, err := s.contig(contig)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), ci.order...), nil
}

// Read returns a single read of a contig, parsing only that read's
// records from the backing data.
func (s *IndexedStore) Read(contig, read string) (*Read, error) {
	ci, err := s.contig(contig)
	if err != nil {
		return nil, err
	}
	return s.readIn(ci, read)
}

// readIn parses and places the named read of the contig indexed by ci.
func (s *IndexedStore) readIn(ci *contigIndex, read string) (*Read, error) {
	ri, ok := ci.reads[read]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no read %s in contig %s", read, ci.id)
	}
	contig := ci.id
	p := resumeRead(s.section(ri.span), ri.span.Begin, contig)
	e, err := p.Next()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "ace: failed to read %s at offset %d", read, ri.span.Begin)
	}
	rd, ok := e.(*ReadRecord)
	if !ok || rd.ID != read {
		return nil, errors.Errorf("ace: index for read %s refers to unexpected record at offset %d", read, ri.span.Begin)
	}
	return ci.place(&ri.af, rd, s.opt.phds())
}

// place places rd in the trimmed consensus of the contig.
func (ci *contigIndex) place(af *AssembledFrom, rd *ReadRecord, phds PhdStore) (*Read, error) {
	rb, reason, err := placeRead(af, rd, phds)
	if err != nil {
		return nil, err
	}
	if rb == nil {
		return nil, errors.Errorf("ace: indexed read %s cannot be placed: %v", rd.ID, reason)
	}
	if !rb.clip(ci.left, ci.right) {
		return nil, errors.Errorf("ace: read %s lies outside contig %s consensus", rd.ID, ci.id)
	}
	rb.Start -= ci.left
	return rb.Build(), nil
}

// Close closes the store. Read iterators that have not been exhausted
// report ErrClosed after Close has been called.
func (s *IndexedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
