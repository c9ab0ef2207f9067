// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sff

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// DataStore provides random access to the reads of an SFF file. Access is
// implemented via mmapped file memory when the DataStore is opened with Open.
//
// The backing data must not change during the lifetime of the DataStore.
type DataStore struct {
	// mu protects the backing data from being
	// released by Close during a read.
	mu     sync.RWMutex
	closed bool

	r      io.ReaderAt
	size   int64
	closer io.Closer

	h   Header
	idx *Index
}

// Open opens the SFF file at the given path. If the file holds a recognised
// read index it is used, otherwise the index is built by parsing the file.
func Open(path string) (*DataStore, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "sff: failed to open %s", path)
	}
	ds, err := NewDataStore(f, int64(f.Len()))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "sff: failed to index %s", path)
	}
	ds.closer = f
	return ds, nil
}

// NewDataStore returns a DataStore reading the size bytes of SFF data in r.
func NewDataStore(r io.ReaderAt, size int64) (*DataStore, error) {
	h, _, err := readHeader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, err
	}
	idx, err := ReadManifest(r, size, &h)
	switch err {
	case nil:
		for _, name := range idx.names {
			if off := idx.offsets[name]; off >= size {
				return nil, errors.Errorf("sff: index offset %d for %q beyond end of data at %d", off, name, size)
			}
		}
	case ErrNoManifest:
		idx, err = BuildIndex(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return &DataStore{r: r, size: size, h: h, idx: idx}, nil
}

// Header returns the SFF common header.
func (ds *DataStore) Header() *Header { return &ds.h }

// IndexFormat returns the format of the index used by the DataStore.
func (ds *DataStore) IndexFormat() IndexFormat { return ds.idx.Format }

// Get returns the flowgram for the read with the given name.
func (ds *DataStore) Get(name string) (*Flowgram, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return nil, ErrClosed
	}
	off, ok := ds.idx.Offset(name)
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	rec, _, err := readRecord(io.NewSectionReader(ds.r, off, ds.size-off), ds.h.NumFlows())
	if err != nil {
		return nil, errors.Wrapf(err, "sff: failed to read %q at offset %d", name, off)
	}
	if rec.Name != name {
		return nil, errors.Errorf("sff: index for %q refers to %q at offset %d", name, rec.Name, off)
	}
	return rec.Flowgram(), nil
}

// Contains returns whether the DataStore holds the named read.
func (ds *DataStore) Contains(name string) (bool, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return false, ErrClosed
	}
	_, ok := ds.idx.Offset(name)
	return ok, nil
}

// Len returns the number of reads in the DataStore.
func (ds *DataStore) Len() (int, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return 0, ErrClosed
	}
	return ds.idx.Len(), nil
}

// Iterator returns an iterator over all the flowgrams in file order.
func (ds *DataStore) Iterator() *Iterator {
	it := &Iterator{ds: ds}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		it.err = ErrClosed
		return it
	}
	it.r, it.err = NewReader(io.NewSectionReader(ds.r, 0, ds.size))
	return it
}

// IDs returns an iterator over all read names in file order.
func (ds *DataStore) IDs() *IDIterator {
	return &IDIterator{it: ds.Iterator()}
}

// Close closes the DataStore. Iterators that have not been exhausted
// report ErrClosed after Close has been called.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return nil
	}
	ds.closed = true
	if ds.closer != nil {
		return ds.closer.Close()
	}
	return nil
}

// Iterator is a sequential iterator over the flowgrams of a DataStore.
type Iterator struct {
	ds *DataStore
	r  *Reader

	f    *Flowgram
	err  error
	done bool
}

// Next advances the iterator to the next flowgram, returning false if no
// further flowgram is available. After Next returns false, Error reports
// whether the iteration ended because of an error or because the
// DataStore was closed.
func (it *Iterator) Next() bool {
	it.f = nil
	if it.done || it.r == nil {
		return false
	}
	it.ds.mu.RLock()
	defer it.ds.mu.RUnlock()
	if it.ds.closed {
		it.err = ErrClosed
		return false
	}
	it.f, it.err = it.r.Read()
	if it.err != nil {
		if it.err == io.EOF {
			it.err = nil
		}
		it.done = true
		return false
	}
	return true
}

// Flowgram returns the current flowgram.
func (it *Iterator) Flowgram() *Flowgram { return it.f }

// Error returns the first non-EOF error encountered by the iterator.
func (it *Iterator) Error() error { return it.err }

// Close releases the iterator. Close does not close the DataStore.
func (it *Iterator) Close() error {
	it.done = true
	it.f = nil
	return nil
}

// IDIterator is a sequential iterator over the read names of a DataStore.
type IDIterator struct {
	it *Iterator
}

// Next advances the iterator to the next read name.
func (it *IDIterator) Next() bool { return it.it.Next() }

// ID returns the current read name.
func (it *IDIterator) ID() string {
	if it.it.f == nil {
		return ""
	}
	return it.it.f.ID
}

// Error returns the first non-EOF error encountered by the iterator.
func (it *IDIterator) Error() error { return it.it.Error() }

// Close releases the iterator.
func (it *IDIterator) Close() error { return it.it.Close() }
