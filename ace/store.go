// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// MemStore is an in-memory contig datastore.
type MemStore struct {
	mu     sync.RWMutex
	closed bool

	h       *Header
	contigs map[string]*Contig
	ids     []string
	tags    *Tags
	skipped []Skip
}

// NewMemStore returns a MemStore holding all the contigs in r accepted by
// opt. The opt parameter may be nil.
func NewMemStore(r io.Reader, opt *Options) (*MemStore, error) {
	ar := NewReader(r, opt)
	s := &MemStore{contigs: make(map[string]*Contig)}
	for {
		c, err := ar.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, dup := s.contigs[c.ID]; dup {
			return nil, errors.Errorf("ace: duplicate contig %s", c.ID)
		}
		s.contigs[c.ID] = c
		s.ids = append(s.ids, c.ID)
	}
	s.h = ar.Header()
	s.tags = ar.Tags()
	s.skipped = ar.Skipped()
	return s, nil
}

// Header returns the AS header of the source data.
func (s *MemStore) Header() *Header { return s.h }

// Get returns the contig with the given ID.
func (s *MemStore) Get(id string) (*Contig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	c, ok := s.contigs[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no contig %s", id)
	}
	return c, nil
}

// Contains returns whether the store holds the contig.
func (s *MemStore) Contains(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.contigs[id]
	return ok, nil
}

// Len returns the number of contigs in the store.
func (s *MemStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.ids), nil
}

// IDs returns the contig IDs in file order.
func (s *MemStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]string(nil), s.ids...), nil
}

// Tags returns the tags of the source data.
func (s *MemStore) Tags() *Tags { return s.tags }

// Skipped returns the reads that were not placed in their contigs.
func (s *MemStore) Skipped() []Skip { return s.skipped }

// Close closes the store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.contigs = nil
	s.mu.Unlock()
	return nil
}
