// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"sync"

	"github.com/pkg/errors"
)

// readBuffer is the capacity of the hand-off
// between a read iterator's parser and its
// consumer.
const readBuffer = 16

type readResult struct {
	read *Read
	err  error
}

// ReadIterator iterates over the reads of a contig in the order of their
// AF records. Reads are parsed by a background goroutine. A ReadIterator must be closed
// after use to release the goroutine.
type ReadIterator struct {
	s *IndexedStore

	c    chan readResult
	done chan struct{}
	once sync.Once

	// finished is set by the parser before
	// c is closed if all reads were sent.
	finished bool

	read      *Read
	err       error
	exhausted bool
}

// ReadIterator returns an iterator over the reads of the given contig.
func (s *IndexedStore) ReadIterator(contig string) (*ReadIterator, error) {
	ci, err := s.contig(contig)
	if err != nil {
		return nil, err
	}
	it := &ReadIterator{
		s:    s,
		c:    make(chan readResult, readBuffer),
		done: make(chan struct{}),
	}
	go it.run(ci)
	return it, nil
}

func (it *ReadIterator) run(ci *contigIndex) {
	defer close(it.c)
	for _, id := range ci.order {
		r, err := it.s.readIn(ci, id)
		if err != nil {
			err = errors.Wrapf(err, "ace: failed to read contig %s", ci.id)
		}
		if !it.send(readResult{read: r, err: err}) || err != nil {
			return
		}
	}
	it.finished = true
}

// send passes r to the consumer, returning false if the iterator or the
// store has been closed.
func (it *ReadIterator) send(r readResult) bool {
	select {
	case it.c <- r:
		return true
	case <-it.done:
		return false
	case <-it.s.done:
		return false
	}
}

// Next advances the iterator to the next read. After Next returns false,
// Error reports whether iteration stopped because of an error or because
// the store was closed. An iterator that has reached the end of its reads
// is unaffected by closing the store.
func (it *ReadIterator) Next() bool {
	it.read = nil
	if it.exhausted {
		return false
	}
	if it.s.isClosed() {
		it.err = ErrClosed
		return false
	}
	res, ok := <-it.c
	if !ok {
		if !it.finished {
			if it.s.isClosed() {
				it.err = ErrClosed
				return false
			}
		}
		it.exhausted = true
		return false
	}
	if res.err != nil {
		if it.s.isClosed() {
			res.err = ErrClosed
		}
		it.err = res.err
		it.exhausted = true
		return false
	}
	it.read = res.read
	return true
}

// Read returns the current read.
func (it *ReadIterator) Read() *Read { return it.read }

// Error returns the error that stopped iteration.
func (it *ReadIterator) Error() error { return it.err }

// Close releases the iterator's resources.
func (it *ReadIterator) Close() error {
	it.once.Do(func() { close(it.done) })
	it.exhausted = true
	it.read = nil
	return nil
}
