// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ace implements reading, writing and manipulation of consed
// compatible Ace assembly files.
//
// Ace files hold a header, a set of contigs, each with a padded consensus,
// placed reads and their sequences, followed by annotation tags. In the
// files, gaps are written as '*'; in the values provided by this package,
// gaps are represented by nuc.Gap.
package ace

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/nuc"
)

var (
	ErrClosed   = errors.New("ace: datastore closed")
	ErrBuilt    = errors.New("ace: builder already used")
	ErrNotFound = errors.New("ace: not found")
	ErrNoHeader = errors.New("ace: missing AS header")
)

// FormatError is a malformed input error. It records the line and byte
// offset of the offending record.
type FormatError struct {
	Line   int
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ace: line %d (offset %d): %v", e.Line, e.Offset, e.Err)
}

// Cause returns the underlying error.
func (e *FormatError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error { return e.Err }

// Direction is the orientation of a read relative to its contig.
type Direction = consensus.Direction

const (
	Forward = consensus.Forward
	Reverse = consensus.Reverse
)

// Time formats used in Ace files.
const (
	// DSTime is the layout of the TIME field of DS records.
	DSTime = "Mon Jan 2 15:04:05 2006"

	// TagTime is the layout of tag timestamps.
	TagTime = "060102:150405"
)

// LowQuality is the quality below which read bases are written in lower case.
const LowQuality = 26

// PhdInfo describes the trace and phd files a read was called from.
type PhdInfo struct {
	TraceName string
	PhdName   string
	Time      time.Time
}

// SkipReason is the reason a read was excluded from a contig.
type SkipReason int

const (
	// NegativeValidRange indicates that the read's quality
	// or alignment clip has its end before its start.
	NegativeValidRange SkipReason = iota + 1

	// AllLowQuality indicates that the read has no high
	// quality bases.
	AllLowQuality

	// NoHighQualityAlignmentIntersection indicates that
	// the quality and alignment clips do not overlap.
	NoHighQualityAlignmentIntersection

	// OutsideConsensus indicates that no base of the
	// placed read lies under the contig consensus.
	OutsideConsensus
)

func (r SkipReason) String() string {
	switch r {
	case NegativeValidRange:
		return "negative valid range"
	case AllLowQuality:
		return "entire read is low quality"
	case NoHighQualityAlignmentIntersection:
		return "no intersection between high quality and alignment ranges"
	case OutsideConsensus:
		return "read lies outside the consensus"
	}
	return fmt.Sprintf("SkipReason(%d)", int(r))
}

// Skip records a read that was not included in its contig.
type Skip struct {
	Contig string
	Read   string
	Reason SkipReason
}

func (s Skip) String() string {
	return fmt.Sprintf("skipping read %s in contig %s: %v", s.Read, s.Contig, s.Reason)
}

// Read is a read placed in a contig.
type Read struct {
	ID string

	// Seq is the gapped sequence of the valid
	// range of the read in contig orientation.
	Seq nuc.Seq

	// Start is the gapped offset of the first
	// base of Seq in the contig consensus.
	Start int64

	Dir Direction

	// ValidRange is the ungapped range of the
	// read's full basecalls that is held in Seq,
	// expressed in the original read orientation.
	ValidRange coord.Range

	Phd PhdInfo

	// UngappedFullLength is the length of the
	// read's full untrimmed basecalls.
	UngappedFullLength int64
}

// Range returns the gapped range of the consensus covered by the read.
func (r *Read) Range() coord.Range {
	return coord.OfLength(r.Start, int64(r.Seq.Len()))
}

// End returns the gapped offset of the last base of the read.
func (r *Read) End() int64 { return r.Start + int64(r.Seq.Len()) - 1 }

// Contig is an assembled contig.
type Contig struct {
	ID string

	// Consensus is the gapped consensus.
	Consensus nuc.Seq

	Complemented bool

	// Quals holds the consensus quality of each
	// ungapped consensus base. It may be nil.
	Quals []byte

	// Reads holds the contig's reads sorted
	// by start offset and then by ID.
	Reads []*Read

	index map[string]int
}

func newContig(id string, cons nuc.Seq, comp bool, quals []byte, reads []*Read) *Contig {
	sort.Slice(reads, func(i, j int) bool { return readLess(reads[i].Start, reads[i].ID, reads[j].Start, reads[j].ID) })
	c := &Contig{
		ID:           id,
		Consensus:    cons,
		Complemented: comp,
		Quals:        quals,
		Reads:        reads,
		index:        make(map[string]int, len(reads)),
	}
	for i, r := range reads {
		c.index[r.ID] = i
	}
	return c
}

func readLess(si int64, idi string, sj int64, idj string) bool {
	if si != sj {
		return si < sj
	}
	return idi < idj
}

// Read returns the read with the given ID.
func (c *Contig) Read(id string) (*Read, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.Reads[i], true
}

// Len returns the gapped length of the contig.
func (c *Contig) Len() int { return c.Consensus.Len() }

// ReadsIn returns the reads that overlap the gapped range r.
func (c *Contig) ReadsIn(r coord.Range) []*Read {
	var reads []*Read
	for _, rd := range c.Reads {
		if rd.Start > r.End() {
			break
		}
		if rd.Range().Intersects(r) {
			reads = append(reads, rd)
		}
	}
	return reads
}
