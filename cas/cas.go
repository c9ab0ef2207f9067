// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cas implements reading of CLC bio CAS alignment files.
//
// A CAS file starts with an eight byte magic number, the last byte of
// which is the format version, followed by the little-endian offset of
// the file header which is stored after the match records. Match records
// start at byte 16, one per read.
package cas

import (
	"errors"
	"fmt"

	"github.com/biogo/hts/sam"
)

var (
	ErrNotCAS             = errors.New("cas: not a cas file")
	ErrUnsupportedVersion = errors.New("cas: unsupported version")
	ErrBadRegion          = errors.New("cas: truncated alignment region")
)

var magicPrefix = [7]byte{0x43, 0x4c, 0x43, 0x80, 0x00, 0x00, 0x00}

// matchStart is the offset of the first match record.
const matchStart = 16

// Version is the CAS format version.
type Version byte

const (
	// RefAssemble files hold 32-bit count fields.
	RefAssemble Version = 1
	// Mapper files hold 64-bit count fields.
	Mapper Version = 3
)

func (v Version) String() string {
	switch v {
	case RefAssemble:
		return "REF_ASSEMBLE"
	case Mapper:
		return "MAPPER"
	}
	return fmt.Sprintf("Version(%d)", byte(v))
}

// Header is the CAS file header.
type Header struct {
	Version    Version
	NumContigs uint64
	NumReads   uint64

	Program Program

	ContigFiles []FileInfo
	ReadFiles   []FileInfo

	// Scoring and Contigs are only present if the
	// file holds scoring information.
	Scoring *ScoringScheme
	Contigs []ContigInfo
}

// Program describes the program that wrote a CAS file.
type Program struct {
	Name    string
	Version string
	Args    string
}

// FileInfo describes a set of sequence files referenced by a CAS file.
type FileInfo struct {
	Names        []string
	NumSequences uint64
	NumResidues  uint64
}

// ContigInfo describes a reference sequence.
type ContigInfo struct {
	Length   uint64
	Circular bool
}

// ScoreType is the type of scoring used to build the alignments.
type ScoreType byte

const (
	NoScore ScoreType = iota
	SimpleScore
	ColorSpaceScore
)

// AlignmentType is the type of alignment reported.
type AlignmentType byte

const (
	Local AlignmentType = iota
	SemiLocal
	ReverseSemiLocal
	Global
)

// ScoringScheme holds the alignment scoring parameters.
type ScoringScheme struct {
	Score     ScoreType
	Alignment AlignmentType

	Match           int32
	Mismatch        int32
	InsertionOpen   int32
	InsertionExtend int32
	DeletionOpen    int32
	DeletionExtend  int32
	N               int32
	ColorSpaceError int32
}

// Match is the alignment summary for one read.
type Match struct {
	HasMatch              bool
	NumMatches            uint64
	NumReportedAlignments uint64
	PartOfPair            bool

	// Alignment is the chosen alignment and is
	// nil if the read has no match.
	Alignment *Alignment

	Score uint64
}

// Alignment is the placement of a read against a reference.
type Alignment struct {
	ContigID uint64
	Start    uint64
	Reverse  bool
	Regions  []Region
}

// Cigar returns the alignment as a SAM CIGAR. Phase changes are not
// represented in the returned Cigar.
func (a *Alignment) Cigar() sam.Cigar {
	var c sam.Cigar
	for _, r := range a.Regions {
		var t sam.CigarOpType
		switch r.Type {
		case MatchMismatch:
			t = sam.CigarMatch
		case Insertion:
			t = sam.CigarInsertion
		case Deletion:
			t = sam.CigarDeletion
		default:
			continue
		}
		if n := len(c); n != 0 && c[n-1].Type() == t {
			c[n-1] = sam.NewCigarOp(t, c[n-1].Len()+r.Len)
			continue
		}
		c = append(c, sam.NewCigarOp(t, r.Len))
	}
	return c
}

// RefLen returns the number of reference positions covered by the
// alignment.
func (a *Alignment) RefLen() int {
	var n int
	for _, r := range a.Regions {
		if r.Type == MatchMismatch || r.Type == Deletion {
			n += r.Len
		}
	}
	return n
}

// RegionType is the type of an alignment region.
type RegionType byte

const (
	MatchMismatch RegionType = iota
	Insertion
	Deletion
	PhaseChange
)

var regionTypes = [...]string{"match", "insertion", "deletion", "phase"}

func (t RegionType) String() string {
	if int(t) < len(regionTypes) {
		return regionTypes[t]
	}
	return fmt.Sprintf("RegionType(%d)", byte(t))
}

// Region is a run of one alignment operation.
type Region struct {
	Type RegionType
	Len  int

	// Phase is the phase change payload of
	// a PhaseChange region.
	Phase int8
}

func (r Region) String() string {
	if r.Type == PhaseChange {
		return fmt.Sprintf("phase(%d)", r.Phase)
	}
	return fmt.Sprintf("%s(%d)", r.Type, r.Len)
}

// Opcode ranges of the region byte code.
const (
	maxMatchOp     = 127
	maxInsertionOp = 191
	maxDeletionOp  = 254
	phaseChangeOp  = 255
)

// DecodeOp decodes a single region opcode. The Phase of a returned
// PhaseChange region must be filled from the following payload byte.
func DecodeOp(op byte) Region {
	switch {
	case op <= maxMatchOp:
		return Region{Type: MatchMismatch, Len: int(op) + 1}
	case op <= maxInsertionOp:
		return Region{Type: Insertion, Len: int(op) - maxMatchOp}
	case op <= maxDeletionOp:
		return Region{Type: Deletion, Len: int(op) - maxInsertionOp}
	default:
		return Region{Type: PhaseChange}
	}
}

// DecodeRegions decodes a complete opcode encoded match body. Adjacent
// runs of the same type are merged.
func DecodeRegions(body []byte) ([]Region, error) {
	var regions []Region
	for i := 0; i < len(body); i++ {
		r := DecodeOp(body[i])
		if r.Type == PhaseChange {
			i++
			if i == len(body) {
				return regions, ErrBadRegion
			}
			r.Phase = int8(body[i])
			regions = append(regions, r)
			continue
		}
		if n := len(regions); n != 0 && regions[n-1].Type == r.Type {
			regions[n-1].Len += r.Len
			continue
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// EncodeRegions returns the opcode encoding of regions.
func EncodeRegions(regions []Region) []byte {
	var b []byte
	for _, r := range regions {
		if r.Type == PhaseChange {
			b = append(b, phaseChangeOp, byte(r.Phase))
			continue
		}
		var base, run int
		switch r.Type {
		case MatchMismatch:
			base, run = 0, maxMatchOp+1
		case Insertion:
			base, run = maxMatchOp+1, maxInsertionOp-maxMatchOp
		case Deletion:
			base, run = maxInsertionOp+1, maxDeletionOp-maxInsertionOp
		default:
			panic(fmt.Sprintf("cas: invalid region type %d", r.Type))
		}
		for n := r.Len; n > 0; n -= run {
			l := n
			if l > run {
				l = run
			}
			b = append(b, byte(base+l-1))
		}
	}
	return b
}

// bytesFor returns the number of bytes needed to hold values below max,
// ceil(log256(max)). A field for a max of zero or one has no bytes.
func bytesFor(max uint64) int {
	var n int
	for v := uint64(1); n < 8 && v < max; v <<= 8 {
		n++
	}
	return n
}

// fits returns whether v can be held in an n byte field.
func fits(v uint64, n int) bool {
	return n >= 8 || v>>(8*uint(n)) == 0
}
