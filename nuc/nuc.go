// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nuc implements compact nucleotide sequence storage.
//
// Sequences are held as upper case IUPAC letters with '-' as the gap
// symbol. Sequences over {A,C,G,T,-} are held in the TwoBit encoding;
// other sequences fall back to the Nibble encoding.
package nuc

import "fmt"

// Gap is the gap symbol used in gapped sequences.
const Gap = '-'

// Codec is a nucleotide sequence encoding.
type Codec interface {
	// CanEncode returns whether all the symbols in s are
	// representable by the Codec.
	CanEncode(s []byte) bool

	// Encode returns the encoded form of s. It panics if
	// s holds a symbol that cannot be represented.
	Encode(s []byte) []byte

	// Decode returns the sequence encoded in b.
	Decode(b []byte) ([]byte, error)

	// At returns the symbol at position i of the sequence
	// encoded in b.
	At(b []byte, i int) (byte, error)

	// Len returns the length of the sequence encoded in b.
	Len(b []byte) (int, error)
}

// DecodeError is returned when an encoded sequence is corrupt or short.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return "nuc: " + e.Msg
	}
	return fmt.Sprintf("nuc: %s at byte %d", e.Msg, e.Offset)
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a',
	'R': 'Y', 'Y': 'R', 'K': 'M', 'M': 'K',
	'S': 'S', 'W': 'W', 'B': 'V', 'V': 'B',
	'D': 'H', 'H': 'D', 'N': 'N', 'n': 'n',
	Gap: Gap, '*': '*',
}

// Complement returns the complement of the nucleotide b. Symbols
// without a complement are returned unaltered.
func Complement(b byte) byte {
	if c := complement[b]; c != 0 {
		return c
	}
	return b
}

// ReverseComplement returns a new slice holding the reverse complement
// of s.
func ReverseComplement(s []byte) []byte {
	rc := make([]byte, len(s))
	for i, b := range s {
		rc[len(s)-1-i] = Complement(b)
	}
	return rc
}

// IsGap returns whether b is a gap symbol.
func IsGap(b byte) bool { return b == Gap || b == '*' }
