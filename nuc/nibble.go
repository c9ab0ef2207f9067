// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nuc

import (
	"encoding/binary"
	"fmt"
)

// Nibble is a four bits per base codec over the IUPAC nucleotide
// alphabet and the gap. The encoding is a big-endian uint32 length
// followed by bases packed two per byte, high nibble first.
var Nibble nibble

type nibble struct{}

var _ Codec = Nibble

const nibbleLetters = "-ACMGRSVTWYHKDBN"

var nibbleCode [256]int8

func init() {
	for i := range nibbleCode {
		nibbleCode[i] = -1
	}
	for i, b := range []byte(nibbleLetters) {
		nibbleCode[b] = int8(i)
	}
}

func (nibble) CanEncode(s []byte) bool {
	for _, b := range s {
		if nibbleCode[b] < 0 {
			return false
		}
	}
	return true
}

func (nibble) Encode(s []byte) []byte {
	buf := make([]byte, 4+(len(s)+1)/2)
	binary.BigEndian.PutUint32(buf, uint32(len(s)))
	p := buf[4:]
	for i, b := range s {
		c := nibbleCode[b]
		if c < 0 {
			panic(fmt.Sprintf("nuc: symbol %q cannot be nibble encoded", b))
		}
		p[i>>1] |= byte(c) << (4 * uint(1-i&1))
	}
	return buf
}

func (nibble) header(b []byte) (int, []byte, error) {
	if len(b) < 4 {
		return 0, nil, &DecodeError{Offset: 0, Msg: "short length field"}
	}
	n := int(binary.BigEndian.Uint32(b))
	if len(b) < 4+(n+1)/2 {
		return 0, nil, &DecodeError{Offset: 4, Msg: "short packed bases"}
	}
	return n, b[4:], nil
}

func (c nibble) Decode(b []byte) ([]byte, error) {
	n, p, err := c.header(b)
	if err != nil {
		return nil, err
	}
	s := make([]byte, n)
	for i := range s {
		s[i] = nibbleLetters[(p[i>>1]>>(4*uint(1-i&1)))&0xf]
	}
	return s, nil
}

func (c nibble) At(b []byte, i int) (byte, error) {
	n, p, err := c.header(b)
	if err != nil {
		return 0, err
	}
	if i < 0 || n <= i {
		return 0, &DecodeError{Offset: -1, Msg: fmt.Sprintf("index %d out of range [0,%d)", i, n)}
	}
	return nibbleLetters[(p[i>>1]>>(4*uint(1-i&1)))&0xf], nil
}

func (c nibble) Len(b []byte) (int, error) {
	n, _, err := c.header(b)
	return n, err
}
