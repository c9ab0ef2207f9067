// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cas

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode writes a CAS file holding h and matches to w. The header's
// NumReads field must equal len(matches).
func Encode(w io.Writer, h *Header, matches []*Match) error {
	np, ok := numberParsers[h.Version]
	if !ok {
		return ErrUnsupportedVersion
	}
	if h.NumReads != uint64(len(matches)) {
		return fmt.Errorf("cas: header read count %d does not match %d matches", h.NumReads, len(matches))
	}
	if h.Scoring != nil && uint64(len(h.Contigs)) != h.NumContigs {
		return fmt.Errorf("cas: header contig count %d does not match %d contig lengths", h.NumContigs, len(h.Contigs))
	}
	contigWidth := bytesFor(h.NumContigs)
	positionWidth := bytesFor(h.maxContigLength())

	var body []byte
	for _, m := range matches {
		var err error
		body, err = appendMatch(body, m, contigWidth, positionWidth)
		if err != nil {
			return err
		}
	}

	buf := make([]byte, matchStart, matchStart+len(body))
	copy(buf, magicPrefix[:])
	buf[7] = byte(h.Version)
	binary.LittleEndian.PutUint64(buf[8:], uint64(matchStart+len(body)))
	buf = append(buf, body...)
	buf = appendHeader(buf, h, np)
	_, err := w.Write(buf)
	return err
}

func appendMatch(b []byte, m *Match, contigWidth, positionWidth int) ([]byte, error) {
	var info byte
	if m.HasMatch {
		info |= hasMatchFlag
		if m.Alignment == nil {
			return nil, fmt.Errorf("cas: match without alignment")
		}
	}
	if m.PartOfPair {
		info |= partOfPairFlag
	}
	if m.NumMatches > 1 {
		info |= multipleMatchesFlag
	}
	if m.NumReportedAlignments > 1 {
		info |= multipleAlignmentFlag
	}
	b = append(b, info)
	if m.NumMatches > 1 {
		b = appendCount(b, m.NumMatches-2)
	}
	if m.NumReportedAlignments > 1 {
		b = appendCount(b, m.NumReportedAlignments-2)
	}
	if !m.HasMatch {
		return b, nil
	}
	a := m.Alignment
	if !fits(a.ContigID, contigWidth) {
		return nil, fmt.Errorf("cas: contig id %d out of range", a.ContigID)
	}
	if !fits(a.Start, positionWidth) {
		return nil, fmt.Errorf("cas: position %d beyond longest contig", a.Start)
	}
	regions := EncodeRegions(a.Regions)
	b = appendCount(b, uint64(len(regions)))
	b = appendUintN(b, a.ContigID, contigWidth)
	b = appendUintN(b, a.Start, positionWidth)
	if a.Reverse {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = append(b, regions...)
	return appendCount(b, m.Score), nil
}

func appendHeader(b []byte, h *Header, np numberParser) []byte {
	b = np.put(b, h.NumContigs)
	b = np.put(b, h.NumReads)
	b = appendString(b, h.Program.Name)
	b = appendString(b, h.Program.Version)
	b = appendString(b, h.Program.Args)
	b = appendFileInfos(b, h.ContigFiles, np)
	b = appendFileInfos(b, h.ReadFiles, np)
	if h.Scoring == nil {
		return append(b, 0)
	}
	s := h.Scoring
	b = append(b, 1, byte(s.Score), byte(s.Alignment))
	for _, v := range []int32{
		s.Match, s.Mismatch,
		s.InsertionOpen, s.InsertionExtend,
		s.DeletionOpen, s.DeletionExtend,
		s.N, s.ColorSpaceError,
	} {
		b = appendUintN(b, uint64(uint32(v)), 4)
	}
	for _, c := range h.Contigs {
		b = np.put(b, c.Length)
		if c.Circular {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	return b
}

func appendFileInfos(b []byte, fi []FileInfo, np numberParser) []byte {
	b = appendCount(b, uint64(len(fi)))
	for _, f := range fi {
		if len(f.Names) == 2 {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = np.put(b, f.NumSequences)
		b = appendUintN(b, f.NumResidues, 8)
		switch len(f.Names) {
		case 0:
			b = appendString(b, "")
		case 1:
			b = appendString(b, f.Names[0])
		default:
			b = appendString(b, f.Names[0])
			b = appendString(b, f.Names[1])
		}
	}
	return b
}

func appendCount(b []byte, v uint64) []byte {
	switch {
	case v < 254:
		return append(b, byte(v))
	case v <= 0xffff:
		b = append(b, 254)
		return appendUintN(b, v, 2)
	default:
		b = append(b, 255)
		return appendUintN(b, v, 4)
	}
}

func appendString(b []byte, s string) []byte {
	b = appendCount(b, uint64(len(s)))
	return append(b, s...)
}

func appendUintN(b []byte, v uint64, n int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(b, buf[:n]...)
}
