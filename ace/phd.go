// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"time"

	"github.com/pkg/errors"

	"github.com/biogo/asm/nuc"
)

// Phd holds the full basecalls of a read.
type Phd struct {
	// Bases and Quals are the ungapped calls
	// and qualities in sequencing orientation.
	Bases []byte
	Quals []byte

	Time time.Time
}

// PhdStore provides read basecalls by read ID.
type PhdStore interface {
	// Phd returns the basecalls for the read. If the read
	// is not held, the returned error has cause ErrNotFound.
	Phd(id string) (*Phd, error)
}

// QualityStore provides read qualities by read ID.
type QualityStore interface {
	// Qualities returns the ungapped qualities of the full
	// read in sequencing orientation. If the read is not
	// held, the returned error has cause ErrNotFound.
	Qualities(id string) ([]byte, error)
}

// PhdMap is a map-backed PhdStore and QualityStore.
type PhdMap map[string]*Phd

// Phd implements the PhdStore interface.
func (m PhdMap) Phd(id string) (*Phd, error) {
	p, ok := m[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no phd for %s", id)
	}
	return p, nil
}

// Qualities implements the QualityStore interface.
func (m PhdMap) Qualities(id string) ([]byte, error) {
	p, ok := m[id]
	if !ok || p.Quals == nil {
		return nil, errors.Wrapf(ErrNotFound, "no qualities for %s", id)
	}
	return p.Quals, nil
}

// QualityMap is a map-backed QualityStore.
type QualityMap map[string][]byte

// Qualities implements the QualityStore interface.
func (m QualityMap) Qualities(id string) ([]byte, error) {
	q, ok := m[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no qualities for %s", id)
	}
	return q, nil
}

// readQualities returns the qualities of each gapped position of r's
// valid sequence in contig orientation. Gaps are given the lower quality
// of the flanking bases.
func readQualities(r *Read, full []byte) ([]byte, error) {
	b := r.Seq.Bytes()
	q := make([]byte, len(b))
	u := int64(0)
	for i, c := range b {
		if c == nuc.Gap {
			continue
		}
		var j int64
		if r.Dir == Reverse {
			j = r.ValidRange.End() - u
		} else {
			j = r.ValidRange.Begin() + u
		}
		if j < 0 || j >= int64(len(full)) {
			return nil, errors.Errorf("ace: quality index %d out of range for read %s with %d qualities", j, r.ID, len(full))
		}
		q[i] = full[j]
		u++
	}
	fillGapQualities(b, q)
	return q, nil
}

// fillGapQualities sets the quality of each gap in b to the lower of the
// qualities of the nearest flanking bases.
func fillGapQualities(b, q []byte) {
	for i := 0; i < len(b); i++ {
		if b[i] != nuc.Gap {
			continue
		}
		j := i
		for j < len(b) && b[j] == nuc.Gap {
			j++
		}
		var v byte
		switch {
		case i == 0 && j == len(b):
			v = 0
		case i == 0:
			v = q[j]
		case j == len(b):
			v = q[i-1]
		default:
			v = q[i-1]
			if q[j] < v {
				v = q[j]
			}
		}
		for k := i; k < j; k++ {
			q[k] = v
		}
		i = j
	}
}
