// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import "sort"

// NoCoverage is the base called for an empty slice.
const NoCoverage = '-'

// MostFrequent calls the base seen most often in a slice. Ties are broken
// by quality sum and then by A, C, G, T, gap order. The quality is the
// quality sum of the winning base less the quality sums of the others.
var MostFrequent Caller = CallerFunc(mostFrequent)

func mostFrequent(s Slice) Result {
	if len(s) == 0 {
		return Result{Base: NoCoverage}
	}
	w := tally(s)
	sort.SliceStable(w, func(i, j int) bool {
		if w[i].count != w[j].count {
			return w[i].count > w[j].count
		}
		return false
	})
	return Result{Base: w[0].base, Qual: clampQual(w[0].sum - errorSum(w))}
}

// NoAmbiguity calls the base with the highest quality sum, the
// Churchill-Waterman consensus without ambiguity codes.
var NoAmbiguity Caller = CallerFunc(noAmbiguity)

func noAmbiguity(s Slice) Result {
	if len(s) == 0 {
		return Result{Base: NoCoverage}
	}
	w := tally(s)
	return Result{Base: w[0].base, Qual: clampQual(w[0].sum - errorSum(w))}
}

// Conic is a Churchill-Waterman consensus caller that reports ambiguity
// codes. A base joins the called set when its quality sum is at least
// Ratio times the leading quality sum. If the leading base already has a
// consensus quality of at least Threshold, no ambiguity is reported.
type Conic struct {
	Ratio     float64
	Threshold int
}

// DefaultConic is the Conic caller with the usual parameters.
var DefaultConic = Conic{Ratio: 0.5, Threshold: 30}

// Call implements the Caller interface.
func (c Conic) Call(s Slice) Result {
	if len(s) == 0 {
		return Result{Base: NoCoverage}
	}
	w := tally(s)
	q := w[0].sum - errorSum(w)
	if q >= c.Threshold || len(w) == 1 {
		return Result{Base: w[0].base, Qual: clampQual(q)}
	}
	cutoff := c.Ratio * float64(w[0].sum)
	var (
		mask    byte
		in, out int
	)
	for _, b := range w {
		if float64(b.sum) >= cutoff {
			mask |= ambiguityBit[b.base]
			in += b.sum
		} else {
			out += b.sum
		}
	}
	base := ambiguityCode[mask]
	if base == 0 {
		// A gap is in the called set along with bases.
		base = w[0].base
		in, out = w[0].sum, errorSum(w)
	}
	return Result{Base: base, Qual: clampQual(in - out)}
}

var ambiguityBit = [256]byte{
	'A': 1, 'C': 2, 'G': 4, 'T': 8,
	'R': 1 | 4, 'Y': 2 | 8, 'S': 2 | 4, 'W': 1 | 8,
	'K': 4 | 8, 'M': 1 | 2, 'B': 2 | 4 | 8, 'D': 1 | 4 | 8,
	'H': 1 | 2 | 8, 'V': 1 | 2 | 4, 'N': 15,
	'-': 16,
}

var ambiguityCode = [32]byte{
	1: 'A', 2: 'C', 3: 'M', 4: 'G', 5: 'R', 6: 'S', 7: 'V',
	8: 'T', 9: 'W', 10: 'Y', 11: 'H', 12: 'K', 13: 'D', 14: 'B', 15: 'N',
	16: '-',
}
