// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package consensus provides per-column base accumulation and consensus
// calling strategies for assembled contigs.
package consensus

import "sort"

// MaxQuality is the highest consensus quality reported by the callers.
const MaxQuality = 90

// Direction is the orientation of a read relative to the contig.
type Direction int8

const (
	Forward Direction = iota
	Reverse
)

// String returns "forward" or "reverse".
func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Element is the contribution of a single read to a consensus column.
type Element struct {
	ID   string
	Base byte
	Qual byte
	Dir  Direction
}

// Slice is the collection of read contributions to one consensus column.
type Slice []Element

// Coverage returns the number of elements in the slice.
func (s Slice) Coverage() int { return len(s) }

// QualitySums returns the sum of qualities for each base in s.
func (s Slice) QualitySums() map[byte]int {
	sums := make(map[byte]int)
	for _, e := range s {
		sums[e.Base] += int(e.Qual)
	}
	return sums
}

// Counts returns the number of times each base occurs in s.
func (s Slice) Counts() map[byte]int {
	counts := make(map[byte]int)
	for _, e := range s {
		counts[e.Base]++
	}
	return counts
}

// Result is a called consensus base and its quality.
type Result struct {
	Base byte
	Qual byte
}

// Caller is a consensus calling strategy.
type Caller interface {
	Call(Slice) Result
}

// CallerFunc is a function that implements Caller.
type CallerFunc func(Slice) Result

// Call calls f(s).
func (f CallerFunc) Call(s Slice) Result { return f(s) }

// baseOrder breaks ties between bases deterministically.
const baseOrder = "ACGT-"

func rank(b byte) int {
	for i := 0; i < len(baseOrder); i++ {
		if baseOrder[i] == b {
			return i
		}
	}
	return len(baseOrder) + int(b)
}

type weighted struct {
	base  byte
	count int
	sum   int
}

// tally returns the bases of s ordered by descending quality sum, then
// by descending count.
func tally(s Slice) []weighted {
	idx := make(map[byte]int)
	var w []weighted
	for _, e := range s {
		i, ok := idx[e.Base]
		if !ok {
			i = len(w)
			idx[e.Base] = i
			w = append(w, weighted{base: e.Base})
		}
		w[i].count++
		w[i].sum += int(e.Qual)
	}
	sort.Slice(w, func(i, j int) bool {
		if w[i].sum != w[j].sum {
			return w[i].sum > w[j].sum
		}
		if w[i].count != w[j].count {
			return w[i].count > w[j].count
		}
		return rank(w[i].base) < rank(w[j].base)
	})
	return w
}

// clampQual bounds q to [0, MaxQuality].
func clampQual(q int) byte {
	switch {
	case q < 0:
		return 0
	case q > MaxQuality:
		return MaxQuality
	}
	return byte(q)
}

// errorSum is the quality evidence against the leading base of w.
func errorSum(w []weighted) int {
	var e int
	for _, o := range w[1:] {
		e += o.sum
	}
	return e
}
