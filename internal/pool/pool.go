// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool provides size-classed byte buffers for record decoding.
package pool

import (
	"math/bits"
	"sync"
)

// maxClass is the largest pooled size class. Requests
// for larger buffers are allocated directly.
const maxClass = 30

// classes holds one pool per power of two size up to 1<<maxClass.
var classes [maxClass + 1]sync.Pool

// Get returns a byte slice with length n and capacity less than 2*n.
// The contents of the returned slice are undefined.
func Get(n int) []byte {
	if n <= 0 {
		return nil
	}
	c := class(n)
	if c > maxClass {
		return make([]byte, n)
	}
	if b, ok := classes[c].Get().(*[]byte); ok {
		return (*b)[:n]
	}
	return make([]byte, n, 1<<uint(c))
}

// Put returns b to the pool. The caller must not use b after calling Put.
func Put(b []byte) {
	c := cap(b)
	if c == 0 || c&(c-1) != 0 {
		// Only buffers from Get are pooled.
		return
	}
	i := class(c)
	if i > maxClass {
		return
	}
	b = b[:0]
	classes[i].Put(&b)
}

// class returns the ceiling of the base 2 log of n.
func class(n int) int {
	return bits.Len(uint(n - 1))
}
