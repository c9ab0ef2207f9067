// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ace

import (
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/biogo/asm/consensus"
)

// Options configures contig construction by readers and datastores.
// The zero Options is valid.
type Options struct {
	// Filter restricts the contigs that are
	// held. If nil, all contigs are held.
	Filter Filter

	// Phds provides full read basecalls used to
	// determine the untrimmed length of reads.
	Phds PhdStore

	// Caller and Qualities are used to recall the
	// consensus of each contig if Caller is not nil.
	Caller    consensus.Caller
	Qualities QualityStore

	// Logger receives a record of each skipped
	// read if it is not nil.
	Logger *log.Logger
}

// Filter reports whether a contig should be held.
type Filter func(id string) bool

// Include returns a Filter that accepts only the given contig IDs.
func Include(ids ...string) Filter {
	set := idSet(ids)
	return func(id string) bool { return set[id] }
}

// Exclude returns a Filter that rejects the given contig IDs.
func Exclude(ids ...string) Filter {
	set := idSet(ids)
	return func(id string) bool { return !set[id] }
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (o *Options) accept(id string) bool {
	return o == nil || o.Filter == nil || o.Filter(id)
}

func (o *Options) phds() PhdStore {
	if o == nil {
		return nil
	}
	return o.Phds
}

// Tags holds the tags of an Ace file.
type Tags struct {
	Consensus     []*ConsensusTag
	Read          []*ReadTag
	WholeAssembly []*WholeAssemblyTag
}

func (t *Tags) add(e Event) bool {
	switch e := e.(type) {
	case *ConsensusTag:
		t.Consensus = append(t.Consensus, e)
	case *ReadTag:
		t.Read = append(t.Read, e)
	case *WholeAssemblyTag:
		t.WholeAssembly = append(t.WholeAssembly, e)
	default:
		return false
	}
	return true
}

// assembler builds contigs from a stream of parse events.
type assembler struct {
	opt *Options

	b    *ContigBuilder
	afs  map[string]*AssembledFrom
	skip bool

	skipped []Skip
}

// handle processes e, returning a contig when one is complete.
func (a *assembler) handle(e Event) (*Contig, error) {
	switch e := e.(type) {
	case *ContigStart:
		a.skip = !a.opt.accept(e.ID)
		if a.skip {
			return nil, nil
		}
		a.b = NewContigBuilder(e.ID, e.Consensus)
		a.b.Complemented = e.Complemented
		a.b.Quals = e.Quals
		if a.opt != nil && a.opt.Caller != nil {
			a.b.Recall(a.opt.Caller, a.opt.Qualities)
		}
		a.afs = make(map[string]*AssembledFrom, e.NumReads)
	case *AssembledFrom:
		if a.skip {
			return nil, nil
		}
		a.afs[e.ID] = e
	case *ReadRecord:
		if a.skip {
			return nil, nil
		}
		af, ok := a.afs[e.ID]
		if !ok {
			return nil, &FormatError{Offset: e.Begin, Err: errors.Errorf("read %s has no AF record", e.ID)}
		}
		rb, err := a.place(a.b.ID, af, e)
		if err != nil || rb == nil {
			return nil, err
		}
		return nil, a.b.AddRead(rb)
	case *ContigEnd:
		if a.skip {
			a.skip = false
			return nil, nil
		}
		b := a.b
		a.b = nil
		a.afs = nil
		c, err := b.Build()
		for _, s := range b.Skipped() {
			a.record(s)
		}
		return c, err
	}
	return nil, nil
}

// place places a read, recording a Skip if the read cannot be placed.
func (a *assembler) place(contig string, af *AssembledFrom, rd *ReadRecord) (*ReadBuilder, error) {
	rb, reason, err := placeRead(af, rd, a.opt.phds())
	if err != nil {
		return nil, err
	}
	if rb == nil {
		a.record(Skip{Contig: contig, Read: rd.ID, Reason: reason})
	}
	return rb, nil
}

func (a *assembler) record(s Skip) {
	a.skipped = append(a.skipped, s)
	if a.opt != nil && a.opt.Logger != nil {
		a.opt.Logger.Print(s)
	}
}

// Reader reads contigs from an Ace stream one at a time.
type Reader struct {
	p *Parser
	a assembler

	h    *Header
	tags Tags
}

// NewReader returns a Reader reading from r. The opt parameter may be nil.
func NewReader(r io.Reader, opt *Options) *Reader {
	return &Reader{p: NewParser(r), a: assembler{opt: opt}}
}

// Header returns the AS header. It is nil until the first call to Read.
func (r *Reader) Header() *Header { return r.h }

// Read returns the next contig. It returns io.EOF at the end of the stream.
func (r *Reader) Read() (*Contig, error) {
	for {
		e, err := r.p.Next()
		if err != nil {
			return nil, err
		}
		if h, ok := e.(*Header); ok {
			r.h = h
			continue
		}
		if r.tags.add(e) {
			continue
		}
		c, err := r.a.handle(e)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
}

// Skipped returns the reads that have been skipped so far.
func (r *Reader) Skipped() []Skip { return r.a.skipped }

// Tags returns the tags read so far. Tags usually follow all contigs, so
// the complete set is available after Read has returned io.EOF.
func (r *Reader) Tags() *Tags { return &r.tags }
