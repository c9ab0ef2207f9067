// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/biogo/asm/cas"
)

var casDumpLimit int

func init() {
	rootCmd.AddCommand(casCmd)
	casCmd.AddCommand(casDumpCmd)

	casDumpCmd.Flags().AddFlagSet(fileFlags())
	casDumpCmd.Flags().IntVarP(&casDumpLimit, "limit", "n", -1, "maximum number of matches to print, negative for all")
}

var casCmd = &cobra.Command{
	Use:   "cas",
	Short: "Do things with CLC CAS alignment files",
	Long:  `Do things with CLC CAS alignment files`,
}

var casDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the header and matches of a CAS file",
	Long: `Print the header and matches of a CAS file

Matched reads are printed with their zero-based read index, reference index,
zero-based start, strand and alignment as a CIGAR string.

Example usage:
	asmtool cas dump -i mapping.cas -n 100`,

	RunE: func(cmd *cobra.Command, args []string) (err error) {
		path, err := inPath(cmd)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		d := &dumper{w: bufio.NewWriter(os.Stdout), limit: casDumpLimit}
		err = cas.Parse(f, d)
		if err != nil {
			return err
		}
		return d.w.Flush()
	},
}

// dumper is a cas.Visitor that prints what it visits.
type dumper struct {
	w     *bufio.Writer
	limit int
	read  uint64
	shown int
}

func (d *dumper) VisitHeader(h *cas.Header, c *cas.Control) {
	fmt.Fprintf(d.w, "# version %v\n# program %s %s %s\n", h.Version, h.Program.Name, h.Program.Version, h.Program.Args)
	fmt.Fprintf(d.w, "# %d contigs, %d reads\n", h.NumContigs, h.NumReads)
	printFiles(d.w, "contigs", h.ContigFiles)
	printFiles(d.w, "reads", h.ReadFiles)
	if d.limit == 0 {
		c.Halt()
	}
}

func printFiles(w io.Writer, kind string, files []cas.FileInfo) {
	for _, fi := range files {
		for _, name := range fi.Names {
			fmt.Fprintf(w, "# %s file %s\n", kind, name)
		}
	}
}

func (d *dumper) VisitMatch(m *cas.Match, c *cas.Control) {
	defer func() { d.read++ }()
	if !m.HasMatch || m.Alignment == nil {
		return
	}
	a := m.Alignment
	strand := '+'
	if a.Reverse {
		strand = '-'
	}
	fmt.Fprintf(d.w, "%d\t%d\t%d\t%c\t%v\t%d\t%d\n", d.read, a.ContigID, a.Start, strand, a.Cigar(), m.NumMatches, m.Score)
	d.shown++
	if d.limit >= 0 && d.shown >= d.limit {
		c.Halt()
	}
}

func (d *dumper) VisitEnd() {}

func (d *dumper) Halted() {
	fmt.Fprintf(d.w, "# halted after %d matches\n", d.shown)
}
