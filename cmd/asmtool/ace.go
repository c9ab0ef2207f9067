// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/biogo/asm/ace"
	"github.com/biogo/asm/consensus"
	"github.com/biogo/asm/coord"
)

var (
	aceInclude []string
	aceExclude []string
	aceVerbose bool

	aceWriteComputeQuals bool
	aceWriteTempDir      string

	aceAbacusAligner string
	aceAbacusArgs    string
	aceAbacusFlank   int64
	aceAbacusMinLen  int
	aceAbacusRecall  bool
)

func init() {
	rootCmd.AddCommand(aceCmd)
	aceCmd.AddCommand(aceInfoCmd, aceWriteCmd, aceQualityCmd, aceAbacusCmd, aceGetCmd)

	aceCmd.PersistentFlags().StringSliceVar(&aceInclude, "include", nil, "only process the named contigs")
	aceCmd.PersistentFlags().StringSliceVar(&aceExclude, "exclude", nil, "do not process the named contigs")
	aceCmd.PersistentFlags().BoolVarP(&aceVerbose, "verbose", "v", false, "log skipped reads")

	for _, c := range []*cobra.Command{aceInfoCmd, aceWriteCmd, aceQualityCmd, aceAbacusCmd} {
		c.Flags().AddFlagSet(streamFlags())
	}
	aceGetCmd.Flags().AddFlagSet(fileFlags())
	for _, c := range []*cobra.Command{aceWriteCmd, aceQualityCmd, aceAbacusCmd} {
		c.Flags().AddFlagSet(outputFlags())
	}

	aceWriteCmd.Flags().BoolVarP(&aceWriteComputeQuals, "compute-qualities", "q", false, "compute consensus qualities for contigs that lack them")
	aceWriteCmd.Flags().StringVar(&aceWriteTempDir, "temp-dir", "", "directory for temporary files")

	aceAbacusCmd.Flags().StringVar(&aceAbacusAligner, "aligner", "muscle", "multiple sequence aligner reading and writing FASTA on stdio")
	aceAbacusCmd.Flags().StringVar(&aceAbacusArgs, "aligner-args", "-quiet", "space separated arguments passed to the aligner")
	aceAbacusCmd.Flags().Int64Var(&aceAbacusFlank, "flank", 5, "number of consensus columns realigned either side of each error")
	aceAbacusCmd.Flags().IntVar(&aceAbacusMinLen, "min-len", 2, "minimum number of gapped columns in a detected error")
	aceAbacusCmd.Flags().BoolVar(&aceAbacusRecall, "recall", false, "recall the consensus of each contig before writing")
	aceAbacusCmd.Flags().StringVar(&aceWriteTempDir, "temp-dir", "", "directory for temporary files")
}

var aceCmd = &cobra.Command{
	Use:   "ace",
	Short: "Do things with Ace assembly files",
	Long:  `Do things with Ace assembly files`,
}

func aceOptions() (*ace.Options, error) {
	if len(aceInclude) != 0 && len(aceExclude) != 0 {
		return nil, errors.New("--include and --exclude cannot be combined")
	}
	opt := &ace.Options{}
	switch {
	case len(aceInclude) != 0:
		opt.Filter = ace.Include(aceInclude...)
	case len(aceExclude) != 0:
		opt.Filter = ace.Exclude(aceExclude...)
	}
	if aceVerbose {
		opt.Logger = logger
	}
	return opt, nil
}

// eachContig calls fn for each contig of the input of cmd.
func eachContig(cmd *cobra.Command, fn func(*ace.Reader, *ace.Contig) error) (*ace.Reader, error) {
	opt, err := aceOptions()
	if err != nil {
		return nil, err
	}
	in, err := openIn(cmd)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	r := ace.NewReader(in, opt)
	for {
		c, err := r.Read()
		if err == io.EOF {
			return r, nil
		}
		if err != nil {
			return nil, err
		}
		err = fn(r, c)
		if err != nil {
			return nil, err
		}
	}
}

var aceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarise the contigs of an Ace file",
	Long: `Summarise the contigs of an Ace file

Each contig is reported with its gapped and ungapped lengths and its number
of reads, followed by the reads that could not be placed.

Example usage:
	asmtool ace info -i assembly.ace.gz`,

	RunE: func(cmd *cobra.Command, args []string) error {
		w := bufio.NewWriter(os.Stdout)
		r, err := eachContig(cmd, func(_ *ace.Reader, c *ace.Contig) error {
			comp := "U"
			if c.Complemented {
				comp = "C"
			}
			_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", c.ID, c.Len(), c.Consensus.UngappedLen(), len(c.Reads), comp)
			return err
		})
		if err != nil {
			return err
		}
		for _, s := range r.Skipped() {
			fmt.Fprintf(w, "# %v\n", s)
		}
		t := r.Tags()
		fmt.Fprintf(w, "# %d consensus tags, %d read tags, %d assembly tags\n", len(t.Consensus), len(t.Read), len(t.WholeAssembly))
		return w.Flush()
	},
}

var aceWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Rewrite an Ace file",
	Long: `Rewrite an Ace file

Contigs are reassembled from the input and written with a recomputed header.
Contig selection with --include or --exclude allows subsets to be extracted.

Example usage:
	asmtool ace write -i assembly.ace --include Contig1,Contig7 -o subset.ace.gz`,

	RunE: func(cmd *cobra.Command, args []string) (err error) {
		out, err := createOut(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}()
		aw, err := ace.NewWriter(out, &ace.WriterOptions{
			ComputeQualities: aceWriteComputeQuals,
			TempDir:          aceWriteTempDir,
		})
		if err != nil {
			return err
		}
		r, err := eachContig(cmd, func(_ *ace.Reader, c *ace.Contig) error {
			return aw.Write(c)
		})
		if err != nil {
			aw.Close()
			return err
		}
		err = aw.WriteTags(r.Tags())
		if err != nil {
			aw.Close()
			return err
		}
		return aw.Close()
	},
}

var aceQualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Compute consensus qualities",
	Long: `Compute consensus qualities

Qualities are computed from the agreement of reads with the consensus. Read
qualities are not available from an Ace file alone, so each agreeing read
contributes a unit quality. The output holds one line per contig with the
gapped consensus qualities.

Example usage:
	asmtool ace quality -i assembly.ace > assembly.qual`,

	RunE: func(cmd *cobra.Command, args []string) (err error) {
		out, err := createOut(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}()
		w := bufio.NewWriter(out)
		_, err = eachContig(cmd, func(_ *ace.Reader, c *ace.Contig) error {
			q, err := ace.ConsensusQualities(c, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, ">%s\n", c.ID)
			for i, v := range q {
				if i != 0 {
					w.WriteByte(' ')
				}
				fmt.Fprint(w, v)
			}
			return w.WriteByte('\n')
		})
		if err != nil {
			return err
		}
		return w.Flush()
	},
}

var aceAbacusCmd = &cobra.Command{
	Use:   "abacus",
	Short: "Find and fix abacus errors",
	Long: `Find and fix abacus errors

Abacus errors are columns of a contig where reads disagree on the placement
of gaps. Each error is realigned with an external multiple sequence aligner
that reads FASTA on standard input and writes it on standard output.

Example usage:
	asmtool ace abacus -i assembly.ace --aligner muscle --flank 10 -o fixed.ace`,

	RunE: func(cmd *cobra.Command, args []string) (err error) {
		path := aceAbacusAligner
		if path == "" {
			return errors.New("no aligner specified")
		}
		al := ace.ExecAligner{Path: path, Args: strings.Fields(aceAbacusArgs)}

		out, err := createOut(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}()
		aw, err := ace.NewWriter(out, &ace.WriterOptions{TempDir: aceWriteTempDir})
		if err != nil {
			return err
		}

		ctx := context.Background()
		r, err := eachContig(cmd, func(_ *ace.Reader, c *ace.Contig) error {
			found := ace.FindAbacusErrors(c, aceAbacusMinLen)
			if len(found) == 0 {
				return aw.Write(c)
			}
			if aceVerbose {
				logger.Printf("contig %s: %d abacus errors: %s", c.ID, len(found), ranges(found))
			}
			b := ace.NewContigBuilderFrom(c)
			err := ace.FixAbacusErrors(ctx, b, found, aceAbacusFlank, al, consensus.MostFrequent, nil)
			if err != nil {
				return errors.Wrapf(err, "contig %s", c.ID)
			}
			if aceAbacusRecall {
				b.Recall(consensus.MostFrequent, nil)
			}
			fixed, err := b.Build()
			if err != nil {
				return errors.Wrapf(err, "contig %s", c.ID)
			}
			if aceVerbose {
				for _, s := range b.Skipped() {
					logger.Print(s)
				}
			}
			return aw.Write(fixed)
		})
		if err != nil {
			aw.Close()
			return err
		}
		err = aw.WriteTags(r.Tags())
		if err != nil {
			aw.Close()
			return err
		}
		return aw.Close()
	},
}

func ranges(rs []coord.Range) string {
	var sb strings.Builder
	for i, r := range rs {
		if i != 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d-%d", r.BeginIn(coord.ResidueBased), r.EndIn(coord.ResidueBased))
	}
	return sb.String()
}

var aceGetCmd = &cobra.Command{
	Use:   "get <contig> [read]",
	Short: "Retrieve a contig or read from an indexed Ace file",
	Long: `Retrieve a contig or read from an indexed Ace file

The input file is indexed on opening and only the requested records are
decoded. With a single argument the contig's reads are listed with their
gapped start and direction. With two arguments the named read is printed.

Example usage:
	asmtool ace get -i assembly.ace Contig1 read42`,

	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		path, err := inPath(cmd)
		if err != nil {
			return err
		}
		opt, err := aceOptions()
		if err != nil {
			return err
		}
		s, err := ace.OpenIndexed(path, opt)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.Close(); err == nil {
				err = cerr
			}
		}()

		w := bufio.NewWriter(os.Stdout)
		if len(args) == 2 {
			rd, err := s.Read(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(w, ">%s start=%d dir=%v valid=%d-%d length=%d\n%v\n",
				rd.ID, rd.Start, rd.Dir,
				rd.ValidRange.BeginIn(coord.ResidueBased), rd.ValidRange.EndIn(coord.ResidueBased),
				rd.UngappedFullLength, rd.Seq)
			return w.Flush()
		}

		c, err := s.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, ">%s\n%v\n", c.ID, c.Consensus)
		it, err := s.ReadIterator(args[0])
		if err != nil {
			return err
		}
		for it.Next() {
			rd := it.Read()
			fmt.Fprintf(w, "%s\t%d\t%v\n", rd.ID, rd.Start, rd.Dir)
		}
		err = it.Error()
		if cerr := it.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		return w.Flush()
	},
}
