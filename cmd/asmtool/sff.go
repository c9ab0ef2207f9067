// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biogo/asm/coord"
	"github.com/biogo/asm/sff"
)

var sffListIDs bool

func init() {
	rootCmd.AddCommand(sffCmd)
	sffCmd.AddCommand(sffIndexCmd, sffGetCmd)

	sffCmd.PersistentFlags().AddFlagSet(fileFlags())
	sffIndexCmd.Flags().BoolVarP(&sffListIDs, "ids", "l", false, "list read names in index order")
}

var sffCmd = &cobra.Command{
	Use:   "sff",
	Short: "Do things with SFF flowgram files",
	Long:  `Do things with SFF flowgram files`,
}

func openSFF(cmd *cobra.Command) (*sff.DataStore, error) {
	path, err := inPath(cmd)
	if err != nil {
		return nil, err
	}
	return sff.Open(path)
}

var sffIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Report the read index of an SFF file",
	Long: `Report the read index of an SFF file

The source of the index is reported as .mft or .srt when the file carries an
index, or as parsed when the index was built by reading every record.

Example usage:
	asmtool sff index -i reads.sff --ids`,

	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ds, err := openSFF(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := ds.Close(); err == nil {
				err = cerr
			}
		}()
		n, err := ds.Len()
		if err != nil {
			return err
		}
		h := ds.Header()
		w := bufio.NewWriter(os.Stdout)
		fmt.Fprintf(w, "index\t%v\nreads\t%d\nflows\t%d\nkey\t%s\n", ds.IndexFormat(), n, h.NumFlows(), h.Key)
		if sffListIDs {
			it := ds.IDs()
			for it.Next() {
				fmt.Fprintln(w, it.ID())
			}
			err = it.Error()
			if cerr := it.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
		}
		return w.Flush()
	},
}

var sffGetCmd = &cobra.Command{
	Use:   "get <read>...",
	Short: "Retrieve reads from an SFF file",
	Long: `Retrieve reads from an SFF file

Each named read is printed with its trim range in one-based coordinates,
its bases and its qualities.

Example usage:
	asmtool sff get -i reads.sff E3MFGYR02JWQ7T E3MFGYR02JA6IL`,

	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ds, err := openSFF(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := ds.Close(); err == nil {
				err = cerr
			}
		}()
		w := bufio.NewWriter(os.Stdout)
		for _, id := range args {
			f, err := ds.Get(id)
			if err != nil {
				return err
			}
			t := f.TrimRange()
			fmt.Fprintf(w, ">%s trim=%d-%d\n%v\n", f.ID, t.BeginIn(coord.ResidueBased), t.EndIn(coord.ResidueBased), f.Bases)
			for i, q := range f.Quals {
				if i != 0 {
					w.WriteByte(' ')
				}
				fmt.Fprint(w, q)
			}
			w.WriteByte('\n')
		}
		return w.Flush()
	},
}
