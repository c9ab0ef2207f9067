// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// asmtool inspects and manipulates Ace, SFF and CAS assembly files.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/biogo/asm/internal/xopen"
)

var logger = log.New(os.Stderr, "asmtool: ", 0)

var rootCmd = &cobra.Command{
	Use:           "asmtool",
	Short:         "tools for Ace, SFF and CAS assembly files",
	Long:          `tools for Ace, SFF and CAS assembly files`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

// streamFlags returns a flag set holding the input file flag of commands
// that read their input sequentially. Compressed input is detected.
func streamFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("stream", pflag.ContinueOnError)
	fs.StringP("in", "i", "-", "input file, plain, gzip or xz compressed")
	return fs
}

// fileFlags returns a flag set holding the input file flag of commands
// that require random access to an uncompressed file.
func fileFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("file", pflag.ContinueOnError)
	fs.StringP("in", "i", "", "uncompressed input file")
	return fs
}

// outputFlags returns a flag set holding the output file flag.
func outputFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("output", pflag.ContinueOnError)
	fs.StringP("out", "o", "-", "output file, compressed if named with a .gz or .xz extension")
	return fs
}

func openIn(cmd *cobra.Command) (io.ReadCloser, error) {
	path, err := cmd.Flags().GetString("in")
	if err != nil {
		return nil, err
	}
	return xopen.Open(path)
}

func createOut(cmd *cobra.Command) (io.WriteCloser, error) {
	path, err := cmd.Flags().GetString("out")
	if err != nil {
		return nil, err
	}
	return xopen.Create(path)
}

func inPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("in")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("%s requires an input file", cmd.CommandPath())
	}
	return path, nil
}
