// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xopen opens plain, gzip and xz compressed streams.
package xopen

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Format is a stream compression format.
type Format int

const (
	Plain Format = iota
	Gzip
	XZ
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case XZ:
		return "xz"
	}
	return "plain"
}

// Detect returns the compression format of the stream held by r based on
// its leading bytes. Detect does not consume any data from r.
func Detect(r *bufio.Reader) (Format, error) {
	b, err := r.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return Plain, err
	}
	switch {
	case bytes.HasPrefix(b, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(b, xzMagic):
		return XZ, nil
	}
	return Plain, nil
}

// NewReader returns a reader that decompresses r if it holds gzip or xz
// data. Closing the returned reader does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	f, err := Detect(br)
	if err != nil {
		return nil, err
	}
	switch f {
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "xopen: invalid gzip stream")
		}
		return gz, nil
	case XZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "xopen: invalid xz stream")
		}
		return io.NopCloser(xr), nil
	}
	return io.NopCloser(br), nil
}

// Open opens the named file for reading, decompressing it if needed. The
// path "-" is the standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "xopen: failed to open %s", path)
	}
	return &readCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// Create creates the named file for writing, compressing the data written
// according to the file's extension, ".gz" for gzip and ".xz" for xz. The
// path "-" is the standard output.
func Create(path string) (io.WriteCloser, error) {
	var (
		f   io.WriteCloser
		err error
	)
	if path == "-" {
		f = nopWriteCloser{os.Stdout}
	} else {
		f, err = os.Create(path)
		if err != nil {
			return nil, err
		}
	}
	switch filepath.Ext(path) {
	case ".gz":
		return &writeCloser{Writer: gzip.NewWriter(f), f: f}, nil
	case ".xz":
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "xopen: failed to create %s", path)
		}
		return &writeCloser{Writer: xw, f: f}, nil
	}
	return f, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for _, c := range r.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type writeCloser struct {
	io.Writer
	f io.Closer
}

func (w *writeCloser) Close() error {
	err := w.Writer.(io.Closer).Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
