//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package dataset

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const maxLineSize = 64 * 1024 * 1024

// LineReader yields the non-blank lines of a JSONL dataset. Plain files,
// zstd compressed files (.zst) and zip archives (.zip) are supported; the
// entries of an archive are read in name order.
type LineReader struct {
	closers []io.Closer
	pending []func() (io.ReadCloser, error)
	current io.ReadCloser
	scanner *bufio.Scanner
	number  int
}

func OpenLines(path string) (*LineReader, error) {
	r := &LineReader{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open archive %s", path)
		}
		r.closers = append(r.closers, archive)

		files := make([]*zip.File, 0, len(archive.File))
		for _, f := range archive.File {
			if f.FileInfo().IsDir() || strings.HasPrefix(filepath.Base(f.Name), ".") {
				continue
			}
			files = append(files, f)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		for _, f := range files {
			f := f
			r.pending = append(r.pending, func() (io.ReadCloser, error) {
				return f.Open()
			})
		}
	case ".zst", ".zstd":
		r.pending = append(r.pending, func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			dec, err := zstd.NewReader(f)
			if err != nil {
				f.Close()
				return nil, err
			}
			return &zstdReadCloser{Decoder: dec, file: f}, nil
		})
	default:
		r.pending = append(r.pending, func() (io.ReadCloser, error) {
			return os.Open(path)
		})
	}

	if err := r.advance(); err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	return r, nil
}

// Next returns the next non-blank line or io.EOF once all input is
// consumed. The returned bytes stay valid after the next call.
func (r *LineReader) Next() (Line, error) {
	for {
		if r.scanner == nil {
			return Line{}, io.EOF
		}
		if r.scanner.Scan() {
			r.number++
			raw := bytes.TrimSpace(r.scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			return Line{Number: r.number, Raw: append([]byte(nil), raw...)}, nil
		}
		if err := r.scanner.Err(); err != nil {
			return Line{}, errors.Wrapf(err, "read line %d", r.number+1)
		}
		if err := r.advance(); err != nil {
			return Line{}, err
		}
	}
}

func (r *LineReader) advance() error {
	if r.current != nil {
		r.current.Close()
		r.current = nil
	}
	r.scanner = nil
	if len(r.pending) == 0 {
		return nil
	}

	open := r.pending[0]
	r.pending = r.pending[1:]
	rc, err := open()
	if err != nil {
		return err
	}
	r.current = rc
	r.scanner = bufio.NewScanner(rc)
	r.scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	return nil
}

func (r *LineReader) Close() error {
	var firstErr error
	if r.current != nil {
		firstErr = r.current.Close()
		r.current = nil
	}
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	r.pending = nil
	r.scanner = nil
	return firstErr
}

type zstdReadCloser struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}
