// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package multifile presents several files as a single contiguous, read-only
// byte stream.
package multifile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	errWhence   = errors.New("invalid whence")
	errNegative = errors.New("negative position")
)

// Reader reads from a sequence of files as if they were concatenated in
// order. It implements [io.ReadSeekCloser] and [io.ReaderAt].
//
// Read and Seek share a cursor and must not be called concurrently. ReadAt
// does not use the cursor.
type Reader struct {
	files []*os.File

	// starts[i] is the logical offset of the first byte of files[i].
	starts []int64
	size   int64
	pos    int64
}

// Open opens the named files as a single Reader.
func Open(names ...string) (*Reader, error) {
	r := &Reader{}
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("opening %q: %w", name, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			_ = r.Close()
			return nil, fmt.Errorf("stat %q: %w", name, err)
		}
		r.files = append(r.files, f)
		r.starts = append(r.starts, r.size)
		r.size += info.Size()
	}
	return r, nil
}

// Size returns the total size of all files.
func (r *Reader) Size() int64 {
	return r.size
}

// Names returns the names of the underlying files.
func (r *Reader) Names() []string {
	names := make([]string, len(r.files))
	for i, f := range r.files {
		names[i] = f.Name()
	}
	return names
}

// Read implements [io.Reader].
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt implements [io.ReaderAt]. Reads that span the boundary between two
// files are serviced by partial reads from each.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: %d", errNegative, off)
	}
	if off >= r.size {
		return 0, io.EOF
	}

	// Index of the last file starting at or before off.
	i := sort.Search(len(r.starts), func(i int) bool {
		return r.starts[i] > off
	}) - 1

	var n int
	for n < len(p) && i < len(r.files) {
		local := off + int64(n) - r.starts[i]
		m, err := r.files[i].ReadAt(p[n:], local)
		n += m
		if err != nil && !errors.Is(err, io.EOF) {
			return n, fmt.Errorf("reading %q: %w", r.files[i].Name(), err)
		}
		if n < len(p) {
			i++
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek implements [io.Seeker].
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.pos + offset
	case io.SeekEnd:
		pos = r.size + offset
	default:
		return r.pos, fmt.Errorf("%w: %d", errWhence, whence)
	}
	if pos < 0 {
		return r.pos, fmt.Errorf("%w: %d", errNegative, pos)
	}
	r.pos = pos
	return pos, nil
}

// Tell returns the current position of the cursor.
func (r *Reader) Tell() int64 {
	return r.pos
}

// Close closes all underlying files.
func (r *Reader) Close() error {
	var errs []error
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.files = nil
	r.starts = nil
	return errors.Join(errs...)
}

// FindParts returns the sorted paths of the files in name's directory whose
// base name starts with the base name of name. It is used to open containers
// split into several parts, e.g. "dict.slob.aa", "dict.slob.ab".
func FindParts(name string) ([]string, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", dir, err)
	}

	var parts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), base) {
			continue
		}
		parts = append(parts, filepath.Join(dir, e.Name()))
	}
	sort.Strings(parts)
	return parts, nil
}
