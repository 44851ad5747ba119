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

// Package refs implements the key index of a slob container.
package refs

import (
	"fmt"
	"io"

	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/itemlist"
)

// Ref maps a key to the location of a blob in the content store.
type Ref struct {
	Key       string
	BinIndex  uint32
	ItemIndex uint16
	Fragment  string
}

// String implements [fmt.Stringer] and returns the ref's key.
func (r Ref) String() string {
	return r.Key
}

// Decode reads a Ref.
func Decode(r *binio.Reader) (Ref, error) {
	var ref Ref
	var err error
	if ref.Key, err = r.Text(); err != nil {
		return Ref{}, fmt.Errorf("reading key: %w", err)
	}
	if ref.BinIndex, err = r.Int(); err != nil {
		return Ref{}, fmt.Errorf("reading bin index: %w", err)
	}
	if ref.ItemIndex, err = r.Short(); err != nil {
		return Ref{}, fmt.Errorf("reading item index: %w", err)
	}
	if ref.Fragment, err = r.TinyText(); err != nil {
		return Ref{}, fmt.Errorf("reading fragment: %w", err)
	}
	return ref, nil
}

// Encode writes r.
func (r Ref) Encode(w *binio.Writer) error {
	if err := w.Text(r.Key); err != nil {
		return err
	}
	if err := w.Int(r.BinIndex); err != nil {
		return err
	}
	if err := w.Short(r.ItemIndex); err != nil {
		return err
	}
	return w.TinyText(r.Fragment, false)
}

// DefaultCacheSize is the default number of refs a List keeps in memory.
const DefaultCacheSize = 512

// List is a positioned item list of refs.
type List = itemlist.List[Ref]

// Open returns the ref list whose u32 count is stored at offset.
func Open(r io.ReadSeeker, offset int64, enc *binio.Encoding, cacheSize int) (*List, error) {
	l, err := itemlist.Open(r, offset, Decode, &itemlist.Options{
		PositionSize: itemlist.Pos64,
		CacheSize:    cacheSize,
		Encoding:     enc,
	})
	if err != nil {
		return nil, fmt.Errorf("opening refs: %w", err)
	}
	return l, nil
}

// New returns a ref list of count refs whose position table starts at
// offset.
func New(r io.ReadSeeker, offset int64, count int, enc *binio.Encoding, cacheSize int) (*List, error) {
	l, err := itemlist.New(r, offset, count, Decode, &itemlist.Options{
		PositionSize: itemlist.Pos64,
		CacheSize:    cacheSize,
		Encoding:     enc,
	})
	if err != nil {
		return nil, fmt.Errorf("opening refs: %w", err)
	}
	return l, nil
}

// Writer appends refs to separate position and ref streams.
type Writer struct {
	w *itemlist.Writer
}

// NewWriter returns a Writer writing u64 positions to pos and refs to data.
func NewWriter(pos, data *binio.Writer) *Writer {
	return &Writer{w: itemlist.NewWriter(pos, data, itemlist.Pos64)}
}

// NewWriterAt returns a Writer continuing a ref list that already holds
// count refs.
func NewWriterAt(pos, data *binio.Writer, count int) *Writer {
	return &Writer{w: itemlist.NewWriterAt(pos, data, itemlist.Pos64, count)}
}

// Write appends ref.
func (w *Writer) Write(ref Ref) error {
	if err := w.w.Append(ref.Encode); err != nil {
		return fmt.Errorf("writing ref %q: %w", ref.Key, err)
	}
	return nil
}

// Len returns the number of refs written.
func (w *Writer) Len() int {
	return w.w.Len()
}
