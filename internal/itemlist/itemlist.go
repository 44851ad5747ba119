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

// Package itemlist implements random access to positioned item lists.
//
// A positioned item list is laid out as an item count, a table of item
// positions, and the variable length items themselves. Positions are relative
// to the end of the position table.
package itemlist

import (
	"errors"
	"fmt"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ianlewis/go-slob/internal/binio"
)

// ErrOutOfRange indicates that an item index is out of range.
var ErrOutOfRange = errors.New("index out of range")

// PositionSize is the width of entries in a position table.
type PositionSize int

// Position table entry widths.
const (
	Pos32 PositionSize = 4
	Pos64 PositionSize = 8
)

// Decoder decodes a single item.
type Decoder[T any] func(r *binio.Reader) (T, error)

// Options are options for item lists.
type Options struct {
	// PositionSize is the width of position table entries.
	PositionSize PositionSize

	// CacheSize is the number of decoded items to keep. Zero disables
	// caching.
	CacheSize int

	// Encoding is the text encoding of items.
	Encoding *binio.Encoding
}

// DefaultOptions is the default options for item lists.
var DefaultOptions = Options{
	PositionSize: Pos64,
}

// List is a positioned item list. It is safe for concurrent use.
type List[T any] struct {
	// mu serializes seek and read pairs on r.
	mu sync.Mutex
	r  io.ReadSeeker

	decode  Decoder[T]
	count   int
	posSize PositionSize
	posOff  int64
	dataOff int64
	enc     *binio.Encoding

	cache *lru.Cache[int, T]
}

// Open returns a list whose u32 item count is stored at offset.
func Open[T any](r io.ReadSeeker, offset int64, decode Decoder[T], opts *Options) (*List[T], error) {
	if opts == nil {
		opts = &DefaultOptions
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to item list: %w", err)
	}
	count, err := binio.NewReader(r, opts.Encoding).Int()
	if err != nil {
		return nil, fmt.Errorf("reading item count: %w", err)
	}
	return New(r, offset+4, int(count), decode, opts)
}

// New returns a list of count items whose position table starts at offset.
func New[T any](r io.ReadSeeker, offset int64, count int, decode Decoder[T], opts *Options) (*List[T], error) {
	if opts == nil {
		opts = &DefaultOptions
	}
	posSize := opts.PositionSize
	if posSize != Pos32 && posSize != Pos64 {
		posSize = DefaultOptions.PositionSize
	}

	l := &List[T]{
		r:       r,
		decode:  decode,
		count:   count,
		posSize: posSize,
		posOff:  offset,
		dataOff: offset + int64(count)*int64(posSize),
		enc:     opts.Encoding,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[int, T](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating item cache: %w", err)
		}
		l.cache = cache
	}
	return l, nil
}

// Len returns the number of items in the list.
func (l *List[T]) Len() int {
	return l.count
}

// DataOffset returns the offset of the first byte after the position table.
func (l *List[T]) DataOffset() int64 {
	return l.dataOff
}

// Pos returns the position of item i relative to [List.DataOffset].
func (l *List[T]) Pos(i int) (int64, error) {
	if i < 0 || i >= l.count {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, l.count)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readPos(i)
}

func (l *List[T]) readPos(i int) (int64, error) {
	if _, err := l.r.Seek(l.posOff+int64(i)*int64(l.posSize), io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking to position %d: %w", i, err)
	}
	r := binio.NewReader(l.r, l.enc)
	if l.posSize == Pos32 {
		p, err := r.Int()
		return int64(p), err
	}
	p, err := r.Long()
	//nolint:gosec // positions are bounded by the file size.
	return int64(p), err
}

// Get returns item i.
func (l *List[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= l.count {
		return zero, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, l.count)
	}
	if l.cache != nil {
		if v, ok := l.cache.Get(i); ok {
			return v, nil
		}
	}

	v, err := l.read(i)
	if err != nil {
		return zero, err
	}
	if l.cache != nil {
		l.cache.Add(i, v)
	}
	return v, nil
}

func (l *List[T]) read(i int) (T, error) {
	var zero T

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.readPos(i)
	if err != nil {
		return zero, err
	}
	if _, err := l.r.Seek(l.dataOff+pos, io.SeekStart); err != nil {
		return zero, fmt.Errorf("seeking to item %d: %w", i, err)
	}
	v, err := l.decode(binio.NewReader(l.r, l.enc))
	if err != nil {
		return zero, fmt.Errorf("decoding item %d: %w", i, err)
	}
	return v, nil
}

// Purge drops all cached items.
func (l *List[T]) Purge() {
	if l.cache != nil {
		l.cache.Purge()
	}
}
