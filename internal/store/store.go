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

// Package store implements the content store of a slob container.
//
// Content is grouped into bins. Each bin is compressed as a single unit and
// written as one store record:
//
//	u32 item count
//	u8  content type id (one per item)
//	u32 compressed length
//	compressed bin
//
// A decompressed bin is itself a positioned item list with u32 positions
// whose items are u32 length prefixed byte strings.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/itemlist"
)

// ErrCorruptBin indicates that a bin could not be decoded.
var ErrCorruptBin = errors.New("corrupt bin")

// Item is a store record as read from disk.
type Item struct {
	ContentTypeIDs []uint8
	Compressed     []byte
}

func decodeItem(r *binio.Reader) (Item, error) {
	count, err := r.Int()
	if err != nil {
		return Item{}, err
	}
	ids, err := r.Bytes(int(count))
	if err != nil {
		return Item{}, err
	}
	n, err := r.Int()
	if err != nil {
		return Item{}, err
	}
	compressed, err := r.Bytes(int(n))
	if err != nil {
		return Item{}, err
	}
	return Item{
		ContentTypeIDs: ids,
		Compressed:     compressed,
	}, nil
}

func decodeBinItem(r *binio.Reader) ([]byte, error) {
	n, err := r.Int()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// Options are options for opening a Store.
type Options struct {
	// CacheSize is the number of store records to keep in memory.
	CacheSize int

	// BinCacheSize is the number of decompressed bins to keep in memory.
	BinCacheSize int
}

// DefaultOptions is the default options for a Store.
var DefaultOptions = Options{
	CacheSize:    32,
	BinCacheSize: 16,
}

// Store reads content from the store section of a container. It is safe for
// concurrent use.
type Store struct {
	items        *itemlist.List[Item]
	codec        compression.Codec
	contentTypes []string
	bins         *lru.Cache[int, []byte]
}

// Open returns a Store for the store section at offset.
func Open(r io.ReadSeeker, offset int64, codec compression.Codec, contentTypes []string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &DefaultOptions
	}

	items, err := itemlist.Open(r, offset, decodeItem, &itemlist.Options{
		PositionSize: itemlist.Pos64,
		CacheSize:    opts.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Store{
		items:        items,
		codec:        codec,
		contentTypes: contentTypes,
	}
	if opts.BinCacheSize > 0 {
		s.bins, err = lru.New[int, []byte](opts.BinCacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating bin cache: %w", err)
		}
	}
	return s, nil
}

// Len returns the number of bins.
func (s *Store) Len() int {
	return s.items.Len()
}

func (s *Store) contentType(item Item, bin, i int) (string, error) {
	if i < 0 || i >= len(item.ContentTypeIDs) {
		return "", fmt.Errorf("%w: item %d not in bin %d of %d items",
			itemlist.ErrOutOfRange, i, bin, len(item.ContentTypeIDs))
	}
	id := int(item.ContentTypeIDs[i])
	if id >= len(s.contentTypes) {
		return "", fmt.Errorf("%w: bin %d: content type id %d not in header", ErrCorruptBin, bin, id)
	}
	return s.contentTypes[id], nil
}

// ContentType returns the content type of item i in bin without
// decompressing the bin.
func (s *Store) ContentType(bin, i int) (string, error) {
	item, err := s.items.Get(bin)
	if err != nil {
		return "", err
	}
	return s.contentType(item, bin, i)
}

// Get returns the content type and content of item i in bin.
func (s *Store) Get(bin, i int) (string, []byte, error) {
	item, err := s.items.Get(bin)
	if err != nil {
		return "", nil, err
	}
	contentType, err := s.contentType(item, bin, i)
	if err != nil {
		return "", nil, err
	}

	b, err := s.decompress(bin, item)
	if err != nil {
		return "", nil, err
	}
	l, err := itemlist.New(bytes.NewReader(b), 0, len(item.ContentTypeIDs), decodeBinItem, &itemlist.Options{
		PositionSize: itemlist.Pos32,
	})
	if err != nil {
		return "", nil, err
	}
	content, err := l.Get(i)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bin %d: %w", ErrCorruptBin, bin, err)
	}
	return contentType, content, nil
}

func (s *Store) decompress(bin int, item Item) ([]byte, error) {
	if s.bins != nil {
		if b, ok := s.bins.Get(bin); ok {
			return b, nil
		}
	}
	b, err := s.codec.Decompress(item.Compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: bin %d: %w", ErrCorruptBin, bin, err)
	}
	if s.bins != nil {
		s.bins.Add(bin, b)
	}
	return b, nil
}

// Purge drops all cached records and bins.
func (s *Store) Purge() {
	s.items.Purge()
	if s.bins != nil {
		s.bins.Purge()
	}
}
