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

package slob

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ianlewis/go-slob/collation"
	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/index"
	"github.com/ianlewis/go-slob/internal/refs"
	"github.com/ianlewis/go-slob/internal/store"
	"github.com/ianlewis/go-slob/multifile"
)

// Options are options for opening a container.
type Options struct {
	// RefCacheSize is the number of index entries to keep in memory.
	RefCacheSize int

	// StoreCacheSize is the number of store records to keep in memory.
	StoreCacheSize int

	// BinCacheSize is the number of decompressed bins to keep in memory.
	BinCacheSize int

	// Compressions is the codec registry. Nil means [compression.Default].
	Compressions *compression.Registry

	// Collation is the cache lookup keys are computed with. Nil means
	// [collation.Default].
	Collation *collation.Cache

	// Logger is the logger to use. A nil logger discards logs.
	Logger *slog.Logger
}

// DefaultOptions is the default options for opening a container.
var DefaultOptions = Options{
	RefCacheSize:   refs.DefaultCacheSize,
	StoreCacheSize: store.DefaultOptions.CacheSize,
	BinCacheSize:   store.DefaultOptions.BinCacheSize,
}

type dictKey struct {
	strength  collation.Strength
	maxLength int
}

// Slob is an open slob container. It is safe for concurrent use.
type Slob struct {
	// f serves the index and g serves the store so that index and content
	// reads do not contend for a cursor.
	f, g *multifile.Reader

	header *header
	refs   *refs.List
	store  *store.Store
	keys   *collation.Cache
	log    *slog.Logger

	mu     sync.Mutex
	dicts  map[dictKey]*Dict
	closed bool
}

// Open opens the container at path. If no file exists at path, path is
// treated as the common prefix of a container split into several parts.
func Open(path string, opts *Options) (*Slob, error) {
	names := []string{path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		parts, err := multifile.FindParts(path)
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", path, err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("opening %q: %w", path, os.ErrNotExist)
		}
		names = parts
	}
	return OpenFiles(names, opts)
}

// OpenFiles opens a container stored in the concatenation of the named
// files.
func OpenFiles(names []string, opts *Options) (*Slob, error) {
	if opts == nil {
		opts = &DefaultOptions
	}
	codecs := opts.Compressions
	if codecs == nil {
		codecs = compression.Default
	}

	s := &Slob{
		keys:  opts.Collation,
		log:   opts.Logger,
		dicts: map[dictKey]*Dict{},
	}
	if s.keys == nil {
		s.keys = collation.Default
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	var err error
	if s.f, err = multifile.Open(names...); err != nil {
		return nil, err
	}
	if err := s.open(names, codecs, opts); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening %q: %w", names[0], err)
	}

	s.log.Debug("opened container",
		"files", names,
		"id", s.header.id,
		"compression", s.header.compression.Name(),
		"refs", s.refs.Len(),
		"bins", s.store.Len(),
	)
	return s, nil
}

func (s *Slob) open(names []string, codecs *compression.Registry, opts *Options) error {
	var err error
	if s.header, err = readHeader(s.f, codecs); err != nil {
		return err
	}
	if s.f.Size() != s.header.size {
		return fmt.Errorf("%w: size should be %d, %d bytes found",
			ErrIncorrectFileSize, s.header.size, s.f.Size())
	}

	s.refs, err = refs.Open(s.f, s.header.refsOffset, s.header.encoding, opts.RefCacheSize)
	if err != nil {
		return err
	}

	if s.g, err = multifile.Open(names...); err != nil {
		return err
	}
	s.store, err = store.Open(s.g, s.header.storeOffset, s.header.compression, s.header.contentTypes, &store.Options{
		CacheSize:    opts.StoreCacheSize,
		BinCacheSize: opts.BinCacheSize,
	})
	return err
}

// ID returns the container's unique identifier.
func (s *Slob) ID() uuid.UUID {
	return s.header.id
}

// Encoding returns the name of the container's text encoding.
func (s *Slob) Encoding() string {
	return s.header.encoding.Name()
}

// Compression returns the name of the container's compression.
func (s *Slob) Compression() string {
	return s.header.compression.Name()
}

// Tags returns the container's tags as a map of names to values.
func (s *Slob) Tags() map[string]string {
	tags := make(map[string]string, len(s.header.tags))
	for _, t := range s.header.tags {
		tags[t.Name] = t.Value
	}
	return tags
}

// Tag returns the value of the tag name.
func (s *Slob) Tag(name string) (string, bool) {
	for _, t := range s.header.tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// ContentTypes returns the container's content types. A content type's
// position in the list is its id.
func (s *Slob) ContentTypes() []string {
	return append([]string(nil), s.header.contentTypes...)
}

// BlobCount returns the number of distinct pieces of content in the
// container.
func (s *Slob) BlobCount() int {
	return int(s.header.blobCount)
}

// Len returns the number of keys in the container.
func (s *Slob) Len() int {
	return s.refs.Len()
}

func (s *Slob) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Blob returns the i-th blob in key order.
func (s *Slob) Blob(i int) (*Blob, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	ref, err := s.refs.Get(i)
	if err != nil {
		return nil, err
	}
	return &Blob{
		s:        s,
		id:       NewBlobID(ref.BinIndex, ref.ItemIndex),
		key:      ref.Key,
		fragment: ref.Fragment,
	}, nil
}

// Blobs returns an iterator over all blobs in key order. Iteration stops
// after the first error.
func (s *Slob) Blobs() iter.Seq2[*Blob, error] {
	return func(yield func(*Blob, error) bool) {
		for i := range s.Len() {
			b, err := s.Blob(i)
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

// Get returns the content type and content of the blob with the given id.
func (s *Slob) Get(id BlobID) (string, []byte, error) {
	if s.isClosed() {
		return "", nil, ErrClosed
	}
	bin, item := id.Split()
	return s.store.Get(int(bin), int(item))
}

func (s *Slob) contentType(id BlobID) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	bin, item := id.Split()
	return s.store.ContentType(int(bin), int(item))
}

// blobs adapts a Slob to an index sequence.
type blobs struct {
	s *Slob
}

func (b blobs) Len() int { return b.s.Len() }

func (b blobs) Get(i int) (*Blob, error) { return b.s.Blob(i) }

// Dict looks up blobs by key at a fixed collation strength.
type Dict struct {
	d *index.KeydItemDict[*Blob]
}

// Search returns all blobs whose key matches query.
func (d *Dict) Search(query string) ([]*Blob, error) {
	return d.d.Search(query)
}

// First returns the first blob whose key matches query. ok is false if
// there is none.
func (d *Dict) First(query string) (*Blob, bool, error) {
	return d.d.First(query)
}

// Contains reports whether any blob's key matches query.
func (d *Dict) Contains(query string) (bool, error) {
	return d.d.Contains(query)
}

// AsDict returns a Dict comparing keys at strength. If maxLength is greater
// than zero, collation keys are truncated to maxLength bytes, which turns
// lookups into prefix matches.
func (s *Slob) AsDict(strength collation.Strength, maxLength int) *Dict {
	k := dictKey{strength: strength, maxLength: maxLength}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dicts[k]; ok {
		return d
	}
	d := &Dict{d: index.New[*Blob](blobs{s: s}, s.keys.KeyFunc(strength, maxLength))}
	s.dicts[k] = d
	return d
}

// Close closes the container's files and drops all cached content.
func (s *Slob) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.refs != nil {
		s.refs.Purge()
	}
	if s.store != nil {
		s.store.Purge()
	}
	clear(s.dicts)

	var errs []error
	for _, r := range []*multifile.Reader{s.f, s.g} {
		if r != nil {
			errs = append(errs, r.Close())
		}
	}
	return errors.Join(errs...)
}
