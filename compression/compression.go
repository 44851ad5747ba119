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

// Package compression implements the named codecs that slob bins are
// compressed with.
//
// The codec name is recorded in the container header and dictates the
// decompressor a reader must use. A [Registry] maps names to codecs. The four
// codecs every slob implementation understands are available from
// [NewRegistry]; the [Default] registry additionally carries zstd, lz4, and
// snappy.
package compression

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCompression indicates that a codec name is not registered.
var ErrUnknownCompression = errors.New("unknown compression")

// Codec names.
const (
	None   = ""
	BZ2    = "bz2"
	Zlib   = "zlib"
	LZMA2  = "lzma2"
	Zstd   = "zstd"
	LZ4    = "lz4"
	Snappy = "snappy"
)

// Codec compresses and decompresses whole bins.
type Codec interface {
	// Name returns the name recorded in container headers.
	Name() string

	// Compress returns the compressed form of b.
	Compress(b []byte) ([]byte, error)

	// Decompress returns the original bytes of compressed b.
	Decompress(b []byte) ([]byte, error)
}

// Registry is a set of codecs keyed by name. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a registry holding the identity, bz2, zlib, and lzma2
// codecs.
func NewRegistry() *Registry {
	r := &Registry{codecs: map[string]Codec{}}
	r.Register(identity{})
	r.Register(bz2Codec{})
	r.Register(zlibCodec{})
	r.Register(lzma2Codec{})
	return r
}

// Register adds c to the registry, replacing any codec with the same name.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Name()] = c
}

// Lookup returns the codec registered under name.
func (r *Registry) Lookup(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
	return c, nil
}

// Names returns the sorted names of all registered codecs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the registry used when no other registry is given.
var Default = func() *Registry {
	r := NewRegistry()
	r.Register(zstdCodec{})
	r.Register(lz4Codec{})
	r.Register(snappyCodec{})
	return r
}()

// Register adds c to the [Default] registry.
func Register(c Codec) {
	Default.Register(c)
}

// Lookup returns the codec registered under name in the [Default] registry.
func Lookup(name string) (Codec, error) {
	return Default.Lookup(name)
}
