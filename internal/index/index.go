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

// Package index implements keyed lookup over sorted sequences.
package index

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ianlewis/go-slob/collation"
)

// Sequence is a random access sequence of items.
type Sequence[V fmt.Stringer] interface {
	Len() int
	Get(i int) (V, error)
}

// KeydItemDict looks up items of a sequence sorted by their [collation.Identical]
// key. Items are compared by the key function given to [New], which may be
// of any strength and maximum length.
type KeydItemDict[V fmt.Stringer] struct {
	seq Sequence[V]
	key collation.KeyFunc
}

// New creates a KeydItemDict over seq. The items of seq must be sorted by
// their identical strength collation key.
func New[V fmt.Stringer](seq Sequence[V], key collation.KeyFunc) *KeydItemDict[V] {
	return &KeydItemDict[V]{
		seq: seq,
		key: key,
	}
}

// Len returns the length of the underlying sequence.
func (d *KeydItemDict[V]) Len() int {
	return d.seq.Len()
}

// Search performs a binary search over the sequence and returns the run of
// consecutive items whose key equals the key of query.
func (d *KeydItemDict[V]) Search(query string) ([]V, error) {
	q := d.key(query)

	var searchErr error
	i := sort.Search(d.seq.Len(), func(i int) bool {
		if searchErr != nil {
			return true
		}
		v, err := d.seq.Get(i)
		if err != nil {
			searchErr = err
			return true
		}
		return bytes.Compare(d.key(v.String()), q) >= 0
	})
	if searchErr != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, searchErr)
	}

	var result []V
	for ; i < d.seq.Len(); i++ {
		v, err := d.seq.Get(i)
		if err != nil {
			return nil, fmt.Errorf("searching for %q: %w", query, err)
		}
		if !bytes.Equal(d.key(v.String()), q) {
			break
		}
		result = append(result, v)
	}
	return result, nil
}

// First returns the first item matching query. ok is false if there is none.
func (d *KeydItemDict[V]) First(query string) (V, bool, error) {
	var zero V
	result, err := d.Search(query)
	if err != nil || len(result) == 0 {
		return zero, false, err
	}
	return result[0], true, nil
}

// Contains reports whether any item matches query.
func (d *KeydItemDict[V]) Contains(query string) (bool, error) {
	_, ok, err := d.First(query)
	return ok, err
}
