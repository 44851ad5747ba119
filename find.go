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
	"iter"

	"github.com/google/uuid"

	"github.com/ianlewis/go-slob/collation"
	"github.com/ianlewis/go-slob/internal/folding"
)

// Match is a blob found by [Find] and the container it was found in.
type Match struct {
	Slob *Slob
	Blob *Blob
}

type findVariant struct {
	strength collation.Strength
	prefix   bool
}

// Find looks up query in each of slobs and returns matches best first: exact
// matches at each strength from strongest to weakest, then, if matchPrefix
// is true, keys starting with query at each strength. Within a variant,
// containers are searched in order. Each piece of content is reported once
// per key fragment.
func Find(query string, slobs []*Slob, matchPrefix bool) iter.Seq2[Match, error] {
	query = folding.Query(query)

	variants := make([]findVariant, 0, 2*len(collation.Strengths))
	for _, s := range collation.Strengths {
		variants = append(variants, findVariant{strength: s})
	}
	if matchPrefix {
		for _, s := range collation.Strengths[1:] {
			variants = append(variants, findVariant{strength: s, prefix: true})
		}
	}

	type seenKey struct {
		slob     uuid.UUID
		id       BlobID
		fragment string
	}

	return func(yield func(Match, error) bool) {
		seen := map[seenKey]bool{}
		for _, v := range variants {
			for _, s := range slobs {
				maxLength := 0
				if v.prefix {
					maxLength = len(s.keys.KeyFunc(v.strength, 0)(query))
				}
				found, err := s.AsDict(v.strength, maxLength).Search(query)
				if err != nil {
					yield(Match{Slob: s}, err)
					return
				}
				for _, b := range found {
					k := seenKey{slob: s.ID(), id: b.ID(), fragment: b.Fragment()}
					if seen[k] {
						continue
					}
					seen[k] = true
					if !yield(Match{Slob: s, Blob: b}, nil) {
						return
					}
				}
			}
		}
	}
}
