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
	"testing"

	"github.com/google/go-cmp/cmp"
)

type findResult struct {
	Slob int
	Key  string
}

func TestFind(t *testing.T) {
	t.Parallel()

	newSlob := func(names ...string) *Slob {
		var entries []entry
		for _, k := range names {
			entries = append(entries, entry{keys: keys(k), content: k})
		}
		return open(t, create(t, writerOptions(nil), entries...))
	}
	slobs := []*Slob{
		newSlob("aa", "a-a", "Aa", "Äā", "b"),
		newSlob("aa", "aab", "c"),
	}

	tests := []struct {
		name   string
		query  string
		prefix bool
		want   []findResult
	}{
		{
			name:  "exact",
			query: "aa",
			want: []findResult{
				{0, "aa"},
				{1, "aa"},
				{0, "a-a"},
				{0, "Aa"},
				{0, "Äā"},
			},
		},
		{
			name:   "prefix",
			query:  "aa",
			prefix: true,
			want: []findResult{
				{0, "aa"},
				{1, "aa"},
				{0, "a-a"},
				{0, "Aa"},
				{0, "Äā"},
				{1, "aab"},
			},
		},
		{
			name:  "folded query",
			query: "  aa\t",
			want: []findResult{
				{0, "aa"},
				{1, "aa"},
				{0, "a-a"},
				{0, "Aa"},
				{0, "Äā"},
			},
		},
		{
			name:   "no match",
			query:  "zzz",
			prefix: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var got []findResult
			for m, err := range Find(test.query, slobs, test.prefix) {
				if err != nil {
					t.Fatalf("Find: %v", err)
				}
				i := 0
				if m.Slob == slobs[1] {
					i = 1
				}
				got = append(got, findResult{Slob: i, Key: m.Blob.Key()})
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Find (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestFind_stop(t *testing.T) {
	t.Parallel()

	path := create(t, writerOptions(nil),
		entry{keys: keys("x"), content: "1"},
		entry{keys: keys("X"), content: "2"},
	)
	s := open(t, path)

	n := 0
	for _, err := range Find("x", []*Slob{s}, true) {
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		n++
		break
	}
	if n != 1 {
		t.Errorf("want 1 match, got %d", n)
	}
}
