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

// Package collation computes Unicode collation keys at a chosen strength.
//
// Keys are computed with the root locale by default and with punctuation and
// whitespace "shifted" so that they are ignored below the quaternary level.
// A key computed at a weaker strength is always a byte prefix of the key of
// the same string at a stronger strength, so a sequence sorted by
// [Identical] keys is also sorted at every weaker strength.
package collation

import (
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Strength is a collation comparison level.
type Strength int

// Collation strengths, weakest first.
const (
	Primary Strength = iota + 1
	Secondary
	Tertiary
	Quaternary
	Identical
)

// Strengths lists all strengths, strongest first.
var Strengths = []Strength{Identical, Quaternary, Tertiary, Secondary, Primary}

// String implements [fmt.Stringer].
func (s Strength) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Tertiary:
		return "tertiary"
	case Quaternary:
		return "quaternary"
	case Identical:
		return "identical"
	default:
		return fmt.Sprintf("Strength(%d)", int(s))
	}
}

// ParseStrength parses a strength name as returned by [Strength.String].
func ParseStrength(name string) (Strength, error) {
	for _, s := range Strengths {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown collation strength %q", name)
}

// KeyFunc maps a string to a comparable collation key.
type KeyFunc func(s string) []byte

type cacheKey struct {
	strength  Strength
	maxLength int
}

// Cache memoizes key functions by strength and maximum key length for a
// single locale. It is safe for concurrent use.
type Cache struct {
	locale language.Tag

	mu    sync.Mutex
	funcs map[cacheKey]KeyFunc
}

// NewCache returns a Cache for locale. The zero tag means the root locale.
func NewCache(locale language.Tag) *Cache {
	return &Cache{
		locale: locale,
		funcs:  map[cacheKey]KeyFunc{},
	}
}

// Default is a root locale cache shared by readers and writers that are not
// given their own.
var Default = NewCache(language.Und)

// Locale returns the cache's locale.
func (c *Cache) Locale() language.Tag {
	return c.locale
}

// KeyFunc returns the key function for strength. If maxLength is greater
// than zero, keys are truncated to at most maxLength bytes.
func (c *Cache) KeyFunc(strength Strength, maxLength int) KeyFunc {
	k := cacheKey{strength: strength, maxLength: maxLength}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.funcs[k]; ok {
		return f
	}
	f := newKeyFunc(c.locale, strength, maxLength)
	c.funcs[k] = f
	return f
}

// Reset drops all memoized key functions.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = map[cacheKey]KeyFunc{}
}

// Key returns the key of s at strength using the [Default] cache.
func Key(strength Strength, s string) []byte {
	return Default.KeyFunc(strength, 0)(s)
}

func levelOption(strength Strength) string {
	switch strength {
	case Primary:
		return "level1"
	case Secondary:
		return "level2"
	case Tertiary:
		return "level3"
	default:
		// Identical is computed from the quaternary key.
		return "level4"
	}
}

func newKeyFunc(locale language.Tag, strength Strength, maxLength int) KeyFunc {
	opts := language.MustParse("und-u-ka-shifted-ks-" + levelOption(strength))
	col := collate.New(locale, collate.OptionsFromTag(opts))

	// Collators keep iteration state and are not safe for concurrent use.
	var mu sync.Mutex
	var buf collate.Buffer

	return func(s string) []byte {
		mu.Lock()
		k := col.KeyFromString(&buf, s)
		key := make([]byte, len(k), len(k)+2+len(s))
		copy(key, k)
		buf.Reset()
		mu.Unlock()

		if strength == Identical {
			key = append(key, 0, 0)
			key = norm.NFD.AppendString(key, s)
		}
		if maxLength > 0 && len(key) > maxLength {
			key = key[:maxLength]
		}
		return key
	}
}
