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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ianlewis/go-slob/collation"
	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/testutil"
)

// recorder records writer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// data returns the data of all events named name.
func (r *recorder) data(name EventName) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var d []any
	for _, e := range r.events {
		if e.Name == name {
			d = append(d, e.Data)
		}
	}
	return d
}

// names returns the names of all recorded events in order.
func (r *recorder) names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []EventName
	for _, e := range r.events {
		names = append(names, e.Name)
	}
	return names
}

func writerOptions(obs Observer) *WriterOptions {
	opts := DefaultWriterOptions
	opts.Observer = obs
	return &opts
}

type entry struct {
	keys        []Key
	contentType string
	content     string
}

func keys(names ...string) []Key {
	var k []Key
	for _, n := range names {
		k = append(k, Key{Name: n})
	}
	return k
}

// create writes entries to a new container and returns its path.
func create(t *testing.T, opts *WriterOptions, entries ...entry) string {
	t.Helper()

	path := testutil.TempPath(t, "test.slob")
	w, err := NewWriter(path, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()
	for _, e := range entries {
		if err := w.Add([]byte(e.content), e.contentType, e.keys...); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return path
}

func open(t *testing.T, path string) *Slob {
	t.Helper()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

type item struct {
	Key         string
	Fragment    string
	ContentType string
	Content     string
}

// items reads all blobs of s in order.
func items(t *testing.T, s *Slob) []item {
	t.Helper()

	var got []item
	for b, err := range s.Blobs() {
		if err != nil {
			t.Fatalf("Blobs: %v", err)
		}
		got = append(got, readItem(t, b))
	}
	return got
}

func readItem(t *testing.T, b *Blob) item {
	t.Helper()

	ct, err := b.ContentType()
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	content, err := b.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	return item{
		Key:         b.Key(),
		Fragment:    b.Fragment(),
		ContentType: ct,
		Content:     string(content),
	}
}

// contents returns the content of each blob.
func contents(t *testing.T, found []*Blob) []string {
	t.Helper()

	var got []string
	for _, b := range found {
		c, err := b.Content()
		if err != nil {
			t.Fatalf("Content: %v", err)
		}
		got = append(got, string(c))
	}
	return got
}

func TestReadWrite(t *testing.T) {
	t.Parallel()

	path := testutil.TempPath(t, "test.slob")
	w, err := NewWriter(path, writerOptions(nil))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	tags := []Tag{
		{Name: "a", Value: "abc"},
		{Name: "bb", Value: "xyz123"},
		{Name: "ccc", Value: "lkjlk"},
	}
	for _, tag := range tags {
		if err := w.Tag(tag.Name, tag.Value); err != nil {
			t.Fatalf("Tag: %v", err)
		}
	}
	// Later values overwrite earlier ones.
	if err := w.Tag("bb", "overwritten"); err != nil {
		t.Fatalf("Tag: %v", err)
	}

	entries := []entry{
		{keys: keys("c", "cc", "ccc"), contentType: "text/plain", content: "Hello C 1"},
		{keys: keys("a"), contentType: "text/plain", content: "Hello A 12"},
		{keys: keys("z"), contentType: "text/plain", content: "Hello Z 123"},
		{keys: keys("b"), contentType: "text/plain", content: "Hello B 1234"},
		{keys: keys("d"), contentType: "text/plain", content: "Hello D 12345"},
		{keys: keys("uuu"), contentType: "text/html", content: "<html><body>Hello U!</body></html>"},
		{keys: []Key{{Name: "yy", Fragment: "frag1"}}, contentType: "text/html", content: `<h1 name="frag1">Section 1</h1>`},
	}
	for _, e := range entries {
		if err := w.Add([]byte(e.content), e.contentType, e.keys...); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	s := open(t, path)

	t.Run("header", func(t *testing.T) {
		t.Parallel()

		if got, want := s.Encoding(), binio.UTF8; got != want {
			t.Errorf("Encoding: want %q, got %q", want, got)
		}
		if got, want := s.Compression(), compression.LZMA2; got != want {
			t.Errorf("Compression: want %q, got %q", want, got)
		}
		if got, want := s.BlobCount(), len(entries); got != want {
			t.Errorf("BlobCount: want %d, got %d", want, got)
		}
		if diff := cmp.Diff([]string{"text/plain", "text/html"}, s.ContentTypes()); diff != "" {
			t.Errorf("ContentTypes (-want, +got):\n%s", diff)
		}

		got := s.Tags()
		if _, ok := got["created.at"]; !ok {
			t.Errorf("missing tag %q", "created.at")
		}
		delete(got, "created.at")
		want := map[string]string{"a": "abc", "bb": "overwritten", "ccc": "lkjlk"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Tags (-want, +got):\n%s", diff)
		}
		if v, ok := s.Tag("a"); !ok || v != "abc" {
			t.Errorf("Tag(a): want abc, true; got %q, %v", v, ok)
		}
	})

	t.Run("content", func(t *testing.T) {
		t.Parallel()

		want := []item{
			{Key: "a", ContentType: "text/plain", Content: "Hello A 12"},
			{Key: "b", ContentType: "text/plain", Content: "Hello B 1234"},
			{Key: "c", ContentType: "text/plain", Content: "Hello C 1"},
			{Key: "cc", ContentType: "text/plain", Content: "Hello C 1"},
			{Key: "ccc", ContentType: "text/plain", Content: "Hello C 1"},
			{Key: "d", ContentType: "text/plain", Content: "Hello D 12345"},
			{Key: "uuu", ContentType: "text/html", Content: "<html><body>Hello U!</body></html>"},
			{Key: "yy", Fragment: "frag1", ContentType: "text/html", Content: `<h1 name="frag1">Section 1</h1>`},
			{Key: "z", ContentType: "text/plain", Content: "Hello Z 123"},
		}
		if diff := cmp.Diff(want, items(t, s)); diff != "" {
			t.Errorf("items (-want, +got):\n%s", diff)
		}
		if got := s.Len(); got != len(want) {
			t.Errorf("Len: want %d, got %d", len(want), got)
		}

		_, err := s.Blob(s.Len())
		if diff := cmp.Diff(ErrOutOfRange, err, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("Blob(Len) (-want, +got):\n%s", diff)
		}
	})

	t.Run("shared content", func(t *testing.T) {
		t.Parallel()

		c, err := s.AsDict(collation.Identical, 0).Search("c")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		cc, err := s.AsDict(collation.Identical, 0).Search("cc")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(c) != 1 || len(cc) != 1 || c[0].ID() != cc[0].ID() {
			t.Fatalf("c and cc should share one blob: %v, %v", c, cc)
		}

		ct, content, err := s.Get(c[0].ID())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ct != "text/plain" || string(content) != "Hello C 1" {
			t.Errorf("Get: got %q, %q", ct, content)
		}
	})
}

func TestWriter_versionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		versionInfo bool
		want        []string
	}{
		{
			name: "default",
			want: []string{"created.at"},
		},
		{
			name:        "version info",
			versionInfo: true,
			want:        []string{"created.at", "version.go", "version.slob"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			opts := writerOptions(nil)
			opts.VersionInfo = test.versionInfo
			s := open(t, create(t, opts, entry{keys: keys("a"), content: "A"}))

			var got []string
			for name := range s.Tags() {
				got = append(got, name)
			}
			if diff := cmp.Diff(test.want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
				t.Errorf("tags (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestWriter_scenarioA(t *testing.T) {
	t.Parallel()

	path := create(t, writerOptions(nil),
		entry{keys: keys("b"), content: "B"},
		entry{keys: keys("a"), content: "A"},
		entry{keys: keys("c"), content: "C"},
	)
	s := open(t, path)

	var got []string
	for _, it := range items(t, s) {
		got = append(got, it.Content)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, got); diff != "" {
		t.Errorf("content (-want, +got):\n%s", diff)
	}
}

func TestWriter_scenarioB(t *testing.T) {
	t.Parallel()

	path := create(t, writerOptions(nil),
		entry{keys: keys("x", "y", "z"), contentType: "text/plain", content: "hello"},
	)
	s := open(t, path)

	if got := s.BlobCount(); got != 1 {
		t.Errorf("BlobCount: want 1, got %d", got)
	}
	for _, k := range []string{"x", "y", "z"} {
		found, err := s.AsDict(collation.Tertiary, 0).Search(k)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if diff := cmp.Diff([]string{"hello"}, contents(t, found)); diff != "" {
			t.Errorf("Search(%q) (-want, +got):\n%s", k, diff)
		}
	}
}

func TestWriter_duplicateKeys(t *testing.T) {
	t.Parallel()

	path := create(t, writerOptions(nil),
		entry{keys: keys("same"), content: "first"},
		entry{keys: keys("other"), content: "other"},
		entry{keys: keys("same"), content: "second"},
	)
	s := open(t, path)

	found, err := s.AsDict(collation.Identical, 0).Search("same")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// The sort is stable so insertion order is kept for equal keys.
	if diff := cmp.Diff([]string{"first", "second"}, contents(t, found)); diff != "" {
		t.Errorf("Search (-want, +got):\n%s", diff)
	}
}

func TestWriter_sortOrder(t *testing.T) {
	t.Parallel()

	data := []string{
		"Ф, ф", "Ф ф", "Ф", "Э", "Е е", "г", "н",
		"ф", "а", "Ф, Ф", "е", "Е", "Ее", "ё", "Ё",
		"Её", "Е ё", "А", "э", "ы",
	}
	var entries []entry
	for _, k := range data {
		entries = append(entries, entry{keys: keys(k), content: testutil.Describe(k)})
	}
	s := open(t, create(t, writerOptions(nil), entries...))

	key := collation.Default.KeyFunc(collation.Identical, 0)
	var prev []byte
	for i := range s.Len() {
		b, err := s.Blob(i)
		if err != nil {
			t.Fatalf("Blob(%d): %v", i, err)
		}
		k := key(b.Key())
		if prev != nil && string(prev) > string(k) {
			t.Errorf("blob %d %q sorts before the previous blob", i, b.Key())
		}
		prev = k
	}
	if got := s.Len(); got != len(data) {
		t.Errorf("Len: want %d, got %d", len(data), got)
	}
}

func TestWriter_compression(t *testing.T) {
	t.Parallel()

	entries := []entry{
		{keys: keys("one"), contentType: "text/plain", content: "1"},
		{keys: keys("two"), contentType: "text/html", content: strings.Repeat("<p>two</p>", 1000)},
		{keys: keys("empty"), contentType: "application/octet-stream", content: ""},
	}

	for _, name := range compression.Default.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := writerOptions(nil)
			opts.Compression = name
			// Small bins exercise several store records.
			opts.MinBinSize = 16
			s := open(t, create(t, opts, entries...))

			if got := s.Compression(); got != name {
				t.Errorf("Compression: want %q, got %q", name, got)
			}
			want := []item{
				{Key: "empty", ContentType: "application/octet-stream"},
				{Key: "one", ContentType: "text/plain", Content: "1"},
				{Key: "two", ContentType: "text/html", Content: strings.Repeat("<p>two</p>", 1000)},
			}
			if diff := cmp.Diff(want, items(t, s)); diff != "" {
				t.Errorf("items (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestWriter_encoding(t *testing.T) {
	t.Parallel()

	opts := writerOptions(nil)
	opts.Encoding = "ISO-8859-1"
	path := testutil.TempPath(t, "latin1.slob")
	w, err := NewWriter(path, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Tag("título", "café"); err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if err := w.Add([]byte("coffee"), "text/plain", Key{Name: "café", Fragment: "é"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	s := open(t, path)
	if got, want := s.Encoding(), "ISO-8859-1"; got != want {
		t.Errorf("Encoding: want %q, got %q", want, got)
	}
	if v, _ := s.Tag("título"); v != "café" {
		t.Errorf("Tag: want %q, got %q", "café", v)
	}
	want := []item{{Key: "café", Fragment: "é", ContentType: "text/plain", Content: "coffee"}}
	if diff := cmp.Diff(want, items(t, s)); diff != "" {
		t.Errorf("items (-want, +got):\n%s", diff)
	}
}

func TestWriter_notEncodable(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	opts := writerOptions(rec)
	opts.Encoding = "ISO-8859-1"
	path := testutil.TempPath(t, "latin1.slob")
	w, err := NewWriter(path, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.Tag("名前", "v"); err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if err := w.Add([]byte("dropped"), "text/日本", Key{Name: "type"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Add([]byte("kept"), "text/plain", Key{Name: "日本"}, Key{Name: "ok", Fragment: "ß"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.AddAlias(Key{Name: "alias"}, Key{Name: "ok", Fragment: "日"}); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := []any{
		Tag{Name: "名前", Value: "v"},
		"text/日本",
		Key{Name: "日本"},
		Key{Name: "ok", Fragment: "日"},
	}
	if diff := cmp.Diff(want, rec.data(EventNotEncodable)); diff != "" {
		t.Errorf("not_encodable (-want, +got):\n%s", diff)
	}
	for _, name := range []EventName{EventTagNameTooLong, EventContentTypeTooLong, EventKeyTooLong, EventAliasTooLong, EventAliasTargetTooLong} {
		if got := rec.data(name); len(got) != 0 {
			t.Errorf("%s: want no events, got %v", name, got)
		}
	}

	s := open(t, path)
	wantItems := []item{{Key: "ok", Fragment: "ß", ContentType: "text/plain", Content: "kept"}}
	if diff := cmp.Diff(wantItems, items(t, s)); diff != "" {
		t.Errorf("items (-want, +got):\n%s", diff)
	}
}

func TestWriter_limits(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	path := testutil.TempPath(t, "test.slob")
	w, err := NewWriter(path, writerOptions(rec))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	longName := strings.Repeat("k", binio.MaxTextLen+1)
	longTiny := strings.Repeat("t", binio.MaxTinyTextLen+1)

	for _, tc := range []struct {
		name, value string
	}{
		{longTiny, "v"},
		{"long-value", longTiny},
		{"ok", strings.Repeat("v", binio.MaxTinyTextLen)},
	} {
		if err := w.Tag(tc.name, tc.value); err != nil {
			t.Fatalf("Tag: %v", err)
		}
	}

	adds := []entry{
		{keys: []Key{{Name: longName}}, content: "dropped key"},
		{keys: []Key{{Name: "frag", Fragment: longTiny}}, content: "dropped fragment"},
		{keys: []Key{{Name: longName}, {Name: "kept"}}, content: "kept"},
		{keys: keys("bad-type"), contentType: longName, content: "dropped type"},
		{keys: keys(strings.Repeat("é", binio.MaxTextLen/2+1)), content: "multibyte key"},
	}
	for _, e := range adds {
		if err := w.Add([]byte(e.content), e.contentType, e.keys...); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := w.AddAlias(Key{Name: longName}, Key{Name: "kept"}); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}
	if err := w.AddAlias(Key{Name: "alias"}, Key{Name: longName}); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if diff := cmp.Diff([]any{Tag{Name: longTiny, Value: "v"}}, rec.data(EventTagNameTooLong)); diff != "" {
		t.Errorf("tag_name_too_long (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{Tag{Name: "long-value", Value: longTiny}}, rec.data(EventTagValueTooLong)); diff != "" {
		t.Errorf("tag_value_too_long (-want, +got):\n%s", diff)
	}
	if got := len(rec.data(EventKeyTooLong)); got != 4 {
		t.Errorf("key_too_long: want 4 events, got %d", got)
	}
	if diff := cmp.Diff([]any{longName}, rec.data(EventContentTypeTooLong)); diff != "" {
		t.Errorf("content_type_too_long (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{Key{Name: longName}}, rec.data(EventAliasTooLong)); diff != "" {
		t.Errorf("alias_too_long (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{Key{Name: longName}}, rec.data(EventAliasTargetTooLong)); diff != "" {
		t.Errorf("alias_target_too_long (-want, +got):\n%s", diff)
	}

	s := open(t, path)
	want := []item{{Key: "kept", Content: "kept"}}
	if diff := cmp.Diff(want, items(t, s)); diff != "" {
		t.Errorf("items (-want, +got):\n%s", diff)
	}
	if got := s.BlobCount(); got != 1 {
		t.Errorf("BlobCount: want 1, got %d", got)
	}

	tags := s.Tags()
	if v, ok := tags["long-value"]; !ok || v != "" {
		t.Errorf("long-value tag: want empty value, got %q, %v", v, ok)
	}
	if _, ok := tags[longTiny]; ok {
		t.Errorf("tag with long name should be dropped")
	}
	if got := tags["ok"]; len(got) != binio.MaxTinyTextLen {
		t.Errorf("ok tag: want %d bytes, got %d", binio.MaxTinyTextLen, len(got))
	}
}

func TestWriter_tableLimits(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	path := testutil.TempPath(t, "test.slob")
	w, err := NewWriter(path, writerOptions(rec))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	for i := len(w.Tags()); i <= MaxTags; i++ {
		if err := w.Tag(fmt.Sprintf("tag%d", i), "v"); err != nil {
			t.Fatalf("Tag: %v", err)
		}
	}
	for i := 0; i <= MaxContentTypes; i++ {
		ct := "type/" + strings.Repeat("x", i)
		if err := w.Add([]byte(ct), ct, Key{Name: ct}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if got := len(rec.data(EventTagLimit)); got != 1 {
		t.Errorf("tag_limit: want 1 event, got %d", got)
	}
	if got := len(rec.data(EventContentTypeLimit)); got != 1 {
		t.Errorf("content_type_limit: want 1 event, got %d", got)
	}

	s := open(t, path)
	if got := len(s.Tags()); got != MaxTags {
		t.Errorf("Tags: want %d, got %d", MaxTags, got)
	}
	if got := len(s.ContentTypes()); got != MaxContentTypes {
		t.Errorf("ContentTypes: want %d, got %d", MaxContentTypes, got)
	}
	if got := s.Len(); got != MaxContentTypes {
		t.Errorf("Len: want %d, got %d", MaxContentTypes, got)
	}
}

func TestWriter_binItemLimit(t *testing.T) {
	t.Parallel()

	opts := writerOptions(nil)
	opts.Compression = compression.None
	opts.MaxRedirects = 0
	opts.MinBinSize = 1 << 30

	path := testutil.TempPath(t, "test.slob")
	w, err := NewWriter(path, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	n := binio.MaxBinItemCount + 2
	for i := range n {
		if err := w.Add([]byte{byte(i)}, "", Key{Name: "k"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	s := open(t, path)
	if got, want := s.store.Len(), 2; got != want {
		t.Errorf("bins: want %d, got %d", want, got)
	}
	if got := s.BlobCount(); got != n {
		t.Errorf("BlobCount: want %d, got %d", n, got)
	}

	// Insertion order is kept for equal keys, so blob i holds byte(i).
	for _, i := range []int{0, 1, binio.MaxBinItemCount - 1, binio.MaxBinItemCount, n - 1} {
		b, err := s.Blob(i)
		if err != nil {
			t.Fatalf("Blob(%d): %v", i, err)
		}
		bin, item := b.ID().Split()
		wantBin, wantItem := i/binio.MaxBinItemCount, i%binio.MaxBinItemCount
		if int(bin) != wantBin || int(item) != wantItem {
			t.Errorf("Blob(%d): want %d:%d, got %s", i, wantBin, wantItem, b.ID())
		}
		c, err := b.Content()
		if err != nil {
			t.Fatalf("Content: %v", err)
		}
		if diff := cmp.Diff([]byte{byte(i)}, c); diff != "" {
			t.Errorf("Content(%d) (-want, +got):\n%s", i, diff)
		}
	}
}

func TestWriter_events(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	create(t, writerOptions(rec), entry{keys: keys("a"), content: "A"})

	want := []EventName{
		EventBeginFinalize,
		EventBeginSort,
		EventEndSort,
		EventBeginResolveAliases,
		EventBeginSort,
		EventEndSort,
		EventEndResolveAliases,
		EventBeginMove,
		EventEndMove,
		EventBeginMove,
		EventEndMove,
		EventBeginMove,
		EventEndMove,
		EventBeginMove,
		EventEndMove,
		EventEndFinalize,
	}
	if diff := cmp.Diff(want, rec.names()); diff != "" {
		t.Errorf("events (-want, +got):\n%s", diff)
	}
	moved := []any{"ref-positions", "refs", "store-positions", "store"}
	if diff := cmp.Diff(moved, rec.data(EventBeginMove)); diff != "" {
		t.Errorf("moved (-want, +got):\n%s", diff)
	}
}

func TestWriter_state(t *testing.T) {
	t.Parallel()

	t.Run("finalized", func(t *testing.T) {
		t.Parallel()

		w, err := NewWriter(testutil.TempPath(t, "test.slob"), writerOptions(nil))
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if err := w.Finalize(); err != nil {
			t.Fatalf("Finalize: %v", err)
		}

		errs := map[string]error{
			"Add":      w.Add([]byte("x"), "", Key{Name: "x"}),
			"AddAlias": w.AddAlias(Key{Name: "x"}, Key{Name: "y"}),
			"Tag":      w.Tag("x", "y"),
			"Finalize": w.Finalize(),
		}
		for name, err := range errs {
			if diff := cmp.Diff(ErrFinalized, err, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("%s (-want, +got):\n%s", name, diff)
			}
		}
		if err := w.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		workDir := t.TempDir()
		path := testutil.TempPath(t, "test.slob")
		opts := writerOptions(nil)
		opts.WorkDir = workDir
		w, err := NewWriter(path, opts)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if err := w.Add([]byte("x"), "", Key{Name: "x"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("output should be removed: %v", err)
		}
		entries, err := os.ReadDir(workDir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("work dir should be empty: %v", entries)
		}

		err = w.Add([]byte("x"), "", Key{Name: "x"})
		if diff := cmp.Diff(ErrClosed, err, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("Add (-want, +got):\n%s", diff)
		}
		if err := w.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})

	t.Run("temp dir removed", func(t *testing.T) {
		t.Parallel()

		workDir := t.TempDir()
		opts := writerOptions(nil)
		opts.WorkDir = workDir
		create(t, opts, entry{keys: keys("a"), content: "A"})

		entries, err := os.ReadDir(workDir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("work dir should be empty: %v", entries)
		}
	})

	t.Run("aliases disabled", func(t *testing.T) {
		t.Parallel()

		opts := writerOptions(nil)
		opts.MaxRedirects = 0
		w, err := NewWriter(testutil.TempPath(t, "test.slob"), opts)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		defer w.Close()

		err = w.AddAlias(Key{Name: "x"}, Key{Name: "y"})
		if diff := cmp.Diff(ErrAliasesDisabled, err, cmpopts.EquateErrors()); diff != "" {
			t.Errorf("AddAlias (-want, +got):\n%s", diff)
		}
	})
}

func TestNewWriter_errors(t *testing.T) {
	t.Parallel()

	existing := testutil.TempPath(t, "exists.slob")
	if err := os.WriteFile(existing, []byte("content"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name string
		path string
		opts func(*WriterOptions)
		err  error
	}{
		{
			name: "exists",
			path: existing,
			err:  ErrFileExists,
		},
		{
			name: "unknown compression",
			path: filepath.Join(t.TempDir(), "a.slob"),
			opts: func(o *WriterOptions) { o.Compression = "nope" },
			err:  ErrUnknownCompression,
		},
		{
			name: "unknown encoding",
			path: filepath.Join(t.TempDir(), "b.slob"),
			opts: func(o *WriterOptions) { o.Encoding = "nope" },
			err:  ErrUnknownEncoding,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			opts := writerOptions(nil)
			if test.opts != nil {
				test.opts(opts)
			}
			_, err := NewWriter(test.path, opts)
			if diff := cmp.Diff(test.err, err, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("NewWriter (-want, +got):\n%s", diff)
			}
		})
	}

	b, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "content" {
		t.Errorf("existing file was modified: %q", b)
	}
}
