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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/release-utils/version"

	"github.com/ianlewis/go-slob/collation"
	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/itemlist"
	"github.com/ianlewis/go-slob/internal/refs"
	"github.com/ianlewis/go-slob/internal/store"
	"github.com/ianlewis/go-slob/multifile"
)

// Key is a lookup key for content, optionally pointing at a fragment within
// the content.
type Key struct {
	Name     string
	Fragment string
}

// String implements [fmt.Stringer].
func (k Key) String() string {
	if k.Fragment == "" {
		return k.Name
	}
	return k.Name + "#" + k.Fragment
}

// WriterOptions are options for a [Writer]. Fields are used as given, so
// callers should start from a copy of [DefaultWriterOptions].
type WriterOptions struct {
	// Compression is the name of the codec bins are compressed with.
	Compression string

	// Encoding is the text encoding of keys, tags, and content types. The
	// empty string means UTF-8.
	Encoding string

	// MinBinSize is the uncompressed size above which a bin is flushed.
	MinBinSize int

	// MaxRedirects is the maximum length of an alias chain. Zero disables
	// aliases.
	MaxRedirects int

	// VersionInfo adds the version.go and version.slob tags describing the
	// software that wrote the container.
	VersionInfo bool

	// WorkDir is the directory temporary files are created in. The empty
	// string means the default temporary directory.
	WorkDir string

	// Observer receives soft rejection and progress events.
	Observer Observer

	// Logger is the logger to use. A nil logger discards logs.
	Logger *slog.Logger

	// Compressions is the codec registry. Nil means [compression.Default].
	Compressions *compression.Registry

	// Collation is the cache collation keys are computed with. Nil means
	// [collation.Default].
	Collation *collation.Cache
}

// DefaultWriterOptions is the default options for a [Writer].
var DefaultWriterOptions = WriterOptions{
	Compression:  compression.LZMA2,
	Encoding:     binio.UTF8,
	MinBinSize:   512 * 1024,
	MaxRedirects: 5,
}

type writerState int

const (
	stateOpen writerState = iota
	stateFinalizing
	stateFinalized
	stateClosed
)

// tempFile is a buffered temporary file.
type tempFile struct {
	f   *os.File
	buf *bufio.Writer
	w   *binio.Writer
}

func createTemp(dir, name string, enc *binio.Encoding) (*tempFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return newTempFile(f, enc, 0), nil
}

func newTempFile(f *os.File, enc *binio.Encoding, off int64) *tempFile {
	buf := bufio.NewWriter(f)
	return &tempFile{
		f:   f,
		buf: buf,
		w:   binio.NewWriterAt(buf, enc, off),
	}
}

func (t *tempFile) name() string {
	return t.f.Name()
}

func (t *tempFile) flush() error {
	if err := t.buf.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", filepath.Base(t.name()), err)
	}
	return nil
}

func (t *tempFile) close() error {
	return errors.Join(t.flush(), t.f.Close())
}

// Writer builds a slob container. A Writer is not safe for concurrent use.
//
// Content is added with [Writer.Add] and aliases with [Writer.AddAlias].
// [Writer.Finalize] sorts the index, resolves aliases, and writes the
// container to its output path. Records that cannot be stored, such as keys
// that are too long, are dropped and reported to the writer's [Observer]
// rather than returned as errors.
type Writer struct {
	path  string
	opts  WriterOptions
	log   *slog.Logger
	enc   *binio.Encoding
	codec compression.Codec
	keys  *collation.Cache
	state writerState

	tmpDir   string
	refPos   *tempFile
	refData  *tempFile
	storePos *tempFile
	store    *tempFile

	refs *refs.Writer
	bins *store.BinWriter

	contentTypes map[string]uint8
	ctNames      []string
	blobCount    int

	tags []Tag

	aliasPath string
	aliases   *Writer
}

// NewWriter creates a Writer that writes a container to path. The file at
// path must not exist. An empty placeholder is created immediately so that
// permission problems are reported early.
func NewWriter(path string, opts *WriterOptions) (*Writer, error) {
	if opts == nil {
		opts = &DefaultWriterOptions
	}

	w := &Writer{
		path:         path,
		opts:         *opts,
		log:          opts.Logger,
		keys:         opts.Collation,
		contentTypes: map[string]uint8{},
	}
	if w.log == nil {
		w.log = slog.New(slog.DiscardHandler)
	}
	if w.keys == nil {
		w.keys = collation.Default
	}
	codecs := opts.Compressions
	if codecs == nil {
		codecs = compression.Default
	}
	encName := opts.Encoding
	if encName == "" {
		encName = binio.UTF8
	}

	var err error
	if w.enc, err = binio.LookupEncoding(encName); err != nil {
		return nil, err
	}
	if w.codec, err = codecs.Lookup(opts.Compression); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %q", ErrFileExists, path)
		}
		return nil, fmt.Errorf("creating %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("creating %q: %w", path, err)
	}

	if err := w.init(codecs); err != nil {
		w.cleanup()
		_ = os.Remove(path)
		return nil, err
	}
	return w, nil
}

func (w *Writer) init(codecs *compression.Registry) error {
	var err error
	w.tmpDir, err = os.MkdirTemp(w.opts.WorkDir, filepath.Base(w.path)+"-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	for _, t := range []struct {
		f    **tempFile
		name string
	}{
		{&w.refPos, "ref-positions"},
		{&w.refData, "refs"},
		{&w.storePos, "store-positions"},
		{&w.store, "store"},
	} {
		if *t.f, err = createTemp(w.tmpDir, t.name, w.enc); err != nil {
			return err
		}
	}

	w.refs = refs.NewWriter(w.refPos.w, w.refData.w)
	w.bins = store.NewBinWriter(
		itemlist.NewWriter(w.storePos.w, w.store.w, itemlist.Pos64),
		w.codec,
	)

	if w.opts.MaxRedirects > 0 {
		w.aliasPath = filepath.Join(w.tmpDir, "aliases")
		w.aliases, err = NewWriter(w.aliasPath, w.nestedOptions(codecs))
		if err != nil {
			return fmt.Errorf("creating alias writer: %w", err)
		}
	}

	if w.opts.VersionInfo {
		info := version.GetVersionInfo()
		w.tags = append(w.tags,
			Tag{Name: "version.go", Value: info.GoVersion},
			Tag{Name: "version.slob", Value: info.GitVersion},
		)
	}
	w.tags = append(w.tags, Tag{Name: "created.at", Value: time.Now().UTC().Format(time.RFC3339)})
	return nil
}

// nestedOptions returns the options for the writers used while resolving
// aliases.
func (w *Writer) nestedOptions(codecs *compression.Registry) *WriterOptions {
	return &WriterOptions{
		Compression:  compression.None,
		Encoding:     w.enc.Name(),
		MinBinSize:   w.opts.MinBinSize,
		WorkDir:      w.tmpDir,
		Logger:       w.log,
		Compressions: codecs,
		Collation:    w.keys,
	}
}

func (w *Writer) checkState() error {
	switch w.state {
	case stateOpen:
		return nil
	case stateClosed:
		return ErrClosed
	default:
		return ErrFinalized
	}
}

func (w *Writer) fire(name EventName, data any) {
	if w.opts.Observer != nil {
		w.opts.Observer.Observe(Event{Name: name, Data: data})
	}
}

// Tags returns the tags that will be written.
func (w *Writer) Tags() []Tag {
	return slices.Clone(w.tags)
}

// Tag sets the value of the tag name. Setting a tag that was already set
// overwrites its value. A value that is too long is replaced with the empty
// string. A tag the writer's encoding cannot represent is dropped.
func (w *Writer) Tag(name, value string) error {
	if err := w.checkState(); err != nil {
		return err
	}

	if !w.encodable(name, value) {
		w.fire(EventNotEncodable, Tag{Name: name, Value: value})
		return nil
	}
	if !w.enc.FitsTiny(name) {
		w.fire(EventTagNameTooLong, Tag{Name: name, Value: value})
		return nil
	}
	if !w.enc.FitsTiny(value) {
		w.fire(EventTagValueTooLong, Tag{Name: name, Value: value})
		value = ""
	}

	for i := range w.tags {
		if w.tags[i].Name == name {
			w.tags[i].Value = value
			return nil
		}
	}
	if len(w.tags) >= MaxTags {
		w.fire(EventTagLimit, Tag{Name: name, Value: value})
		return nil
	}
	w.tags = append(w.tags, Tag{Name: name, Value: value})
	return nil
}

// encodable reports whether every string in ss can be represented in the
// writer's encoding.
func (w *Writer) encodable(ss ...string) bool {
	for _, s := range ss {
		if _, err := w.enc.Encode(s); err != nil {
			return false
		}
	}
	return true
}

// validKey reports whether k fits the index.
func (w *Writer) validKey(k Key) bool {
	return w.enc.FitsText(k.Name) && w.enc.FitsTiny(k.Fragment)
}

// Add adds content of contentType under keys. Keys that are too long are
// dropped. If no key remains the content is not stored.
func (w *Writer) Add(content []byte, contentType string, keys ...Key) error {
	if err := w.checkState(); err != nil {
		return err
	}

	if int64(len(content)) > binio.MaxLargeByteStringLen {
		w.fire(EventContentTooLong, len(content))
		return nil
	}
	if !w.encodable(contentType) {
		w.fire(EventNotEncodable, contentType)
		return nil
	}
	if !w.enc.FitsText(contentType) {
		w.fire(EventContentTypeTooLong, contentType)
		return nil
	}

	valid := make([]Key, 0, len(keys))
	for _, k := range keys {
		if !w.encodable(k.Name, k.Fragment) {
			w.fire(EventNotEncodable, k)
			continue
		}
		if !w.validKey(k) {
			w.fire(EventKeyTooLong, k)
			continue
		}
		valid = append(valid, k)
	}
	if len(valid) == 0 {
		return nil
	}

	ctID, ok := w.contentTypes[contentType]
	if !ok {
		if len(w.ctNames) >= MaxContentTypes {
			w.fire(EventContentTypeLimit, contentType)
			return nil
		}
		//nolint:gosec // bounded by MaxContentTypes.
		ctID = uint8(len(w.ctNames))
		w.contentTypes[contentType] = ctID
		w.ctNames = append(w.ctNames, contentType)
	}

	bin, item := w.bins.Add(ctID, content)
	w.blobCount++

	for _, k := range valid {
		err := w.refs.Write(refs.Ref{
			Key: k.Name,
			//nolint:gosec // bin and item indexes fit the index fields.
			BinIndex: uint32(bin),
			//nolint:gosec // bins never hold more than MaxBinItemCount items.
			ItemIndex: uint16(item),
			Fragment:  k.Fragment,
		})
		if err != nil {
			return err
		}
	}

	if w.bins.Size() > w.opts.MinBinSize || w.bins.Len() == binio.MaxBinItemCount {
		return w.flushBin()
	}
	return nil
}

func (w *Writer) flushBin() error {
	items := w.bins.Len()
	if err := w.bins.Flush(); err != nil {
		return err
	}
	w.log.Debug("flushed bin", "path", w.path, "bin", w.bins.Count()-1, "items", items)
	return nil
}

// AddAlias adds key as an alias of target. Aliases are resolved when the
// writer is finalized: key is added to the index pointing at the content
// target resolves to. If target has no fragment, key's fragment is used.
func (w *Writer) AddAlias(key, target Key) error {
	if err := w.checkState(); err != nil {
		return err
	}
	if w.aliases == nil {
		return ErrAliasesDisabled
	}

	for _, k := range []Key{key, target} {
		if !w.encodable(k.Name, k.Fragment) {
			w.fire(EventNotEncodable, k)
			return nil
		}
	}
	if !w.validKey(key) {
		w.fire(EventAliasTooLong, key)
		return nil
	}
	if !w.validKey(target) {
		w.fire(EventAliasTargetTooLong, target)
		return nil
	}

	b, err := encodeAlias(target)
	if err != nil {
		return err
	}
	return w.aliases.Add(b, "", key)
}

// sortRefs sorts the ref position table by the identical strength collation
// key of each ref. Refs themselves are not moved.
func (w *Writer) sortRefs() error {
	w.fire(EventBeginSort, nil)
	start := time.Now()

	if err := errors.Join(w.refPos.close(), w.refData.flush()); err != nil {
		return err
	}

	r, err := multifile.Open(w.refPos.name(), w.refData.name())
	if err != nil {
		return err
	}
	defer r.Close()

	list, err := refs.New(r, 0, w.refs.Len(), w.enc, 0)
	if err != nil {
		return err
	}

	key := w.keys.KeyFunc(collation.Identical, 0)
	sortKeys := make([][]byte, list.Len())
	for i := range list.Len() {
		ref, err := list.Get(i)
		if err != nil {
			return err
		}
		sortKeys[i] = key(ref.Key)
	}
	order := make([]int, list.Len())
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return bytes.Compare(sortKeys[a], sortKeys[b])
	})

	sorted, err := createTemp(w.tmpDir, "ref-positions-sorted", w.enc)
	if err != nil {
		return err
	}
	for _, i := range order {
		pos, err := list.Pos(i)
		if err != nil {
			_ = sorted.close()
			return err
		}
		//nolint:gosec // positions are never negative.
		if err := sorted.w.Long(uint64(pos)); err != nil {
			_ = sorted.close()
			return err
		}
	}
	if err := sorted.close(); err != nil {
		return err
	}
	if err := os.Rename(sorted.name(), w.refPos.name()); err != nil {
		return fmt.Errorf("replacing ref positions: %w", err)
	}

	// Reopen for appending resolved aliases.
	f, err := os.OpenFile(w.refPos.name(), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("opening ref positions: %w", err)
	}
	w.refPos = newTempFile(f, w.enc, int64(len(order))*int64(itemlist.Pos64))
	w.refs = refs.NewWriterAt(w.refPos.w, w.refData.w, w.refs.Len())

	w.log.Debug("sorted refs", "path", w.path, "refs", len(order), "duration", time.Since(start))
	w.fire(EventEndSort, nil)
	return nil
}

// Finalize writes the container to the writer's output path. The writer
// cannot be used after Finalize returns.
func (w *Writer) Finalize() error {
	if err := w.checkState(); err != nil {
		return err
	}
	w.state = stateFinalizing

	err := w.finalize()
	w.cleanup()
	if err != nil {
		w.state = stateClosed
		_ = os.Remove(w.path)
		return fmt.Errorf("finalizing %q: %w", w.path, err)
	}
	w.state = stateFinalized
	w.fire(EventEndFinalize, nil)
	return nil
}

func (w *Writer) finalize() error {
	w.fire(EventBeginFinalize, nil)

	if err := w.flushBin(); err != nil {
		return err
	}
	if err := w.sortRefs(); err != nil {
		return err
	}
	if w.aliases != nil {
		if err := w.resolveAliases(); err != nil {
			return err
		}
	}

	files := []*tempFile{w.refPos, w.refData, w.storePos, w.store}
	sizes := make([]int64, len(files))
	for i, t := range files {
		if err := t.close(); err != nil {
			return err
		}
		info, err := os.Stat(t.name())
		if err != nil {
			return fmt.Errorf("stat %s: %w", filepath.Base(t.name()), err)
		}
		sizes[i] = info.Size()
	}

	out, err := os.OpenFile(w.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer out.Close()
	buf := bufio.NewWriter(out)

	h := &header{
		id:           uuid.New(),
		encoding:     w.enc,
		compression:  w.codec,
		tags:         w.tags,
		contentTypes: w.ctNames,
		//nolint:gosec // blob count is bounded by the index.
		blobCount: uint32(w.blobCount),
	}
	bw, err := writeHeader(buf, h)
	if err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	// The store starts after the store offset, the file size, the ref
	// count, and the ref section.
	storeOffset := bw.Offset() + 8 + 8 + 4 + sizes[0] + sizes[1]
	//nolint:gosec // offsets are never negative.
	if err := bw.Long(uint64(storeOffset)); err != nil {
		return err
	}
	fileSize := bw.Offset() + 8 + 4 + 4
	for _, size := range sizes {
		fileSize += size
	}
	//nolint:gosec // sizes are never negative.
	if err := bw.Long(uint64(fileSize)); err != nil {
		return err
	}

	//nolint:gosec // ref count is bounded by the position table.
	if err := bw.Int(uint32(w.refs.Len())); err != nil {
		return err
	}
	if err := w.move(bw, w.refPos); err != nil {
		return err
	}
	if err := w.move(bw, w.refData); err != nil {
		return err
	}
	//nolint:gosec // bin count is bounded by the position table.
	if err := bw.Int(uint32(w.bins.Count())); err != nil {
		return err
	}
	if err := w.move(bw, w.storePos); err != nil {
		return err
	}
	if err := w.move(bw, w.store); err != nil {
		return err
	}

	if err := buf.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if bw.Offset() != fileSize {
		return fmt.Errorf("%w: wrote %d bytes, expected %d", ErrIncorrectFileSize, bw.Offset(), fileSize)
	}

	w.log.Debug("finalized", "path", w.path, "blobs", w.blobCount, "refs", w.refs.Len(), "bins", w.bins.Count())
	return nil
}

// move copies the temp file t to w and removes it.
func (w *Writer) move(bw *binio.Writer, t *tempFile) error {
	name := filepath.Base(t.name())
	w.fire(EventBeginMove, name)

	f, err := os.Open(t.name())
	if err != nil {
		return fmt.Errorf("moving %s: %w", name, err)
	}
	_, err = io.Copy(bw, f)
	if err := errors.Join(err, f.Close()); err != nil {
		return fmt.Errorf("moving %s: %w", name, err)
	}
	if err := os.Remove(t.name()); err != nil {
		return fmt.Errorf("moving %s: %w", name, err)
	}

	w.fire(EventEndMove, name)
	return nil
}

// cleanup closes temp files and removes the temp dir.
func (w *Writer) cleanup() {
	if w.aliases != nil {
		w.aliases.cleanup()
	}
	for _, t := range []*tempFile{w.refPos, w.refData, w.storePos, w.store} {
		if t != nil {
			_ = t.f.Close()
		}
	}
	if w.tmpDir == "" {
		return
	}
	if err := os.RemoveAll(w.tmpDir); err != nil {
		w.log.Warn("removing temp dir", "dir", w.tmpDir, "err", err)
	}
	w.tmpDir = ""
}

// Close releases the writer's resources. If the writer was not finalized its
// temporary state and the output placeholder are removed. Close is a no-op on
// a finalized or closed writer.
func (w *Writer) Close() error {
	if w.state != stateOpen {
		return nil
	}
	w.log.Warn("closing writer without finalizing", "path", w.path)
	w.state = stateClosed
	w.cleanup()
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", w.path, err)
	}
	return nil
}
