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
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
)

// Magic is the byte sequence every slob file starts with.
const Magic = "!-1SLOB\x1f"

// MaxTags is the maximum number of tags in a container.
const MaxTags = 255

// MaxContentTypes is the maximum number of distinct content types in a
// container.
const MaxContentTypes = 255

// Tag is a name and value pair attached to a container.
type Tag struct {
	Name  string
	Value string
}

// header is a container's header.
type header struct {
	id           uuid.UUID
	encoding     *binio.Encoding
	compression  compression.Codec
	tags         []Tag
	contentTypes []string
	blobCount    uint32
	storeOffset  int64
	refsOffset   int64
	size         int64
}

// readHeader reads the header at the start of r.
func readHeader(r io.ReadSeeker, codecs *compression.Registry) (*header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// The encoding name is always UTF-8.
	br := binio.NewReader(r, nil)
	magic, err := br.Bytes(len(Magic))
	if err != nil || !bytes.Equal(magic, []byte(Magic)) {
		return nil, ErrUnknownFormat
	}

	h := &header{}
	id, err := br.Bytes(len(h.id))
	if err != nil {
		return nil, fmt.Errorf("%w: reading id: %w", ErrFormat, err)
	}
	copy(h.id[:], id)

	encName, err := br.TinyText()
	if err != nil {
		return nil, fmt.Errorf("%w: reading encoding: %w", ErrFormat, err)
	}
	if h.encoding, err = binio.LookupEncoding(encName); err != nil {
		return nil, err
	}

	br = binio.NewReader(r, h.encoding)
	compName, err := br.TinyText()
	if err != nil {
		return nil, fmt.Errorf("%w: reading compression: %w", ErrFormat, err)
	}
	if h.compression, err = codecs.Lookup(compName); err != nil {
		return nil, err
	}

	tagCount, err := br.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
	}
	for range tagCount {
		var t Tag
		if t.Name, err = br.TinyText(); err != nil {
			return nil, fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
		}
		if t.Value, err = br.TinyText(); err != nil {
			return nil, fmt.Errorf("%w: reading tag %q: %w", ErrFormat, t.Name, err)
		}
		h.tags = append(h.tags, t)
	}

	ctCount, err := br.Byte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading content types: %w", ErrFormat, err)
	}
	for range ctCount {
		ct, err := br.Text()
		if err != nil {
			return nil, fmt.Errorf("%w: reading content types: %w", ErrFormat, err)
		}
		h.contentTypes = append(h.contentTypes, ct)
	}

	if h.blobCount, err = br.Int(); err != nil {
		return nil, fmt.Errorf("%w: reading blob count: %w", ErrFormat, err)
	}
	storeOffset, err := br.Long()
	if err != nil {
		return nil, fmt.Errorf("%w: reading store offset: %w", ErrFormat, err)
	}
	size, err := br.Long()
	if err != nil {
		return nil, fmt.Errorf("%w: reading file size: %w", ErrFormat, err)
	}
	//nolint:gosec // checked against the actual file size.
	h.storeOffset, h.size = int64(storeOffset), int64(size)

	if h.refsOffset, err = r.Seek(0, io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return h, nil
}

// writeHeader writes the header up to, but not including, the store offset
// and file size fields which depend on the size of the sections that follow.
// It returns the writer used so that the caller can continue writing.
func writeHeader(w io.Writer, h *header) (*binio.Writer, error) {
	hw := binio.NewWriter(w, nil)
	if _, err := hw.Write([]byte(Magic)); err != nil {
		return nil, err
	}
	if _, err := hw.Write(h.id[:]); err != nil {
		return nil, err
	}
	if err := hw.TinyText(h.encoding.Name(), false); err != nil {
		return nil, err
	}

	bw := binio.NewWriterAt(w, h.encoding, hw.Offset())
	if err := bw.TinyText(h.compression.Name(), false); err != nil {
		return nil, err
	}

	//nolint:gosec // tag count is limited to MaxTags.
	if err := bw.Byte(uint8(len(h.tags))); err != nil {
		return nil, err
	}
	for _, t := range h.tags {
		if err := bw.TinyText(t.Name, false); err != nil {
			return nil, fmt.Errorf("writing tag %q: %w", t.Name, err)
		}
		if err := bw.TinyText(t.Value, true); err != nil {
			return nil, fmt.Errorf("writing tag %q: %w", t.Name, err)
		}
	}

	//nolint:gosec // content type count is limited to MaxContentTypes.
	if err := bw.Byte(uint8(len(h.contentTypes))); err != nil {
		return nil, err
	}
	for _, ct := range h.contentTypes {
		if err := bw.Text(ct); err != nil {
			return nil, fmt.Errorf("writing content type %q: %w", ct, err)
		}
	}

	if err := bw.Int(h.blobCount); err != nil {
		return nil, err
	}
	return bw, nil
}
