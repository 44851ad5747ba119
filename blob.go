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
	"fmt"
	"mime"
	"strings"

	"github.com/k3a/html2text"
)

// BlobID identifies content by its bin and the item within the bin.
type BlobID uint64

// NewBlobID returns the id of item in bin.
func NewBlobID(bin uint32, item uint16) BlobID {
	return BlobID(uint64(bin)<<16 | uint64(item))
}

// Split returns the bin and item the id points at.
func (id BlobID) Split() (uint32, uint16) {
	//nolint:gosec // ids are built from a u32 and a u16.
	return uint32(id >> 16), uint16(id & 0xffff)
}

// String implements [fmt.Stringer].
func (id BlobID) String() string {
	bin, item := id.Split()
	return fmt.Sprintf("%d:%d", bin, item)
}

// Blob is a key in a container and the content it points at. Content is read
// when requested. A Blob is only usable while its container is open.
type Blob struct {
	s        *Slob
	id       BlobID
	key      string
	fragment string
}

// ID returns the id of the blob's content. Keys pointing at the same content
// share an id.
func (b *Blob) ID() BlobID {
	return b.id
}

// Key returns the blob's key.
func (b *Blob) Key() string {
	return b.key
}

// Fragment returns the fragment within the content that the key points at.
func (b *Blob) Fragment() string {
	return b.fragment
}

// ContentType returns the content type of the blob's content.
func (b *Blob) ContentType() (string, error) {
	return b.s.contentType(b.id)
}

// Content returns the blob's content.
func (b *Blob) Content() ([]byte, error) {
	_, content, err := b.s.Get(b.id)
	return content, err
}

// String implements [fmt.Stringer] and returns the blob's key.
func (b *Blob) String() string {
	return b.key
}

// Text returns the blob's content as plain text. HTML is rendered to text.
// Content that is not text/* returns [ErrNotText].
func (b *Blob) Text() (string, error) {
	ct, content, err := b.s.Get(b.id)
	if err != nil {
		return "", err
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(ct))
	}

	switch {
	case mediaType == "text/html":
		return html2text.HTML2Text(string(content)), nil
	case strings.HasPrefix(mediaType, "text/"):
		return string(content), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrNotText, ct)
	}
}
