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

package binio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader reads primitive values from an underlying reader.
type Reader struct {
	r   io.Reader
	enc *Encoding
	buf [8]byte
}

// NewReader returns a Reader decoding text with enc. A nil enc means UTF-8.
func NewReader(r io.Reader, enc *Encoding) *Reader {
	return &Reader{r: r, enc: enc}
}

// Encoding returns the reader's text encoding.
func (r *Reader) Encoding() *Encoding {
	return r.enc
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("reading %d bytes: %w", n, err)
	}
	return b, nil
}

func (r *Reader) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		return nil, fmt.Errorf("reading %d byte integer: %w", n, err)
	}
	return r.buf[:n], nil
}

// Byte reads an unsigned 8-bit integer.
func (r *Reader) Byte() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Short reads an unsigned 16-bit integer.
func (r *Reader) Short() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Int reads an unsigned 32-bit integer.
func (r *Reader) Int() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Long reads an unsigned 64-bit integer.
func (r *Reader) Long() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// TinyText reads text with an 8-bit length prefix.
func (r *Reader) TinyText() (string, error) {
	n, err := r.Byte()
	if err != nil {
		return "", err
	}
	return r.text(int(n), MaxTinyTextLen)
}

// Text reads text with a 16-bit length prefix.
func (r *Reader) Text() (string, error) {
	n, err := r.Short()
	if err != nil {
		return "", err
	}
	return r.text(int(n), MaxTextLen)
}

func (r *Reader) text(n, maxLen int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	// Full length text may be a padded editable slot.
	if n == maxLen {
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
	}
	return r.enc.Decode(b)
}
