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
	"encoding/binary"
	"fmt"
	"io"
)

// Writer writes primitive values to an underlying writer and counts the
// bytes written.
type Writer struct {
	w   io.Writer
	enc *Encoding
	n   int64
	buf [8]byte
}

// NewWriter returns a Writer encoding text with enc. A nil enc means UTF-8.
func NewWriter(w io.Writer, enc *Encoding) *Writer {
	return &Writer{w: w, enc: enc}
}

// NewWriterAt returns a Writer whose offset starts at off. It is used when
// appending to a file that already has content.
func NewWriterAt(w io.Writer, enc *Encoding, off int64) *Writer {
	return &Writer{w: w, enc: enc, n: off}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.n
}

// Encoding returns the writer's text encoding.
func (w *Writer) Encoding() *Encoding {
	return w.enc
}

// Write implements [io.Writer].
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing: %w", err)
	}
	return n, nil
}

func (w *Writer) writeBuf(n int) error {
	_, err := w.Write(w.buf[:n])
	return err
}

// Byte writes an unsigned 8-bit integer.
func (w *Writer) Byte(v uint8) error {
	w.buf[0] = v
	return w.writeBuf(1)
}

// Short writes an unsigned 16-bit integer.
func (w *Writer) Short(v uint16) error {
	binary.BigEndian.PutUint16(w.buf[:], v)
	return w.writeBuf(2)
}

// Int writes an unsigned 32-bit integer.
func (w *Writer) Int(v uint32) error {
	binary.BigEndian.PutUint32(w.buf[:], v)
	return w.writeBuf(4)
}

// Long writes an unsigned 64-bit integer.
func (w *Writer) Long(v uint64) error {
	binary.BigEndian.PutUint64(w.buf[:], v)
	return w.writeBuf(8)
}

// TinyText writes text with an 8-bit length prefix. If editable is true the
// value occupies a fixed slot of MaxTinyTextLen bytes.
func (w *Writer) TinyText(s string, editable bool) error {
	b, err := w.enc.Encode(s)
	if err != nil {
		return err
	}
	if len(b) > MaxTinyTextLen {
		return fmt.Errorf("%w: %d > %d", ErrTextTooLong, len(b), MaxTinyTextLen)
	}
	if !editable {
		if err := w.Byte(uint8(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	}

	slot := make([]byte, 1+MaxTinyTextLen)
	slot[0] = MaxTinyTextLen
	copy(slot[1:], b)
	_, err = w.Write(slot)
	return err
}

// Text writes text with a 16-bit length prefix.
func (w *Writer) Text(s string) error {
	b, err := w.enc.Encode(s)
	if err != nil {
		return err
	}
	if len(b) > MaxTextLen {
		return fmt.Errorf("%w: %d > %d", ErrTextTooLong, len(b), MaxTextLen)
	}
	//nolint:gosec // length is bounds checked above.
	if err := w.Short(uint16(len(b))); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
