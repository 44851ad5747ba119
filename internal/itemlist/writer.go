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

package itemlist

import (
	"fmt"

	"github.com/ianlewis/go-slob/internal/binio"
)

// Writer appends items to a positioned item list whose position table and
// items are written to separate streams. The streams are concatenated, after
// a u32 item count, once all items are written.
type Writer struct {
	pos     *binio.Writer
	data    *binio.Writer
	posSize PositionSize
	count   int
}

// NewWriter returns a Writer writing position table entries of posSize bytes
// to pos and items to data.
func NewWriter(pos, data *binio.Writer, posSize PositionSize) *Writer {
	return &Writer{
		pos:     pos,
		data:    data,
		posSize: posSize,
	}
}

// NewWriterAt returns a Writer continuing a list that already holds count
// items.
func NewWriterAt(pos, data *binio.Writer, posSize PositionSize, count int) *Writer {
	w := NewWriter(pos, data, posSize)
	w.count = count
	return w
}

// Append records the current data offset in the position table and then
// calls encode to write the item.
func (w *Writer) Append(encode func(w *binio.Writer) error) error {
	off := w.data.Offset()
	var err error
	if w.posSize == Pos32 {
		//nolint:gosec // 32-bit positions are only used for bins.
		err = w.pos.Int(uint32(off))
	} else {
		//nolint:gosec // offsets are never negative.
		err = w.pos.Long(uint64(off))
	}
	if err != nil {
		return fmt.Errorf("writing item position: %w", err)
	}
	if err := encode(w.data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Len returns the number of items appended.
func (w *Writer) Len() int {
	return w.count
}
