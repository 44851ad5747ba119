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

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/itemlist"
)

// BinWriter accumulates content into a bin and writes it as a store record
// when flushed.
type BinWriter struct {
	records *itemlist.Writer
	codec   compression.Codec

	ids     []uint8
	offsets []uint32
	items   bytes.Buffer
}

// NewBinWriter returns a BinWriter appending store records to records.
func NewBinWriter(records *itemlist.Writer, codec compression.Codec) *BinWriter {
	return &BinWriter{
		records: records,
		codec:   codec,
	}
}

// Add adds content to the current bin and returns its bin and item index.
// The caller is responsible for flushing the bin before it holds more than
// [binio.MaxBinItemCount] items.
func (w *BinWriter) Add(contentTypeID uint8, content []byte) (int, int) {
	//nolint:gosec // bin size is bounded by the flush threshold.
	w.offsets = append(w.offsets, uint32(w.items.Len()))
	w.ids = append(w.ids, contentTypeID)

	//nolint:gosec // content length is checked by the caller.
	w.items.Write(binary.BigEndian.AppendUint32(nil, uint32(len(content))))
	w.items.Write(content)

	return w.records.Len(), len(w.ids) - 1
}

// Len returns the number of items in the current bin.
func (w *BinWriter) Len() int {
	return len(w.ids)
}

// Size returns the uncompressed size of the items in the current bin.
func (w *BinWriter) Size() int {
	return w.items.Len()
}

// Count returns the number of bins written.
func (w *BinWriter) Count() int {
	return w.records.Len()
}

// Flush compresses the current bin and writes it as a store record. Flushing
// an empty bin is a no-op.
func (w *BinWriter) Flush() error {
	if len(w.ids) == 0 {
		return nil
	}

	var raw bytes.Buffer
	bw := binio.NewWriter(&raw, nil)
	for _, off := range w.offsets {
		if err := bw.Int(off); err != nil {
			return err
		}
	}
	if _, err := bw.Write(w.items.Bytes()); err != nil {
		return err
	}

	compressed, err := w.codec.Compress(raw.Bytes())
	if err != nil {
		return fmt.Errorf("compressing bin %d: %w", w.records.Len(), err)
	}

	err = w.records.Append(func(rw *binio.Writer) error {
		//nolint:gosec // item count never exceeds MaxBinItemCount.
		if err := rw.Int(uint32(len(w.ids))); err != nil {
			return err
		}
		if _, err := rw.Write(w.ids); err != nil {
			return err
		}
		//nolint:gosec // compressed size is bounded by the bin size.
		if err := rw.Int(uint32(len(compressed))); err != nil {
			return err
		}
		_, err := rw.Write(compressed)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing bin: %w", err)
	}

	w.ids = nil
	w.offsets = nil
	w.items.Reset()
	return nil
}
