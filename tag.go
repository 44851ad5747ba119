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
	"os"

	"github.com/ianlewis/go-slob/internal/binio"
)

// ErrTagNotEditable indicates that a tag value was not written in a
// fixed-width slot and cannot be rewritten in place.
var ErrTagNotEditable = fmt.Errorf("%w: tag not editable", ErrSlob)

// SetTagValue rewrites the value of the tag name in the container at path
// without changing the size of the file. Tag values written by [Writer] are
// always editable.
func SetTagValue(path, name, value string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	if err := setTagValue(f, name, value); err != nil {
		return fmt.Errorf("setting tag %q in %q: %w", name, path, err)
	}
	return f.Close()
}

func setTagValue(f io.ReadWriteSeeker, name, value string) error {
	r := binio.NewReader(f, nil)
	magic, err := r.Bytes(len(Magic))
	if err != nil || !bytes.Equal(magic, []byte(Magic)) {
		return ErrUnknownFormat
	}
	if _, err := r.Bytes(16); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}
	encName, err := r.TinyText()
	if err != nil {
		return fmt.Errorf("%w: reading encoding: %w", ErrFormat, err)
	}
	enc, err := binio.LookupEncoding(encName)
	if err != nil {
		return err
	}

	// The new value must fit before anything is read further.
	if !enc.FitsTiny(value) {
		return fmt.Errorf("%w: tag value", ErrTextTooLong)
	}

	r = binio.NewReader(f, enc)
	if _, err := r.TinyText(); err != nil {
		return fmt.Errorf("%w: reading compression: %w", ErrFormat, err)
	}
	count, err := r.Byte()
	if err != nil {
		return fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
	}
	for range count {
		tagName, err := r.TinyText()
		if err != nil {
			return fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
		}
		if tagName != name {
			if _, err := r.TinyText(); err != nil {
				return fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
			}
			continue
		}

		n, err := r.Byte()
		if err != nil {
			return fmt.Errorf("%w: reading tags: %w", ErrFormat, err)
		}
		if n != binio.MaxTinyTextLen {
			return ErrTagNotEditable
		}
		if _, err := f.Seek(-1, io.SeekCurrent); err != nil {
			return err
		}
		return binio.NewWriter(f, enc).TinyText(value, true)
	}
	return ErrTagNotFound
}
