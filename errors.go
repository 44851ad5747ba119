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

	"github.com/ianlewis/go-slob/compression"
	"github.com/ianlewis/go-slob/internal/binio"
	"github.com/ianlewis/go-slob/internal/itemlist"
	"github.com/ianlewis/go-slob/internal/store"
)

var (
	// ErrSlob is a parent error for all container errors.
	ErrSlob = errors.New("slob")

	// ErrFormat is a parent error for errors opening a container.
	ErrFormat = fmt.Errorf("%w: file format", ErrSlob)

	// ErrUnknownFormat indicates that a file is not a slob container.
	ErrUnknownFormat = fmt.Errorf("%w: unknown file format", ErrFormat)

	// ErrIncorrectFileSize indicates that a container's size does not
	// match the size recorded in its header.
	ErrIncorrectFileSize = fmt.Errorf("%w: incorrect file size", ErrFormat)

	// ErrUnknownCompression indicates that a compression is not registered.
	ErrUnknownCompression = compression.ErrUnknownCompression

	// ErrUnknownEncoding indicates that a text encoding is not known.
	ErrUnknownEncoding = binio.ErrUnknownEncoding

	// ErrTextTooLong indicates that a text value does not fit its field.
	ErrTextTooLong = binio.ErrTextTooLong

	// ErrOutOfRange indicates that an index is out of range.
	ErrOutOfRange = itemlist.ErrOutOfRange

	// ErrCorruptBin indicates that a bin could not be decompressed or
	// decoded.
	ErrCorruptBin = store.ErrCorruptBin

	// ErrFileExists indicates that a writer's output file already exists.
	ErrFileExists = fmt.Errorf("%w: file exists", ErrSlob)

	// ErrFinalized indicates that a writer was used after being finalized.
	ErrFinalized = fmt.Errorf("%w: writer finalized", ErrSlob)

	// ErrClosed indicates use of a closed writer or container.
	ErrClosed = fmt.Errorf("%w: closed", ErrSlob)

	// ErrAliasesDisabled indicates that an alias was added to a writer that
	// does not resolve aliases.
	ErrAliasesDisabled = fmt.Errorf("%w: aliases disabled", ErrSlob)

	// ErrTagNotFound indicates that a tag is not present in a container.
	ErrTagNotFound = fmt.Errorf("%w: tag not found", ErrSlob)

	// ErrNotText indicates that a blob's content type is not textual.
	ErrNotText = fmt.Errorf("%w: content is not text", ErrSlob)
)
