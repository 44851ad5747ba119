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

// Package binio implements the primitive encodings used by slob files.
//
// All integers are big-endian. Text comes in two size classes:
//  1. tiny text: an 8-bit length followed by at most 255 bytes.
//  2. text: a 16-bit length followed by at most 65535 bytes.
//
// Text bytes are in the container's declared encoding. Tiny text may be
// written "editable", in which case the length byte is always 255 and the
// value is padded with NUL bytes so that it can be rewritten in place later.
package binio

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// Size classes.
const (
	MaxTinyTextLen        = 1<<8 - 1
	MaxTextLen            = 1<<16 - 1
	MaxLargeByteStringLen = 1<<32 - 1
	MaxBinItemCount       = 1<<16 - 1
)

// UTF8 is the name of the default text encoding.
const UTF8 = "utf-8"

var (
	// ErrTextTooLong indicates that a text value does not fit its size class.
	ErrTextTooLong = errors.New("text too long")

	// ErrUnknownEncoding indicates that a text encoding name is not known.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// Encoding is a named text encoding.
type Encoding struct {
	name string

	// enc is nil for UTF-8.
	enc encoding.Encoding
}

// LookupEncoding returns the Encoding registered under name. Names are
// matched case-insensitively against IANA names and WHATWG labels.
func LookupEncoding(name string) (*Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return &Encoding{name: name}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(name)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
	}
	return &Encoding{name: name, enc: enc}, nil
}

// Name returns the name the encoding was looked up with.
func (e *Encoding) Name() string {
	if e == nil {
		return UTF8
	}
	return e.name
}

// Encode encodes s into bytes.
func (e *Encoding) Encode(s string) ([]byte, error) {
	if e == nil || e.enc == nil {
		return []byte(s), nil
	}
	b, err := e.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %s text: %w", e.name, err)
	}
	return b, nil
}

// Decode decodes b into a string.
func (e *Encoding) Decode(b []byte) (string, error) {
	if e == nil || e.enc == nil {
		return string(b), nil
	}
	s, err := e.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %s text: %w", e.name, err)
	}
	return string(s), nil
}

// EncodedLen returns the length of s in bytes once encoded.
func (e *Encoding) EncodedLen(s string) (int, error) {
	if e == nil || e.enc == nil {
		return len(s), nil
	}
	b, err := e.Encode(s)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// FitsTiny reports whether s fits the tiny text size class.
func (e *Encoding) FitsTiny(s string) bool {
	n, err := e.EncodedLen(s)
	return err == nil && n <= MaxTinyTextLen
}

// FitsText reports whether s fits the text size class.
func (e *Encoding) FitsText(s string) bool {
	n, err := e.EncodedLen(s)
	return err == nil && n <= MaxTextLen
}
