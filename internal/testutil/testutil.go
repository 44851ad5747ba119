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

// Package testutil contains helpers for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/unicode/runenames"
)

// TempPath returns the path of a file named name in a new temporary
// directory. The file is not created.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// Describe returns the Unicode names of the runes of s joined by ";".
func Describe(s string) string {
	names := make([]string, 0, len(s))
	for _, r := range s {
		names = append(names, runenames.Name(r))
	}
	return strings.Join(names, ";")
}

// SplitFile splits the file at path into n parts of roughly equal size named
// path.00, path.01, etc. and removes the original file.
func SplitFile(t *testing.T, path string, n int) []string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %q: %v", path, err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing %q: %v", path, err)
	}

	var parts []string
	size := (len(b) + n - 1) / n
	for i := range n {
		start := min(i*size, len(b))
		end := min(start+size, len(b))
		part := fmt.Sprintf("%s.%02d", path, i)
		if err := os.WriteFile(part, b[start:end], 0o600); err != nil {
			t.Fatalf("writing %q: %v", part, err)
		}
		parts = append(parts, part)
	}
	return parts
}

// Truncate removes the last byte of the file at path.
func Truncate(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %q: %v", path, err)
	}
	if err := os.Truncate(path, info.Size()-1); err != nil {
		t.Fatalf("truncating %q: %v", path, err)
	}
}

// AppendByte appends a zero byte to the file at path.
func AppendByte(t *testing.T, path string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatalf("opening %q: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Write([]byte{0}); err != nil {
		t.Fatalf("writing %q: %v", path, err)
	}
}

// Copy copies the file at src to a new file at dst.
func Copy(t *testing.T, src, dst string) {
	t.Helper()

	b, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("reading %q: %v", src, err)
	}
	if err := os.WriteFile(dst, b, 0o600); err != nil {
		t.Fatalf("writing %q: %v", dst, err)
	}
}
