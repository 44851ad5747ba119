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

// Package slob implements reading and writing slob dictionary containers in
// pure Go.
//
// A slob file is a single self-contained container holding:
//  1. A header with the container's identity, text encoding, compression,
//     tags, and content types.
//  2. A key index sorted by Unicode collation key. Several keys may point at
//     the same content, optionally at a fragment within it.
//  3. A content store in which content is grouped into bins that are each
//     compressed as a single unit.
//
// A [Writer] builds a container incrementally, sorting the index and
// resolving aliases when it is finalized. [Open] opens a finished container
// for iteration, indexed access, and lookup at a chosen collation strength.
//
// More info on the format can be found at this URL:
// https://github.com/itkach/slob
package slob
