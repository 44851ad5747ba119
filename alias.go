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
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/ianlewis/go-slob/collation"
	"github.com/ianlewis/go-slob/internal/index"
	"github.com/ianlewis/go-slob/internal/refs"
	"github.com/ianlewis/go-slob/multifile"
)

// Alias targets and resolved refs are stored as CBOR in the nested
// containers used during alias resolution.
var (
	aliasEncMode cbor.EncMode
	aliasDecMode cbor.DecMode
)

//nolint:gochecknoinits // init needed for global variables.
func init() {
	var err error
	aliasEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("slob: CBOR encoder initialization failed: " + err.Error())
	}
	aliasDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("slob: CBOR decoder initialization failed: " + err.Error())
	}
}

type aliasTarget struct {
	Key      string `cbor:"1,keyasint"`
	Fragment string `cbor:"2,keyasint,omitempty"`
}

type resolvedRef struct {
	Key       string `cbor:"1,keyasint"`
	BinIndex  uint32 `cbor:"2,keyasint"`
	ItemIndex uint16 `cbor:"3,keyasint"`
	Fragment  string `cbor:"4,keyasint,omitempty"`
}

func encodeAlias(target Key) ([]byte, error) {
	b, err := aliasEncMode.Marshal(aliasTarget{Key: target.Name, Fragment: target.Fragment})
	if err != nil {
		return nil, fmt.Errorf("encoding alias target: %w", err)
	}
	return b, nil
}

// readAlias returns the target of the alias blob b. If the target has no
// fragment, fragment is returned in its place.
func readAlias(b *Blob, fragment string) (string, string, error) {
	content, err := b.Content()
	if err != nil {
		return "", "", err
	}
	var t aliasTarget
	if err := aliasDecMode.Unmarshal(content, &t); err != nil {
		return "", "", fmt.Errorf("decoding alias %q: %w", b.Key(), err)
	}
	if t.Fragment == "" {
		return t.Key, fragment, nil
	}
	return t.Key, t.Fragment, nil
}

// resolveAliases follows each alias to the content it ultimately points at
// and adds refs for every key on the way. Resolved refs are collected in a
// nested container so that they are sorted by key and deduplicated before
// being merged into the index, which is then sorted again.
func (w *Writer) resolveAliases() error {
	w.fire(EventBeginResolveAliases, nil)

	if err := w.aliases.Finalize(); err != nil {
		return fmt.Errorf("finalizing aliases: %w", err)
	}

	resolvedPath := filepath.Join(w.tmpDir, "resolved-aliases")
	if err := w.writeResolved(resolvedPath); err != nil {
		return err
	}
	if err := w.mergeResolved(resolvedPath); err != nil {
		return err
	}
	if err := w.sortRefs(); err != nil {
		return err
	}

	w.fire(EventEndResolveAliases, nil)
	return nil
}

func (w *Writer) writeResolved(path string) error {
	aliases, err := Open(w.aliasPath, &Options{
		Collation: w.keys,
		Logger:    w.log,
	})
	if err != nil {
		return fmt.Errorf("opening aliases: %w", err)
	}
	defer aliases.Close()

	if err := w.refData.flush(); err != nil {
		return err
	}
	r, err := multifile.Open(w.refPos.name(), w.refData.name())
	if err != nil {
		return err
	}
	defer r.Close()

	list, err := refs.New(r, 0, w.refs.Len(), w.enc, refs.DefaultCacheSize)
	if err != nil {
		return err
	}
	targets := index.New[refs.Ref](list, w.keys.KeyFunc(collation.Identical, 0))
	aliasDict := aliases.AsDict(collation.Identical, 0)

	resolved, err := NewWriter(path, w.nestedOptions(nil))
	if err != nil {
		return fmt.Errorf("creating resolved alias writer: %w", err)
	}
	defer resolved.Close()

	// Keys of cycles already reported.
	inCycle := map[string]bool{}

	for i := range aliases.Len() {
		item, err := aliases.Blob(i)
		if err != nil {
			return err
		}

		from := item.Key()
		to, fragment, err := readAlias(item, item.Fragment())
		if err != nil {
			return err
		}

		visited := []string{from}
		seen := map[string]bool{from: true}
		hops := 0
		for {
			next, ok, err := aliasDict.First(to)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if seen[to] {
				// Report each cycle once, for the first of its keys.
				reported := false
				for _, k := range visited {
					reported = reported || inCycle[k]
				}
				if !reported {
					w.fire(EventTooManyRedirects, from)
				}
				for _, k := range visited {
					inCycle[k] = true
				}
				break
			}
			if hops == w.opts.MaxRedirects {
				w.fire(EventTooManyRedirects, from)
				break
			}

			visited = append(visited, to)
			seen[to] = true
			if to, fragment, err = readAlias(next, fragment); err != nil {
				return err
			}
			hops++
		}

		target, ok, err := targets.First(to)
		if err != nil {
			return err
		}
		if !ok {
			w.fire(EventAliasTargetNotFound, to)
			continue
		}

		if target.Fragment != "" {
			fragment = target.Fragment
		}
		for _, k := range visited {
			b, err := aliasEncMode.Marshal(resolvedRef{
				Key:       k,
				BinIndex:  target.BinIndex,
				ItemIndex: target.ItemIndex,
				Fragment:  fragment,
			})
			if err != nil {
				return fmt.Errorf("encoding resolved alias %q: %w", k, err)
			}
			if err := resolved.Add(b, "", Key{Name: k}); err != nil {
				return err
			}
		}
	}

	return resolved.Finalize()
}

// mergeResolved appends the resolved refs at path to the index, skipping
// repeated keys.
func (w *Writer) mergeResolved(path string) error {
	resolved, err := Open(path, &Options{
		Collation: w.keys,
		Logger:    w.log,
	})
	if err != nil {
		return fmt.Errorf("opening resolved aliases: %w", err)
	}
	defer resolved.Close()

	var prev string
	for i := range resolved.Len() {
		item, err := resolved.Blob(i)
		if err != nil {
			return err
		}
		content, err := item.Content()
		if err != nil {
			return err
		}
		var ref resolvedRef
		if err := aliasDecMode.Unmarshal(content, &ref); err != nil {
			return fmt.Errorf("decoding resolved alias %q: %w", item.Key(), err)
		}
		if i > 0 && ref.Key == prev {
			continue
		}
		prev = ref.Key

		err = w.refs.Write(refs.Ref{
			Key:       ref.Key,
			BinIndex:  ref.BinIndex,
			ItemIndex: ref.ItemIndex,
			Fragment:  ref.Fragment,
		})
		if err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		w.log.Warn("removing resolved aliases", "path", path, "err", err)
	}
	return nil
}
