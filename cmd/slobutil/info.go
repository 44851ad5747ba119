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

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "Print container headers",
	ArgsUsage: "FILE...",
	Action: func(c *cli.Context) error {
		if c.Args().Len() == 0 {
			return fmt.Errorf("%w: no containers given", ErrFlagParse)
		}

		slobs, errs := openSlobs(c, c.Args().Slice())
		defer closeSlobs(c, slobs)

		for i, s := range slobs {
			if i > 0 {
				fmt.Fprintln(c.App.Writer)
			}

			tbl := table.New("Field", "Value").WithWriter(c.App.Writer)
			tbl.AddRow("id", s.ID())
			tbl.AddRow("encoding", s.Encoding())
			tbl.AddRow("compression", s.Compression())
			tbl.AddRow("blobs", s.BlobCount())
			tbl.AddRow("refs", s.Len())
			tbl.AddRow("content types", strings.Join(s.ContentTypes(), ", "))

			tags := s.Tags()
			names := make([]string, 0, len(tags))
			for name := range tags {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				tbl.AddRow("tag:"+name, tags[name])
			}
			tbl.Print()
		}

		if len(errs) > 0 {
			return fmt.Errorf("%w: %d containers could not be opened", ErrSlobutil, len(errs))
		}
		return nil
	},
}
