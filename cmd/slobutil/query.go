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
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-slob"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Look up a key in containers",
	ArgsUsage: "QUERY FILE...",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:               "prefix",
			Usage:              "include keys starting with the query",
			Aliases:            []string{"p"},
			DisableDefaultText: true,
		},
		&cli.IntFlag{
			Name:    "limit",
			Usage:   "print at most `N` matches",
			Aliases: []string{"n"},
			Value:   10,
		},
		&cli.BoolFlag{
			Name:               "text",
			Usage:              "print the content of each match as text",
			Aliases:            []string{"t"},
			DisableDefaultText: true,
		},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 2 {
			return fmt.Errorf("%w: want a query and at least one container", ErrFlagParse)
		}
		query := c.Args().First()
		paths := c.Args().Tail()

		slobs, errs := openSlobs(c, paths)
		defer closeSlobs(c, slobs)

		names := map[*slob.Slob]string{}
		for _, s := range slobs {
			name, ok := s.Tag("label")
			if !ok || name == "" {
				name = s.ID().String()
			}
			names[s] = name
		}

		limit := c.Int("limit")
		n := 0
		for m, err := range slob.Find(query, slobs, c.Bool("prefix")) {
			if err != nil {
				return err
			}
			if limit > 0 && n == limit {
				break
			}
			n++

			key := m.Blob.Key()
			if f := m.Blob.Fragment(); f != "" {
				key += "#" + f
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", key, names[m.Slob])

			if !c.Bool("text") {
				continue
			}
			text, err := m.Blob.Text()
			switch {
			case errors.Is(err, slob.ErrNotText):
				ct, _ := m.Blob.ContentType()
				fmt.Fprintf(c.App.Writer, "[%s]\n\n", ct)
			case err != nil:
				return err
			default:
				fmt.Fprintf(c.App.Writer, "%s\n\n", text)
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("%w: %d containers could not be opened", ErrSlobutil, len(errs))
		}
		return nil
	},
}
