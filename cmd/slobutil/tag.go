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

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-slob"
)

var tagCommand = &cli.Command{
	Name:      "tag",
	Usage:     "Print or edit a container tag",
	ArgsUsage: "FILE NAME [VALUE]",
	Action: func(c *cli.Context) error {
		args := c.Args()
		if args.Len() < 2 || args.Len() > 3 {
			return fmt.Errorf("%w: want a container, a tag name, and an optional value", ErrFlagParse)
		}
		path, name := args.Get(0), args.Get(1)

		if args.Len() == 3 {
			logger(c).Debug("setting tag", "path", path, "name", name)
			return slob.SetTagValue(path, name, args.Get(2))
		}

		opts := slob.DefaultOptions
		opts.Logger = logger(c)
		s, err := slob.Open(path, &opts)
		if err != nil {
			return err
		}
		defer s.Close()

		value, ok := s.Tag(name)
		if !ok {
			return fmt.Errorf("%w: %q", slob.ErrTagNotFound, name)
		}
		_, err = fmt.Fprintln(c.App.Writer, value)
		return err
	},
}
