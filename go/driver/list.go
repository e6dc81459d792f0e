// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"slices"

	cliUtils "github.com/Fantom-foundation/Vesta/go/driver/cli"
	"github.com/Fantom-foundation/Vesta/go/fixture"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var ListCmd = cli.Command{
	Action:    doList,
	Name:      "list",
	Usage:     "List all tests of the given fixtures by name",
	ArgsUsage: "<file or directory>...",
	Flags: []cli.Flag{
		cliUtils.FilterFlag,
	},
}

func doList(context *cli.Context) error {

	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}

	files, err := collectFixtureFiles(context.Args().Slice())
	if err != nil {
		return err
	}
	for _, file := range files {
		tests, err := fixture.LoadFile(file)
		if err != nil {
			return err
		}
		names := maps.Keys(tests)
		slices.Sort(names)
		for _, name := range names {
			if filter.MatchString(name) {
				fmt.Fprintf(context.App.Writer, "%s\t%s\n", file, name)
			}
		}
	}
	return nil
}
