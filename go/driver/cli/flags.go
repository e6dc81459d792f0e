// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"regexp"
	"runtime/pprof"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
)

type filterFlagType struct {
	cli.StringFlag
}

var FilterFlag = &filterFlagType{
	cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "process only tests which name matches the given regex",
		Value:   ".*",
	},
}

func (f *filterFlagType) Fetch(context *cli.Context) (*regexp.Regexp, error) {
	return regexp.Compile(context.String(f.Name))
}

type revisionFlagType struct {
	cli.StringFlag
}

var RevisionFlag = &revisionFlagType{
	cli.StringFlag{
		Name:    "revision",
		Aliases: []string{"r"},
		Usage:   "revision used for tests not specifying one",
		Value:   vesta.R00_Frontier.String(),
	},
}

func (f *revisionFlagType) Fetch(context *cli.Context) (vesta.Revision, error) {
	return vesta.ParseRevision(context.String(f.Name))
}

type logLevelFlagType struct {
	cli.StringFlag
}

var LogLevelFlag = &logLevelFlagType{
	cli.StringFlag{
		Name:  "log-level",
		Usage: "minimum level of log records, one of trace, debug, info, warn and error",
		Value: "info",
	},
}

func (f *logLevelFlagType) Fetch(context *cli.Context) (hclog.Level, error) {
	return ParseLogLevel(context.String(f.Name))
}

// ParseLogLevel resolves the name of a log level.
func ParseLogLevel(name string) (hclog.Level, error) {
	level := hclog.LevelFromString(name)
	if level == hclog.NoLevel {
		return level, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

var ConfigFlag = &cli.StringFlag{
	Name:      "config",
	Aliases:   []string{"c"},
	Usage:     "YAML file providing defaults for the trace and revision settings",
	TakesFile: true,
}

var TraceFlag = &cli.BoolFlag{
	Name:  "trace",
	Usage: "log every executed instruction",
}

var PreStateFlag = &cli.BoolFlag{
	Name:  "pre-state",
	Usage: "log the world state before each test",
}

var PostStateFlag = &cli.BoolFlag{
	Name:  "post-state",
	Usage: "log the world state after each test",
}

var JsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "produce log records in JSON format",
}

type maxErrorsFlagType struct {
	cli.IntFlag
}

var MaxErrorsFlag = &maxErrorsFlagType{
	cli.IntFlag{
		Name:  "max-errors",
		Usage: "aborts testing after the given number of failed tests",
		Value: -1,
	},
}

func (f *maxErrorsFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

var MetricsFlag = &cli.StringFlag{
	Name:      "metrics",
	Usage:     "write execution metrics in Prometheus text format to the given file, - for stdout",
	TakesFile: true,
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:      "cpuprofile",
	Usage:     "store CPU profile in the provided filename",
	TakesFile: true,
}

func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
