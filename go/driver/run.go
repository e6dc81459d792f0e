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
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	cliUtils "github.com/Fantom-foundation/Vesta/go/driver/cli"
	"github.com/Fantom-foundation/Vesta/go/fixture"
	"github.com/Fantom-foundation/Vesta/go/metrics"
	"github.com/Fantom-foundation/Vesta/go/tracing"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var RunCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run fixture tests",
	ArgsUsage: "<file or directory>...",
	Flags: []cli.Flag{
		cliUtils.FilterFlag,
		cliUtils.RevisionFlag,
		cliUtils.ConfigFlag,
		cliUtils.LogLevelFlag,
		cliUtils.TraceFlag,
		cliUtils.PreStateFlag,
		cliUtils.PostStateFlag,
		cliUtils.JsonFlag,
		cliUtils.MaxErrorsFlag,
		cliUtils.MetricsFlag,
	},
})

func doRun(context *cli.Context) error {
	config, err := resolveConfig(context)
	if err != nil {
		return err
	}
	revision, err := config.revision()
	if err != nil {
		return err
	}
	level, err := config.logLevel()
	if err != nil {
		return err
	}
	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}
	maxErrors := cliUtils.MaxErrorsFlag.Fetch(context)
	if maxErrors <= 0 {
		maxErrors = math.MaxInt
	}

	files, err := collectFixtureFiles(context.Args().Slice())
	if err != nil {
		return err
	}

	options := fixture.Options{
		Revision: revision,
		Tracing:  config.Tracing,
		Logger:   tracing.NewLogger(config.Tracing, context.App.ErrWriter, level),
	}
	var collector *metrics.Collector
	metricsFile := context.String(cliUtils.MetricsFlag.Name)
	if metricsFile != "" {
		collector = metrics.NewCollector()
		options.DispatchObservers = []vesta.DispatchObserver{collector}
		options.OpcodeObservers = []vesta.OpcodeObserver{collector}
	}

	out := context.App.Writer
	start := time.Now()
	summary, err := runFixtures(out, files, filter, options, collector, maxErrors)
	if err != nil {
		return err
	}
	rate := float64(summary.executed) / time.Since(start).Seconds()
	fmt.Fprintf(out, "Executed %d tests (~%s tests per second), %d failed\n",
		summary.executed, unitconv.FormatPrefix(rate, unitconv.SI, 0), len(summary.failed),
	)

	if collector != nil {
		if err := writeMetrics(out, metricsFile, collector); err != nil {
			return err
		}
	}

	if len(summary.failed) > 0 {
		return fmt.Errorf("failed to pass %d tests: %v", len(summary.failed), strings.Join(summary.failed, ", "))
	}
	return nil
}

type runSummary struct {
	executed int
	failed   []string
}

// runFixtures executes the tests of the given files matching the filter in
// order of file and test name.
func runFixtures(
	out io.Writer,
	files []string,
	filter *regexp.Regexp,
	options fixture.Options,
	collector *metrics.Collector,
	maxErrors int,
) (runSummary, error) {
	summary := runSummary{}
	for _, file := range files {
		tests, err := fixture.LoadFile(file)
		if err != nil {
			return summary, err
		}
		names := maps.Keys(tests)
		slices.Sort(names)
		for _, name := range names {
			if !filter.MatchString(name) {
				continue
			}
			if len(summary.failed) >= maxErrors {
				return summary, nil
			}
			summary.executed++
			test := tests[name]
			outcome, err := fixture.Run(test, options)
			if err == nil {
				if collector != nil {
					collector.ObserveTransaction(outcome.Success, outcome.GasUsed)
				}
				err = fixture.Verify(test, outcome)
			}
			if err != nil {
				summary.failed = append(summary.failed, name)
				fmt.Fprintf(out, "FAIL %s (%s): %v\n", name, file, err)
				continue
			}
			fmt.Fprintf(out, "PASS %s\n", name)
		}
	}
	return summary, nil
}

// collectFixtureFiles resolves the given paths to a sorted list of fixture
// files. Directories are searched recursively for JSON files.
func collectFixtureFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no fixture file or directory given")
	}
	var res []string
	for _, path := range paths {
		err := filepath.WalkDir(path, func(file string, entry os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() && (file == path || strings.HasSuffix(file, ".json")) {
				res = append(res, file)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(res)
	return slices.Compact(res), nil
}

func writeMetrics(out io.Writer, path string, collector *metrics.Collector) error {
	if path == "-" {
		return collector.WriteText(out)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := collector.WriteText(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
