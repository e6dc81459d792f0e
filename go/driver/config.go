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
	"os"

	cliUtils "github.com/Fantom-foundation/Vesta/go/driver/cli"
	"github.com/Fantom-foundation/Vesta/go/tracing"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// runConfig collects the settings of a run. It may be loaded from a YAML
// file; command line flags take precedence over the file.
type runConfig struct {
	Revision string         `yaml:"revision"`
	LogLevel string         `yaml:"log-level"`
	Tracing  tracing.Config `yaml:"tracing"`
}

func loadConfig(path string) (runConfig, error) {
	var config runConfig
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// resolveConfig merges the config file named by the command line with the
// explicitly set flags.
func resolveConfig(context *cli.Context) (runConfig, error) {
	config, err := loadConfig(context.String(cliUtils.ConfigFlag.Name))
	if err != nil {
		return config, err
	}
	if context.IsSet(cliUtils.RevisionFlag.Name) || config.Revision == "" {
		config.Revision = context.String(cliUtils.RevisionFlag.Name)
	}
	if context.IsSet(cliUtils.LogLevelFlag.Name) || config.LogLevel == "" {
		config.LogLevel = context.String(cliUtils.LogLevelFlag.Name)
	}
	override := func(flag *cli.BoolFlag, target *bool) {
		if context.IsSet(flag.Name) {
			*target = context.Bool(flag.Name)
		}
	}
	override(cliUtils.TraceFlag, &config.Tracing.PerOpcodeTrace)
	override(cliUtils.PreStateFlag, &config.Tracing.PreStateDump)
	override(cliUtils.PostStateFlag, &config.Tracing.PostStateDump)
	override(cliUtils.JsonFlag, &config.Tracing.StructuredOutput)
	return config, nil
}

func (c runConfig) revision() (vesta.Revision, error) {
	return vesta.ParseRevision(c.Revision)
}

func (c runConfig) logLevel() (hclog.Level, error) {
	return cliUtils.ParseLogLevel(c.LogLevel)
}
