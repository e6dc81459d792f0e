// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tracing provides the debug output of an execution: a log line per
// executed instruction, a log line per dispatched message and dumps of the
// world state before and after a transaction.
package tracing

import (
	"fmt"
	"io"
	"slices"

	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/maps"
)

// Config selects the produced trace output. The zero value disables all of
// it except for dispatch records, which are logged at debug level.
type Config struct {
	PerOpcodeTrace   bool `yaml:"per-opcode-trace"`
	PreStateDump     bool `yaml:"pre-state-dump"`
	PostStateDump    bool `yaml:"post-state-dump"`
	StructuredOutput bool `yaml:"structured-output"`
}

// NewLogger creates the logger trace records are written to. Structured
// output produces one JSON object per line.
func NewLogger(config Config, output io.Writer, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "vesta",
		Level:      level,
		Output:     output,
		JSONFormat: config.StructuredOutput,
	})
}

// Tracer writes trace records to a logger. It is a vesta.DispatchObserver;
// the per-instruction observer is provided by OpcodeObserver.
type Tracer struct {
	config Config
	logger hclog.Logger
}

// New creates a tracer. A nil logger discards all records.
func New(config Config, logger hclog.Logger) *Tracer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Tracer{config: config, logger: logger}
}

// OpcodeObserver returns the observer logging executed instructions, or nil
// if per-instruction tracing is disabled.
func (t *Tracer) OpcodeObserver() vesta.OpcodeObserver {
	if !t.config.PerOpcodeTrace {
		return nil
	}
	return vesta.OpcodeObserverFunc(t.onOpcode)
}

func (t *Tracer) onOpcode(step vesta.OpcodeStep) {
	top := "-empty-"
	if len(step.Stack) > 0 {
		top = step.Stack[len(step.Stack)-1].String()
	}
	t.logger.Info("op",
		"depth", step.Depth,
		"pc", step.Pc,
		"op", step.OpName,
		"gas", int64(step.Gas),
		"stack", len(step.Stack),
		"top", top,
		"memory", step.MemorySize,
	)
}

func (t *Tracer) OnDispatch(msg vesta.Message, depth int, isTopLevel bool) {
	if !t.logger.IsDebug() {
		return
	}
	recipient := "-create-"
	if msg.Recipient != nil {
		recipient = msg.Recipient.String()
	}
	t.logger.Debug("dispatch",
		"kind", msg.Kind.String(),
		"sender", msg.Sender.String(),
		"recipient", recipient,
		"value", msg.Value.String(),
		"gas", int64(msg.Gas),
		"depth", depth,
		"top", isTopLevel,
	)
}

// DumpPreState logs the given accounts if pre-state dumps are enabled.
func (t *Tracer) DumpPreState(accounts map[vesta.Address]ledger.Account) {
	if t.config.PreStateDump {
		dumpState(t.logger, "pre", accounts)
	}
}

// DumpPostState logs the given accounts if post-state dumps are enabled.
func (t *Tracer) DumpPostState(accounts map[vesta.Address]ledger.Account) {
	if t.config.PostStateDump {
		dumpState(t.logger, "post", accounts)
	}
}

// dumpState logs one record per account and one per storage slot, ordered by
// address and key.
func dumpState(logger hclog.Logger, phase string, accounts map[vesta.Address]ledger.Account) {
	addresses := maps.Keys(accounts)
	slices.SortFunc(addresses, func(a, b vesta.Address) int { return slices.Compare(a[:], b[:]) })
	for _, addr := range addresses {
		account := accounts[addr]
		logger.Info("account",
			"phase", phase,
			"address", addr.String(),
			"nonce", account.Nonce,
			"balance", account.Balance.ToBig().String(),
			"code", fmt.Sprintf("0x%x", []byte(account.Code)),
		)
		keys := maps.Keys(account.Storage)
		slices.SortFunc(keys, func(a, b vesta.Key) int { return slices.Compare(a[:], b[:]) })
		for _, key := range keys {
			logger.Info("storage",
				"phase", phase,
				"address", addr.String(),
				"key", key.String(),
				"value", account.Storage[key].String(),
			)
		}
	}
}
