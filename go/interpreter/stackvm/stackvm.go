// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package stackvm implements a plain bytecode interpreter for the Frontier
// to Petersburg instruction sets. Code is executed as is; the only
// preprocessing is the jump destination analysis, which is cached per code
// hash.
package stackvm

import (
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/vesta"
)

// Config contains the options of an interpreter instance.
type Config struct {
	// AnalysisCacheSize is the number of jump destination analyses retained
	// in the cache. If 0, a default size is used. If negative, no cache is used.
	AnalysisCacheSize int
	// Observer, if not nil, is notified before every executed instruction.
	Observer vesta.OpcodeObserver
}

const defaultAnalysisCacheSize = 1 << 12

// Interpreter is a vesta.Interpreter executing code instruction by
// instruction. It is safe for concurrent use.
type Interpreter struct {
	analyzer *analyzer
	observer vesta.OpcodeObserver
}

var _ vesta.Interpreter = (*Interpreter)(nil)

func NewInterpreter(config Config) (*Interpreter, error) {
	size := config.AnalysisCacheSize
	if size == 0 {
		size = defaultAnalysisCacheSize
	}
	analyzer, err := newAnalyzer(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create jump destination cache: %w", err)
	}
	return &Interpreter{analyzer: analyzer, observer: config.Observer}, nil
}

func (i *Interpreter) Run(params vesta.Parameters) (vesta.Result, error) {
	if params.Revision < vesta.R00_Frontier || params.Revision > vesta.NewestRevision {
		return vesta.Result{}, &vesta.ErrUnsupportedRevision{Name: params.Revision.String()}
	}
	return run(i.analyzer, i.observer, params)
}
