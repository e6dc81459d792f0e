// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vesta

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package vesta

// Interpreter is a component capable of executing contract code.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified context
	// and returns the processing result. The resulting error is nil whenever the
	// code was correctly executed (even if the execution was aborted due do to
	// a code-internal issue). The error is not nil if some problem within the
	// interpreter caused the execution to fail to correctly process the provided
	// program. In such a case the result is undefined.
	// Interpreters are required to be thread-safe. Thus, multiple runs may be
	// conducted in parallel.
	Run(Parameters) (Result, error)
}

type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters is the ambient block environment visible to opcodes.
type BlockParameters struct {
	BlockNumber  int64
	Timestamp    int64
	Coinbase     Address
	GasLimit     Gas
	Difficulty   Value
	PreviousHash Hash
	Revision     Revision
}

type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

// RunContext is the interface by which an interpreter reaches its
// environment: the transaction scoped world state and the dispatcher for
// nested calls.
type RunContext interface {
	TransactionContext

	// Call dispatches a nested message on behalf of the running code.
	Call(kind CallKind, parameter CallParameters) (CallResult, error)

	// GetBlockHash returns the hash of the block with the given number.
	GetBlockHash(number int64) Hash
}

// Result is the outcome of executing a piece of code.
type Result struct {
	Success   bool // false if the execution ended in a revert or failure, true otherwise
	Output    Data
	GasLeft   Gas
	GasRefund Gas
	Failure   error // < the call-scoped reason if Success is false
}

type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for CREATE and CREATE2
	Value       Value   // < ignored by static calls, considered to be 0
	Input       Data
	Gas         Gas
	Stipend     Gas
	Salt        Hash // < only relevant for CREATE2 calls
	CodeAddress Address
}

type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // < only meaningful for CREATE and CREATE2
	Success        bool    // false if the execution ended in a revert, true otherwise
}
