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

// Processor is an interface for a component capable of executing transactions.
// Implementations run the top-level message of a transaction, all messages
// spawned by it and the deferred messages it queued, and finally commit the
// resulting world state.
type Processor interface {
	// Run executes the transaction provided by the parameters in the specified context.
	Run(BlockParameters, Transaction, TransactionContext) (Receipt, error)
}

// Committer is implemented by transaction contexts able to finalize the
// mutations of a transaction.
type Committer interface {
	Commit() error
}

// Transaction summarizes the parameters of a transaction to be executed on a chain.
type Transaction struct {
	Sender    Address  // the sender of the transaction
	Recipient *Address // the receiver of a transaction, nil if a new contract is to be created
	Nonce     uint64   // the nonce of the sender account
	Input     Data     // the input data for the transaction
	Value     Value    // the amount of network currency to transfer to the recipient
	GasLimit  Gas      // the maximum amount of gas that can be used by the transaction
	GasPrice  Value    // the price of a unit of gas, visible to the GASPRICE opcode
	Origin    *Address // the origin reported by ORIGIN, the sender if nil
	Code      Code     // if not nil, executed instead of the code stored at the recipient
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success         bool         // false if the top-level call failed or reverted
	Output          Data         // the output produced by the top-level call
	ContractAddress *Address     // filled if a contract was created by this transaction
	GasLeft         Gas          // gas remaining after the top-level call
	GasUsed         Gas          // gas consumed by the top-level call
	GasRefund       Gas          // refunds accumulated by the top-level call, reported only
	Logs            []Log        // logs produced by the transaction
	CallRecords     []CallRecord // every message dispatched below the top level, in order
	Failure         error        // the reason of a failed top-level call
}
