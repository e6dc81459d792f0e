// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package dispatch

import (
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/vesta"
)

// Processor executes transactions by dispatching their top-level message,
// draining the post queue and committing the resulting state.
type Processor struct {
	dispatcher *Dispatcher
}

var _ vesta.Processor = (*Processor)(nil)

func NewProcessor(config Config) (*Processor, error) {
	dispatcher, err := New(config)
	if err != nil {
		return nil, err
	}
	return &Processor{dispatcher: dispatcher}, nil
}

// Run executes the given transaction. Transactions the sender cannot pay
// the value of or whose nonce does not match are rejected with an error
// before any state is modified. If the context implements vesta.Committer,
// it is committed after all messages have been executed.
func (p *Processor) Run(
	blockParams vesta.BlockParameters,
	transaction vesta.Transaction,
	context vesta.TransactionContext,
) (vesta.Receipt, error) {
	msg, err := topLevelMessage(transaction)
	if err != nil {
		return vesta.Receipt{}, err
	}

	if balance := context.GetBalance(transaction.Sender); balance.Cmp(transaction.Value) < 0 {
		return vesta.Receipt{}, fmt.Errorf("%w: %v < %v", vesta.ErrInsufficientBalance, balance, transaction.Value)
	}
	if err := handleNonce(transaction, context); err != nil {
		return vesta.Receipt{}, err
	}

	origin := transaction.Sender
	if transaction.Origin != nil {
		origin = *transaction.Origin
	}
	env := Environment{
		BlockParameters: blockParams,
		TransactionParameters: vesta.TransactionParameters{
			Origin:   origin,
			GasPrice: transaction.GasPrice,
		},
	}

	recorder := &callRecorder{}
	result, err := p.dispatcher.Dispatch(context, env, msg, true, recorder)
	if err != nil {
		return vesta.Receipt{}, err
	}
	if err := p.dispatcher.DrainPosts(context, env, recorder); err != nil {
		return vesta.Receipt{}, err
	}

	logs := context.GetLogs()
	if committer, ok := context.(vesta.Committer); ok {
		if err := committer.Commit(); err != nil {
			return vesta.Receipt{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	var contractAddress *vesta.Address
	if msg.IsCreation() && result.Success {
		address := result.CreatedAddress
		contractAddress = &address
	}

	return vesta.Receipt{
		Success:         result.Success,
		Output:          result.Output,
		ContractAddress: contractAddress,
		GasLeft:         result.GasLeft,
		GasUsed:         transaction.GasLimit - result.GasLeft,
		GasRefund:       result.GasRefund,
		Logs:            logs,
		CallRecords:     recorder.records,
		Failure:         result.Failure,
	}, nil
}

func topLevelMessage(transaction vesta.Transaction) (vesta.Message, error) {
	input, code := transaction.Input, transaction.Code
	if transaction.Recipient == nil && code == nil {
		input, code = nil, vesta.Code(transaction.Input)
	}
	msg, err := vesta.NewMessage(
		transaction.Sender,
		transaction.Recipient,
		transaction.Value,
		transaction.GasLimit,
		input,
		code,
	)
	if err != nil {
		return vesta.Message{}, fmt.Errorf("invalid transaction: %w", err)
	}
	return msg, nil
}

func handleNonce(transaction vesta.Transaction, context vesta.TransactionContext) error {
	stateNonce := context.GetNonce(transaction.Sender)
	messageNonce := transaction.Nonce
	if messageNonce != stateNonce {
		return fmt.Errorf("nonce mismatch: %v != %v", messageNonce, stateNonce)
	}
	if stateNonce+1 < stateNonce {
		return fmt.Errorf("%w: sender %v", vesta.ErrNonceOverflow, transaction.Sender)
	}
	context.SetNonce(transaction.Sender, stateNonce+1)
	return nil
}

// callRecorder collects the records of all messages below the top level in
// the order they are dispatched.
type callRecorder struct {
	records []vesta.CallRecord
}

func (r *callRecorder) OnDispatch(msg vesta.Message, _ int, isTopLevel bool) {
	if !isTopLevel {
		r.records = append(r.records, msg.Record())
	}
}
