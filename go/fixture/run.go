// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/interpreter/stackvm"
	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/processor/dispatch"
	"github.com/Fantom-foundation/Vesta/go/tracing"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Options configure the execution of fixtures.
type Options struct {
	// Revision is used for tests not naming a revision of their own.
	Revision vesta.Revision
	// Tracing selects the debug output produced while running a test.
	Tracing tracing.Config
	// Logger receives the trace output; nil disables it.
	Logger hclog.Logger
	// DispatchObservers and OpcodeObservers are notified in addition to the
	// tracer configured by Tracing.
	DispatchObservers []vesta.DispatchObserver
	OpcodeObservers   []vesta.OpcodeObserver
}

// Outcome is the observable result of running a test.
type Outcome struct {
	Success     bool
	Out         vesta.Data
	Gas         vesta.Gas
	GasUsed     vesta.Gas
	Failure     error
	CallCreates []vesta.CallRecord
	Logs        []vesta.Log
	Post        map[vesta.Address]ledger.Account
}

// Run executes the given test and reports its outcome. Errors are returned
// for malformed tests, rejected transactions and engine failures; a failing
// execution is a regular outcome.
func Run(test Test, options Options) (Outcome, error) {
	revision := options.Revision
	if test.Revision != nil {
		revision = *test.Revision
	}
	block, err := test.Env.blockParameters(revision)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid env: %w", err)
	}
	pre, err := convertAccounts(test.Pre)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid pre-state: %w", err)
	}
	state := ledger.New(pre)
	transaction, err := test.Exec.transaction(state)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid exec: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	tracer := tracing.New(options.Tracing, logger)

	opcodeObservers := vesta.MultiOpcodeObserver(options.OpcodeObservers)
	if observer := tracer.OpcodeObserver(); observer != nil {
		opcodeObservers = append(vesta.MultiOpcodeObserver{observer}, opcodeObservers...)
	}
	interpreterConfig := stackvm.Config{}
	if len(opcodeObservers) > 0 {
		interpreterConfig.Observer = opcodeObservers
	}
	interpreter, err := stackvm.NewInterpreter(interpreterConfig)
	if err != nil {
		return Outcome{}, err
	}
	processor, err := dispatch.NewProcessor(dispatch.Config{
		Interpreter: interpreter,
		Observers:   append([]vesta.DispatchObserver{tracer}, options.DispatchObservers...),
		Logger:      logger,
	})
	if err != nil {
		return Outcome{}, err
	}

	tracer.DumpPreState(state.Accounts())
	receipt, err := processor.Run(block, transaction, state)
	if err != nil {
		return Outcome{}, err
	}
	post := state.Accounts()
	tracer.DumpPostState(post)

	return Outcome{
		Success:     receipt.Success,
		Out:         receipt.Output,
		Gas:         receipt.GasLeft,
		GasUsed:     receipt.GasUsed,
		Failure:     receipt.Failure,
		CallCreates: receipt.CallRecords,
		Logs:        receipt.Logs,
		Post:        post,
	}, nil
}

func (e *Env) blockParameters(revision vesta.Revision) (vesta.BlockParameters, error) {
	if revision < vesta.R00_Frontier || revision > vesta.NewestRevision {
		return vesta.BlockParameters{}, &vesta.ErrUnsupportedRevision{Name: revision.String()}
	}
	number, err := e.CurrentNumber.Int64()
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("currentNumber: %w", err)
	}
	timestamp, err := e.CurrentTimestamp.Int64()
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("currentTimestamp: %w", err)
	}
	gasLimit, err := e.CurrentGasLimit.Int64()
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("currentGasLimit: %w", err)
	}
	difficulty, err := e.CurrentDifficulty.Value()
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("currentDifficulty: %w", err)
	}
	coinbase, err := ParseAddress(e.CurrentCoinbase)
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("currentCoinbase: %w", err)
	}
	previousHash, err := parseHash(e.PreviousHash)
	if err != nil {
		return vesta.BlockParameters{}, fmt.Errorf("previousHash: %w", err)
	}
	return vesta.BlockParameters{
		BlockNumber:  number,
		Timestamp:    timestamp,
		Coinbase:     coinbase,
		GasLimit:     vesta.Gas(gasLimit),
		Difficulty:   difficulty,
		PreviousHash: previousHash,
		Revision:     revision,
	}, nil
}

// transaction converts the exec section. The nonce is taken from the state
// since fixtures do not carry one.
func (e *Exec) transaction(state vesta.WorldState) (vesta.Transaction, error) {
	caller, err := ParseAddress(e.Caller)
	if err != nil {
		return vesta.Transaction{}, fmt.Errorf("caller: %w", err)
	}
	address, err := ParseAddress(e.Address)
	if err != nil {
		return vesta.Transaction{}, fmt.Errorf("address: %w", err)
	}
	origin := caller
	if e.Origin != "" {
		if origin, err = ParseAddress(e.Origin); err != nil {
			return vesta.Transaction{}, fmt.Errorf("origin: %w", err)
		}
	}
	gas, err := e.Gas.Int64()
	if err != nil {
		return vesta.Transaction{}, fmt.Errorf("gas: %w", err)
	}
	gasPrice, err := e.GasPrice.Value()
	if err != nil {
		return vesta.Transaction{}, fmt.Errorf("gasPrice: %w", err)
	}
	value, err := e.Value.Value()
	if err != nil {
		return vesta.Transaction{}, fmt.Errorf("value: %w", err)
	}
	code := vesta.Code(e.Code)
	if code == nil {
		code = vesta.Code{}
	}
	return vesta.Transaction{
		Sender:    caller,
		Recipient: &address,
		Nonce:     state.GetNonce(caller),
		Input:     vesta.Data(e.Data),
		Value:     value,
		GasLimit:  vesta.Gas(gas),
		GasPrice:  gasPrice,
		Origin:    &origin,
		Code:      code,
	}, nil
}

func convertAccounts(accounts map[string]Account) (map[vesta.Address]ledger.Account, error) {
	res := make(map[vesta.Address]ledger.Account, len(accounts))
	var errs *multierror.Error
	for text, account := range accounts {
		addr, err := ParseAddress(text)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		converted, err := account.convert()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("account %v: %w", text, err))
			continue
		}
		res[addr] = converted
	}
	return res, errs.ErrorOrNil()
}

func (a *Account) convert() (ledger.Account, error) {
	nonce, err := a.Nonce.Uint64()
	if err != nil {
		return ledger.Account{}, fmt.Errorf("nonce: %w", err)
	}
	balance, err := a.Balance.Value()
	if err != nil {
		return ledger.Account{}, fmt.Errorf("balance: %w", err)
	}
	storage := make(map[vesta.Key]vesta.Word, len(a.Storage))
	for key, value := range a.Storage {
		if value != (vesta.Word{}) {
			storage[key] = value
		}
	}
	return ledger.Account{
		Nonce:   nonce,
		Balance: balance,
		Code:    vesta.Code(a.Code),
		Storage: storage,
	}, nil
}
