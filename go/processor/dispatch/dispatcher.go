// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package dispatch runs messages on top of a transaction context. The
// Dispatcher performs value transfers, contract creation and snapshot
// handling around each execution of an interpreter and connects nested
// CALL and CREATE instructions back into itself. The Processor builds on it
// to execute whole transactions.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-hclog"
)

const (
	// MaxCallDepth is the deepest nesting level at which messages are still
	// executed. The top-level message has depth 0.
	MaxCallDepth = 1024

	createGasCostPerByte = 200
	maxCodeSize          = 24576
)

// Config lists the parameters of a Dispatcher.
type Config struct {
	// Interpreter executes the code of dispatched messages. Required.
	Interpreter vesta.Interpreter
	// MaxCallDepth overrides the nesting limit; zero selects MaxCallDepth.
	MaxCallDepth int
	// Observers are notified about every dispatched message, including the
	// top-level one.
	Observers []vesta.DispatchObserver
	// Logger receives trace output; nil disables logging.
	Logger hclog.Logger
}

// Environment is the block and transaction scoped context shared by all
// messages of a transaction.
type Environment struct {
	vesta.BlockParameters
	vesta.TransactionParameters
}

// Result is the outcome of a dispatched message.
type Result struct {
	vesta.Result
	CreatedAddress vesta.Address // < only set by successful creations
}

// Dispatcher executes messages. It keeps no per-transaction state and may be
// shared by concurrent transactions operating on independent contexts.
type Dispatcher struct {
	interpreter  vesta.Interpreter
	maxCallDepth int
	observers    []vesta.DispatchObserver
	logger       hclog.Logger
}

// New creates a Dispatcher from the given configuration.
func New(config Config) (*Dispatcher, error) {
	if config.Interpreter == nil {
		return nil, errors.New("dispatcher requires an interpreter")
	}
	if config.MaxCallDepth < 0 {
		return nil, fmt.Errorf("invalid maximum call depth %d", config.MaxCallDepth)
	}
	depth := config.MaxCallDepth
	if depth == 0 {
		depth = MaxCallDepth
	}
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Dispatcher{
		interpreter:  config.Interpreter,
		maxCallDepth: depth,
		observers:    append([]vesta.DispatchObserver(nil), config.Observers...),
		logger:       logger,
	}, nil
}

// Dispatch executes msg on the given transaction context. The top-level
// message of a transaction is expected to be dispatched with isTopLevel set;
// its value transfer is not undone if the execution fails. The additional
// observers are notified for this dispatch and all nested ones.
//
// Call-scoped failures are reported through the result. A non-nil error
// signals a broken invariant within the engine; the state of the context is
// undefined in that case.
func (d *Dispatcher) Dispatch(
	state vesta.TransactionContext,
	env Environment,
	msg vesta.Message,
	isTopLevel bool,
	observers ...vesta.DispatchObserver,
) (Result, error) {
	if err := msg.Validate(); err != nil {
		return Result{}, err
	}
	return d.newSession(state, env, observers).dispatch(msg, 0, isTopLevel)
}

// DrainPosts dispatches all messages pending in the post queue of the given
// context in FIFO order, including messages enqueued while draining.
func (d *Dispatcher) DrainPosts(
	state vesta.TransactionContext,
	env Environment,
	observers ...vesta.DispatchObserver,
) error {
	s := d.newSession(state, env, observers)
	for {
		msg, found := state.DequeuePost()
		if !found {
			return nil
		}
		res, err := s.dispatch(msg, 0, false)
		if err != nil {
			return fmt.Errorf("failed to dispatch deferred message: %w", err)
		}
		if !res.Success {
			d.logger.Debug("deferred message failed", "sender", msg.Sender, "kind", msg.Kind, "reason", res.Failure)
		}
	}
}

func (d *Dispatcher) newSession(state vesta.TransactionContext, env Environment, observers []vesta.DispatchObserver) *session {
	all := d.observers
	if len(observers) > 0 {
		all = append(append(make([]vesta.DispatchObserver, 0, len(d.observers)+len(observers)), d.observers...), observers...)
	}
	return &session{
		dispatcher: d,
		state:      state,
		env:        env,
		observers:  all,
	}
}

// session bundles the context of the messages belonging to one transaction.
type session struct {
	dispatcher *Dispatcher
	state      vesta.TransactionContext
	env        Environment
	observers  []vesta.DispatchObserver
}

func (s *session) dispatch(msg vesta.Message, depth int, isTopLevel bool) (Result, error) {
	for _, observer := range s.observers {
		observer.OnDispatch(msg, depth, isTopLevel)
	}

	logger := s.dispatcher.logger
	if logger.IsTrace() {
		logger.Trace("dispatch", "kind", msg.Kind, "depth", depth, "sender", msg.Sender,
			"recipient", msg.Recipient, "value", msg.Value, "gas", msg.Gas)
	}

	if depth > s.dispatcher.maxCallDepth {
		return failed(vesta.ErrCallDepthExceeded, msg.AvailableGas()), nil
	}

	if msg.IsCreation() {
		return s.create(msg, depth, isTopLevel)
	}
	return s.call(msg, depth, isTopLevel)
}

func (s *session) call(msg vesta.Message, depth int, isTopLevel bool) (Result, error) {
	state := s.state
	recipient := *msg.Recipient

	snapshot := state.CreateSnapshot()
	if msg.Kind.TransfersValue() {
		if err := transferValue(state, msg.Value, msg.Sender, recipient); err != nil {
			state.RestoreSnapshot(snapshot)
			return failed(err, msg.AvailableGas()), nil
		}
	}
	if isTopLevel {
		// The transfer of the top-level message survives failed executions.
		snapshot = state.CreateSnapshot()
	}

	code, codeHash := msg.Code, (*vesta.Hash)(nil)
	if code == nil {
		codeAddress := recipient
		if msg.Kind == vesta.CallCode || msg.Kind == vesta.DelegateCall {
			codeAddress = msg.CodeAddress
		}
		code = state.GetCode(codeAddress)
		if len(code) > 0 {
			hash := state.GetCodeHash(codeAddress)
			codeHash = &hash
		}
	}

	result, err := s.run(msg, recipient, code, codeHash, depth)
	if err != nil {
		state.RestoreSnapshot(snapshot)
		return Result{}, err
	}
	if !result.Success {
		state.RestoreSnapshot(snapshot)
		return Result{Result: forfeit(result)}, nil
	}
	return Result{Result: result}, nil
}

func (s *session) create(msg vesta.Message, depth int, isTopLevel bool) (Result, error) {
	state := s.state

	if msg.Value.Cmp(state.GetBalance(msg.Sender)) > 0 {
		return failed(vesta.ErrInsufficientBalance, msg.AvailableGas()), nil
	}

	nonce := state.GetNonce(msg.Sender)
	if isTopLevel {
		// The entry point has already accounted for the transaction nonce.
		if nonce > 0 {
			nonce--
		}
	} else {
		if nonce+1 < nonce {
			return failed(vesta.ErrNonceOverflow, msg.AvailableGas()), nil
		}
		state.SetNonce(msg.Sender, nonce+1)
	}

	code := msg.Code
	codeHash := vesta.HashCode(code)
	address := createAddress(msg.Kind, msg.Sender, nonce, msg.Salt, codeHash)

	if state.GetNonce(address) != 0 || state.GetCodeSize(address) != 0 {
		return failed(vesta.ErrContractAddressCollision, 0), nil
	}

	snapshot := state.CreateSnapshot()
	if err := transferValue(state, msg.Value, msg.Sender, address); err != nil {
		state.RestoreSnapshot(snapshot)
		return failed(err, msg.AvailableGas()), nil
	}
	if isTopLevel {
		snapshot = state.CreateSnapshot()
	}
	if s.env.Revision >= vesta.R03_SpuriousDragon {
		state.SetNonce(address, 1)
	}

	result, err := s.run(msg, address, code, &codeHash, depth)
	if err != nil {
		state.RestoreSnapshot(snapshot)
		return Result{}, err
	}
	if !result.Success {
		state.RestoreSnapshot(snapshot)
		return Result{Result: forfeit(result)}, nil
	}

	deployed := result.Output
	if s.env.Revision >= vesta.R03_SpuriousDragon && len(deployed) > maxCodeSize {
		state.RestoreSnapshot(snapshot)
		return failed(vesta.ErrMaxCodeSizeExceeded, 0), nil
	}
	depositCost := vesta.Gas(len(deployed) * createGasCostPerByte)
	if result.GasLeft < depositCost {
		if s.env.Revision >= vesta.R01_Homestead {
			state.RestoreSnapshot(snapshot)
			return failed(vesta.ErrOutOfGas, 0), nil
		}
		// Frontier keeps the created account but deploys no code.
		deployed = nil
		depositCost = 0
	}
	result.GasLeft -= depositCost
	state.SetCode(address, vesta.Code(deployed))

	return Result{Result: result, CreatedAddress: address}, nil
}

func (s *session) run(msg vesta.Message, recipient vesta.Address, code vesta.Code, codeHash *vesta.Hash, depth int) (vesta.Result, error) {
	static := msg.Static || msg.Kind == vesta.StaticCall
	input := msg.Input
	if msg.IsCreation() {
		input = nil
	}
	return s.dispatcher.interpreter.Run(vesta.Parameters{
		BlockParameters:       s.env.BlockParameters,
		TransactionParameters: s.env.TransactionParameters,
		Context: runContext{
			TransactionContext: s.state,
			session:            s,
			depth:              depth,
			static:             static,
		},
		Kind:      msg.Kind,
		Static:    static,
		Depth:     depth,
		Gas:       msg.AvailableGas(),
		Recipient: recipient,
		Sender:    msg.Sender,
		Input:     input,
		Value:     msg.Value,
		CodeHash:  codeHash,
		Code:      code,
	})
}

func failed(reason error, gasLeft vesta.Gas) Result {
	return Result{Result: vesta.Result{Failure: reason, GasLeft: gasLeft}}
}

// forfeit normalizes an unsuccessful result. Reverted executions keep their
// remaining gas and output, all other failures consume everything.
func forfeit(result vesta.Result) vesta.Result {
	if errors.Is(result.Failure, vesta.ErrExecutionReverted) {
		return vesta.Result{Output: result.Output, GasLeft: result.GasLeft, Failure: result.Failure}
	}
	return vesta.Result{Failure: result.Failure}
}
