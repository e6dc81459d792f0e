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
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/mock/gomock"
)

var (
	sender    = vesta.Address{0xaa}
	recipient = vesta.Address{0xbb}
)

func newTestDispatcher(t *testing.T, interpreter vesta.Interpreter) *Dispatcher {
	t.Helper()
	dispatcher, err := New(Config{Interpreter: interpreter})
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	return dispatcher
}

func newTestLedger() *ledger.Ledger {
	return ledger.New(map[vesta.Address]ledger.Account{
		sender:    {Balance: vesta.NewValue(1000)},
		recipient: {Code: vesta.Code{0x00}},
	})
}

func callMessage(value uint64, gas vesta.Gas) vesta.Message {
	to := recipient
	return vesta.Message{
		Kind:      vesta.Call,
		Sender:    sender,
		Recipient: &to,
		Value:     vesta.NewValue(value),
		Gas:       gas,
	}
}

func TestDispatcher_NewRejectsInvalidConfigurations(t *testing.T) {
	ctrl := gomock.NewController(t)
	tests := map[string]Config{
		"no interpreter": {},
		"negative depth": {Interpreter: vesta.NewMockInterpreter(ctrl), MaxCallDepth: -1},
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := New(config); err == nil {
				t.Errorf("expected configuration to be rejected")
			}
		})
	}
}

func TestDispatch_InvalidMessagesAreRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := newTestDispatcher(t, vesta.NewMockInterpreter(ctrl))

	_, err := dispatcher.Dispatch(newTestLedger(), Environment{}, vesta.Message{Kind: vesta.Call}, true)
	if !errors.Is(err, vesta.ErrInvalidMessage) {
		t.Errorf("expected invalid message error, got %v", err)
	}
}

func TestDispatch_InterpreterReceivesMessageParameters(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)

	env := Environment{
		BlockParameters:       vesta.BlockParameters{BlockNumber: 12, Revision: vesta.R04_Byzantium},
		TransactionParameters: vesta.TransactionParameters{Origin: vesta.Address{0x0f}},
	}
	msg := callMessage(10, 100)
	msg.Stipend = 5
	msg.Input = vesta.Data{1, 2, 3}

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
		if params.BlockNumber != 12 || params.Revision != vesta.R04_Byzantium || params.Origin != (vesta.Address{0x0f}) {
			t.Errorf("unexpected environment %+v", params)
		}
		if want, got := vesta.Gas(105), params.Gas; want != got {
			t.Errorf("unexpected gas, wanted %d, got %d", want, got)
		}
		if params.Sender != sender || params.Recipient != recipient || params.Kind != vesta.Call || params.Static {
			t.Errorf("unexpected call parameters %+v", params)
		}
		if !bytes.Equal(params.Input, []byte{1, 2, 3}) || !bytes.Equal(params.Code, []byte{0x00}) {
			t.Errorf("unexpected input %x or code %x", params.Input, params.Code)
		}
		if params.CodeHash == nil || *params.CodeHash != vesta.HashCode(vesta.Code{0x00}) {
			t.Errorf("unexpected code hash %v", params.CodeHash)
		}
		return vesta.Result{Success: true, GasLeft: 7, Output: vesta.Data{9}}, nil
	})

	result, err := dispatcher.Dispatch(newTestLedger(), env, msg, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.GasLeft != 7 || !bytes.Equal(result.Output, []byte{9}) {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestDispatch_ExplicitCodeIsExecutedInsteadOfStoredCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)

	msg := callMessage(0, 100)
	msg.Code = vesta.Code{}
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
		if len(params.Code) != 0 || params.CodeHash != nil {
			t.Errorf("unexpected code %x", params.Code)
		}
		return vesta.Result{Success: true, GasLeft: params.Gas}, nil
	})
	if _, err := dispatcher.Dispatch(newTestLedger(), Environment{}, msg, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatch_DelegateCallRunsCodeOfCodeAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)

	library := vesta.Address{0x11}
	state := ledger.New(map[vesta.Address]ledger.Account{
		library: {Code: vesta.Code{0x01, 0x02}},
	})
	msg := callMessage(5, 100)
	msg.Kind = vesta.DelegateCall
	msg.CodeAddress = library

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
		if !bytes.Equal(params.Code, []byte{0x01, 0x02}) || params.Recipient != recipient {
			t.Errorf("unexpected code %x or recipient %v", params.Code, params.Recipient)
		}
		return vesta.Result{Success: true}, nil
	})
	result, err := dispatcher.Dispatch(state, Environment{}, msg, false)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result %+v, err %v", result, err)
	}
	// The value of delegate calls is only reported, never transferred.
	if !state.GetBalance(recipient).IsZero() {
		t.Errorf("delegate call transferred value")
	}
}

func TestDispatch_DepthLimitFailsWithoutExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := newTestDispatcher(t, vesta.NewMockInterpreter(ctrl))
	observer := vesta.NewMockDispatchObserver(ctrl)

	msg := callMessage(10, 100)
	msg.Stipend = 20
	observer.EXPECT().OnDispatch(msg, MaxCallDepth+1, false)

	state := newTestLedger()
	s := dispatcher.newSession(state, Environment{}, []vesta.DispatchObserver{observer})
	result, err := s.dispatch(msg, MaxCallDepth+1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !errors.Is(result.Failure, vesta.ErrCallDepthExceeded) {
		t.Errorf("unexpected result %+v", result)
	}
	if want, got := vesta.Gas(120), result.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
	if want, got := vesta.NewValue(1000), state.GetBalance(sender); want != got {
		t.Errorf("value transferred although depth was exceeded")
	}
}

func TestDispatch_MaximumDepthIsStillExecuted(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)
	interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{Success: true}, nil)

	s := dispatcher.newSession(newTestLedger(), Environment{}, nil)
	result, err := s.dispatch(callMessage(0, 100), MaxCallDepth, false)
	if err != nil || !result.Success {
		t.Errorf("unexpected result %+v, err %v", result, err)
	}
}

func TestDispatch_InsufficientBalanceFailsWithoutExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := newTestDispatcher(t, vesta.NewMockInterpreter(ctrl))

	state := newTestLedger()
	before := state.Accounts()
	result, err := dispatcher.Dispatch(state, Environment{}, callMessage(1001, 100), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !errors.Is(result.Failure, vesta.ErrInsufficientBalance) {
		t.Errorf("unexpected result %+v", result)
	}
	if want, got := vesta.Gas(100), result.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
	if !reflect.DeepEqual(before, state.Accounts()) {
		t.Errorf("failed transfer modified the state")
	}
}

func TestDispatch_FailuresRestoreTheState(t *testing.T) {
	tests := map[string]struct {
		isTopLevel    bool
		failure       error
		gasLeft       vesta.Gas
		keepsTransfer bool
	}{
		"nested failure":    {false, vesta.ErrOutOfGas, 0, false},
		"nested revert":     {false, vesta.ErrExecutionReverted, 40, false},
		"top-level failure": {true, vesta.ErrInvalidOpcode, 0, true},
		"top-level revert":  {true, vesta.ErrExecutionReverted, 40, true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := vesta.NewMockInterpreter(ctrl)
			dispatcher := newTestDispatcher(t, interpreter)

			interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
				params.Context.SetStorage(params.Recipient, vesta.Key{1}, vesta.Word{2})
				params.Context.SetNonce(vesta.Address{0x77}, 3)
				params.Context.EmitLog(vesta.Log{Address: params.Recipient})
				return vesta.Result{Output: vesta.Data{5}, GasLeft: 40, Failure: test.failure}, nil
			})

			state := newTestLedger()
			result, err := dispatcher.Dispatch(state, Environment{}, callMessage(10, 100), test.isTopLevel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success || !errors.Is(result.Failure, test.failure) {
				t.Errorf("unexpected result %+v", result)
			}
			if want, got := test.gasLeft, result.GasLeft; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
			if reverted := test.failure == vesta.ErrExecutionReverted; reverted != (len(result.Output) > 0) {
				t.Errorf("unexpected output %x", result.Output)
			}

			if state.GetStorage(recipient, vesta.Key{1}) != (vesta.Word{}) || state.AccountExists(vesta.Address{0x77}) {
				t.Errorf("mutations of the failed call were not undone")
			}
			if len(state.GetLogs()) != 0 {
				t.Errorf("logs of the failed call were not undone")
			}
			wantBalance := vesta.NewValue(0)
			if test.keepsTransfer {
				wantBalance = vesta.NewValue(10)
			}
			if got := state.GetBalance(recipient); wantBalance != got {
				t.Errorf("unexpected recipient balance, wanted %v, got %v", wantBalance, got)
			}
		})
	}
}

func TestDispatch_EngineErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)

	injected := errors.New("injected")
	interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{}, injected)
	if _, err := dispatcher.Dispatch(newTestLedger(), Environment{}, callMessage(0, 10), true); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestDispatch_CreateDerivesAddressAndDeploysCode(t *testing.T) {
	tests := map[string]struct {
		revision vesta.Revision
		nonce    uint64
	}{
		"frontier":        {vesta.R00_Frontier, 0},
		"spurious dragon": {vesta.R03_SpuriousDragon, 1},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := vesta.NewMockInterpreter(ctrl)
			dispatcher := newTestDispatcher(t, interpreter)

			state := ledger.New(map[vesta.Address]ledger.Account{
				sender: {Nonce: 5, Balance: vesta.NewValue(100)},
			})
			initCode := vesta.Code{0x60, 0x00}
			expected := vesta.Address(crypto.CreateAddress(common.Address(sender), 5))

			interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
				if params.Recipient != expected || params.Kind != vesta.Create {
					t.Errorf("unexpected creation parameters %+v", params)
				}
				if !bytes.Equal(params.Code, initCode) || params.Input != nil {
					t.Errorf("unexpected code %x or input %x", params.Code, params.Input)
				}
				return vesta.Result{Success: true, Output: vesta.Data{1, 2, 3}, GasLeft: 1000}, nil
			})

			msg := vesta.Message{Kind: vesta.Create, Sender: sender, Value: vesta.NewValue(7), Gas: 5000, Code: initCode}
			env := Environment{BlockParameters: vesta.BlockParameters{Revision: test.revision}}
			result, err := dispatcher.Dispatch(state, env, msg, false)
			if err != nil || !result.Success {
				t.Fatalf("unexpected result %+v, err %v", result, err)
			}
			if want, got := expected, result.CreatedAddress; want != got {
				t.Errorf("unexpected created address, wanted %v, got %v", want, got)
			}
			if want, got := vesta.Gas(1000-3*createGasCostPerByte), result.GasLeft; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
			if want, got := uint64(6), state.GetNonce(sender); want != got {
				t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
			}
			account, found := state.GetAccount(expected)
			if !found {
				t.Fatalf("created account does not exist")
			}
			if !bytes.Equal(account.Code, []byte{1, 2, 3}) || account.Nonce != test.nonce || account.Balance != vesta.NewValue(7) {
				t.Errorf("unexpected created account %+v", account)
			}
		})
	}
}

func TestDispatch_Create2UsesSaltAndInitCodeHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)

	initCode := vesta.Code{0x00}
	salt := vesta.Hash{0x42}
	expected := vesta.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), crypto.Keccak256(initCode)))

	interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{Success: true, GasLeft: 10}, nil)

	msg := vesta.Message{Kind: vesta.Create2, Sender: sender, Gas: 10, Code: initCode, Salt: salt}
	result, err := dispatcher.Dispatch(newTestLedger(), Environment{}, msg, false)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result %+v, err %v", result, err)
	}
	if want, got := expected, result.CreatedAddress; want != got {
		t.Errorf("unexpected created address, wanted %v, got %v", want, got)
	}
}

func TestDispatch_TopLevelCreationUsesTransactionNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)
	interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{Success: true}, nil)

	// The entry point increments the nonce from 3 to 4 before dispatching.
	state := ledger.New(map[vesta.Address]ledger.Account{sender: {Nonce: 4}})
	msg := vesta.Message{Kind: vesta.Create, Sender: sender, Gas: 10}
	result, err := dispatcher.Dispatch(state, Environment{}, msg, true)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result %+v, err %v", result, err)
	}
	if want, got := vesta.Address(crypto.CreateAddress(common.Address(sender), 3)), result.CreatedAddress; want != got {
		t.Errorf("unexpected created address, wanted %v, got %v", want, got)
	}
	if want, got := uint64(4), state.GetNonce(sender); want != got {
		t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
	}
}

func TestDispatch_CreateOnOccupiedAddressFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := newTestDispatcher(t, vesta.NewMockInterpreter(ctrl))

	occupied := vesta.Address(crypto.CreateAddress(common.Address(sender), 0))
	state := ledger.New(map[vesta.Address]ledger.Account{occupied: {Code: vesta.Code{0x00}}})

	msg := vesta.Message{Kind: vesta.Create, Sender: sender, Gas: 100}
	result, err := dispatcher.Dispatch(state, Environment{}, msg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !errors.Is(result.Failure, vesta.ErrContractAddressCollision) || result.GasLeft != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	// The nonce increment survives the failed creation.
	if want, got := uint64(1), state.GetNonce(sender); want != got {
		t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
	}
}

func TestDispatch_CreateWithInsufficientBalanceKeepsNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := newTestDispatcher(t, vesta.NewMockInterpreter(ctrl))

	state := newTestLedger()
	state.SetNonce(sender, 2)
	msg := vesta.Message{Kind: vesta.Create, Sender: sender, Value: vesta.NewValue(1001), Gas: 100}
	result, err := dispatcher.Dispatch(state, Environment{}, msg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !errors.Is(result.Failure, vesta.ErrInsufficientBalance) || result.GasLeft != 100 {
		t.Errorf("unexpected result %+v", result)
	}
	if want, got := uint64(2), state.GetNonce(sender); want != got {
		t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
	}
	if want, got := vesta.NewValue(1000), state.GetBalance(sender); want != got {
		t.Errorf("unexpected sender balance, wanted %v, got %v", want, got)
	}
}

func TestDispatch_CodeDepositWithoutGas(t *testing.T) {
	tests := map[string]struct {
		revision vesta.Revision
		success  bool
	}{
		"frontier deploys no code": {vesta.R00_Frontier, true},
		"homestead fails":          {vesta.R01_Homestead, false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := vesta.NewMockInterpreter(ctrl)
			dispatcher := newTestDispatcher(t, interpreter)
			interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{Success: true, Output: vesta.Data{1}, GasLeft: 199}, nil)

			state := newTestLedger()
			msg := vesta.Message{Kind: vesta.Create, Sender: sender, Gas: 1000}
			env := Environment{BlockParameters: vesta.BlockParameters{Revision: test.revision}}
			result, err := dispatcher.Dispatch(state, env, msg, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if test.success != result.Success {
				t.Fatalf("unexpected result %+v", result)
			}
			created := vesta.Address(crypto.CreateAddress(common.Address(sender), 0))
			if test.success {
				if want, got := vesta.Gas(199), result.GasLeft; want != got {
					t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
				}
				if !state.AccountExists(created) || state.GetCodeSize(created) != 0 {
					t.Errorf("expected created account without code")
				}
			} else {
				if result.GasLeft != 0 || !errors.Is(result.Failure, vesta.ErrOutOfGas) {
					t.Errorf("unexpected result %+v", result)
				}
				if state.AccountExists(created) {
					t.Errorf("failed creation left an account behind")
				}
			}
		})
	}
}

func TestDispatch_OversizedCodeIsRejectedSinceSpuriousDragon(t *testing.T) {
	for _, revision := range []vesta.Revision{vesta.R02_TangerineWhistle, vesta.R03_SpuriousDragon} {
		ctrl := gomock.NewController(t)
		interpreter := vesta.NewMockInterpreter(ctrl)
		dispatcher := newTestDispatcher(t, interpreter)
		output := make(vesta.Data, maxCodeSize+1)
		interpreter.EXPECT().Run(gomock.Any()).Return(vesta.Result{Success: true, Output: output, GasLeft: 10_000_000}, nil)

		msg := vesta.Message{Kind: vesta.Create, Sender: sender, Gas: 10_000_000}
		env := Environment{BlockParameters: vesta.BlockParameters{Revision: revision}}
		result, err := dispatcher.Dispatch(newTestLedger(), env, msg, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tooLarge := errors.Is(result.Failure, vesta.ErrMaxCodeSizeExceeded)
		if want := revision >= vesta.R03_SpuriousDragon; want != tooLarge {
			t.Errorf("unexpected result in %v: %+v", revision, result.Failure)
		}
	}
}

func TestDispatch_ObserversAreNotifiedOfEveryMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	configured := vesta.NewMockDispatchObserver(ctrl)
	additional := vesta.NewMockDispatchObserver(ctrl)

	dispatcher, err := New(Config{Interpreter: interpreter, Observers: []vesta.DispatchObserver{configured}})
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	nested := callMessage(0, 10)
	nested.Sender = recipient

	top := callMessage(1, 100)
	gomock.InOrder(
		configured.EXPECT().OnDispatch(top, 0, true),
		additional.EXPECT().OnDispatch(top, 0, true),
		configured.EXPECT().OnDispatch(gomock.Any(), 1, false),
		additional.EXPECT().OnDispatch(gomock.Any(), 1, false),
	)
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
		if params.Depth == 0 {
			if _, err := params.Context.Call(vesta.Call, vesta.CallParameters{Sender: recipient, Recipient: recipient, Gas: 10}); err != nil {
				return vesta.Result{}, err
			}
		}
		return vesta.Result{Success: true}, nil
	}).Times(2)

	if _, err := dispatcher.Dispatch(newTestLedger(), Environment{}, top, true, additional); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDrainPosts_DispatchesQueuedMessagesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := vesta.NewMockInterpreter(ctrl)
	dispatcher := newTestDispatcher(t, interpreter)
	observer := vesta.NewMockDispatchObserver(ctrl)

	first, second, third := vesta.Address{1}, vesta.Address{2}, vesta.Address{3}
	state := newTestLedger()
	state.EnqueuePost(vesta.Message{Kind: vesta.Call, Sender: sender, Recipient: &first, Value: vesta.NewValue(1)})
	state.EnqueuePost(vesta.Message{Kind: vesta.Call, Sender: sender, Recipient: &second, Value: vesta.NewValue(2)})

	var order []vesta.Address
	observer.EXPECT().OnDispatch(gomock.Any(), 0, false).Do(func(msg vesta.Message, _ int, _ bool) {
		order = append(order, *msg.Recipient)
	}).Times(3)
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params vesta.Parameters) (vesta.Result, error) {
		if params.Recipient == first {
			params.Context.EnqueuePost(vesta.Message{Kind: vesta.Call, Sender: sender, Recipient: &third})
		}
		return vesta.Result{Success: true}, nil
	}).Times(3)

	if err := dispatcher.DrainPosts(state, Environment{}, observer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []vesta.Address{first, second, third}; !reflect.DeepEqual(want, order) {
		t.Errorf("unexpected dispatch order, wanted %v, got %v", want, order)
	}
	if state.PendingPosts() != 0 {
		t.Errorf("post queue not drained")
	}
	if want, got := vesta.NewValue(997), state.GetBalance(sender); want != got {
		t.Errorf("unexpected sender balance, wanted %v, got %v", want, got)
	}
}

func TestRunContext_GetBlockHash(t *testing.T) {
	previous := vesta.Hash{0x5e, 0x20}
	env := Environment{}
	env.BlockNumber = 10
	env.PreviousHash = previous
	context := runContext{session: &session{env: env}}

	if want, got := previous, context.GetBlockHash(9); want != got {
		t.Errorf("unexpected hash of previous block, wanted %v, got %v", want, got)
	}
	if want, got := vesta.Hash(crypto.Keccak256([]byte("8"))), context.GetBlockHash(8); want != got {
		t.Errorf("unexpected hash of older block, wanted %v, got %v", want, got)
	}
}
