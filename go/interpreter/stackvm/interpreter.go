// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stackvm

import (
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/vesta"
)

// status is enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning        status = iota // < all fine, ops are processed
	statusStopped                      // < execution stopped with a STOP
	statusReverted                     // < execution stopped with a REVERT
	statusReturned                     // < execution stopped with a RETURN
	statusSelfDestructed               // < execution stopped with a SELFDESTRUCT
)

// context is the execution environment of a single code execution. A new
// context is created for every run.
type context struct {
	// Inputs
	params    vesta.Parameters
	context   vesta.RunContext
	code      vesta.Code
	jumpDests jumpDests
	observer  vesta.OpcodeObserver

	// Execution state
	pc     uint64
	gas    vesta.Gas
	refund vesta.Gas
	stack  *stack
	memory *Memory

	// Intermediate data
	returnData []byte // < the result of the last nested call
	output     []byte // < the result of this execution

	// fault is an error of the environment that makes the result of this
	// execution undefined.
	fault error
}

// abort records a fault of the environment and stops the execution.
func (c *context) abort(err error) error {
	c.fault = fmt.Errorf("nested call failed: %w", err)
	return c.fault
}

// useGas reduces the gas level by the given amount. It fails with
// ErrOutOfGas if not enough gas is left.
func (c *context) useGas(amount vesta.Gas) error {
	if c.gas < 0 || amount < 0 || c.gas < amount {
		return vesta.ErrOutOfGas
	}
	c.gas -= amount
	return nil
}

// isAtLeast returns true if the interpreter is running at least at the
// given revision.
func (c *context) isAtLeast(revision vesta.Revision) bool {
	return c.params.Revision >= revision
}

func run(analyzer *analyzer, observer vesta.OpcodeObserver, params vesta.Parameters) (vesta.Result, error) {
	if len(params.Code) == 0 {
		return vesta.Result{
			Success: true,
			GasLeft: params.Gas,
		}, nil
	}

	ctxt := context{
		params:    params,
		context:   params.Context,
		code:      params.Code,
		jumpDests: analyzer.analyze(params.Code, params.CodeHash),
		observer:  observer,
		gas:       params.Gas,
		stack:     newStack(),
		memory:    NewMemory(),
	}
	defer returnStack(ctxt.stack)

	status, err := steps(&ctxt)
	return generateResult(status, err, &ctxt)
}

func generateResult(status status, failure error, ctxt *context) (vesta.Result, error) {
	if ctxt.fault != nil {
		return vesta.Result{}, ctxt.fault
	}
	if failure != nil {
		return vesta.Result{
			Success: false,
			Failure: failure,
		}, nil
	}
	switch status {
	case statusStopped, statusSelfDestructed:
		return vesta.Result{
			Success:   true,
			GasLeft:   ctxt.gas,
			GasRefund: ctxt.refund,
		}, nil
	case statusReturned:
		return vesta.Result{
			Success:   true,
			Output:    ctxt.output,
			GasLeft:   ctxt.gas,
			GasRefund: ctxt.refund,
		}, nil
	case statusReverted:
		return vesta.Result{
			Success: false,
			Output:  ctxt.output,
			GasLeft: ctxt.gas,
			Failure: vesta.ErrExecutionReverted,
		}, nil
	default:
		return vesta.Result{}, fmt.Errorf("unexpected error in interpreter, unknown status: %v", status)
	}
}

// steps runs the code of the given context until it halts. Execution
// violations (out of gas, stack underflow, ...) are reported as errors.
func steps(c *context) (status, error) {
	staticGasPrices := getStaticGasPrices(c.params.Revision)

	status := statusRunning
	for status == statusRunning {
		if c.pc >= uint64(len(c.code)) {
			return statusStopped, nil
		}

		op := OpCode(c.code[c.pc])

		if c.observer != nil {
			c.observer.OnOpcode(vesta.OpcodeStep{
				Depth:      c.params.Depth,
				Recipient:  c.params.Recipient,
				Pc:         c.pc,
				Op:         byte(op),
				OpName:     op.String(),
				Gas:        c.gas,
				Stack:      c.stack.words(),
				MemorySize: c.memory.length(),
			})
		}

		if !IsDefined(op, c.params.Revision) {
			return status, vesta.ErrInvalidOpcode
		}

		if err := checkStackLimits(c.stack.len(), op); err != nil {
			return status, err
		}

		if err := c.useGas(staticGasPrices[op]); err != nil {
			return status, err
		}

		var err error
		jumped := false

		switch {
		case PUSH1 <= op && op <= PUSH32:
			opPush(c, int(op-PUSH1)+1)
		case DUP1 <= op && op <= DUP16:
			c.stack.dup(int(op - DUP1))
		case SWAP1 <= op && op <= SWAP16:
			c.stack.swap(int(op-SWAP1) + 1)
		case LOG0 <= op && op <= LOG4:
			err = opLog(c, int(op-LOG0))
		default:
			switch op {
			case STOP:
				status = statusStopped
			case ADD:
				opAdd(c)
			case MUL:
				opMul(c)
			case SUB:
				opSub(c)
			case DIV:
				opDiv(c)
			case SDIV:
				opSDiv(c)
			case MOD:
				opMod(c)
			case SMOD:
				opSMod(c)
			case ADDMOD:
				opAddMod(c)
			case MULMOD:
				opMulMod(c)
			case EXP:
				err = opExp(c)
			case SIGNEXTEND:
				opSignExtend(c)
			case LT:
				opLt(c)
			case GT:
				opGt(c)
			case SLT:
				opSlt(c)
			case SGT:
				opSgt(c)
			case EQ:
				opEq(c)
			case ISZERO:
				opIszero(c)
			case AND:
				opAnd(c)
			case OR:
				opOr(c)
			case XOR:
				opXor(c)
			case NOT:
				opNot(c)
			case BYTE:
				opByte(c)
			case SHL:
				opShl(c)
			case SHR:
				opShr(c)
			case SAR:
				opSar(c)
			case SHA3:
				err = opSha3(c)
			case ADDRESS:
				opAddress(c)
			case BALANCE:
				opBalance(c)
			case ORIGIN:
				opOrigin(c)
			case CALLER:
				opCaller(c)
			case CALLVALUE:
				opCallvalue(c)
			case CALLDATALOAD:
				opCallDataload(c)
			case CALLDATASIZE:
				opCallDatasize(c)
			case CALLDATACOPY:
				err = genericDataCopy(c, c.params.Input)
			case CODESIZE:
				opCodeSize(c)
			case CODECOPY:
				err = genericDataCopy(c, c.code)
			case GASPRICE:
				opGasPrice(c)
			case EXTCODESIZE:
				opExtcodesize(c)
			case EXTCODECOPY:
				err = opExtCodeCopy(c)
			case RETURNDATASIZE:
				opReturnDataSize(c)
			case RETURNDATACOPY:
				err = opReturnDataCopy(c)
			case EXTCODEHASH:
				opExtcodehash(c)
			case BLOCKHASH:
				opBlockhash(c)
			case COINBASE:
				opCoinbase(c)
			case TIMESTAMP:
				opTimestamp(c)
			case NUMBER:
				opNumber(c)
			case DIFFICULTY:
				opDifficulty(c)
			case GASLIMIT:
				opGasLimit(c)
			case POP:
				c.stack.pop()
			case MLOAD:
				err = opMload(c)
			case MSTORE:
				err = opMstore(c)
			case MSTORE8:
				err = opMstore8(c)
			case SLOAD:
				opSload(c)
			case SSTORE:
				err = opSstore(c)
			case JUMP:
				err = opJump(c)
				jumped = true
			case JUMPI:
				jumped, err = opJumpi(c)
			case PC:
				c.stack.pushUndefined().SetUint64(c.pc)
			case MSIZE:
				c.stack.pushUndefined().SetUint64(c.memory.length())
			case GAS:
				c.stack.pushUndefined().SetUint64(uint64(c.gas))
			case JUMPDEST:
				// nothing
			case CREATE:
				err = genericCreate(c, vesta.Create)
			case CREATE2:
				err = genericCreate(c, vesta.Create2)
			case CALL:
				err = opCall(c)
			case CALLCODE:
				err = genericCall(c, vesta.CallCode)
			case DELEGATECALL:
				err = genericCall(c, vesta.DelegateCall)
			case STATICCALL:
				err = genericCall(c, vesta.StaticCall)
			case RETURN:
				err = opEndWithResult(c)
				status = statusReturned
			case REVERT:
				err = opEndWithResult(c)
				status = statusReverted
			case SELFDESTRUCT:
				err = opSelfdestruct(c)
				status = statusSelfDestructed
			default:
				err = vesta.ErrInvalidOpcode
			}
		}

		if err != nil {
			return status, err
		}
		if !jumped {
			c.pc++
		}
	}
	return status, nil
}
