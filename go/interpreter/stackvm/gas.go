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

import "github.com/Fantom-foundation/Vesta/go/vesta"

const (
	CallNewAccountGas    vesta.Gas = 25000 // Paid for CALL when the destination address is created by the call.
	CallValueTransferGas vesta.Gas = 9000  // Paid for CALL when the value transfer is non-zero.
	CallStipend          vesta.Gas = 2300  // Free gas given to the callee of a value transfer.

	CreateBySelfdestructGas vesta.Gas = 25000 // Paid for SELFDESTRUCT when the beneficiary is created by it.
	SelfdestructRefundGas   vesta.Gas = 24000 // Refunded on the first destruction of an account.

	SstoreSetGas    vesta.Gas = 20000 // Once per SSTORE from zero to non-zero.
	SstoreResetGas  vesta.Gas = 5000  // Once per SSTORE not changing the zeroness of a slot.
	SstoreRefundGas vesta.Gas = 15000 // Refunded for SSTORE from non-zero to zero.

	CreateDataGas vesta.Gas = 200 // Paid per byte of deployed code.

	LogGas      vesta.Gas = 375 // Base cost of a LOG instruction and per topic.
	LogDataGas  vesta.Gas = 8   // Per byte of logged data.
	CopyGas     vesta.Gas = 3   // Per word copied by *COPY instructions.
	Sha3WordGas vesta.Gas = 6   // Per word hashed by SHA3 and CREATE2.

	// MaxCodeSize is the maximum size of deployed code since SpuriousDragon.
	MaxCodeSize = 24576
)

var staticGasPrices = func() (res [vesta.NewestRevision + 1][256]vesta.Gas) {
	for _, revision := range vesta.GetAllKnownRevisions() {
		for i := 0; i < 256; i++ {
			res[revision][i] = getStaticGasPrice(OpCode(i), revision)
		}
	}
	return
}()

func getStaticGasPrices(revision vesta.Revision) *[256]vesta.Gas {
	return &staticGasPrices[revision]
}

func getStaticGasPrice(op OpCode, revision vesta.Revision) vesta.Gas {
	tangerine := revision >= vesta.R02_TangerineWhistle

	switch {
	case PUSH1 <= op && op <= PUSH32,
		DUP1 <= op && op <= DUP16,
		SWAP1 <= op && op <= SWAP16:
		return 3
	case LOG0 <= op && op <= LOG4:
		return LogGas * vesta.Gas(1+op-LOG0)
	}

	switch op {
	case STOP, RETURN, REVERT, INVALID, SSTORE:
		return 0
	case JUMPDEST:
		return 1
	case ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE, CODESIZE,
		GASPRICE, COINBASE, TIMESTAMP, NUMBER, DIFFICULTY, GASLIMIT,
		POP, PC, MSIZE, GAS, RETURNDATASIZE:
		return 2
	case ADD, SUB, LT, GT, SLT, SGT, EQ, ISZERO, AND, OR, XOR, NOT, BYTE,
		SHL, SHR, SAR, CALLDATALOAD, MLOAD, MSTORE, MSTORE8,
		CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		return 3
	case MUL, DIV, SDIV, MOD, SMOD, SIGNEXTEND:
		return 5
	case ADDMOD, MULMOD, JUMP:
		return 8
	case EXP, JUMPI:
		return 10
	case BLOCKHASH:
		return 20
	case SHA3:
		return 30
	case BALANCE:
		if tangerine {
			return 400
		}
		return 20
	case EXTCODESIZE, EXTCODECOPY:
		if tangerine {
			return 700
		}
		return 20
	case EXTCODEHASH:
		return 400
	case SLOAD:
		if tangerine {
			return 200
		}
		return 50
	case CALL, CALLCODE, DELEGATECALL:
		if tangerine {
			return 700
		}
		return 40
	case STATICCALL:
		return 700
	case CREATE, CREATE2:
		return 32000
	case SELFDESTRUCT:
		if tangerine {
			return 5000
		}
		return 0
	}
	return 0
}

// expByteGas is the price per byte of the exponent of EXP.
func expByteGas(revision vesta.Revision) vesta.Gas {
	if revision >= vesta.R03_SpuriousDragon {
		return 50
	}
	return 10
}

// getDynamicCostsForSstore returns the cost and refund of writing value to a
// slot currently holding current.
func getDynamicCostsForSstore(current, value vesta.Word) (cost, refund vesta.Gas) {
	zero := vesta.Word{}
	switch {
	case current == zero && value != zero:
		return SstoreSetGas, 0
	case current != zero && value == zero:
		return SstoreResetGas, SstoreRefundGas
	default:
		return SstoreResetGas, 0
	}
}

// callNewAccountCost is the charge for a value transfer that may bring the
// recipient into existence. Before SpuriousDragon any call to a missing
// account is charged; afterwards only transfers of value to empty accounts are.
func callNewAccountCost(c *context, kind vesta.CallKind, recipient vesta.Address, transfersValue bool) vesta.Gas {
	if kind != vesta.Call {
		return 0
	}
	if c.isAtLeast(vesta.R03_SpuriousDragon) {
		if transfersValue && isEmpty(c.context, recipient) {
			return CallNewAccountGas
		}
		return 0
	}
	if !c.context.AccountExists(recipient) {
		return CallNewAccountGas
	}
	return 0
}

func selfDestructNewAccountCost(c *context, beneficiary vesta.Address) vesta.Gas {
	if !c.isAtLeast(vesta.R02_TangerineWhistle) {
		return 0
	}
	if c.isAtLeast(vesta.R03_SpuriousDragon) {
		balance := c.context.GetBalance(c.params.Recipient)
		if !balance.IsZero() && isEmpty(c.context, beneficiary) {
			return CreateBySelfdestructGas
		}
		return 0
	}
	if !c.context.AccountExists(beneficiary) {
		return CreateBySelfdestructGas
	}
	return 0
}

func isEmpty(state vesta.WorldState, addr vesta.Address) bool {
	return state.GetNonce(addr) == 0 && state.GetBalance(addr).IsZero() && state.GetCodeSize(addr) == 0
}

// nestedCallGas computes the allowance granted to a nested call. Before
// TangerineWhistle the requested amount is forwarded as is and has to be
// covered by the caller. From TangerineWhistle on all but one 64th of the
// available gas may be forwarded.
func nestedCallGas(c *context, requested uint64, requestedFits bool) (vesta.Gas, error) {
	if c.isAtLeast(vesta.R02_TangerineWhistle) {
		limit := c.gas - c.gas/64
		if requestedFits && requested <= uint64(limit) {
			return vesta.Gas(requested), nil
		}
		return limit, nil
	}
	if !requestedFits || requested > uint64(c.gas) {
		return 0, vesta.ErrOutOfGas
	}
	return vesta.Gas(requested), nil
}

// nestedCreateGas is the allowance granted to the init code of a nested
// contract creation.
func nestedCreateGas(c *context) vesta.Gas {
	if c.isAtLeast(vesta.R02_TangerineWhistle) {
		return c.gas - c.gas/64
	}
	return c.gas
}
