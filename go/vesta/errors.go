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

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Call-scoped failures. Any of those terminates only the current call; the
// caller observes a failed result and continues.
const (
	ErrOutOfGas                 = ConstError("out of gas")
	ErrInvalidOpcode            = ConstError("invalid opcode")
	ErrStackUnderflow           = ConstError("stack underflow")
	ErrStackOverflow            = ConstError("stack overflow")
	ErrInvalidJump              = ConstError("invalid jump destination")
	ErrInsufficientBalance      = ConstError("insufficient balance")
	ErrCallDepthExceeded        = ConstError("max call depth exceeded")
	ErrWriteProtection          = ConstError("write protection")
	ErrReturnDataOutOfBounds    = ConstError("return data out of bounds")
	ErrExecutionReverted        = ConstError("execution reverted")
	ErrContractAddressCollision = ConstError("contract address collision")
	ErrMaxCodeSizeExceeded      = ConstError("max code size exceeded")
	ErrBalanceOverflow          = ConstError("balance overflow")
	ErrNonceOverflow            = ConstError("nonce overflow")
)

// Usage errors reported to the code driving the engine.
const (
	ErrInvalidMessage = ConstError("invalid message")
	ErrPendingPosts   = ConstError("post queue not drained")
)
