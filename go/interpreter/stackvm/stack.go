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
	"sync"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/holiman/uint256"
)

const maxStackSize = 1024

// stack is the 1024-element 256-bit word-wide stack used by the interpreter.
// Its size is fixed to avoid reallocations during execution. Bounds are not
// checked here; the interpreter validates the stack requirements of each
// instruction before executing it.
//
// Stacks are recycled through a pool. Use newStack() to obtain an empty
// stack and returnStack(s) to hand it back once the execution is done.
type stack struct {
	data         [maxStackSize]uint256.Int
	stackPointer int
}

// pushUndefined adds an element with an undefined value to the top of the
// stack and returns a pointer to it to be filled in by the caller.
func (s *stack) pushUndefined() *uint256.Int {
	s.stackPointer++
	return &s.data[s.stackPointer-1]
}

// pop removes the top element and returns a pointer to it. The pointer is
// only valid until the next push.
func (s *stack) pop() *uint256.Int {
	s.stackPointer--
	return &s.data[s.stackPointer]
}

func (s *stack) peek() *uint256.Int {
	return &s.data[s.stackPointer-1]
}

// peekN returns the n-th element from the top; peekN(0) equals peek().
func (s *stack) peekN(n int) *uint256.Int {
	return &s.data[s.stackPointer-n-1]
}

func (s *stack) len() int {
	return s.stackPointer
}

// swap exchanges the top element with the n-th element below it.
func (s *stack) swap(n int) {
	s.data[s.len()-n-1], s.data[s.len()-1] = s.data[s.len()-1], s.data[s.len()-n-1]
}

// dup pushes a copy of the n-th element from the top; dup(0) duplicates the
// top element.
func (s *stack) dup(n int) {
	s.data[s.stackPointer] = s.data[s.stackPointer-n-1]
	s.stackPointer++
}

// words copies the current content, bottom element first.
func (s *stack) words() []vesta.Word {
	res := make([]vesta.Word, s.len())
	for i := range res {
		res[i] = s.data[i].Bytes32()
	}
	return res
}

var stackPool = sync.Pool{
	New: func() interface{} {
		return &stack{}
	},
}

func newStack() *stack {
	return stackPool.Get().(*stack)
}

// returnStack hands the stack back to the pool. A stack may only be returned
// once.
func returnStack(s *stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}

// stackBounds describes the stack requirements of an instruction: it needs
// at least minLen elements and may be executed with at most maxLen elements.
type stackBounds struct {
	minLen int
	maxLen int
}

var instructionStackBounds = func() (res [256]stackBounds) {
	for i := range res {
		pops, pushes := stackUsage(OpCode(i))
		res[i] = newStackBounds(pops, pushes)
	}
	return
}()

func newStackBounds(pops, pushes int) stackBounds {
	limit := maxStackSize
	if pushes > pops {
		limit -= pushes - pops
	}
	return stackBounds{minLen: pops, maxLen: limit}
}

func checkStackLimits(size int, op OpCode) error {
	bounds := instructionStackBounds[op]
	if size < bounds.minLen {
		return vesta.ErrStackUnderflow
	}
	if size > bounds.maxLen {
		return vesta.ErrStackOverflow
	}
	return nil
}

// stackUsage returns the number of elements consumed and produced by the
// given instruction.
func stackUsage(op OpCode) (pops, pushes int) {
	switch {
	case PUSH1 <= op && op <= PUSH32:
		return 0, 1
	case DUP1 <= op && op <= DUP16:
		n := int(op-DUP1) + 1
		return n, n + 1
	case SWAP1 <= op && op <= SWAP16:
		n := int(op-SWAP1) + 2
		return n, n
	case LOG0 <= op && op <= LOG4:
		return int(op-LOG0) + 2, 0
	}

	switch op {
	case STOP, JUMPDEST, INVALID:
		return 0, 0
	case ADD, SUB, MUL, DIV, SDIV, MOD, SMOD, EXP, SIGNEXTEND,
		SHA3, LT, GT, SLT, SGT, EQ, AND, XOR, OR, BYTE,
		SHL, SHR, SAR:
		return 2, 1
	case ADDMOD, MULMOD:
		return 3, 1
	case ISZERO, NOT, BALANCE, CALLDATALOAD, EXTCODESIZE,
		BLOCKHASH, MLOAD, SLOAD, EXTCODEHASH:
		return 1, 1
	case MSIZE, ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE,
		CODESIZE, GASPRICE, COINBASE, TIMESTAMP, NUMBER,
		DIFFICULTY, GASLIMIT, PC, GAS, RETURNDATASIZE:
		return 0, 1
	case POP, JUMP, SELFDESTRUCT:
		return 1, 0
	case MSTORE, MSTORE8, SSTORE, JUMPI, RETURN, REVERT:
		return 2, 0
	case CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		return 3, 0
	case EXTCODECOPY:
		return 4, 0
	case CREATE:
		return 3, 1
	case CREATE2:
		return 4, 1
	case DELEGATECALL, STATICCALL:
		return 6, 1
	case CALL, CALLCODE:
		return 7, 1
	}
	return 0, 0
}
