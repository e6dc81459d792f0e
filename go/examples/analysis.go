// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"github.com/ethereum/go-ethereum/core/vm"
)

// maxAnalysisCodeLength is the size of the generated analysis codes, the
// largest contract code that can be deployed.
const maxAnalysisCodeLength = 0x6000

// GenerateAnalysisCode creates a code of maximum size consisting mostly of
// repetitions of the given filler. The filler is skipped during execution,
// so the cost of running the code is dominated by its jump destination
// analysis. The code returns its argument.
func GenerateAnalysisCode(filler []byte) []byte {
	head := []byte{
		byte(vm.PUSH1), 4,
		byte(vm.CALLDATALOAD),
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),

		// the jump target is filled in below
		byte(vm.PUSH2), 0xFF, 0xFF,
		byte(vm.JUMP),
	}
	tail := []byte{
		byte(vm.JUMPDEST),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}

	repetitions := (maxAnalysisCodeLength - len(head) - len(tail)) / len(filler)
	code := make([]byte, 0, maxAnalysisCodeLength)
	code = append(code, head...)
	for i := 0; i < repetitions; i++ {
		code = append(code, filler...)
	}
	target := len(code)
	code[7] = byte(target >> 8)
	code[8] = byte(target)
	return append(code, tail...)
}

func getAnalysisExample(name string, filler []byte) Example {
	return Example{
		Name:      name,
		code:      GenerateAnalysisCode(filler),
		reference: analysis,
	}
}

func GetJumpdestAnalysisExample() Example {
	return getAnalysisExample("jumpdest", []byte{byte(vm.JUMPDEST)})
}

func GetStopAnalysisExample() Example {
	return getAnalysisExample("stop", []byte{byte(vm.STOP)})
}

func GetPush1AnalysisExample() Example {
	return getAnalysisExample("push1", []byte{byte(vm.PUSH1), 0})
}

func GetPush32AnalysisExample() Example {
	return getAnalysisExample("push32", append([]byte{byte(vm.PUSH32)}, make([]byte, 32)...))
}

func analysis(x int) int {
	return x
}
