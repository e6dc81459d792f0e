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

// GetStaticOverheadExample provides a minimal contract touching the input,
// the memory and the output. It represents the worst case ratio of per-call
// overhead to useful work.
func GetStaticOverheadExample() Example {
	code := []byte{
		// memory[28:32] = input[32:36]
		byte(vm.PUSH1), 4,
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 28,
		byte(vm.CALLDATACOPY),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}

	return Example{
		Name:      "static_overhead",
		code:      code,
		reference: staticOverheadRef,
	}
}

func staticOverheadRef(x int) int {
	return x
}
