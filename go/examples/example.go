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
	"encoding/hex"
	"fmt"

	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/vesta"
)

// Example is an executable description of a contract and an entry point with
// a (int)->int signature.
type Example struct {
	Name      string
	code      vesta.Code    // the contract code
	function  uint32        // identifier of the function in the contract to be called
	reference func(int) int // a reference function computing the same function
}

type Result struct {
	Result  int
	UsedGas vesta.Gas
}

// GetAllExamples lists the examples of this package.
func GetAllExamples() []Example {
	return []Example{
		GetArithmeticExample(),
		GetGasBurnerExample(),
		GetSha3Example(),
		GetStaticOverheadExample(),
		GetJumpdestAnalysisExample(),
		GetStopAnalysisExample(),
		GetPush1AnalysisExample(),
		GetPush32AnalysisExample(),
	}
}

const gasLimit = 10_000_000_000

var contractAddress = vesta.Address{0x42}

// RunOn runs this example as the single transaction of a block on the given
// processor, using the given argument. The contract is installed in a fresh
// ledger, so runs are independent of each other.
func (e *Example) RunOn(processor vesta.Processor, argument int) (Result, error) {
	state := ledger.New(map[vesta.Address]ledger.Account{
		contractAddress: {Code: e.code},
	})
	recipient := contractAddress
	transaction := vesta.Transaction{
		Recipient: &recipient,
		Input:     encodeArgument(e.function, argument),
		GasLimit:  gasLimit,
	}
	block := vesta.BlockParameters{Revision: vesta.NewestRevision}

	receipt, err := processor.Run(block, transaction, state)
	if err != nil {
		return Result{}, err
	}
	if !receipt.Success {
		return Result{}, fmt.Errorf("execution of %s failed: %w", e.Name, receipt.Failure)
	}

	result, err := decodeOutput(receipt.Output)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Result:  result,
		UsedGas: receipt.GasUsed,
	}, nil
}

// RunReference runs the reference function of this example to produce the
// expected result.
func (e *Example) RunReference(argument int) int {
	return e.reference(argument)
}

func encodeArgument(function uint32, arg int) vesta.Data {
	// 4 byte function selector followed by the argument padded to 32 bytes
	data := make(vesta.Data, 4+32)

	data[0] = byte(function >> 24)
	data[1] = byte(function >> 16)
	data[2] = byte(function >> 8)
	data[3] = byte(function)

	data[4+28] = byte(arg >> 24)
	data[5+28] = byte(arg >> 16)
	data[6+28] = byte(arg >> 8)
	data[7+28] = byte(arg)

	return data
}

func decodeOutput(output vesta.Data) (int, error) {
	if len(output) != 32 {
		return 0, fmt.Errorf("unexpected length of output; wanted 32, got %d", len(output))
	}
	return (int(output[28]) << 24) | (int(output[29]) << 16) | (int(output[30]) << 8) | (int(output[31]) << 0), nil
}

// mustDecode converts compiled contract code embedded as hex string.
func mustDecode(name, code string) vesta.Code {
	res, err := hex.DecodeString(code)
	if err != nil {
		panic(fmt.Sprintf("invalid code of example %s: %v", name, err))
	}
	return res
}
