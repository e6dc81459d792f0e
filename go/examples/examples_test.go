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
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Vesta/go/interpreter/stackvm"
	"github.com/Fantom-foundation/Vesta/go/processor/dispatch"
	"github.com/Fantom-foundation/Vesta/go/vesta"
)

func newProcessor(tb testing.TB) *dispatch.Processor {
	tb.Helper()
	interpreter, err := stackvm.NewInterpreter(stackvm.Config{})
	if err != nil {
		tb.Fatalf("failed to create interpreter: %v", err)
	}
	processor, err := dispatch.NewProcessor(dispatch.Config{Interpreter: interpreter})
	if err != nil {
		tb.Fatalf("failed to create processor: %v", err)
	}
	return processor
}

func TestExamples_ResultsMatchReference(t *testing.T) {
	processor := newProcessor(t)
	for _, example := range GetAllExamples() {
		for i := 0; i < 10; i++ {
			t.Run(fmt.Sprintf("%s-%d", example.Name, i), func(t *testing.T) {
				want := example.RunReference(i)
				got, err := example.RunOn(processor, i)
				if err != nil {
					t.Fatalf("error processing contract: %v", err)
				}
				if want != got.Result {
					t.Fatalf("incorrect result, wanted %d, got %d", want, got.Result)
				}
				if got.UsedGas <= 0 {
					t.Errorf("no gas was consumed")
				}
			})
		}
	}
}

func TestExamples_GasUsageIsDeterministic(t *testing.T) {
	processor := newProcessor(t)
	for _, example := range GetAllExamples() {
		first, err := example.RunOn(processor, 5)
		if err != nil {
			t.Fatalf("error processing %s: %v", example.Name, err)
		}
		second, err := example.RunOn(processor, 5)
		if err != nil {
			t.Fatalf("error processing %s: %v", example.Name, err)
		}
		if first != second {
			t.Errorf("different results for %s: %v vs %v", example.Name, first, second)
		}
	}
}

func TestExamples_GasBurnerConsumesRequestedGas(t *testing.T) {
	processor := newProcessor(t)
	example := GetGasBurnerExample()
	previous := vesta.Gas(0)
	for _, amount := range []int{1000, 10000, 100000} {
		got, err := example.RunOn(processor, amount)
		if err != nil {
			t.Fatalf("error processing contract: %v", err)
		}
		if got.UsedGas < vesta.Gas(amount) {
			t.Errorf("burning %d gas consumed only %d", amount, got.UsedGas)
		}
		if got.UsedGas <= previous {
			t.Errorf("burning %d gas consumed %d, not more than %d for less", amount, got.UsedGas, previous)
		}
		previous = got.UsedGas
	}
}

func TestGenerateAnalysisCode_HasMaximumSize(t *testing.T) {
	for _, filler := range [][]byte{{0x5b}, {0x60, 0}, make([]byte, 33)} {
		code := GenerateAnalysisCode(filler)
		if len(code) > maxAnalysisCodeLength || len(code) < maxAnalysisCodeLength-len(filler)-16 {
			t.Errorf("unexpected code size %d for filler of size %d", len(code), len(filler))
		}
	}
}

func BenchmarkExamples(b *testing.B) {
	processor := newProcessor(b)
	for _, example := range GetAllExamples() {
		b.Run(example.Name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := example.RunOn(processor, 10); err != nil {
					b.Fatalf("error processing contract: %v", err)
				}
			}
		})
	}
}
