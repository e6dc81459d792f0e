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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Vesta/go/vesta"
)

func TestStack_PushPopPeek(t *testing.T) {
	s := newStack()
	defer returnStack(s)

	s.pushUndefined().SetUint64(1)
	s.pushUndefined().SetUint64(2)
	s.pushUndefined().SetUint64(3)

	if want, got := 3, s.len(); want != got {
		t.Fatalf("unexpected stack size, wanted %d, got %d", want, got)
	}
	if want, got := uint64(3), s.peek().Uint64(); want != got {
		t.Errorf("unexpected top, wanted %d, got %d", want, got)
	}
	if want, got := uint64(1), s.peekN(2).Uint64(); want != got {
		t.Errorf("unexpected third element, wanted %d, got %d", want, got)
	}
	if want, got := uint64(3), s.pop().Uint64(); want != got {
		t.Errorf("unexpected popped element, wanted %d, got %d", want, got)
	}
	if want, got := 2, s.len(); want != got {
		t.Errorf("unexpected stack size, wanted %d, got %d", want, got)
	}
}

func TestStack_SwapAndDup(t *testing.T) {
	s := newStack()
	defer returnStack(s)

	for i := uint64(1); i <= 3; i++ {
		s.pushUndefined().SetUint64(i)
	}
	s.swap(2)
	if want, got := []vesta.Word{{31: 3}, {31: 2}, {31: 1}}, s.words(); !equalWords(want, got) {
		t.Errorf("unexpected stack after swap, wanted %v, got %v", want, got)
	}
	s.dup(1)
	if want, got := []vesta.Word{{31: 3}, {31: 2}, {31: 1}, {31: 2}}, s.words(); !equalWords(want, got) {
		t.Errorf("unexpected stack after dup, wanted %v, got %v", want, got)
	}
}

func TestStack_ReturnedStacksAreEmpty(t *testing.T) {
	s := newStack()
	s.pushUndefined().SetUint64(1)
	returnStack(s)

	s = newStack()
	defer returnStack(s)
	if s.len() != 0 {
		t.Errorf("stack obtained from pool is not empty")
	}
}

func TestStack_CheckStackLimits(t *testing.T) {
	tests := map[string]struct {
		size int
		op   OpCode
		want error
	}{
		"add with two":      {2, ADD, nil},
		"add with one":      {1, ADD, vesta.ErrStackUnderflow},
		"push on full":      {maxStackSize, PUSH1, vesta.ErrStackOverflow},
		"push on almost":    {maxStackSize - 1, PUSH1, nil},
		"pop on full":       {maxStackSize, POP, nil},
		"call with six":     {6, CALL, vesta.ErrStackUnderflow},
		"dup16 with 16":     {16, DUP16, nil},
		"dup16 with 15":     {15, DUP16, vesta.ErrStackUnderflow},
		"swap16 with 16":    {16, SWAP16, vesta.ErrStackUnderflow},
		"swap16 on full":    {maxStackSize, SWAP16, nil},
		"log4 with six":     {6, LOG4, nil},
		"create2 with four": {4, CREATE2, nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := checkStackLimits(test.size, test.op); !errors.Is(got, test.want) {
				t.Errorf("unexpected result, wanted %v, got %v", test.want, got)
			}
		})
	}
}

func equalWords(a, b []vesta.Word) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
