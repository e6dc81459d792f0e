// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/Fantom-foundation/Vesta/go/ledger"
	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"
)

// Verify compares the outcome of a test run with the expectations of the
// test. All mismatches are reported in a single aggregated error. A failing
// execution is not a mismatch by itself; tests listing neither a post-state
// nor a remaining gas expect the execution to fail.
func Verify(test Test, outcome Outcome) error {
	if test.Post == nil && test.Gas == nil {
		if outcome.Success {
			return fmt.Errorf("expected execution to fail, but it succeeded")
		}
		return nil
	}

	var errs *multierror.Error
	if !bytes.Equal(test.Out, outcome.Out) {
		errs = multierror.Append(errs, fmt.Errorf("unexpected output: wanted %v, got %v", test.Out, hexOf(outcome.Out)))
	}
	if test.Gas != nil {
		if want := test.Gas.Big(); !want.IsInt64() || want.Int64() != int64(outcome.Gas) {
			errs = multierror.Append(errs, fmt.Errorf("unexpected remaining gas: wanted %v, got %d", want, outcome.Gas))
		}
	}
	errs = multierror.Append(errs, verifyCallCreates(test.CallCreates, outcome.CallCreates)...)

	// sorted for a stable error report
	names := maps.Keys(test.Post)
	slices.Sort(names)
	for _, name := range names {
		want := test.Post[name]
		addr, err := ParseAddress(name)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid post-state: %w", err))
			continue
		}
		got := outcome.Post[addr]
		errs = multierror.Append(errs, verifyAccount(addr, want, got)...)
	}
	return errs.ErrorOrNil()
}

func verifyCallCreates(want []CallCreate, got []vesta.CallRecord) []error {
	if len(want) != len(got) {
		return []error{fmt.Errorf("unexpected number of callcreates: wanted %d, got %d: %v", len(want), len(got), got)}
	}
	var errs []error
	for i := range want {
		expected, actual := want[i], got[i]
		if !bytes.Equal(expected.Data, actual.Data) {
			errs = append(errs, fmt.Errorf("callcreate %d: unexpected data: wanted %v, got %v", i, expected.Data, hexOf(actual.Data)))
		}
		if gas := expected.GasLimit.Big(); !gas.IsInt64() || gas.Int64() != int64(actual.GasLimit) {
			errs = append(errs, fmt.Errorf("callcreate %d: unexpected gas limit: wanted %v, got %d", i, gas, actual.GasLimit))
		}
		if value, err := expected.Value.Value(); err != nil || value != actual.Value {
			errs = append(errs, fmt.Errorf("callcreate %d: unexpected value: wanted %v, got %v", i, expected.Value.Big(), actual.Value.ToBig()))
		}
		if err := verifyDestination(expected.Destination, actual.Destination); err != nil {
			errs = append(errs, fmt.Errorf("callcreate %d: %w", i, err))
		}
	}
	return errs
}

func verifyDestination(want string, got *vesta.Address) error {
	if want == "" {
		if got != nil {
			return fmt.Errorf("expected creation, got call to %v", formatAddress(*got))
		}
		return nil
	}
	addr, err := ParseAddress(want)
	if err != nil {
		return err
	}
	if got == nil {
		return fmt.Errorf("expected call to %v, got creation", want)
	}
	if addr != *got {
		return fmt.Errorf("unexpected destination: wanted %v, got %v", want, formatAddress(*got))
	}
	return nil
}

func verifyAccount(addr vesta.Address, want Account, got ledger.Account) []error {
	var errs []error
	name := formatAddress(addr)
	if nonce, err := want.Nonce.Uint64(); err != nil || nonce != got.Nonce {
		errs = append(errs, fmt.Errorf("%v: unexpected nonce: wanted %v, got %d", name, want.Nonce.Big(), got.Nonce))
	}
	if balance, err := want.Balance.Value(); err != nil || balance != got.Balance {
		errs = append(errs, fmt.Errorf("%v: unexpected balance: wanted %v, got %v", name, want.Balance.Big(), got.Balance.ToBig()))
	}
	if !bytes.Equal(want.Code, got.Code) {
		errs = append(errs, fmt.Errorf("%v: unexpected code: wanted %v, got %v", name, want.Code, hexOf(got.Code)))
	}

	keys := maps.Keys(want.Storage)
	keys = append(keys, maps.Keys(got.Storage)...)
	slices.SortFunc(keys, func(a, b vesta.Key) int { return slices.Compare(a[:], b[:]) })
	keys = slices.Compact(keys)
	for _, key := range keys {
		if wanted, found := want.Storage[key], got.Storage[key]; wanted != found {
			errs = append(errs, fmt.Errorf("%v: unexpected storage at %v: wanted %v, got %v", name, key, wanted, found))
		}
	}
	return errs
}

func hexOf(data []byte) string {
	return fmt.Sprintf("0x%x", data)
}
