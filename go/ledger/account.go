// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"maps"

	"github.com/Fantom-foundation/Vesta/go/vesta"
)

// Account is the full state of a single address.
type Account struct {
	Nonce   uint64
	Balance vesta.Value
	Code    vesta.Code
	Storage map[vesta.Key]vesta.Word
}

// Clone creates a deep copy of the account. Code is shared since it is never
// modified in place.
func (a *Account) Clone() *Account {
	res := &Account{
		Nonce:   a.Nonce,
		Balance: a.Balance,
		Code:    a.Code,
		Storage: maps.Clone(a.Storage),
	}
	if res.Storage == nil {
		res.Storage = map[vesta.Key]vesta.Word{}
	}
	return res
}

// IsEmpty is true for accounts with zero nonce, zero balance and no code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && len(a.Code) == 0
}

func (a *Account) setStorage(key vesta.Key, value vesta.Word) {
	if value == (vesta.Word{}) {
		delete(a.Storage, key)
		return
	}
	a.Storage[key] = value
}
