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

import (
	"math"

	"github.com/ethereum/go-ethereum/crypto"
)

// EmptyCodeHash is the Keccak-256 hash of empty code.
var EmptyCodeHash = Hash(crypto.Keccak256(nil))

// HashCode computes the Keccak-256 hash identifying the given code.
func HashCode(code Code) Hash {
	return Hash(crypto.Keccak256(code))
}

// SizeInWords returns the number of words required to store the given size,
// checking that size+32 does not overflow uint64.
func SizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}
