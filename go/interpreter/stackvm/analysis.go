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
	"github.com/Fantom-foundation/Vesta/go/vesta"
	lru "github.com/hashicorp/golang-lru/v2"
)

// jumpDests marks the positions of valid JUMPDEST instructions of a code.
// Bytes covered by PUSH data are never valid destinations.
type jumpDests []uint64

func (d jumpDests) isValid(pos uint64) bool {
	word := pos / 64
	if word >= uint64(len(d)) {
		return false
	}
	return d[word]&(1<<(pos%64)) != 0
}

func analyzeJumpDests(code vesta.Code) jumpDests {
	res := make(jumpDests, (len(code)+63)/64)
	for pos := 0; pos < len(code); {
		op := OpCode(code[pos])
		if op == JUMPDEST {
			res[pos/64] |= 1 << (pos % 64)
		}
		pos += op.Width()
	}
	return res
}

// analyzer caches jump destination analyses by code hash.
type analyzer struct {
	cache *lru.Cache[vesta.Hash, jumpDests]
}

// newAnalyzer creates an analyzer retaining the results of up to capacity
// codes. A non-positive capacity disables caching.
func newAnalyzer(capacity int) (*analyzer, error) {
	if capacity <= 0 {
		return &analyzer{}, nil
	}
	cache, err := lru.New[vesta.Hash, jumpDests](capacity)
	if err != nil {
		return nil, err
	}
	return &analyzer{cache: cache}, nil
}

// analyze returns the jump destinations of the given code. If the hash is
// not nil, it is assumed to be the hash of the code and used as cache key.
func (a *analyzer) analyze(code vesta.Code, codeHash *vesta.Hash) jumpDests {
	if a.cache == nil || codeHash == nil {
		return analyzeJumpDests(code)
	}
	if res, found := a.cache.Get(*codeHash); found {
		return res
	}
	res := analyzeJumpDests(code)
	a.cache.Add(*codeHash, res)
	return res
}
