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

import "github.com/Fantom-foundation/Vesta/go/vesta"

// journalEntry is a single undoable mutation of the ledger.
type journalEntry interface {
	revert(l *Ledger)
}

type (
	createChange struct {
		address vesta.Address
	}
	balanceChange struct {
		address vesta.Address
		prev    vesta.Value
	}
	nonceChange struct {
		address vesta.Address
		prev    uint64
	}
	codeChange struct {
		address vesta.Address
		prev    vesta.Code
	}
	storageChange struct {
		address vesta.Address
		key     vesta.Key
		prev    vesta.Word
	}
	selfDestructChange struct {
		address vesta.Address
	}
	logChange         struct{}
	postEnqueueChange struct{}
	postDequeueChange struct{}
)

func (ch createChange) revert(l *Ledger) {
	delete(l.dirty, ch.address)
}

func (ch balanceChange) revert(l *Ledger) {
	l.dirty[ch.address].Balance = ch.prev
}

func (ch nonceChange) revert(l *Ledger) {
	l.dirty[ch.address].Nonce = ch.prev
}

func (ch codeChange) revert(l *Ledger) {
	l.dirty[ch.address].Code = ch.prev
}

func (ch storageChange) revert(l *Ledger) {
	l.dirty[ch.address].setStorage(ch.key, ch.prev)
}

func (ch selfDestructChange) revert(l *Ledger) {
	delete(l.destructed, ch.address)
}

func (logChange) revert(l *Ledger) {
	l.logs = l.logs[:len(l.logs)-1]
}

func (postEnqueueChange) revert(l *Ledger) {
	l.posts = l.posts[:len(l.posts)-1]
}

func (postDequeueChange) revert(l *Ledger) {
	l.postHead--
}
