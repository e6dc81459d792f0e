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

import "math/big"

// WorldState is the account view a single transaction reads and mutates.
// Unknown addresses read as zero-valued accounts; the first write creates
// the account.
type WorldState interface {
	AccountExists(Address) bool

	GetBalance(Address) Value
	SetBalance(Address, Value)

	// DeltaBalance applies a signed change to the balance of the given
	// account. It fails with ErrInsufficientBalance if the result would be
	// negative and with ErrBalanceOverflow if it exceeds 256 bits. A failed
	// update leaves the balance untouched.
	DeltaBalance(Address, *big.Int) error

	GetNonce(Address) uint64
	SetNonce(Address, uint64)

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	GetCodeSize(Address) int
	SetCode(Address, Code)

	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word)

	// SelfDestruct marks addr for removal at the end of the transaction.
	// Returns true if it is the first time destroying this addr in the ongoing
	// transaction, false otherwise.
	SelfDestruct(addr Address) bool
	HasSelfDestructed(addr Address) bool
}

// TransactionContext extends the world state by the transaction scoped
// facilities: undo snapshots, logs and the queue of deferred messages.
type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	EmitLog(Log)
	GetLogs() []Log

	// EnqueuePost appends a message to be dispatched after the top-level
	// call of the current transaction has returned.
	EnqueuePost(Message)
	// DequeuePost removes the oldest pending message, if any.
	DequeuePost() (Message, bool)
	PendingPosts() int
}

type Address [20]byte

type Key [32]byte

type Word [32]byte

type Value [32]byte

type Hash [32]byte

type Code []byte

type Data []byte

type Gas int64

type Snapshot int

type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}
