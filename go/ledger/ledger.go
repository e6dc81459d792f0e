// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledger provides an in-memory world state for the execution of
// transactions. Committed accounts are kept in an immutable radix tree;
// mutations of the ongoing transaction are applied to working copies and
// recorded in an undo journal, which makes snapshots cheap to create and
// restoring them proportional to the number of mutations since.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	iradix "github.com/hashicorp/go-immutable-radix"
)

// Ledger implements vesta.TransactionContext and vesta.Committer. A Ledger
// is not safe for concurrent use.
type Ledger struct {
	committed *iradix.Tree

	dirty      map[vesta.Address]*Account
	destructed map[vesta.Address]struct{}
	logs       []vesta.Log
	posts      []vesta.Message
	postHead   int

	journal []journalEntry
}

var (
	_ vesta.TransactionContext = (*Ledger)(nil)
	_ vesta.Committer          = (*Ledger)(nil)
)

// New creates a ledger whose committed state holds the given accounts.
func New(accounts map[vesta.Address]Account) *Ledger {
	txn := iradix.New().Txn()
	for addr, account := range accounts {
		txn.Insert(addr[:], account.Clone())
	}
	return &Ledger{
		committed:  txn.Commit(),
		dirty:      map[vesta.Address]*Account{},
		destructed: map[vesta.Address]struct{}{},
	}
}

// get returns the current view of the account or nil if it does not exist.
// The result must not be modified.
func (l *Ledger) get(addr vesta.Address) *Account {
	if account, found := l.dirty[addr]; found {
		return account
	}
	if value, found := l.committed.Get(addr[:]); found {
		return value.(*Account)
	}
	return nil
}

// modify returns a working copy of the account ready to be mutated,
// creating the account if it does not exist yet.
func (l *Ledger) modify(addr vesta.Address) *Account {
	if account, found := l.dirty[addr]; found {
		return account
	}
	if value, found := l.committed.Get(addr[:]); found {
		account := value.(*Account).Clone()
		l.dirty[addr] = account
		return account
	}
	account := &Account{Storage: map[vesta.Key]vesta.Word{}}
	l.dirty[addr] = account
	l.journal = append(l.journal, createChange{address: addr})
	return account
}

func (l *Ledger) AccountExists(addr vesta.Address) bool {
	return l.get(addr) != nil
}

// GetAccount returns a copy of the current state of the given account and
// whether it exists.
func (l *Ledger) GetAccount(addr vesta.Address) (Account, bool) {
	account := l.get(addr)
	if account == nil {
		return Account{}, false
	}
	return *account.Clone(), true
}

// Accounts returns a copy of all existing accounts, including the pending
// mutations of the ongoing transaction.
func (l *Ledger) Accounts() map[vesta.Address]Account {
	res := map[vesta.Address]Account{}
	l.committed.Root().Walk(func(k []byte, v interface{}) bool {
		res[vesta.Address(k)] = *v.(*Account).Clone()
		return false
	})
	for addr, account := range l.dirty {
		res[addr] = *account.Clone()
	}
	return res
}

func (l *Ledger) GetBalance(addr vesta.Address) vesta.Value {
	if account := l.get(addr); account != nil {
		return account.Balance
	}
	return vesta.Value{}
}

func (l *Ledger) SetBalance(addr vesta.Address, value vesta.Value) {
	account := l.modify(addr)
	l.journal = append(l.journal, balanceChange{address: addr, prev: account.Balance})
	account.Balance = value
}

func (l *Ledger) DeltaBalance(addr vesta.Address, delta *big.Int) error {
	if delta == nil || delta.Sign() == 0 {
		return nil
	}
	current := l.GetBalance(addr)
	var (
		updated vesta.Value
		failed  bool
	)
	if delta.Sign() > 0 {
		increment, ok := vesta.ValueFromBig(delta)
		if !ok {
			return fmt.Errorf("%w: %v + %v", vesta.ErrBalanceOverflow, current, delta)
		}
		if updated, failed = vesta.Add(current, increment); failed {
			return fmt.Errorf("%w: %v + %v", vesta.ErrBalanceOverflow, current, delta)
		}
	} else {
		decrement, ok := vesta.ValueFromBig(new(big.Int).Neg(delta))
		if !ok {
			return fmt.Errorf("%w: %v of %v requires %v", vesta.ErrInsufficientBalance, addr, current, delta)
		}
		if updated, failed = vesta.Sub(current, decrement); failed {
			return fmt.Errorf("%w: %v of %v requires %v", vesta.ErrInsufficientBalance, addr, current, delta)
		}
	}
	l.SetBalance(addr, updated)
	return nil
}

func (l *Ledger) GetNonce(addr vesta.Address) uint64 {
	if account := l.get(addr); account != nil {
		return account.Nonce
	}
	return 0
}

func (l *Ledger) SetNonce(addr vesta.Address, nonce uint64) {
	account := l.modify(addr)
	l.journal = append(l.journal, nonceChange{address: addr, prev: account.Nonce})
	account.Nonce = nonce
}

func (l *Ledger) GetCode(addr vesta.Address) vesta.Code {
	if account := l.get(addr); account != nil {
		return account.Code
	}
	return nil
}

// GetCodeHash returns the hash of the code of the given account. The hash
// of non-existing accounts is zero.
func (l *Ledger) GetCodeHash(addr vesta.Address) vesta.Hash {
	account := l.get(addr)
	if account == nil {
		return vesta.Hash{}
	}
	return vesta.HashCode(account.Code)
}

func (l *Ledger) GetCodeSize(addr vesta.Address) int {
	return len(l.GetCode(addr))
}

func (l *Ledger) SetCode(addr vesta.Address, code vesta.Code) {
	account := l.modify(addr)
	l.journal = append(l.journal, codeChange{address: addr, prev: account.Code})
	account.Code = append(vesta.Code(nil), code...)
}

func (l *Ledger) GetStorage(addr vesta.Address, key vesta.Key) vesta.Word {
	if account := l.get(addr); account != nil {
		return account.Storage[key]
	}
	return vesta.Word{}
}

func (l *Ledger) SetStorage(addr vesta.Address, key vesta.Key, value vesta.Word) {
	account := l.modify(addr)
	l.journal = append(l.journal, storageChange{address: addr, key: key, prev: account.Storage[key]})
	account.setStorage(key, value)
}

func (l *Ledger) SelfDestruct(addr vesta.Address) bool {
	if _, found := l.destructed[addr]; found {
		return false
	}
	l.destructed[addr] = struct{}{}
	l.journal = append(l.journal, selfDestructChange{address: addr})
	return true
}

func (l *Ledger) HasSelfDestructed(addr vesta.Address) bool {
	_, found := l.destructed[addr]
	return found
}

func (l *Ledger) EmitLog(log vesta.Log) {
	l.logs = append(l.logs, log)
	l.journal = append(l.journal, logChange{})
}

func (l *Ledger) GetLogs() []vesta.Log {
	return append([]vesta.Log(nil), l.logs...)
}

func (l *Ledger) EnqueuePost(msg vesta.Message) {
	l.posts = append(l.posts, msg)
	l.journal = append(l.journal, postEnqueueChange{})
}

func (l *Ledger) DequeuePost() (vesta.Message, bool) {
	if l.postHead >= len(l.posts) {
		return vesta.Message{}, false
	}
	msg := l.posts[l.postHead]
	l.postHead++
	l.journal = append(l.journal, postDequeueChange{})
	return msg, true
}

func (l *Ledger) PendingPosts() int {
	return len(l.posts) - l.postHead
}

func (l *Ledger) CreateSnapshot() vesta.Snapshot {
	return vesta.Snapshot(len(l.journal))
}

// RestoreSnapshot undoes all mutations performed since the given snapshot
// was created. Restoring a snapshot invalidates all snapshots created after
// it. Panics if the snapshot is unknown.
func (l *Ledger) RestoreSnapshot(snapshot vesta.Snapshot) {
	if snapshot < 0 || int(snapshot) > len(l.journal) {
		panic(fmt.Sprintf("invalid snapshot %d, journal length %d", snapshot, len(l.journal)))
	}
	for i := len(l.journal) - 1; i >= int(snapshot); i-- {
		l.journal[i].revert(l)
	}
	l.journal = l.journal[:snapshot]
}

// Commit folds the mutations of the ongoing transaction into the committed
// state. Self-destructed accounts are removed. Logs, snapshots and the post
// queue are reset. Commit fails if deferred messages are still pending.
func (l *Ledger) Commit() error {
	if pending := l.PendingPosts(); pending > 0 {
		return fmt.Errorf("%w: %d messages pending", vesta.ErrPendingPosts, pending)
	}
	txn := l.committed.Txn()
	for addr, account := range l.dirty {
		if _, found := l.destructed[addr]; found {
			continue
		}
		txn.Insert(addr[:], account)
	}
	for addr := range l.destructed {
		txn.Delete(addr[:])
	}
	l.committed = txn.Commit()

	l.dirty = map[vesta.Address]*Account{}
	l.destructed = map[vesta.Address]struct{}{}
	l.logs = nil
	l.posts = nil
	l.postHead = 0
	l.journal = nil
	return nil
}
