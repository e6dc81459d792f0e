// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package dispatch

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/Fantom-foundation/Vesta/go/vesta"

	// geth dependencies
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// runContext is handed to the interpreter executing a message. Nested calls
// issued by the running code are dispatched one level deeper.
type runContext struct {
	vesta.TransactionContext
	session *session
	depth   int
	static  bool
}

var _ vesta.RunContext = runContext{}

func (r runContext) Call(kind vesta.CallKind, parameters vesta.CallParameters) (vesta.CallResult, error) {
	msg := vesta.Message{
		Kind:        kind,
		Sender:      parameters.Sender,
		CodeAddress: parameters.CodeAddress,
		Value:       parameters.Value,
		Gas:         parameters.Gas,
		Stipend:     parameters.Stipend,
		Input:       parameters.Input,
		Salt:        parameters.Salt,
		Static:      r.static || kind == vesta.StaticCall,
	}
	if kind.IsCreate() {
		msg.Code = vesta.Code(parameters.Input)
		msg.Input = nil
	} else {
		recipient := parameters.Recipient
		msg.Recipient = &recipient
	}
	if err := msg.Validate(); err != nil {
		return vesta.CallResult{}, err
	}

	result, err := r.session.dispatch(msg, r.depth+1, false)
	if err != nil {
		return vesta.CallResult{}, err
	}
	return vesta.CallResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft,
		GasRefund:      result.GasRefund,
		CreatedAddress: result.CreatedAddress,
		Success:        result.Success,
	}, nil
}

// GetBlockHash returns the hash of the previous block as provided by the
// environment. Older blocks have synthetic hashes derived from their number.
func (r runContext) GetBlockHash(number int64) vesta.Hash {
	if number == r.session.env.BlockNumber-1 {
		return r.session.env.PreviousHash
	}
	return vesta.Hash(crypto.Keccak256([]byte(strconv.FormatInt(number, 10))))
}

func createAddress(
	kind vesta.CallKind,
	sender vesta.Address,
	nonce uint64,
	salt vesta.Hash,
	initHash vesta.Hash,
) vesta.Address {
	if kind == vesta.Create {
		return vesta.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return vesta.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))
}

// transferValue moves value from sender to recipient. On failure the
// balances may be partially updated; callers restore a snapshot.
func transferValue(state vesta.WorldState, value vesta.Value, sender, recipient vesta.Address) error {
	if value.IsZero() {
		return nil
	}
	amount := value.ToBig()
	if err := state.DeltaBalance(sender, new(big.Int).Neg(amount)); err != nil {
		return err
	}
	if err := state.DeltaBalance(recipient, amount); err != nil {
		return fmt.Errorf("failed to credit %v: %w", recipient, err)
	}
	return nil
}
