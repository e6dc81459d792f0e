// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fixture implements the JSON test fixtures of the engine. A fixture
// file maps test names to a pre-state, a single message execution with its
// block environment and the expected results. All conversion between the
// textual fixture encoding and the engine's value types happens here.
package fixture

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"slices"
	"strings"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/exp/maps"
)

// Test is a single fixture.
type Test struct {
	Pre         map[string]Account `json:"pre"`
	Exec        Exec               `json:"exec"`
	Env         Env                `json:"env"`
	CallCreates []CallCreate       `json:"callcreates"`
	Post        map[string]Account `json:"post"`
	Out         hexutil.Bytes      `json:"out"`
	Gas         *Integer           `json:"gas"`

	// Revision selects the rules of execution; if nil, the default of the
	// run options is used.
	Revision *vesta.Revision `json:"revision,omitempty"`
}

// Account is the fixture encoding of an account.
type Account struct {
	Code    hexutil.Bytes `json:"code"`
	Nonce   Integer       `json:"nonce"`
	Balance Integer       `json:"balance"`
	Storage Storage       `json:"storage"`
}

// Exec describes the executed message.
type Exec struct {
	Caller   string        `json:"caller"`
	Address  string        `json:"address"`
	Origin   string        `json:"origin,omitempty"`
	Code     hexutil.Bytes `json:"code"`
	Data     hexutil.Bytes `json:"data"`
	Gas      Integer       `json:"gas"`
	GasPrice Integer       `json:"gasPrice"`
	Value    Integer       `json:"value"`
}

// CallCreate is the expected record of a message dispatched below the top
// level. An empty destination denotes a contract creation.
type CallCreate struct {
	Data        hexutil.Bytes `json:"data"`
	Destination string        `json:"destination"`
	GasLimit    Integer       `json:"gasLimit"`
	Value       Integer       `json:"value"`
}

// Env is the block environment of a test.
type Env struct {
	CurrentGasLimit   Integer `json:"currentGasLimit"`
	CurrentTimestamp  Integer `json:"currentTimestamp"`
	PreviousHash      string  `json:"previousHash"`
	CurrentCoinbase   string  `json:"currentCoinbase"`
	CurrentDifficulty Integer `json:"currentDifficulty"`
	CurrentNumber     Integer `json:"currentNumber"`
}

var envKeys = []string{
	"currentCoinbase",
	"currentDifficulty",
	"currentGasLimit",
	"currentNumber",
	"currentTimestamp",
	"previousHash",
}

// UnmarshalJSON decodes an environment, insisting on exactly the known keys.
func (e *Env) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	keys := maps.Keys(fields)
	slices.Sort(keys)
	if !slices.Equal(keys, envKeys) {
		return fmt.Errorf("unexpected env keys %v, wanted %v", keys, envKeys)
	}
	type plain Env
	return json.Unmarshal(data, (*plain)(e))
}

// Integer is a non-negative integer of up to 256 bits, encoded as a decimal
// or 0x-prefixed hexadecimal string.
type Integer struct {
	math.HexOrDecimal256
}

// NewInteger creates an Integer of the given value.
func NewInteger(value uint64) Integer {
	return Integer{math.HexOrDecimal256(*new(big.Int).SetUint64(value))}
}

func (i *Integer) UnmarshalJSON(input []byte) error {
	if len(input) > 1 && input[0] == '"' {
		var text string
		if err := json.Unmarshal(input, &text); err != nil {
			return err
		}
		input = []byte(text)
	}
	return i.UnmarshalText(input)
}

func (i *Integer) UnmarshalText(input []byte) error {
	if err := i.HexOrDecimal256.UnmarshalText(input); err != nil {
		return err
	}
	if i.Big().Sign() < 0 {
		return fmt.Errorf("negative integer %s", input)
	}
	return nil
}

// MarshalText encodes the integer in decimal form.
func (i Integer) MarshalText() ([]byte, error) {
	return []byte(i.Big().String()), nil
}

func (i Integer) Big() *big.Int {
	return (*big.Int)(&i.HexOrDecimal256)
}

func (i Integer) Value() (vesta.Value, error) {
	value, ok := vesta.ValueFromBig(i.Big())
	if !ok {
		return vesta.Value{}, fmt.Errorf("value %v exceeds 256 bits", i.Big())
	}
	return value, nil
}

func (i Integer) Uint64() (uint64, error) {
	if !i.Big().IsUint64() {
		return 0, fmt.Errorf("value %v exceeds 64 bits", i.Big())
	}
	return i.Big().Uint64(), nil
}

// Int64 converts the integer, failing for values beyond the int64 range.
func (i Integer) Int64() (int64, error) {
	if !i.Big().IsInt64() {
		return 0, fmt.Errorf("value %v exceeds 63 bits", i.Big())
	}
	return i.Big().Int64(), nil
}

// Storage maps keys to words. It is encoded as a list of [key, value] pairs;
// a JSON object is accepted as well.
type Storage map[vesta.Key]vesta.Word

func (s *Storage) UnmarshalJSON(data []byte) error {
	var entries [][2]string
	if err := json.Unmarshal(data, &entries); err != nil {
		var object map[string]string
		if json.Unmarshal(data, &object) != nil {
			return fmt.Errorf("storage must be a list of pairs or an object: %w", err)
		}
		entries = make([][2]string, 0, len(object))
		for key, value := range object {
			entries = append(entries, [2]string{key, value})
		}
	}
	res := make(Storage, len(entries))
	for _, entry := range entries {
		key, err := parseWord(entry[0])
		if err != nil {
			return fmt.Errorf("invalid storage key: %w", err)
		}
		value, err := parseWord(entry[1])
		if err != nil {
			return fmt.Errorf("invalid storage value: %w", err)
		}
		res[vesta.Key(key)] = value
	}
	*s = res
	return nil
}

// MarshalJSON produces the list encoding, ordered by key.
func (s Storage) MarshalJSON() ([]byte, error) {
	keys := maps.Keys(s)
	slices.SortFunc(keys, func(a, b vesta.Key) int { return slices.Compare(a[:], b[:]) })
	entries := make([][2]string, 0, len(keys))
	for _, key := range keys {
		value := s[key]
		entries = append(entries, [2]string{
			hexutil.EncodeBig(new(big.Int).SetBytes(key[:])),
			hexutil.EncodeBig(new(big.Int).SetBytes(value[:])),
		})
	}
	return json.Marshal(entries)
}

func parseWord(text string) (vesta.Word, error) {
	value, ok := math.ParseBig256(text)
	if !ok || value.Sign() < 0 {
		return vesta.Word{}, fmt.Errorf("invalid 256-bit integer %q", text)
	}
	var res vesta.Word
	value.FillBytes(res[:])
	return res, nil
}

// ParseAddress decodes a 20 byte address with optional 0x prefix.
func ParseAddress(text string) (vesta.Address, error) {
	if !common.IsHexAddress(text) {
		return vesta.Address{}, fmt.Errorf("invalid address %q", text)
	}
	return vesta.Address(common.HexToAddress(text)), nil
}

func formatAddress(addr vesta.Address) string {
	return strings.TrimPrefix(addr.String(), "0x")
}

func parseHash(text string) (vesta.Hash, error) {
	data := common.FromHex(text)
	if len(data) > len(vesta.Hash{}) {
		return vesta.Hash{}, fmt.Errorf("invalid hash %q", text)
	}
	return vesta.Hash(common.BytesToHash(data)), nil
}

// Load decodes a fixture file mapping test names to tests.
func Load(data []byte) (map[string]Test, error) {
	var tests map[string]Test
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return tests, nil
}

func LoadFile(path string) (map[string]Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tests, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tests, nil
}
