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
	"math"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/holiman/uint256"
)

// maxMemoryExpansionSize bounds the memory size. Its expansion costs still
// fit into an int64 and exceed any gas budget a transaction may carry.
const maxMemoryExpansionSize = 0x1FFFFFFFE0

// Memory is the byte addressable, word aligned scratch space of a single
// code execution. It only grows.
type Memory struct {
	store       []byte
	currentCost vesta.Gas
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// memoryCost is the total cost of a memory of the given number of words.
func memoryCost(words uint64) vesta.Gas {
	return vesta.Gas(3*words + words*words/512)
}

// expansionCosts returns the fee for growing the memory to cover size bytes.
func (m *Memory) expansionCosts(size uint64) vesta.Gas {
	if m.length() >= size {
		return 0
	}
	if size > maxMemoryExpansionSize {
		return vesta.Gas(math.MaxInt64)
	}
	return memoryCost(vesta.SizeInWords(size)) - m.currentCost
}

// expand grows the memory to cover [offset, offset+size) and charges for it.
// A zero size never expands the memory, independent of the offset.
func (m *Memory) expand(offset, size uint64, c *context) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return vesta.ErrOutOfGas
	}
	if m.length() >= needed {
		return nil
	}
	fee := m.expansionCosts(needed)
	if err := c.useGas(fee); err != nil {
		return err
	}
	words := vesta.SizeInWords(needed)
	m.currentCost = memoryCost(words)
	m.store = append(m.store, make([]byte, words*32-m.length())...)
	return nil
}

// getSlice returns a view of size bytes starting at offset, expanding the
// memory as needed. The view is invalidated by the next expansion.
func (m *Memory) getSlice(offset, size uint64, c *context) ([]byte, error) {
	if err := m.expand(offset, size, c); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

// set writes value at the given offset, expanding the memory as needed.
func (m *Memory) set(offset uint64, value []byte, c *context) error {
	data, err := m.getSlice(offset, uint64(len(value)), c)
	if err != nil {
		return err
	}
	copy(data, value)
	return nil
}

func (m *Memory) setWord(offset uint64, value *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	value.WriteToSlice(data)
	return nil
}

func (m *Memory) readWord(offset uint64, target *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}
