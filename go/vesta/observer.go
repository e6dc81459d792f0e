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

//go:generate mockgen -source observer.go -destination observer_mock.go -package vesta

// DispatchObserver is notified once for every message handed to the
// dispatcher, before its value is transferred.
type DispatchObserver interface {
	OnDispatch(msg Message, depth int, isTopLevel bool)
}

// OpcodeObserver is notified before each instruction an interpreter executes.
// Observers must not retain the step's slices beyond the call.
type OpcodeObserver interface {
	OnOpcode(step OpcodeStep)
}

// OpcodeStep describes the interpreter state right before an instruction is
// executed.
type OpcodeStep struct {
	Depth      int
	Recipient  Address
	Pc         uint64
	Op         byte
	OpName     string
	Gas        Gas
	Stack      []Word // < bottom first
	MemorySize uint64
}

// DispatchObserverFunc adapts a function to the DispatchObserver interface.
type DispatchObserverFunc func(msg Message, depth int, isTopLevel bool)

func (f DispatchObserverFunc) OnDispatch(msg Message, depth int, isTopLevel bool) {
	f(msg, depth, isTopLevel)
}

// OpcodeObserverFunc adapts a function to the OpcodeObserver interface.
type OpcodeObserverFunc func(step OpcodeStep)

func (f OpcodeObserverFunc) OnOpcode(step OpcodeStep) {
	f(step)
}

// MultiOpcodeObserver forwards each step to all contained observers in order.
type MultiOpcodeObserver []OpcodeObserver

func (m MultiOpcodeObserver) OnOpcode(step OpcodeStep) {
	for _, o := range m {
		o.OnOpcode(step)
	}
}
