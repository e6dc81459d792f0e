// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package vesta is a generated GoMock package.
package vesta

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockDispatchObserver is a mock of DispatchObserver interface.
type MockDispatchObserver struct {
	ctrl     *gomock.Controller
	recorder *MockDispatchObserverMockRecorder
}

// MockDispatchObserverMockRecorder is the mock recorder for MockDispatchObserver.
type MockDispatchObserverMockRecorder struct {
	mock *MockDispatchObserver
}

// NewMockDispatchObserver creates a new mock instance.
func NewMockDispatchObserver(ctrl *gomock.Controller) *MockDispatchObserver {
	mock := &MockDispatchObserver{ctrl: ctrl}
	mock.recorder = &MockDispatchObserverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDispatchObserver) EXPECT() *MockDispatchObserverMockRecorder {
	return m.recorder
}

// OnDispatch mocks base method.
func (m *MockDispatchObserver) OnDispatch(msg Message, depth int, isTopLevel bool) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnDispatch", msg, depth, isTopLevel)
}

// OnDispatch indicates an expected call of OnDispatch.
func (mr *MockDispatchObserverMockRecorder) OnDispatch(msg, depth, isTopLevel any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnDispatch", reflect.TypeOf((*MockDispatchObserver)(nil).OnDispatch), msg, depth, isTopLevel)
}

// MockOpcodeObserver is a mock of OpcodeObserver interface.
type MockOpcodeObserver struct {
	ctrl     *gomock.Controller
	recorder *MockOpcodeObserverMockRecorder
}

// MockOpcodeObserverMockRecorder is the mock recorder for MockOpcodeObserver.
type MockOpcodeObserverMockRecorder struct {
	mock *MockOpcodeObserver
}

// NewMockOpcodeObserver creates a new mock instance.
func NewMockOpcodeObserver(ctrl *gomock.Controller) *MockOpcodeObserver {
	mock := &MockOpcodeObserver{ctrl: ctrl}
	mock.recorder = &MockOpcodeObserverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockOpcodeObserver) EXPECT() *MockOpcodeObserverMockRecorder {
	return m.recorder
}

// OnOpcode mocks base method.
func (m *MockOpcodeObserver) OnOpcode(step OpcodeStep) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnOpcode", step)
}

// OnOpcode indicates an expected call of OnOpcode.
func (mr *MockOpcodeObserverMockRecorder) OnOpcode(step any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnOpcode", reflect.TypeOf((*MockOpcodeObserver)(nil).OnOpcode), step)
}
