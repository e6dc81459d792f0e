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

import "fmt"

// Message describes a single call context dispatched by the engine. Messages
// are values; once constructed they are not modified.
type Message struct {
	Kind        CallKind
	Sender      Address
	Recipient   *Address // < nil for contract creations
	CodeAddress Address  // < only relevant for CallCode and DelegateCall
	Value       Value
	Gas         Gas  // < the allowance granted by the caller
	Stipend     Gas  // < extra gas granted on top of the allowance
	Input       Data // < call data, empty for creations
	Code        Code // < explicit code to run; nil selects the recipient's code
	Salt        Hash // < only relevant for Create2
	Static      bool
}

// NewMessage creates a validated message. A nil recipient creates a message
// of kind Create carrying the given code as init code.
func NewMessage(sender Address, recipient *Address, value Value, gas Gas, input Data, code Code) (Message, error) {
	msg := Message{
		Kind:      Call,
		Sender:    sender,
		Recipient: recipient,
		Value:     value,
		Gas:       gas,
		Input:     input,
		Code:      code,
	}
	if recipient == nil {
		msg.Kind = Create
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks the structural constraints of a message.
func (m Message) Validate() error {
	if m.Gas < 0 {
		return fmt.Errorf("%w: negative gas allowance %d", ErrInvalidMessage, m.Gas)
	}
	if m.Stipend < 0 {
		return fmt.Errorf("%w: negative stipend %d", ErrInvalidMessage, m.Stipend)
	}
	if m.Kind.IsCreate() {
		if m.Recipient != nil {
			return fmt.Errorf("%w: %v message with recipient %v", ErrInvalidMessage, m.Kind, *m.Recipient)
		}
		if len(m.Input) > 0 {
			return fmt.Errorf("%w: creation messages carry their init code as code, not input", ErrInvalidMessage)
		}
		return nil
	}
	if m.Recipient == nil {
		return fmt.Errorf("%w: %v message without recipient", ErrInvalidMessage, m.Kind)
	}
	return nil
}

// IsCreation is true if the message creates a new contract.
func (m Message) IsCreation() bool {
	return m.Recipient == nil
}

// AvailableGas is the total amount of gas the message may consume.
func (m Message) AvailableGas() Gas {
	return m.Gas + m.Stipend
}

// CallRecord is the observation of one dispatched message as reported to
// fixture verification.
type CallRecord struct {
	GasLimit    Gas
	Value       Value
	Destination *Address // < nil for creations
	Data        Data     // < the input, or the init code for creations
}

// Record summarizes the message as a CallRecord.
func (m Message) Record() CallRecord {
	data := m.Input
	if m.IsCreation() {
		data = Data(m.Code)
	}
	var destination *Address
	if m.Recipient != nil {
		recipient := *m.Recipient
		destination = &recipient
	}
	return CallRecord{
		GasLimit:    m.Gas,
		Value:       m.Value,
		Destination: destination,
		Data:        append(Data(nil), data...),
	}
}

func (r CallRecord) String() string {
	destination := "<create>"
	if r.Destination != nil {
		destination = r.Destination.String()
	}
	return fmt.Sprintf("{to: %v, value: %v, gas: %d, data: 0x%x}", destination, r.Value, r.GasLimit, []byte(r.Data))
}
