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
	"bytes"
	"math"

	"github.com/Fantom-foundation/Vesta/go/vesta"
	"github.com/holiman/uint256"
)

func opEndWithResult(c *context) error {
	offset := *c.stack.pop()
	size := *c.stack.pop()
	if err := checkSizeOffsetUint64Overflow(&offset, &size); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	c.output = bytes.Clone(data)
	return nil
}

func opJump(c *context) error {
	destination := c.stack.pop()
	if !destination.IsUint64() || !c.jumpDests.isValid(destination.Uint64()) {
		return vesta.ErrInvalidJump
	}
	c.pc = destination.Uint64()
	return nil
}

func opJumpi(c *context) (bool, error) {
	destination := c.stack.pop()
	condition := c.stack.pop()
	if condition.IsZero() {
		return false, nil
	}
	if !destination.IsUint64() || !c.jumpDests.isValid(destination.Uint64()) {
		return false, vesta.ErrInvalidJump
	}
	c.pc = destination.Uint64()
	return true, nil
}

// opPush pushes the n bytes following the instruction. Data missing at the
// end of the code is read as zero.
func opPush(c *context, n int) {
	var value [32]byte
	start := c.pc + 1
	if start < uint64(len(c.code)) {
		end := start + uint64(n)
		if end > uint64(len(c.code)) {
			end = uint64(len(c.code))
		}
		copy(value[:n], c.code[start:end])
	}
	c.stack.pushUndefined().SetBytes(value[:n])
	c.pc += uint64(n)
}

func opMstore(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return vesta.ErrOutOfGas
	}
	return c.memory.setWord(offset, value, c)
}

func opMstore8(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return vesta.ErrOutOfGas
	}
	return c.memory.set(offset, []byte{byte(value.Uint64())}, c)
}

func opMload(c *context) error {
	var trg = c.stack.peek()
	var addr = *trg

	if !addr.IsUint64() {
		return vesta.ErrOutOfGas
	}
	return c.memory.readWord(addr.Uint64(), trg, c)
}

func opSstore(c *context) error {
	if c.params.Static {
		return vesta.ErrWriteProtection
	}

	key := vesta.Key(c.stack.pop().Bytes32())
	value := vesta.Word(c.stack.pop().Bytes32())

	cost, refund := getDynamicCostsForSstore(c.context.GetStorage(c.params.Recipient, key), value)
	if err := c.useGas(cost); err != nil {
		return err
	}
	c.context.SetStorage(c.params.Recipient, key, value)
	c.refund += refund
	return nil
}

func opSload(c *context) {
	top := c.stack.peek()
	value := c.context.GetStorage(c.params.Recipient, vesta.Key(top.Bytes32()))
	top.SetBytes32(value[:])
}

func opCaller(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
}

func opCallvalue(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.Value[:])
}

func opCallDatasize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.params.Input)))
}

func opCallDataload(c *context) {
	top := c.stack.peek()
	offset, overflow := top.Uint64WithOverflow()
	if overflow {
		top.Clear()
		return
	}
	top.SetBytes32(getData(c.params.Input, offset, 32))
}

// genericDataCopy implements the instructions copying a range of the given
// data into memory.
func genericDataCopy(c *context, data []byte) error {
	var (
		memOffset  = c.stack.pop()
		dataOffset = c.stack.pop()
		length     = c.stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		offset = math.MaxUint64
	}

	words := vesta.SizeInWords(length.Uint64())
	if err := c.useGas(CopyGas * vesta.Gas(words)); err != nil {
		return err
	}

	target, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	copy(target, getData(data, offset, length.Uint64()))
	return nil
}

func opAnd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
}

func opOr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
}

func opNot(c *context) {
	a := c.stack.peek()
	a.Not(a)
}

func opXor(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
}

func opIszero(c *context) {
	top := c.stack.peek()
	if top.IsZero() {
		top.SetOne()
	} else {
		top.Clear()
	}
}

func setBool(z *uint256.Int, value bool) {
	if value {
		z.SetOne()
	} else {
		z.Clear()
	}
}

func opEq(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Eq(b))
}

func opLt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Lt(b))
}

func opGt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Gt(b))
}

func opSlt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Slt(b))
}

func opSgt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Sgt(b))
}

func opShr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Rsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opShl(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Lsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opSar(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if !a.LtUint64(256) {
		if b.Sign() >= 0 {
			b.Clear()
		} else {
			b.SetAllOne()
		}
		return
	}
	b.SRsh(b, uint(a.Uint64()))
}

func opSignExtend(c *context) {
	back, num := c.stack.pop(), c.stack.peek()
	num.ExtendSign(num, back)
}

func opByte(c *context) {
	th, val := c.stack.pop(), c.stack.peek()
	val.Byte(th)
}

func opAdd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
}

func opSub(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(a, b)
}

func opMul(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
}

func opMulMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.MulMod(a, b, n)
}

func opDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(a, b)
}

func opSDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(a, b)
}

func opMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(a, b)
}

func opAddMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.AddMod(a, b, n)
}

func opSMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(a, b)
}

func opExp(c *context) error {
	base, exponent := c.stack.pop(), c.stack.peek()
	if err := c.useGas(expByteGas(c.params.Revision) * vesta.Gas(exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSha3(c *context) error {
	offset, size := c.stack.pop(), c.stack.peek()
	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}

	words := vesta.SizeInWords(size.Uint64())
	if err := c.useGas(Sha3WordGas * vesta.Gas(words)); err != nil {
		return err
	}

	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	hash := keccak256(data)
	size.SetBytes32(hash[:])
	return nil
}

func opTimestamp(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.Timestamp))
}

func opNumber(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.BlockNumber))
}

func opCoinbase(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Coinbase[:])
}

func opDifficulty(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.Difficulty[:])
}

func opGasLimit(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.GasLimit))
}

func opGasPrice(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.GasPrice[:])
}

func opBalance(c *context) {
	top := c.stack.peek()
	balance := c.context.GetBalance(vesta.Address(top.Bytes20()))
	top.SetBytes32(balance[:])
}

func opBlockhash(c *context) {
	num := c.stack.peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return
	}
	upper := uint64(c.params.BlockNumber)
	lower := uint64(0)
	if upper > 256 {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper {
		hash := c.context.GetBlockHash(int64(num64))
		num.SetBytes32(hash[:])
	} else {
		num.Clear()
	}
}

func opAddress(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
}

func opOrigin(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Origin[:])
}

func opCodeSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.code)))
}

func opExtcodesize(c *context) {
	top := c.stack.peek()
	top.SetUint64(uint64(c.context.GetCodeSize(vesta.Address(top.Bytes20()))))
}

func opExtcodehash(c *context) {
	top := c.stack.peek()
	address := vesta.Address(top.Bytes20())
	if !c.context.AccountExists(address) || isEmpty(c.context, address) {
		top.Clear()
		return
	}
	hash := c.context.GetCodeHash(address)
	top.SetBytes32(hash[:])
}

func opExtCodeCopy(c *context) error {
	var (
		stack      = c.stack
		a          = stack.pop()
		memOffset  = stack.pop()
		codeOffset = stack.pop()
		length     = stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	words := vesta.SizeInWords(length.Uint64())
	if err := c.useGas(CopyGas * vesta.Gas(words)); err != nil {
		return err
	}

	offset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		offset = math.MaxUint64
	}

	data, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	copy(data, getData(c.context.GetCode(vesta.Address(a.Bytes20())), offset, length.Uint64()))
	return nil
}

func opReturnDataSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
}

func opReturnDataCopy(c *context) error {
	var (
		memOffset  = c.stack.pop()
		dataOffset = c.stack.pop()
		length     = c.stack.pop()
	)

	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return vesta.ErrReturnDataOutOfBounds
	}
	var end uint256.Int
	end.Add(dataOffset, length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(c.returnData)) < end64 {
		return vesta.ErrReturnDataOutOfBounds
	}

	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	words := vesta.SizeInWords(length.Uint64())
	if err := c.useGas(CopyGas * vesta.Gas(words)); err != nil {
		return err
	}
	return c.memory.set(memOffset.Uint64(), c.returnData[offset64:end64], c)
}

func opLog(c *context, size int) error {
	if c.params.Static {
		return vesta.ErrWriteProtection
	}

	stack := c.stack
	mStart, mSize := stack.pop(), stack.pop()
	topics := make([]vesta.Hash, size)
	for i := 0; i < size; i++ {
		topics[i] = stack.pop().Bytes32()
	}

	if err := checkSizeOffsetUint64Overflow(mStart, mSize); err != nil {
		return err
	}
	logSize := mSize.Uint64()
	if logSize > math.MaxInt64/uint64(LogDataGas) {
		return vesta.ErrOutOfGas
	}
	if err := c.useGas(LogDataGas * vesta.Gas(logSize)); err != nil {
		return err
	}

	data, err := c.memory.getSlice(mStart.Uint64(), logSize, c)
	if err != nil {
		return err
	}

	c.context.EmitLog(vesta.Log{
		Address: c.params.Recipient,
		Topics:  topics,
		Data:    bytes.Clone(data),
	})
	return nil
}

// opSelfdestruct marks the running account as destroyed. The balance is paid
// out to the beneficiary by a message deferred to the end of the transaction.
func opSelfdestruct(c *context) error {
	if c.params.Static {
		return vesta.ErrWriteProtection
	}

	beneficiary := vesta.Address(c.stack.pop().Bytes20())
	if err := c.useGas(selfDestructNewAccountCost(c, beneficiary)); err != nil {
		return err
	}

	if !c.context.SelfDestruct(c.params.Recipient) {
		return nil
	}
	c.refund += SelfdestructRefundGas
	c.context.EnqueuePost(vesta.Message{
		Kind:      vesta.Call,
		Sender:    c.params.Recipient,
		Recipient: &beneficiary,
		Value:     c.context.GetBalance(c.params.Recipient),
		Code:      vesta.Code{},
	})
	return nil
}

func genericCreate(c *context, kind vesta.CallKind) error {
	if c.params.Static {
		return vesta.ErrWriteProtection
	}

	var (
		value  = c.stack.pop()
		offset = c.stack.pop()
		size   = c.stack.pop()
		salt   = vesta.Hash{}
	)
	if kind == vesta.Create2 {
		salt = c.stack.pop().Bytes32()
	}

	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}

	input, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}

	if kind == vesta.Create2 {
		// Charge for hashing the init code to compute the target address.
		words := vesta.SizeInWords(size.Uint64())
		if err := c.useGas(Sha3WordGas * vesta.Gas(words)); err != nil {
			return err
		}
	}

	if !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		if value.Gt(balance.ToUint256()) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			return nil
		}
	}

	gas := nestedCreateGas(c)
	if err := c.useGas(gas); err != nil {
		return err
	}

	res, err := c.context.Call(kind, vesta.CallParameters{
		Sender: c.params.Recipient,
		Value:  vesta.Value(value.Bytes32()),
		Input:  bytes.Clone(input),
		Gas:    gas,
		Salt:   salt,
	})
	if err != nil {
		return c.abort(err)
	}

	success := c.stack.pushUndefined()
	if res.Success {
		success.SetBytes20(res.CreatedAddress[:])
		c.returnData = nil
	} else {
		success.Clear()
		c.returnData = res.Output
	}
	c.gas += res.GasLeft
	c.refund += res.GasRefund
	return nil
}

func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	res := make([]byte, int(size))
	copy(res, data[start:end])
	return res
}

func checkSizeOffsetUint64Overflow(offset, size *uint256.Int) error {
	if size.IsZero() {
		return nil
	}
	if !offset.IsUint64() || !size.IsUint64() || offset.Uint64()+size.Uint64() < offset.Uint64() {
		return vesta.ErrOutOfGas
	}
	return nil
}

func opCall(c *context) error {
	value := c.stack.peekN(2)
	if c.params.Static && !value.IsZero() {
		return vesta.ErrWriteProtection
	}
	return genericCall(c, vesta.Call)
}

func genericCall(c *context, kind vesta.CallKind) error {
	stack := c.stack
	value := uint256.NewInt(0)

	providedGas, addr := stack.pop(), stack.pop()
	if kind == vesta.Call || kind == vesta.CallCode {
		value = stack.pop()
	}
	inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop()

	toAddr := vesta.Address(addr.Bytes20())

	if err := checkSizeOffsetUint64Overflow(inOffset, inSize); err != nil {
		return err
	}
	if err := checkSizeOffsetUint64Overflow(retOffset, retSize); err != nil {
		return err
	}

	args, err := c.memory.getSlice(inOffset.Uint64(), inSize.Uint64(), c)
	if err != nil {
		return err
	}
	args = bytes.Clone(args)
	output, err := c.memory.getSlice(retOffset.Uint64(), retSize.Uint64(), c)
	if err != nil {
		return err
	}

	transfersValue := !value.IsZero()
	if transfersValue {
		if err := c.useGas(CallValueTransferGas); err != nil {
			return err
		}
	}
	if err := c.useGas(callNewAccountCost(c, kind, toAddr, transfersValue)); err != nil {
		return err
	}

	gas, err := nestedCallGas(c, providedGas.Uint64(), providedGas.IsUint64())
	if err != nil {
		return err
	}
	if err := c.useGas(gas); err != nil {
		return err
	}

	stipend := vesta.Gas(0)
	if transfersValue {
		stipend = CallStipend
	}

	if transfersValue {
		balance := c.context.GetBalance(c.params.Recipient)
		if balance.ToUint256().Lt(value) {
			stack.pushUndefined().Clear()
			c.returnData = nil
			c.gas += gas + stipend
			return nil
		}
	}

	callParams := vesta.CallParameters{
		Input:   args,
		Gas:     gas,
		Stipend: stipend,
		Value:   vesta.Value(value.Bytes32()),
	}

	switch kind {
	case vesta.Call, vesta.StaticCall:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = toAddr
		callParams.CodeAddress = toAddr

	case vesta.CallCode:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr

	case vesta.DelegateCall:
		callParams.Sender = c.params.Sender
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr
		callParams.Value = c.params.Value
	}

	ret, err := c.context.Call(kind, callParams)
	if err != nil {
		return c.abort(err)
	}

	copy(output, ret.Output)

	success := stack.pushUndefined()
	if ret.Success {
		success.SetOne()
	} else {
		success.Clear()
	}
	c.gas += ret.GasLeft
	c.refund += ret.GasRefund
	c.returnData = ret.Output
	return nil
}
