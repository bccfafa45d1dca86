package wasmbin

import "bytes"

// Opcodes used by fixture function bodies.
const (
	opIf        byte = 0x04
	opEnd       byte = 0x0B
	opReturn    byte = 0x0F
	opCall      byte = 0x10
	opLocalGet  byte = 0x20
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Const  byte = 0x41
	opI32Eqz    byte = 0x45
	opI32Eq     byte = 0x46
	opI32Add    byte = 0x6A
	opI32And    byte = 0x71

	blockEmpty byte = 0x40
)

// Code builds one function body instruction by instruction.
type Code struct {
	buf bytes.Buffer
}

func NewCode() *Code {
	return &Code{}
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.buf.WriteByte(opLocalGet)
	writeULEB(&c.buf, idx)
	return c
}

func (c *Code) GlobalGet(idx uint32) *Code {
	c.buf.WriteByte(opGlobalGet)
	writeULEB(&c.buf, idx)
	return c
}

func (c *Code) GlobalSet(idx uint32) *Code {
	c.buf.WriteByte(opGlobalSet)
	writeULEB(&c.buf, idx)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeSLEB(&c.buf, v)
	return c
}

func (c *Code) I32Add() *Code {
	c.buf.WriteByte(opI32Add)
	return c
}

func (c *Code) I32And() *Code {
	c.buf.WriteByte(opI32And)
	return c
}

func (c *Code) I32Eqz() *Code {
	c.buf.WriteByte(opI32Eqz)
	return c
}

func (c *Code) I32Eq() *Code {
	c.buf.WriteByte(opI32Eq)
	return c
}

// If opens an if block with no result type.
func (c *Code) If() *Code {
	c.buf.WriteByte(opIf)
	c.buf.WriteByte(blockEmpty)
	return c
}

func (c *Code) Return() *Code {
	c.buf.WriteByte(opReturn)
	return c
}

func (c *Code) Call(funcIdx uint32) *Code {
	c.buf.WriteByte(opCall)
	writeULEB(&c.buf, funcIdx)
	return c
}

// End closes the innermost block, or the body itself.
func (c *Code) End() *Code {
	c.buf.WriteByte(opEnd)
	return c
}

func (c *Code) Bytes() []byte {
	return c.buf.Bytes()
}
