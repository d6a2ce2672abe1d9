package wasmtest

// Code accumulates function body instructions.
type Code struct {
	buf []byte
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte { return c.buf }

func (c *Code) op(b ...byte) *Code {
	c.buf = append(c.buf, b...)
	return c
}

func (c *Code) idx(opcode byte, i uint32) *Code {
	c.buf = append(c.buf, opcode)
	c.buf = append(c.buf, EncodeULEB128(i)...)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(0x00) }

// If opens an if block with an empty block type.
func (c *Code) If() *Code { return c.op(0x04, 0x40) }
func (c *Code) End() *Code { return c.op(0x0b) }
func (c *Code) Return() *Code { return c.op(0x0f) }
func (c *Code) Drop() *Code { return c.op(0x1a) }

func (c *Code) Call(fn uint32) *Code { return c.idx(0x10, fn) }
func (c *Code) LocalGet(i uint32) *Code { return c.idx(0x20, i) }
func (c *Code) LocalSet(i uint32) *Code { return c.idx(0x21, i) }
func (c *Code) LocalTee(i uint32) *Code { return c.idx(0x22, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.idx(0x23, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.idx(0x24, i) }
func (c *Code) I32Load(off uint32) *Code { return c.op(0x28, 0x02).op(EncodeULEB128(off)...) }
func (c *Code) I32Store(off uint32) *Code { return c.op(0x36, 0x02).op(EncodeULEB128(off)...) }
func (c *Code) I32Const(v int32) *Code { return c.op(0x41).op(EncodeSLEB128(int64(v))...) }
func (c *Code) I32Eqz() *Code { return c.op(0x45) }
func (c *Code) I32Add() *Code { return c.op(0x6a) }
func (c *Code) I32Mul() *Code { return c.op(0x6c) }
