package ocd

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cursor reads little-endian fields from a byte slice with a sticky error:
// after the first out-of-range access every further read returns zero and
// the error is reported once at the end via err().
type cursor struct {
	data    []byte
	pos     int
	failure error
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) err() error { return c.failure }

func (c *cursor) fail(n int) {
	if c.failure == nil {
		c.failure = fmt.Errorf("unexpected end of record: need %d bytes at offset %d of %d", n, c.pos, len(c.data))
	}
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) seek(pos int) {
	if pos < 0 || pos > len(c.data) {
		c.fail(pos - c.pos)
		return
	}
	c.pos = pos
}

func (c *cursor) skip(n int) { c.seek(c.pos + n) }

func (c *cursor) bytes(n int) []byte {
	if c.failure != nil || n < 0 || c.pos+n > len(c.data) {
		c.fail(n)
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() uint8 {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) s16() int16 { return int16(c.u16()) }

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) s32() int32 { return int32(c.u32()) }

func (c *cursor) f64() float64 {
	b := c.bytes(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// builder assembles the output file as one append-only buffer addressed by
// absolute offsets. Records are appended; fields reserved earlier (header,
// index links) are patched in place once their values are known.
type builder struct {
	buf []byte
}

func (b *builder) len() int { return len(b.buf) }

func (b *builder) appendBytes(p []byte) int {
	pos := len(b.buf)
	b.buf = append(b.buf, p...)
	return pos
}

func (b *builder) appendZeros(n int) int {
	pos := len(b.buf)
	b.buf = append(b.buf, make([]byte, n)...)
	return pos
}

func (b *builder) appendU8(v uint8) { b.buf = append(b.buf, v) }
func (b *builder) appendU16(v uint16) {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
}
func (b *builder) appendS16(v int16) { b.appendU16(uint16(v)) }
func (b *builder) appendU32(v uint32) {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
}
func (b *builder) appendS32(v int32) { b.appendU32(uint32(v)) }
func (b *builder) appendF64(v float64) {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, math.Float64bits(v))
}

func (b *builder) putU16(pos int, v uint16) {
	binary.LittleEndian.PutUint16(b.buf[pos:], v)
}

func (b *builder) putU32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[pos:], v)
}
