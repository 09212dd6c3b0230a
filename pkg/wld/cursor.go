package wld

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/terrafirma/pkg/encoding"
)

// Cursor is a sequential little-endian reader over a world buffer.
// Every read is bounds checked; a failed read leaves the position unchanged.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps an in-memory buffer. The buffer is borrowed, not copied.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// OpenCursor reads a world file (inflating compressed backups) into an owned buffer.
func OpenCursor(path string) (*Cursor, error) {
	data, err := ReadWorldFile(path)
	if err != nil {
		return nil, err
	}
	return NewCursor(data), nil
}

// Len returns the total buffer length.
func (c *Cursor) Len() int64 {
	return int64(len(c.data))
}

// Tell returns the current absolute offset.
func (c *Cursor) Tell() int64 {
	return int64(c.pos)
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int64 {
	return int64(len(c.data) - c.pos)
}

// SeekTo moves to an absolute offset. Offsets equal to Len are valid.
func (c *Cursor) SeekTo(offset int64) error {
	if offset < 0 || offset > int64(len(c.data)) {
		return fmt.Errorf("%w: seek to %d (length %d)", ErrOutOfBounds, offset, len(c.data))
	}
	c.pos = int(offset)
	return nil
}

// Skip moves relative to the current offset.
func (c *Cursor) Skip(n int64) error {
	return c.SeekTo(int64(c.pos) + n)
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.data)-c.pos {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d (length %d)", ErrOutOfBounds, n, c.pos, len(c.data))
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Fixed returns the next n raw bytes. The slice aliases the cursor buffer.
func (c *Cursor) Fixed(n int) ([]byte, error) {
	return c.take(n)
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads one byte as a boolean.
func (c *Cursor) Bool() (bool, error) {
	v, err := c.U8()
	return v != 0, err
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// I64 reads a little-endian int64.
func (c *Cursor) I64() (int64, error) {
	v, err := c.U64()
	return int64(v), err
}

// F32 reads an IEEE-754 single.
func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	return math.Float32frombits(v), err
}

// F64 reads an IEEE-754 double.
func (c *Cursor) F64() (float64, error) {
	v, err := c.U64()
	return math.Float64frombits(v), err
}

// CString reads bytes up to (not including) a zero terminator and consumes the terminator.
func (c *Cursor) CString() (string, error) {
	end := bytes.IndexByte(c.data[c.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrOutOfBounds, c.pos)
	}
	s := encoding.DecodeString(c.data[c.pos : c.pos+end])
	c.pos += end + 1
	return s, nil
}

// VarString reads a string with a 7-bit encoded length prefix.
func (c *Cursor) VarString() (string, error) {
	start := c.pos
	var length, shift uint
	for {
		b, err := c.U8()
		if err != nil {
			c.pos = start
			return "", err
		}
		length |= uint(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 28 {
			c.pos = start
			return "", fmt.Errorf("%w: string length prefix too long at offset %d", ErrCorrupt, start)
		}
	}
	b, err := c.take(int(length))
	if err != nil {
		c.pos = start
		return "", err
	}
	return encoding.DecodeString(b), nil
}
