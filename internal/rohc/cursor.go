package rohc

import "encoding/binary"

// Cursor is a bounded reader over one packet's bytes. Every advance is
// length-checked, so a malformed packet surfaces as ErrTooShort instead of a
// slice overrun.
type Cursor struct {
	data []byte
	off  int
}

// NewCursor returns a cursor over data. The slice is not copied.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.off }

// Consumed returns the number of bytes read so far.
func (c *Cursor) Consumed() int { return c.off }

// Rest returns the unread tail without advancing.
func (c *Cursor) Rest() []byte { return c.data[c.off:] }

// Peek returns the next byte without advancing.
func (c *Cursor) Peek() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrTooShort
	}
	return c.data[c.off], nil
}

// ReadByte consumes and returns one byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrTooShort
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

// ReadUint16 consumes two bytes as a big-endian integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, ErrTooShort
	}
	v := binary.BigEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

// ReadBytes consumes n bytes and returns them as a sub-slice.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrTooShort
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 || c.Remaining() < n {
		return ErrTooShort
	}
	c.off += n
	return nil
}

// Require fails with ErrTooShort unless at least n bytes remain.
func (c *Cursor) Require(n int) error {
	if c.Remaining() < n {
		return ErrTooShort
	}
	return nil
}
