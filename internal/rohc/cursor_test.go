package rohc

import (
	"errors"
	"testing"
)

func TestCursorReads(t *testing.T) {
	c := NewCursor([]byte{0x12, 0x34, 0x56, 0x78})

	b, err := c.ReadByte()
	if err != nil || b != 0x12 {
		t.Fatalf("ReadByte = 0x%02x, %v", b, err)
	}

	v, err := c.ReadUint16()
	if err != nil || v != 0x3456 {
		t.Fatalf("ReadUint16 = 0x%04x, %v", v, err)
	}

	if c.Remaining() != 1 {
		t.Fatalf("Remaining = %d, want 1", c.Remaining())
	}
	if c.Consumed() != 3 {
		t.Fatalf("Consumed = %d, want 3", c.Consumed())
	}

	rest, err := c.ReadBytes(1)
	if err != nil || rest[0] != 0x78 {
		t.Fatalf("ReadBytes = %v, %v", rest, err)
	}
}

func TestCursorUnderrun(t *testing.T) {
	c := NewCursor([]byte{0x01})

	if _, err := c.ReadUint16(); !errors.Is(err, ErrTooShort) {
		t.Fatalf("ReadUint16 on 1 byte: err = %v, want ErrTooShort", err)
	}
	// Failed reads must not advance.
	if c.Remaining() != 1 {
		t.Fatalf("Remaining = %d after failed read, want 1", c.Remaining())
	}

	if _, err := c.ReadByte(); err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if _, err := c.ReadByte(); !errors.Is(err, ErrTooShort) {
		t.Fatalf("ReadByte past end: err = %v, want ErrTooShort", err)
	}
	if err := c.Skip(1); !errors.Is(err, ErrTooShort) {
		t.Fatalf("Skip past end: err = %v, want ErrTooShort", err)
	}
}

func TestCursorPeekAndRequire(t *testing.T) {
	c := NewCursor([]byte{0xab, 0xcd})

	b, err := c.Peek()
	if err != nil || b != 0xab {
		t.Fatalf("Peek = 0x%02x, %v", b, err)
	}
	if c.Consumed() != 0 {
		t.Fatal("Peek advanced the cursor")
	}

	if err := c.Require(2); err != nil {
		t.Fatalf("Require(2): %v", err)
	}
	if err := c.Require(3); !errors.Is(err, ErrTooShort) {
		t.Fatalf("Require(3): err = %v, want ErrTooShort", err)
	}
}
