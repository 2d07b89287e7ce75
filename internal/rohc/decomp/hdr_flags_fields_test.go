package decomp

import (
	"errors"
	"testing"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

func TestParseHdrFlagsFieldsValues(t *testing.T) {
	c, _ := newIPContext(t, false)
	var bits IPBits

	// TOS, TTL and PR announced; DF=1, NBO=1, RND=0.
	flags := byte(0x80 | 0x40 | 0x20 | 0x10 | 0x04)
	fields := []byte{0xa0, 0x40, 0x11}

	n, low, err := parseHdrFlagsFields(c, flags, fields, &bits)
	if err != nil {
		t.Fatalf("parseHdrFlagsFields failed: %v", err)
	}
	if n != 3 {
		t.Errorf("consumed %d field bytes, want 3", n)
	}
	if low {
		t.Error("low bit reported set")
	}
	if bits.TOS != 0xa0 || bits.TOSNr != 8 {
		t.Errorf("TOS = 0x%02x/%d", bits.TOS, bits.TOSNr)
	}
	if bits.TTL != 0x40 || bits.TTLNr != 8 {
		t.Errorf("TTL = %d/%d", bits.TTL, bits.TTLNr)
	}
	if bits.Proto != 0x11 || bits.ProtoNr != 8 {
		t.Errorf("proto = %d/%d", bits.Proto, bits.ProtoNr)
	}
	if bits.DF != 1 || bits.NBO != 1 || bits.RND != 0 {
		t.Errorf("DF/NBO/RND = %d/%d/%d, want 1/1/0", bits.DF, bits.NBO, bits.RND)
	}
	if bits.DFNr != 1 || bits.NBONr != 1 || bits.RNDNr != 1 {
		t.Error("flag bit counts not set")
	}
}

func TestParseHdrFlagsFieldsTooShort(t *testing.T) {
	c, _ := newIPContext(t, false)
	var bits IPBits

	// TOS and TTL announced but only one field byte present.
	if _, _, err := parseHdrFlagsFields(c, 0xc0, []byte{0xa0}, &bits); !errors.Is(err, rohc.ErrTooShort) {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}

func TestParseHdrFlagsFieldsNonEmptyList(t *testing.T) {
	c, _ := newIPContext(t, false)
	var bits IPBits

	// IPX announces an extension header list; only the empty encoding is
	// supported.
	if _, _, err := parseHdrFlagsFields(c, 0x08, []byte{0x45}, &bits); !errors.Is(err, rohc.ErrUnsupportedHdr) {
		t.Errorf("err = %v, want ErrUnsupportedHdr", err)
	}
	if _, _, err := parseHdrFlagsFields(c, 0x08, []byte{0x00}, &bits); err != nil {
		t.Errorf("empty list rejected: %v", err)
	}
}

func TestParseOuterHdrFlagsFieldsI2(t *testing.T) {
	c, _ := newIPContext(t, false)
	var bits IPBits

	// TTL announced plus I2: the 16-bit outer IP-ID trails the fields.
	n, err := parseOuterHdrFlagsFields(c, 0x41, []byte{0x3f, 0xbe, 0xef}, &bits)
	if err != nil {
		t.Fatalf("parseOuterHdrFlagsFields failed: %v", err)
	}
	if n != 3 {
		t.Errorf("consumed %d bytes, want 3", n)
	}
	if bits.TTL != 0x3f || bits.TTLNr != 8 {
		t.Errorf("TTL = %d/%d", bits.TTL, bits.TTLNr)
	}
	if bits.ID != 0xbeef || bits.IDNr != 16 || !bits.IsIDEnc {
		t.Errorf("IP-ID = 0x%04x/%d enc=%v, want 0xbeef/16 enc=true",
			bits.ID, bits.IDNr, bits.IsIDEnc)
	}
}

func TestParseOuterHdrFlagsFieldsI2AlreadySet(t *testing.T) {
	c, rec := newIPContext(t, false)
	bits := IPBits{Version: 4, ID: 0x0042, IDNr: 6, IsIDEnc: true}

	if _, err := parseOuterHdrFlagsFields(c, 0x01, []byte{0xbe, 0xef}, &bits); err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if bits.ID != 0xbeef {
		t.Errorf("IP-ID = 0x%04x, want overwritten 0xbeef", bits.ID)
	}
	if len(rec.warnings) == 0 {
		t.Error("expected an already-updated warning")
	}

	c, _ = newIPContext(t, true)
	bits = IPBits{Version: 4, ID: 0x0042, IDNr: 6, IsIDEnc: true}
	if _, err := parseOuterHdrFlagsFields(c, 0x01, []byte{0xbe, 0xef}, &bits); !errors.Is(err, rohc.ErrIPIDAlreadySet) {
		t.Errorf("strict: err = %v, want ErrIPIDAlreadySet", err)
	}
}
