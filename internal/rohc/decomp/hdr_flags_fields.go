package decomp

import (
	"fmt"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// Extension-3 IP header flags (RFC 3095 §5.7.5):
//
//	  0     1     2     3     4     5     6     7
//	+-----+-----+-----+-----+-----+-----+-----+-----+
//	| TOS | TTL | DF  | PR  | IPX | NBO | RND | b0  |
//	+-----+-----+-----+-----+-----+-----+-----+-----+
//
// TOS, TTL, PR and IPX announce field octets in the fields region; DF, NBO
// and RND carry the new flag values directly. Bit 0 is reserved in the inner
// variant and I2 (outer IP-ID present) in the outer variant.

// parseHdrFlagsFields parses the fields region announced by one flags byte
// into bits. It returns the number of field bytes consumed and the value of
// the low flag bit, which the caller interprets (reserved vs I2).
func parseHdrFlagsFields(c *Context, flags byte, fields []byte, bits *IPBits) (int, bool, error) {
	cur := rohc.NewCursor(fields)

	tos := flags>>7&1 == 1
	ttl := flags>>6&1 == 1
	pr := flags>>4&1 == 1
	ipx := flags>>3&1 == 1

	bits.DF = flags >> 5 & 1
	bits.DFNr = 1
	bits.NBO = flags >> 2 & 1
	bits.NBONr = 1
	bits.RND = flags >> 1 & 1
	bits.RNDNr = 1
	c.Debugf("header flags: DF = %d, NBO = %d, RND = %d", bits.DF, bits.NBO, bits.RND)

	if tos {
		v, err := cur.ReadByte()
		if err != nil {
			return 0, false, err
		}
		bits.TOS = v
		bits.TOSNr = 8
		c.Debugf("TOS/TC = 0x%02x", v)
	}

	if ttl {
		v, err := cur.ReadByte()
		if err != nil {
			return 0, false, err
		}
		bits.TTL = v
		bits.TTLNr = 8
		c.Debugf("TTL/HL = %d", v)
	}

	if pr {
		v, err := cur.ReadByte()
		if err != nil {
			return 0, false, err
		}
		bits.Proto = v
		bits.ProtoNr = 8
		c.Debugf("protocol/NH = %d", v)
	}

	if ipx {
		// Compressed extension header list. Only the empty list encoding is
		// accepted by this decompressor.
		v, err := cur.ReadByte()
		if err != nil {
			return 0, false, err
		}
		if v != 0x00 {
			return 0, false, fmt.Errorf("%w: non-empty extension header list", rohc.ErrUnsupportedHdr)
		}
	}

	return cur.Consumed(), flags&1 == 1, nil
}

// parseOuterHdrFlagsFields parses the outer-header variant: the common
// flags/fields descent plus the 16-bit outer IP-ID announced by I2.
func parseOuterHdrFlagsFields(c *Context, flags byte, fields []byte, bits *IPBits) (int, error) {
	n, i2, err := parseHdrFlagsFields(c, flags, fields, bits)
	if err != nil {
		return 0, err
	}

	if i2 {
		cur := rohc.NewCursor(fields[n:])
		id, err := cur.ReadUint16()
		if err != nil {
			return 0, err
		}
		if bits.IDNr > 0 && bits.ID != 0 {
			c.Warnf("outer IP-ID field present (I2 = 1) but outer IP-ID already updated")
			if c.Strict() {
				return 0, rohc.ErrIPIDAlreadySet
			}
		}
		bits.ID = id
		bits.IDNr = 16
		bits.IsIDEnc = true
		c.Debugf("16 bits of outer IP-ID in EXT-3 = 0x%04x", id)
		n += cur.Consumed()
	}

	return n, nil
}
