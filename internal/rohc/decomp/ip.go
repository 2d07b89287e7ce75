package decomp

import (
	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// IP-only decompression profile (RFC 3843, profile 0x0004). Packet-type
// detection, the IP dynamic part and extension 3 are profile-specific;
// everything else delegates to the generic RFC 3095 pipeline.

// IPProfile is the registered operation table of the IP-only profile.
var IPProfile = &Profile{
	ID:            rohc.ProfileIP,
	Name:          "ip",
	MSNMaxBits:    16,
	NewContext:    ipCreate,
	FreeContext:   ipDestroy,
	DetectPktType: ipDetectPacketType,
	ParsePkt:      RFC3095ParsePkt,
	DecodeBits:    RFC3095DecodeBits,
	BuildHdrs:     RFC3095BuildHdrs,
	UpdateCtxt:    RFC3095UpdateCtxt,
	AttemptRepair: RFC3095AttemptRepair,
	GetSN:         RFC3095GetSN,
}

func init() {
	MustRegister(IPProfile)
}

// ipCreate builds the IP decompression context: the generic persistent
// context with a 16-bit SN window and the two IP-specific parse hooks. The
// profile-private slot stays empty for IP-only.
func ipCreate(c *Context) error {
	rc := NewRFC3095Ctxt(rohc.ProfileIP, c.decomp.trace)
	rc.SNLSB.Init(16)
	rc.ParseDynNextHdr = ipParseDynamicIP
	rc.ParseExt3 = ipParseExt3
	rc.Specific = nil

	c.Persist = rc
	return nil
}

// ipDestroy releases the IP-only context.
func ipDestroy(c *Context) {
	c.Persist = nil
	c.Volat = VolatCtxt{}
}

// ipDetectPacketType maps the first byte of a ROHC packet onto its format.
// The overlapping prefixes require this exact precedence: the UO formats
// share a left-to-right prefix and IR/IR-DYN share the 111111xx space.
func ipDetectPacketType(c *Context, data []byte) rohc.PacketType {
	b := data[0]
	c.Debugf("try to determine the header from first byte 0x%02x", b)

	switch {
	case rohc.IsUO0(b):
		return rohc.PacketUO0
	case rohc.IsUO1(b):
		return rohc.PacketUO1
	case rohc.IsUOR2(b):
		return rohc.PacketUOR2
	case rohc.IsIRDyn(b):
		return rohc.PacketIRDyn
	case rohc.IsIR(b):
		return rohc.PacketIR
	default:
		c.Warnf("failed to recognize the packet type in byte 0x%02x", b)
		return rohc.PacketUnknown
	}
}

// ipParseDynamicIP parses the IP-only next-header dynamic part: the 16-bit
// master sequence number.
func ipParseDynamicIP(c *Context, data []byte, bits *ExtractedBits) (int, error) {
	cur := rohc.NewCursor(data)

	sn, err := cur.ReadUint16()
	if err != nil {
		c.Warnf("ROHC packet too small (len = %d)", len(data))
		return 0, err
	}
	bits.SN = uint32(sn)
	bits.SNNr = 16
	bits.IsSNEnc = false
	c.Debugf("SN = %d (0x%04x)", bits.SN, bits.SN)

	return cur.Consumed(), nil
}

// ipParseExt3 parses extension 3 of a UOR-2 packet:
//
//	      0     1     2     3     4     5     6     7
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	1  |  1     1  |  S  |   Mode    |  I  | ip  | ip2 |
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	2  |            Inner IP header flags        |     |  if ip = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	3  |            Outer IP header flags              |  if ip2 = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	4  |                      SN                       |  if S = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	   |                                               |
//	5  /            Inner IP header fields             /  variable,
//	   |                                               |  if ip = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	6  |                     IP-ID                     |  2 octets, if I = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
//	   |                                               |
//	7  /            Outer IP header fields             /  variable,
//	   |                                               |  if ip2 = 1
//	   +-----+-----+-----+-----+-----+-----+-----+-----+
func ipParseExt3(c *Context, data []byte, bits *ExtractedBits) (int, error) {
	cur := rohc.NewCursor(data)

	var ipFlagsPos, ip2FlagsPos *byte
	var innerFlags byte

	c.Debugf("decode extension 3")

	flags, err := cur.ReadByte()
	if err != nil {
		c.Warnf("ROHC packet too small (len = %d)", len(data))
		return 0, err
	}
	s := flags >> 5 & 1
	bits.Mode = flags >> 3 & 0x03
	bits.ModeNr = 2
	if bits.Mode == 0 {
		c.Warnf("malformed ROHC packet: unexpected value zero for Mode bits in " +
			"extension 3, value zero is reserved for future usage according to RFC3095")
		if c.Strict() {
			return 0, rohc.ErrMalformedMode
		}
	}
	i := flags >> 2 & 1
	ip := flags >> 1 & 1
	ip2 := flags & 1
	c.Debugf("S = %d, mode = 0x%x, I = %d, ip = %d, ip2 = %d", s, bits.Mode, i, ip, ip2)

	// The inner & outer IP header flags and the SN are one octet each.
	if err := cur.Require(int(ip) + int(ip2) + int(s)); err != nil {
		c.Warnf("ROHC packet too small (len = %d)", cur.Remaining())
		return 0, err
	}

	// Remember the inner IP header flags if present. With stacked headers
	// RFC 3095 inverts the naming: the octet describes the second header.
	// The octet is also kept in innerFlags: without stacked headers an outer
	// flags octet (ip2 = 1) takes over ipFlagsPos below.
	if ip == 1 {
		innerFlags, _ = cur.ReadByte()
		c.Debugf("inner IP header flags field is present in EXT-3 = 0x%02x", innerFlags)
		if bits.MultipleIP {
			ip2FlagsPos = &innerFlags
		} else {
			ipFlagsPos = &innerFlags
		}
	}

	// Remember the outer IP header flags if present.
	if ip2 == 1 {
		f, _ := cur.ReadByte()
		c.Debugf("outer IP header flags field is present in EXT-3 = 0x%02x", f)
		ipFlagsPos = &f
	}

	if s == 1 {
		snByte, _ := cur.ReadByte()
		if err := bits.AppendSNBits("EXT-3", uint32(snByte), 8); err != nil {
			return 0, err
		}
	}

	// Decode the inner IP header fields according to the inner IP header
	// flags remembered above.
	if ip == 1 {
		var n int
		var err error
		if bits.MultipleIP {
			n, err = ipParseInnerHdrFlagsFields(c, *ip2FlagsPos, cur.Rest(), &bits.Inner)
		} else {
			n, err = ipParseInnerHdrFlagsFields(c, innerFlags, cur.Rest(), &bits.Outer)
		}
		if err != nil {
			c.Warnf("cannot decode the inner IP header flags & fields")
			return 0, err
		}
		if err := cur.Skip(n); err != nil {
			return 0, err
		}
	}

	// Skip the IP-ID if present, it is assigned only once all RND bits have
	// been parsed (ie. outer IP header flags). Otherwise a problem may
	// occur: with context(outer RND) = 1, context(inner RND) = 0,
	// value(outer RND) = 0 and value(inner RND) = 1, no IP header with a
	// non-random IP-ID exists at this point of the packet.
	var iBits uint16
	if i == 1 {
		iBits, err = cur.ReadUint16()
		if err != nil {
			c.Warnf("ROHC packet too small (len = %d)", cur.Remaining())
			return 0, err
		}
	}

	// Decode the outer IP header fields according to the outer IP header
	// flags if present.
	if ip2 == 1 {
		n, err := parseOuterHdrFlagsFields(c, *ipFlagsPos, cur.Rest(), &bits.Outer)
		if err != nil {
			c.Warnf("cannot decode the outer IP header flags & fields")
			return 0, err
		}
		if err := cur.Skip(n); err != nil {
			return 0, err
		}
	}

	if i == 1 {
		// Determine which IP header is the innermost IPv4 header with a
		// non-random IP-ID.
		switch {
		case bits.MultipleIP && bits.Inner.IsIPv4NonRnd():
			if bits.Inner.IDNr > 0 && bits.Inner.ID != 0 {
				c.Warnf("IP-ID field present (I = 1) but inner IP-ID already updated")
				if c.Strict() {
					return 0, rohc.ErrIPIDAlreadySet
				}
			}
			bits.Inner.ID = iBits
			bits.Inner.IDNr = 16
			bits.Inner.IsIDEnc = true
			c.Debugf("%d bits of inner IP-ID in EXT-3 = 0x%x", bits.Inner.IDNr, bits.Inner.ID)
		case bits.Outer.IsIPv4NonRnd():
			if bits.Outer.IDNr > 0 && bits.Outer.ID != 0 {
				c.Warnf("IP-ID field present (I = 1) but outer IP-ID already updated")
				if c.Strict() {
					return 0, rohc.ErrIPIDAlreadySet
				}
			}
			bits.Outer.ID = iBits
			bits.Outer.IDNr = 16
			bits.Outer.IsIDEnc = true
			c.Debugf("%d bits of outer IP-ID in EXT-3 = 0x%x", bits.Outer.IDNr, bits.Outer.ID)
		default:
			c.Warnf("extension 3 cannot contain IP-ID bits because no IP header " +
				"is IPv4 with non-random IP-ID")
			return 0, rohc.ErrNoIPIDTarget
		}
	}

	return cur.Consumed(), nil
}

// ipParseInnerHdrFlagsFields parses the inner IP header flags and fields and
// enforces that the reserved flag is zero.
func ipParseInnerHdrFlagsFields(c *Context, flags byte, fields []byte, bits *IPBits) (int, error) {
	n, reserved, err := parseHdrFlagsFields(c, flags, fields, bits)
	if err != nil {
		return 0, err
	}
	if reserved {
		c.Warnf("malformed ROHC header flags: reserved field shall be zero but it is 1")
		if c.Strict() {
			return 0, rohc.ErrMalformedReserved
		}
	}
	return n, nil
}
