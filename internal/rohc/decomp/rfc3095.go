package decomp

import (
	"fmt"
	"math/bits"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// Generic RFC 3095 decompression pipeline. Profiles install their
// next-header hooks (ParseDynNextHdr, ParseExt3) at context creation and
// delegate parse/decode/build/update to the functions here.

const ipv4HdrLen = 20

// RFC3095ParsePkt parses one ROHC packet of a known type into the volatile
// extracted-bits record. It returns the compressed header length and the
// payload that follows it.
func RFC3095ParsePkt(c *Context, data []byte, pt rohc.PacketType) (int, []byte, error) {
	cur := rohc.NewCursor(data)

	var err error
	switch pt {
	case rohc.PacketIR:
		err = parseIR(c, cur)
	case rohc.PacketIRDyn:
		err = parseIRDyn(c, cur)
	case rohc.PacketUO0:
		err = parseUO0(c, cur)
	case rohc.PacketUO1:
		err = parseUO1(c, cur)
	case rohc.PacketUOR2:
		err = parseUOR2(c, cur)
	default:
		err = rohc.ErrUnknownPacketType
	}
	if err != nil {
		return 0, nil, err
	}

	return cur.Consumed(), cur.Rest(), nil
}

// parseIR parses an IR packet: discriminator (with the D flag), profile
// octet, CRC-8, static chain and, when D is set, the dynamic chain.
func parseIR(c *Context, cur *rohc.Cursor) error {
	start := cur.Rest()

	b0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	dynPresent := b0&0x01 == 0x01

	profileID, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if uint16(profileID) != c.Persist.ProfileID {
		return fmt.Errorf("%w: IR carries profile 0x%02x, context bound to 0x%04x",
			rohc.ErrUnknownProfile, profileID, c.Persist.ProfileID)
	}

	crc, err := cur.ReadByte()
	if err != nil {
		return err
	}

	if err := parseStaticChain(c, cur); err != nil {
		return err
	}
	if dynPresent {
		if err := parseDynamicChain(c, cur); err != nil {
			return err
		}
	}

	return verifyHdrCRC8(c, start[:cur.Consumed()], crc)
}

// parseIRDyn parses an IR-DYN packet: discriminator, profile octet, CRC-8
// and the dynamic chain refreshing an existing context.
func parseIRDyn(c *Context, cur *rohc.Cursor) error {
	start := cur.Rest()

	if err := cur.Skip(1); err != nil {
		return err
	}

	profileID, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if uint16(profileID) != c.Persist.ProfileID {
		return fmt.Errorf("%w: IR-DYN carries profile 0x%02x, context bound to 0x%04x",
			rohc.ErrUnknownProfile, profileID, c.Persist.ProfileID)
	}

	crc, err := cur.ReadByte()
	if err != nil {
		return err
	}

	if err := parseDynamicChain(c, cur); err != nil {
		return err
	}

	return verifyHdrCRC8(c, start[:cur.Consumed()], crc)
}

// verifyHdrCRC8 checks the CRC-8 of an IR or IR-DYN header. The CRC is
// computed over the whole header with the CRC octet (offset 2) zeroed.
func verifyHdrCRC8(c *Context, hdr []byte, received byte) error {
	scratch := make([]byte, len(hdr))
	copy(scratch, hdr)
	scratch[2] = 0

	if computed := rohc.CRC8(scratch); computed != received {
		c.Warnf("IR header CRC failure: computed 0x%02x, received 0x%02x", computed, received)
		return rohc.ErrCRCMismatch
	}
	return nil
}

// parseStaticChain parses the static chain: one IPv4 static part per IP
// header, chained by the protocol field (IP-in-IP stacks a second header).
func parseStaticChain(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	if err := parseStaticIP(c, cur, &b.Outer); err != nil {
		return err
	}
	if b.Outer.Proto == 4 {
		b.MultipleIP = true
		if err := parseStaticIP(c, cur, &b.Inner); err != nil {
			return err
		}
	} else {
		b.MultipleIP = false
	}
	return nil
}

// parseStaticIP parses the IPv4 static part: version octet, protocol and
// both addresses.
func parseStaticIP(c *Context, cur *rohc.Cursor, b *IPBits) error {
	v, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if v>>4 != 4 {
		return fmt.Errorf("%w: IP version %d in static chain", rohc.ErrUnsupportedHdr, v>>4)
	}
	b.Version = 4

	proto, err := cur.ReadByte()
	if err != nil {
		return err
	}
	b.Proto = proto
	b.ProtoNr = 8

	src, err := cur.ReadBytes(4)
	if err != nil {
		return err
	}
	copy(b.SrcAddr[:], src)
	b.SrcAddrNr = 32

	dst, err := cur.ReadBytes(4)
	if err != nil {
		return err
	}
	copy(b.DstAddr[:], dst)
	b.DstAddrNr = 32

	c.Debugf("static chain: IPv4 proto %d, %v -> %v", proto,
		net.IP(b.SrcAddr[:]), net.IP(b.DstAddr[:]))
	return nil
}

// parseDynamicChain parses the dynamic chain: one IPv4 dynamic part per IP
// header, then the profile's next-header dynamic part (the 16-bit SN for
// the IP-only profile).
func parseDynamicChain(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	if err := parseDynamicIP(c, cur, &b.Outer); err != nil {
		return err
	}
	if b.MultipleIP {
		if err := parseDynamicIP(c, cur, &b.Inner); err != nil {
			return err
		}
	}

	n, err := c.Persist.ParseDynNextHdr(c, cur.Rest(), b)
	if err != nil {
		return err
	}
	return cur.Skip(n)
}

// parseDynamicIP parses the IPv4 dynamic part: TOS, TTL, absolute IP-ID,
// the DF/RND/NBO flags octet and the extension header list.
func parseDynamicIP(c *Context, cur *rohc.Cursor, b *IPBits) error {
	tos, err := cur.ReadByte()
	if err != nil {
		return err
	}
	b.TOS = tos
	b.TOSNr = 8

	ttl, err := cur.ReadByte()
	if err != nil {
		return err
	}
	b.TTL = ttl
	b.TTLNr = 8

	id, err := cur.ReadUint16()
	if err != nil {
		return err
	}
	b.ID = id
	b.IDNr = 16
	b.IsIDEnc = false

	flags, err := cur.ReadByte()
	if err != nil {
		return err
	}
	b.DF = flags >> 7 & 1
	b.DFNr = 1
	b.RND = flags >> 6 & 1
	b.RNDNr = 1
	b.NBO = flags >> 5 & 1
	b.NBONr = 1

	// Generic extension header list; only the empty encoding is supported.
	list, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if list != 0x00 {
		return fmt.Errorf("%w: non-empty extension header list in dynamic part", rohc.ErrUnsupportedHdr)
	}

	c.Debugf("dynamic chain: TOS = 0x%02x, TTL = %d, IP-ID = 0x%04x, DF = %d, RND = %d, NBO = %d",
		tos, ttl, id, b.DF, b.RND, b.NBO)
	return nil
}

// parseUO0 parses a UO-0 packet: 0 | SN(4) | CRC(3).
func parseUO0(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	b0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("UO-0", uint32(b0>>3&0x0f), 4); err != nil {
		return err
	}
	b.CRC = b0 & 0x07
	b.CRCNr = 3

	return parseUORemainder(c, cur)
}

// parseUO1 parses the non-RTP UO-1: 10 | IP-ID(6), then SN(5) | CRC(3).
func parseUO1(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	b0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	target := b.InnermostNonRndIPv4()
	if target == nil {
		c.Warnf("UO-1 carries IP-ID bits but no IP header is IPv4 with non-random IP-ID")
		return rohc.ErrNoIPIDTarget
	}
	target.AppendIDBits(uint16(b0&0x3f), 6)

	b1, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("UO-1", uint32(b1>>3&0x1f), 5); err != nil {
		return err
	}
	b.CRC = b1 & 0x07
	b.CRCNr = 3

	return parseUORemainder(c, cur)
}

// parseUOR2 parses a UOR-2 packet: 110 | SN(5), then X | CRC(7), then the
// optional extension selected by the two leading bits of the next octet.
func parseUOR2(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	b0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("UOR-2", uint32(b0&0x1f), 5); err != nil {
		return err
	}

	b1, err := cur.ReadByte()
	if err != nil {
		return err
	}
	b.CRC = b1 & 0x7f
	b.CRCNr = 7

	if b1>>7 == 1 {
		ext, err := cur.Peek()
		if err != nil {
			return err
		}
		switch ext >> 6 {
		case 0:
			err = parseExt0(c, cur)
		case 1:
			err = parseExt1(c, cur)
		case 2:
			err = parseExt2(c, cur)
		default:
			var n int
			n, err = c.Persist.ParseExt3(c, cur.Rest(), b)
			if err == nil {
				err = cur.Skip(n)
			}
		}
		if err != nil {
			return err
		}
	}

	return parseUORemainder(c, cur)
}

// parseExt0 parses extension 0: 00 | SN(3) | IP-ID(3).
func parseExt0(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	e, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("EXT-0", uint32(e>>3&0x07), 3); err != nil {
		return err
	}

	target := b.InnermostNonRndIPv4()
	if target == nil {
		c.Warnf("extension 0 cannot contain IP-ID bits because no IP header is IPv4 with non-random IP-ID")
		return rohc.ErrNoIPIDTarget
	}
	target.AppendIDBits(uint16(e&0x07), 3)
	return nil
}

// parseExt1 parses extension 1: 01 | SN(3) | IP-ID(3), then IP-ID(8).
func parseExt1(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	e0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	e1, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("EXT-1", uint32(e0>>3&0x07), 3); err != nil {
		return err
	}

	target := b.InnermostNonRndIPv4()
	if target == nil {
		c.Warnf("extension 1 cannot contain IP-ID bits because no IP header is IPv4 with non-random IP-ID")
		return rohc.ErrNoIPIDTarget
	}
	target.AppendIDBits(uint16(e0&0x07), 3)
	target.AppendIDBits(uint16(e1), 8)
	return nil
}

// parseExt2 parses extension 2: 10 | SN(3) | IP-ID2(3), then IP-ID2(8),
// then IP-ID(8). IP-ID2 belongs to the outer header of a stacked flow.
func parseExt2(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	e0, err := cur.ReadByte()
	if err != nil {
		return err
	}
	e1, err := cur.ReadByte()
	if err != nil {
		return err
	}
	e2, err := cur.ReadByte()
	if err != nil {
		return err
	}
	if err := b.AppendSNBits("EXT-2", uint32(e0>>3&0x07), 3); err != nil {
		return err
	}

	if !b.MultipleIP || !b.Outer.IsIPv4NonRnd() {
		c.Warnf("extension 2 carries outer IP-ID bits but the outer header is not IPv4 with non-random IP-ID")
		return rohc.ErrNoIPIDTarget
	}
	b.Outer.AppendIDBits(uint16(e0&0x07), 3)
	b.Outer.AppendIDBits(uint16(e1), 8)

	target := b.InnermostNonRndIPv4()
	if target == nil {
		c.Warnf("extension 2 cannot contain IP-ID bits because no IP header is IPv4 with non-random IP-ID")
		return rohc.ErrNoIPIDTarget
	}
	target.AppendIDBits(uint16(e2), 8)
	return nil
}

// parseUORemainder parses the tail fields shared by all UO packets: the
// uncompressed IP-ID of every IPv4 header whose IP-ID is random.
func parseUORemainder(c *Context, cur *rohc.Cursor) error {
	b := &c.Volat.Bits

	if b.Outer.Version == 4 && b.Outer.RND == 1 {
		id, err := cur.ReadUint16()
		if err != nil {
			return err
		}
		b.Outer.ID = id
		b.Outer.IDNr = 16
		b.Outer.IsIDEnc = false
	}
	if b.MultipleIP && b.Inner.Version == 4 && b.Inner.RND == 1 {
		id, err := cur.ReadUint16()
		if err != nil {
			return err
		}
		b.Inner.ID = id
		b.Inner.IDNr = 16
		b.Inner.IsIDEnc = false
	}
	return nil
}

// RFC3095DecodeBits resolves the extracted bits into full values, combining
// transmitted bits with context references through W-LSB decoding.
func RFC3095DecodeBits(c *Context) (DecodedValues, error) {
	p := c.Persist
	b := &c.Volat.Bits

	var dec DecodedValues
	dec.MultipleIP = b.MultipleIP

	if !p.Initialized && (b.SNNr != 16 || b.IsSNEnc) {
		return dec, fmt.Errorf("%w: context not initialized by an IR packet", rohc.ErrNoContext)
	}

	switch {
	case b.SNNr == 0:
		dec.SN = p.SNLSB.Ref()
	case !b.IsSNEnc:
		dec.SN = b.SN & 0xffff
	default:
		v, ok := p.SNLSB.Decode(b.SN, b.SNNr, lsbShiftSN)
		if !ok {
			return dec, fmt.Errorf("%w: no SN reference for LSB decoding", rohc.ErrNoContext)
		}
		dec.SN = v
	}
	c.Debugf("decoded SN = %d (0x%04x)", dec.SN, dec.SN)

	if b.ModeNr > 0 && b.Mode != 0 {
		dec.Mode = b.Mode
	} else {
		dec.Mode = p.Mode
	}

	dec.Outer = decodeIPValues(&p.Outer, &b.Outer, dec.SN)
	if b.MultipleIP {
		dec.Inner = decodeIPValues(&p.Inner, &b.Inner, dec.SN)
	}

	return dec, nil
}

// decodeIPValues resolves one IP header from its bit record and persistent
// state.
func decodeIPValues(st *IPHeaderState, b *IPBits, sn uint32) DecodedIPValues {
	v := DecodedIPValues{Version: st.Version}
	if b.Version != 0 {
		v.Version = b.Version
	}

	v.TOS = st.TOS
	if b.TOSNr > 0 {
		v.TOS = b.TOS
	}
	v.TTL = st.TTL
	if b.TTLNr > 0 {
		v.TTL = b.TTL
	}
	v.Proto = st.Proto
	if b.ProtoNr > 0 {
		v.Proto = b.Proto
	}
	v.SrcAddr = st.SrcAddr
	if b.SrcAddrNr == 32 {
		v.SrcAddr = b.SrcAddr
	}
	v.DstAddr = st.DstAddr
	if b.DstAddrNr == 32 {
		v.DstAddr = b.DstAddr
	}
	v.DF = st.DF
	if b.DFNr > 0 {
		v.DF = b.DF
	}
	v.NBO = st.NBO
	if b.NBONr > 0 {
		v.NBO = b.NBO
	}
	v.RND = st.RND
	if b.RNDNr > 0 {
		v.RND = b.RND
	}

	switch {
	case b.IDNr > 0 && !b.IsIDEnc:
		// Absolute value from a dynamic chain or a random-IP-ID field.
		v.ID = b.ID
	case b.IDNr > 0:
		// Offset-encoded bits: the IP-ID rides on the SN.
		offset := DecodeOnce(uint32(st.IDOffset), 16, uint32(b.ID), b.IDNr, lsbShiftIPID)
		v.ID = sequentialID(uint16(sn)+uint16(offset), v.NBO)
	default:
		if v.RND == 1 {
			v.ID = st.LastID
		} else {
			v.ID = sequentialID(uint16(sn)+st.IDOffset, v.NBO)
		}
	}

	return v
}

// sequentialID maps a sequential IP-ID value to its wire representation:
// when the flow is not in network byte order the compressor swapped the
// bytes before offset encoding, so the decompressor swaps them back.
func sequentialID(id uint16, nbo uint8) uint16 {
	if nbo == 0 {
		return bits.ReverseBytes16(id)
	}
	return id
}

// RFC3095BuildHdrs rebuilds the uncompressed IP header chain and prepends it
// to the payload. It returns the full packet and the rebuilt header length.
func RFC3095BuildHdrs(c *Context, dec *DecodedValues, payload []byte) ([]byte, int, error) {
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	buf := gopacket.NewSerializeBuffer()

	var err error
	hdrLen := ipv4HdrLen
	if dec.MultipleIP {
		hdrLen = 2 * ipv4HdrLen
		err = gopacket.SerializeLayers(buf, opts,
			ipv4Layer(&dec.Outer), ipv4Layer(&dec.Inner), gopacket.Payload(payload))
	} else {
		err = gopacket.SerializeLayers(buf, opts,
			ipv4Layer(&dec.Outer), gopacket.Payload(payload))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to serialize rebuilt headers: %w", err)
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, hdrLen, nil
}

// ipv4Layer maps decoded values onto a serializable IPv4 header.
func ipv4Layer(v *DecodedIPValues) *layers.IPv4 {
	var flags layers.IPv4Flag
	if v.DF == 1 {
		flags |= layers.IPv4DontFragment
	}
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TOS:      v.TOS,
		Id:       v.ID,
		Flags:    flags,
		TTL:      v.TTL,
		Protocol: layers.IPProtocol(v.Proto),
		SrcIP:    net.IP(v.SrcAddr[:]),
		DstIP:    net.IP(v.DstAddr[:]),
	}
}

// RFC3095UpdateCtxt commits the decoded values into the persistent context
// once the packet passed CRC verification.
func RFC3095UpdateCtxt(c *Context, dec *DecodedValues) {
	p := c.Persist

	p.SNLSB.SetRef(dec.SN)
	if dec.Mode != 0 {
		p.Mode = dec.Mode
	}
	p.MultipleIP = dec.MultipleIP

	updateIPState(&p.Outer, &dec.Outer, dec.SN)
	if dec.MultipleIP {
		updateIPState(&p.Inner, &dec.Inner, dec.SN)
	}

	p.Initialized = true
}

func updateIPState(st *IPHeaderState, v *DecodedIPValues, sn uint32) {
	st.Version = v.Version
	st.TOS = v.TOS
	st.TTL = v.TTL
	st.Proto = v.Proto
	st.SrcAddr = v.SrcAddr
	st.DstAddr = v.DstAddr
	st.DF = v.DF
	st.NBO = v.NBO
	st.RND = v.RND

	st.LastID = v.ID
	st.IDOffset = sequentialID(v.ID, v.NBO) - uint16(sn)
}

// RFC3095AttemptRepair is the shared no-op repair hook: the IP profile does
// not implement CRC repair, the packet is dropped.
func RFC3095AttemptRepair(c *Context) bool {
	c.Debugf("CRC repair not supported, dropping packet")
	return false
}

// RFC3095GetSN returns the last decoded master sequence number.
func RFC3095GetSN(c *Context) uint32 {
	return c.Persist.SNLSB.Ref()
}
