// Package decomp implements the ROHC decompressor: the RFC 3095 generic
// framework (parse, decode, rebuild, context update) and the IP-only profile
// of RFC 3843 built on top of it.
package decomp

import (
	"fmt"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// IPBits collects the bits extracted for one IP header of the current
// packet. Values are only meaningful together with their *Nr bit counts; a
// zero count means "not transmitted, use the context".
type IPBits struct {
	Version uint8

	TOS   uint8
	TOSNr uint8

	TTL   uint8
	TTLNr uint8

	Proto   uint8
	ProtoNr uint8

	// IP-ID bits. IsIDEnc distinguishes offset-encoded bits (decoded against
	// the SN) from an absolute value (random IP-ID, dynamic chain).
	ID      uint16
	IDNr    uint8
	IsIDEnc bool

	DF   uint8
	DFNr uint8

	NBO   uint8
	NBONr uint8

	RND   uint8
	RNDNr uint8

	SrcAddr   [4]byte
	SrcAddrNr uint8

	DstAddr   [4]byte
	DstAddrNr uint8
}

// IsIPv4NonRnd reports whether this header is IPv4 with a non-random IP-ID,
// judged on the packet's current view of the RND flag (context value latched
// at packet start, possibly overridden by extension 3).
func (b *IPBits) IsIPv4NonRnd() bool {
	return b.Version == 4 && b.RND == 0
}

// AppendIDBits appends nr offset-encoded IP-ID bits.
func (b *IPBits) AppendIDBits(value uint16, nr uint8) {
	b.ID = (b.ID << nr) | value
	b.IDNr += nr
	b.IsIDEnc = true
}

// ExtractedBits is the per-packet aggregate populated during parsing and
// consumed by the decode stage. It lives in the volatile context and is
// reset for every packet.
type ExtractedBits struct {
	// Master sequence number bits. SNNr of 16 with IsSNEnc false means an
	// absolute value from a dynamic chain; any LSB-appended bits set IsSNEnc.
	SN      uint32
	SNNr    uint8
	IsSNEnc bool

	Mode   uint8
	ModeNr uint8

	// MultipleIP is latched from the context before extension parsing: does
	// the flow carry two stacked IP headers?
	MultipleIP bool

	CRC   uint8
	CRCNr uint8

	Outer IPBits
	Inner IPBits
}

// AppendSNBits appends nr LSB-encoded SN bits found in the given packet
// part. part names the header part that carried the bits; it is not used.
func (b *ExtractedBits) AppendSNBits(part string, value uint32, nr uint8) error {
	if uint(b.SNNr)+uint(nr) > 32 {
		return fmt.Errorf("%w: too many SN bits (%d + %d)", rohc.ErrUnsupportedHdr, b.SNNr, nr)
	}
	b.SN = (b.SN << nr) | value
	b.SNNr += nr
	b.IsSNEnc = true
	return nil
}

// InnermostNonRndIPv4 returns the bit record of the innermost IPv4 header
// with a non-random IP-ID, or nil when no header qualifies.
func (b *ExtractedBits) InnermostNonRndIPv4() *IPBits {
	if b.MultipleIP && b.Inner.IsIPv4NonRnd() {
		return &b.Inner
	}
	if b.Outer.IsIPv4NonRnd() {
		return &b.Outer
	}
	return nil
}

// DecodedIPValues is one fully decoded IP header.
type DecodedIPValues struct {
	Version uint8
	TOS     uint8
	TTL     uint8
	Proto   uint8
	SrcAddr [4]byte
	DstAddr [4]byte
	ID      uint16
	DF      uint8
	NBO     uint8
	RND     uint8
}

// DecodedValues is the output of the decode stage: every field required to
// rebuild the uncompressed headers and to update the context afterwards.
type DecodedValues struct {
	SN         uint32
	Mode       uint8
	MultipleIP bool
	Outer      DecodedIPValues
	Inner      DecodedIPValues
}
