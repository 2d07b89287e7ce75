package decomp

import (
	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// TraceLevel classifies diagnostics emitted through the trace callback.
type TraceLevel int

const (
	TraceDebug TraceLevel = iota
	TraceInfo
	TraceWarn
	TraceError
)

// TraceFunc receives ordered human-readable diagnostics from a context. The
// format is not part of the wire contract.
type TraceFunc func(level TraceLevel, format string, args ...any)

// IPHeaderState is the persistent per-IP-header state of a context.
type IPHeaderState struct {
	Version uint8
	TOS     uint8
	TTL     uint8
	Proto   uint8
	SrcAddr [4]byte
	DstAddr [4]byte
	DF      uint8
	NBO     uint8
	RND     uint8

	// LastID is the last decoded IP-ID, IDOffset its distance from the SN
	// (mod 2^16). Non-transmitted sequential IP-IDs ride on the SN through
	// this offset.
	LastID   uint16
	IDOffset uint16
}

// RFC3095Ctxt is the persistent decompression state shared by every profile
// built on the generic RFC 3095 framework. Profile-private state, if any,
// hangs off Specific.
type RFC3095Ctxt struct {
	ProfileID uint16

	SNLSB LSBDecoder

	Outer      IPHeaderState
	Inner      IPHeaderState
	MultipleIP bool
	Mode       uint8

	// Initialized is set once an IR packet has seeded static and dynamic
	// state; UO packets are rejected before that.
	Initialized bool

	// Profile hooks installed at context creation.
	ParseDynNextHdr func(c *Context, data []byte, bits *ExtractedBits) (int, error)
	ParseExt3       func(c *Context, data []byte, bits *ExtractedBits) (int, error)

	trace TraceFunc

	Specific any
}

// VolatCtxt is scratch state rebuilt for every packet; it owns the
// extracted-bits record of the packet being parsed.
type VolatCtxt struct {
	PacketType rohc.PacketType
	Bits       ExtractedBits
}

// Context binds one CID to a profile and its persistent + volatile state.
// A context is used by one caller at a time.
type Context struct {
	CID     uint8
	Profile *Profile
	Persist *RFC3095Ctxt
	Volat   VolatCtxt

	decomp *Decompressor
}

// NewRFC3095Ctxt allocates the generic persistent context, the framework
// factory every RFC 3095 profile calls from its create hook.
func NewRFC3095Ctxt(profileID uint16, trace TraceFunc) *RFC3095Ctxt {
	return &RFC3095Ctxt{
		ProfileID: profileID,
		trace:     trace,
	}
}

// Strict reports whether the owning decompressor runs in strict mode, where
// the recoverable malformed-packet diagnostics become fatal.
func (c *Context) Strict() bool { return c.decomp.opts.Strict }

// ResetVolat prepares the volatile context for a new packet, latching the
// persistent state the parse stage reads: the stacked-headers flag and each
// header's version and RND view.
func (c *Context) ResetVolat(pt rohc.PacketType) {
	c.Volat = VolatCtxt{PacketType: pt}
	p := c.Persist
	c.Volat.Bits.MultipleIP = p.MultipleIP
	c.Volat.Bits.Outer.Version = p.Outer.Version
	c.Volat.Bits.Outer.RND = p.Outer.RND
	c.Volat.Bits.Inner.Version = p.Inner.Version
	c.Volat.Bits.Inner.RND = p.Inner.RND
}

// Debugf emits a debug trace for this context.
func (c *Context) Debugf(format string, args ...any) {
	if c.Persist != nil && c.Persist.trace != nil {
		c.Persist.trace(TraceDebug, format, args...)
	}
}

// Warnf emits a warning trace for this context.
func (c *Context) Warnf(format string, args ...any) {
	if c.Persist != nil && c.Persist.trace != nil {
		c.Persist.trace(TraceWarn, format, args...)
	}
}
