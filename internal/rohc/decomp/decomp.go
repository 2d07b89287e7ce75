package decomp

import (
	"fmt"

	"github.com/WeirdyBenji/librohc/internal/log"
	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// Options configures a Decompressor.
type Options struct {
	// Strict turns the recoverable malformed-packet diagnostics (reserved
	// flag set, mode zero, IP-ID already updated) into fatal parse errors.
	Strict bool

	// Logger receives context traces. Defaults to the process logger.
	Logger log.Logger

	// Trace overrides the logger-backed trace sink when set.
	Trace TraceFunc
}

// Decompressor holds one ROHC channel: a set of per-CID contexts fed with
// packets in arrival order. A Decompressor is used by one caller at a time;
// run distinct instances for parallel channels.
type Decompressor struct {
	opts     Options
	trace    TraceFunc
	contexts map[uint8]*Context
}

// New creates a decompressor for one ROHC channel.
func New(opts Options) *Decompressor {
	d := &Decompressor{
		opts:     opts,
		contexts: make(map[uint8]*Context),
	}

	d.trace = opts.Trace
	if d.trace == nil {
		logger := opts.Logger
		if logger == nil {
			logger = log.GetLogger()
		}
		d.trace = func(level TraceLevel, format string, args ...any) {
			switch level {
			case TraceWarn:
				logger.Warnf(format, args...)
			case TraceError:
				logger.Errorf(format, args...)
			default:
				logger.Debugf(format, args...)
			}
		}
	}
	return d
}

// Decompress parses one ROHC packet and returns the reconstructed IP
// packet. Errors are local to the packet: the matching context keeps its
// pre-packet state and the caller simply drops the packet.
func (d *Decompressor) Decompress(pkt []byte) ([]byte, error) {
	cur := rohc.NewCursor(pkt)

	// Strip padding, then the optional Add-CID octet. CID 0 is implicit.
	cid := uint8(0)
	for {
		b, err := cur.Peek()
		if err != nil {
			return nil, err
		}
		if rohc.IsPadding(b) {
			_ = cur.Skip(1)
			continue
		}
		if rohc.IsAddCID(b) {
			cid = b & 0x0f
			_ = cur.Skip(1)
		}
		break
	}

	data := cur.Rest()
	if len(data) == 0 {
		return nil, rohc.ErrTooShort
	}

	ctx, err := d.findContext(cid, data)
	if err != nil {
		return nil, err
	}

	pt := ctx.Profile.DetectPktType(ctx, data)
	if pt == rohc.PacketUnknown {
		return nil, fmt.Errorf("%w: first byte 0x%02x", rohc.ErrUnknownPacketType, data[0])
	}
	ctx.ResetVolat(pt)

	_, payload, err := ctx.Profile.ParsePkt(ctx, data, pt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s packet for CID %d: %w", pt, cid, err)
	}

	dec, err := ctx.Profile.DecodeBits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s packet for CID %d: %w", pt, cid, err)
	}

	out, hdrLen, err := ctx.Profile.BuildHdrs(ctx, &dec, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild headers for CID %d: %w", cid, err)
	}

	if err := verifyHdrCRC(ctx, out[:hdrLen]); err != nil {
		if !ctx.Profile.AttemptRepair(ctx) {
			return nil, fmt.Errorf("%s packet for CID %d: %w", pt, cid, err)
		}
	}

	ctx.Profile.UpdateCtxt(ctx, &dec)
	return out, nil
}

// findContext returns the context bound to cid, creating it when the packet
// is an IR carrying a known profile ID.
func (d *Decompressor) findContext(cid uint8, data []byte) (*Context, error) {
	ctx, exists := d.contexts[cid]

	if rohc.IsIR(data[0]) && len(data) >= 2 {
		profile, err := Lookup(uint16(data[1]))
		if err != nil {
			return nil, err
		}
		if !exists || ctx.Profile.ID != profile.ID {
			if exists {
				ctx.Profile.FreeContext(ctx)
			}
			ctx = &Context{CID: cid, Profile: profile, decomp: d}
			if err := profile.NewContext(ctx); err != nil {
				return nil, fmt.Errorf("failed to create context for CID %d: %w", cid, err)
			}
			d.contexts[cid] = ctx
		}
		return ctx, nil
	}

	if !exists {
		return nil, fmt.Errorf("%w: CID %d", rohc.ErrNoContext, cid)
	}
	return ctx, nil
}

// verifyHdrCRC checks the 3- or 7-bit CRC carried by UO packets against the
// rebuilt header chain. IR and IR-DYN verify their CRC-8 during parsing.
func verifyHdrCRC(c *Context, hdrs []byte) error {
	b := &c.Volat.Bits
	if b.CRCNr == 0 {
		return nil
	}

	var computed byte
	switch b.CRCNr {
	case 3:
		computed = rohc.CRC3(hdrs)
	case 7:
		computed = rohc.CRC7(hdrs)
	default:
		return fmt.Errorf("%w: %d-bit header CRC", rohc.ErrUnsupportedHdr, b.CRCNr)
	}

	if computed != b.CRC {
		c.Warnf("header CRC failure: computed 0x%02x, received 0x%02x", computed, b.CRC)
		return rohc.ErrCRCMismatch
	}
	return nil
}

// RemoveContext evicts the context bound to cid, if any.
func (d *Decompressor) RemoveContext(cid uint8) {
	if ctx, exists := d.contexts[cid]; exists {
		ctx.Profile.FreeContext(ctx)
		delete(d.contexts, cid)
	}
}

// ContextCount returns the number of live contexts.
func (d *Decompressor) ContextCount() int { return len(d.contexts) }
