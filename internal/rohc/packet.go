package rohc

// PacketType identifies a ROHC packet format.
type PacketType int

const (
	PacketUnknown PacketType = iota
	PacketIR
	PacketIRDyn
	PacketUO0
	PacketUO1
	PacketUOR2
)

// String returns the RFC 3095 name of the packet type.
func (t PacketType) String() string {
	switch t {
	case PacketIR:
		return "IR"
	case PacketIRDyn:
		return "IR-DYN"
	case PacketUO0:
		return "UO-0"
	case PacketUO1:
		return "UO-1"
	case PacketUOR2:
		return "UOR-2"
	default:
		return "unknown"
	}
}

// ROHC profile identifiers (RFC 3095 §8, RFC 3843 §5).
const (
	ProfileUncompressed uint16 = 0x0000
	ProfileRTP          uint16 = 0x0001
	ProfileUDP          uint16 = 0x0002
	ProfileESP          uint16 = 0x0003
	ProfileIP           uint16 = 0x0004
)

// First-byte discriminators. The UO formats share a left-to-right prefix and
// IR/IR-DYN share the 111111xx space, so callers must test in the order
// UO-0, UO-1, UOR-2, IR-DYN, IR.

// IsUO0 reports whether b starts a UO-0 packet (leading bit 0).
func IsUO0(b byte) bool { return b&0x80 == 0x00 }

// IsUO1 reports whether b starts a UO-1 packet (leading bits 10).
func IsUO1(b byte) bool { return b&0xc0 == 0x80 }

// IsUOR2 reports whether b starts a UOR-2 packet (leading bits 110).
func IsUOR2(b byte) bool { return b&0xe0 == 0xc0 }

// IsIRDyn reports whether b is the IR-DYN discriminator 11111000.
func IsIRDyn(b byte) bool { return b == 0xf8 }

// IsIR reports whether b starts an IR packet (leading bits 1111110, the low
// bit is the D flag announcing a dynamic chain).
func IsIR(b byte) bool { return b&0xfe == 0xfc }

// IsAddCID reports whether b is an Add-CID octet (1110 followed by a small
// CID in the low nibble).
func IsAddCID(b byte) bool { return b&0xf0 == 0xe0 }

// IsPadding reports whether b is the ROHC padding octet.
func IsPadding(b byte) bool { return b == 0xe0 }
