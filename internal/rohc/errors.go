// Package rohc defines wire-level types shared by the ROHC compressor-facing
// tooling and the decompressor: packet-type discrimination, the bounded byte
// cursor and the ROHC CRC variants.
package rohc

import "errors"

// Sentinel errors. Callers match with errors.Is; packet-local failures are
// wrapped with context at the decompressor boundary.
var (
	// Parse errors
	ErrTooShort          = errors.New("rohc: packet too short")
	ErrUnknownPacketType = errors.New("rohc: unknown packet type")
	ErrMalformedReserved = errors.New("rohc: reserved header flag is set")
	ErrMalformedMode     = errors.New("rohc: mode value zero is reserved")
	ErrIPIDAlreadySet    = errors.New("rohc: IP-ID already updated")
	ErrNoIPIDTarget      = errors.New("rohc: no IP header is IPv4 with non-random IP-ID")
	ErrUnsupportedHdr    = errors.New("rohc: unsupported header encoding")

	// Stream / context errors
	ErrNoContext      = errors.New("rohc: no context for CID")
	ErrUnknownProfile = errors.New("rohc: unknown profile")
	ErrCRCMismatch    = errors.New("rohc: header CRC mismatch")
)
