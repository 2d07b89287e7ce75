package decomp

// W-LSB decoding (RFC 3095 §4.5.1). The compressor sends the k least
// significant bits of a value; the decompressor picks the unique value
// matching those bits inside the interpretation interval
// [ref - p, ref - p + 2^k - 1].

// Interpretation interval shifts used by the IP profile.
const (
	lsbShiftSN   = -1 // SN moves forward only
	lsbShiftIPID = 0  // IP-ID offset
)

// LSBDecoder holds the reference value for one W-LSB decoded field.
type LSBDecoder struct {
	width uint8
	ref   uint32
	ok    bool
}

// Init sets the field width in bits and clears the reference. Width must be
// at most 32; the IP profile uses 16 for both SN and IP-ID offset.
func (d *LSBDecoder) Init(width uint8) {
	d.width = width
	d.ref = 0
	d.ok = false
}

// SetRef installs a new reference value, e.g. after an IR packet or a
// successfully verified decompression.
func (d *LSBDecoder) SetRef(v uint32) {
	d.ref = v & d.mask()
	d.ok = true
}

// Ref returns the current reference value.
func (d *LSBDecoder) Ref() uint32 { return d.ref }

// HasRef reports whether a reference has been established.
func (d *LSBDecoder) HasRef() bool { return d.ok }

func (d *LSBDecoder) mask() uint32 {
	return uint32(1)<<d.width - 1
}

// Decode reconstructs the full value from its k least significant bits m,
// using interval shift p. It fails when no reference is established yet.
func (d *LSBDecoder) Decode(m uint32, k uint8, p int) (uint32, bool) {
	if !d.ok {
		return 0, false
	}
	fmask := d.mask()
	if k >= d.width {
		return m & fmask, true
	}
	kmask := uint32(1)<<k - 1
	base := (d.ref - uint32(p)) & fmask
	v := (base + ((m - base) & kmask)) & fmask
	return v, true
}

// DecodeOnce decodes k bits against an explicit reference, for fields whose
// reference lives outside a decoder instance (the per-header IP-ID offset).
func DecodeOnce(ref uint32, width uint8, m uint32, k uint8, p int) uint32 {
	var d LSBDecoder
	d.Init(width)
	d.SetRef(ref)
	v, _ := d.Decode(m, k, p)
	return v
}
