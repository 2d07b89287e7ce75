package decomp

import (
	"fmt"
	"sort"
	"sync"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

// Profile is the operation table a decompression profile registers with the
// framework. The framework drives every inbound packet through these hooks;
// all but DetectPktType may delegate to the generic RFC 3095
// implementations.
type Profile struct {
	ID         uint16
	Name       string
	MSNMaxBits uint8

	NewContext    func(c *Context) error
	FreeContext   func(c *Context)
	DetectPktType func(c *Context, data []byte) rohc.PacketType
	ParsePkt      func(c *Context, data []byte, pt rohc.PacketType) (hdrLen int, payload []byte, err error)
	DecodeBits    func(c *Context) (DecodedValues, error)
	BuildHdrs     func(c *Context, dec *DecodedValues, payload []byte) (pkt []byte, hdrLen int, err error)
	UpdateCtxt    func(c *Context, dec *DecodedValues)
	AttemptRepair func(c *Context) bool
	GetSN         func(c *Context) uint32
}

var (
	registryMu sync.RWMutex
	registry   = make(map[uint16]*Profile)
)

// Register adds a profile to the registry. The framework takes a stable
// reference to the table; registering the same ID twice is an error.
func Register(p *Profile) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p == nil {
		return fmt.Errorf("nil profile")
	}
	if p.DetectPktType == nil || p.NewContext == nil {
		return fmt.Errorf("profile 0x%04x is missing mandatory operations", p.ID)
	}
	if _, exists := registry[p.ID]; exists {
		return fmt.Errorf("profile 0x%04x already registered", p.ID)
	}
	registry[p.ID] = p
	return nil
}

// MustRegister is Register for init-time wiring of built-in profiles.
func MustRegister(p *Profile) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns the profile registered for id.
func Lookup(id uint16) (*Profile, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, exists := registry[id]
	if !exists {
		return nil, fmt.Errorf("%w: 0x%04x", rohc.ErrUnknownProfile, id)
	}
	return p, nil
}

// Profiles returns the registered profiles ordered by ID.
func Profiles() []*Profile {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]*Profile, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
