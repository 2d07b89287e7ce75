package decomp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WeirdyBenji/librohc/internal/rohc"
)

func TestIPProfileRegistered(t *testing.T) {
	p, err := Lookup(rohc.ProfileIP)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0004), p.ID)
	assert.Equal(t, "ip", p.Name)
	assert.Equal(t, uint8(16), p.MSNMaxBits)
	assert.NotNil(t, p.NewContext)
	assert.NotNil(t, p.FreeContext)
	assert.NotNil(t, p.DetectPktType)
	assert.NotNil(t, p.ParsePkt)
	assert.NotNil(t, p.DecodeBits)
	assert.NotNil(t, p.BuildHdrs)
	assert.NotNil(t, p.UpdateCtxt)
	assert.NotNil(t, p.AttemptRepair)
	assert.NotNil(t, p.GetSN)
}

func TestRegisterDuplicate(t *testing.T) {
	err := Register(IPProfile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterMissingOperations(t *testing.T) {
	err := Register(&Profile{ID: 0x7fff})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing mandatory operations")
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup(0x1234)
	assert.ErrorIs(t, err, rohc.ErrUnknownProfile)
}

func TestProfilesOrdered(t *testing.T) {
	profiles := Profiles()
	assert.NotEmpty(t, profiles)
	for i := 1; i < len(profiles); i++ {
		assert.Less(t, profiles[i-1].ID, profiles[i].ID)
	}
}

func TestIPContextLifecycle(t *testing.T) {
	c, _ := newIPContext(t, false)

	assert.NotNil(t, c.Persist)
	assert.Equal(t, rohc.ProfileIP, c.Persist.ProfileID)
	assert.Nil(t, c.Persist.Specific)
	assert.NotNil(t, c.Persist.ParseDynNextHdr)
	assert.NotNil(t, c.Persist.ParseExt3)
	assert.False(t, c.Persist.SNLSB.HasRef())

	// The SN window is 16 bits wide: 16 transmitted bits are absolute.
	c.Persist.SNLSB.SetRef(0)
	v, ok := c.Persist.SNLSB.Decode(0xffff, 16, lsbShiftSN)
	assert.True(t, ok)
	assert.Equal(t, uint32(0xffff), v)

	ipDestroy(c)
	assert.Nil(t, c.Persist)
}
