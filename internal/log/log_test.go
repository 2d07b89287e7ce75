package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogrusAdapterLevels(t *testing.T) {
	l, err := newLogrusAdapter(&Config{Level: "debug", Format: "text"})
	assert.NoError(t, err)
	assert.True(t, l.IsDebugEnabled())

	l, err = newLogrusAdapter(&Config{Level: "warn", Format: "json"})
	assert.NoError(t, err)
	assert.False(t, l.IsDebugEnabled())

	// Unknown levels fall back to info instead of failing.
	l, err = newLogrusAdapter(&Config{Level: "shout", Format: "text"})
	assert.NoError(t, err)
	assert.False(t, l.IsDebugEnabled())
}

func TestGetLoggerLazyDefault(t *testing.T) {
	l := GetLogger()
	assert.NotNil(t, l)
	assert.NotNil(t, l.WithField("cid", 0))
	assert.NotNil(t, l.WithError(nil))
}

func TestInitFirstCallWins(t *testing.T) {
	assert.NoError(t, Init(DefaultConfig()))
	first := GetLogger()
	assert.NoError(t, Init(&Config{Level: "debug", Format: "json"}))
	assert.Equal(t, first, GetLogger())
}
