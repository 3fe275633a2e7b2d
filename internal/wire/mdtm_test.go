package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMDTMRoundTrip(t *testing.T) {
	dt := PackFATDateTime(2024, 1, 15, 10, 30, 0)
	s := FormatMDTM(dt)
	assert.Equal(t, "20240115103000", s)

	got, name, err := ParseMDTMArg(s + " x")
	assert.NoError(t, err)
	assert.Equal(t, "x", name)
	assert.Equal(t, dt, got)
}

func TestMDTMRoundTripAllSeconds(t *testing.T) {
	// FAT time only stores 2-second resolution; verify the pack/unpack/format
	// chain is stable for a sampling of even seconds.
	for _, sec := range []int{0, 2, 30, 58} {
		dt := PackFATDateTime(2000, 6, 15, 12, 0, sec)
		s := FormatMDTM(dt)
		got, _, err := ParseMDTMArg(s + " f")
		assert.NoError(t, err)
		assert.Equal(t, dt, got)
	}
}

func TestParseMDTMArgNoTimestamp(t *testing.T) {
	_, name, err := ParseMDTMArg("short.txt")
	assert.ErrorIs(t, err, ErrNoTimestamp)
	assert.Equal(t, "short.txt", name)

	_, name, err = ParseMDTMArg("2024011510300 missing-digit.txt")
	assert.ErrorIs(t, err, ErrNoTimestamp)
	assert.Equal(t, "2024011510300 missing-digit.txt", name)
}
