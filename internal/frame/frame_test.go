package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameControlPackUnpack(t *testing.T) {
	fc := FrameControl{Type: TypeData, Subtype: DataSubtype, FromDS: true, Retry: true}
	got := UnpackFrameControl(fc.Pack())
	assert.Equal(t, fc, got)
}

func TestMACHeaderRoundTrip(t *testing.T) {
	h := NewDataHeader(FrameControl{FromDS: true}, MACAddr{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}, 42)

	buf := h.MarshalBinary()
	require.Equal(t, MACHeaderLen, len(buf))

	got, ok := UnmarshalMACHeader(buf)
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestUnmarshalMACHeaderTooShort(t *testing.T) {
	_, ok := UnmarshalMACHeader(make([]byte, MACHeaderLen-1))
	assert.False(t, ok)
}

func TestIsControlFrame(t *testing.T) {
	preamble := MakeControlPayload(PreambleByte, 256)
	assert.True(t, IsControlFrame(preamble, PreambleByte))

	mixed := make([]byte, 256)
	for i := range mixed {
		if i%2 == 0 {
			mixed[i] = PreambleByte
		}
	}
	assert.False(t, IsControlFrame(mixed, PreambleByte))
}

func TestMatchesSender(t *testing.T) {
	sender := MACAddr{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	assert.True(t, MatchesSender(sender, sender, 5))

	noisy := sender
	noisy[0] ^= 0x03 // 2 bits flipped
	assert.True(t, MatchesSender(noisy, sender, 5))

	noisy2 := sender
	for i := range noisy2 {
		noisy2[i] = ^noisy2[i]
	}
	assert.False(t, MatchesSender(noisy2, sender, 5))
}

func TestClassifyControl(t *testing.T) {
	value, ok := ClassifyControl(MakeControlPayload(EOTByte, 300))
	assert.True(t, ok)
	assert.Equal(t, EOTByte, value)

	_, ok = ClassifyControl(make([]byte, 300))
	assert.False(t, ok)
}
