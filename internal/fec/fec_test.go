package fec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSingleSymbolRoundTrip(t *testing.T) {
	// Scenario 1: "HELLO WORLD" at coderate 0.667 floors to k=n=1, no repair
	// symbols at all -- n==k is exempt from the N1 floor.
	msg := []byte("HELLO WORLD")

	encoded, err := Encode(msg, 0.667, 1)
	require.NoError(t, err)
	assert.Equal(t, RSLDPCFrameSize, len(encoded))

	decoded, err := Decode(encoded, 99)
	require.NoError(t, err)
	require.Equal(t, SymbolSize, len(decoded))

	assert.Equal(t, msg, decoded[:len(msg)])
	for _, b := range decoded[len(msg):] {
		assert.Equal(t, byte(0), b)
	}
}

func TestEncodeRepairRecoversDroppedFrames(t *testing.T) {
	// Scenario 2: 5 KiB of 0xA5 at coderate 0.5; drop n-k frames and still
	// decode.
	msg := bytes.Repeat([]byte{0xA5}, 5*1024)

	encoded, err := Encode(msg, 0.5, 42)
	require.NoError(t, err)

	n := len(encoded) / RSLDPCFrameSize
	k := int((uint32(len(msg)) + SymbolSize - 1) / SymbolSize)
	require.Greater(t, n, k)

	// Drop the first n-k frames: at coderate 0.5, n = 2k, so these are the
	// k source frames and every source symbol has to be rebuilt from the
	// k repair frames that remain.
	dropped := n - k
	remaining := encoded[dropped*RSLDPCFrameSize:]
	require.Equal(t, k*RSLDPCFrameSize, len(remaining))

	decoded, err := Decode(remaining, 7)
	require.NoError(t, err)

	want := make([]byte, k*SymbolSize)
	copy(want, msg)
	assert.Equal(t, want, decoded)
}

func TestEncodeRejectsBadCoderate(t *testing.T) {
	_, err := Encode([]byte("x"), 0, 1)
	assert.Error(t, err)

	_, err = Encode([]byte("x"), 1.5, 1)
	assert.Error(t, err)
}

func TestEncodeRejectsNoRepairBelowN1Min(t *testing.T) {
	// r = 1.0 with a message long enough that n > k is impossible to avoid
	// (k grows) would still give n==k, which is legal; instead force n-k
	// into the (0,3) dead zone with a coderate that floors n to k+1 or k+2.
	msg := bytes.Repeat([]byte{1}, SymbolSize*10)

	// k=10; choose r so that n = floor(k/r) = 11 (n-k=1 < N1Min).
	_, err := Encode(msg, 0.85, 1)
	assert.ErrorIs(t, err, ErrBelowN1Min)
}

func TestEncodeRejectsExceedingMaxSymbols(t *testing.T) {
	// k=1 (a single short message), coderate small enough that n=floor(k/r)
	// blows past MaxSymbols without needing a huge input buffer.
	_, err := Encode([]byte{1}, 0.00001, 1)
	assert.ErrorIs(t, err, ErrExceededMaxSymbols)
}

func TestDecodeFailsOnCorruptOTI(t *testing.T) {
	msg := []byte("some message long enough to need a couple symbols of padding")
	encoded, err := Encode(msg, 0.667, 3)
	require.NoError(t, err)

	// RS(255,223) corrects up to 16 byte errors per block, so flipping the
	// OTI's CRC bytes alone just gets healed before the OTI check ever
	// runs. Stomp 20 distinct bytes of block 0 (which carries the OTI) in
	// every frame -- beyond the block's correction capacity, so the
	// corruption survives RS decoding and no frame's OTI CRC matches its
	// symbol.
	corrupt := append([]byte(nil), encoded...)
	n := len(corrupt) / RSLDPCFrameSize
	for i := 0; i < n; i++ {
		frame := corrupt[i*RSLDPCFrameSize : (i+1)*RSLDPCFrameSize]
		for j := 0; j < 20; j++ {
			frame[j] ^= 0xFF
		}
	}

	_, err = Decode(corrupt, 3)
	assert.ErrorIs(t, err, ErrNoOTIFound)
}

func TestOTIMarshalUnmarshalRoundTrip(t *testing.T) {
	oti := OTI{ESI: 7, N: 20, K: 12, CRC: 0xDEADBEEF}
	got := UnmarshalOTI(oti.MarshalBinary())
	assert.Equal(t, oti, got)
}

func TestN1For(t *testing.T) {
	n1, ok := n1For(20, 10)
	assert.True(t, ok)
	assert.Equal(t, 10, n1)

	n1, ok = n1For(12, 10)
	assert.False(t, ok)
	assert.Equal(t, 2, n1)

	n1, ok = n1For(10, 10)
	assert.True(t, ok)
	assert.Equal(t, 0, n1)
}
