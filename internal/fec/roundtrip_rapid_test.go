package fec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestEncodeDecodeRoundTrip is the property from spec.md §8: decode(encode(m,
// r)) reproduces m padded out to a multiple of S, for any r that keeps
// n within bounds and N1 valid.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msglen := rapid.IntRange(1, SymbolSize*3).Draw(t, "msglen")
		msg := rapid.SliceOfN(rapid.Byte(), msglen, msglen).Draw(t, "msg")

		k := uint32((msglen + SymbolSize - 1) / SymbolSize)

		// Pick n directly (rather than back-solving a coderate) so every
		// draw lands on a valid (n,k): n==k, or n-k in [N1Min, N1Max].
		var n uint32
		if rapid.Bool().Draw(t, "norepair") {
			n = k
		} else {
			n = k + uint32(rapid.IntRange(N1Min, N1Max).Draw(t, "gap"))
		}
		coderate := float64(k) / float64(n)

		seed := int64(rapid.Uint32().Draw(t, "seed"))

		encoded, err := Encode(msg, coderate, seed)
		require.NoError(t, err)
		require.Equal(t, int(n)*RSLDPCFrameSize, len(encoded))

		decoded, err := Decode(encoded, seed+1) // decoder seed need not match
		require.NoError(t, err)

		want := make([]byte, int(k)*SymbolSize)
		copy(want, msg)
		require.Equal(t, want, decoded)
	})
}
