package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRSEncodeCleanCodewordDecodesToZeroErrors(t *testing.T) {
	rs := newRSCodec(P)

	msg := make([]byte, M)
	for i := range msg {
		msg[i] = byte(i * 7)
	}
	parity := rs.encode(msg)
	require.Equal(t, P, len(parity))

	codeword := append(append([]byte{}, msg...), parity...)
	corrected := rs.decode(codeword)
	assert.Equal(t, 0, corrected)
	assert.Equal(t, msg, codeword[:M])
}

func TestRSDecodeCorrectsErrors(t *testing.T) {
	rs := newRSCodec(P)

	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.SliceOfN(rapid.Byte(), M, M).Draw(t, "msg")
		parity := rs.encode(msg)
		codeword := append(append([]byte{}, msg...), parity...)

		// RS(255,223) with 32 parity bytes corrects up to 16 symbol errors.
		nerrs := rapid.IntRange(0, P/2).Draw(t, "nerrs")
		idxs := rapid.Permutation(indices(M + P)).Draw(t, "idxs")[:nerrs]

		corrupted := append([]byte{}, codeword...)
		for _, idx := range idxs {
			delta := rapid.IntRange(1, 255).Draw(t, "delta")
			corrupted[idx] ^= byte(delta)
		}

		got := rs.decode(corrupted)
		require.GreaterOrEqual(t, got, 0, "decode reported uncorrectable within error-correction bound")
		assert.Equal(t, msg, corrupted[:M])
	})
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
