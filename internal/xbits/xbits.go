// Package xbits holds the small bit-level helpers used by the framer (and,
// through frame.MatchesSender, the receive engine's sender check):
// population-count based Hamming distance and
// the mask/overlay helpers used to patch individual fields into packed wire
// words without disturbing their neighbours.
package xbits

import "math/bits"

// HammingDistance32 returns the number of differing bits between a and b.
func HammingDistance32(a, b uint32) int {
	return bits.OnesCount32(a ^ b)
}

// Overlay16 returns word with the bits selected by mask replaced by the
// corresponding bits of value: (word &^ mask) | (value & mask).
func Overlay16(word, mask, value uint16) uint16 {
	return (word &^ mask) | (value & mask)
}
