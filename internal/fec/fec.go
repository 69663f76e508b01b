// Package fec implements the CORE's forward-error-correction codec: an
// LDPC-Staircase inner code wrapped in a Reed-Solomon(255,223) outer code,
// each LDPC frame stamped with a self-describing OTI header and a CRC-32.
//
// Grounded on _examples/original_source/libdxwifi/fec.c/.h (OTI layout,
// encode/decode algorithm shape, N1 bounds) and fx25_init.go/fx25_encode.go
// (Reed-Solomon table construction and systematic encode, ported off cgo
// onto native Go arithmetic in rs.go).
package fec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

var log = xlog.Named("fec")

// Wire-format constants for the RS-LDPC frame layout.
const (
	// M is the number of message bytes per Reed-Solomon block.
	M = 223
	// P is the number of Reed-Solomon parity bytes per block.
	P = 32
	// B is the number of RS blocks carried by one LDPC frame.
	B = 5

	// OTISize is the wire size, in bytes, of the OTI header (esi, n, k, crc
	// each as a big-endian uint32 -- the 16-byte layout resolved in
	// SPEC_FULL.md's Open Question 1).
	OTISize = 16

	// LDPCFrameSize is B*M: OTI + symbol, before RS encoding.
	LDPCFrameSize = B * M

	// SymbolSize is the payload carried by one logical FEC unit.
	SymbolSize = LDPCFrameSize - OTISize

	// RSLDPCFrameSize is the on-air size of one FEC-encoded unit.
	RSLDPCFrameSize = B * (M + P)

	// MaxSymbols is OFEC_MAX, the ceiling on n enforced by the historical
	// OpenFEC LDPC-Staircase profile this codec mimics.
	MaxSymbols = 50000

	// N1Min and N1Max bound the LDPC-Staircase column-weight parameter.
	N1Min = 3
	N1Max = 10
)

func init() {
	if n := len(OTI{}.MarshalBinary()); n != OTISize {
		panic(fmt.Sprintf("fec: OTI wire size mismatch: got %d, want %d", n, OTISize))
	}
}

// Error is a stable, named FEC failure, matching spec.md's closed error
// taxonomy (ExceededMaxSymbols | BelowN1Min | NoOtiFound | DecodeNotPossible).
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

var (
	// ErrExceededMaxSymbols is returned when the requested coderate would
	// push n above MaxSymbols.
	ErrExceededMaxSymbols = &Error{"N exceeds maximum number of symbols. Possible solution, decrease the coderate"}
	// ErrBelowN1Min is returned when n-k can't support a valid N1.
	ErrBelowN1Min = &Error{"N - K is below the N1 minimum. Possible solution, increase the coderate"}
	// ErrNoOTIFound is returned when no LDPC frame has a self-consistent OTI.
	ErrNoOTIFound = &Error{"no OTI header found in the encoded message"}
	// ErrDecodeNotPossible is returned when the LDPC decoder can't recover
	// all k source symbols from the repair symbols received.
	ErrDecodeNotPossible = &Error{"decode failed, not enough repair symbols"}
)

// OTI is the Object Transmission Information header prepended to every
// LDPC frame.
type OTI struct {
	ESI uint32 // encoding symbol index
	N   uint32 // total number of symbols (source + repair)
	K   uint32 // number of source symbols
	CRC uint32 // CRC-32 of the following symbol body
}

// MarshalBinary writes the OTI in big-endian wire form.
func (o OTI) MarshalBinary() []byte {
	buf := make([]byte, OTISize)
	binary.BigEndian.PutUint32(buf[0:4], o.ESI)
	binary.BigEndian.PutUint32(buf[4:8], o.N)
	binary.BigEndian.PutUint32(buf[8:12], o.K)
	binary.BigEndian.PutUint32(buf[12:16], o.CRC)
	return buf
}

// UnmarshalOTI reads a big-endian OTI from the front of buf.
func UnmarshalOTI(buf []byte) OTI {
	return OTI{
		ESI: binary.BigEndian.Uint32(buf[0:4]),
		N:   binary.BigEndian.Uint32(buf[4:8]),
		K:   binary.BigEndian.Uint32(buf[8:12]),
		CRC: binary.BigEndian.Uint32(buf[12:16]),
	}
}

// CRC32 is the IEEE 802.3 CRC-32 of a symbol body, matching spec.md §4.6.
func CRC32(symbol []byte) uint32 {
	return crc32.ChecksumIEEE(symbol)
}

// n1For returns N1 = min(n-k, 10) and whether it's within [N1Min, N1Max].
// n == k (no repair symbols at all, e.g. a single-symbol message at a
// coderate that floors n down to k) is exempt: there's no LDPC-Staircase
// construction to parameterise, so the N1 floor doesn't apply.
func n1For(n, k uint32) (int, bool) {
	if n == k {
		return 0, true
	}
	n1 := int(n - k)
	if n1 > N1Max {
		n1 = N1Max
	}
	return n1, n1 >= N1Min
}

// Encode FEC-encodes message at the given coderate and returns the
// concatenated RS-LDPC frames (length n*RSLDPCFrameSize), or a named Error.
//
// seed is accepted but does not affect the output: the LDPC-Staircase
// parity structure is derived from a fixed internal seed (see ldpc.go), so
// encoding is deterministic for a given message and coderate and the
// decoder never needs to agree on a seed (SPEC_FULL.md §3, Open Question 3).
func Encode(message []byte, coderate float64, seed int64) ([]byte, error) {
	if coderate <= 0 || coderate > 1.0 {
		return nil, fmt.Errorf("fec: coderate %v out of range (0,1]", coderate)
	}

	k := uint32(math.Ceil(float64(len(message)) / float64(SymbolSize)))
	if k == 0 {
		k = 1
	}
	n := uint32(float64(k) / coderate)

	if n > MaxSymbols {
		return nil, ErrExceededMaxSymbols
	}
	n1, ok := n1For(n, k)
	if !ok {
		return nil, ErrBelowN1Min
	}

	symbols := make([][]byte, n)
	for esi := uint32(0); esi < k; esi++ {
		sym := make([]byte, SymbolSize)
		start := int(esi) * SymbolSize
		if start < len(message) {
			end := start + SymbolSize
			if end > len(message) {
				end = len(message)
			}
			copy(sym, message[start:end])
		}
		symbols[esi] = sym
	}

	staircase := newLDPCStaircase(k, n-k, SymbolSize, seed, n1)
	for esi := k; esi < n; esi++ {
		symbols[esi] = staircase.buildRepairSymbol(symbols, esi)
	}

	out := make([]byte, int(n)*RSLDPCFrameSize)
	for esi := uint32(0); esi < n; esi++ {
		oti := OTI{ESI: esi, N: n, K: k, CRC: CRC32(symbols[esi])}
		ldpcFrame := append(oti.MarshalBinary(), symbols[esi]...)

		rsFrame := out[int(esi)*RSLDPCFrameSize : int(esi+1)*RSLDPCFrameSize]
		for block := 0; block < B; block++ {
			msg := ldpcFrame[block*M : (block+1)*M]
			codec := rsOuterCodec()
			parity := codec.encode(msg)
			dst := rsFrame[block*(M+P) : (block+1)*(M+P)]
			copy(dst[:M], msg)
			copy(dst[M:], parity)
		}
	}

	return out, nil
}

// Decode reverses Encode: it RS-corrects each frame's blocks, finds the
// first frame with a self-consistent OTI to learn (n,k), LDPC-decodes the
// k source symbols, and concatenates them into a k*SymbolSize buffer.
func Decode(encoded []byte, seed int64) ([]byte, error) {
	if rem := len(encoded) % RSLDPCFrameSize; rem != 0 {
		log.Warn("encoded length is not a multiple of the RS-LDPC frame size, trailing bytes dropped",
			"len", len(encoded), "frame_size", RSLDPCFrameSize, "trailing", rem)
	}
	nframes := len(encoded) / RSLDPCFrameSize

	ldpcFrames := make([][]byte, nframes)
	for i := 0; i < nframes; i++ {
		rsFrame := encoded[i*RSLDPCFrameSize : (i+1)*RSLDPCFrameSize]
		ldpcFrame := make([]byte, LDPCFrameSize)
		for block := 0; block < B; block++ {
			codeword := make([]byte, M+P)
			copy(codeword, rsFrame[block*(M+P):(block+1)*(M+P)])

			codec := rsOuterCodec()
			codec.decode(codeword) // errors-only correction; ignored if uncorrectable

			copy(ldpcFrame[block*M:(block+1)*M], codeword[:M])
		}
		ldpcFrames[i] = ldpcFrame
	}

	idx := -1
	for i, frame := range ldpcFrames {
		oti := UnmarshalOTI(frame)
		symbol := frame[OTISize:]
		if CRC32(symbol) == oti.CRC {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNoOTIFound
	}

	firstOTI := UnmarshalOTI(ldpcFrames[idx])
	n, k := firstOTI.N, firstOTI.K
	n1, _ := n1For(n, k)

	staircase := newLDPCStaircase(k, n-k, SymbolSize, seed, n1)
	for _, frame := range ldpcFrames {
		oti := UnmarshalOTI(frame)
		if oti.ESI >= n {
			log.Warn("skipping frame with out-of-range ESI", "esi", oti.ESI, "n", n)
			continue
		}
		staircase.submit(frame[OTISize:], oti.ESI)
	}

	source, ok := staircase.finish()
	if !ok {
		return nil, ErrDecodeNotPossible
	}

	out := make([]byte, int(k)*SymbolSize)
	for esi := uint32(0); esi < k; esi++ {
		copy(out[int(esi)*SymbolSize:(int(esi)+1)*SymbolSize], source[esi])
	}
	return out, nil
}

func rsOuterCodec() *rsCodec {
	return outerCodec
}

// outerCodec is the single shared RS(255,223) table set; GF tables are
// read-only once built, so one instance safely serves every block/frame.
var outerCodec = newRSCodec(P)
