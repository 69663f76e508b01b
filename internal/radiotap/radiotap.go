// Package radiotap implements the radiotap present-bitmap header used to
// prefix every captured/injected 802.11 frame: the 8-byte base header plus
// an iterator over whichever fields its present bitmap(s) advertise.
//
// Ported from _examples/original_source/libdxwifi/details/radiotap.c, a
// port in turn of github.com/torvalds/linux/net/wireless/radiotap.c. Field
// alignment/size table and the extended-bitmap / vendor-namespace handling
// mirror the original; unaligned little-endian loads replace the C code's
// packed-struct casts.
package radiotap

import "encoding/binary"

// HeaderLen is the fixed size of the base radiotap header
// (it_version, it_pad, it_len, it_present).
const HeaderLen = 8

// Field identifies a radiotap present-bitmap bit, matching
// ieee80211_radiotap_presence.
type Field int

const (
	FieldTSFT Field = iota
	FieldFlags
	FieldRate
	FieldChannel
	FieldFHSS
	FieldDBMAntSignal
	FieldDBMAntNoise
	FieldLockQuality
	FieldTxAttenuation
	FieldDBTxAttenuation
	FieldDBMTxPower
	FieldAntenna
	FieldDBAntSignal
	FieldDBAntNoise
	FieldRxFlags
	FieldTxFlags
	FieldRTSRetries
	FieldDataRetries
	_
	FieldMCS
	FieldAMPDUStatus
	FieldVHT
)

const (
	fieldRadiotapNamespace = 29
	fieldVendorNamespace   = 30
	fieldExt               = 31
)

// Flags, for FieldFlags.
const (
	FlagCFP        = 0x01
	FlagShortPre   = 0x02
	FlagWEP        = 0x04
	FlagFrag       = 0x08
	FlagFCS        = 0x10
	FlagDataPad    = 0x20
	FlagBadFCS     = 0x40
)

type alignSize struct {
	align, size int
}

// namespaceSizes mirrors rtap_namespace_sizes: alignment and encoded size of
// every standard-namespace field this codec understands.
var namespaceSizes = map[Field]alignSize{
	FieldTSFT:            {8, 8},
	FieldFlags:           {1, 1},
	FieldRate:            {1, 1},
	FieldChannel:         {2, 4},
	FieldFHSS:            {2, 2},
	FieldDBMAntSignal:    {1, 1},
	FieldDBMAntNoise:     {1, 1},
	FieldLockQuality:     {2, 2},
	FieldTxAttenuation:   {2, 2},
	FieldDBTxAttenuation: {2, 2},
	FieldDBMTxPower:      {1, 1},
	FieldAntenna:         {1, 1},
	FieldDBAntSignal:     {1, 1},
	FieldDBAntNoise:      {1, 1},
	FieldRxFlags:         {2, 2},
	FieldTxFlags:         {2, 2},
	FieldRTSRetries:      {1, 1},
	FieldDataRetries:     {1, 1},
	FieldMCS:             {1, 3},
	FieldAMPDUStatus:     {4, 8},
	FieldVHT:             {2, 12},
}

// Header is the fixed 8-byte radiotap base header.
type Header struct {
	Version uint8
	Pad     uint8
	Len     uint16
	Present uint32
}

// ParseHeader reads the base header from the front of buf.
func ParseHeader(buf []byte) (Header, bool) {
	if len(buf) < HeaderLen {
		return Header{}, false
	}
	return Header{
		Version: buf[0],
		Pad:     buf[1],
		Len:     binary.LittleEndian.Uint16(buf[2:4]),
		Present: binary.LittleEndian.Uint32(buf[4:8]),
	}, true
}

// MarshalBinary writes the header in its on-air little-endian form.
func (h Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = h.Version
	buf[1] = h.Pad
	binary.LittleEndian.PutUint16(buf[2:4], h.Len)
	binary.LittleEndian.PutUint32(buf[4:8], h.Present)
	return buf
}

// Arg is one decoded present-bitmap argument: which field, and the raw
// unaligned bytes backing it within the captured buffer.
type Arg struct {
	Field Field
	Data  []byte
}

// Iterator walks the fields advertised present in a radiotap header,
// handling additional 32-bit present-bitmap extension words and skipping
// vendor-namespace blocks it doesn't decode.
type Iterator struct {
	buf          []byte
	maxLength    int
	argIndex     int
	bitmapShift  uint32
	pos          int // offset into buf of the next arg to consider
	bitmapWords  []uint32
	wordIdx      int
	inVendorNS   bool
	vendorSkip   int
	resetOnExt   bool
}

// NewIterator initializes an Iterator over buf, which must start at the
// radiotap base header. maxLength caps how far into buf the header's it_len
// is trusted to reach (normally the full captured packet length).
func NewIterator(buf []byte, maxLength int) (*Iterator, bool) {
	hdr, ok := ParseHeader(buf)
	if !ok || hdr.Version != 0 {
		return nil, false
	}
	if maxLength < int(hdr.Len) {
		return nil, false
	}

	words := []uint32{hdr.Present}
	pos := HeaderLen
	for words[len(words)-1]&(1<<fieldExt) != 0 {
		if pos+4 > int(hdr.Len) {
			return nil, false
		}
		words = append(words, binary.LittleEndian.Uint32(buf[pos:pos+4]))
		pos += 4
	}

	return &Iterator{
		buf:         buf,
		maxLength:   int(hdr.Len),
		bitmapWords: words,
		bitmapShift: words[0],
		pos:         pos,
	}, true
}

// Next advances to the next present field, returning it, or ok=false once
// exhausted.
func (it *Iterator) Next() (Arg, bool) {
	for it.wordIdx < len(it.bitmapWords) {
		if it.bitmapShift == 0 {
			it.wordIdx++
			if it.wordIdx >= len(it.bitmapWords) {
				return Arg{}, false
			}
			it.bitmapShift = it.bitmapWords[it.wordIdx]
			it.argIndex = it.wordIdx * 32
			continue
		}

		present := it.bitmapShift&1 != 0
		field := Field(it.argIndex % 32)
		it.bitmapShift >>= 1
		it.argIndex++

		if field == fieldRadiotapNamespace || field == fieldExt {
			continue
		}

		if !present {
			continue
		}

		if field == fieldVendorNamespace {
			// 6-byte vendor sub-header: 3-byte OUI, 1-byte sub-namespace,
			// 2-byte little-endian skip length.
			if it.pos+6 > it.maxLength {
				return Arg{}, false
			}
			skip := int(binary.LittleEndian.Uint16(it.buf[it.pos+4 : it.pos+6]))
			it.pos += 6 + skip
			continue
		}

		as, known := namespaceSizes[field]
		if !known {
			// Unknown field: nothing in this table says how big it is, so
			// we can't safely keep parsing this bitmap word.
			return Arg{}, false
		}

		if as.align > 1 {
			rem := it.pos % as.align
			if rem != 0 {
				it.pos += as.align - rem
			}
		}
		if it.pos+as.size > it.maxLength {
			return Arg{}, false
		}

		arg := Arg{Field: field, Data: it.buf[it.pos : it.pos+as.size]}
		it.pos += as.size
		return arg, true
	}
	return Arg{}, false
}
