// Package frame builds and parses the wire frame: radiotap header + IEEE
// 802.11 3-address data header + payload, the on-air envelope around every
// RS-LDPC frame or control run.
//
// Grounded on _examples/original_source/libdxwifi/details/ieee80211.h (the
// packed 3-address header layout and frame-control bit masks, ported from
// github.com/torvalds/linux) and ax25_pad.go's "small packed header,
// explicit pack/unpack methods" shape, which this package follows.
package frame

import (
	"encoding/binary"

	"github.com/oresat-dxwifi/dxwifi-go/internal/xbits"
)

const (
	// MACHeaderLen is the size of ieee80211_hdr_3addr.
	MACHeaderLen = 2 + 2 + 6 + 6 + 6 + 2

	// MACAddrLen is IEEE80211_MAC_ADDR_LEN.
	MACAddrLen = 6

	// FCSLen is IEEE80211_FCS_SIZE.
	FCSLen = 4

	// ProtocolVersion is IEEE80211_PROTOCOL_VERSION.
	ProtocolVersion = 0
)

// Frame-control masks, matching ieee80211_fctl_masks.
const (
	FCtlVersion    = 0x0003
	FCtlFrameType  = 0x000c
	FCtlSubtype    = 0x00f0
	FCtlToDS       = 0x0100
	FCtlFromDS     = 0x0200
	FCtlMoreFrag   = 0x0400
	FCtlRetry      = 0x0800
	FCtlPowerMgmt  = 0x1000
	FCtlMoreData   = 0x2000
	FCtlProtected  = 0x4000
	FCtlOrder      = 0x8000
)

// Frame types, matching ieee80211_fctl_type.
const (
	TypeManagement uint16 = 0x00
	TypeControl    uint16 = 0x04
	TypeData       uint16 = 0x08
	TypeExtension  uint16 = 0x0c
)

// DataSubtype is IEEE80211_STYPE_DATA: plain data, no QoS/CF extensions.
const DataSubtype uint16 = 0x0000

// FrameControl is an unpacked view of the 16-bit frame_control field,
// mirroring ieee80211_frame_control without the union (this module only
// ever builds data frames).
type FrameControl struct {
	Type     uint16
	Subtype  uint16
	ToDS     bool
	FromDS   bool
	MoreFrag bool
	Retry    bool
	PwrMgmt  bool
	MoreData bool
	WEP      bool
	Order    bool
}

// bitMask returns mask if set, else 0 -- the value half of an
// xbits.Overlay16 field-overlay.
func bitMask(set bool, mask uint16) uint16 {
	if set {
		return mask
	}
	return 0
}

// Pack encodes the frame control fields into the wire uint16, assembling
// it field by field with the same mask-overlay macro ieee80211.h uses to
// patch individual bits into a packed word.
func (fc FrameControl) Pack() uint16 {
	var v uint16
	v = xbits.Overlay16(v, FCtlVersion, ProtocolVersion)
	v = xbits.Overlay16(v, FCtlFrameType, fc.Type)
	v = xbits.Overlay16(v, FCtlSubtype, fc.Subtype)
	v = xbits.Overlay16(v, FCtlToDS, bitMask(fc.ToDS, FCtlToDS))
	v = xbits.Overlay16(v, FCtlFromDS, bitMask(fc.FromDS, FCtlFromDS))
	v = xbits.Overlay16(v, FCtlMoreFrag, bitMask(fc.MoreFrag, FCtlMoreFrag))
	v = xbits.Overlay16(v, FCtlRetry, bitMask(fc.Retry, FCtlRetry))
	v = xbits.Overlay16(v, FCtlPowerMgmt, bitMask(fc.PwrMgmt, FCtlPowerMgmt))
	v = xbits.Overlay16(v, FCtlMoreData, bitMask(fc.MoreData, FCtlMoreData))
	v = xbits.Overlay16(v, FCtlProtected, bitMask(fc.WEP, FCtlProtected))
	v = xbits.Overlay16(v, FCtlOrder, bitMask(fc.Order, FCtlOrder))
	return v
}

// UnpackFrameControl decodes the wire uint16 into a FrameControl.
func UnpackFrameControl(v uint16) FrameControl {
	return FrameControl{
		Type:     v & FCtlFrameType,
		Subtype:  v & FCtlSubtype,
		ToDS:     v&FCtlToDS != 0,
		FromDS:   v&FCtlFromDS != 0,
		MoreFrag: v&FCtlMoreFrag != 0,
		Retry:    v&FCtlRetry != 0,
		PwrMgmt:  v&FCtlPowerMgmt != 0,
		MoreData: v&FCtlMoreData != 0,
		WEP:      v&FCtlProtected != 0,
		Order:    v&FCtlOrder != 0,
	}
}

// MACAddr is a 6-byte 802.11 hardware address.
type MACAddr [MACAddrLen]byte

// MACHeader is ieee80211_hdr_3addr: this module always transmits with
// to_ds=0, from_ds=1 (Destination, BSSID, Source), matching the project's
// historical addressing choice for an injected one-way downlink.
type MACHeader struct {
	Control  FrameControl
	Duration uint16
	Addr1    MACAddr // Destination
	Addr2    MACAddr // BSSID
	Addr3    MACAddr // Source
	SeqCtrl  uint16
}

// MarshalBinary packs the header into its MACHeaderLen-byte wire form.
func (h MACHeader) MarshalBinary() []byte {
	buf := make([]byte, MACHeaderLen)
	binary.LittleEndian.PutUint16(buf[0:2], h.Control.Pack())
	binary.LittleEndian.PutUint16(buf[2:4], h.Duration)
	copy(buf[4:10], h.Addr1[:])
	copy(buf[10:16], h.Addr2[:])
	copy(buf[16:22], h.Addr3[:])
	binary.LittleEndian.PutUint16(buf[22:24], h.SeqCtrl)
	return buf
}

// UnmarshalMACHeader parses a MACHeaderLen-byte header from the front of
// buf, reporting ok=false if buf is too short.
func UnmarshalMACHeader(buf []byte) (MACHeader, bool) {
	if len(buf) < MACHeaderLen {
		return MACHeader{}, false
	}
	var h MACHeader
	h.Control = UnpackFrameControl(binary.LittleEndian.Uint16(buf[0:2]))
	h.Duration = binary.LittleEndian.Uint16(buf[2:4])
	copy(h.Addr1[:], buf[4:10])
	copy(h.Addr2[:], buf[10:16])
	copy(h.Addr3[:], buf[16:22])
	h.SeqCtrl = binary.LittleEndian.Uint16(buf[22:24])
	return h, true
}

// DefaultSenderAddr is the sender MAC this wire format assumes when no
// override is configured.
var DefaultSenderAddr = MACAddr{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

// macHalves splits a 6-byte address into two 32-bit words (top 4 bytes,
// bottom 2 bytes zero-extended), matching receiver.c's addr_dist split of
// a MAC address into a pair of 32-bit halves for hamming_dist32.
func macHalves(a MACAddr) (top, bottom uint32) {
	top = binary.BigEndian.Uint32(a[0:4])
	bottom = uint32(a[4])<<8 | uint32(a[5])
	return top, bottom
}

// MatchesSender reports whether addr is within maxHamming bit flips of
// sender -- the receive-side verification spec.md requires against any of
// the three address fields before accepting a data frame. The distance is
// hamming_dist32(top)+hamming_dist32(bottom), matching receiver.c's
// addr_dist; a distance exactly at the configured maximum is rejected,
// not accepted (receiver.c's addr_dist < threshold).
func MatchesSender(addr, sender MACAddr, maxHamming int) bool {
	addrTop, addrBottom := macHalves(addr)
	senderTop, senderBottom := macHalves(sender)
	dist := xbits.HammingDistance32(addrTop, senderTop) + xbits.HammingDistance32(addrBottom, senderBottom)
	return dist < maxHamming
}

// BroadcastAddr is the addr1/addr3 filler this module transmits with: the
// protocol only carries identity in addr2 (the sender MAC), so addr1/addr3
// are left at the all-ones broadcast value per SPEC_FULL.md §4.2.
var BroadcastAddr = MACAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// DefaultDuration is the on-wire duration_id value (0xFFFF); both byte
// orders agree since the value is byte-symmetric.
const DefaultDuration uint16 = 0xFFFF

// NewDataHeader builds the transmit header: addr1 and addr3 are the
// broadcast filler, addr2 carries sender (the value the receiver's
// Hamming-distance check matches against), and duration_id is the fixed
// 0xFFFF sentinel.
func NewDataHeader(ctl FrameControl, sender MACAddr, seq uint16) MACHeader {
	ctl.Type = TypeData
	ctl.Subtype = DataSubtype
	return MACHeader{
		Control:  ctl,
		Duration: DefaultDuration,
		Addr1:    BroadcastAddr,
		Addr2:    sender,
		Addr3:    BroadcastAddr,
		SeqCtrl:  (seq << 4) & 0xfff0,
	}
}
