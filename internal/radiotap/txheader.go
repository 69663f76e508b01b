package radiotap

import "encoding/binary"

// TxFlags, for FieldTxFlags.
const (
	TxFlagNoACK    = 0x0008
	TxFlagNoSeqNo  = 0x0010
	TxFlagOrder    = 0x0020
)

// TxParams configures the fixed 12-byte transmit radiotap header this
// module injects with every frame: present bits FLAGS, RATE, TX_FLAGS only,
// per SPEC_FULL.md §4.2.
type TxParams struct {
	Flags    byte
	RateMbps float64
	TxFlags  uint16
}

// BuildTxHeader encodes the fixed transmit header: base header (it_len=12,
// present = FLAGS|RATE|TX_FLAGS) followed by the FLAGS byte, RATE byte
// (2*Mbps, radiotap's 500 kbps units), and the 2-byte TX_FLAGS field.
func BuildTxHeader(p TxParams) []byte {
	present := uint32(1<<FieldFlags | 1<<FieldRate | 1<<FieldTxFlags)
	hdr := Header{Version: 0, Pad: 0, Len: HeaderLen + 4, Present: present}

	buf := hdr.MarshalBinary()
	buf = append(buf, p.Flags)
	buf = append(buf, byte(p.RateMbps*2))
	txFlags := make([]byte, 2)
	binary.LittleEndian.PutUint16(txFlags, p.TxFlags)
	buf = append(buf, txFlags...)

	return buf
}
