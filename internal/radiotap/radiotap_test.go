package radiotap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(present uint32, fields map[Field][]byte) []byte {
	buf := Header{Version: 0, Present: present}.MarshalBinary()

	for f := Field(0); f < 32; f++ {
		if present&(1<<uint(f)) == 0 {
			continue
		}
		as, ok := namespaceSizes[f]
		if !ok {
			continue
		}
		if as.align > 1 {
			for len(buf)%as.align != 0 {
				buf = append(buf, 0)
			}
		}
		data := fields[f]
		if data == nil {
			data = make([]byte, as.size)
		}
		buf = append(buf, data...)
	}

	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(buf)))
	return buf
}

func TestIteratorWalksFlagsAndRate(t *testing.T) {
	present := uint32(1<<FieldFlags | 1<<FieldRate)
	buf := buildHeader(present, map[Field][]byte{
		FieldFlags: {FlagFCS},
		FieldRate:  {2},
	})

	it, ok := NewIterator(buf, len(buf))
	require.True(t, ok)

	arg, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldFlags, arg.Field)
	assert.Equal(t, byte(FlagFCS), arg.Data[0])

	arg, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldRate, arg.Field)
	assert.Equal(t, byte(2), arg.Data[0])

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIteratorRejectsBadVersion(t *testing.T) {
	buf := buildHeader(0, nil)
	buf[0] = 1
	_, ok := NewIterator(buf, len(buf))
	assert.False(t, ok)
}

func TestBuildTxHeaderIsTwelveBytes(t *testing.T) {
	buf := BuildTxHeader(TxParams{Flags: FlagFCS, RateMbps: 6, TxFlags: TxFlagNoACK})
	require.Equal(t, 12, len(buf))

	hdr, ok := ParseHeader(buf)
	require.True(t, ok)
	assert.Equal(t, uint16(12), hdr.Len)

	it, ok := NewIterator(buf, len(buf))
	require.True(t, ok)

	arg, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldFlags, arg.Field)
	assert.Equal(t, byte(FlagFCS), arg.Data[0])

	arg, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldRate, arg.Field)
	assert.Equal(t, byte(12), arg.Data[0]) // 6 Mbps * 2

	arg, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldTxFlags, arg.Field)
	assert.Equal(t, uint16(TxFlagNoACK), binary.LittleEndian.Uint16(arg.Data))
}

func TestIteratorAlignsChannelField(t *testing.T) {
	// Flags (1-byte) then Channel (2-byte aligned, 4-byte size): one pad
	// byte should be inserted before Channel.
	present := uint32(1<<FieldFlags | 1<<FieldChannel)
	buf := buildHeader(present, map[Field][]byte{
		FieldFlags:   {0},
		FieldChannel: {0x10, 0x20, 0x01, 0x00},
	})

	it, ok := NewIterator(buf, len(buf))
	require.True(t, ok)

	_, ok = it.Next() // flags
	require.True(t, ok)

	arg, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, FieldChannel, arg.Field)
	assert.Equal(t, []byte{0x10, 0x20, 0x01, 0x00}, arg.Data)
}
