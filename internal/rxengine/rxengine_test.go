package rxengine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oresat-dxwifi/dxwifi-go/internal/frame"
	"github.com/oresat-dxwifi/dxwifi-go/internal/radiotap"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xheap"
)

var testSender = frame.MACAddr{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

func newTestEngine(ordered bool) *Engine {
	return &Engine{
		cfg: Config{
			Ordered:        ordered,
			AddNoise:       true,
			NoiseValue:     0x00,
			SenderAddr:     testSender,
			MaxHammingDist: 5,
		},
		buf:  make([]byte, 4096),
		heap: xheap.New[pending](8, byFrameNumber),
	}
}

func buildCapturedFrame(t *testing.T, frameNumber uint32, payload []byte) []byte {
	t.Helper()
	rtap := radiotap.BuildTxHeader(radiotap.TxParams{RateMbps: 1})
	mac := frame.NewDataHeader(frame.FrameControl{FromDS: true}, testSender, 0)
	binary.BigEndian.PutUint32(mac.Addr1[2:6], frameNumber)

	buf := make([]byte, 0, len(rtap)+frame.MACHeaderLen+len(payload)+frame.FCSLen)
	buf = append(buf, rtap...)
	buf = append(buf, mac.MarshalBinary()...)
	buf = append(buf, payload...)
	buf = append(buf, make([]byte, frame.FCSLen)...)
	return buf
}

func TestProcessPacketReordersByFrameNumber(t *testing.T) {
	e := newTestEngine(true)
	var sink bytes.Buffer
	var stats Stats

	payload := func(b byte) []byte { return bytes.Repeat([]byte{b}, 64) }

	e.processPacket(buildCapturedFrame(t, 2, payload(2)), &sink, &stats)
	e.processPacket(buildCapturedFrame(t, 0, payload(0)), &sink, &stats)
	e.processPacket(buildCapturedFrame(t, 1, payload(1)), &sink, &stats)

	e.flush(&sink, &stats)

	out := sink.Bytes()
	require.Equal(t, 192, len(out))
	assert.Equal(t, payload(0), out[0:64])
	assert.Equal(t, payload(1), out[64:128])
	assert.Equal(t, payload(2), out[128:192])
	assert.EqualValues(t, 3, stats.NumPacketsProcessed)
}

func TestProcessPacketFillsGapWithNoise(t *testing.T) {
	e := newTestEngine(true)
	var sink bytes.Buffer
	var stats Stats

	payload := bytes.Repeat([]byte{0x7A}, 32)

	e.processPacket(buildCapturedFrame(t, 0, payload), &sink, &stats)
	e.processPacket(buildCapturedFrame(t, 2, payload), &sink, &stats)
	e.flush(&sink, &stats)

	out := sink.Bytes()
	require.Equal(t, 96, len(out))
	assert.Equal(t, payload, out[0:32])
	assert.Equal(t, make([]byte, 32), out[32:64])
	assert.Equal(t, payload, out[64:96])
	assert.EqualValues(t, 1, stats.TotalBlocksLost)
	assert.EqualValues(t, 32, stats.TotalNoiseAdded)
}

func TestProcessPacketDropsUnverifiedSender(t *testing.T) {
	e := newTestEngine(false)
	e.cfg.SenderAddr = frame.MACAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	e.cfg.MaxHammingDist = 0
	var sink bytes.Buffer
	var stats Stats

	e.processPacket(buildCapturedFrame(t, 0, bytes.Repeat([]byte{1}, 16)), &sink, &stats)

	assert.EqualValues(t, 1, stats.PacketsDropped)
	assert.EqualValues(t, 0, stats.NumPacketsProcessed)
}

func TestProcessPacketClassifiesControlFrame(t *testing.T) {
	e := newTestEngine(false)
	var sink bytes.Buffer
	var stats Stats

	e.processPacket(buildCapturedFrame(t, 0, frame.MakeControlPayload(frame.PreambleByte, frame.ControlMinLen)), &sink, &stats)

	assert.False(t, e.dataWritten)
	assert.EqualValues(t, 0, stats.NumPacketsProcessed)
}
