// Package rxengine captures 802.11+radiotap frames in monitor mode,
// verifies the sender by Hamming distance, classifies control frames,
// reassembles data frames in order through a bounded min-heap buffer, and
// writes payload blocks out to a sink.
//
// Grounded on _examples/original_source/tx-rx/libdxwifi/receiver.c/.h (the
// stats/state shapes, buffer-flush and capture-loop control flow) and
// details/heap.c (the reassembly ordering, adapted here onto
// internal/xheap's generic Heap instead of a raw byte-record array).
package rxengine

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/oresat-dxwifi/dxwifi-go/internal/capture"
	"github.com/oresat-dxwifi/dxwifi-go/internal/frame"
	"github.com/oresat-dxwifi/dxwifi-go/internal/netdev"
	"github.com/oresat-dxwifi/dxwifi-go/internal/radiotap"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xheap"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

// BufferSizeMin and BufferSizeMax bound the intermediate packet buffer,
// matching DXWIFI_RX_PACKET_BUFFER_SIZE_{MIN,MAX}.
const (
	BufferSizeMin = 2304
	BufferSizeMax = 5 * 1024 * 1024
)

// State is the engine's terminal capture outcome, matching dxwifi_rx_state_t.
type State int

const (
	StateNormal State = iota
	StateTimedOut
	StateDeactivated
	StateError
)

// Stats accumulates per-capture counters, matching dxwifi_rx_stats.
type Stats struct {
	TotalPayloadSize    uint32
	TotalWriteLen       uint32
	TotalCapLen         uint32
	TotalBlocksLost     uint32
	TotalNoiseAdded     uint32
	NumPacketsProcessed uint32
	PacketsDropped      uint32
	State               State
}

// Config configures one Engine, covering the SPEC_FULL.md §6 receive keys.
type Config struct {
	Device           string
	DispatchCount    int
	CaptureTimeout   time.Duration // <=0 means indefinite
	PacketBufferSize int
	Ordered          bool
	AddNoise         bool
	NoiseValue       byte
	SenderAddr       frame.MACAddr
	MaxHammingDist   int
	BPFFilter        string
}

var log = xlog.Named("rx")

type pending struct {
	frameNumber uint32
	payload     []byte
}

// Engine owns one receive session: the capture handle, reassembly buffer,
// and heap.
type Engine struct {
	cfg Config
	h   *capture.Handle

	buf      []byte
	writeOff int
	heap     *xheap.Heap[pending]
	nextSeq  uint32

	dataWritten bool
	eotReached  bool
	endCapture  bool

	activated atomic.Bool
}

// EndCapture reports whether a preamble was observed after data had
// already been written to the sink, signalling the caller to close the
// current output and open the next (§4.4.4).
func (e *Engine) EndCapture() bool { return e.endCapture }

// Init opens device with snapshot length 65535 and any configured BPF
// filter installed. The handle is not put in non-blocking mode: each read
// waits up to CaptureTimeout (forever when CaptureTimeout <= 0).
func Init(cfg Config) (*Engine, error) {
	if cfg.PacketBufferSize < BufferSizeMin || cfg.PacketBufferSize > BufferSizeMax {
		return nil, fmt.Errorf("rxengine: packet_buffer_size %d out of range [%d, %d]", cfg.PacketBufferSize, BufferSizeMin, BufferSizeMax)
	}
	if err := netdev.Validate(cfg.Device); err != nil {
		return nil, fmt.Errorf("rxengine: %w", err)
	}
	timeout := cfg.CaptureTimeout
	if timeout <= 0 {
		timeout = pcapBlockForever
	}
	h, err := capture.OpenCapture(cfg.Device, timeout, cfg.BPFFilter)
	if err != nil {
		return nil, fmt.Errorf("rxengine: %w", err)
	}

	capacity := cfg.PacketBufferSize/capture.SnapLen + 1
	return &Engine{
		cfg:  cfg,
		h:    h,
		buf:  make([]byte, cfg.PacketBufferSize),
		heap: xheap.New[pending](capacity, byFrameNumber),
	}, nil
}

// pcapBlockForever mirrors pcap.BlockForever (-1) without importing pcap
// into this package's public surface.
const pcapBlockForever = -1 * time.Nanosecond

func byFrameNumber(lhs, rhs pending) bool {
	return lhs.frameNumber < rhs.frameNumber
}

// StopCapture cooperatively requests the current capture to wind down; at
// most one more dispatch batch may be processed.
func (e *Engine) StopCapture() {
	e.activated.Store(false)
}

// Close releases the capture handle.
func (e *Engine) Close() {
	e.h.Close()
}

// ActivateCapture runs until stopped, timed out, EOT-bounded, or erroring,
// writing reassembled payload blocks to sink.
func (e *Engine) ActivateCapture(ctx context.Context, sink io.Writer) (Stats, error) {
	var stats Stats
	e.activated.Store(true)
	defer e.activated.Store(false)

	// Control-frame state is per capture: a preamble only ends this capture
	// if data was written during it.
	e.endCapture = false
	e.dataWritten = false
	e.eotReached = false

	dispatch := e.cfg.DispatchCount
	if dispatch < 1 {
		dispatch = 1
	}

	for {
		if !e.activated.Load() {
			stats.State = StateDeactivated
			break
		}
		if ctx.Err() != nil {
			stats.State = StateTimedOut
			break
		}
		if e.endCapture {
			stats.State = StateNormal
			break
		}

		processed := 0
		timedOut := false
		for processed < dispatch {
			data, _, err := e.h.ReadPacketData()
			if err != nil {
				if isTimeout(err) {
					timedOut = true
				} else {
					stats.State = StateError
					e.flush(sink, &stats)
					return stats, fmt.Errorf("rxengine: reading packet: %w", err)
				}
				break
			}
			e.processPacket(data, sink, &stats)
			processed++
			if e.endCapture {
				break
			}
		}
		if timedOut && processed == 0 {
			stats.State = StateTimedOut
			break
		}
	}

	e.flush(sink, &stats)
	return stats, nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return err != nil && err.Error() == "Timeout Expired"
}

func (e *Engine) processPacket(data []byte, sink io.Writer, stats *Stats) {
	rtapHdr, ok := radiotap.ParseHeader(data)
	if !ok || int(rtapHdr.Len) > len(data) {
		return
	}
	rest := data[rtapHdr.Len:]

	mac, ok := frame.UnmarshalMACHeader(rest)
	if !ok {
		return
	}

	if !e.verifySender(mac) {
		stats.PacketsDropped++
		return
	}

	payload := rest[frame.MACHeaderLen:]
	if len(payload) >= frame.FCSLen {
		payload = payload[:len(payload)-frame.FCSLen]
	}

	if _, isControl := frame.ClassifyControl(payload); isControl {
		e.handleControl(payload, stats)
		return
	}

	payloadOff := int(rtapHdr.Len) + frame.MACHeaderLen
	e.handleData(mac, payloadOff, len(payload), data, sink, stats)
}

func (e *Engine) verifySender(mac frame.MACHeader) bool {
	d := e.cfg.MaxHammingDist
	return frame.MatchesSender(mac.Addr1, e.cfg.SenderAddr, d) ||
		frame.MatchesSender(mac.Addr2, e.cfg.SenderAddr, d) ||
		frame.MatchesSender(mac.Addr3, e.cfg.SenderAddr, d)
}

func (e *Engine) handleControl(payload []byte, stats *Stats) {
	value, _ := frame.ClassifyControl(payload)
	switch value {
	case frame.PreambleByte:
		if e.dataWritten {
			e.endCapture = true
			log.Info("preamble observed after data written, ending capture")
		} else {
			log.Info("uplink established")
		}
	case frame.EOTByte:
		e.eotReached = true
		log.Info("end of transmission observed")
	}
}

func (e *Engine) handleData(mac frame.MACHeader, payloadOff, payloadLen int, captured []byte, sink io.Writer, stats *Stats) {
	if e.writeOff+len(captured) > len(e.buf) {
		e.flush(sink, stats)
	}
	if e.writeOff+len(captured) > len(e.buf) {
		log.Warn("packet larger than remaining buffer capacity, dropping", "len", len(captured))
		return
	}

	slot := e.buf[e.writeOff : e.writeOff+len(captured)]
	copy(slot, captured)
	e.writeOff += len(captured)

	view := slot[payloadOff : payloadOff+payloadLen]

	var frameNumber uint32
	if e.cfg.Ordered {
		frameNumber = binary.BigEndian.Uint32(mac.Addr1[2:6])
	} else {
		frameNumber = e.nextSeq
		e.nextSeq++
	}

	if e.heap.Full() {
		e.flush(sink, stats)
	}
	e.heap.Push(pending{frameNumber: frameNumber, payload: view})

	stats.TotalCapLen += uint32(len(captured))
	stats.TotalPayloadSize += uint32(payloadLen)
	stats.NumPacketsProcessed++
	e.dataWritten = true
}

// flush drains the heap in order (§4.4.3), writing one payload block per
// node and, in ordered mode with add_noise enabled, synthesising noise for
// any detected gap.
func (e *Engine) flush(sink io.Writer, stats *Stats) {
	top, ok := e.heap.Peek()
	if !ok {
		e.writeOff = 0
		return
	}
	expected := top.frameNumber

	for {
		node, ok := e.heap.Pop()
		if !ok {
			break
		}
		if e.cfg.Ordered && node.frameNumber > expected {
			gap := node.frameNumber - expected
			stats.TotalBlocksLost += gap
			if e.cfg.AddNoise {
				noise := make([]byte, len(node.payload))
				for i := range noise {
					noise[i] = e.cfg.NoiseValue
				}
				for i := uint32(0); i < gap; i++ {
					if n, err := sink.Write(noise); err != nil || n != len(noise) {
						log.Warn("partial noise write", "err", err)
					} else {
						stats.TotalNoiseAdded += uint32(n)
					}
				}
			}
		}

		n, err := sink.Write(node.payload)
		if err != nil || n != len(node.payload) {
			log.Warn("partial payload write", "err", err, "n", n)
		} else {
			stats.TotalWriteLen += uint32(n)
		}
		expected = node.frameNumber + 1
	}

	e.writeOff = 0
}
