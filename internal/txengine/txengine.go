// Package txengine streams an input source out over a monitor-mode
// injection handle as preamble control frames, RS-LDPC data frames, and EOT
// control frames, with a pluggable pre/post-injection handler pipeline.
//
// Grounded on _examples/original_source/tx-rx/libdxwifi/transmitter.h (the
// frame/stats/handler-slot shapes, blocksize/timeout/redundancy fields),
// callbacks.go's named callback-dispatch style, and ptt.go's resource
// lifecycle (init acquires a handle, close tears it down).
package txengine

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/oresat-dxwifi/dxwifi-go/internal/capture"
	"github.com/oresat-dxwifi/dxwifi-go/internal/frame"
	"github.com/oresat-dxwifi/dxwifi-go/internal/netdev"
	"github.com/oresat-dxwifi/dxwifi-go/internal/powerctl"
	"github.com/oresat-dxwifi/dxwifi-go/internal/radiotap"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

// MaxHandlers bounds the preinject/postinject handler slots, matching
// DXWIFI_TX_FRAME_HANDLER_MAX.
const MaxHandlers = 8

// FrameType classifies the last frame sent, matching dxwifi_control_frame_t.
type FrameType int

const (
	FrameControlPreamble FrameType = iota
	FrameControlEOT
	FrameData
)

// State is the engine's terminal transmission outcome, matching
// dxwifi_tx_state_t.
type State int

const (
	StateNormal State = iota
	StateTimedOut
	StateDeactivated
	StateError
)

// Stats accumulates per-transmission counters, matching dxwifi_tx_stats.
type Stats struct {
	DataFrameCount uint32
	CtrlFrameCount uint32
	TotalBytesRead uint32
	TotalBytesSent uint32
	PrevBytesRead  uint32
	PrevBytesSent  uint32
	State          State
	LastFrameType  FrameType
}

// Frame is the in-memory transmit frame object: fixed radiotap+MAC headers
// plus a resizable payload region handlers can grow, shrink, or suppress by
// setting PayloadSize to 0.
type Frame struct {
	Radiotap    []byte
	MAC         frame.MACHeader
	Payload     []byte // backing buffer, capacity PayloadMax+FCSLen
	PayloadSize int
}

// Handler is a pre/post-injection callback, matching dxwifi_tx_frame_cb.
type Handler func(f *Frame, stats Stats)

// Config configures one Engine, covering the SPEC_FULL.md §6 transmit keys.
type Config struct {
	Device              string
	BlockSize           int
	TransmitTimeout     time.Duration // not read by Engine; a transmission is bounded only by its context
	RedundantCtrlFrames int
	SenderAddr          frame.MACAddr
	RadiotapFlags       byte
	RadiotapRateMbps    float64
	RadiotapTxFlags     uint16
	Control             frame.FrameControl

	EnablePowerAmp bool
	PAChip         string
	PALine         int
}

// PayloadMax is IEEE80211_MTU_MAX_LEN minus the fixed headers and FCS.
const PayloadMax = 2304 - 12 - frame.MACHeaderLen - frame.FCSLen

// BlockSizeMin and BlockSizeMax bound Config.BlockSize, matching
// SPEC_FULL.md §6's blocksize range -- both comfortably below PayloadMax,
// so a validated BlockSize always fits in one frame's payload.
const (
	BlockSizeMin = 257
	BlockSizeMax = 2048
)

var log = xlog.Named("tx")

// Engine owns one transmit session: the injection handle, handler slots,
// and the reusable frame object.
type Engine struct {
	cfg Config
	h   *capture.Handle
	pa  *powerctl.Amplifier

	preinject  []Handler
	postinject []Handler

	activated atomic.Bool
}

// Init acquires the injection handle at the configured device (snapshot
// length 65535) and, if requested, asserts the PA-enable signal.
func Init(cfg Config) (*Engine, error) {
	if cfg.BlockSize < BlockSizeMin || cfg.BlockSize > BlockSizeMax {
		return nil, fmt.Errorf("txengine: blocksize %d out of range [%d, %d]", cfg.BlockSize, BlockSizeMin, BlockSizeMax)
	}
	if err := netdev.Validate(cfg.Device); err != nil {
		return nil, fmt.Errorf("txengine: %w", err)
	}

	h, err := capture.OpenInject(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("txengine: %w", err)
	}

	e := &Engine{cfg: cfg, h: h}
	if cfg.EnablePowerAmp {
		pa, err := powerctl.Enable(cfg.PAChip, cfg.PALine)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("txengine: %w", err)
		}
		e.pa = pa
	}
	return e, nil
}

// AttachPreInjectHandler appends cb to the preinject pipeline, returning its
// slot id, or an error if the pipeline is full.
func (e *Engine) AttachPreInjectHandler(cb Handler) (int, error) {
	return attach(&e.preinject, cb)
}

// AttachPostInjectHandler appends cb to the postinject pipeline.
func (e *Engine) AttachPostInjectHandler(cb Handler) (int, error) {
	return attach(&e.postinject, cb)
}

func attach(slots *[]Handler, cb Handler) (int, error) {
	if len(*slots) >= MaxHandlers {
		return -1, fmt.Errorf("txengine: handler pipeline full (max %d)", MaxHandlers)
	}
	*slots = append(*slots, cb)
	return len(*slots) - 1, nil
}

// RemovePreInjectHandler removes the handler at slot id.
func (e *Engine) RemovePreInjectHandler(id int) error { return remove(&e.preinject, id) }

// RemovePostInjectHandler removes the handler at slot id.
func (e *Engine) RemovePostInjectHandler(id int) error { return remove(&e.postinject, id) }

func remove(slots *[]Handler, id int) error {
	if id < 0 || id >= len(*slots) {
		return fmt.Errorf("txengine: invalid handler slot %d", id)
	}
	*slots = append((*slots)[:id], (*slots)[id+1:]...)
	return nil
}

// StopTransmission cooperatively requests the current transmission to wind
// down; at most one more frame may be injected after this returns.
func (e *Engine) StopTransmission() {
	e.activated.Store(false)
}

// Close releases the injection handle and PA.
func (e *Engine) Close() error {
	e.h.Close()
	if e.pa != nil {
		return e.pa.Close()
	}
	return nil
}

func (e *Engine) buildFrame() *Frame {
	rtap := radiotap.BuildTxHeader(radiotap.TxParams{
		Flags:    e.cfg.RadiotapFlags,
		RateMbps: e.cfg.RadiotapRateMbps,
		TxFlags:  e.cfg.RadiotapTxFlags,
	})
	return &Frame{
		Radiotap: rtap,
		MAC:      frame.NewDataHeader(e.cfg.Control, e.cfg.SenderAddr, 0),
		Payload:  make([]byte, PayloadMax+frame.FCSLen),
	}
}

func (e *Engine) inject(f *Frame) error {
	buf := make([]byte, 0, len(f.Radiotap)+frame.MACHeaderLen+f.PayloadSize)
	buf = append(buf, f.Radiotap...)
	buf = append(buf, f.MAC.MarshalBinary()...)
	buf = append(buf, f.Payload[:f.PayloadSize]...)
	return e.h.WritePacketData(buf)
}

func (e *Engine) sendControlRuns(ctx context.Context, f *Frame, value byte, stats *Stats) error {
	count := 1 + e.cfg.RedundantCtrlFrames
	payload := frame.MakeControlPayload(value, frame.ControlMinLen)
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		copy(f.Payload, payload)
		f.PayloadSize = len(payload)
		if err := e.inject(f); err != nil {
			return err
		}
		stats.CtrlFrameCount++
		if value == frame.PreambleByte {
			stats.LastFrameType = FrameControlPreamble
		} else {
			stats.LastFrameType = FrameControlEOT
		}
	}
	return nil
}

// StartTransmission streams from src, returning accumulated Stats and a
// terminal error (nil on clean completion).
func (e *Engine) StartTransmission(ctx context.Context, src io.Reader) (Stats, error) {
	return e.stream(ctx, src)
}

// TransmitBytes streams buf from memory.
func (e *Engine) TransmitBytes(ctx context.Context, buf []byte) (Stats, error) {
	return e.stream(ctx, bytesReader(buf))
}

func bytesReader(buf []byte) io.Reader {
	return &byteSliceReader{buf: buf}
}

type byteSliceReader struct {
	buf []byte
	pos int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func (e *Engine) stream(ctx context.Context, src io.Reader) (Stats, error) {
	var stats Stats
	e.activated.Store(true)
	defer e.activated.Store(false)

	f := e.buildFrame()

	if err := e.sendControlRuns(ctx, f, frame.PreambleByte, &stats); err != nil {
		stats.State = StateError
		return stats, err
	}

	readBuf := make([]byte, e.cfg.BlockSize)

loop:
	for {
		if !e.activated.Load() {
			stats.State = StateDeactivated
			break loop
		}
		if ctx.Err() != nil {
			stats.State = StateTimedOut
			break loop
		}

		n, err := src.Read(readBuf)
		if n > 0 {
			copy(f.Payload, readBuf[:n])
			f.PayloadSize = n
			stats.PrevBytesRead = uint32(n)
			stats.TotalBytesRead += uint32(n)
			stats.LastFrameType = FrameData

			for _, h := range e.preinject {
				h(f, stats)
			}

			if f.PayloadSize > 0 {
				if f.PayloadSize > PayloadMax {
					log.Warn("preinject handler grew payload past max, dropping frame", "size", f.PayloadSize)
					f.PayloadSize = 0
				} else {
					if err := e.inject(f); err != nil {
						stats.State = StateError
						return stats, fmt.Errorf("txengine: injecting frame: %w", err)
					}
					stats.DataFrameCount++
					stats.PrevBytesSent = uint32(f.PayloadSize)
					stats.TotalBytesSent += uint32(f.PayloadSize)
				}
			}

			for _, h := range e.postinject {
				h(f, stats)
			}
		}

		if err != nil {
			if err == io.EOF {
				stats.State = StateNormal
			} else {
				stats.State = StateError
			}
			break loop
		}
	}

	if err := e.sendControlRuns(context.Background(), f, frame.EOTByte, &stats); err != nil && stats.State == StateNormal {
		stats.State = StateError
		return stats, err
	}

	if stats.State == StateError {
		return stats, fmt.Errorf("txengine: transmission ended in error state")
	}
	return stats, nil
}
