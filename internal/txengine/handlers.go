package txengine

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/oresat-dxwifi/dxwifi-go/internal/frame"
)

// DelayHandler sleeps d between frames. Both settings of requireFullElapsed
// block for the full duration; the sleep is not interrupted by context
// cancellation or signals.
func DelayHandler(d time.Duration, requireFullElapsed bool) Handler {
	return func(f *Frame, stats Stats) {
		if requireFullElapsed {
			time.Sleep(d)
			return
		}
		timer := time.NewTimer(d)
		<-timer.C
	}
}

// PacketLossHandler drops a frame (sets PayloadSize to 0) with independent
// probability p per invocation.
func PacketLossHandler(p float64) Handler {
	return func(f *Frame, stats Stats) {
		if p <= 0 {
			return
		}
		if bernoulli(p) {
			f.PayloadSize = 0
		}
	}
}

func bernoulli(p float64) bool {
	if p >= 1 {
		return true
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1<<32))
	if err != nil {
		return false
	}
	return float64(n.Int64())/float64(int64(1)<<32) < p
}

// BitErrorHandler flips floor(frameSize*8*e) distinct bits chosen uniformly
// at random from the non-radiotap portion of the frame (MAC header +
// payload), using rejection sampling to avoid flipping a bit twice. Flips
// landing in the MAC header are written back into f.MAC, not just
// discarded, so the header is corrupted along with the payload.
func BitErrorHandler(e float64) Handler {
	return func(f *Frame, stats Stats) {
		if e <= 0 || f.PayloadSize == 0 {
			return
		}
		mac := f.MAC.MarshalBinary()
		region := make([]byte, 0, len(mac)+f.PayloadSize)
		region = append(region, mac...)
		region = append(region, f.Payload[:f.PayloadSize]...)

		totalBits := len(region) * 8
		flips := int(float64(totalBits) * e)
		if flips <= 0 {
			return
		}

		flipped := make(map[int]bool, flips)
		for len(flipped) < flips && len(flipped) < totalBits {
			bit := randIntn(totalBits)
			if flipped[bit] {
				continue
			}
			flipped[bit] = true
			region[bit/8] ^= 1 << uint(bit%8)
		}

		if mutated, ok := frame.UnmarshalMACHeader(region[:len(mac)]); ok {
			f.MAC = mutated
		}
		copy(f.Payload[:f.PayloadSize], region[len(mac):])
	}
}

func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// FrameNumberStampingHandler writes htonl(data_frame_count) into the MAC
// header's Addr1[2:6], letting the receive engine recover frame order from
// the address field instead of a running counter (the "ordered" mode).
func FrameNumberStampingHandler() Handler {
	return func(f *Frame, stats Stats) {
		binary.BigEndian.PutUint32(f.MAC.Addr1[2:6], stats.DataFrameCount)
	}
}
