// Command dxwifi-errsim applies the transmit engine's built-in channel
// impairments (packet loss, bit errors) to an already FEC-encoded stream
// off the air, so the codec's error-correction can be exercised without
// real hardware. Mirrors the exemplar handlers described for the transmit
// engine (spec.md §4.3.3), applied per RS-LDPC frame instead of per
// radio frame.
package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/spf13/pflag"

	"github.com/oresat-dxwifi/dxwifi-go/internal/fec"
)

func main() {
	var (
		lossProb  = pflag.Float64P("loss", "l", 0, "Bernoulli probability of dropping (zeroing) an entire RS-LDPC frame.")
		errorRate = pflag.Float64P("bit-error", "e", 0, "Fraction of bits flipped in each surviving frame.")
		output    = pflag.StringP("output", "o", "", "Output file (default stdout).")
		help      = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - simulate channel loss/bit errors on an RS-LDPC frame stream\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [INPUT]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "INPUT (output of dxwifi-encode) defaults to stdin.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	in := os.Stdin
	if pflag.NArg() > 0 {
		f, err := os.Open(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-errsim: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-errsim: reading input: %v\n", err)
		os.Exit(1)
	}
	if len(data)%fec.RSLDPCFrameSize != 0 {
		fmt.Fprintf(os.Stderr, "dxwifi-errsim: input length %d is not a multiple of the RS-LDPC frame size (%d)\n", len(data), fec.RSLDPCFrameSize)
		os.Exit(1)
	}

	nframes := len(data) / fec.RSLDPCFrameSize
	dropped := 0
	for i := 0; i < nframes; i++ {
		frame := data[i*fec.RSLDPCFrameSize : (i+1)*fec.RSLDPCFrameSize]
		if *lossProb > 0 && bernoulli(*lossProb) {
			for j := range frame {
				frame[j] = 0
			}
			dropped++
			continue
		}
		if *errorRate > 0 {
			flipBits(frame, *errorRate)
		}
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-errsim: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if _, err := out.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-errsim: writing output: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "dxwifi-errsim: %d/%d frames dropped\n", dropped, nframes)
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

// flipBits flips floor(len(frame)*8*e) distinct bits chosen uniformly at
// random from frame, via rejection sampling so no bit is flipped twice.
func flipBits(frame []byte, e float64) {
	totalBits := len(frame) * 8
	flips := int(float64(totalBits) * e)
	if flips <= 0 {
		return
	}

	flipped := make(map[int]bool, flips)
	for len(flipped) < flips && len(flipped) < totalBits {
		bit, err := rand.Int(rand.Reader, big.NewInt(int64(totalBits)))
		if err != nil {
			return
		}
		b := int(bit.Int64())
		if flipped[b] {
			continue
		}
		flipped[b] = true
		frame[b/8] ^= 1 << uint(b%8)
	}
}
