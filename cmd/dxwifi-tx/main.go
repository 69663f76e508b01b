// Command dxwifi-tx streams a file out over a monitor-mode WiFi interface
// as FEC-encoded frames, mirroring
// _examples/original_source/tx-rx/dxwifi/tx/tx.c.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/oresat-dxwifi/dxwifi-go/internal/dxconfig"
	"github.com/oresat-dxwifi/dxwifi-go/internal/frame"
	"github.com/oresat-dxwifi/dxwifi-go/internal/powerctl"
	"github.com/oresat-dxwifi/dxwifi-go/internal/txengine"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to dxwifi.yaml (defaults applied for any omitted key).")
		device     = pflag.StringP("device", "d", "", "Monitor-mode WiFi interface (overrides config).")
		powerAmp   = pflag.Bool("power-amp", false, "Assert the onboard power-amplifier enable line before transmitting.")
		paChip     = pflag.String("pa-chip", powerctl.DefaultChip, "GPIO chip for the power-amplifier enable line.")
		paLine     = pflag.Int("pa-line", powerctl.DefaultLine, "GPIO line offset for the power-amplifier enable line.")
		lossProb   = pflag.Float64("simulate-loss", 0, "Bernoulli packet-loss probability for testing (0 disables).")
		bitErrRate = pflag.Float64("simulate-bit-error", 0, "Fraction of each frame's non-radiotap bits to flip for testing (0 disables).")
		delay      = pflag.Duration("delay", 0, "Sleep between frames.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - transmit FEC-encoded frames over a monitor-mode WiFi interface\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [INPUT]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "INPUT (already FEC-encoded, see dxwifi-encode) defaults to stdin.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg := dxconfig.Default()
	if *configPath != "" {
		loaded, err := dxconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Device = *device
	}
	if cfg.Device == "" {
		fmt.Fprintln(os.Stderr, "dxwifi-tx: no device configured (pass --device or set device: in config)")
		os.Exit(1)
	}

	senderMAC, err := cfg.SenderMAC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
		os.Exit(1)
	}

	log := xlog.Named("dxwifi-tx")

	engine, err := txengine.Init(txengine.Config{
		Device:              cfg.Device,
		BlockSize:           cfg.BlockSize,
		RedundantCtrlFrames: cfg.RedundantCtrlFrames,
		SenderAddr:          senderMAC,
		RadiotapFlags:       cfg.RadiotapFlags,
		RadiotapRateMbps:    cfg.RadiotapRateMbps,
		RadiotapTxFlags:     cfg.RadiotapTxFlags,
		Control:             frame.FrameControl{FromDS: true},
		EnablePowerAmp:      *powerAmp,
		PAChip:              *paChip,
		PALine:              *paLine,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if *delay > 0 {
		if _, err := engine.AttachPreInjectHandler(txengine.DelayHandler(*delay, true)); err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
	}
	if *lossProb > 0 {
		if _, err := engine.AttachPreInjectHandler(txengine.PacketLossHandler(*lossProb)); err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
	}
	if *bitErrRate > 0 {
		if _, err := engine.AttachPreInjectHandler(txengine.BitErrorHandler(*bitErrRate)); err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
	}
	if cfg.Ordered {
		if _, err := engine.AttachPreInjectHandler(txengine.FrameNumberStampingHandler()); err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if cfg.TransmitTimeoutSec >= 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TransmitTimeoutSec)*time.Second)
		defer cancel()
	}

	var in *os.File
	if pflag.NArg() > 0 {
		f, err := os.Open(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	} else {
		in = os.Stdin
	}

	stats, err := engine.StartTransmission(ctx, in)
	log.Info("transmission finished",
		"data_frames", stats.DataFrameCount,
		"ctrl_frames", stats.CtrlFrameCount,
		"bytes_sent", stats.TotalBytesSent,
		"state", stats.State,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-tx: %v\n", err)
		os.Exit(1)
	}
}
