// Command dxwifi-rx captures FEC-encoded frames from a monitor-mode WiFi
// interface and reassembles them to a file, mirroring
// _examples/original_source/tx-rx/dxwifi/rx/rx.c. Each time the receive
// engine signals end-of-capture (a preamble observed after data was
// written), the current output file is closed and a new one opened, named
// from an strftime-style pattern.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"

	"github.com/oresat-dxwifi/dxwifi-go/internal/dxconfig"
	"github.com/oresat-dxwifi/dxwifi-go/internal/rxengine"
	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

func main() {
	var (
		configPath   = pflag.StringP("config", "c", "", "Path to dxwifi.yaml (defaults applied for any omitted key).")
		device       = pflag.StringP("device", "d", "", "Monitor-mode WiFi interface (overrides config).")
		outputFormat = pflag.StringP("output", "o", "capture-%Y%m%d-%H%M%S.bin", "strftime-style output filename pattern; re-evaluated on each file rotation.")
		help         = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - receive FEC-encoded frames from a monitor-mode WiFi interface\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
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
			fmt.Fprintf(os.Stderr, "dxwifi-rx: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Device = *device
	}
	if cfg.Device == "" {
		fmt.Fprintln(os.Stderr, "dxwifi-rx: no device configured (pass --device or set device: in config)")
		os.Exit(1)
	}

	senderMAC, err := cfg.SenderMAC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-rx: %v\n", err)
		os.Exit(1)
	}

	log := xlog.Named("dxwifi-rx")

	captureTimeout := time.Duration(-1)
	if cfg.CaptureTimeoutSec >= 0 {
		captureTimeout = time.Duration(cfg.CaptureTimeoutSec) * time.Second
	}

	engine, err := rxengine.Init(rxengine.Config{
		Device:           cfg.Device,
		DispatchCount:    cfg.DispatchCount,
		CaptureTimeout:   captureTimeout,
		PacketBufferSize: cfg.PacketBufferSize,
		Ordered:          cfg.Ordered,
		AddNoise:         cfg.AddNoise,
		NoiseValue:       cfg.NoiseValue,
		SenderAddr:       senderMAC,
		MaxHammingDist:   cfg.MaxHammingDist,
		BPFFilter:        cfg.BPFFilter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-rx: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	for {
		name, err := strftime.Format(*outputFormat, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-rx: formatting output filename: %v\n", err)
			os.Exit(1)
		}

		out, err := os.Create(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-rx: %v\n", err)
			os.Exit(1)
		}

		stats, err := engine.ActivateCapture(context.Background(), out)
		out.Close()

		log.Info("capture cycle finished",
			"file", name,
			"packets", stats.NumPacketsProcessed,
			"dropped", stats.PacketsDropped,
			"blocks_lost", stats.TotalBlocksLost,
			"state", stats.State,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-rx: %v\n", err)
			os.Exit(1)
		}

		if stats.State != rxengine.StateNormal || !engine.EndCapture() {
			break
		}
	}
}
