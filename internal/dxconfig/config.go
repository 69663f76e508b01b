// Package dxconfig loads the YAML configuration consumed by the
// dxwifi-tx/dxwifi-rx commands, covering every key SPEC_FULL.md §6 names.
//
// Grounded on deviceid.go, the one file that actually exercises
// gopkg.in/yaml.v3 (config.go itself is a hand-rolled cgo-era line parser;
// this module's config is small enough that deviceid.go's yaml.Unmarshal
// idiom is the better fit).
package dxconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the flat set of tunables the transmit/receive engines consume.
type Config struct {
	Device string `yaml:"device"`

	BlockSize            int     `yaml:"blocksize"`
	TransmitTimeoutSec   int     `yaml:"transmit_timeout"`
	CaptureTimeoutSec    int     `yaml:"capture_timeout"`
	RedundantCtrlFrames  int     `yaml:"redundant_ctrl_frames"`
	RadiotapFlags        byte    `yaml:"rtap_flags"`
	RadiotapRateMbps     float64 `yaml:"rtap_rate_mbps"`
	RadiotapTxFlags      uint16  `yaml:"rtap_tx_flags"`
	PacketBufferSize     int     `yaml:"packet_buffer_size"`
	Ordered              bool    `yaml:"ordered"`
	AddNoise             bool    `yaml:"add_noise"`
	NoiseValue           byte    `yaml:"noise_value"`
	SenderAddr           string  `yaml:"sender_addr"`
	MaxHammingDist       int     `yaml:"max_hamming_dist"`
	DispatchCount        int     `yaml:"dispatch_count"`
	Coderate             float64 `yaml:"coderate"`
	BPFFilter            string  `yaml:"bpf_filter"`
}

const (
	mtuMax       = 2304
	packetBufMax = 5 * 1024 * 1024
)

// Default returns the configuration's documented defaults.
func Default() Config {
	return Config{
		BlockSize:           1275, // L_rs_ldpc
		TransmitTimeoutSec:  -1,
		CaptureTimeoutSec:   -1,
		RedundantCtrlFrames: 0,
		RadiotapRateMbps:    1,
		PacketBufferSize:    mtuMax,
		Ordered:             true,
		NoiseValue:          0,
		SenderAddr:          "AA:AA:AA:AA:AA:AA",
		MaxHammingDist:      5,
		DispatchCount:       1,
		Coderate:            1.0,
	}
}

// Load reads and validates a YAML config file, starting from Default() so
// any key the file omits keeps its documented default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dxconfig: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("dxconfig: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SenderMAC parses SenderAddr ("AA:AA:AA:AA:AA:AA") into 6 raw bytes.
func (c Config) SenderMAC() ([6]byte, error) {
	var out [6]byte
	parts := strings.Split(c.SenderAddr, ":")
	if len(parts) != 6 {
		return out, fmt.Errorf("dxconfig: sender_addr %q is not a 6-octet MAC", c.SenderAddr)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return out, fmt.Errorf("dxconfig: sender_addr %q: %w", c.SenderAddr, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// Validate enforces the ranges SPEC_FULL.md §6 documents.
func (c Config) Validate() error {
	if c.BlockSize < 257 || c.BlockSize > 2048 {
		return fmt.Errorf("dxconfig: blocksize %d out of range [257, 2048]", c.BlockSize)
	}
	if c.RedundantCtrlFrames < 0 {
		return fmt.Errorf("dxconfig: redundant_ctrl_frames must be >= 0")
	}
	if c.PacketBufferSize < mtuMax || c.PacketBufferSize > packetBufMax {
		return fmt.Errorf("dxconfig: packet_buffer_size %d out of range [%d, %d]", c.PacketBufferSize, mtuMax, packetBufMax)
	}
	if c.DispatchCount < 1 {
		return fmt.Errorf("dxconfig: dispatch_count must be >= 1")
	}
	if c.Coderate <= 0 || c.Coderate > 1.0 {
		return fmt.Errorf("dxconfig: coderate %v out of range (0, 1]", c.Coderate)
	}
	if c.MaxHammingDist < 0 {
		return fmt.Errorf("dxconfig: max_hamming_dist must be >= 0")
	}
	return nil
}
