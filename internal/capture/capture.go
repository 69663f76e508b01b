// Package capture wraps gopacket/pcap for the one thing both engines need:
// a monitor-mode handle that can inject raw 802.11 frames and/or capture
// them with a read timeout and an optional BPF filter installed.
//
// Grounded on the pcap.OpenLive / gopacket.NewPacketSource idiom found
// across the sibling pack manifests (e.g. hwipl-smc-clc's listen()).
package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// SnapLen is the snapshot length both engines open their handle with.
const SnapLen = 65535

// Handle wraps an open pcap handle in either injection or capture mode.
type Handle struct {
	pcap *pcap.Handle
}

// OpenInject opens device in promiscuous mode suitable for packet
// injection (transmit engine's init(device_name)), forcing the radiotap
// link type the way transmitter.c's pcap_open_dead(DLT_IEEE802_11_RADIO, ...)
// does.
func OpenInject(device string) (*Handle, error) {
	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("capture: new inactive handle for %s: %w", device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(SnapLen); err != nil {
		return nil, fmt.Errorf("capture: set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("capture: set promisc: %w", err)
	}
	if err := inactive.SetTimeout(pcap.BlockForever); err != nil {
		return nil, fmt.Errorf("capture: set timeout: %w", err)
	}

	h, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("capture: activate %s: %w", device, err)
	}
	if err := h.SetLinkType(layers.LinkTypeIEEE802_11Radio); err != nil {
		h.Close()
		return nil, fmt.Errorf("capture: set datalink to radiotap: %w", err)
	}
	return &Handle{pcap: h}, nil
}

// OpenCapture opens device with the given read timeout and an optional BPF
// filter (empty string installs none); the handle is not put in
// non-blocking mode, so a read waits up to timeout. It forces the radiotap
// link type the way init_receiver's pcap_set_datalink(DLT_IEEE802_11_RADIO)
// does -- some drivers advertise a bare 802.11 DLT by default.
func OpenCapture(device string, timeout time.Duration, bpfFilter string) (*Handle, error) {
	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("capture: new inactive handle for %s: %w", device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(SnapLen); err != nil {
		return nil, fmt.Errorf("capture: set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("capture: set promisc: %w", err)
	}
	if err := inactive.SetTimeout(timeout); err != nil {
		return nil, fmt.Errorf("capture: set timeout: %w", err)
	}

	h, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("capture: activate %s: %w", device, err)
	}
	if err := h.SetLinkType(layers.LinkTypeIEEE802_11Radio); err != nil {
		h.Close()
		return nil, fmt.Errorf("capture: set datalink to radiotap: %w", err)
	}
	if err := h.SetDirection(pcap.DirectionIn); err != nil {
		h.Close()
		return nil, fmt.Errorf("capture: set direction: %w", err)
	}
	if bpfFilter != "" {
		if err := h.SetBPFFilter(bpfFilter); err != nil {
			h.Close()
			return nil, fmt.Errorf("capture: compiling BPF filter %q: %w", bpfFilter, err)
		}
	}

	return &Handle{pcap: h}, nil
}

// WritePacketData injects a raw frame.
func (h *Handle) WritePacketData(data []byte) error {
	return h.pcap.WritePacketData(data)
}

// ReadPacketData performs one read, waiting up to the handle's read
// timeout, and returns pcap.NextErrorTimeoutExpired if no packet arrived.
func (h *Handle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return h.pcap.ZeroCopyReadPacketData()
}

// Close releases the handle.
func (h *Handle) Close() {
	h.pcap.Close()
}
