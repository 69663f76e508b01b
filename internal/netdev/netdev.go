// Package netdev resolves and validates the WiFi interface name the
// transmit/receive engines are pointed at before capture.OpenInject or
// capture.OpenCapture ever touches libpcap, so a typo in dxwifi.yaml's
// device key fails fast with a clear error instead of an opaque pcap one.
//
// Grounded on github.com/jochenvg/go-udev's netlink/udev enumeration API.
package netdev

import (
	"fmt"

	"github.com/jochenvg/go-udev"
	"golang.org/x/sys/unix"
)

// Interface describes one net-subsystem device udev knows about.
type Interface struct {
	Name   string
	Driver string
}

// List enumerates every device in the "net" subsystem.
func List() ([]Interface, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("net"); err != nil {
		return nil, fmt.Errorf("netdev: matching subsystem: %w", err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("netdev: enumerating devices: %w", err)
	}

	out := make([]Interface, 0, len(devices))
	for _, d := range devices {
		out = append(out, Interface{
			Name:   d.Sysname(),
			Driver: d.Driver(),
		})
	}
	return out, nil
}

// Exists reports whether name is a currently known net-subsystem device.
func Exists(name string) (bool, error) {
	ifaces, err := List()
	if err != nil {
		return false, err
	}
	for _, i := range ifaces {
		if i.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Validate returns an error naming the configured device if it is not
// present on the system. It prefers udev enumeration; if that fails (no
// netlink socket in a restrictive sandbox, for instance) it falls back to
// a plain if_nameindex listing via golang.org/x/sys/unix.
func Validate(device string) error {
	ok, err := Exists(device)
	if err != nil {
		ok = existsViaIfIndex(device)
	}
	if !ok {
		return fmt.Errorf("netdev: device %q not found", device)
	}
	return nil
}

func existsViaIfIndex(device string) bool {
	ifaces, err := unix.IfNameIndex()
	if err != nil {
		return false
	}
	for _, i := range ifaces {
		if unix.ByteSliceToString(i.Name[:]) == device {
			return true
		}
	}
	return false
}
