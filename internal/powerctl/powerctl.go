// Package powerctl drives the onboard power-amplifier enable line, ported
// from _examples/original_source/libdxwifi/power_amp.c/.h off libgpiod/cgo
// onto the pure-Go github.com/warthog618/go-gpiocdev driver. Per spec.md's
// Non-goals, power-amp control sits outside the FEC/framing/transmit core
// as an optional collaborator the transmit engine may call into at
// init/close time.
package powerctl

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/oresat-dxwifi/dxwifi-go/internal/xlog"
)

// PA_ENABLE lives on MII1_TX_CLK, mapped to gpiochip3 line 9 on the
// reference board -- same offsets as DXWIFI_PA_GPIO_CHIP/LINE.
const (
	DefaultChip = "gpiochip3"
	DefaultLine = 9
)

var log = xlog.Named("powerctl")

// Amplifier holds the requested GPIO line for the PA enable signal. It is
// not safe for concurrent use, matching the original's single static
// power_amplifier note.
type Amplifier struct {
	line    *gpiocdev.Line
	enabled bool
}

// Enable requests chip/line as an output and asserts it, failing if already
// enabled (PA_ERROR in the original).
func Enable(chip string, line int) (*Amplifier, error) {
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("dxwifi"))
	if err != nil {
		return nil, fmt.Errorf("powerctl: requesting %s:%d: %w", chip, line, err)
	}
	log.Info("power amplifier enabled", "chip", chip, "line", line)
	return &Amplifier{line: l, enabled: true}, nil
}

// Close deasserts the enable line and releases the GPIO handle.
func (a *Amplifier) Close() error {
	if a == nil || a.line == nil {
		return nil
	}
	var err error
	if a.enabled {
		if setErr := a.line.SetValue(0); setErr != nil {
			err = fmt.Errorf("powerctl: disabling: %w", setErr)
		}
		a.enabled = false
	}
	if closeErr := a.line.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("powerctl: releasing line: %w", closeErr)
	}
	log.Info("power amplifier disabled")
	return err
}
