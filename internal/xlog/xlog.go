// Package xlog wires up structured logging for every command in this
// module. textcolor.go reimplements Dire Wolf's color-text log levels
// (DW_COLOR_INFO/ERROR/REC/DECODED/XMIT/DEBUG) by hand with a "TODO KG"
// stub; this package replaces that stub with charmbracelet/log, keeping
// the same level-by-purpose idea: one named logger per concern (codec, tx,
// rx, capture, powerctl) instead of one global sink.
package xlog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Level mirrors textcolor.go's dw_color_e, renamed to what each level is
// actually used for in this module rather than a terminal color.
type Level int

const (
	LevelInfo Level = iota
	LevelError
	LevelReceive
	LevelDecoded
	LevelTransmit
	LevelDebug
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

// SetLevel sets the minimum level the root logger will emit, matching
// text_color_init's level gate (0 disables everything below info).
func SetLevel(l log.Level) {
	base.SetLevel(l)
}

// Named returns a child logger tagged with component, e.g. "fec", "tx",
// "rx", "capture", "powerctl" -- one per SPEC_FULL.md component, tagged by
// purpose the way textcolor.go tags each subsystem's log lines.
func Named(component string) *log.Logger {
	return base.WithPrefix(component)
}
