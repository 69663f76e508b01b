// Command dxwifi-decode reverses dxwifi-encode: RS-corrects and
// LDPC-decodes a concatenated RS-LDPC frame stream back into the original
// bytes, mirroring _examples/original_source/tx-rx/dxwifi/decode.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/oresat-dxwifi/dxwifi-go/internal/fec"
)

func main() {
	var (
		seed   = pflag.Int64P("seed", "s", 1, "LDPC-Staircase repair-symbol PRNG seed (need not match the encoder's).")
		output = pflag.StringP("output", "o", "", "Output file (default stdout).")
		help   = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - decode an RS-LDPC frame stream back to bytes\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [INPUT]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "INPUT defaults to stdin.\n\n")
		fmt.Fprintf(os.Stderr, "Output is always a whole number of %d-byte symbols: trailing zero padding\nadded by the encoder is not trimmed.\n\n", fec.SymbolSize)
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
			fmt.Fprintf(os.Stderr, "dxwifi-decode: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	encoded, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-decode: reading input: %v\n", err)
		os.Exit(1)
	}

	decoded, err := fec.Decode(encoded, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-decode: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-decode: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if _, err := out.Write(decoded); err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-decode: writing output: %v\n", err)
		os.Exit(1)
	}
}
