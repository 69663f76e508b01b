// Command dxwifi-encode FEC-encodes a file into concatenated RS-LDPC
// frames, mirroring _examples/original_source/tx-rx/dxwifi/encode.
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
		coderate = pflag.Float64P("coderate", "c", 1.0, "FEC coderate, k/n in (0, 1].")
		seed     = pflag.Int64P("seed", "s", 1, "LDPC-Staircase PRNG seed (accepted; does not affect the output).")
		output   = pflag.StringP("output", "o", "", "Output file (default stdout).")
		help     = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - FEC-encode a file into RS-LDPC frames\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [INPUT]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "INPUT defaults to stdin.\n\n")
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
			fmt.Fprintf(os.Stderr, "dxwifi-encode: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	message, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-encode: reading input: %v\n", err)
		os.Exit(1)
	}

	encoded, err := fec.Encode(message, *coderate, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-encode: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dxwifi-encode: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if _, err := out.Write(encoded); err != nil {
		fmt.Fprintf(os.Stderr, "dxwifi-encode: writing output: %v\n", err)
		os.Exit(1)
	}
}
