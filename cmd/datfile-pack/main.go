// The datfile-pack command compresses or decompresses a DAT file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/skwas/datfile/archive"
	"github.com/skwas/datfile/dat"
	"github.com/skwas/datfile/errors"
)

const usage = `usage: datfile-pack [-method METHOD] [-rewrite] [-verify] [INPUT] [OUTPUT]

Reads a DAT file from INPUT, and writes to OUTPUT the same file compressed with
METHOD, which is one of "zstd", "lz4", or "none". INPUT may already be
compressed with any method. The file is decoded to ensure that it is valid.

If -rewrite is given, then the file is reencoded, which rebuilds its index and
chunk sizes. If -verify is given, then the output is decompressed and compared
with the uncompressed content before being written, and controller records
that cannot be decoded are reported.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.
`

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	method := flag.String("method", "zstd", "compression method")
	rewrite := flag.Bool("rewrite", false, "reencode the file")
	verify := flag.Bool("verify", false, "verify the compressed output")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	m, err := archive.ParseMethod(*method)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("open input: %w", err))
			return
		}
		input = in
		defer in.Close()
	}

	b, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("read input: %w", err))
		return
	}
	b, _, err = archive.Decompress(b)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decompress: %w", err))
		return
	}

	c, warn, err := dat.Decoder{Resolve: *verify}.Decode(bytes.NewReader(b))
	for _, w := range errors.List(warn) {
		fmt.Fprintln(os.Stderr, fmt.Errorf("warning: %w", w))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("error: %w", err))
		return
	}
	if *rewrite {
		var buf bytes.Buffer
		if err := (dat.Encoder{}).Encode(&buf, c); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("encode: %w", err))
			return
		}
		b = buf.Bytes()
	}

	packed, err := archive.Compress(m, b)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("compress: %w", err))
		return
	}
	if *verify {
		out, _, err := archive.Decompress(packed)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("verify: %w", err))
			return
		}
		if !bytes.Equal(out, b) {
			fmt.Fprintln(os.Stderr, "verify: decompressed content differs")
			return
		}
	}

	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("create output: %w", err))
			return
		}
		defer out.Close()
		defer func() {
			err := out.Sync()
			if err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("sync output: %w", err))
				return
			}
		}()
		output = out
	}
	if _, err := output.Write(packed); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write output: %w", err))
	}
}
