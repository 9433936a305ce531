// The datfile-dump command writes a readable representation of a DAT file.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/skwas/datfile/archive"
	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/dat"
	datjson "github.com/skwas/datfile/json"
	"github.com/skwas/datfile/schema"
)

const usage = `usage: datfile-dump [-manifest FILE] [-json] [INPUT] [OUTPUT]

Reads a DAT file from INPUT, and writes to OUTPUT a readable representation of
each chunk. Controller records are decoded with the built-in schemas, plus the
schemas declared by the manifest, if given. INPUT may be compressed.

If -json is given, the file is decoded and written as a JSON document instead.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.
`

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	manifest := flag.String("manifest", "", "YAML manifest of additional controller schemas")
	asJSON := flag.Bool("json", false, "write the file as JSON")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var resolver *controller.Resolver
	if *manifest != "" {
		m, err := schema.LoadManifest(*manifest)
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("load manifest: %w", err))
			os.Exit(1)
		}
		reg, err := controller.NewCatalog()
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("load catalog: %w", err))
			os.Exit(1)
		}
		if err := m.Register(reg, controller.CustomTypes()); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("register manifest: %w", err))
			os.Exit(1)
		}
		resolver = &controller.Resolver{Registry: reg}
	}

	args := flag.Args()
	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("open input: %w", err))
			os.Exit(1)
		}
		input = in
		defer in.Close()
	}
	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("create output: %w", err))
			os.Exit(1)
		}
		defer out.Close()
		defer func() {
			if err := out.Sync(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("sync output: %w", err))
			}
		}()
		output = out
	}

	b, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("read input: %w", err))
		return
	}
	if b, _, err = archive.Decompress(b); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decompress: %w", err))
		return
	}

	dec := dat.Decoder{Resolver: resolver}
	if *asJSON {
		c, warn, err := dec.Decode(bytes.NewReader(b))
		if warn != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("warning: %w", warn))
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("error: %w", err))
			return
		}
		je := json.NewEncoder(output)
		je.SetEscapeHTML(false)
		je.SetIndent("", "\t")
		if err := je.Encode(datjson.ContainerToJSONInterface(c)); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("write error: %w", err))
		}
		return
	}

	warn, err := dec.Dump(output, bytes.NewReader(b))
	if warn != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("warning: %w", warn))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("error: %w", err))
	}
}
