// The datfile-stat command displays stats for a DAT file.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/skwas/datfile/archive"
	"github.com/skwas/datfile/dat"
	"golang.org/x/crypto/blake2b"
)

const usage = `usage: datfile-stat [INPUT] [OUTPUT]

Reads a DAT file from INPUT, and writes to OUTPUT statistics for the file in
JSON format. INPUT may be compressed.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.
`

// Payload describes an opaque chunk payload.
type Payload struct {
	Magic  string
	ID     uint64 `json:",omitempty"`
	Length int
	Hash   string
}

func newPayload(m dat.Magic, id uint64, b []byte) Payload {
	sum := blake2b.Sum256(b)
	return Payload{
		Magic:  m.String(),
		ID:     id,
		Length: len(b),
		Hash:   hex.EncodeToString(sum[:]),
	}
}

// PayloadList encodes the largest payloads of the list.
type PayloadList []Payload

func (p PayloadList) MarshalJSON() ([]byte, error) {
	list := slices.Clone(p)
	slices.SortStableFunc(list, func(a, b Payload) int {
		return b.Length - a.Length
	})
	if len(list) > 20 {
		list = list[:20]
	}
	return json.Marshal([]Payload(list))
}

// ControllerStats describes the controller records of a file.
type ControllerStats struct {
	// Number of records per controller name.
	NameCount map[string]int

	// Number of resolved records per profile.
	ProfileCount map[string]int

	// Number of records that failed to resolve.
	Unresolved int

	Failures []string `json:",omitempty"`
}

type Stats struct {
	FileType    uint32
	Compression string
	Size        int

	// Number of chunks overall, excluding settings, index and eof.
	ChunkCount int

	// Number of chunks per type.
	MagicCount map[string]int

	Vertices  int
	Triangles int

	Controllers ControllerStats

	LargestPayloads PayloadList `json:",omitempty"`
}

func (s *Stats) Fill(c *dat.Container) {
	if c == nil {
		return
	}
	s.FileType = c.FileType
	s.ChunkCount = len(c.Chunks)
	s.MagicCount = map[string]int{}
	if c.Settings != nil {
		s.LargestPayloads = append(s.LargestPayloads, newPayload(dat.MagicS3DSettings, 0, c.Settings.Bytes))
	}
	for _, chunk := range c.Chunks {
		switch chunk := chunk.(type) {
		case *dat.ControllerData:
			s.MagicCount["ControllerData"]++
			continue
		case *dat.Model:
			s.Vertices += len(chunk.Mesh.Vertices)
			s.Triangles += len(chunk.Mesh.MaterialIndices)
		case *dat.EmbeddedImage:
			s.LargestPayloads = append(s.LargestPayloads, newPayload(chunk.Magic(), chunk.ID, chunk.Bytes))
		case *dat.Unknown:
			s.LargestPayloads = append(s.LargestPayloads, newPayload(chunk.Magic(), 0, chunk.Bytes))
		}
		s.MagicCount[chunk.Magic().String()]++
	}

	s.Controllers.NameCount = map[string]int{}
	s.Controllers.ProfileCount = map[string]int{}
	for ctl, data := range c.Controllers() {
		s.Controllers.NameCount[ctl.Name]++
		v, err := data.Value()
		if err != nil {
			s.Controllers.Unresolved++
			s.Controllers.Failures = append(s.Controllers.Failures, fmt.Sprintf("%d: %s", ctl.ID, err))
			s.LargestPayloads = append(s.LargestPayloads, newPayload(data.Magic(), ctl.ID, data.Raw()))
			continue
		}
		s.Controllers.ProfileCount[v.Profile.String()]++
	}
}

func main() {
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout

	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
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

	b, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("read input: %w", err))
		return
	}

	var stats Stats
	stats.Size = len(b)
	b, m, err := archive.Decompress(b)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decompress: %w", err))
		return
	}
	stats.Compression = m.String()

	c, warn, err := dat.Decoder{}.Decode(bytes.NewReader(b))
	if warn != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode warning: %w", warn))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("decode error: %w", err))
	}

	stats.Fill(c)

	je := json.NewEncoder(output)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(stats); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write error: %w", err))
	}
}
