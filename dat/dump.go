package dat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/errors"
	"github.com/skwas/datfile/field"
	"golang.org/x/crypto/blake2b"
)

// Dump writes to w a readable representation of the file decoded from r.
// Controller records are resolved as they are dumped; a record that fails to
// resolve is dumped as bytes along with the error.
func (d Decoder) Dump(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	f, warn, err := d.decode(r)
	if err != nil {
		return warn, err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Magic: 0x%08X", FileMagic)
	fmt.Fprintf(bw, "\nFileType: %d", f.Container.FileType)
	fmt.Fprintf(bw, "\nChunks: (count:%d) {", len(f.Entries))
	for i, e := range f.Entries {
		dumpChunk(bw, 1, i, e)
	}
	fmt.Fprint(bw, "\n}")

	return warn, bw.Flush()
}

func dumpChunk(w *bufio.Writer, indent, i int, e entry) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "#%d: ", i)
	dumpMagic(w, e.Chunk.Magic())
	fmt.Fprintf(w, " (offset:%d) (size:%d) (subtype:%d) {", e.Offset, e.Size, e.Chunk.SubType())
	key := func(name string) {
		dumpNewline(w, indent+1)
		w.WriteString(name)
		w.WriteString(": ")
	}
	switch c := e.Chunk.(type) {
	case *Model:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("Vertices")
		fmt.Fprintf(w, "(count:%d)", len(c.Mesh.Vertices))
		key("Triangles")
		fmt.Fprintf(w, "(count:%d)", len(c.Mesh.MaterialIndices))
		key("TextureCoordinates")
		fmt.Fprintf(w, "(count:%d)", len(c.Mesh.TextureCoordinates))
		key("UVMaps")
		fmt.Fprintf(w, "(count:%d)", len(c.Mesh.UVMaps))
		for _, m := range c.Mesh.UVMaps {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "channel %d: (count:%d)", m.Channel, len(m.TextureIndices))
		}
		key("Normals")
		fmt.Fprintf(w, "(count:%d)", len(c.Mesh.Normals))
	case *Material:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("Opacity")
		fmt.Fprint(w, c.Opacity)
		key("Diffuse")
		fmt.Fprintf(w, "%d, %d, %d, %d", c.Diffuse.R, c.Diffuse.G, c.Diffuse.B, c.Diffuse.A)
		key("Specular")
		fmt.Fprintf(w, "%d, %d, %d, %d", c.Specular.R, c.Specular.G, c.Specular.B, c.Specular.A)
		key("SpecularStrength")
		fmt.Fprint(w, c.SpecularStrength)
		key("Glossiness")
		fmt.Fprint(w, c.Glossiness)
		key("Emission")
		fmt.Fprint(w, c.Emission)
		key("Flags")
		fmt.Fprintf(w, "0x%02X", c.Flags)
		if c.Textured {
			key("CreationTime")
			w.WriteString(c.CreationTime.Format("2006-01-02 15:04:05"))
			key("Texture")
			dumpString(w, indent+1, c.Texture)
		}
	case *EmbeddedImage:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("Bytes")
		dumpHash(w, c.Bytes)
	case *NodeLink:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("Translation")
		dumpVec(w, c.Translation[:])
		key("Rotation")
		dumpVec(w, c.Rotation[:])
	case *Label:
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("Text")
		dumpString(w, indent+1, c.Text)
	case *Controller:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("Name")
		dumpString(w, indent+1, c.Name)
	case *ControllerData:
		v, err := c.Value()
		if err != nil {
			key("Error")
			dumpError(w, indent+1, err)
			key("Bytes")
			dumpBytes(w, indent+1, c.Raw())
			break
		}
		key("Name")
		dumpString(w, indent+1, v.Name)
		key("Profile")
		w.WriteString(v.Profile.String())
		key("Framing")
		w.WriteString(v.Framing.String())
		if v.Framing == field.Raw {
			key("SubType")
			fmt.Fprint(w, v.SubType)
		}
		key("Record")
		dumpRecord(w, indent+1, v.Record)
	case *Placement:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("TargetID")
		fmt.Fprint(w, c.TargetID)
		key("Position")
		dumpVec(w, c.Position[:])
		key("Rotation")
		dumpVec(w, c.Rotation[:])
	case *TextureMap:
		key("ID")
		fmt.Fprint(w, c.ID)
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("MapChannel")
		fmt.Fprint(w, c.MapChannel)
		key("Attributes")
		fmt.Fprintf(w, "0x%08X", c.Attributes)
		key("CreationTime")
		w.WriteString(c.CreationTime.Format("2006-01-02 15:04:05"))
		key("MapType")
		dumpString(w, indent+1, c.MapType)
		key("Texture")
		dumpString(w, indent+1, c.Texture)
	case *S3DSettings:
		key("Bytes")
		dumpHash(w, c.Bytes)
	case *AuthorInfo:
		key("Author")
		dumpString(w, indent+1, c.Author)
		key("Description")
		dumpString(w, indent+1, c.Description)
		if len(c.Signature) > 0 {
			key("Signature")
			dumpBytes(w, indent+1, c.Signature)
		}
	case *Index:
		key("Entries")
		fmt.Fprintf(w, "(count:%d) {", len(c.Entries))
		for _, e := range c.Entries {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "%d : %d", e.ID, e.Offset)
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	case *Eof:
	case *BodyParts:
		key("Names")
		fmt.Fprintf(w, "(count:%d) {", len(c.Names))
		for i, name := range c.Names {
			dumpNewline(w, indent+2)
			fmt.Fprintf(w, "%d: ", i)
			dumpString(w, indent+2, name)
		}
		dumpNewline(w, indent+1)
		w.WriteByte('}')
	case *BodyParts2:
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("Parts")
		dumpBytes(w, indent+1, c.Parts)
	case *BoneInfluences:
		key("ParentID")
		fmt.Fprint(w, c.ParentID)
		key("Influences")
		fmt.Fprintf(w, "(count:%d)", len(c.Influences))
	case *Unknown:
		dumpNewline(w, indent+1)
		w.WriteString("<unknown chunk magic>")
		key("Bytes")
		dumpHash(w, c.Bytes)
		dumpBytes(w, indent+1, c.Bytes)
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpRecord(w *bufio.Writer, indent int, r *field.Record) {
	s := r.Schema()
	fmt.Fprintf(w, "%s (%s) {", s.Name(), s.Mode())
	for i, f := range s.Fields() {
		dumpNewline(w, indent+1)
		w.WriteString(f.Name)
		w.WriteString(": ")
		v, ok := r.At(i)
		if !ok {
			w.WriteString("<unset>")
			continue
		}
		dumpValue(w, indent+1, v)
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpValue(w *bufio.Writer, indent int, v interface{}) {
	switch v := v.(type) {
	case *field.Record:
		dumpRecord(w, indent, v)
	case []interface{}:
		fmt.Fprintf(w, "(count:%d) {", len(v))
		for i, e := range v {
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "%d: ", i)
			dumpValue(w, indent+1, e)
		}
		dumpNewline(w, indent)
		w.WriteByte('}')
	case string:
		dumpString(w, indent, v)
	case []byte:
		dumpBytes(w, indent, v)
	default:
		fmt.Fprintf(w, "%v", v)
	}
}

func dumpError(w *bufio.Writer, indent int, err error) {
	var rerr controller.ResolutionError
	if !errors.As(err, &rerr) || len(rerr.Attempts) == 0 {
		w.WriteString(err.Error())
		return
	}
	fmt.Fprintf(w, "%q: (attempts:%d) {", rerr.Name, len(rerr.Attempts))
	for _, a := range rerr.Attempts {
		dumpNewline(w, indent+1)
		w.WriteString(a.Error())
	}
	dumpNewline(w, indent)
	w.WriteByte('}')
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpMagic(w *bufio.Writer, m Magic) {
	w.WriteString(m.String())
	fmt.Fprintf(w, " (%d)", int32(m))
}

func dumpVec(w *bufio.Writer, v []float32) {
	for i, f := range v {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
}

func dumpHash(w *bufio.Writer, b []byte) {
	sum := blake2b.Sum256(b)
	fmt.Fprintf(w, "(len:%d) (blake2b:%x)", len(b), sum[:8])
}

func dumpString(w *bufio.Writer, indent int, s string) {
	for _, r := range s {
		if !unicode.IsGraphic(r) {
			dumpBytes(w, indent, []byte(s))
			return
		}
	}
	fmt.Fprintf(w, "(len:%d) ", len(s))
	w.WriteString(strconv.Quote(s))
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		for i := j; i < j+width; {
			if i < len(b) {
				s := strconv.FormatUint(uint64(b[i]), 16)
				if len(s) == 1 {
					w.WriteString("0")
				}
				w.WriteString(s)
			} else if len(b) < width {
				break
			} else {
				w.WriteString("  ")
			}
			i++
			if i%8 == 0 && i < j+width {
				w.WriteString("  ")
			} else {
				w.WriteString(" ")
			}
		}
		w.WriteString("|")
		n := min(len(b), j+width)
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteRune(rune(b[i]))
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}
