// The json package is used to encode DAT containers to the JSON format.
//
// Chunks are converted to generic interfaces first, which allows controller
// records to be written field by field in schema order, and raw payloads to be
// written as base64.
package json

import (
	"encoding/base64"
	"encoding/json"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/dat"
	"github.com/skwas/datfile/field"
	"github.com/skwas/datfile/mesh"
)

// Encode returns the JSON encoding of c. Controller records are resolved as
// needed.
func Encode(c *dat.Container) (b []byte, err error) {
	return json.Marshal(ContainerToJSONInterface(c))
}

// The current version of the schema.
const jsonVersion = 0

// ContainerToJSONInterface converts a dat.Container to a generic interface
// that can be read by json.Marshal.
func ContainerToJSONInterface(c *dat.Container) interface{} {
	ic := make(map[string]interface{}, 5)
	ic["datfile_version"] = float64(jsonVersion)
	ic["file_type"] = float64(c.FileType)
	ic["reserved"] = bytesToJSON(c.Reserved[:])
	if c.Settings != nil {
		ic["settings"] = ChunkToJSONInterface(c.Settings)
	}
	chunks := make([]interface{}, len(c.Chunks))
	for i, chunk := range c.Chunks {
		chunks[i] = ChunkToJSONInterface(chunk)
	}
	ic["chunks"] = chunks
	return ic
}

func bytesToJSON(b []byte) interface{} {
	return base64.StdEncoding.EncodeToString(b)
}

func vec3ToJSON(v mgl32.Vec3) interface{} {
	return []interface{}{float64(v[0]), float64(v[1]), float64(v[2])}
}

func colorToJSON(c color.RGBA) interface{} {
	return map[string]interface{}{
		"r": float64(c.R),
		"g": float64(c.G),
		"b": float64(c.B),
		"a": float64(c.A),
	}
}

func timeToJSON(t time.Time) interface{} {
	return t.UTC().Format(time.RFC3339)
}

// ChunkToJSONInterface converts a dat.Chunk to a generic interface that can be
// read by json.Marshal.
func ChunkToJSONInterface(chunk dat.Chunk) interface{} {
	ichunk := make(map[string]interface{}, 4)
	ichunk["magic"] = chunk.Magic().String()
	ichunk["sub_type"] = float64(chunk.SubType())
	if ic, ok := chunk.(dat.IDChunk); ok {
		ichunk["id"] = float64(ic.ChunkID())
	}
	if pc, ok := chunk.(dat.ParentChunk); ok {
		ichunk["parent_id"] = float64(pc.ParentChunkID())
	}

	var data map[string]interface{}
	switch chunk := chunk.(type) {
	case *dat.Model:
		data = map[string]interface{}{"mesh": MeshToJSONInterface(&chunk.Mesh)}
	case *dat.Material:
		data = map[string]interface{}{
			"opacity":           float64(chunk.Opacity),
			"diffuse":           colorToJSON(chunk.Diffuse),
			"specular":          colorToJSON(chunk.Specular),
			"specular_strength": float64(chunk.SpecularStrength),
			"glossiness":        float64(chunk.Glossiness),
			"emission":          float64(chunk.Emission),
			"flags":             float64(chunk.Flags),
		}
		if chunk.Textured {
			data["creation_time"] = timeToJSON(chunk.CreationTime)
			data["texture"] = chunk.Texture
		}
	case *dat.EmbeddedImage:
		data = map[string]interface{}{"bytes": bytesToJSON(chunk.Bytes)}
	case *dat.NodeLink:
		data = map[string]interface{}{
			"translation": vec3ToJSON(chunk.Translation),
			"rotation":    vec3ToJSON(chunk.Rotation),
		}
	case *dat.Label:
		data = map[string]interface{}{"text": chunk.Text}
	case *dat.Controller:
		data = map[string]interface{}{"name": chunk.Name}
	case *dat.ControllerData:
		data = ControllerDataToJSONInterface(chunk)
	case *dat.Placement:
		data = map[string]interface{}{
			"target_id": float64(chunk.TargetID),
			"position":  vec3ToJSON(chunk.Position),
			"rotation":  vec3ToJSON(chunk.Rotation),
		}
	case *dat.TextureMap:
		data = map[string]interface{}{
			"map_channel":   float64(chunk.MapChannel),
			"attributes":    float64(chunk.Attributes),
			"creation_time": timeToJSON(chunk.CreationTime),
			"map_type":      chunk.MapType,
			"texture":       chunk.Texture,
		}
	case *dat.S3DSettings:
		data = map[string]interface{}{"bytes": bytesToJSON(chunk.Bytes)}
	case *dat.AuthorInfo:
		data = map[string]interface{}{
			"reserved":    float64(chunk.Reserved),
			"author":      chunk.Author,
			"description": chunk.Description,
		}
		if len(chunk.Signature) > 0 {
			data["signature"] = bytesToJSON(chunk.Signature)
		}
	case *dat.BodyParts:
		names := make([]interface{}, len(chunk.Names))
		for i, name := range chunk.Names {
			names[i] = name
		}
		data = map[string]interface{}{"names": names}
	case *dat.BodyParts2:
		parts := make([]interface{}, len(chunk.Parts))
		for i, p := range chunk.Parts {
			parts[i] = float64(p)
		}
		data = map[string]interface{}{"parts": parts}
	case *dat.BoneInfluences:
		influences := make([]interface{}, len(chunk.Influences))
		for i, inf := range chunk.Influences {
			bones := make([]interface{}, len(inf.Bones))
			weights := make([]interface{}, len(inf.Weights))
			for j := range inf.Bones {
				bones[j] = float64(inf.Bones[j])
				weights[j] = float64(inf.Weights[j])
			}
			influences[i] = map[string]interface{}{"bones": bones, "weights": weights}
		}
		data = map[string]interface{}{"influences": influences}
	case *dat.Unknown:
		ichunk["magic"] = float64(chunk.Kind)
		data = map[string]interface{}{"bytes": bytesToJSON(chunk.Bytes)}
	}
	if data != nil {
		ichunk["data"] = data
	}
	return ichunk
}

// MeshToJSONInterface converts a mesh.Mesh to a generic interface that can be
// read by json.Marshal.
func MeshToJSONInterface(m *mesh.Mesh) interface{} {
	vertices := make([]interface{}, len(m.Vertices))
	for i, v := range m.Vertices {
		vertices[i] = vec3ToJSON(v)
	}
	indices := make([]interface{}, len(m.VertexIndices))
	for i, v := range m.VertexIndices {
		indices[i] = float64(v)
	}
	materials := make([]interface{}, len(m.MaterialIndices))
	for i, v := range m.MaterialIndices {
		materials[i] = float64(v)
	}
	coords := make([]interface{}, len(m.TextureCoordinates))
	for i, v := range m.TextureCoordinates {
		coords[i] = []interface{}{float64(v[0]), float64(v[1])}
	}
	uvMaps := make([]interface{}, len(m.UVMaps))
	for i, uv := range m.UVMaps {
		ti := make([]interface{}, len(uv.TextureIndices))
		for j, v := range uv.TextureIndices {
			ti[j] = float64(v)
		}
		uvMaps[i] = map[string]interface{}{
			"channel": float64(uv.Channel),
			"indices": ti,
		}
	}
	imesh := map[string]interface{}{
		"vertices":            vertices,
		"vertex_indices":      indices,
		"material_indices":    materials,
		"texture_coordinates": coords,
		"uv_maps":             uvMaps,
	}
	if len(m.Normals) > 0 {
		normals := make([]interface{}, len(m.Normals))
		for i, v := range m.Normals {
			normals[i] = vec3ToJSON(v)
		}
		imesh["normals"] = normals
	}
	return imesh
}

// ControllerDataToJSONInterface converts the record of a dat.ControllerData.
// If the record cannot be resolved, the error and the raw payload are written
// instead.
func ControllerDataToJSONInterface(d *dat.ControllerData) map[string]interface{} {
	v, err := d.Value()
	if err != nil {
		return map[string]interface{}{
			"error": err.Error(),
			"bytes": bytesToJSON(d.Raw()),
		}
	}
	return ControllerToJSONInterface(v)
}

// ControllerToJSONInterface converts a controller.Controller to a generic
// interface that can be read by json.Marshal.
func ControllerToJSONInterface(c *controller.Controller) map[string]interface{} {
	ictl := map[string]interface{}{
		"name":    c.Name,
		"profile": c.Profile.String(),
		"framing": c.Framing.String(),
		"record":  RecordToJSONInterface(c.Record),
	}
	if c.Framing == field.Raw {
		ictl["sub_type"] = float64(c.SubType)
		ictl["reserved"] = float64(c.Reserved)
	}
	return ictl
}

// RecordToJSONInterface converts a field.Record to a generic interface that
// can be read by json.Marshal. Absent fields are omitted.
func RecordToJSONInterface(r *field.Record) interface{} {
	s := r.Schema()
	irec := make(map[string]interface{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		v, ok := r.At(i)
		if !ok {
			continue
		}
		irec[s.Field(i).Name] = ValueToJSONInterface(v)
	}
	return irec
}

// ValueToJSONInterface converts a value of a record field to a generic
// interface that can be read by json.Marshal.
func ValueToJSONInterface(value interface{}) interface{} {
	switch value := value.(type) {
	case nil:
		return nil
	case int8:
		return float64(value)
	case uint8:
		return float64(value)
	case int16:
		return float64(value)
	case uint16:
		return float64(value)
	case int32:
		return float64(value)
	case uint32:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	case float32:
		return float64(value)
	case float64:
		return value
	case mgl32.Vec2:
		return []interface{}{float64(value[0]), float64(value[1])}
	case mgl32.Vec3:
		return vec3ToJSON(value)
	case mgl32.Vec4:
		return []interface{}{float64(value[0]), float64(value[1]), float64(value[2]), float64(value[3])}
	case string:
		return value
	case bool:
		return value
	case color.RGBA:
		return colorToJSON(value)
	case time.Time:
		return timeToJSON(value)
	case []byte:
		return bytesToJSON(value)
	case []interface{}:
		a := make([]interface{}, len(value))
		for i, v := range value {
			a[i] = ValueToJSONInterface(v)
		}
		return a
	case field.UnionValue:
		return map[string]interface{}{
			"variant": float64(value.Index),
			"value":   ValueToJSONInterface(value.Value),
		}
	case *field.Record:
		return RecordToJSONInterface(value)
	case *controller.Controller:
		return ControllerToJSONInterface(value)
	}
	// Values of custom types are left to json.Marshal.
	return value
}
