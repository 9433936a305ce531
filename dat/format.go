// Package dat implements a decoder and encoder for the DAT chunked container
// format, which stores 3D models, materials, textures, scene placement and
// controllers.
//
// A file consists of a 16-byte header followed by a sequence of chunks. Each
// chunk has a 12-byte header
//
//	[u32 magic][i32 subtype][i32 size]
//
// followed by size bytes of payload. The last chunks of a file are an Index
// chunk, which maps the id of each chunk to its file offset, and an Eof chunk.
//
// The easiest way to decode and encode files is through Decoder.Decode and
// Encoder.Encode, which convert between byte streams and a Container.
package dat

import "fmt"

// FileMagic is the first field of the file header.
const FileMagic uint32 = 0x0006FFEE

const (
	fileHeaderSize  = 16
	chunkHeaderSize = 12
)

// Magic identifies the type of a chunk.
type Magic uint32

const (
	MagicModel          Magic = 1
	MagicMaterial       Magic = 2
	MagicEmbeddedImage  Magic = 3
	MagicNodeLink       Magic = 4
	MagicLabel          Magic = 8
	MagicController     Magic = 10
	MagicPlacement      Magic = 11
	MagicTextureMap     Magic = 13
	MagicS3DSettings    Magic = 31
	MagicAuthorInfo     Magic = 1000
	MagicIndex          Magic = 1001
	MagicEof            Magic = 1002
	MagicBodyParts      Magic = 0x5A66D102 // 1516687618
	MagicBodyParts2     Magic = 0x307B1572 // 813372786
	MagicBoneInfluences Magic = 0xD89B7D52 // -660898478
)

// S3DSettingsSubType is the subtype of every S3DSettings chunk.
const S3DSettingsSubType = 0xFFFF

var magicNames = map[Magic]string{
	MagicModel:          "Model",
	MagicMaterial:       "Material",
	MagicEmbeddedImage:  "EmbeddedImage",
	MagicNodeLink:       "NodeLink",
	MagicLabel:          "Label",
	MagicController:     "Controller",
	MagicPlacement:      "Placement",
	MagicTextureMap:     "TextureMap",
	MagicS3DSettings:    "S3DSettings",
	MagicAuthorInfo:     "AuthorInfo",
	MagicIndex:          "Index",
	MagicEof:            "Eof",
	MagicBodyParts:      "BodyParts",
	MagicBodyParts2:     "BodyParts2",
	MagicBoneInfluences: "BoneInfluences",
}

func (m Magic) String() string {
	if s, ok := magicNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Magic(%d)", int32(m))
}
