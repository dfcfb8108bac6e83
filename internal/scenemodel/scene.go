// Package scenemodel implements the in-memory Scene data model of spec §3:
// the arena of Meshes, Materials, EmbeddedTextures, Nodes and Bones that
// every other lodgen component mutates or reads. It does not know how to
// read or write any file format; that is internal/sceneio's job.
package scenemodel

import "github.com/alex2835/lodgen/internal/texturetype"

// PrimitiveKind classifies a Mesh's index buffer, per spec §3.
type PrimitiveKind int

const (
	Triangles PrimitiveKind = iota
	Lines
	Points
	Mixed
)

// Weight is one bone->vertex influence (spec §3 Bone).
type Weight struct {
	VertexID uint32
	Value    float32
}

// Bone owns an ordered list of vertex weights.
type Bone struct {
	Name    string
	Weights []Weight
	// OffsetMatrix is the bone's inverse bind matrix, carried through
	// unchanged by every transform in this package (column-major, 16 floats).
	OffsetMatrix [16]float32
}

// Mesh is the spec §3 Mesh entity. All optional per-vertex arrays that are
// present must have length exactly len(Positions) (invariant M1).
type Mesh struct {
	Name string

	Positions []Vec3
	Normals   []Vec3 // optional, len 0 means absent
	Tangents  []Vec3 // present together with Bitangents or not at all
	Bitangents []Vec3

	// UVs[c] is channel c, 0 <= c < len(UVs) <= 8. Each entry is 2 or 3
	// floats per vertex; Z is 0 when the channel is 2-component.
	UVs [][]Vec3
	// UVComponents[c] records whether channel c is 2 or 3 component.
	UVComponents []int

	// Colors[c] is channel c, 0 <= c < len(Colors) <= 8, RGBA per vertex.
	Colors [][]Vec4

	Indices []uint32 // grouped as triangles when PrimitiveKind == Triangles

	PrimitiveKind  PrimitiveKind
	MaterialIndex  int

	Bones []Bone
}

// VertexCount returns V, the number of vertices (invariant M1 reference length).
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// Vec3 is a 3-float vector.
type Vec3 struct{ X, Y, Z float32 }

// Vec4 is a 4-float vector (used for RGBA color channels).
type Vec4 struct{ X, Y, Z, W float32 }

// TextureSlot is one reference inside a Material's per-type slot list.
// PathOrStar is either "*N" (EmbeddedTexture index N) or an external path
// relative to the model directory (spec §3 Material).
type TextureSlot struct {
	PathOrStar string
	WrapU      WrapMode
	WrapV      WrapMode
}

// WrapMode mirrors the small enum Assimp/glTF both expose for texture wrap.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
)

// Material is an attribute bag keyed by texture semantic type (spec §3).
type Material struct {
	Name  string
	Slots [texturetype.Count][]TextureSlot
}

// EmbeddedTexture is either a compressed blob or decoded ARGB8888 pixels
// (spec §3 EmbeddedTexture).
type EmbeddedTexture struct {
	Filename string

	// Compressed blob form.
	Bytes      []byte
	FormatHint string // "png", "jpg", ... ("" means unknown/uncompressed)

	// Uncompressed ARGB8888 form (used when Bytes is nil).
	Width, Height int
	ARGB          []byte // len == Width*Height*4, channel order A,R,G,B
}

// IsCompressed reports whether this texture is stored as an encoded blob
// rather than raw ARGB pixels.
func (t *EmbeddedTexture) IsCompressed() bool { return len(t.Bytes) > 0 }

// Node is one entry of the scene graph. lodgen does not render the graph;
// it is carried through so exporters can reproduce node hierarchy/transform.
type Node struct {
	Name        string
	Children    []int
	MeshIndices []int
	Transform   [16]float32 // column-major 4x4, identity if zero-value unset
}

// Scene is the spec §3 top-level owner of everything it references.
type Scene struct {
	Meshes           []Mesh
	Materials        []Material
	EmbeddedTextures []EmbeddedTexture
	Nodes            []Node
	RootNode         int // index into Nodes, -1 if Nodes is empty

	// SourceExt is the extension the scene was imported from/will be
	// exported to by default (e.g. ".gltf"). Set by sceneio.Load.
	SourceExt string
}

// LookupEmbedded resolves a material slot path of the form "*N" to an
// EmbeddedTexture index. Returns -1, false if path is not of that form or
// out of range (invariant T1).
func (s *Scene) LookupEmbedded(path string) (int, bool) {
	if len(path) < 2 || path[0] != '*' {
		return -1, false
	}
	n := 0
	for _, c := range path[1:] {
		if c < '0' || c > '9' {
			return -1, false
		}
		n = n*10 + int(c-'0')
	}
	if n < 0 || n >= len(s.EmbeddedTextures) {
		return -1, false
	}
	return n, true
}
