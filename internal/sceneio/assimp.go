package sceneio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	assimp "github.com/rishabh-bector/assimp-golang"

	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/scenemodel"
	"github.com/alex2835/lodgen/internal/texturetype"
)

// assimpBackend covers every import extension Assimp supports beyond
// glTF/GLB, grounded on huangxiaobo-ToyEngine's engine/model/model.go
// use of assimp.ImportFile + the Scene/Node/Mesh/Material walk.
type assimpBackend struct{}

func (assimpBackend) Extensions() []string {
	return []string{".obj", ".fbx", ".dae", ".3ds", ".stl", ".ply"}
}

// importFlags matches spec §6.1's required import-time behavior:
// triangulate, join identical vertices, and sort faces by primitive
// type so the mixed-primitive meshes spec §3 describes come out of
// Assimp already separated.
const importFlags = uint(assimp.Process_Triangulate |
	assimp.Process_JoinIdenticalVertices |
	assimp.Process_SortByPType)

var assimpTextureMapping = map[texturetype.Type]assimp.TextureMapping{
	texturetype.DIFFUSE:    assimp.TextureMapping_Diffuse,
	texturetype.SPECULAR:   assimp.TextureMapping_Specular,
	texturetype.AMBIENT:    assimp.TextureMapping_Ambient,
	texturetype.EMISSIVE:   assimp.TextureMapping_Emissive,
	texturetype.HEIGHT:     assimp.TextureMapping_Height,
	texturetype.NORMALS:    assimp.TextureMapping_Normals,
	texturetype.SHININESS:  assimp.TextureMapping_Shininess,
	texturetype.OPACITY:    assimp.TextureMapping_Opacity,
	texturetype.LIGHTMAP:   assimp.TextureMapping_Lightmap,
	texturetype.REFLECTION: assimp.TextureMapping_Reflection,
}

func (assimpBackend) Load(path string) (*scenemodel.Scene, error) {
	s := assimp.ImportFile(path, importFlags)
	if s.Flags()&assimp.SceneFlags_Incomplete != 0 {
		return nil, lodgenerr.New(lodgenerr.ImportFailed, "assimp reported an incomplete scene for "+path)
	}

	scene := &scenemodel.Scene{RootNode: 0}
	meshIndexOf := map[*assimp.Mesh]int{}
	for _, mesh := range s.Meshes() {
		m := convertAssimpMesh(mesh)
		scene.Meshes = append(scene.Meshes, m)
		meshIndexOf[mesh] = len(scene.Meshes) - 1
	}

	for _, mat := range s.Materials() {
		scene.Materials = append(scene.Materials, convertAssimpMaterial(mat))
	}

	scene.Nodes = flattenAssimpNodes(s, s.RootNode(), meshIndexOf)

	return scene, nil
}

func convertAssimpMesh(mesh *assimp.Mesh) scenemodel.Mesh {
	m := scenemodel.Mesh{PrimitiveKind: scenemodel.Triangles, MaterialIndex: mesh.MaterialIndex()}

	positions := mesh.Vertices()
	m.Positions = make([]scenemodel.Vec3, len(positions))
	for i, p := range positions {
		m.Positions[i] = scenemodel.Vec3{X: p.X(), Y: p.Y(), Z: p.Z()}
	}

	if normals := mesh.Normals(); len(normals) > 0 {
		m.Normals = make([]scenemodel.Vec3, len(normals))
		for i, n := range normals {
			m.Normals[i] = scenemodel.Vec3{X: n.X(), Y: n.Y(), Z: n.Z()}
		}
	}

	if tangents := mesh.Tangents(); len(tangents) > 0 {
		m.Tangents = make([]scenemodel.Vec3, len(tangents))
		for i, t := range tangents {
			m.Tangents[i] = scenemodel.Vec3{X: t.X(), Y: t.Y(), Z: t.Z()}
		}
	}
	if bitangents := mesh.Bitangents(); len(bitangents) > 0 {
		m.Bitangents = make([]scenemodel.Vec3, len(bitangents))
		for i, b := range bitangents {
			m.Bitangents[i] = scenemodel.Vec3{X: b.X(), Y: b.Y(), Z: b.Z()}
		}
	}

	for ch := 0; ch < 8; ch++ {
		coords := mesh.TextureCoords(ch)
		if coords == nil {
			break
		}
		channel := make([]scenemodel.Vec3, len(coords))
		for i, c := range coords {
			channel[i] = scenemodel.Vec3{X: c.X(), Y: c.Y(), Z: c.Z()}
		}
		m.UVs = append(m.UVs, channel)
		m.UVComponents = append(m.UVComponents, 3)
	}

	for i := 0; i < mesh.NumFaces(); i++ {
		face := mesh.Faces()[i]
		idx := face.CopyIndices()
		switch len(idx) {
		case 3:
			m.Indices = append(m.Indices, idx...)
		case 2:
			if m.PrimitiveKind == scenemodel.Triangles {
				m.PrimitiveKind = scenemodel.Lines
			} else if m.PrimitiveKind != scenemodel.Lines {
				m.PrimitiveKind = scenemodel.Mixed
			}
			m.Indices = append(m.Indices, idx...)
		case 1:
			if m.PrimitiveKind == scenemodel.Triangles {
				m.PrimitiveKind = scenemodel.Points
			} else if m.PrimitiveKind != scenemodel.Points {
				m.PrimitiveKind = scenemodel.Mixed
			}
			m.Indices = append(m.Indices, idx...)
		}
	}

	return m
}

func convertAssimpMaterial(mat *assimp.Material) scenemodel.Material {
	out := scenemodel.Material{}
	for _, tt := range texturetype.CanonicalOrder {
		mapping, ok := assimpTextureMapping[tt]
		if !ok {
			continue
		}
		texType := assimp.TextureType(mapping)
		count := mat.GetMaterialTextureCount(texType)
		for i := 0; i < count; i++ {
			file, _, _, _, _, _, mapU, mapV := mat.GetMaterialTexture(texType, i)
			if file == "" {
				continue
			}
			out.Slots[tt] = append(out.Slots[tt], scenemodel.TextureSlot{
				PathOrStar: file,
				WrapU:      assimpWrapMode(mapU),
				WrapV:      assimpWrapMode(mapV),
			})
		}
	}
	return out
}

func assimpWrapMode(mode assimp.TextureMapMode) scenemodel.WrapMode {
	switch mode {
	case assimp.TextureMapMode_Clamp:
		return scenemodel.WrapClamp
	case assimp.TextureMapMode_Mirror:
		return scenemodel.WrapMirror
	default:
		return scenemodel.WrapRepeat
	}
}

func flattenAssimpNodes(s *assimp.Scene, root *assimp.Node, meshIndexOf map[*assimp.Mesh]int) []scenemodel.Node {
	var nodes []scenemodel.Node
	var visit func(n *assimp.Node) int
	visit = func(n *assimp.Node) int {
		idx := len(nodes)
		nodes = append(nodes, scenemodel.Node{Name: n.Name()})
		var meshIndices []int
		sceneMeshes := s.Meshes()
		for _, mi := range n.Meshes() {
			meshIndices = append(meshIndices, meshIndexOf[sceneMeshes[mi]])
		}
		var children []int
		for _, c := range n.Children() {
			children = append(children, visit(c))
		}
		nodes[idx].MeshIndices = meshIndices
		nodes[idx].Children = children
		return idx
	}
	visit(root)
	return nodes
}

// Save only supports the Wavefront OBJ extension: the assimp-golang
// binding retrieved for this pack exposes aiImportFile but no scene
// writer, so round-tripping through Assimp's own exporter isn't
// available here. OBJ is written directly in the plain v/vt/vn/f text
// format ToyEngine's own loader parses, mirrored in reverse.
func (assimpBackend) Save(scene *scenemodel.Scene, path string) error {
	if filepath.Ext(path) != ".obj" {
		return lodgenerr.New(lodgenerr.ExportFailed, "no writer available for "+filepath.Ext(path)+"; only .obj export is implemented")
	}

	f, err := os.Create(path)
	if err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, "create "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	vertexBase := 1
	for _, mesh := range scene.Meshes {
		fmt.Fprintf(w, "o %s\n", meshNameOrDefault(mesh.Name))
		for _, p := range mesh.Positions {
			fmt.Fprintf(w, "v %g %g %g\n", p.X, p.Y, p.Z)
		}
		hasUV := len(mesh.UVs) > 0
		if hasUV {
			for _, uv := range mesh.UVs[0] {
				fmt.Fprintf(w, "vt %g %g\n", uv.X, uv.Y)
			}
		}
		hasNormals := len(mesh.Normals) > 0
		if hasNormals {
			for _, n := range mesh.Normals {
				fmt.Fprintf(w, "vn %g %g %g\n", n.X, n.Y, n.Z)
			}
		}
		if mesh.PrimitiveKind == scenemodel.Triangles {
			for t := 0; t*3 < len(mesh.Indices); t++ {
				fmt.Fprint(w, "f ")
				for k := 0; k < 3; k++ {
					local := int(mesh.Indices[t*3+k]) + 1
					writeFaceVertex(w, vertexBase, local, hasUV, hasNormals)
				}
				fmt.Fprint(w, "\n")
			}
		}
		vertexBase += len(mesh.Positions)
	}
	return nil
}

func meshNameOrDefault(name string) string {
	if name == "" {
		return "mesh"
	}
	return name
}

func writeFaceVertex(w *bufio.Writer, base, localIndex int, hasUV, hasNormals bool) {
	// localIndex is already 1-based within its mesh; base offsets it into
	// the cumulative .obj vertex numbering written so far.
	idx := base + localIndex - 1
	switch {
	case hasUV && hasNormals:
		fmt.Fprintf(w, "%d/%d/%d ", idx, idx, idx)
	case hasUV:
		fmt.Fprintf(w, "%d/%d ", idx, idx)
	case hasNormals:
		fmt.Fprintf(w, "%d//%d ", idx, idx)
	default:
		fmt.Fprintf(w, "%d ", idx)
	}
}
