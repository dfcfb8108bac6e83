package sceneio

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/scenemodel"
	"github.com/alex2835/lodgen/internal/texturetype"
)

// gltfBackend is the native-Go glTF/GLB backend, grounded on the
// teacher's GLBRenderer: gltf.Open + modeler.Read* to pull a primitive's
// accessors into plain Go slices, and the mirror modeler.Write* calls on
// the way back out.
type gltfBackend struct{}

func (gltfBackend) Extensions() []string { return []string{".gltf", ".glb"} }

func (gltfBackend) Load(path string) (*scenemodel.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, "open "+path, err)
	}

	scene := &scenemodel.Scene{RootNode: -1}

	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			m, err := loadPrimitive(doc, prim)
			if err != nil {
				return nil, lodgenerr.Wrap(lodgenerr.ImportFailed, "read primitive of "+mesh.Name, err)
			}
			m.Name = mesh.Name
			scene.Meshes = append(scene.Meshes, *m)
		}
	}

	for _, img := range doc.Images {
		scene.EmbeddedTextures = append(scene.EmbeddedTextures, loadImage(doc, img))
	}

	for _, mat := range doc.Materials {
		scene.Materials = append(scene.Materials, loadMaterial(doc, mat))
	}

	for _, node := range doc.Nodes {
		var meshIndices []int
		if node.Mesh != nil {
			meshIndices = append(meshIndices, int(*node.Mesh))
		}
		children := make([]int, len(node.Children))
		for c, ch := range node.Children {
			children[c] = int(ch)
		}
		scene.Nodes = append(scene.Nodes, scenemodel.Node{
			Name:        node.Name,
			Children:    children,
			MeshIndices: meshIndices,
			Transform:   nodeTransform(node),
		})
	}
	if len(doc.Scenes) > 0 {
		sceneIdx := uint32(0)
		if doc.Scene != nil {
			sceneIdx = *doc.Scene
		}
		if int(sceneIdx) < len(doc.Scenes) && len(doc.Scenes[sceneIdx].Nodes) > 0 {
			scene.RootNode = int(doc.Scenes[sceneIdx].Nodes[0])
		}
	}

	return scene, nil
}

var identityMatrix = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func nodeTransform(node *gltf.Node) [16]float32 {
	m := node.Matrix
	if m == ([16]float64{}) {
		m = identityMatrix
	}
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func loadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*scenemodel.Mesh, error) {
	m := &scenemodel.Mesh{PrimitiveKind: primitiveKind(prim.Mode)}

	if idx, ok := prim.Attributes[gltf.POSITION]; ok {
		pos, err := modeler.ReadPosition(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read position: %w", err)
		}
		m.Positions = make([]scenemodel.Vec3, len(pos))
		for i, p := range pos {
			m.Positions[i] = scenemodel.Vec3{X: p[0], Y: p[1], Z: p[2]}
		}
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		n, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read normal: %w", err)
		}
		m.Normals = make([]scenemodel.Vec3, len(n))
		for i, v := range n {
			m.Normals[i] = scenemodel.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
	}
	if idx, ok := prim.Attributes[gltf.TANGENT]; ok {
		t, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read tangent: %w", err)
		}
		m.Tangents = make([]scenemodel.Vec3, len(t))
		m.Bitangents = make([]scenemodel.Vec3, len(t))
		for i, v := range t {
			m.Tangents[i] = scenemodel.Vec3{X: v[0], Y: v[1], Z: v[2]}
			// glTF stores a handedness sign in tangent.W; bitangent = cross(normal, tangent.xyz) * w.
			if i < len(m.Normals) {
				n := m.Normals[i]
				bx := n.Y*v[2] - n.Z*v[1]
				by := n.Z*v[0] - n.X*v[2]
				bz := n.X*v[1] - n.Y*v[0]
				w := v[3]
				m.Bitangents[i] = scenemodel.Vec3{X: bx * w, Y: by * w, Z: bz * w}
			}
		}
	}

	for ch := 0; ch < 8; ch++ {
		idx, ok := prim.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			break
		}
		uv, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read texcoord %d: %w", ch, err)
		}
		channel := make([]scenemodel.Vec3, len(uv))
		for i, v := range uv {
			channel[i] = scenemodel.Vec3{X: v[0], Y: v[1]}
		}
		m.UVs = append(m.UVs, channel)
		m.UVComponents = append(m.UVComponents, 2)
	}

	for ch := 0; ch < 8; ch++ {
		idx, ok := prim.Attributes[fmt.Sprintf("COLOR_%d", ch)]
		if !ok {
			break
		}
		col, err := modeler.ReadColor(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read color %d: %w", ch, err)
		}
		channel := make([]scenemodel.Vec4, len(col))
		for i, v := range col {
			channel[i] = scenemodel.Vec4{X: v[0], Y: v[1], Z: v[2], W: v[3]}
		}
		m.Colors = append(m.Colors, channel)
	}

	if prim.Indices != nil {
		idxs, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		m.Indices = idxs
	}

	if prim.Material != nil {
		m.MaterialIndex = int(*prim.Material)
	}

	if j, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		joints, err := modeler.ReadJoints(doc, doc.Accessors[j], nil)
		if err == nil {
			if w, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
				weights, werr := modeler.ReadWeights(doc, doc.Accessors[w], nil)
				if werr == nil {
					m.Bones = bonesFromSkin(joints, weights)
				}
			}
		}
	}

	return m, nil
}

func primitiveKind(mode gltf.PrimitiveMode) scenemodel.PrimitiveKind {
	switch mode {
	case gltf.PrimitiveTriangles:
		return scenemodel.Triangles
	case gltf.PrimitiveLines, gltf.PrimitiveLineLoop, gltf.PrimitiveLineStrip:
		return scenemodel.Lines
	case gltf.PrimitivePoints:
		return scenemodel.Points
	default:
		return scenemodel.Mixed
	}
}

// bonesFromSkin turns glTF's per-vertex joint/weight quads into the
// scenemodel per-bone weight lists by grouping per joint index. Each bone
// is named "joint_<index>" after its joint index; its offset matrix is
// left zero, and the order of the returned bones is not defined.
func bonesFromSkin(joints [][4]uint16, weights [][4]float32) []scenemodel.Bone {
	byJoint := map[uint16][]scenemodel.Weight{}
	for v := range joints {
		for k := 0; k < 4; k++ {
			w := weights[v][k]
			if w <= 0 {
				continue
			}
			j := joints[v][k]
			byJoint[j] = append(byJoint[j], scenemodel.Weight{VertexID: uint32(v), Value: w})
		}
	}
	bones := make([]scenemodel.Bone, 0, len(byJoint))
	for j, ws := range byJoint {
		bones = append(bones, scenemodel.Bone{Name: fmt.Sprintf("joint_%d", j), Weights: ws})
	}
	return bones
}

func loadImage(doc *gltf.Document, img *gltf.Image) scenemodel.EmbeddedTexture {
	if img.BufferView == nil {
		return scenemodel.EmbeddedTexture{Filename: img.URI}
	}
	bv := doc.BufferViews[*img.BufferView]
	buf := doc.Buffers[bv.Buffer]
	data := append([]byte(nil), buf.Data[bv.ByteOffset:bv.ByteOffset+bv.ByteLength]...)
	hint := "png"
	if img.MimeType == "image/jpeg" {
		hint = "jpg"
	}
	return scenemodel.EmbeddedTexture{
		Filename:   img.Name,
		Bytes:      data,
		FormatHint: hint,
	}
}

func loadMaterial(doc *gltf.Document, mat *gltf.Material) scenemodel.Material {
	out := scenemodel.Material{Name: mat.Name}
	addSlot := func(t texturetype.Type, texIdx *uint32) {
		if texIdx == nil {
			return
		}
		tex := doc.Textures[*texIdx]
		if tex.Source == nil {
			return
		}
		out.Slots[t] = append(out.Slots[t], scenemodel.TextureSlot{
			PathOrStar: fmt.Sprintf("*%d", *tex.Source),
			WrapU:      wrapMode(doc, tex.Sampler, 0),
			WrapV:      wrapMode(doc, tex.Sampler, 1),
		})
	}
	if mat.PBRMetallicRoughness != nil {
		if mat.PBRMetallicRoughness.BaseColorTexture != nil {
			idx := mat.PBRMetallicRoughness.BaseColorTexture.Index
			addSlot(texturetype.DIFFUSE, &idx)
		}
		if mat.PBRMetallicRoughness.MetallicRoughnessTexture != nil {
			idx := mat.PBRMetallicRoughness.MetallicRoughnessTexture.Index
			addSlot(texturetype.METALNESS, &idx)
			addSlot(texturetype.DIFFUSE_ROUGHNESS, &idx)
		}
	}
	if mat.NormalTexture != nil {
		idx := mat.NormalTexture.Index
		addSlot(texturetype.NORMALS, &idx)
	}
	if mat.EmissiveTexture != nil {
		idx := mat.EmissiveTexture.Index
		addSlot(texturetype.EMISSIVE, &idx)
	}
	if mat.OcclusionTexture != nil {
		idx := mat.OcclusionTexture.Index
		addSlot(texturetype.AMBIENT_OCCLUSION, &idx)
	}
	return out
}

func wrapMode(doc *gltf.Document, samplerIdx *uint32, axis int) scenemodel.WrapMode {
	if samplerIdx == nil || int(*samplerIdx) >= len(doc.Samplers) {
		return scenemodel.WrapRepeat
	}
	s := doc.Samplers[*samplerIdx]
	wrap := s.WrapS
	if axis == 1 {
		wrap = s.WrapT
	}
	switch wrap {
	case gltf.WrapClampToEdge:
		return scenemodel.WrapClamp
	case gltf.WrapMirroredRepeat:
		return scenemodel.WrapMirror
	default:
		return scenemodel.WrapRepeat
	}
}

func (gltfBackend) Save(scene *scenemodel.Scene, path string) error {
	doc := gltf.NewDocument()

	imgIndexByOldIdx := make([]uint32, len(scene.EmbeddedTextures))
	for i, tex := range scene.EmbeddedTextures {
		mime := "image/png"
		if tex.FormatHint == "jpg" || tex.FormatHint == "jpeg" {
			mime = "image/jpeg"
		}
		idx, err := modeler.WriteImage(doc, tex.Filename, mime, bytes.NewReader(tex.Bytes))
		if err != nil {
			return lodgenerr.Wrap(lodgenerr.ExportFailed, "embed texture "+tex.Filename, err)
		}
		imgIndexByOldIdx[i] = idx
	}

	for _, mat := range scene.Materials {
		doc.Materials = append(doc.Materials, saveMaterial(doc, mat, imgIndexByOldIdx))
	}

	for _, mesh := range scene.Meshes {
		prim, err := saveMesh(doc, mesh)
		if err != nil {
			return lodgenerr.Wrap(lodgenerr.ExportFailed, "write mesh "+mesh.Name, err)
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: mesh.Name, Primitives: []*gltf.Primitive{prim}})
	}

	for _, node := range scene.Nodes {
		gn := &gltf.Node{Name: node.Name}
		for _, ch := range node.Children {
			gn.Children = append(gn.Children, uint32(ch))
		}
		if len(node.MeshIndices) > 0 {
			mi := uint32(node.MeshIndices[0])
			gn.Mesh = &mi
		}
		var m [16]float64
		for k, v := range node.Transform {
			m[k] = float64(v)
		}
		gn.Matrix = m
		doc.Nodes = append(doc.Nodes, gn)
	}
	if len(doc.Nodes) > 0 {
		nodeIdxs := make([]uint32, len(doc.Nodes))
		for i := range nodeIdxs {
			nodeIdxs[i] = uint32(i)
		}
		doc.Scenes = append(doc.Scenes, &gltf.Scene{Nodes: nodeIdxs})
		zero := uint32(0)
		doc.Scene = &zero
	}

	if err := gltf.Save(doc, path); err != nil {
		return lodgenerr.Wrap(lodgenerr.ExportFailed, "save "+path, err)
	}
	return nil
}

func saveMesh(doc *gltf.Document, mesh scenemodel.Mesh) (*gltf.Primitive, error) {
	positions := make([][3]float32, len(mesh.Positions))
	for i, p := range mesh.Positions {
		positions[i] = [3]float32{p.X, p.Y, p.Z}
	}
	posIdx := modeler.WritePosition(doc, positions)
	attrs := map[string]uint32{gltf.POSITION: posIdx}

	if len(mesh.Normals) > 0 {
		normals := make([][3]float32, len(mesh.Normals))
		for i, n := range mesh.Normals {
			normals[i] = [3]float32{n.X, n.Y, n.Z}
		}
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}
	for ch, uv := range mesh.UVs {
		texcoord := make([][2]float32, len(uv))
		for i, v := range uv {
			texcoord[i] = [2]float32{v.X, v.Y}
		}
		attrs[fmt.Sprintf("TEXCOORD_%d", ch)] = modeler.WriteTextureCoord(doc, texcoord)
	}
	for ch, col := range mesh.Colors {
		colors := make([][4]float32, len(col))
		for i, v := range col {
			colors[i] = [4]float32{v.X, v.Y, v.Z, v.W}
		}
		attrs[fmt.Sprintf("COLOR_%d", ch)] = modeler.WriteColor(doc, colors)
	}

	indicesIdx := modeler.WriteIndices(doc, mesh.Indices)

	matIdx := uint32(mesh.MaterialIndex)
	return &gltf.Primitive{
		Attributes: attrs,
		Indices:    &indicesIdx,
		Material:   &matIdx,
		Mode:       saveMode(mesh.PrimitiveKind),
	}, nil
}

func saveMode(kind scenemodel.PrimitiveKind) gltf.PrimitiveMode {
	switch kind {
	case scenemodel.Triangles:
		return gltf.PrimitiveTriangles
	case scenemodel.Lines:
		return gltf.PrimitiveLines
	case scenemodel.Points:
		return gltf.PrimitivePoints
	default:
		return gltf.PrimitiveTriangles
	}
}

func saveMaterial(doc *gltf.Document, mat scenemodel.Material, imgRemap []uint32) *gltf.Material {
	out := &gltf.Material{Name: mat.Name, PBRMetallicRoughness: &gltf.PBRMetallicRoughness{}}
	textureFor := func(slot scenemodel.TextureSlot) *gltf.TextureInfo {
		idx, ok := embeddedIndex(slot.PathOrStar)
		if !ok || idx >= len(imgRemap) {
			return nil
		}
		texIdx := uint32(len(doc.Textures))
		src := imgRemap[idx]
		doc.Textures = append(doc.Textures, &gltf.Texture{Source: &src})
		return &gltf.TextureInfo{Index: texIdx}
	}
	if slots := mat.Slots[texturetype.DIFFUSE]; len(slots) > 0 {
		out.PBRMetallicRoughness.BaseColorTexture = textureFor(slots[0])
	}
	if slots := mat.Slots[texturetype.NORMALS]; len(slots) > 0 {
		if ti := textureFor(slots[0]); ti != nil {
			out.NormalTexture = &gltf.NormalTexture{Index: ti.Index}
		}
	}
	if slots := mat.Slots[texturetype.EMISSIVE]; len(slots) > 0 {
		out.EmissiveTexture = textureFor(slots[0])
	}
	if slots := mat.Slots[texturetype.AMBIENT_OCCLUSION]; len(slots) > 0 {
		if ti := textureFor(slots[0]); ti != nil {
			out.OcclusionTexture = &gltf.OcclusionTexture{Index: ti.Index}
		}
	}
	if slots := mat.Slots[texturetype.METALNESS]; len(slots) > 0 {
		out.PBRMetallicRoughness.MetallicRoughnessTexture = textureFor(slots[0])
	}
	return out
}

func embeddedIndex(pathOrStar string) (int, bool) {
	if len(pathOrStar) < 2 || pathOrStar[0] != '*' {
		return 0, false
	}
	n := 0
	for _, c := range pathOrStar[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
