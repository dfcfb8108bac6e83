package scenemodel

// Clone performs the scene-graph-aware deep copy spec §3 Lifecycle and §5
// require before every per-LOD mutation: the source Scene passed to the
// orchestrator is never mutated, only its clone is.
func (s *Scene) Clone() *Scene {
	out := &Scene{
		RootNode:  s.RootNode,
		SourceExt: s.SourceExt,
	}

	out.Meshes = make([]Mesh, len(s.Meshes))
	for i := range s.Meshes {
		out.Meshes[i] = s.Meshes[i].clone()
	}

	out.Materials = make([]Material, len(s.Materials))
	for i := range s.Materials {
		out.Materials[i] = s.Materials[i].clone()
	}

	out.EmbeddedTextures = make([]EmbeddedTexture, len(s.EmbeddedTextures))
	for i := range s.EmbeddedTextures {
		out.EmbeddedTextures[i] = s.EmbeddedTextures[i].clone()
	}

	out.Nodes = make([]Node, len(s.Nodes))
	for i := range s.Nodes {
		out.Nodes[i] = s.Nodes[i].clone()
	}

	return out
}

func (m *Mesh) clone() Mesh {
	out := Mesh{
		Name:          m.Name,
		PrimitiveKind: m.PrimitiveKind,
		MaterialIndex: m.MaterialIndex,
	}
	out.Positions = append([]Vec3(nil), m.Positions...)
	if m.Normals != nil {
		out.Normals = append([]Vec3(nil), m.Normals...)
	}
	if m.Tangents != nil {
		out.Tangents = append([]Vec3(nil), m.Tangents...)
		out.Bitangents = append([]Vec3(nil), m.Bitangents...)
	}
	if m.UVs != nil {
		out.UVs = make([][]Vec3, len(m.UVs))
		for i, ch := range m.UVs {
			out.UVs[i] = append([]Vec3(nil), ch...)
		}
		out.UVComponents = append([]int(nil), m.UVComponents...)
	}
	if m.Colors != nil {
		out.Colors = make([][]Vec4, len(m.Colors))
		for i, ch := range m.Colors {
			out.Colors[i] = append([]Vec4(nil), ch...)
		}
	}
	out.Indices = append([]uint32(nil), m.Indices...)
	if m.Bones != nil {
		out.Bones = make([]Bone, len(m.Bones))
		for i, b := range m.Bones {
			out.Bones[i] = Bone{
				Name:         b.Name,
				Weights:      append([]Weight(nil), b.Weights...),
				OffsetMatrix: b.OffsetMatrix,
			}
		}
	}
	return out
}

func (mat *Material) clone() Material {
	out := Material{Name: mat.Name}
	for t := range mat.Slots {
		if mat.Slots[t] != nil {
			out.Slots[t] = append([]TextureSlot(nil), mat.Slots[t]...)
		}
	}
	return out
}

func (e *EmbeddedTexture) clone() EmbeddedTexture {
	out := EmbeddedTexture{
		Filename:   e.Filename,
		FormatHint: e.FormatHint,
		Width:      e.Width,
		Height:     e.Height,
	}
	if e.Bytes != nil {
		out.Bytes = append([]byte(nil), e.Bytes...)
	}
	if e.ARGB != nil {
		out.ARGB = append([]byte(nil), e.ARGB...)
	}
	return out
}

func (n *Node) clone() Node {
	return Node{
		Name:        n.Name,
		Children:    append([]int(nil), n.Children...),
		MeshIndices: append([]int(nil), n.MeshIndices...),
		Transform:   n.Transform,
	}
}

// Equal reports whether two scenes agree on the fields it compares, used by
// tests to check property P10 (source scene immutability across
// generate_lods). It compares mesh positions, indices, material index and
// primitive kind; material texture slots; embedded texture format hint,
// size and compressed bytes; and the counts of meshes, materials, embedded
// textures and nodes. Normals, tangents, UVs, colors, bones, names, node
// contents and raw ARGB pixel contents are not compared.
func (s *Scene) Equal(o *Scene) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Meshes) != len(o.Meshes) || len(s.Materials) != len(o.Materials) ||
		len(s.EmbeddedTextures) != len(o.EmbeddedTextures) || len(s.Nodes) != len(o.Nodes) {
		return false
	}
	for i := range s.Meshes {
		if !meshEqual(&s.Meshes[i], &o.Meshes[i]) {
			return false
		}
	}
	for i := range s.Materials {
		if !materialEqual(&s.Materials[i], &o.Materials[i]) {
			return false
		}
	}
	for i := range s.EmbeddedTextures {
		if !textureEqual(&s.EmbeddedTextures[i], &o.EmbeddedTextures[i]) {
			return false
		}
	}
	return true
}

func meshEqual(a, b *Mesh) bool {
	if a.VertexCount() != b.VertexCount() || len(a.Indices) != len(b.Indices) {
		return false
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			return false
		}
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			return false
		}
	}
	return a.MaterialIndex == b.MaterialIndex && a.PrimitiveKind == b.PrimitiveKind
}

func materialEqual(a, b *Material) bool {
	for t := range a.Slots {
		if len(a.Slots[t]) != len(b.Slots[t]) {
			return false
		}
		for i := range a.Slots[t] {
			if a.Slots[t][i] != b.Slots[t][i] {
				return false
			}
		}
	}
	return true
}

func textureEqual(a, b *EmbeddedTexture) bool {
	if a.FormatHint != b.FormatHint || a.Width != b.Width || a.Height != b.Height {
		return false
	}
	if len(a.Bytes) != len(b.Bytes) || len(a.ARGB) != len(b.ARGB) {
		return false
	}
	for i := range a.Bytes {
		if a.Bytes[i] != b.Bytes[i] {
			return false
		}
	}
	return true
}
