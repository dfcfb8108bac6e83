// Package simplify implements spec §4.1: per-mesh attribute-aware
// quadric simplification followed by vertex-cache/overdraw reordering and
// atomic compaction of every per-vertex attribute, including bone weights.
package simplify

import "github.com/alex2835/lodgen/internal/scenemodel"

// Result is the simplify contract's return value (spec §4.1).
type Result struct {
	OriginalTris   int
	SimplifiedTris int
	ErrorMetric    float64
}

const sentinel = ^uint32(0)

// layout records which optional per-vertex arrays are present (spec §4.1
// step 1) and the interleaved record shape derived from them.
type layout struct {
	hasNormals   bool
	hasTangents  bool // tangent+bitangent together
	uvComponents []int
	colorCount   int
	stride       int // floats per AoS record
}

func detectLayout(m *scenemodel.Mesh) layout {
	l := layout{
		hasNormals:   len(m.Normals) > 0,
		hasTangents:  len(m.Tangents) > 0 && len(m.Bitangents) > 0,
		uvComponents: append([]int(nil), m.UVComponents...),
		colorCount:   len(m.Colors),
	}
	l.stride = 3
	if l.hasNormals {
		l.stride += 3
	}
	if l.hasTangents {
		l.stride += 6
	}
	for _, c := range l.uvComponents {
		l.stride += c
	}
	l.stride += 4 * l.colorCount
	return l
}

// Simplify mutates mesh in place per spec §4.1. ratio must be in (0,1).
func Simplify(mesh *scenemodel.Mesh, ratio float64) Result {
	origTris := len(mesh.Indices) / 3

	if mesh.PrimitiveKind != scenemodel.Triangles || len(mesh.Indices) == 0 {
		return Result{OriginalTris: origTris, SimplifiedTris: origTris}
	}

	l := detectLayout(mesh)
	v := mesh.VertexCount()

	aos := interleave(mesh, l)

	positionsFlat := make([]float32, v*3)
	for i, p := range mesh.Positions {
		positionsFlat[i*3+0] = p.X
		positionsFlat[i*3+1] = p.Y
		positionsFlat[i*3+2] = p.Z
	}

	attrsFlat, attrCount := buildAttrs(mesh, l, 32)

	target := int(float64(len(mesh.Indices))*ratio) / 3 * 3
	if target < 3 {
		target = 3
	}
	if target > len(mesh.Indices) {
		target = len(mesh.Indices)
	}

	out := Run(KernelInput{
		Positions: positionsFlat,
		Attrs:     attrsFlat,
		AttrCount: attrCount,
		Indices:   mesh.Indices,
		Target:    target / 3,
	})

	newIndices := VertexCacheOptimize(out.Indices, v)
	newIndices = OverdrawOptimize(newIndices, toVec3(mesh.Positions), 1.05)

	remap := make([]uint32, v)
	for i := range remap {
		remap[i] = sentinel
	}
	liveCount := uint32(0)
	for _, idx := range newIndices {
		if remap[idx] == sentinel {
			remap[idx] = liveCount
			liveCount++
		}
	}

	for i, idx := range newIndices {
		newIndices[i] = remap[idx]
	}

	newAos := compact(aos, l.stride, remap, int(liveCount))

	for bi := range mesh.Bones {
		weights := mesh.Bones[bi].Weights
		kept := weights[:0]
		for _, w := range weights {
			if int(w.VertexID) >= len(remap) {
				continue
			}
			nv := remap[w.VertexID]
			if nv == sentinel {
				continue
			}
			kept = append(kept, scenemodel.Weight{VertexID: nv, Value: w.Value})
		}
		mesh.Bones[bi].Weights = kept
	}

	unpack(mesh, newAos, l, int(liveCount))
	mesh.Indices = newIndices

	return Result{
		OriginalTris:   origTris,
		SimplifiedTris: len(newIndices) / 3,
		ErrorMetric:    out.ErrorMetric,
	}
}

func toVec3(in []scenemodel.Vec3) []Vec3 {
	out := make([]Vec3, len(in))
	for i, p := range in {
		out[i] = Vec3{X: p.X, Y: p.Y, Z: p.Z}
	}
	return out
}

// interleave packs every present per-vertex attribute into one wide AoS
// buffer (spec §4.1 step 2), used only to drive the single remap pass.
func interleave(m *scenemodel.Mesh, l layout) []float32 {
	v := m.VertexCount()
	aos := make([]float32, v*l.stride)
	for i := 0; i < v; i++ {
		o := i * l.stride
		p := m.Positions[i]
		aos[o], aos[o+1], aos[o+2] = p.X, p.Y, p.Z
		o += 3
		if l.hasNormals {
			n := m.Normals[i]
			aos[o], aos[o+1], aos[o+2] = n.X, n.Y, n.Z
			o += 3
		}
		if l.hasTangents {
			t := m.Tangents[i]
			b := m.Bitangents[i]
			aos[o], aos[o+1], aos[o+2] = t.X, t.Y, t.Z
			o += 3
			aos[o], aos[o+1], aos[o+2] = b.X, b.Y, b.Z
			o += 3
		}
		for c, comps := range l.uvComponents {
			uv := m.UVs[c][i]
			aos[o] = uv.X
			aos[o+1] = uv.Y
			if comps == 3 {
				aos[o+2] = uv.Z
			}
			o += comps
		}
		for c := 0; c < l.colorCount; c++ {
			col := m.Colors[c][i]
			aos[o], aos[o+1], aos[o+2], aos[o+3] = col.X, col.Y, col.Z, col.W
			o += 4
		}
	}
	return aos
}

// buildAttrs builds the compact attribute bundle for the kernel (spec
// §4.1 step 4): UV channels first (weighted 1.5 for the first, 0.8 for the
// rest), then normals (weighted 0.5), stopping once the budget is spent.
func buildAttrs(m *scenemodel.Mesh, l layout, budget int) ([]float32, int) {
	v := m.VertexCount()
	var components int
	type plan struct {
		kind   int // 0 = uv, 1 = normal
		ch     int
		count  int
		weight float32
	}
	var plans []plan
	for c, comps := range l.uvComponents {
		if components+2 > budget {
			break
		}
		w := float32(0.8)
		if c == 0 {
			w = 1.5
		}
		plans = append(plans, plan{kind: 0, ch: c, count: 2, weight: w})
		components += 2
		_ = comps
	}
	if l.hasNormals && components+3 <= budget {
		plans = append(plans, plan{kind: 1, count: 3, weight: 0.5})
		components += 3
	}
	if components == 0 {
		return nil, 0
	}
	attrs := make([]float32, v*components)
	for i := 0; i < v; i++ {
		o := i * components
		for _, p := range plans {
			switch p.kind {
			case 0:
				uv := m.UVs[p.ch][i]
				attrs[o] = uv.X * p.weight
				attrs[o+1] = uv.Y * p.weight
				o += 2
			case 1:
				n := m.Normals[i]
				attrs[o] = n.X * p.weight
				attrs[o+1] = n.Y * p.weight
				attrs[o+2] = n.Z * p.weight
				o += 3
			}
		}
	}
	return attrs, components
}

// compact drops every vertex not referenced by remap and rewrites the AoS
// buffer to the new, tightly packed vertex space (spec §4.1 step 7).
func compact(aos []float32, stride int, remap []uint32, newV int) []float32 {
	out := make([]float32, newV*stride)
	for old, nv := range remap {
		if nv == sentinel {
			continue
		}
		copy(out[int(nv)*stride:(int(nv)+1)*stride], aos[old*stride:(old+1)*stride])
	}
	return out
}

// unpack deallocates the mesh's old per-vertex arrays and rebuilds them
// from the compacted AoS buffer (spec §4.1 step 9).
func unpack(m *scenemodel.Mesh, aos []float32, l layout, newV int) {
	positions := make([]scenemodel.Vec3, newV)
	var normals []scenemodel.Vec3
	var tangents, bitangents []scenemodel.Vec3
	if l.hasNormals {
		normals = make([]scenemodel.Vec3, newV)
	}
	if l.hasTangents {
		tangents = make([]scenemodel.Vec3, newV)
		bitangents = make([]scenemodel.Vec3, newV)
	}
	uvs := make([][]scenemodel.Vec3, len(l.uvComponents))
	for c := range uvs {
		uvs[c] = make([]scenemodel.Vec3, newV)
	}
	colors := make([][]scenemodel.Vec4, l.colorCount)
	for c := range colors {
		colors[c] = make([]scenemodel.Vec4, newV)
	}

	for i := 0; i < newV; i++ {
		o := i * l.stride
		positions[i] = scenemodel.Vec3{X: aos[o], Y: aos[o+1], Z: aos[o+2]}
		o += 3
		if l.hasNormals {
			normals[i] = scenemodel.Vec3{X: aos[o], Y: aos[o+1], Z: aos[o+2]}
			o += 3
		}
		if l.hasTangents {
			tangents[i] = scenemodel.Vec3{X: aos[o], Y: aos[o+1], Z: aos[o+2]}
			o += 3
			bitangents[i] = scenemodel.Vec3{X: aos[o], Y: aos[o+1], Z: aos[o+2]}
			o += 3
		}
		for c, comps := range l.uvComponents {
			u := aos[o]
			vv := aos[o+1]
			var z float32
			if comps == 3 {
				z = aos[o+2]
			}
			uvs[c][i] = scenemodel.Vec3{X: u, Y: vv, Z: z}
			o += comps
		}
		for c := 0; c < l.colorCount; c++ {
			colors[c][i] = scenemodel.Vec4{X: aos[o], Y: aos[o+1], Z: aos[o+2], W: aos[o+3]}
			o += 4
		}
	}

	m.Positions = positions
	m.Normals = normals
	m.Tangents = tangents
	m.Bitangents = bitangents
	m.UVs = uvs
	m.Colors = colors
}
