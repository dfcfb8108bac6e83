package simplify

import (
	"testing"

	"github.com/alex2835/lodgen/internal/scenemodel"
)

func quadMesh() *scenemodel.Mesh {
	// Two triangles forming a unit-square quad in the XY plane, with one
	// UV channel and per-vertex normals so every attribute-bearing code
	// path (layout detection, attribute budget, unpack) gets exercised.
	return &scenemodel.Mesh{
		Name: "quad",
		Positions: []scenemodel.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Normals: []scenemodel.Vec3{
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 0, Z: 1},
		},
		UVs: [][]scenemodel.Vec3{
			{
				{X: 0, Y: 0},
				{X: 1, Y: 0},
				{X: 1, Y: 1},
				{X: 0, Y: 1},
			},
		},
		UVComponents:  []int{2},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
		PrimitiveKind: scenemodel.Triangles,
	}
}

func TestSimplifyNonTriangleMeshUnchanged(t *testing.T) {
	m := quadMesh()
	m.PrimitiveKind = scenemodel.Lines
	origIndices := append([]uint32(nil), m.Indices...)

	res := Simplify(m, 0.5)

	if res.OriginalTris != res.SimplifiedTris {
		t.Fatalf("expected unchanged tri count for non-triangle mesh, got %d vs %d", res.OriginalTris, res.SimplifiedTris)
	}
	if len(m.Indices) != len(origIndices) {
		t.Fatalf("expected indices untouched, got len %d want %d", len(m.Indices), len(origIndices))
	}
}

func TestSimplifyEmptyIndicesUnchanged(t *testing.T) {
	m := quadMesh()
	m.Indices = nil

	res := Simplify(m, 0.5)

	if res.OriginalTris != 0 || res.SimplifiedTris != 0 {
		t.Fatalf("expected zero tris for empty-index mesh, got %+v", res)
	}
}

func TestSimplifyPreservesVertexAttributeShapes(t *testing.T) {
	m := quadMesh()

	Simplify(m, 1.0)

	v := m.VertexCount()
	if len(m.Normals) != v {
		t.Fatalf("normals length %d does not match vertex count %d", len(m.Normals), v)
	}
	if len(m.UVs) != 1 || len(m.UVs[0]) != v {
		t.Fatalf("uv channel 0 length mismatch: got %d want %d", len(m.UVs[0]), v)
	}
	for _, idx := range m.Indices {
		if int(idx) >= v {
			t.Fatalf("index %d out of range for %d vertices", idx, v)
		}
	}
}

func TestSimplifyTargetNeverBelowOneTriangle(t *testing.T) {
	m := quadMesh()

	res := Simplify(m, 0.01)

	if res.SimplifiedTris < 1 {
		t.Fatalf("expected at least one triangle to survive, got %d", res.SimplifiedTris)
	}
	if len(m.Indices)%3 != 0 {
		t.Fatalf("index count %d not a multiple of 3", len(m.Indices))
	}
}

func TestVertexCacheOptimizePreservesTriangleSet(t *testing.T) {
	indices := []uint32{0, 1, 2, 2, 1, 3, 3, 1, 4}
	out := VertexCacheOptimize(indices, 5)

	if len(out) != len(indices) {
		t.Fatalf("expected %d indices back, got %d", len(indices), len(out))
	}
	origSet := triSet(indices)
	outSet := triSet(out)
	for k := range origSet {
		if !outSet[k] {
			t.Fatalf("triangle %v missing after cache optimization", k)
		}
	}
}

func triSet(indices []uint32) map[[3]uint32]bool {
	set := make(map[[3]uint32]bool)
	for t := 0; t*3 < len(indices); t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		if a > b {
			a, b = b, a
		}
		if b > c {
			b, c = c, b
		}
		if a > b {
			a, b = b, a
		}
		set[[3]uint32{a, b, c}] = true
	}
	return set
}
