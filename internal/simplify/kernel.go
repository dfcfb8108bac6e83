package simplify

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// KernelInput is the documented black-box interface to the edge-collapse
// numeric kernel (spec §9 "stride-limited kernel"). Positions is a tightly
// packed, stride-12 float array (spec §4.1 step 3's "position stride ≤ 256
// bytes" requirement is trivially satisfied by packing xyz with no padding);
// Attrs is a compact array with at most 32 floats per vertex (spec §4.1
// step 4's kernel limit).
type KernelInput struct {
	Positions []float32 // len == V*3
	Attrs     []float32 // len == V*AttrCount
	AttrCount int
	Indices   []uint32 // original triangle list, len % 3 == 0
	Target    int      // target triangle count, already computed by the caller
}

// KernelOutput is the kernel's result: a new (not yet compacted) index
// buffer over the same V vertices, plus the scalar error metric spec §4.1
// step 5 requires the kernel to report.
type KernelOutput struct {
	Indices     []uint32
	ErrorMetric float64
}

// quadric is the symmetric 4x4 fundamental error matrix of Garland &
// Heckbert's QEM, stored as its 10 distinct entries:
//
//	[a2 ab ac ad]
//	[.  b2 bc bd]
//	[.  .  c2 cd]
//	[.  .  .  d2]
type quadric [10]float64

func planeQuadric(p0, p1, p2 mgl32.Vec3) quadric {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	length := float64(n.Len())
	if length < 1e-20 {
		return quadric{}
	}
	a := float64(n[0]) / length
	b := float64(n[1]) / length
	c := float64(n[2]) / length
	d := -(a*float64(p0[0]) + b*float64(p0[1]) + c*float64(p0[2]))
	return quadric{a * a, a * b, a * c, a * d, b * b, b * c, b * d, c * c, c * d, d * d}
}

func (q quadric) add(o quadric) quadric {
	for i := range q {
		q[i] += o[i]
	}
	return q
}

func (q quadric) errorAt(x, y, z float64) float64 {
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

type edgeUnionFind struct {
	parent []uint32
}

func newUnionFind(n int) *edgeUnionFind {
	p := make([]uint32, n)
	for i := range p {
		p[i] = uint32(i)
	}
	return &edgeUnionFind{parent: p}
}

func (u *edgeUnionFind) find(v uint32) uint32 {
	root := v
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[v] != root {
		next := u.parent[v]
		u.parent[v] = root
		v = next
	}
	return root
}

func (u *edgeUnionFind) union(keep, drop uint32) {
	u.parent[drop] = keep
}

type candidateEdge struct {
	a, b uint32
	cost float64
}

// Run performs attribute-aware quadric edge collapse: it greedily contracts
// the lowest-cost edge until the live triangle count reaches in.Target or no
// further collapse is possible. When in.AttrCount == 0 only the position
// quadric drives the cost (spec §4.1 step 5's "positions-only variant").
func Run(in KernelInput) KernelOutput {
	vcount := len(in.Positions) / 3
	tris := len(in.Indices) / 3
	if tris == 0 || vcount == 0 {
		return KernelOutput{Indices: append([]uint32(nil), in.Indices...)}
	}

	pos := func(v uint32) mgl32.Vec3 {
		o := int(v) * 3
		return mgl32.Vec3{in.Positions[o], in.Positions[o+1], in.Positions[o+2]}
	}
	attr := func(v uint32, i int) float32 {
		if in.AttrCount == 0 {
			return 0
		}
		return in.Attrs[int(v)*in.AttrCount+i]
	}

	quadrics := make([]quadric, vcount)
	vertexTris := make([][]int, vcount)
	triAlive := make([]bool, tris)
	for t := 0; t < tris; t++ {
		triAlive[t] = true
		i0, i1, i2 := in.Indices[t*3], in.Indices[t*3+1], in.Indices[t*3+2]
		q := planeQuadric(pos(i0), pos(i1), pos(i2))
		quadrics[i0] = quadrics[i0].add(q)
		quadrics[i1] = quadrics[i1].add(q)
		quadrics[i2] = quadrics[i2].add(q)
		vertexTris[i0] = append(vertexTris[i0], t)
		vertexTris[i1] = append(vertexTris[i1], t)
		vertexTris[i2] = append(vertexTris[i2], t)
	}

	edgeSeen := make(map[uint64]bool)
	var edges []candidateEdge
	addEdge := func(a, b uint32) {
		if a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		key := uint64(a)<<32 | uint64(b)
		if edgeSeen[key] {
			return
		}
		edgeSeen[key] = true
		edges = append(edges, candidateEdge{a: a, b: b})
	}
	for t := 0; t < tris; t++ {
		i0, i1, i2 := in.Indices[t*3], in.Indices[t*3+1], in.Indices[t*3+2]
		addEdge(i0, i1)
		addEdge(i1, i2)
		addEdge(i2, i0)
	}

	attrCost := func(a, b uint32, useMid bool) float64 {
		if in.AttrCount == 0 {
			return 0
		}
		var sum float64
		for i := 0; i < in.AttrCount; i++ {
			va, vb := float64(attr(a, i)), float64(attr(b, i))
			var d float64
			if useMid {
				d = va - (va+vb)/2
			} else {
				d = va - vb
			}
			sum += d * d
		}
		return sum
	}

	uf := newUnionFind(vcount)
	liveTris := tris

	for liveTris > in.Target {
		bestIdx := -1
		bestCost := math.Inf(1)
		for idx, e := range edges {
			if e.cost < 0 {
				continue // already applied
			}
			ra, rb := uf.find(e.a), uf.find(e.b)
			if ra == rb {
				edges[idx].cost = -1
				continue
			}
			q := quadrics[ra].add(quadrics[rb])
			pa, pb := pos(ra), pos(rb)
			mx, my, mz := float64(pa[0]+pb[0])/2, float64(pa[1]+pb[1])/2, float64(pa[2]+pb[2])/2
			cost := q.errorAt(mx, my, mz) + attrCost(ra, rb, true)
			edges[idx].cost = cost
			if cost < bestCost {
				bestCost = cost
				bestIdx = idx
			}
		}
		if bestIdx < 0 {
			break
		}
		e := edges[bestIdx]
		ra, rb := uf.find(e.a), uf.find(e.b)
		if ra == rb {
			edges[bestIdx].cost = -1
			continue
		}
		// Merge rb into ra; ra keeps its original position (the midpoint
		// only scores the collapse, and the output re-indexes existing
		// vertices without moving them).
		uf.union(ra, rb)
		quadrics[ra] = quadrics[ra].add(quadrics[rb])
		edges[bestIdx].cost = -1

		for _, t := range vertexTris[rb] {
			if !triAlive[t] {
				continue
			}
			r0 := uf.find(in.Indices[t*3])
			r1 := uf.find(in.Indices[t*3+1])
			r2 := uf.find(in.Indices[t*3+2])
			if r0 == r1 || r1 == r2 || r0 == r2 {
				triAlive[t] = false
				liveTris--
			}
		}
		vertexTris[ra] = append(vertexTris[ra], vertexTris[rb]...)
		vertexTris[rb] = nil

		if liveTris <= in.Target {
			break
		}
	}

	out := make([]uint32, 0, liveTris*3)
	var worst float64
	for t := 0; t < tris; t++ {
		if !triAlive[t] {
			continue
		}
		r0 := uf.find(in.Indices[t*3])
		r1 := uf.find(in.Indices[t*3+1])
		r2 := uf.find(in.Indices[t*3+2])
		if r0 == r1 || r1 == r2 || r0 == r2 {
			continue
		}
		out = append(out, r0, r1, r2)
	}
	for _, e := range edges {
		if e.cost > worst && e.cost != -1 {
			worst = e.cost
		}
	}

	return KernelOutput{Indices: out, ErrorMetric: worst}
}
