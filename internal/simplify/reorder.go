package simplify

import "sort"

// VertexCacheOptimize reorders a triangle list to improve post-transform
// vertex-cache hit rate (spec §4.1 step 6, first pass). It implements a
// simplified variant of Tom Forsyth's greedy algorithm: at each step it
// picks the highest-scoring triangle, where score rewards vertices that are
// still near the front of a simulated FIFO cache and vertices with few
// remaining uses (so they get retired early).
func VertexCacheOptimize(indices []uint32, vertexCount int) []uint32 {
	triCount := len(indices) / 3
	if triCount == 0 {
		return append([]uint32(nil), indices...)
	}

	const cacheSize = 32
	remainingUses := make([]int, vertexCount)
	for _, idx := range indices {
		remainingUses[idx]++
	}
	vertexTris := make([][]int, vertexCount)
	for t := 0; t < triCount; t++ {
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			vertexTris[v] = append(vertexTris[v], t)
		}
	}

	triAdded := make([]bool, triCount)
	cachePos := make([]int, vertexCount)
	for i := range cachePos {
		cachePos[i] = -1
	}

	score := func(v uint32) float64 {
		var s float64
		pos := cachePos[v]
		switch {
		case pos < 0:
			s = 0
		case pos < 3:
			s = 0.75
		default:
			s = 2.0 - float64(pos)/float64(cacheSize)
			if s < 0 {
				s = 0
			}
		}
		uses := remainingUses[v]
		if uses > 0 {
			s += 2.0 / float64(uses+1)
		}
		return s
	}

	triScore := func(t int) float64 {
		var s float64
		for k := 0; k < 3; k++ {
			s += score(indices[t*3+k])
		}
		return s
	}

	cache := make([]uint32, 0, cacheSize*2)
	out := make([]uint32, 0, len(indices))

	pickBest := func() int {
		best, bestScore := -1, -1.0
		for t := 0; t < triCount; t++ {
			if triAdded[t] {
				continue
			}
			s := triScore(t)
			if s > bestScore {
				bestScore, best = s, t
			}
		}
		return best
	}

	for added := 0; added < triCount; added++ {
		t := pickBest()
		if t < 0 {
			break
		}
		triAdded[t] = true
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			out = append(out, v)
			remainingUses[v]--
			cache = append([]uint32{v}, cache...)
		}
		if len(cache) > cacheSize {
			cache = cache[:cacheSize]
		}
		for i := range cachePos {
			cachePos[i] = -1
		}
		for i, v := range cache {
			if cachePos[v] == -1 {
				cachePos[v] = i
			}
		}
	}
	return out
}

// OverdrawOptimize performs a best-effort overdraw reduction pass (spec
// §4.1 step 6, second pass): triangles are grouped into fixed-size
// clusters and each cluster is sorted by centroid depth along the scene's
// dominant axis, so nearby triangles in the cache-optimized order are also
// drawn in a roughly front-to-back sequence. The threshold argument is
// accepted but not used; no overdraw cost is estimated.
func OverdrawOptimize(indices []uint32, positions []Vec3, threshold float64) []uint32 {
	triCount := len(indices) / 3
	if triCount == 0 {
		return append([]uint32(nil), indices...)
	}

	const clusterSize = 64
	centroid := func(t int) Vec3 {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		pa, pb, pc := positions[a], positions[b], positions[c]
		return Vec3{
			X: (pa.X + pb.X + pc.X) / 3,
			Y: (pa.Y + pb.Y + pc.Y) / 3,
			Z: (pa.Z + pb.Z + pc.Z) / 3,
		}
	}

	axis := dominantAxis(positions)

	out := make([]uint32, 0, len(indices))
	for start := 0; start < triCount; start += clusterSize {
		end := start + clusterSize
		if end > triCount {
			end = triCount
		}
		cluster := make([]int, end-start)
		for i := range cluster {
			cluster[i] = start + i
		}
		sort.Slice(cluster, func(i, j int) bool {
			ci, cj := centroid(cluster[i]), centroid(cluster[j])
			return axisValue(ci, axis) < axisValue(cj, axis)
		})
		for _, t := range cluster {
			out = append(out, indices[t*3], indices[t*3+1], indices[t*3+2])
		}
	}
	_ = threshold // unused: the cluster-sort pass does not estimate overdraw
	return out
}

// Vec3 is the position type the reordering passes take; simplify.go
// converts scenemodel positions to it with toVec3.
type Vec3 struct{ X, Y, Z float32 }

func dominantAxis(positions []Vec3) int {
	if len(positions) == 0 {
		return 0
	}
	minV, maxV := positions[0], positions[0]
	for _, p := range positions[1:] {
		if p.X < minV.X {
			minV.X = p.X
		}
		if p.Y < minV.Y {
			minV.Y = p.Y
		}
		if p.Z < minV.Z {
			minV.Z = p.Z
		}
		if p.X > maxV.X {
			maxV.X = p.X
		}
		if p.Y > maxV.Y {
			maxV.Y = p.Y
		}
		if p.Z > maxV.Z {
			maxV.Z = p.Z
		}
	}
	dx, dy, dz := maxV.X-minV.X, maxV.Y-minV.Y, maxV.Z-minV.Z
	if dx >= dy && dx >= dz {
		return 0
	}
	if dy >= dx && dy >= dz {
		return 1
	}
	return 2
}

func axisValue(v Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
