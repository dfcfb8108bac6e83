// Package atlas implements spec §4.3's Atlas Packer: for every active
// texture-semantic type it shelf-packs all distinct textures referenced
// by materials into one image, rewrites material slot paths/wrap modes,
// and remaps mesh UVs against the diffuse atlas's per-material region.
//
// AtlasRegion and the row-copy blit below are adapted from go-gl/legacy
// glh's TextureAtlas.Set, which packs with a skyline allocator; this
// package replaces that with the simpler shelf algorithm spec §4.3
// calls for, but keeps the same "allocate a region, then memcpy rows
// into it" shape.
package atlas

import (
	"os"
	"path/filepath"

	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/pixelbuffer"
	"github.com/alex2835/lodgen/internal/scenemodel"
	"github.com/alex2835/lodgen/internal/texturetype"
)

// AtlasRegion is a packed rectangle inside one atlas image, in pixels.
type AtlasRegion struct {
	X, Y, W, H int
}

// Options mirrors spec §4.3's opts = {model_dir, output_dir}.
type Options struct {
	ModelDir  string
	OutputDir string
}

// Info is one built atlas's summary (AtlasInfo in the spec).
type Info struct {
	Type     texturetype.Type
	Filename string
	Width    int
	Height   int
}

type sourceRef struct {
	key      string
	diskPath string // non-empty if loaded from disk (for cleanup phase)
	buf      *pixelbuffer.Buffer
}

type slotRef struct {
	materialIndex int
	texType       texturetype.Type
	slotIndex     int
	sourceIndex   int
}

// Build runs all six phases of spec §4.3 against scene, mutating it in
// place, and returns one Info per atlas actually written.
func Build(scene *scenemodel.Scene, opts Options) ([]Info, error) {
	sources, sourceIndexOf, refs, activeTypes, err := collectSources(scene, opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}

	matToSrc := diffuseFirstMapping(scene, refs, sourceIndexOf)

	var infos []Info
	var newEmbedded []scenemodel.EmbeddedTexture
	slotRewrite := map[texturetype.Type]string{} // type -> atlas leaf filename
	var diffuseAtlasW, diffuseAtlasH int
	diffuseRegions := map[int]AtlasRegion{} // source index -> region, diffuse atlas only
	haveDiffuseAtlas := false

	for _, t := range texturetype.CanonicalOrder {
		if !activeTypes[t] {
			continue
		}
		orderedSrc := sourcesForType(refs, t)
		if len(orderedSrc) == 0 {
			continue
		}

		regions, atlasW, atlasH, err := shelfPack(orderedSrc, sources)
		if err != nil {
			return nil, err
		}

		buf := &pixelbuffer.Buffer{W: atlasW, H: atlasH, Pix: make([]byte, atlasW*atlasH*4)}
		for i, srcIdx := range orderedSrc {
			blit(buf, regions[i], sources[srcIdx].buf)
		}

		encoded, _, err := buf.Encode("png")
		if err != nil {
			return nil, err
		}
		filename := t.AtlasFilename()
		if opts.OutputDir != "" {
			if err := os.WriteFile(filepath.Join(opts.OutputDir, filename), encoded, 0o644); err != nil {
				return nil, lodgenerr.Wrap(lodgenerr.AtlasBuildFailed, "write "+filename, err)
			}
		}

		newEmbedded = append(newEmbedded, scenemodel.EmbeddedTexture{
			Filename:   filename,
			Bytes:      encoded,
			FormatHint: "png",
			Width:      atlasW,
			Height:     atlasH,
		})
		slotRewrite[t] = filename
		infos = append(infos, Info{Type: t, Filename: filename, Width: atlasW, Height: atlasH})

		if t == texturetype.DIFFUSE && !haveDiffuseAtlas {
			haveDiffuseAtlas = true
			diffuseAtlasW, diffuseAtlasH = atlasW, atlasH
			for i, srcIdx := range orderedSrc {
				diffuseRegions[srcIdx] = regions[i]
			}
		}
	}

	// Phase 4: install textures.
	scene.EmbeddedTextures = newEmbedded

	// Rewrite material slots of every active type.
	for mi := range scene.Materials {
		mat := &scene.Materials[mi]
		for _, t := range texturetype.CanonicalOrder {
			filename, ok := slotRewrite[t]
			if !ok {
				continue
			}
			for si := range mat.Slots[t] {
				mat.Slots[t][si].PathOrStar = filename
				mat.Slots[t][si].WrapU = scenemodel.WrapClamp
				mat.Slots[t][si].WrapV = scenemodel.WrapClamp
			}
		}
	}

	// Phase 5: UV remap, diffuse atlas only.
	if haveDiffuseAtlas {
		remapUVs(scene, matToSrc, diffuseRegions, diffuseAtlasW, diffuseAtlasH)
	}

	// Phase 6: best-effort external file cleanup.
	for _, src := range sources {
		if src.diskPath != "" {
			os.Remove(src.diskPath)
		}
	}

	return infos, nil
}

// collectSources is Phase 1: walk every material x type x slot in
// canonical order, decoding each distinct source exactly once.
func collectSources(scene *scenemodel.Scene, opts Options) ([]sourceRef, map[string]int, []slotRef, map[texturetype.Type]bool, error) {
	var sources []sourceRef
	sourceIndexOf := map[string]int{}
	var refs []slotRef
	activeTypes := map[texturetype.Type]bool{}

	for mi := range scene.Materials {
		mat := &scene.Materials[mi]
		for _, t := range texturetype.CanonicalOrder {
			for si, slot := range mat.Slots[t] {
				key := slot.PathOrStar
				srcIdx, ok := sourceIndexOf[key]
				if !ok {
					buf, diskPath, err := resolveSource(scene, key, opts)
					if err != nil {
						return nil, nil, nil, nil, err
					}
					srcIdx = len(sources)
					sources = append(sources, sourceRef{key: key, diskPath: diskPath, buf: buf})
					sourceIndexOf[key] = srcIdx
				}
				refs = append(refs, slotRef{materialIndex: mi, texType: t, slotIndex: si, sourceIndex: srcIdx})
				activeTypes[t] = true
			}
		}
	}

	return sources, sourceIndexOf, refs, activeTypes, nil
}

func resolveSource(scene *scenemodel.Scene, key string, opts Options) (*pixelbuffer.Buffer, string, error) {
	if idx, ok := scene.LookupEmbedded(key); ok {
		tex := scene.EmbeddedTextures[idx]
		if tex.IsCompressed() {
			buf, err := pixelbuffer.Decode(tex.Bytes, tex.FormatHint)
			return buf, "", err
		}
		return pixelbuffer.DecodeARGB(tex.Width, tex.Height, tex.ARGB), "", nil
	}

	base := filepath.Base(key)
	outPath := filepath.Join(opts.OutputDir, base)
	if _, err := os.Stat(outPath); err == nil {
		buf, err := pixelbuffer.Load(outPath)
		return buf, outPath, err
	}
	modelPath := filepath.Join(opts.ModelDir, base)
	buf, err := pixelbuffer.Load(modelPath)
	return buf, modelPath, err
}

// diffuseFirstMapping is Phase 2.
func diffuseFirstMapping(scene *scenemodel.Scene, refs []slotRef, _ map[string]int) map[int]int {
	matToSrc := map[int]int{}
	firstAny := map[int]int{}
	for _, r := range refs {
		if _, ok := firstAny[r.materialIndex]; !ok {
			firstAny[r.materialIndex] = r.sourceIndex
		}
		if r.texType == texturetype.DIFFUSE {
			if _, ok := matToSrc[r.materialIndex]; !ok {
				matToSrc[r.materialIndex] = r.sourceIndex
			}
		}
	}
	for mi := range scene.Materials {
		if _, ok := matToSrc[mi]; !ok {
			if src, ok := firstAny[mi]; ok {
				matToSrc[mi] = src
			}
		}
	}
	return matToSrc
}

// sourcesForType returns the ordered, deduplicated source indices
// referenced by any slot of type t, in first-appearance order (spec §9
// "implementers must preserve this ordering invariant in Phase 3").
func sourcesForType(refs []slotRef, t texturetype.Type) []int {
	var out []int
	seen := map[int]bool{}
	for _, r := range refs {
		if r.texType != t {
			continue
		}
		if seen[r.sourceIndex] {
			continue
		}
		seen[r.sourceIndex] = true
		out = append(out, r.sourceIndex)
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

const maxAtlasDim = 8192

// shelfPack is Phase 3 steps 1-2: place textures left-to-right on
// shelves, starting a new shelf when the current one is full.
func shelfPack(orderedSrc []int, sources []sourceRef) ([]AtlasRegion, int, int, error) {
	n := len(orderedSrc)
	maxW := 0
	for _, idx := range orderedSrc {
		if sources[idx].buf.W > maxW {
			maxW = sources[idx].buf.W
		}
	}
	sqrtN := 1
	for sqrtN*sqrtN < n {
		sqrtN++
	}
	atlasW := nextPow2(maxW * sqrtN)
	if atlasW > maxAtlasDim {
		atlasW = maxAtlasDim
	}

	order := append([]int(nil), orderedSrc...)
	// Sort by decreasing height (stable insertion sort: n is expected small
	// and this keeps first-appearance order as the tiebreak, same spirit
	// as the spec's textual description).
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && sources[order[j]].buf.H > sources[order[j-1]].buf.H; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	regions := make(map[int]AtlasRegion, n)
	curX, curY, shelfH := 0, 0, 0
	for _, idx := range order {
		buf := sources[idx].buf
		if curX+buf.W > atlasW {
			curY += shelfH
			curX = 0
			shelfH = 0
		}
		regions[idx] = AtlasRegion{X: curX, Y: curY, W: buf.W, H: buf.H}
		curX += buf.W
		if buf.H > shelfH {
			shelfH = buf.H
		}
	}
	atlasH := nextPow2(curY + shelfH)
	if atlasH > maxAtlasDim {
		return nil, 0, 0, lodgenerr.New(lodgenerr.AtlasBuildFailed, "atlas height exceeds 8192")
	}

	out := make([]AtlasRegion, n)
	for i, idx := range orderedSrc {
		out[i] = regions[idx]
	}
	return out, atlasW, atlasH, nil
}

// blit copies src row-by-row into dst at region's offset.
func blit(dst *pixelbuffer.Buffer, region AtlasRegion, src *pixelbuffer.Buffer) {
	for row := 0; row < region.H; row++ {
		srcOff := row * src.W * 4
		dstOff := ((region.Y+row)*dst.W + region.X) * 4
		copy(dst.Pix[dstOff:dstOff+src.W*4], src.Pix[srcOff:srcOff+src.W*4])
	}
}

// remapUVs is Phase 5.
func remapUVs(scene *scenemodel.Scene, matToSrc map[int]int, regions map[int]AtlasRegion, atlasW, atlasH int) {
	for mi := range scene.Meshes {
		mesh := &scene.Meshes[mi]
		if mesh.MaterialIndex >= len(scene.Materials) {
			continue
		}
		srcIdx, ok := matToSrc[mesh.MaterialIndex]
		if !ok {
			continue
		}
		reg, ok := regions[srcIdx]
		if !ok || reg.W == 0 || reg.H == 0 {
			continue
		}
		u0 := float32(reg.X) / float32(atlasW)
		v0 := float32(reg.Y) / float32(atlasH)
		us := float32(reg.W) / float32(atlasW)
		vs := float32(reg.H) / float32(atlasH)
		for ch := range mesh.UVs {
			for i := range mesh.UVs[ch] {
				uv := &mesh.UVs[ch][i]
				uv.X = u0 + uv.X*us
				uv.Y = v0 + uv.Y*vs
			}
		}
	}
}
