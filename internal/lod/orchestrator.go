// Package lod implements spec §4.4's LOD Orchestrator: for a loaded scene
// and an ordered list of simplification ratios, it drives the Mesh
// Simplifier and Texture Processor per ratio and persists each result
// through sceneio. It does no logging of its own: it returns per-LOD
// summaries and errors, and cmd/lodgen reports them.
package lod

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alex2835/lodgen/internal/atlas"
	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/scenemodel"
	"github.com/alex2835/lodgen/internal/sceneio"
	"github.com/alex2835/lodgen/internal/simplify"
	"github.com/alex2835/lodgen/internal/texproc"
)

// Options mirrors spec §4.4's opts = {resize_textures, build_atlas}.
type Options struct {
	ResizeTextures bool
	BuildAtlas     bool
}

// LodInfo is one generated LOD level's summary.
type LodInfo struct {
	Ratio          float64
	Dir            string
	Path           string
	OriginalTris   int
	SimplifiedTris int
	TextureStats   texproc.Stats
	AtlasInfos     []atlas.Info
}

// GenerateLODs runs the 7-step per-ratio algorithm of spec §4.4 against
// scene, which is never itself mutated (only per-ratio clones are).
func GenerateLODs(scene *scenemodel.Scene, inputPath, outputDir string, ratios []float64, opts Options) ([]LodInfo, error) {
	modelDir := filepath.Dir(inputPath)
	ext := scene.SourceExt
	if ext == "" {
		ext = filepath.Ext(inputPath)
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	var results []LodInfo
	for i, ratio := range ratios {
		lodDir := filepath.Join(outputDir, fmt.Sprintf("lod%d", i+1))

		if err := os.RemoveAll(lodDir); err != nil {
			return results, lodgenerr.Wrap(lodgenerr.SceneCopyFailed, "clear stale "+lodDir, err)
		}
		if err := os.MkdirAll(lodDir, 0o755); err != nil {
			return results, lodgenerr.Wrap(lodgenerr.SceneCopyFailed, "create "+lodDir, err)
		}

		outPath := filepath.Join(lodDir, fmt.Sprintf("%s_lod%d%s", stem, i+1, ext))

		clone := scene.Clone()

		info := LodInfo{Ratio: ratio, Dir: lodDir, Path: outPath}
		for mi := range clone.Meshes {
			res := simplify.Simplify(&clone.Meshes[mi], ratio)
			info.OriginalTris += res.OriginalTris
			info.SimplifiedTris += res.SimplifiedTris
		}

		if opts.ResizeTextures {
			stats, err := texproc.Process(clone, ratio, texproc.Options{
				ModelDir:  modelDir,
				OutputDir: lodDir,
				Resize:    opts.ResizeTextures,
			})
			if err != nil {
				return results, err
			}
			info.TextureStats = stats
		}

		if opts.BuildAtlas {
			infos, err := atlas.Build(clone, atlas.Options{ModelDir: modelDir, OutputDir: lodDir})
			if err != nil {
				return results, err
			}
			info.AtlasInfos = infos
		}

		if err := sceneio.Save(clone, outPath); err != nil {
			return results, err
		}

		results = append(results, info)
	}

	return results, nil
}

// AtlasInfo is BuildLODAtlas's per-call result (distinct from the
// per-LOD atlas summaries GenerateLODs records on LodInfo).
type AtlasInfo = atlas.Info

// BuildLODAtlas implements spec §4.4's standalone build_atlas entry
// point: load an already-generated LOD's model, pack its textures, and
// save it back out in place.
func BuildLODAtlas(modelPath string) ([]AtlasInfo, error) {
	scene, err := sceneio.Load(modelPath)
	if err != nil {
		return nil, err
	}

	infos, err := atlas.Build(scene, atlas.Options{
		ModelDir:  filepath.Dir(modelPath),
		OutputDir: filepath.Dir(modelPath),
	})
	if err != nil {
		return nil, err
	}

	if err := sceneio.Save(scene, modelPath); err != nil {
		return nil, err
	}
	return infos, nil
}
