package main

import (
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/alex2835/lodgen/internal/config"
	"github.com/alex2835/lodgen/internal/lod"
	"github.com/alex2835/lodgen/internal/sceneio"
)

func main() {
	modelPath := flag.String("model", "", "Path to the source scene file")
	outputDir := flag.String("out", "", "Directory to write lod1/, lod2/, ... into")
	ratios := flag.String("ratios", "0.5", "Comma-separated simplification ratios, e.g. 0.5,0.25,0.1")
	resize := flag.Bool("resize", true, "Resize textures alongside mesh simplification")
	buildAtlas := flag.Bool("atlas", false, "Pack each LOD's textures into per-type atlases")
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("Please specify a source model with -model flag")
	}
	if *outputDir == "" {
		log.Fatal("Please specify an output directory with -out flag")
	}

	parsedRatios, err := parseRatios(*ratios)
	if err != nil {
		log.Fatalf("Invalid -ratios: %v", err)
	}

	cfg := config.Config{
		Ratios:         parsedRatios,
		ResizeTextures: *resize,
		BuildAtlas:     *buildAtlas,
		OutputDir:      *outputDir,
	}
	if verr := cfg.Validate(); verr != nil {
		log.Fatalf("Invalid configuration: %v", verr)
	}

	log.Printf("Loading %s (supported formats: %v)", *modelPath, sceneio.SupportedFormats())
	scene, err := sceneio.Load(*modelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	log.Printf("Loaded %d meshes, %d materials", len(scene.Meshes), len(scene.Materials))

	results, err := lod.GenerateLODs(scene, *modelPath, cfg.OutputDir, cfg.Ratios, lod.Options{
		ResizeTextures: cfg.ResizeTextures,
		BuildAtlas:     cfg.BuildAtlas,
	})
	if err != nil {
		log.Fatalf("Failed to generate LODs: %v", err)
	}

	for i, r := range results {
		log.Printf("lod%d (ratio %.3g): %s, %d -> %d triangles, %d/%d textures",
			i+1, r.Ratio, r.Path, r.OriginalTris, r.SimplifiedTris,
			r.TextureStats.OutputCount, r.TextureStats.InputCount)
		for _, a := range r.AtlasInfos {
			log.Printf("  atlas %s: %s (%dx%d)", a.Type, a.Filename, a.Width, a.Height)
		}
	}
}

func parseRatios(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
