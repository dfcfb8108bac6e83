// Package texproc implements spec §4.2's Texture Processor: for one LOD
// ratio, it retargets every embedded texture (Pass A) and every external
// texture reference (Pass B), deduplicating external sources and
// rewriting material slot paths in place.
package texproc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/pixelbuffer"
	"github.com/alex2835/lodgen/internal/scenemodel"
	"github.com/alex2835/lodgen/internal/texturetype"
)

// Options mirrors spec §4.2's opts = {model_dir, output_dir, resize}.
type Options struct {
	ModelDir  string
	OutputDir string
	Resize    bool
}

// Stats is the TextureStats result: distinct input sources seen, and
// distinct outputs actually written.
type Stats struct {
	InputCount  int
	OutputCount int
}

// Process mutates scene in place for one LOD ratio, per spec §4.2.
func Process(scene *scenemodel.Scene, ratio float64, opts Options) (Stats, error) {
	var stats Stats

	embeddedCount, err := processEmbedded(scene, ratio)
	if err != nil {
		return stats, err
	}
	stats.InputCount += embeddedCount
	stats.OutputCount += embeddedCount

	inputCount, outputCount, err := processExternal(scene, ratio, opts)
	if err != nil {
		return stats, err
	}
	stats.InputCount += inputCount
	stats.OutputCount += outputCount
	return stats, nil
}

// processEmbedded is Pass A: decode, resize, re-encode every embedded
// texture in place, preserving its index (and therefore every "*N"
// material reference). Each embedded texture is a distinct source that
// is also re-written, so it counts as one input and one output (spec
// §4.2 Stats, P7).
func processEmbedded(scene *scenemodel.Scene, ratio float64) (int, error) {
	for i := range scene.EmbeddedTextures {
		tex := &scene.EmbeddedTextures[i]

		var buf *pixelbuffer.Buffer
		var err error
		if tex.IsCompressed() {
			buf, err = pixelbuffer.Decode(tex.Bytes, tex.FormatHint)
		} else {
			buf = pixelbuffer.DecodeARGB(tex.Width, tex.Height, tex.ARGB)
		}
		if err != nil {
			return 0, lodgenerr.Wrap(lodgenerr.TextureDecodeFailed, "decode embedded texture "+tex.Filename, err)
		}

		newW, newH := pixelbuffer.ScaledDimensions(buf.W, buf.H, ratio)
		resized, err := buf.Resize(newW, newH)
		if err != nil {
			return 0, err
		}

		encoded, usedHint, err := resized.Encode(tex.FormatHint)
		if err != nil {
			return 0, err
		}

		tex.Bytes = encoded
		tex.FormatHint = usedHint
		tex.Width = newW
		tex.Height = newH
		tex.ARGB = nil
		if tex.Filename == "" {
			tex.Filename = texFilename(i, usedHint)
		}
	}
	return len(scene.EmbeddedTextures), nil
}

func texFilename(index int, hint string) string {
	return "texture_" + strconv.Itoa(index) + "." + hint
}

// processExternal is Pass B: walk every material slot in the canonical
// type/slot order, resolve non-embedded paths against the dedup map, and
// rewrite the slot's path to the output leaf filename.
func processExternal(scene *scenemodel.Scene, ratio float64, opts Options) (inputCount, outputCount int, err error) {
	if opts.OutputDir == "" {
		// Per spec §4.2 Pass B: "If output_dir is empty, skip Pass B entirely."
		return 0, 0, nil
	}

	dedup := map[string]string{}             // normalized key -> output filename
	seen := map[string]bool{}                // normalized key -> counted as input already
	basenameClaimedBy := map[string]string{} // basename -> first claiming key, this invocation only

	for mi := range scene.Materials {
		mat := &scene.Materials[mi]
		for _, t := range texturetype.CanonicalOrder {
			slots := mat.Slots[t]
			for si := range slots {
				slot := &slots[si]
				if _, ok := scene.LookupEmbedded(slot.PathOrStar); ok {
					continue
				}
				key := normalizeKey(slot.PathOrStar)
				if !seen[key] {
					seen[key] = true
					inputCount++
				}
				outName, ok := dedup[key]
				if !ok {
					outName, err = writeExternalTexture(slot.PathOrStar, ratio, opts, basenameClaimedBy)
					if err != nil {
						return 0, 0, err
					}
					dedup[key] = outName
					outputCount++
				}
				slot.PathOrStar = outName
			}
			mat.Slots[t] = slots
		}
	}

	return inputCount, outputCount, nil
}

// normalizeKey applies the Open Question resolution documented in
// SPEC_FULL.md §6: dedup keys are forward-slash, lower-cased forms of
// the full model-relative path, not the bare basename.
func normalizeKey(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// outputNameFor disambiguates two distinct source paths that share a
// basename (SPEC_FULL.md §6, first Open Question): the first path seen
// for a given basename keeps the plain basename; any later path with a
// colliding basename gets an 8-hex-digit suffix derived from its full
// normalized key. claimed is scoped to a single Process invocation.
func outputNameFor(key, basename string, claimed map[string]string) string {
	claimant, ok := claimed[basename]
	if !ok {
		claimed[basename] = key
		return basename
	}
	if claimant == key {
		return basename
	}
	ext := filepath.Ext(basename)
	stem := strings.TrimSuffix(basename, ext)
	return stem + "_" + shortHash(key) + ext
}

func shortHash(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	const hex = "0123456789abcdef"
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = hex[h&0xf]
		h >>= 4
	}
	return string(out)
}

func writeExternalTexture(key string, ratio float64, opts Options, claimed map[string]string) (string, error) {
	srcPath := filepath.Join(opts.ModelDir, key)
	buf, err := pixelbuffer.Load(srcPath)
	if err != nil {
		return "", err
	}

	if opts.Resize {
		newW, newH := pixelbuffer.ScaledDimensions(buf.W, buf.H, ratio)
		buf, err = buf.Resize(newW, newH)
		if err != nil {
			return "", err
		}
	}

	hint := strings.TrimPrefix(filepath.Ext(key), ".")
	encoded, usedHint, err := buf.Encode(hint)
	if err != nil {
		return "", err
	}

	basename := filepath.Base(key)
	basename = strings.TrimSuffix(basename, filepath.Ext(basename)) + "." + usedHint
	outName := outputNameFor(normalizeKey(key), basename, claimed)

	if err := os.WriteFile(filepath.Join(opts.OutputDir, outName), encoded, 0o644); err != nil {
		return "", lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, "write "+outName, err)
	}
	return outName, nil
}
