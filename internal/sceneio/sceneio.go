// Package sceneio is the §6.1 Scene I/O collaborator: it loads a scene
// file into the internal/scenemodel representation and persists a scene
// back out, selecting a backend by file extension. The Assimp backend
// applies triangulate + join-identical-vertices + sort-by-primitive-type
// at import time. The glTF backend reads each primitive as stored: it
// does not triangulate strips or fans (they load as Mixed) and does not
// join identical vertices. The core treats this exactly as an external library
// with a documented API (spec §1, §9 "do not re-implement the scene
// graph") — it never parses a model format itself.
package sceneio

import (
	"path/filepath"
	"strings"

	"github.com/alex2835/lodgen/internal/lodgenerr"
	"github.com/alex2835/lodgen/internal/scenemodel"
)

// Backend loads and saves scenes for one family of file extensions.
type Backend interface {
	Extensions() []string
	Load(path string) (*scenemodel.Scene, error)
	Save(scene *scenemodel.Scene, path string) error
}

var backends = []Backend{
	&gltfBackend{},
	&assimpBackend{},
}

func backendFor(ext string) (Backend, bool) {
	ext = strings.ToLower(ext)
	for _, b := range backends {
		for _, e := range b.Extensions() {
			if e == ext {
				return b, true
			}
		}
	}
	return nil, false
}

// SupportedFormats reports the union of every backend's extensions, in
// registration order (spec §6.1 "Callers discover them via a
// supported_formats() accessor").
func SupportedFormats() []string {
	var out []string
	for _, b := range backends {
		out = append(out, b.Extensions()...)
	}
	return out
}

// Load dispatches to the backend selected by path's extension.
func Load(path string) (*scenemodel.Scene, error) {
	ext := filepath.Ext(path)
	b, ok := backendFor(ext)
	if !ok {
		return nil, lodgenerr.New(lodgenerr.UnsupportedFormat, "no backend for extension "+ext)
	}
	scene, err := b.Load(path)
	if err != nil {
		return nil, err
	}
	scene.SourceExt = strings.ToLower(ext)
	return scene, nil
}

// Save dispatches to the backend selected by path's extension. Per spec
// §6.1, the saver deep-copies the scene again (exporters may mutate in
// place) and strips materials no mesh references before handing off to
// the backend.
func Save(scene *scenemodel.Scene, path string) error {
	ext := filepath.Ext(path)
	b, ok := backendFor(ext)
	if !ok {
		return lodgenerr.New(lodgenerr.UnsupportedFormat, "no backend for extension "+ext)
	}
	exportScene := stripUnreferencedMaterials(scene.Clone())
	return b.Save(exportScene, path)
}

// stripUnreferencedMaterials compacts the material table to only those
// referenced by a mesh, rewriting mesh.MaterialIndex in place (spec
// §6.1 export step).
func stripUnreferencedMaterials(scene *scenemodel.Scene) *scenemodel.Scene {
	used := make([]bool, len(scene.Materials))
	for i := range scene.Meshes {
		idx := scene.Meshes[i].MaterialIndex
		if idx >= 0 && idx < len(used) {
			used[idx] = true
		}
	}
	remap := make([]int, len(scene.Materials))
	var kept []scenemodel.Material
	for i, mat := range scene.Materials {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, mat)
	}
	scene.Materials = kept
	for i := range scene.Meshes {
		idx := scene.Meshes[i].MaterialIndex
		if idx >= 0 && idx < len(remap) && remap[idx] >= 0 {
			scene.Meshes[i].MaterialIndex = remap[idx]
		} else {
			scene.Meshes[i].MaterialIndex = 0
		}
	}
	return scene
}
