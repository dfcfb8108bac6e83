package lod

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alex2835/lodgen/internal/scenemodel"
)

func triangleScene() *scenemodel.Scene {
	return &scenemodel.Scene{
		SourceExt: ".obj",
		Meshes: []scenemodel.Mesh{{
			Name:          "tri",
			PrimitiveKind: scenemodel.Triangles,
			Positions: []scenemodel.Vec3{
				{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
			},
			Indices: []uint32{0, 1, 2},
		}},
	}
}

func TestGenerateLODsCreatesOneDirPerRatio(t *testing.T) {
	outDir := t.TempDir()
	scene := triangleScene()
	original := scene.Clone()

	results, err := GenerateLODs(scene, filepath.Join(outDir, "cube.obj"), outDir, []float64{0.8, 0.5}, Options{})
	if err != nil {
		t.Fatalf("GenerateLODs: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		wantDir := filepath.Join(outDir, fmt.Sprintf("lod%d", i+1))
		if r.Dir != wantDir {
			t.Errorf("result %d dir = %s, want %s", i, r.Dir, wantDir)
		}
		wantPath := filepath.Join(wantDir, fmt.Sprintf("cube_lod%d.obj", i+1))
		if r.Path != wantPath {
			t.Errorf("result %d path = %s, want %s", i, r.Path, wantPath)
		}
		if _, err := os.Stat(r.Path); err != nil {
			t.Errorf("result %d path %s not written: %v", i, r.Path, err)
		}
	}

	if !scene.Equal(original) {
		t.Fatal("GenerateLODs mutated the source scene")
	}
}

func TestGenerateLODsRemovesStaleLodDir(t *testing.T) {
	outDir := t.TempDir()
	scene := triangleScene()

	lod1 := filepath.Join(outDir, "lod1")
	if err := os.MkdirAll(lod1, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(lod1, "stale.txt")
	if err := os.WriteFile(stale, []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := GenerateLODs(scene, filepath.Join(outDir, "cube.obj"), outDir, []float64{0.5}, Options{}); err != nil {
		t.Fatalf("GenerateLODs: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale file to be removed, stat err = %v", err)
	}
}
