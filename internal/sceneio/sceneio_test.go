package sceneio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alex2835/lodgen/internal/scenemodel"
)

func TestSupportedFormatsIncludesBothBackends(t *testing.T) {
	formats := SupportedFormats()
	want := []string{".gltf", ".glb", ".obj", ".fbx"}
	for _, w := range want {
		found := false
		for _, f := range formats {
			if f == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("SupportedFormats() = %v, missing %s", formats, w)
		}
	}
}

func TestBackendForIsCaseInsensitive(t *testing.T) {
	b, ok := backendFor(".GLB")
	if !ok {
		t.Fatal("backendFor(.GLB) not found")
	}
	if _, ok := b.(*gltfBackend); !ok {
		t.Fatalf("backendFor(.GLB) = %T, want *gltfBackend", b)
	}
}

func TestBackendForUnknownExtension(t *testing.T) {
	if _, ok := backendFor(".xyz"); ok {
		t.Fatal("backendFor(.xyz) unexpectedly found a backend")
	}
}

func TestStripUnreferencedMaterialsCompactsAndRemaps(t *testing.T) {
	scene := &scenemodel.Scene{
		Materials: []scenemodel.Material{{Name: "used0"}, {Name: "unused"}, {Name: "used1"}},
		Meshes: []scenemodel.Mesh{
			{MaterialIndex: 0},
			{MaterialIndex: 2},
		},
	}
	out := stripUnreferencedMaterials(scene)

	if len(out.Materials) != 2 {
		t.Fatalf("got %d materials, want 2", len(out.Materials))
	}
	if out.Materials[0].Name != "used0" || out.Materials[1].Name != "used1" {
		t.Fatalf("unexpected material order: %+v", out.Materials)
	}
	if out.Meshes[0].MaterialIndex != 0 || out.Meshes[1].MaterialIndex != 1 {
		t.Fatalf("mesh material indices not remapped: %+v", out.Meshes)
	}
}

func TestAssimpBackendSaveWritesObjFaces(t *testing.T) {
	scene := &scenemodel.Scene{
		Meshes: []scenemodel.Mesh{{
			Name:          "quad",
			PrimitiveKind: scenemodel.Triangles,
			Positions: []scenemodel.Vec3{
				{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			},
			Normals: []scenemodel.Vec3{
				{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1},
			},
			UVs: [][]scenemodel.Vec3{{
				{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
			}},
			Indices: []uint32{0, 1, 2, 0, 2, 3},
		}},
	}

	path := filepath.Join(t.TempDir(), "out.obj")
	if err := (assimpBackend{}).Save(scene, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)

	if !strings.Contains(text, "v 0 0 0") {
		t.Fatalf("expected a position line for the first vertex, got:\n%s", text)
	}
	faceLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "f ") {
			faceLines++
			fields := strings.Fields(line)
			if len(fields) != 4 {
				t.Errorf("face line %q has %d fields, want 4 (f + 3 verts)", line, len(fields))
			}
			for _, f := range fields[1:] {
				if !strings.Contains(f, "/") {
					t.Errorf("face vertex %q missing uv/normal refs", f)
				}
			}
		}
	}
	if faceLines != 2 {
		t.Fatalf("got %d face lines, want 2", faceLines)
	}
}

func TestAssimpBackendSaveRejectsUnsupportedExportExtension(t *testing.T) {
	scene := &scenemodel.Scene{}
	path := filepath.Join(t.TempDir(), "out.fbx")
	err := (assimpBackend{}).Save(scene, path)
	if err == nil {
		t.Fatal("expected an error exporting .fbx, got nil")
	}
}
