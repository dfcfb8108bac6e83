package texproc

import (
	"testing"

	"github.com/alex2835/lodgen/internal/scenemodel"
)

func TestProcessCountsEmbeddedTexture(t *testing.T) {
	scene := &scenemodel.Scene{
		EmbeddedTextures: []scenemodel.EmbeddedTexture{
			{Filename: "tex0.png", Width: 4, Height: 4, ARGB: make([]byte, 4*4*4)},
		},
	}

	stats, err := Process(scene, 0.5, Options{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if stats.InputCount != 1 || stats.OutputCount != 1 {
		t.Fatalf("stats = %+v, want {InputCount:1 OutputCount:1}", stats)
	}
}

func TestNormalizeKeyLowercasesAndUnifiesSeparators(t *testing.T) {
	got := normalizeKey(`Textures\Wood_D.PNG`)
	want := "textures/wood_d.png"
	if got != want {
		t.Fatalf("normalizeKey() = %q, want %q", got, want)
	}
}

func TestOutputNameForFirstClaimKeepsBasename(t *testing.T) {
	claimed := map[string]string{}
	got := outputNameFor("a/brick.png", "brick.png", claimed)
	if got != "brick.png" {
		t.Fatalf("first claim got %q, want brick.png", got)
	}
}

func TestOutputNameForCollisionDisambiguates(t *testing.T) {
	claimed := map[string]string{}
	first := outputNameFor("a/brick.png", "brick.png", claimed)
	second := outputNameFor("b/brick.png", "brick.png", claimed)

	if first != "brick.png" {
		t.Fatalf("first = %q, want brick.png", first)
	}
	if second == first {
		t.Fatalf("expected disambiguated name for colliding basename, got %q twice", second)
	}
	if got := outputNameFor("a/brick.png", "brick.png", claimed); got != first {
		t.Fatalf("repeat lookup of the original key changed name: got %q, want %q", got, first)
	}
}

func TestShortHashDeterministic(t *testing.T) {
	a := shortHash("a/brick.png")
	b := shortHash("a/brick.png")
	c := shortHash("b/brick.png")
	if a != b {
		t.Fatalf("shortHash not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Fatalf("shortHash collided for distinct inputs")
	}
	if len(a) != 8 {
		t.Fatalf("shortHash length = %d, want 8", len(a))
	}
}
