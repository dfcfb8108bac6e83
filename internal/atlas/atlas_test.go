package atlas

import (
	"testing"

	"github.com/alex2835/lodgen/internal/pixelbuffer"
)

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 256: 256, 257: 512}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func solidBuffer(w, h int) *pixelbuffer.Buffer {
	return &pixelbuffer.Buffer{W: w, H: h, Pix: make([]byte, w*h*4)}
}

func TestShelfPackPlacesEveryRegionInBounds(t *testing.T) {
	sources := []sourceRef{
		{buf: solidBuffer(64, 64)},
		{buf: solidBuffer(32, 32)},
		{buf: solidBuffer(64, 32)},
	}
	order := []int{0, 1, 2}

	regions, atlasW, atlasH, err := shelfPack(order, sources)
	if err != nil {
		t.Fatalf("shelfPack: %v", err)
	}
	if len(regions) != len(order) {
		t.Fatalf("got %d regions, want %d", len(regions), len(order))
	}
	for i, r := range regions {
		if r.X < 0 || r.Y < 0 || r.X+r.W > atlasW || r.Y+r.H > atlasH {
			t.Errorf("region %d %+v out of atlas bounds %dx%d", i, r, atlasW, atlasH)
		}
		if r.W != sources[order[i]].buf.W || r.H != sources[order[i]].buf.H {
			t.Errorf("region %d size %dx%d does not match source size", i, r.W, r.H)
		}
	}
}

func TestShelfPackRegionsDoNotOverlap(t *testing.T) {
	sources := []sourceRef{
		{buf: solidBuffer(16, 16)},
		{buf: solidBuffer(16, 16)},
		{buf: solidBuffer(16, 16)},
		{buf: solidBuffer(16, 16)},
	}
	order := []int{0, 1, 2, 3}

	regions, _, _, err := shelfPack(order, sources)
	if err != nil {
		t.Fatalf("shelfPack: %v", err)
	}
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if overlaps(regions[i], regions[j]) {
				t.Errorf("regions %d %+v and %d %+v overlap", i, regions[i], j, regions[j])
			}
		}
	}
}

func overlaps(a, b AtlasRegion) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

func TestBlitCopiesPixels(t *testing.T) {
	dst := solidBuffer(8, 8)
	src := solidBuffer(4, 2)
	for i := range src.Pix {
		src.Pix[i] = 0xAB
	}
	region := AtlasRegion{X: 2, Y: 1, W: 4, H: 2}
	blit(dst, region, src)

	for row := 0; row < 2; row++ {
		off := ((region.Y+row)*dst.W + region.X) * 4
		for i := 0; i < src.W*4; i++ {
			if dst.Pix[off+i] != 0xAB {
				t.Fatalf("row %d byte %d not copied", row, i)
			}
		}
	}
	if dst.Pix[0] != 0 {
		t.Fatalf("blit wrote outside its region")
	}
}

func TestSourcesForTypePreservesFirstAppearanceOrder(t *testing.T) {
	refs := []slotRef{
		{texType: 1, sourceIndex: 5},
		{texType: 0, sourceIndex: 2},
		{texType: 0, sourceIndex: 1},
		{texType: 0, sourceIndex: 2},
	}
	got := sourcesForType(refs, 0)
	want := []int{2, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
