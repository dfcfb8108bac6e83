// Package pixelbuffer implements spec §2's PixelBuffer ops: RGBA8 decode
// from bytes, linear resize, PNG/JPEG encode, and disk load/save. The image
// codecs themselves are treated as an external black box per spec §1 — this
// package is a thin, teacher-style wrapper (stdlib image/png, image/jpeg,
// plus golang.org/x/image/draw for resize, grounded on gioui-gio's
// cmd/gogio/main.go use of draw.CatmullRom.Scale) around them.
package pixelbuffer

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/alex2835/lodgen/internal/lodgenerr"
)

// Buffer is the ephemeral DecodedTexture of spec §3: an RGBA8 pixel
// rectangle plus the format hint it was decoded from.
type Buffer struct {
	W, H       int
	Pix        []byte // len == W*H*4, RGBA8
	FormatHint string
}

// Decode turns an encoded image (PNG, JPEG, BMP, TIFF, ...) into RGBA8.
func Decode(data []byte, formatHint string) (*Buffer, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, lodgenerr.Wrap(lodgenerr.TextureDecodeFailed, "decode image", err)
	}
	rgba := toRGBA(img)
	hint := formatHint
	if hint == "" {
		hint = format
	}
	return &Buffer{W: rgba.Bounds().Dx(), H: rgba.Bounds().Dy(), Pix: rgba.Pix, FormatHint: hint}, nil
}

// DecodeARGB transcodes an uncompressed ARGB8888 pixel rectangle (spec §3
// EmbeddedTexture form b) into RGBA8 channel order.
func DecodeARGB(w, h int, argb []byte) *Buffer {
	pix := make([]byte, len(argb))
	for i := 0; i+3 < len(argb); i += 4 {
		a, r, g, b := argb[i], argb[i+1], argb[i+2], argb[i+3]
		pix[i+0] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = a
	}
	return &Buffer{W: w, H: h, Pix: pix}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// ScaledDimensions computes spec §4.2's new-dimension formula:
// (max(1, floor(w*ratio)), max(1, floor(h*ratio))).
func ScaledDimensions(w, h int, ratio float64) (int, int) {
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Resize performs the linear resize step of §4.1/§4.2 using
// golang.org/x/image/draw's BiLinear scaler (the same Scale call shape as
// gioui-gio's cmd/gogio use of draw.CatmullRom.Scale).
func (b *Buffer) Resize(newW, newH int) (*Buffer, error) {
	if newW <= 0 || newH <= 0 {
		return nil, lodgenerr.New(lodgenerr.TextureResizeFailed, fmt.Sprintf("invalid target size %dx%d", newW, newH))
	}
	src := &image.RGBA{Pix: b.Pix, Stride: b.W * 4, Rect: image.Rect(0, 0, b.W, b.H)}
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return &Buffer{W: newW, H: newH, Pix: dst.Pix, FormatHint: b.FormatHint}, nil
}

// Encode re-encodes the buffer using the encoder selected by hint: "jpg"
// and "jpeg" produce JPEG at quality 85 (spec §4.2 step 4); any other hint,
// including empty, produces PNG. It returns the bytes and the hint of the
// encoder actually used.
func (b *Buffer) Encode(hint string) ([]byte, string, error) {
	img := &image.RGBA{Pix: b.Pix, Stride: b.W * 4, Rect: image.Rect(0, 0, b.W, b.H)}
	var buf bytes.Buffer
	switch hint {
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, "", lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, "encode jpeg", err)
		}
		return buf.Bytes(), "jpg", nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, "encode png", err)
		}
		return buf.Bytes(), "png", nil
	}
}

// Load reads and decodes an image file from disk.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lodgenerr.Wrap(lodgenerr.FileNotFound, path, err)
		}
		return nil, lodgenerr.Wrap(lodgenerr.TextureLoadFailed, "read "+path, err)
	}
	return Decode(data, "")
}

// Save encodes and writes the buffer to disk using hint as the encoder
// selector (see Encode).
func Save(path string, b *Buffer, hint string) error {
	data, _, err := b.Encode(hint)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return lodgenerr.Wrap(lodgenerr.TextureEncodeFailed, "write "+path, err)
	}
	return nil
}
