package sprite

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestBlurSoftensEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 9))
	img.SetRGBA(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	blur(img, 0.6)

	centre := img.RGBAAt(4, 4).A
	neighbour := img.RGBAAt(5, 4).A
	if centre == 255 {
		t.Error("centre should lose some alpha to its neighbours")
	}
	if neighbour == 0 {
		t.Error("neighbour should gain alpha")
	}
	if img.RGBAAt(0, 0).A != 0 {
		t.Error("far corner should stay transparent")
	}

	// Premultiplied invariant
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if img.Pix[i] > a || img.Pix[i+1] > a || img.Pix[i+2] > a {
			t.Fatalf("pixel %d has colour above alpha", i/4)
		}
	}
}

func TestBlurMatchesImaging(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := 3; y < 9; y++ {
		for x := 4; x < 12; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 180, G: 90, B: 40, A: 255})
		}
	}
	want := imaging.Blur(img, 0.6)

	blur(img, 0.6)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			w := want.NRGBAAt(x, y)
			if got.A != w.A {
				t.Fatalf("(%d,%d): alpha %d, want %d", x, y, got.A, w.A)
			}
			// Premultiplied storage rounds the colour of faint pixels
			if w.A > 64 && (absDiff(got.R, w.R) > 8 || absDiff(got.G, w.G) > 8 || absDiff(got.B, w.B) > 8) {
				t.Fatalf("(%d,%d): colour %v, want %v", x, y, got, w)
			}
		}
	}
}

func TestBlurNoDarkFringe(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	blur(img, 0.6)

	// Half-covered edge pixel keeps the body colour, only its alpha drops
	edge := color.NRGBAModel.Convert(img.At(3, 5)).(color.NRGBA)
	if edge.A == 0 || edge.A == 255 {
		t.Fatalf("edge alpha = %d, want partial coverage", edge.A)
	}
	if edge.R < 190 {
		t.Errorf("edge colour darkened to %d", edge.R)
	}
}

func TestBlurZeroSigmaNoop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	blur(img, 0)
	if img.RGBAAt(1, 1) != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Error("sigma 0 should leave the image untouched")
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
