package sprite

import (
	"image"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// blur softens img in place with a Gaussian of the given sigma. imaging
// weights colour by alpha, so transparent edges fade without dark fringes.
// sigma <= 0 is a no-op.
func blur(img *image.RGBA, sigma float64) {
	if sigma <= 0 || img.Bounds().Empty() {
		return
	}
	soft := imaging.Blur(img, sigma)
	xdraw.Draw(img, img.Bounds(), soft, soft.Bounds().Min, xdraw.Src)
}
