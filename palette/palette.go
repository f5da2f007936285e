// Package palette holds the five-colour palettes the aquarium is painted with.
package palette

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Size is the number of colours in every palette.
const Size = 5

// Palette slot indices.
const (
	BackgroundDark = iota // page backdrop
	BackgroundMid1        // top gradient stop
	BackgroundMid2        // bottom gradient stop
	Body                  // fish body and tail
	Accent                // stripes
)

var (
	// ErrPaletteSize is returned when a palette does not have exactly Size colours.
	ErrPaletteSize = errors.New("palette: need exactly 5 colours")
	// ErrLowContrast is returned when a fish colour is too close to a background colour.
	ErrLowContrast = errors.New("palette: fish colour too close to background")
)

// Palette holds five RGBA colours, ordered by the slot constants above.
type Palette [Size]color.RGBA

// Parse builds a palette from hex strings such as "#0f172a".
func Parse(hexes []string) (Palette, error) {
	var p Palette
	if len(hexes) != Size {
		return p, fmt.Errorf("%w: got %d", ErrPaletteSize, len(hexes))
	}
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return p, fmt.Errorf("palette: colour %d %q: %w", i, h, err)
		}
		r, g, b := c.RGB255()
		p[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(hexes ...string) Palette {
	p, err := Parse(hexes)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks that the body and accent colours stand out against every
// background slot. minDistance is a CIEDE2000 distance (0 = identical, ~1 = black/white).
func (p Palette) Validate(minDistance float64) error {
	for _, fg := range []int{Body, Accent} {
		for bg := BackgroundDark; bg <= BackgroundMid2; bg++ {
			d := p.colorful(fg).DistanceCIEDE2000(p.colorful(bg))
			if d < minDistance {
				return fmt.Errorf("%w: slot %d vs slot %d distance %.3f < %.3f",
					ErrLowContrast, fg, bg, d, minDistance)
			}
		}
	}
	return nil
}

// Hex returns the colour in slot i as "#rrggbb".
func (p Palette) Hex(i int) string {
	return p.colorful(i).Hex()
}

// WithAlpha returns slot i as a non-premultiplied colour with the given alpha.
func (p Palette) WithAlpha(i int, alpha uint8) color.NRGBA {
	c := p[i]
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

func (p Palette) colorful(i int) colorful.Color {
	c, _ := colorful.MakeColor(p[i])
	return c
}

// Clamp8 clamps v to the uint8 range.
func Clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
