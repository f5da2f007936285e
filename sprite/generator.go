package sprite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/rng"
)

var (
	eyeWhite = color.NRGBA{R: 255, G: 255, B: 255}
	pupil    = color.NRGBA{R: 30, G: 40, B: 60}
)

// Generator draws fish sprites and normalizes uploads to the same canonical size.
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	cfg config.SpriteConfig
}

// NewGenerator creates a generator from the sprite section of cfg.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg.Sprite}
}

// Size returns the canonical sprite dimension.
func (g *Generator) Size() int {
	return g.cfg.Size
}

// Generate draws one fish. The same seed and palette always produce the same
// pixels: the seed drives a random stream private to this call.
func (g *Generator) Generate(seed int64, pal palette.Palette) (*Sprite, error) {
	c := g.cfg
	r := rng.New(seed, rng.StreamSprite)

	cv, err := newCanvas(c.Size)
	if err != nil {
		return nil, fmt.Errorf("sprite canvas: %w", err)
	}

	size := float64(c.Size)
	cx, cy := c.Size/2, c.Size/2
	bw := int(size * rng.InRange(r, c.BodyWidth))
	bh := int(size * rng.InRange(r, c.BodyHeight))

	layout := Layout{BodyWidth: bw, BodyHeight: bh}

	// Layered body: each layer insets and fades, faking a soft gradient edge
	layers := c.Layers
	if layers < 1 {
		layers = 1
	}
	for i := 0; i < layers; i++ {
		alpha := palette.Clamp8(int(float64(c.BodyAlpha) * (1 - float64(i)/float64(layers))))
		cv.ellipse(
			float64(cx-bw/2+i), float64(cy-bh/2+i/2),
			float64(cx+bw/2-i), float64(cy+bh/2-i/2),
			pal.WithAlpha(palette.Body, alpha),
		)
	}

	// Stripes
	stripes := rng.IntRange(r, int(c.StripeCount.Min), int(c.StripeCount.Max))
	stripeCol := pal.WithAlpha(palette.Accent, palette.Clamp8(c.StripeAlpha))
	for i := 0; i < stripes; i++ {
		y := cy + int((float64(i)-1.5)*float64(bh)/4)
		h := rng.IntRange(r, int(c.StripeHeight.Min), int(c.StripeHeight.Max))
		layout.Stripes = append(layout.Stripes, Band{Y: y, Height: h})
		cv.roundedRect(
			float64(cx-bw/2+c.StripeInset), float64(y-h/2),
			float64(cx+bw/2-c.StripeInset), float64(y+h/2),
			float64(h/2), stripeCol,
		)
	}

	// Tail fin behind the body
	layout.Tail = [3]image.Point{
		{X: cx - bw/2 - c.TailGap, Y: cy},
		{X: cx - bw/2 - c.TailLength, Y: cy - bh/2},
		{X: cx - bw/2 - c.TailLength, Y: cy + bh/2},
	}
	cv.polygon(layout.Tail[:], pal.WithAlpha(palette.Body, palette.Clamp8(c.TailAlpha)))

	// Eye toward the forward (right) side
	layout.Eye = image.Point{X: cx + bw/4, Y: cy - bh/6}
	eyeAlpha := palette.Clamp8(c.EyeAlpha)
	white := eyeWhite
	white.A = eyeAlpha
	dark := pupil
	dark.A = eyeAlpha
	cv.circle(float64(layout.Eye.X), float64(layout.Eye.Y), float64(c.EyeRadius), white)
	cv.circle(float64(layout.Eye.X), float64(layout.Eye.Y), float64(c.PupilRadius), dark)

	blur(cv.img, c.BlurSigma)

	return &Sprite{
		Image:  cv.img,
		Origin: OriginGenerated,
		Seed:   seed,
		Layout: layout,
	}, nil
}
