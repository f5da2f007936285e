// Package scene composes randomized fish placements and ambient decoration
// into a declarative aquarium scene.
package scene

import (
	"image/color"

	"github.com/google/uuid"

	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/sprite"
)

// Scene is the complete output of one composition pass. It carries no
// behaviour; a renderer turns it into markup that animates on its own.
type Scene struct {
	ID          uuid.UUID
	Params      Params // after clamping, with the seed resolved
	Palette     palette.Palette
	Adjustments []Adjustment
	Fallback    bool // upload mode had no usable images
	Uploads     int  // images supplied in upload mode, usable or not

	// BobAmplitude is the vertical bob travel in pixels.
	BobAmplitude float64

	Sprites []*sprite.Sprite
	Fish    []Fish
	Beams   []Beam
	Bubbles []Bubble
}

// Gradient returns the top and bottom background stops.
func (s *Scene) Gradient() (top, bottom color.RGBA) {
	return s.Palette[palette.BackgroundMid1], s.Palette[palette.BackgroundMid2]
}

// SpriteOf returns the sprite assigned to f.
func (s *Scene) SpriteOf(f Fish) *sprite.Sprite {
	return s.Sprites[f.Sprite]
}

// UploadsRejected reports whether images were supplied but none could be used.
func (s *Scene) UploadsRejected() bool {
	return s.Fallback && s.Uploads > 0
}

// ShortID is a compact identifier used to scope CSS names.
func (s *Scene) ShortID() string {
	return s.ID.String()[:8]
}
