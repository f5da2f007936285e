// Package sprite draws procedural fish and normalizes uploaded images into
// sprites the scene composer can place.
package sprite

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// Origin records where a sprite's pixels came from.
type Origin uint8

const (
	OriginGenerated Origin = iota
	OriginUploaded
)

func (o Origin) String() string {
	switch o {
	case OriginGenerated:
		return "generated"
	case OriginUploaded:
		return "uploaded"
	default:
		return "unknown"
	}
}

// Band is one horizontal stripe, in canvas pixels.
type Band struct {
	Y      int // centre line
	Height int
}

// Layout describes the body geometry a seed produced.
// Only generated sprites carry a layout.
type Layout struct {
	BodyWidth  int
	BodyHeight int
	Stripes    []Band
	Tail       [3]image.Point // apex, upper base, lower base
	Eye        image.Point
}

// Sprite is one fish image with transparency.
type Sprite struct {
	Image  *image.RGBA
	Origin Origin
	Seed   int64  // generated sprites
	Name   string // uploaded sprites
	Layout Layout
}

// Key identifies the sprite within a scene.
func (s *Sprite) Key() string {
	if s.Origin == OriginUploaded {
		return "upload:" + s.Name
	}
	return fmt.Sprintf("seed:%d", s.Seed)
}

// Width returns the image width in pixels.
func (s *Sprite) Width() int { return s.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (s *Sprite) Height() int { return s.Image.Bounds().Dy() }

// PNG encodes the sprite.
func (s *Sprite) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image); err != nil {
		return nil, fmt.Errorf("encoding sprite %s: %w", s.Key(), err)
	}
	return buf.Bytes(), nil
}

// DataURI returns the sprite as an inline data:image/png;base64 URI.
func (s *Sprite) DataURI() (string, error) {
	data, err := s.PNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
