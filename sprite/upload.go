package sprite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUndecodable is returned for uploads that are not a readable raster image.
var ErrUndecodable = errors.New("undecodable image")

// Upload is one user-supplied image file.
type Upload struct {
	Name string
	Data []byte
}

// Normalize decodes an uploaded image, converts it to RGBA and rescales it so
// its longer edge matches the canonical sprite size. No drawing is applied.
func (g *Generator) Normalize(name string, r io.Reader) (*Sprite, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, name, err)
	}

	b := src.Bounds()
	long := max(b.Dx(), b.Dy())
	if long == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrUndecodable, name)
	}

	w := max(1, b.Dx()*g.cfg.Size/long)
	h := max(1, b.Dy()*g.cfg.Size/long)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	return &Sprite{
		Image:  dst,
		Origin: OriginUploaded,
		Name:   name,
	}, nil
}

// NormalizeAll normalizes every upload, skipping (and logging) the ones that
// fail to decode. The result keeps upload order and may be empty.
func (g *Generator) NormalizeAll(uploads []Upload) []*Sprite {
	sprites := make([]*Sprite, 0, len(uploads))
	for _, u := range uploads {
		s, err := g.Normalize(u.Name, bytes.NewReader(u.Data))
		if err != nil {
			slog.Warn("skipping unreadable upload", "name", u.Name, "bytes", len(u.Data), "error", err)
			continue
		}
		sprites = append(sprites, s)
	}
	return sprites
}
