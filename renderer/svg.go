package renderer

import (
	"errors"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/pthm-cable/aquarium/scene"
)

// ErrPosterWidth is returned for a non-positive poster width.
var ErrPosterWidth = errors.New("poster width must be positive")

// WritePoster writes a static SVG of the scene as it looks the moment the
// page loads: every fish and bubble sits where its negative delay puts it.
func WritePoster(w io.Writer, s *scene.Scene, width int) error {
	if width <= 0 {
		return fmt.Errorf("%w: %d", ErrPosterWidth, width)
	}
	height := s.Params.Height
	n := scopedNames(s)
	top, bottom := s.Gradient()

	uris := make([]string, len(s.Sprites))
	for i, sp := range s.Sprites {
		uri, err := sp.DataURI()
		if err != nil {
			return fmt.Errorf("encoding sprite %s: %w", sp.Key(), err)
		}
		uris[i] = uri
	}

	gradID := n.tank + "-water"
	beamID := n.tank + "-beam"
	blurID := n.tank + "-blur"
	clipID := n.tank + "-clip"

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(Caption(s))

	canvas.Def()
	canvas.LinearGradient(gradID, 0, 0, 0, 100, []svg.Offcolor{
		{Offset: 0, Color: hex(top), Opacity: 1},
		{Offset: 100, Color: hex(bottom), Opacity: 1},
	})
	canvas.RadialGradient(beamID, 50, 0, beamFade, 50, 0, []svg.Offcolor{
		{Offset: 0, Color: "#ffffff", Opacity: beamGlow},
		{Offset: 100, Color: "#ffffff", Opacity: 0},
	})
	canvas.Filter(blurID)
	canvas.FeGaussianBlur(svg.Filterspec{In: "SourceGraphic"}, beamBlur, beamBlur)
	canvas.Fend()
	canvas.ClipPath(`id="` + clipID + `"`)
	canvas.Roundrect(0, 0, width, height, tankRadius, tankRadius)
	canvas.ClipEnd()
	canvas.DefEnd()

	canvas.Gstyle("clip-path:url(#" + clipID + ")")
	canvas.Rect(0, 0, width, height, "fill:url(#"+gradID+")")

	posterBeams(canvas, s, width, height, beamID, blurID)
	posterFish(canvas, s, uris, width, height)
	posterBubbles(canvas, s, width, height)

	canvas.Gend()
	canvas.End()
	return nil
}

func posterBeams(canvas *svg.SVG, s *scene.Scene, width, height int, fill, filter string) {
	bw := width * beamWidth / 100
	bh := height * beamHeight / 100
	y := height * beamTop / 100
	for _, b := range s.Beams {
		x := pct(b.Left, width)
		canvas.Gtransform(fmt.Sprintf("rotate(%d %d %d)", beamRotation, x+bw/2, y+bh/2))
		canvas.Rect(x, y, bw, bh,
			fmt.Sprintf("fill:url(#%s);filter:url(#%s);opacity:%s", fill, filter, num(beamOpacity, 2)))
		canvas.Gend()
	}
}

func posterFish(canvas *svg.SVG, s *scene.Scene, uris []string, width, height int) {
	amp := s.BobAmplitude
	for _, f := range s.Fish {
		sp := s.SpriteOf(f)
		k := f.EffectiveScale()
		w := int(math.Round(float64(sp.Width()) * k))
		h := int(math.Round(float64(sp.Height()) * k))

		// CSS scales about the element centre; the element box is the unscaled sprite.
		cx := pct(f.LeftAt(0), width) + sp.Width()/2
		cy := pct(f.Top, height) + sp.Height()/2 + int(math.Round(BobOffset(f, 0, amp)))

		style := "opacity:" + num(f.Opacity(), 2)
		if f.Direction == scene.Left {
			canvas.Gtransform(fmt.Sprintf("translate(%d %d) scale(-1 1)", cx, cy))
		} else {
			canvas.Gtransform(fmt.Sprintf("translate(%d %d)", cx, cy))
		}
		canvas.Image(-w/2, -h/2, w, h, uris[f.Sprite], style)
		canvas.Gend()
	}
}

func posterBubbles(canvas *svg.SVG, s *scene.Scene, width, height int) {
	travel := float64(height + bubbleClear)
	for _, b := range s.Bubbles {
		p := b.RiseAt(0)
		r := int(math.Round(b.Size / 2))
		x := pct(b.Left, width) + r
		y := height + bubbleStart - r - int(math.Round(travel*p))
		opacity := bubbleStartOpacity * (1 - p)
		canvas.Circle(x, y, r,
			fmt.Sprintf("fill:#ffffff;fill-opacity:%s;opacity:%s", num(bubbleAlpha, 2), num(opacity, 3)))
	}
}

// BobOffset approximates the eased bob keyframes: 0 at rest, -amp at the
// midpoint, in pixels.
func BobOffset(f scene.Fish, t, amp float64) float64 {
	period := f.BobSeconds
	if period <= 0 {
		return 0
	}
	p := math.Mod(t-f.BobDelay, period) / period
	if p < 0 {
		p++
	}
	return -amp * math.Sin(math.Pi*p)
}

func pct(v float64, of int) int {
	return int(math.Round(v * float64(of) / 100))
}
