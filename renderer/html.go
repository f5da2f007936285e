// Package renderer serializes a composed scene into declarative markup: an
// HTML/CSS fragment whose keyframe animations play back with no script, and
// a static SVG poster of the first frame.
package renderer

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
)

// Fixed decoration, in CSS units.
const (
	tankRadius         = 16
	bubbleStart        = 40 // px below the tank floor
	bubbleClear        = 80 // px of travel beyond the tank height
	beamTop            = -20
	beamWidth          = 20
	beamHeight         = 140
	beamBlur           = 8
	beamOpacity        = 0.35
	beamRotation       = -8
	beamGlow           = 0.15
	beamFade           = 60 // percent of the radial gradient
	bubbleAlpha        = 0.25
	bubbleStartOpacity = 0.2
)

var fragmentTmpl = template.Must(template.New("fragment").Parse(`<style>
{{.CSS}}
</style>
<div class="{{.Tank}}" data-scene="{{.ID}}" data-seed="{{.Seed}}">
{{- range .Beams}}
  <div class="beam" style="{{.}}"></div>
{{- end}}
{{- range .Fish}}
  <div class="swim" style="{{.Swim}}"><span class="bob" style="{{.Bob}}"><img src="{{.Src}}" width="{{.Width}}" height="{{.Height}}" alt="" style="{{.Look}}"></span></div>
{{- end}}
{{- range .Bubbles}}
  <span class="bubble" style="{{.}}"></span>
{{- end}}
</div>
`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{.Fragment}}
<p class="caption">{{.Caption}}</p>
</body>
</html>
`))

type fishElem struct {
	Swim   template.CSS
	Bob    template.CSS
	Look   template.CSS
	Src    template.URL
	Width  int
	Height int
}

type fragmentData struct {
	ID      string
	Seed    int64
	Tank    string
	CSS     template.CSS
	Beams   []template.CSS
	Fish    []fishElem
	Bubbles []template.CSS
}

// names holds the scene-scoped class and keyframe identifiers.
type names struct {
	tank, swimRight, swimLeft, bob, rise string
}

func scopedNames(s *scene.Scene) names {
	id := s.ShortID()
	return names{
		tank:      "aqua-" + id,
		swimRight: "swimR-" + id,
		swimLeft:  "swimL-" + id,
		bob:       "bob-" + id,
		rise:      "rise-" + id,
	}
}

// WriteFragment writes the self-contained style block and tank element.
// Class and keyframe names carry the scene's short ID so several scenes
// can share a document.
func WriteFragment(w io.Writer, s *scene.Scene) error {
	data, err := buildFragment(s)
	if err != nil {
		return err
	}
	if err := fragmentTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering fragment: %w", err)
	}
	return nil
}

// WritePage writes a complete HTML document around the fragment.
func WritePage(w io.Writer, s *scene.Scene, title string) error {
	var frag strings.Builder
	if err := WriteFragment(&frag, s); err != nil {
		return err
	}

	css := fmt.Sprintf(
		"body { margin:0; padding:24px; background:%s; color:%s; font-family:system-ui, sans-serif; }\n"+
			"h1 { font-weight:300; margin:0 0 16px; }\n"+
			".caption { opacity:.7; font-size:small; }",
		s.Palette.Hex(palette.BackgroundDark), s.Palette.Hex(palette.Body),
	)

	err := pageTmpl.Execute(w, struct {
		Title    string
		CSS      template.CSS
		Fragment template.HTML
		Caption  string
	}{
		Title:    title,
		CSS:      template.CSS(css),
		Fragment: template.HTML(frag.String()),
		Caption:  Caption(s),
	})
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

// Caption is a one-line human summary of a scene.
func Caption(s *scene.Scene) string {
	src := "generated"
	if len(s.Sprites) > 0 && s.Sprites[0].Origin == sprite.OriginUploaded {
		src = "uploaded"
	}
	switch {
	case s.UploadsRejected():
		src = "generated (no usable uploads)"
	case s.Fallback:
		src = "generated (nothing uploaded)"
	}
	return fmt.Sprintf("%d fish, %s, speed %sx, %s sprites, seed %d",
		len(s.Fish), s.Params.Palette, num(s.Params.Speed, 2), src, s.Params.Seed)
}

func buildFragment(s *scene.Scene) (fragmentData, error) {
	n := scopedNames(s)
	data := fragmentData{
		ID:   s.ID.String(),
		Seed: s.Params.Seed,
		Tank: n.tank,
		CSS:  template.CSS(stylesheet(s, n)),
	}

	for _, b := range s.Beams {
		data.Beams = append(data.Beams, template.CSS("left:"+num(b.Left, 1)+"%;"))
	}

	uris := make([]template.URL, len(s.Sprites))
	for i, sp := range s.Sprites {
		uri, err := sp.DataURI()
		if err != nil {
			return fragmentData{}, fmt.Errorf("encoding sprite %s: %w", sp.Key(), err)
		}
		uris[i] = template.URL(uri)
	}

	for _, f := range s.Fish {
		sp := s.SpriteOf(f)
		data.Fish = append(data.Fish, fishElem{
			Swim:   template.CSS(swimStyle(f, n)),
			Bob:    template.CSS(bobStyle(f, n)),
			Look:   template.CSS(lookStyle(f)),
			Src:    uris[f.Sprite],
			Width:  sp.Width(),
			Height: sp.Height(),
		})
	}

	for _, b := range s.Bubbles {
		data.Bubbles = append(data.Bubbles, template.CSS(bubbleStyle(b)))
	}

	return data, nil
}

func stylesheet(s *scene.Scene, n names) string {
	top, bottom := s.Gradient()
	amp := s.BobAmplitude
	rise := s.Params.Height + bubbleClear

	var b strings.Builder
	fmt.Fprintf(&b, ".%s { position:relative; width:100%%; height:%dpx; overflow:hidden; border-radius:%dpx; box-shadow:0 10px 40px rgba(0,0,0,.15); }\n",
		n.tank, s.Params.Height, tankRadius)
	fmt.Fprintf(&b, ".%s::before { content:\"\"; position:absolute; inset:0; background:linear-gradient(180deg, %s, %s); }\n",
		n.tank, hex(top), hex(bottom))
	fmt.Fprintf(&b, ".%s .swim { position:absolute; will-change:left; }\n", n.tank)
	fmt.Fprintf(&b, ".%s .bob { display:block; will-change:transform; }\n", n.tank)
	fmt.Fprintf(&b, ".%s .swim img { display:block; }\n", n.tank)
	fmt.Fprintf(&b, ".%s .beam { position:absolute; top:%d%%; width:%d%%; height:%d%%; background:radial-gradient(ellipse at top, rgba(255,255,255,%s), rgba(255,255,255,0) %d%%); filter:blur(%dpx); opacity:%s; transform:rotate(%ddeg); }\n",
		n.tank, beamTop, beamWidth, beamHeight, num(beamGlow, 2), beamFade, beamBlur, num(beamOpacity, 2), beamRotation)
	fmt.Fprintf(&b, ".%s .bubble { position:absolute; bottom:-%dpx; border-radius:50%%; background:rgba(255,255,255,%s); animation:%s linear infinite; }\n",
		n.tank, bubbleStart, num(bubbleAlpha, 2), n.rise)
	fmt.Fprintf(&b, "@keyframes %s { from { left:%s%%; } to { left:%s%%; } }\n",
		n.swimRight, num(scene.OffscreenLeft, 0), num(scene.OffscreenRight, 0))
	fmt.Fprintf(&b, "@keyframes %s { from { left:%s%%; } to { left:%s%%; } }\n",
		n.swimLeft, num(scene.OffscreenRight, 0), num(scene.OffscreenLeft, 0))
	fmt.Fprintf(&b, "@keyframes %s { 0%% { transform:translateY(0); } 50%% { transform:translateY(-%spx); } 100%% { transform:translateY(0); } }\n",
		n.bob, num(amp, 1))
	fmt.Fprintf(&b, "@keyframes %s { from { transform:translateY(0); opacity:%s; } to { transform:translateY(-%dpx); opacity:0; } }",
		n.rise, num(bubbleStartOpacity, 2), rise)
	return b.String()
}

func swimStyle(f scene.Fish, n names) string {
	from, _ := f.Travel()
	anim := n.swimLeft
	if f.Direction == scene.Right {
		anim = n.swimRight
	}
	return fmt.Sprintf("top:%s%%; left:%s%%; opacity:%s; animation:%s %ss linear infinite; animation-delay:%ss;",
		num(f.Top, 2), num(from, 0), num(f.Opacity(), 2), anim, num(f.SwimSeconds, 2), num(f.SwimDelay, 2))
}

func bobStyle(f scene.Fish, n names) string {
	return fmt.Sprintf("animation:%s %ss ease-in-out infinite; animation-delay:%ss;",
		n.bob, num(f.BobSeconds, 2), num(f.BobDelay, 2))
}

// lookStyle sizes the image by depth and mirrors left movers; sprites face right.
func lookStyle(f scene.Fish) string {
	t := "transform:scale(" + num(f.EffectiveScale(), 3) + ")"
	if f.Direction == scene.Left {
		t += " scaleX(-1)"
	}
	return t + ";"
}

func bubbleStyle(b scene.Bubble) string {
	size := num(b.Size, 0)
	return fmt.Sprintf("left:%s%%; width:%spx; height:%spx; animation-duration:%ss; animation-delay:%ss;",
		num(b.Left, 1), size, size, num(b.Seconds, 2), num(b.Delay, 2))
}
