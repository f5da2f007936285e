package server

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/renderer"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Dreaming Aquarium</title>
<style>{{.CSS}}</style>
</head>
<body>
<h1>Dreaming Aquarium</h1>
<form method="post" action="/" enctype="multipart/form-data">
  <label>Palette
    <select name="palette">
    {{- range .Palettes}}
      <option{{if eq . $.Params.Palette}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label>
  <label>Fish <input type="number" name="fish" min="{{.Tank.FishCount.Min}}" max="{{.Tank.FishCount.Max}}" value="{{.Params.FishCount}}"></label>
  <label>Speed <input type="number" name="speed" step="0.1" min="{{.Tank.Speed.Min}}" max="{{.Tank.Speed.Max}}" value="{{.Params.Speed}}"></label>
  <label>Height <input type="number" name="height" step="10" min="{{.Tank.Height.Min}}" max="{{.Tank.Height.Max}}" value="{{.Params.Height}}"></label>
  <label>Seed <input type="number" name="seed" min="0" value="{{.Params.Seed}}"></label>
  <label><input type="checkbox" name="mode" value="upload"{{if .Upload}} checked{{end}}> Use my images</label>
  <input type="file" name="images" accept="image/png,image/jpeg,image/gif,image/webp" multiple>
  <button type="submit">Refill tank</button>
</form>
{{- if .Notice}}
<p class="notice">{{.Notice}}</p>
{{- end}}
{{.Scene}}
<p class="caption">{{.Caption}}</p>
</body>
</html>
`))

// writeIndex renders the parameter form followed by the scene.
func (s *Server) writeIndex(w io.Writer, sc *scene.Scene) error {
	var frag strings.Builder
	if err := renderer.WriteFragment(&frag, sc); err != nil {
		return err
	}

	var notice string
	switch {
	case sc.UploadsRejected():
		notice = "None of the images could be read, so these fish were drawn for you."
	case len(sc.Adjustments) > 0:
		fields := make([]string, len(sc.Adjustments))
		for i, a := range sc.Adjustments {
			fields[i] = fmt.Sprintf("%s %g → %g", a.Field, a.From, a.To)
		}
		notice = "Adjusted to fit the tank: " + strings.Join(fields, ", ")
	}

	css := fmt.Sprintf(
		"body { margin:0; padding:24px; background:%s; color:%s; font-family:system-ui, sans-serif; }\n"+
			"form { display:flex; flex-wrap:wrap; gap:12px; align-items:end; margin-bottom:16px; }\n"+
			"label { display:flex; flex-direction:column; font-size:small; }\n"+
			".notice, .caption { opacity:.7; font-size:small; }",
		sc.Palette.Hex(palette.BackgroundDark), sc.Palette.Hex(palette.Body),
	)

	return indexTmpl.Execute(w, struct {
		CSS      template.CSS
		Palettes []string
		Params   scene.Params
		Tank     config.TankConfig
		Upload   bool
		Notice   string
		Scene    template.HTML
		Caption  string
	}{
		CSS:      template.CSS(css),
		Palettes: s.cfg.Derived.PaletteNames,
		Params:   sc.Params,
		Tank:     s.cfg.Tank,
		Upload:   len(sc.Sprites) > 0 && sc.Sprites[0].Origin == sprite.OriginUploaded,
		Notice:   notice,
		Scene:    template.HTML(frag.String()),
		Caption:  renderer.Caption(sc),
	})
}
