// Tank preview tool - desktop parameter form with a live scene preview.
//
// The preview plays the same keyframe timings the exported HTML uses.
//
// Usage: go run ./cmd/tankpreview [-config path] [-out dir]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/ncruces/zenity"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/renderer"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
	"github.com/pthm-cable/aquarium/telemetry"
)

const (
	windowWidth  = 1200
	windowHeight = 760
	tankX        = 10
	tankY        = 10
	tankWidth    = 760
	tankMaxH     = 600
	panelX       = tankX + tankWidth + 20
	panelWidth   = windowWidth - panelX - 10
	thumbSize    = 48
)

type preview struct {
	cfg      *config.Config
	composer *scene.Composer
	perf     *telemetry.PerfCollector
	outDir   string

	params  scene.Params
	uploads []sprite.Upload
	scene   *scene.Scene
	sprites []rl.Texture2D
	start   float64 // rl.GetTime() when the scene was built
	status  string
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outDir := flag.String("out", "", "Default export directory (empty = ask)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	rl.InitWindow(windowWidth, windowHeight, "Tank Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	p := &preview{
		cfg:      cfg,
		composer: scene.NewComposer(cfg, sprite.NewGenerator(cfg)),
		perf:     telemetry.NewPerfCollector(16),
		outDir:   *outDir,
		params:   scene.DefaultParams(cfg),
	}
	p.params.Seed = int64(rl.GetRandomValue(1, 99999))
	p.rebuild()
	defer p.unloadSprites()

	for !rl.WindowShouldClose() {
		p.perf.RecordFrame()

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		p.drawTank(rl.GetTime() - p.start)
		if p.drawPanel() {
			p.rebuild()
		}

		rl.EndDrawing()
	}

	p.perf.Stats().LogStats()
}

// rebuild composes a new scene from the current parameters and uploads.
func (p *preview) rebuild() {
	src := scene.Generated()
	if len(p.uploads) > 0 {
		src = scene.Uploaded(p.uploads...)
	}

	timer := p.perf.StartBuild()
	s, err := p.composer.ComposeTimed(p.params, src, timer)
	timer.End()
	if err != nil {
		p.status = err.Error()
		slog.Error("scene build failed", "error", err)
		return
	}

	p.unloadSprites()
	for _, sp := range s.Sprites {
		img := rl.NewImageFromImage(sp.Image)
		p.sprites = append(p.sprites, rl.LoadTextureFromImage(img))
		rl.UnloadImage(img)
	}

	p.scene = s
	p.params = s.Params
	p.start = rl.GetTime()
	p.status = renderer.Caption(s)
	if s.UploadsRejected() {
		p.status = "no usable images, drawing fish instead"
	}
}

func (p *preview) unloadSprites() {
	for _, tex := range p.sprites {
		rl.UnloadTexture(tex)
	}
	p.sprites = p.sprites[:0]
}

// drawTank draws the scene t seconds after it was built.
func (p *preview) drawTank(t float64) {
	s := p.scene
	if s == nil {
		return
	}

	k := math.Min(1, float64(tankMaxH)/float64(s.Params.Height))
	w := float64(tankWidth)
	h := float64(s.Params.Height) * k
	top, bottom := s.Gradient()

	rl.BeginScissorMode(tankX, tankY, tankWidth, int32(h))
	rl.DrawRectangleGradientV(tankX, tankY, tankWidth, int32(h), top, bottom)

	beam := rl.Fade(rl.White, 0.15*0.35)
	for _, b := range s.Beams {
		rec := rl.Rectangle{
			X:      float32(tankX + b.Left*w/100 + 0.1*w),
			Y:      float32(tankY + 0.5*h),
			Width:  float32(0.2 * w),
			Height: float32(1.4 * h),
		}
		rl.DrawRectanglePro(rec, rl.Vector2{X: rec.Width / 2, Y: rec.Height / 2}, -8, beam)
	}

	amp := p.cfg.Ambient.BobAmplitude * k
	for _, f := range s.Fish {
		tex := p.sprites[f.Sprite]
		sw, sh := float64(tex.Width), float64(tex.Height)
		scale := f.EffectiveScale() * k

		cx := tankX + f.LeftAt(t)*w/100 + sw*k/2
		cy := tankY + f.Top*h/100 + sh*k/2 + renderer.BobOffset(f, t, amp)

		src := rl.Rectangle{Width: float32(sw), Height: float32(sh)}
		if f.Direction == scene.Left {
			src.Width = -src.Width
		}
		dst := rl.Rectangle{
			X:      float32(cx),
			Y:      float32(cy),
			Width:  float32(sw * scale),
			Height: float32(sh * scale),
		}
		origin := rl.Vector2{X: dst.Width / 2, Y: dst.Height / 2}
		rl.DrawTexturePro(tex, src, dst, origin, 0, rl.Fade(rl.White, float32(f.Opacity())))
	}

	travel := h + 80*k
	for _, b := range s.Bubbles {
		q := b.RiseAt(t)
		r := b.Size * k / 2
		x := tankX + b.Left*w/100 + r
		y := tankY + h + 40*k - r - travel*q
		rl.DrawCircle(int32(x), int32(y), float32(r), rl.Fade(rl.White, float32(0.25*0.2*(1-q))))
	}

	rl.EndScissorMode()
	rl.DrawRectangleLines(tankX, tankY, tankWidth, int32(h), rl.DarkGray)

	// Sprite strip
	stripY := int32(tankY + h + 12)
	for i, tex := range p.sprites {
		x := int32(tankX + i*(thumbSize+6))
		if x+thumbSize > tankX+tankWidth {
			break
		}
		rl.DrawRectangle(x, stripY, thumbSize, thumbSize, s.Palette[palette.BackgroundDark])
		n := float32(math.Max(float64(tex.Width), float64(tex.Height)))
		rl.DrawTexturePro(tex,
			rl.Rectangle{Width: float32(tex.Width), Height: float32(tex.Height)},
			rl.Rectangle{X: float32(x), Y: float32(stripY), Width: float32(tex.Width) * thumbSize / n, Height: float32(tex.Height) * thumbSize / n},
			rl.Vector2{}, 0, rl.White)
	}

	stats := p.perf.Stats()
	rl.DrawText(p.status, tankX, stripY+thumbSize+10, 16, rl.DarkGray)
	rl.DrawText(fmt.Sprintf("FPS: %.0f  Last build: %d ms", stats.FPS, stats.MaxBuildDuration.Milliseconds()),
		tankX, stripY+thumbSize+30, 14, rl.Gray)
}

// drawPanel draws the parameter controls and reports whether the scene
// must be rebuilt.
func (p *preview) drawPanel() bool {
	tank := p.cfg.Tank
	changed := false
	x := float32(panelX)
	y := float32(10)

	rl.DrawText("Tank Parameters", int32(x), int32(y), 20, rl.DarkGray)
	y += 35

	slider := func(label, value string, cur, lo, hi float32) float32 {
		rl.DrawText(label, int32(x), int32(y), 14, rl.Gray)
		y += 18
		v := gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: float32(panelWidth - 80), Height: 20},
			"", "",
			cur, lo, hi,
		)
		rl.DrawText(value, int32(x+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
		y += 35
		return v
	}

	fish := slider("Fish", fmt.Sprintf("%d", p.params.FishCount),
		float32(p.params.FishCount), float32(tank.FishCount.Min), float32(tank.FishCount.Max))
	if int(fish) != p.params.FishCount {
		p.params.FishCount = int(fish)
		changed = true
	}

	speed := slider("Speed", fmt.Sprintf("%.2fx", p.params.Speed),
		float32(p.params.Speed), float32(tank.Speed.Min), float32(tank.Speed.Max))
	if math.Abs(float64(speed)-p.params.Speed) > 0.01 {
		p.params.Speed = math.Round(float64(speed)*100) / 100
		changed = true
	}

	height := slider("Height (px)", fmt.Sprintf("%d", p.params.Height),
		float32(p.params.Height), float32(tank.Height.Min), float32(tank.Height.Max))
	if int(height)/10*10 != p.params.Height {
		p.params.Height = int(height) / 10 * 10
		changed = true
	}

	rl.DrawText(fmt.Sprintf("Palette: %s", p.params.Palette), int32(x), int32(y), 16, rl.DarkGray)
	y += 22
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, "Next Palette") {
		p.params.Palette = nextPalette(p.cfg.Derived.PaletteNames, p.params.Palette)
		changed = true
	}
	if gui.Button(rl.Rectangle{X: x + 130, Y: y, Width: 120, Height: 30}, "Random Seed") {
		p.params.Seed = int64(rl.GetRandomValue(1, 99999))
		changed = true
	}
	y += 45

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, "Load Images") {
		if p.loadImages() {
			changed = true
		}
	}
	if gui.Button(rl.Rectangle{X: x + 130, Y: y, Width: 120, Height: 30}, "Clear Images") && len(p.uploads) > 0 {
		p.uploads = nil
		changed = true
	}
	y += 45

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 250, Height: 30}, "Export") {
		p.export()
	}
	y += 55

	rl.DrawText(fmt.Sprintf("Seed: %d", p.params.Seed), int32(x), int32(y), 16, rl.DarkGray)
	y += 22
	rl.DrawText(fmt.Sprintf("Images: %d", len(p.uploads)), int32(x), int32(y), 16, rl.DarkGray)

	rl.DrawText("Press R to reshuffle", int32(x), int32(windowHeight-30), 12, rl.LightGray)
	if rl.IsKeyPressed(rl.KeyR) {
		p.params.Seed = int64(rl.GetRandomValue(1, 99999))
		changed = true
	}

	return changed
}

func nextPalette(names []string, current string) string {
	for i, n := range names {
		if n == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// loadImages asks for fish images and reports whether the selection changed.
func (p *preview) loadImages() bool {
	paths, err := zenity.SelectFileMultiple(
		zenity.Title("Choose Fish Images"),
		zenity.FileFilters{{
			Name:     "Images",
			Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp"},
		}},
	)
	if err != nil {
		if !errors.Is(err, zenity.ErrCanceled) {
			p.status = err.Error()
		}
		return false
	}

	if limit := p.cfg.Upload.MaxFiles; limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	uploads := make([]sprite.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping image", "path", path, "error", err)
			continue
		}
		uploads = append(uploads, sprite.Upload{Name: filepath.Base(path), Data: data})
	}
	p.uploads = uploads
	return true
}

// export writes the current scene through an OutputManager.
func (p *preview) export() {
	if p.scene == nil {
		return
	}

	dir := p.outDir
	if dir == "" {
		var err error
		dir, err = zenity.SelectFile(zenity.Title("Export Scene To"), zenity.Directory())
		if err != nil {
			if !errors.Is(err, zenity.ErrCanceled) {
				p.status = err.Error()
			}
			return
		}
	}

	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		p.status = err.Error()
		return
	}
	defer om.Close()

	if err := om.WriteScene(p.scene, "Dreaming Aquarium"); err != nil {
		p.status = err.Error()
		return
	}
	if err := om.WriteConfig(p.cfg); err != nil {
		p.status = err.Error()
		return
	}
	if err := om.WritePerf(p.perf.Stats(), p.scene.ID.String()); err != nil {
		p.status = err.Error()
		return
	}

	p.status = "exported to " + dir
	slog.Info("scene exported", "dir", dir, "scene_id", p.scene.ID)
}
