package scene

import (
	"math"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/sprite"
)

// Params are the user-facing knobs of one scene build.
type Params struct {
	Palette   string  `yaml:"palette"` // empty = configured default
	FishCount int     `yaml:"fish_count"`
	Speed     float64 `yaml:"speed"`
	Height    int     `yaml:"height"` // pixels
	Seed      int64   `yaml:"seed"`   // 0 = time based
}

// DefaultParams returns the configured defaults.
func DefaultParams(cfg *config.Config) Params {
	return Params{
		Palette:   cfg.Palettes.Default,
		FishCount: int(cfg.Tank.FishCount.Default),
		Speed:     cfg.Tank.Speed.Default,
		Height:    int(cfg.Tank.Height.Default),
	}
}

// Adjustment records one parameter that was clamped into range.
type Adjustment struct {
	Field string
	From  float64
	To    float64
}

// Clamp pulls every numeric parameter into its configured range and reports
// what changed. Out-of-range input is never an error.
func (p Params) Clamp(tank config.TankConfig) (Params, []Adjustment) {
	var adj []Adjustment

	clampInt := func(field string, v *int, r config.Range) {
		c := int(math.Round(r.Clamp(float64(*v))))
		if c != *v {
			adj = append(adj, Adjustment{Field: field, From: float64(*v), To: float64(c)})
			*v = c
		}
	}

	clampInt("fish_count", &p.FishCount, tank.FishCount)
	clampInt("height", &p.Height, tank.Height)

	speed := p.Speed
	if math.IsNaN(speed) {
		speed = tank.Speed.Default
	}
	if c := tank.Speed.Clamp(speed); c != p.Speed {
		adj = append(adj, Adjustment{Field: "speed", From: p.Speed, To: c})
		p.Speed = c
	}

	return p, adj
}

// SourceMode selects where fish images come from.
type SourceMode uint8

const (
	// SourceGenerate draws procedural sprites.
	SourceGenerate SourceMode = iota
	// SourceUpload uses user images, falling back to generation if none decode.
	SourceUpload
)

func (m SourceMode) String() string {
	if m == SourceUpload {
		return "upload"
	}
	return "generate"
}

// Source describes the sprite supply for a build.
type Source struct {
	Mode    SourceMode
	Uploads []sprite.Upload
}

// Generated returns a source that draws procedural sprites.
func Generated() Source {
	return Source{Mode: SourceGenerate}
}

// Uploaded returns a source backed by user images.
func Uploaded(uploads ...sprite.Upload) Source {
	return Source{Mode: SourceUpload, Uploads: uploads}
}
