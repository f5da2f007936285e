package scene

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/aquarium/components"
	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/palette"
	"github.com/pthm-cable/aquarium/rng"
	"github.com/pthm-cable/aquarium/sprite"
)

// Build phases reported to a PhaseTimer.
const (
	PhaseSprites = "sprites"
	PhaseLayout  = "layout"
)

// PhaseTimer receives phase boundaries during a build.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Composer turns parameters and a sprite source into a Scene.
// It holds no mutable state; concurrent builds are independent.
type Composer struct {
	cfg *config.Config
	gen *sprite.Generator
}

// NewComposer creates a composer.
func NewComposer(cfg *config.Config, gen *sprite.Generator) *Composer {
	return &Composer{cfg: cfg, gen: gen}
}

// Generator returns the sprite generator used for builds.
func (c *Composer) Generator() *sprite.Generator {
	return c.gen
}

// Compose builds a scene. See ComposeTimed.
func (c *Composer) Compose(p Params, src Source) (*Scene, error) {
	return c.ComposeTimed(p, src, nil)
}

// ComposeTimed builds a scene, reporting phase boundaries to timer if non-nil.
//
// Numeric parameters outside their configured ranges are clamped and logged;
// an unknown palette name is rejected with config.ErrUnknownPalette.
func (c *Composer) ComposeTimed(p Params, src Source, timer PhaseTimer) (*Scene, error) {
	if p.Palette == "" {
		p.Palette = c.cfg.Palettes.Default
	}
	pal, err := c.cfg.Palette(p.Palette)
	if err != nil {
		return nil, err
	}

	p, adjustments := p.Clamp(c.cfg.Tank)
	for _, a := range adjustments {
		slog.Warn("clamped scene parameter", "field", a.Field, "from", a.From, "to", a.To)
	}

	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	r := rng.New(p.Seed, rng.StreamScene)

	mark(timer, PhaseSprites)
	sprites, fallback, err := c.resolveSprites(p, pal, src, r)
	if err != nil {
		return nil, err
	}

	mark(timer, PhaseLayout)
	w := newSceneWorld()
	c.spawnFish(w, p, len(sprites), r)
	c.assignPhases(w, r)
	c.spawnBeams(w)
	c.spawnBubbles(w, p, r)

	s := &Scene{
		Params:      p,
		Palette:     pal,
		Adjustments: adjustments,
		Fallback:    fallback,
		Uploads:     len(src.Uploads),
		Sprites:     sprites,
		Fish:        w.collectFish(p.FishCount),
		Beams:       w.collectBeams(len(c.cfg.Ambient.Beams)),
		Bubbles:     w.collectBubbles(c.cfg.Ambient.BubbleCount),

		BobAmplitude: c.cfg.Ambient.BobAmplitude,
	}
	s.ID = sceneID(s)

	slog.Debug("scene composed",
		"id", s.ID,
		"seed", p.Seed,
		"palette", p.Palette,
		"fish", len(s.Fish),
		"sprites", len(s.Sprites),
		"fallback", fallback,
	)

	return s, nil
}

// resolveSprites returns the sprite set for the build. Upload mode keeps the
// decodable uploads; with none left it falls back to generation.
func (c *Composer) resolveSprites(p Params, pal palette.Palette, src Source, r *rand.Rand) ([]*sprite.Sprite, bool, error) {
	fallback := false
	if src.Mode == SourceUpload {
		uploads := src.Uploads
		if limit := c.cfg.Upload.MaxFiles; limit > 0 && len(uploads) > limit {
			slog.Warn("too many uploads, ignoring the rest", "received", len(uploads), "max", limit)
			uploads = uploads[:limit]
		}
		sprites := c.gen.NormalizeAll(uploads)
		if len(sprites) > 0 {
			return sprites, false, nil
		}
		slog.Info("no usable uploads, generating sprites instead", "uploads", len(src.Uploads))
		fallback = true
	}

	n := GeneratedCount(c.cfg.Sprite.GeneratedMin, p.FishCount)
	sprites := make([]*sprite.Sprite, 0, n)
	for i := 0; i < n; i++ {
		s, err := c.gen.Generate(rng.Seed(r, c.cfg.Sprite.SeedMax), pal)
		if err != nil {
			return nil, fallback, fmt.Errorf("generating sprite %d: %w", i, err)
		}
		sprites = append(sprites, s)
	}
	return sprites, fallback, nil
}

// GeneratedCount is the number of procedural sprites drawn for a tank of fishCount fish.
func GeneratedCount(minimum, fishCount int) int {
	return max(minimum, fishCount/2)
}

// spawnFish draws every fish's spec. Sprites are assigned by cycling.
func (c *Composer) spawnFish(w *sceneWorld, p Params, spriteCount int, r *rand.Rand) {
	fc := c.cfg.Fish
	for i := 0; i < p.FishCount; i++ {
		order := components.Order{Index: i}
		ref := components.SpriteRef{Index: i % spriteCount, Seed: rng.Seed(r, c.cfg.Sprite.SeedMax)}
		place := components.Placement{
			Scale: rng.InRange(r, fc.Scale),
			Depth: rng.InRange(r, fc.Depth),
		}
		heading := components.Heading{Right: rng.Coin(r, 0.5)}
		place.Top = rng.InRange(r, fc.Top)
		swim := components.Swim{Seconds: rng.InRange(r, fc.Swim) / p.Speed}
		bob := components.Bob{Seconds: rng.InRange(r, fc.Bob)}

		w.fish.NewEntity(&order, &place, &heading, &swim, &bob, &ref)
	}
}

// assignPhases gives each fish negative start offsets so the tank is not in lockstep.
func (c *Composer) assignPhases(w *sceneWorld, r *rand.Rand) {
	query := w.fishFilter.Query()
	for query.Next() {
		_, _, _, swim, bob, _ := query.Get()
		swim.Delay = -rng.Uniform(r, 0, swim.Seconds)
		bob.Delay = -rng.Uniform(r, 0, bob.Seconds)
	}
}

func (c *Composer) spawnBeams(w *sceneWorld) {
	for i, left := range c.cfg.Ambient.Beams {
		w.beams.NewEntity(&components.Order{Index: i}, &components.Beam{Left: left})
	}
}

func (c *Composer) spawnBubbles(w *sceneWorld, p Params, r *rand.Rand) {
	a := c.cfg.Ambient
	for i := 0; i < a.BubbleCount; i++ {
		rise := components.Rise{
			Left:    rng.InRange(r, a.BubbleLeft),
			Seconds: rng.InRange(r, a.BubbleRise) / p.Speed,
			Delay:   rng.InRange(r, a.BubbleDelay),
			Size:    rng.InRange(r, a.BubbleSize),
		}
		w.bubbles.NewEntity(&components.Order{Index: i}, &rise)
	}
}

func mark(timer PhaseTimer, phase string) {
	if timer != nil {
		timer.StartPhase(phase)
	}
}

// sceneID derives a stable ID from the seed, parameters and sprite identities,
// so the same inputs always name the same scene.
func sceneID(s *Scene) uuid.UUID {
	h := sha1.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.Params.Seed))
	h.Write(buf[:])
	fmt.Fprintf(h, "|%s|%d|%g|%d", s.Params.Palette, s.Params.FishCount, s.Params.Speed, s.Params.Height)
	for _, sp := range s.Sprites {
		fmt.Fprintf(h, "|%s", sp.Key())
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, h.Sum(nil))
}
