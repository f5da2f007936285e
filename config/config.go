// Package config provides configuration loading and access for the aquarium.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/aquarium/palette"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrUnknownPalette is returned when a palette name is not configured.
var ErrUnknownPalette = errors.New("unknown palette")

// Config holds all aquarium configuration parameters.
type Config struct {
	Tank     TankConfig     `yaml:"tank"`
	Palettes PalettesConfig `yaml:"palettes"`
	Sprite   SpriteConfig   `yaml:"sprite"`
	Fish     FishConfig     `yaml:"fish"`
	Ambient  AmbientConfig  `yaml:"ambient"`
	Upload   UploadConfig   `yaml:"upload"`
	Server   ServerConfig   `yaml:"server"`
	Output   OutputConfig   `yaml:"output"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Range is a closed numeric interval with an optional default.
type Range struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default,omitempty"`
}

// Clamp limits v to [Min, Max].
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// TankConfig holds the accepted ranges of the user-facing parameters.
type TankConfig struct {
	FishCount Range `yaml:"fish_count"`
	Speed     Range `yaml:"speed"`
	Height    Range `yaml:"height"` // pixels
}

// PaletteConfig is one named palette as written in YAML.
type PaletteConfig struct {
	Name   string   `yaml:"name"`
	Colors []string `yaml:"colors"` // dark, mid1, mid2, body, accent
}

// PalettesConfig holds the built-in palettes.
type PalettesConfig struct {
	Default     string          `yaml:"default"`
	MinContrast float64         `yaml:"min_contrast"` // CIEDE2000 distance between fish and background slots
	Named       []PaletteConfig `yaml:"named"`
}

// SpriteConfig holds procedural fish drawing parameters.
type SpriteConfig struct {
	Size         int     `yaml:"size"` // canonical max dimension in pixels
	BodyWidth    Range   `yaml:"body_width"`
	BodyHeight   Range   `yaml:"body_height"`
	Layers       int     `yaml:"layers"`
	BodyAlpha    int     `yaml:"body_alpha"`
	StripeCount  Range   `yaml:"stripe_count"`
	StripeHeight Range   `yaml:"stripe_height"`
	StripeInset  int     `yaml:"stripe_inset"`
	StripeAlpha  int     `yaml:"stripe_alpha"`
	TailGap      int     `yaml:"tail_gap"`    // body edge to tail apex
	TailLength   int     `yaml:"tail_length"` // body edge to tail base
	TailAlpha    int     `yaml:"tail_alpha"`
	EyeRadius    int     `yaml:"eye_radius"`
	PupilRadius  int     `yaml:"pupil_radius"`
	EyeAlpha     int     `yaml:"eye_alpha"`
	BlurSigma    float64 `yaml:"blur_sigma"`
	GeneratedMin int     `yaml:"generated_min"` // minimum sprites generated per scene
	SeedMax      int64   `yaml:"seed_max"`
}

// FishConfig holds per-fish random draw ranges.
type FishConfig struct {
	Scale Range `yaml:"scale"`
	Depth Range `yaml:"depth"`
	Top   Range `yaml:"top"`  // percent of tank height
	Swim  Range `yaml:"swim"` // seconds at speed 1
	Bob   Range `yaml:"bob"`  // seconds
}

// AmbientConfig holds beam and bubble parameters.
type AmbientConfig struct {
	Beams        []float64 `yaml:"beams"` // left offsets in percent
	BubbleCount  int       `yaml:"bubble_count"`
	BubbleLeft   Range     `yaml:"bubble_left"`
	BubbleRise   Range     `yaml:"bubble_rise"` // seconds at speed 1
	BubbleDelay  Range     `yaml:"bubble_delay"`
	BubbleSize   Range     `yaml:"bubble_size"` // pixels
	BobAmplitude float64   `yaml:"bob_amplitude"`
}

// UploadConfig holds limits for user-supplied images.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
	MaxFiles int   `yaml:"max_files"`
}

// ServerConfig holds HTTP host settings.
type ServerConfig struct {
	Addr           string  `yaml:"addr"`
	RateLimit      float64 `yaml:"rate_limit"` // scene builds per second per client
	RateBurst      int     `yaml:"rate_burst"`
	ReadTimeoutSec int     `yaml:"read_timeout_sec"`

	// TrustedProxies lists the CIDRs (or single addresses) whose
	// X-Forwarded-For headers are believed. Empty means none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	PosterWidth int `yaml:"poster_width"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Palettes     map[string]palette.Palette
	PaletteNames []string // in YAML order

	TrustedProxies []netip.Prefix
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived parses and validates the configured palettes.
func (c *Config) computeDerived() error {
	if len(c.Palettes.Named) == 0 {
		return errors.New("config: no palettes configured")
	}

	c.Derived.Palettes = make(map[string]palette.Palette, len(c.Palettes.Named))
	c.Derived.PaletteNames = c.Derived.PaletteNames[:0]
	for _, pc := range c.Palettes.Named {
		p, err := palette.Parse(pc.Colors)
		if err != nil {
			return fmt.Errorf("config: palette %q: %w", pc.Name, err)
		}
		if err := p.Validate(c.Palettes.MinContrast); err != nil {
			return fmt.Errorf("config: palette %q: %w", pc.Name, err)
		}
		if _, dup := c.Derived.Palettes[pc.Name]; dup {
			return fmt.Errorf("config: duplicate palette %q", pc.Name)
		}
		c.Derived.Palettes[pc.Name] = p
		c.Derived.PaletteNames = append(c.Derived.PaletteNames, pc.Name)
	}

	// Default palette falls back to the first listed one
	if _, ok := c.Derived.Palettes[c.Palettes.Default]; !ok {
		c.Palettes.Default = c.Derived.PaletteNames[0]
	}

	if c.Sprite.Size <= 0 {
		return fmt.Errorf("config: sprite.size must be positive, got %d", c.Sprite.Size)
	}
	if c.Ambient.BubbleCount < 0 {
		return fmt.Errorf("config: ambient.bubble_count must not be negative, got %d", c.Ambient.BubbleCount)
	}
	// Sprites are assigned by index modulo the sprite count
	if c.Sprite.GeneratedMin < 1 {
		return fmt.Errorf("config: sprite.generated_min must be at least 1, got %d", c.Sprite.GeneratedMin)
	}
	// Durations are divided by speed
	if c.Tank.Speed.Min <= 0 {
		return fmt.Errorf("config: tank.speed.min must be positive, got %v", c.Tank.Speed.Min)
	}
	if c.Tank.FishCount.Min < 0 || c.Tank.FishCount.Min > c.Tank.FishCount.Max {
		return fmt.Errorf("config: tank.fish_count range [%v, %v] is invalid", c.Tank.FishCount.Min, c.Tank.FishCount.Max)
	}

	c.Derived.TrustedProxies = c.Derived.TrustedProxies[:0]
	for _, s := range c.Server.TrustedProxies {
		prefix, err := parsePrefix(s)
		if err != nil {
			return fmt.Errorf("config: server.trusted_proxies: %w", err)
		}
		c.Derived.TrustedProxies = append(c.Derived.TrustedProxies, prefix)
	}

	return nil
}

// parsePrefix accepts a CIDR or a bare address (a single-host prefix).
func parsePrefix(s string) (netip.Prefix, error) {
	if addr, err := netip.ParseAddr(s); err == nil {
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return prefix.Masked(), nil
}

// Palette returns the named palette. An empty name selects the default.
func (c *Config) Palette(name string) (palette.Palette, error) {
	if name == "" {
		name = c.Palettes.Default
	}
	p, ok := c.Derived.Palettes[name]
	if !ok {
		return palette.Palette{}, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
	}
	return p, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
