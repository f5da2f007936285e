package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Tank.FishCount.Min != 3 || cfg.Tank.FishCount.Max != 40 {
		t.Errorf("fish_count range = [%v, %v], want [3, 40]", cfg.Tank.FishCount.Min, cfg.Tank.FishCount.Max)
	}
	if cfg.Sprite.Size != 220 {
		t.Errorf("sprite.size = %d, want 220", cfg.Sprite.Size)
	}
	if len(cfg.Ambient.Beams) != 4 {
		t.Errorf("expected 4 beams, got %d", len(cfg.Ambient.Beams))
	}
	if cfg.Ambient.BubbleCount != 24 {
		t.Errorf("bubble_count = %d, want 24", cfg.Ambient.BubbleCount)
	}

	want := []string{"Calm Ocean", "Warm Sunset", "Forest Lake"}
	if len(cfg.Derived.PaletteNames) != len(want) {
		t.Fatalf("palette names = %v, want %v", cfg.Derived.PaletteNames, want)
	}
	for i, name := range want {
		if cfg.Derived.PaletteNames[i] != name {
			t.Errorf("palette %d = %q, want %q", i, cfg.Derived.PaletteNames[i], name)
		}
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("tank:\n  speed: { min: 0.25, max: 4, default: 2 }\nsprite:\n  size: 128\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sprite.Size != 128 {
		t.Errorf("sprite.size = %d, want 128", cfg.Sprite.Size)
	}
	if cfg.Tank.Speed.Max != 4 {
		t.Errorf("speed.max = %v, want 4", cfg.Tank.Speed.Max)
	}
	// Untouched sections keep their defaults
	if cfg.Tank.Height.Max != 900 {
		t.Errorf("height.max = %v, want 900", cfg.Tank.Height.Max)
	}
}

func TestLoadRejectsLowContrastPalette(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`palettes:
  named:
    - name: Murky
      colors: ["#101010", "#111111", "#121212", "#131313", "#141414"]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected low-contrast palette to be rejected")
	}
}

func TestPaletteLookup(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	def, err := cfg.Palette("")
	if err != nil {
		t.Fatalf("default palette: %v", err)
	}
	calm, _ := cfg.Palette("Calm Ocean")
	if def != calm {
		t.Error("empty name should select the default palette")
	}

	if _, err := cfg.Palette("Deep Trench"); !errors.Is(err, ErrUnknownPalette) {
		t.Errorf("expected ErrUnknownPalette, got %v", err)
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: 0.5, Max: 3}
	tests := []struct {
		in, want float64
	}{
		{0.1, 0.5},
		{1.5, 1.5},
		{9, 3},
	}
	for _, tt := range tests {
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !r.Contains(3) || r.Contains(3.01) {
		t.Error("Contains should be inclusive of the bounds only")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reloading snapshot: %v", err)
	}
	if again.Sprite.BlurSigma != cfg.Sprite.BlurSigma {
		t.Errorf("blur_sigma = %v, want %v", again.Sprite.BlurSigma, cfg.Sprite.BlurSigma)
	}
}

func TestLoadRejectsUnsafeValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero generated_min", "sprite:\n  generated_min: 0\n"},
		{"negative generated_min", "sprite:\n  generated_min: -2\n"},
		{"zero speed min", "tank:\n  speed: { min: 0, max: 3, default: 1 }\n"},
		{"negative speed min", "tank:\n  speed: { min: -1, max: 3, default: 1 }\n"},
		{"inverted fish range", "tank:\n  fish_count: { min: 10, max: 5, default: 8 }\n"},
		{"bad trusted proxy", "server:\n  trusted_proxies: [\"not-an-ip\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected config to be rejected")
			}
		})
	}
}

func TestTrustedProxies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  trusted_proxies: [\"10.0.0.0/8\", \"192.168.1.7\", \"fd00::/8\"]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.7/32", "fd00::/8"}
	if len(cfg.Derived.TrustedProxies) != len(want) {
		t.Fatalf("trusted proxies = %v, want %v", cfg.Derived.TrustedProxies, want)
	}
	for i, w := range want {
		if got := cfg.Derived.TrustedProxies[i].String(); got != w {
			t.Errorf("proxy %d = %s, want %s", i, got, w)
		}
	}

	def, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Derived.TrustedProxies) != 0 {
		t.Errorf("defaults should trust no proxies, got %v", def.Derived.TrustedProxies)
	}
}
