package palette

import (
	"errors"
	"image/color"
	"testing"
)

func TestParse(t *testing.T) {
	p, err := Parse([]string{"#0f172a", "#1e293b", "#334155", "#60a5fa", "#93c5fd"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := color.RGBA{R: 0x60, G: 0xa5, B: 0xfa, A: 255}
	if p[Body] != want {
		t.Errorf("body = %v, want %v", p[Body], want)
	}
	if got := p.Hex(BackgroundDark); got != "#0f172a" {
		t.Errorf("Hex(BackgroundDark) = %q, want #0f172a", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		hexes  []string
		target error
	}{
		{"too few", []string{"#000000", "#111111"}, ErrPaletteSize},
		{"too many", []string{"#000000", "#111111", "#222222", "#333333", "#444444", "#555555"}, ErrPaletteSize},
		{"bad hex", []string{"#000000", "#111111", "#222222", "#333333", "nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.hexes)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := MustParse("#0f172a", "#1e293b", "#334155", "#60a5fa", "#93c5fd")
	if err := good.Validate(0.2); err != nil {
		t.Errorf("expected calm palette to pass, got %v", err)
	}

	// Body colour identical to a background stop
	bad := MustParse("#0f172a", "#1e293b", "#334155", "#1e293b", "#93c5fd")
	if err := bad.Validate(0.2); !errors.Is(err, ErrLowContrast) {
		t.Errorf("expected ErrLowContrast, got %v", err)
	}
}

func TestWithAlpha(t *testing.T) {
	p := MustParse("#0f172a", "#1e293b", "#334155", "#60a5fa", "#93c5fd")
	c := p.WithAlpha(Accent, 70)
	if c.A != 70 || c.R != 0x93 || c.G != 0xc5 || c.B != 0xfd {
		t.Errorf("WithAlpha = %v", c)
	}
}

func TestClamp8(t *testing.T) {
	if Clamp8(-5) != 0 || Clamp8(300) != 255 || Clamp8(128) != 128 {
		t.Error("Clamp8 out of range")
	}
}
