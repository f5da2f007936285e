package scene

import "math"

// Horizontal travel, in percent of tank width. Fish start and finish off-screen.
const (
	OffscreenLeft  = -20.0
	OffscreenRight = 120.0
)

// Depth cue coefficients. Nearer fish are more opaque and larger.
const (
	minOpacity     = 0.65
	opacityByDepth = 0.35
	minScaleFactor = 0.7
	scaleByDepth   = 0.3
)

// Direction is the way a fish crosses the tank.
type Direction uint8

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Right {
		return "right"
	}
	return "left"
}

// FishSpec is the randomized description of one fish. It is drawn once per
// build and never mutated.
type FishSpec struct {
	Seed        int64
	Scale       float64 // [0.6, 1.2]
	Depth       float64 // [0, 1], 0 = near
	Direction   Direction
	Top         float64 // percent, [5, 90]
	SwimSeconds float64
	BobSeconds  float64
}

// Opacity is 1.0 at depth 0 falling to 0.65 at depth 1.
func (f FishSpec) Opacity() float64 {
	return minOpacity + opacityByDepth*(1-f.Depth)
}

// EffectiveScale is Scale at depth 0 falling to 0.7×Scale at depth 1.
func (f FishSpec) EffectiveScale() float64 {
	return f.Scale * (minScaleFactor + scaleByDepth*(1-f.Depth))
}

// Travel returns the start and end of the swim, in percent of tank width.
func (f FishSpec) Travel() (from, to float64) {
	if f.Direction == Right {
		return OffscreenLeft, OffscreenRight
	}
	return OffscreenRight, OffscreenLeft
}

// Fish is a placed fish: its spec plus sprite assignment and phase offsets.
type Fish struct {
	FishSpec
	Sprite    int     // index into Scene.Sprites
	SwimDelay float64 // seconds, in [-SwimSeconds, 0]
	BobDelay  float64 // seconds, in [-BobSeconds, 0]
}

// LeftAt returns the horizontal position, in percent, t seconds after load.
func (f Fish) LeftAt(t float64) float64 {
	from, to := f.Travel()
	return from + (to-from)*progress(t, f.SwimDelay, f.SwimSeconds)
}

// progress is the fraction of a looping animation completed at time t,
// given a CSS-style start delay.
func progress(t, delay, period float64) float64 {
	if period <= 0 {
		return 0
	}
	p := math.Mod(t-delay, period)
	if p < 0 {
		p += period
	}
	return p / period
}
