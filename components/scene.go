// Package components defines ECS components for scene composition.
package components

// Order is an element's position in emission order. ECS queries do not
// promise any order, so every scene entity carries one.
type Order struct {
	Index int
}

// Placement holds a fish's vertical position and depth cue inputs.
type Placement struct {
	Top   float64 // percent of tank height
	Depth float64 // 0 = near, 1 = far
	Scale float64 // base scale before depth falloff
}

// Heading records which way a fish swims.
type Heading struct {
	Right bool
}

// Swim is the horizontal crossing animation.
type Swim struct {
	Seconds float64
	Delay   float64 // negative: animation already in progress at load
}

// Bob is the vertical oscillation layered on top of the swim.
type Bob struct {
	Seconds float64
	Delay   float64
}

// SpriteRef points a fish at one of the scene's sprites.
type SpriteRef struct {
	Index int
	Seed  int64 // per-fish seed, recorded for the manifest
}

// Rise is a bubble's looping ascent.
type Rise struct {
	Left    float64 // percent of tank width
	Seconds float64
	Delay   float64
	Size    float64 // diameter in pixels
}

// Beam is a static light shaft.
type Beam struct {
	Left float64 // percent of tank width
}
