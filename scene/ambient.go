package scene

// Beam is a static, blurred light shaft.
type Beam struct {
	Left float64 // percent of tank width
}

// Bubble rises from below the tank to above it while fading out, forever.
type Bubble struct {
	Left    float64 // percent of tank width
	Seconds float64 // rise duration
	Delay   float64 // seconds, <= 0 so bubbles are already in flight
	Size    float64 // diameter in pixels
}

// RiseAt returns the fraction of the ascent completed t seconds after load.
func (b Bubble) RiseAt(t float64) float64 {
	return progress(t, b.Delay, b.Seconds)
}
