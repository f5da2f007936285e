package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
)

// SceneStats summarizes one composed scene.
type SceneStats struct {
	SceneID  string  `csv:"scene_id"`
	Seed     int64   `csv:"seed"`
	Palette  string  `csv:"palette"`
	Speed    float64 `csv:"speed"`
	Height   int     `csv:"height"`
	Fish     int     `csv:"fish"`
	Sprites  int     `csv:"sprites"`
	Uploaded int     `csv:"uploaded"`
	Fallback bool    `csv:"fallback"`
	Clamped  int     `csv:"clamped"`

	RightMovers int `csv:"right_movers"`
	LeftMovers  int `csv:"left_movers"`

	// Depth cue distribution
	DepthMean   float64 `csv:"depth_mean"`
	DepthStd    float64 `csv:"depth_std"`
	OpacityMean float64 `csv:"opacity_mean"`
	ScaleMean   float64 `csv:"scale_mean"` // effective scale

	// Swim durations in seconds
	SwimP10 float64 `csv:"swim_p10"`
	SwimP50 float64 `csv:"swim_p50"`
	SwimP90 float64 `csv:"swim_p90"`

	BobMean  float64 `csv:"bob_mean"`
	RiseMean float64 `csv:"rise_mean"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSceneStats summarizes the fish and bubbles of s.
func ComputeSceneStats(s *scene.Scene) SceneStats {
	out := SceneStats{
		SceneID:  s.ID.String(),
		Seed:     s.Params.Seed,
		Palette:  s.Params.Palette,
		Speed:    s.Params.Speed,
		Height:   s.Params.Height,
		Fish:     len(s.Fish),
		Sprites:  len(s.Sprites),
		Fallback: s.Fallback,
		Clamped:  len(s.Adjustments),
	}
	for _, sp := range s.Sprites {
		if sp.Origin == sprite.OriginUploaded {
			out.Uploaded++
		}
	}

	n := len(s.Fish)
	if n > 0 {
		depth := make([]float64, n)
		opacity := make([]float64, n)
		scale := make([]float64, n)
		swim := make([]float64, n)
		bob := make([]float64, n)
		for i, f := range s.Fish {
			if f.Direction == scene.Right {
				out.RightMovers++
			} else {
				out.LeftMovers++
			}
			depth[i] = f.Depth
			opacity[i] = f.Opacity()
			scale[i] = f.EffectiveScale()
			swim[i] = f.SwimSeconds
			bob[i] = f.BobSeconds
		}

		out.DepthMean, out.DepthStd = stat.MeanStdDev(depth, nil)
		out.OpacityMean = stat.Mean(opacity, nil)
		out.ScaleMean = stat.Mean(scale, nil)
		out.BobMean = stat.Mean(bob, nil)

		sort.Float64s(swim)
		out.SwimP10 = Percentile(swim, 0.10)
		out.SwimP50 = Percentile(swim, 0.50)
		out.SwimP90 = Percentile(swim, 0.90)
	}

	if len(s.Bubbles) > 0 {
		rise := make([]float64, len(s.Bubbles))
		for i, b := range s.Bubbles {
			rise[i] = b.Seconds
		}
		out.RiseMean = stat.Mean(rise, nil)
	}

	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s SceneStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scene_id", s.SceneID),
		slog.Int64("seed", s.Seed),
		slog.String("palette", s.Palette),
		slog.Float64("speed", s.Speed),
		slog.Int("height", s.Height),
		slog.Int("fish", s.Fish),
		slog.Int("sprites", s.Sprites),
		slog.Int("uploaded", s.Uploaded),
		slog.Bool("fallback", s.Fallback),
		slog.Int("clamped", s.Clamped),
		slog.Int("right_movers", s.RightMovers),
		slog.Int("left_movers", s.LeftMovers),
		slog.Float64("depth_mean", s.DepthMean),
		slog.Float64("depth_std", s.DepthStd),
		slog.Float64("opacity_mean", s.OpacityMean),
		slog.Float64("scale_mean", s.ScaleMean),
		slog.Float64("swim_p10", s.SwimP10),
		slog.Float64("swim_p50", s.SwimP50),
		slog.Float64("swim_p90", s.SwimP90),
		slog.Float64("bob_mean", s.BobMean),
		slog.Float64("rise_mean", s.RiseMean),
	)
}

// LogStats logs the scene stats using slog.
func (s SceneStats) LogStats() {
	slog.Info("scene", "stats", s)
}
