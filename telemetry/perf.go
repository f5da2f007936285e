package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/aquarium/scene"
)

// Phase names for a scene build.
const (
	PhaseSprites   = scene.PhaseSprites
	PhaseLayout    = scene.PhaseLayout
	PhaseSerialize = "serialize"
)

var buildPhases = []string{PhaseSprites, PhaseLayout, PhaseSerialize}

// PerfSample holds timing data for a single build.
type PerfSample struct {
	BuildDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks build timings over a rolling window.
// Builds may be timed concurrently; each gets its own BuildTimer.
type PerfCollector struct {
	mu          sync.Mutex
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int
	total       int

	// Frame timing (for the preview window)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of builds to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 32
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
	}
}

// BuildTimer times the phases of one build. It is not safe for concurrent use.
type BuildTimer struct {
	pc         *PerfCollector
	start      time.Time
	phaseStart time.Time
	lastPhase  string
	phases     map[string]time.Duration
}

// StartBuild begins timing a new build.
func (p *PerfCollector) StartBuild() *BuildTimer {
	return &BuildTimer{
		pc:     p,
		start:  time.Now(),
		phases: make(map[string]time.Duration),
	}
}

// StartPhase ends the previous phase, if any, and begins timing phase.
func (b *BuildTimer) StartPhase(phase string) {
	now := time.Now()
	if b.lastPhase != "" {
		b.phases[b.lastPhase] += now.Sub(b.phaseStart)
	}
	b.phaseStart = now
	b.lastPhase = phase
}

// End finishes the build and records the sample.
func (b *BuildTimer) End() PerfSample {
	now := time.Now()
	if b.lastPhase != "" {
		b.phases[b.lastPhase] += now.Sub(b.phaseStart)
		b.lastPhase = ""
	}

	sample := PerfSample{
		BuildDuration: now.Sub(b.start),
		Phases:        b.phases,
	}
	b.pc.record(sample)
	return sample
}

func (p *PerfCollector) record(s PerfSample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples[p.writeIndex] = s
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.total++
}

// RecordFrame records frame timing for the preview window.
func (p *PerfCollector) RecordFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Builds int // total builds recorded, including those outside the window

	AvgBuildDuration time.Duration
	MinBuildDuration time.Duration
	MaxBuildDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total build time
	PhasePct map[string]float64

	// Frame timing (preview window)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	stats := PerfStats{
		Builds:        p.total,
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameDuration,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.BuildDuration

		if i == 0 || s.BuildDuration < stats.MinBuildDuration {
			stats.MinBuildDuration = s.BuildDuration
		}
		if s.BuildDuration > stats.MaxBuildDuration {
			stats.MaxBuildDuration = s.BuildDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	stats.AvgBuildDuration = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		stats.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if stats.AvgBuildDuration > 0 {
			stats.PhasePct[phase] = float64(stats.PhaseAvg[phase]) / float64(stats.AvgBuildDuration) * 100
		}
	}

	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"builds", s.Builds,
		"avg_build_us", s.AvgBuildDuration.Microseconds(),
		"min_build_us", s.MinBuildDuration.Microseconds(),
		"max_build_us", s.MaxBuildDuration.Microseconds(),
	}

	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}

	for _, phase := range buildPhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("builds", s.Builds),
		slog.Int64("avg_build_us", s.AvgBuildDuration.Microseconds()),
		slog.Int64("min_build_us", s.MinBuildDuration.Microseconds()),
		slog.Int64("max_build_us", s.MaxBuildDuration.Microseconds()),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	SceneID      string  `csv:"scene_id"`
	Builds       int     `csv:"builds"`
	AvgBuildUS   int64   `csv:"avg_build_us"`
	MinBuildUS   int64   `csv:"min_build_us"`
	MaxBuildUS   int64   `csv:"max_build_us"`
	SpritesPct   float64 `csv:"sprites_pct"`
	LayoutPct    float64 `csv:"layout_pct"`
	SerializePct float64 `csv:"serialize_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(sceneID string) PerfStatsCSV {
	return PerfStatsCSV{
		SceneID:      sceneID,
		Builds:       s.Builds,
		AvgBuildUS:   s.AvgBuildDuration.Microseconds(),
		MinBuildUS:   s.MinBuildDuration.Microseconds(),
		MaxBuildUS:   s.MaxBuildDuration.Microseconds(),
		SpritesPct:   s.PhasePct[PhaseSprites],
		LayoutPct:    s.PhasePct[PhaseLayout],
		SerializePct: s.PhasePct[PhaseSerialize],
	}
}
