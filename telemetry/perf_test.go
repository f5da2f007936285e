package telemetry

import (
	"sync"
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few builds
	for i := 0; i < 5; i++ {
		b := pc.StartBuild()
		b.StartPhase(PhaseSprites)
		time.Sleep(100 * time.Microsecond)
		b.StartPhase(PhaseLayout)
		time.Sleep(200 * time.Microsecond)
		b.End()
	}

	stats := pc.Stats()

	if stats.AvgBuildDuration <= 0 {
		t.Error("expected positive average build duration")
	}
	if stats.Builds != 5 {
		t.Errorf("Builds = %d, want 5", stats.Builds)
	}

	if _, ok := stats.PhaseAvg[PhaseSprites]; !ok {
		t.Error("expected sprites phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseLayout]; !ok {
		t.Error("expected layout phase to be tracked")
	}
	if stats.MinBuildDuration > stats.MaxBuildDuration {
		t.Errorf("min %v > max %v", stats.MinBuildDuration, stats.MaxBuildDuration)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	for i := 0; i < 10; i++ {
		b := pc.StartBuild()
		b.StartPhase(PhaseSerialize)
		b.End()
	}

	stats := pc.Stats()

	if stats.Builds != 10 {
		t.Errorf("Builds = %d, want 10", stats.Builds)
	}
	if stats.AvgBuildDuration <= 0 {
		t.Error("expected positive average build duration after window filled")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		b := pc.StartBuild()
		b.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		b.StartPhase("slow")
		time.Sleep(2 * time.Millisecond)
		b.End()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_ConcurrentBuilds(t *testing.T) {
	pc := NewPerfCollector(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				b := pc.StartBuild()
				b.StartPhase(PhaseSprites)
				b.StartPhase(PhaseLayout)
				b.End()
			}
		}()
	}
	wg.Wait()

	if got := pc.Stats().Builds; got != 32 {
		t.Errorf("Builds = %d, want 32", got)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgBuildDuration != 0 {
		t.Error("expected zero avg build duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// First call establishes baseline
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond) // ~60fps frame time
	pc.RecordFrame()

	stats := pc.Stats()

	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}

	// Sleep never undershoots, so FPS cannot exceed ~62
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("expected FPS in (0, 70] with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		Builds:           3,
		AvgBuildDuration: 1500 * time.Microsecond,
		PhasePct:         map[string]float64{PhaseSprites: 80, PhaseLayout: 15, PhaseSerialize: 5},
	}

	rec := stats.ToCSV("abc")
	if rec.SceneID != "abc" || rec.Builds != 3 || rec.AvgBuildUS != 1500 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.SpritesPct != 80 || rec.LayoutPct != 15 || rec.SerializePct != 5 {
		t.Errorf("phase percentages not carried: %+v", rec)
	}
}
