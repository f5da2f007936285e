package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/renderer"
	"github.com/pthm-cable/aquarium/scene"
)

// Output file names.
const (
	PageFile     = "scene.html"
	FragmentFile = "fragment.html"
	PosterFile   = "poster.svg"
	FishFile     = "fish.csv"
	BubblesFile  = "bubbles.csv"
	ScenesFile   = "scenes.csv"
	PerfFile     = "perf.csv"
	ConfigFile   = "config.yaml"
	SpritesDir   = "sprites"
)

// OutputManager writes exported scenes and their manifests to a directory.
// A nil *OutputManager is valid and discards everything.
type OutputManager struct {
	dir        string
	scenesFile *os.File
	perfFile   *os.File

	// Track if headers have been written
	scenesHeaderWritten bool
	perfHeaderWritten   bool
}

// FishRecord is one row of fish.csv.
type FishRecord struct {
	Index          int     `csv:"index"`
	Sprite         int     `csv:"sprite"`
	SpriteKey      string  `csv:"sprite_key"`
	Seed           int64   `csv:"seed"`
	Direction      string  `csv:"direction"`
	Scale          float64 `csv:"scale"`
	Depth          float64 `csv:"depth"`
	Top            float64 `csv:"top"`
	Opacity        float64 `csv:"opacity"`
	EffectiveScale float64 `csv:"effective_scale"`
	SwimSec        float64 `csv:"swim_sec"`
	SwimDelay      float64 `csv:"swim_delay"`
	BobSec         float64 `csv:"bob_sec"`
	BobDelay       float64 `csv:"bob_delay"`
}

// BubbleRecord is one row of bubbles.csv.
type BubbleRecord struct {
	Index   int     `csv:"index"`
	Left    float64 `csv:"left"`
	Size    float64 `csv:"size"`
	RiseSec float64 `csv:"rise_sec"`
	Delay   float64 `csv:"delay"`
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Join(dir, SpritesDir), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, ScenesFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", ScenesFile, err)
	}
	om.scenesFile = f

	f, err = os.Create(filepath.Join(dir, PerfFile))
	if err != nil {
		om.scenesFile.Close()
		return nil, fmt.Errorf("creating %s: %w", PerfFile, err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteScene exports s: the page, the bare fragment, an SVG poster, the
// fish and bubble manifests and every sprite as PNG. Later exports overwrite
// earlier ones; the stats row is appended to scenes.csv.
func (om *OutputManager) WriteScene(s *scene.Scene, title string) error {
	if om == nil {
		return nil
	}

	if err := om.writeFile(PageFile, func(w *bufio.Writer) error {
		return renderer.WritePage(w, s, title)
	}); err != nil {
		return err
	}
	if err := om.writeFile(FragmentFile, func(w *bufio.Writer) error {
		return renderer.WriteFragment(w, s)
	}); err != nil {
		return err
	}
	if err := om.writeFile(PosterFile, func(w *bufio.Writer) error {
		return renderer.WritePoster(w, s, config.Cfg().Output.PosterWidth)
	}); err != nil {
		return err
	}

	if err := om.writeFile(FishFile, func(w *bufio.Writer) error {
		return gocsv.Marshal(FishRecords(s), w)
	}); err != nil {
		return err
	}
	if err := om.writeFile(BubblesFile, func(w *bufio.Writer) error {
		return gocsv.Marshal(BubbleRecords(s), w)
	}); err != nil {
		return err
	}

	for i, sp := range s.Sprites {
		data, err := sp.PNG()
		if err != nil {
			return fmt.Errorf("encoding sprite %d: %w", i, err)
		}
		path := filepath.Join(om.dir, SpritesDir, fmt.Sprintf("%02d.png", i))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing sprite %d: %w", i, err)
		}
	}

	return om.WriteStats(ComputeSceneStats(s))
}

// WriteStats appends a scene stats record to scenes.csv.
func (om *OutputManager) WriteStats(stats SceneStats) error {
	if om == nil {
		return nil
	}

	records := []SceneStats{stats}

	if !om.scenesHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.scenesFile); err != nil {
			return fmt.Errorf("writing scene stats: %w", err)
		}
		om.scenesHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.scenesFile); err != nil {
			return fmt.Errorf("writing scene stats: %w", err)
		}
	}

	return nil
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, sceneID string) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(sceneID)}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// writeFile creates name in the output directory and hands fill a buffered writer.
func (om *OutputManager) writeFile(name string, fill func(w *bufio.Writer) error) error {
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

// FishRecords flattens the fish of s into manifest rows.
func FishRecords(s *scene.Scene) []FishRecord {
	out := make([]FishRecord, len(s.Fish))
	for i, f := range s.Fish {
		out[i] = FishRecord{
			Index:          i,
			Sprite:         f.Sprite,
			SpriteKey:      s.SpriteOf(f).Key(),
			Seed:           f.Seed,
			Direction:      f.Direction.String(),
			Scale:          f.Scale,
			Depth:          f.Depth,
			Top:            f.Top,
			Opacity:        f.Opacity(),
			EffectiveScale: f.EffectiveScale(),
			SwimSec:        f.SwimSeconds,
			SwimDelay:      f.SwimDelay,
			BobSec:         f.BobSeconds,
			BobDelay:       f.BobDelay,
		}
	}
	return out
}

// BubbleRecords flattens the bubbles of s into manifest rows.
func BubbleRecords(s *scene.Scene) []BubbleRecord {
	out := make([]BubbleRecord, len(s.Bubbles))
	for i, b := range s.Bubbles {
		out[i] = BubbleRecord{
			Index:   i,
			Left:    b.Left,
			Size:    b.Size,
			RiseSec: b.Seconds,
			Delay:   b.Delay,
		}
	}
	return out
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.scenesFile != nil {
		if err := om.scenesFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
