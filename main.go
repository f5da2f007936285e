package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/server"
	"github.com/pthm-cable/aquarium/sprite"
	"github.com/pthm-cable/aquarium/telemetry"
)

func main() {
	app := &cli.App{
		Name:  "aquarium",
		Usage: "procedural fish tanks as self-animating HTML",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config.yaml (empty = use defaults)"},
			&cli.BoolFlag{Name: "debug", Usage: "Log at debug level"},
			&cli.BoolFlag{Name: "trace", Usage: "Export trace spans as JSON to stderr"},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			renderCommand(),
			serveCommand(),
			palettesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("aquarium failed", "error", err)
		os.Exit(1)
	}
}

// setup loads config and installs the JSON logger before any command runs.
func setup(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(c.String("config")); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.Bool("trace") {
		tp, err := newTracerProvider()
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		tracerProvider = tp
	}
	return nil
}

// tracerProvider is set when --trace is on and flushed by teardown.
var tracerProvider *sdktrace.TracerProvider

func newTracerProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(attribute.String("service.name", "aquarium"))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func teardown(c *cli.Context) error {
	if tracerProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}

func sceneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "palette", Usage: "Palette name (empty = configured default)"},
		&cli.IntFlag{Name: "fish", Usage: "Number of fish (0 = configured default)"},
		&cli.Float64Flag{Name: "speed", Usage: "Speed multiplier (0 = configured default)"},
		&cli.IntFlag{Name: "height", Usage: "Tank height in pixels (0 = configured default)"},
		&cli.Int64Flag{Name: "seed", Usage: "Scene seed (0 = time-based)"},
	}
}

func paramsFromFlags(c *cli.Context, cfg *config.Config) scene.Params {
	p := scene.DefaultParams(cfg)
	if v := c.String("palette"); v != "" {
		p.Palette = v
	}
	if c.IsSet("fish") {
		p.FishCount = c.Int("fish")
	}
	if c.IsSet("speed") {
		p.Speed = c.Float64("speed")
	}
	if c.IsSet("height") {
		p.Height = c.Int("height")
	}
	p.Seed = c.Int64("seed")
	return p
}

func renderCommand() *cli.Command {
	flags := append(sceneFlags(),
		&cli.StringSliceFlag{Name: "image", Aliases: []string{"i"}, Usage: "Fish image to use instead of generated sprites (repeatable)"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory", Required: true},
		&cli.StringFlag{Name: "title", Value: "Dreaming Aquarium", Usage: "Page title"},
		&cli.BoolFlag{Name: "log-stats", Usage: "Log scene statistics"},
	)

	return &cli.Command{
		Name:  "render",
		Usage: "compose one scene and write it with its manifests to a directory",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := config.Cfg()
			job := renderJob{
				params:   paramsFromFlags(c, cfg),
				src:      scene.Generated(),
				out:      c.String("out"),
				title:    c.String("title"),
				logStats: c.Bool("log-stats"),
			}
			if paths := c.StringSlice("image"); len(paths) > 0 {
				job.src = scene.Uploaded(readImages(paths, cfg.Upload.MaxBytes)...)
			}
			return render(cfg, telemetry.NewPerfCollector(1), job)
		},
	}
}

type renderJob struct {
	params   scene.Params
	src      scene.Source
	out      string
	title    string
	logStats bool
}

// render composes one scene and writes it with its manifests. Every build
// reaches perf, failed ones included.
func render(cfg *config.Config, perf *telemetry.PerfCollector, job renderJob) (err error) {
	composer := scene.NewComposer(cfg, sprite.NewGenerator(cfg))

	timer := perf.StartBuild()
	s, err := composer.ComposeTimed(job.params, job.src, timer)
	if err != nil {
		timer.End()
		return err
	}

	om, err := telemetry.NewOutputManager(job.out)
	if err != nil {
		timer.End()
		return err
	}
	defer func() {
		if cerr := om.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()

	timer.StartPhase(telemetry.PhaseSerialize)
	err = om.WriteScene(s, job.title)
	timer.End()
	if err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	stats := perf.Stats()
	if err := om.WritePerf(stats, s.ID.String()); err != nil {
		return err
	}

	if job.logStats {
		telemetry.ComputeSceneStats(s).LogStats()
		stats.LogStats()
	}
	slog.Info("scene written",
		"dir", om.Dir(),
		"page", filepath.Join(om.Dir(), telemetry.PageFile),
		"scene_id", s.ID,
		"seed", s.Params.Seed,
		"fallback", s.Fallback,
	)
	return nil
}

// readImages loads image files for upload mode. Unreadable or oversized
// files are logged and skipped like any other bad upload.
func readImages(paths []string, maxBytes int64) []sprite.Upload {
	uploads := make([]sprite.Upload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			slog.Warn("skipping image", "path", path, "error", err)
			continue
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			slog.Warn("skipping oversized image", "path", path, "bytes", info.Size(), "max", maxBytes)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping image", "path", path, "error", err)
			continue
		}
		uploads = append(uploads, sprite.Upload{Name: filepath.Base(path), Data: data})
	}
	return uploads
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the parameter form and scenes over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (empty = config server.addr)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Cfg()
			if addr := c.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			composer := scene.NewComposer(cfg, sprite.NewGenerator(cfg))
			srv := server.New(cfg, composer, telemetry.NewPerfCollector(0))
			return srv.ListenAndServe(ctx)
		},
	}
}

func palettesCommand() *cli.Command {
	return &cli.Command{
		Name:  "palettes",
		Usage: "list the built-in palettes",
		Action: func(c *cli.Context) error {
			cfg := config.Cfg()
			for _, name := range cfg.Derived.PaletteNames {
				p := cfg.Derived.Palettes[name]
				hexes := make([]string, len(p))
				for i := range p {
					hexes[i] = p.Hex(i)
				}
				marker := " "
				if name == cfg.Palettes.Default {
					marker = "*"
				}
				fmt.Fprintf(c.App.Writer, "%s %-14s %s\n", marker, name, strings.Join(hexes, " "))
			}
			return nil
		},
	}
}
