package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/renderer"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
	"github.com/pthm-cable/aquarium/telemetry"
)

// Response formats.
const (
	formatPage     = "page"
	formatFragment = "fragment"
	formatPoster   = "poster"
)

// multipartOverhead covers form fields and part headers on top of file bytes.
const multipartOverhead = 1 << 20

// errBadParam marks a query or form value that does not parse.
var errBadParam = errors.New("bad parameter")

type writeFunc func(w io.Writer, s *scene.Scene) error

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	src := scene.Generated()
	if r.FormValue("mode") == "upload" {
		// Nothing was posted; upload mode falls back to generated fish.
		src = scene.Uploaded()
	}
	s.serveScene(w, r, formatPage, "text/html; charset=utf-8", src, s.writeIndex)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.MaxBytes*int64(s.cfg.Upload.MaxFiles) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		http.Error(w, fmt.Sprintf("reading form: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	src := scene.Generated()
	if r.FormValue("mode") == "upload" {
		src = scene.Uploaded(s.readUploads(r.MultipartForm.File["images"])...)
	}
	s.serveScene(w, r, formatPage, "text/html; charset=utf-8", src, s.writeIndex)
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	s.serveScene(w, r, formatFragment, "text/html; charset=utf-8", scene.Generated(), renderer.WriteFragment)
}

func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	width := s.cfg.Output.PosterWidth
	if v := r.FormValue("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			http.Error(w, fmt.Sprintf("%v: width %q", errBadParam, v), http.StatusBadRequest)
			return
		}
		width = n
	}
	s.serveScene(w, r, formatPoster, "image/svg+xml", scene.Generated(), func(w io.Writer, sc *scene.Scene) error {
		return renderer.WritePoster(w, sc, width)
	})
}

func (s *Server) handlePalettes(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Name   string   `json:"name"`
		Colors []string `json:"colors"`
	}
	out := make([]entry, 0, len(s.cfg.Derived.PaletteNames))
	for _, name := range s.cfg.Derived.PaletteNames {
		p := s.cfg.Derived.Palettes[name]
		e := entry{Name: name}
		for i := range p {
			e.Colors = append(e.Colors, p.Hex(i))
		}
		out = append(out, e)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Error("encoding palettes", "error", err)
	}
}

// serveScene composes a scene from the request parameters and writes it in
// the given format. The body is buffered so a failed render never produces a
// half-written 200.
func (s *Server) serveScene(w http.ResponseWriter, r *http.Request, format, contentType string, src scene.Source, write writeFunc) {
	ctx, span := s.tracer.Start(r.Context(), "Server.BuildScene", trace.WithAttributes(
		attribute.String("format", format),
		attribute.String("source", src.Mode.String()),
		attribute.Int("uploads", len(src.Uploads)),
	))
	defer span.End()

	start := time.Now()
	fail := func(status int, err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.observeBuild(format, src.Mode.String(), "error", time.Since(start))
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "scene build failed", "format", format, "error", err)
		}
		http.Error(w, err.Error(), status)
	}

	p, err := parseParams(r, s.cfg)
	if err != nil {
		fail(http.StatusBadRequest, err)
		return
	}

	timer := s.perf.StartBuild()
	sc, err := s.composer.ComposeTimed(p, src, timer)
	if err != nil {
		timer.End()
		if errors.Is(err, config.ErrUnknownPalette) {
			fail(http.StatusBadRequest, err)
			return
		}
		fail(http.StatusInternalServerError, err)
		return
	}
	for _, a := range sc.Adjustments {
		s.metrics.clamped.WithLabelValues(a.Field).Inc()
	}

	timer.StartPhase(telemetry.PhaseSerialize)
	var buf bytes.Buffer
	err = write(&buf, sc)
	timer.End()
	if err != nil {
		fail(http.StatusInternalServerError, err)
		return
	}

	outcome := "ok"
	if sc.Fallback {
		outcome = "fallback"
	}
	s.metrics.observeBuild(format, src.Mode.String(), outcome, time.Since(start))
	span.SetAttributes(
		attribute.String("scene.id", sc.ID.String()),
		attribute.Int64("scene.seed", sc.Params.Seed),
		attribute.Int("scene.fish", len(sc.Fish)),
		attribute.Bool("scene.fallback", sc.Fallback),
	)
	slog.DebugContext(ctx, "scene built", "format", format, "stats", telemetry.ComputeSceneStats(sc))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Scene-ID", sc.ID.String())
	w.Header().Set("X-Scene-Seed", strconv.FormatInt(sc.Params.Seed, 10))
	_, _ = w.Write(buf.Bytes())
}

// parseParams reads scene parameters from the query or form, starting from
// the configured defaults. Only malformed numbers are errors; range checks
// belong to the composer.
func parseParams(r *http.Request, cfg *config.Config) (scene.Params, error) {
	p := scene.DefaultParams(cfg)
	if v := r.FormValue("palette"); v != "" {
		p.Palette = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"fish", &p.FishCount},
		{"height", &p.Height},
	}
	for _, f := range ints {
		if v := r.FormValue(f.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return p, fmt.Errorf("%w: %s=%q", errBadParam, f.key, v)
			}
			*f.dst = n
		}
	}

	if v := r.FormValue("speed"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%w: speed=%q", errBadParam, v)
		}
		p.Speed = x
	}
	if v := r.FormValue("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: seed=%q", errBadParam, v)
		}
		p.Seed = n
	}

	return p, nil
}

// readUploads loads the posted files, skipping oversized and unreadable ones.
func (s *Server) readUploads(files []*multipart.FileHeader) []sprite.Upload {
	uploads := make([]sprite.Upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.cfg.Upload.MaxBytes {
			slog.Warn("skipping oversized upload", "name", fh.Filename, "bytes", fh.Size, "max", s.cfg.Upload.MaxBytes)
			s.metrics.uploads.WithLabelValues("too_large").Inc()
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			slog.Warn("skipping unreadable upload", "name", fh.Filename, "error", err)
			s.metrics.uploads.WithLabelValues("unreadable").Inc()
			continue
		}
		s.metrics.uploads.WithLabelValues("accepted").Inc()
		uploads = append(uploads, sprite.Upload{Name: fh.Filename, Data: data})
	}
	return uploads
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
