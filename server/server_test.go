package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/sprite"
)

func init() {
	config.MustInit("")
}

// newTestServer returns a server with a rate limit generous enough for
// tests that are not about rate limiting.
func newTestServer(t *testing.T, limit float64, burst int, opts ...Option) http.Handler {
	t.Helper()
	cfg := *config.Cfg()
	cfg.Server.RateLimit = limit
	cfg.Server.RateBurst = burst
	return newServerWithConfig(t, &cfg, opts...)
}

func newServerWithConfig(t *testing.T, cfg *config.Config, opts ...Option) http.Handler {
	t.Helper()
	composer := scene.NewComposer(cfg, sprite.NewGenerator(cfg))
	return New(cfg, composer, nil, opts...).Routes()
}

func getFrom(t *testing.T, h http.Handler, target, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.Header.Set("X-Real-IP", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestIndexServesFormAndScene(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/?fish=6&seed=12&palette=Forest+Lake")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, "<option selected>Forest Lake</option>")
	assert.Equal(t, 6, strings.Count(body, `class="swim"`))
	assert.Equal(t, "12", rec.Header().Get("X-Scene-Seed"))
	assert.NotEmpty(t, rec.Header().Get("X-Scene-ID"))
}

func TestFragmentDeterministic(t *testing.T) {
	h := newTestServer(t, 100, 100)

	a := get(t, h, "/scene?fish=4&seed=99&speed=1.5")
	b := get(t, h, "/scene?fish=4&seed=99&speed=1.5")
	require.Equal(t, http.StatusOK, a.Code)
	require.Equal(t, http.StatusOK, b.Code)

	assert.Equal(t, a.Header().Get("X-Scene-ID"), b.Header().Get("X-Scene-ID"))
	assert.Equal(t, a.Body.String(), b.Body.String())
	assert.NotContains(t, a.Body.String(), "<form")
}

func TestBadParams(t *testing.T) {
	h := newTestServer(t, 100, 100)

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric fish", "/scene?fish=lots"},
		{"non-numeric speed", "/scene?speed=fast"},
		{"negative seed", "/scene?seed=-4"},
		{"unknown palette", "/scene?palette=Neon"},
		{"bad poster width", "/scene.svg?width=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestOutOfRangeIsClamped(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/?fish=500&seed=3")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, 40, strings.Count(body, `class="swim"`))
	assert.Contains(t, body, "Adjusted to fit the tank")
}

func TestPoster(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/scene.svg?fish=3&seed=1&width=480")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "<image"))
}

func TestUploadCyclesImages(t *testing.T) {
	h := newTestServer(t, 100, 100)

	body, ct := multipartBody(t,
		map[string]string{"mode": "upload", "fish": "5", "seed": "8"},
		map[string][]byte{"a.png": pngBytes(t, 40, 20), "b.png": pngBytes(t, 20, 40)},
	)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Equal(t, 5, strings.Count(out, `class="swim"`))
	assert.Contains(t, out, "uploaded sprites")
	assert.NotContains(t, out, "could be read")
}

func TestUploadAllCorruptFallsBack(t *testing.T) {
	h := newTestServer(t, 100, 100)

	body, ct := multipartBody(t,
		map[string]string{"mode": "upload", "fish": "20", "seed": "8"},
		map[string][]byte{"broken.png": []byte("definitely not a png")},
	)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Equal(t, 20, strings.Count(out, `class="swim"`))
	assert.Contains(t, out, "could be read")
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, 0.001, 2)

	assert.Equal(t, http.StatusOK, get(t, h, "/scene?fish=3&seed=1").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/scene?fish=3&seed=1").Code)

	rec := get(t, h, "/scene?fish=3&seed=1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health and metrics are not rate limited
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestMetrics(t *testing.T) {
	h := newTestServer(t, 100, 100)

	require.Equal(t, http.StatusOK, get(t, h, "/scene?fish=3&seed=1").Code)
	require.Equal(t, http.StatusOK, get(t, h, "/scene?fish=90&seed=1").Code)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `aquarium_scene_builds_total{outcome="ok",source="generate"} 2`)
	assert.Contains(t, out, `aquarium_params_clamped_total{field="fish_count"} 1`)
	assert.Contains(t, out, "aquarium_scene_build_seconds_bucket")
}

func TestPalettes(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/palettes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"name":"Calm Ocean"`)
}

func TestIPRateLimiterPerClient(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	assert.True(t, l.Limiter("10.0.0.1").Allow())
	assert.False(t, l.Limiter("10.0.0.1").Allow())
	assert.True(t, l.Limiter("10.0.0.2").Allow())
}

func TestRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	h := newTestServer(t, 0.001, 1)

	served := 0
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3", "203.0.113.4", "203.0.113.5"} {
		if getFrom(t, h, "/scene?fish=3&seed=1", ip) == http.StatusOK {
			served++
		}
	}
	assert.Equal(t, 1, served, "one connection is one client whatever headers it sends")
}

func TestRateLimitBehindTrustedProxy(t *testing.T) {
	cfg := *config.Cfg()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	// httptest requests arrive from 192.0.2.1
	cfg.Derived.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}
	h := newServerWithConfig(t, &cfg)

	assert.Equal(t, http.StatusOK, getFrom(t, h, "/scene?fish=3&seed=1", "198.51.100.7"))
	assert.Equal(t, http.StatusOK, getFrom(t, h, "/scene?fish=3&seed=1", "198.51.100.8"))
	assert.Equal(t, http.StatusTooManyRequests, getFrom(t, h, "/scene?fish=3&seed=1", "198.51.100.7"))
	// A client cannot hide behind a forged hop in front of the proxy's own entry
	assert.Equal(t, http.StatusTooManyRequests, getFrom(t, h, "/scene?fish=3&seed=1", "10.9.9.9, 198.51.100.8"))
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "203.0.113.9"},
		{"untrusted peer ignores header", "203.0.113.9:5000", "198.51.100.1", "203.0.113.9"},
		{"trusted peer", "10.0.0.2:5000", "198.51.100.1", "198.51.100.1"},
		{"skips trusted hops", "10.0.0.2:5000", "198.51.100.1, 10.0.0.7", "198.51.100.1"},
		{"right-most untrusted wins", "10.0.0.2:5000", "1.1.1.1, 198.51.100.1", "198.51.100.1"},
		{"trusted peer without header", "10.0.0.2:5000", "", "10.0.0.2"},
		{"garbage header", "10.0.0.2:5000", "not-an-ip", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientIP(req, trusted))
		})
	}
}

func TestBuildSceneSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	h := newTestServer(t, 100, 100, WithTracerProvider(tp))

	ok := get(t, h, "/scene?fish=3&seed=5")
	require.Equal(t, http.StatusOK, ok.Code)

	body, ct := multipartBody(t,
		map[string]string{"mode": "upload", "fish": "3", "seed": "5"},
		map[string][]byte{"broken.png": []byte("not an image")},
	)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, http.StatusBadRequest, get(t, h, "/scene?palette=Deep+Trench").Code)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	for _, sp := range spans {
		assert.Equal(t, "Server.BuildScene", sp.Name())
	}

	attrs := spanAttrs(spans[0])
	assert.Equal(t, ok.Header().Get("X-Scene-ID"), attrs["scene.id"].AsString())
	require.Contains(t, attrs, attribute.Key("scene.fallback"))
	assert.False(t, attrs["scene.fallback"].AsBool())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs = spanAttrs(spans[1])
	assert.True(t, attrs["scene.fallback"].AsBool())
	assert.Equal(t, int64(1), attrs["uploads"].AsInt64())

	failed := spans[2]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Contains(t, failed.Status().Description, "unknown palette")
	assert.NotContains(t, spanAttrs(failed), attribute.Key("scene.id"))
	require.NotEmpty(t, failed.Events(), "error should be recorded on the span")
}

func spanAttrs(sp sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range sp.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestIndexUploadModeWithoutFiles(t *testing.T) {
	rec := get(t, newTestServer(t, 100, 100), "/?mode=upload&fish=4&seed=3")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Equal(t, 4, strings.Count(out, `class="swim"`))
	assert.NotContains(t, out, "could be read")
	assert.Contains(t, out, "nothing uploaded")
}
