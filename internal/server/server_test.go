package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pixelbrush/pixelbrush/internal/config"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
	"github.com/pixelbrush/pixelbrush/internal/job"
	"github.com/pixelbrush/pixelbrush/internal/palette"
	"github.com/pixelbrush/pixelbrush/internal/settings"
)

type stubCapturer struct{}

func (stubCapturer) Grab(rect image.Rectangle) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{50, 60, 70, 255}), image.Point{}, draw.Src)
	return img, nil
}

type stubTapper struct{}

func (stubTapper) Tap(ctx context.Context, pos image.Point, move, hold time.Duration) error {
	return nil
}

func testServer(t *testing.T) (*Server, *job.Manager) {
	t.Helper()

	cfg := &config.Config{
		SettingsPath:     filepath.Join(t.TempDir(), "settings.json"),
		MoveDuration:     time.Microsecond,
		HoldDuration:     time.Microsecond,
		AfterClickDelay:  time.Microsecond,
		PanelOpenDelay:   time.Microsecond,
		ShadeDelay:       time.Microsecond,
		RowDelay:         time.Microsecond,
		CaptureRetries:   1,
		CountdownSeconds: 0,
	}

	pt := func(x, y int) *image.Point {
		p := image.Pt(x, y)
		return &p
	}
	pal := &palette.Palette{
		ShadesPanel: pt(900, 50), Back: pt(900, 100), PaintTool: pt(950, 50), BucketTool: pt(950, 100),
		Swatches: []palette.Swatch{
			{Name: "red", Pos: image.Pt(100, 500), RGB: imaging.RGB{R: 255},
				Shades: []palette.Shade{{Name: "shade-1", Pos: image.Pt(100, 600), RGB: imaging.RGB{R: 255}}}},
		},
	}
	if err := settings.Save(cfg.SettingsPath, &settings.Settings{Palette: pal, CanvasPreset: "2x2"}); err != nil {
		t.Fatal(err)
	}

	mgr, err := job.NewManager(cfg, stubCapturer{}, stubTapper{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mgr.Close)
	return New(mgr), mgr
}

func doJSON(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, http.NoBody)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{255, 0, 0, 255}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/api/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st job.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Running || st.ImageLoaded || st.CanvasSelected {
		t.Errorf("fresh status = %+v", st)
	}
	if st.Swatches != 1 {
		t.Errorf("swatches = %d, want 1", st.Swatches)
	}
}

func TestImageUpload(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	req := httptest.NewRequest("POST", "/api/image", bytes.NewReader(redPNG(t)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var st job.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.ImageLoaded || st.GridW != 2 || st.GridH != 2 {
		t.Errorf("status after upload = %+v", st)
	}
}

func TestImageUploadRejectsGarbage(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s.Handler(), "POST", "/api/image", "not an image")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != "INVALID_ARGUMENT" {
		t.Errorf("code = %q, want INVALID_ARGUMENT", resp["code"])
	}
}

func TestCanvasSelect(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/canvas", `{"x":10,"y":20,"w":60,"h":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/canvas", `{"x":10,"y":20,"w":0,"h":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty rect status = %d, want 400", rec.Code)
	}
}

func TestPaintStartPreconditionStatus(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s.Handler(), "POST", "/api/paint/start", "")

	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["code"] != "IMAGE_NOT_LOADED" {
		t.Errorf("code = %q, want IMAGE_NOT_LOADED", resp["code"])
	}
}

func TestPaintRoundTrip(t *testing.T) {
	s, mgr := testServer(t)
	h := s.Handler()

	req := httptest.NewRequest("POST", "/api/image", bytes.NewReader(redPNG(t)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	if rec := doJSON(t, h, "POST", "/api/canvas", `{"x":0,"y":0,"w":60,"h":60}`); rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/paint/start", `{"bucket_fill_most_used":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["job_id"] == 0 {
		t.Error("job_id missing")
	}

	deadline := time.Now().Add(5 * time.Second)
	for mgr.Status().Running && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	rec = doJSON(t, h, "GET", "/api/history", "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var hist struct {
		Jobs []job.Record `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Jobs) != 1 || hist.Jobs[0].Outcome != job.OutcomeDone {
		t.Errorf("history = %+v", hist.Jobs)
	}
}

func TestPaletteEndpoints(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "GET", "/api/palette", "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var pal palette.Palette
	if err := json.Unmarshal(rec.Body.Bytes(), &pal); err != nil {
		t.Fatal(err)
	}
	if len(pal.Swatches) != 1 || pal.Swatches[0].RGB != (imaging.RGB{R: 255}) {
		t.Fatalf("palette = %+v", pal)
	}

	rec = doJSON(t, h, "POST", "/api/palette/swap-rb", "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pal); err != nil {
		t.Fatal(err)
	}
	if pal.Swatches[0].RGB != (imaging.RGB{B: 255}) {
		t.Errorf("swatch after swap = %+v", pal.Swatches[0].RGB)
	}

	rec = doJSON(t, h, "DELETE", "/api/palette/swatches/7", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove bogus swatch status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, "DELETE", "/api/palette/swatches/0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove swatch status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWizardEndpoints(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/wizard/start", "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var ws map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &ws); err != nil {
		t.Fatal(err)
	}
	// All shared buttons come from settings, so the wizard starts at the
	// main color.
	if ws["state"] != "awaiting_main_color" {
		t.Errorf("state = %q", ws["state"])
	}

	if rec := doJSON(t, h, "POST", "/api/wizard/click", `{"x":300,"y":400}`); rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	if rec := doJSON(t, h, "POST", "/api/wizard/click", `{"x":300,"y":450}`); rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/wizard/finish", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d: %s", rec.Code, rec.Body.String())
	}
	var sw palette.Swatch
	if err := json.Unmarshal(rec.Body.Bytes(), &sw); err != nil {
		t.Fatal(err)
	}
	if sw.RGB != (imaging.RGB{R: 50, G: 60, B: 70}) {
		t.Errorf("captured rgb = %+v", sw.RGB)
	}

	// Finishing again without a run is a conflict.
	rec = doJSON(t, h, "POST", "/api/wizard/finish", "")
	if rec.Code == http.StatusOK {
		t.Error("finish outside a run should fail")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}

	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d denied inside the window limit", i)
		}
	}
	if rl.allow() {
		t.Error("message over the limit allowed")
	}
}
