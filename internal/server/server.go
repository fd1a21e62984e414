package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/job"
	"github.com/pixelbrush/pixelbrush/internal/trace"
)

// Message is the envelope for incoming WebSocket messages.
type Message struct {
	Type string `json:"type"`
}

type clickMessage struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type canvasRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type presetRequest struct {
	Preset string `json:"preset"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	mgr        *job.Manager
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server and starts the event broadcaster.
func New(mgr *job.Manager) *Server {
	s := &Server{
		mgr:        mgr,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
	go s.broadcastEvents()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/image", s.handleImageUpload)
	mux.HandleFunc("POST /api/canvas", s.handleCanvasSelect)
	mux.HandleFunc("POST /api/preset", s.handlePreset)

	mux.HandleFunc("GET /api/palette", s.handlePaletteGet)
	mux.HandleFunc("GET /api/palette/clashes", s.handlePaletteClashes)
	mux.HandleFunc("POST /api/palette/swap-rb", s.handlePaletteSwapRB)
	mux.HandleFunc("DELETE /api/palette/swatches/{index}", s.handleSwatchRemove)

	mux.HandleFunc("GET /api/wizard", s.handleWizardState)
	mux.HandleFunc("POST /api/wizard/start", s.handleWizardStart)
	mux.HandleFunc("POST /api/wizard/click", s.handleWizardClick)
	mux.HandleFunc("POST /api/wizard/finish", s.handleWizardFinish)
	mux.HandleFunc("POST /api/wizard/cancel", s.handleWizardCancel)

	mux.HandleFunc("POST /api/paint/start", s.handlePaintStart)
	mux.HandleFunc("POST /api/paint/stop", s.handlePaintStop)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  code.String(),
		"error": err.Error(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Status())
}

func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxImageBytes)
	if err := s.mgr.LoadImage(r.Context(), body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.mgr.Status())
}

func (s *Server) handleCanvasSelect(w http.ResponseWriter, r *http.Request) {
	var req canvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode canvas request"))
		return
	}
	rect := image.Rect(req.X, req.Y, req.X+req.W, req.Y+req.H)
	if err := s.mgr.SelectCanvas(r.Context(), rect); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.mgr.Status())
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode preset request"))
		return
	}
	if err := s.mgr.SetPreset(req.Preset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.mgr.Status())
}

func (s *Server) handlePaletteGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Palette())
}

func (s *Server) handlePaletteClashes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"clashes": s.mgr.ShadeClashes()})
}

func (s *Server) handlePaletteSwapRB(w http.ResponseWriter, r *http.Request) {
	s.mgr.SwapRB()
	writeJSON(w, s.mgr.Palette())
}

func (s *Server) handleSwatchRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "swatch index"))
		return
	}
	if err := s.mgr.RemoveSwatch(index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.mgr.Palette())
}

func (s *Server) handleWizardState(w http.ResponseWriter, r *http.Request) {
	state, prompt := s.mgr.WizardState()
	writeJSON(w, map[string]string{"state": state, "prompt": prompt})
}

func (s *Server) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.WizardStart(); err != nil {
		writeError(w, err)
		return
	}
	state, prompt := s.mgr.WizardState()
	writeJSON(w, map[string]string{"state": state, "prompt": prompt})
}

func (s *Server) handleWizardClick(w http.ResponseWriter, r *http.Request) {
	var req clickMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode click"))
		return
	}
	if err := s.mgr.WizardCapture(r.Context(), image.Pt(req.X, req.Y)); err != nil {
		writeError(w, err)
		return
	}
	state, prompt := s.mgr.WizardState()
	writeJSON(w, map[string]string{"state": state, "prompt": prompt})
}

func (s *Server) handleWizardFinish(w http.ResponseWriter, r *http.Request) {
	sw, err := s.mgr.WizardFinish()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sw)
}

func (s *Server) handleWizardCancel(w http.ResponseWriter, r *http.Request) {
	s.mgr.WizardCancel()
	state, prompt := s.mgr.WizardState()
	writeJSON(w, map[string]string{"state": state, "prompt": prompt})
}

func (s *Server) handlePaintStart(w http.ResponseWriter, r *http.Request) {
	// An empty body means default options. Content-Length may be unset
	// for chunked requests, so decode and treat EOF as empty.
	var opts job.StartOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode paint options"))
		return
	}
	id, err := s.mgr.StartPaint(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int64{"job_id": id})
}

func (s *Server) handlePaintStop(w http.ResponseWriter, r *http.Request) {
	s.mgr.Stop()
	writeJSON(w, map[string]string{"status": "stop_requested"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "bad limit"))
			return
		}
		limit = n
	}
	writeJSON(w, map[string]any{"jobs": s.mgr.History(limit)})
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Settings())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, errorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "stop":
			s.mgr.Stop()
		case "wizard_click":
			var click clickMessage
			if err := json.Unmarshal(msg, &click); err != nil {
				continue
			}
			if err := s.mgr.WizardCapture(baseCtx, image.Pt(click.X, click.Y)); err != nil {
				_ = wsjson.Write(baseCtx, conn, errorMessage{
					Type:    "error",
					Code:    apperrors.CodeOf(err).String(),
					Message: err.Error(),
				})
			}
		case "status":
			_ = wsjson.Write(baseCtx, conn, map[string]any{"type": "status", "status": s.mgr.Status()})
		}
	}
}

// broadcastEvents fans session events out to every connected client.
func (s *Server) broadcastEvents() {
	for evt := range s.mgr.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, e job.Event) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = wsjson.Write(ctx, c, e)
			}(conn, evt)
		}
		s.mu.RUnlock()
	}
}
