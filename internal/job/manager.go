package job

import (
	"context"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixelbrush/pixelbrush/internal/config"
	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
	"github.com/pixelbrush/pixelbrush/internal/paint"
	"github.com/pixelbrush/pixelbrush/internal/palette"
	"github.com/pixelbrush/pixelbrush/internal/screen"
	"github.com/pixelbrush/pixelbrush/internal/settings"
	"github.com/pixelbrush/pixelbrush/internal/syncx"
	"github.com/pixelbrush/pixelbrush/internal/trace"
	"github.com/pixelbrush/pixelbrush/internal/wizard"
)

// EventType tags events broadcast to connected clients.
type EventType string

const (
	EventImageLoaded    EventType = "image_loaded"
	EventCanvasSelected EventType = "canvas_selected"
	EventPaletteUpdated EventType = "palette_updated"
	EventWizardPrompt   EventType = "wizard_prompt"
	EventCountdown      EventType = "countdown"
	EventJobStarted     EventType = "job_started"
	EventProgress       EventType = "progress"
	EventJobDone        EventType = "job_done"
	EventJobFailed      EventType = "job_failed"
	EventCanvasDrift    EventType = "canvas_drift"
)

// Event is one session update pushed to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	JobID     int64     `json:"job_id,omitempty"`
	Countdown int       `json:"countdown,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	State     string    `json:"state,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Status is a point-in-time session summary.
type Status struct {
	ImageLoaded    bool             `json:"image_loaded"`
	GridW          int              `json:"grid_w,omitempty"`
	GridH          int              `json:"grid_h,omitempty"`
	CanvasSelected bool             `json:"canvas_selected"`
	Canvas         *image.Rectangle `json:"canvas,omitempty"`
	Swatches       int              `json:"swatches"`
	Shades         int              `json:"shades"`
	Running        bool             `json:"running"`
	Done           int              `json:"done,omitempty"`
	Total          int              `json:"total,omitempty"`
	WizardState    string           `json:"wizard_state"`
}

// StartOptions controls one paint job.
type StartOptions struct {
	BucketFillMostUsed bool `json:"bucket_fill_most_used"`
	StrokeNeighbors    bool `json:"stroke_neighbors"`
	SkipCountdown      bool `json:"skip_countdown"`
}

// Manager holds the session: settings, loaded image grid, canvas selection,
// and the wizard, and runs at most one paint job at a time. Mutating calls
// persist settings; persistence failures are logged, never fatal.
type Manager struct {
	cfg      *config.Config
	capturer screen.Capturer
	tapper   paint.Tapper
	failsafe paint.Failsafe
	sampler  *screen.Sampler

	mu     sync.RWMutex
	sets   *settings.Settings
	grid   *imaging.Grid
	canvas image.Rectangle
	wiz    *wizard.Wizard
	cancel context.CancelFunc

	running  syncx.TryClaim
	progress *syncx.RWGuard[paint.Progress]
	jobSeq   atomic.Int64
	history  *History
	events   chan Event
	wg       sync.WaitGroup
}

// NewManager loads persisted settings and builds a session.
func NewManager(cfg *config.Config, capturer screen.Capturer, tapper paint.Tapper, failsafe paint.Failsafe) (*Manager, error) {
	sets, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	if sets.Palette == nil {
		sets.Palette = &palette.Palette{}
	}

	return &Manager{
		cfg:      cfg,
		capturer: capturer,
		tapper:   tapper,
		failsafe: failsafe,
		sampler:  screen.NewSampler(capturer, cfg.CaptureRetries),
		sets:     sets,
		wiz:      wizard.New(sets.Palette),
		progress: syncx.NewGuard(paint.Progress{}),
		history:  NewHistory(HistoryMaxEntries),
		events:   make(chan Event, EventBuffer),
	}, nil
}

// Events returns the subscriber channel. Slow consumers drop events rather
// than stalling a paint run.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

// Close stops any running job and waits for it to finish.
func (m *Manager) Close() {
	m.Stop()
	m.wg.Wait()
}

// LoadImage decodes an image and resamples it onto the current preset grid.
func (m *Manager) LoadImage(ctx context.Context, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, h, err := imaging.ParsePreset(m.presetLocked())
	if err != nil {
		return err
	}
	grid, err := imaging.DecodeGrid(r, w, h)
	if err != nil {
		return err
	}
	m.grid = grid

	trace.Logger(ctx).Info("image loaded", "grid_w", w, "grid_h", h)
	m.emit(Event{Type: EventImageLoaded})
	return nil
}

// SelectCanvas sets the screen rectangle the grid maps onto.
func (m *Manager) SelectCanvas(ctx context.Context, rect image.Rectangle) error {
	if rect.Empty() {
		return apperrors.New(apperrors.CodeInvalidArgument, "canvas rectangle is empty")
	}

	m.mu.Lock()
	m.canvas = rect
	m.mu.Unlock()

	trace.Logger(ctx).Info("canvas selected", "rect", rect)
	m.emit(Event{Type: EventCanvasSelected})
	return nil
}

// SetPreset changes the logical grid size. A loaded image grid is discarded;
// the preset fixes grid dimensions, so the image must be re-resampled.
func (m *Manager) SetPreset(preset string) error {
	if _, _, err := imaging.ParsePreset(preset); err != nil {
		return err
	}

	m.mu.Lock()
	m.sets.CanvasPreset = preset
	m.grid = nil
	m.mu.Unlock()

	m.persist()
	return nil
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() settings.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := *m.sets
	s.Palette = m.sets.Palette.Clone()
	return s
}

// Palette returns a deep copy of the current palette.
func (m *Manager) Palette() *palette.Palette {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets.Palette.Clone()
}

// SwapRB applies the red/blue channel repair to every stored color.
func (m *Manager) SwapRB() {
	m.mu.Lock()
	m.sets.Palette.SwapRB()
	m.mu.Unlock()

	m.persist()
	m.emit(Event{Type: EventPaletteUpdated})
}

// RemoveSwatch drops a swatch by index.
func (m *Manager) RemoveSwatch(index int) error {
	m.mu.Lock()
	err := m.sets.Palette.RemoveSwatch(index)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.persist()
	m.emit(Event{Type: EventPaletteUpdated})
	return nil
}

// ShadeClashes reports visually close shade pairs within swatches.
func (m *Manager) ShadeClashes() []palette.ShadeClash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets.Palette.CheckShadeContrast()
}

// WizardStart begins a palette capture run.
func (m *Manager) WizardStart() error {
	if m.running.Held() {
		return apperrors.New(apperrors.CodeJobRunning, "cannot calibrate while painting")
	}
	if err := m.wiz.Start(); err != nil {
		return err
	}
	m.emit(Event{Type: EventWizardPrompt, State: m.wiz.State().String(), Prompt: m.wiz.Prompt()})
	return nil
}

// WizardCapture samples the screen color at pos and feeds the click to the
// wizard.
func (m *Manager) WizardCapture(ctx context.Context, pos image.Point) error {
	rgb, err := m.sampler.SamplePixel(ctx, pos)
	if err != nil {
		return err
	}

	m.mu.Lock()
	err = m.wiz.Feed(wizard.Click{Pos: pos, RGB: rgb})
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.persist()
	m.emit(Event{Type: EventWizardPrompt, State: m.wiz.State().String(), Prompt: m.wiz.Prompt()})
	return nil
}

// WizardFinish commits the captured swatch.
func (m *Manager) WizardFinish() (palette.Swatch, error) {
	m.mu.Lock()
	sw, err := m.wiz.Finish()
	m.mu.Unlock()
	if err != nil {
		return palette.Swatch{}, err
	}

	m.persist()
	m.emit(Event{Type: EventPaletteUpdated})
	m.emit(Event{Type: EventWizardPrompt, State: m.wiz.State().String()})
	return sw, nil
}

// WizardCancel discards the in-progress capture.
func (m *Manager) WizardCancel() {
	m.wiz.Cancel()
	m.emit(Event{Type: EventWizardPrompt, State: m.wiz.State().String()})
}

// WizardState returns the wizard FSM state and prompt.
func (m *Manager) WizardState() (string, string) {
	return m.wiz.State().String(), m.wiz.Prompt()
}

// Status summarizes the session.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Swatches:    len(m.sets.Palette.Swatches),
		Shades:      m.sets.Palette.NumShades(),
		Running:     m.running.Held(),
		WizardState: m.wiz.State().String(),
	}
	if st.Running {
		p := m.progress.Get()
		st.Done, st.Total = p.Done, p.Total
	}
	if m.grid != nil {
		st.ImageLoaded = true
		st.GridW, st.GridH = m.grid.W, m.grid.H
	}
	if !m.canvas.Empty() {
		st.CanvasSelected = true
		rect := m.canvas
		st.Canvas = &rect
	}
	return st
}

// History returns recent finished jobs, newest first.
func (m *Manager) History(limit int) []Record {
	return m.history.Recent(limit)
}

// StartPaint validates preconditions, computes the assignment fresh from the
// current image, palette, and canvas, and launches the job. It returns as
// soon as the job is admitted; progress arrives via Events.
func (m *Manager) StartPaint(opts StartOptions) (int64, error) {
	m.mu.Lock()
	if m.grid == nil {
		m.mu.Unlock()
		return 0, apperrors.New(apperrors.CodeImageNotLoaded, "no image loaded")
	}
	if m.canvas.Empty() {
		m.mu.Unlock()
		return 0, apperrors.New(apperrors.CodeCanvasNotSelected, "no canvas selected")
	}

	// Snapshot everything the job needs; the session can be edited freely
	// while a job runs without affecting it.
	pal := m.sets.Palette.Clone()
	grid := m.grid
	canvas := m.canvas
	timing := m.timingLocked()
	m.mu.Unlock()

	assign, err := pal.MatchGrid(grid)
	if err != nil {
		return 0, err
	}

	plan, err := paint.Plan(assign, pal, canvas, paint.Options{
		BucketFillMostUsed: opts.BucketFillMostUsed,
		StrokeNeighbors:    opts.StrokeNeighbors,
		Timing:             timing,
	})
	if err != nil {
		return 0, err
	}

	if !m.running.Claim() {
		return 0, apperrors.New(apperrors.CodeJobRunning, "a paint job is already running")
	}

	id := m.jobSeq.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runJob(ctx, id, plan, timing, canvas, opts)
	return id, nil
}

// Stop cancels the running job, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) runJob(ctx context.Context, id int64, plan []paint.Action, timing paint.Timing, canvas image.Rectangle, opts StartOptions) {
	defer m.wg.Done()
	defer m.running.Release()

	ctx, span := trace.StartSpan(ctx, "paint_job")
	defer span.End()
	span.SetAttr("job_id", id)
	log := trace.Logger(ctx)

	started := time.Now()
	total := paint.CountPaintable(plan)
	painted := 0
	m.progress.Set(paint.Progress{Total: total})

	var monitor *screen.Monitor
	if m.cfg.CanvasHashGuard {
		monitor = screen.NewMonitor(m.capturer, canvas, CanvasHashThreshold)
		if err := monitor.Snapshot(ctx); err != nil {
			log.Warn("canvas snapshot failed, drift guard disabled", "error", err)
			monitor = nil
		}
	}

	err := m.countdown(ctx, id, opts.SkipCountdown)

	if err == nil && monitor != nil {
		// The user had the countdown to move windows around; make sure the
		// canvas still looks like it did when they selected it.
		if changed, cerr := monitor.Changed(ctx); cerr == nil && changed {
			m.emit(Event{Type: EventCanvasDrift, JobID: id})
			log.Warn("canvas region changed since selection", "job_id", id)
		}
	}

	if err == nil {
		m.emit(Event{Type: EventJobStarted, JobID: id, Total: total})

		coalescer := NewCoalescer(ProgressFlushDelay, func(p paint.Progress) {
			m.emit(Event{Type: EventProgress, JobID: id, Done: p.Done, Total: p.Total})
		})
		runner := paint.NewRunner(m.tapper, m.failsafe, func(p paint.Progress) {
			painted = p.Done
			m.progress.Set(p)
			coalescer.Add(p)
		})
		err = runner.Run(ctx, plan, timing)
		coalescer.Flush()
	}

	rec := Record{ID: id, Started: started, Duration: time.Since(started), Painted: painted, Total: total}
	switch {
	case err == nil:
		rec.Outcome = OutcomeDone
		m.emit(Event{Type: EventJobDone, JobID: id, Done: painted, Total: total})
		log.Info("paint job done", "job_id", id, "painted", painted)
	case apperrors.IsCode(err, apperrors.CodeUserCancelled):
		rec.Outcome = OutcomeCancelled
		rec.Error = err.Error()
		m.emit(Event{Type: EventJobFailed, JobID: id, Done: painted, Total: total, Error: err.Error()})
		log.Info("paint job cancelled", "job_id", id, "painted", painted)
	default:
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
		m.emit(Event{Type: EventJobFailed, JobID: id, Done: painted, Total: total, Error: err.Error()})
		log.Error("paint job failed", "job_id", id, "error", err)
	}
	m.history.Add(rec)

	m.mu.Lock()
	m.cancel = nil
	m.mu.Unlock()
}

// countdown gives the user time to focus the game window before the pointer
// takes over.
func (m *Manager) countdown(ctx context.Context, id int64, skip bool) error {
	if skip || m.cfg.CountdownSeconds <= 0 {
		return nil
	}
	for i := m.cfg.CountdownSeconds; i > 0; i-- {
		m.emit(Event{Type: EventCountdown, JobID: id, Countdown: i})
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.CodeUserCancelled, "stopped during countdown")
		case <-time.After(CountdownTick):
		}
	}
	return nil
}

func (m *Manager) presetLocked() string {
	if m.sets.CanvasPreset == "" {
		return imaging.DefaultPreset
	}
	return m.sets.CanvasPreset
}

// timingLocked merges env defaults with per-settings overrides.
func (m *Manager) timingLocked() paint.Timing {
	t := paint.Timing{
		MoveDuration:     m.cfg.MoveDuration,
		HoldDuration:     m.cfg.HoldDuration,
		AfterClickDelay:  m.cfg.AfterClickDelay,
		PanelOpenDelay:   m.cfg.PanelOpenDelay,
		ShadeSelectDelay: m.cfg.ShadeDelay,
		RowDelay:         m.cfg.RowDelay,
	}
	o := m.sets.Timing.Paint()
	if o.MoveDuration > 0 {
		t.MoveDuration = o.MoveDuration
	}
	if o.HoldDuration > 0 {
		t.HoldDuration = o.HoldDuration
	}
	if o.AfterClickDelay > 0 {
		t.AfterClickDelay = o.AfterClickDelay
	}
	if o.PanelOpenDelay > 0 {
		t.PanelOpenDelay = o.PanelOpenDelay
	}
	if o.ShadeSelectDelay > 0 {
		t.ShadeSelectDelay = o.ShadeSelectDelay
	}
	if o.RowDelay > 0 {
		t.RowDelay = o.RowDelay
	}
	if o.StrokeClickDelay > 0 {
		t.StrokeClickDelay = o.StrokeClickDelay
	}
	return t
}

// persist writes settings to disk, logging failures.
func (m *Manager) persist() {
	m.mu.RLock()
	snapshot := *m.sets
	snapshot.Palette = m.sets.Palette.Clone()
	m.mu.RUnlock()

	if err := settings.Save(m.cfg.SettingsPath, &snapshot); err != nil {
		trace.Logger(context.Background()).Error("settings save failed", "error", err)
	}
}
