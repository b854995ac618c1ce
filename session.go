package monoart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

// DefaultDebounce delays re-renders after a settings change.
const DefaultDebounce = 60 * time.Millisecond

// ErrNoFrame is returned by Capture before any frame was pushed or imported.
var ErrNoFrame = errors.New("monoart: no frame available")

// Settings is the effect selection applied to every render.
type Settings struct {
	Effect     effect.Type
	Parameters effect.Parameters
	Palette    palette.State
}

// DefaultSettings returns ASCII with default parameters and palette.
func DefaultSettings() Settings {
	return Settings{
		Effect:     effect.ASCII,
		Parameters: effect.DefaultParameters(),
		Palette:    palette.Default(),
	}
}

// PreviewFrame is a rendered preview and the effect it was rendered with.
type PreviewFrame struct {
	ID     uuid.UUID
	Frame  AsciiFrame
	Effect effect.Type
	Import bool
}

// PreviewSession keeps the latest camera frame and settings and renders
// previews through a RenderQueue. Camera frames render immediately;
// settings changes re-render the latest frame after a debounce. While an
// imported still is active camera frames are ignored.
type PreviewSession struct {
	queue       *RenderQueue
	debounce    time.Duration
	importCells int
	onFrame     func(PreviewFrame)
	onError     func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	settings Settings
	latest   *imageutil.PixelBuffer
	imported *imageutil.PixelBuffer
	timer    *time.Timer
	wg       sync.WaitGroup
}

// SessionOption is a functional option for configuring a PreviewSession.
type SessionOption func(*PreviewSession)

// WithDebounce sets the settings-change delay.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *PreviewSession) {
		s.debounce = d
	}
}

// WithImportCells sets the preview budget for imported stills.
func WithImportCells(n int) SessionOption {
	return func(s *PreviewSession) {
		s.importCells = n
	}
}

// WithSettings sets the initial settings.
func WithSettings(st Settings) SessionOption {
	return func(s *PreviewSession) {
		s.settings = st
	}
}

// OnFrame registers the callback receiving rendered previews. It runs on
// a session goroutine.
func OnFrame(fn func(PreviewFrame)) SessionOption {
	return func(s *PreviewSession) {
		s.onFrame = fn
	}
}

// OnError registers the callback receiving render failures.
func OnError(fn func(error)) SessionOption {
	return func(s *PreviewSession) {
		s.onError = fn
	}
}

// NewPreviewSession creates a session rendering through q.
func NewPreviewSession(q *RenderQueue, opts ...SessionOption) *PreviewSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PreviewSession{
		queue:       q,
		debounce:    DefaultDebounce,
		importCells: ImportPreviewCells,
		settings:    DefaultSettings(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the current settings.
func (s *PreviewSession) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Importing reports whether an imported still is active.
func (s *PreviewSession) Importing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imported != nil
}

// PushFrame stores buf as the latest camera frame and renders it.
func (s *PreviewSession) PushFrame(buf *imageutil.PixelBuffer) {
	s.mu.Lock()
	if s.imported != nil {
		s.mu.Unlock()
		return
	}
	s.latest = buf
	st := s.settings
	s.mu.Unlock()
	s.submit(Request{Kind: PreviewJob, Source: buf, Effect: st.Effect, Parameters: st.Parameters, Palette: st.Palette}, false)
}

// SetSettings replaces the settings and schedules a re-render.
func (s *PreviewSession) SetSettings(st Settings) {
	st.Parameters = st.Parameters.Clamped()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.rerender)
}

func (s *PreviewSession) rerender() {
	s.mu.Lock()
	st := s.settings
	src, imported := s.latest, false
	if s.imported != nil {
		src, imported = s.imported, true
	}
	s.mu.Unlock()
	if src == nil {
		return
	}
	if imported {
		s.submit(s.importRequest(src, st), true)
		return
	}
	s.submit(Request{Kind: PreviewJob, Source: src, Effect: st.Effect, Parameters: st.Parameters, Palette: st.Palette}, false)
}

func (s *PreviewSession) importRequest(src *imageutil.PixelBuffer, st Settings) Request {
	return Request{
		Kind:         CaptureJob,
		Source:       src,
		Effect:       st.Effect,
		Parameters:   st.Parameters,
		Palette:      st.Palette,
		CellOverride: s.importCells,
	}
}

func (s *PreviewSession) submit(req Request, imported bool) {
	if s.ctx.Err() != nil {
		return
	}
	_, done, err := s.queue.Submit(s.ctx, req)
	if err != nil {
		s.fail(err)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := <-done
		switch {
		case res.Cancelled:
		case res.Err != nil:
			s.fail(res.Err)
		case s.onFrame != nil:
			s.onFrame(PreviewFrame{ID: res.ID, Frame: res.Frame, Effect: req.Effect, Import: imported})
		}
	}()
}

func (s *PreviewSession) fail(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	Logger().Warn("preview render failed", "error", err)
}

// Import switches the session to a still image and renders it with the
// import cell budget. Camera frames are ignored until CancelImport or a
// successful Capture.
func (s *PreviewSession) Import(ctx context.Context, src *imageutil.PixelBuffer) (AsciiFrame, error) {
	if err := src.Validate(); err != nil {
		return AsciiFrame{}, err
	}
	s.mu.Lock()
	s.imported = src
	st := s.settings
	s.mu.Unlock()

	res := s.queue.Render(ctx, s.importRequest(src, st))
	if res.Cancelled {
		return AsciiFrame{}, context.Canceled
	}
	return res.Frame, res.Err
}

// CancelImport leaves import mode and drops the latest camera frame.
func (s *PreviewSession) CancelImport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = nil
	s.latest = nil
}

// Capture renders the imported still, or the latest camera frame, at
// capture resolution. Capturing an import ends import mode.
func (s *PreviewSession) Capture(ctx context.Context) (AsciiFrame, Settings, error) {
	s.mu.Lock()
	st := s.settings
	src, imported := s.latest, false
	if s.imported != nil {
		src, imported = s.imported, true
	}
	s.mu.Unlock()
	if src == nil {
		return AsciiFrame{}, st, ErrNoFrame
	}

	res := s.queue.Render(ctx, Request{Kind: CaptureJob, Source: src, Effect: st.Effect, Parameters: st.Parameters, Palette: st.Palette})
	switch {
	case res.Cancelled:
		return AsciiFrame{}, st, context.Canceled
	case res.Err != nil:
		return AsciiFrame{}, st, res.Err
	}
	if imported {
		s.CancelImport()
	}
	return res.Frame, st, nil
}

// Close stops pending re-renders and waits for outstanding callbacks.
func (s *PreviewSession) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
