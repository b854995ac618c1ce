package monoart

import (
	"context"
	"sync"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

// StubText is the fixed frame returned by StubEngine.
const StubText = "▒░▒░\n░▒░▒"

// StubEngine returns a fixed 4x2 frame without touching its inputs. It
// lets hosts exercise their pipeline where no renderer is wanted.
type StubEngine struct {
	mu       sync.Mutex
	prepared bool
	cfg      EngineConfiguration
}

// NewStubEngine creates an unprepared stub.
func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

// Prepare records cfg.
func (s *StubEngine) Prepare(cfg EngineConfiguration) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.prepared = true
	return nil
}

// Configuration returns the configuration passed to Prepare.
func (s *StubEngine) Configuration() EngineConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RenderPreview implements Engine.
func (s *StubEngine) RenderPreview(ctx context.Context, _ *imageutil.PixelBuffer, _ effect.Type, _ effect.Parameters, _ palette.State) (AsciiFrame, error) {
	return s.frame(ctx)
}

// RenderCapture implements Engine.
func (s *StubEngine) RenderCapture(ctx context.Context, _ *imageutil.PixelBuffer, _ effect.Type, _ effect.Parameters, _ palette.State, _ int) (AsciiFrame, error) {
	return s.frame(ctx)
}

func (s *StubEngine) frame(ctx context.Context) (AsciiFrame, error) {
	s.mu.Lock()
	prepared := s.prepared
	s.mu.Unlock()
	if !prepared {
		return AsciiFrame{}, &ConfigurationError{Reason: "prepare was not called"}
	}
	if err := ctx.Err(); err != nil {
		return AsciiFrame{}, err
	}
	return AsciiFrame{GlyphText: StubText, Columns: 4, Rows: 2}, nil
}
