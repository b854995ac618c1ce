package preview

import (
	"sync"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

// TimeStep is how far the animation clock advances per drawn frame.
const TimeStep = 0.016

// State is the mutable preview state. One writer updates it while the
// draw loop reads snapshots.
type State struct {
	mu sync.RWMutex

	video      *imageutil.PixelBuffer
	videoSeq   uint64
	effect     effect.Type
	effectSeq  uint64
	parameters effect.Parameters
	palette    palette.State
	mirror     bool
	time       float32
}

// Snapshot is a consistent copy of State taken under the read lock.
type Snapshot struct {
	Video      *imageutil.PixelBuffer
	VideoSeq   uint64
	Effect     effect.Type
	EffectSeq  uint64
	Parameters effect.Parameters
	Palette    palette.State
	Mirror     bool
	Time       float32
}

// NewState returns a state showing the ascii effect with default
// parameters and palette.
func NewState() *State {
	return &State{
		effect:     effect.ASCII,
		parameters: effect.DefaultParameters(),
		palette:    palette.Default(),
	}
}

// UpdateVideo replaces the latest camera frame.
func (s *State) UpdateVideo(buf *imageutil.PixelBuffer) {
	s.mu.Lock()
	s.video = buf
	s.videoSeq++
	s.mu.Unlock()
}

// UpdateParameters stores the effect, parameters and palette. Switching
// effect bumps EffectSeq so the renderer reloads the atlas.
func (s *State) UpdateParameters(t effect.Type, p effect.Parameters, pal palette.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.effect {
		s.effect = t
		s.effectSeq++
	}
	s.parameters = p.Clamped()
	s.palette = pal
}

// UpdateCameraPosition mirrors the preview for the front camera.
func (s *State) UpdateCameraPosition(front bool) {
	s.mu.Lock()
	s.mirror = front
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Video:      s.video,
		VideoSeq:   s.videoSeq,
		Effect:     s.effect,
		EffectSeq:  s.effectSeq,
		Parameters: s.parameters,
		Palette:    s.palette,
		Mirror:     s.mirror,
		Time:       s.time,
	}
}

// tick advances the animation clock and returns the new time.
func (s *State) tick() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.time += TimeStep
	return s.time
}
