package preview

import (
	"encoding/binary"
	"math"

	"github.com/Barryalien23/monoart/effect"
)

// UniformSize is the byte size of the uniform block, padded to 16 bytes.
const UniformSize = 96

// Uniforms mirrors the Uniforms struct in preview.wgsl.
type Uniforms struct {
	TargetSize [2]float32
	VideoSize  [2]float32
	CellSize   [2]uint32
	AtlasGrid  [2]uint32
	ColorA     [4]float32
	ColorB     [4]float32
	Contrast   float32
	Jitter     float32
	Time       float32
	Mirror     float32
	GlyphCount uint32
}

// CellPixels maps the cell parameter to a preview cell edge: 12px at 0
// down to 4px at 100.
func CellPixels(cell float64) int {
	return max(int(12-effect.Clamp(cell)/effect.MaxValue*8), 1)
}

// Bytes packs the block little-endian in WGSL uniform layout.
func (u Uniforms) Bytes() []byte {
	b := make([]byte, UniformSize)
	f := func(off int, v float32) { binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v)) }
	i := func(off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

	f(0, u.TargetSize[0])
	f(4, u.TargetSize[1])
	f(8, u.VideoSize[0])
	f(12, u.VideoSize[1])
	i(16, u.CellSize[0])
	i(20, u.CellSize[1])
	i(24, u.AtlasGrid[0])
	i(28, u.AtlasGrid[1])
	for k := 0; k < 4; k++ {
		f(32+4*k, u.ColorA[k])
		f(48+4*k, u.ColorB[k])
	}
	f(64, u.Contrast)
	f(68, u.Jitter)
	f(72, u.Time)
	f(76, u.Mirror)
	i(80, u.GlyphCount)
	return b
}

// uniformsFor builds the block for one frame.
func uniformsFor(s Snapshot, targetW, targetH int, atlasCols, atlasRows, glyphs int, time float32) Uniforms {
	bg, fg := s.Palette.PreviewColors()
	cell := uint32(CellPixels(s.Parameters.Cell))
	u := Uniforms{
		TargetSize: [2]float32{float32(targetW), float32(targetH)},
		CellSize:   [2]uint32{cell, cell},
		AtlasGrid:  [2]uint32{uint32(atlasCols), uint32(atlasRows)},
		ColorA:     bg.Floats(),
		ColorB:     fg.Floats(),
		Contrast:   float32(s.Parameters.Softy / effect.MaxValue),
		Jitter:     float32(s.Parameters.Jitter / effect.MaxValue),
		Time:       time,
		GlyphCount: uint32(glyphs),
	}
	if s.Video != nil {
		u.VideoSize = [2]float32{float32(s.Video.Width), float32(s.Video.Height)}
	}
	if s.Mirror {
		u.Mirror = 1
	}
	return u
}
