// Package grid sizes the glyph grid for a render under a cell budget.
package grid

import "math"

// Grid bounds.
const (
	MinColumns = 40
	MaxColumns = 180
	MinRows    = 30
	MaxRows    = 140
)

// Descriptor is the size of a glyph grid.
type Descriptor struct {
	Columns int
	Rows    int
}

// TotalCells returns Columns*Rows.
func (d Descriptor) TotalCells() int {
	return d.Columns * d.Rows
}

// Make computes the grid for a density in [0,100] and a target aspect
// (width/height). Columns shrink first, then rows, until the grid fits in
// maxCells. When the minimum grid is larger than maxCells the result
// exceeds the budget.
func Make(density, aspect float64, maxCells int) Descriptor {
	if math.IsNaN(density) {
		density = 0
	}
	density = math.Max(0, math.Min(100, density))
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		aspect = Landscape.Aspect()
	}

	columns := clamp(int(math.Round(MinColumns+density/100*(MaxColumns-MinColumns))), MinColumns, MaxColumns)
	rows := rowsFor(columns, aspect)

	for columns*rows > maxCells && columns > MinColumns {
		columns--
		rows = rowsFor(columns, aspect)
	}
	for columns*rows > maxCells && rows > MinRows {
		rows--
	}
	return Descriptor{Columns: columns, Rows: rows}
}

func rowsFor(columns int, aspect float64) int {
	return clamp(int(math.Round(float64(columns)/aspect)), MinRows, MaxRows)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
