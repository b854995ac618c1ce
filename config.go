package monoart

import "fmt"

// Cell budgets.
const (
	DefaultMaxPreviewCells = 18000
	DefaultMaxCaptureCells = 64000

	// ImportPreviewCells is the preview budget for imported stills, which
	// are rendered once rather than per camera frame.
	ImportPreviewCells = 36000
)

// EngineConfiguration bounds the grid size of each render path.
type EngineConfiguration struct {
	MaxPreviewCells int `toml:"max_preview_cells"`
	MaxCaptureCells int `toml:"max_capture_cells"`
}

// DefaultEngineConfiguration returns 18000 preview and 64000 capture cells.
func DefaultEngineConfiguration() EngineConfiguration {
	return EngineConfiguration{
		MaxPreviewCells: DefaultMaxPreviewCells,
		MaxCaptureCells: DefaultMaxCaptureCells,
	}
}

// withDefaults fills zero budgets and rejects negative ones.
func (c EngineConfiguration) withDefaults() (EngineConfiguration, error) {
	if c.MaxPreviewCells < 0 || c.MaxCaptureCells < 0 {
		return c, &ConfigurationError{Reason: fmt.Sprintf("negative cell budget (preview %d, capture %d)", c.MaxPreviewCells, c.MaxCaptureCells)}
	}
	if c.MaxPreviewCells == 0 {
		c.MaxPreviewCells = DefaultMaxPreviewCells
	}
	if c.MaxCaptureCells == 0 {
		c.MaxCaptureCells = DefaultMaxCaptureCells
	}
	return c, nil
}
