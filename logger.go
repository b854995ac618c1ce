package monoart

import (
	"log/slog"

	"github.com/Barryalien23/monoart/internal/logx"
)

// SetLogger sets the logger used by monoart and all of its packages.
// By default nothing is logged. Passing nil restores the silent default.
//
// Levels: Debug for per-render detail and atlas builds, Info for device
// selection and preview lifecycle, Warn for GPU fallback.
func SetLogger(l *slog.Logger) {
	logx.Set(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logx.Logger()
}
