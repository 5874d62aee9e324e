package rendertext

import (
	"log/slog"

	"github.com/gogpu/rendertext/internal/logging"
)

// SetLogger configures the logger for rendertext and all its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels used:
//   - [slog.LevelDebug]: pipeline stages, cache evictions
//   - [slog.LevelWarn]: font load failures, unrenderable clusters, glyph
//     rasterization failures
//   - [slog.LevelError]: corrupt glyph cache entries
//
// Example:
//
//	rendertext.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger. It is never nil.
func Logger() *slog.Logger {
	return logging.Logger()
}
