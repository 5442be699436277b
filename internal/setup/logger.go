package setup

import (
	"log/slog"
	"sync/atomic"

	"github.com/eolab-hsrw/easypx4/internal/logging"
)

var packageLogger atomic.Pointer[slog.Logger]

// SetLogger configures the logger used by setup steps. Nil restores the process
// default.
func SetLogger(logger *slog.Logger) {
	packageLogger.Store(logger)
}

func getLogger() *slog.Logger {
	return logging.Ensure(packageLogger.Load()).With("component", "setup")
}
