//go:build !windows

package session

import (
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
)

// newPlatformDriver falls back to simulation on platforms without the win32
// automation layer. Queueing, watching, and spreadsheet handling all run
// normally; only EZCAD2 control is simulated.
func newPlatformDriver(cfg *config.Config, logger *zap.SugaredLogger) Driver {
	logger.Warn("Real automation layer unavailable on this platform, running in simulation mode")
	return NewSimDriver(logger)
}
