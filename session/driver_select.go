package session

import (
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
)

// NewDriver selects the driver variant once at startup: the real win32
// driver where the platform supports it, the simulation substitute
// everywhere else. forceSim pins simulation regardless of platform.
func NewDriver(cfg *config.Config, logger *zap.SugaredLogger, forceSim bool) Driver {
	if forceSim {
		logger.Info("Simulation driver selected (forced)")
		return NewSimDriver(logger)
	}
	return newPlatformDriver(cfg, logger)
}
