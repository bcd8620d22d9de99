package hw

import (
	"os"

	"go.uber.org/zap"
)

// ProcessRestarter exits the process; the supervisor (systemd with
// Restart=always) brings it back up on the current firmware image.
type ProcessRestarter struct {
	logger *zap.Logger
}

func NewProcessRestarter(logger *zap.Logger) *ProcessRestarter {
	return &ProcessRestarter{logger: logger}
}

func (r *ProcessRestarter) Restart(reason string) {
	r.logger.Warn("exiting for restart", zap.String("reason", reason))
	_ = r.logger.Sync()
	os.Exit(1)
}
