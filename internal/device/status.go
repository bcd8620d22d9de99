package device

import (
	"context"

	"go.uber.org/zap"

	"roompanel-firmware/internal/metrics"
	"roompanel-firmware/internal/model"
)

// refreshStatus fetches one status snapshot and reconciles the screen with
// it. forced bypasses the redraw diff, used after transition screens and for
// backoff retries.
func (m *Machine) refreshStatus(ctx context.Context, forced bool) {
	now := m.now()
	m.lastPoll = now
	m.lastRetry = now
	metrics.PollCycles.Inc()

	status := m.codec.FetchStatus(ctx)
	if !status.IsValid {
		metrics.PollFailures.Inc()
		m.logger.Warn("status fetch failed", zap.String("error", status.ErrorMessage))

		if !m.deviceCfg.Configured() {
			m.ui.ShowTokenSetup(m.net.LocalAddr())
			return
		}
		// A configured device that cannot reach the server backs off; it
		// never drops back to setup.
		m.connectionLost = true
		msg := status.ErrorMessage
		if msg == "" {
			msg = "Cannot reach server"
		}
		m.ui.ShowError(msg, m.timings.Retry)
		return
	}

	// First good snapshot since boot clears the boot-loop counter.
	if !m.bootGuardCleared {
		m.bootGuardCleared = true
		if err := m.store.SetBootCount(ctx, 0); err != nil {
			m.logger.Error("failed to clear boot counter", zap.Error(err))
		}
		metrics.BootCount.Set(0)
	}

	m.connectionLost = false
	m.prov = Configured
	if status.IsAvailable {
		metrics.RoomAvailable.Set(1)
	} else {
		metrics.RoomAvailable.Set(0)
	}

	redraw := forced || m.forceRedraw || !m.haveStatus ||
		!model.EqualForRedraw(m.lastStatus, status)
	if redraw {
		metrics.Redraws.Inc()
		m.ui.ShowRoomStatus(status)
		m.logger.Debug("status screen redrawn",
			zap.String("room", status.Room.Name),
			zap.Bool("available", status.IsAvailable),
			zap.Int("upcoming", status.UpcomingCount))
	}
	m.lastStatus = status
	m.haveStatus = true
	m.forceRedraw = false
}
