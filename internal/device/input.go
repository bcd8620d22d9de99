package device

import (
	"context"

	"go.uber.org/zap"

	"roompanel-firmware/internal/metrics"
	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/ota"
	"roompanel-firmware/internal/ui"
)

// dispatchTouch reads at most one touch event per turn and routes it by the
// current screen. A touch on a dark screen only wakes the backlight.
func (m *Machine) dispatchTouch(ctx context.Context) {
	pt, ok := m.touch.Read()
	if !ok {
		return
	}
	now := m.now()
	if !m.debouncer.Accept(now) {
		return
	}
	m.lastActivity = now

	if !m.backlightOn {
		// Wake only; the touch is never interpreted as a press. The status
		// screen repaints right away instead of waiting for the next poll.
		m.backlightOn = true
		m.ui.SetBacklight(true)
		if m.haveStatus && m.ui.State() == ui.StateRoomStatus {
			m.ui.ShowRoomStatus(m.lastStatus)
		}
		return
	}

	// A result screen left on display returns to live status on any touch.
	if m.ui.State() == ui.StateBookingResult {
		m.refreshStatus(ctx, true)
		return
	}

	idx := m.ui.ButtonAt(pt.X, pt.Y)
	if idx < 0 {
		return
	}
	m.logger.Debug("button pressed",
		zap.String("screen", m.ui.State().String()),
		zap.Int("button", idx))

	switch m.ui.State() {
	case ui.StateRoomStatus:
		m.handleStatusButton(ctx, idx)
	case ui.StateQuickBookMenu:
		m.handleMenuButton(ctx, idx)
	case ui.StateBookingConfirm:
		m.handleConfirmButton(ctx, idx)
	case ui.StateError:
		if idx == 0 {
			m.ui.ShowLoading("Retrying...")
			m.refreshStatus(ctx, true)
		}
	case ui.StateTokenSetup:
		m.handleTokenSetupButton(ctx, idx)
	}
}

func (m *Machine) handleStatusButton(ctx context.Context, idx int) {
	if m.lastStatus.IsAvailable {
		switch idx {
		case 0:
			m.menuDurations = m.lastStatus.Room.Durations()
			m.ui.ShowQuickBookMenu(m.menuDurations)
		case 1:
			m.refreshStatus(ctx, true)
		}
		return
	}
	switch idx {
	case 0:
		m.refreshStatus(ctx, true)
	case 1:
		m.performEndMeeting(ctx)
	}
}

func (m *Machine) handleMenuButton(ctx context.Context, idx int) {
	if idx >= 0 && idx < len(m.menuDurations) {
		m.selectedDuration = m.menuDurations[idx]
		m.ui.ShowBookingConfirm(m.selectedDuration)
		return
	}
	// Last button is Cancel.
	m.returnToStatus()
}

func (m *Machine) handleConfirmButton(ctx context.Context, idx int) {
	switch idx {
	case 0:
		m.ui.ShowQuickBookMenu(m.menuDurations)
	case 1:
		m.performQuickBook(ctx)
	}
}

// handleTokenSetupButton implements the on-device half of provisioning:
// Clear wipes the stored server configuration, Save re-reads it and retries.
func (m *Machine) handleTokenSetupButton(ctx context.Context, idx int) {
	switch idx {
	case 0:
		empty := model.DeviceConfig{Timezone: m.deviceCfg.Timezone}
		if err := m.store.SaveDeviceConfig(ctx, empty); err != nil {
			m.logger.Error("clearing device config failed", zap.Error(err))
		}
		m.deviceCfg = empty
		m.codec.SetConfig("", "")
		if m.prov == Configured {
			m.prov = SetupMode
		}
		m.ui.ShowTokenSetup(m.net.LocalAddr())
	case 1:
		cfg, err := m.store.LoadDeviceConfig(ctx)
		if err != nil {
			m.logger.Error("reloading device config failed", zap.Error(err))
			return
		}
		if !cfg.Configured() {
			return
		}
		m.deviceCfg = cfg
		m.codec.SetConfig(cfg.ServerURL, cfg.DeviceToken)
		m.ui.SetTimezone(cfg.Timezone)
		m.prov = Configured
		m.ui.ShowLoading("Connecting to server...")
		m.refreshStatus(ctx, true)
	}
}

// returnToStatus leaves a transient screen for the last known status without
// hitting the network.
func (m *Machine) returnToStatus() {
	if m.haveStatus {
		m.ui.ShowRoomStatus(m.lastStatus)
		return
	}
	m.forceRedraw = true
	m.ui.ShowLoading("Loading room status...")
}

func (m *Machine) performQuickBook(ctx context.Context) {
	metrics.BookingsAttempted.Inc()
	m.ui.ShowLoading("Booking room...")

	res := m.codec.QuickBook(ctx, QuickBookTitle, m.selectedDuration)
	if res.Success {
		metrics.BookingsSucceeded.Inc()
	}
	m.logger.Info("quick book finished",
		zap.Int("minutes", m.selectedDuration),
		zap.Bool("success", res.Success),
		zap.String("message", res.Message))

	m.ui.ShowBookingResult(res.Success, res.Message)
	m.sleep(m.timings.ResultDwell)
	m.refreshStatus(ctx, true)
}

func (m *Machine) performEndMeeting(ctx context.Context) {
	m.ui.ShowLoading("Ending meeting...")

	res := m.codec.EndMeeting(ctx)
	m.logger.Info("end meeting finished",
		zap.Bool("success", res.Success),
		zap.String("message", res.Message))

	m.ui.ShowBookingResult(res.Success, res.Message)
	m.sleep(m.timings.ResultDwell)
	m.refreshStatus(ctx, true)
}

// runFirmwareUpdate performs one OTA pass. announce surfaces the no-update
// outcome on screen; the boot-time check announces, the periodic timer stays
// silent so the status screen is not interrupted every few minutes.
func (m *Machine) runFirmwareUpdate(ctx context.Context, announce bool) {
	m.lastUpdate = m.now()
	if m.ota == nil {
		return
	}
	m.lastProgressPct = -1

	// Failures are already logged by the orchestrator.
	result, _ := m.ota.RunOnce(ctx)
	switch result {
	case ota.ResultNoUpdate:
		if announce {
			m.ui.ShowUpdateResult(true, "Firmware up to date")
			m.sleep(m.timings.ResultDwell)
		}
	case ota.ResultApplied:
		m.ui.ShowUpdateResult(true, "Update installed, restarting...")
		m.sleep(m.timings.ResultDwell)
		m.restart("firmware update applied")
	case ota.ResultFailed:
		m.ui.ShowUpdateResult(false, "Update failed")
		m.sleep(m.timings.ResultDwell)
		m.forceRedraw = true
		if m.haveStatus {
			m.ui.ShowRoomStatus(m.lastStatus)
		}
	}
}

// UpdateStarted implements ota.ProgressObserver.
func (m *Machine) UpdateStarted(version string) {
	m.ui.ShowUpdateProgress(version, 0, -1)
}

// UpdateProgress implements ota.ProgressObserver. Redraws are throttled to
// whole-percent steps to keep the download fast on a slow display bus.
func (m *Machine) UpdateProgress(version string, written, total int64) {
	if total > 0 {
		pct := int(written * 100 / total)
		if pct == m.lastProgressPct {
			return
		}
		m.lastProgressPct = pct
	}
	m.ui.ShowUpdateProgress(version, written, total)
}

// UpdateCompleted implements ota.ProgressObserver.
func (m *Machine) UpdateCompleted(version string) {}

// UpdateFailed implements ota.ProgressObserver.
func (m *Machine) UpdateFailed(version string, err error) {}
