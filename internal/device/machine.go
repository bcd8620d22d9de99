package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	"roompanel-firmware/internal/metrics"
	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/ota"
	"roompanel-firmware/internal/store"
	"roompanel-firmware/internal/touch"
	"roompanel-firmware/internal/ui"
)

// Deps are the collaborators injected into the machine. Everything the loop
// touches goes through these, so tests can run the machine against fakes.
type Deps struct {
	Store     store.Store
	Codec     Codec
	UI        *ui.Manager
	Touch     touch.Source
	Net       Network
	Restarter Restarter
	Web       WebEndpoint
	Updater   ota.Updater
	Observer  ConnectivityObserver
	Logger    *zap.Logger
	Version   string
	Timings   Timings

	// Now and Sleep default to the real clock; tests override both.
	Now   func() time.Time
	Sleep func(d time.Duration)
}

// Machine is the device runtime core: a single-threaded cooperative state
// machine. All mutable state below is touched only from the loop goroutine;
// the exported ApplyConfig/FactoryReset enqueue work for the next turn.
type Machine struct {
	store     store.Store
	codec     Codec
	ui        *ui.Manager
	touch     touch.Source
	net       Network
	restarter Restarter
	web       WebEndpoint
	observer  ConnectivityObserver
	updater   ota.Updater
	ota       *ota.Orchestrator
	logger    *zap.Logger
	version   string
	timings   Timings
	now       func() time.Time
	sleep     func(d time.Duration)

	commands chan func(ctx context.Context)

	deviceCfg model.DeviceConfig
	conn      ConnectivityState
	prov      ProvisioningState

	booted           bool
	safeMode         bool
	bootGuardCleared bool

	lastStatus model.RoomStatus
	haveStatus bool
	// forceRedraw makes the next successful poll redraw even when the diff
	// says nothing changed, e.g. after a transition screen.
	forceRedraw bool

	connectionLost bool
	lastPoll       time.Time
	lastRetry      time.Time
	lastPing       time.Time
	lastUpdate     time.Time

	everConnected     bool
	lostAt            time.Time
	reconnectAttempts int
	lastReconnect     time.Time
	wifiScreenShown   bool

	debouncer        *touch.Debouncer
	lastActivity     time.Time
	backlightOn      bool
	menuDurations    []int
	selectedDuration int
	lastProgressPct  int
}

// NewMachine wires a machine from its dependencies.
func NewMachine(d Deps) *Machine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.Timings.LoopTick <= 0 {
		d.Timings = DefaultTimings()
	}

	m := &Machine{
		store:     d.Store,
		codec:     d.Codec,
		ui:        d.UI,
		touch:     d.Touch,
		net:       d.Net,
		restarter: d.Restarter,
		web:       d.Web,
		observer:  d.Observer,
		updater:   d.Updater,
		logger:    d.Logger,
		version:   d.Version,
		timings:   d.Timings,
		now:       d.Now,
		sleep:     d.Sleep,
		commands:  make(chan func(ctx context.Context), commandQueueSize),
		debouncer: touch.NewDebouncer(d.Timings.Debounce),
	}
	if d.Updater != nil {
		m.ota = ota.New(d.Codec, d.Updater, m, d.Version, d.Logger)
	}
	return m
}

// Boot runs the pre-network startup path: boot-loop guard first, then stored
// configuration. No API call happens here.
func (m *Machine) Boot(ctx context.Context) error {
	m.ui.ShowStartup(m.version)
	m.ui.SetBacklight(true)
	m.backlightOn = true
	m.lastActivity = m.now()

	count, err := m.store.BootCount(ctx)
	if err != nil {
		return err
	}
	if count >= BootLoopThreshold {
		// Safe mode: only the provisioning endpoint runs. The counter is
		// reset so a deliberate manual restart starts clean.
		m.safeMode = true
		if err := m.store.SetBootCount(ctx, 0); err != nil {
			m.logger.Error("failed to reset boot counter", zap.Error(err))
		}
		metrics.BootCount.Set(0)
		m.logger.Warn("boot loop detected, entering safe mode", zap.Int("boots", count))
	} else {
		newCount, err := m.store.MarkBoot(ctx, m.now())
		if err != nil {
			return err
		}
		metrics.BootCount.Set(float64(newCount))
	}

	cfg, err := m.store.LoadDeviceConfig(ctx)
	if err != nil {
		return err
	}
	m.deviceCfg = cfg
	m.codec.SetConfig(cfg.ServerURL, cfg.DeviceToken)
	m.ui.SetTimezone(cfg.Timezone)
	if cfg.Configured() {
		m.prov = Configured
	} else {
		m.prov = Unconfigured
	}

	m.logger.Info("device booted",
		zap.String("version", m.version),
		zap.Bool("configured", cfg.Configured()),
		zap.Bool("safe_mode", m.safeMode))
	return nil
}

// Run boots the machine and drives the cooperative loop until the context
// ends.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Boot(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(m.timings.LoopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.web.Stop(); err != nil {
				m.logger.Warn("web endpoint stop failed", zap.Error(err))
			}
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick performs one cooperative iteration: provisioning commands, then
// connectivity, then touch, screen timeout and at most the due timers.
func (m *Machine) Tick(ctx context.Context) {
	m.drainCommands(ctx)

	if !m.checkConnectivity(ctx) {
		return
	}

	if !m.booted {
		m.firstTurn(ctx)
		return
	}

	if m.safeMode {
		return
	}
	if m.prov != Configured {
		// Idle except for the setup screen's own buttons.
		m.dispatchTouch(ctx)
		m.enforceScreenTimeout()
		return
	}

	m.dispatchTouch(ctx)
	m.enforceScreenTimeout()

	now := m.now()
	if m.connectionLost {
		// Backoff suppresses the normal timers; only the status retry runs.
		if now.Sub(m.lastRetry) >= m.timings.Retry {
			m.refreshStatus(ctx, true)
		}
		return
	}

	if now.Sub(m.lastPoll) >= m.timings.StatusPoll {
		m.refreshStatus(ctx, false)
	}
	if now.Sub(m.lastPing) >= m.timings.Ping {
		m.lastPing = now
		if !m.codec.Ping(ctx) {
			m.logger.Warn("server ping failed")
		}
	}
	if now.Sub(m.lastUpdate) >= m.timings.FirmwareCheck {
		m.runFirmwareUpdate(ctx, false)
	}
}

// firstTurn runs once, on the first loop turn with the link up.
func (m *Machine) firstTurn(ctx context.Context) {
	m.booted = true
	m.lastPing = m.now()

	if m.safeMode {
		m.ui.ShowTokenSetup(m.net.LocalAddr())
		m.logger.Info("safe mode: provisioning endpoint only",
			zap.String("addr", m.net.LocalAddr()))
		return
	}

	if m.prov != Configured {
		m.ui.ShowTokenSetup(m.net.LocalAddr())
		m.logger.Info("device not configured",
			zap.String("addr", m.net.LocalAddr()))
		return
	}

	m.runFirmwareUpdate(ctx, true)
	m.ui.ShowLoading("Loading room status...")
	m.refreshStatus(ctx, true)
}

func (m *Machine) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-m.commands:
			cmd(ctx)
		default:
			return
		}
	}
}

// enqueue schedules work for the next loop turn. Callers run outside the
// loop goroutine (gin handlers); the closure runs inside it.
func (m *Machine) enqueue(cmd func(ctx context.Context)) {
	select {
	case m.commands <- cmd:
	default:
		m.logger.Warn("command queue full, dropping provisioning command")
	}
}

// ApplyConfig installs a new device configuration on the next loop turn and
// immediately tries the server with it.
func (m *Machine) ApplyConfig(cfg model.DeviceConfig) {
	m.enqueue(func(ctx context.Context) {
		cfg.Normalize()
		m.deviceCfg = cfg
		m.codec.SetConfig(cfg.ServerURL, cfg.DeviceToken)
		m.ui.SetTimezone(cfg.Timezone)

		if m.safeMode {
			// A fresh configuration in safe mode gets a clean boot.
			m.restart("reconfigured in safe mode")
			return
		}
		if !cfg.Configured() {
			if m.prov == Configured {
				m.prov = SetupMode
			} else {
				m.prov = Unconfigured
			}
			m.ui.ShowTokenSetup(m.net.LocalAddr())
			return
		}
		m.prov = Configured
		m.connectionLost = false
		m.ui.ShowLoading("Connecting to server...")
		m.refreshStatus(ctx, true)
	})
}

// FactoryReset wipes all persisted state and restarts the device.
func (m *Machine) FactoryReset() {
	m.enqueue(func(ctx context.Context) {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error("factory reset: clearing settings failed", zap.Error(err))
		}
		m.restart("factory reset")
	})
}

func (m *Machine) restart(reason string) {
	metrics.Restarts.Inc()
	m.logger.Warn("restarting device", zap.String("reason", reason))
	if err := m.web.Stop(); err != nil {
		m.logger.Warn("web endpoint stop failed", zap.Error(err))
	}
	m.restarter.Restart(reason)
}

// checkConnectivity reports whether the link is up, driving the
// reconnection policy while it is not.
func (m *Machine) checkConnectivity(ctx context.Context) bool {
	if m.net.Connected() {
		if m.conn != Connected {
			m.setConn(Connected)
			m.everConnected = true
			m.wifiScreenShown = false
			m.reconnectAttempts = 0
			if err := m.web.Start(); err != nil {
				m.logger.Error("web endpoint start failed", zap.Error(err))
			}
			m.logger.Info("wifi link up", zap.String("addr", m.net.LocalAddr()))
			// A reconnect invalidates whatever the screen shows.
			if m.booted && m.prov == Configured && !m.safeMode {
				m.refreshStatus(ctx, true)
			}
		}
		return true
	}

	now := m.now()
	switch {
	case m.conn == Connected:
		// First detected drop: record it, clear the local server, try once
		// immediately.
		m.setConn(Reconnecting)
		m.lostAt = now
		m.lastReconnect = now
		m.reconnectAttempts = 1
		if err := m.web.Stop(); err != nil {
			m.logger.Warn("web endpoint stop failed", zap.Error(err))
		}
		metrics.Reconnects.Inc()
		m.logger.Warn("wifi link lost, reconnecting")
		if err := m.net.Reconnect(); err != nil {
			m.logger.Warn("reconnect attempt failed", zap.Error(err))
		}

	case m.conn == Reconnecting:
		if now.Sub(m.lostAt) >= m.timings.ReconnectCeiling {
			// A wedged radio stack is not reliably recoverable in-process.
			m.restart("wifi reconnect ceiling reached")
			return false
		}
		if now.Sub(m.lastReconnect) >= m.timings.ReconnectSpacing {
			m.lastReconnect = now
			m.reconnectAttempts++
			metrics.Reconnects.Inc()
			m.logger.Warn("wifi still down, retrying",
				zap.Int("attempt", m.reconnectAttempts),
				zap.Duration("down_for", now.Sub(m.lostAt)))
			if err := m.net.Reconnect(); err != nil {
				m.logger.Warn("reconnect attempt failed", zap.Error(err))
			}
		}

	default:
		// Never connected since boot: the captive portal flow owns this.
		// Keep prodding the radio but never restart out from under the
		// person standing at the portal.
		if !m.wifiScreenShown {
			m.wifiScreenShown = true
			m.ui.ShowWifiSetup(WifiAPName, WifiAPPassword)
		}
		if now.Sub(m.lastReconnect) >= m.timings.ReconnectSpacing {
			m.lastReconnect = now
			if err := m.net.Reconnect(); err != nil {
				m.logger.Warn("reconnect attempt failed", zap.Error(err))
			}
		}
	}
	return false
}

func (m *Machine) setConn(state ConnectivityState) {
	if m.conn == state {
		return
	}
	m.conn = state
	if state == Connected {
		metrics.Connected.Set(1)
	} else {
		metrics.Connected.Set(0)
	}
	if m.observer != nil {
		m.observer.ConnectivityChanged(state)
	}
}

func (m *Machine) enforceScreenTimeout() {
	if !m.backlightOn {
		return
	}
	if m.now().Sub(m.lastActivity) >= m.timings.ScreenTimeout {
		m.backlightOn = false
		m.ui.SetBacklight(false)
		m.logger.Debug("screen timeout, backlight off")
	}
}

// ConnectivityState exposes the link state for observers and tests.
func (m *Machine) ConnectivityState() ConnectivityState {
	return m.conn
}

// ProvisioningState exposes the configuration state for observers and tests.
func (m *Machine) ProvisioningState() ProvisioningState {
	return m.prov
}

// SafeMode reports whether the boot-loop guard engaged.
func (m *Machine) SafeMode() bool {
	return m.safeMode
}
