package device

import (
	"context"
	"io"
	"time"

	"roompanel-firmware/internal/model"
)

// ConnectivityState tracks the WiFi link, independent of whether the device
// is configured.
type ConnectivityState int

const (
	Disconnected ConnectivityState = iota
	Reconnecting
	Connected
)

func (s ConnectivityState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ProvisioningState tracks whether a working server configuration exists.
type ProvisioningState int

const (
	// Unconfigured means no server URL or token was ever stored.
	Unconfigured ProvisioningState = iota
	// SetupMode means the device worked before but its configuration was
	// cleared; the re-provision screen is showing.
	SetupMode
	// Configured means polling and booking are permitted.
	Configured
)

// Codec is the remote status codec the machine drives. Operational calls
// return sentinel results instead of errors; only the firmware download
// reports an error, which the OTA orchestrator handles.
type Codec interface {
	SetConfig(serverURL, token string)
	Configured() bool
	FetchStatus(ctx context.Context) model.RoomStatus
	QuickBook(ctx context.Context, title string, durationMinutes int) model.BookResult
	EndMeeting(ctx context.Context) model.EndMeetingResult
	Ping(ctx context.Context) bool
	ReportVersion(ctx context.Context, version string) bool
	CheckFirmwareUpdate(ctx context.Context) model.UpdateCheck
	DownloadFirmware(ctx context.Context, version string, sink io.Writer, progress func(written, total int64)) error
}

// Network is the WiFi layer. Reconnect must not block for long; the captive
// portal provisioning flow behind it is a black box that eventually yields a
// connected link.
type Network interface {
	Connected() bool
	Reconnect() error
	LocalAddr() string
}

// Restarter performs the full process restart used as the last-resort
// recovery and as the activation step after a firmware update.
type Restarter interface {
	Restart(reason string)
}

// WebEndpoint is the local provisioning server, started while the link is up
// and stopped while it is down.
type WebEndpoint interface {
	Start() error
	Stop() error
}

// ConnectivityObserver is notified synchronously, within the loop turn, when
// the link state changes. Implementations must return promptly.
type ConnectivityObserver interface {
	ConnectivityChanged(state ConnectivityState)
}

// Timings collects every cadence the loop runs on. Tests shrink these.
type Timings struct {
	LoopTick         time.Duration
	StatusPoll       time.Duration
	Ping             time.Duration
	FirmwareCheck    time.Duration
	Retry            time.Duration
	ReconnectSpacing time.Duration
	ReconnectCeiling time.Duration
	ScreenTimeout    time.Duration
	Debounce         time.Duration
	ResultDwell      time.Duration
}

// DefaultTimings returns the production cadences.
func DefaultTimings() Timings {
	return Timings{
		LoopTick:         50 * time.Millisecond,
		StatusPoll:       30 * time.Second,
		Ping:             60 * time.Second,
		FirmwareCheck:    5 * time.Minute,
		Retry:            30 * time.Second,
		ReconnectSpacing: 10 * time.Second,
		ReconnectCeiling: 60 * time.Second,
		ScreenTimeout:    2 * time.Minute,
		Debounce:         300 * time.Millisecond,
		ResultDwell:      3 * time.Second,
	}
}
