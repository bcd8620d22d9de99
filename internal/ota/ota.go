package ota

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"roompanel-firmware/internal/metrics"
	"roompanel-firmware/internal/model"
)

// Client is the slice of the device API the update flow needs.
type Client interface {
	ReportVersion(ctx context.Context, version string) bool
	CheckFirmwareUpdate(ctx context.Context) model.UpdateCheck
	DownloadFirmware(ctx context.Context, version string, sink io.Writer, progress func(written, total int64)) error
}

// Updater is the platform's image replacement mechanism. Begin opens a
// staging area sized for the image, Write streams into it, Finalize verifies
// and commits it, Abort discards partial state. After a successful Finalize
// the new image activates on the next restart.
type Updater interface {
	Begin(info model.FirmwareInfo) error
	io.Writer
	Finalize() error
	Abort()
}

// ProgressObserver receives update lifecycle callbacks. Every method is
// invoked synchronously inside the loop turn that runs the update, so
// implementations must return promptly.
type ProgressObserver interface {
	UpdateStarted(version string)
	UpdateProgress(version string, written, total int64)
	UpdateCompleted(version string)
	UpdateFailed(version string, err error)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) UpdateStarted(string)                {}
func (NopObserver) UpdateProgress(string, int64, int64) {}
func (NopObserver) UpdateCompleted(string)              {}
func (NopObserver) UpdateFailed(string, error)          {}

// Result classifies one orchestration pass.
type Result int

const (
	// ResultNoUpdate means the server reported nothing newer.
	ResultNoUpdate Result = iota
	// ResultApplied means a new image was committed; a restart activates it.
	ResultApplied
	// ResultFailed means the attempt aborted; current operation continues.
	ResultFailed
)

// Orchestrator drives one complete update pass: report the running version,
// ask for an update, and if one is offered download and apply it. It never
// applies anything without the server's explicit "available" signal.
type Orchestrator struct {
	client   Client
	updater  Updater
	observer ProgressObserver
	version  string
	logger   *zap.Logger
}

// New creates an orchestrator for the given running version.
func New(client Client, updater Updater, observer ProgressObserver, version string, logger *zap.Logger) *Orchestrator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Orchestrator{
		client:   client,
		updater:  updater,
		observer: observer,
		version:  version,
		logger:   logger,
	}
}

// RunOnce performs a single check-and-apply pass. The returned error is nil
// unless Result is ResultFailed.
func (o *Orchestrator) RunOnce(ctx context.Context) (Result, error) {
	metrics.UpdateChecks.Inc()

	// Best effort: the server tracks fleet versions, but a failed report
	// must not block the actual check.
	if !o.client.ReportVersion(ctx, o.version) {
		o.logger.Warn("firmware version report failed", zap.String("version", o.version))
	}

	check := o.client.CheckFirmwareUpdate(ctx)
	if !check.UpdateAvailable || !check.Firmware.IsValid {
		o.logger.Debug("no firmware update available",
			zap.String("current", o.version), zap.String("latest", check.LatestVersion))
		return ResultNoUpdate, nil
	}

	version := check.Firmware.Version
	o.logger.Info("firmware update available",
		zap.String("current", o.version),
		zap.String("latest", version),
		zap.Int64("size", check.Firmware.Size))
	o.observer.UpdateStarted(version)

	if err := o.updater.Begin(check.Firmware); err != nil {
		return o.fail(version, fmt.Errorf("update staging failed: %w", err))
	}

	err := o.client.DownloadFirmware(ctx, version, o.updater, func(written, total int64) {
		o.observer.UpdateProgress(version, written, total)
	})
	if err != nil {
		o.updater.Abort()
		return o.fail(version, err)
	}

	if err := o.updater.Finalize(); err != nil {
		o.updater.Abort()
		return o.fail(version, fmt.Errorf("update finalize failed: %w", err))
	}

	metrics.UpdatesApplied.Inc()
	o.observer.UpdateCompleted(version)
	o.logger.Info("firmware update applied", zap.String("version", version))
	return ResultApplied, nil
}

func (o *Orchestrator) fail(version string, err error) (Result, error) {
	metrics.UpdatesFailed.Inc()
	o.observer.UpdateFailed(version, err)
	o.logger.Error("firmware update failed", zap.String("version", version), zap.Error(err))
	return ResultFailed, err
}
