package ota

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"roompanel-firmware/internal/model"
)

type fakeClient struct {
	reported     []string
	check        model.UpdateCheck
	image        []byte
	downloadErr  error
	downloadHits int
}

func (f *fakeClient) ReportVersion(_ context.Context, version string) bool {
	f.reported = append(f.reported, version)
	return true
}

func (f *fakeClient) CheckFirmwareUpdate(context.Context) model.UpdateCheck {
	return f.check
}

func (f *fakeClient) DownloadFirmware(_ context.Context, _ string, sink io.Writer, progress func(int64, int64)) error {
	f.downloadHits++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	n, err := sink.Write(f.image)
	if progress != nil {
		progress(int64(n), int64(len(f.image)))
	}
	return err
}

type fakeUpdater struct {
	bytes.Buffer
	began     bool
	finalized bool
	aborted   bool
	beginErr  error
	finalErr  error
}

func (f *fakeUpdater) Begin(model.FirmwareInfo) error { f.began = true; return f.beginErr }
func (f *fakeUpdater) Finalize() error                { f.finalized = true; return f.finalErr }
func (f *fakeUpdater) Abort()                         { f.aborted = true }

type recordingObserver struct {
	started   []string
	completed []string
	failed    []string
	progress  int
}

func (o *recordingObserver) UpdateStarted(v string)              { o.started = append(o.started, v) }
func (o *recordingObserver) UpdateProgress(string, int64, int64) { o.progress++ }
func (o *recordingObserver) UpdateCompleted(v string)            { o.completed = append(o.completed, v) }
func (o *recordingObserver) UpdateFailed(v string, _ error)      { o.failed = append(o.failed, v) }

func availableCheck() model.UpdateCheck {
	return model.UpdateCheck{
		UpdateAvailable: true,
		CurrentVersion:  "1.0.0",
		LatestVersion:   "1.2.0",
		Firmware: model.FirmwareInfo{
			ID: "fw-12", Version: "1.2.0", Size: 4, Checksum: "c4f3", IsValid: true,
		},
	}
}

func TestRunOnce_Applied(t *testing.T) {
	client := &fakeClient{check: availableCheck(), image: []byte{1, 2, 3, 4}}
	updater := &fakeUpdater{}
	obs := &recordingObserver{}
	o := New(client, updater, obs, "1.0.0", zap.NewNop())

	result, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ResultApplied, result)
	assert.Equal(t, []string{"1.0.0"}, client.reported)
	assert.True(t, updater.began)
	assert.True(t, updater.finalized)
	assert.False(t, updater.aborted)
	assert.Equal(t, []byte{1, 2, 3, 4}, updater.Bytes())
	assert.Equal(t, []string{"1.2.0"}, obs.started)
	assert.Equal(t, []string{"1.2.0"}, obs.completed)
	assert.Positive(t, obs.progress)
}

func TestRunOnce_NoUpdate(t *testing.T) {
	client := &fakeClient{check: model.UpdateCheck{CurrentVersion: "1.0.0", LatestVersion: "1.0.0"}}
	updater := &fakeUpdater{}
	o := New(client, updater, nil, "1.0.0", zap.NewNop())

	result, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ResultNoUpdate, result)
	assert.False(t, updater.began, "nothing is staged without an explicit available signal")
	assert.Zero(t, client.downloadHits)
}

func TestRunOnce_AvailableWithoutFirmwareInfo(t *testing.T) {
	check := availableCheck()
	check.Firmware = model.FirmwareInfo{}
	client := &fakeClient{check: check}
	o := New(client, &fakeUpdater{}, nil, "1.0.0", zap.NewNop())

	result, _ := o.RunOnce(context.Background())
	assert.Equal(t, ResultNoUpdate, result)
}

func TestRunOnce_DownloadFails(t *testing.T) {
	client := &fakeClient{check: availableCheck(), downloadErr: errors.New("connection reset")}
	updater := &fakeUpdater{}
	obs := &recordingObserver{}
	o := New(client, updater, obs, "1.0.0", zap.NewNop())

	result, err := o.RunOnce(context.Background())

	assert.Equal(t, ResultFailed, result)
	assert.Error(t, err)
	assert.True(t, updater.aborted)
	assert.False(t, updater.finalized)
	assert.Equal(t, []string{"1.2.0"}, obs.failed)
	assert.Empty(t, obs.completed)
}

func TestRunOnce_FinalizeFails(t *testing.T) {
	client := &fakeClient{check: availableCheck(), image: []byte{1}}
	updater := &fakeUpdater{finalErr: errors.New("checksum mismatch")}
	obs := &recordingObserver{}
	o := New(client, updater, obs, "1.0.0", zap.NewNop())

	result, err := o.RunOnce(context.Background())

	assert.Equal(t, ResultFailed, result)
	assert.ErrorContains(t, err, "checksum mismatch")
	assert.True(t, updater.aborted)
	assert.Equal(t, []string{"1.2.0"}, obs.failed)
}

func TestRunOnce_BeginFails(t *testing.T) {
	client := &fakeClient{check: availableCheck()}
	updater := &fakeUpdater{beginErr: errors.New("no space")}
	o := New(client, updater, nil, "1.0.0", zap.NewNop())

	result, err := o.RunOnce(context.Background())

	assert.Equal(t, ResultFailed, result)
	assert.ErrorContains(t, err, "no space")
	assert.Zero(t, client.downloadHits)
}
