package hw

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"roompanel-firmware/internal/model"
)

// FileUpdater stages a firmware image next to the active one and commits it
// with an atomic rename. The process supervisor execs the new image on the
// next restart.
type FileUpdater struct {
	imagePath   string
	stagingPath string
	logger      *zap.Logger

	f        *os.File
	sum      hash.Hash
	written  int64
	expected model.FirmwareInfo
}

// NewFileUpdater creates an updater writing to stagingPath and committing to
// imagePath.
func NewFileUpdater(imagePath, stagingPath string, logger *zap.Logger) *FileUpdater {
	return &FileUpdater{
		imagePath:   imagePath,
		stagingPath: stagingPath,
		logger:      logger,
	}
}

// Begin opens the staging file, discarding any partial image from an earlier
// attempt.
func (u *FileUpdater) Begin(info model.FirmwareInfo) error {
	if u.f != nil {
		u.Abort()
	}
	if err := os.MkdirAll(filepath.Dir(u.stagingPath), 0o755); err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	f, err := os.OpenFile(u.stagingPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening staging file: %w", err)
	}
	u.f = f
	u.sum = sha256.New()
	u.written = 0
	u.expected = info
	return nil
}

func (u *FileUpdater) Write(p []byte) (int, error) {
	if u.f == nil {
		return 0, fmt.Errorf("updater not started")
	}
	n, err := u.f.Write(p)
	u.sum.Write(p[:n])
	u.written += int64(n)
	return n, err
}

// Finalize verifies size and checksum, then renames the staged image over
// the active one.
func (u *FileUpdater) Finalize() error {
	if u.f == nil {
		return fmt.Errorf("updater not started")
	}
	if err := u.f.Sync(); err != nil {
		u.f.Close()
		return fmt.Errorf("syncing staged image: %w", err)
	}
	if err := u.f.Close(); err != nil {
		return fmt.Errorf("closing staged image: %w", err)
	}
	u.f = nil

	if u.expected.Size > 0 && u.written != u.expected.Size {
		return fmt.Errorf("staged image is %d bytes, server announced %d", u.written, u.expected.Size)
	}
	if u.expected.Checksum != "" {
		got := hex.EncodeToString(u.sum.Sum(nil))
		if got != u.expected.Checksum {
			return fmt.Errorf("staged image checksum %s does not match %s", got, u.expected.Checksum)
		}
	}

	if err := os.Rename(u.stagingPath, u.imagePath); err != nil {
		return fmt.Errorf("activating staged image: %w", err)
	}
	u.logger.Info("firmware image staged",
		zap.String("version", u.expected.Version),
		zap.Int64("bytes", u.written),
		zap.String("path", u.imagePath))
	return nil
}

// Abort discards the staged image.
func (u *FileUpdater) Abort() {
	if u.f != nil {
		u.f.Close()
		u.f = nil
	}
	if err := os.Remove(u.stagingPath); err != nil && !os.IsNotExist(err) {
		u.logger.Warn("removing staged image failed", zap.Error(err))
	}
}
