package model

// FirmwareInfo describes one downloadable firmware image.
type FirmwareInfo struct {
	ID           string
	Version      string
	Size         int64
	Checksum     string
	ReleaseNotes string
	IsValid      bool
}

// UpdateCheck is the server's answer to "is there a newer firmware".
type UpdateCheck struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	Firmware        FirmwareInfo
}
