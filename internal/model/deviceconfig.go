package model

import "strings"

// DefaultSetupPIN protects the provisioning UI until the installer changes it.
const DefaultSetupPIN = "0000"

// DefaultTimezone is used until provisioning supplies one.
const DefaultTimezone = "UTC"

// DeviceConfig is the runtime configuration of the panel. It is persisted in
// the settings store, loaded once at boot and mutated only through the
// provisioning endpoint or a factory reset.
type DeviceConfig struct {
	ServerURL   string
	DeviceToken string
	Timezone    string
	SetupPIN    string
}

// Normalize strips the trailing slash from the server URL and fills in
// defaults for the timezone and PIN.
func (c *DeviceConfig) Normalize() {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	c.DeviceToken = strings.TrimSpace(c.DeviceToken)
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.SetupPIN == "" {
		c.SetupPIN = DefaultSetupPIN
	}
}

// Configured reports whether the panel has everything it needs to talk to the
// booking server.
func (c DeviceConfig) Configured() bool {
	return c.ServerURL != "" && c.DeviceToken != ""
}
