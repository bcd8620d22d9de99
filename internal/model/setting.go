package model

import "time"

// Setting is one persisted key/value pair in the on-device settings store.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}
