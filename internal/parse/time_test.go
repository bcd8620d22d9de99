package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	testCases := []struct {
		name    string
		value   string
		loc     *time.Location
		want    string
		wantErr bool
	}{
		{"rfc3339 utc", "2026-08-30T14:30:00Z", berlin, "16:30", false},
		{"rfc3339 offset", "2026-08-30T14:30:00+02:00", berlin, "14:30", false},
		{"bare local", "2026-08-30T14:30:00", berlin, "14:30", false},
		{"space separated", "2026-08-30 14:30:00", berlin, "14:30", false},
		{"nil location falls back to utc", "2026-08-30T14:30:00Z", nil, "14:30", false},
		{"garbage", "yesterday-ish", berlin, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Time(tc.value, tc.loc)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Format("15:04"))
		})
	}
}

func TestClockRange(t *testing.T) {
	assert.Equal(t, "14:30 - 15:00",
		ClockRange("2026-08-30T14:30:00Z", "2026-08-30T15:00:00Z", time.UTC))
	assert.Equal(t, "--:-- - 15:00",
		ClockRange("", "2026-08-30T15:00:00Z", time.UTC))
}
