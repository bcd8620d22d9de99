package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(serverURL string) *Client {
	c := New(zap.NewNop())
	c.SetConfig(serverURL, "tok-123")
	return c
}

func TestFetchStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/device/status", r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("X-Device-Token"))

		json.NewEncoder(w).Encode(map[string]any{
			"room": map[string]any{
				"id": "r1", "name": "Aquifer", "capacity": 8, "floor": "2",
				"quickBookDurations": []int{15, 30, 45, 60},
			},
			"isAvailable":    true,
			"currentBooking": nil,
			"upcomingBookings": []map[string]any{
				{"id": "b1", "title": "Standup", "startTime": "2026-08-30T09:00:00Z", "endTime": "2026-08-30T09:15:00Z"},
				{"id": "b2", "title": "Design", "startTime": "2026-08-30T10:00:00Z", "endTime": "2026-08-30T11:00:00Z"},
				{"id": "b3", "title": "1:1", "startTime": "2026-08-30T11:00:00Z", "endTime": "2026-08-30T11:30:00Z"},
				{"id": "b4", "title": "Overflow", "startTime": "2026-08-30T12:00:00Z", "endTime": "2026-08-30T13:00:00Z"},
			},
		})
	}))
	defer server.Close()

	status := newTestClient(server.URL).FetchStatus(context.Background())

	require.True(t, status.IsValid)
	assert.True(t, status.IsAvailable)
	assert.Equal(t, "Aquifer", status.Room.Name)
	assert.Equal(t, []int{15, 30, 45, 60}, status.Room.Durations())
	assert.False(t, status.CurrentBooking.IsValid)
	assert.Equal(t, 3, status.UpcomingCount, "extras beyond the display capacity are dropped")
	assert.Equal(t, "b3", status.UpcomingBookings[2].ID)
	assert.False(t, status.UpcomingBookings[2].IsDeviceBooking)
}

func TestFetchStatus_DefaultDurationsWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"room":        map[string]any{"id": "r1", "name": "Aquifer"},
			"isAvailable": true,
		})
	}))
	defer server.Close()

	status := newTestClient(server.URL).FetchStatus(context.Background())
	require.True(t, status.IsValid)
	assert.Equal(t, []int{30, 60, 90, 120}, status.Room.Durations())
}

func TestFetchStatus_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		close   bool
		wantMsg string
	}{
		{
			name:    "transport failure",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			close:   true,
			wantMsg: MsgConnectFailed,
		},
		{
			name: "non-2xx response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantMsg: MsgConnectFailed,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			},
			wantMsg: MsgInvalidResponse,
		},
		{
			name: "server reported error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"error": "Device token revoked"})
			},
			wantMsg: "Device token revoked",
		},
		{
			name: "room missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"isAvailable": true})
			},
			wantMsg: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			client := newTestClient(server.URL)
			if tc.close {
				server.Close()
			} else {
				defer server.Close()
			}

			status := client.FetchStatus(context.Background())
			assert.False(t, status.IsValid)
			assert.Equal(t, tc.wantMsg, status.ErrorMessage)
		})
	}
}

func TestFetchStatus_Unconfigured(t *testing.T) {
	status := New(zap.NewNop()).FetchStatus(context.Background())
	assert.False(t, status.IsValid)
	assert.Equal(t, MsgConnectFailed, status.ErrorMessage)
}

func TestQuickBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/device/quick-book", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req quickBookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Quick Booking", req.Title)
		assert.Equal(t, 30, req.DurationMinutes)

		json.NewEncoder(w).Encode(map[string]any{
			"id": "bk-9", "title": req.Title,
			"startTime": "2026-08-30T09:00:00Z", "endTime": "2026-08-30T09:30:00Z",
		})
	}))
	defer server.Close()

	result := newTestClient(server.URL).QuickBook(context.Background(), "Quick Booking", 30)
	require.True(t, result.Success)
	assert.Equal(t, MsgBookingSuccess, result.Message)
	assert.Equal(t, "bk-9", result.Booking.ID)
	assert.True(t, result.Booking.IsValid)
}

func TestQuickBook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "Room already booked"})
	}))
	defer server.Close()

	result := newTestClient(server.URL).QuickBook(context.Background(), "Quick Booking", 30)
	assert.False(t, result.Success)
	assert.Equal(t, "Room already booked", result.Message)
}

func TestEndMeeting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/device/end-meeting", r.URL.Path)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	result := newTestClient(server.URL).EndMeeting(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, MsgMeetingEnded, result.Message)
}

func TestPing(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want bool
	}{
		{"ok", `{"status":"ok"}`, true},
		{"wrong status", `{"status":"degraded"}`, false},
		{"malformed", `nope`, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()
			assert.Equal(t, tc.want, newTestClient(server.URL).Ping(context.Background()))
		})
	}
}

func TestCheckFirmwareUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"updateAvailable": true,
			"currentVersion":  "1.0.0",
			"latestVersion":   "1.2.0",
			"latestFirmware": map[string]any{
				"id": "fw-12", "version": "1.2.0", "size": 1048576,
				"checksum": "abc123", "releaseNotes": "Fixes touch wakeup",
			},
		})
	}))
	defer server.Close()

	check := newTestClient(server.URL).CheckFirmwareUpdate(context.Background())
	require.True(t, check.UpdateAvailable)
	assert.Equal(t, "1.2.0", check.Firmware.Version)
	assert.Equal(t, int64(1048576), check.Firmware.Size)
	assert.True(t, check.Firmware.IsValid)
}

func TestCheckFirmwareUpdate_NoSignalOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	check := newTestClient(server.URL).CheckFirmwareUpdate(context.Background())
	assert.False(t, check.UpdateAvailable, "an update is never applied without an explicit signal")
}

func TestReportVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req firmwareReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1.0.0", req.Version)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	assert.True(t, newTestClient(server.URL).ReportVersion(context.Background(), "1.0.0"))
}

func TestDownloadFirmware(t *testing.T) {
	image := bytes.Repeat([]byte{0xAB}, 100_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/device/firmware/download/1.2.0", r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("X-Device-Token"))
		w.Header().Set("Content-Length", strconv.Itoa(len(image)))
		w.Write(image)
	}))
	defer server.Close()

	var sink bytes.Buffer
	var lastWritten, lastTotal int64
	err := newTestClient(server.URL).DownloadFirmware(context.Background(), "1.2.0", &sink,
		func(written, total int64) {
			lastWritten, lastTotal = written, total
		})

	require.NoError(t, err)
	assert.Equal(t, image, sink.Bytes())
	assert.Equal(t, int64(len(image)), lastWritten)
	assert.Equal(t, int64(len(image)), lastTotal)
}

func TestDownloadFirmware_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var sink bytes.Buffer
	err := newTestClient(server.URL).DownloadFirmware(context.Background(), "1.2.0", &sink, nil)
	assert.Error(t, err)
	assert.Zero(t, sink.Len())
}
