package apiclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"roompanel-firmware/internal/model"
)

// RequestTimeout bounds every round-trip; a timeout is treated the same as a
// connection failure.
const RequestTimeout = 10 * time.Second

// Messages surfaced to the user for remote failures. Server-reported errors
// are shown verbatim instead.
const (
	MsgConnectFailed   = "Failed to connect to server"
	MsgInvalidResponse = "Invalid response from server"
	MsgBookingSuccess  = "Room booked successfully!"
	MsgMeetingEnded    = "Meeting ended"
)

const devicePathPrefix = "/api/device"

// Client talks to the booking server's device API. Remote failures never
// cross this boundary as errors: operational calls return sentinel results
// with IsValid/Success unset and a display message instead.
//
// Certificate validation is skipped on purpose: these panels are routinely
// deployed against self-signed or reverse-proxied servers on a private LAN.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	baseURL string
	token   string
}

// New creates an unconfigured client. SetConfig must be called with stored
// settings before operational requests succeed.
func New(logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(RequestTimeout).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

// SetConfig points the client at a server. The trailing slash is stripped so
// path joins stay predictable.
func (c *Client) SetConfig(serverURL, token string) {
	c.baseURL = strings.TrimRight(serverURL, "/")
	c.token = token
}

// Configured reports whether both the server URL and device token are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

var errNotConfigured = errors.New("apiclient: no server url or token configured")

// request performs one bounded round-trip and returns the body on any 2xx
// response. Transport errors, timeouts and non-2xx statuses all collapse into
// a single error; callers translate it into their sentinel result.
func (c *Client) request(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if !c.Configured() {
		return nil, errNotConfigured
	}
	url := c.baseURL + devicePathPrefix + endpoint

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Device-Token", c.token)
	if body != nil {
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = req.Get(url)
	case http.MethodPost:
		resp, err = req.Post(url)
	default:
		return nil, fmt.Errorf("apiclient: unsupported method %s", method)
	}
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("url", url), zap.Error(err))
		return nil, err
	}
	if !resp.IsSuccess() {
		c.logger.Warn("request returned non-2xx",
			zap.String("method", method), zap.String("url", url), zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("apiclient: status %d from %s", resp.StatusCode(), endpoint)
	}
	return resp.Body(), nil
}

// FetchStatus retrieves the room's current snapshot. The result is always
// usable: on any failure IsValid is false and ErrorMessage explains why.
func (c *Client) FetchStatus(ctx context.Context) model.RoomStatus {
	var status model.RoomStatus

	body, err := c.request(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		status.ErrorMessage = MsgConnectFailed
		return status
	}

	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("status response did not parse", zap.Error(err))
		status.ErrorMessage = MsgInvalidResponse
		return status
	}
	if payload.Error != "" {
		status.ErrorMessage = payload.Error
		return status
	}

	status.Room = convertRoom(payload.Room)
	status.IsAvailable = payload.IsAvailable
	if payload.CurrentBooking != nil {
		status.CurrentBooking = convertBooking(*payload.CurrentBooking)
	}

	// Extras beyond the display capacity are dropped; fewer leave the
	// remaining slots invalid.
	for _, raw := range payload.UpcomingBookings {
		if status.UpcomingCount >= model.MaxUpcomingBookings {
			break
		}
		booking := convertBooking(raw)
		if !booking.IsValid {
			continue
		}
		status.UpcomingBookings[status.UpcomingCount] = booking
		status.UpcomingCount++
	}

	status.IsValid = status.Room.IsValid
	return status
}

// QuickBook reserves the room for the given duration starting now.
func (c *Client) QuickBook(ctx context.Context, title string, durationMinutes int) model.BookResult {
	var result model.BookResult

	body, err := c.request(ctx, http.MethodPost, "/quick-book", quickBookRequest{
		Title:           title,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		result.Message = MsgConnectFailed
		return result
	}

	var payload quickBookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		result.Message = MsgInvalidResponse
		return result
	}
	if payload.Error != "" {
		result.Message = payload.Error
		return result
	}

	result.Success = true
	result.Message = MsgBookingSuccess
	result.Booking = model.Booking{
		ID:        payload.ID,
		Title:     payload.Title,
		StartTime: payload.StartTime,
		EndTime:   payload.EndTime,
		IsValid:   true,
	}
	return result
}

// EndMeeting releases the room before the current booking's scheduled end.
func (c *Client) EndMeeting(ctx context.Context) model.EndMeetingResult {
	var result model.EndMeetingResult

	body, err := c.request(ctx, http.MethodPost, "/end-meeting", map[string]any{})
	if err != nil {
		result.Message = MsgConnectFailed
		return result
	}

	var payload endMeetingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		result.Message = MsgInvalidResponse
		return result
	}
	if payload.Error != "" {
		result.Message = payload.Error
		return result
	}

	result.Success = true
	result.Message = MsgMeetingEnded
	return result
}

// Ping checks server liveness. True only on a well-formed {"status":"ok"}.
func (c *Client) Ping(ctx context.Context) bool {
	body, err := c.request(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return false
	}
	var payload pingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Status == "ok"
}

// CheckFirmwareUpdate asks the server whether a newer image exists. Failures
// read as "no update"; the OTA flow never acts without an explicit signal.
func (c *Client) CheckFirmwareUpdate(ctx context.Context) model.UpdateCheck {
	var check model.UpdateCheck

	body, err := c.request(ctx, http.MethodGet, "/firmware/check", nil)
	if err != nil {
		return check
	}
	var payload firmwareCheckPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("firmware check response did not parse", zap.Error(err))
		return check
	}

	check.CurrentVersion = payload.CurrentVersion
	check.LatestVersion = payload.LatestVersion
	if payload.UpdateAvailable && payload.LatestFirmware != nil {
		check.UpdateAvailable = true
		check.Firmware = model.FirmwareInfo{
			ID:           payload.LatestFirmware.ID,
			Version:      payload.LatestFirmware.Version,
			Size:         payload.LatestFirmware.Size,
			Checksum:     payload.LatestFirmware.Checksum,
			ReleaseNotes: payload.LatestFirmware.ReleaseNotes,
			IsValid:      true,
		}
	}
	return check
}

// ReportVersion tells the server which image this panel is running.
func (c *Client) ReportVersion(ctx context.Context, version string) bool {
	body, err := c.request(ctx, http.MethodPost, "/firmware/report", firmwareReportRequest{Version: version})
	if err != nil {
		return false
	}
	var payload firmwareReportPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Success
}

// DownloadFirmware streams the versioned image into sink. progress, if
// non-nil, is called after each chunk with bytes written and the total from
// Content-Length (-1 when unknown). Unlike the operational calls this
// returns an error: OTA failures carry a reason up to the orchestrator.
func (c *Client) DownloadFirmware(ctx context.Context, version string, sink io.Writer, progress func(written, total int64)) error {
	if !c.Configured() {
		return errNotConfigured
	}
	url := c.baseURL + devicePathPrefix + "/firmware/download/" + version

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Device-Token", c.token).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("firmware download failed: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if !resp.IsSuccess() {
		return fmt.Errorf("firmware download: status %d", resp.StatusCode())
	}

	total := int64(-1)
	if resp.RawResponse != nil && resp.RawResponse.ContentLength > 0 {
		total = resp.RawResponse.ContentLength
	}

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := raw.Read(buf)
		if n > 0 {
			if _, writeErr := sink.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("firmware write failed: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("firmware download interrupted: %w", readErr)
		}
	}

	c.logger.Info("firmware image downloaded",
		zap.String("version", version), zap.Int64("bytes", written))
	return nil
}

func convertBooking(p bookingPayload) model.Booking {
	return model.Booking{
		ID:              p.ID,
		Title:           p.Title,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		IsDeviceBooking: p.IsDeviceBooking,
		IsValid:         p.ID != "",
	}
}

func convertRoom(p *roomPayload) model.Room {
	room := model.Room{
		QuickBookDurations: model.DefaultQuickBookDurations,
		DurationCount:      model.MaxQuickBookDurations,
	}
	if p == nil {
		return room
	}

	room.ID = p.ID
	room.Name = p.Name
	room.Capacity = p.Capacity
	room.Floor = p.Floor
	room.IsValid = p.ID != ""

	if len(p.QuickBookDurations) > 0 {
		room.DurationCount = 0
		for i, d := range p.QuickBookDurations {
			if i >= model.MaxQuickBookDurations {
				break
			}
			room.QuickBookDurations[i] = d
			room.DurationCount++
		}
	}
	return room
}
