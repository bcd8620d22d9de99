package apiclient

// Wire formats of the booking server's device API. These mirror the JSON
// bodies exactly; conversion into model types happens in client.go.

type bookingPayload struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	IsDeviceBooking bool   `json:"isDeviceBooking"`
}

type roomPayload struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Capacity           int    `json:"capacity"`
	Floor              string `json:"floor"`
	QuickBookDurations []int  `json:"quickBookDurations"`
}

type statusPayload struct {
	Error            string           `json:"error"`
	Room             *roomPayload     `json:"room"`
	IsAvailable      bool             `json:"isAvailable"`
	CurrentBooking   *bookingPayload  `json:"currentBooking"`
	UpcomingBookings []bookingPayload `json:"upcomingBookings"`
}

type quickBookRequest struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
}

type quickBookPayload struct {
	Error     string `json:"error"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type endMeetingPayload struct {
	Error string `json:"error"`
}

type pingPayload struct {
	Status string `json:"status"`
}

type firmwarePayload struct {
	ID           string `json:"id"`
	Version      string `json:"version"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum"`
	ReleaseNotes string `json:"releaseNotes"`
}

type firmwareCheckPayload struct {
	UpdateAvailable bool             `json:"updateAvailable"`
	CurrentVersion  string           `json:"currentVersion"`
	LatestVersion   string           `json:"latestVersion"`
	LatestFirmware  *firmwarePayload `json:"latestFirmware"`
}

type firmwareReportRequest struct {
	Version string `json:"version"`
}

type firmwareReportPayload struct {
	Success bool `json:"success"`
}
