package model

// Booking is a single reservation slot. Start and end times are kept as the
// ISO-8601 strings the server sends; the UI formats them for display.
type Booking struct {
	ID              string
	Title           string
	StartTime       string
	EndTime         string
	IsDeviceBooking bool
	IsValid         bool
}

// BookResult is the outcome of a quick-book request.
type BookResult struct {
	Success bool
	Message string
	Booking Booking
}

// EndMeetingResult is the outcome of ending the current meeting early.
type EndMeetingResult struct {
	Success bool
	Message string
}
