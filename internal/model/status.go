package model

// MaxUpcomingBookings is the number of upcoming bookings the panel displays.
const MaxUpcomingBookings = 3

// RoomStatus is one snapshot of the room as reported by the server. A fresh
// value is built on every poll; an invalid one carries ErrorMessage instead.
type RoomStatus struct {
	Room           Room
	IsAvailable    bool
	CurrentBooking Booking

	UpcomingBookings [MaxUpcomingBookings]Booking
	UpcomingCount    int

	IsValid      bool
	ErrorMessage string
}

// Upcoming returns the valid upcoming bookings in order.
func (s RoomStatus) Upcoming() []Booking {
	n := s.UpcomingCount
	if n < 0 {
		n = 0
	}
	if n > MaxUpcomingBookings {
		n = MaxUpcomingBookings
	}
	return s.UpcomingBookings[:n]
}

// EqualForRedraw reports whether two snapshots render the same status screen.
// Only availability, room name and the ordered upcoming booking ids are
// compared; booking content edits on an otherwise-unchanged schedule do not
// count as a change. This is accepted behavior, chosen to avoid flicker on a
// slow display bus.
func EqualForRedraw(a, b RoomStatus) bool {
	if !a.IsValid || !b.IsValid {
		return false
	}
	if a.IsAvailable != b.IsAvailable {
		return false
	}
	if a.Room.Name != b.Room.Name {
		return false
	}
	if a.UpcomingCount != b.UpcomingCount {
		return false
	}
	for i := 0; i < a.UpcomingCount; i++ {
		if a.UpcomingBookings[i].ID != b.UpcomingBookings[i].ID {
			return false
		}
	}
	return true
}
