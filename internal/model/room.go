package model

// MaxQuickBookDurations is the number of quick-book duration slots a room can offer.
const MaxQuickBookDurations = 4

// DefaultQuickBookDurations is used when the server omits the room's own list.
var DefaultQuickBookDurations = [MaxQuickBookDurations]int{30, 60, 90, 120}

// Room describes the meeting room this panel is mounted on.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Floor    string

	QuickBookDurations [MaxQuickBookDurations]int
	DurationCount      int

	IsValid bool
}

// Durations returns the populated quick-book durations in order.
func (r Room) Durations() []int {
	n := r.DurationCount
	if n <= 0 || n > MaxQuickBookDurations {
		return DefaultQuickBookDurations[:]
	}
	return r.QuickBookDurations[:n]
}
