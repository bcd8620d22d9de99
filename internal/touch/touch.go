package touch

import "time"

// Point is a screen coordinate reported by the touch controller.
type Point struct {
	X int
	Y int
}

// Source decodes the touch hardware into "touched at (x,y)" or "not touched".
// Implementations must not block; the cooperative loop polls this every turn.
type Source interface {
	Read() (Point, bool)
}

// DebounceWindow is the dead time after an accepted press. A single physical
// tap produces a burst of raw events; everything inside the window is one tap.
const DebounceWindow = 300 * time.Millisecond

// Debouncer drops events that follow too closely on an accepted one.
type Debouncer struct {
	window   time.Duration
	last     time.Time
	accepted bool
}

// NewDebouncer creates a debouncer with the given window. Zero or negative
// falls back to DebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DebounceWindow
	}
	return &Debouncer{window: window}
}

// Accept reports whether an event at the given time should be acted on, and
// if so records it as the new reference point.
func (d *Debouncer) Accept(now time.Time) bool {
	if d.accepted && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	d.accepted = true
	return true
}
