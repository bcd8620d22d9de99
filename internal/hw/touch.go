package hw

import (
	"sync"

	"roompanel-firmware/internal/touch"
)

// TouchQueue buffers events from a touch controller for the device loop.
// The controller's interrupt handler calls Push from its own goroutine; the
// loop drains one event per turn through Read.
type TouchQueue struct {
	mu     sync.Mutex
	events []touch.Point
}

const touchQueueCap = 16

func NewTouchQueue() *TouchQueue {
	return &TouchQueue{}
}

// Push enqueues an event, dropping the oldest when the queue is full.
func (q *TouchQueue) Push(pt touch.Point) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= touchQueueCap {
		q.events = q.events[1:]
	}
	q.events = append(q.events, pt)
}

// Read pops the oldest pending event.
func (q *TouchQueue) Read() (touch.Point, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return touch.Point{}, false
	}
	pt := q.events[0]
	q.events = q.events[1:]
	return pt, true
}
