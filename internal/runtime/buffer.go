package runtime

import (
	"sync"

	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
)

// EventLog is a fixed-size circular log of navigation events.
type EventLog struct {
	mu      sync.RWMutex
	data    []driver.NavigationEvent
	start   int
	count   int
	blocked int
}

// NewEventLog creates a log keeping the last size events.
func NewEventLog(size int) *EventLog {
	if size < 1 {
		size = 1
	}
	return &EventLog{data: make([]driver.NavigationEvent, size)}
}

// Add appends an event, overwriting the oldest one when full.
func (l *EventLog) Add(e driver.NavigationEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	end := (l.start + l.count) % len(l.data)
	l.data[end] = e
	if l.count == len(l.data) {
		l.start = (l.start + 1) % len(l.data)
	} else {
		l.count++
	}
	if e.Decision == rules.Deny {
		l.blocked++
	}
}

// Events returns the retained events, oldest first.
func (l *EventLog) Events() []driver.NavigationEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]driver.NavigationEvent, 0, l.count)
	for i := 0; i < l.count; i++ {
		result = append(result, l.data[(l.start+i)%len(l.data)])
	}
	return result
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Blocked returns how many denied navigations were ever added, including
// those no longer retained.
func (l *EventLog) Blocked() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocked
}

// Reset clears the log.
func (l *EventLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.start = 0
	l.count = 0
	l.blocked = 0
}
