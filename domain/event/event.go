package event

import "time"

// Type names a collection change. Typed constants rather than free
// strings so that a subscriber cannot register for an event that will
// never fire.
type Type string

const (
	Created Type = "created"
	Patched Type = "patched"
	Removed Type = "removed"
)

// Collection names a remote record set.
type Collection string

const (
	Users    Collection = "users"
	Messages Collection = "messages"
)

// Known reports whether name refers to a registered collection.
func Known(name string) bool {
	switch Collection(name) {
	case Users, Messages:
		return true
	}
	return false
}

// Event is a collection change notification. Record carries the wire
// form of the affected record (domain.User or domain.Message).
type Event struct {
	Collection Collection `json:"collection"`
	Type       Type       `json:"event"`
	At         time.Time  `json:"at"`
	Record     any        `json:"record"`
}
