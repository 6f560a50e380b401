package model

import "time"

// Contact message statuses, in the only order they may advance.
const (
	ContactUnread  = "unread"
	ContactRead    = "read"
	ContactReplied = "replied"
)

var contactRank = map[string]int{
	ContactUnread:  0,
	ContactRead:    1,
	ContactReplied: 2,
}

// ContactMessage represents a message submitted via the contact form.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactFilter carries filter and pagination parameters for listing contact messages.
// Status "" or "all" returns every message.
type ContactFilter struct {
	Status string
	Limit  int
	Offset int
}

// IsValidContactStatus reports whether s is a known contact status.
func IsValidContactStatus(s string) bool {
	_, ok := contactRank[s]
	return ok
}

// CanAdvanceContact reports whether status may move from one value to another.
// Statuses only move forward; setting the same status again is allowed.
func CanAdvanceContact(from, to string) bool {
	f, ok := contactRank[from]
	if !ok {
		return false
	}
	t, ok := contactRank[to]
	if !ok {
		return false
	}
	return t >= f
}
