package models

import (
	"time"
)

// Turn is one recorded exchange half in the transcript store, keyed by the
// conversation's session identifier.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
