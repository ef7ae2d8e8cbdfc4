package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionSummary is the archived form of a conversation: one row per session
// swept out of the transcript store by the batch archiver.
type SessionSummary struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Summary   string         `json:"summary"`
	Sources   pq.StringArray `json:"sources"`
	TurnCount int            `json:"turn_count"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	CreatedAt time.Time      `json:"created_at"`
}
