package models

import (
	"fmt"
	"time"
)

// ProgressEntry is one timestamped human-readable status line in a search
// job's progress log.
type ProgressEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchJobState tracks one search job keyed by (query, optional source).
// It is created on first dispatch, mutated only by the running job, and
// served to pollers as read-only snapshots. Entries expire after the dedup
// window so a later dispatch for the same key can run again.
type SearchJobState struct {
	Query    string `json:"query"`
	SourceID int64  `json:"source_id,omitempty"`

	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Log []ProgressEntry `json:"log"`
}

// InProgress reports whether the job has started but not finished.
func (s *SearchJobState) InProgress() bool {
	return s != nil && s.DispatchedAt != nil && s.CompletedAt == nil
}

// Complete reports whether the job has finished.
func (s *SearchJobState) Complete() bool {
	return s != nil && s.CompletedAt != nil
}

// Append adds a progress entry with the current time.
func (s *SearchJobState) Append(message string) {
	s.Log = append(s.Log, ProgressEntry{Message: message, Timestamp: time.Now()})
}

// Snapshot returns a copy safe to hand to pollers while the job keeps
// appending to its own state.
func (s *SearchJobState) Snapshot() SearchJobState {
	cp := *s
	cp.Log = make([]ProgressEntry, len(s.Log))
	copy(cp.Log, s.Log)
	return cp
}

// SearchJobKey is the uniqueness key suppressing duplicate dispatches for an
// identical (query, optional source) pair.
func SearchJobKey(query string, sourceID int64) string {
	if sourceID > 0 {
		return fmt.Sprintf("search:%s:src:%d", query, sourceID)
	}
	return "search:" + query
}
