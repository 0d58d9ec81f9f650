package tasks

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued task.
type Status string

const (
	StatusPending Status = "pending"
	StatusStarted Status = "started"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

var allStatuses = []Status{StatusPending, StatusStarted, StatusSuccess, StatusFailure}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if normalized == status {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether the status ends the task's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Task is one queued unit of stage work persisted in SQLite.
type Task struct {
	ID     int64
	Handle string
	WorkID string
	Name   string
	Status Status
	// ErrorMessage is set when the task reaches failure.
	ErrorMessage string
	// ResultJSON carries an optional worker-supplied result payload.
	ResultJSON    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Pending int
	Started int
	Success int
	Failure int
}
