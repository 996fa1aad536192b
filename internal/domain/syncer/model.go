package syncer

import "time"

// Status is the per-email sync bookkeeping record. InProgress is the sole
// concurrency primitive protecting the refresh path: at most one caller may
// transition it false→true at a time.
type Status struct {
	Email         string     `json:"email"`
	InProgress    bool       `json:"in_progress"`
	LastStarted   *time.Time `json:"last_started,omitempty"`
	LastCompleted *time.Time `json:"last_completed,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	TotalFound    int        `json:"total_found"`
}

// StartResult reports the outcome of a StartSync call.
type StartResult struct {
	Started bool `json:"started"`
}
