package model

import "time"

// Job is one asynchronous class render. Plan is a snapshot taken at
// submission; only the worker changes Status after insertion.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Plan      *ClassPlan `json:"plan"`
	FileURL   *string    `json:"fileUrl,omitempty"`
	Error     *string    `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ExportMeta names the rendered file
type ExportMeta struct {
	Difficulty Difficulty
	LengthMin  int
	Pace       Pace
	Timestamp  time.Time
}
