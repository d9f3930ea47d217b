package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GenerateRequest is the raw submission body. Fields are loose on purpose;
// the planner normalizes them before validation.
type GenerateRequest struct {
	Difficulty string  `json:"difficulty"`
	Length     FlexInt `json:"length"`
	Pace       string  `json:"pace"`
	Music      string  `json:"music"`
}

// ClassParams are normalized submission parameters
type ClassParams struct {
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	LengthMin  int        `json:"length" validate:"min=1,max=600"`
	Pace       Pace       `json:"pace" validate:"required,oneof=slow normal fast"`
	Music      string     `json:"music" validate:"max=200"`
}

// GenerateResponse is returned when a class job has been queued
type GenerateResponse struct {
	JobID     string     `json:"jobId"`
	Status    JobStatus  `json:"status"`
	Plan      *ClassPlan `json:"plan"`
	CreatedAt time.Time  `json:"createdAt"`
}

// JobStatusResponse represents the status of a class job
type JobStatusResponse struct {
	JobID     string     `json:"jobId"`
	Status    JobStatus  `json:"status"`
	FileURL   *string    `json:"fileUrl,omitempty"`
	Error     *string    `json:"error,omitempty"`
	Plan      *ClassPlan `json:"plan"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FlexInt accepts a JSON number or a numeric string. Anything else leaves
// it unset rather than failing the whole body.
type FlexInt struct {
	Value int
	Set   bool
	Raw   string
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{Raw: string(data)}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			f.Value, f.Set = v, true
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Raw = s
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			f.Value, f.Set = v, true
		}
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// ParseFlexInt builds a FlexInt from a query-string value. Empty input
// stays unset.
func ParseFlexInt(s string) FlexInt {
	f := FlexInt{Raw: s}
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		f.Value, f.Set = v, true
	}
	return f
}

// IntOf builds a set FlexInt, mostly for callers outside HTTP.
func IntOf(v int) FlexInt {
	return FlexInt{Value: v, Set: true, Raw: strconv.Itoa(v)}
}
