package model

// Difficulty tiers. Each tier is also the name of its combo pool.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var ValidDifficulties = []Difficulty{
	DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced,
}

// Pace controls combo spacing inside a round
type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

var ValidPaces = []Pace{PaceSlow, PaceNormal, PaceFast}

// Segment types
type SegmentType string

const (
	SegmentIntro    SegmentType = "intro"
	SegmentWarmup   SegmentType = "warmup"
	SegmentRound    SegmentType = "round"
	SegmentCore     SegmentType = "core"
	SegmentCooldown SegmentType = "cooldown"
	SegmentOutro    SegmentType = "outro"
)

// IsFixed reports whether the segment is a single pre-recorded clip.
func (t SegmentType) IsFixed() bool {
	switch t {
	case SegmentIntro, SegmentWarmup, SegmentCore, SegmentCooldown, SegmentOutro:
		return true
	}
	return false
}

// Event types
type EventType string

const (
	EventCombo      EventType = "combo"
	EventTip        EventType = "tip"
	EventMotivation EventType = "motivation"
	EventCountdown  EventType = "countdown"
)

// Countdown variants
type CountdownVariant string

const (
	CountdownLastTenPush CountdownVariant = "last-ten-seconds-push"
	CountdownBreakIn321  CountdownVariant = "break-in-3-2-1"
	CountdownGeneric     CountdownVariant = "generic-5-4-3-2-1"
)

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether no further transition may leave this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Valid reports whether s is one of the four known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusDone, JobStatusError:
		return true
	}
	return false
}
