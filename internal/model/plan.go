package model

// Fixed timing of the class structure, in seconds.
const (
	WarmupDurationSec   = 300
	CoreDurationSec     = 300
	CooldownDurationSec = 60

	RoundDurationSec = 180
	BreakDurationSec = 30
)

// ClassPlan is the full, ordered description of one generated class.
// It is never mutated after generation.
type ClassPlan struct {
	Difficulty Difficulty `json:"difficulty"`
	LengthMin  int        `json:"length_min"`
	Music      string     `json:"music"`
	Pace       Pace       `json:"pace"`
	NumRounds  int        `json:"num_rounds"`
	Segments   []Segment  `json:"segments"`
}

// Rounds returns the round segments in plan order.
func (p *ClassPlan) Rounds() []Segment {
	var rounds []Segment
	for _, seg := range p.Segments {
		if seg.Type == SegmentRound {
			rounds = append(rounds, seg)
		}
	}
	return rounds
}

// Segment is either a fixed clip (intro, warmup, core, cooldown, outro)
// or a round with its own event timeline. Type selects which fields apply.
type Segment struct {
	Type SegmentType `json:"type"`

	// Fixed segments
	File string `json:"file,omitempty"`

	// DurationSec is informational for fixed segments and absent for intro/outro.
	DurationSec int `json:"duration_sec,omitempty"`

	// Round segments
	RoundNumber      int     `json:"round_number,omitempty"`
	BreakDurationSec int     `json:"break_duration_sec,omitempty"`
	StartFile        string  `json:"start_file,omitempty"`
	RoundCalloutFile string  `json:"round_callout_file,omitempty"`
	EndFile          string  `json:"end_file,omitempty"`
	Events           []Event `json:"events,omitempty"`
	BreakEvents      []Event `json:"break_events,omitempty"`
}

// Event is a single cue inside a round. TimeSec is relative to the round
// start for Events and to the break start for BreakEvents.
type Event struct {
	EventType  EventType        `json:"event_type"`
	TimeSec    int              `json:"time_sec"`
	Difficulty Difficulty       `json:"difficulty,omitempty"`
	Variant    CountdownVariant `json:"variant,omitempty"`
}
