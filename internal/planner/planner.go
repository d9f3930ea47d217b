package planner

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/model"
)

const (
	// nonRoundMin covers warmup, core and cooldown.
	nonRoundMin = 11
	// roundBlockMin is one round plus its break, in minutes.
	roundBlockMin = 3.5

	// No combo or coach cue starts inside the closing window of a round.
	closingWindowSec = 20
	firstComboSec    = 2
	firstCoachSec    = 9
	maxCoachCues     = 4
	// comboExclusionSec is how close a coach cue may get to a combo.
	comboExclusionSec = 4

	pushCountdownLeadSec = 10
	breakCountdownSec    = 27
)

// ComputeNumRounds returns how many rounds fit in a class of lengthMin
// minutes. The result is never below one.
func ComputeNumRounds(lengthMin int) int {
	usable := max(0, lengthMin-nonRoundMin)
	return max(1, int(float64(usable)/roundBlockMin))
}

// ComboSpacing returns the gap in seconds between combo calls.
func ComboSpacing(pace model.Pace) int {
	switch pace {
	case model.PaceFast:
		return 12
	case model.PaceSlow:
		return 18
	default:
		return 15
	}
}

// Generator builds class plans. Its random source is shared, so calls are
// serialized.
type Generator struct {
	cues assets.Manifest

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator over the given cue layout. A nil rng gets a
// randomly seeded source.
func New(cues assets.Manifest, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{cues: cues, rng: rng}
}

// BuildClassPlan lays out intro, warmup, the rounds, core, cooldown and
// outro in that order.
func (g *Generator) BuildClassPlan(p model.ClassParams) *model.ClassPlan {
	numRounds := ComputeNumRounds(p.LengthMin)

	segments := make([]model.Segment, 0, numRounds+5)
	segments = append(segments,
		g.fixed(model.SegmentIntro, 0),
		g.fixed(model.SegmentWarmup, model.WarmupDurationSec),
	)
	for n := 1; n <= numRounds; n++ {
		segments = append(segments, g.BuildRound(n, p.Difficulty, p.Pace))
	}
	segments = append(segments,
		g.fixed(model.SegmentCore, model.CoreDurationSec),
		g.fixed(model.SegmentCooldown, model.CooldownDurationSec),
		g.fixed(model.SegmentOutro, 0),
	)

	return &model.ClassPlan{
		Difficulty: p.Difficulty,
		LengthMin:  p.LengthMin,
		Music:      p.Music,
		Pace:       p.Pace,
		NumRounds:  numRounds,
		Segments:   segments,
	}
}

func (g *Generator) fixed(t model.SegmentType, durationSec int) model.Segment {
	return model.Segment{Type: t, File: g.cues.Segment(t), DurationSec: durationSec}
}

// BuildRound builds one round segment with its combo and coach timeline.
func (g *Generator) BuildRound(n int, difficulty model.Difficulty, pace model.Pace) model.Segment {
	spacing := ComboSpacing(pace)
	limit := model.RoundDurationSec - closingWindowSec

	var comboTimes []int
	for t := firstComboSec; t < limit; t += spacing {
		comboTimes = append(comboTimes, t)
	}

	events := make([]model.Event, 0, len(comboTimes)+maxCoachCues+1)
	for _, t := range comboTimes {
		events = append(events, model.Event{
			EventType:  model.EventCombo,
			TimeSec:    t,
			Difficulty: difficulty,
		})
	}

	var candidates []int
	for t := firstCoachSec; t < limit; t += spacing {
		candidates = append(candidates, t)
	}

	g.mu.Lock()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > maxCoachCues {
		candidates = candidates[:maxCoachCues]
	}
	for _, t := range candidates {
		if nearCombo(t, comboTimes) {
			continue
		}
		kind := model.EventMotivation
		if g.rng.Float64() < 0.5 {
			kind = model.EventTip
		}
		events = append(events, model.Event{EventType: kind, TimeSec: t})
	}
	g.mu.Unlock()

	events = append(events, model.Event{
		EventType: model.EventCountdown,
		TimeSec:   model.RoundDurationSec - pushCountdownLeadSec,
		Variant:   model.CountdownLastTenPush,
	})
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeSec < events[j].TimeSec
	})

	return model.Segment{
		Type:             model.SegmentRound,
		RoundNumber:      n,
		DurationSec:      model.RoundDurationSec,
		BreakDurationSec: model.BreakDurationSec,
		StartFile:        g.cues.RoundStart,
		RoundCalloutFile: g.cues.Callout(n),
		EndFile:          g.cues.RoundEnd,
		Events:           events,
		BreakEvents: []model.Event{{
			EventType: model.EventCountdown,
			TimeSec:   breakCountdownSec,
			Variant:   model.CountdownBreakIn321,
		}},
	}
}

func nearCombo(t int, comboTimes []int) bool {
	for _, c := range comboTimes {
		d := t - c
		if d < 0 {
			d = -d
		}
		if d < comboExclusionSec {
			return true
		}
	}
	return false
}
