package planner

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/model"
)

func newGen(seed uint64) *Generator {
	return New(assets.DefaultManifest(), rand.New(rand.NewPCG(seed, seed^0x9e3779b9)))
}

// --- Rounds ---

func TestComputeNumRounds(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{-10, 1},
		{0, 1},
		{11, 1},
		{14, 1},
		{18, 2},
		{60, 14},
		{90, 22},
	}
	for _, tt := range tests {
		if got := ComputeNumRounds(tt.length); got != tt.want {
			t.Errorf("ComputeNumRounds(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestComboSpacing(t *testing.T) {
	if ComboSpacing(model.PaceFast) != 12 || ComboSpacing(model.PaceNormal) != 15 || ComboSpacing(model.PaceSlow) != 18 {
		t.Fatal("unexpected spacing table")
	}
	if ComboSpacing("sprint") != 15 {
		t.Error("unknown pace should use normal spacing")
	}
}

func TestBuildRoundFastCombos(t *testing.T) {
	seg := newGen(1).BuildRound(3, model.DifficultyAdvanced, model.PaceFast)

	var combos []int
	for _, e := range seg.Events {
		if e.EventType == model.EventCombo {
			combos = append(combos, e.TimeSec)
			if e.Difficulty != model.DifficultyAdvanced {
				t.Errorf("combo at %d has difficulty %q", e.TimeSec, e.Difficulty)
			}
		}
	}
	if len(combos) == 0 || combos[0] != 2 {
		t.Fatalf("first combo = %v, want 2", combos)
	}
	for i, c := range combos {
		if c >= 160 {
			t.Errorf("combo at %d is inside the closing window", c)
		}
		if i > 0 && c-combos[i-1] != 12 {
			t.Errorf("combo gap %d→%d is not 12", combos[i-1], c)
		}
	}
	if seg.RoundCalloutFile != "rounds/round-3.mp3" {
		t.Errorf("callout = %q", seg.RoundCalloutFile)
	}
}

func TestBuildRoundCoachCuesAvoidCombos(t *testing.T) {
	g := newGen(7)
	for _, pace := range model.ValidPaces {
		for i := 0; i < 200; i++ {
			seg := g.BuildRound(1, model.DifficultyBeginner, pace)

			var combos []int
			coach := 0
			for _, e := range seg.Events {
				if e.EventType == model.EventCombo {
					combos = append(combos, e.TimeSec)
				}
			}
			for _, e := range seg.Events {
				if e.EventType != model.EventTip && e.EventType != model.EventMotivation {
					continue
				}
				coach++
				for _, c := range combos {
					if d := e.TimeSec - c; d > -4 && d < 4 {
						t.Fatalf("pace %s: %s at %d is %ds from combo at %d", pace, e.EventType, e.TimeSec, d, c)
					}
				}
			}
			if coach > 4 {
				t.Fatalf("pace %s: %d coach cues, want at most 4", pace, coach)
			}
		}
	}
}

func TestBuildRoundOrderingAndCountdowns(t *testing.T) {
	g := newGen(11)
	for _, pace := range model.ValidPaces {
		seg := g.BuildRound(1, model.DifficultyIntermediate, pace)

		for i := 1; i < len(seg.Events); i++ {
			if seg.Events[i].TimeSec < seg.Events[i-1].TimeSec {
				t.Fatalf("pace %s: events not sorted at %d", pace, i)
			}
		}
		last := seg.Events[len(seg.Events)-1]
		if last.EventType != model.EventCountdown || last.Variant != model.CountdownLastTenPush || last.TimeSec != 170 {
			t.Errorf("pace %s: last event = %+v", pace, last)
		}
		if len(seg.BreakEvents) != 1 {
			t.Fatalf("pace %s: %d break events", pace, len(seg.BreakEvents))
		}
		be := seg.BreakEvents[0]
		if be.EventType != model.EventCountdown || be.Variant != model.CountdownBreakIn321 || be.TimeSec != 27 {
			t.Errorf("pace %s: break event = %+v", pace, be)
		}
	}
}

func TestBuildRoundIsReproducible(t *testing.T) {
	a := newGen(99).BuildRound(1, model.DifficultyBeginner, model.PaceNormal)
	b := newGen(99).BuildRound(1, model.DifficultyBeginner, model.PaceNormal)
	if len(a.Events) != len(b.Events) {
		t.Fatalf("event counts differ: %d vs %d", len(a.Events), len(b.Events))
	}
	for i := range a.Events {
		if a.Events[i] != b.Events[i] {
			t.Fatalf("event %d differs: %+v vs %+v", i, a.Events[i], b.Events[i])
		}
	}
}

// --- Class plan ---

func TestBuildClassPlanEndToEnd(t *testing.T) {
	params, err := ParseParams(model.GenerateRequest{
		Difficulty: "beginner",
		Length:     model.IntOf(60),
		Pace:       "Normal",
		Music:      "None",
	}, false, 60)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	plan := newGen(3).BuildClassPlan(params)

	if plan.NumRounds != 14 {
		t.Fatalf("NumRounds = %d, want 14", plan.NumRounds)
	}
	if plan.Pace != model.PaceNormal {
		t.Errorf("Pace = %q", plan.Pace)
	}

	wantTypes := []model.SegmentType{model.SegmentIntro, model.SegmentWarmup}
	for i := 0; i < 14; i++ {
		wantTypes = append(wantTypes, model.SegmentRound)
	}
	wantTypes = append(wantTypes, model.SegmentCore, model.SegmentCooldown, model.SegmentOutro)
	if len(plan.Segments) != len(wantTypes) {
		t.Fatalf("%d segments, want %d", len(plan.Segments), len(wantTypes))
	}
	for i, seg := range plan.Segments {
		if seg.Type != wantTypes[i] {
			t.Errorf("segment %d = %s, want %s", i, seg.Type, wantTypes[i])
		}
	}

	for i, r := range plan.Rounds() {
		if r.RoundNumber != i+1 {
			t.Errorf("round %d numbered %d", i+1, r.RoundNumber)
		}
		if len(r.BreakEvents) != 1 || r.BreakEvents[0].TimeSec != 27 || r.BreakEvents[0].EventType != model.EventCountdown {
			t.Errorf("round %d break events = %+v", r.RoundNumber, r.BreakEvents)
		}
	}

	if plan.Segments[1].DurationSec != 300 || plan.Segments[16].DurationSec != 300 || plan.Segments[17].DurationSec != 60 {
		t.Error("fixed segment durations wrong")
	}

	cues := assets.DefaultManifest()
	for _, i := range []int{0, 1, 16, 17, 18} {
		seg := plan.Segments[i]
		if seg.File != cues.Segment(seg.Type) || seg.File == "" {
			t.Errorf("segment %d (%s) file = %q", i, seg.Type, seg.File)
		}
	}
}

func TestBuildClassPlanShortClassHasOneRound(t *testing.T) {
	plan := newGen(5).BuildClassPlan(model.ClassParams{
		Difficulty: model.DifficultyAdvanced,
		LengthMin:  5,
		Pace:       model.PaceSlow,
		Music:      "None",
	})
	if plan.NumRounds != 1 || len(plan.Rounds()) != 1 {
		t.Fatalf("NumRounds = %d, rounds = %d", plan.NumRounds, len(plan.Rounds()))
	}
}

// --- Params ---

func TestParseParamsNormalizes(t *testing.T) {
	tests := []struct {
		name string
		raw  model.GenerateRequest
		want model.ClassParams
	}{
		{
			"defaults",
			model.GenerateRequest{},
			model.ClassParams{Difficulty: "beginner", LengthMin: 45, Pace: "normal", Music: "None"},
		},
		{
			"case and whitespace",
			model.GenerateRequest{Difficulty: " Advanced ", Length: model.IntOf(30), Pace: "FAST", Music: "hiphop"},
			model.ClassParams{Difficulty: "advanced", LengthMin: 30, Pace: "fast", Music: "hiphop"},
		},
		{
			"garbage length and pace",
			model.GenerateRequest{Difficulty: "beginner", Length: model.ParseFlexInt("abc"), Pace: "sprint"},
			model.ClassParams{Difficulty: "beginner", LengthMin: 45, Pace: "normal", Music: "None"},
		},
		{
			"non-positive length",
			model.GenerateRequest{Difficulty: "beginner", Length: model.IntOf(-3)},
			model.ClassParams{Difficulty: "beginner", LengthMin: 45, Pace: "normal", Music: "None"},
		},
		{
			"unknown difficulty passes through",
			model.GenerateRequest{Difficulty: "Expert", Length: model.IntOf(60)},
			model.ClassParams{Difficulty: "expert", LengthMin: 60, Pace: "normal", Music: "None"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.raw, false, 45)
			if err != nil {
				t.Fatalf("ParseParams: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseParamsStrict(t *testing.T) {
	bad := []model.GenerateRequest{
		{Difficulty: "", Length: model.IntOf(60), Pace: "normal"},
		{Difficulty: "expert", Length: model.IntOf(60), Pace: "normal"},
		{Difficulty: "beginner", Length: model.ParseFlexInt("sixty"), Pace: "normal"},
		{Difficulty: "beginner", Length: model.IntOf(60), Pace: "sprint"},
	}
	for i, raw := range bad {
		if _, err := ParseParams(raw, true, 60); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}

	got, err := ParseParams(model.GenerateRequest{Difficulty: "Beginner", Length: model.IntOf(20), Pace: "Slow"}, true, 60)
	if err != nil {
		t.Fatalf("valid strict input rejected: %v", err)
	}
	if got.Pace != model.PaceSlow || got.Difficulty != model.DifficultyBeginner {
		t.Errorf("got %+v", got)
	}
}
