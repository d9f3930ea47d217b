package timeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/model"
	"github.com/Corner-Boxing/corner-backend/internal/planner"
)

// fakeLoader returns a constant-valued clip per ref and counts loads.
type fakeLoader struct {
	clips map[string]*audio.Track
	def   *audio.Track
	loads map[string]int
}

func (f *fakeLoader) Load(_ context.Context, ref string) (*audio.Track, error) {
	f.loads[ref]++
	if t, ok := f.clips[ref]; ok {
		return t, nil
	}
	return f.def, nil
}

func clip(ms int, v int16) *audio.Track {
	t := audio.Silent(ms)
	for i := range t.Samples {
		t.Samples[i] = v
	}
	return t
}

var library = []string{
	"intro_outro/intro.mp3",
	"intro_outro/outro.mp3",
	"warmup/warmup.mp3",
	"core/core.mp3",
	"cooldown/cooldown.mp3",
	"round_start_end/get-ready-round-starting.mp3",
	"round_start_end/time-recover-and-breathe.mp3",
	"rounds/round-1.mp3",
	"rounds/round-2.mp3",
	"countdowns/last-ten-seconds-push.mp3",
	"countdowns/break-in-3-2-1.mp3",
	"countdowns/5-4-3-2-1.mp3",
	"beginner/1-1-2.mp3",
	"beginner/1-2.mp3",
	"tips/breathe.mp3",
	"motivation/keep-going.mp3",
}

func setup(t *testing.T, skip ...string) (*assets.Resolver, *fakeLoader) {
	t.Helper()
	root := t.TempDir()
	skipped := map[string]bool{}
	for _, s := range skip {
		skipped[s] = true
	}
	for _, ref := range library {
		full := filepath.Join(root, filepath.FromSlash(ref))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if skipped[ref] {
			continue
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	resolver := assets.NewResolver(assets.NewDirRepository(root), assets.DefaultManifest(), rand.New(rand.NewPCG(1, 2)))
	loader := &fakeLoader{
		clips: map[string]*audio.Track{
			"intro_outro/intro.mp3":                        clip(1500, 100),
			"intro_outro/outro.mp3":                        clip(700, 200),
			"warmup/warmup.mp3":                            clip(3000, 1),
			"core/core.mp3":                                clip(2000, 1),
			"cooldown/cooldown.mp3":                        clip(1000, 1),
			"round_start_end/get-ready-round-starting.mp3": clip(1000, 10),
			"rounds/round-1.mp3":                           clip(800, 20),
			"round_start_end/time-recover-and-breathe.mp3": clip(1500, 30),
			"countdowns/last-ten-seconds-push.mp3":         clip(10000, 5),
			"countdowns/break-in-3-2-1.mp3":                clip(3000, 40),
		},
		def:   clip(500, 5),
		loads: map[string]int{},
	}
	return resolver, loader
}

func roundOnlyPlan() *model.ClassPlan {
	return &model.ClassPlan{
		Segments: []model.Segment{
			{Type: model.SegmentIntro, File: "intro_outro/intro.mp3"},
			{
				Type:             model.SegmentRound,
				RoundNumber:      1,
				DurationSec:      180,
				BreakDurationSec: 30,
				StartFile:        "round_start_end/get-ready-round-starting.mp3",
				RoundCalloutFile: "rounds/round-1.mp3",
				EndFile:          "round_start_end/time-recover-and-breathe.mp3",
				Events: []model.Event{
					{EventType: model.EventCombo, TimeSec: 17, Difficulty: model.DifficultyBeginner},
					{EventType: model.EventCountdown, TimeSec: 170, Variant: model.CountdownLastTenPush},
				},
				BreakEvents: []model.Event{
					{EventType: model.EventCountdown, TimeSec: 27, Variant: model.CountdownBreakIn321},
				},
			},
			{Type: model.SegmentOutro, File: "intro_outro/outro.mp3"},
		},
	}
}

func at(tr *audio.Track, ms int) int16 {
	return tr.Samples[audio.SamplesForMs(ms)]
}

func TestBuildLaysOutRoundBlock(t *testing.T) {
	resolver, loader := setup(t)
	out, err := NewAssembler(resolver, loader).Build(context.Background(), roundOnlyPlan())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// intro 1.5s + round block 210s + outro 0.7s
	if got, want := out.DurationMs(), 1500+210000+700; got != want {
		t.Fatalf("DurationMs = %d, want %d", got, want)
	}

	const roundStart = 1500
	checks := []struct {
		name string
		ms   int
		want int16
	}{
		{"intro", 0, 100},
		{"start cue", roundStart + 100, 10},
		{"silence before callout", roundStart + 1500, 0},
		{"callout", roundStart + 2100, 20},
		{"combo", roundStart + 17000, 5},
		{"push countdown alone", roundStart + 172000, 5},
		{"push countdown over end cue", roundStart + 177000, 35},
		{"break countdown", roundStart + 207000, 40},
		{"outro", roundStart + 210000, 200},
	}
	for _, c := range checks {
		if got := at(out, c.ms); got != c.want {
			t.Errorf("%s @%dms = %d, want %d", c.name, c.ms, got, c.want)
		}
	}
}

func TestBuildCueOverrunExtendsBlock(t *testing.T) {
	resolver, loader := setup(t)
	plan := roundOnlyPlan()
	plan.Segments = plan.Segments[1:2]
	// break countdown at 28s with a 3s clip runs 1s past the break window
	plan.Segments[0].BreakEvents[0].TimeSec = 28

	out, err := NewAssembler(resolver, loader).Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := out.DurationMs(); got != 211000 {
		t.Errorf("DurationMs = %d, want 211000", got)
	}
}

func TestBuildFullPlanMemoizesClips(t *testing.T) {
	resolver, loader := setup(t)
	gen := planner.New(assets.DefaultManifest(), rand.New(rand.NewPCG(4, 4)))
	plan := gen.BuildClassPlan(model.ClassParams{
		Difficulty: model.DifficultyBeginner,
		LengthMin:  18,
		Pace:       model.PaceNormal,
		Music:      "None",
	})
	if plan.NumRounds != 2 {
		t.Fatalf("NumRounds = %d, want 2", plan.NumRounds)
	}

	out, err := NewAssembler(resolver, loader).Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// fixed: 1500+3000+2000+1000+700, rounds: 2 x 210s
	if got, want := out.DurationMs(), 8200+2*210000; got != want {
		t.Errorf("DurationMs = %d, want %d", got, want)
	}
	for ref, n := range loader.loads {
		if n != 1 {
			t.Errorf("%s loaded %d times in one render", ref, n)
		}
	}
}

func TestBuildPropagatesResolverErrors(t *testing.T) {
	tests := []struct {
		name string
		skip []string
		want error
	}{
		{"missing fixed clip", []string{"rounds/round-1.mp3"}, assets.ErrResourceNotFound},
		{"empty combo pool", []string{"beginner/1-1-2.mp3", "beginner/1-2.mp3"}, assets.ErrEmptyPool},
		{"missing break countdown", []string{"countdowns/break-in-3-2-1.mp3"}, assets.ErrResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, loader := setup(t, tt.skip...)
			_, err := NewAssembler(resolver, loader).Build(context.Background(), roundOnlyPlan())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildUndefinedPool(t *testing.T) {
	resolver, loader := setup(t)
	plan := roundOnlyPlan()
	plan.Segments[1].Events[0].Difficulty = "expert"

	_, err := NewAssembler(resolver, loader).Build(context.Background(), plan)
	if !errors.Is(err, assets.ErrPoolNotFound) {
		t.Errorf("err = %v, want ErrPoolNotFound", err)
	}
}
