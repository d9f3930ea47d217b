package timeline

import (
	"context"
	"fmt"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/model"
)

const (
	calloutOffsetSec = 2
	// The end-of-round cue starts this many seconds before the bell.
	endCueLeadSec = 4
)

// Assembler renders a class plan into one continuous track.
type Assembler struct {
	resolver *assets.Resolver
	loader   Loader
}

func NewAssembler(resolver *assets.Resolver, loader Loader) *Assembler {
	return &Assembler{resolver: resolver, loader: loader}
}

// Build walks the plan in order. Fixed segments are appended as-is; each
// round is rendered into its own silent block covering the round and its
// break, then appended. Any resolution or load failure aborts the render.
func (a *Assembler) Build(ctx context.Context, plan *model.ClassPlan) (*audio.Track, error) {
	if plan == nil {
		return nil, fmt.Errorf("timeline: nil plan")
	}
	loader := newCachingLoader(a.loader)
	master := audio.Silent(0)

	for i, seg := range plan.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case seg.Type.IsFixed():
			clip, err := a.fixed(ctx, loader, seg.File)
			if err != nil {
				return nil, fmt.Errorf("segment %d (%s): %w", i, seg.Type, err)
			}
			master.Append(clip)

		case seg.Type == model.SegmentRound:
			block, err := a.round(ctx, loader, seg)
			if err != nil {
				return nil, fmt.Errorf("round %d: %w", seg.RoundNumber, err)
			}
			master.Append(block)

		default:
			return nil, fmt.Errorf("segment %d: unknown type %q", i, seg.Type)
		}
	}
	return master, nil
}

func (a *Assembler) round(ctx context.Context, loader Loader, seg model.Segment) (*audio.Track, error) {
	block := audio.Silent(audio.SecondsToMs(seg.DurationSec + seg.BreakDurationSec))

	cues := []struct {
		ref    string
		offset int
	}{
		{seg.StartFile, 0},
		{seg.RoundCalloutFile, calloutOffsetSec},
		{seg.EndFile, max(seg.DurationSec-endCueLeadSec, 0)},
	}
	for _, c := range cues {
		clip, err := a.fixed(ctx, loader, c.ref)
		if err != nil {
			return nil, err
		}
		block.Overlay(clip, audio.SecondsToMs(c.offset))
	}

	for _, e := range seg.Events {
		if err := a.event(ctx, loader, block, e, 0); err != nil {
			return nil, err
		}
	}
	for _, e := range seg.BreakEvents {
		if err := a.event(ctx, loader, block, e, seg.DurationSec); err != nil {
			return nil, err
		}
	}
	return block, nil
}

// event overlays the clip for e at base+e.TimeSec seconds. Unknown event
// types are skipped.
func (a *Assembler) event(ctx context.Context, loader Loader, block *audio.Track, e model.Event, baseSec int) error {
	var (
		ref string
		err error
	)
	switch e.EventType {
	case model.EventCombo:
		ref, err = a.resolver.Pick(ctx, string(e.Difficulty))
	case model.EventTip:
		ref, err = a.resolver.Pick(ctx, assets.PoolTips)
	case model.EventMotivation:
		ref, err = a.resolver.Pick(ctx, assets.PoolMotivation)
	case model.EventCountdown:
		ref, err = a.resolver.Countdown(ctx, e.Variant)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s at %ds: %w", e.EventType, e.TimeSec, err)
	}

	clip, err := loader.Load(ctx, ref)
	if err != nil {
		return fmt.Errorf("%s at %ds: %w", e.EventType, e.TimeSec, err)
	}
	block.Overlay(clip, audio.SecondsToMs(baseSec+e.TimeSec))
	return nil
}

func (a *Assembler) fixed(ctx context.Context, loader Loader, ref string) (*audio.Track, error) {
	ref, err := a.resolver.Fixed(ctx, ref)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, ref)
}
