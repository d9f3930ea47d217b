package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

// Manifest maps logical cues to clip paths inside the asset repository.
type Manifest struct {
	Intro        string `yaml:"intro"`
	Outro        string `yaml:"outro"`
	Warmup       string `yaml:"warmup"`
	Core         string `yaml:"core"`
	Cooldown     string `yaml:"cooldown"`
	RoundStart   string `yaml:"round_start"`
	RoundEnd     string `yaml:"round_end"`
	RoundCallout string `yaml:"round_callout"` // {n} is replaced by the round number

	Countdowns map[model.CountdownVariant]string `yaml:"countdowns"`

	// Pools maps a category name to its directory.
	Pools map[string]string `yaml:"pools"`

	// Extensions lists eligible clip extensions for pool selection.
	Extensions []string `yaml:"extensions"`
}

// Pool categories besides the difficulty tiers
const (
	PoolTips       = "tips"
	PoolMotivation = "motivation"
)

// DefaultManifest reproduces the on-disk layout of the audio library.
func DefaultManifest() Manifest {
	return Manifest{
		Intro:        "intro_outro/intro.mp3",
		Outro:        "intro_outro/outro.mp3",
		Warmup:       "warmup/warmup.mp3",
		Core:         "core/core.mp3",
		Cooldown:     "cooldown/cooldown.mp3",
		RoundStart:   "round_start_end/get-ready-round-starting.mp3",
		RoundEnd:     "round_start_end/time-recover-and-breathe.mp3",
		RoundCallout: "rounds/round-{n}.mp3",
		Countdowns: map[model.CountdownVariant]string{
			model.CountdownLastTenPush: "countdowns/last-ten-seconds-push.mp3",
			model.CountdownBreakIn321:  "countdowns/break-in-3-2-1.mp3",
			model.CountdownGeneric:     "countdowns/5-4-3-2-1.mp3",
		},
		Pools: map[string]string{
			string(model.DifficultyBeginner):     "beginner",
			string(model.DifficultyIntermediate): "intermediate",
			string(model.DifficultyAdvanced):     "advanced",
			PoolTips:                             "tips",
			PoolMotivation:                       "motivation",
		},
		Extensions: []string{".mp3"},
	}
}

// ParseManifest decodes a YAML manifest. Keys left out keep their defaults.
func ParseManifest(data []byte) (Manifest, error) {
	m := DefaultManifest()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	var override Manifest
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Manifest{}, fmt.Errorf("assets: decode manifest: %w", err)
	}
	m.merge(override)
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads a manifest file. An empty path or a missing file
// yields the default manifest.
func LoadManifest(path string) (Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultManifest(), nil
		}
		return Manifest{}, fmt.Errorf("assets: read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("assets: %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that every fixed cue has a path.
func (m Manifest) Validate() error {
	fixed := map[string]string{
		"intro":         m.Intro,
		"outro":         m.Outro,
		"warmup":        m.Warmup,
		"core":          m.Core,
		"cooldown":      m.Cooldown,
		"round_start":   m.RoundStart,
		"round_end":     m.RoundEnd,
		"round_callout": m.RoundCallout,
	}
	for name, path := range fixed {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("assets: manifest entry %q is empty", name)
		}
	}
	if m.Countdowns[model.CountdownGeneric] == "" {
		return fmt.Errorf("assets: manifest has no %q countdown", model.CountdownGeneric)
	}
	return nil
}

// Segment returns the clip path for a fixed segment type.
func (m Manifest) Segment(t model.SegmentType) string {
	switch t {
	case model.SegmentIntro:
		return m.Intro
	case model.SegmentOutro:
		return m.Outro
	case model.SegmentWarmup:
		return m.Warmup
	case model.SegmentCore:
		return m.Core
	case model.SegmentCooldown:
		return m.Cooldown
	}
	return ""
}

// Callout returns the callout path for a round number.
func (m Manifest) Callout(round int) string {
	return strings.ReplaceAll(m.RoundCallout, "{n}", strconv.Itoa(round))
}

// Countdown returns the path for a countdown variant. Unknown variants
// fall back to the generic 5-4-3-2-1 clip.
func (m Manifest) Countdown(v model.CountdownVariant) string {
	if p, ok := m.Countdowns[v]; ok && p != "" {
		return p
	}
	return m.Countdowns[model.CountdownGeneric]
}

// Eligible reports whether name has one of the manifest's clip extensions.
func (m Manifest) Eligible(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range m.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func (m *Manifest) merge(o Manifest) {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&m.Intro, o.Intro)
	set(&m.Outro, o.Outro)
	set(&m.Warmup, o.Warmup)
	set(&m.Core, o.Core)
	set(&m.Cooldown, o.Cooldown)
	set(&m.RoundStart, o.RoundStart)
	set(&m.RoundEnd, o.RoundEnd)
	set(&m.RoundCallout, o.RoundCallout)
	for k, v := range o.Countdowns {
		m.Countdowns[k] = v
	}
	for k, v := range o.Pools {
		m.Pools[k] = v
	}
	if len(o.Extensions) > 0 {
		m.Extensions = o.Extensions
	}
}
