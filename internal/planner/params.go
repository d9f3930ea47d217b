package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultLengthMin = 60
	DefaultMusic     = "None"
)

// ParseParams turns a raw submission into class parameters.
//
// By default malformed values are normalized: a missing or unparseable
// length becomes defaultLength, an unknown pace becomes normal, an empty
// difficulty becomes beginner. With strict set, the same inputs fail with
// ErrInvalidInput instead. Difficulty is only lowercased here; an unknown
// tier is left for validation to reject.
func ParseParams(raw model.GenerateRequest, strict bool, defaultLength int) (model.ClassParams, error) {
	if defaultLength <= 0 {
		defaultLength = DefaultLengthMin
	}

	difficulty := strings.ToLower(strings.TrimSpace(raw.Difficulty))
	if difficulty == "" {
		if strict {
			return model.ClassParams{}, fmt.Errorf("%w: difficulty is required", ErrInvalidInput)
		}
		difficulty = string(model.DifficultyBeginner)
	}
	if strict && !validDifficulty(model.Difficulty(difficulty)) {
		return model.ClassParams{}, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, raw.Difficulty)
	}

	length := raw.Length.Value
	if !raw.Length.Set || length <= 0 {
		if strict {
			return model.ClassParams{}, fmt.Errorf("%w: length must be a positive integer, got %q", ErrInvalidInput, raw.Length.Raw)
		}
		length = defaultLength
	}

	pace := model.Pace(strings.ToLower(strings.TrimSpace(raw.Pace)))
	if !validPace(pace) {
		if strict {
			return model.ClassParams{}, fmt.Errorf("%w: unknown pace %q", ErrInvalidInput, raw.Pace)
		}
		pace = model.PaceNormal
	}

	music := strings.TrimSpace(raw.Music)
	if music == "" {
		music = DefaultMusic
	}

	return model.ClassParams{
		Difficulty: model.Difficulty(difficulty),
		LengthMin:  length,
		Pace:       pace,
		Music:      music,
	}, nil
}

func validDifficulty(d model.Difficulty) bool {
	for _, v := range model.ValidDifficulties {
		if v == d {
			return true
		}
	}
	return false
}

func validPace(p model.Pace) bool {
	for _, v := range model.ValidPaces {
		if v == p {
			return true
		}
	}
	return false
}
