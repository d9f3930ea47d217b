package audio

import "time"

const (
	SampleRate     = 24000
	Channels       = 1
	BitDepth       = 16
	FramesPerMilli = SampleRate / 1000 // exact: every millisecond is a whole number of frames
)

// SamplesForMs converts a millisecond offset to a sample index.
func SamplesForMs(ms int) int {
	return ms * FramesPerMilli * Channels
}

// MsForSamples converts a sample count back to whole milliseconds.
func MsForSamples(samples int) int {
	return samples / (FramesPerMilli * Channels)
}

// SecondsToMs converts plan-level whole seconds to mixer milliseconds.
func SecondsToMs(sec int) int {
	return sec * 1000
}

// Duration converts a millisecond count to a time.Duration.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
