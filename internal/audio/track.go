package audio

// Track is signed 16-bit PCM at SampleRate with Channels interleaved.
// The zero value is an empty track.
type Track struct {
	Samples []int16
}

// Silent returns a track of ms milliseconds of silence.
func Silent(ms int) *Track {
	if ms < 0 {
		ms = 0
	}
	return &Track{Samples: make([]int16, SamplesForMs(ms))}
}

// DurationMs returns the track length in whole milliseconds.
func (t *Track) DurationMs() int {
	if t == nil {
		return 0
	}
	return MsForSamples(len(t.Samples))
}

// Append concatenates clip onto the end of t.
func (t *Track) Append(clip *Track) {
	if clip == nil {
		return
	}
	t.Samples = append(t.Samples, clip.Samples...)
}

// Overlay mixes clip into t starting at offsetMs. Negative offsets are
// clamped to zero. If the offset lies past the end of t, t is padded with
// silence first. Overlapping samples are summed with int16 saturation and t
// grows to cover the whole clip, so nothing is ever truncated.
func (t *Track) Overlay(clip *Track, offsetMs int) {
	if offsetMs < 0 {
		offsetMs = 0
	}
	start := SamplesForMs(offsetMs)
	if start > len(t.Samples) {
		t.extend(start)
	}
	if clip == nil {
		return
	}
	end := start + len(clip.Samples)
	if end > len(t.Samples) {
		t.extend(end)
	}
	dst := t.Samples[start:end]
	for i, s := range clip.Samples {
		dst[i] = mix(dst[i], s)
	}
}

// extend pads t with silence up to n samples.
func (t *Track) extend(n int) {
	if n <= len(t.Samples) {
		return
	}
	if n <= cap(t.Samples) {
		prev := len(t.Samples)
		t.Samples = t.Samples[:n]
		clear(t.Samples[prev:])
		return
	}
	grown := make([]int16, n, n+n/4)
	copy(grown, t.Samples)
	t.Samples = grown
}

// mix sums two samples and clips to the int16 range.
func mix(a, b int16) int16 {
	sum := int32(a) + int32(b)
	if sum > 32767 {
		return 32767
	}
	if sum < -32768 {
		return -32768
	}
	return int16(sum)
}
