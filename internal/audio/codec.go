package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// Output formats
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// Codec shells out to FFmpeg for decoding cue clips to PCM and encoding the
// rendered class to its delivery format.
type Codec struct {
	FFmpegPath string
	Format     string
	Bitrate    string
}

// NewCodec creates a codec. Empty fields fall back to ffmpeg on PATH and
// 128k MP3.
func NewCodec(ffmpegPath, format, bitrate string) *Codec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if format == "" {
		format = FormatMP3
	}
	if bitrate == "" {
		bitrate = "128k"
	}
	return &Codec{FFmpegPath: ffmpegPath, Format: format, Bitrate: bitrate}
}

// ContentType returns the MIME type of the encoded output.
func (c *Codec) ContentType() string {
	if c.Format == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// Extension returns the file extension of the encoded output, with dot.
func (c *Codec) Extension() string {
	return "." + c.Format
}

// Decode runs FFmpeg over r and returns mono PCM at SampleRate.
func (c *Codec) Decode(ctx context.Context, r io.Reader) (*Track, error) {
	cmd := exec.CommandContext(ctx, c.FFmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return &Track{Samples: BytesToSamples(out)}, nil
}

// Encode writes t to w in the codec's format.
func (c *Codec) Encode(ctx context.Context, t *Track, w io.Writer) error {
	args := []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-i", "pipe:0",
		"-loglevel", "error",
	}
	switch c.Format {
	case FormatMP3:
		args = append(args, "-f", "mp3", "-b:a", c.Bitrate)
	case FormatWAV:
		args = append(args, "-f", "wav", "-acodec", "pcm_s16le")
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, c.FFmpegPath, args...)
	cmd.Stdin = bytes.NewReader(SamplesToBytes(t.Samples))
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w: %s", c.Format, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian bytes to int16 samples. A trailing
// odd byte is dropped.
func BytesToSamples(buf []byte) []int16 {
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples
}
