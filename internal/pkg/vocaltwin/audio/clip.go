package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when an input file's extension does not
// match any decodable audio format.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Clip holds mono PCM audio as normalized float32 samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

func NewClip(samples []float32, sampleRate int) *Clip {
	return &Clip{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// SupportedFormat reports whether path has a decodable audio extension.
func SupportedFormat(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

// LoadFile decodes an audio file into a mono Clip, dispatching on extension.
func LoadFile(path string) (*Clip, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return LoadMP3(path)
	case ".wav":
		return LoadWAV(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func downmix(frames []float32, channels int) []float32 {
	if channels <= 1 {
		return frames
	}
	mono := make([]float32, len(frames)/channels)
	for i := range mono {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += frames[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
