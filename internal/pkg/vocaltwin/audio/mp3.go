package audio

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// LoadMP3 decodes an MP3 file into a mono Clip at the file's sample rate.
// go-mp3 always emits 16-bit stereo frames; the two channels are averaged.
func LoadMP3(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode MP3: %w", path, err)
	}

	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("failed to read MP3 data: %w", err)
	}

	// 4 bytes per frame: int16 LE left, int16 LE right.
	frames := len(pcm) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(pcm[i*4]) | int16(pcm[i*4+1])<<8
		right := int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8
		samples[i] = (float32(left) + float32(right)) / 2 / 32768.0
	}

	return NewClip(samples, d.SampleRate()), nil
}
