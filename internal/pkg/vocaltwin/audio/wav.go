package audio

import (
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitsPerSample = 16

// LoadWAV decodes a PCM WAV file into a mono Clip at the file's sample rate.
// Multi-channel files are downmixed.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file: %w", path, ErrUnsupportedFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV data: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 {
		return nil, fmt.Errorf("%s: missing WAV format header", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = bitsPerSample
	}
	scale := float32(int(1) << (bitDepth - 1))

	frames := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		frames[i] = float32(s) / scale
	}

	return NewClip(downmix(frames, buf.Format.NumChannels), buf.Format.SampleRate), nil
}

// SaveWAV writes the clip as a 16-bit mono PCM WAV file.
func (c *Clip) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	e := wav.NewEncoder(f, c.SampleRate, bitsPerSample, 1, 1)

	data := make([]int, len(c.Samples))
	for i, sample := range c.Samples {
		clamped := sample
		if clamped > 1.0 {
			clamped = 1.0
		} else if clamped < -1.0 {
			clamped = -1.0
		}
		data[i] = int(clamped * math.MaxInt16)
	}

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{SampleRate: c.SampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: bitsPerSample,
	}
	if err := e.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return e.Close()
}
