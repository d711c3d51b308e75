package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts the clip to the given sample rate. The input clip is
// returned unchanged when the rates already match.
func Resample(c *Clip, sampleRate int) (*Clip, error) {
	if c.SampleRate == sampleRate {
		return c, nil
	}
	if c.SampleRate <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d -> %d", c.SampleRate, sampleRate)
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(c.SampleRate),
		OutputRate: float64(sampleRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		input[i] = float64(s)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	samples := make([]float32, len(output))
	for i, s := range output {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		samples[i] = float32(s)
	}

	return NewClip(samples, sampleRate), nil
}
