// Package trainer extracts a target speaker embedding from the user's audio
// recordings and persists it into the checkpoint directory.
package trainer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"vocaltwin/internal/pkg/vocaltwin/audio"
	"vocaltwin/internal/pkg/vocaltwin/embedding"
)

// ErrNoSamples is returned when the audio directory holds no supported
// audio file.
var ErrNoSamples = errors.New("no audio samples found")

// Extractor is the embedding side of the tone-colour converter.
type Extractor interface {
	SampleRate() int
	ExtractSE(clips ...*audio.Clip) ([]float32, error)
}

type Trainer struct {
	extractor Extractor
}

func New(extractor Extractor) *Trainer {
	return &Trainer{extractor: extractor}
}

// CollectSamples lists the supported audio files under audioDir in stable
// order. Returns ErrNoSamples when there are none, so callers can fail
// before loading any checkpoint.
func CollectSamples(audioDir string) ([]string, error) {
	entries, err := os.ReadDir(audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio dir %s: %w", audioDir, err)
	}

	var samples []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if audio.SupportedFormat(entry.Name()) {
			samples = append(samples, filepath.Join(audioDir, entry.Name()))
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: %w (add MP3 or WAV recordings)", audioDir, ErrNoSamples)
	}

	sort.Strings(samples)
	return samples, nil
}

// Train decodes every sample in audioDir, extracts one speaker embedding
// through the converter model, and writes it to the fixed path inside
// checkpointDir, replacing any previous embedding. Returns the embedding
// file path.
func (t *Trainer) Train(audioDir, checkpointDir string) (string, error) {
	samples, err := CollectSamples(audioDir)
	if err != nil {
		return "", err
	}

	log.Info().Int("count", len(samples)).Str("audio_dir", audioDir).Msg("Extracting speaker embedding...")

	clips := make([]*audio.Clip, 0, len(samples))
	for _, path := range samples {
		clip, err := audio.LoadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to load sample %s: %w", path, err)
		}

		clip, err = audio.Resample(clip, t.extractor.SampleRate())
		if err != nil {
			return "", fmt.Errorf("failed to resample %s: %w", path, err)
		}

		log.Debug().
			Str("sample", filepath.Base(path)).
			Float64("duration_sec", clip.Duration()).
			Msg("Sample decoded")
		clips = append(clips, clip)
	}

	se, err := t.extractor.ExtractSE(clips...)
	if err != nil {
		return "", fmt.Errorf("speaker embedding extraction failed: %w", err)
	}

	path, err := embedding.Save(checkpointDir, se)
	if err != nil {
		return "", err
	}

	log.Info().Str("embedding", path).Msg("Speaker embedding saved")
	return path, nil
}
