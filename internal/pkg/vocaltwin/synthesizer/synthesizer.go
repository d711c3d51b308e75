// Package synthesizer turns text files into speech in the trained target
// voice: base audio from the TTS model, then tone-colour conversion keyed
// by the persisted speaker embedding.
package synthesizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vocaltwin/internal/pkg/vocaltwin/audio"
)

// ErrNoTexts is returned when the text directory holds no non-empty .txt
// file.
var ErrNoTexts = errors.New("no text files found")

// errEmptyText marks a file whose content is blank after trimming. Such
// files are skipped, not failed.
var errEmptyText = errors.New("text file is empty")

// TTS produces base audio in the model's default voice.
type TTS interface {
	SampleRate() int
	Speak(text string) (*audio.Clip, error)
}

// Converter is the tone-colour model: extracts the base voice's reference
// embedding and re-voices audio to the target speaker.
type Converter interface {
	SampleRate() int
	ExtractSE(clips ...*audio.Clip) ([]float32, error)
	Convert(clip *audio.Clip, srcSE, tgtSE []float32) (*audio.Clip, error)
}

// FileError records one text file's failure without aborting the batch.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError aggregates per-file failures from one synthesis run.
type BatchError struct {
	Failures []*FileError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("synthesis failed for %d file(s)", len(e.Failures))
}

type Synthesizer struct {
	tts      TTS
	conv     Converter
	targetSE []float32
}

// New builds a synthesizer around loaded models and the persisted target
// speaker embedding.
func New(tts TTS, conv Converter, targetSE []float32) *Synthesizer {
	return &Synthesizer{tts: tts, conv: conv, targetSE: targetSE}
}

// Synthesize processes every non-empty .txt under textDir (recursively) and
// writes <stem>.wav files into outputDir, creating it if needed. Files are
// processed independently; per-file failures are collected into a BatchError
// while the rest of the batch continues. Returns the paths written.
func (s *Synthesizer) Synthesize(textDir, outputDir string) ([]string, error) {
	texts, err := CollectTexts(textDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", outputDir, err)
	}

	log.Info().Int("count", len(texts)).Str("text_dir", textDir).Msg("Starting synthesis...")

	var outputs []string
	var batch BatchError
	for _, txtPath := range texts {
		outPath, err := s.processFile(txtPath, outputDir)
		if err != nil {
			if errors.Is(err, errEmptyText) {
				log.Warn().Str("file", txtPath).Msg("Empty text file, skipping")
				continue
			}
			log.Error().Err(err).Str("file", txtPath).Msg("Synthesis failed for file")
			batch.Failures = append(batch.Failures, &FileError{Path: txtPath, Err: err})
			continue
		}
		outputs = append(outputs, outPath)
	}

	log.Info().
		Int("ok", len(outputs)).
		Int("failed", len(batch.Failures)).
		Str("output_dir", outputDir).
		Msg("Synthesis finished")

	if len(batch.Failures) > 0 {
		return outputs, &batch
	}
	return outputs, nil
}

func (s *Synthesizer) processFile(txtPath, outputDir string) (string, error) {
	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errEmptyText
	}

	log.Info().Str("file", filepath.Base(txtPath)).Msg("Synthesizing...")
	start := time.Now()

	base, err := s.tts.Speak(text)
	if err != nil {
		return "", fmt.Errorf("TTS inference: %w", err)
	}

	base, err = audio.Resample(base, s.conv.SampleRate())
	if err != nil {
		return "", fmt.Errorf("resample base audio: %w", err)
	}

	// The base voice's own reference embedding is extracted from the audio
	// it just produced.
	srcSE, err := s.conv.ExtractSE(base)
	if err != nil {
		return "", fmt.Errorf("source embedding: %w", err)
	}

	cloned, err := s.conv.Convert(base, srcSE, s.targetSE)
	if err != nil {
		return "", fmt.Errorf("tone colour conversion: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(txtPath), filepath.Ext(txtPath))
	outPath := filepath.Join(outputDir, stem+".wav")
	if err := cloned.SaveWAV(outPath); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}

	log.Debug().
		Str("output", filepath.Base(outPath)).
		Dur("elapsed", time.Since(start)).
		Float64("duration_sec", cloned.Duration()).
		Msg("Output written")
	return outPath, nil
}

// CollectTexts gathers non-empty .txt files under root recursively. Empty
// files are skipped with a warning; none at all is ErrNoTexts. Cheap enough
// for callers to run as a precondition before loading any checkpoint.
func CollectTexts(root string) ([]string, error) {
	var texts []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			log.Warn().Str("file", path).Msg("Empty text file, skipping")
			return nil
		}
		texts = append(texts, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan text dir %s: %w", root, err)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w (add .txt files to synthesize)", root, ErrNoTexts)
	}

	sort.Strings(texts)
	return texts, nil
}
