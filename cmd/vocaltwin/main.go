package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vocaltwin/internal/pkg/vocaltwin/config"
	"vocaltwin/internal/pkg/vocaltwin/converter"
	"vocaltwin/internal/pkg/vocaltwin/embedding"
	"vocaltwin/internal/pkg/vocaltwin/melotts"
	"vocaltwin/internal/pkg/vocaltwin/onnxrt"
	"vocaltwin/internal/pkg/vocaltwin/synthesizer"
	"vocaltwin/internal/pkg/vocaltwin/trainer"
)

func main() {
	fmt.Fprintf(os.Stderr, "vocaltwin %s\n", Version)

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadAndParse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse configuration")
	}

	if err := setupLogging(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup logging")
	}

	log.Debug().
		Str("action", cfg.Action).
		Str("audio_dir", cfg.AudioDir).
		Str("text_dir", cfg.TextDir).
		Str("checkpoint_dir", cfg.CheckpointDir).
		Str("output_dir", cfg.OutputDir).
		Str("models_dir", cfg.ModelsDir).
		Str("language", cfg.Language).
		Str("device", cfg.Device).
		Msg("Configuration loaded")

	// Cheap precondition checks, before any checkpoint is loaded.
	var targetSE []float32
	if cfg.Action == config.ActionTrain || cfg.Action == config.ActionTrainAndSynthesize {
		if _, err := trainer.CollectSamples(cfg.AudioDir); err != nil {
			log.Fatal().Err(err).Msg("Nothing to train on")
		}
	}
	if cfg.Action == config.ActionSynthesize {
		targetSE, err = embedding.Load(cfg.CheckpointDir)
		if err != nil {
			if errors.Is(err, embedding.ErrNotFound) {
				log.Fatal().Err(err).Msg("No speaker embedding yet, run train first")
			}
			log.Fatal().Err(err).Msg("Failed to load speaker embedding")
		}
	}
	if cfg.Action == config.ActionSynthesize || cfg.Action == config.ActionTrainAndSynthesize {
		if _, err := synthesizer.CollectTexts(cfg.TextDir); err != nil {
			log.Fatal().Err(err).Msg("Nothing to synthesize")
		}
	}

	if err := onnxrt.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ONNX runtime")
	}
	defer onnxrt.Destroy()

	opts, err := onnxrt.SessionOptions(cfg.Device)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to select execution device")
	}
	defer opts.Destroy()

	log.Info().Msg("Loading tone colour converter...")
	conv, err := converter.Load(convDir(cfg), opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load converter checkpoint")
	}
	defer conv.Close()

	if cfg.Action == config.ActionTrain || cfg.Action == config.ActionTrainAndSynthesize {
		path, err := trainer.New(conv).Train(cfg.AudioDir, cfg.CheckpointDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Training failed")
		}
		log.Info().Str("embedding", path).Msg("Training complete")

		if cfg.Action == config.ActionTrainAndSynthesize {
			targetSE, err = embedding.Load(cfg.CheckpointDir)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load speaker embedding")
			}
		}
	}

	if cfg.Action == config.ActionSynthesize || cfg.Action == config.ActionTrainAndSynthesize {
		log.Info().Str("language", cfg.Language).Msg("Loading TTS engine...")
		tts, err := melotts.Load(cfg.ModelsDir, cfg.Language, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load TTS checkpoint")
		}
		defer tts.Close()

		outputs, err := synthesizer.New(tts, conv, targetSE).Synthesize(cfg.TextDir, cfg.OutputDir)
		if err != nil {
			var batch *synthesizer.BatchError
			if errors.As(err, &batch) {
				log.Error().
					Int("ok", len(outputs)).
					Int("failed", len(batch.Failures)).
					Msg("Synthesis finished with failures")
				os.Exit(1)
			}
			log.Fatal().Err(err).Msg("Synthesis failed")
		}
		log.Info().Int("count", len(outputs)).Str("output_dir", cfg.OutputDir).Msg("All outputs written")
	}
}

func convDir(cfg *config.Config) string {
	return filepath.Join(cfg.ModelsDir, "converter")
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	}

	return nil
}
