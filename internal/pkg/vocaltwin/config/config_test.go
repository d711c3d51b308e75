package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaltwin/internal/pkg/vocaltwin/melotts"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadAndParse([]string{"train"})
	require.NoError(t, err)

	assert.Equal(t, ActionTrain, cfg.Action)
	assert.Equal(t, "audio_samples", cfg.AudioDir)
	assert.Equal(t, "texts", cfg.TextDir)
	assert.Equal(t, "checkpoints", cfg.CheckpointDir)
	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Equal(t, "checkpoints_v2", cfg.ModelsDir)
	assert.Equal(t, "EN", cfg.Language)
	assert.Equal(t, "auto", cfg.Device)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := LoadAndParse([]string{
		"synthesize",
		"--text_dir", "my_texts",
		"--checkpoint_dir", "ckpt",
		"--output_dir", "out",
		"--language", "fr",
		"--device", "cpu",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionSynthesize, cfg.Action)
	assert.Equal(t, "my_texts", cfg.TextDir)
	assert.Equal(t, "ckpt", cfg.CheckpointDir)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "FR", cfg.Language)
	assert.Equal(t, "cpu", cfg.Device)
}

func TestMissingAction(t *testing.T) {
	_, err := LoadAndParse([]string{"--language", "EN"})
	assert.Error(t, err)
}

func TestUnknownAction(t *testing.T) {
	_, err := LoadAndParse([]string{"retrain"})
	assert.Error(t, err)
}

func TestUnsupportedLanguageRejectedBeforeAnyWork(t *testing.T) {
	_, err := LoadAndParse([]string{"synthesize", "--language", "XX"})
	assert.ErrorIs(t, err, melotts.ErrUnsupportedLanguage)
}

func TestTrainIgnoresLanguage(t *testing.T) {
	// train never touches the TTS model, so a bad language code must not
	// block it.
	cfg, err := LoadAndParse([]string{"train", "--language", "XX"})
	require.NoError(t, err)
	assert.Equal(t, ActionTrain, cfg.Action)
}

func TestTrainAndSynthesizeValidatesLanguage(t *testing.T) {
	_, err := LoadAndParse([]string{"train_and_synthesize", "--language", "XX"})
	assert.ErrorIs(t, err, melotts.ErrUnsupportedLanguage)
}

func TestUnknownDevice(t *testing.T) {
	_, err := LoadAndParse([]string{"train", "--device", "tpu"})
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("VOCALTWIN_LANGUAGE", "ja")
	t.Setenv("VOCALTWIN_OUTPUT_DIR", "env_out")

	cfg, err := LoadAndParse([]string{"synthesize"})
	require.NoError(t, err)
	assert.Equal(t, "JA", cfg.Language)
	assert.Equal(t, "env_out", cfg.OutputDir)
}
