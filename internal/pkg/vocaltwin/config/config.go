package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vocaltwin/internal/pkg/vocaltwin/melotts"
	"vocaltwin/internal/pkg/vocaltwin/onnxrt"
)

// Actions accepted as the positional argument.
const (
	ActionTrain              = "train"
	ActionSynthesize         = "synthesize"
	ActionTrainAndSynthesize = "train_and_synthesize"
)

type Config struct {
	Action        string
	AudioDir      string `mapstructure:"audio_dir"`
	TextDir       string `mapstructure:"text_dir"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
	OutputDir     string `mapstructure:"output_dir"`
	ModelsDir     string `mapstructure:"models_dir"`
	Language      string `mapstructure:"language"`
	Device        string `mapstructure:"device"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
}

// LoadAndParse resolves configuration in viper's usual order: defaults,
// optional TOML config file, VOCALTWIN_* environment, then flags. The one
// positional argument is the action. Language and action are validated here,
// before any checkpoint is loaded.
func LoadAndParse(args []string) (*Config, error) {
	v := viper.New()
	v.SetDefault("audio_dir", "audio_samples")
	v.SetDefault("text_dir", "texts")
	v.SetDefault("checkpoint_dir", "checkpoints")
	v.SetDefault("output_dir", "outputs")
	v.SetDefault("models_dir", "checkpoints_v2")
	v.SetDefault("language", "EN")
	v.SetDefault("device", onnxrt.DeviceAuto)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	flagSet := pflag.NewFlagSet("vocaltwin", pflag.ContinueOnError)
	configFile := flagSet.StringP("config", "c", "", "Path to config file")
	flagSet.String("audio_dir", "audio_samples", "Directory containing training recordings (MP3/WAV)")
	flagSet.String("text_dir", "texts", "Directory containing input .txt files")
	flagSet.String("checkpoint_dir", "checkpoints", "Where to save / load the speaker embedding")
	flagSet.String("output_dir", "outputs", "Where to write generated WAV files")
	flagSet.String("models_dir", "checkpoints_v2", "Directory with pretrained converter and TTS checkpoints")
	flagSet.String("language", "EN", "TTS language code ("+strings.Join(melotts.Supported(), ", ")+")")
	flagSet.String("device", onnxrt.DeviceAuto, "Execution device (auto, cpu, cuda)")
	flagSet.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	flagSet.String("log-file", "", "Log file path")
	helpFlag := flagSet.BoolP("help", "h", false, "Show help message")

	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *helpFlag {
		printUsage(flagSet)
		os.Exit(0)
	}

	bindings := map[string]string{
		"audio_dir":      "audio_dir",
		"text_dir":       "text_dir",
		"checkpoint_dir": "checkpoint_dir",
		"output_dir":     "output_dir",
		"models_dir":     "models_dir",
		"language":       "language",
		"device":         "device",
		"log_level":      "log-level",
		"log_file":       "log-file",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flagSet.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("vocaltwin.cfg")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vocaltwin"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("VOCALTWIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	positional := flagSet.Args()
	if len(positional) != 1 {
		return nil, fmt.Errorf("exactly one action is required: %s, %s, or %s",
			ActionTrain, ActionSynthesize, ActionTrainAndSynthesize)
	}
	cfg.Action = positional[0]

	switch cfg.Action {
	case ActionTrain, ActionSynthesize, ActionTrainAndSynthesize:
	default:
		return nil, fmt.Errorf("unknown action %q (want %s, %s, or %s)",
			cfg.Action, ActionTrain, ActionSynthesize, ActionTrainAndSynthesize)
	}

	if cfg.Action != ActionTrain {
		lang, err := melotts.Normalize(cfg.Language)
		if err != nil {
			return nil, err
		}
		cfg.Language = lang
	}

	switch cfg.Device {
	case onnxrt.DeviceAuto, onnxrt.DeviceCPU, onnxrt.DeviceCUDA:
	default:
		return nil, fmt.Errorf("unknown device %q (want auto, cpu, or cuda)", cfg.Device)
	}

	return &cfg, nil
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: vocaltwin [options] <action>

Voice cloning & text-to-speech. Actions:
  train                  extract the speaker embedding from audio samples
  synthesize             generate speech from .txt files in the cloned voice
  train_and_synthesize   do both in sequence

Options:
`)
	flagSet.PrintDefaults()
}
