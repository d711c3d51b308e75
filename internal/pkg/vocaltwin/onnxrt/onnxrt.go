// Package onnxrt owns the process-wide ONNX Runtime environment: shared
// library discovery, one-time initialization, and execution-provider
// selection. Both model packages load their sessions through it.
package onnxrt

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

var (
	initOnce sync.Once
	initErr  error
)

func libraryPath() string {
	envPath := os.Getenv("ONNXRUNTIME_LIB_PATH")
	if envPath != "" {
		return envPath
	}

	switch runtime.GOOS {
	case "linux":
		paths := []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"./libonnxruntime.so",
			"./lib/libonnxruntime.so",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libonnxruntime.so"
	case "windows":
		paths := []string{
			"onnxruntime.dll",
			"./onnxruntime.dll",
			"./lib/onnxruntime.dll",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "onnxruntime.dll"
	case "darwin":
		paths := []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"./libonnxruntime.dylib",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Initialize loads the ONNX Runtime shared library and creates the global
// environment. Safe to call more than once; only the first call does work.
func Initialize() error {
	initOnce.Do(func() {
		libPath := libraryPath()
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("failed to initialize ONNX runtime (%s): %w", libPath, err)
			return
		}
		log.Debug().Str("library", libPath).Msg("ONNX runtime initialized")
	})
	return initErr
}

// Destroy tears down the global ONNX Runtime environment.
func Destroy() error {
	if initErr != nil {
		return nil
	}
	return ort.DestroyEnvironment()
}

// SessionOptions resolves the requested device into session options shared
// by every model session in the process. With "auto" or "cuda" the CUDA
// execution provider is attempted once; any failure (no GPU, provider not
// built in, out of device memory) falls back to default CPU execution.
// "cuda" requested explicitly still falls back, with a warning.
func SessionOptions(device string) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	switch device {
	case "", DeviceAuto, DeviceCUDA:
	case DeviceCPU:
		log.Debug().Str("device", DeviceCPU).Msg("Execution device selected")
		return opts, nil
	default:
		opts.Destroy()
		return nil, fmt.Errorf("unknown device %q (want %s, %s, or %s)", device, DeviceAuto, DeviceCPU, DeviceCUDA)
	}

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		log.Warn().Err(err).Msg("CUDA provider unavailable, using CPU")
		return opts, nil
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
		log.Warn().Err(err).Msg("CUDA provider rejected options, using CPU")
		return opts, nil
	}

	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		log.Warn().Err(err).Msg("Failed to enable CUDA execution, using CPU")
		return opts, nil
	}

	log.Debug().Str("device", DeviceCUDA).Msg("Execution device selected")
	return opts, nil
}
