// Package converter binds the pretrained tone-colour conversion model:
// a reference encoder that maps raw audio to a speaker embedding, and a
// converter network that re-voices audio given a source and target
// embedding pair.
package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"

	"vocaltwin/internal/pkg/vocaltwin/audio"
)

// Config mirrors the converter checkpoint's config.json.
type Config struct {
	SampleRate   int `json:"sample_rate"`
	EmbeddingDim int `json:"embedding_dim"`
}

// Converter wraps the two ONNX sessions of the tone-colour model. Sessions
// are loaded once and held for the life of the process.
type Converter struct {
	cfg        Config
	refEncoder *ort.DynamicAdvancedSession
	network    *ort.DynamicAdvancedSession
}

// Load opens the converter checkpoint directory (config.json,
// reference_encoder.onnx, converter.onnx). Any load failure is fatal to the
// caller; there is no fallback model.
func Load(dir string, opts *ort.SessionOptions) (*Converter, error) {
	cfgPath := filepath.Join(dir, "config.json")
	raw, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load converter checkpoint %s: %w", cfgPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfgPath, err)
	}
	if cfg.SampleRate <= 0 || cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%s: sample_rate and embedding_dim must be positive", cfgPath)
	}

	c := &Converter{cfg: cfg}

	encoderPath := filepath.Join(dir, "reference_encoder.onnx")
	c.refEncoder, err = ort.NewDynamicAdvancedSession(
		encoderPath,
		[]string{"audio"},
		[]string{"se"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load converter checkpoint %s: %w", encoderPath, err)
	}

	networkPath := filepath.Join(dir, "converter.onnx")
	c.network, err = ort.NewDynamicAdvancedSession(
		networkPath,
		[]string{"audio", "src_se", "tgt_se"},
		[]string{"audio_out"},
		opts,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load converter checkpoint %s: %w", networkPath, err)
	}

	return c, nil
}

// SampleRate is the rate the model expects its input audio at.
func (c *Converter) SampleRate() int {
	return c.cfg.SampleRate
}

// ExtractSE runs the reference encoder over each clip and combines the
// per-clip embeddings into one speaker embedding. Clips must already be at
// SampleRate. The combination policy (a plain mean, the same one the model's
// reference extractor applies across segments) belongs to the model binding,
// not to callers.
func (c *Converter) ExtractSE(clips ...*audio.Clip) ([]float32, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no audio clips given for embedding extraction")
	}

	se := make([]float32, c.cfg.EmbeddingDim)
	for _, clip := range clips {
		clipSE, err := c.encodeClip(clip)
		if err != nil {
			return nil, err
		}
		for i, v := range clipSE {
			se[i] += v
		}
	}
	for i := range se {
		se[i] /= float32(len(clips))
	}
	return se, nil
}

func (c *Converter) encodeClip(clip *audio.Clip) ([]float32, error) {
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("empty audio clip")
	}
	if clip.SampleRate != c.cfg.SampleRate {
		return nil, fmt.Errorf("clip sample rate %d, converter expects %d", clip.SampleRate, c.cfg.SampleRate)
	}

	audioTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(clip.Samples))), clip.Samples)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio tensor: %w", err)
	}
	defer audioTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := c.refEncoder.Run([]ort.Value{audioTensor}, outputs); err != nil {
		return nil, fmt.Errorf("reference encoder inference failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from reference encoder")
	}
	defer outputs[0].Destroy()

	seTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected reference encoder output type")
	}

	data := seTensor.GetData()
	if len(data) < c.cfg.EmbeddingDim {
		return nil, fmt.Errorf("reference encoder returned %d values, want %d", len(data), c.cfg.EmbeddingDim)
	}

	se := make([]float32, c.cfg.EmbeddingDim)
	copy(se, data)
	return se, nil
}

// Convert re-voices the clip from the source speaker to the target speaker.
// The returned clip is at the converter's sample rate.
func (c *Converter) Convert(clip *audio.Clip, srcSE, tgtSE []float32) (*audio.Clip, error) {
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("empty audio clip")
	}
	if len(srcSE) != c.cfg.EmbeddingDim || len(tgtSE) != c.cfg.EmbeddingDim {
		return nil, fmt.Errorf("embedding size mismatch: src %d, tgt %d, want %d",
			len(srcSE), len(tgtSE), c.cfg.EmbeddingDim)
	}

	audioTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(clip.Samples))), clip.Samples)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio tensor: %w", err)
	}
	defer audioTensor.Destroy()

	srcTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(srcSE))), srcSE)
	if err != nil {
		return nil, fmt.Errorf("failed to create src_se tensor: %w", err)
	}
	defer srcTensor.Destroy()

	tgtTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tgtSE))), tgtSE)
	if err != nil {
		return nil, fmt.Errorf("failed to create tgt_se tensor: %w", err)
	}
	defer tgtTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := c.network.Run([]ort.Value{audioTensor, srcTensor, tgtTensor}, outputs); err != nil {
		return nil, fmt.Errorf("tone colour conversion failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from converter")
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected converter output type")
	}

	data := outTensor.GetData()
	samples := make([]float32, len(data))
	copy(samples, data)

	return audio.NewClip(samples, c.cfg.SampleRate), nil
}

// Close releases both ONNX sessions.
func (c *Converter) Close() error {
	var firstErr error
	if c.refEncoder != nil {
		if err := c.refEncoder.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.refEncoder = nil
	}
	if c.network != nil {
		if err := c.network.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.network = nil
	}
	return firstErr
}
