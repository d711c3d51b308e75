// Package melotts binds the pretrained multilingual MeloTTS model. It turns
// text into phoneme token ids (lexicon first, phonemizer for out-of-lexicon
// words) and runs the acoustic model through ONNX Runtime.
package melotts

import (
	"fmt"
	"path/filepath"

	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"
	ort "github.com/yalue/onnxruntime_go"

	"vocaltwin/internal/pkg/vocaltwin/audio"
)

const (
	// SampleRate of the model's output audio.
	SampleRate = 44100

	defaultSpeakerID int64   = 0
	defaultSpeed     float32 = 1.0
)

// Engine is a loaded MeloTTS checkpoint for one language.
type Engine struct {
	language   string
	session    *ort.DynamicAdvancedSession
	tokenizer  *Tokenizer
	lexicon    *Lexicon
	phonemizer *lib.Phonemizer
	phonemLang string
}

// Load validates the language code and opens the per-language checkpoint
// directory <modelsDir>/melo/<LANG>/ (model.onnx, tokens.txt, lexicon.txt).
func Load(modelsDir, language string, opts *ort.SessionOptions) (*Engine, error) {
	lang, err := Normalize(language)
	if err != nil {
		return nil, err
	}
	info := languages[lang]
	dir := filepath.Join(modelsDir, "melo", info.dir)

	tokenizer, err := LoadTokenizer(filepath.Join(dir, "tokens.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to load TTS checkpoint for %s: %w", lang, err)
	}

	lexicon, err := LoadLexicon(filepath.Join(dir, "lexicon.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to load TTS checkpoint for %s: %w", lang, err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		filepath.Join(dir, "model.onnx"),
		[]string{"input_ids", "tones", "speakers", "speed"},
		[]string{"waveform"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load TTS checkpoint %s: %w", filepath.Join(dir, "model.onnx"), err)
	}

	e := &Engine{
		language:   lang,
		session:    session,
		tokenizer:  tokenizer,
		lexicon:    lexicon,
		phonemLang: info.phonemizer,
	}
	if info.phonemizer != "" {
		e.phonemizer = lib.NewPhonemizer(nil)
	}
	return e, nil
}

func (e *Engine) Language() string {
	return e.language
}

func (e *Engine) SampleRate() int {
	return SampleRate
}

// Speak synthesizes the text in the model's default base voice.
func (e *Engine) Speak(text string) (*audio.Clip, error) {
	text = preprocess(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	phones, tones := e.phonemize(text)
	ids, tones := e.tokenizer.Encode(phones, tones)
	if len(ids) <= 1 {
		return nil, fmt.Errorf("no usable phonemes in text")
	}

	return e.infer(ids, tones)
}

// phonemize maps words to phoneme/tone sequences: lexicon entries when
// present, the phonemizer for out-of-lexicon words, character symbols as a
// last resort.
func (e *Engine) phonemize(text string) ([]string, []int64) {
	var phones []string
	var tones []int64

	for _, word := range splitWords(text) {
		if p, t, ok := e.lexicon.Lookup(word); ok {
			phones = append(phones, p...)
			tones = append(tones, t...)
			continue
		}

		if e.phonemizer != nil {
			resp := e.phonemizer.Sentence(requests.PhonemizeSentence{
				Language: e.phonemLang,
				Sentence: word,
			})
			matched := false
			for _, w := range resp.Words {
				for _, r := range w.Phonetic {
					sym := string(r)
					if e.tokenizer.Has(sym) {
						phones = append(phones, sym)
						tones = append(tones, 0)
						matched = true
					}
				}
			}
			if matched {
				continue
			}
		}

		for _, r := range word {
			sym := string(r)
			if e.tokenizer.Has(sym) {
				phones = append(phones, sym)
				tones = append(tones, 0)
			}
		}
	}

	return phones, tones
}

func (e *Engine) infer(ids, tones []int64) (*audio.Clip, error) {
	idsTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(ids))), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	tonesTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(tones))), tones)
	if err != nil {
		return nil, fmt.Errorf("failed to create tones tensor: %w", err)
	}
	defer tonesTensor.Destroy()

	speakersTensor, err := ort.NewTensor(ort.NewShape(1), []int64{defaultSpeakerID})
	if err != nil {
		return nil, fmt.Errorf("failed to create speakers tensor: %w", err)
	}
	defer speakersTensor.Destroy()

	speedTensor, err := ort.NewTensor(ort.NewShape(1), []float32{defaultSpeed})
	if err != nil {
		return nil, fmt.Errorf("failed to create speed tensor: %w", err)
	}
	defer speedTensor.Destroy()

	inputs := []ort.Value{idsTensor, tonesTensor, speakersTensor, speedTensor}
	outputs := make([]ort.Value, 1)

	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("TTS inference failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output from TTS model")
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected TTS output tensor type")
	}

	data := outTensor.GetData()
	samples := make([]float32, len(data))
	copy(samples, data)

	return audio.NewClip(samples, SampleRate), nil
}

func (e *Engine) Close() error {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return err
		}
		e.session = nil
	}
	return nil
}
