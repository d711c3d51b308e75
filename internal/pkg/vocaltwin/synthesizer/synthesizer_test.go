package synthesizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaltwin/internal/pkg/vocaltwin/audio"
)

const testRate = 22050

type fakeTTS struct {
	failOn string
	spoken []string
}

func (f *fakeTTS) SampleRate() int { return testRate }

func (f *fakeTTS) Speak(text string) (*audio.Clip, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, fmt.Errorf("inference blew up")
	}
	f.spoken = append(f.spoken, text)
	return audio.NewClip(make([]float32, testRate/10), testRate), nil
}

type fakeConverter struct {
	converted int
}

func (f *fakeConverter) SampleRate() int { return testRate }

func (f *fakeConverter) ExtractSE(clips ...*audio.Clip) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (f *fakeConverter) Convert(clip *audio.Clip, srcSE, tgtSE []float32) (*audio.Clip, error) {
	f.converted++
	return clip, nil
}

func writeTxt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestSynthesizer(tts TTS) *Synthesizer {
	return New(tts, &fakeConverter{}, []float32{0.9, 0.8})
}

func TestSynthesizeProducesMatchingStems(t *testing.T) {
	textDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "outputs")
	writeTxt(t, textDir, "hello.txt", "Hello world.")
	writeTxt(t, textDir, "bye.txt", "Goodbye.")

	outputs, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, outDir)
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	assert.Equal(t, filepath.Join(outDir, "bye.wav"), outputs[0])
	assert.Equal(t, filepath.Join(outDir, "hello.wav"), outputs[1])
	for _, path := range outputs {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestSynthesizeRecursesIntoSubdirs(t *testing.T) {
	textDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(textDir, "nested"), 0o755))
	writeTxt(t, textDir, "nested/deep.txt", "Down here.")

	outputs, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, t.TempDir())
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "deep.wav", filepath.Base(outputs[0]))
}

func TestSynthesizeEmptyTextDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	_, err := newTestSynthesizer(&fakeTTS{}).Synthesize(t.TempDir(), outDir)
	assert.ErrorIs(t, err, ErrNoTexts)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "output dir must not be created")
}

func TestSynthesizeSkipsEmptyFiles(t *testing.T) {
	textDir := t.TempDir()
	writeTxt(t, textDir, "empty.txt", "")
	writeTxt(t, textDir, "real.txt", "Something to say.")

	outputs, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, t.TempDir())
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "real.wav", filepath.Base(outputs[0]))
}

func TestSynthesizeSkipsWhitespaceOnlyFiles(t *testing.T) {
	textDir := t.TempDir()
	outDir := t.TempDir()
	writeTxt(t, textDir, "blank.txt", "  \n\t ")
	writeTxt(t, textDir, "real.txt", "Something to say.")

	outputs, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, outDir)
	require.NoError(t, err, "a blank file must be skipped, not failed")
	require.Len(t, outputs, 1)
	assert.Equal(t, "real.wav", filepath.Base(outputs[0]))

	_, statErr := os.Stat(filepath.Join(outDir, "blank.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSynthesizeOnlyWhitespaceFiles(t *testing.T) {
	textDir := t.TempDir()
	writeTxt(t, textDir, "blank.txt", "   \n")

	outputs, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestCollectTextsPrecondition(t *testing.T) {
	// Exported so the driver can fail before any checkpoint is loaded.
	_, err := CollectTexts(t.TempDir())
	assert.ErrorIs(t, err, ErrNoTexts)

	textDir := t.TempDir()
	writeTxt(t, textDir, "hello.txt", "Hello.")
	texts, err := CollectTexts(textDir)
	require.NoError(t, err)
	assert.Len(t, texts, 1)
}

func TestSynthesizeOnlyEmptyFiles(t *testing.T) {
	textDir := t.TempDir()
	writeTxt(t, textDir, "empty.txt", "")

	_, err := newTestSynthesizer(&fakeTTS{}).Synthesize(textDir, t.TempDir())
	assert.ErrorIs(t, err, ErrNoTexts)
}

func TestSynthesizePartialFailureContinuesBatch(t *testing.T) {
	textDir := t.TempDir()
	outDir := t.TempDir()
	writeTxt(t, textDir, "good.txt", "This one works.")
	writeTxt(t, textDir, "bad.txt", "POISON sentence.")
	writeTxt(t, textDir, "also_good.txt", "And this one.")

	outputs, err := newTestSynthesizer(&fakeTTS{failOn: "POISON"}).Synthesize(textDir, outDir)

	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.Contains(t, batch.Failures[0].Path, "bad.txt")

	require.Len(t, outputs, 2)
	_, statErr := os.Stat(filepath.Join(outDir, "bad.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConversionRunsPerFile(t *testing.T) {
	textDir := t.TempDir()
	writeTxt(t, textDir, "a.txt", "One.")
	writeTxt(t, textDir, "b.txt", "Two.")

	conv := &fakeConverter{}
	_, err := New(&fakeTTS{}, conv, []float32{1}).Synthesize(textDir, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, conv.converted)
}
