package melotts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	for _, code := range []string{"EN", "en", " en "} {
		lang, err := Normalize(code)
		require.NoError(t, err, code)
		assert.Equal(t, "EN", lang)
	}

	for _, code := range []string{"XX", "", "english"} {
		_, err := Normalize(code)
		assert.ErrorIs(t, err, ErrUnsupportedLanguage, code)
	}
}

func TestSupportedIsStable(t *testing.T) {
	assert.Equal(t, []string{"EN", "ES", "FR", "JA", "KO", "ZH"}, Supported())
}

func TestPreprocess(t *testing.T) {
	assert.Equal(t, "Hello world.", preprocess("  Hello \t\n world.  "))
	// NFKC folds full-width forms.
	assert.Equal(t, "ABC 123", preprocess("ＡＢＣ　１２３"))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"hello", ",", "world", "!"}, splitWords("Hello, world!"))
	assert.Empty(t, splitWords(""))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLexicon(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lexicon.txt",
		"hello h ə l oʊ 0 0 0 1\n"+
			"# comment line\n"+
			"world w ɜ l d 0 0 0 0\n")

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lex.Len())

	phones, tones, ok := lex.Lookup("Hello")
	require.True(t, ok)
	assert.Equal(t, []string{"h", "ə", "l", "oʊ"}, phones)
	assert.Equal(t, []int64{0, 0, 0, 1}, tones)

	_, _, ok = lex.Lookup("unknown")
	assert.False(t, ok)
}

func TestLoadLexiconToneCountMismatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lexicon.txt", "bad p h 0 0 0\n")
	_, err := LoadLexicon(path)
	assert.Error(t, err)
}

func TestLoadTokenizer(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tokens.txt",
		"_ 0\nh 1\nə 2\nl 3\noʊ 4\n")

	tok, err := LoadTokenizer(path)
	require.NoError(t, err)
	assert.Equal(t, 5, tok.Len())
	assert.True(t, tok.Has("h"))
	assert.False(t, tok.Has("z"))
}

func TestTokenizerEncodeInterleavesPad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tokens.txt",
		"_ 0\nh 1\nə 2\nl 3\noʊ 4\n")
	tok, err := LoadTokenizer(path)
	require.NoError(t, err)

	ids, tones := tok.Encode([]string{"h", "ə", "l", "oʊ"}, []int64{0, 0, 0, 1})
	assert.Equal(t, []int64{0, 1, 0, 2, 0, 3, 0, 4, 0}, ids)
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0, 0, 1, 0}, tones)
}

func TestTokenizerEncodeDropsUnknownPhonemes(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tokens.txt", "_ 0\nh 1\n")
	tok, err := LoadTokenizer(path)
	require.NoError(t, err)

	ids, _ := tok.Encode([]string{"h", "zzz"}, []int64{0, 0})
	assert.Equal(t, []int64{0, 1, 0}, ids)
}

func TestLoadRejectsUnsupportedLanguageBeforeTouchingDisk(t *testing.T) {
	_, err := Load("nonexistent_models_dir", "XX", nil)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}
