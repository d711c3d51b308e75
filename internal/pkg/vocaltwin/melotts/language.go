package melotts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedLanguage is returned for language codes outside the model's
// supported set. Checked before any checkpoint is touched.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// languages maps a MeloTTS language code to its checkpoint subdirectory and
// the phonemizer language used for out-of-lexicon words. An empty phonemizer
// name means lexicon-only (character-level fallback).
var languages = map[string]struct {
	dir        string
	phonemizer string
}{
	"EN": {dir: "EN", phonemizer: "English"},
	"ES": {dir: "ES", phonemizer: "Spanish"},
	"FR": {dir: "FR", phonemizer: "French"},
	"ZH": {dir: "ZH", phonemizer: ""},
	"JA": {dir: "JP", phonemizer: "Japanese"},
	"KO": {dir: "KR", phonemizer: "Korean"},
}

// Normalize upper-cases a language code and validates it against the
// supported set.
func Normalize(code string) (string, error) {
	lang := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := languages[lang]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedLanguage, code, strings.Join(Supported(), ", "))
	}
	return lang, nil
}

// Supported lists the supported language codes in stable order.
func Supported() []string {
	codes := make([]string, 0, len(languages))
	for code := range languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
