package melotts

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Lexicon maps words to phoneme sequences with per-phoneme tones, loaded
// from the checkpoint's lexicon.txt. Line format: the word, its phonemes,
// then one integer tone per phoneme:
//
//	hello h ə l oʊ 0 0 0 0
type Lexicon struct {
	entries map[string]lexiconEntry
}

type lexiconEntry struct {
	phones []string
	tones  []int64
}

func LoadLexicon(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon: %w", err)
	}
	defer f.Close()

	lex := &Lexicon{entries: make(map[string]lexiconEntry)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		word := strings.ToLower(fields[0])
		rest := fields[1:]

		// Trailing integer fields are tones, the rest are phonemes.
		split := len(rest)
		for split > 0 {
			if _, err := strconv.ParseInt(rest[split-1], 10, 64); err != nil {
				break
			}
			split--
		}

		phones := rest[:split]
		tones := make([]int64, 0, len(rest)-split)
		for _, t := range rest[split:] {
			n, _ := strconv.ParseInt(t, 10, 64)
			tones = append(tones, n)
		}

		if len(phones) == 0 {
			// Tone-less entries are phoneme-only.
			phones = rest
			tones = nil
		}
		if len(tones) != 0 && len(tones) != len(phones) {
			return nil, fmt.Errorf("%s:%d: %d phonemes but %d tones", path, lineNo, len(phones), len(tones))
		}
		if len(tones) == 0 {
			tones = make([]int64, len(phones))
		}

		lex.entries[word] = lexiconEntry{phones: phones, tones: tones}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}

	return lex, nil
}

// Lookup returns the phonemes and tones for a word, or ok=false when the
// word is out of lexicon.
func (l *Lexicon) Lookup(word string) (phones []string, tones []int64, ok bool) {
	e, ok := l.entries[strings.ToLower(word)]
	if !ok {
		return nil, nil, false
	}
	return e.phones, e.tones, true
}

func (l *Lexicon) Len() int {
	return len(l.entries)
}
