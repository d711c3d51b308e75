package melotts

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const padSymbol = "_"

// Tokenizer maps phoneme symbols to model token ids using the checkpoint's
// tokens.txt ("symbol id" per line).
type Tokenizer struct {
	vocab map[string]int64
	padID int64
}

func LoadTokenizer(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tokens file: %w", err)
	}
	defer f.Close()

	t := &Tokenizer{vocab: make(map[string]int64)}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		// The symbol may itself be a space; split on the last field only.
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			return nil, fmt.Errorf("%s:%d: malformed token line", path, lineNo)
		}
		symbol := line[:idx]
		id, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: malformed token id: %w", path, lineNo, err)
		}
		t.vocab[symbol] = id
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}
	if len(t.vocab) == 0 {
		return nil, fmt.Errorf("%s: empty token vocabulary", path)
	}

	t.padID = t.vocab[padSymbol]
	return t, nil
}

// Encode maps phonemes to token ids, interleaved with the pad token the way
// the model was trained. Tones are expanded in lockstep. Unknown phonemes
// are dropped.
func (t *Tokenizer) Encode(phones []string, tones []int64) (ids []int64, outTones []int64) {
	ids = append(ids, t.padID)
	outTones = append(outTones, 0)
	for i, p := range phones {
		id, ok := t.vocab[p]
		if !ok {
			continue
		}
		var tone int64
		if i < len(tones) {
			tone = tones[i]
		}
		ids = append(ids, id, t.padID)
		outTones = append(outTones, tone, 0)
	}
	return ids, outTones
}

// Has reports whether the symbol exists in the vocabulary.
func (t *Tokenizer) Has(symbol string) bool {
	_, ok := t.vocab[symbol]
	return ok
}

func (t *Tokenizer) Len() int {
	return len(t.vocab)
}
