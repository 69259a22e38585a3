package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// BERT special token IDs.
const (
	unkID = 100
	clsID = 101
	sepID = 102
)

// Tokenizer is a lowercase WordPiece tokenizer over a BERT vocabulary.
type Tokenizer struct {
	vocab map[string]int
}

// LoadTokenizer reads the vocabulary from a HuggingFace tokenizer.json.
func LoadTokenizer(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	if len(doc.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer %s has no vocabulary", path)
	}
	return &Tokenizer{vocab: doc.Model.Vocab}, nil
}

// NewTokenizer builds a tokenizer from an in-memory vocabulary.
func NewTokenizer(vocab map[string]int) *Tokenizer {
	return &Tokenizer{vocab: vocab}
}

// Tokenize returns WordPiece IDs for text without special tokens.
func (t *Tokenizer) Tokenize(text string) []int64 {
	var ids []int64
	for _, word := range splitWords(strings.ToLower(text)) {
		if id, ok := t.vocab[word]; ok {
			ids = append(ids, int64(id))
			continue
		}
		for _, piece := range t.wordPieces(word) {
			if id, ok := t.vocab[piece]; ok {
				ids = append(ids, int64(id))
			} else {
				ids = append(ids, unkID)
			}
		}
	}
	return ids
}

// Encode wraps the tokens in [CLS] ... [SEP], truncates and pads to maxLen,
// and returns the IDs with their attention mask.
func (t *Tokenizer) Encode(text string, maxLen int) (ids, mask []int64) {
	ids = make([]int64, maxLen)
	mask = make([]int64, maxLen)

	tokens := t.Tokenize(text)
	if len(tokens) > maxLen-2 {
		tokens = tokens[:maxLen-2]
	}

	ids[0], mask[0] = clsID, 1
	for i, tok := range tokens {
		ids[i+1], mask[i+1] = tok, 1
	}
	end := len(tokens) + 1
	ids[end], mask[end] = sepID, 1
	return ids, mask
}

// splitWords separates words and emits punctuation as standalone tokens,
// matching BERT's basic tokenizer.
func splitWords(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// wordPieces splits word greedily into the longest vocabulary pieces.
func (t *Tokenizer) wordPieces(word string) []string {
	var pieces []string
	runes := []rune(word)
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := ""
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := t.vocab[sub]; ok {
				found = sub
				break
			}
			end--
		}
		if found == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, found)
		start = end
	}
	return pieces
}
