package ner

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// token is one input unit with its byte span in the original text.
type token struct {
	text  string
	start int
	end   int
}

// vocabulary maps token text to model input ids, one token per line in
// the standard wordpiece vocab file layout.
type vocabulary struct {
	ids   map[string]int64
	unkID int64
	clsID int64
	sepID int64
	padID int64
}

func loadVocabulary(path string) (*vocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab file: %w", err)
	}
	defer file.Close()

	v := &vocabulary{ids: make(map[string]int64)}
	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		v.ids[strings.TrimRight(scanner.Text(), "\r\n")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocab file: %w", err)
	}

	lookup := func(tok string, fallback int64) int64 {
		if id, ok := v.ids[tok]; ok {
			return id
		}
		return fallback
	}
	v.unkID = lookup("[UNK]", 0)
	v.clsID = lookup("[CLS]", v.unkID)
	v.sepID = lookup("[SEP]", v.unkID)
	v.padID = lookup("[PAD]", 0)
	return v, nil
}

func (v *vocabulary) id(text string) int64 {
	if id, ok := v.ids[text]; ok {
		return id
	}
	if id, ok := v.ids[strings.ToLower(text)]; ok {
		return id
	}
	return v.unkID
}

// tokenize splits text into word and punctuation tokens, tracking byte
// offsets so model predictions can be projected back onto exact spans.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case unicode.IsSpace(r):
			if start >= 0 {
				tokens = append(tokens, token{text: text[start:i], start: start, end: i})
				start = -1
			}
		default:
			if start >= 0 {
				tokens = append(tokens, token{text: text[start:i], start: start, end: i})
				start = -1
			}
			end := i + len(string(r))
			tokens = append(tokens, token{text: text[i:end], start: i, end: end})
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: text[start:], start: start, end: len(text)})
	}
	return tokens
}
