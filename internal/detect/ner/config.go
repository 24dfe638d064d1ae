package ner

import "time"

// Config describes the recognizer backend. Labels follow the model's
// output head order, e.g. ["O", "B-PER", "I-PER", "B-ORG", ...].
type Config struct {
	ModelPath         string
	VocabPath         string
	Labels            []string
	MaxSequenceLength int
	Timeout           time.Duration
}
