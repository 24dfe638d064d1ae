//go:build onnx
// +build onnx

package ner

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/privsentry/pii-sentinel/internal/logger"
)

// onnxRecognizer runs a token-classification model through ONNX
// Runtime. Requires the 'onnx' build tag.
type onnxRecognizer struct {
	session    *ort.DynamicAdvancedSession
	vocab      *vocabulary
	labels     []string
	inputNames []string
	outputName string
	maxLength  int
	logger     *logger.Logger
	mu         sync.Mutex
	closed     bool
}

// NewRecognizer initializes the ONNX Runtime backend. Returns nil when
// the model cannot be loaded; the caller treats that as a disabled
// source, not a startup failure.
func NewRecognizer(log *logger.Logger, cfg Config) Recognizer {
	if cfg.ModelPath == "" || cfg.VocabPath == "" || len(cfg.Labels) == 0 {
		return nil
	}

	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		log.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	vocab, err := loadVocabulary(cfg.VocabPath)
	if err != nil {
		log.Error("NER vocab load failed", zap.Error(err), zap.String("vocab", cfg.VocabPath))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		log.Error("failed to inspect ONNX model IO", zap.Error(err), zap.String("model", cfg.ModelPath))
		return nil
	}

	preferred := []string{"input_ids", "attention_mask", "token_type_ids"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferred {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 && len(inputsInfo) > 0 {
		sorted := make([]string, 0, len(inputsInfo))
		for _, ii := range inputsInfo {
			sorted = append(sorted, ii.Name)
		}
		sort.Strings(sorted)
		inputNames = sorted
	}
	if len(outputsInfo) == 0 {
		log.Error("ONNX model reports no outputs", zap.String("model", cfg.ModelPath))
		return nil
	}
	outputName := outputsInfo[0].Name

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		log.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", cfg.ModelPath))
		return nil
	}

	maxLength := cfg.MaxSequenceLength
	if maxLength <= 0 {
		maxLength = 256
	}

	log.Info("NER backend ready",
		zap.String("model", cfg.ModelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName),
		zap.Int("labels", len(cfg.Labels)),
	)
	return &onnxRecognizer{
		session:    session,
		vocab:      vocab,
		labels:     cfg.Labels,
		inputNames: inputNames,
		outputName: outputName,
		maxLength:  maxLength,
		logger:     log,
	}
}

// Recognize tokenizes, runs one inference, and projects per-token
// label predictions back onto byte spans of the input.
func (r *onnxRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > r.maxLength-2 {
		tokens = tokens[:r.maxLength-2]
	}

	seqLen := len(tokens) + 2
	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	typeIDs := make([]int64, seqLen)
	inputIDs[0] = r.vocab.clsID
	inputIDs[seqLen-1] = r.vocab.sepID
	for i, tok := range tokens {
		inputIDs[i+1] = r.vocab.id(tok.text)
	}
	for i := range attention {
		attention[i] = 1
	}

	logits, err := r.run(ctx, inputIDs, attention, typeIDs)
	if err != nil {
		return nil, err
	}
	numLabels := len(r.labels)
	if len(logits) < seqLen*numLabels {
		return nil, fmt.Errorf("model output too short: %d values for %d tokens", len(logits), seqLen)
	}

	return r.collectSpans(text, tokens, logits, numLabels), nil
}

func (r *onnxRecognizer) run(ctx context.Context, inputIDs, attention, typeIDs []int64) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("recognizer closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := ort.NewShape(1, int64(len(inputIDs)))
	tensors := map[string]ort.Value{}
	defer func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}()
	for _, name := range r.inputNames {
		var data []int64
		switch strings.ToLower(name) {
		case "input_ids":
			data = inputIDs
		case "attention_mask":
			data = attention
		case "token_type_ids":
			data = typeIDs
		default:
			data = make([]int64, len(inputIDs))
		}
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("failed to create input tensor %s: %w", name, err)
		}
		tensors[name] = tensor
	}

	inputs := make([]ort.Value, len(r.inputNames))
	for i, name := range r.inputNames {
		inputs[i] = tensors[name]
	}
	outputs := []ort.Value{nil}
	if err := r.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	data := logitsTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// collectSpans merges consecutive tokens sharing a base label into one
// span. The leading [CLS] position is skipped; "O" predictions close
// any open span.
func (r *onnxRecognizer) collectSpans(text string, tokens []token, logits []float32, numLabels int) []Span {
	var spans []Span
	var open *Span
	var scores []float64

	flush := func() {
		if open == nil {
			return
		}
		open.Text = text[open.Start:open.End]
		open.Score = mean(scores)
		spans = append(spans, *open)
		open = nil
		scores = nil
	}

	for i, tok := range tokens {
		offset := (i + 1) * numLabels
		best, prob := argmax(logits[offset : offset+numLabels])
		label := r.labels[best]
		if label == "O" || label == "" {
			flush()
			continue
		}
		base := strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
		if open != nil && strings.HasPrefix(label, "I-") && baseOf(open.Label) == base {
			open.End = tok.end
			scores = append(scores, prob)
			continue
		}
		flush()
		open = &Span{Label: label, Start: tok.start, End: tok.end}
		scores = []float64{prob}
	}
	flush()
	return spans
}

func baseOf(label string) string {
	return strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
}

func argmax(logits []float32) (int, float64) {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	var denom float64
	for _, v := range logits {
		denom += math.Exp(float64(v - logits[best]))
	}
	return best, 1.0 / denom
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Close releases session resources.
func (r *onnxRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.session != nil {
		r.session.Destroy()
	}
	ort.DestroyEnvironment()
	return nil
}
