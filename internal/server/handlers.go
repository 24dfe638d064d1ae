package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/privsentry/pii-sentinel/internal/anonymize"
	"github.com/privsentry/pii-sentinel/internal/engine"
	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/risk"
	"github.com/privsentry/pii-sentinel/internal/websocket"
)

// detectRequest is the body of POST /v1/detect.
type detectRequest struct {
	Text string `json:"text"`
}

// anonymizeRequest is the body of POST /v1/anonymize. Unset options
// fall back to the configured defaults.
type anonymizeRequest struct {
	Text           string `json:"text"`
	Mode           string `json:"mode,omitempty"`
	MaskCharacter  string `json:"mask_character,omitempty"`
	PreserveLength *bool  `json:"preserve_length,omitempty"`
	HashLength     int    `json:"hash_length,omitempty"`
}

// assessRequest is the body of POST /v1/assess. Compliance issue
// counts come from an external legal-rule evaluation and pass through
// to the scorer opaquely.
type assessRequest struct {
	Text             string      `json:"text"`
	ComplianceIssues risk.Issues `json:"compliance_issues"`
}

// entityView is the wire form of a detected entity.
type entityView struct {
	Text               string  `json:"text"`
	Category           string  `json:"category"`
	Start              int     `json:"start"`
	End                int     `json:"end"`
	Confidence         float64 `json:"confidence"`
	SpeciallySensitive bool    `json:"specially_sensitive"`
	SensitivityRank    string  `json:"sensitivity_rank"`
}

type detectResponse struct {
	Entities   []entityView   `json:"entities"`
	Summary    engine.Summary `json:"summary"`
	Degraded   []string       `json:"degraded_sources,omitempty"`
	DurationMs float64        `json:"duration_ms"`
}

type anonymizeResponse struct {
	AnonymizedText string         `json:"anonymized_text"`
	Mode           string         `json:"mode"`
	Entities       []entityView   `json:"entities"`
	Summary        engine.Summary `json:"summary"`
	Degraded       []string       `json:"degraded_sources,omitempty"`
	DurationMs     float64        `json:"duration_ms"`
}

type assessResponse struct {
	Assessment risk.Assessment `json:"assessment"`
	Entities   []entityView    `json:"entities"`
	Summary    engine.Summary  `json:"summary"`
	Degraded   []string        `json:"degraded_sources,omitempty"`
	DurationMs float64         `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if s.serveCached(w, r, "detect", req.Text) {
		return
	}

	result, err := s.engine.Detect(r.Context(), req.Text)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	s.broadcastDetection(r, "/v1/detect", result)
	resp := detectResponse{
		Entities:   toViews(result.Entities),
		Summary:    result.Summary,
		Degraded:   result.Degraded,
		DurationMs: float64(result.Duration.Microseconds()) / 1000,
	}
	s.writeAndCache(w, r, "detect", req.Text, resp)
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opts, err := s.anonymizeOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("anonymize|%s|%c|%t|%d", opts.Mode, opts.MaskByte, opts.PreserveLength, opts.HashLength)
	if s.serveCached(w, r, cacheKey, req.Text) {
		return
	}

	result, rewritten, err := s.engine.Anonymize(r.Context(), req.Text, opts)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	s.broadcastDetection(r, "/v1/anonymize", result)
	resp := anonymizeResponse{
		AnonymizedText: rewritten,
		Mode:           string(opts.Mode),
		Entities:       toViews(result.Entities),
		Summary:        result.Summary,
		Degraded:       result.Degraded,
		DurationMs:     float64(result.Duration.Microseconds()) / 1000,
	}
	s.writeAndCache(w, r, cacheKey, req.Text, resp)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cacheKey := fmt.Sprintf("assess|%d|%d", req.ComplianceIssues.Total, req.ComplianceIssues.Critical)
	if s.serveCached(w, r, cacheKey, req.Text) {
		return
	}

	result, assessment, err := s.engine.Assess(r.Context(), req.Text, req.ComplianceIssues)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	s.broadcastDetection(r, "/v1/assess", result)
	resp := assessResponse{
		Assessment: assessment,
		Entities:   toViews(result.Entities),
		Summary:    result.Summary,
		Degraded:   result.Degraded,
		DurationMs: float64(result.Duration.Microseconds()) / 1000,
	}
	s.writeAndCache(w, r, cacheKey, req.Text, resp)
}

// anonymizeOptions merges request options over the configured
// defaults.
func (s *Server) anonymizeOptions(req anonymizeRequest) (anonymize.Options, error) {
	modeName := req.Mode
	if modeName == "" {
		modeName = s.config.Anonymize.DefaultMode
	}
	mode, err := anonymize.ParseMode(modeName)
	if err != nil {
		return anonymize.Options{}, err
	}

	opts := anonymize.Options{
		Mode:           mode,
		PreserveLength: s.config.Anonymize.PreserveLength,
		HashLength:     s.config.Anonymize.HashLength,
	}
	if len(s.config.Anonymize.MaskCharacter) == 1 {
		opts.MaskByte = s.config.Anonymize.MaskCharacter[0]
	}
	if req.MaskCharacter != "" {
		if len(req.MaskCharacter) != 1 {
			return anonymize.Options{}, fmt.Errorf("mask_character must be a single byte, got %q", req.MaskCharacter)
		}
		opts.MaskByte = req.MaskCharacter[0]
	}
	if req.PreserveLength != nil {
		opts.PreserveLength = *req.PreserveLength
	}
	if req.HashLength > 0 {
		opts.HashLength = req.HashLength
	}
	return opts, nil
}

// serveCached writes a cached response body if one exists. Degraded
// results are never cached, so a hit is always a full-fidelity answer.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, prefix, text string) bool {
	if s.cache == nil {
		return false
	}
	payload, ok := s.cache.Get(r.Context(), s.cache.Key(prefix, text))
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "hit")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
	return true
}

func (s *Server) writeAndCache(w http.ResponseWriter, r *http.Request, prefix, text string, resp interface{}) {
	payload, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	if s.cache != nil && !isDegraded(resp) {
		s.cache.Set(r.Context(), s.cache.Key(prefix, text), payload)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func isDegraded(resp interface{}) bool {
	switch v := resp.(type) {
	case detectResponse:
		return len(v.Degraded) > 0
	case anonymizeResponse:
		return len(v.Degraded) > 0
	case assessResponse:
		return len(v.Degraded) > 0
	default:
		return false
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var spanErr *entity.SpanError
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &spanErr):
		s.logger.Error("span invariant violation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal detection error")
	default:
		s.logger.Error("detection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "detection failed")
	}
}

// broadcastDetection pushes a count-only summary of the result to the
// dashboard. Matched text never leaves the engine.
func (s *Server) broadcastDetection(r *http.Request, endpoint string, result *engine.Result) {
	requestID := getRequestID(r.Context())
	s.logger.LogDetection(requestID, result.Summary.Total, result.Summary.SpeciallySensitive,
		result.Summary.ByCategory, result.Duration)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeDetection,
		Timestamp: time.Now(),
		Data: websocket.DetectionEvent{
			RequestID:          requestID,
			Endpoint:           endpoint,
			TotalEntities:      result.Summary.Total,
			SpeciallySensitive: result.Summary.SpeciallySensitive,
			Categories:         result.Summary.ByCategory,
			Degraded:           result.Degraded,
			DurationMs:         float64(result.Duration.Microseconds()) / 1000,
		},
	})
}

func toViews(entities []entity.Entity) []entityView {
	views := make([]entityView, 0, len(entities))
	for _, e := range entities {
		views = append(views, entityView{
			Text:               e.Text,
			Category:           e.Category.String(),
			Start:              e.Start,
			End:                e.End,
			Confidence:         e.Confidence,
			SpeciallySensitive: e.Sensitivity.Special,
			SensitivityRank:    e.Sensitivity.Rank.String(),
		})
	}
	return views
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
