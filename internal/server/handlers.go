package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raaihank/llm-humanizer/internal/humanizer"
	"github.com/raaihank/llm-humanizer/internal/logger"
	"github.com/raaihank/llm-humanizer/internal/websocket"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 4 << 20
	maxHistoryLimit = 500
	previewLength   = 80
)

// handleRoot lists the endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "AI Text Humanizer API v" + Version,
		"endpoints": map[string]string{
			"/humanize": "Single text humanization",
			"/batch":    "Batch text processing",
			"/analyze":  "Score a text without modifying it",
			"/health":   "Health check",
			"/info":     "Service configuration",
			"/test":     "Test with sample text",
			"/history":  "Recent results",
			"/stats":    "Processing statistics",
			"/ws":       "Live event feed",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	name := s.humanizer().RewriterName()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"regex_engine":       "operational",
		"rewriter":           name,
		"rewriter_available": name != "none",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	p := s.state.Load()
	modes := make([]string, len(humanizer.Modes))
	for i, m := range humanizer.Modes {
		modes[i] = string(m)
	}

	cacheBackend := "disabled"
	if p.cache != nil {
		cacheBackend = s.config.Cache.Backend
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":              "llm-humanizer",
		"version":           Version,
		"modes":             modes,
		"default_mode":      p.settings.DefaultMode,
		"rewriter":          p.humanizer.RewriterName(),
		"cache":             cacheBackend,
		"history_enabled":   s.history != nil,
		"websocket_enabled": s.hub != nil && s.config.WebSocket.Enabled,
		"max_text_length":   p.settings.MaxTextLength,
		"max_batch_size":    p.settings.MaxBatchSize,
	})
}

// handleHumanize processes a single text
func (s *Server) handleHumanize(w http.ResponseWriter, r *http.Request) {
	var req HumanizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := s.state.Load()
	mode, err := p.mode(req.Mode)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := validateText(req.Text, p.settings.MaxTextLength); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := p.humanizer.Humanize(r.Context(), req.Text, mode)
	if err != nil {
		s.processingError(w, r, err)
		return
	}

	log := s.logger.WithRequestID(getRequestID(r.Context()))
	target := DefaultTargetDetectionRate
	if req.TargetDetectionRate != nil {
		target = *req.TargetDetectionRate
	}
	if result.DetectionEstimate > target {
		log.Warn("Detection estimate exceeds target",
			zap.Float64("ai_detection_estimate", result.DetectionEstimate),
			zap.Float64("target", target),
			zap.String("mode", string(mode)))
	}

	s.writeJSON(w, http.StatusOK, HumanizeResponse{
		Result:    result,
		HistoryID: s.publish(r.Context(), result),
	})
}

// handleBatch processes many texts, in parallel unless asked otherwise
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := s.state.Load()
	mode, err := p.mode(req.Mode)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(req.Texts) == 0 || len(req.Texts) > p.settings.MaxBatchSize {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("texts must contain between 1 and %d items", p.settings.MaxBatchSize))
		return
	}
	for i, text := range req.Texts {
		if err := validateText(text, p.settings.MaxTextLength); err != nil {
			s.writeError(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("texts[%d]: %v", i, err))
			return
		}
	}

	start := time.Now()
	var results []*humanizer.Result
	if req.ParallelProcessing == nil || *req.ParallelProcessing {
		results, err = p.humanizer.HumanizeMany(r.Context(), req.Texts, mode)
	} else {
		results, err = p.humanizer.HumanizeManyLimit(r.Context(), req.Texts, mode, 1)
	}
	if err != nil {
		s.processingError(w, r, err)
		return
	}

	var total float64
	for _, result := range results {
		total += result.DetectionEstimate
		s.publish(r.Context(), result)
	}

	s.writeJSON(w, http.StatusOK, BatchResponse{
		Results:              results,
		TotalTexts:           len(req.Texts),
		AverageDetectionRate: total / float64(len(results)),
		ProcessingTimeMs:     float64(time.Since(start).Microseconds()) / 1000,
	})
}

// handleAnalyze scores a text without modifying it. The text comes from the
// query string or a JSON body.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" && r.ContentLength != 0 {
		var req AnalyzeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		text = req.Text
	}

	p := s.state.Load()
	if err := validateText(text, p.settings.MaxTextLength); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, p.humanizer.Scorer().Analyze(text))
}

// handleTest runs the sample texts through every mode
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	h := s.humanizer()
	results := make(map[string][]SampleResult, len(humanizer.Modes))

	for _, mode := range humanizer.Modes {
		rows, err := h.HumanizeManyLimit(r.Context(), sampleTexts, mode, 1)
		if err != nil {
			s.processingError(w, r, err)
			return
		}
		for i, result := range rows {
			results[string(mode)] = append(results[string(mode)], SampleResult{
				Original:      truncate(sampleTexts[i], 50) + "...",
				Humanized:     truncate(result.Humanized, 50) + "...",
				DetectionRate: result.DetectionEstimate,
				ProcessingMs:  result.ProcessingTimeMs,
				MethodUsed:    string(result.MethodUsed),
			})
		}
	}

	s.writeJSON(w, http.StatusOK, results)
}

// handleHistory returns the most recent stored results
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.writeError(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to read history", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "failed to read history")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// handleStats reports processing, cache, history and websocket statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p := s.state.Load()
	log := s.logger.WithRequestID(getRequestID(r.Context()))

	out := map[string]any{
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"humanizer": p.humanizer.Stats(),
	}

	if p.cache != nil {
		if stats, err := p.cache.Stats(r.Context()); err != nil {
			log.Warn("Failed to get cache stats", zap.Error(err))
		} else {
			out["cache"] = stats
		}
	}

	if s.history != nil {
		if stats, err := s.history.Stats(r.Context()); err != nil {
			log.Warn("Failed to get history stats", zap.Error(err))
		} else {
			out["history"] = stats
		}
	}

	if s.hub != nil {
		out["websocket"] = s.hub.GetStats()
	}

	s.writeJSON(w, http.StatusOK, out)
}

// publish records a result in history and broadcasts it. It returns the
// history ID, empty when history is disabled or the write failed.
func (s *Server) publish(ctx context.Context, result *humanizer.Result) string {
	requestID := getRequestID(ctx)

	var historyID string
	if s.history != nil {
		id, err := s.history.Record(ctx, result)
		if err != nil {
			s.logger.WithRequestID(requestID).Warn("Failed to record history", zap.Error(err))
		}
		historyID = id
	}

	if s.hub == nil {
		return historyID
	}

	s.hub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeHumanizeCompleted,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.HumanizeCompletedEvent{
			RequestID:         requestID,
			Mode:              string(result.Mode),
			MethodUsed:        string(result.MethodUsed),
			DetectionEstimate: result.DetectionEstimate,
			ProcessingTimeMs:  result.ProcessingTimeMs,
			ChangesCount:      len(result.ChangesApplied),
			WordCountDelta:    result.WordCountDelta,
			Preview:           logger.Preview(result.Humanized, previewLength),
			HistoryID:         historyID,
		},
	})

	if result.RewriteError != "" {
		s.hub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeRewriteFallback,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.RewriteFallbackEvent{
				RequestID:  requestID,
				Mode:       string(result.Mode),
				MethodUsed: string(result.MethodUsed),
				Rewriter:   s.humanizer().RewriterName(),
				Error:      result.RewriteError,
			},
		})
	}

	return historyID
}

// processingError maps humanizer errors to responses
func (s *Server) processingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, humanizer.ErrUnknownMode):
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Humanization failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// mode resolves a requested mode, falling back to the configured default
func (p *pipeline) mode(requested string) (humanizer.Mode, error) {
	if strings.TrimSpace(requested) == "" {
		requested = p.settings.DefaultMode
	}
	return humanizer.ParseMode(requested)
}

// validateText enforces 1..max characters
func validateText(text string, max int) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return errors.New("text must not be empty")
	}
	if max > 0 && n > max {
		return fmt.Errorf("text exceeds %d characters", max)
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     message,
		RequestID: getRequestID(r.Context()),
	})
}

// truncate returns at most n runes of text
func truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}
