package server

import (
	"github.com/raaihank/llm-humanizer/internal/humanizer"
)

// DefaultTargetDetectionRate is used when a request names no target
const DefaultTargetDetectionRate = 20.0

// HumanizeRequest is the body of POST /humanize
type HumanizeRequest struct {
	Text                string   `json:"text"`
	Mode                string   `json:"mode,omitempty"`
	TargetDetectionRate *float64 `json:"target_detection_rate,omitempty"`
}

// HumanizeResponse is a result plus its history ID when history is enabled
type HumanizeResponse struct {
	*humanizer.Result
	HistoryID string `json:"history_id,omitempty"`
}

// BatchRequest is the body of POST /batch
type BatchRequest struct {
	Texts              []string `json:"texts"`
	Mode               string   `json:"mode,omitempty"`
	ParallelProcessing *bool    `json:"parallel_processing,omitempty"`
}

// BatchResponse is the reply to POST /batch
type BatchResponse struct {
	Results              []*humanizer.Result `json:"results"`
	TotalTexts           int                 `json:"total_texts"`
	AverageDetectionRate float64             `json:"average_detection_rate"`
	ProcessingTimeMs     float64             `json:"processing_time_ms"`
}

// AnalyzeRequest is the optional JSON body of POST /analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// SampleResult is one row of GET /test
type SampleResult struct {
	Original      string  `json:"original"`
	Humanized     string  `json:"humanized"`
	DetectionRate float64 `json:"detection_rate"`
	ProcessingMs  float64 `json:"processing_ms"`
	MethodUsed    string  `json:"method_used"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// sampleTexts are the texts GET /test runs through every mode
var sampleTexts = []string{
	"Climate change impacts are becoming more evident in our world, affecting ecosystems, weather patterns, and human health.",
	"The relationship between social media and mental health is a complex and multifaceted issue that warrants further examination.",
	"Companies are increasingly facing challenges such as supply chain disruptions due to extreme weather events.",
}
