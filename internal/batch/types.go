package batch

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is a single input row
type Record struct {
	ID   string `parquet:"id" json:"id"`
	Text string `parquet:"text" json:"text"`
}

// OutputRecord is a single humanized row
type OutputRecord struct {
	ID                string   `parquet:"id" json:"id"`
	Original          string   `parquet:"original" json:"original"`
	Humanized         string   `parquet:"humanized" json:"humanized"`
	Mode              string   `parquet:"mode" json:"mode"`
	MethodUsed        string   `parquet:"method_used" json:"method_used"`
	DetectionEstimate float64  `parquet:"ai_detection_estimate" json:"ai_detection_estimate"`
	ProcessingTimeMs  float64  `parquet:"processing_time_ms" json:"processing_time_ms"`
	WordCountDelta    int64    `parquet:"word_count_change" json:"word_count_change"`
	ChangesApplied    []string `parquet:"changes_applied,list" json:"changes_applied"`
	RewriteError      string   `parquet:"rewrite_error,optional" json:"rewrite_error,omitempty"`
}

// RunResult summarizes a processed file
type RunResult struct {
	TotalRecords         int64            `json:"total_records"`
	ProcessedOK          int64            `json:"processed_ok"`
	ProcessedFailed      int64            `json:"processed_failed"`
	Invalid              int64            `json:"invalid"`
	ByMethod             map[string]int64 `json:"by_method"`
	AverageDetectionRate float64          `json:"average_detection_rate"`
	Duration             time.Duration    `json:"duration"`
	HumanizeTime         time.Duration    `json:"humanize_time"`
	WriteTime            time.Duration    `json:"write_time"`
	Errors               []string         `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration
type Config struct {
	Mode           string `yaml:"mode" mapstructure:"mode"`                       // balanced
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`           // 100
	MaxTextLength  int    `yaml:"max_text_length" mapstructure:"max_text_length"` // 10000
	ProgressReport int    `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	ValidateData   bool   `yaml:"validate_data" mapstructure:"validate_data"`     // true
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		Mode:           "balanced",
		BatchSize:      100,
		MaxTextLength:  10000,
		ProgressReport: 1000,
		ValidateData:   true,
	}
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsInvalid int64     `json:"records_invalid"`
	RecordsWritten int64     `json:"records_written"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects file format from extension, defaulting to JSON lines
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	default:
		return FormatJSONL
	}
}

// ParseFileFormat parses an explicit format name
func ParseFileFormat(name string) (FileFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, true
	case "parquet":
		return FormatParquet, true
	case "jsonl", "json", "ndjson":
		return FormatJSONL, true
	}
	return "", false
}
