package history

import (
	"errors"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned for drivers other than sqlite and postgres
var ErrUnsupportedDriver = errors.New("unsupported history driver")

// Config contains history database configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// Redact names the privacy rules applied before text is stored ("all" for every rule)
	Redact []string `yaml:"redact" mapstructure:"redact"`
}

// Record is one stored humanization
type Record struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	Mode              string    `json:"mode"`
	Method            string    `json:"method_used"`
	Original          string    `json:"original"`
	Humanized         string    `json:"humanized"`
	DetectionEstimate float64   `json:"ai_detection_estimate"`
	ProcessingTimeMs  float64   `json:"processing_time_ms"`
	WordCountDelta    int       `json:"word_count_change"`
	Changes           []string  `json:"changes_applied"`
	RewriteError      string    `json:"rewrite_error,omitempty"`
}

// MethodStats aggregates records sharing a method
type MethodStats struct {
	Method               string  `db:"method" json:"method"`
	Count                int64   `db:"count" json:"count"`
	AvgDetectionEstimate float64 `db:"avg_estimate" json:"avg_detection_estimate"`
}

// Stats summarises the stored history
type Stats struct {
	Total    int64         `json:"total"`
	ByMethod []MethodStats `json:"by_method"`
}

// row mirrors the table layout
type row struct {
	ID                string  `db:"id"`
	CreatedAt         int64   `db:"created_at"`
	Mode              string  `db:"mode"`
	Method            string  `db:"method"`
	Original          string  `db:"original"`
	Humanized         string  `db:"humanized"`
	DetectionEstimate float64 `db:"detection_estimate"`
	ProcessingTimeMs  float64 `db:"processing_time_ms"`
	WordCountDelta    int     `db:"word_count_change"`
	Changes           string  `db:"changes"`
	RewriteError      string  `db:"rewrite_error"`
}
