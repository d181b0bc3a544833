package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"github.com/raaihank/llm-humanizer/internal/humanizer"
	"github.com/raaihank/llm-humanizer/internal/privacy"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS humanize_history (
		id TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		mode TEXT NOT NULL,
		method TEXT NOT NULL,
		original TEXT NOT NULL,
		humanized TEXT NOT NULL,
		detection_estimate DOUBLE PRECISION NOT NULL,
		processing_time_ms DOUBLE PRECISION NOT NULL,
		word_count_change INTEGER NOT NULL,
		changes TEXT NOT NULL,
		rewrite_error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_humanize_history_created_at ON humanize_history (created_at)`,
}

// DefaultRecentLimit caps Recent when no limit is given
const DefaultRecentLimit = 50

// Store persists completed humanizations
type Store struct {
	db       *sqlx.DB
	redactor *privacy.Redactor
	logger   *zap.Logger
}

// NewStore opens the database and applies the schema
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch config.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, config.Driver)
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("history dsn is required")
	}

	redactor, err := privacy.New(config.Redact, logger.With(zap.String("component", "privacy")))
	if err != nil {
		return nil, fmt.Errorf("invalid redaction settings: %w", err)
	}

	db, err := sqlx.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool; sqlite serialises writers anyway
	maxOpen := config.MaxOpenConns
	if config.Driver == DriverSQLite {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:       db,
		redactor: redactor,
		logger:   logger,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	logger.Info("History store initialized",
		zap.String("driver", config.Driver),
		zap.String("dsn", maskDatabaseURL(config.DSN)),
		zap.Int("max_open_conns", maxOpen),
		zap.Strings("redact", redactor.Names()))

	return store, nil
}

// initialize checks the connection and creates the table
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Record stores a result and returns its ID
func (s *Store) Record(ctx context.Context, result *humanizer.Result) (string, error) {
	changes, err := json.Marshal(nonNil(result.ChangesApplied))
	if err != nil {
		return "", fmt.Errorf("failed to encode changes: %w", err)
	}

	r := row{
		ID:                ulid.Make().String(),
		CreatedAt:         time.Now().UnixMilli(),
		Mode:              string(result.Mode),
		Method:            string(result.MethodUsed),
		Original:          s.redactor.Redact(result.Original).Text,
		Humanized:         s.redactor.Redact(result.Humanized).Text,
		DetectionEstimate: result.DetectionEstimate,
		ProcessingTimeMs:  result.ProcessingTimeMs,
		WordCountDelta:    result.WordCountDelta,
		Changes:           string(changes),
		RewriteError:      result.RewriteError,
	}

	query := `
		INSERT INTO humanize_history (id, created_at, mode, method, original, humanized,
			detection_estimate, processing_time_ms, word_count_change, changes, rewrite_error)
		VALUES (:id, :created_at, :mode, :method, :original, :humanized,
			:detection_estimate, :processing_time_ms, :word_count_change, :changes, :rewrite_error)`

	if _, err := s.db.NamedExecContext(ctx, query, r); err != nil {
		s.logger.Error("Failed to record history",
			zap.Error(err),
			zap.String("method", r.Method))
		return "", fmt.Errorf("failed to record history: %w", err)
	}

	return r.ID, nil
}

// Recent returns the newest records first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := s.db.Rebind(`
		SELECT id, created_at, mode, method, original, humanized, detection_estimate,
			processing_time_ms, word_count_change, changes, rewrite_error
		FROM humanize_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		var changes []string
		if err := json.Unmarshal([]byte(r.Changes), &changes); err != nil {
			s.logger.Warn("Skipping history row with bad changes", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		records = append(records, Record{
			ID:                r.ID,
			CreatedAt:         time.UnixMilli(r.CreatedAt).UTC(),
			Mode:              r.Mode,
			Method:            r.Method,
			Original:          r.Original,
			Humanized:         r.Humanized,
			DetectionEstimate: r.DetectionEstimate,
			ProcessingTimeMs:  r.ProcessingTimeMs,
			WordCountDelta:    r.WordCountDelta,
			Changes:           changes,
			RewriteError:      r.RewriteError,
		})
	}
	return records, nil
}

// Stats returns record counts and average detection estimate per method
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT method, COUNT(*) AS count, AVG(detection_estimate) AS avg_estimate
		FROM humanize_history
		GROUP BY method
		ORDER BY method`

	stats := &Stats{ByMethod: []MethodStats{}}
	if err := s.db.SelectContext(ctx, &stats.ByMethod, query); err != nil {
		return nil, fmt.Errorf("failed to get history stats: %w", err)
	}
	for _, m := range stats.ByMethod {
		stats.Total += m.Count
	}
	return stats, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil(changes []string) []string {
	if changes == nil {
		return []string{}
	}
	return changes
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	scheme := strings.Index(userPart, "://")
	colon := strings.LastIndex(userPart, ":")
	if colon <= scheme {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
