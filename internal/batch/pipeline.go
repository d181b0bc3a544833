package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raaihank/llm-humanizer/internal/humanizer"
)

// Processor humanizes texts in order
type Processor interface {
	HumanizeMany(ctx context.Context, texts []string, mode humanizer.Mode) ([]*humanizer.Result, error)
}

// Pipeline streams a dataset file through the humanizer in batches
type Pipeline struct {
	processor Processor
	mode      humanizer.Mode
	config    Config
	logger    *zap.Logger
	stats     *ProcessingStats
	mu        sync.RWMutex
}

// NewPipeline creates a new batch pipeline
func NewPipeline(processor Processor, config Config, logger *zap.Logger) (*Pipeline, error) {
	mode, err := humanizer.ParseMode(config.Mode)
	if err != nil {
		return nil, err
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		processor: processor,
		mode:      mode,
		config:    config,
		logger:    logger,
		stats:     &ProcessingStats{StartTime: time.Now()},
	}, nil
}

// ProcessFile processes a dataset file, detecting both formats from the extensions
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*RunResult, error) {
	return p.ProcessFileAs(ctx, inputPath, DetectFileFormat(inputPath), outputPath, DetectFileFormat(outputPath))
}

// ProcessFileAs processes a dataset file with explicit formats
func (p *Pipeline) ProcessFileAs(ctx context.Context, inputPath string, inputFormat FileFormat, outputPath string, outputFormat FileFormat) (*RunResult, error) {
	p.logger.Info("Starting batch pipeline",
		zap.String("input", inputPath),
		zap.String("input_format", string(inputFormat)),
		zap.String("output", outputPath),
		zap.String("output_format", string(outputFormat)),
		zap.String("mode", string(p.mode)),
		zap.Int("batch_size", p.config.BatchSize))

	reader, err := openReader(inputPath, inputFormat)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	writer, err := createWriter(outputPath, outputFormat)
	if err != nil {
		return nil, err
	}

	result, err := p.process(ctx, reader, writer)
	if cerr := writer.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to finalize output: %w", cerr)
	}
	if err != nil {
		return result, err
	}

	p.logger.Info("Batch pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("invalid", result.Invalid),
		zap.Float64("average_detection_rate", result.AverageDetectionRate),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("humanize_time", result.HumanizeTime))

	return result, nil
}

// process runs the read, humanize, write loop until the reader is drained
func (p *Pipeline) process(ctx context.Context, reader recordReader, writer recordWriter) (*RunResult, error) {
	start := time.Now()
	p.resetStats()

	result := &RunResult{ByMethod: make(map[string]int64)}
	var estimateSum float64
	nextReport := int64(p.config.ProgressReport)

	finish := func() {
		result.Duration = time.Since(start)
		if result.ProcessedOK > 0 {
			result.AverageDetectionRate = estimateSum / float64(result.ProcessedOK)
		}
	}
	defer finish()

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		batch, eof, err := p.readBatch(reader, result)
		if err != nil {
			return result, fmt.Errorf("failed to read batch: %w", err)
		}

		if len(batch) > 0 {
			outputs, err := p.processBatch(ctx, batch, result)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				p.logger.Error("Batch processing failed", zap.Error(err))
				result.ProcessedFailed += int64(len(batch))
				result.Errors = append(result.Errors, err.Error())
			} else {
				writeStart := time.Now()
				if err := writer.Write(outputs); err != nil {
					return result, fmt.Errorf("failed to write batch: %w", err)
				}
				result.WriteTime += time.Since(writeStart)

				for _, out := range outputs {
					result.ByMethod[out.MethodUsed]++
					estimateSum += out.DetectionEstimate
				}
				result.ProcessedOK += int64(len(outputs))
				p.recordWritten(len(outputs))
			}
			result.TotalRecords += int64(len(batch))
		}

		if p.config.ProgressReport > 0 && result.TotalRecords >= nextReport {
			p.reportProgress(result)
			for nextReport <= result.TotalRecords {
				nextReport += int64(p.config.ProgressReport)
			}
		}

		if eof {
			return result, nil
		}
	}
}

// readBatch collects up to BatchSize valid records
func (p *Pipeline) readBatch(reader recordReader, result *RunResult) ([]*Record, bool, error) {
	batch := make([]*Record, 0, p.config.BatchSize)

	for len(batch) < p.config.BatchSize {
		record, err := reader.Read()
		if err == io.EOF {
			return batch, true, nil
		}
		if errors.Is(err, errSkipRow) {
			p.logger.Warn("Skipping unreadable record", zap.Error(err))
			result.Invalid++
			p.recordRead(false)
			continue
		}
		if err != nil {
			return batch, false, err
		}

		if !p.validateRecord(record) {
			result.Invalid++
			p.recordRead(false)
			continue
		}
		p.recordRead(true)
		batch = append(batch, record)
	}

	p.logger.Debug("Batch read completed", zap.Int("batch_size", len(batch)))
	return batch, false, nil
}

// processBatch humanizes a batch and pairs each result with its record
func (p *Pipeline) processBatch(ctx context.Context, batch []*Record, result *RunResult) ([]*OutputRecord, error) {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Text
	}

	humanizeStart := time.Now()
	results, err := p.processor.HumanizeMany(ctx, texts, p.mode)
	if err != nil {
		return nil, fmt.Errorf("batch humanization failed: %w", err)
	}
	result.HumanizeTime += time.Since(humanizeStart)

	if len(results) != len(batch) {
		return nil, fmt.Errorf("result count mismatch: got %d, expected %d", len(results), len(batch))
	}

	outputs := make([]*OutputRecord, len(batch))
	for i, r := range results {
		changes := r.ChangesApplied
		if changes == nil {
			changes = []string{}
		}
		outputs[i] = &OutputRecord{
			ID:                batch[i].ID,
			Original:          r.Original,
			Humanized:         r.Humanized,
			Mode:              string(r.Mode),
			MethodUsed:        string(r.MethodUsed),
			DetectionEstimate: r.DetectionEstimate,
			ProcessingTimeMs:  r.ProcessingTimeMs,
			WordCountDelta:    int64(r.WordCountDelta),
			ChangesApplied:    changes,
			RewriteError:      r.RewriteError,
		}
	}

	p.logger.Debug("Batch processed successfully",
		zap.Int("batch_size", len(batch)),
		zap.Duration("humanize_time", time.Since(humanizeStart)))

	return outputs, nil
}

// validateRecord validates a data record
func (p *Pipeline) validateRecord(record *Record) bool {
	if !p.config.ValidateData {
		return record.Text != ""
	}

	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text", zap.String("id", record.ID))
		return false
	}

	if p.config.MaxTextLength > 0 {
		if n := utf8.RuneCountInString(record.Text); n > p.config.MaxTextLength {
			p.logger.Debug("Invalid record: text too long",
				zap.String("id", record.ID),
				zap.Int("length", n))
			return false
		}
	}

	return true
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *RunResult) {
	stats := p.GetStats()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Int64("records_invalid", result.Invalid),
		zap.Float64("rate_per_sec", stats.ProcessingRate),
		zap.Duration("elapsed", time.Since(stats.StartTime)))
}

func (p *Pipeline) recordRead(valid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.RecordsRead++
	if !valid {
		p.stats.RecordsInvalid++
	}
}

func (p *Pipeline) recordWritten(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.RecordsWritten += int64(n)
	p.stats.CurrentBatch++
	if elapsed := time.Since(p.stats.StartTime).Seconds(); elapsed > 0 {
		p.stats.ProcessingRate = float64(p.stats.RecordsWritten) / elapsed
	}
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Create a copy
	stats := *p.stats
	return &stats
}
