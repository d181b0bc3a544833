package batch

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/segmentio/parquet-go"
)

// errSkipRow marks a row that could not be decoded. The pipeline counts it
// as invalid and keeps reading.
var errSkipRow = errors.New("skip row")

const maxLineBytes = 16 << 20

// recordReader yields input rows until io.EOF
type recordReader interface {
	Read() (*Record, error)
	Close() error
}

// recordWriter persists humanized rows
type recordWriter interface {
	Write(records []*OutputRecord) error
	Close() error
}

// csvColumns is the CSV output header
var csvColumns = []string{
	"id", "original", "humanized", "mode", "method_used",
	"ai_detection_estimate", "processing_time_ms", "word_count_change",
	"changes_applied", "rewrite_error",
}

func openReader(path string, format FileFormat) (recordReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	switch format {
	case FormatCSV:
		r, err := newCSVReader(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		return r, nil
	case FormatParquet:
		return &parquetReader{file: file, reader: parquet.NewReader(file)}, nil
	case FormatJSONL:
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		return &jsonlReader{file: file, scanner: scanner}, nil
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

func createWriter(path string, format FileFormat) (recordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatCSV:
		w := csv.NewWriter(file)
		if err := w.Write(csvColumns); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
		return &csvWriter{file: file, writer: w}, nil
	case FormatParquet:
		return &parquetWriter{file: file, writer: parquet.NewGenericWriter[OutputRecord](file)}, nil
	case FormatJSONL:
		buf := bufio.NewWriter(file)
		return &jsonlWriter{file: file, buf: buf, encoder: json.NewEncoder(buf)}, nil
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// csvReader reads an id,text CSV. The id column is optional.
type csvReader struct {
	file    *os.File
	reader  *csv.Reader
	idCol   int
	textCol int
	row     int
}

func newCSVReader(file *os.File) (*csvReader, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// spreadsheet exports often start with a byte order mark
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	r := &csvReader{file: file, reader: reader, idCol: -1, textCol: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			r.idCol = i
		case "text":
			r.textCol = i
		}
	}
	if r.textCol < 0 {
		return nil, fmt.Errorf("CSV header has no text column: %v", header)
	}
	return r, nil
}

func (r *csvReader) Read() (*Record, error) {
	fields, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.row++

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, fmt.Errorf("%w: row %d: %v", errSkipRow, r.row, err)
	}
	if err != nil {
		return nil, err
	}
	if r.textCol >= len(fields) {
		return nil, fmt.Errorf("%w: row %d has %d fields", errSkipRow, r.row, len(fields))
	}

	record := &Record{Text: fields[r.textCol]}
	if r.idCol >= 0 && r.idCol < len(fields) {
		record.ID = strings.TrimSpace(fields[r.idCol])
	}
	if record.ID == "" {
		record.ID = strconv.Itoa(r.row)
	}
	return record, nil
}

func (r *csvReader) Close() error {
	return r.file.Close()
}

// jsonlReader reads one JSON object per line, skipping blank lines
type jsonlReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func (r *jsonlReader) Read() (*Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errSkipRow, r.line, err)
		}
		if record.ID == "" {
			record.ID = strconv.Itoa(r.line)
		}
		return &record, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return nil, io.EOF
}

func (r *jsonlReader) Close() error {
	return r.file.Close()
}

// parquetReader reads Record rows by column name
type parquetReader struct {
	file   *os.File
	reader *parquet.Reader
	row    int
}

func (r *parquetReader) Read() (*Record, error) {
	var record Record
	if err := r.reader.Read(&record); err != nil {
		return nil, err
	}
	r.row++
	if record.ID == "" {
		record.ID = strconv.Itoa(r.row)
	}
	return &record, nil
}

func (r *parquetReader) Close() error {
	err := r.reader.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type jsonlWriter struct {
	file    *os.File
	buf     *bufio.Writer
	encoder *json.Encoder
}

func (w *jsonlWriter) Write(records []*OutputRecord) error {
	for _, record := range records {
		if err := w.encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	err := w.buf.Flush()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type csvWriter struct {
	file   *os.File
	writer *csv.Writer
}

func (w *csvWriter) Write(records []*OutputRecord) error {
	for _, r := range records {
		row := []string{
			r.ID,
			r.Original,
			r.Humanized,
			r.Mode,
			r.MethodUsed,
			strconv.FormatFloat(r.DetectionEstimate, 'f', -1, 64),
			strconv.FormatFloat(r.ProcessingTimeMs, 'f', 3, 64),
			strconv.FormatInt(r.WordCountDelta, 10),
			strings.Join(r.ChangesApplied, " | "),
			r.RewriteError,
		}
		if err := w.writer.Write(row); err != nil {
			return err
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

func (w *csvWriter) Close() error {
	w.writer.Flush()
	err := w.writer.Error()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type parquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[OutputRecord]
}

func (w *parquetWriter) Write(records []*OutputRecord) error {
	rows := make([]OutputRecord, len(records))
	for i, r := range records {
		rows[i] = *r
	}
	_, err := w.writer.Write(rows)
	return err
}

func (w *parquetWriter) Close() error {
	err := w.writer.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}
