package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONLogger writes one JSON object per row (JSON Lines). Column names are
// taken from the header and become the object keys.
type JSONLogger struct {
	buf        *bufio.Writer
	file       *os.File
	path       string
	columns    []string
	rowCount   int
	lastFlush  time.Time
	flushEvery int
}

// NewJSONLogger creates a JSON Lines logger for the specified tool and action in dir.
// Filename pattern: {dir}/_{toolName}_{action}_{date}.jsonl
func NewJSONLogger(dir, toolName, action string) (*JSONLogger, error) {
	file, err := openActionLog(dir, toolName, action, "jsonl")
	if err != nil {
		return nil, fmt.Errorf("could not create JSON log file: %w", err)
	}

	return &JSONLogger{
		buf:        bufio.NewWriter(file),
		file:       file,
		path:       file.Name(),
		lastFlush:  time.Now(),
		flushEvery: 10,
	}, nil
}

// WriteHeader records the column names. Nothing is written to the file.
func (l *JSONLogger) WriteHeader(columns []string) error {
	l.columns = append([]string(nil), columns...)
	return nil
}

// WriteRow writes a row as a JSON object with a timestamp field.
func (l *JSONLogger) WriteRow(row []string) error {
	if l.buf == nil {
		return fmt.Errorf("JSON writer is not initialized")
	}
	if l.columns == nil {
		return fmt.Errorf("WriteHeader must be called before WriteRow")
	}
	if len(row) != len(l.columns) {
		return fmt.Errorf("row has %d values, header has %d columns", len(row), len(l.columns))
	}

	obj := make(map[string]string, len(row)+1)
	obj["timestamp"] = time.Now().Format(time.RFC3339)
	for i, col := range l.columns {
		obj[col] = row[i]
	}

	line, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode JSON row: %w", err)
	}
	if _, err := l.buf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON row: %w", err)
	}

	l.rowCount++
	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		l.lastFlush = time.Now()
		if err := l.buf.Flush(); err != nil {
			return fmt.Errorf("failed to flush JSON: %w", err)
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (l *JSONLogger) Close() error {
	if l.buf != nil {
		if err := l.buf.Flush(); err != nil {
			return fmt.Errorf("error flushing JSON on close: %w", err)
		}
	}
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// ShouldWriteHeader reports whether the file is empty. JSON Lines files carry
// no header line, but callers use the same flow for both formats.
func (l *JSONLogger) ShouldWriteHeader() (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return false, fmt.Errorf("could not stat JSON file: %w", err)
	}
	return info.Size() == 0, nil
}

// Path returns the log file location.
func (l *JSONLogger) Path() string {
	return l.path
}
