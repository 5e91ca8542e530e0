package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// CSVLogger handles CSV logging operations with periodic buffering
type CSVLogger struct {
	writer     *csv.Writer
	file       *os.File
	path       string
	toolName   string
	action     string
	rowCount   int       // Number of rows written since last flush
	lastFlush  time.Time // Time of last flush
	flushEvery int       // Flush every N rows
}

// NewCSVLogger creates a new CSV logger for the specified tool and action in dir.
// Filename pattern: {dir}/_{toolName}_{action}_{date}.csv
//
// Examples:
//   - logs/_consolectl_repair_2026-01-09.csv
//   - logs/_consolectl_connect_2026-01-09.csv
func NewCSVLogger(dir, toolName, action string) (*CSVLogger, error) {
	file, err := openActionLog(dir, toolName, action, "csv")
	if err != nil {
		return nil, fmt.Errorf("could not create CSV log file: %w", err)
	}

	return &CSVLogger{
		writer:     csv.NewWriter(file),
		file:       file,
		path:       file.Name(),
		toolName:   toolName,
		action:     action,
		lastFlush:  time.Now(),
		flushEvery: 10, // Flush every 10 rows or on close
	}, nil
}

// WriteHeader writes a CSV header with the provided column names.
// The timestamp column is automatically prepended to the header.
func (l *CSVLogger) WriteHeader(columns []string) error {
	header := append([]string{"Timestamp"}, columns...)
	if err := l.writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// WriteRow writes a row to the CSV file with periodic buffering.
// The timestamp is automatically prepended to each row.
func (l *CSVLogger) WriteRow(row []string) error {
	if l.writer == nil {
		return fmt.Errorf("CSV writer is not initialized")
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fullRow := append([]string{timestamp}, row...)

	if err := l.writer.Write(fullRow); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}

	l.rowCount++

	// Flush every N rows or every 5 seconds
	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		l.writer.Flush()
		l.lastFlush = time.Now()
		if err := l.writer.Error(); err != nil {
			return fmt.Errorf("failed to flush CSV: %w", err)
		}
	}

	return nil
}

// Close closes the CSV file, ensuring all buffered data is flushed.
func (l *CSVLogger) Close() error {
	if l.writer != nil {
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			return fmt.Errorf("error flushing CSV on close: %w", err)
		}
	}
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// ShouldWriteHeader checks if the CSV file is new (empty) and needs a header.
func (l *CSVLogger) ShouldWriteHeader() (bool, error) {
	fileInfo, err := os.Stat(l.path)
	if err != nil {
		return false, fmt.Errorf("could not stat CSV file: %w", err)
	}
	return fileInfo.Size() == 0, nil
}

// Path returns the log file location.
func (l *CSVLogger) Path() string {
	return l.path
}
