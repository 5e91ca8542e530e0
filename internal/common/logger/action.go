package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ActionLogger is an append-only audit trail of rows with a fixed column set.
type ActionLogger interface {
	WriteHeader(columns []string) error
	WriteRow(row []string) error
	ShouldWriteHeader() (bool, error)
	Close() error
	Path() string
}

// NewActionLogger opens a CSV or JSON Lines audit log depending on format
// and writes the header when the file is new.
func NewActionLogger(format, dir, toolName, action string, columns []string) (ActionLogger, error) {
	var (
		l   ActionLogger
		err error
	)
	switch strings.ToLower(format) {
	case "json", "jsonl":
		l, err = NewJSONLogger(dir, toolName, action)
	case "csv", "":
		l, err = NewCSVLogger(dir, toolName, action)
	default:
		return nil, fmt.Errorf("unsupported audit log format: %s (must be csv or json)", format)
	}
	if err != nil {
		return nil, err
	}

	shouldWrite, err := l.ShouldWriteHeader()
	if err != nil {
		l.Close()
		return nil, err
	}
	// JSON loggers need the columns even for existing files.
	if _, isJSON := l.(*JSONLogger); shouldWrite || isJSON {
		if err := l.WriteHeader(columns); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func openActionLog(dir, toolName, action, ext string) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	dateStr := time.Now().Format("2006-01-02")
	fileName := fmt.Sprintf("_%s_%s_%s.%s", toolName, action, dateStr, ext)
	return os.OpenFile(filepath.Join(dir, fileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
