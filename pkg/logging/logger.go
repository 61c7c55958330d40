package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a set of structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// Logger provides leveled structured logging.
// Output goes to stderr by default so stdout stays free for the operator prompt.
type Logger struct {
	mu         *sync.Mutex
	level      Level
	jsonFormat bool
	output     io.Writer
	fields     Fields
	logFile    *os.File
	exit       func(int)
}

// NewLogger creates a new logger writing to stderr
func NewLogger(level Level, jsonFormat bool) *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		level:      level,
		jsonFormat: jsonFormat,
		output:     os.Stderr,
		fields:     make(Fields),
		exit:       os.Exit,
	}
}

// NewFileLogger creates a logger that appends to path in addition to stderr.
// The parent directory is created if missing.
func NewFileLogger(path string, level Level, jsonFormat bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	logger := NewLogger(level, jsonFormat)
	logger.output = io.MultiWriter(logFile, os.Stderr)
	logger.logFile = logFile

	return logger, nil
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	l := NewLogger(FATAL+1, false)
	l.output = io.Discard
	return l
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() Level {
	return l.level
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

func (l *Logger) log(level Level, message string, fields Fields) {
	if level < l.level {
		return
	}

	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.mu.Lock()
	if l.jsonFormat {
		entry := LogEntry{
			Timestamp: time.Now().Format(time.RFC3339),
			Level:     level.String(),
			Message:   message,
			Fields:    merged,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			log.Printf("Failed to marshal log entry: %v", err)
		} else {
			fmt.Fprintln(l.output, string(data))
		}
	} else {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(l.output, "[%s] %s: %s%s\n", timestamp, level.String(), message, formatFields(merged))
	}
	l.mu.Unlock()

	if level == FATAL {
		l.exit(1)
	}
}

// formatFields renders fields as sorted key=value pairs
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...Fields) {
	l.log(DEBUG, message, first(fields))
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...Fields) {
	l.log(INFO, message, first(fields))
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...Fields) {
	l.log(WARN, message, first(fields))
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...Fields) {
	l.log(ERROR, message, first(fields))
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields ...Fields) {
	l.log(FATAL, message, first(fields))
}

// WithField returns a child logger carrying key=value on every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newFields := make(Fields, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &Logger{
		mu:         l.mu,
		level:      l.level,
		jsonFormat: l.jsonFormat,
		output:     l.output,
		fields:     newFields,
		logFile:    l.logFile,
		exit:       l.exit,
	}
}

// ParseLevel parses a log level string, defaulting to INFO
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Close closes the log file if opened
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}
