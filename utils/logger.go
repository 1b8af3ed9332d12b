package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Log levels, lowest first
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger provides logging functionality
type Logger struct {
	file    *os.File
	logger  *log.Logger
	console bool
	level   int
}

// NewLogger creates a new logger writing to logPath and stdout
func NewLogger(logPath string) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.New(file, "", log.LstdFlags)

	return &Logger{
		file:    file,
		logger:  logger,
		console: true,
		level:   LevelInfo,
	}, nil
}

// NewWriterLogger creates a logger that writes only to w
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		level:  LevelDebug,
	}
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() *Logger {
	return NewWriterLogger(io.Discard)
}

// SetLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names leave the level unchanged.
func (l *Logger) SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		l.level = LevelDebug
	case "info":
		l.level = LevelInfo
	case "warn", "warning":
		l.level = LevelWarn
	case "error":
		l.level = LevelError
	}
}

// Close closes the logger
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.write(LevelInfo, "[INFO] ", format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.write(LevelError, "[ERROR] ", format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.write(LevelDebug, "[DEBUG] ", format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.write(LevelWarn, "[WARN] ", format, v...)
}

func (l *Logger) write(level int, prefix, format string, v ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(prefix+format, v...)
	l.logger.Println(msg)
	if l.console {
		fmt.Println(msg)
	}
}

// GetLogPath returns the default log path
func GetLogPath() string {
	return filepath.Join(".", "logs", fmt.Sprintf("app-%s.log", time.Now().Format("2006-01-02")))
}
