// Package logging provides categorized file-based logging for the engine.
// Logs are written under <data dir>/logs with one file per category per day.
// Logging is controlled by the debug flag passed to Initialize; when
// disabled, every logger is a silent no-op so hot cache paths pay nothing.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

// Log categories.
const (
	CategoryBoot       Category = "boot"       // startup, config
	CategoryAPI        Category = "api"        // LLM API calls
	CategoryPerception Category = "perception" // transcript -> intent transduction
	CategoryEnrichment Category = "enrichment" // pipeline stages and queue
	CategoryLibrary    Category = "library"    // species cache tiers
	CategoryJournal    Category = "journal"    // event append/replay
	CategorySession    Category = "session"    // pending action lifecycle
	CategoryEcosystem  Category = "ecosystem"  // scoring requests
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Settings controls logger behavior. Zero value means disabled.
type Settings struct {
	Debug      bool
	Level      string          // debug|info|warn|error
	JSONFormat bool            // structured entries instead of text
	Categories map[string]bool // nil = all categories enabled
}

// StructuredLogEntry is one JSON log line when JSONFormat is on.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"` // unix millis
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger writes to one category's log file. A Logger with a nil inner
// logger is a no-op.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	settingsMu sync.RWMutex
	settings   Settings
	logLevel   = LevelInfo
	logsDir    string
)

// Initialize configures logging under the given data directory. Call once
// at startup; safe to call again to reconfigure (e.g. in tests).
func Initialize(dataDir string, s Settings) error {
	settingsMu.Lock()
	settings = s
	switch s.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	settingsMu.Unlock()

	loggersMu.Lock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
	logsDir = ""
	loggersMu.Unlock()

	if !s.Debug {
		return nil // silent no-op in production mode
	}
	if dataDir == "" {
		return fmt.Errorf("data directory required")
	}

	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	loggersMu.Lock()
	logsDir = dir
	loggersMu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("logging initialized: dir=%s level=%s json=%v", dir, s.Level, s.JSONFormat)
	return nil
}

// IsCategoryEnabled reports whether the category should produce output.
func IsCategoryEnabled(category Category) bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()

	if !settings.Debug {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true // enabled by default when not listed
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Returns a no-op
// logger when logging is disabled or the category is filtered out.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	dir := logsDir
	loggersMu.RUnlock()

	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a matter of deleting old files.
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open log file for %s: %v\n", category, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) emit(level int, tag, format string, args ...any) {
	if l.logger == nil {
		return
	}
	settingsMu.RLock()
	minLevel, jsonFmt := logLevel, settings.JSONFormat
	settingsMu.RUnlock()
	if level < minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if jsonFmt {
		l.logJSON(tag, msg)
	} else {
		l.logger.Printf("[%s] %s", tag, msg)
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) { l.emit(LevelDebug, "DEBUG", format, args...) }

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) { l.emit(LevelInfo, "INFO", format, args...) }

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) { l.emit(LevelWarn, "WARN", format, args...) }

// Error logs an error. Always written when the logger is active.
func (l *Logger) Error(format string, args ...any) { l.emit(LevelError, "ERROR", format, args...) }
