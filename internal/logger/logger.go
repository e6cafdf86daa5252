// Package logger is the process-wide leveled logger.
//
// Messages use printf formatting. Two output formats are supported:
//
//	text: [2006-01-02 15:04:05] [INFO] message
//	json: {"time":"...","level":"INFO","msg":"message"}
//
// The package is configured once at startup (see Configure) and used through
// the package-level Debug/Info/Warn/Error functions.
package logger

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	format       = FormatText
	output       io.Writer = os.Stdout
	logger                 = stdlog.New(output, "", 0)
	jsonLogger             = newJSONLogger(output)
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	parsed, ok := ParseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	currentLevel = parsed
	mu.Unlock()
}

// SetFormat selects "text" or "json" output. Unknown names are ignored.
func SetFormat(name string) {
	name = strings.ToLower(name)
	if name != FormatText && name != FormatJSON {
		return
	}
	mu.Lock()
	format = name
	mu.Unlock()
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	logger = stdlog.New(w, "", 0)
	jsonLogger = newJSONLogger(w)
}

// Configure applies level, format and output destination in one call.
//
// Output may be "stdout", "stderr" or a file path (opened in append mode).
// The returned closer must be called on shutdown when output is a file;
// it is a no-op otherwise.
func Configure(level, fmtName, out string) (io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)

	switch strings.ToLower(out) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = f
	}

	SetOutput(w)
	SetLevel(level)
	SetFormat(fmtName)
	return closer, nil
}

// IsDebugEnabled reports whether debug messages are emitted.
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel <= LevelDebug
}

func log(level Level, msgFormat string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	message := fmt.Sprintf(msgFormat, v...)

	if format == FormatJSON {
		jsonLogger.Log(context.Background(), level.slogLevel(), message)
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	logger.Println(prefix + message)
}

func newJSONLogger(w io.Writer) *slog.Logger {
	// Filtering happens in log(); the handler accepts everything.
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
