package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity threshold. Entries below the configured level are
// dropped before they reach the output writer.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOGLEVEL-style string to a Level. Unknown or empty values
// fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Writer emits one JSON object per log entry with ts/level/service/msg fields.
// It implements io.Writer so it can back a stdlib *log.Logger; the written
// message may carry a leading level tag ("[WARN] ...", "error: ...") which is
// parsed out and compared against the threshold.
type Writer struct {
	mu      sync.Mutex
	service string
	min     Level
	out     io.Writer
}

// NewWriter creates a Writer for the given service name and threshold. A nil
// out defaults to os.Stdout.
func NewWriter(service string, min Level, out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{service: service, min: min, out: out}
}

// New returns a stdlib logger backed by a Writer, with the threshold taken
// from the LOGLEVEL environment variable (default INFO).
func New(service string) *log.Logger {
	w := NewWriter(service, ParseLevel(os.Getenv("LOGLEVEL")), os.Stdout)
	return log.New(w, "", 0)
}

func (w *Writer) Write(p []byte) (int, error) {
	level, message := splitLevel(strings.TrimSpace(string(p)))
	if err := w.Log(level, message); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Log writes a single entry at the given level, honoring the threshold.
func (w *Writer) Log(level Level, message string) error {
	if level < w.min {
		return nil
	}

	entry := map[string]string{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   level.String(),
		"service": w.service,
		"msg":     message,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.out.Write(append(data, '\n'))
	return err
}

func splitLevel(message string) (Level, string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return LevelInfo, ""
	}

	if strings.HasPrefix(trimmed, "[") {
		if idx := strings.Index(trimmed, "]"); idx > 1 {
			if level, ok := levelNamed(trimmed[1:idx]); ok {
				return level, strings.TrimSpace(trimmed[idx+1:])
			}
		}
	}

	if idx := strings.Index(trimmed, ":"); idx > 0 {
		if level, ok := levelNamed(trimmed[:idx]); ok {
			return level, strings.TrimSpace(trimmed[idx+1:])
		}
	}

	fields := strings.Fields(trimmed)
	if len(fields) > 1 {
		if level, ok := levelNamed(fields[0]); ok {
			return level, strings.TrimSpace(trimmed[len(fields[0]):])
		}
	}

	return LevelInfo, trimmed
}

func levelNamed(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}
