package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Fields map[string]any

type Config struct {
	Level  string
	Pretty bool
	Output io.Writer
}

var sensitiveKeys = map[string]struct{}{
	"dob":           {},
	"dateofbirth":   {},
	"date_of_birth": {},
	"password":      {},
	"dsn":           {},
	"databasedsn":   {},
	"database_dsn":  {},
}

var current atomic.Pointer[zerolog.Logger]

func init() {
	Configure(Config{Level: "info"})
}

// Configure replaces the process logger. It is meant to be called once at
// startup, before any service runs.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "customer-ledger").
		Logger()
	current.Store(&l)
}

func Info(message string, fields Fields) {
	current.Load().Info().Fields(sanitizeFields(fields)).Msg(message)
}

func Warn(message string, fields Fields) {
	current.Load().Warn().Fields(sanitizeFields(fields)).Msg(message)
}

func Error(message string, err error, fields Fields) {
	current.Load().Error().Err(err).Fields(sanitizeFields(fields)).Msg(message)
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func sanitizeFields(fields Fields) map[string]any {
	if fields == nil {
		return map[string]any{}
	}

	sanitized, ok := SanitizePayload(map[string]any(fields)).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return sanitized
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
