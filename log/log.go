// Package log is the process logger: zerolog behind a small printf-style surface.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "VSOCKCMD_LOG_LEVEL"

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, levelFromEnv(zerolog.InfoLevel))
)

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

func levelFromEnv(def zerolog.Level) zerolog.Level {
	raw := strings.TrimSpace(os.Getenv(EnvLogLevel))
	if raw == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return def
	}
	return lvl
}

// Configure replaces the process logger. An empty level keeps the env/default level.
func Configure(w io.Writer, level string) error {
	lvl := levelFromEnv(zerolog.InfoLevel)
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	logger = newLogger(w, lvl)
	mu.Unlock()
	return nil
}

// Logger returns the current logger for callers that want structured fields.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Debug(args ...interface{}) {
	Logger().Debug().Msg(fmt.Sprint(args...))
}

func Debugf(format string, args ...interface{}) {
	Logger().Debug().Msgf(format, args...)
}

func Info(args ...interface{}) {
	Logger().Info().Msg(fmt.Sprint(args...))
}

func Infof(format string, args ...interface{}) {
	Logger().Info().Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger().Warn().Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger().Error().Msgf(format, args...)
}
