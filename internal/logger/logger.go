package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"soratop/internal/config"
)

// Init configures the global logger. The terminal is owned by the UI, so
// without a logfile all logging is disabled. The returned closer releases
// the logfile and is safe to call with a nil result path.
func Init(lcfg config.LoggingConfig) (io.Closer, error) {
	zerolog.SetGlobalLevel(parseLevel(lcfg.Level))

	if lcfg.File == "" {
		log.Logger = zerolog.Nop()
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(lcfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	var w io.Writer = f
	if strings.ToLower(lcfg.Format) == "console" {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
	}
	log.Logger = zerolog.New(w).With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
	return f, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
