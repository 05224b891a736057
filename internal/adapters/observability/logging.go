package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// A non-empty file also tees JSON lines into a rotating file.
func NewLogger(env, file string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			// the logger isn't built yet
			fmt.Fprintf(os.Stderr, "log file %s disabled: %v\n", file, err)
		} else {
			out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
				Filename:   file,
				MaxSize:    50, // MB
				MaxBackups: 7,
				MaxAge:     14, // days
				Compress:   true,
			})
		}
	}
	level := zerolog.InfoLevel
	if env == "dev" || env == "development" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
