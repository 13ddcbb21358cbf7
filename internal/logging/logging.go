// Package logging sets up structured logging for long-running
// commands. Logs go to a size-rotated file as JSON, with optional
// mirroring to stderr for interactive use.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging settings.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Dir    string `yaml:"dir"`    // log directory, empty for stderr only
	Stderr bool   `yaml:"stderr"` // also mirror to stderr
}

// New builds a logger from cfg. When Dir is set, logs are written to
// <dir>/<name>.log with rotation at 64 MB and a two week retention.
func New(name string, cfg Config) (*slog.Logger, error) {
	lvl := slog.LevelInfo
	switch cfg.Level {
	case "", "info":
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	var w io.Writer
	switch {
	case cfg.Dir == "":
		w = os.Stderr
	default:
		rot := &lumberjack.Logger{
			Filename: filepath.Join(cfg.Dir, name+".log"),
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		}
		if cfg.Stderr {
			w = io.MultiWriter(rot, os.Stderr)
		} else {
			w = rot
		}
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With(slog.String("app", name)), nil
}
