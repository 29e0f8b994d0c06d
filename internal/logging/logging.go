// Package logging builds the process logger: a colorized terminal handler,
// optionally fanned out to a JSON log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// #region config
// Config selects the log level and sinks.
type Config struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	NoColor  bool   `yaml:"no_color"`
	Journald bool   `yaml:"journald"`
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// #endregion config

// #region constructor
// New returns a logger writing to w, to cfg.File as JSON lines when set, and
// to the systemd journal when cfg.Journald is set and the journal is
// reachable. The returned close func releases the file.
func New(cfg Config, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	term := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
	})
	handlers := []slog.Handler{term}
	closeFn := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closeFn = f.Close
	}

	if cfg.Journald {
		jh, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: journalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = journalKey(a.Key)
				return a
			},
		})
		if err != nil {
			slog.New(term).Warn("systemd journal unavailable", "error", err)
		} else {
			handlers = append(handlers, jh)
		}
	}

	if len(handlers) == 1 {
		return slog.New(term), closeFn, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}

// journalKey upper-cases a key and maps anything outside [A-Z0-9] to '_',
// as journald field names require.
func journalKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(s))
}

// #endregion constructor
