// Package logger provides the controller's process-wide structured logger.
// It wraps github.com/sirupsen/logrus (JSON output, dynamic level) behind a
// small API; callers that take a *logrus.Entry still import logrus for the
// type.
package logger

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Environment variable name for log level configuration.
const envLogLevel = "SDNCTL_LOG_LEVEL"

var (
	global   *logrus.Logger
	initOnce sync.Once

	// Optional flag (users may pass -log.level=debug). If flag.Parse hasn't
	// yet been called when Init is invoked, we still scan the raw os.Args.
	flagLevel = flag.String("log.level", "", "log level (debug, info, warn, error)")
)

// Init initializes the global logger. Safe to call multiple times; only the
// first call constructs the logger.
func Init() {
	initOnce.Do(func() {
		l := logrus.New()
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetOutput(os.Stdout)
		l.SetLevel(detectLevel())
		global = l
	})
}

// Logger returns the global logger, initializing it on first use.
func Logger() *logrus.Logger {
	Init()
	return global
}

// UseWriter redirects log output (primarily for tests). Retains current level.
func UseWriter(w io.Writer) {
	Logger().SetOutput(w)
}

// detectLevel resolves the initial log level from (precedence high→low):
//  1. command-line flag -log.level
//  2. environment variable SDNCTL_LOG_LEVEL
//  3. default (info)
func detectLevel() logrus.Level {
	if *flagLevel == "" {
		for _, arg := range os.Args[1:] {
			if strings.HasPrefix(arg, "-log.level=") {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) == 2 {
					*flagLevel = parts[1]
				}
			}
		}
	}
	if lvl, ok := parseLevel(strings.TrimSpace(*flagLevel)); ok {
		return lvl
	}
	if env := os.Getenv(envLogLevel); env != "" {
		if lvl, ok := parseLevel(env); ok {
			return lvl
		}
	}
	return logrus.InfoLevel
}

func parseLevel(s string) (logrus.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel, true
	case "info", "":
		return logrus.InfoLevel, true
	case "warn", "warning":
		return logrus.WarnLevel, true
	case "error", "err":
		return logrus.ErrorLevel, true
	}
	return 0, false
}

// SetLevel changes the runtime log level.
func SetLevel(level string) error {
	lvl, ok := parseLevel(level)
	if !ok {
		return fmt.Errorf("invalid log level: %s", level)
	}
	Logger().SetLevel(lvl)
	return nil
}

// Level returns the current level's name in upper case (e.g. "DEBUG"),
// using the same names SetLevel accepts ("WARN" rather than logrus's
// "WARNING").
func Level() string {
	lvl := Logger().GetLevel()
	if lvl == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(lvl.String())
}

// Convenience top-level logging functions. args is an alternating key/value
// list, mirroring the teacher's slog-based call sites.
func Debug(msg string, args ...any) { Logger().WithFields(pairs(args)).Debug(msg) }
func Info(msg string, args ...any)  { Logger().WithFields(pairs(args)).Info(msg) }
func Warn(msg string, args ...any)  { Logger().WithFields(pairs(args)).Warn(msg) }
func Error(msg string, args ...any) { Logger().WithFields(pairs(args)).Error(msg) }

func pairs(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			continue
		}
		f[k] = args[i+1]
	}
	return f
}

// WithSwitch returns a logging context scoped to one switch's datapath id,
// the field every brain/handler log line carries per the ambient logging
// contract.
func WithSwitch(l *logrus.Logger, datapathID uint64) *logrus.Entry {
	return l.WithField("switch_id", fmt.Sprintf("%016x", datapathID))
}

// WithComponent tags a logging context with the originating component name
// (e.g. "dispatcher", "forwarder", "rewriter", "brain").
func WithComponent(e *logrus.Entry, name string) *logrus.Entry {
	return e.WithField("component", name)
}
