package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	runID     string
	runIDOnce sync.Once

	logger = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	// stdout may carry the rendered config
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the log level (debug, info, warn, error) and format (text, json).
// Empty values leave the current setting untouched.
func Configure(level, format string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		logger.SetLevel(lvl)
	}
	switch strings.ToLower(format) {
	case "":
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Logger exposes the underlying logger, mainly so tests can attach hooks.
func Logger() *logrus.Logger {
	return logger
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}

// GetRunID returns an identifier for this invocation, taken from VHOST_RUN_ID,
// then HOSTNAME, then the OS hostname.
func GetRunID() string {
	runIDOnce.Do(func() {
		runID = os.Getenv("VHOST_RUN_ID")
		if runID == "" {
			runID = os.Getenv("HOSTNAME")
		}
		if runID == "" {
			hostname, _ := os.Hostname()
			if len(hostname) > 8 {
				hostname = hostname[len(hostname)-8:]
			}
			runID = hostname
		}
		if runID == "" {
			runID = "unknown"
		}
	})
	return runID
}

func entry() *logrus.Entry {
	return logger.WithField("run", GetRunID())
}

// Logf logs a formatted message at info level
func Logf(format string, v ...interface{}) {
	entry().Infof(format, v...)
}

// Log logs a message at info level
func Log(v ...interface{}) {
	entry().Info(v...)
}

// Debugf logs a formatted message at debug level
func Debugf(format string, v ...interface{}) {
	entry().Debugf(format, v...)
}

// Warnf logs a formatted message at warn level
func Warnf(format string, v ...interface{}) {
	entry().Warnf(format, v...)
}

// Fatalf logs a fatal error and exits
func Fatalf(format string, v ...interface{}) {
	entry().Fatalf(format, v...)
}
