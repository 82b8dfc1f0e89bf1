package utils

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return logger, nil
}

// RunLogger writes one report run to its own log file and to the base
// logger's output.
type RunLogger struct {
	*logrus.Logger
	file *os.File
	Path string
}

// NewRunLogger creates <dir>/<name>/report_<name>_<timestamp>.log. name is
// usually the sitemap host.
func NewRunLogger(base *logrus.Logger, dir, name string) (*RunLogger, error) {
	sanitized := SanitizeName(name)

	runDir := filepath.Join(dir, sanitized)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(runDir, fmt.Sprintf("report_%s_%s.log", sanitized, timestamp))

	// Runs for the same host within one second share the file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(base.Out, file))
	logger.SetLevel(base.GetLevel())
	logger.SetFormatter(base.Formatter)

	return &RunLogger{
		Logger: logger,
		file:   file,
		Path:   logPath,
	}, nil
}

func (rl *RunLogger) Close() error {
	return rl.file.Close()
}

// SanitizeName turns a URL or label into a file system friendly name.
func SanitizeName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Host != "" {
		name = u.Host
	}
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "_", ".", "_", ":", "_", "/", "_")
	name = replacer.Replace(name)
	if name == "" {
		return "default"
	}
	return name
}
