package logging_helper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fyersbot/go_src/configuration"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultRotationSizeMB = 2
	defaultMaxBackups     = 30
	timestampFormat       = "2006-01-02 15:04:05.000"
)

// LogFilePath is where SetupLogging writes for appName: <file_path>/<app>/<app>.log.
func LogFilePath(logConfig configuration.Logging, appName string) string {
	return filepath.Join(logConfig.FilePath, appName, appName+".log")
}

func newFormatter(format string) (logrus.Formatter, bool) {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}, true
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}, true
	}
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}, false
}

// SetupLogging points the package-level logrus logger at a rotated file for appName,
// plus stdout when console_output is set. Bad level, format or rotation values fall back
// to defaults and are reported once the file is open.
func SetupLogging(config *configuration.Config, appName string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if appName == "" {
		return fmt.Errorf("appName cannot be empty")
	}
	logConfig := config.Logging
	if logConfig.FilePath == "" {
		return fmt.Errorf("log_path (config.Logging.FilePath) is not configured")
	}

	var warnings []string

	formatter, ok := newFormatter(logConfig.Format)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("Unknown log format '%s', using text", logConfig.Format))
	}
	logrus.SetFormatter(formatter)

	level, err := logrus.ParseLevel(strings.ToLower(logConfig.Level))
	if err != nil {
		level = logrus.InfoLevel
		warnings = append(warnings, fmt.Sprintf("Invalid log level '%s' (from config) was overridden to 'info'. Error: %v", logConfig.Level, err))
	}
	logrus.SetLevel(level)

	rotationSize := logConfig.RotationSize
	if rotationSize <= 0 {
		rotationSize = defaultRotationSizeMB
		warnings = append(warnings, fmt.Sprintf("logging.rotation_size is invalid (%d), defaulting to %dMB", logConfig.RotationSize, rotationSize))
	}
	maxBackups := logConfig.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
		warnings = append(warnings, fmt.Sprintf("logging.max_backups is invalid (%d), defaulting to %d", logConfig.MaxBackups, maxBackups))
	}

	logFile := LogFilePath(logConfig, appName)
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory '%s': %w", filepath.Dir(logFile), err)
	}

	var out io.Writer = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    rotationSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	if logConfig.ConsoleOutput {
		out = io.MultiWriter(os.Stdout, out)
	}
	logrus.SetOutput(out)

	for _, w := range warnings {
		logrus.Warn(w)
	}
	logrus.Infof("-------------------------------- Started %s application --------------------------------", appName)
	logrus.Infof("Logging configured: Level=%s, File=%s, ConsoleOutput=%t", logrus.GetLevel(), logFile, logConfig.ConsoleOutput)
	return nil
}
