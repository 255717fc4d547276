package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Options controls where and how the process logs.
type Options struct {
	File   string // rotated log file; empty disables the file sink
	Level  string
	Format string // "text" or "json"
	Stdout bool
}

// Setup initializes Logrus and GORM logging via a rotating file.
func Setup(opts Options) error {
	var sinks []io.Writer
	if opts.File != "" {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 7,  // keep up to 7 old files
			MaxAge:     7,  // days
			Compress:   true,
		})
	}
	if opts.Stdout || len(sinks) == 0 {
		sinks = append(sinks, os.Stdout)
	}
	logrus.SetOutput(io.MultiWriter(sinks...))
	logrus.SetFormatter(Formatter(opts.Format))

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}
	logrus.SetLevel(level)
	return nil
}

// Formatter returns the logrus formatter for a format name. Unknown names fall back to text.
func Formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}
}

// GormLogger returns the standard Logrus logger for GORM
func GormLogger() *logrus.Logger {
	return logrus.StandardLogger()
}
