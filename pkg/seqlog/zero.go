package seqlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("")

var logFile *os.File

// NewZeroLogger builds a console logger writing to filepath, or to stdout
// when filepath is empty.
func NewZeroLogger(filepath string) *zerolog.Logger {
	f, writer, err := newWriter(filepath)
	if err != nil {
		writer = os.Stdout
	}
	if f != nil {
		logFile = f
	}
	return newZeroLogger(writer)
}

func newZeroLogger(w io.Writer) *zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stdout}
	logger := zerolog.New(output).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	return &logger
}

// ReloadLogger reopens the global logger on filepath, keeping the current level.
func ReloadLogger(filepath string) {
	if filepath == "" {
		return // this means os.Stdout, so no need to open new file
	}
	oldFile := logFile
	level := Zero.GetLevel()
	l := NewZeroLogger(filepath).Level(level)
	Zero = &l
	if oldFile != nil && oldFile != logFile {
		_ = oldFile.Close()
	}
}

// SetOutput redirects the global logger, used by tests to capture output.
func SetOutput(w io.Writer) {
	level := Zero.GetLevel()
	l := newZeroLogger(w).Level(level)
	Zero = &l
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
