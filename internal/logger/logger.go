package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It discards output until Init is called.
var Logger = Discard()

// Config holds logger configuration.
type Config struct {
	Debug   bool
	BaseDir string
}

// Init points Logger at a rotating file under BaseDir/logs, mirrored to
// stderr when Debug is set.
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.BaseDir, "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "tpt.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.InfoLevel
	var writer io.Writer = fileWriter
	if cfg.Debug {
		level = log.DebugLevel
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "tpt",
	})
	return nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }
