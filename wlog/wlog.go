// Package wlog sets up structured logging for the engine.
package wlog

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. It defaults to a usable
// stderr logger so components that log before Init runs (or in tests
// that never call it) don't hit a nil writer.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

var (
	baseWriter io.Writer = os.Stderr
	taskLogDir string
)

// Level is a logging level name.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer

	// TaskLogDir, if set, makes every WithTask logger duplicate its
	// events into "<TaskLogDir>/<task-id>.txt" using TaskLogWriter's
	// persisted line format, alongside the normal structured output.
	TaskLogDir string
}

// Init initializes the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		baseWriter = output
	} else {
		baseWriter = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}
	Logger = zerolog.New(baseWriter).With().Timestamp().Logger()

	SetTaskLogDir(cfg.TaskLogDir)
}

// SetTaskLogDir points WithTask's persisted-file duplication at dir. It
// is separate from Init because the instance work path (and therefore
// the task output directory) is usually only known once a flow's
// configuration has been loaded, after logging itself has already
// started.
func SetTaskLogDir(dir string) {
	taskLogDir = dir
}

// WithComponent creates a child logger tagged with the owning package.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithInstance creates a child logger tagged with the running instance's
// name.
func WithInstance(instanceName string) zerolog.Logger {
	return Logger.With().Str("instance", instanceName).Logger()
}

// WithModule creates a child logger tagged with a module id.
func WithModule(moduleID string) zerolog.Logger {
	return Logger.With().Str("module_id", moduleID).Logger()
}

// WithTask creates a child logger tagged with a task id. When
// SetTaskLogDir (or Init's Config.TaskLogDir) has pointed it at a
// directory, every event logged through the returned logger is also
// appended to "<dir>/<task-id>.txt" in the exact persisted format
// TaskLogWriter writes (§6 of the task log layout), so the engine's own
// task-lifecycle messages land in the same file other tooling reads
// task output from, rather than only ever existing in TaskLogWriter's
// tests.
func WithTask(taskID string) zerolog.Logger {
	if taskLogDir == "" {
		return Logger.With().Str("task_id", taskID).Logger()
	}
	mw := zerolog.MultiLevelWriter(baseWriter, &fileTaskWriter{dir: taskLogDir, taskID: taskID})
	return zerolog.New(mw).With().Timestamp().Str("task_id", taskID).Logger()
}

// fileTaskWriter adapts TaskLogWriter into a zerolog.LevelWriter: each
// zerolog event is decoded just far enough to recover its message, then
// appended to the task's persisted log file through TaskLogWriter.Write.
// The file is opened and closed per write rather than held open, since a
// task logger may be constructed once but log across a long-running task.
type fileTaskWriter struct {
	dir    string
	taskID string
}

func (w *fileTaskWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *fileTaskWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	f, err := os.OpenFile(filepath.Join(w.dir, w.taskID+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	lvl := level.String()
	if level == zerolog.NoLevel {
		lvl = extractLevel(p)
	}
	tw := &TaskLogWriter{TaskID: w.taskID, Out: f}
	if err := tw.Write(lvl, extractMessage(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func extractMessage(p []byte) string {
	var evt struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p, &evt); err == nil && evt.Message != "" {
		return evt.Message
	}
	return strings.TrimSpace(string(p))
}

func extractLevel(p []byte) string {
	var evt struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal(p, &evt); err == nil && evt.Level != "" {
		return evt.Level
	}
	return "info"
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) { Logger.Fatal().Msg(msg) }
