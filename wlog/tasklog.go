package wlog

import (
	"fmt"
	"io"
	"time"
)

// TaskLogWriter writes the persisted task log format alongside each
// task's output, one line per message, matching
// ^YYYY-MM-DD HH:MM:SS,mmm <task-id> (DEBUG|INFO|WARN|ERROR) : <text>$.
//
// Other tooling parses this exact format, so it is written verbatim
// alongside (not instead of) the structured zerolog output.
type TaskLogWriter struct {
	TaskID string
	Out    io.Writer
}

func (w *TaskLogWriter) Write(level, text string) error {
	now := time.Now()
	line := fmt.Sprintf("%s %s,%03d %s %s : %s\n",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		now.Nanosecond()/1e6,
		w.TaskID,
		normalizeLevel(level),
		text,
	)
	_, err := io.WriteString(w.Out, line)
	return err
}

func normalizeLevel(level string) string {
	switch level {
	case "debug", "DEBUG":
		return "DEBUG"
	case "warn", "WARN", "warning":
		return "WARN"
	case "error", "ERROR":
		return "ERROR"
	default:
		return "INFO"
	}
}
