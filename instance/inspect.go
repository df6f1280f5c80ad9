package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/wokengine/wok/node"
)

// taskLogLine matches the persisted task log format:
// "YYYY-MM-DD HH:MM:SS,mmm <task-id> LEVEL : text".
var taskLogLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2},\d{3}) (\S+) (DEBUG|INFO|WARN|ERROR) : (.*)$`)

// LogEntry is one parsed line of a task's persisted log.
type LogEntry struct {
	Date    string
	Time    string
	TaskID  string
	Level   string
	Message string
}

func (inst *Instance) outputPath(taskID string) string {
	return filepath.Join(inst.cfg.WorkPath, "output", taskID+".txt")
}

// TaskOutput returns the combined stdout/stderr log for a task, verbatim.
func (inst *Instance) TaskOutput(taskID string) (string, error) {
	data, err := os.ReadFile(inst.outputPath(taskID))
	if err != nil {
		return "", fmt.Errorf("instance: read task output %s: %w", taskID, err)
	}
	return string(data), nil
}

// TaskLogs parses a task's output into structured entries.
func (inst *Instance) TaskLogs(moduleID string, index int) ([]LogEntry, error) {
	taskID := node.TaskID(moduleID, index)
	raw, err := inst.TaskOutput(taskID)
	if err != nil {
		return nil, err
	}

	var entries []LogEntry
	for _, line := range splitLines(raw) {
		m := taskLogLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, LogEntry{Date: m[1], Time: m[2], TaskID: m[3], Level: m[4], Message: m[5]})
	}
	return entries, nil
}

// ModuleOutput concatenates the output of every task belonging to a leaf
// module, in task index order.
func (inst *Instance) ModuleOutput(moduleID string) (string, error) {
	inst.mu.Lock()
	m, ok := inst.idx[moduleID]
	inst.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("instance: unknown module %q", moduleID)
	}
	leaf, ok := m.(*node.LeafModuleNode)
	if !ok {
		return "", fmt.Errorf("instance: %q is a flow, not a leaf", moduleID)
	}

	var out string
	for _, t := range leaf.Tasks {
		s, err := inst.TaskOutput(t.ID)
		if err != nil {
			continue
		}
		out += s
	}
	return out, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
