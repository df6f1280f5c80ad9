package node

import (
	"fmt"

	"github.com/wokengine/wok/portdata"
)

// TaskNode is one partition of a leaf module's work.
type TaskNode struct {
	Index int
	ID    string
	State State

	// InPortData holds one slice handle per module input port, same
	// order as the module's InPorts.
	InPortData []portdata.Data

	// OutPortData holds one partition handle per module output port,
	// same order as the module's OutPorts.
	OutPortData []portdata.Data

	// JobID is assigned once the task is submitted to the job scheduler.
	JobID string

	// Conf is not filled in by the partitioner and stays nil; the
	// persisted task record takes its configuration from Leaf.Conf()
	// (module Conf merged with the instance's root configuration).
	Conf map[string]any

	Leaf *LeafModuleNode
}

// TaskID formats the conventional "<module.id>-<index:04d>" task identifier.
func TaskID(moduleID string, index int) string {
	return fmt.Sprintf("%s-%04d", moduleID, index)
}

// TasksStatus reports whether any of the leaf's tasks failed and
// whether every task has reached FINISHED.
func (l *LeafModuleNode) TasksStatus() (failed, allFinished bool) {
	allFinished = true
	for _, t := range l.Tasks {
		if t.State == Failed {
			failed = true
		}
		if t.State != Finished {
			allFinished = false
		}
	}
	return failed, allFinished
}
