// Package instance is the scheduler loop and Instance aggregate: the
// single run goroutine that plans, submits, waits for and reaps tasks,
// driving the node tree's state machine across batches.
package instance

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wokengine/wok/graph"
	"github.com/wokengine/wok/jobscheduler"
	"github.com/wokengine/wok/model"
	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portdata"
	"github.com/wokengine/wok/storage"
	"github.com/wokengine/wok/wconfig"
)

// State is the instance's own lifecycle state. It shares READY, RUNNING,
// PAUSED, FINISHED and FAILED with node.State but has no WAITING;
// UNINITIALIZED precedes any run, and EXCEPTION is reserved for engine
// bugs/storage errors rather than task failures.
type State int

const (
	Uninitialized State = iota
	Ready
	Running
	Paused
	Finished
	Failed
	Exception
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	case Finished:
		return "FINISHED"
	case Failed:
		return "FAILED"
	case Exception:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// Instance owns the node tree, the port data and task stores, and the
// job scheduler backend for a single run of a workflow.
//
// Concurrency model: the run loop executes on a single goroutine.
// mu protects every field the control surface (Start/Pause/Stop/Wait/
// State/...) touches; the run loop releases mu around the blocking
// jobscheduler.Wait call so control operations stay responsive.
type Instance struct {
	cfg       *wconfig.Config
	loader    model.Loader
	dataStore portdata.Store
	taskStore storage.Store
	scheduler jobscheduler.Scheduler
	log       zerolog.Logger

	mu    sync.Mutex
	state State

	root *node.FlowNode
	idx  map[string]node.Module

	paused  bool
	stopped bool

	pendingByJob map[string]*node.TaskNode
	anyFailed    bool

	runDone chan struct{}
}

// New constructs an Instance. Initialize must be called before Start.
func New(cfg *wconfig.Config, loader model.Loader, dataStore portdata.Store, taskStore storage.Store, scheduler jobscheduler.Scheduler, log zerolog.Logger) *Instance {
	return &Instance{
		cfg:          cfg,
		loader:       loader,
		dataStore:    dataStore,
		taskStore:    taskStore,
		scheduler:    scheduler,
		log:          log.With().Str("component", "instance").Logger(),
		state:        Uninitialized,
		pendingByJob: map[string]*node.TaskNode{},
	}
}

// Initialize builds and connects the node tree from def.
// Configuration/build errors are returned synchronously and the instance
// stays UNINITIALIZED.
func (inst *Instance) Initialize(ctx context.Context, def *model.Flow) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if err := inst.buildAndPrepare(ctx, def); err != nil {
		return err
	}

	inst.state = Ready
	inst.runDone = make(chan struct{})
	return nil
}

func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// ModuleState returns a module's node.State by dotted id.
func (inst *Instance) ModuleState(id string) (node.State, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	m, ok := inst.idx[id]
	if !ok {
		return 0, fmt.Errorf("instance: unknown module %q", id)
	}
	return m.State(), nil
}

// TaskState, TaskConf, TaskOutput, ModuleOutput and TaskLogs back the
// inspection half of the control surface. TaskState and TaskConf read
// through the task store rather than the live node tree, so they work
// for tasks from a prior run too; TaskOutput and TaskLogs read the
// task's output file, and ModuleOutput walks the live node tree.
func (inst *Instance) TaskState(id string) (node.State, error) {
	rec, err := inst.taskStore.GetTask(id)
	if err != nil {
		return 0, err
	}
	return parseTaskState(rec.State), nil
}

func (inst *Instance) TaskConf(id string) (map[string]any, error) {
	rec, err := inst.taskStore.GetTask(id)
	if err != nil {
		return nil, err
	}
	return rec.Conf, nil
}

func parseTaskState(s string) node.State {
	switch s {
	case "WAITING":
		return node.Waiting
	case "RUNNING":
		return node.Running
	case "FINISHED":
		return node.Finished
	case "FAILED":
		return node.Failed
	default:
		return node.Ready
	}
}

func (inst *Instance) buildAndPrepare(ctx context.Context, def *model.Flow) error {
	root, idx, err := graph.Build(ctx, def, inst.loader)
	if err != nil {
		return err
	}

	if err := connectAndAnalyze(ctx, inst.dataStore, root, idx); err != nil {
		return err
	}

	foldConf(root, inst.cfg.Conf)
	applyStartModule(root, idx, inst.cfg.StartModule)

	inst.root = root
	inst.idx = idx
	return nil
}

// foldConf merges the instance's root configuration into every module's
// Conf, then re-applies the module's own conf on top so a module's own
// settings always win over the instance-wide defaults.
func foldConf(m node.Module, rootConf map[string]any) {
	m.SetConf(wconfig.Merge(rootConf, m.Conf()))
	if f, ok := m.(*node.FlowNode); ok {
		for _, child := range f.Modules {
			foldConf(child, rootConf)
		}
	}
}
