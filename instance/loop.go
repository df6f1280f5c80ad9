package instance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wokengine/wok/jobscheduler"
	"github.com/wokengine/wok/metrics"
	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/partition"
	"github.com/wokengine/wok/state"
	"github.com/wokengine/wok/storage"
)

const waitTimeoutSeconds = 5

// Start begins the run loop. If async is false it blocks until the loop
// exits; otherwise it returns immediately and the loop runs on its own
// goroutine (use Wait to block later).
func (inst *Instance) Start(ctx context.Context, async bool) error {
	inst.mu.Lock()
	if inst.state != Ready {
		inst.mu.Unlock()
		return fmt.Errorf("instance: cannot start from state %s", inst.state)
	}
	inst.state = Running
	inst.stopped = false
	inst.paused = false
	inst.mu.Unlock()

	if async {
		go inst.run(ctx)
		return nil
	}
	inst.run(ctx)
	return nil
}

func (inst *Instance) Pause(context.Context) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state != Running {
		return fmt.Errorf("instance: cannot pause from state %s", inst.state)
	}
	inst.paused = true
	inst.state = Paused
	return nil
}

func (inst *Instance) Cont(context.Context) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state != Paused {
		return fmt.Errorf("instance: cannot continue from state %s", inst.state)
	}
	inst.paused = false
	inst.state = Running
	return nil
}

// Stop requests the run loop to exit at the next iteration boundary; it
// does not forcibly kill in-flight tasks.
func (inst *Instance) Stop(context.Context) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.stopped = true
	inst.paused = false
	return nil
}

// Wait blocks until the run loop has exited.
func (inst *Instance) Wait(ctx context.Context) error {
	inst.mu.Lock()
	done := inst.runDone
	inst.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exit releases the instance's resources. Start must not be called
// again without a fresh Initialize.
func (inst *Instance) Exit(ctx context.Context) error {
	if err := inst.scheduler.Exit(ctx); err != nil {
		return err
	}
	return inst.taskStore.Close()
}

func (inst *Instance) run(ctx context.Context) {
	defer close(inst.runDone)

	for {
		inst.mu.Lock()
		if inst.stopped {
			inst.finalizeLocked()
			inst.mu.Unlock()
			return
		}
		if inst.paused {
			inst.mu.Unlock()
			time.Sleep(50 * time.Millisecond)
			continue
		}

		metrics.SchedulerIterations.Inc()

		batch, requireReschedule, err := inst.planLocked(ctx)
		if err != nil {
			inst.state = Exception
			inst.mu.Unlock()
			inst.log.Error().Err(err).Msg("engine exception during planning")
			return
		}

		if len(batch) == 0 && !requireReschedule && !anyLeafWaiting(inst.root) {
			inst.finalizeLocked()
			inst.mu.Unlock()
			return
		}

		if len(batch) > 0 {
			if err := inst.submitLocked(ctx, batch); err != nil {
				inst.state = Exception
				inst.mu.Unlock()
				inst.log.Error().Err(err).Msg("engine exception during submit")
				return
			}
		}
		inst.mu.Unlock()

		results, err := inst.scheduler.Wait(ctx, waitTimeoutSeconds)
		if err != nil {
			inst.mu.Lock()
			inst.state = Exception
			inst.mu.Unlock()
			inst.log.Error().Err(err).Msg("job scheduler exception during wait")
			return
		}

		inst.mu.Lock()
		stop := inst.reapLocked(results)
		if stop {
			inst.finalizeLocked()
			inst.mu.Unlock()
			return
		}
		inst.mu.Unlock()
	}
}

// planLocked is step 1: a recursive pre-order walk partitioning
// every leaf that is READY with an empty waiting set.
func (inst *Instance) planLocked(ctx context.Context) ([]*node.TaskNode, bool, error) {
	var batch []*node.TaskNode
	requireReschedule := false

	var walk func(m node.Module) error
	walk = func(m node.Module) error {
		leaf, isLeaf := m.(*node.LeafModuleNode)
		if !isLeaf {
			f := m.(*node.FlowNode)
			for _, child := range f.Modules {
				if err := walk(child); err != nil {
					return err
				}
			}
			state.RecomputeFlow(f)
			return nil
		}

		if leaf.State() != node.Ready || len(leaf.Waiting()) > 0 {
			return nil
		}

		timer := metrics.NewTimer()
		tasks, err := partition.Partition(ctx, inst.log, leaf, inst.effectiveInstanceMaxpar(), inst.cfg.Defaults.Wsize)
		timer.ObserveDuration(metrics.PartitioningDuration)
		if err != nil {
			return fmt.Errorf("instance: partition %s: %w", leaf.ID(), err)
		}

		if len(tasks) == 0 {
			leaf.SetState(node.Finished)
			onLeafFinished(leaf)
			state.PropagateUp(leaf)
			requireReschedule = true
			return nil
		}

		leaf.Tasks = append(leaf.Tasks, tasks...)
		leaf.SetState(node.Waiting)
		batch = append(batch, tasks...)
		return nil
	}

	if err := walk(inst.root); err != nil {
		return nil, false, err
	}
	return batch, requireReschedule, nil
}

func (inst *Instance) effectiveInstanceMaxpar() int {
	return inst.cfg.Defaults.Maxpar
}

// submitLocked is step 2: persist each task and hand it to the job
// scheduler.
func (inst *Instance) submitLocked(ctx context.Context, batch []*node.TaskNode) error {
	for _, t := range batch {
		if err := inst.taskStore.SaveTask(toRecord(t)); err != nil {
			return fmt.Errorf("instance: save task %s: %w", t.ID, err)
		}

		job := toJob(t)
		job.OutputPath = inst.outputPath(t.ID)
		if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
			return fmt.Errorf("instance: create output dir for %s: %w", t.ID, err)
		}

		jobID, err := inst.scheduler.Submit(ctx, job)
		if err != nil {
			return fmt.Errorf("instance: submit task %s: %w", t.ID, err)
		}
		t.JobID = jobID
		inst.pendingByJob[jobID] = t
		metrics.TasksSubmitted.Inc()
	}
	return nil
}

// reapLocked is steps 4-5: apply each result to its task/leaf and
// decide whether the loop must stop.
func (inst *Instance) reapLocked(results []jobscheduler.Result) (stop bool) {
	touchedLeaves := map[string]*node.LeafModuleNode{}

	for _, r := range results {
		t, ok := inst.pendingByJob[r.JobID]
		if !ok {
			continue
		}
		delete(inst.pendingByJob, r.JobID)

		if r.ExitCode == jobscheduler.ExitSuccess {
			t.State = node.Finished
			metrics.TasksReaped.WithLabelValues("success").Inc()
		} else {
			t.State = node.Failed
			inst.anyFailed = true
			metrics.TasksReaped.WithLabelValues("failure").Inc()
		}

		if inst.cfg.AutoRemove.Task {
			_ = inst.taskStore.DeleteTask(t.ID)
		} else {
			_ = inst.taskStore.SaveTask(toRecord(t))
		}

		touchedLeaves[t.Leaf.ID()] = t.Leaf
	}

	for _, leaf := range touchedLeaves {
		failed, allFinished := leaf.TasksStatus()
		switch {
		case failed:
			leaf.SetState(node.Failed)
		case allFinished:
			leaf.SetState(node.Finished)
			onLeafFinished(leaf)
		}
		state.PropagateUp(leaf)
	}

	if inst.anyFailed && inst.cfg.StopOnErrors {
		return true
	}
	return false
}

func (inst *Instance) finalizeLocked() {
	if anyLeafWaiting(inst.root) {
		inst.log.Warn().Msg("flow finished before completing all modules")
	}

	switch {
	case inst.state == Exception:
		// leave as-is
	case inst.anyFailed || inst.root.State() == node.Failed:
		inst.state = Failed
	default:
		inst.state = Finished
	}
}

func onLeafFinished(leaf *node.LeafModuleNode) {
	state.OnFinished(leaf)
}

func anyLeafWaiting(m node.Module) bool {
	if leaf, ok := m.(*node.LeafModuleNode); ok {
		return leaf.State() == node.Waiting
	}
	if f, ok := m.(*node.FlowNode); ok {
		for _, child := range f.Modules {
			if anyLeafWaiting(child) {
				return true
			}
		}
	}
	return false
}

func toRecord(t *node.TaskNode) *storage.TaskRecord {
	inPorts := make([]string, len(t.InPortData))
	for i, d := range t.InPortData {
		inPorts[i] = d.ID()
	}
	outPorts := make([]string, len(t.OutPortData))
	for i, d := range t.OutPortData {
		outPorts[i] = d.ID()
	}
	return &storage.TaskRecord{
		ID:       t.ID,
		ModuleID: t.Leaf.ID(),
		Index:    t.Index,
		State:    t.State.String(),
		Conf:     t.Leaf.Conf(),
		InPorts:  inPorts,
		OutPorts: outPorts,
		JobID:    t.JobID,
	}
}

// toJob builds the job scheduler's view of a task. The per-task worker
// runtime is out of scope here; conf["exec"] lets a workflow definition
// name its own worker command, and a no-op fallback keeps the local
// backend runnable against flows that don't set one (e.g. in tests).
func toJob(t *node.TaskNode) jobscheduler.Task {
	return jobscheduler.Task{
		ID:      t.ID,
		Command: commandFromConf(t.Leaf.Conf()),
		Env:     map[string]string{"WOK_TASK_ID": t.ID},
	}
}

func commandFromConf(conf map[string]any) []string {
	if raw, ok := conf["exec"]; ok {
		if list, ok := raw.([]any); ok {
			cmd := make([]string, 0, len(list))
			for _, v := range list {
				if s, ok := v.(string); ok {
					cmd = append(cmd, s)
				}
			}
			if len(cmd) > 0 {
				return cmd
			}
		}
	}
	return []string{"true"}
}
