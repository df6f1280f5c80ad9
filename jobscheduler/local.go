package jobscheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wokengine/wok/wlog"
)

// LocalScheduler runs each task as a child OS process from a bounded
// worker pool: a stop channel plus a mutex-guarded state map over
// background goroutines, the same shape a local backend takes
// alongside a DRMAA one under the same scheduler contract.
type LocalScheduler struct {
	log zerolog.Logger

	sem chan struct{}

	mu      sync.Mutex
	pending map[string]*exec.Cmd

	results chan Result
	stopCh  chan struct{}
}

// NewLocalScheduler returns a backend that runs at most concurrency
// tasks at once.
func NewLocalScheduler(log zerolog.Logger, concurrency int) *LocalScheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &LocalScheduler{
		log:     log.With().Str("component", "jobscheduler.local").Logger(),
		sem:     make(chan struct{}, concurrency),
		pending: map[string]*exec.Cmd{},
		results: make(chan Result, concurrency*4),
		stopCh:  make(chan struct{}),
	}
}

func (s *LocalScheduler) Start(context.Context) error {
	s.log.Info().Msg("local job scheduler started")
	return nil
}

func (s *LocalScheduler) Clean(context.Context) error { return nil }

func (s *LocalScheduler) Submit(ctx context.Context, task Task) (string, error) {
	if len(task.Command) == 0 {
		return "", fmt.Errorf("jobscheduler: task %s has no command", task.ID)
	}
	jobID := uuid.NewString()

	s.sem <- struct{}{}
	go s.run(ctx, jobID, task)

	return jobID, nil
}

func (s *LocalScheduler) run(ctx context.Context, jobID string, task Task) {
	defer func() { <-s.sem }()

	tlog := wlog.WithTask(task.ID)
	tlog.Info().Str("job_id", jobID).Msg("task started")

	cmd := exec.CommandContext(ctx, task.Command[0], task.Command[1:]...)
	cmd.Dir = task.WorkDir
	for k, v := range task.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var out *os.File
	if task.OutputPath != "" {
		f, err := os.OpenFile(task.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.results <- Result{
				TaskID:      task.ID,
				JobID:       jobID,
				ExitCode:    ExitExceptionWaiting,
				ExitMessage: err.Error(),
				Exception:   err.Error(),
			}
			return
		}
		out = f
		defer out.Close()
		cmd.Stdout = out
		cmd.Stderr = out
	}

	s.mu.Lock()
	s.pending[jobID] = cmd
	s.mu.Unlock()

	err := cmd.Run()

	s.mu.Lock()
	delete(s.pending, jobID)
	s.mu.Unlock()

	result := Result{TaskID: task.ID, JobID: jobID, OutputPath: task.OutputPath}
	if err == nil {
		result.ExitCode = ExitSuccess
		tlog.Info().Msg("task finished")
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		result.ExitMessage = err.Error()
		tlog.Error().Int("exit_code", result.ExitCode).Msg("task exited non-zero")
	} else {
		result.ExitCode = ExitTaskException
		result.ExitMessage = err.Error()
		result.Exception = err.Error()
		tlog.Error().Err(err).Msg("task scheduler exception")
	}

	select {
	case s.results <- result:
	case <-s.stopCh:
	}
}

func (s *LocalScheduler) Wait(ctx context.Context, timeout int) ([]Result, error) {
	var results []Result

	deadline := time.After(time.Duration(timeout) * time.Second)
	select {
	case r := <-s.results:
		results = append(results, r)
	case <-deadline:
		return results, nil
	case <-ctx.Done():
		return results, ctx.Err()
	}

	for {
		select {
		case r := <-s.results:
			results = append(results, r)
		default:
			return results, nil
		}
	}
}

func (s *LocalScheduler) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cmd := range s.pending {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		delete(s.pending, id)
	}
	return nil
}

func (s *LocalScheduler) Exit(context.Context) error {
	close(s.stopCh)
	return nil
}
