package instance

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokengine/wok/jobscheduler"
	"github.com/wokengine/wok/model"
	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/portdata"
	"github.com/wokengine/wok/storage"
	"github.com/wokengine/wok/wconfig"
)

type noopLoader struct{}

func (noopLoader) Load(context.Context, string) (*model.Flow, error) {
	return nil, assert.AnError
}

func newTestInstance(t *testing.T, cfg *wconfig.Config) *Instance {
	t.Helper()
	dir := t.TempDir()
	cfg.WorkPath = dir

	dataStore, err := portdata.NewFileStore(dir)
	require.NoError(t, err)
	taskStore, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	sched := jobscheduler.NewLocalScheduler(zerolog.Nop(), 4)
	require.NoError(t, sched.Start(context.Background()))

	return New(cfg, noopLoader{}, dataStore, taskStore, sched, zerolog.Nop())
}

func waitForInstance(t *testing.T, inst *Instance) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, inst.Wait(ctx))
}

// TestInstance_EmptyInputLeafFinishesWithoutSubmitting covers S5: a leaf
// whose sole input port has size 0 is partitioned into zero tasks and
// transitions straight from READY to FINISHED.
func TestInstance_EmptyInputLeafFinishesWithoutSubmitting(t *testing.T) {
	cfg := &wconfig.Config{StopOnErrors: true, Defaults: wconfig.Defaults{Wsize: 10}}
	inst := newTestInstance(t, cfg)

	def := &model.Flow{
		Name: "wf",
		Modules: []*model.Module{
			{
				Name:     "source",
				OutPorts: []*model.Port{{Name: "out"}},
			},
			{
				Name:    "consumer",
				InPorts: []*model.Port{{Name: "in", Link: []string{"source.out"}}},
			},
		},
	}

	require.NoError(t, inst.Initialize(context.Background(), def))
	require.NoError(t, inst.Start(context.Background(), false))
	waitForInstance(t, inst)

	consumerState, err := inst.ModuleState("wf.consumer")
	require.NoError(t, err)
	assert.Equal(t, node.Finished, consumerState)

	consumer := inst.idx["wf.consumer"].(*node.LeafModuleNode)
	assert.Empty(t, consumer.Tasks)

	sourceState, err := inst.ModuleState("wf.source")
	require.NoError(t, err)
	assert.Equal(t, node.Finished, sourceState, "a module with no input ports always gets exactly one task")
}

// TestInstance_TaskFailureStopsOnErrors covers S6: a failing task marks
// its leaf FAILED and, with stop_on_errors set, stops the instance
// after the failure is reaped.
func TestInstance_TaskFailureStopsOnErrors(t *testing.T) {
	cfg := &wconfig.Config{StopOnErrors: true, Defaults: wconfig.Defaults{Wsize: 10}}
	inst := newTestInstance(t, cfg)

	def := &model.Flow{
		Name: "wf",
		Modules: []*model.Module{
			{
				Name: "p",
				Conf: map[string]any{"exec": []any{"false"}},
			},
		},
	}

	require.NoError(t, inst.Initialize(context.Background(), def))
	require.NoError(t, inst.Start(context.Background(), false))
	waitForInstance(t, inst)

	assert.Equal(t, Failed, inst.State())

	pState, err := inst.ModuleState("wf.p")
	require.NoError(t, err)
	assert.Equal(t, node.Failed, pState)
}

// TestInstance_SuccessfulTaskReachesFinished is the successful-path
// counterpart: a leaf with no input ports runs its single task to
// completion and the instance reaches FINISHED.
func TestInstance_SuccessfulTaskReachesFinished(t *testing.T) {
	cfg := &wconfig.Config{Defaults: wconfig.Defaults{Wsize: 10}}
	inst := newTestInstance(t, cfg)

	def := &model.Flow{
		Name: "wf",
		Modules: []*model.Module{
			{
				Name: "p",
				Conf: map[string]any{"exec": []any{"true"}},
			},
		},
	}

	require.NoError(t, inst.Initialize(context.Background(), def))
	require.NoError(t, inst.Start(context.Background(), false))
	waitForInstance(t, inst)

	assert.Equal(t, Finished, inst.State())

	pState, err := inst.ModuleState("wf.p")
	require.NoError(t, err)
	assert.Equal(t, node.Finished, pState)
}
