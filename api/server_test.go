package api

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokengine/wok/instance"
	"github.com/wokengine/wok/jobscheduler"
	"github.com/wokengine/wok/model"
	"github.com/wokengine/wok/portdata"
	"github.com/wokengine/wok/storage"
	"github.com/wokengine/wok/wconfig"
)

type noopLoader struct{}

func (noopLoader) Load(context.Context, string) (*model.Flow, error) { return nil, assert.AnError }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &wconfig.Config{WorkPath: dir, Defaults: wconfig.Defaults{Wsize: 10}}

	dataStore, err := portdata.NewFileStore(dir)
	require.NoError(t, err)
	taskStore, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	sched := jobscheduler.NewLocalScheduler(zerolog.Nop(), 2)
	require.NoError(t, sched.Start(context.Background()))

	inst := instance.New(cfg, noopLoader{}, dataStore, taskStore, sched, zerolog.Nop())
	return NewServer(inst, zerolog.Nop())
}

func TestServer_HealthReturnsOK(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_InitializeThenStateReflectsInstance(t *testing.T) {
	s := newTestServer(t)

	body := []byte(`{"name":"wf","modules":[{"name":"p","conf":{"exec":["true"]}}]}`)
	req := httptest.NewRequest("POST", "/initialize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	req = httptest.NewRequest("GET", "/state", nil)
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "READY")
}

func TestServer_ModuleStateUnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)

	body := []byte(`{"name":"wf","modules":[{"name":"p"}]}`)
	req := httptest.NewRequest("POST", "/initialize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	req = httptest.NewRequest("GET", "/module_state?id=wf.missing", nil)
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)
}

func TestServer_MetricsRouteIsMounted(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
