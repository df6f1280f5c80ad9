// Package api implements the engine's HTTP+JSON control surface: a bare
// *http.ServeMux, encoding/json bodies, and metrics.Handler() mounted
// alongside (see DESIGN.md for why this is plain HTTP rather than gRPC).
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokengine/wok/instance"
	"github.com/wokengine/wok/metrics"
	"github.com/wokengine/wok/model"
)

// Server exposes an Instance's control surface over HTTP.
type Server struct {
	inst *instance.Instance
	log  zerolog.Logger
	mux  *http.ServeMux
}

// NewServer registers every control-surface route.
func NewServer(inst *instance.Instance, log zerolog.Logger) *Server {
	s := &Server{inst: inst, log: log.With().Str("component", "api").Logger(), mux: http.NewServeMux()}

	s.mux.HandleFunc("/initialize", s.instrument(s.handleInitialize))
	s.mux.HandleFunc("/start", s.instrument(s.handleStart))
	s.mux.HandleFunc("/pause", s.instrument(s.handlePause))
	s.mux.HandleFunc("/cont", s.instrument(s.handleCont))
	s.mux.HandleFunc("/stop", s.instrument(s.handleStop))
	s.mux.HandleFunc("/wait", s.instrument(s.handleWait))
	s.mux.HandleFunc("/exit", s.instrument(s.handleExit))
	s.mux.HandleFunc("/state", s.instrument(s.handleState))
	s.mux.HandleFunc("/module_state", s.instrument(s.handleModuleState))
	s.mux.HandleFunc("/task_state", s.instrument(s.handleTaskState))
	s.mux.HandleFunc("/task_conf", s.instrument(s.handleTaskConf))
	s.mux.HandleFunc("/task_output", s.instrument(s.handleTaskOutput))
	s.mux.HandleFunc("/module_output", s.instrument(s.handleModuleOutput))
	s.mux.HandleFunc("/task_logs", s.instrument(s.handleTaskLogs))
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start serves the control surface on addr until the process exits.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("control surface listening")
	return srv.ListenAndServe()
}

func (s *Server) instrument(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.URL.Path)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var flow model.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.inst.Initialize(r.Context(), &flow); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type startRequest struct {
	Async bool `json:"async"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := s.inst.Start(r.Context(), req.Async); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.inst.Pause(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleCont(w http.ResponseWriter, r *http.Request) {
	if err := s.inst.Cont(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.inst.Stop(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	if err := s.inst.Wait(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	if err := s.inst.Exit(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type stateResponse struct {
	State string `json:"state"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{State: s.inst.State().String()})
}

func (s *Server) handleModuleState(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	st, err := s.inst.ModuleState(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st.String()})
}

func (s *Server) handleTaskState(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	st, err := s.inst.TaskState(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st.String()})
}

func (s *Server) handleTaskConf(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	conf, err := s.inst.TaskConf(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleTaskOutput(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	out, err := s.inst.TaskOutput(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleModuleOutput(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	out, err := s.inst.ModuleOutput(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	moduleID := r.URL.Query().Get("module_id")
	index := 0
	if v := r.URL.Query().Get("index"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			index = n
		}
	}
	entries, err := s.inst.TaskLogs(moduleID, index)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
