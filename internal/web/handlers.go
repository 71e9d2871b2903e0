package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/mongoetl/internal/core"
	"github.com/JonMunkholm/mongoetl/internal/history"
)

// maxListLimit caps the limit query parameter of GET /api/runs.
const maxListLimit = 500

type healthResponse struct {
	Status  string                `json:"status"`
	Source  string                `json:"source"`
	Dataset string                `json:"dataset"`
	Error   string                `json:"error,omitempty"`
	Code    string                `json:"code,omitempty"`
	Limiter core.RunLimiterStatus `json:"limiter"`
}

// handleHealth pings the source deployment.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		Source:  s.service.SourceName(),
		Limiter: s.service.Limiter().Status(),
		Dataset: s.service.DatasetKey(),
	}
	status := http.StatusOK
	if err := s.service.CheckConnection(ctx); err != nil {
		msg := core.MapError(err)
		resp.Status = "unavailable"
		resp.Error = msg.Message
		resp.Code = msg.Code
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type datasetResponse struct {
	core.DatasetDefinition
	Active bool `json:"active"`
}

// handleListDatasets returns every registered dataset and its operations.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	out := make([]datasetResponse, len(defs))
	for i, def := range defs {
		out[i] = datasetResponse{
			DatasetDefinition: def,
			Active:            def.Key == s.service.DatasetKey(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.service.Recorder().ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run with its steps.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Recorder().GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleTriggerRun executes a full run and returns it.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(runContext(r), core.TriggerHTTP)
	s.respondRun(w, r, run, err)
}

// handleTriggerStep executes one step as its own run.
func (s *Server) handleTriggerStep(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseStep(chi.URLParam(r, "stepID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	run, err := s.service.RunStep(runContext(r), id)
	s.respondRun(w, r, run, err)
}

func (s *Server) respondRun(w http.ResponseWriter, r *http.Request, run core.Run, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, run)
	case run.ID == "":
		// Rejected before starting
		respondError(w, r, err, statusFor(err))
	default:
		respondRunError(w, r, err, run)
	}
}

// runContext detaches a run from the client connection; the pipeline
// timeout still bounds it.
func runContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
