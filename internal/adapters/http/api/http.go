// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/diva-metrics/diva/internal/adapters/repository"
	"github.com/diva-metrics/diva/internal/domain/model"
	"github.com/diva-metrics/diva/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeenAndRecord atomically checks and records an observation id.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord rolls back a recorded id after a failed enqueue.
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes an observation for async processing. Returns false
	// on backpressure.
	Enqueue(ctx context.Context, o model.Observation) bool

	// Read operations expose ranked group data.
	TopN(ctx context.Context, n int) ([]GroupEntry, error)
	Group(ctx context.Context, group string) (GroupEntry, error)

	// MaxGroupsLimit caps GET /groups?limit.
	MaxGroupsLimit() int
}

// GroupEntry mirrors the read shape returned by group queries.
type GroupEntry = types.GroupEntry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	observationsHandler *ObservationsHandler
	groupsHandler       *GroupsHandler
	computeHandler      *ComputeHandler
	explainHandler      *ExplainHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		observationsHandler: NewObservationsHandler(deps),
		groupsHandler:       NewGroupsHandler(deps, deps.MaxGroupsLimit()),
		computeHandler:      NewComputeHandler(),
		explainHandler:      NewExplainHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/observations", MetricsMiddleware(s.observationsHandler.HandlePostObservation, "observations"))
	mux.HandleFunc("/groups", MetricsMiddleware(s.groupsHandler.HandleListGroups, "groups"))
	mux.HandleFunc("/groups/", MetricsMiddleware(s.groupsHandler.HandleGetGroup, "group"))
	mux.HandleFunc("/compute", MetricsMiddleware(s.computeHandler.HandleCompute, "compute"))
	mux.HandleFunc("/explain", MetricsMiddleware(s.explainHandler.HandleExplain, "explain"))
}

// observationRequest mirrors the OpenAPI schema for POST /observations.
type observationRequest struct {
	ObservationID string   `json:"observation_id"`
	Group         string   `json:"group"`
	Category      string   `json:"category"`
	Value         float64  `json:"value"`
	Weight        *float64 `json:"weight,omitempty"`
	TS            string   `json:"ts"`
}

func (o observationRequest) validate() error {
	switch {
	case strings.TrimSpace(o.ObservationID) == "":
		return errors.New("missing observation_id")
	case strings.TrimSpace(o.Group) == "":
		return errors.New("missing group")
	case strings.TrimSpace(o.Category) == "":
		return errors.New("missing category")
	case strings.TrimSpace(o.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, o.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return errors.New("value must be finite")
	}
	if o.Weight != nil && (math.IsNaN(*o.Weight) || math.IsInf(*o.Weight, 0) || *o.Weight <= 0) {
		return errors.New("weight must be a finite positive number")
	}
	return nil
}

// toModel converts a validated request into the internal observation.
// An omitted weight defaults to 1.
func (o observationRequest) toModel() model.Observation {
	weight := 1.0
	if o.Weight != nil {
		weight = *o.Weight
	}
	ts, _ := time.Parse(time.RFC3339, o.TS)
	return model.Observation{
		ObservationID: o.ObservationID,
		Group:         o.Group,
		Category:      o.Category,
		Value:         o.Value,
		Weight:        weight,
		TS:            ts,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
