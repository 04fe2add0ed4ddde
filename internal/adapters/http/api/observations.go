// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/diva-metrics/diva/internal/domain/model"
)

// ObservationDependencies defines the interface for ingestion dependencies.
type ObservationDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Enqueue(ctx context.Context, o model.Observation) bool
}

// ObservationsHandler handles observation ingestion requests.
type ObservationsHandler struct {
	deps ObservationDependencies
}

// NewObservationsHandler creates a new observations handler.
func NewObservationsHandler(deps ObservationDependencies) *ObservationsHandler {
	return &ObservationsHandler{deps: deps}
}

// HandlePostObservation handles POST /observations requests.
func (h *ObservationsHandler) HandlePostObservation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_observation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check: mark as seen first.
	if h.deps.SeenAndRecord(r.Context(), req.ObservationID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), req.toModel()); !ok {
		// Roll back the "seen" status since the enqueue failed.
		h.deps.Unrecord(r.Context(), req.ObservationID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
