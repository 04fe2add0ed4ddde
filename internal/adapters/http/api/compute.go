// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diva-metrics/diva/pkg/diversity"
)

// computeRequest mirrors the OpenAPI schema for POST /compute. It exposes
// the full index computation over an ad-hoc batch without touching the
// service state.
type computeRequest struct {
	Rows             []computeRow `json:"rows"`
	Indices          []string     `json:"indices,omitempty"`
	Base             float64      `json:"base,omitempty"`
	NormalizeShannon bool         `json:"normalize_shannon,omitempty"`
	Diagnostics      bool         `json:"diagnostics,omitempty"`
}

type computeRow struct {
	Group    string   `json:"group"`
	Category string   `json:"category,omitempty"`
	Value    float64  `json:"value"`
	Weight   *float64 `json:"weight,omitempty"`
}

// computeResult is one per-group result row.
type computeResult struct {
	Group      string                              `json:"group"`
	Indices    map[diversity.Index]diversity.Value `json:"indices"`
	Total      *float64                            `json:"total,omitempty"`
	Categories *int                                `json:"categories,omitempty"`
}

// ComputeHandler handles stateless batch computation requests.
type ComputeHandler struct{}

// NewComputeHandler creates a new compute handler.
func NewComputeHandler() *ComputeHandler {
	return &ComputeHandler{}
}

// HandleCompute handles POST /compute requests.
func (h *ComputeHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("rows must not be empty")))
		return
	}
	for _, row := range req.Rows {
		if row.Group == "" {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, errors.New("every row needs a group")))
			return
		}
	}

	opts := make([]diversity.Option, 0, 4)
	if len(req.Indices) > 0 {
		indices := make([]diversity.Index, 0, len(req.Indices))
		for _, name := range req.Indices {
			indices = append(indices, diversity.Index(name))
		}
		opts = append(opts, diversity.WithIndices(indices...))
	}
	if req.Base != 0 {
		opts = append(opts, diversity.WithBase(req.Base))
	}
	if req.NormalizeShannon {
		opts = append(opts, diversity.WithNormalizedShannon())
	}
	if req.Diagnostics {
		opts = append(opts, diversity.WithDiagnostics())
	}

	computer := diversity.NewWeightedComputer(
		func(row computeRow) string { return row.Group },
		func(row computeRow) (float64, error) { return row.Value, nil },
		func(row computeRow) (float64, error) {
			if row.Weight == nil {
				return 1, nil
			}
			return *row.Weight, nil
		},
		opts...,
	)

	results, err := computer.Compute(r.Context(), req.Rows)
	if err != nil {
		if isInvalidArgument(err) {
			writeError(w, http.StatusBadRequest, "invalid_argument", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	out := make([]computeResult, len(results))
	for i, res := range results {
		out[i] = computeResult{Group: res.Group, Indices: res.Values}
		if req.Diagnostics {
			total := res.Total
			categories := res.Categories
			out[i].Total = &total
			out[i].Categories = &categories
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// isInvalidArgument reports whether the computation rejected the request
// itself rather than failing internally.
func isInvalidArgument(err error) bool {
	return errors.Is(err, diversity.ErrNoIndices) ||
		errors.Is(err, diversity.ErrUnknownIndex) ||
		errors.Is(err, diversity.ErrInvalidBase) ||
		errors.Is(err, diversity.ErrInvalidValue) ||
		errors.Is(err, diversity.ErrInvalidWeight)
}
