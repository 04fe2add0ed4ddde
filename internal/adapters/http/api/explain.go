// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/diva-metrics/diva/pkg/diversity"
)

// ExplainHandler serves the static index explanation table.
type ExplainHandler struct{}

// NewExplainHandler creates a new explain handler.
func NewExplainHandler() *ExplainHandler {
	return &ExplainHandler{}
}

// HandleExplain handles GET /explain requests.
func (h *ExplainHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, diversity.Explain())
}
