// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// GroupDependencies defines the interface for group read operations.
type GroupDependencies interface {
	TopN(ctx context.Context, n int) ([]GroupEntry, error)
	Group(ctx context.Context, group string) (GroupEntry, error)
}

// GroupsHandler handles group listing and lookup requests.
type GroupsHandler struct {
	deps     GroupDependencies
	maxLimit int
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies, maxLimit int) *GroupsHandler {
	return &GroupsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleListGroups handles GET /groups?limit=N requests.
func (h *GroupsHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_groups"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetGroup handles GET /groups/{group} requests.
func (h *GroupsHandler) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_group"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	group := strings.TrimPrefix(r.URL.Path, "/groups/")
	if group == "" || strings.Contains(group, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Group(r.Context(), group)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
