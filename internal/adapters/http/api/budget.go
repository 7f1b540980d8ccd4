// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// BudgetDependencies defines the interface for budget reporting.
type BudgetDependencies interface {
	Budget(ctx context.Context) (BudgetInfo, error)
}

// BudgetHandler handles budget requests.
type BudgetHandler struct {
	deps BudgetDependencies
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(deps BudgetDependencies) *BudgetHandler {
	return &BudgetHandler{deps: deps}
}

// HandleGetBudget handles GET /budget requests.
func (h *BudgetHandler) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_budget"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	info, err := h.deps.Budget(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RegionsDependencies defines the interface for region listing.
type RegionsDependencies interface {
	Regions() []string
}

// RegionsHandler handles region listing requests.
type RegionsHandler struct {
	deps RegionsDependencies
}

// NewRegionsHandler creates a new regions handler.
func NewRegionsHandler(deps RegionsDependencies) *RegionsHandler {
	return &RegionsHandler{deps: deps}
}

// HandleGetRegions handles GET /regions requests.
func (h *RegionsHandler) HandleGetRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"regions": h.deps.Regions()})
}
