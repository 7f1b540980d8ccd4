// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	service "rentradar/internal/app"
)

// ListingsDependencies defines the interface for listing queries.
type ListingsDependencies interface {
	GetListings(ctx context.Context, region string, minPrice, maxPrice, maxReturn int) (Result, error)
}

// ListingsHandler handles listing requests.
type ListingsHandler struct {
	deps ListingsDependencies
}

// NewListingsHandler creates a new listings handler.
func NewListingsHandler(deps ListingsDependencies) *ListingsHandler {
	return &ListingsHandler{deps: deps}
}

// HandleGetListings handles
// GET /listings?region=sf&min_price=N&max_price=N&limit=N requests. Price
// bounds and limit are optional; the region's defaults and the configured
// maximum apply when absent.
func (h *ListingsHandler) HandleGetListings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_listings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	region := r.URL.Query().Get("region")
	if region == "" {
		region = "sf"
	}
	minPrice, err := intParam(r, "min_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	maxPrice, err := intParam(r, "max_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	result, err := h.deps.GetListings(r.Context(), region, minPrice, maxPrice, limit)
	switch {
	case errors.Is(err, service.ErrUnknownRegion):
		writeError(w, http.StatusNotFound, "unknown_region", err)
		return
	case errors.Is(err, service.ErrInvalidPriceRange):
		writeError(w, http.StatusBadRequest, "invalid_price_range", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intParam reads an optional non-negative integer query parameter.
// Absent values read as zero.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrBadRequest
	}
	return n, nil
}
