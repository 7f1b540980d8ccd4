// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "rentradar/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// GetListings serves the scored listing batch for a region. maxReturn
	// caps the batch size; zero means the configured maximum.
	GetListings(ctx context.Context, region string, minPrice, maxPrice, maxReturn int) (Result, error)

	// Budget reports the monthly API call budget state.
	Budget(ctx context.Context) (BudgetInfo, error)

	// Regions lists the known region names.
	Regions() []string
}

// Result mirrors the read shape returned by listing queries.
type Result = service.Result

// BudgetInfo mirrors the budget report shape.
type BudgetInfo = service.BudgetInfo

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	listingsHandler *ListingsHandler
	budgetHandler   *BudgetHandler
	regionsHandler  *RegionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		listingsHandler: NewListingsHandler(deps),
		budgetHandler:   NewBudgetHandler(deps),
		regionsHandler:  NewRegionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/listings", MetricsMiddleware(s.listingsHandler.HandleGetListings, "listings"))
	mux.HandleFunc("/budget", MetricsMiddleware(s.budgetHandler.HandleGetBudget, "budget"))
	mux.HandleFunc("/regions", MetricsMiddleware(s.regionsHandler.HandleGetRegions, "regions"))
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
