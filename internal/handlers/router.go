package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/config"
	"github.com/MLeehwa/lhswms/internal/database"
	"github.com/MLeehwa/lhswms/internal/inventory"
	"github.com/MLeehwa/lhswms/internal/middleware"
	"github.com/MLeehwa/lhswms/internal/recognize"
	"github.com/MLeehwa/lhswms/internal/reconcile"
	"github.com/MLeehwa/lhswms/internal/store"
	"github.com/MLeehwa/lhswms/internal/websocket"
)

// Router wraps the mux router and the service layer
type Router struct {
	*mux.Router
	cfg       *config.Config
	db        *database.DB
	store     *store.Store
	registry  *reconcile.Registry
	inventory *inventory.Service
	engine    recognize.Engine
	extractor *barcode.Extractor
	hub       *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(
	cfg *config.Config,
	db *database.DB,
	st *store.Store,
	registry *reconcile.Registry,
	inv *inventory.Service,
	engine recognize.Engine,
	extractor *barcode.Extractor,
	hub *websocket.Hub,
) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		cfg:       cfg,
		db:        db,
		store:     st,
		registry:  registry,
		inventory: inv,
		engine:    engine,
		extractor: extractor,
		hub:       hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/api/status", r.getStatus).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// Live scan feed
	r.HandleFunc("/ws", r.serveWs).Methods("GET")

	// Session routes (protected)
	sessions := r.PathPrefix("/api/sessions").Subrouter()
	sessions.Use(middleware.Auth(cfg.JWTSecret))
	sessions.HandleFunc("", r.createSession).Methods("POST")
	sessions.HandleFunc("/{id}", r.getSession).Methods("GET")
	sessions.HandleFunc("/{id}", r.closeSession).Methods("DELETE")
	sessions.HandleFunc("/{id}/refresh", r.refreshSession).Methods("POST")
	sessions.HandleFunc("/{id}/clear", r.clearSession).Methods("POST")
	sessions.HandleFunc("/{id}/upload", r.uploadSession).Methods("POST")
	sessions.HandleFunc("/{id}/scan", r.scanSession).Methods("POST")
	sessions.HandleFunc("/{id}/candidates", r.sessionCandidates).Methods("GET")
	sessions.HandleFunc("/{id}/corrections", r.applyCorrection).Methods("POST")
	sessions.HandleFunc("/{id}/recheck.pdf", r.recheckPDF).Methods("GET")

	// Manifest capture (protected)
	manifest := r.PathPrefix("/api/manifest").Subrouter()
	manifest.Use(middleware.Auth(cfg.JWTSecret))
	manifest.HandleFunc("/replace", r.replaceManifest).Methods("POST")

	// Inventory lifecycle (protected)
	inventoryRoutes := r.PathPrefix("/api/inventory").Subrouter()
	inventoryRoutes.Use(middleware.Auth(cfg.JWTSecret))
	inventoryRoutes.HandleFunc("/receive", r.receiveInventory).Methods("POST")
	inventoryRoutes.HandleFunc("/dispose", r.disposeInventory).Methods("POST")
	inventoryRoutes.HandleFunc("/report", r.inventoryReport).Methods("GET")
	inventoryRoutes.HandleFunc("/report.csv", r.inventoryReportCSV).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"server": "local",
	})
}

// getStatus returns the current status
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "running",
		"engine": r.engine.Name(),
	})
}

// serveWs upgrades the connection and subscribes it to the scan feed
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
