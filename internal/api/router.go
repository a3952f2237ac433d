// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/staymatch/backend/internal/api/handlers"
	"github.com/staymatch/backend/internal/api/middleware"
	"github.com/staymatch/backend/internal/booking"
	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/normalize"
	"github.com/staymatch/backend/internal/oracle"
	"github.com/staymatch/backend/internal/scoring"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/websocket"
)

// Services are the dependencies the handlers close over.
type Services struct {
	DB         *storage.DB
	Hub        *websocket.Hub
	Events     *websocket.EventBroadcaster
	Catalog    *catalog.Store
	Normalizer *normalize.Normalizer
	Extractor  oracle.Extractor
	Engine     *scoring.Engine
	Booking    *booking.Service
	Parser     *calendar.Parser
	Metrics    *metrics.Metrics
	StaticDir  string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	if s.Extractor == nil {
		s.Extractor = oracle.Nop{}
	}
	if s.Parser == nil {
		s.Parser = calendar.NewParser()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)
	r.Use(middleware.Instrument(s.Metrics))

	// Prometheus scrape endpoint
	r.Handle("/metrics", s.Metrics.Handler()).Methods("GET")

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Catalog)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.DB, s.Catalog, s.Hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Catalog endpoints
	api.HandleFunc("/properties", handlers.ListProperties(s.Catalog)).Methods("GET")
	api.HandleFunc("/properties/{id}", handlers.GetProperty(s.Catalog)).Methods("GET")
	api.HandleFunc("/properties/{id}/calendar.ics", handlers.ExportCalendar(s.Catalog)).Methods("GET")
	api.HandleFunc("/properties/{id}/calendar", handlers.ImportCalendar(s.Booking, s.Parser)).Methods("POST")
	api.HandleFunc("/catalog/reload", handlers.ReloadCatalog(s.Catalog, s.Events, s.Metrics)).Methods("POST")
	api.HandleFunc("/vocabulary", handlers.GetVocabulary(s.Catalog)).Methods("GET")

	// Search endpoint
	api.HandleFunc("/search", handlers.Search(handlers.Searcher{
		Catalog:    s.Catalog,
		Extractor:  s.Extractor,
		Normalizer: s.Normalizer,
		Engine:     s.Engine,
		Metrics:    s.Metrics,
	})).Methods("POST")

	// User endpoints
	api.HandleFunc("/users", handlers.ListUsers(s.DB)).Methods("GET")
	api.HandleFunc("/users", handlers.CreateUser(s.DB)).Methods("POST")
	api.HandleFunc("/users/{username}", handlers.GetUser(s.DB)).Methods("GET")
	api.HandleFunc("/users/{username}/reservations", handlers.GetUserReservations(s.DB)).Methods("GET")

	// Reservation endpoints
	api.HandleFunc("/reservations", handlers.CreateReservation(s.Booking)).Methods("POST")
	api.HandleFunc("/reservations/{id}", handlers.GetReservation(s.Booking)).Methods("GET")
	api.HandleFunc("/reservations/{id}", handlers.CancelReservation(s.Booking)).Methods("DELETE")

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}
