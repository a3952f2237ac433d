// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	DBConnected   bool   `json:"db_connected"`
	CatalogLoaded bool   `json:"catalog_loaded"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB, store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check database connection
		dbConnected := db.PingContext(r.Context()) == nil
		catalogLoaded := store.Len() > 0

		// Determine overall status
		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:        status,
			DBConnected:   dbConnected,
			CatalogLoaded: catalogLoaded,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Properties            int     `json:"properties"`
	Locations             int     `json:"locations"`
	MaxCapacity           int     `json:"max_capacity"`
	PriceMin              float64 `json:"price_min"`
	PriceMax              float64 `json:"price_max"`
	Users                 int     `json:"users"`
	CommittedReservations int     `json:"committed_reservations"`
	ConnectedClients      int     `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, store *catalog.Store, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Count users, excluding the channel profile
		var users int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username != 'channel'").Scan(&users)

		// Count committed reservations
		var committed int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations WHERE status = 'committed'").Scan(&committed)

		priceMin, priceMax := store.PriceRange()
		response := StatusResponse{
			Properties:            store.Len(),
			Locations:             len(store.Vocabulary().Locations),
			MaxCapacity:           store.MaxCapacity(),
			PriceMin:              priceMin,
			PriceMax:              priceMax,
			Users:                 users,
			CommittedReservations: committed,
			ConnectedClients:      hub.ClientCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
