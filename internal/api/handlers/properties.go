package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/api/middleware"
	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/storage/models"
	"github.com/staymatch/backend/internal/websocket"
)

// ListProperties returns the catalog. The optional location and environment
// query parameters narrow it by case-insensitive substring and exact match.
func ListProperties(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("location")))
		environment := strings.TrimSpace(r.URL.Query().Get("environment"))

		properties := []models.Property{}
		for _, p := range store.All() {
			if location != "" && !strings.Contains(strings.ToLower(p.Location), location) {
				continue
			}
			if environment != "" && !strings.EqualFold(p.Environment, environment) {
				continue
			}
			properties = append(properties, p)
		}

		writeJSON(w, http.StatusOK, properties)
	}
}

// GetProperty returns a single property.
func GetProperty(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := propertyID(w, r)
		if !ok {
			return
		}

		p, err := store.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

// ExportCalendar serves a property's booked days as an iCal feed.
func ExportCalendar(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := propertyID(w, r)
		if !ok {
			return
		}

		p, err := store.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		if err := calendar.WriteICS(w, p, time.Now()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to write calendar")
		}
	}
}

// ReloadResponse summarises a catalog reload.
type ReloadResponse struct {
	Properties int `json:"properties"`
	Locations  int `json:"locations"`
}

// ReloadCatalog re-reads the catalog from the database.
func ReloadCatalog(store *catalog.Store, events *websocket.EventBroadcaster, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Reload(r.Context()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to reload catalog: "+err.Error())
			return
		}

		response := ReloadResponse{
			Properties: store.Len(),
			Locations:  len(store.Vocabulary().Locations),
		}
		m.SetCatalogSize(response.Properties)
		events.BroadcastCatalogReloaded(response.Properties, response.Locations)

		writeJSON(w, http.StatusOK, response)
	}
}

// GetVocabulary returns the catalog's controlled vocabulary.
func GetVocabulary(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Vocabulary())
	}
}
