package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/staymatch/backend/internal/api/middleware"
	"github.com/staymatch/backend/internal/booking"
	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/storage/models"
)

// CreateReservationRequest represents the request body for booking a stay.
type CreateReservationRequest struct {
	Username   string `json:"username"`
	PropertyID int    `json:"property_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// CreateReservation proposes and commits a reservation.
func CreateReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Username == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Username is required")
			return
		}

		start, err := calendar.ParseISO(req.Start)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Start must be a YYYY-MM-DD date")
			return
		}
		end, err := calendar.ParseISO(req.End)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "End must be a YYYY-MM-DD date")
			return
		}

		res, err := svc.Book(r.Context(), req.Username, req.PropertyID, start, end)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

// GetReservation returns a single reservation.
func GetReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// CancelReservation cancels a committed reservation and frees its days.
func CancelReservation(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Cancel(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ImportCalendarRequest represents a JSON calendar import. Either URL or
// ICS must be set.
type ImportCalendarRequest struct {
	URL        string `json:"url,omitempty"`
	ICS        string `json:"ics,omitempty"`
	FutureOnly bool   `json:"future_only"`
}

// ImportCalendar books the events of an external iCal feed on a property.
// The body is either raw iCal data (Content-Type text/calendar) or an
// ImportCalendarRequest.
func ImportCalendar(svc *booking.Service, parser *calendar.Parser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := propertyID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()

		var req ImportCalendarRequest
		var body io.Reader
		if strings.HasPrefix(r.Header.Get("Content-Type"), "text/calendar") {
			body = r.Body
			req.FutureOnly = r.URL.Query().Get("future_only") == "true"
		} else {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
				return
			}
			if req.ICS != "" {
				body = strings.NewReader(req.ICS)
			}
		}

		var events []models.CalendarEvent
		var err error
		switch {
		case body != nil:
			if events, err = parser.Parse(body); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Failed to read calendar: "+err.Error())
				return
			}
		case req.URL != "":
			if events, err = parser.FetchAndParse(ctx, req.URL); err != nil {
				middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUnavailable, "Failed to fetch calendar: "+err.Error())
				return
			}
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Either url or ics is required")
			return
		}

		if req.FutureOnly {
			events = calendar.FilterFutureEvents(events, time.Now())
		}

		result, err := svc.Import(ctx, id, events)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// writeBookingError maps booking and storage errors to HTTP responses.
func writeBookingError(w http.ResponseWriter, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict, conflict.Error(), conflict.Conflicts)
	case errors.Is(err, booking.ErrInvalidTransition):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, err.Error())
	case errors.Is(err, calendar.ErrMalformedRange):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
	case errors.Is(err, catalog.ErrPropertyNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
	case errors.Is(err, booking.ErrUnknownUser):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
	case errors.Is(err, storage.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Reservation not found")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update reservation")
	}
}
