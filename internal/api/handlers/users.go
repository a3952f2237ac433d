package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/staymatch/backend/internal/api/middleware"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/storage/models"
)

// CreateUserRequest represents the request body for creating a profile.
type CreateUserRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// ListUsers returns every profile without reservations.
func ListUsers(db *storage.DB) http.HandlerFunc {
	repo := storage.NewUserRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query users")
			return
		}
		if users == nil {
			users = []models.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// CreateUser creates a new profile.
func CreateUser(db *storage.DB) http.HandlerFunc {
	repo := storage.NewUserRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if strings.TrimSpace(req.Username) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Username is required")
			return
		}

		user := &models.User{Username: req.Username, Name: req.Name, Email: req.Email}
		if err := repo.Create(r.Context(), user); err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Username already exists")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create user")
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

// GetUser returns a profile with its reservations.
func GetUser(db *storage.DB) http.HandlerFunc {
	repo := storage.NewUserRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := repo.GetByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// GetUserReservations returns the reservations owned by a profile.
func GetUserReservations(db *storage.DB) http.HandlerFunc {
	users := storage.NewUserRepository(db)
	reservations := storage.NewReservationRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := mux.Vars(r)["username"]

		exists, err := users.Exists(ctx, username)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query user")
			return
		}
		if !exists {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "User not found")
			return
		}

		list, err := reservations.ListByUser(ctx, username)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}
		if list == nil {
			list = []models.Reservation{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
