package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/staymatch/backend/internal/api/middleware"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// propertyID parses the {id} route variable, writing a 400 when it is not a number.
func propertyID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Property id must be a number")
		return 0, false
	}
	return id, true
}
