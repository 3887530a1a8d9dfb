package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/npspulse/backend/internal/apperr"
)

// Envelope is the uniform response shape of every endpoint.
type Envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
	Meta    *Meta         `json:"meta,omitempty"`
}

type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data interface{}, meta Meta) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

// writeError maps any error onto the envelope. Unclassified errors are
// masked as INTERNAL_ERROR; the cause goes to the log, not the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, appErr.Status, Envelope{Success: false, Error: appErr})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}
