package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondAppError maps an error kind to a status. Only validation messages
// reach the client; everything else becomes "internal error".
func respondAppError(w http.ResponseWriter, log *logger.Logger, op string, err error, validationStatus int) {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		respondError(w, validationStatus, apperr.Public(err))
	case apperr.Infrastructure:
		log.Error("%s: %v", op, err)
		respondError(w, http.StatusServiceUnavailable, apperr.Public(err))
	default:
		log.Error("%s: %v", op, err)
		respondError(w, http.StatusInternalServerError, apperr.Public(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
