package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
)

const (
	msgUnauthorized = "Unauthorized access!"
	msgBadRequest   = "Wrong parameters provided!"
	msgInternal     = "Something went wrong! Internal server error."
	msgNotFound     = "Not found!!"
	msgRateLimited  = "Rate limit reached! Too many requests."
	msgNoUser       = "No user found!"
	msgNoApplicant  = "No applicant found!"
)

// apiResponse is the envelope returned by every endpoint.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, result any, message string) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Result: result})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message, Result: nil})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = msgBadRequest
	}
	writeFailure(w, http.StatusBadRequest, message)
}

// writeError maps a service error onto the envelope. Client errors carry the
// message attached by the service; anything else gets the fixed 500 message.
// notFound, when set, reports missing records as a 400 with that message.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	msg, _ := domain.Message(err)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConflict):
		writeBadRequest(w, msg)
	case errors.Is(err, domain.ErrNotFound):
		if notFound != "" {
			writeBadRequest(w, notFound)
			return
		}
		writeFailure(w, http.StatusNotFound, msgNotFound)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, msgInternal)
	}
}
