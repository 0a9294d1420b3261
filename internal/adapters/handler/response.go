package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

// maxBodyBytes bounds JSON request bodies. CSV uploads have their own limit.
const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps service errors to status codes. Authentication and
// dependency failures get generic bodies; details go to the log only.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, log, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: verrs.Fields})
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, log, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, log, http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, log, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, log, http.StatusConflict, ErrorResponse{Error: "already exists"})
	case errors.Is(err, domain.ErrExternal):
		log.Error("dependency failure", zap.Error(err))
		writeJSON(w, log, http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable, please retry later"})
	default:
		log.Error("unhandled error", zap.Error(err))
		writeJSON(w, log, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// decodeJSON reads a single JSON object into dst. Malformed bodies are
// reported as a validation error on the "body" field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var errs validation.Errors
		if errors.Is(err, io.EOF) {
			errs.Add("body", "is required")
		} else {
			errs.Add("body", fmt.Sprintf("is not valid JSON: %v", err))
		}
		return errs.Err()
	}
	return nil
}
