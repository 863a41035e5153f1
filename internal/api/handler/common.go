package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}

// kindStatus maps classified failures to HTTP responses.
var kindStatus = map[domain.Kind]struct {
	status int
	code   string
}{
	domain.KindValidation:         {http.StatusBadRequest, domain.ErrCodeValidationError},
	domain.KindConfiguration:      {http.StatusInternalServerError, domain.ErrCodeConfiguration},
	domain.KindDashboard:          {http.StatusInternalServerError, domain.ErrCodeInternalError},
	domain.KindDataIntegrity:      {http.StatusInternalServerError, domain.ErrCodeDataIntegrity},
	domain.KindRemoteUnauthorized: {http.StatusBadGateway, domain.ErrCodeRemoteError},
	domain.KindRemoteUnreachable:  {http.StatusServiceUnavailable, domain.ErrCodeRemoteUnavailable},
	domain.KindRemoteDecode:       {http.StatusBadGateway, domain.ErrCodeRemoteError},
	domain.KindRemote:             {http.StatusBadGateway, domain.ErrCodeRemoteError},
	domain.KindPersistence:        {http.StatusInternalServerError, domain.ErrCodeInternalError},
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		respondValidationErrors(w, verr)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotStarted):
		respondError(w, http.StatusServiceUnavailable, domain.ErrCodeNotStarted, "service not started")
		return
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found")
		return
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, domain.ErrCodeValidationError, "already exists")
		return
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized")
		return
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		if mapped, ok := kindStatus[derr.Kind]; ok {
			respondJSON(w, mapped.status, &domain.StandardErrorResponse{Error: domain.StandardError{
				Code:      mapped.code,
				Message:   derr.Message,
				Field:     derr.Field,
				Kind:      derr.Kind.String(),
				Retryable: derr.Kind.Retryable(),
			}})
			return
		}
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, domain.ErrCodeValidationError, "invalid input")
		return
	}
	respondError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("", "malformed request body", domain.ErrInvalidInput)
	}
	return nil
}

// respondValidationErrors writes a 400 listing the failed fields.
func respondValidationErrors(w http.ResponseWriter, errs ...*validation.ValidationError) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
