package middleware

import (
	"net/http"

	"github.com/bcnelson/widget-authorizer/internal/logger"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// RequestID takes X-Request-ID from the request or generates one. The ID is stored
// in the context and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
