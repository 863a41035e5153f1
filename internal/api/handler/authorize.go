package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/bcnelson/widget-authorizer/internal/api/middleware"
	"github.com/bcnelson/widget-authorizer/internal/domain"
)

// DataProvider is the service behind the HTTP API.
type DataProvider interface {
	Authorize(ctx context.Context, req *domain.SubscriptionRequest) (bool, error)
	ListWidgets(ctx context.Context) ([]*domain.WidgetMetaInfo, error)
	GetWidget(ctx context.Context, name string) (*domain.WidgetMetaInfo, error)
	DeleteWidget(ctx context.Context, id string) error
}

// AuthorizeHandler handles subscription authorization.
type AuthorizeHandler struct {
	svc DataProvider
}

// NewAuthorizeHandler creates a new AuthorizeHandler.
func NewAuthorizeHandler(svc DataProvider) *AuthorizeHandler {
	return &AuthorizeHandler{svc: svc}
}

// AuthorizeResponse is the body of a decided request. DataProviderConfiguration
// carries the assembled query when Authorized is true.
type AuthorizeResponse struct {
	Authorized                bool                          `json:"authorized"`
	DataProviderConfiguration *domain.ProviderConfiguration `json:"dataProviderConfiguration,omitempty"`
}

// Authorize handles POST /api/v1/authorize.
func (h *AuthorizeHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	// A verified caller may only subscribe as themselves.
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		switch {
		case req.Username == "":
			req.Username = claims.Email
		case !strings.EqualFold(req.Username, claims.Email):
			respondError(w, http.StatusForbidden, domain.ErrCodeUnauthorized,
				"username does not match the authenticated user")
			return
		}
	}

	allowed, err := h.svc.Authorize(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := AuthorizeResponse{Authorized: allowed}
	if allowed {
		resp.DataProviderConfiguration = req.DataProviderConfiguration
	}
	respondJSON(w, http.StatusOK, resp)
}
