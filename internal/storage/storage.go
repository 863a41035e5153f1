package storage

import (
	"context"

	"github.com/bcnelson/widget-authorizer/internal/domain"
)

// DashboardProvider looks up dashboards on behalf of a user.
// Implementations must be safe for concurrent use.
type DashboardProvider interface {
	// GetDashboardByUser returns the dashboard identified by url if username may view it.
	// It returns domain.ErrNotFound when no such dashboard exists and
	// domain.ErrUnauthorized when the user may not view it.
	GetDashboardByUser(ctx context.Context, username, dashboardURL string) (*domain.DashboardMetadata, error)
}

// WidgetMetadataProvider exposes the widget catalog.
// Implementations must be safe for concurrent use.
type WidgetMetadataProvider interface {
	// GetWidgetConfiguration returns domain.ErrNotFound when the widget has no configuration.
	GetWidgetConfiguration(ctx context.Context, widgetName string) (*domain.WidgetMetaInfo, error)
	GetAllWidgetConfigurations(ctx context.Context) ([]*domain.WidgetMetaInfo, error)
	IsWidgetPresent(ctx context.Context, widgetName string, widgetType domain.WidgetType) (bool, error)
	Delete(ctx context.Context, widgetID string) error
}

// WidgetMetadataStore persists widget resource records.
type WidgetMetadataStore interface {
	// InitTable creates the widget resource table if it does not exist yet.
	InitTable(ctx context.Context) error
	Insert(ctx context.Context, widgetID string) error
	List(ctx context.Context) ([]string, error)
	// Delete removes the record for widgetID. Deleting an unknown id is not an error.
	Delete(ctx context.Context, widgetID string) error
}
