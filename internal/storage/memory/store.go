package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage"
)

var (
	_ storage.DashboardProvider      = (*Store)(nil)
	_ storage.WidgetMetadataProvider = (*Store)(nil)
	_ storage.WidgetMetadataStore    = (*Store)(nil)
)

// Store is an in-memory implementation of the storage interfaces for testing.
type Store struct {
	mu sync.RWMutex

	dashboards map[string]*domain.DashboardMetadata // key: url
	shares     map[string]struct{}                  // key: url:username
	widgets    map[string]*domain.WidgetMetaInfo    // key: widget name
	resources  map[string]struct{}                  // key: widget id
	tableReady bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		dashboards: make(map[string]*domain.DashboardMetadata),
		shares:     make(map[string]struct{}),
		widgets:    make(map[string]*domain.WidgetMetaInfo),
		resources:  make(map[string]struct{}),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Dashboards
// ============================================

func shareKey(url, username string) string { return url + ":" + username }

// PutDashboard inserts or replaces a dashboard.
func (s *Store) PutDashboard(dashboard *domain.DashboardMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboards[dashboard.URL] = dashboard
}

// ShareDashboard lets username view the dashboard at url.
func (s *Store) ShareDashboard(url, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[shareKey(url, username)] = struct{}{}
}

func (s *Store) GetDashboardByUser(ctx context.Context, username, dashboardURL string) (*domain.DashboardMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dashboard, exists := s.dashboards[dashboardURL]
	if !exists {
		return nil, domain.ErrNotFound
	}
	if dashboard.Owner == username {
		return dashboard, nil
	}
	if _, shared := s.shares[shareKey(dashboardURL, username)]; shared {
		return dashboard, nil
	}
	return nil, domain.ErrUnauthorized
}

// ============================================
// Widget catalog
// ============================================

// PutWidget registers a widget configuration under its name.
func (s *Store) PutWidget(widget *domain.WidgetMetaInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets[widget.Name] = widget
}

func (s *Store) GetWidgetConfiguration(ctx context.Context, widgetName string) (*domain.WidgetMetaInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	widget, exists := s.widgets[widgetName]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return widget, nil
}

func (s *Store) GetAllWidgetConfigurations(ctx context.Context) ([]*domain.WidgetMetaInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	widgets := make([]*domain.WidgetMetaInfo, 0, len(s.widgets))
	for _, widget := range s.widgets {
		widgets = append(widgets, widget)
	}
	sort.Slice(widgets, func(i, j int) bool {
		return widgets[i].Name < widgets[j].Name
	})
	return widgets, nil
}

func (s *Store) IsWidgetPresent(ctx context.Context, widgetName string, widgetType domain.WidgetType) (bool, error) {
	if widgetType == domain.WidgetTypeGenerated {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.widgets[widgetName]
	return exists, nil
}

// ============================================
// Widget resources
// ============================================

func (s *Store) InitTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableReady = true
	return nil
}

func (s *Store) Insert(ctx context.Context, widgetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady {
		return domain.NewError(domain.KindPersistence, "widget resource table does not exist", nil)
	}
	if _, exists := s.resources[widgetID]; exists {
		return domain.NewError(domain.KindPersistence, "widget id '"+widgetID+"' is already registered", domain.ErrAlreadyExists)
	}
	s.resources[widgetID] = struct{}{}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.resources))
	for id := range s.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the resource record and the catalog entry whose id matches widgetID.
// Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, widgetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady {
		return domain.NewError(domain.KindPersistence, "cannot delete widget id: '"+widgetID+"'", nil)
	}
	delete(s.resources, widgetID)
	for name, widget := range s.widgets {
		if widget.ID == widgetID || name == widgetID {
			delete(s.widgets, name)
		}
	}
	return nil
}
