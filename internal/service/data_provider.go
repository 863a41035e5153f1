package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage"
)

// Authorizer decides subscription requests.
type Authorizer interface {
	Authorize(ctx context.Context, req *domain.SubscriptionRequest) (bool, error)
}

// DataProviderService is the entry point of the data provider. It owns the lifecycle
// of its collaborators: Start prepares the widget resource table and Stop releases
// the database. Calls outside Start and Stop fail with domain.ErrNotStarted.
type DataProviderService struct {
	authorizer Authorizer
	widgets    storage.WidgetMetadataProvider
	resources  storage.WidgetMetadataStore
	closer     io.Closer
	log        *slog.Logger

	mu      sync.RWMutex
	started bool
}

// NewDataProviderService creates a service. closer is closed by Stop and may be nil.
func NewDataProviderService(authorizer Authorizer, widgets storage.WidgetMetadataProvider,
	resources storage.WidgetMetadataStore, closer io.Closer, log *slog.Logger) *DataProviderService {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DataProviderService{
		authorizer: authorizer,
		widgets:    widgets,
		resources:  resources,
		closer:     closer,
		log:        log,
	}
}

// Start creates the widget resource table if needed. Starting twice is a no-op.
func (s *DataProviderService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.resources.InitTable(ctx); err != nil {
		return fmt.Errorf("initializing widget resource table: %w", err)
	}
	s.started = true
	s.log.Info("data provider service started")
	return nil
}

// Stop closes the database. Stopping a stopped service is a no-op.
func (s *DataProviderService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	s.log.Info("data provider service stopped")
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Started reports whether the service accepts calls.
func (s *DataProviderService) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *DataProviderService) checkStarted() error {
	if !s.Started() {
		return domain.ErrNotStarted
	}
	return nil
}

// Authorize decides req. See authorizer.Authorizer.
func (s *DataProviderService) Authorize(ctx context.Context, req *domain.SubscriptionRequest) (bool, error) {
	if err := s.checkStarted(); err != nil {
		return false, err
	}
	return s.authorizer.Authorize(ctx, req)
}

// ListWidgets returns every widget configuration in the catalog.
func (s *DataProviderService) ListWidgets(ctx context.Context) ([]*domain.WidgetMetaInfo, error) {
	if err := s.checkStarted(); err != nil {
		return nil, err
	}
	return s.widgets.GetAllWidgetConfigurations(ctx)
}

// GetWidget returns the configuration of one widget.
func (s *DataProviderService) GetWidget(ctx context.Context, name string) (*domain.WidgetMetaInfo, error) {
	if err := s.checkStarted(); err != nil {
		return nil, err
	}
	return s.widgets.GetWidgetConfiguration(ctx, name)
}

// DeleteWidget removes the widget resource record for id.
func (s *DataProviderService) DeleteWidget(ctx context.Context, id string) error {
	if err := s.checkStarted(); err != nil {
		return err
	}
	return s.widgets.Delete(ctx, id)
}
