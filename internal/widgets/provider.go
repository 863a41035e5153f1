// Package widgets serves widget configurations from the widget directory and
// records widget resources through the widget metadata store.
package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage"
)

// ConfigFileName is the configuration file inside each widget directory.
const ConfigFileName = "widgetConf.json"

// Provider reads widget configurations from <dir>/<widget>/widgetConf.json on every
// call and delegates deletions to the widget metadata store.
type Provider struct {
	dir   string
	store storage.WidgetMetadataStore
	log   *slog.Logger
}

var _ storage.WidgetMetadataProvider = (*Provider)(nil)

// NewProvider creates a provider over the widget directory dir.
func NewProvider(dir string, store storage.WidgetMetadataStore, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provider{dir: dir, store: store, log: log}
}

// validName rejects names that would escape the widget directory.
func validName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// GetWidgetConfiguration returns domain.ErrNotFound when the widget has no
// configuration file.
func (p *Provider) GetWidgetConfiguration(ctx context.Context, widgetName string) (*domain.WidgetMetaInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(widgetName) {
		return nil, domain.ErrNotFound
	}
	return p.readWidget(widgetName)
}

func (p *Provider) readWidget(name string) (*domain.WidgetMetaInfo, error) {
	path := filepath.Join(p.dir, name, ConfigFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var widget domain.WidgetMetaInfo
	if err := json.Unmarshal(data, &widget); err != nil {
		return nil, domain.NewError(domain.KindDataIntegrity,
			fmt.Sprintf("cannot parse the configuration of widget '%s'", name), err)
	}
	if widget.Name == "" {
		widget.Name = name
	}
	if widget.ID == "" {
		widget.ID = name
	}
	return &widget, nil
}

// GetAllWidgetConfigurations lists every widget directory holding a readable
// configuration, sorted by name. Unreadable widgets are logged and skipped.
func (p *Provider) GetAllWidgetConfigurations(ctx context.Context) ([]*domain.WidgetMetaInfo, error) {
	entries, err := os.ReadDir(p.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*domain.WidgetMetaInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing widget directory: %w", err)
	}

	widgets := make([]*domain.WidgetMetaInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		widget, err := p.readWidget(entry.Name())
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			p.log.Warn("skipping unreadable widget", "widget", entry.Name(), "error", err)
			continue
		}
		widgets = append(widgets, widget)
	}
	sort.Slice(widgets, func(i, j int) bool {
		return widgets[i].Name < widgets[j].Name
	})
	return widgets, nil
}

// IsWidgetPresent reports whether the catalog holds widgetName. Generated widgets
// are not kept in the catalog, so GENERATED always reports false.
func (p *Provider) IsWidgetPresent(ctx context.Context, widgetName string, widgetType domain.WidgetType) (bool, error) {
	if widgetType == domain.WidgetTypeGenerated {
		return false, nil
	}
	_, err := p.GetWidgetConfiguration(ctx, widgetName)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the widget resource record for widgetID.
func (p *Provider) Delete(ctx context.Context, widgetID string) error {
	if err := p.store.Delete(ctx, widgetID); err != nil {
		return err
	}
	p.log.Info("deleted widget resource", "widget_id", widgetID)
	return nil
}
