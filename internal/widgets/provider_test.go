package widgets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesChartConf = `{
  "name": "SalesChart",
  "id": "SalesChart",
  "version": "1.0.0",
  "configs": {
    "pubsub": {"types": ["subscriber"]},
    "providerConfig": {
      "type": "RDBMSBatchDataProvider",
      "configs": {
        "type": "RDBMSDataProvider",
        "config": {
          "datasourceName": "SALES_DB",
          "tableName": "SALES",
          "publishingInterval": 60,
          "queryData": {
            "byRegion": "select * from SALES where REGION = {{region}} and CONTEXT {{contextCondition}}"
          }
        }
      }
    }
  }
}`

func writeWidget(t *testing.T, dir, name, conf string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, ConfigFileName), []byte(conf), 0o644))
}

func newTestProvider(t *testing.T) (*Provider, *memory.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := memory.New()
	require.NoError(t, store.InitTable(context.Background()))
	return NewProvider(dir, store, nil), store, dir
}

func TestGetWidgetConfiguration(t *testing.T) {
	p, _, dir := newTestProvider(t)
	writeWidget(t, dir, "SalesChart", salesChartConf)
	ctx := context.Background()

	widget, err := p.GetWidgetConfiguration(ctx, "SalesChart")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", widget.Version)

	templates, err := widget.Configs.ProviderConfig.QueryTemplates()
	require.NoError(t, err)
	assert.Contains(t, templates["byRegion"], "{{region}}")
	assert.Equal(t, 60, widget.Configs.ProviderConfig.Configs.Config.PublishingInterval)

	_, err = p.GetWidgetConfiguration(ctx, "Missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetWidgetConfiguration_RejectsPathNames(t *testing.T) {
	p, _, dir := newTestProvider(t)
	writeWidget(t, dir, "SalesChart", salesChartConf)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../SalesChart", "SalesChart/..", `a\b`, "a/b"} {
		_, err := p.GetWidgetConfiguration(ctx, name)
		assert.ErrorIs(t, err, domain.ErrNotFound, name)
	}
}

func TestGetWidgetConfiguration_MalformedFile(t *testing.T) {
	p, _, dir := newTestProvider(t)
	writeWidget(t, dir, "Broken", `{"name":`)

	_, err := p.GetWidgetConfiguration(context.Background(), "Broken")
	require.Error(t, err)
	assert.Equal(t, domain.KindDataIntegrity, domain.KindOf(err))
}

func TestGetAllWidgetConfigurations(t *testing.T) {
	p, _, dir := newTestProvider(t)
	writeWidget(t, dir, "SalesChart", salesChartConf)
	writeWidget(t, dir, "Alerts", `{"configs": {}}`)
	writeWidget(t, dir, "Broken", `not json`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))

	widgets, err := p.GetAllWidgetConfigurations(context.Background())
	require.NoError(t, err)
	require.Len(t, widgets, 2)
	assert.Equal(t, "Alerts", widgets[0].Name)
	assert.Equal(t, "Alerts", widgets[0].ID)
	assert.Equal(t, "SalesChart", widgets[1].Name)
}

func TestGetAllWidgetConfigurations_MissingDir(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "absent"), memory.New(), nil)

	widgets, err := p.GetAllWidgetConfigurations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, widgets)
}

func TestIsWidgetPresent(t *testing.T) {
	p, _, dir := newTestProvider(t)
	writeWidget(t, dir, "SalesChart", salesChartConf)
	ctx := context.Background()

	tests := []struct {
		name       string
		widgetType domain.WidgetType
		want       bool
	}{
		{"SalesChart", domain.WidgetTypeCustom, true},
		{"SalesChart", domain.WidgetTypeAll, true},
		{"SalesChart", domain.WidgetTypeGenerated, false},
		{"Missing", domain.WidgetTypeCustom, false},
	}
	for _, tt := range tests {
		got, err := p.IsWidgetPresent(ctx, tt.name, tt.widgetType)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.name, tt.widgetType)
	}
}

func TestDelete(t *testing.T) {
	p, store, _ := newTestProvider(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, "SalesChart"))

	require.NoError(t, p.Delete(ctx, "SalesChart"))
	require.NoError(t, p.Delete(ctx, "SalesChart"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
