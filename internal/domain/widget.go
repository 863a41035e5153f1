package domain

import "encoding/json"

// WidgetMetaInfo is a widget's stored, server-trusted configuration.
type WidgetMetaInfo struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Version string        `json:"version,omitempty"`
	Configs WidgetConfigs `json:"configs"`
}

// WidgetConfigs is the configs block of widgetConf.json.
type WidgetConfigs struct {
	PubSub         json.RawMessage `json:"pubsub,omitempty"`
	ProviderConfig *ProviderConfig `json:"providerConfig,omitempty"`
	Options        json.RawMessage `json:"options,omitempty"`
	IsGenerated    bool            `json:"isGenerated,omitempty"`
}

// ProviderConfig is the widget's data provider definition.
type ProviderConfig struct {
	Type    string           `json:"type,omitempty"`
	Configs *ProviderConfigs `json:"configs,omitempty"`
}

// ProviderConfigs wraps the provider-specific configuration.
type ProviderConfigs struct {
	Type   string              `json:"type,omitempty"`
	Config *DataProviderConfig `json:"config,omitempty"`
}

// DataProviderConfig holds the query templates a caller may choose from.
type DataProviderConfig struct {
	DatasourceName     string            `json:"datasourceName,omitempty"`
	TableName          string            `json:"tableName,omitempty"`
	IncrementalColumn  string            `json:"incrementalColumn,omitempty"`
	PublishingInterval int               `json:"publishingInterval,omitempty"`
	PurgingInterval    int               `json:"purgingInterval,omitempty"`
	PublishingLimit    int               `json:"publishingLimit,omitempty"`
	QueryData          map[string]string `json:"queryData,omitempty"`
}

// QueryTemplates returns the trusted query-name to template mapping found at
// configs.config.queryData, naming the first missing segment on failure.
func (p *ProviderConfig) QueryTemplates() (map[string]string, error) {
	switch {
	case p == nil:
		return nil, Errorf(KindDataIntegrity, "widget configuration has no providerConfig")
	case p.Configs == nil:
		return nil, Errorf(KindDataIntegrity, "cannot find the query data in the widget configuration: missing providerConfig.configs")
	case p.Configs.Config == nil:
		return nil, Errorf(KindDataIntegrity, "cannot find the query data in the widget configuration: missing providerConfig.configs.config")
	case p.Configs.Config.QueryData == nil:
		return nil, Errorf(KindDataIntegrity, "cannot find the query data in the widget configuration: missing providerConfig.configs.config.queryData")
	}
	return p.Configs.Config.QueryData, nil
}
