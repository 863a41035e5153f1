package domain

import "strings"

// WidgetType tags how a widget came to be on a dashboard.
type WidgetType string

const (
	WidgetTypeCustom    WidgetType = "CUSTOM"
	WidgetTypeGenerated WidgetType = "GENERATED"
	WidgetTypeAll       WidgetType = "ALL"
)

// DashboardMetadata is a dashboard as seen by one user.
type DashboardMetadata struct {
	URL         string           `json:"url" db:"url"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description,omitempty" db:"description"`
	Owner       string           `json:"owner,omitempty" db:"owner"`
	Landing     string           `json:"landingPage,omitempty" db:"landing_page"`
	Content     DashboardContent `json:"content" db:"-"`
}

// DashboardContent is the stored page layout of a dashboard.
type DashboardContent struct {
	Pages []DashboardPage `json:"pages"`
}

// DashboardPage is one page; pages may nest.
type DashboardPage struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Content []LayoutItem    `json:"content,omitempty"`
	Pages   []DashboardPage `json:"pages,omitempty"`
}

// LayoutItem is a node of a page's layout tree. Nodes of type "component" are widgets.
type LayoutItem struct {
	Type      string       `json:"type"`
	Component string       `json:"component,omitempty"`
	Props     *LayoutProps `json:"props,omitempty"`
	Content   []LayoutItem `json:"content,omitempty"`
}

// LayoutProps holds the per-instance widget settings.
type LayoutProps struct {
	ID      string                 `json:"id,omitempty"`
	Configs *WidgetInstanceConfigs `json:"configs,omitempty"`
}

// WidgetInstanceConfigs marks widgets generated by the widget generator.
type WidgetInstanceConfigs struct {
	IsGenerated bool `json:"isGenerated"`
}

const layoutTypeComponent = "component"

// WidgetTypeSets maps a widget type to the widget names of that type.
type WidgetTypeSets map[WidgetType]map[string]struct{}

// FindWidgets walks every page of the content and groups widget names by type.
// Both CUSTOM and GENERATED are always present, possibly empty.
func (c DashboardContent) FindWidgets() WidgetTypeSets {
	sets := WidgetTypeSets{
		WidgetTypeCustom:    {},
		WidgetTypeGenerated: {},
	}
	for _, page := range c.Pages {
		collectPage(page, sets)
	}
	return sets
}

func collectPage(page DashboardPage, sets WidgetTypeSets) {
	for _, item := range page.Content {
		collectItem(item, sets)
	}
	for _, sub := range page.Pages {
		collectPage(sub, sets)
	}
}

func collectItem(item LayoutItem, sets WidgetTypeSets) {
	if item.Type == layoutTypeComponent && item.Component != "" {
		widgetType := WidgetTypeCustom
		if item.Props != nil && item.Props.Configs != nil && item.Props.Configs.IsGenerated {
			widgetType = WidgetTypeGenerated
		}
		sets[widgetType][item.Component] = struct{}{}
	}
	for _, child := range item.Content {
		collectItem(child, sets)
	}
}

// ContainsFold reports whether the set for widgetType holds name, ignoring case.
func (s WidgetTypeSets) ContainsFold(widgetType WidgetType, name string) bool {
	for widget := range s[widgetType] {
		if strings.EqualFold(widget, name) {
			return true
		}
	}
	return false
}
