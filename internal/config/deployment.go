package config

import (
	"fmt"
	"os"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"gopkg.in/yaml.v3"
)

// SectionProvider reads named configuration sections.
type SectionProvider interface {
	// GetConfigurationObject returns the section as a map, or nil when it is absent.
	GetConfigurationObject(section string) (map[string]any, error)
}

// Deployment holds the top-level sections of a deployment.yaml file.
// It is immutable once loaded and safe for concurrent use.
type Deployment struct {
	sections map[string]any
}

var _ SectionProvider = (*Deployment)(nil)

// LoadDeployment reads and parses a deployment YAML file.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, fmt.Sprintf("reading deployment config %s", path), err)
	}
	return ParseDeployment(data)
}

// ParseDeployment parses deployment YAML content.
func ParseDeployment(data []byte) (*Deployment, error) {
	sections := map[string]any{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "parsing deployment config", err)
	}
	return &Deployment{sections: sections}, nil
}

// NewDeployment wraps already-decoded sections.
func NewDeployment(sections map[string]any) *Deployment {
	if sections == nil {
		sections = map[string]any{}
	}
	return &Deployment{sections: sections}
}

// GetConfigurationObject implements SectionProvider.
func (d *Deployment) GetConfigurationObject(section string) (map[string]any, error) {
	value, ok := d.sections[section]
	if !ok || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, domain.Errorf(domain.KindConfiguration, "configuration section %s is not a mapping", section)
	}
	return m, nil
}
