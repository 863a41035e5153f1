package tenant

import (
	"fmt"

	"github.com/bcnelson/widget-authorizer/internal/config"
	"github.com/bcnelson/widget-authorizer/internal/domain"
)

// Keys of the admin credentials in the deployment configuration.
const (
	AuthConfigsSection     = "auth.configs"
	PropertiesKey          = "properties"
	AdminServiceBaseURLKey = "adminServiceBaseUrl"
	AdminUsernameKey       = "adminUsername"
	AdminPasswordKey       = "adminPassword"
)

// AdminAuthConfig holds the credentials used to call the admin REST API.
type AdminAuthConfig struct {
	ServiceBaseURL string
	Username       string
	Password       string
}

// LoadAdminAuthConfig reads auth.configs.properties from the section provider.
// Every missing or empty value is reported with its own configuration error.
func LoadAdminAuthConfig(sections config.SectionProvider) (AdminAuthConfig, error) {
	authConfigs, err := sections.GetConfigurationObject(AuthConfigsSection)
	if err != nil {
		return AdminAuthConfig{}, domain.NewError(domain.KindConfiguration,
			fmt.Sprintf("error occurred while getting the %s configuration", AuthConfigsSection), err)
	}
	if authConfigs == nil {
		return AdminAuthConfig{}, domain.Errorf(domain.KindConfiguration,
			"cannot find %s in the deployment configuration", AuthConfigsSection)
	}

	raw, ok := authConfigs[PropertiesKey]
	if !ok {
		return AdminAuthConfig{}, domain.Errorf(domain.KindConfiguration,
			"cannot find %s under %s in the deployment configuration", PropertiesKey, AuthConfigsSection)
	}
	properties, ok := raw.(map[string]any)
	if !ok || properties == nil {
		return AdminAuthConfig{}, domain.Errorf(domain.KindConfiguration,
			"%s under %s in the deployment configuration cannot be empty", PropertiesKey, AuthConfigsSection)
	}

	var cfg AdminAuthConfig
	for _, p := range []struct {
		key  string
		dest *string
	}{
		{AdminServiceBaseURLKey, &cfg.ServiceBaseURL},
		{AdminUsernameKey, &cfg.Username},
		{AdminPasswordKey, &cfg.Password},
	} {
		value, err := property(properties, p.key)
		if err != nil {
			return AdminAuthConfig{}, err
		}
		*p.dest = value
	}
	return cfg, nil
}

func property(properties map[string]any, key string) (string, error) {
	raw, ok := properties[key]
	if !ok {
		return "", domain.Errorf(domain.KindConfiguration,
			"cannot find property %s under %s in the deployment configuration", key, AuthConfigsSection)
	}
	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case int, int64, float64, bool:
		value = fmt.Sprint(v)
	}
	if value == "" {
		return "", domain.Errorf(domain.KindConfiguration,
			"value of the property '%s' cannot be empty, define it under %s in the deployment configuration",
			key, AuthConfigsSection)
	}
	return value, nil
}
