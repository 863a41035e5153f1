package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTenantResolver struct {
	mock.Mock
}

func (m *mockTenantResolver) ResolveTenantID(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func trustedConfig(templates map[string]string) *domain.ProviderConfig {
	return &domain.ProviderConfig{
		Type: "RDBMSBatchDataProvider",
		Configs: &domain.ProviderConfigs{
			Config: &domain.DataProviderConfig{QueryData: templates},
		},
	}
}

func request(t *testing.T, username, providerConfig string) *domain.SubscriptionRequest {
	t.Helper()
	req := &domain.SubscriptionRequest{
		Action:      domain.ActionSubscribe,
		DashboardID: "sales",
		Username:    username,
		WidgetName:  "SalesChart",
	}
	if providerConfig != "" {
		req.DataProviderConfiguration = &domain.ProviderConfiguration{}
		require.NoError(t, json.Unmarshal([]byte(providerConfig), req.DataProviderConfiguration))
	}
	return req
}

const tenantTemplate = "select * from T where CONTEXT {{contextCondition}} and {{contextContainsCondition}} " +
	"and DOMAIN = '{{tenantDomain}}' and TENANT = {{tenantId}}"

func TestAssemble_TenantIsolation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		tenantID string
		contains []string
	}{
		{
			name:     "super tenant",
			username: "admin@carbon.super",
			tenantID: "-1234",
			contains: []string{
				"CONTEXT not like '/t/%'",
				"NOT(str:contains(CONTEXT,'/t/'))",
				"DOMAIN = 'carbon.super'",
				"TENANT = -1234",
			},
		},
		{
			name:     "super tenant any case",
			username: "admin@Carbon.Super",
			tenantID: "-1234",
			contains: []string{"not like '/t/%'", "NOT(str:contains(CONTEXT,'/t/'))"},
		},
		{
			name:     "tenant",
			username: "alice@acme.com",
			tenantID: "7",
			contains: []string{
				"CONTEXT like '/t/acme.com/%'",
				"(str:contains(CONTEXT,'/t/acme.com'))",
				"DOMAIN = 'acme.com'",
				"TENANT = 7",
			},
		},
		{
			name:     "username without at sign",
			username: "admin",
			tenantID: "3",
			contains: []string{"like '/t/admin/%'", "(str:contains(CONTEXT,'/t/admin'))"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := &mockTenantResolver{}
			tenants.On("ResolveTenantID", mock.Anything, tt.username).Return(tt.tenantID, nil).Once()
			req := request(t, tt.username, `{"queryData":{"queryName":"all"}}`)

			err := NewAssembler(tenants, nil).Assemble(context.Background(), tt.username, req,
				trustedConfig(map[string]string{"all": tenantTemplate}))
			require.NoError(t, err)

			query := req.DataProviderConfiguration.QueryData.Query
			for _, want := range tt.contains {
				assert.Contains(t, query, want)
			}
			assert.NotContains(t, query, "{{")
			tenants.AssertExpectations(t)
		})
	}
}

func TestAssemble_ValueSubstitution(t *testing.T) {
	tenants := &mockTenantResolver{}
	tenants.On("ResolveTenantID", mock.Anything, "admin@carbon.super").Return("-1234", nil)
	req := request(t, "admin@carbon.super", `{"queryData":{"queryName":"q","queryValues":{"{{v}}":"5"}}}`)

	err := NewAssembler(tenants, nil).Assemble(context.Background(), "admin@carbon.super", req,
		trustedConfig(map[string]string{"q": "select * where x = {{v}}"}))
	require.NoError(t, err)
	assert.Equal(t, "select * where x = 5", req.DataProviderConfiguration.QueryData.Query)
}

func TestAssemble_ValuesAreAppliedInOrderAndCaseSensitively(t *testing.T) {
	tenants := &mockTenantResolver{}
	tenants.On("ResolveTenantID", mock.Anything, mock.Anything).Return("1", nil)
	req := request(t, "bob@acme.com",
		`{"queryData":{"queryName":"q","queryValues":{"{{a}}":"{{b}}","{{b}}":10,"{{A}}":true}}}`)

	err := NewAssembler(tenants, nil).Assemble(context.Background(), "bob@acme.com", req,
		trustedConfig(map[string]string{"q": "x = {{a}} and y = {{B}} and z = {{A}}"}))
	require.NoError(t, err)
	assert.Equal(t, "x = 10 and y = {{B}} and z = true", req.DataProviderConfiguration.QueryData.Query)
}

func TestAssemble_CallerQueryIsReplaced(t *testing.T) {
	tenants := &mockTenantResolver{}
	tenants.On("ResolveTenantID", mock.Anything, mock.Anything).Return("1", nil)
	req := request(t, "bob@acme.com",
		`{"queryData":{"queryName":"q","query":"drop table T"},"publishingInterval":5}`)

	err := NewAssembler(tenants, nil).Assemble(context.Background(), "bob@acme.com", req,
		trustedConfig(map[string]string{"q": "select 1"}))
	require.NoError(t, err)

	out, err := json.Marshal(req.DataProviderConfiguration)
	require.NoError(t, err)
	assert.JSONEq(t, `{"queryData":{"queryName":"q","query":"select 1"},"publishingInterval":5}`, string(out))
}

func TestAssemble_EmptyTenantDomainLeavesPlaceholders(t *testing.T) {
	tenants := &mockTenantResolver{}
	req := request(t, "admin@", `{"queryData":{"queryName":"all"}}`)
	req.Username = "@@"

	err := NewAssembler(tenants, nil).Assemble(context.Background(), "@@", req,
		trustedConfig(map[string]string{"all": tenantTemplate}))
	require.NoError(t, err)
	assert.Equal(t, tenantTemplate, req.DataProviderConfiguration.QueryData.Query)
	tenants.AssertNotCalled(t, "ResolveTenantID", mock.Anything, mock.Anything)
}

func TestAssemble_Errors(t *testing.T) {
	templates := map[string]string{
		"all": tenantTemplate,
		"q":   "select * where x = {{v}}",
	}

	tests := []struct {
		name           string
		providerConfig string
		trusted        *domain.ProviderConfig
		kind           domain.Kind
		message        string
	}{
		{
			name:           "no trusted query data",
			providerConfig: `{"queryData":{"queryName":"q"}}`,
			trusted:        &domain.ProviderConfig{Configs: &domain.ProviderConfigs{}},
			kind:           domain.KindDataIntegrity,
			message:        "providerConfig.configs.config",
		},
		{
			name:    "no caller configuration",
			trusted: trustedConfig(templates),
			kind:    domain.KindValidation,
			message: "query data cannot be found",
		},
		{
			name:           "no query name",
			providerConfig: `{"queryData":{"queryValues":{"{{v}}":"5"}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "query name cannot be found",
		},
		{
			name:           "untrusted query name",
			providerConfig: `{"queryData":{"queryName":"mine"}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindDataIntegrity,
			message:        "cannot find the query 'mine'",
		},
		{
			name:           "null value",
			providerConfig: `{"queryData":{"queryName":"q","queryValues":{"{{v}}":null}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "cannot find the replaceable value for {{v}}",
		},
		{
			name:           "object value",
			providerConfig: `{"queryData":{"queryName":"q","queryValues":{"{{v}}":{"a":1}}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "cannot find the replaceable value for {{v}}",
		},
		{
			name:           "empty key",
			providerConfig: `{"queryData":{"queryName":"q","queryValues":{"":"5"}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "keys cannot be empty",
		},
		{
			name:           "key overriding a tenant placeholder",
			providerConfig: `{"queryData":{"queryName":"all","queryValues":{"{{contextCondition}}":"like '%'"}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "tenant placeholders",
		},
		{
			name:           "key corrupting a tenant placeholder",
			providerConfig: `{"queryData":{"queryName":"all","queryValues":{"context":"x"}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "tenant placeholders",
		},
		{
			name:           "value injecting a tenant placeholder",
			providerConfig: `{"queryData":{"queryName":"q","queryValues":{"{{v}}":"{{tenantId}}"}}}`,
			trusted:        trustedConfig(templates),
			kind:           domain.KindValidation,
			message:        "tenant placeholders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := &mockTenantResolver{}
			req := request(t, "bob@acme.com", tt.providerConfig)

			err := NewAssembler(tenants, nil).Assemble(context.Background(), "bob@acme.com", req, tt.trusted)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
			tenants.AssertNotCalled(t, "ResolveTenantID", mock.Anything, mock.Anything)
		})
	}
}

func TestAssemble_TenantLookupFailurePropagates(t *testing.T) {
	lookupErr := domain.NewError(domain.KindRemoteUnauthorized, "unauthorized, status code: 401", nil)
	tenants := &mockTenantResolver{}
	tenants.On("ResolveTenantID", mock.Anything, "bob@acme.com").Return("", lookupErr)
	req := request(t, "bob@acme.com", `{"queryData":{"queryName":"all"}}`)

	err := NewAssembler(tenants, nil).Assemble(context.Background(), "bob@acme.com", req,
		trustedConfig(map[string]string{"all": tenantTemplate}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lookupErr))
	assert.Empty(t, req.DataProviderConfiguration.QueryData.Query)
}
