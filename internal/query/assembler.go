// Package query turns a widget's trusted query template into the tenant-scoped
// query a data provider executes.
package query

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/bcnelson/widget-authorizer/internal/domain"
)

// Placeholders resolved only by the server.
const (
	ContextConditionKey         = "{{contextCondition}}"
	ContextContainsConditionKey = "{{contextContainsCondition}}"
	TenantDomainKey             = "{{tenantDomain}}"
	TenantIDKey                 = "{{tenantId}}"
)

// Tenant isolation predicates. The tenant variants embed TenantDomainKey, which is
// filled in after the predicates are placed.
const (
	NotLikeContextPath      = "not like '/t/%'"
	LikeContextPath         = "like '/t/" + TenantDomainKey + "/%'"
	StringNotContainContext = "NOT(str:contains(CONTEXT,'/t/'))"
	StringContainContext    = "(str:contains(CONTEXT,'/t/" + TenantDomainKey + "'))"
)

// reservedKeys in replacement order.
var reservedKeys = []string{
	ContextConditionKey,
	ContextContainsConditionKey,
	TenantDomainKey,
	TenantIDKey,
}

// TenantIDResolver resolves the id of the tenant owning a user.
type TenantIDResolver interface {
	ResolveTenantID(ctx context.Context, username string) (string, error)
}

// Assembler builds executable queries. It holds no per-call state and is safe for
// concurrent use.
type Assembler struct {
	tenants TenantIDResolver
	log     *slog.Logger
}

// NewAssembler creates an assembler resolving tenant ids through tenants.
func NewAssembler(tenants TenantIDResolver, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{tenants: tenants, log: log}
}

// Assemble selects the template named by the request, substitutes the caller's values,
// scopes it to the user's tenant and writes the result to
// req.DataProviderConfiguration.QueryData.Query.
//
// Caller values are substituted before the tenant placeholders, and a substitution
// that adds or removes a tenant placeholder is rejected. A username whose tenant
// domain is empty leaves the tenant placeholders unresolved.
func (a *Assembler) Assemble(ctx context.Context, username string, req *domain.SubscriptionRequest, trusted *domain.ProviderConfig) error {
	tenantDomain := domain.TenantDomain(username)

	templates, err := trusted.QueryTemplates()
	if err != nil {
		return err
	}

	queryData, queryName, err := callerQuery(req)
	if err != nil {
		return err
	}

	query, ok := templates[queryName]
	if !ok {
		return domain.Errorf(domain.KindDataIntegrity,
			"cannot find the query '%s' in the widget configuration", queryName)
	}

	if queryData.QueryValues != nil {
		if query, err = substituteValues(query, queryData.QueryValues.Entries); err != nil {
			return err
		}
	}

	if tenantDomain != "" {
		tenant := domain.TenantContext{Domain: tenantDomain}
		if tenant.ID, err = a.tenants.ResolveTenantID(ctx, username); err != nil {
			return err
		}
		query = scopeToTenant(query, tenant)
	} else {
		a.log.WarnContext(ctx, "username has no tenant domain, tenant placeholders left unresolved",
			"widget", req.WidgetName, "query_name", queryName)
	}

	queryData.Query = query
	return nil
}

func callerQuery(req *domain.SubscriptionRequest) (*domain.QueryData, string, error) {
	if req.DataProviderConfiguration == nil || req.DataProviderConfiguration.QueryData == nil {
		return nil, "", domain.NewValidationError("queryData",
			"query data cannot be found in the data provider configuration", nil)
	}
	queryData := req.DataProviderConfiguration.QueryData
	if queryData.QueryName == nil || *queryData.QueryName == "" {
		return nil, "", domain.NewValidationError("queryName",
			"query name cannot be found in the data provider configuration", nil)
	}
	return queryData, *queryData.QueryName, nil
}

// substituteValues replaces every key token with its value, in the order the caller
// sent them. Keys are matched case-sensitively.
func substituteValues(query string, values []domain.QueryValue) (string, error) {
	before := countReserved(query)
	for _, v := range values {
		if v.Key == "" {
			return "", domain.NewValidationError("queryValues", "query value keys cannot be empty", nil)
		}
		if v.Value == nil {
			return "", domain.NewValidationError("queryValues",
				"cannot find the replaceable value for "+v.Key, nil)
		}
		query = strings.ReplaceAll(query, v.Key, *v.Value)
	}
	if countReserved(query) != before {
		return "", domain.NewValidationError("queryValues",
			"query values cannot add or remove tenant placeholders", domain.ErrInvalidInput)
	}
	return query, nil
}

func countReserved(query string) [4]int {
	var counts [4]int
	for i, key := range reservedKeys {
		counts[i] = strings.Count(query, key)
	}
	return counts
}

// scopeToTenant places the isolation predicates for tenant and then fills in the
// tenant domain and id.
func scopeToTenant(query string, tenant domain.TenantContext) string {
	contextCondition, containsCondition := LikeContextPath, StringContainContext
	if tenant.IsSuperTenant() {
		contextCondition, containsCondition = NotLikeContextPath, StringNotContainContext
	}
	query = strings.ReplaceAll(query, ContextConditionKey, contextCondition)
	query = strings.ReplaceAll(query, ContextContainsConditionKey, containsCondition)
	query = strings.ReplaceAll(query, TenantDomainKey, tenant.Domain)
	query = strings.ReplaceAll(query, TenantIDKey, tenant.ID)
	return query
}
