// Package tenant resolves the tenant id of a user through the admin REST API.
package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bcnelson/widget-authorizer/internal/config"
	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Resolver resolves tenant ids. Credentials are read from the section provider and
// a fresh client is built on every call, so configuration changes apply without a
// restart. Nothing is cached.
type Resolver struct {
	sections config.SectionProvider
	clients  ClientFactory
	log      *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewResolver creates a resolver. log, m and tracer may be nil.
func NewResolver(sections config.SectionProvider, clients ClientFactory, log *slog.Logger, m *metrics.Metrics, tracer trace.Tracer) *Resolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Resolver{sections: sections, clients: clients, log: log, metrics: m, tracer: tracer}
}

type tenantIDResponse struct {
	TenantID json.RawMessage `json:"tenantId"`
}

// ResolveTenantID returns the id of the tenant owning username.
func (r *Resolver) ResolveTenantID(ctx context.Context, username string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "tenant.ResolveTenantID",
		trace.WithAttributes(attribute.String("tenant.domain", domain.TenantDomain(username))))
	defer span.End()

	start := time.Now()
	tenantID, outcome, err := r.resolve(ctx, username)
	r.metrics.RecordTenantLookup(outcome, time.Since(start))
	span.SetAttributes(attribute.String("tenant.lookup.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.ErrorContext(ctx, "tenant id lookup failed", "outcome", outcome, "error", err)
		return "", err
	}
	return tenantID, nil
}

func (r *Resolver) resolve(ctx context.Context, username string) (string, string, error) {
	cfg, err := LoadAdminAuthConfig(r.sections)
	if err != nil {
		return "", metrics.OutcomeConfig, err
	}

	resp, err := r.clients(cfg).GetTenantID(ctx, username)
	if err != nil {
		return "", metrics.OutcomeUnreachable,
			domain.NewError(domain.KindRemoteUnreachable, "unable to reach the admin rest api", err)
	}
	if resp == nil {
		return "", metrics.OutcomeRemote,
			domain.Errorf(domain.KindRemote, "response returned from the admin rest api is empty")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		tenantID, err := decodeTenantID(resp.Body)
		if err != nil {
			return "", metrics.OutcomeDecode,
				domain.NewError(domain.KindRemoteDecode, "error occurred while parsing the admin rest api response", err)
		}
		if tenantID == "" {
			return "", metrics.OutcomeRemote, domain.Errorf(domain.KindRemote, "tenant id cannot be found")
		}
		return tenantID, metrics.OutcomeSuccess, nil
	case http.StatusUnauthorized:
		return "", metrics.OutcomeUnauthorized, domain.Errorf(domain.KindRemoteUnauthorized,
			"unauthorized to get response from admin rest api, status code: %d", resp.StatusCode)
	default:
		return "", metrics.OutcomeRemote, domain.Errorf(domain.KindRemote,
			"unknown error occurred while getting response from admin rest api, status code: %d", resp.StatusCode)
	}
}

// decodeTenantID accepts the id as a JSON string or number. A missing or null id
// decodes to "".
func decodeTenantID(body []byte) (string, error) {
	var payload tenantIDResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	raw := bytes.TrimSpace(payload.TenantID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("tenantId must be a string or a number, got %s", raw)
}
