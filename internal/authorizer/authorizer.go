// Package authorizer decides whether a user may subscribe to the data feed behind a
// dashboard widget and, when allowed, rewrites the request's query.
package authorizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bcnelson/widget-authorizer/internal/domain"
	"github.com/bcnelson/widget-authorizer/internal/logger"
	"github.com/bcnelson/widget-authorizer/internal/metrics"
	"github.com/bcnelson/widget-authorizer/internal/storage"
	"github.com/bcnelson/widget-authorizer/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// QueryAssembler rewrites the request's query from the widget's trusted templates.
type QueryAssembler interface {
	Assemble(ctx context.Context, username string, req *domain.SubscriptionRequest, trusted *domain.ProviderConfig) error
}

// Authorizer is stateless between calls and safe for concurrent use.
type Authorizer struct {
	dashboards storage.DashboardProvider
	widgets    storage.WidgetMetadataProvider
	assembler  QueryAssembler
	log        *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// New creates an Authorizer. log, m and tracer may be nil.
func New(dashboards storage.DashboardProvider, widgets storage.WidgetMetadataProvider, assembler QueryAssembler,
	log *slog.Logger, m *metrics.Metrics, tracer trace.Tracer) *Authorizer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Authorizer{
		dashboards: dashboards,
		widgets:    widgets,
		assembler:  assembler,
		log:        log,
		metrics:    m,
		tracer:     tracer,
	}
}

// Authorize reports whether the request may proceed. A denied request returns false
// and no error. On success the query in req.DataProviderConfiguration is replaced
// with the assembled, tenant-scoped query.
func (a *Authorizer) Authorize(ctx context.Context, req *domain.SubscriptionRequest) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "authorizer.Authorize")
	defer span.End()

	allowed, err := a.authorize(ctx, req)
	result := metrics.ResultAllowed
	switch {
	case err != nil:
		result = metrics.ResultError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.ErrorContext(ctx, "authorization failed",
			"request_id", logger.RequestID(ctx), "kind", domain.KindOf(err).String(), "error", err)
	case !allowed:
		result = metrics.ResultDenied
	}
	span.SetAttributes(attribute.String("authorization.result", result))
	a.metrics.RecordAuthorization(result)
	return allowed, err
}

func (a *Authorizer) authorize(ctx context.Context, req *domain.SubscriptionRequest) (bool, error) {
	if req != nil && req.Action.IsUnsubscribe() {
		return true, nil
	}
	if err := validation.ValidateSubscriptionRequest(req); err != nil {
		return false, err
	}

	log := a.log.With("request_id", logger.RequestID(ctx), "dashboard", req.DashboardID, "widget", req.WidgetName)

	dashboard, err := a.dashboards.GetDashboardByUser(ctx, req.Username, req.DashboardID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		log.InfoContext(ctx, "user is not allowed to view the dashboard")
		return false, nil
	case errors.Is(err, domain.ErrNotFound) || (err == nil && dashboard == nil):
		log.InfoContext(ctx, "dashboard not found")
		return false, nil
	case err != nil:
		if domain.KindOf(err) == domain.KindDashboard {
			return false, err
		}
		return false, domain.NewError(domain.KindDashboard,
			fmt.Sprintf("cannot retrieve dashboard '%s'", req.DashboardID), err)
	}

	widgets := dashboard.Content.FindWidgets()
	if !widgets.ContainsFold(domain.WidgetTypeCustom, req.WidgetName) &&
		!widgets.ContainsFold(domain.WidgetTypeGenerated, req.WidgetName) {
		log.InfoContext(ctx, "widget is not part of the dashboard")
		return false, nil
	}

	widget, err := a.widgets.GetWidgetConfiguration(ctx, req.WidgetName)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && widget == nil) {
		return false, domain.Errorf(domain.KindDataIntegrity,
			"widget configuration cannot be found for '%s'", req.WidgetName)
	}
	if err != nil {
		return false, fmt.Errorf("retrieving configuration of widget %s: %w", req.WidgetName, err)
	}

	if err := a.assembler.Assemble(ctx, req.Username, req, widget.Configs.ProviderConfig); err != nil {
		return false, err
	}
	log.DebugContext(ctx, "subscription authorized")
	return true, nil
}
