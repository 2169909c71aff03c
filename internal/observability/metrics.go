// Package observability exposes the handful of counters the patch pipeline
// and websocket layer report. Instruments come from the global otel meter
// provider; with no SDK installed they are no-ops, so callers never need to
// guard their calls.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	patchesApplied metric.Int64Counter
	jobsSuppressed metric.Int64Counter
	providerErrors metric.Int64Counter
	wsSessions     metric.Int64UpDownCounter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("senseboard")

	patches, err := meter.Int64Counter("senseboard.patches_applied",
		metric.WithDescription("AI patches applied to a board"))
	if err != nil {
		return nil, err
	}
	suppressed, err := meter.Int64Counter("senseboard.jobs_suppressed",
		metric.WithDescription("Patch jobs that ended without applying, by reason"))
	if err != nil {
		return nil, err
	}
	provErrs, err := meter.Int64Counter("senseboard.provider_errors",
		metric.WithDescription("Model provider call failures"))
	if err != nil {
		return nil, err
	}
	sessions, err := meter.Int64UpDownCounter("senseboard.ws.sessions",
		metric.WithDescription("Open websocket sessions"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		patchesApplied: patches,
		jobsSuppressed: suppressed,
		providerErrors: provErrs,
		wsSessions:     sessions,
	}, nil
}

func (m *Metrics) PatchApplied(ctx context.Context, personal bool) {
	if m == nil {
		return
	}
	m.patchesApplied.Add(ctx, 1, metric.WithAttributes(attribute.Bool("personal", personal)))
}

func (m *Metrics) JobSuppressed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.jobsSuppressed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) ProviderError(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.providerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.wsSessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.wsSessions.Add(ctx, -1)
}
