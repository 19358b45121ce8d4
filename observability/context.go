package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScenarioContext holds observability context for a running scenario.
type ScenarioContext struct {
	ScenarioID   string
	ScenarioName string
	URI          string
	Platform     string
	StartTime    time.Time
	Metrics      *Metrics
}

// NewScenarioContext creates a new scenario context.
// If metrics is nil, metric recording is silently skipped.
func NewScenarioContext(id, name, uri, platform string, metrics *Metrics) *ScenarioContext {
	return &ScenarioContext{
		ScenarioID:   id,
		ScenarioName: name,
		URI:          uri,
		Platform:     platform,
		StartTime:    time.Now(),
		Metrics:      metrics,
	}
}

type scenarioContextKey struct{}

// WithScenarioContext stores a ScenarioContext in the context.
func WithScenarioContext(ctx context.Context, sc *ScenarioContext) context.Context {
	return context.WithValue(ctx, scenarioContextKey{}, sc)
}

// ScenarioContextFromContext retrieves the ScenarioContext from context, or nil.
func ScenarioContextFromContext(ctx context.Context) *ScenarioContext {
	if sc, ok := ctx.Value(scenarioContextKey{}).(*ScenarioContext); ok {
		return sc
	}
	return nil
}

// StartScenario starts the scenario span and records the scenario start metric.
func (sc *ScenarioContext) StartScenario(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanScenario)
	span.SetAttributes(
		attribute.String(AttrScenarioID, sc.ScenarioID),
		attribute.String(AttrScenarioName, sc.ScenarioName),
		attribute.String(AttrScenarioURI, sc.URI),
		attribute.String(AttrPlatform, sc.Platform),
	)

	if sc.Metrics != nil {
		sc.Metrics.RecordScenarioStart(ctx)
	}
	return WithScenarioContext(ctx, sc), span
}

// EndScenario ends the span and records scenario-end metrics.
func (sc *ScenarioContext) EndScenario(ctx context.Context, span trace.Span, err error) {
	duration := time.Since(sc.StartTime)
	status := StatusPassed

	if err != nil {
		status = StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if sc.Metrics != nil {
		sc.Metrics.RecordScenarioEnd(ctx, sc.Platform, status, duration)
	}
}

// Duration returns the elapsed time since the scenario started.
func (sc *ScenarioContext) Duration() time.Duration {
	return time.Since(sc.StartTime)
}
