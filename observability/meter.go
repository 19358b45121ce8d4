package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/mobilekit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down when the run ends.
func InitMeter(ctx context.Context, config Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Scenario and command statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusOK     = "ok"
	StatusError  = "error"
)

// Metrics holds the instruments recorded during a test run.
type Metrics struct {
	scenarioTotal    metric.Int64Counter
	scenarioDuration metric.Float64Histogram
	scenarioActive   metric.Int64UpDownCounter
	appCloseTotal    metric.Int64Counter
	commandTotal     metric.Int64Counter
	commandDuration  metric.Float64Histogram
	errorTotal       metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	scenarioTotal, err := meter.Int64Counter("scenario.total",
		metric.WithDescription("Total number of scenarios run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scenario.total counter: %w", err)
	}

	scenarioDuration, err := meter.Float64Histogram("scenario.duration",
		metric.WithDescription("Duration of scenarios in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scenario.duration histogram: %w", err)
	}

	scenarioActive, err := meter.Int64UpDownCounter("scenario.active",
		metric.WithDescription("Number of scenarios currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scenario.active gauge: %w", err)
	}

	appCloseTotal, err := meter.Int64Counter("application.close.total",
		metric.WithDescription("Applications terminated and quit after a scenario"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating application.close.total counter: %w", err)
	}

	commandTotal, err := meter.Int64Counter("appium.command.total",
		metric.WithDescription("Total number of Appium commands sent"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating appium.command.total counter: %w", err)
	}

	commandDuration, err := meter.Float64Histogram("appium.command.duration",
		metric.WithDescription("Duration of Appium commands in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating appium.command.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		scenarioTotal:    scenarioTotal,
		scenarioDuration: scenarioDuration,
		scenarioActive:   scenarioActive,
		appCloseTotal:    appCloseTotal,
		commandTotal:     commandTotal,
		commandDuration:  commandDuration,
		errorTotal:       errorTotal,
	}, nil
}

// RecordScenarioStart increments the active scenario count.
func (m *Metrics) RecordScenarioStart(ctx context.Context) {
	m.scenarioActive.Add(ctx, 1)
}

// RecordScenarioEnd decrements active scenarios and records the finished one.
func (m *Metrics) RecordScenarioEnd(ctx context.Context, platform, status string, duration time.Duration) {
	m.scenarioActive.Add(ctx, -1)
	m.scenarioTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("status", status),
	))
	m.scenarioDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("platform", platform),
	))
}

// RecordAppClose records an after-scenario terminate and quit.
func (m *Metrics) RecordAppClose(ctx context.Context, platform, status string) {
	m.appCloseTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("status", status),
	))
}

// RecordCommand records one Appium command.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string, duration time.Duration) {
	m.commandTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
	m.commandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("command", command),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
