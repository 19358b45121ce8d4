package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/mobilekit/logger"
)

// Providers owns the tracer and meter providers of a test run.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Metrics        *Metrics
}

// Setup initializes exporters when cfg.Enabled is set and creates the run
// metrics on the global meter. With exporters disabled the metrics are
// recorded against the global no-op provider.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	p := &Providers{}

	if cfg.Enabled {
		tp, err := InitTracer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.TracerProvider = tp

		mp, err := InitMeter(ctx, cfg)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		p.MeterProvider = mp
	} else {
		logger.Debug("observability disabled, using no-op providers")
	}

	metrics, err := NewMetrics(Meter(defaultTracerName))
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	p.Metrics = metrics
	return p, nil
}

// Shutdown flushes and stops the providers that were started.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return stderrors.Join(errs...)
}
