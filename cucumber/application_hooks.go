package cucumber

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
)

// CloseApplicationOrder is the after-hook order of CloseApplication. It runs
// before every other after hook.
const CloseApplicationOrder = 0

// ApplicationHooks closes the application under test after each scenario.
type ApplicationHooks struct {
	provider appium.ApplicationProvider
	metrics  *observability.Metrics
	log      *logger.Logger
}

// NewApplicationHooks creates the hooks. metrics may be nil.
func NewApplicationHooks(provider appium.ApplicationProvider, metrics *observability.Metrics) *ApplicationHooks {
	return &ApplicationHooks{
		provider: provider,
		metrics:  metrics,
		log:      logger.Get(logger.ComponentHooks),
	}
}

// Register adds CloseApplication to hooks.
func (h *ApplicationHooks) Register(hooks *Hooks) {
	hooks.After("close application", CloseApplicationOrder, h.CloseApplication)
}

// CloseApplication terminates and then quits a started application. It does
// nothing when no application was started. A Terminate failure is returned
// without quitting.
func (h *ApplicationHooks) CloseApplication(ctx context.Context) error {
	if !h.provider.IsStarted() {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanAppClose)
	defer span.End()

	app, err := h.provider.Application(ctx)
	if err != nil {
		return h.fail(ctx, span, "", err)
	}
	platform := app.Platform().String()
	span.SetAttributes(attribute.String(observability.AttrPlatform, platform))

	if err := app.Terminate(ctx); err != nil {
		return h.fail(ctx, span, platform, err)
	}
	if err := app.Quit(ctx); err != nil {
		return h.fail(ctx, span, platform, err)
	}

	if h.metrics != nil {
		h.metrics.RecordAppClose(ctx, platform, observability.StatusOK)
	}
	h.log.WithContext(ctx).Info("application closed", logger.Fields(logger.FieldPlatform, platform))
	return nil
}

func (h *ApplicationHooks) fail(ctx context.Context, span trace.Span, platform string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if h.metrics != nil {
		h.metrics.RecordAppClose(ctx, platform, observability.StatusError)
	}
	return err
}
