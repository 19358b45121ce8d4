package cucumber

import (
	"context"
	"fmt"

	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/di"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/modules"
	"github.com/kbukum/mobilekit/observability"
	"github.com/kbukum/mobilekit/services"
	"github.com/kbukum/mobilekit/version"
)

// Suite is the default wiring of a mobile test run: logging, telemetry, the
// object factory, the application hooks and the runner.
type Suite struct {
	Settings  *config.Settings
	Providers *observability.Providers
	Factory   *CustomObjectFactory
	Runner    *Runner
}

// SuiteConfig selects the step modules and glue of a suite.
type SuiteConfig struct {
	// Steps bind the step definition types resolved by glue.
	Steps []di.Module
	// Glue registers the step definitions.
	Glue []Glue
	// Options are passed to the mobile module.
	Options []modules.MobileOption
}

// NewSuite wires a run for settings. After the last scenario the runner
// quits the application, stops the local Appium server, closes the
// container and flushes telemetry, in that order.
func NewSuite(ctx context.Context, settings *config.Settings, cfg SuiteConfig) (*Suite, error) {
	logger.Init(&settings.Logging)
	logger.RegisterDefaults()

	providers, err := observability.Setup(ctx, settings.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	opts := append([]modules.MobileOption{modules.WithMetrics(providers.Metrics)}, cfg.Options...)
	factory, err := NewCustomObjectFactory(modules.NewMobileModule(settings, opts...), cfg.Steps...)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}

	provider, err := di.Resolve[appium.ApplicationProvider](factory.Container())
	if err != nil {
		_ = factory.Close()
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	hooks := NewHooks()
	NewApplicationHooks(provider, providers.Metrics).Register(hooks)

	runner := NewRunner(factory,
		WithHooks(hooks),
		WithGlue(cfg.Glue...),
		WithScenarioMetrics(providers.Metrics, settings.Application.Platform),
		WithSuiteCleanup(
			services.Shutdown,
			func(context.Context) error { return factory.Close() },
			providers.Shutdown,
		),
	)

	logger.Info("suite ready", logger.Fields(
		logger.FieldPlatform, settings.Application.Platform,
		"summary", settings.String(),
		"version", version.Short(),
	))
	return &Suite{
		Settings:  settings,
		Providers: providers,
		Factory:   factory,
		Runner:    runner,
	}, nil
}

// LoadSuite loads settings and wires a run.
func LoadSuite(ctx context.Context, cfg SuiteConfig, loaderOpts ...config.LoaderOption) (*Suite, error) {
	settings, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, err
	}
	return NewSuite(ctx, settings, cfg)
}
