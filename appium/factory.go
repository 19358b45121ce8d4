package appium

import (
	"context"
	"time"

	"github.com/kbukum/mobilekit/component"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
	"github.com/kbukum/mobilekit/resilience"
)

// ApplicationFactory creates the application under test.
type ApplicationFactory interface {
	Application(ctx context.Context) (Application, error)
}

// ApplicationProvider gives step definitions lazy access to the
// application of the current run.
type ApplicationProvider interface {
	// Application returns the running application, starting it if needed.
	Application(ctx context.Context) (Application, error)
	// IsStarted reports whether an application is running.
	IsStarted() bool
}

// FactoryOption configures a factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	metrics *observability.Metrics
}

// WithMetrics records session and command metrics.
func WithMetrics(m *observability.Metrics) FactoryOption {
	return func(o *factoryOptions) { o.metrics = m }
}

// RemoteApplicationFactory creates sessions on an already running Appium
// server.
type RemoteApplicationFactory struct {
	settings  *config.Settings
	serverURL string
	opts      factoryOptions
	log       *logger.Logger
}

// NewRemoteApplicationFactory creates sessions on settings.ServerURL().
func NewRemoteApplicationFactory(settings *config.Settings, opts ...FactoryOption) *RemoteApplicationFactory {
	return newSessionFactory(settings, settings.ServerURL(), opts)
}

func newSessionFactory(settings *config.Settings, serverURL string, opts []FactoryOption) *RemoteApplicationFactory {
	f := &RemoteApplicationFactory{
		settings:  settings,
		serverURL: serverURL,
		log:       logger.Get(logger.ComponentApplication),
	}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

// ServerURL returns the server sessions are created on.
func (f *RemoteApplicationFactory) ServerURL() string { return f.serverURL }

// Application creates a session, retrying failed attempts per the retry
// settings.
func (f *RemoteApplicationFactory) Application(ctx context.Context) (Application, error) {
	platform, err := ParsePlatform(f.settings.Application.Platform)
	if err != nil {
		return nil, err
	}
	capabilities := f.settings.Capabilities()
	cfg := DriverConfig{
		ServerURL:      f.serverURL,
		CommandTimeout: f.settings.Timeouts.Command,
		SessionTimeout: f.settings.Timeouts.SessionCreation,
		Metrics:        f.opts.metrics,
	}

	retry := sessionRetryConfig(f.settings.Retry)
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		f.log.Warn("session creation failed, retrying", logger.MergeWithError(logger.Fields(
			logger.FieldAttempt, attempt,
			"backoff", backoff.String(),
		), err))
	}
	driver, err := resilience.Retry(ctx, retry, func() (*Driver, error) {
		return NewSession(ctx, cfg, capabilities)
	})
	if err != nil {
		return nil, err
	}

	appID := appIDFrom(platform, f.settings.Platform().AppID, capabilities)
	f.log.Info("application started", logger.Fields(
		logger.FieldPlatform, platform.String(),
		logger.FieldSessionID, driver.SessionID(),
	))
	return NewApplication(driver, platform, appID), nil
}

// sessionRetryConfig retries a failed session Number more times with a
// fixed pause of PollingInterval.
func sessionRetryConfig(s config.RetrySettings) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    s.Number + 1,
		InitialBackoff: s.PollingInterval,
		MaxBackoff:     s.PollingInterval,
		BackoffFactor:  1,
		RetryIf:        errors.IsRetryable,
	}
}

// LocalApplicationFactory starts a local Appium server on first use and
// creates sessions on it. The server is a component of the registry, so it
// is stopped with the other process-wide components.
type LocalApplicationFactory struct {
	sessions *RemoteApplicationFactory
	service  *LocalService
	registry *component.Registry
}

// NewLocalApplicationFactory registers a LocalService with registry.
func NewLocalApplicationFactory(settings *config.Settings, registry *component.Registry, opts ...FactoryOption) (*LocalApplicationFactory, error) {
	service, err := NewLocalService(settings.Appium)
	if err != nil {
		return nil, err
	}
	if registry.Get(service.Name()) == nil {
		if err := registry.Register(service); err != nil {
			return nil, err
		}
	} else if existing, ok := registry.Get(service.Name()).(*LocalService); ok {
		service = existing
	}
	return &LocalApplicationFactory{
		sessions: newSessionFactory(settings, service.URL(), opts),
		service:  service,
		registry: registry,
	}, nil
}

// Service returns the local Appium server.
func (f *LocalApplicationFactory) Service() *LocalService { return f.service }

// Application starts the server if needed and creates a session on it.
func (f *LocalApplicationFactory) Application(ctx context.Context) (Application, error) {
	if err := f.registry.Start(ctx, f.service.Name()); err != nil {
		return nil, err
	}
	return f.sessions.Application(ctx)
}

// NewApplicationFactory returns a remote or local factory per settings.
func NewApplicationFactory(settings *config.Settings, registry *component.Registry, opts ...FactoryOption) (ApplicationFactory, error) {
	if settings.Application.IsRemote {
		return NewRemoteApplicationFactory(settings, opts...), nil
	}
	return NewLocalApplicationFactory(settings, registry, opts...)
}
