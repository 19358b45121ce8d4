package modules

import (
	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/component"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/di"
	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
	"github.com/kbukum/mobilekit/services"
)

// MobileModuleName is the name of the mobile module in errors and
// introspection.
const MobileModuleName = "mobile"

// MobileModule binds the mobile automation services: settings, logger,
// the application factory and lazy access to the running application.
//
// One MobileModule may configure several containers. Settings and the
// component registry are shared instances, so every container sees the
// same local Appium service.
type MobileModule struct {
	settings *config.Settings
	registry *component.Registry
	metrics  *observability.Metrics
}

var _ di.Module = (*MobileModule)(nil)

// MobileOption configures a MobileModule.
type MobileOption func(*MobileModule)

// WithRegistry sets the registry that owns process-wide components.
func WithRegistry(r *component.Registry) MobileOption {
	return func(m *MobileModule) { m.registry = r }
}

// WithMetrics records session and command metrics.
func WithMetrics(metrics *observability.Metrics) MobileOption {
	return func(m *MobileModule) { m.metrics = metrics }
}

// NewMobileModule creates the module for settings.
func NewMobileModule(settings *config.Settings, opts ...MobileOption) *MobileModule {
	m := &MobileModule{settings: settings}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = component.NewRegistry()
	}
	return m
}

// LoadMobileModule loads settings and creates the module.
func LoadMobileModule(loaderOpts []config.LoaderOption, opts ...MobileOption) (*MobileModule, error) {
	settings, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, err
	}
	return NewMobileModule(settings, opts...), nil
}

// Name implements di.Module.
func (m *MobileModule) Name() string { return MobileModuleName }

// Settings returns the module settings.
func (m *MobileModule) Settings() *config.Settings { return m.settings }

// Registry returns the component registry.
func (m *MobileModule) Registry() *component.Registry { return m.registry }

// Configure implements di.Module.
func (m *MobileModule) Configure(b *di.Binder) error {
	if m.settings == nil {
		return errors.InvalidConfig("mobile module requires settings")
	}

	di.Bind(b, m.settings)
	di.Bind(b, m.registry)
	if m.metrics != nil {
		di.Bind(b, m.metrics)
	}

	di.Provide[*logger.Logger](b, di.Lazy, newLogger)
	di.Provide[appium.ApplicationFactory](b, di.Lazy, m.newApplicationFactory)
	di.Provide[appium.ApplicationProvider](b, di.Lazy, services.Provider)
	return nil
}

func newLogger(s *config.Settings) *logger.Logger {
	return logger.New(&s.Logging, s.Name)
}

func (m *MobileModule) newApplicationFactory(s *config.Settings, r *component.Registry) (appium.ApplicationFactory, error) {
	var opts []appium.FactoryOption
	if m.metrics != nil {
		opts = append(opts, appium.WithMetrics(m.metrics))
	}
	return appium.NewApplicationFactory(s, r, opts...)
}
