package services

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/component"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/di"
	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
)

// locator is the process-wide state behind the package functions.
type locator struct {
	mu        sync.Mutex
	container *di.Container
	app       appium.Application
}

var std = &locator{}

// InitInjector builds the locator's container from modules, replacing and
// closing a previous one. The application of a previous container is
// forgotten, not quit; call Shutdown first to release it.
func InitInjector(modules ...di.Module) error {
	c, err := di.New(di.Development, modules...)
	if err != nil {
		return err
	}

	std.mu.Lock()
	prev := std.container
	std.container = c
	std.app = nil
	std.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			log().Warn("closing previous service container", logger.ErrorFields("init_injector", err))
		}
	}
	log().Debug("service locator initialized", logger.Fields("modules", len(modules)))
	return nil
}

// Injector returns the locator's container, or nil before InitInjector.
func Injector() di.Injector {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.container == nil {
		return nil
	}
	return std.container
}

// Get resolves T from the locator's container.
func Get[T any]() (T, error) {
	inj := Injector()
	if inj == nil {
		var zero T
		return zero, errNotInitialized()
	}
	return di.Resolve[T](inj)
}

// IsApplicationStarted reports whether an application is running.
func IsApplicationStarted() bool {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.app != nil
}

// Application returns the running application, starting it through the
// bound appium.ApplicationFactory on first use.
func Application(ctx context.Context) (appium.Application, error) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.app != nil {
		return std.app, nil
	}
	if std.container == nil {
		return nil, errNotInitialized()
	}

	factory, err := di.Resolve[appium.ApplicationFactory](std.container)
	if err != nil {
		return nil, err
	}
	app, err := factory.Application(ctx)
	if err != nil {
		return nil, err
	}
	track(app)
	std.app = app
	return app, nil
}

// SetApplication replaces the running application. A nil app marks the
// application as not started.
func SetApplication(app appium.Application) {
	track(app)
	std.mu.Lock()
	defer std.mu.Unlock()
	std.app = app
}

// track makes a successful Quit of app mark the application as not started.
func track(app appium.Application) {
	if m, ok := app.(*appium.MobileApplication); ok {
		m.OnQuit(func() { forget(app) })
	}
}

// forget clears app if it is still the running application.
func forget(app appium.Application) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.app == app {
		std.app = nil
	}
}

// Settings returns the bound settings.
func Settings() (*config.Settings, error) {
	return Get[*config.Settings]()
}

// Logger returns the bound logger, falling back to the global one.
func Logger() *logger.Logger {
	if l, err := Get[*logger.Logger](); err == nil && l != nil {
		return l
	}
	return logger.GetGlobalLogger()
}

// Components returns the registry of process-wide components.
func Components() (*component.Registry, error) {
	return Get[*component.Registry]()
}

// Shutdown quits a running application, stops the process-wide components
// and closes the container. The locator can be initialized again afterwards.
func Shutdown(ctx context.Context) error {
	std.mu.Lock()
	app, c := std.app, std.container
	std.app, std.container = nil, nil
	std.mu.Unlock()

	var errs []error
	if app != nil {
		if err := app.Quit(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c != nil {
		if registry, ok := di.TryResolve[*component.Registry](c); ok && registry != nil {
			if err := registry.StopAll(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		log().Error("service locator shutdown failed", logger.ErrorFields("shutdown", err))
		return err
	}
	log().Debug("service locator shut down")
	return nil
}

// Reset drops all locator state without quitting or stopping anything.
func Reset() {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.container = nil
	std.app = nil
}

// Provider returns an appium.ApplicationProvider backed by the locator.
func Provider() appium.ApplicationProvider { return provider{} }

type provider struct{}

func (provider) Application(ctx context.Context) (appium.Application, error) {
	return Application(ctx)
}

func (provider) IsStarted() bool { return IsApplicationStarted() }

func log() *logger.Logger { return logger.Get(logger.ComponentLocator) }

func errNotInitialized() error {
	return errors.Binding("service locator is not initialized, call InitInjector first")
}
