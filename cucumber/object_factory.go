package cucumber

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/kbukum/mobilekit/di"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/modules"
	"github.com/kbukum/mobilekit/services"
)

// ObjectFactory creates the instances step definitions run against.
//
// Start and Stop bracket one scenario. Scenario-scoped instances returned by
// GetInstance between them are shared; the next scenario gets new ones.
type ObjectFactory interface {
	Start() error
	Stop() error
	AddClass(t reflect.Type) bool
	GetInstance(t reflect.Type) (any, error)
}

var _ ObjectFactory = (*CustomObjectFactory)(nil)

// CustomObjectFactory resolves step definition types from a container whose
// scenario scope is entered by Start and exited by Stop.
type CustomObjectFactory struct {
	container *di.Container
	scope     *di.ScenarioScope
	log       *logger.Logger

	mu      sync.Mutex
	classes []reflect.Type
}

// NewCustomObjectFactory builds a production container from the scenario
// module, the service module, mobile and the given step modules, then
// registers mobile with the service locator. Every binding is validated and
// every singleton built before the first scenario runs; a factory that fails
// to build leaves the locator untouched.
func NewCustomObjectFactory(mobile *modules.MobileModule, steps ...di.Module) (*CustomObjectFactory, error) {
	scope := di.NewScenarioScope()
	all := append([]di.Module{
		NewScenarioModule(scope),
		modules.NewServiceModule(),
		mobile,
	}, steps...)

	container, err := di.New(di.Production, all...)
	if err != nil {
		return nil, err
	}
	if err := services.InitInjector(mobile); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("init service locator: %w", err)
	}
	return &CustomObjectFactory{
		container: container,
		scope:     scope,
		log:       logger.Get(logger.ComponentObjectFactory),
	}, nil
}

// Start enters a new scenario scope.
func (f *CustomObjectFactory) Start() error {
	if err := f.scope.Enter(); err != nil {
		return err
	}
	f.log.Debug("scenario scope entered", logger.Fields(logger.FieldScenarioID, f.scope.ID()))
	return nil
}

// Stop exits the scenario scope.
func (f *CustomObjectFactory) Stop() error {
	id := f.scope.ID()
	if err := f.scope.Exit(); err != nil {
		return err
	}
	f.log.Debug("scenario scope exited", logger.Fields(logger.FieldScenarioID, id))
	return nil
}

// AddClass accepts every type; bindings come from modules.
func (f *CustomObjectFactory) AddClass(t reflect.Type) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes = append(f.classes, t)
	return true
}

// Classes returns the types passed to AddClass.
func (f *CustomObjectFactory) Classes() []reflect.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reflect.Type(nil), f.classes...)
}

// GetInstance resolves t from the container.
func (f *CustomObjectFactory) GetInstance(t reflect.Type) (any, error) {
	return f.container.Resolve(t)
}

// Container returns the underlying container.
func (f *CustomObjectFactory) Container() *di.Container { return f.container }

// Close closes the container. An active scenario scope is exited first.
func (f *CustomObjectFactory) Close() error {
	if f.scope.Active() {
		if err := f.scope.Exit(); err != nil {
			f.log.Warn("exit scenario scope on close", logger.ErrorFields("close", err))
		}
	}
	return f.container.Close()
}

// Instance resolves T from f.
func Instance[T any](f ObjectFactory) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	v, err := f.GetInstance(t)
	if err != nil {
		return zero, err
	}
	result, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cucumber: instance for %s has type %T", t, v)
	}
	return result, nil
}

// NewScenarioModule binds scope as the scenario scope of the container.
func NewScenarioModule(scope *di.ScenarioScope) di.Module {
	return di.NewModule("scenario", func(b *di.Binder) error {
		di.BindScope(b, scope)
		return nil
	})
}
