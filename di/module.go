package di

import (
	"fmt"
	"reflect"

	apperrors "github.com/kbukum/mobilekit/errors"
)

// Module contributes bindings to a container.
type Module interface {
	// Name identifies the module in errors and introspection.
	Name() string

	// Configure declares the module's bindings on the binder.
	Configure(b *Binder) error
}

type funcModule struct {
	name      string
	configure func(*Binder) error
}

func (m *funcModule) Name() string               { return m.name }
func (m *funcModule) Configure(b *Binder) error { return m.configure(b) }

// NewModule creates a Module from a configure function.
func NewModule(name string, configure func(*Binder) error) Module {
	return &funcModule{name: name, configure: configure}
}

// Binder collects the bindings declared by modules.
type Binder struct {
	module        string
	registrations []*registration
	errs          []error
}

// Provide binds T to a constructor.
//
// The constructor must be a function returning T or (T, error). Its
// parameters are resolved from the container by type; context.Context and
// Injector parameters are supplied by the container itself.
func Provide[T any](b *Binder, mode RegistrationMode, constructor any) {
	key := reflect.TypeFor[T]()
	if mode == Singleton {
		b.fail(apperrors.Binding(fmt.Sprintf("%s: use Bind for singleton instances", key)))
		return
	}

	fn := reflect.ValueOf(constructor)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		b.fail(apperrors.Binding(fmt.Sprintf("%s: constructor must be a function, got %T", key, constructor)))
		return
	}

	fnType := fn.Type()
	if fnType.IsVariadic() {
		b.fail(apperrors.Binding(fmt.Sprintf("%s: variadic constructors are not supported", key)))
		return
	}
	switch fnType.NumOut() {
	case 1:
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			b.fail(apperrors.Binding(fmt.Sprintf("%s: second constructor result must be error", key)))
			return
		}
	default:
		b.fail(apperrors.Binding(fmt.Sprintf("%s: constructor must return (T) or (T, error)", key)))
		return
	}
	if !fnType.Out(0).AssignableTo(key) {
		b.fail(apperrors.Binding(fmt.Sprintf("%s: constructor returns %s", key, fnType.Out(0))))
		return
	}

	deps := make([]reflect.Type, fnType.NumIn())
	for i := range deps {
		deps[i] = fnType.In(i)
	}

	b.registrations = append(b.registrations, &registration{
		key:         key,
		mode:        mode,
		constructor: fn,
		deps:        deps,
		module:      b.module,
	})
}

// Bind binds T to a pre-built instance.
func Bind[T any](b *Binder, instance T) {
	b.registrations = append(b.registrations, &registration{
		key:         reflect.TypeFor[T](),
		mode:        Singleton,
		instance:    instance,
		initialized: true,
		module:      b.module,
	})
}

// BindScope binds the scenario scope that Scenario registrations live in.
func BindScope(b *Binder, scope *ScenarioScope) {
	Bind(b, scope)
}

func (b *Binder) fail(err error) {
	b.errs = append(b.errs, fmt.Errorf("module %s: %w", b.module, err))
}
