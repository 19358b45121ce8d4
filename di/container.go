package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	apperrors "github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
)

// Stage selects how eagerly the container builds its singletons.
type Stage int

const (
	Development Stage = iota // Lazy singletons are built on first resolve
	Production               // Lazy singletons are built when the container is created
)

func (s Stage) String() string {
	if s == Production {
		return "production"
	}
	return "development"
}

// RegistrationMode determines how a binding is resolved.
type RegistrationMode int

const (
	Eager     RegistrationMode = iota // Built when the container is created
	Lazy                              // Built on first resolve (at creation in Production)
	Singleton                         // Pre-created instance
	Scenario                          // One instance per active scenario scope
	Transient                         // New instance on every resolve
)

func (m RegistrationMode) String() string {
	switch m {
	case Eager:
		return "eager"
	case Lazy:
		return "lazy"
	case Singleton:
		return "singleton"
	case Scenario:
		return "scenario"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

func (m RegistrationMode) containerScoped() bool {
	return m == Eager || m == Lazy || m == Singleton
}

// Injector resolves instances by type.
type Injector interface {
	Resolve(t reflect.Type) (interface{}, error)
}

var (
	errorType    = reflect.TypeFor[error]()
	contextType  = reflect.TypeFor[context.Context]()
	injectorType = reflect.TypeFor[Injector]()
	scopeType    = reflect.TypeFor[*ScenarioScope]()
)

// RegistrationInfo describes a binding for introspection.
type RegistrationInfo struct {
	Type        string
	Mode        RegistrationMode
	Module      string
	Initialized bool
}

type registration struct {
	key         reflect.Type
	mode        RegistrationMode
	constructor reflect.Value
	deps        []reflect.Type
	module      string

	mutex       sync.Mutex
	instance    interface{}
	initialized bool
}

// Container is the type-keyed dependency injection container.
type Container struct {
	stage         Stage
	registrations map[reflect.Type]*registration
	order         []reflect.Type
	scope         *ScenarioScope
	mutex         sync.RWMutex
	closed        bool
}

// New builds a container from modules.
//
// The binding graph is validated before anything is constructed. Eager
// bindings are then built; in Production, lazy bindings are built as well.
func New(stage Stage, modules ...Module) (*Container, error) {
	c := &Container{
		stage:         stage,
		registrations: make(map[reflect.Type]*registration),
	}

	var errs []error
	for _, m := range modules {
		b := &Binder{module: m.Name()}
		if err := m.Configure(b); err != nil {
			errs = append(errs, fmt.Errorf("module %s: %w", m.Name(), err))
		}
		errs = append(errs, b.errs...)
		for _, reg := range b.registrations {
			if err := c.add(reg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, joinBindingErrors(errs)
	}

	if reg, ok := c.registrations[scopeType]; ok {
		c.scope, _ = reg.instance.(*ScenarioScope)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	for _, key := range c.order {
		reg := c.registrations[key]
		if reg.mode == Eager || (reg.mode == Lazy && stage == Production) {
			if _, err := c.resolveSingleton(reg); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("Container created", map[string]interface{}{
		"stage":    stage.String(),
		"bindings": len(c.order),
	})
	return c, nil
}

func (c *Container) add(reg *registration) error {
	if reg.key == injectorType {
		return apperrors.Binding(fmt.Sprintf("module %s: %s is provided by the container", reg.module, reg.key))
	}
	if existing, ok := c.registrations[reg.key]; ok {
		return apperrors.Binding(fmt.Sprintf("%s is already bound by module %s (rebound by %s)",
			reg.key, existing.module, reg.module))
	}
	c.registrations[reg.key] = reg
	c.order = append(c.order, reg.key)
	return nil
}

// Stage returns the stage the container was created in.
func (c *Container) Stage() Stage { return c.stage }

// Scope returns the scenario scope bound by the modules, or nil.
func (c *Container) Scope() *ScenarioScope { return c.scope }

// Resolve returns an instance of t.
func (c *Container) Resolve(t reflect.Type) (interface{}, error) {
	if t == injectorType {
		return c, nil
	}

	c.mutex.RLock()
	closed := c.closed
	registration, exists := c.registrations[t]
	c.mutex.RUnlock()

	if closed {
		return nil, apperrors.ResolutionFailed(t, fmt.Errorf("container is closed"))
	}
	if !exists {
		return nil, apperrors.NotRegistered(t)
	}

	switch registration.mode {
	case Singleton:
		return registration.instance, nil
	case Eager, Lazy:
		return c.resolveSingleton(registration)
	case Scenario:
		return c.scope.get(t, func() (interface{}, error) {
			return c.construct(registration)
		})
	case Transient:
		return c.construct(registration)
	default:
		return nil, fmt.Errorf("unknown registration mode for %s", t)
	}
}

func (c *Container) resolveSingleton(registration *registration) (interface{}, error) {
	registration.mutex.Lock()
	defer registration.mutex.Unlock()

	if registration.initialized {
		return registration.instance, nil
	}

	instance, err := c.construct(registration)
	if err != nil {
		return nil, err
	}

	registration.instance = instance
	registration.initialized = true

	logger.Debug("Singleton initialized", map[string]interface{}{
		logger.FieldType: registration.key.String(),
		"mode":           registration.mode.String(),
	})
	return instance, nil
}

func (c *Container) construct(registration *registration) (interface{}, error) {
	args := make([]reflect.Value, len(registration.deps))
	for i, dep := range registration.deps {
		switch dep {
		case contextType:
			args[i] = reflect.ValueOf(context.Background())
		case injectorType:
			args[i] = reflect.ValueOf(Injector(c))
		default:
			value, err := c.Resolve(dep)
			if err != nil {
				return nil, apperrors.ResolutionFailed(registration.key, err)
			}
			args[i] = valueOf(value, dep)
		}
	}

	results := registration.constructor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, apperrors.ResolutionFailed(registration.key, results[1].Interface().(error))
	}
	return results[0].Interface(), nil
}

// valueOf keeps nil interface and pointer instances typed for reflect.Call.
func valueOf(v interface{}, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

// Registrations returns info about all bindings in registration order.
func (c *Container) Registrations() []RegistrationInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.order))
	for _, key := range c.order {
		reg := c.registrations[key]
		reg.mutex.Lock()
		result = append(result, RegistrationInfo{
			Type:        key.String(),
			Mode:        reg.mode,
			Module:      reg.module,
			Initialized: reg.initialized,
		})
		reg.mutex.Unlock()
	}
	return result
}

// Close closes every constructed container-scoped instance that implements
// io.Closer, in reverse registration order. Pre-built Singleton instances
// are owned by whoever bound them and are left open.
func (c *Container) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		reg := c.registrations[c.order[i]]
		if reg.mode != Eager && reg.mode != Lazy {
			continue
		}
		reg.mutex.Lock()
		if reg.initialized {
			if closer, ok := reg.instance.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close %s: %w", reg.key, err))
				}
			}
		}
		reg.mutex.Unlock()
	}
	return stderrors.Join(errs...)
}

// validate checks the binding graph: every dependency bound, no cycles,
// Scenario bindings backed by a scope, and no container-scoped instance
// capturing a scenario-scoped one.
func (c *Container) validate() error {
	var problems []string

	for _, key := range c.order {
		reg := c.registrations[key]
		if reg.mode == Scenario && c.scope == nil {
			problems = append(problems, fmt.Sprintf("%s is scenario-scoped but no scenario scope is bound", key))
		}
		for _, dep := range reg.deps {
			if dep == contextType || dep == injectorType {
				continue
			}
			depReg, ok := c.registrations[dep]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s depends on %s, which is not bound", key, dep))
				continue
			}
			if reg.mode.containerScoped() && c.scenarioDependent(depReg, map[reflect.Type]bool{}) {
				problems = append(problems, fmt.Sprintf("%s (%s) depends on scenario-scoped %s", key, reg.mode, dep))
			}
		}
	}

	if cycle := c.findCycle(); cycle != nil {
		names := make([]string, len(cycle))
		for i, t := range cycle {
			names[i] = t.String()
		}
		problems = append(problems, "dependency cycle: "+strings.Join(names, " -> "))
	}

	if len(problems) == 0 {
		return nil
	}
	return apperrors.Binding(strings.Join(problems, "; ")).
		WithDetail("problems", problems)
}

// scenarioDependent reports whether resolving reg yields or builds a
// scenario-scoped instance. Transient bindings inherit their dependencies' scope.
func (c *Container) scenarioDependent(reg *registration, seen map[reflect.Type]bool) bool {
	if reg.mode == Scenario {
		return true
	}
	if reg.mode != Transient || seen[reg.key] {
		return false
	}
	seen[reg.key] = true
	for _, dep := range reg.deps {
		if depReg, ok := c.registrations[dep]; ok && c.scenarioDependent(depReg, seen) {
			return true
		}
	}
	return false
}

func (c *Container) findCycle() []reflect.Type {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[reflect.Type]int, len(c.order))
	var stack []reflect.Type
	var cycle []reflect.Type

	var visit func(t reflect.Type) bool
	visit = func(t reflect.Type) bool {
		switch state[t] {
		case visiting:
			for i, s := range stack {
				if s == t {
					cycle = append(append([]reflect.Type{}, stack[i:]...), t)
					break
				}
			}
			return true
		case done:
			return false
		}

		state[t] = visiting
		stack = append(stack, t)
		if reg, ok := c.registrations[t]; ok {
			for _, dep := range reg.deps {
				if _, bound := c.registrations[dep]; bound && visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = done
		return false
	}

	for _, key := range c.order {
		if visit(key) {
			return cycle
		}
	}
	return nil
}

func joinBindingErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return stderrors.Join(errs...)
}
