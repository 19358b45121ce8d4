package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/kbukum/mobilekit/errors"
)

type settings struct{ platform string }

type client struct{ settings *settings }

type scenarioState struct{ values map[string]string }

type stepsA struct{ state *scenarioState }

type stepsB struct{ state *scenarioState }

type unbound struct{}

type closer struct {
	name   string
	closed *[]string
}

func (c *closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return nil
}

func newScenarioState() *scenarioState {
	return &scenarioState{values: map[string]string{}}
}

func newStepsA(s *scenarioState) *stepsA { return &stepsA{state: s} }

func newStepsB(s *scenarioState) *stepsB { return &stepsB{state: s} }

func testModule(scope *ScenarioScope) Module {
	return NewModule("test", func(b *Binder) error {
		BindScope(b, scope)
		Bind(b, &settings{platform: "android"})
		Provide[*client](b, Lazy, func(s *settings) *client { return &client{settings: s} })
		Provide[*scenarioState](b, Scenario, newScenarioState)
		Provide[*stepsA](b, Transient, newStepsA)
		Provide[*stepsB](b, Transient, newStepsB)
		return nil
	})
}

func TestNewAndResolve(t *testing.T) {
	c, err := New(Production, testModule(NewScenarioScope()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cl, err := Resolve[*client](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cl.settings.platform != "android" {
		t.Errorf("expected injected settings, got %+v", cl.settings)
	}

	again := MustResolve[*client](c)
	if again != cl {
		t.Error("expected lazy binding to be a singleton")
	}
}

func TestResolveNotRegistered(t *testing.T) {
	c, err := New(Production)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	v, err := c.Resolve(reflect.TypeOf(&unbound{}))
	if err == nil {
		t.Fatal("expected error for unregistered type")
	}
	if v != nil {
		t.Errorf("expected no instance, got %v", v)
	}
	if !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeResolution)) {
		t.Errorf("expected RESOLUTION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "no binding registered") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestProductionBuildsLazySingletons(t *testing.T) {
	calls := 0
	module := NewModule("lazy", func(b *Binder) error {
		Provide[*settings](b, Lazy, func() *settings {
			calls++
			return &settings{}
		})
		return nil
	})

	if _, err := New(Development, module); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected development stage to defer construction, got %d calls", calls)
	}

	if _, err := New(Production, module); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected production stage to construct once, got %d calls", calls)
	}
}

func TestEagerConstructorFailure(t *testing.T) {
	module := NewModule("broken", func(b *Binder) error {
		Provide[*settings](b, Eager, func() (*settings, error) {
			return nil, fmt.Errorf("settings file missing")
		})
		return nil
	})

	_, err := New(Development, module)
	if err == nil {
		t.Fatal("expected eager construction failure")
	}
	if !strings.Contains(err.Error(), "settings file missing") {
		t.Errorf("expected cause in error, got %v", err)
	}
}

func TestValidationMissingDependency(t *testing.T) {
	module := NewModule("missing", func(b *Binder) error {
		Provide[*client](b, Lazy, func(s *settings) *client { return &client{settings: s} })
		return nil
	})

	_, err := New(Development, module)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "not bound") {
		t.Errorf("expected unsatisfied dependency message, got %v", err)
	}
}

type cycleA struct{}
type cycleB struct{}

func TestValidationCycle(t *testing.T) {
	module := NewModule("cycle", func(b *Binder) error {
		Provide[*cycleA](b, Transient, func(*cycleB) *cycleA { return &cycleA{} })
		Provide[*cycleB](b, Transient, func(*cycleA) *cycleB { return &cycleB{} })
		return nil
	})

	_, err := New(Development, module)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "dependency cycle") {
		t.Errorf("expected cycle message, got %v", err)
	}
}

func TestValidationScenarioWithoutScope(t *testing.T) {
	module := NewModule("noscope", func(b *Binder) error {
		Provide[*scenarioState](b, Scenario, newScenarioState)
		return nil
	})

	_, err := New(Production, module)
	if err == nil || !strings.Contains(err.Error(), "no scenario scope is bound") {
		t.Fatalf("expected missing scope error, got %v", err)
	}
}

func TestValidationSingletonCapturesScenario(t *testing.T) {
	module := NewModule("widening", func(b *Binder) error {
		BindScope(b, NewScenarioScope())
		Provide[*scenarioState](b, Scenario, newScenarioState)
		Provide[*stepsA](b, Transient, newStepsA)
		Provide[*client](b, Lazy, func(*stepsA) *client { return &client{} })
		return nil
	})

	_, err := New(Production, module)
	if err == nil || !strings.Contains(err.Error(), "depends on scenario-scoped") {
		t.Fatalf("expected scope widening error, got %v", err)
	}
}

func TestDuplicateBinding(t *testing.T) {
	a := NewModule("a", func(b *Binder) error {
		Bind(b, &settings{})
		return nil
	})
	b := NewModule("b", func(b *Binder) error {
		Bind(b, &settings{})
		return nil
	})

	_, err := New(Production, a, b)
	if err == nil || !strings.Contains(err.Error(), "already bound by module a") {
		t.Fatalf("expected duplicate binding error, got %v", err)
	}
}

func TestInvalidConstructors(t *testing.T) {
	tests := []struct {
		name    string
		provide func(b *Binder)
		errMsg  string
	}{
		{"not a function", func(b *Binder) { Provide[*settings](b, Lazy, 42) }, "must be a function"},
		{"wrong result type", func(b *Binder) { Provide[*settings](b, Lazy, func() *client { return nil }) }, "constructor returns"},
		{"second result not error", func(b *Binder) {
			Provide[*settings](b, Lazy, func() (*settings, int) { return nil, 0 })
		}, "second constructor result"},
		{"no results", func(b *Binder) { Provide[*settings](b, Lazy, func() {}) }, "must return"},
		{"singleton mode", func(b *Binder) { Provide[*settings](b, Singleton, func() *settings { return nil }) }, "use Bind"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			module := NewModule("bad", func(b *Binder) error {
				tc.provide(b)
				return nil
			})
			_, err := New(Development, module)
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestModuleConfigureError(t *testing.T) {
	module := NewModule("failing", func(b *Binder) error {
		return fmt.Errorf("cannot read capabilities")
	})

	_, err := New(Production, module)
	if err == nil || !strings.Contains(err.Error(), "module failing") {
		t.Fatalf("expected module error, got %v", err)
	}
}

func TestContextAndInjectorParameters(t *testing.T) {
	var gotCtx context.Context
	var gotInjector Injector
	module := NewModule("special", func(b *Binder) error {
		Provide[*settings](b, Transient, func(ctx context.Context, inj Injector) *settings {
			gotCtx, gotInjector = ctx, inj
			return &settings{}
		})
		return nil
	})

	c, err := New(Production, module)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := Resolve[*settings](c); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if gotCtx == nil {
		t.Error("expected a context to be supplied")
	}
	if gotInjector != c {
		t.Error("expected the container to be supplied as injector")
	}

	inj, err := Resolve[Injector](c)
	if err != nil || inj != c {
		t.Errorf("expected Injector to resolve to the container, got %v, %v", inj, err)
	}
}

func TestTransientCreatesNewInstances(t *testing.T) {
	module := NewModule("transient", func(b *Binder) error {
		Provide[*settings](b, Transient, func() *settings { return &settings{} })
		return nil
	})
	c, err := New(Production, module)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if MustResolve[*settings](c) == MustResolve[*settings](c) {
		t.Error("expected transient binding to create a new instance each time")
	}
}

func TestTryResolve(t *testing.T) {
	c, err := New(Production, testModule(NewScenarioScope()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok := TryResolve[*unbound](c); ok {
		t.Error("expected TryResolve to fail for unbound type")
	}
	if s, ok := TryResolve[*settings](c); !ok || s.platform != "android" {
		t.Errorf("expected bound settings, got %v, %v", s, ok)
	}
}

func TestMustResolvePanics(t *testing.T) {
	c, _ := New(Production)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unbound type")
		}
	}()
	MustResolve[*unbound](c)
}

func TestRegistrations(t *testing.T) {
	c, err := New(Development, testModule(NewScenarioScope()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	infos := c.Registrations()
	if len(infos) != 6 {
		t.Fatalf("expected 6 registrations, got %d", len(infos))
	}
	if infos[0].Type != "*di.ScenarioScope" || infos[0].Mode != Singleton {
		t.Errorf("unexpected first registration %+v", infos[0])
	}
	if infos[2].Type != "*di.client" || infos[2].Initialized {
		t.Errorf("expected lazy client to be uninitialized in development, got %+v", infos[2])
	}
	if infos[2].Module != "test" {
		t.Errorf("expected module name, got %q", infos[2].Module)
	}
}

func TestCloseClosesConstructedSingletons(t *testing.T) {
	var closed []string
	module := NewModule("closers", func(b *Binder) error {
		Provide[*closer](b, Eager, func() *closer { return &closer{name: "eager", closed: &closed} })
		Bind(b, &settings{})
		return nil
	})

	c, err := New(Production, module)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(closed) != 1 || closed[0] != "eager" {
		t.Errorf("expected eager closer to be closed, got %v", closed)
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := Resolve[*settings](c); err == nil {
		t.Error("expected resolve on closed container to fail")
	}
}

func TestStageAndModeStrings(t *testing.T) {
	if Production.String() != "production" || Development.String() != "development" {
		t.Error("unexpected stage strings")
	}
	modes := map[RegistrationMode]string{
		Eager: "eager", Lazy: "lazy", Singleton: "singleton", Scenario: "scenario", Transient: "transient",
	}
	for mode, want := range modes {
		if mode.String() != want {
			t.Errorf("expected %q, got %q", want, mode.String())
		}
	}
}
