package di

import (
	"fmt"
	"reflect"
)

// Resolve resolves T with type safety, returns error on failure.
//
// Example:
//
//	steps, err := di.Resolve[*LoginSteps](container)
//	if err != nil {
//	    return fmt.Errorf("failed to get login steps: %w", err)
//	}
func Resolve[T any](inj Injector) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	instance, err := inj.Resolve(t)
	if err != nil {
		return zero, err
	}
	if instance == nil {
		return zero, nil
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: binding for %s produced %T", t, instance)
	}
	return result, nil
}

// MustResolve resolves T, panics on error.
// Use this only in wiring code where a missing binding is a programming error.
func MustResolve[T any](inj Injector) T {
	result, err := Resolve[T](inj)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s: %v", reflect.TypeFor[T](), err))
	}
	return result
}

// TryResolve resolves T, returns zero value and false if it cannot be resolved.
//
// Example:
//
//	if metrics, ok := di.TryResolve[*observability.Metrics](c); ok {
//	    metrics.RecordScenario(ctx, status, d)
//	}
func TryResolve[T any](inj Injector) (T, bool) {
	result, err := Resolve[T](inj)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}
