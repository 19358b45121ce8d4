package di

import (
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/mobilekit/errors"
)

// ScenarioScope holds the instances of Scenario bindings for the scenario
// currently running. It moves between outside-scope and in-scope; Enter and
// Exit must alternate.
type ScenarioScope struct {
	mu        sync.Mutex
	active    bool
	id        string
	instances map[reflect.Type]interface{}
	order     []reflect.Type
}

// NewScenarioScope creates a scope that is not entered yet.
func NewScenarioScope() *ScenarioScope {
	return &ScenarioScope{}
}

// Enter starts a new scenario lifetime.
func (s *ScenarioScope) Enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return apperrors.ScopeState("scenario scope already entered").WithDetail("scope_id", s.id)
	}
	s.active = true
	s.id = uuid.NewString()
	s.instances = make(map[reflect.Type]interface{})
	s.order = nil
	return nil
}

// Exit ends the scenario lifetime. Instances created inside it are dropped;
// those implementing io.Closer are closed in reverse creation order.
func (s *ScenarioScope) Exit() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return apperrors.ScopeState("scenario scope exited without being entered")
	}
	instances, order := s.instances, s.order
	s.active = false
	s.id = ""
	s.instances = nil
	s.order = nil
	s.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if closer, ok := instances[order[i]].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", order[i], err))
			}
		}
	}
	return stderrors.Join(errs...)
}

// Active reports whether a scenario lifetime is in progress.
func (s *ScenarioScope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ID returns the id of the current lifetime, or "" outside a scenario.
func (s *ScenarioScope) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// get returns the scoped instance of t, creating it on first use. The lock
// is released while create runs so it can resolve other scoped types.
func (s *ScenarioScope) get(t reflect.Type, create func() (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, apperrors.OutOfScope(t)
	}
	if instance, ok := s.instances[t]; ok {
		s.mu.Unlock()
		return instance, nil
	}
	id := s.id
	s.mu.Unlock()

	instance, err := create()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.id != id {
		return nil, apperrors.OutOfScope(t)
	}
	if existing, ok := s.instances[t]; ok {
		return existing, nil
	}
	s.instances[t] = instance
	s.order = append(s.order, t)
	return instance, nil
}
