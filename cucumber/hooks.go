package cucumber

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/mobilekit/logger"
)

// HookFunc runs before or after a scenario.
type HookFunc func(ctx context.Context) error

// Hook is a named scenario hook. Hooks of one kind run in ascending Order;
// hooks with equal Order run in registration order.
type Hook struct {
	Name  string
	Order int
	Fn    HookFunc
}

// Hooks holds the ordered before and after scenario hooks.
type Hooks struct {
	mu     sync.Mutex
	before []Hook
	after  []Hook
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{}
}

// Before registers a hook run before each scenario.
func (h *Hooks) Before(name string, order int, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = insertHook(h.before, Hook{Name: name, Order: order, Fn: fn})
}

// After registers a hook run after each scenario. Order 0 runs first.
func (h *Hooks) After(name string, order int, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after = insertHook(h.after, Hook{Name: name, Order: order, Fn: fn})
}

func insertHook(hooks []Hook, hook Hook) []Hook {
	hooks = append(hooks, hook)
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Order < hooks[j].Order })
	return hooks
}

// BeforeHooks returns the before hooks in run order.
func (h *Hooks) BeforeHooks() []Hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Hook(nil), h.before...)
}

// AfterHooks returns the after hooks in run order.
func (h *Hooks) AfterHooks() []Hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Hook(nil), h.after...)
}

// RunBefore runs the before hooks, stopping at the first failure.
func (h *Hooks) RunBefore(ctx context.Context) error {
	for _, hook := range h.BeforeHooks() {
		if err := runHook(ctx, "before", hook); err != nil {
			return err
		}
	}
	return nil
}

// RunAfter runs every after hook and returns their joined errors. A failing
// hook does not skip the hooks after it.
func (h *Hooks) RunAfter(ctx context.Context) error {
	var errs []error
	for _, hook := range h.AfterHooks() {
		if err := runHook(ctx, "after", hook); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func runHook(ctx context.Context, kind string, hook Hook) error {
	start := time.Now()
	err := hook.Fn(ctx)
	fields := logger.Fields(
		logger.FieldHook, hook.Name,
		logger.FieldOrder, hook.Order,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		logger.WithContext(ctx).Error(kind+" hook failed", logger.MergeWithError(fields, err))
		return fmt.Errorf("%s hook %s: %w", kind, hook.Name, err)
	}
	logger.WithContext(ctx).Debug(kind+" hook done", fields)
	return nil
}
